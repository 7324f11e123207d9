package server

import (
	"context"
	"log"
	"net"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Runner executes the connection worker for one accepted connection.
// It returns once the connection is finished. ctx is cancelled when the
// server gives up waiting for running workers.
type Runner interface {
	Run(ctx context.Context, id string, conn net.Conn)
}

// Scheduler runs submitted connections with at most a fixed number
// executing at once. Submit never blocks: connections beyond the limit
// wait for a free slot.
type Scheduler struct {
	sem    *semaphore.Weighted
	runner Runner
	stats  *Stats
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(workers int, runner Runner, stats *Stats, logger *log.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if stats == nil {
		stats = NewStats()
	}
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sem:    semaphore.NewWeighted(int64(workers)),
		runner: runner,
		stats:  stats,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Submit(id string, conn net.Conn) {
	s.wg.Add(1)
	s.stats.queued.Add(1)

	go func() {
		defer s.wg.Done()

		err := s.sem.Acquire(s.ctx, 1)
		s.stats.queued.Add(-1)
		if err != nil {
			s.logger.Printf("[%s]: Dropping queued connection from %s: %v", id, conn.RemoteAddr(), err)
			conn.Close()
			s.stats.closed.Add(1)
			return
		}
		defer s.sem.Release(1)

		s.stats.active.Add(1)
		defer func() {
			s.stats.active.Add(-1)
			s.stats.closed.Add(1)
		}()

		s.runner.Run(s.ctx, id, conn)
	}()
}

// Wait blocks until every submitted connection has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Abort cancels queued connections and signals running ones to stop.
func (s *Scheduler) Abort() {
	s.cancel()
}

// poolRunner serves the connection on the calling goroutine.
type poolRunner struct {
	dispatcher *Dispatcher
	config     WorkerConfig
	stats      *Stats
	logger     *log.Logger
}

func (r *poolRunner) Run(ctx context.Context, id string, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	w := &connWorker{
		id:         id,
		conn:       conn,
		dispatcher: r.dispatcher,
		config:     r.config,
		stats:      r.stats,
		logger:     r.logger,
	}
	w.serve()
}
