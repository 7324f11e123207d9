package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/AnishMulay/filexfer/transport"
)

var ErrServerClosed = errors.New("server closed")

type ServerConfig struct {
	ListenAddress string
	// Workers bounds how many connections are served at once.
	Workers int
	Worker  WorkerConfig
	// ShutdownTimeout is how long ListenAndServe waits for running
	// connections before closing them.
	ShutdownTimeout time.Duration
	Executor        Executor
	// Runner executes workers. Nil serves connections in-process.
	Runner Runner
	Stats  *Stats
	Logger *log.Logger
}

// Server accepts connections and schedules a worker for each.
type Server struct {
	ServerConfig

	transport  *transport.TCPTransport
	scheduler  *Scheduler
	dispatcher *Dispatcher

	mutex   sync.Mutex
	started bool
	closed  bool
}

func NewServer(config ServerConfig) (*Server, error) {
	if config.Executor == nil && config.Runner == nil {
		return nil, errors.New("executor or runner is required")
	}
	if config.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", config.Workers)
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.Stats == nil {
		config.Stats = NewStats()
	}

	s := &Server{ServerConfig: config}
	if config.Executor != nil {
		s.dispatcher = NewDispatcher(config.Executor, config.Logger)
	}
	if s.Runner == nil {
		s.Runner = &poolRunner{
			dispatcher: s.dispatcher,
			config:     config.Worker,
			stats:      config.Stats,
			logger:     config.Logger,
		}
	}

	s.scheduler = NewScheduler(config.Workers, s.Runner, config.Stats, config.Logger)
	s.transport = transport.NewTCPTransport(transport.TCPTransportConfig{
		ListenAddress: config.ListenAddress,
		OnConn:        s.handleConn,
		Logger:        config.Logger,
	})
	return s, nil
}

// Start binds the listener and begins accepting in the background.
func (s *Server) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.started {
		return errors.New("server already started")
	}
	if err := s.transport.ListenAndAccept(); err != nil {
		return err
	}
	s.started = true
	s.Logger.Printf("[%s]: Server started with %d workers", s.transport.Addr(), s.Workers)
	return nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.transport.Addr()
}

func (s *Server) handleConn(conn net.Conn) {
	s.Stats.accepted.Add(1)

	id := newConnID()
	s.Logger.Printf("[%s]: New client connection from %s", id, conn.RemoteAddr())
	s.scheduler.Submit(id, conn)
}

// Shutdown stops accepting and waits for queued and running connections.
// When ctx ends first, remaining connections are closed and joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return ErrServerClosed
	}
	s.closed = true
	s.mutex.Unlock()

	s.Logger.Printf("[%s]: Shutting down, no longer accepting connections", s.transport.Addr())
	err := s.transport.Close()

	done := make(chan struct{})
	go func() {
		s.scheduler.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.Logger.Printf("[%s]: All connections finished", s.transport.Addr())
		return err
	case <-ctx.Done():
	}

	s.Logger.Printf("[%s]: Shutdown timeout, closing remaining connections", s.transport.Addr())
	s.scheduler.Abort()
	<-done
	return errors.Join(err, ctx.Err())
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it
// down within ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx := context.Background()
	if s.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.ShutdownTimeout)
		defer cancel()
	}
	return s.Shutdown(shutdownCtx)
}

func newConnID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("conn-%d", time.Now().UnixNano())
	}
	return id.String()
}
