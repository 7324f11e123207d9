package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/AnishMulay/filexfer/config"
	"github.com/AnishMulay/filexfer/server"
	"github.com/AnishMulay/filexfer/status"
	"github.com/AnishMulay/filexfer/store"
	"github.com/AnishMulay/filexfer/watch"
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

	if len(os.Args) > 1 && os.Args[1] == serveConnCommand {
		if err := runChild(os.Args[2:], logger); err != nil {
			logger.Fatal(err)
		}
		return
	}

	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal(err)
	}
	if flags.NArg() > 0 {
		flags.Set("workers", strconv.Itoa(parseWorkers(flags.Arg(0), logger)))
	}

	configPath, _ := flags.GetString("config")
	cfg, err := config.LoadConfig(configPath, flags)
	if err != nil {
		logger.Fatal(err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal(err)
	}
}

// parseWorkers reads the optional positional worker count, falling back
// to the default on bad input.
func parseWorkers(arg string, logger *log.Logger) int {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		logger.Printf("Invalid worker count %q, defaulting to %d workers", arg, config.DefaultWorkers)
		return config.DefaultWorkers
	}
	return n
}

func run(cfg *config.Config, logger *log.Logger) error {
	st, err := store.NewStore(store.StoreConfig{
		Root:        cfg.Storage.StorageRoot,
		FileMode:    os.FileMode(cfg.Storage.DefaultFileMode),
		MaxFileSize: cfg.Storage.MaxFileSize,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := server.NewStats()

	var runner server.Runner
	if cfg.Scheduler.Strategy == config.Process {
		exe, err := os.Executable()
		if err != nil {
			return err
		}
		runner = &server.ProcessRunner{
			Executable: exe,
			Args:       childArgs(cfg, st.Root()),
			Logger:     logger,
		}
	}

	srv, err := server.NewServer(server.ServerConfig{
		ListenAddress:   cfg.Network.ListenAddress,
		Workers:         cfg.Scheduler.Workers,
		Worker:          workerConfig(cfg),
		ShutdownTimeout: cfg.Network.ShutdownTimeout,
		Executor:        st,
		Runner:          runner,
		Stats:           stats,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	if cfg.Status.ListenAddress != "" {
		go func() {
			if err := status.Serve(ctx, cfg.Status.ListenAddress, stats, logger); err != nil {
				logger.Printf("[status]: %v", err)
			}
		}()
	}

	if cfg.Watch.Enabled {
		w, err := watch.NewWatcher(watch.WatcherConfig{
			Dir:     st.Root(),
			OnEvent: func(watch.Event) { stats.StorageEvent() },
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		go w.Run(ctx)
	}

	logger.Printf("Serving %s with strategy %s", st.Root(), cfg.Scheduler.Strategy)
	err = srv.ListenAndServe(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Printf("Some connections were closed before finishing")
		return nil
	}
	return err
}

func workerConfig(cfg *config.Config) server.WorkerConfig {
	return server.WorkerConfig{
		IdleTimeout:    cfg.Network.IdleTimeout,
		WriteTimeout:   cfg.Network.WriteTimeout,
		MaxFrameSize:   cfg.Network.MaxFrameSize,
		ReadChunkSize:  cfg.Network.ReadChunkSize,
		WriteChunkSize: cfg.Network.WriteChunkSize,
	}
}
