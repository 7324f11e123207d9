package main

import (
	"log"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/AnishMulay/filexfer/config"
	"github.com/AnishMulay/filexfer/server"
	"github.com/AnishMulay/filexfer/store"
)

// serveConnCommand starts this binary as a single-connection worker
// for the process strategy.
const serveConnCommand = "serve-conn"

type childOptions struct {
	root        string
	fileMode    uint32
	maxFileSize int64
	worker      server.WorkerConfig
}

func childFlags(opts *childOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet(serveConnCommand, pflag.ContinueOnError)
	fs.StringVar(&opts.root, "root", "", "storage root")
	fs.Uint32Var(&opts.fileMode, "file-mode", uint32(store.DefaultFileMode), "mode of written files")
	fs.Int64Var(&opts.maxFileSize, "max-file-size", 0, "maximum upload size")
	fs.DurationVar(&opts.worker.IdleTimeout, "idle-timeout", 0, "idle read timeout")
	fs.DurationVar(&opts.worker.WriteTimeout, "write-timeout", 0, "response write timeout")
	fs.IntVar(&opts.worker.MaxFrameSize, "max-frame-size", 0, "maximum request size")
	fs.IntVar(&opts.worker.ReadChunkSize, "read-chunk-size", 0, "socket read size")
	fs.IntVar(&opts.worker.WriteChunkSize, "write-chunk-size", 0, "socket write size")
	return fs
}

// childArgs are the arguments a ProcessRunner starts children with.
func childArgs(cfg *config.Config, root string) []string {
	return []string{
		serveConnCommand,
		"--root", root,
		"--file-mode", strconv.FormatUint(uint64(cfg.Storage.DefaultFileMode), 10),
		"--max-file-size", strconv.FormatInt(cfg.Storage.MaxFileSize, 10),
		"--idle-timeout", cfg.Network.IdleTimeout.String(),
		"--write-timeout", cfg.Network.WriteTimeout.String(),
		"--max-frame-size", strconv.Itoa(cfg.Network.MaxFrameSize),
		"--read-chunk-size", strconv.Itoa(cfg.Network.ReadChunkSize),
		"--write-chunk-size", strconv.Itoa(cfg.Network.WriteChunkSize),
	}
}

func parseChildArgs(args []string) (childOptions, error) {
	var opts childOptions
	if err := childFlags(&opts).Parse(args); err != nil {
		return childOptions{}, err
	}
	return opts, nil
}

func runChild(args []string, logger *log.Logger) error {
	opts, err := parseChildArgs(args)
	if err != nil {
		return err
	}

	logger.SetPrefix("[pid " + strconv.Itoa(os.Getpid()) + "] ")
	st, err := store.NewStore(store.StoreConfig{
		Root:        opts.root,
		FileMode:    os.FileMode(opts.fileMode),
		MaxFileSize: opts.maxFileSize,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return server.ServeInherited(server.NewDispatcher(st, logger), opts.worker, logger)
}
