package main

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnishMulay/filexfer/config"
	"github.com/AnishMulay/filexfer/server"
)

func TestParseWorkers(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	assert.Equal(t, 25, parseWorkers("25", logger))
	assert.Equal(t, config.DefaultWorkers, parseWorkers("0", logger))
	assert.Equal(t, config.DefaultWorkers, parseWorkers("-3", logger))
	assert.Equal(t, config.DefaultWorkers, parseWorkers("many", logger))
}

func TestChildArgsCarryWorkerConfig(t *testing.T) {
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	cfg.Network.IdleTimeout = 42 * time.Second
	cfg.Network.MaxFrameSize = 4096
	cfg.Storage.MaxFileSize = 1000

	args := childArgs(cfg, "/srv/files")
	require.Equal(t, serveConnCommand, args[0])

	opts, err := parseChildArgs(args[1:])
	require.NoError(t, err)

	assert.Equal(t, "/srv/files", opts.root)
	assert.Equal(t, uint32(0644), opts.fileMode)
	assert.Equal(t, int64(1000), opts.maxFileSize)
	assert.Equal(t, server.WorkerConfig{
		IdleTimeout:    42 * time.Second,
		WriteTimeout:   300 * time.Second,
		MaxFrameSize:   4096,
		ReadChunkSize:  1 << 20,
		WriteChunkSize: 1 << 16,
	}, opts.worker)
	assert.Equal(t, workerConfig(cfg), opts.worker)
}
