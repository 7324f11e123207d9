package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/AnishMulay/filexfer/client"
	"github.com/AnishMulay/filexfer/protocol"
)

// sample is the outcome of one request.
type sample struct {
	ok       bool
	duration time.Duration
	bytes    int
	message  string
}

// report summarizes one load run.
type report struct {
	Op             string
	File           string
	Clients        int
	Success        int
	Fail           int
	Total          time.Duration
	AvgLatency     time.Duration
	AvgThroughput  float64 // bytes per second per successful client
	FirstErrorText string
}

func main() {
	addr := pflag.String("addr", "127.0.0.1:13337", "server address")
	op := pflag.String("op", "upload", "operation: upload or download")
	file := pflag.String("file", "", "file to upload, or remote name to download")
	clients := pflag.Int("clients", 10, "number of concurrent clients")
	timeout := pflag.Duration("timeout", client.DefaultTimeout, "per-request timeout")
	pflag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if *file == "" {
		logger.Fatal("--file is required")
	}

	c := client.New(*addr)
	c.Timeout = *timeout

	r, err := run(context.Background(), c, *op, *file, *clients)
	if err != nil {
		logger.Fatal(err)
	}
	printReport(os.Stdout, r)
}

func run(ctx context.Context, c *client.Client, op, file string, clients int) (report, error) {
	var task func(ctx context.Context) sample
	switch op {
	case "upload":
		content, err := os.ReadFile(file)
		if err != nil {
			return report{}, err
		}
		name := filepath.Base(file)
		task = func(ctx context.Context) sample {
			start := time.Now()
			res, err := c.Add(ctx, name, content)
			return toSample(res, err, time.Since(start), len(content))
		}
	case "download":
		task = func(ctx context.Context) sample {
			start := time.Now()
			res, err := c.Get(ctx, file)
			n := 0
			if fc, ok := res.Payload.(protocol.FileContent); ok {
				n = len(fc.Content)
			}
			return toSample(res, err, time.Since(start), n)
		}
	default:
		return report{}, fmt.Errorf("unknown operation %q", op)
	}

	var (
		mu      sync.Mutex
		samples []sample
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(clients)

	start := time.Now()
	for i := 0; i < clients; i++ {
		g.Go(func() error {
			s := task(gctx)
			mu.Lock()
			samples = append(samples, s)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return summarize(op, file, samples, time.Since(start)), nil
}

func toSample(res protocol.Result, err error, d time.Duration, n int) sample {
	if err != nil {
		return sample{duration: d, message: "connection error: " + err.Error()}
	}
	if res.Status != protocol.StatusOK {
		return sample{duration: d, message: res.Text()}
	}
	return sample{ok: true, duration: d, bytes: n}
}

func summarize(op, file string, samples []sample, total time.Duration) report {
	r := report{Op: op, File: file, Clients: len(samples), Total: total}

	var latency time.Duration
	var throughput float64
	for _, s := range samples {
		latency += s.duration
		if !s.ok {
			r.Fail++
			if r.FirstErrorText == "" {
				r.FirstErrorText = s.message
			}
			continue
		}
		r.Success++
		if s.duration > 0 {
			throughput += float64(s.bytes) / s.duration.Seconds()
		}
	}
	if len(samples) > 0 {
		r.AvgLatency = latency / time.Duration(len(samples))
	}
	if r.Success > 0 {
		r.AvgThroughput = throughput / float64(r.Success)
	}
	return r
}

func printReport(w io.Writer, r report) {
	fmt.Fprintf(w, "operation:       %s\n", r.Op)
	fmt.Fprintf(w, "file:            %s\n", r.File)
	fmt.Fprintf(w, "clients:         %d\n", r.Clients)
	fmt.Fprintf(w, "success / fail:  %d / %d\n", r.Success, r.Fail)
	fmt.Fprintf(w, "total time:      %s\n", r.Total.Round(time.Millisecond))
	fmt.Fprintf(w, "avg latency:     %s\n", r.AvgLatency.Round(time.Millisecond))
	fmt.Fprintf(w, "avg throughput:  %.2f bytes/s\n", r.AvgThroughput)
	if r.FirstErrorText != "" {
		fmt.Fprintf(w, "first error:     %s\n", r.FirstErrorText)
	}
}
