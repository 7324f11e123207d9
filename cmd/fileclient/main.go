package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/AnishMulay/filexfer/client"
	"github.com/AnishMulay/filexfer/protocol"
)

type shell struct {
	client *client.Client
	in     *bufio.Scanner
	out    io.Writer
	dir    string
}

func main() {
	addr := pflag.String("addr", "127.0.0.1:13337", "server address")
	timeout := pflag.Duration("timeout", client.DefaultTimeout, "per-request timeout")
	dir := pflag.String("dir", ".", "directory downloads are written to")
	pflag.Parse()

	c := client.New(*addr)
	c.Timeout = *timeout

	sh := &shell{
		client: c,
		in:     bufio.NewScanner(os.Stdin),
		out:    os.Stdout,
		dir:    *dir,
	}
	sh.run()
}

func (s *shell) run() {
	fmt.Fprintln(s.out, "=== File Client ===")
	for {
		fmt.Fprint(s.out, "\ncommand (list/get/upload/delete/download/quit): ")
		if !s.in.Scan() {
			return
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if !s.handle(line) {
			return
		}
	}
}

// handle runs one command line and reports whether to keep going.
func (s *shell) handle(line string) bool {
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToUpper(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "LIST":
		s.list()
	case "GET":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: get <filename>")
			break
		}
		s.download(arg)
	case "UPLOAD":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: upload <path>")
			break
		}
		s.upload(arg)
	case "DELETE":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: delete <filename>")
			break
		}
		s.delete(arg)
	case "DOWNLOAD":
		s.pick()
	case "QUIT":
		fmt.Fprintln(s.out, "bye")
		return false
	default:
		fmt.Fprintln(s.out, "unknown command")
	}
	return true
}

func (s *shell) execute(command string) protocol.Result {
	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()
	return s.client.Execute(ctx, command)
}

func (s *shell) names() ([]string, bool) {
	res := s.execute("LIST")
	list, ok := res.Payload.(protocol.FileList)
	if res.Status != protocol.StatusOK || !ok {
		fmt.Fprintf(s.out, "failed: %s\n", res.Text())
		return nil, false
	}
	return list, true
}

func (s *shell) list() {
	names, ok := s.names()
	if !ok {
		return
	}
	fmt.Fprintln(s.out, "files:")
	for i, name := range names {
		fmt.Fprintf(s.out, "%d. %s\n", i+1, name)
	}
}

func (s *shell) download(name string) {
	start := time.Now()
	res := s.execute("GET " + name)
	fc, ok := res.Payload.(protocol.FileContent)
	if res.Status != protocol.StatusOK || !ok {
		fmt.Fprintf(s.out, "failed: %s\n", res.Text())
		return
	}

	// never write outside the download directory, whatever the server says
	target := filepath.Join(s.dir, filepath.Base(fc.Name))
	if err := os.WriteFile(target, fc.Content, 0644); err != nil {
		fmt.Fprintf(s.out, "failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "downloaded %s (%d bytes) in %s\n", name, len(fc.Content), time.Since(start).Round(time.Millisecond))
}

func (s *shell) upload(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(s.out, "failed: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()
	res, err := s.client.Add(ctx, filepath.Base(path), content)
	if err != nil {
		res = protocol.Errorf("connection error: %v", err)
	}
	if res.Status != protocol.StatusOK {
		fmt.Fprintf(s.out, "upload failed: %s\n", res.Text())
		return
	}
	fmt.Fprintln(s.out, res.Text())
}

func (s *shell) delete(name string) {
	res := s.execute("DELETE " + name)
	if res.Status != protocol.StatusOK {
		fmt.Fprintf(s.out, "failed: %s\n", res.Text())
		return
	}
	fmt.Fprintln(s.out, res.Text())
}

// pick lists the remote files and downloads the one chosen by number.
func (s *shell) pick() {
	names, ok := s.names()
	if !ok {
		return
	}
	if len(names) == 0 {
		fmt.Fprintln(s.out, "no files to download")
		return
	}
	for i, name := range names {
		fmt.Fprintf(s.out, "%d. %s\n", i+1, name)
	}

	for {
		fmt.Fprint(s.out, "choose a file number (or 'q' to go back): ")
		if !s.in.Scan() {
			return
		}
		choice := strings.TrimSpace(s.in.Text())
		if strings.EqualFold(choice, "q") {
			return
		}
		n, err := strconv.Atoi(choice)
		if err != nil || n < 1 || n > len(names) {
			fmt.Fprintln(s.out, "invalid number")
			continue
		}
		s.download(names[n-1])
		return
	}
}
