package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
)

// ConnIDEnv carries the connection id into a child process.
const ConnIDEnv = "FILEXFER_CONN_ID"

// inheritedConnFD is the descriptor of the first entry in ExtraFiles.
const inheritedConnFD = 3

type fileConn interface {
	File() (*os.File, error)
}

// ProcessRunner serves each connection in a child process. The child is
// started as Executable with Args and receives the socket as fd 3.
type ProcessRunner struct {
	Executable string
	Args       []string
	Logger     *log.Logger
}

func (p *ProcessRunner) Run(ctx context.Context, id string, conn net.Conn) {
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	defer conn.Close()

	fc, ok := conn.(fileConn)
	if !ok {
		logger.Printf("[%s]: Connection type %T cannot be passed to a process", id, conn)
		return
	}
	f, err := fc.File()
	if err != nil {
		logger.Printf("[%s]: Error duplicating connection: %v", id, err)
		return
	}

	cmd := exec.CommandContext(ctx, p.Executable, p.Args...)
	cmd.ExtraFiles = []*os.File{f}
	cmd.Env = append(os.Environ(), ConnIDEnv+"="+id)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Start()
	// the child owns the socket now
	f.Close()
	conn.Close()
	if err != nil {
		logger.Printf("[%s]: Error starting worker process: %v", id, err)
		return
	}

	logger.Printf("[%s]: Worker process %d started", id, cmd.Process.Pid)
	if err := cmd.Wait(); err != nil {
		logger.Printf("[%s]: Worker process %d exited: %v", id, cmd.Process.Pid, err)
		return
	}
	logger.Printf("[%s]: Worker process %d finished", id, cmd.Process.Pid)
}

// ServeInherited serves the connection passed to this process by a
// ProcessRunner and returns once it is closed.
func ServeInherited(dispatcher *Dispatcher, config WorkerConfig, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	f := os.NewFile(inheritedConnFD, "conn")
	if f == nil {
		return fmt.Errorf("no inherited connection on fd %d", inheritedConnFD)
	}
	conn, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("opening inherited connection: %w", err)
	}

	id := os.Getenv(ConnIDEnv)
	if id == "" {
		id = fmt.Sprintf("pid-%d", os.Getpid())
	}

	w := &connWorker{
		id:         id,
		conn:       conn,
		dispatcher: dispatcher,
		config:     config,
		stats:      NewStats(),
		logger:     logger,
	}
	w.serve()
	return nil
}
