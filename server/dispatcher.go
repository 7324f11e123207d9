package server

import (
	"errors"
	"fmt"
	"log"

	"github.com/AnishMulay/filexfer/protocol"
)

// Executor performs the file operations. Each method receives the
// parsed arguments positionally and reports failures in the Result.
type Executor interface {
	List(args []string) protocol.Result
	Get(args []string) protocol.Result
	Add(args []string) protocol.Result
	Delete(args []string) protocol.Result
}

type handlerFunc func(Executor, []string) protocol.Result

var handlers = map[protocol.Verb]handlerFunc{
	protocol.VerbList:   Executor.List,
	protocol.VerbGet:    Executor.Get,
	protocol.VerbAdd:    Executor.Add,
	protocol.VerbDelete: Executor.Delete,
}

// Dispatcher turns request text into a response.
type Dispatcher struct {
	executor Executor
	logger   *log.Logger
}

func NewDispatcher(executor Executor, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		executor: executor,
		logger:   logger,
	}
}

// Execute parses one request and runs it. It never panics: anything
// not already turned into a status becomes FAILED.
func (d *Dispatcher) Execute(text string) (result protocol.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("[dispatch]: Command processing failed: %v", r)
			result = protocol.Failed(fmt.Sprintf("Exception: %v", r))
		}
	}()

	d.logger.Printf("[dispatch]: Incoming command: %s", truncate(text, 100))

	cmd, err := protocol.Parse(text)
	if err != nil {
		var perr *protocol.ParseError
		if errors.As(err, &perr) {
			return protocol.Failed(perr.Reason)
		}
		return protocol.Failed(fmt.Sprintf("Exception: %v", err))
	}

	handle, ok := handlers[cmd.Verb]
	if !ok {
		return protocol.Failed("Unrecognized command")
	}

	d.logger.Printf("[dispatch]: Handling command: %s", cmd.Verb)
	return handle(d.executor, cmd.Args)
}

// Respond executes text and encodes the result as a response body.
func (d *Dispatcher) Respond(text string) (protocol.Result, []byte) {
	result := d.Execute(text)
	body := protocol.Encode(result)
	d.logger.Printf("[dispatch]: Response size: %d bytes", len(body))
	return result, body
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
