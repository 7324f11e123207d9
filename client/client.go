package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"time"

	"github.com/AnishMulay/filexfer/protocol"
)

const DefaultTimeout = 300 * time.Second

// Client sends one request per connection, the way the server expects
// its peers to.
type Client struct {
	Addr    string
	Timeout time.Duration
	// MaxFrameSize bounds a response. Zero means no limit.
	MaxFrameSize int
}

func New(addr string) *Client {
	return &Client{Addr: addr, Timeout: DefaultTimeout}
}

// Do sends command, adding the terminator, and decodes the response.
// Errors are transport or decoding failures; server-side failures come
// back as a Result with a non-OK status.
func (c *Client) Do(ctx context.Context, command string) (protocol.Result, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return protocol.Result{}, err
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return protocol.Result{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	if _, err := protocol.WriteFrame(conn, []byte(command), 0); err != nil {
		return protocol.Result{}, fmt.Errorf("sending request: %w", err)
	}

	frame, err := protocol.NewFrameReader(conn, c.MaxFrameSize, 0).ReadFrame()
	if err != nil {
		return protocol.Result{}, fmt.Errorf("reading response: %w", err)
	}

	result, err := protocol.Decode(frame)
	if err != nil {
		return protocol.Result{}, fmt.Errorf("decoding response: %w", err)
	}
	return result, nil
}

// Execute is Do with transport failures turned into a local ERROR
// result, so callers always get something to show.
func (c *Client) Execute(ctx context.Context, command string) protocol.Result {
	result, err := c.Do(ctx, command)
	if err != nil {
		return protocol.Errorf("connection error: %v", err)
	}
	return result
}

func (c *Client) List(ctx context.Context) (protocol.Result, error) {
	return c.Do(ctx, protocol.Command{Verb: protocol.VerbList}.Format())
}

func (c *Client) Get(ctx context.Context, name string) (protocol.Result, error) {
	return c.Do(ctx, protocol.Command{Verb: protocol.VerbGet, Args: []string{name}}.Format())
}

func (c *Client) Add(ctx context.Context, name string, content []byte) (protocol.Result, error) {
	encoded := base64.StdEncoding.EncodeToString(content)
	return c.Do(ctx, protocol.Command{Verb: protocol.VerbAdd, Args: []string{name, encoded}}.Format())
}

func (c *Client) Delete(ctx context.Context, name string) (protocol.Result, error) {
	return c.Do(ctx, protocol.Command{Verb: protocol.VerbDelete, Args: []string{name}}.Format())
}
