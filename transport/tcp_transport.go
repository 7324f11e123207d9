package transport

import (
	"errors"
	"log"
	"net"
	"sync"
	"time"
)

type TCPTransportConfig struct {
	ListenAddress string
	OnConn        ConnHandler
	Logger        *log.Logger
}

// TCPTransport listens on a TCP address and hands every accepted
// connection to OnConn.
type TCPTransport struct {
	TCPTransportConfig
	listener net.Listener

	mutex  sync.Mutex
	closed bool
	done   chan struct{}
}

func NewTCPTransport(config TCPTransportConfig) *TCPTransport {
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	return &TCPTransport{
		TCPTransportConfig: config,
		done:               make(chan struct{}),
	}
}

// Addr returns the bound address once listening, the configured one before.
func (t *TCPTransport) Addr() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.ListenAddress
}

func (t *TCPTransport) ListenAndAccept() error {
	ln, err := net.Listen("tcp", t.ListenAddress)
	if err != nil {
		return err
	}

	t.mutex.Lock()
	t.listener = ln
	t.mutex.Unlock()

	go t.startAcceptLoop()

	t.Logger.Printf("[%s]: Listening for connections", ln.Addr())
	return nil
}

// Close stops accepting. Connections already handed out are not touched.
func (t *TCPTransport) Close() error {
	t.mutex.Lock()
	if t.closed || t.listener == nil {
		t.mutex.Unlock()
		return nil
	}
	t.closed = true
	ln := t.listener
	t.mutex.Unlock()

	err := ln.Close()
	<-t.done
	return err
}

func (t *TCPTransport) startAcceptLoop() {
	defer close(t.done)

	var backoff time.Duration
	for {
		conn, err := t.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff < time.Second {
				backoff *= 2
			}
			t.Logger.Printf("[%s]: Error accepting connection: %v", t.listener.Addr(), err)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		t.handleConn(conn)
	}
}

func (t *TCPTransport) handleConn(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetKeepAlive(true)
	}
	if t.OnConn == nil {
		conn.Close()
		return
	}
	t.OnConn(conn)
}
