package transport

import "net"

// ConnHandler is called for every accepted connection. It must not
// block the accept loop.
type ConnHandler func(net.Conn)

// Transport accepts client connections.
// Can be TCP, Unix sockets, etc
type Transport interface {
	Addr() string
	ListenAndAccept() error
	Close() error
}
