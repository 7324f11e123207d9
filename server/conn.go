package server

import (
	"errors"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/AnishMulay/filexfer/protocol"
)

// WorkerConfig controls how a single connection is served.
type WorkerConfig struct {
	IdleTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxFrameSize   int
	ReadChunkSize  int
	WriteChunkSize int
}

// idleConn pushes the read deadline forward before every read.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c idleConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

// connWorker runs the read, dispatch, respond loop for one connection.
type connWorker struct {
	id         string
	conn       net.Conn
	dispatcher *Dispatcher
	config     WorkerConfig
	stats      *Stats
	logger     *log.Logger
}

// serve handles frames until the peer goes away, the connection idles
// out or an I/O error occurs. The connection is always closed.
func (w *connWorker) serve() {
	reason := "peer closed connection"
	defer func() {
		if r := recover(); r != nil {
			reason = "internal error"
			w.logger.Printf("[%s]: Worker panic: %v", w.id, r)
		}
		w.conn.Close()
		w.logger.Printf("[%s]: Connection with %s closed (%s)", w.id, w.conn.RemoteAddr(), reason)
	}()

	w.logger.Printf("[%s]: Client %s connected", w.id, w.conn.RemoteAddr())

	frames := protocol.NewFrameReader(idleConn{Conn: w.conn, timeout: w.config.IdleTimeout},
		w.config.MaxFrameSize, w.config.ReadChunkSize)

	for {
		frame, err := frames.ReadFrame()
		if err != nil {
			reason = w.readFailure(err)
			return
		}
		w.stats.bytesIn.Add(int64(len(frame) + len(protocol.Terminator)))
		w.logger.Printf("[%s]: Received complete request (%d bytes)", w.id, len(frame))

		start := time.Now()
		result, body := w.dispatcher.Respond(string(frame))
		w.stats.request(result.Status)
		w.logger.Printf("[%s]: Execution time: %s, status %s", w.id, time.Since(start), result.Status)

		if w.config.WriteTimeout > 0 {
			if err := w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout)); err != nil {
				reason = w.transportFailure("set write deadline", err)
				return
			}
		}
		n, err := protocol.WriteFrame(w.conn, body, w.config.WriteChunkSize)
		w.stats.bytesOut.Add(int64(n))
		if err != nil {
			reason = w.transportFailure("write", err)
			return
		}
		w.logger.Printf("[%s]: Sent %d bytes to %s", w.id, n, w.conn.RemoteAddr())
	}
}

func (w *connWorker) readFailure(err error) string {
	switch {
	case errors.Is(err, io.EOF):
		return "peer closed connection"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "peer closed connection mid-request"
	case errors.Is(err, protocol.ErrFrameTooLarge):
		w.stats.oversizeFrames.Add(1)
		w.logger.Printf("[%s]: Request exceeds %d bytes, dropping connection", w.id, w.config.MaxFrameSize)
		return "frame too large"
	case errors.Is(err, os.ErrDeadlineExceeded):
		return "idle timeout"
	case errors.Is(err, net.ErrClosed):
		return "connection closed by server"
	}
	return w.transportFailure("read", err)
}

func (w *connWorker) transportFailure(op string, err error) string {
	w.stats.transportErrors.Add(1)
	w.logger.Printf("[%s]: Error during %s: %v", w.id, op, err)
	return op + " error"
}
