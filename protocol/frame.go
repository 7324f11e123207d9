package protocol

import (
	"bytes"
	"errors"
	"io"
)

// Terminator ends every request and response frame on the wire.
var Terminator = []byte("\r\n\r\n")

const (
	DefaultReadChunkSize  = 1 << 20
	DefaultWriteChunkSize = 1 << 16
)

// ErrFrameTooLarge is returned when more than the configured maximum
// number of bytes arrive without a terminator.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// FrameReader turns a byte stream into terminator-delimited frames.
// Bytes that follow a terminator are kept and become the start of the
// next frame.
type FrameReader struct {
	r         io.Reader
	maxSize   int
	chunkSize int

	buf     []byte
	scanned int
}

// NewFrameReader creates a FrameReader. maxSize <= 0 disables the limit.
func NewFrameReader(r io.Reader, maxSize, chunkSize int) *FrameReader {
	if chunkSize <= 0 {
		chunkSize = DefaultReadChunkSize
	}
	return &FrameReader{
		r:         r,
		maxSize:   maxSize,
		chunkSize: chunkSize,
	}
}

// Buffered returns the number of bytes held for the next frame.
func (fr *FrameReader) Buffered() int {
	return len(fr.buf)
}

// ReadFrame returns the next frame without its terminator. It returns
// io.EOF when the peer closed the stream between frames and
// io.ErrUnexpectedEOF when it closed in the middle of one.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	chunk := make([]byte, fr.chunkSize)
	for {
		frame, ok, err := fr.next()
		if err != nil {
			return nil, err
		}
		if ok {
			return frame, nil
		}
		// room for a terminator still arriving behind a frame at the limit
		if fr.maxSize > 0 && len(fr.buf) > fr.maxSize+len(Terminator)-1 {
			return nil, ErrFrameTooLarge
		}

		n, err := fr.r.Read(chunk)
		if n > 0 {
			fr.buf = append(fr.buf, chunk[:n]...)
			continue
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if len(fr.buf) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, io.EOF
		}
		return nil, err
	}
}

// next looks for a terminator in the unscanned part of the buffer. The
// search starts len(Terminator)-1 bytes early so a terminator split
// across two reads is found. A frame longer than maxSize is an error even
// when it arrived complete.
func (fr *FrameReader) next() ([]byte, bool, error) {
	start := fr.scanned - (len(Terminator) - 1)
	if start < 0 {
		start = 0
	}
	i := bytes.Index(fr.buf[start:], Terminator)
	if i < 0 {
		fr.scanned = len(fr.buf)
		return nil, false, nil
	}
	end := start + i
	if fr.maxSize > 0 && end > fr.maxSize {
		return nil, false, ErrFrameTooLarge
	}

	frame := make([]byte, end)
	copy(frame, fr.buf[:end])

	rest := fr.buf[end+len(Terminator):]
	fr.buf = append(fr.buf[:0], rest...)
	fr.scanned = 0
	return frame, true, nil
}

// WriteFrame writes payload followed by the terminator in writes of at
// most chunkSize bytes.
func WriteFrame(w io.Writer, payload []byte, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultWriteChunkSize
	}

	total := 0
	for _, part := range [][]byte{payload, Terminator} {
		for len(part) > 0 {
			end := chunkSize
			if end > len(part) {
				end = len(part)
			}
			n, err := writeAll(w, part[:end])
			total += n
			if err != nil {
				return total, err
			}
			part = part[end:]
		}
	}
	return total, nil
}

func writeAll(w io.Writer, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := w.Write(p[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}
