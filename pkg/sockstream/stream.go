// Package sockstream presents a byte transport (usually a *sockets.Socket)
// as a buffered bidirectional stream with line-oriented reads.
//
// Input is refilled with one transport read per underflow and end of stream
// is reported only once the transport returns no data and nothing is left in
// the buffer. Output is sent when the buffer fills, on Flush, and on Close
// while the transport is still live.
package sockstream

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the size of each of the input and output buffers.
const DefaultBufferSize = 512

// ErrClosed is returned by operations on a closed Stream.
var ErrClosed = errors.New("sockstream: stream is closed")

// Transport is the byte-level capability a Stream is built on.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
	// Live reports whether the transport still carries a connection.
	Live() bool
}

type config struct {
	owns    bool
	bufSize int
}

// Option configures a Stream.
type Option func(*config)

// WithOwnership makes Close also close the transport.
func WithOwnership(owns bool) Option {
	return func(c *config) {
		c.owns = owns
	}
}

// WithBufferSize sets the input and output buffer size.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

// Stream is a buffered stream over a Transport.
//
// Reads must come from a single goroutine. Writes and Flush are serialized
// internally, so a connection may be pushed to from another goroutine while
// its owner blocks on input.
type Stream struct {
	t    Transport
	owns bool

	br *bufio.Reader

	wmu sync.Mutex
	bw  *bufio.Writer

	closed atomic.Bool
}

// New wraps t. By default the stream borrows the transport: closing the
// stream flushes pending output but leaves t open.
func New(t Transport, opts ...Option) *Stream {
	cfg := config{bufSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Stream{
		t:    t,
		owns: cfg.owns,
		br:   bufio.NewReaderSize(t, cfg.bufSize),
		bw:   bufio.NewWriterSize(t, cfg.bufSize),
	}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return s.br.Read(p)
}

// ReadByte implements io.ByteReader.
func (s *Stream) ReadByte() (byte, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return s.br.ReadByte()
}

// ReadRune decodes one UTF-8 encoded character. A sequence split across two
// transport reads is completed from the next refill before decoding.
func (s *Stream) ReadRune() (rune, int, error) {
	if s.closed.Load() {
		return 0, 0, ErrClosed
	}
	return s.br.ReadRune()
}

// ReadLine returns the next line without its LF terminator and without one
// trailing CR. A final line that is not terminated is returned as is; the
// following call reports io.EOF.
func (s *Stream) ReadLine() (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}

	line, err := s.br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSuffix(line, "\r"), nil
		}
		return "", err
	}

	line = line[:len(line)-1]
	return strings.TrimSuffix(line, "\r"), nil
}

// Buffered returns the number of input bytes available without a transport read.
func (s *Stream) Buffered() int {
	return s.br.Buffered()
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.bw.Write(p)
}

// WriteString implements io.StringWriter.
func (s *Stream) WriteString(str string) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.bw.WriteString(str)
}

// Flush sends any buffered output to the transport.
func (s *Stream) Flush() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.bw.Flush()
}

// Discard drops buffered output that has not been flushed yet.
func (s *Stream) Discard() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.bw.Reset(s.t)
}

// Owns reports whether Close also closes the transport.
func (s *Stream) Owns() bool {
	return s.owns
}

// Close flushes pending output if the transport is live and, when the stream
// owns the transport, closes it. Subsequent calls are no-ops.
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var firstErr error

	if s.t.Live() {
		s.wmu.Lock()
		if err := s.bw.Flush(); err != nil {
			firstErr = err
		}
		s.wmu.Unlock()
	}

	if s.owns {
		if err := s.t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
