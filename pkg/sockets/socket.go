// Package sockets wraps TCP and Unix domain stream sockets behind an explicit
// lifecycle state machine.
//
// A zero Socket is Closed. ListenTCP/ListenUnix move it to Listening,
// ConnectTCP/ConnectUnix move it to Connected, and Accept returns a new
// Socket in the Accepted state. Read and Write are valid only in Accepted
// and Connected. Close is idempotent; every operation after Close fails with
// a KindLogic error.
package sockets

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net"
	"os"
	"strconv"
	"sync"
)

// DefaultBacklog is the listen backlog used when none is given.
const DefaultBacklog = 100

// State is the lifecycle state of a Socket.
type State int

const (
	Closed State = iota
	Listening
	Accepted
	Connected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Listening:
		return "listening"
	case Accepted:
		return "accepted"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Socket is a TCP or Unix domain stream socket.
//
// Read and Write may be called concurrently with each other (one reader and
// one writer), which is how long-lived connections get pushed to while their
// owner blocks on input.
type Socket struct {
	mu      sync.Mutex
	state   State
	network string // "tcp" or "unix"
	ln      net.Listener
	conn    net.Conn
	addr    net.Addr
	path    string
	backlog int
	// everClosed distinguishes "used after Close" from "never opened".
	everClosed bool
}

// State returns the current lifecycle state.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Live reports whether the socket carries a connection (Accepted or Connected).
func (s *Socket) Live() bool {
	st := s.State()
	return st == Accepted || st == Connected
}

// Network returns "tcp" or "unix", or "" for a socket that was never opened.
func (s *Socket) Network() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

// Backlog returns the backlog requested at listen time.
func (s *Socket) Backlog() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backlog
}

// ListenTCP binds all interfaces on port and starts listening.
//
// Port 0 picks an ephemeral port; Port reports the one chosen. The backlog is
// recorded for diagnostics, the kernel queue length follows the OS default.
func (s *Socket) ListenTCP(port, backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenable("listen"); err != nil {
		return err
	}

	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return transportError("listen", err)
	}

	s.open(Listening, "tcp", backlog)
	s.ln = ln
	s.addr = ln.Addr()
	return nil
}

// ListenUnix binds a Unix domain socket at path, removing any stale socket
// file left behind by a previous process.
func (s *Socket) ListenUnix(path string, backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenable("listen"); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return transportError("listen", err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "unix", path)
	if err != nil {
		return transportError("listen", err)
	}

	s.open(Listening, "unix", backlog)
	s.ln = ln
	s.addr = ln.Addr()
	s.path = path
	return nil
}

// Accept blocks until a peer connects and returns the new connection in the
// Accepted state. TCP connections have Nagle's algorithm disabled.
func (s *Socket) Accept() (*Socket, error) {
	s.mu.Lock()
	if s.state != Listening {
		err := s.stateError("accept")
		s.mu.Unlock()
		return nil, err
	}
	ln, network, path := s.ln, s.network, s.path
	s.mu.Unlock()

	c, err := ln.Accept()
	if err != nil {
		return nil, transportError("accept", err)
	}

	if tc, ok := c.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			_ = c.Close()
			return nil, transportError("accept", err)
		}
	}

	return &Socket{
		state:   Accepted,
		network: network,
		conn:    c,
		addr:    c.RemoteAddr(),
		path:    path,
	}, nil
}

// ConnectTCP resolves address (numeric or host name) and connects to port.
func (s *Socket) ConnectTCP(ctx context.Context, address string, port int) error {
	return s.connect(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)), "")
}

// ConnectUnix connects to the Unix domain socket at path.
func (s *Socket) ConnectUnix(ctx context.Context, path string) error {
	return s.connect(ctx, "unix", path, path)
}

func (s *Socket) connect(ctx context.Context, network, address, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenable("connect"); err != nil {
		return err
	}

	var d net.Dialer
	c, err := d.DialContext(ctx, network, address)
	if err != nil {
		return transportError("connect", err)
	}

	s.open(Connected, network, 0)
	s.conn = c
	s.addr = c.RemoteAddr()
	s.path = path
	return nil
}

// Write sends all of buf, looping over short writes.
func (s *Socket) Write(buf []byte) (int, error) {
	c, err := s.liveConn("write")
	if err != nil {
		return 0, err
	}

	written := 0
	for written < len(buf) {
		n, err := c.Write(buf[written:])
		written += n
		if err != nil {
			return written, transportError("write", err)
		}
	}
	return written, nil
}

// Read reads up to len(buf) bytes and returns how many were read, which may
// be fewer than requested. End of stream is reported as (0, io.EOF).
func (s *Socket) Read(buf []byte) (int, error) {
	c, err := s.liveConn("read")
	if err != nil {
		return 0, err
	}

	n, err := c.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		return n, transportError("read", err)
	}
	return n, nil
}

// Close releases the socket. Closing an already closed socket is a no-op.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return nil
	}

	var err error
	switch {
	case s.ln != nil:
		err = s.ln.Close()
	case s.conn != nil:
		err = s.conn.Close()
	}

	s.state = Closed
	s.everClosed = true
	s.ln = nil
	s.conn = nil

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return transportError("close", err)
	}
	return nil
}

// Address returns the IP address of the peer for accepted and connected
// sockets, or of the bound interface for listening ones.
func (s *Socket) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ta, ok := s.addr.(*net.TCPAddr); ok {
		return ta.IP.String()
	}
	return ""
}

// Port returns the TCP port of the peer, or the bound port when listening.
func (s *Socket) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ta, ok := s.addr.(*net.TCPAddr); ok {
		return ta.Port
	}
	return 0
}

// Path returns the filesystem path of a Unix domain socket.
func (s *Socket) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// RemoteAddr returns a printable peer address for logging.
func (s *Socket) RemoteAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	if s.network == "unix" {
		return "unix:" + s.path
	}
	return s.addr.String()
}

func (s *Socket) liveConn(op string) (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Accepted && s.state != Connected {
		return nil, s.stateError(op)
	}
	return s.conn, nil
}

// checkOpenable must be called with s.mu held.
func (s *Socket) checkOpenable(op string) error {
	if s.state != Closed {
		return logicError(op, ErrWrongState)
	}
	if s.everClosed {
		return logicError(op, ErrClosed)
	}
	return nil
}

// stateError must be called with s.mu held.
func (s *Socket) stateError(op string) error {
	if s.state == Closed && s.everClosed {
		return logicError(op, ErrClosed)
	}
	return logicError(op, ErrWrongState)
}

func (s *Socket) open(state State, network string, backlog int) {
	if state == Listening && backlog <= 0 {
		backlog = DefaultBacklog
	}
	s.state = state
	s.network = network
	s.backlog = backlog
}
