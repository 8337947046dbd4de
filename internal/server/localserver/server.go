package localserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/yndnr/embedhttp/pkg/sockets"
	"github.com/yndnr/embedhttp/pkg/sockstream"
)

// Server represents the local management server.
type Server struct {
	path    string
	handler *Handler
	logger  *slog.Logger

	mu       sync.Mutex
	listener *sockets.Socket
	conns    map[*sockets.Socket]struct{}
	running  atomic.Bool
	closed   atomic.Bool
	wg       sync.WaitGroup
}

// New creates a new local server.
func New(socketPath string, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		path:    socketPath,
		handler: handler,
		logger:  logger,
		conns:   make(map[*sockets.Socket]struct{}),
	}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// ListenAndServe binds the socket and serves management sessions until
// Shutdown.
func (s *Server) ListenAndServe() error {
	ln := &sockets.Socket{}
	if err := ln.ListenUnix(s.path, 0); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ln.Close()
	}
	s.listener = ln
	s.mu.Unlock()

	s.running.Store(true)
	s.logger.Info("admin socket is listening", "path", s.path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) || sockets.IsLogic(err) {
				return nil
			}
			return err
		}

		if !s.track(conn, true) {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handleConnection(conn)
		}()
	}
}

// Shutdown stops accepting sessions, closes the open ones and waits for
// their goroutines (bounded by ctx).
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	s.closed.Store(true)

	s.mu.Lock()
	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(c *sockets.Socket, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed.Load() {
			return false
		}
		s.conns[c] = struct{}{}
		s.wg.Add(1)
	} else {
		delete(s.conns, c)
	}
	return true
}

func (s *Server) handleConnection(conn *sockets.Socket) {
	defer conn.Close()
	stream := sockstream.New(conn)
	defer stream.Close()

	for {
		line, err := stream.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !sockets.IsLogic(err) {
				s.logger.Warn("admin session read failed", "error", err)
			}
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		if err := s.handler.Execute(stream, cmd, args); err != nil {
			s.logger.Warn("admin command failed", "command", cmd, "error", err)
			_, _ = stream.WriteString("error: " + err.Error() + "\n")
		} else {
			s.logger.Info("admin command executed", "command", cmd)
		}
		_, _ = stream.WriteString(EndOfReply + "\n")
		if err := stream.Flush(); err != nil {
			return
		}
	}
}
