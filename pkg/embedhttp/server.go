package embedhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/embedhttp/pkg/sockets"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("embedhttp: server closed")

// Server is the server context: listening endpoint, static base directory,
// action registry, connection callback, logger and observer. Create one
// with New and share it between the code that registers actions and the
// goroutine running ListenAndServe.
type Server struct {
	port       int
	socketPath string
	backlog    int
	baseDir    string

	registry *Registry
	observer Observer
	log      atomic.Pointer[logState]

	cbMu     sync.RWMutex
	callback ConnectionCallback

	mu      sync.Mutex
	ln      *sockets.Socket
	conns   map[*conn]struct{}
	running atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup

	active   atomic.Int64
	accepted atomic.Uint64
	started  atomic.Int64 // unix nanoseconds
}

// New creates a server from opts. Nothing is bound until ListenAndServe.
func New(opts Options) *Server {
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = "."
	}

	s := &Server{
		port:       opts.Port,
		socketPath: opts.SocketPath,
		backlog:    opts.Backlog,
		baseDir:    baseDir,
		registry:   NewRegistry(),
		observer:   observer,
		conns:      make(map[*conn]struct{}),
	}
	s.SetLogger(opts.Logger, opts.LogMask)
	return s
}

// Registry returns the action registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Handle binds h to the route name for method m. An empty mime registers a
// generic action that writes the whole response itself.
func (s *Server) Handle(m Method, name, mime string, h HandlerFunc) {
	s.registry.Register(m, name, mime, h)
}

// HandleGenericGet registers a GET action that produces the whole response,
// header included, and flushes it.
func (s *Server) HandleGenericGet(name string, h HandlerFunc) {
	s.Handle(MethodGet, name, MIMEGeneric, h)
}

// HandleHTMLGet registers a GET action whose output is sent as text/html.
func (s *Server) HandleHTMLGet(name string, h HandlerFunc) {
	s.Handle(MethodGet, name, MIMEHTML, h)
}

// HandleTextGet registers a GET action whose output is sent as text/plain.
func (s *Server) HandleTextGet(name string, h HandlerFunc) {
	s.Handle(MethodGet, name, MIMEText, h)
}

// HandleGenericPost registers a POST action that produces the whole response.
func (s *Server) HandleGenericPost(name string, h HandlerFunc) {
	s.Handle(MethodPost, name, MIMEGeneric, h)
}

// HandleHTMLPost registers a POST action whose output is sent as text/html.
func (s *Server) HandleHTMLPost(name string, h HandlerFunc) {
	s.Handle(MethodPost, name, MIMEHTML, h)
}

// HandleTextPost registers a POST action whose output is sent as text/plain.
func (s *Server) HandleTextPost(name string, h HandlerFunc) {
	s.Handle(MethodPost, name, MIMEText, h)
}

// SetConnectionCallback installs cb, replacing any previous callback.
// Nil removes it.
func (s *Server) SetConnectionCallback(cb ConnectionCallback) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callback = cb
}

func (s *Server) connectionCallback() ConnectionCallback {
	s.cbMu.RLock()
	defer s.cbMu.RUnlock()
	return s.callback
}

// BaseDir returns the static base directory ("." when none was configured).
func (s *Server) BaseDir() string {
	return s.baseDir
}

// ListenAndServe binds the configured port (or socket path) and serves
// connections. It returns only if binding fails, the accept loop fails, or
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln := &sockets.Socket{}

	var err error
	if s.socketPath != "" {
		err = ln.ListenUnix(s.socketPath, s.backlog)
	} else {
		err = ln.ListenTCP(s.port, s.backlog)
	}
	if err != nil {
		s.logError(LogConnections, "http server listen failed", "error", err)
		return fmt.Errorf("embedhttp: listen: %w", err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln, which must be Listening, and serves each
// one on its own goroutine. The server takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln *sockets.Socket) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.running.Store(true)
	s.started.Store(time.Now().UnixNano())
	defer s.running.Store(false)

	stop := context.AfterFunc(ctx, func() {
		s.running.Store(false)
		_ = ln.Close()
	})
	defer stop()

	s.logInfo(LogConnections, "http server is listening",
		"addr", endpoint(ln), "base_dir", s.baseDir)

	for {
		sock, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logError(LogConnections, "http server error", "error", err)
			return fmt.Errorf("embedhttp: accept: %w", err)
		}

		c := newConn(s, sock)
		if !s.track(c, true) {
			_ = sock.Close()
			return ErrServerClosed
		}

		go func() {
			defer s.wg.Done()
			defer s.track(c, false)
			c.serve()
		}()
	}
}

// Shutdown stops accepting connections, closes the open ones and waits for
// their goroutines to finish or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	s.running.Store(false)

	s.mu.Lock()
	var firstErr error
	if s.ln != nil {
		firstErr = s.ln.Close()
	}
	for c := range s.conns {
		_ = c.sock.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

// track adds c to the open set and the wait group under one lock, so a
// concurrent Shutdown either waits for c or makes track refuse it.
func (s *Server) track(c *conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed.Load() {
			return false
		}
		s.conns[c] = struct{}{}
		s.accepted.Add(1)
		s.wg.Add(1)
	} else {
		delete(s.conns, c)
	}
	return true
}

// Addr returns the listening endpoint, "" before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return endpoint(s.ln)
}

// Stats is a snapshot of server activity.
type Stats struct {
	Running           bool
	Uptime            time.Duration
	ActiveConnections int64
	TotalConnections  uint64
	Routes            int
}

// Stats returns a snapshot of server activity.
func (s *Server) Stats() Stats {
	st := Stats{
		Running:           s.running.Load(),
		ActiveConnections: s.active.Load(),
		TotalConnections:  s.accepted.Load(),
		Routes:            s.registry.Len(),
	}
	if started := s.started.Load(); started != 0 && st.Running {
		st.Uptime = time.Since(time.Unix(0, started))
	}
	return st
}

// Routes lists the registered actions.
func (s *Server) Routes() []Route {
	return s.registry.Routes()
}

func endpoint(ln *sockets.Socket) string {
	if ln.Network() == "unix" {
		return "unix:" + ln.Path()
	}
	return fmt.Sprintf(":%d", ln.Port())
}
