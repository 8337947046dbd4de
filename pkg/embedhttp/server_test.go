package embedhttp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/embedhttp/pkg/sockets"
)

// startServer serves opts on an ephemeral loopback port until the test ends.
func startServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()

	srv := New(opts)
	ln := &sockets.Socket{}
	if err := ln.ListenTCP(0, 0); err != nil {
		t.Fatalf("ListenTCP() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background(), ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !sockets.IsLogic(err) {
			t.Errorf("Shutdown() error = %v", err)
		}
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("Serve() did not return after Shutdown")
		}
	})

	return srv, "127.0.0.1:" + strconv.Itoa(ln.Port())
}

type client struct {
	t  *testing.T
	c  net.Conn
	br *bufio.Reader
}

func dial(t *testing.T, network, addr string) *client {
	t.Helper()
	c, err := net.DialTimeout(network, addr, 5*time.Second)
	if err != nil {
		t.Fatalf("dial %s %s: %v", network, addr, err)
	}
	_ = c.SetDeadline(time.Now().Add(10 * time.Second))
	t.Cleanup(func() { c.Close() })
	return &client{t: t, c: c, br: bufio.NewReader(c)}
}

func (c *client) send(raw string) {
	c.t.Helper()
	if _, err := io.WriteString(c.c, raw); err != nil {
		c.t.Fatalf("write request: %v", err)
	}
}

func (c *client) get(path string) {
	c.send("GET " + path + " HTTP/1.1\r\nHost: localhost\r\n\r\n")
}

func (c *client) post(path, body string) {
	c.send(fmt.Sprintf("POST %s HTTP/1.1\r\nHost: localhost\r\n"+
		"Content-Type: application/x-www-form-urlencoded\r\nContent-Length: %d\r\n\r\n%s",
		path, len(body), body))
}

func (c *client) response() (*http.Response, string) {
	c.t.Helper()
	resp, err := http.ReadResponse(c.br, nil)
	if err != nil {
		c.t.Fatalf("read response: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<h1>home</h1>")
	writeFile(t, dir, "css/site.css", "body{}")
	writeFile(t, dir, "notes.txt", "")

	_, addr := startServer(t, Options{BaseDir: dir})
	c := dial(t, "tcp", addr)

	tests := []struct {
		path     string
		wantCode int
		wantType string
		wantBody string
	}{
		{"/", 200, "text/html", "<h1>home</h1>"},
		{"/index.html", 200, "text/html", "<h1>home</h1>"},
		{"/css/site.css", 200, "text/css", "body{}"},
		{"/notes.txt", 200, "text/plain", ""},
		{"/missing.png", 404, "text/plain", ""},
		{"/../etc/passwd", 404, "text/plain", ""},
	}

	// one connection carries every request in turn
	for _, tt := range tests {
		c.get(tt.path)
		resp, body := c.response()

		if resp.StatusCode != tt.wantCode {
			t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantCode)
		}
		if got := resp.Header.Get("Content-Type"); got != tt.wantType {
			t.Errorf("GET %s Content-Type = %q, want %q", tt.path, got, tt.wantType)
		}
		if got, want := resp.Header.Get("Content-Length"), strconv.Itoa(len(tt.wantBody)); got != want {
			t.Errorf("GET %s Content-Length = %q, want %q", tt.path, got, want)
		}
		if body != tt.wantBody {
			t.Errorf("GET %s body = %q, want %q", tt.path, body, tt.wantBody)
		}
		if tt.wantCode == 200 {
			if got := resp.Header.Get("Cache-Control"); got != "public, max-age=31536000" {
				t.Errorf("GET %s Cache-Control = %q", tt.path, got)
			}
		}
	}
}

func TestServer_TypedGet(t *testing.T) {
	srv, addr := startServer(t, Options{BaseDir: t.TempDir()})

	var calls atomic.Int32
	srv.HandleTextGet("sum", func(w Writer, r *Request) error {
		calls.Add(1)
		p := r.Params()
		x, _ := strconv.Atoi(p["x"])
		y, _ := strconv.Atoi(p["y"])
		_, err := fmt.Fprintf(w, "%d", x+y)
		return err
	})

	c := dial(t, "tcp", addr)
	c.get("/sum?x=2&y=40")
	resp, body := c.response()

	if resp.StatusCode != 200 || body != "42" {
		t.Fatalf("GET /sum = %d %q, want 200 \"42\"", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Type"); got != MIMEText {
		t.Errorf("Content-Type = %q, want %q", got, MIMEText)
	}
	if got := resp.Header.Get("Content-Length"); got != "2" {
		t.Errorf("Content-Length = %q, want 2", got)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("handler ran %d times, want 1", n)
	}

	// the replacement answers, the old handler is never called again
	var replaced atomic.Int32
	srv.HandleHTMLGet("sum", func(w Writer, r *Request) error {
		replaced.Add(1)
		_, err := w.WriteString("<b>replaced</b>")
		return err
	})
	c.get("/sum?x=1&y=1")
	resp, body = c.response()
	if body != "<b>replaced</b>" || resp.Header.Get("Content-Type") != MIMEHTML {
		t.Errorf("after replace got %q (%s)", body, resp.Header.Get("Content-Type"))
	}
	if calls.Load() != 1 || replaced.Load() != 1 {
		t.Errorf("calls = %d, replaced = %d, want 1 and 1", calls.Load(), replaced.Load())
	}
}

func TestServer_EmptyTypedResponse(t *testing.T) {
	srv, addr := startServer(t, Options{BaseDir: t.TempDir()})
	srv.HandleTextGet("empty", func(w Writer, r *Request) error { return nil })

	c := dial(t, "tcp", addr)
	c.get("/empty")
	resp, body := c.response()
	if resp.StatusCode != 200 || body != "" {
		t.Errorf("GET /empty = %d %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Length"); got != "0" {
		t.Errorf("Content-Length = %q, want 0", got)
	}
}

func TestServer_ActionShadowsStaticFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "status", "from disk")

	srv, addr := startServer(t, Options{BaseDir: dir})
	srv.HandleTextGet("status", func(w Writer, r *Request) error {
		_, err := w.WriteString("from action")
		return err
	})

	c := dial(t, "tcp", addr)
	c.get("/status")
	if _, body := c.response(); body != "from action" {
		t.Errorf("GET /status body = %q, want from action", body)
	}
}

func TestServer_GenericGet(t *testing.T) {
	srv, addr := startServer(t, Options{BaseDir: t.TempDir()})
	srv.HandleGenericGet("raw", func(w Writer, r *Request) error {
		payload := "id=" + r.Params()["id"]
		if _, err := w.WriteString(Header("application/x-test", int64(len(payload)), false)); err != nil {
			return err
		}
		_, err := w.WriteString(payload)
		return err
	})

	c := dial(t, "tcp", addr)
	c.get("/raw?id=a%20b")
	resp, body := c.response()
	if resp.StatusCode != 200 || body != "id=a b" {
		t.Errorf("GET /raw = %d %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/x-test" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestServer_Post(t *testing.T) {
	srv, addr := startServer(t, Options{BaseDir: t.TempDir()})

	var gotType atomic.Value
	srv.HandleHTMLPost("greet", func(w Writer, r *Request) error {
		gotType.Store(r.ContentType)
		form, err := r.ReadForm()
		if err != nil {
			return err
		}
		_, err = w.WriteString("<p>Hello " + form["name"] + "</p>")
		return err
	})
	// reads nothing; the server must discard the body itself
	srv.HandleTextPost("ignore", func(w Writer, r *Request) error {
		_, err := w.WriteString("ignored")
		return err
	})

	c := dial(t, "tcp", addr)

	c.post("/greet", "name=J%C3%BCrgen+M")
	resp, body := c.response()
	if resp.StatusCode != 200 || body != "<p>Hello Jürgen M</p>" {
		t.Errorf("POST /greet = %d %q", resp.StatusCode, body)
	}
	if gotType.Load() != "application/x-www-form-urlencoded" {
		t.Errorf("ContentType = %v", gotType.Load())
	}

	c.post("/ignore", "GET /trap HTTP/1.1\r\n\r\n")
	if _, body := c.response(); body != "ignored" {
		t.Errorf("POST /ignore body = %q", body)
	}

	c.post("/nothing", "a=1")
	resp, body = c.response()
	if resp.StatusCode != 404 || body != "" {
		t.Errorf("POST /nothing = %d %q, want 404", resp.StatusCode, body)
	}

	// the connection is still in step after all of the above
	c.post("/greet", "name=again")
	if _, body := c.response(); body != "<p>Hello again</p>" {
		t.Errorf("final POST body = %q", body)
	}
}

func TestServer_FailingActionsKeepServing(t *testing.T) {
	srv, addr := startServer(t, Options{BaseDir: t.TempDir()})
	srv.HandleTextGet("fail", func(w Writer, r *Request) error {
		_, _ = w.WriteString("partial")
		return errors.New("boom")
	})
	srv.HandleTextGet("panic", func(w Writer, r *Request) error {
		panic("boom")
	})
	srv.HandleGenericGet("gfail", func(w Writer, r *Request) error {
		_, _ = w.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n")
		return errors.New("boom")
	})
	srv.HandleGenericGet("gpanic", func(w Writer, r *Request) error {
		_, _ = w.WriteString("HTTP/1.1 200 OK\r\n")
		panic("boom")
	})
	srv.HandleTextGet("ok", func(w Writer, r *Request) error {
		_, err := w.WriteString("ok")
		return err
	})

	c := dial(t, "tcp", addr)

	// failed actions answer nothing, so the next response is /ok's
	c.get("/fail")
	c.get("/panic")
	c.get("/gfail")
	c.get("/gpanic")
	c.get("/ok")
	resp, body := c.response()
	if resp.StatusCode != 200 || body != "ok" {
		t.Errorf("response = %d %q, want the /ok answer", resp.StatusCode, body)
	}

	other := dial(t, "tcp", addr)
	other.get("/ok")
	if _, body := other.response(); body != "ok" {
		t.Errorf("second connection body = %q", body)
	}
}

func TestServer_IgnoresUnknownMethods(t *testing.T) {
	srv, addr := startServer(t, Options{BaseDir: t.TempDir()})
	srv.HandleTextGet("ok", func(w Writer, r *Request) error {
		_, err := w.WriteString("ok")
		return err
	})

	c := dial(t, "tcp", addr)
	c.send("DELETE /x HTTP/1.1\r\n\r\n\r\n")
	c.get("/ok")
	if _, body := c.response(); body != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestServer_ConnectionCallback(t *testing.T) {
	srv, addr := startServer(t, Options{BaseDir: t.TempDir()})

	events := make(chan ConnEvent, 4)
	srv.SetConnectionCallback(func(w Writer, ev ConnEvent) {
		events <- ev
	})

	c := dial(t, "tcp", addr)
	select {
	case ev := <-events:
		if ev != Connected {
			t.Fatalf("first event = %v, want connected", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no connected event")
	}

	c.c.Close()
	select {
	case ev := <-events:
		if ev != Closing {
			t.Fatalf("second event = %v, want closing", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no closing event")
	}
}

func TestServer_CallbackWritesAndPanics(t *testing.T) {
	srv, addr := startServer(t, Options{BaseDir: t.TempDir()})
	srv.HandleTextGet("ok", func(w Writer, r *Request) error {
		_, err := w.WriteString("ok")
		return err
	})

	srv.SetConnectionCallback(func(w Writer, ev ConnEvent) {
		if ev == Connected {
			payload := "hello"
			_, _ = w.WriteString(Header(MIMEText, int64(len(payload)), false) + payload)
			_ = w.Flush()
			panic("callback failure")
		}
	})

	c := dial(t, "tcp", addr)
	if _, body := c.response(); body != "hello" {
		t.Errorf("greeting = %q, want hello", body)
	}
	c.get("/ok")
	if _, body := c.response(); body != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestServer_StatsAndShutdown(t *testing.T) {
	srv := New(Options{BaseDir: t.TempDir()})
	srv.HandleTextGet("ok", func(w Writer, r *Request) error { return nil })

	ln := &sockets.Socket{}
	if err := ln.ListenTCP(0, 0); err != nil {
		t.Fatal(err)
	}
	addr := "127.0.0.1:" + strconv.Itoa(ln.Port())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background(), ln) }()

	c := dial(t, "tcp", addr)
	c.get("/ok")
	c.response()

	st := srv.Stats()
	if !st.Running || st.ActiveConnections != 1 || st.TotalConnections != 1 || st.Routes != 1 {
		t.Errorf("Stats() = %+v", st)
	}
	if srv.Addr() == "" {
		t.Error("Addr() is empty while serving")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrServerClosed) {
			t.Errorf("Serve() = %v, want ErrServerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return")
	}

	// the idle connection was closed by the server
	if _, err := c.br.ReadByte(); err == nil {
		t.Error("read on a shut down connection succeeded")
	}
	if st := srv.Stats(); st.Running || st.ActiveConnections != 0 {
		t.Errorf("Stats() after shutdown = %+v", st)
	}

	ln2 := &sockets.Socket{}
	if err := ln2.ListenTCP(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := srv.Serve(context.Background(), ln2); !errors.Is(err, ErrServerClosed) {
		t.Errorf("Serve() after Shutdown = %v, want ErrServerClosed", err)
	}
	if ln2.Live() || ln2.State() != sockets.Closed {
		t.Error("Serve() after Shutdown left the listener open")
	}
}

func TestServer_ShutdownWaitsForAcceptedConnections(t *testing.T) {
	srv := New(Options{BaseDir: t.TempDir()})
	var closing atomic.Int64
	srv.SetConnectionCallback(func(w Writer, ev ConnEvent) {
		if ev == Closing {
			time.Sleep(5 * time.Millisecond)
			closing.Add(1)
		}
	})

	ln := &sockets.Socket{}
	if err := ln.ListenTCP(0, 0); err != nil {
		t.Fatal(err)
	}
	addr := "127.0.0.1:" + strconv.Itoa(ln.Port())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background(), ln) }()

	// keep dialing while Shutdown runs so some accepts race with it
	stop := make(chan struct{})
	var dialers sync.WaitGroup
	for range 8 {
		dialers.Add(1)
		go func() {
			defer dialers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				c, err := net.DialTimeout("tcp", addr, time.Second)
				if err != nil {
					continue
				}
				_ = c.Close()
			}
		}()
	}

	for srv.Stats().TotalConnections < 20 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !sockets.IsLogic(err) {
		t.Fatalf("Shutdown() error = %v", err)
	}

	// every connection accepted before Shutdown returned has finished
	if st := srv.Stats(); st.ActiveConnections != 0 || uint64(closing.Load()) != st.TotalConnections {
		t.Errorf("after Shutdown: active = %d, closed %d of %d accepted",
			st.ActiveConnections, closing.Load(), st.TotalConnections)
	}

	close(stop)
	dialers.Wait()
	<-errCh
}

func TestServer_ContextCancel(t *testing.T) {
	srv := New(Options{BaseDir: t.TempDir()})
	ln := &sockets.Socket{}
	if err := ln.ListenTCP(0, 0); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestServer_UnixSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "ehttp")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	writeFile(t, dir, "index.html", "unix")
	path := filepath.Join(dir, "s.sock")

	srv := New(Options{SocketPath: path, BaseDir: dir})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := srv.Addr(); got != "unix:"+path {
		t.Errorf("Addr() = %q", got)
	}

	c := dial(t, "unix", path)
	c.get("/")
	if _, body := c.response(); body != "unix" {
		t.Errorf("GET / body = %q, want unix", body)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe() did not return")
	}
}

func TestServer_ListenFailure(t *testing.T) {
	taken := &sockets.Socket{}
	if err := taken.ListenTCP(0, 0); err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	srv := New(Options{Port: taken.Port()})
	err := srv.ListenAndServe(context.Background())
	if err == nil {
		t.Fatal("ListenAndServe() on a bound port succeeded")
	}
	if FaultOf(err) != FaultTransport {
		t.Errorf("FaultOf() = %v, want transport", FaultOf(err))
	}
}

// syncBuffer is a bytes.Buffer safe for the logger and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServer_LogMask(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")

	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	srv, addr := startServer(t, Options{BaseDir: dir, Logger: logger, LogMask: LogDynamicRequests})
	srv.HandleTextGet("act", func(w Writer, r *Request) error { return nil })

	c := dial(t, "tcp", addr)
	c.get("/a.txt")
	c.response()
	c.get("/act")
	c.response()

	logs := out.String()
	if strings.Contains(logs, "GET file") {
		t.Error("static request logged with static categories masked out")
	}
	if !strings.Contains(logs, "GET action") {
		t.Errorf("dynamic request not logged: %s", logs)
	}

	srv.SetLogMask(LogStaticRequests)
	if srv.LogMask() != LogStaticRequests {
		t.Errorf("LogMask() = %v", srv.LogMask())
	}
	c.get("/a.txt")
	c.response()
	if !strings.Contains(out.String(), "GET file") {
		t.Error("static request not logged after SetLogMask")
	}
}
