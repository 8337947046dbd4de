package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/embedhttp/pkg/sockets"
	"github.com/yndnr/embedhttp/pkg/sockstream"
	"github.com/yndnr/embedhttp/pkg/urlcodec"
)

// UnixPrefix marks a server address as a Unix socket path.
const UnixPrefix = "unix:"

// DefaultTimeout bounds one request/response exchange.
const DefaultTimeout = 30 * time.Second

// DefaultIdleTimeout ends a body sent without Content-Length once the server
// has been silent this long. The server keeps such connections open.
const DefaultIdleTimeout = 2 * time.Second

// Target is a parsed server address.
type Target struct {
	Host string
	Port int
	// Path is set for Unix socket targets.
	Path string
}

// ParseTarget parses "host:port", ":port", "port" or "unix:/path".
func ParseTarget(s string) (Target, error) {
	if path, ok := strings.CutPrefix(s, UnixPrefix); ok {
		if path == "" {
			return Target{}, errors.New("empty unix socket path")
		}
		return Target{Path: path}, nil
	}

	host, portStr := "localhost", s
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		host, portStr = s[:i], s[i+1:]
		if host == "" {
			host = "localhost"
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Target{}, fmt.Errorf("invalid server address %q", s)
	}
	return Target{Host: host, Port: port}, nil
}

// String renders the target in the form ParseTarget accepts.
func (t Target) String() string {
	if t.Path != "" {
		return UnixPrefix + t.Path
	}
	return t.Host + ":" + strconv.Itoa(t.Port)
}

func (t Target) dial(ctx context.Context) (*sockets.Socket, error) {
	sock := &sockets.Socket{}
	var err error
	if t.Path != "" {
		err = sock.ConnectUnix(ctx, t.Path)
	} else {
		err = sock.ConnectTCP(ctx, t.Host, t.Port)
	}
	if err != nil {
		return nil, err
	}
	return sock, nil
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	// Header keys are lower case.
	Header map[string]string
	Body   []byte
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Header["content-type"]
}

// HTTPClient sends one request per connection and reads the response.
type HTTPClient struct {
	target  Target
	timeout time.Duration
	idle    time.Duration
}

// NewHTTPClient creates a client for server (see ParseTarget).
func NewHTTPClient(server string) (*HTTPClient, error) {
	t, err := ParseTarget(server)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{target: t, timeout: DefaultTimeout, idle: DefaultIdleTimeout}, nil
}

// Target returns the server address.
func (c *HTTPClient) Target() Target {
	return c.target
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, "GET", path, "")
}

// PostForm performs a POST request with form as a url-encoded body, keys in
// sorted order.
func (c *HTTPClient) PostForm(ctx context.Context, path string, form map[string]string) (*Response, error) {
	return c.do(ctx, "POST", path, EncodeForm(form))
}

// EncodeForm url-encodes form with its keys sorted.
func EncodeForm(form map[string]string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(urlcodec.URLEncode(k))
		b.WriteByte('=')
		b.WriteString(urlcodec.URLEncode(form[k]))
	}
	return b.String()
}

func (c *HTTPClient) do(ctx context.Context, method, path, body string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Cancelling connCtx closes the connection without failing the request.
	connCtx, closeConn := context.WithCancel(ctx)
	defer closeConn()

	stream, stop, err := c.open(connCtx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer stop()

	resp, err := readHead(stream)
	if err != nil {
		return nil, ctxErr(ctx, err)
	}

	if cl, ok := resp.Header["content-length"]; ok {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length %q", cl)
		}
		resp.Body = make([]byte, n)
		if _, err := io.ReadFull(stream, resp.Body); err != nil {
			return nil, ctxErr(ctx, fmt.Errorf("read body: %w", err))
		}
		return resp, nil
	}

	resp.Body, err = readUntilIdle(stream, c.idle, closeConn)
	if err != nil || ctx.Err() != nil {
		return nil, ctxErr(ctx, fmt.Errorf("read body: %w", err))
	}
	return resp, nil
}

// readUntilIdle reads a body that has no length. It ends when the server
// closes the connection or sends nothing for idle, whichever comes first;
// closeConn is called to stop the read at the idle mark.
func readUntilIdle(r io.Reader, idle time.Duration, closeConn func()) ([]byte, error) {
	var idled atomic.Bool
	timer := time.AfterFunc(idle, func() {
		idled.Store(true)
		closeConn()
	})
	defer timer.Stop()

	var body []byte
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			body = append(body, chunk[:n]...)
			if !timer.Stop() {
				return body, nil
			}
			timer.Reset(idle)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || idled.Load() {
				return body, nil
			}
			return nil, err
		}
	}
}

// Events requests path as a server-sent event stream and calls fn with the
// data of each event until fn returns an error, ctx is done or the server
// closes the stream. A clean end returns nil.
func (c *HTTPClient) Events(ctx context.Context, path string, fn func(data string) error) error {
	stream, stop, err := c.open(ctx, "GET", path, "")
	if err != nil {
		return err
	}
	defer stop()

	resp, err := readHead(stream)
	if err != nil {
		return ctxErr(ctx, err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("server answered %s", resp.Status)
	}

	var data []string
	for {
		line, err := stream.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && ctx.Err() == nil {
				return nil
			}
			return ctxErr(ctx, err)
		}
		switch {
		case line == "":
			if len(data) > 0 {
				if err := fn(strings.Join(data, "\n")); err != nil {
					return err
				}
				data = data[:0]
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

// open connects, sends the request and returns the stream with a function
// that releases it. Cancelling ctx closes the connection.
func (c *HTTPClient) open(ctx context.Context, method, path, body string) (*sockstream.Stream, func(), error) {
	sock, err := c.target.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	stream := sockstream.New(sock, sockstream.WithOwnership(true))
	unwatch := context.AfterFunc(ctx, func() { _ = sock.Close() })
	stop := func() {
		unwatch()
		_ = stream.Close()
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	var req strings.Builder
	fmt.Fprintf(&req, "%s %s HTTP/1.1\r\nHost: %s\r\nUser-Agent: embedhttp-cli\r\n", method, path, c.target)
	if method == "POST" {
		fmt.Fprintf(&req, "Content-Type: application/x-www-form-urlencoded\r\nContent-Length: %d\r\n", len(body))
	}
	req.WriteString("\r\n")
	req.WriteString(body)

	if _, err := stream.WriteString(req.String()); err != nil {
		stop()
		return nil, nil, err
	}
	if err := stream.Flush(); err != nil {
		stop()
		return nil, nil, ctxErr(ctx, err)
	}
	return stream, stop, nil
}

func readHead(stream *sockstream.Stream) (*Response, error) {
	line, err := stream.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("read status line: %w", err)
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return nil, fmt.Errorf("malformed status line %q", line)
	}
	codeStr, _, _ := strings.Cut(status, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return nil, fmt.Errorf("malformed status line %q", line)
	}

	resp := &Response{StatusCode: code, Status: status, Header: make(map[string]string)}
	for {
		line, err := stream.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		if line == "" {
			return resp, nil
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			resp.Header[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
}

func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
