package embedhttp

import (
	"errors"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/embedhttp/pkg/sockets"
	"github.com/yndnr/embedhttp/pkg/sockstream"
)

// conn drives one accepted connection: it reads request lines and headers,
// dispatches each request when its blank line arrives and goes back to
// waiting for the next request line until the peer ends the stream.
type conn struct {
	srv    *Server
	sock   *sockets.Socket
	stream *sockstream.Stream
	id     string
	remote string
}

func newConn(s *Server, sock *sockets.Socket) *conn {
	return &conn{
		srv:    s,
		sock:   sock,
		id:     strings.ToLower(ulid.Make().String()),
		remote: sock.RemoteAddr(),
	}
}

func (c *conn) serve() {
	// The stream borrows the socket; closing the socket is this scope's job.
	defer c.sock.Close()

	c.srv.active.Add(1)
	c.srv.observer.ConnOpened()
	defer func() {
		c.srv.active.Add(-1)
		c.srv.observer.ConnClosed()
	}()

	c.srv.logInfo(LogConnections, "accepted new connection", "conn_id", c.id, "remote", c.remote)

	c.stream = sockstream.New(c.sock)
	c.notify(Connected)

	var req *Request // nil while awaiting a request line
	for {
		line, err := c.stream.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !sockets.IsLogic(err) {
				c.srv.logError(LogConnections, "error in connection", "conn_id", c.id, "error", err)
			}
			break
		}

		switch {
		case line == "":
			if req != nil {
				c.dispatch(req)
			}
			req = nil
		case req == nil:
			req = parseRequestLine(line)
		default:
			parseHeaderLine(req, line)
		}
	}

	c.notify(Closing)

	if err := c.stream.Close(); err != nil {
		c.srv.logError(LogConnections, "flush on close failed", "conn_id", c.id, "error", err)
	}
	c.srv.logInfo(LogConnections, "finished with this connection", "conn_id", c.id)
}

// notify runs the connection callback. A panicking callback is ignored.
func (c *conn) notify(ev ConnEvent) {
	cb := c.srv.connectionCallback()
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.srv.logError(LogConnections, "connection callback panicked",
				"conn_id", c.id, "event", ev.String(), "panic", r)
		}
	}()
	cb(c.stream, ev)
}

// parseRequestLine recognizes "GET <resource> ..." and "POST <resource> ...".
// Any other line yields nil and is ignored.
func parseRequestLine(line string) *Request {
	var m Method
	switch {
	case strings.HasPrefix(line, "GET "):
		m = MethodGet
	case strings.HasPrefix(line, "POST "):
		m = MethodPost
	default:
		return nil
	}

	resource := line[len(m)+1:]
	if i := strings.IndexByte(resource, ' '); i >= 0 {
		resource = resource[:i]
	}

	path, query, _ := strings.Cut(resource, "?")
	return &Request{Method: m, Path: path, Query: query}
}

// parseHeaderLine records the headers the server understands and ignores
// the rest.
func parseHeaderLine(req *Request, line string) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	switch {
	case strings.EqualFold(name, "Content-Length"):
		req.ContentLength = parseContentLength(value)
	case strings.EqualFold(name, "Content-Type"):
		req.ContentType = strings.TrimPrefix(value, " ")
	}
}

// parseContentLength returns 0 for anything that is not a non-negative integer.
func parseContentLength(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
