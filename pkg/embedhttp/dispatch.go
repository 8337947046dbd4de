package embedhttp

import (
	"io"
	"os"
	"time"
)

// dispatch answers one fully read request. POST bodies the action leaves
// unread are discarded so the next request line is found where it belongs.
func (c *conn) dispatch(req *Request) {
	start := time.Now()

	body := &io.LimitedReader{R: c.stream}
	if req.Method == MethodPost {
		body.N = req.ContentLength
	}
	req.Body = body
	req.ConnID = c.id
	req.RemoteAddr = c.remote

	var kind, result string
	switch req.Method {
	case MethodGet:
		kind, result = c.dispatchGet(req)
	case MethodPost:
		kind, result = c.dispatchPost(req)
	}

	if body.N > 0 {
		if _, err := io.Copy(io.Discard, body); err != nil {
			c.srv.logError(LogDynamicRequests, "discarding request body failed",
				"conn_id", c.id, "path", req.Path, "error", err)
		}
	}

	c.srv.observer.RequestDone(req.Method, kind, result, time.Since(start))
}

func (c *conn) dispatchGet(req *Request) (kind, result string) {
	if req.Path == "/" {
		return KindStatic, c.serveFile(IndexFile)
	}
	if a, ok := c.srv.registry.lookup(MethodGet, req.Path); ok {
		return c.runAction(req, a)
	}
	return KindStatic, c.serveFile(req.Path)
}

func (c *conn) dispatchPost(req *Request) (kind, result string) {
	a, ok := c.srv.registry.lookup(MethodPost, req.Path)
	if !ok {
		c.srv.logInfo(LogDynamicRequests, "POST action not found", "conn_id", c.id, "path", req.Path)
		c.respond(req.Path, func() error { return c.writeString(notFoundResponse) })
		return KindUnrouted, ResultNotFound
	}
	return c.runAction(req, a)
}

// runAction invokes a registered action. Typed actions write into a buffer
// that is framed with a header once they return; generic actions write
// straight to the connection.
func (c *conn) runAction(req *Request, a action) (kind, result string) {
	c.srv.logInfo(LogDynamicRequests, string(req.Method)+" action",
		"conn_id", c.id, "path", req.Path, "query", req.Query)

	if a.mime == MIMEGeneric {
		if err := invoke(a.handler, c.stream, req); err != nil {
			c.stream.Discard()
			c.actionFailed(req, err)
			return KindGeneric, ResultError
		}
		if err := c.stream.Flush(); err != nil {
			c.writeFailed(req.Path, err)
			return KindGeneric, ResultError
		}
		c.srv.logInfo(LogDynamicResponses, "generic "+string(req.Method)+" action executed",
			"conn_id", c.id, "path", req.Path)
		return KindGeneric, ResultOK
	}

	var buf bufferWriter
	if err := invoke(a.handler, &buf, req); err != nil {
		c.actionFailed(req, err)
		return KindTyped, ResultError
	}

	ok := c.respond(req.Path, func() error {
		_, err := c.stream.Write(okResponse(a.mime, buf.Bytes(), false))
		return err
	})
	if !ok {
		return KindTyped, ResultError
	}

	c.srv.logInfo(LogDynamicResponses, string(req.Method)+" action returned",
		"conn_id", c.id, "path", req.Path, "type", a.mime, "bytes", buf.Len())
	return KindTyped, ResultOK
}

// serveFile answers with a file below the base directory, or 404.
func (c *conn) serveFile(name string) string {
	c.srv.logInfo(LogStaticRequests, "GET file", "conn_id", c.id, "file", name)

	var (
		data []byte
		err  error
	)
	full, ok := staticPath(c.srv.baseDir, name)
	if ok {
		data, err = os.ReadFile(full)
	}
	if !ok || err != nil {
		c.srv.logInfo(LogStaticRequests, "file not found", "conn_id", c.id, "file", name)
		c.respond(name, func() error { return c.writeString(notFoundResponse) })
		return ResultNotFound
	}

	sent := c.respond(name, func() error {
		_, err := c.stream.Write(okResponse(MIMEType(name), data, true))
		return err
	})
	if !sent {
		return ResultError
	}

	c.srv.logInfo(LogStaticResponses, "file was sent", "conn_id", c.id, "file", name, "bytes", len(data))
	return ResultOK
}

// respond runs write and flushes the stream, logging transport failures.
func (c *conn) respond(path string, write func() error) bool {
	err := write()
	if err == nil {
		err = c.stream.Flush()
	}
	if err != nil {
		c.writeFailed(path, err)
		return false
	}
	return true
}

func (c *conn) writeString(s string) error {
	_, err := c.stream.WriteString(s)
	return err
}

func (c *conn) writeFailed(path string, err error) {
	c.srv.logError(LogConnections, "response write failed",
		"conn_id", c.id, "path", path, "fault", FaultOf(err).String(), "error", err)
}

func (c *conn) actionFailed(req *Request, err error) {
	c.srv.logError(LogDynamicResponses, "error in "+string(req.Method)+" action",
		"conn_id", c.id, "path", req.Path, "error", err)
}

// invoke calls h, turning a returned error or a panic into a *HandlerError.
func invoke(h HandlerFunc, w Writer, req *Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Method: req.Method, Path: req.Path, Panic: r}
		}
	}()

	if herr := h(w, req); herr != nil {
		return &HandlerError{Method: req.Method, Path: req.Path, Err: herr}
	}
	return nil
}
