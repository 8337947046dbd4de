package embedhttp

import (
	"bytes"
	"io"

	"github.com/yndnr/embedhttp/pkg/urlcodec"
)

// Method is a request method understood by the server.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// Writer is where an action writes its output. For typed actions it is a
// temporary buffer; for generic actions it is the live connection stream,
// which must be flushed once the response is complete.
type Writer interface {
	io.Writer
	io.StringWriter
	Flush() error
}

// Request is the state of one request/response cycle.
type Request struct {
	Method Method
	// Path is the resource up to the first '?'.
	Path string
	// Query is everything after the first '?', undecoded.
	Query string
	// ContentLength is the parsed Content-Length header, 0 if absent or invalid.
	ContentLength int64
	// ContentType is the Content-Type header value as sent by the client.
	ContentType string
	// Body yields at most ContentLength bytes of the request body. For GET it
	// is always empty. Bytes an action leaves unread are discarded by the
	// server before the next request on the connection.
	Body io.Reader

	// ConnID identifies the connection the request arrived on.
	ConnID string
	// RemoteAddr is the peer address.
	RemoteAddr string
}

// Params decodes the query string.
func (r *Request) Params() map[string]string {
	return urlcodec.DecodeParams(r.Query, true)
}

// ReadForm reads the whole body and decodes it as url-encoded form data.
func (r *Request) ReadForm() (map[string]string, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return urlcodec.DecodeParamsBytes(data, true), nil
}

// HandlerFunc is an action bound to a route.
type HandlerFunc func(w Writer, r *Request) error

// ConnEvent is passed to the connection callback.
type ConnEvent int

const (
	// Connected fires once a connection has been accepted, before any request is read.
	Connected ConnEvent = iota
	// Closing fires after the peer ends the stream, just before the connection is closed.
	Closing
)

// String returns the event name.
func (e ConnEvent) String() string {
	switch e {
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// ConnectionCallback observes connection lifecycle events. The writer is the
// live connection stream; it stays valid until the Closing event returns.
type ConnectionCallback func(w Writer, ev ConnEvent)

// bufferWriter collects a typed action's output.
type bufferWriter struct {
	bytes.Buffer
}

// Flush is a no-op; the server sends the buffer once the action returns.
func (b *bufferWriter) Flush() error { return nil }
