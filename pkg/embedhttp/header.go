package embedhttp

import (
	"bytes"
	"strconv"
	"strings"
)

const (
	statusOK       = "HTTP/1.1 200 OK\r\n"
	statusNotFound = "HTTP/1.1 404 Not Found\r\n"

	cacheForever = "Cache-Control: public, max-age=31536000\r\n"
	cacheNever   = "Cache-Control: no-cache, no-store, must-revalidate\r\n"
)

// Header builds a "200 OK" response header block for generic actions:
//
//	HTTP/1.1 200 OK
//	Content-Type: <mime>
//	Content-Length: <n>        (omitted when n is 0)
//	Cache-Control: ...
//
// followed by the blank line. With cache set the response may be cached for
// a year, otherwise caching is forbidden. Omitting the length suits streams
// such as text/event-stream that never end.
func Header(mime string, contentLength int64, cache bool) string {
	var b strings.Builder
	b.WriteString(statusOK)
	b.WriteString("Content-Type: ")
	b.WriteString(mime)
	b.WriteString("\r\n")
	if contentLength != 0 {
		b.WriteString("Content-Length: ")
		b.WriteString(strconv.FormatInt(contentLength, 10))
		b.WriteString("\r\n")
	}
	if cache {
		b.WriteString(cacheForever)
	} else {
		b.WriteString(cacheNever)
	}
	b.WriteString("\r\n")
	return b.String()
}

// okResponse frames body as a complete 200 response. Content-Length is
// always present, even 0, so the peer can frame an empty body. The result is
// written with a single call so pushes from other goroutines land outside it.
func okResponse(mime string, body []byte, cache bool) []byte {
	var b bytes.Buffer
	b.Grow(len(body) + 128)
	b.WriteString(statusOK)
	b.WriteString("Content-Type: ")
	b.WriteString(mime)
	b.WriteString("\r\nContent-Length: ")
	b.WriteString(strconv.Itoa(len(body)))
	b.WriteString("\r\n")
	if cache {
		b.WriteString(cacheForever)
	} else {
		b.WriteString(cacheNever)
	}
	b.WriteString("\r\n")
	b.Write(body)
	return b.Bytes()
}

const notFoundResponse = statusNotFound +
	"Content-Type: text/plain\r\n" +
	"Content-Length: 0\r\n\r\n"
