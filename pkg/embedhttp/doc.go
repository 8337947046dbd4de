// Package embedhttp is a minimal HTTP/1.1 server meant to be linked into a
// long-running application so it can serve static files and small dynamic
// fragments without a separate server process.
//
// The server understands just enough of the protocol to route requests:
//
//   - request lines "GET <path>[?query] ..." and "POST <path>[?query] ..."
//   - the Content-Length and Content-Type headers; all others are ignored
//   - responses "HTTP/1.1 200 OK" and "HTTP/1.1 404 Not Found"
//
// Paths registered as actions are answered by handler functions. A typed
// action declares its MIME type and only writes the body; the server frames
// it with a header. A generic action (empty MIME type) writes the whole
// response, header included, directly to the connection. Any other GET path
// is served from the static base directory, with "/" aliased to
// "/index.html".
//
// Every accepted connection is served by its own goroutine. There is no
// limit on the number of connections and no read timeout: a client that never
// finishes its headers keeps its goroutine alive.
//
// Example:
//
//	srv := embedhttp.New(embedhttp.Options{Port: 8000, BaseDir: "dist"})
//	srv.HandleHTMLGet("hello", func(w embedhttp.Writer, r *embedhttp.Request) error {
//		_, err := fmt.Fprintf(w, "<p>hello %s</p>", urlcodec.HTMLEncode(r.Params()["name"]))
//		return err
//	})
//	log.Fatal(srv.ListenAndServe(context.Background()))
package embedhttp
