// Command embedhttp-server serves a directory of static files and the demo
// control panel actions with the embedhttp engine.
//
// Usage:
//
//	embedhttp-server [flags]
//	embedhttp-server --config /etc/embedhttp/server.yaml --port 8080
//
// Configuration is read from the file, then EMBEDHTTP_* environment
// variables, then flags. SIGHUP, a change to the file or the admin
// "reload" command re-read it; log level and categories take effect at
// once, listener settings on the next start.
package main
