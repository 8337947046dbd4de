// Package localserver provides the Unix socket management interface.
//
// Operators connect to a local socket (file system permissions are the only
// access control) and send one command per line:
//
//	status                  server activity and versions
//	routes                  registered actions
//	loglevel [level]        show or set the application log level
//	logmask [categories]    show or set the HTTP engine log categories
//	reload                  re-read the configuration file
//	shutdown                stop the server gracefully
//
// Every reply ends with a line holding a single ".". Failed commands reply
// with a line starting "error: ".
//
// The socket is served with the same sockets and sockstream primitives as
// the HTTP engine.
package localserver
