// Package connection talks to a running embedhttp server from the command
// line.
//
//   - http.go: a minimal HTTP/1.1 client over TCP or a Unix socket
//   - socket.go: the admin socket client
//
// Both are built on the same sockets and sockstream packages the server
// uses, so a Unix socket server is reachable without a proxy.
package connection
