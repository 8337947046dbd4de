//go:build !unix

package sockets

import "syscall"

// reuseAddr is a no-op where the runtime already picks the platform default.
func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
