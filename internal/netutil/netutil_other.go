//go:build !linux

package netutil

import (
	"net"
	"syscall"
)

// controlReuseAddr is a no-op outside Linux; SO_REUSEADDR semantics and
// constant names vary enough across BSD/Darwin that we don't attempt it
// here. The broker still runs, it just won't rebind an in-use port
// immediately after restart on non-Linux hosts.
func controlReuseAddr(_, _ string, _ syscall.RawConn) error {
	return nil
}

// applyReuseAddr is a no-op outside Linux, for the same reason
// controlReuseAddr is: no portable constant name across BSD/Darwin.
func applyReuseAddr(_ *net.TCPConn) error {
	return nil
}

// applyCork is a no-op outside Linux: TCP_CORK is a Linux-specific socket
// option with no portable equivalent.
func applyCork(_ *net.TCPConn) error {
	return nil
}
