// Package netutil applies the original broker's socket tuning
// (SO_REUSEADDR, TCP_NODELAY, TCP_CORK) to the broker's listening and
// accepted sockets. TCP_CORK has no portable stdlib equivalent, so the
// Linux-specific options are isolated behind build-tagged files and
// applied through golang.org/x/sys/unix.
package netutil

import (
	"net"
)

// ListenTCP opens a non-blocking TCP listener on addr with SO_REUSEADDR
// applied before bind, so a restarted broker can rebind immediately.
func ListenTCP(addr string) (*net.TCPListener, error) {
	lc := net.ListenConfig{Control: controlReuseAddr}
	ln, err := lc.Listen(nil, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return ln.(*net.TCPListener), nil
}

// ListenUDP opens the UDP ingest socket on the same port, wildcard bound.
func ListenUDP(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp4", udpAddr)
}

// TuneConn applies SO_REUSEADDR, TCP_NODELAY, and TCP_CORK to an accepted
// or dialed TCP connection, matching every session stream's socket
// options to the listener's.
func TuneConn(conn *net.TCPConn) error {
	if err := applyReuseAddr(conn); err != nil {
		return err
	}
	if err := conn.SetNoDelay(true); err != nil {
		return err
	}
	return applyCork(conn)
}
