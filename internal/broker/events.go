package broker

import (
	"net"
)

// event is the sum type flowing through the dispatcher's single event
// channel. Every handle (acceptor, UDP socket, console, session streams)
// only ever produces events here; all state mutation happens once the
// dispatcher goroutine receives one.
type event interface{ isEvent() }

// identityEvent fires once per stream, carrying the first control line
// read from it, the identity announcement.
type identityEvent struct {
	conn net.Conn
	peer net.Addr
	line string
}

func (identityEvent) isEvent() {}

// commandEvent fires for every control line read from a stream after its
// identity has been bound.
type commandEvent struct {
	conn net.Conn
	line string
}

func (commandEvent) isEvent() {}

// streamClosedEvent fires when a session stream's reader goroutine hits
// EOF or a read error.
type streamClosedEvent struct {
	conn net.Conn
}

func (streamClosedEvent) isEvent() {}

// udpEvent fires for every UDP datagram read off the ingest socket.
type udpEvent struct {
	data []byte
	addr *net.UDPAddr
}

func (udpEvent) isEvent() {}

// consoleEvent fires for every line read from the administrative console.
type consoleEvent struct {
	line string
}

func (consoleEvent) isEvent() {}
