// Package session implements the broker's session table: the
// identity-keyed entities that persist across TCP reconnections, their
// connect/disconnect state machine, and their store-and-forward pending
// queues.
package session

import (
	"net"

	"github.com/nighlabs/sfbroker/internal/wire"
)

// State is a session's connectivity state.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "CONNECTED"
	}
	return "DISCONNECTED"
}

// Session is the long-lived logical identity of a subscriber. All
// mutation happens from the dispatcher goroutine that owns the session
// table; Session itself holds no lock.
type Session struct {
	// Identity is immutable after the session is first created.
	Identity string

	State    State
	Stream   net.Conn // nil when State == Disconnected
	PeerAddr net.Addr // advisory: most recent peer, retained across disconnects

	// Topics maps a subscribed topic name to its store-and-forward flag
	// for this session.
	Topics map[string]bool

	// Pending is the FIFO of frames awaiting delivery. It is non-empty
	// only when State == Disconnected and at least one subscription has
	// its SF flag set.
	Pending []wire.PublishFrame
}

func newSession(identity string) *Session {
	return &Session{
		Identity: identity,
		State:    Disconnected,
		Topics:   make(map[string]bool),
	}
}

// Enqueue appends a frame to the pending queue. Callers are responsible
// for only calling this for a disconnected session with the SF flag set
// for the frame's topic — see internal/broker's fan-out.
func (s *Session) Enqueue(f wire.PublishFrame) {
	s.Pending = append(s.Pending, f)
}

// DrainFront returns the first pending frame and whether one was present,
// without removing it. Callers remove it via PopFront only after a
// successful send.
func (s *Session) DrainFront() (wire.PublishFrame, bool) {
	if len(s.Pending) == 0 {
		return wire.PublishFrame{}, false
	}
	return s.Pending[0], true
}

// PopFront removes the first pending frame.
func (s *Session) PopFront() {
	if len(s.Pending) == 0 {
		return
	}
	s.Pending = s.Pending[1:]
}
