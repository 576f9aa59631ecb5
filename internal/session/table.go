package session

import "net"

// LookupResult is the tri-state outcome of an identity lookup, replacing
// the original implementation's throw/catch "not found" / "found but
// disconnected" control flow.
type LookupResult int

const (
	Absent LookupResult = iota
	FoundDisconnected
	FoundConnected
)

// BindOutcome is the result of attempting to bind a stream to an
// identity.
type BindOutcome int

const (
	BindNew BindOutcome = iota
	BindRebound
	BindDuplicate
)

// Table is the authoritative session table, indexed by identity. It is
// the sole owner of every *Session; the topic
// registry and the dispatcher's SF machinery only ever hold the pointers
// it hands out.
type Table struct {
	byIdentity map[string]*Session
	byStream   map[net.Conn]*Session
}

// NewTable creates an empty session table.
func NewTable() *Table {
	return &Table{
		byIdentity: make(map[string]*Session),
		byStream:   make(map[net.Conn]*Session),
	}
}

// Lookup resolves an identity to its session and current state.
func (t *Table) Lookup(identity string) (*Session, LookupResult) {
	s, ok := t.byIdentity[identity]
	if !ok {
		return nil, Absent
	}
	if s.State == Connected {
		return s, FoundConnected
	}
	return s, FoundDisconnected
}

// LookupByStream resolves a live stream handle to its session.
func (t *Table) LookupByStream(conn net.Conn) (*Session, bool) {
	s, ok := t.byStream[conn]
	return s, ok
}

// Bind handles the identity handshake's state machine:
//
//   - unknown identity: a new session is created and bound, BindNew.
//   - known, disconnected identity: the existing session is rebound to
//     the new stream, BindRebound (the caller must then perform SF
//     drain).
//   - known, already-connected identity: the new stream is rejected as
//     a duplicate, BindDuplicate; the existing (connected) session is
//     returned untouched.
func (t *Table) Bind(identity string, conn net.Conn, peer net.Addr) (*Session, BindOutcome) {
	existing, result := t.Lookup(identity)

	switch result {
	case Absent:
		s := newSession(identity)
		s.State = Connected
		s.Stream = conn
		s.PeerAddr = peer
		t.byIdentity[identity] = s
		t.byStream[conn] = s
		return s, BindNew

	case FoundDisconnected:
		existing.State = Connected
		existing.Stream = conn
		existing.PeerAddr = peer
		t.byStream[conn] = existing
		return existing, BindRebound

	default: // FoundConnected
		return existing, BindDuplicate
	}
}

// MarkDisconnected transitions a session to DISCONNECTED, retaining its
// subscriptions and pending queue. The session's stream
// handle is removed from the stream index but the caller is responsible
// for actually closing it.
func (t *Table) MarkDisconnected(s *Session) {
	if s.Stream != nil {
		delete(t.byStream, s.Stream)
	}
	s.State = Disconnected
	s.Stream = nil
}

// All returns every session in the table, for broker shutdown.
func (t *Table) All() []*Session {
	sessions := make([]*Session, 0, len(t.byIdentity))
	for _, s := range t.byIdentity {
		sessions = append(sessions, s)
	}
	return sessions
}
