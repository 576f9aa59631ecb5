package broker

import (
	"net"

	"github.com/nighlabs/sfbroker/internal/logging"
	"github.com/nighlabs/sfbroker/internal/session"
	"github.com/nighlabs/sfbroker/internal/wire"
)

// publishFrame takes a decoded, origin-stamped publish frame, computes
// the recipient set, and delivers to each one, either live or via SF
// enqueue. It must run on the dispatcher goroutine so the snapshot and
// every recipient decision see a consistent view of the registry and
// session table.
func (d *Dispatcher) publishFrame(f wire.PublishFrame) {
	recipients := d.registry.Subscribers(f.Topic)
	if len(recipients) == 0 {
		return
	}

	for _, s := range recipients {
		switch {
		case s.State == session.Connected:
			if err := sendFrame(s.Stream, f); err != nil {
				d.disconnectSession(s, err)
			}
		case s.Topics[f.Topic]:
			s.Enqueue(f)
		default:
			// Disconnected and not SF-enabled for this topic: discard.
		}
	}
}

// drainPending implements the SF replay contract: on rebind, frames are
// sent in FIFO order and removed only after a successful send. If a send
// fails partway through, the remaining frames stay queued and the
// session falls back to DISCONNECTED; the drain completes before any
// subsequently-published frame reaches this session because both run on
// the single dispatcher goroutine.
func (d *Dispatcher) drainPending(s *session.Session) {
	for {
		f, ok := s.DrainFront()
		if !ok {
			return
		}
		if err := sendFrame(s.Stream, f); err != nil {
			d.disconnectSession(s, err)
			return
		}
		s.PopFront()
	}
}

// disconnectSession marks s disconnected as a result of a send/recv
// failure encountered mid-dispatch, the same as if the peer had closed
// the stream itself; other sessions are unaffected.
func (d *Dispatcher) disconnectSession(s *session.Session, cause error) {
	conn := s.Stream
	d.table.MarkDisconnected(s)
	if conn != nil {
		_ = conn.Close()
	}
	logging.LogDispatchError("session send failed", cause, logging.SessionAttrs{Identity: s.Identity})
	reportFault(cause)
}

// sendReply builds and sends a REPLY-typed frame over conn: used for
// subscribe/unsubscribe acknowledgements and the ERRSAMEID rejection.
func sendReply(conn net.Conn, topic, message string) error {
	payload, err := wire.EncodeString(message)
	if err != nil {
		return err
	}
	frame := wire.PublishFrame{Topic: topic, Type: wire.TypeReply, Payload: payload}
	return sendFrame(conn, frame)
}

// sendFrame encodes and writes a full frame to conn, retrying internally
// until every byte is written or the connection errors.
func sendFrame(conn net.Conn, f wire.PublishFrame) error {
	encoded, err := wire.EncodeFrame(f)
	if err != nil {
		return err
	}
	return sendAll(conn, encoded)
}

// sendAll writes every byte of b to conn, looping over partial writes.
func sendAll(conn net.Conn, b []byte) error {
	for len(b) > 0 {
		n, err := conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
