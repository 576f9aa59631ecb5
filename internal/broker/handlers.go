package broker

import (
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/nighlabs/sfbroker/internal/faults"
	"github.com/nighlabs/sfbroker/internal/logging"
	"github.com/nighlabs/sfbroker/internal/session"
	"github.com/nighlabs/sfbroker/internal/wire"
)

// handleIdentity applies the session-table bind rules to a newly
// announced identity. On rebind it performs the SF drain before any
// subsequently published frame can reach this session, since both run
// on the dispatcher goroutine.
func (d *Dispatcher) handleIdentity(e identityEvent) {
	identity, err := wire.ParseIdentity(e.line)
	if err != nil {
		// No reply is defined for a malformed identity line, so the
		// connection is simply dropped.
		logging.LogDispatchError("malformed identity announcement", err, logging.SessionAttrs{})
		e.conn.Close()
		return
	}

	s, outcome := d.table.Bind(identity, e.conn, e.peer)

	switch outcome {
	case session.BindDuplicate:
		fmt.Printf("Client %s already connected.\n", identity)
		slog.Info("client already connected", slog.String("identity", identity))
		if err := sendReply(e.conn, "", wire.ReplyErrSameID); err != nil {
			logging.LogDispatchError("failed to send ERRSAMEID", err, logging.SessionAttrs{Identity: identity})
			reportFault(err)
		}
		e.conn.Close()

	case session.BindNew, session.BindRebound:
		fmt.Printf("New client %s connected from %s.\n", identity, peerString(e.peer))
		slog.Info("client connected",
			slog.String("identity", identity),
			slog.String("peer_addr", peerString(e.peer)))

		if outcome == session.BindRebound {
			d.drainPending(s)
		}
	}
}

// handleCommand executes a subscribe/unsubscribe control line against
// an already-bound session. Malformed commands are ignored without a
// reply.
func (d *Dispatcher) handleCommand(e commandEvent) {
	s, ok := d.table.LookupByStream(e.conn)
	if !ok {
		return
	}

	cmd, ok := wire.ParseCommand(e.line)
	if !ok {
		return
	}

	switch cmd.Kind {
	case wire.CmdSubscribe:
		d.registry.Subscribe(s, cmd.Topic, cmd.SF)
		if err := sendReply(e.conn, cmd.Topic, wire.ReplySubscribed); err != nil {
			d.disconnectSession(s, err)
		}

	case wire.CmdUnsubscribe:
		removed := d.registry.Unsubscribe(s, cmd.Topic)
		if !removed {
			// Unknown topic on unsubscribe is a no-op, no reply.
			return
		}
		if err := sendReply(e.conn, cmd.Topic, wire.ReplyUnsubscribed); err != nil {
			d.disconnectSession(s, err)
		}
	}
}

// handleStreamClosed marks a session disconnected when its stream's
// reader goroutine observes peer close. Subscriptions and the pending
// queue are preserved.
func (d *Dispatcher) handleStreamClosed(e streamClosedEvent) {
	s, ok := d.table.LookupByStream(e.conn)
	if !ok {
		e.conn.Close()
		return
	}

	d.table.MarkDisconnected(s)
	e.conn.Close()

	fmt.Printf("Client %s disconnected.\n", s.Identity)
	slog.Info("client disconnected", slog.String("identity", s.Identity))
}

// handleUDP decodes one ingested datagram and, if well-formed, stamps
// its origin address and hands it to fan-out. Malformed datagrams are
// silently dropped.
func (d *Dispatcher) handleUDP(e udpEvent) {
	frame, err := wire.DecodeFrame(e.data)
	if err != nil {
		return
	}

	frame = frame.WithOrigin(originFromUDPAddr(e.addr))
	d.publishFrame(frame)
}

// handleConsole executes the single recognized administrative command.
// It returns true when the broker should shut down.
func (d *Dispatcher) handleConsole(e consoleEvent) bool {
	if strings.TrimSpace(e.line) != wire.ConsoleExit {
		return false
	}
	return true
}

func originFromUDPAddr(addr *net.UDPAddr) wire.OriginAddr {
	var ip [4]byte
	if v4 := addr.IP.To4(); v4 != nil {
		copy(ip[:], v4)
	}
	return wire.NewOriginAddr(ip, uint16(addr.Port))
}

func peerString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

// reportFault is a thin seam so the dispatcher can forward unexpected
// errors (as opposed to expected, deliberately silent drops) to Sentry
// without every call site importing internal/faults directly.
func reportFault(err error) {
	faults.Report(err)
}
