package broker

import (
	"io"
	"net"
	"testing"

	"github.com/nighlabs/sfbroker/internal/config"
	"github.com/nighlabs/sfbroker/internal/session"
	"github.com/nighlabs/sfbroker/internal/wire"
)

func newTestDispatcher() *Dispatcher {
	return New(&config.Config{ControlLineMax: 4096})
}

func intFrame(topic string, magnitude uint32) wire.PublishFrame {
	return wire.PublishFrame{
		Topic:   topic,
		Type:    wire.TypeInt,
		Payload: wire.EncodeInt(wire.IntPayload{Magnitude: magnitude}),
	}
}

func readFrame(t *testing.T, r io.Reader) wire.PublishFrame {
	t.Helper()
	buf := make([]byte, wire.FrameSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	f, err := wire.DecodeFrame(buf)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

// bindSession drives the identity handshake through a net.Pipe and
// returns the bound session plus the client-side conn end.
func bindSession(t *testing.T, d *Dispatcher, identity string) (*session.Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	d.handleIdentity(identityEvent{conn: server, peer: client.RemoteAddr(), line: identity})

	s, ok := d.table.LookupByStream(server)
	if !ok {
		t.Fatalf("session for %q not bound", identity)
	}
	return s, client
}

// TestBasicPublishSubscribe confirms a subscribed session receives a
// live publish on its stream.
func TestBasicPublishSubscribe(t *testing.T) {
	d := newTestDispatcher()
	_, client := bindSession(t, d, "sub1")
	defer client.Close()

	s, _ := d.table.Lookup("sub1")
	d.registry.Subscribe(s, "temp", false)

	done := make(chan wire.PublishFrame, 1)
	go func() { done <- readFrame(t, client) }()

	d.publishFrame(intFrame("temp", 42))

	got := <-done
	if got.Topic != "temp" || wire.DecodeInt(got.Payload).Render() != "42" {
		t.Fatalf("received frame = %+v, want temp/42", got)
	}
}

// TestDuplicateIdentityRejected confirms a second connection announcing
// an identity already CONNECTED is sent ERRSAMEID and closed, while the
// first session is untouched.
func TestDuplicateIdentityRejected(t *testing.T) {
	d := newTestDispatcher()
	firstSession, firstClient := bindSession(t, d, "dup")
	defer firstClient.Close()

	secondServer, secondClient := net.Pipe()
	defer secondClient.Close()

	done := make(chan wire.PublishFrame, 1)
	go func() { done <- readFrame(t, secondClient) }()

	d.handleIdentity(identityEvent{conn: secondServer, peer: secondClient.RemoteAddr(), line: "dup"})

	reply := <-done
	if reply.Type != wire.TypeReply || wire.DecodeString(reply.Payload) != wire.ReplyErrSameID {
		t.Fatalf("reply = %+v, want ERRSAMEID", reply)
	}

	if got, _ := d.table.Lookup("dup"); got != firstSession {
		t.Fatalf("duplicate bind must not disturb the existing session")
	}
	if firstSession.State != session.Connected {
		t.Fatalf("existing session state = %v, want Connected", firstSession.State)
	}
}

// TestStoreAndForwardReplaysOnRebind confirms a disconnected SF
// subscriber accumulates publishes and receives them, in order, the
// moment it reconnects.
func TestStoreAndForwardReplaysOnRebind(t *testing.T) {
	d := newTestDispatcher()
	s, client1 := bindSession(t, d, "sfsub")

	d.registry.Subscribe(s, "alerts", true)

	d.handleStreamClosed(streamClosedEvent{conn: s.Stream})
	client1.Close()

	d.publishFrame(intFrame("alerts", 1))
	d.publishFrame(intFrame("alerts", 2))

	if len(s.Pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(s.Pending))
	}

	server2, client2 := net.Pipe()
	defer client2.Close()

	recv := make(chan wire.PublishFrame, 2)
	go func() {
		recv <- readFrame(t, client2)
		recv <- readFrame(t, client2)
	}()

	d.handleIdentity(identityEvent{conn: server2, peer: client2.RemoteAddr(), line: "sfsub"})

	first := <-recv
	second := <-recv
	if wire.DecodeInt(first.Payload).Render() != "1" || wire.DecodeInt(second.Payload).Render() != "2" {
		t.Fatalf("replay order wrong: %+v, %+v", first, second)
	}
	if len(s.Pending) != 0 {
		t.Fatalf("pending not drained: %d left", len(s.Pending))
	}
}

// TestNonSFPublishDiscardedWhileDisconnected confirms a non-SF
// subscription drops publishes sent while disconnected instead of
// queuing them.
func TestNonSFPublishDiscardedWhileDisconnected(t *testing.T) {
	d := newTestDispatcher()
	s, client := bindSession(t, d, "plain")
	d.registry.Subscribe(s, "temp", false)

	d.handleStreamClosed(streamClosedEvent{conn: s.Stream})
	client.Close()

	d.publishFrame(intFrame("temp", 99))

	if len(s.Pending) != 0 {
		t.Fatalf("pending = %d, want 0 for a non-SF subscription", len(s.Pending))
	}
}

// TestUnsubscribeUnknownTopicIsSilent confirms that unsubscribing from a
// topic the session never joined is a no-op, with no reply sent.
func TestUnsubscribeUnknownTopicIsSilent(t *testing.T) {
	d := newTestDispatcher()
	_, client := bindSession(t, d, "lonely")
	defer client.Close()

	s, _ := d.table.Lookup("lonely")

	// Unsubscribe's reply, if any, would be written synchronously on this
	// goroutine; since handleCommand returns without blocking on a
	// net.Pipe read, no reply was sent for the unknown topic.
	d.handleCommand(commandEvent{conn: s.Stream, line: "unsubscribe nosuchtopic"})

	if len(s.Topics) != 0 {
		t.Fatalf("session should not have gained a subscription from an unsubscribe")
	}
}

// TestSubscribeThenUnsubscribeRoundTrip exercises the subscribe and
// unsubscribe replies together and confirms the registry forgets the
// topic once unsubscribed.
func TestSubscribeThenUnsubscribeRoundTrip(t *testing.T) {
	d := newTestDispatcher()
	s, client := bindSession(t, d, "rt")
	defer client.Close()

	subDone := make(chan wire.PublishFrame, 1)
	go func() { subDone <- readFrame(t, client) }()
	d.handleCommand(commandEvent{conn: s.Stream, line: "subscribe temp 0"})
	if reply := <-subDone; wire.DecodeString(reply.Payload) != wire.ReplySubscribed {
		t.Fatalf("subscribe reply = %q", wire.DecodeString(reply.Payload))
	}

	unsubDone := make(chan wire.PublishFrame, 1)
	go func() { unsubDone <- readFrame(t, client) }()
	d.handleCommand(commandEvent{conn: s.Stream, line: "unsubscribe temp"})
	if reply := <-unsubDone; wire.DecodeString(reply.Payload) != wire.ReplyUnsubscribed {
		t.Fatalf("unsubscribe reply = %q", wire.DecodeString(reply.Payload))
	}

	if len(d.registry.Subscribers("temp")) != 0 {
		t.Fatalf("temp should have no subscribers left")
	}
}
