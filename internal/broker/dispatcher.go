// Package broker implements the broker's event loop: the single
// dispatcher goroutine that owns all session-table, topic-registry, and
// SF-queue mutation, fed by small reader goroutines that only ever
// produce events.
package broker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/nighlabs/sfbroker/internal/config"
	"github.com/nighlabs/sfbroker/internal/netutil"
	"github.com/nighlabs/sfbroker/internal/session"
	"github.com/nighlabs/sfbroker/internal/topic"
	"github.com/nighlabs/sfbroker/internal/wire"
)

// Dispatcher is the broker's event loop. Every method that mutates broker
// state is only ever called from the goroutine executing run; readers
// feed it exclusively through the events channel.
type Dispatcher struct {
	cfg      *config.Config
	table    *session.Table
	registry *topic.Registry

	events chan event

	listener *net.TCPListener
	udpConn  *net.UDPConn

	wg sync.WaitGroup
}

// ioReader is the minimal interface consoleLoop needs, so tests can feed
// it an in-memory reader instead of os.Stdin.
type ioReader interface {
	Read(p []byte) (int, error)
}

func New(cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		table:    session.NewTable(),
		registry: topic.NewRegistry(),
		events:   make(chan event, 256),
	}
}

// ListenAndServe binds the TCP and UDP listeners on addr (both on the
// same port, wildcard address), starts the reader goroutines, and runs
// the dispatch loop until the administrative console sends "exit" or ctx
// is canceled.
func (d *Dispatcher) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := netutil.ListenTCP(addr)
	if err != nil {
		return fmt.Errorf("broker: listen tcp: %w", err)
	}
	d.listener = ln

	udpConn, err := netutil.ListenUDP(addr)
	if err != nil {
		ln.Close()
		return fmt.Errorf("broker: listen udp: %w", err)
	}
	d.udpConn = udpConn

	slog.Info("broker listening", slog.String("addr", addr))

	d.wg.Add(1)
	go d.acceptLoop()

	d.wg.Add(1)
	go d.udpLoop()

	if d.cfg.ConsoleEnabled {
		d.wg.Add(1)
		go d.consoleLoop(os.Stdin)
	}

	return d.run(ctx)
}

// run drains the event channel, handling each event in order; this is
// the broker's single serialization point for all state mutation.
func (d *Dispatcher) run(ctx context.Context) error {
	defer d.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-d.events:
			if !ok {
				return nil
			}
			if d.handle(ev) {
				return nil
			}
		}
	}
}

// handle dispatches a single event and returns true if the broker should
// shut down (the console sent "exit").
func (d *Dispatcher) handle(ev event) bool {
	switch e := ev.(type) {
	case identityEvent:
		d.handleIdentity(e)
	case commandEvent:
		d.handleCommand(e)
	case streamClosedEvent:
		d.handleStreamClosed(e)
	case udpEvent:
		d.handleUDP(e)
	case consoleEvent:
		return d.handleConsole(e)
	}
	return false
}

// shutdown closes every session stream, drops every pending SF frame,
// and releases the listeners.
func (d *Dispatcher) shutdown() {
	if d.listener != nil {
		d.listener.Close()
	}
	if d.udpConn != nil {
		d.udpConn.Close()
	}

	for _, s := range d.table.All() {
		if s.Stream != nil {
			s.Stream.Close()
		}
		s.Pending = nil
	}

	d.waitReaders(d.cfg.ShutdownGrace)

	slog.Info("broker shutting down")
}

// waitReaders waits up to grace for every reader goroutine (accept, UDP,
// console, per-stream) to return after their sockets are closed, so a
// restart doesn't race a reader still mid-Read against the next
// ListenAndServe call. It gives up and returns after grace regardless,
// since a reader blocked past that point has no socket left to wait on.
func (d *Dispatcher) waitReaders(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		slog.Warn("shutdown grace period elapsed with readers still running")
	}
}

// acceptLoop accepts connections and spins up a per-connection reader
// goroutine for each; it never touches broker state directly.
func (d *Dispatcher) acceptLoop() {
	defer d.wg.Done()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			if err := netutil.TuneConn(tcpConn); err != nil {
				slog.Warn("failed to tune accepted connection", slog.Any("error", err))
			}
		}
		d.wg.Add(1)
		go d.streamReader(conn)
	}
}

// streamReader reads the identity announcement, then every subsequent
// control line, translating each into an event for the dispatcher. It
// frames by scanning for '\n' via bufio.Scanner so a peer that
// pipelines several commands into a single write never confuses the
// control-line parser, unlike the original broker's one-line-per-recv
// assumption.
func (d *Dispatcher) streamReader(conn net.Conn) {
	defer d.wg.Done()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), d.cfg.ControlLineMax)

	if !scanner.Scan() {
		conn.Close()
		return
	}
	d.events <- identityEvent{conn: conn, peer: conn.RemoteAddr(), line: scanner.Text()}

	for scanner.Scan() {
		d.events <- commandEvent{conn: conn, line: scanner.Text()}
	}

	d.events <- streamClosedEvent{conn: conn}
}

// udpLoop reads datagrams off the ingest socket and forwards each as a
// udpEvent; malformed datagrams are filtered out later, in handleUDP.
func (d *Dispatcher) udpLoop() {
	defer d.wg.Done()

	// One byte of headroom so an oversized datagram keeps a length that
	// DecodeFrame rejects instead of being truncated to exactly FrameSize.
	buf := make([]byte, wire.FrameSize+1)
	for {
		n, addr, err := d.udpConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		d.events <- udpEvent{data: data, addr: addr}
	}
}

// consoleLoop reads administrative commands line by line.
func (d *Dispatcher) consoleLoop(in ioReader) {
	defer d.wg.Done()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		d.events <- consoleEvent{line: scanner.Text()}
	}
}
