// Command subscriber is a thin reference client: it announces an
// identity, forwards whatever control lines it reads from stdin to the
// broker verbatim, and renders every publish frame it receives on
// stdout. Rendering and the exit on ERRSAMEID follow the original
// subscriber.cpp render loop; the client does not reconnect.
package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/nighlabs/sfbroker/internal/netutil"
	"github.com/nighlabs/sfbroker/internal/wire"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <identity> <server_ip> <server_port>\n", os.Args[0])
		os.Exit(1)
	}
	identity := os.Args[1]
	addr := net.JoinHostPort(os.Args[2], os.Args[3])

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := netutil.TuneConn(tcpConn); err != nil {
			fmt.Fprintf(os.Stderr, "tune connection: %v\n", err)
		}
	}

	if _, err := fmt.Fprintf(conn, "%s\n", identity); err != nil {
		fmt.Fprintf(os.Stderr, "send identity: %v\n", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go renderLoop(conn, done)
	go forwardStdin(conn)

	<-done
}

// forwardStdin relays each line typed at the console straight to the
// broker as a control command, the same subscribe/unsubscribe grammar
// the dispatcher expects. "exit" ends the client without sending
// anything.
func forwardStdin(conn net.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "exit" {
			conn.Close()
			return
		}
		if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
			return
		}
	}
}

// renderLoop reads fixed-size publish frames off conn and prints each
// one as "<origin> - <topic> - <TYPE> - <rendered value>", closing done
// on EOF, read error, or receipt of the ERRSAMEID reply.
func renderLoop(conn net.Conn, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, wire.FrameSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}

		frame, err := wire.DecodeFrame(buf)
		if err != nil {
			continue
		}

		if frame.Type == wire.TypeReply {
			reply := wire.DecodeString(frame.Payload)
			if reply == wire.ReplyErrSameID {
				fmt.Fprintln(os.Stderr, "ERRSAMEID: another session is already using this identity")
				return
			}
			fmt.Print(reply)
			continue
		}

		fmt.Printf("%s - %s - %s - %s\n", origin(frame.Origin), frame.Topic, frame.Type, render(frame))
	}
}

func render(f wire.PublishFrame) string {
	switch f.Type {
	case wire.TypeInt:
		return wire.DecodeInt(f.Payload).Render()
	case wire.TypeShortReal:
		return wire.DecodeShortReal(f.Payload).Render()
	case wire.TypeFloat:
		return wire.DecodeFloat(f.Payload).Render()
	case wire.TypeString:
		return wire.DecodeString(f.Payload)
	default:
		return ""
	}
}

func origin(o wire.OriginAddr) string {
	ip := net.IPv4(o.IP[0], o.IP[1], o.IP[2], o.IP[3])
	return fmt.Sprintf("%s:%d", ip.String(), o.Port)
}
