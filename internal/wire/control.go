package wire

import (
	"fmt"
	"strings"
)

// IdentityMax is the maximum length, in octets, of an announced identity
// before the control-line delimiter.
const IdentityMax = 10

// CommandKind tags the two control-line commands a bound session can
// send. Identity announcement is parsed separately via
// ParseIdentity since it is only legal as the first line on a stream.
type CommandKind int

const (
	CmdSubscribe CommandKind = iota
	CmdUnsubscribe
)

// Command is a parsed subscribe/unsubscribe control line.
type Command struct {
	Kind  CommandKind
	Topic string
	SF    bool
}

// ParseIdentity validates the first control line read on a new stream as
// an identity announcement: a non-empty token of at most IdentityMax
// bytes, with no embedded whitespace.
func ParseIdentity(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) != 1 {
		return "", fmt.Errorf("wire: identity line must be exactly one token, got %d", len(fields))
	}
	id := fields[0]
	if len(id) == 0 || len(id) > IdentityMax {
		return "", fmt.Errorf("wire: identity length %d not in [1,%d]", len(id), IdentityMax)
	}
	return id, nil
}

// ParseCommand parses a subscribe/unsubscribe control line. It returns
// ok=false for anything that doesn't match exactly one of the two
// recognized grammars; malformed control commands are silently ignored
// by the dispatcher, not replied to.
func ParseCommand(line string) (cmd Command, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false
	}

	switch fields[0] {
	case "subscribe":
		if len(fields) != 3 {
			return Command{}, false
		}
		switch fields[2] {
		case "0":
			return Command{Kind: CmdSubscribe, Topic: fields[1], SF: false}, true
		case "1":
			return Command{Kind: CmdSubscribe, Topic: fields[1], SF: true}, true
		default:
			return Command{}, false
		}
	case "unsubscribe":
		if len(fields) != 2 {
			return Command{}, false
		}
		return Command{Kind: CmdUnsubscribe, Topic: fields[1]}, true
	default:
		return Command{}, false
	}
}

// Broker reply text, sent verbatim as REPLY payloads (newline included
// where the original protocol terminates the line itself).
const (
	ReplySubscribed   = "Subscribed to topic.\n"
	ReplyUnsubscribed = "Unsubscribed from topic.\n"
	ReplyErrSameID    = "ERRSAMEID"
)

// ConsoleExit is the only recognized administrative console command.
const ConsoleExit = "exit"
