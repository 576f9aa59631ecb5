// Package wire implements the broker's two on-the-wire framings: the
// fixed-layout publish frame exchanged over UDP (publisher -> broker) and
// TCP (broker -> subscriber), and the newline-terminated control line
// subscribers use to announce identity and (un)subscribe.
//
// Every numeric field inside a typed payload is big-endian, matching the
// network byte order the original C broker used when it packed structs
// directly onto the wire.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Field sizes for the publish frame layout.
const (
	TopicSize      = 50
	PayloadSize    = 1500
	OriginAddrSize = 16
	FrameSize      = TopicSize + 1 + PayloadSize + OriginAddrSize // 1567
)

// PayloadType tags the four publish payload kinds plus the broker's own
// reply kind.
type PayloadType byte

const (
	TypeInt       PayloadType = 0
	TypeShortReal PayloadType = 1
	TypeFloat     PayloadType = 2
	TypeString    PayloadType = 3
	TypeReply     PayloadType = 4
)

func (t PayloadType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeShortReal:
		return "SHORT_REAL"
	case TypeFloat:
		return "FLOAT"
	case TypeString:
		return "STRING"
	case TypeReply:
		return "REPLY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(t))
	}
}

func (t PayloadType) valid() bool {
	return t <= TypeReply
}

// MalformedFrame is returned by DecodeFrame when the input cannot be a
// well-formed publish frame.
type MalformedFrame struct {
	Reason string
}

func (e *MalformedFrame) Error() string {
	return "malformed frame: " + e.Reason
}

// OriginAddr is the broker-stamped IPv4 source address of a publish.
// The original protocol embeds a raw C sockaddr_in here; this is an
// explicit field-by-field re-implementation rather than a reinterpreted
// byte blob, which would leak the original C sockaddr_in layout onto
// the wire.
type OriginAddr struct {
	Family uint16
	Port   uint16
	IP     [4]byte
}

// addrFamilyINET mirrors AF_INET; it has no behavioral meaning here since
// this is no longer a real sockaddr_in, only a stable tag for round-tripping.
const addrFamilyINET = 2

// NewOriginAddr builds an OriginAddr from an IPv4 address and port.
func NewOriginAddr(ip [4]byte, port uint16) OriginAddr {
	return OriginAddr{Family: addrFamilyINET, Port: port, IP: ip}
}

func (o OriginAddr) encode() []byte {
	buf := make([]byte, OriginAddrSize)
	binary.BigEndian.PutUint16(buf[0:2], o.Family)
	binary.BigEndian.PutUint16(buf[2:4], o.Port)
	copy(buf[4:8], o.IP[:])
	// buf[8:16] stays zero, mirroring sockaddr_in's sin_zero padding.
	return buf
}

func decodeOriginAddr(b []byte) OriginAddr {
	var o OriginAddr
	o.Family = binary.BigEndian.Uint16(b[0:2])
	o.Port = binary.BigEndian.Uint16(b[2:4])
	copy(o.IP[:], b[4:8])
	return o
}

// PublishFrame is the immutable record fanned out to every subscriber.
type PublishFrame struct {
	Topic   string
	Type    PayloadType
	Payload [PayloadSize]byte
	Origin  OriginAddr
}

// EncodeFrame packs a PublishFrame into its 1567-byte wire form.
func EncodeFrame(f PublishFrame) ([]byte, error) {
	if len(f.Topic) >= TopicSize {
		return nil, fmt.Errorf("wire: topic %q exceeds %d bytes", f.Topic, TopicSize-1)
	}
	if !f.Type.valid() {
		return nil, fmt.Errorf("wire: invalid payload type %d", f.Type)
	}

	buf := make([]byte, FrameSize)
	copy(buf[0:TopicSize], f.Topic)
	buf[TopicSize] = byte(f.Type)
	copy(buf[TopicSize+1:TopicSize+1+PayloadSize], f.Payload[:])
	copy(buf[TopicSize+1+PayloadSize:], f.Origin.encode())
	return buf, nil
}

// DecodeFrame parses a wire-format publish frame. It fails with
// *MalformedFrame if b is the wrong length or the payload type tag is
// out of range.
func DecodeFrame(b []byte) (PublishFrame, error) {
	if len(b) != FrameSize {
		return PublishFrame{}, &MalformedFrame{
			Reason: fmt.Sprintf("expected %d bytes, got %d", FrameSize, len(b)),
		}
	}

	pt := PayloadType(b[TopicSize])
	if !pt.valid() {
		return PublishFrame{}, &MalformedFrame{
			Reason: fmt.Sprintf("payload_type %d not in {0,1,2,3,4}", pt),
		}
	}

	topicEnd := bytes.IndexByte(b[:TopicSize], 0)
	if topicEnd < 0 {
		topicEnd = TopicSize
	}

	var f PublishFrame
	f.Topic = string(b[:topicEnd])
	f.Type = pt
	copy(f.Payload[:], b[TopicSize+1:TopicSize+1+PayloadSize])
	f.Origin = decodeOriginAddr(b[TopicSize+1+PayloadSize:])
	return f, nil
}

// WithOrigin returns a copy of f with its origin address replaced. The
// broker calls this to stamp the UDP datagram's real source address onto
// a decoded frame before fan-out.
func (f PublishFrame) WithOrigin(origin OriginAddr) PublishFrame {
	f.Origin = origin
	return f
}
