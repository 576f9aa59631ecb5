package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// IntPayload is payload type 0: a sign byte plus a 4-byte magnitude
type IntPayload struct {
	Negative  bool
	Magnitude uint32
}

// Render formats the value as `[-]<magnitude>`.
func (p IntPayload) Render() string {
	if p.Negative {
		return "-" + strconv.FormatUint(uint64(p.Magnitude), 10)
	}
	return strconv.FormatUint(uint64(p.Magnitude), 10)
}

// EncodeInt packs an IntPayload into a PublishFrame payload area.
func EncodeInt(p IntPayload) [PayloadSize]byte {
	var buf [PayloadSize]byte
	if p.Negative {
		buf[0] = 1
	}
	binary.BigEndian.PutUint32(buf[1:5], p.Magnitude)
	return buf
}

// DecodeInt reads an IntPayload from a PublishFrame payload area.
func DecodeInt(b [PayloadSize]byte) IntPayload {
	return IntPayload{
		Negative:  b[0] != 0,
		Magnitude: binary.BigEndian.Uint32(b[1:5]),
	}
}

// ShortRealPayload is payload type 1: an unsigned 2-byte fixed-point
// value with an implied two decimal digits.
type ShortRealPayload struct {
	Value uint16
}

// Render formats the value as V/100 with exactly two fractional digits,
// inserting the decimal point two characters before the end of the
// decimal magnitude string (zero-padding first when necessary).
func (p ShortRealPayload) Render() string {
	digits := strconv.FormatUint(uint64(p.Value), 10)
	for len(digits) < 3 {
		digits = "0" + digits
	}
	cut := len(digits) - 2
	return digits[:cut] + "." + digits[cut:]
}

// EncodeShortReal packs a ShortRealPayload into a PublishFrame payload area.
func EncodeShortReal(p ShortRealPayload) [PayloadSize]byte {
	var buf [PayloadSize]byte
	binary.BigEndian.PutUint16(buf[0:2], p.Value)
	return buf
}

// DecodeShortReal reads a ShortRealPayload from a PublishFrame payload area.
func DecodeShortReal(b [PayloadSize]byte) ShortRealPayload {
	return ShortRealPayload{Value: binary.BigEndian.Uint16(b[0:2])}
}

// FloatPayload is payload type 2: sign, magnitude, and a power-of-ten
// exponent, representing (-1)^sign * magnitude * 10^-power.
type FloatPayload struct {
	Negative  bool
	Magnitude uint32
	Power     byte
}

// Render formats the magnitude as decimal digits, places the decimal
// point so the Power least-significant digits are fractional, appends
// ".00" when Power is zero, and left-pads with zeros when Power exceeds
// the digit count.
func (p FloatPayload) Render() string {
	digits := strconv.FormatUint(uint64(p.Magnitude), 10)
	sign := ""
	if p.Negative {
		sign = "-"
	}

	if p.Power == 0 {
		return sign + digits + ".00"
	}

	for len(digits) <= int(p.Power) {
		digits = "0" + digits
	}
	cut := len(digits) - int(p.Power)
	return sign + digits[:cut] + "." + digits[cut:]
}

// EncodeFloat packs a FloatPayload into a PublishFrame payload area.
func EncodeFloat(p FloatPayload) [PayloadSize]byte {
	var buf [PayloadSize]byte
	if p.Negative {
		buf[0] = 1
	}
	binary.BigEndian.PutUint32(buf[1:5], p.Magnitude)
	buf[5] = p.Power
	return buf
}

// DecodeFloat reads a FloatPayload from a PublishFrame payload area.
func DecodeFloat(b [PayloadSize]byte) FloatPayload {
	return FloatPayload{
		Negative:  b[0] != 0,
		Magnitude: binary.BigEndian.Uint32(b[1:5]),
		Power:     b[5],
	}
}

// EncodeString packs a NUL-terminated ASCII string into a PublishFrame
// payload area, used for both STRING (type 3) and REPLY (type 4)
// payloads.
func EncodeString(s string) ([PayloadSize]byte, error) {
	var buf [PayloadSize]byte
	if len(s) >= PayloadSize {
		return buf, fmt.Errorf("wire: string payload %d bytes exceeds %d", len(s), PayloadSize-1)
	}
	copy(buf[:], s)
	buf[len(s)] = 0
	return buf, nil
}

// DecodeString reads a NUL-terminated ASCII string from a PublishFrame
// payload area.
func DecodeString(b [PayloadSize]byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b[:])
}
