package wire

import (
	"testing"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	payload := EncodeInt(IntPayload{Negative: false, Magnitude: 42})
	origin := NewOriginAddr([4]byte{10, 0, 0, 1}, 5000)

	want := PublishFrame{Topic: "temp", Type: TypeInt, Payload: payload, Origin: origin}

	encoded, err := EncodeFrame(want)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if len(encoded) != FrameSize {
		t.Fatalf("encoded length = %d, want %d", len(encoded), FrameSize)
	}

	got, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodeFrameRejectsWrongLength(t *testing.T) {
	_, err := DecodeFrame(make([]byte, FrameSize-1))
	if err == nil {
		t.Fatal("expected error for short frame")
	}
	var mf *MalformedFrame
	if !asMalformed(err, &mf) {
		t.Fatalf("expected *MalformedFrame, got %T", err)
	}
}

func TestDecodeFrameRejectsBadPayloadType(t *testing.T) {
	buf := make([]byte, FrameSize)
	buf[TopicSize] = 5 // only 0..4 are valid

	_, err := DecodeFrame(buf)
	if err == nil {
		t.Fatal("expected error for invalid payload_type")
	}
}

func TestEncodeFrameRejectsOversizedTopic(t *testing.T) {
	longTopic := make([]byte, TopicSize)
	for i := range longTopic {
		longTopic[i] = 'a'
	}

	_, err := EncodeFrame(PublishFrame{Topic: string(longTopic), Type: TypeString})
	if err == nil {
		t.Fatal("expected error for oversized topic")
	}
}

func TestDecodeFrameTopicStopsAtNUL(t *testing.T) {
	frame := PublishFrame{Topic: "alerts", Type: TypeString}
	encoded, err := EncodeFrame(frame)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	got, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got.Topic != "alerts" {
		t.Fatalf("topic = %q, want %q", got.Topic, "alerts")
	}
}

func TestOriginAddrRoundTrip(t *testing.T) {
	want := NewOriginAddr([4]byte{127, 0, 0, 1}, 9001)
	frame := PublishFrame{Topic: "t", Type: TypeString, Origin: want}

	encoded, err := EncodeFrame(frame)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	got, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got.Origin != want {
		t.Fatalf("origin = %+v, want %+v", got.Origin, want)
	}
}

// asMalformed is a tiny typed-error helper; the stdlib errors.As would
// work equally well but this keeps the test dependency-free.
func asMalformed(err error, target **MalformedFrame) bool {
	mf, ok := err.(*MalformedFrame)
	if !ok {
		return false
	}
	*target = mf
	return true
}
