package topic

import (
	"testing"

	"github.com/nighlabs/sfbroker/internal/session"
)

func newTestSession(identity string) *session.Session {
	tbl := session.NewTable()
	s, _ := tbl.Bind(identity, nil, nil)
	return s
}

func TestSubscribeAddsToTopicAndSession(t *testing.T) {
	r := NewRegistry()
	s := newTestSession("a")

	added := r.Subscribe(s, "temp", false)
	if !added {
		t.Fatal("expected first subscribe to report added=true")
	}

	subs := r.Subscribers("temp")
	if len(subs) != 1 || subs[0] != s {
		t.Fatalf("subscribers = %+v", subs)
	}
	if sf, ok := s.Topics["temp"]; !ok || sf {
		t.Fatalf("session.Topics[temp] = %v, %v", sf, ok)
	}
}

// TestSubscribeIsIdempotent confirms a second subscribe to an
// already-held topic is a no-op and must not change the stored SF flag.
func TestSubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := newTestSession("a")

	r.Subscribe(s, "temp", false)
	added := r.Subscribe(s, "temp", true)

	if added {
		t.Fatal("second subscribe should report added=false")
	}
	if sf := s.Topics["temp"]; sf {
		t.Fatal("second subscribe must not change the stored SF flag")
	}
	if len(r.Subscribers("temp")) != 1 {
		t.Fatal("session should not be duplicated in the topic's subscriber set")
	}
}

func TestUnsubscribeRemovesMembership(t *testing.T) {
	r := NewRegistry()
	s := newTestSession("a")
	r.Subscribe(s, "temp", false)

	removed := r.Unsubscribe(s, "temp")
	if !removed {
		t.Fatal("expected removed=true")
	}
	if len(r.Subscribers("temp")) != 0 {
		t.Fatal("topic should have no subscribers after unsubscribe")
	}
	if _, ok := s.Topics["temp"]; ok {
		t.Fatal("session should no longer hold the topic")
	}
}

func TestUnsubscribeUnknownTopicIsNoop(t *testing.T) {
	r := NewRegistry()
	s := newTestSession("a")

	removed := r.Unsubscribe(s, "never-subscribed")
	if removed {
		t.Fatal("expected removed=false for a topic never subscribed to")
	}
}

func TestSubscribersReturnsIndependentSnapshot(t *testing.T) {
	r := NewRegistry()
	s1 := newTestSession("a")
	s2 := newTestSession("b")
	r.Subscribe(s1, "t", false)

	snapshot := r.Subscribers("t")
	r.Subscribe(s2, "t", false)

	if len(snapshot) != 1 {
		t.Fatalf("snapshot should be unaffected by a later subscribe, got %d entries", len(snapshot))
	}
}

func TestMultipleSessionsOnATopic(t *testing.T) {
	r := NewRegistry()
	s1 := newTestSession("a")
	s2 := newTestSession("b")
	r.Subscribe(s1, "t", false)
	r.Subscribe(s2, "t", true)

	subs := r.Subscribers("t")
	if len(subs) != 2 {
		t.Fatalf("len(subs) = %d, want 2", len(subs))
	}
}

func TestUnsubscribeOneLeavesOthersIntact(t *testing.T) {
	r := NewRegistry()
	s1 := newTestSession("a")
	s2 := newTestSession("b")
	r.Subscribe(s1, "t", false)
	r.Subscribe(s2, "t", false)

	r.Unsubscribe(s1, "t")

	subs := r.Subscribers("t")
	if len(subs) != 1 || subs[0] != s2 {
		t.Fatalf("subscribers = %+v, want only s2", subs)
	}
}
