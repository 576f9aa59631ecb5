// Package topic implements the broker's subscription registry: the
// authoritative mapping from topic name to the set of sessions
// interested in it.
package topic

import "github.com/nighlabs/sfbroker/internal/session"

// Registry holds, per topic, the ordered set of subscribed sessions. The
// per-(session, topic) SF flag lives on the session side
// (session.Session.Topics) so a session's subscription set and its SF
// flags stay in sync through Subscribe/Unsubscribe alone.
type Registry struct {
	subscribers map[string][]*session.Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subscribers: make(map[string][]*session.Session)}
}

// Subscribe adds s to topic's subscriber set if it isn't already
// present. It is idempotent with respect to topic membership: a second
// subscribe to an already-held topic is a no-op and does not update the
// stored SF flag. It returns whether the subscription was newly added.
func (r *Registry) Subscribe(s *session.Session, topic string, sf bool) bool {
	if _, already := s.Topics[topic]; already {
		return false
	}

	s.Topics[topic] = sf
	r.subscribers[topic] = append(r.subscribers[topic], s)
	return true
}

// Unsubscribe removes s from topic's subscriber set and removes topic
// from s.Topics. It is a no-op if s was not subscribed to topic. It
// returns whether a subscription was actually removed, so the
// dispatcher can decide whether to send a reply.
func (r *Registry) Unsubscribe(s *session.Session, topic string) bool {
	if _, ok := s.Topics[topic]; !ok {
		return false
	}
	delete(s.Topics, topic)

	subs := r.subscribers[topic]
	for i, candidate := range subs {
		if candidate == s {
			r.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subscribers[topic]) == 0 {
		delete(r.subscribers, topic)
	}
	return true
}

// Subscribers returns a stable snapshot of topic's current subscriber
// set. The returned slice is a copy so the
// caller's fan-out iteration is unaffected by any (un)subscribe that
// happens afterward; without it, Unsubscribe compacting the stored slice
// in place would shift the entries under a caller still holding it.
func (r *Registry) Subscribers(topic string) []*session.Session {
	subs := r.subscribers[topic]
	if len(subs) == 0 {
		return nil
	}
	snapshot := make([]*session.Session, len(subs))
	copy(snapshot, subs)
	return snapshot
}
