package realtime

import (
	"github.com/google/uuid"

	"github.com/vovakirdan/socialhub-client/internal/proto"
)

// subscription is a page-scoped observer of raw envelopes.
type subscription struct {
	pred func(proto.Envelope) bool
	fn   func(proto.Envelope)
}

// Subscribe registers an observer for every inbound envelope matching pred.
// A nil pred matches everything. Observers survive reconnects; they are
// read-only and must not block. The returned function removes the
// subscription and is safe to call more than once.
//
// This replaces reaching into the raw transport: views with a narrow concern
// (one open chat thread, the public room) filter here instead.
func (m *Manager) Subscribe(pred func(proto.Envelope) bool, fn func(proto.Envelope)) (unsubscribe func()) {
	id := uuid.NewString()

	m.mu.Lock()
	m.subs[id] = subscription{pred: pred, fn: fn}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// SubscribeType is a convenience for observers interested in one frame type.
func (m *Manager) SubscribeType(msgType string, fn func(proto.Envelope)) (unsubscribe func()) {
	return m.Subscribe(func(env proto.Envelope) bool {
		return env.Type == msgType
	}, fn)
}

func (m *Manager) notifySubscribers(env proto.Envelope) {
	m.mu.Lock()
	matched := make([]func(proto.Envelope), 0, len(m.subs))
	for _, sub := range m.subs {
		if sub.pred == nil || sub.pred(env) {
			matched = append(matched, sub.fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range matched {
		fn(env)
	}
}
