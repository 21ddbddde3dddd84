package router

import (
	"sort"
	"sync"

	"github.com/sdfgeoff/slambot/internal/message"
)

// Mailbox is a node's attachment point to the router: an owned outbound
// queue, an inbound queue of shared envelopes, and a subscription set.
//
// The node owns its mailbox; the router keeps a handle and observes
// Close on its next poll, after which it never touches the mailbox again.
// Inbound envelopes are shared pointers — a frame fanned out to N
// subscribers is delivered N times without copying, so receivers must
// treat envelopes as read-only.
type Mailbox struct {
	mu     sync.Mutex
	out    []*message.Envelope
	in     []*message.Envelope
	subs   map[string]struct{}
	closed bool
}

// NewMailbox returns an open mailbox with no subscriptions.
func NewMailbox() *Mailbox {
	return &Mailbox{subs: make(map[string]struct{})}
}

// Send queues an envelope for the router to collect on its next poll.
func (m *Mailbox) Send(env *message.Envelope) {
	m.mu.Lock()
	m.out = append(m.out, env)
	m.mu.Unlock()
}

// FetchAll drains and returns the inbound queue.
func (m *Mailbox) FetchAll() []*message.Envelope {
	m.mu.Lock()
	in := m.in
	m.in = nil
	m.mu.Unlock()
	return in
}

// Subscribe adds topics to the subscription set.
func (m *Mailbox) Subscribe(topics ...string) {
	m.mu.Lock()
	for _, t := range topics {
		m.subs[t] = struct{}{}
	}
	m.mu.Unlock()
}

// SetSubscriptions replaces the subscription set wholesale and reports
// whether it changed.
func (m *Mailbox) SetSubscriptions(topics []string) bool {
	next := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		next[t] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(next) == len(m.subs) {
		same := true
		for t := range next {
			if _, ok := m.subs[t]; !ok {
				same = false
				break
			}
		}
		if same {
			return false
		}
	}
	m.subs = next
	return true
}

// Subscriptions returns a sorted copy of the subscription set.
func (m *Mailbox) Subscriptions() []string {
	m.mu.Lock()
	topics := make([]string, 0, len(m.subs))
	for t := range m.subs {
		topics = append(topics, t)
	}
	m.mu.Unlock()
	sort.Strings(topics)
	return topics
}

// Close tears the mailbox down; the router reclaims its address on the
// next poll. Idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.out = nil
	m.in = nil
	m.mu.Unlock()
}

// Alive reports whether the mailbox is still open.
func (m *Mailbox) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// drainOut empties the outbound queue (router side).
func (m *Mailbox) drainOut() []*message.Envelope {
	m.mu.Lock()
	out := m.out
	m.out = nil
	m.mu.Unlock()
	return out
}

// deliver appends a routed batch to the inbound queue (router side).
func (m *Mailbox) deliver(batch []*message.Envelope) {
	m.mu.Lock()
	if !m.closed {
		m.in = append(m.in, batch...)
	}
	m.mu.Unlock()
}
