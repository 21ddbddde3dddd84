// Package router is the in-process publish/subscribe hub. Every node —
// host-side workers, each serial device, each websocket peer — registers a
// Mailbox and is assigned a stable address. One Poll per loop tick drains
// all outbound queues and redistributes frames by destination address or
// by topic subscription.
package router

import (
	"log/slog"

	"github.com/sdfgeoff/slambot/internal/logging"
	"github.com/sdfgeoff/slambot/internal/message"
	"github.com/sdfgeoff/slambot/internal/metrics"
)

// TopicAll subscribes a mailbox to every topic-routed frame.
const TopicAll = "all"

// Router assigns addresses and moves frames between mailboxes. Addresses
// start at 1 and are never reused within a process, so a frame's From
// field is a durable identifier for the session.
//
// Not safe for concurrent use; Poll runs on the owner's loop.
type Router struct {
	clients  map[uint16]*Mailbox
	nextAddr uint16
	log      *slog.Logger
}

// New creates an empty router.
func New() *Router {
	return &Router{clients: make(map[uint16]*Mailbox), log: logging.L()}
}

// Register assigns the next address to mb and returns it. The caller keeps
// ownership of the mailbox; the router only observes its liveness.
func (r *Router) Register(mb *Mailbox) uint16 {
	r.nextAddr++
	r.clients[r.nextAddr] = mb
	r.log.Debug("router_register", "addr", r.nextAddr)
	return r.nextAddr
}

// Count returns the number of registered (possibly dead) mailboxes.
func (r *Router) Count() int { return len(r.clients) }

// Poll runs one distribution tick:
//
//  1. reap mailboxes whose owner closed them,
//  2. index current subscriptions by topic,
//  3. drain every outbound queue, stamping From with the owner's address,
//  4. resolve each frame to its destinations (address beats topic; the
//     "all" topic is a wildcard; no-destination frames are dropped),
//  5. deliver the collected batches.
//
// Frames from one sender keep their relative order per destination within
// a tick. SubscriptionRequest frames are never forwarded.
func (r *Router) Poll() {
	for addr, mb := range r.clients {
		if !mb.Alive() {
			delete(r.clients, addr)
			r.log.Info("router_client_gone", "addr", addr)
		}
	}
	metrics.SetRouterClients(len(r.clients))

	byTopic := make(map[string][]uint16)
	for addr, mb := range r.clients {
		for _, t := range mb.Subscriptions() {
			byTopic[t] = append(byTopic[t], addr)
		}
	}

	var pending []*message.Envelope
	for addr, mb := range r.clients {
		for _, env := range mb.drainOut() {
			from := addr
			env.From = &from
			pending = append(pending, env)
		}
	}

	batches := make(map[uint16][]*message.Envelope)
	for _, env := range pending {
		if env.Data == nil || env.Data.Topic() == message.TopicSubscriptionRequest {
			continue
		}
		if env.To != nil {
			if _, ok := r.clients[*env.To]; ok {
				batches[*env.To] = append(batches[*env.To], env)
				metrics.ObserveRoute(1)
			}
			continue
		}
		topic := env.Data.Topic()
		seen := make(map[uint16]struct{})
		var dests []uint16
		for _, addr := range byTopic[TopicAll] {
			seen[addr] = struct{}{}
			dests = append(dests, addr)
		}
		for _, addr := range byTopic[topic] {
			if _, dup := seen[addr]; !dup {
				dests = append(dests, addr)
			}
		}
		if len(dests) == 0 {
			metrics.IncRouterDropped()
			continue
		}
		metrics.ObserveRoute(len(dests))
		for _, addr := range dests {
			batches[addr] = append(batches[addr], env)
		}
	}

	for addr, batch := range batches {
		r.clients[addr].deliver(batch)
	}
}
