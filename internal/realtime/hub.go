// Package realtime fans change events out to live subscribers.
package realtime

import (
	"sync"
)

// Event types delivered to subscribers.
const (
	EventSnapshot = "snapshot"
	EventPending  = "pending"
	EventProgress = "progress"
)

// Event is one message on a topic.
type Event struct {
	Topic    string `json:"topic"`
	Type     string `json:"type"`
	Revision uint64 `json:"revision"`
	Payload  any    `json:"payload"`
}

const defaultBuffer = 8

// Hub keeps topic-keyed subscriptions. Publishing never blocks: when a
// subscriber's buffer is full its oldest event is discarded, which is safe
// because every snapshot fully replaces the previous one.
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]map[*Subscription]struct{}
	revision map[string]uint64
	buffer   int
	onChange func(topic string, subscribers int)
}

// NewHub creates a hub. onChange, if non-nil, observes subscriber counts.
func NewHub(onChange func(topic string, subscribers int)) *Hub {
	return &Hub{
		topics:   make(map[string]map[*Subscription]struct{}),
		revision: make(map[string]uint64),
		buffer:   defaultBuffer,
		onChange: onChange,
	}
}

// Subscription receives events for a single topic until closed.
type Subscription struct {
	hub   *Hub
	topic string
	ch    chan Event
	mu    sync.Mutex
	done  bool
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// Events returns the receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Deliver pushes ev to this subscription only.
func (s *Subscription) Deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	for {
		select {
		case s.ch <- ev:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Subscribe registers a subscription on topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{hub: h, topic: topic, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	count := len(subs)
	h.mu.Unlock()

	h.changed(topic, count)
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	subs := h.topics[sub.topic]
	_, present := subs[sub]
	if present {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	count := len(subs)
	h.mu.Unlock()

	sub.mu.Lock()
	if !sub.done {
		sub.done = true
		close(sub.ch)
	}
	sub.mu.Unlock()

	if present {
		h.changed(sub.topic, count)
	}
}

// NextRevision returns a monotonically increasing revision for topic.
func (h *Hub) NextRevision(topic string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.revision[topic]++
	return h.revision[topic]
}

// Publish delivers ev to every subscriber of ev.Topic.
func (h *Hub) Publish(ev Event) int {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.topics[ev.Topic]))
	for sub := range h.topics[ev.Topic] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.Deliver(ev)
	}
	return len(subs)
}

// Subscribers returns the number of live subscriptions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) changed(topic string, count int) {
	if h.onChange != nil {
		h.onChange(topic, count)
	}
}
