// Package relay fans live events out to connected clients. Delivery is
// at-most-once to current subscribers only; persisted notifications are the
// durable path.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/metrics"
)

// Envelope is the frame delivered to subscribers and carried by brokers.
type Envelope struct {
	Event     string          `json:"event"`
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Origin    string          `json:"-"`
}

// Subscriber is one consumer of relay events, usually a WebSocket connection.
type Subscriber struct {
	events chan Envelope
	done   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	channels map[string]struct{}
}

// Events yields delivered envelopes until the subscriber is closed.
func (s *Subscriber) Events() <-chan Envelope { return s.events }

// Done is closed when the hub drops the subscriber.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Channels lists the channels the subscriber currently listens on.
func (s *Subscriber) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	return out
}

// Hub routes published envelopes to local subscribers and, through the
// broker, to hubs in other processes.
type Hub struct {
	origin  string
	buf     int
	broker  Broker
	logg    *logger.Logger
	metrics *metrics.RelayMetrics
	now     func() time.Time

	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

type HubOption func(*Hub)

func WithBroker(b Broker) HubOption {
	return func(h *Hub) {
		if b != nil {
			h.broker = b
		}
	}
}

func WithMetrics(m *metrics.RelayMetrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

func WithClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHub builds a hub. origin identifies this process so brokered copies of
// its own events are not delivered twice; buf sizes each subscriber buffer.
func NewHub(origin string, buf int, logg *logger.Logger, opts ...HubOption) *Hub {
	if buf <= 0 {
		buf = 64
	}
	if logg == nil {
		logg = logger.Nop()
	}
	h := &Hub{
		origin: origin,
		buf:    buf,
		broker: LocalBroker{},
		logg:   logg,
		now:    time.Now,
		subs:   make(map[string]map[*Subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run pumps brokered envelopes from other processes into local delivery
// until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	return h.broker.Run(ctx, func(env Envelope) {
		if env.Origin == h.origin {
			return
		}
		h.deliver(env)
	})
}

// Close stops the broker. Subscribers are closed by their owners.
func (h *Hub) Close() error {
	return h.broker.Close()
}

// Subscribe registers a subscriber on the given channels.
func (h *Hub) Subscribe(channels ...string) *Subscriber {
	sub := &Subscriber{
		events:   make(chan Envelope, h.buf),
		done:     make(chan struct{}),
		channels: make(map[string]struct{}),
	}
	h.metrics.AddConnections(1)
	for _, ch := range channels {
		h.Join(sub, ch)
	}
	return sub
}

// Join adds channel to an existing subscriber. It is a no-op once the
// subscriber is closed.
func (h *Hub) Join(sub *Subscriber, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// done is closed under h.mu, so this check cannot race Unsubscribe.
	select {
	case <-sub.done:
		return
	default:
	}
	set, ok := h.subs[channel]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[channel] = set
	}
	set[sub] = struct{}{}

	sub.mu.Lock()
	sub.channels[channel] = struct{}{}
	sub.mu.Unlock()
}

// Leave removes channel from a subscriber.
func (h *Hub) Leave(sub *Subscriber, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(sub, channel)
}

func (h *Hub) leaveLocked(sub *Subscriber, channel string) {
	if set, ok := h.subs[channel]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, channel)
		}
	}
	sub.mu.Lock()
	delete(sub.channels, channel)
	sub.mu.Unlock()
}

// Unsubscribe removes the subscriber from every channel and closes Done.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	sub.once.Do(func() {
		h.mu.Lock()
		for _, ch := range sub.Channels() {
			h.leaveLocked(sub, ch)
		}
		close(sub.done)
		h.mu.Unlock()
		h.metrics.AddConnections(-1)
	})
}

// Subscribers counts the listeners on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

// Publish delivers event to the channel's current subscribers and forwards it
// to the broker. It never blocks on a slow subscriber.
func (h *Hub) Publish(ctx context.Context, channel, event string, data any) error {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", event, err)
		}
		raw = encoded
	}
	env := Envelope{Event: event, Channel: channel, Data: raw, Timestamp: h.now().UTC(), Origin: h.origin}
	h.metrics.IncPublished(Kind(channel))
	h.deliver(env)
	if err := h.broker.Publish(ctx, env); err != nil {
		h.logg.Warn(h.logg.WithFields(ctx, map[string]any{
			"channel": channel,
			"event":   event,
			"error":   err.Error(),
		}), "relay.broker.publish_failed")
		return err
	}
	return nil
}

func (h *Hub) deliver(env Envelope) {
	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subs[env.Channel]))
	for sub := range h.subs[env.Channel] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.events <- env:
			h.metrics.IncDelivered()
		default:
			h.metrics.IncDropped()
			h.logg.Warn(h.logg.WithFields(context.Background(), map[string]any{
				"channel": env.Channel,
				"event":   env.Event,
			}), "relay.subscriber.dropped")
		}
	}
}
