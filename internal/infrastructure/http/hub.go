package http

import (
	"context"
	"errors"
	"sync"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
)

// errClientGone is returned by a stream sink once its request has finished.
var errClientGone = errors.New("client disconnected")

// Notification is pushed to /api/events subscribers.
type Notification struct {
	Type      string                 `json:"type"` // "message" or "reset"
	SessionID string                 `json:"session_id,omitempty"`
	Event     *entities.DisplayEvent `json:"event,omitempty"`
}

// sink receives the events rendered on behalf of one request.
type sink interface {
	deliver(event entities.DisplayEvent) error
}

type sinkKey struct{}

func withSink(ctx context.Context, s sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, s)
}

func sinkFrom(ctx context.Context) sink {
	s, _ := ctx.Value(sinkKey{}).(sink)
	return s
}

// streamSink hands events to the request goroutine one at a time.
type streamSink struct {
	events chan entities.DisplayEvent
	done   chan struct{}
	once   sync.Once
}

func newStreamSink() *streamSink {
	return &streamSink{
		events: make(chan entities.DisplayEvent),
		done:   make(chan struct{}),
	}
}

func (s *streamSink) deliver(event entities.DisplayEvent) error {
	select {
	case s.events <- event:
		return nil
	case <-s.done:
		return errClientGone
	}
}

func (s *streamSink) close() {
	s.once.Do(func() { close(s.done) })
}

// collectSink buffers events for a non-streaming response.
type collectSink struct {
	mu     sync.Mutex
	events []entities.DisplayEvent
}

func (s *collectSink) deliver(event entities.DisplayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *collectSink) collected() []entities.DisplayEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.DisplayEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Hub implements ports.Renderer for the HTTP transport.
// Each event goes to the sink of the request that produced it and is mirrored to every
// /api/events subscriber. Slow subscribers miss notifications rather than stall a reply.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Notification]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Notification]struct{})}
}

// Render implements ports.Renderer.
func (h *Hub) Render(ctx context.Context, event entities.DisplayEvent) error {
	h.broadcast(Notification{Type: "message", Event: &event})
	if s := sinkFrom(ctx); s != nil {
		return s.deliver(event)
	}
	return nil
}

// SessionRestarted tells subscribers to drop the old transcript.
// Its signature matches session.Hook.
func (h *Hub) SessionRestarted(ctx context.Context, sessionID string) error {
	h.broadcast(Notification{Type: "reset", SessionID: sessionID})
	return nil
}

// Subscribe registers a notification channel. The returned func unsubscribes and closes it.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}
