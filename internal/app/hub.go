package app

import (
	"context"
	"log/slog"
	"sync"

	"trivia-service/internal/domain"
)

// Hub fans events out to subscribers. Slow subscribers lose their oldest
// pending event rather than blocking publishers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
	buffer      int
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan domain.Event]struct{}), buffer: 8}
}

// Subscribe returns a channel of events. The caller must invoke the returned
// cancel function to avoid leaks.
func (h *Hub) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, h.buffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish implements Notifier.
func (h *Hub) Publish(_ context.Context, event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// MultiNotifier publishes to several sinks in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Publish(ctx context.Context, event domain.Event) {
	for _, n := range m {
		if n != nil {
			n.Publish(ctx, event)
		}
	}
}

// LogNotifier writes every event to a logger.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Publish(ctx context.Context, event domain.Event) {
	logger := n.Log
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event published", "type", event.Type, "at", event.At)
}

type discardNotifier struct{}

func (discardNotifier) Publish(context.Context, domain.Event) {}
