// Package eventstest records the events logged by a component under test.
package eventstest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/luca-patrignani/tec/events"
)

// Event is a recorded log record.
type Event struct {
	Level   slog.Level
	ID      events.ID
	Message string
}

// Handler is a slog.Handler keeping every record in memory.
type Handler struct {
	mu     *sync.Mutex
	events *[]Event
}

// NewLogger returns a logger writing to a fresh Handler.
func NewLogger() (*slog.Logger, *Handler) {
	h := &Handler{mu: &sync.Mutex{}, events: &[]Event{}}
	return slog.New(h), h
}

func (h *Handler) Enabled(context.Context, slog.Level) bool { return true }

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	e := Event{Level: r.Level, Message: r.Message, ID: events.Reserved}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == events.Key {
			e.ID = events.ID(a.Value.Int64())
			return false
		}
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.events = append(*h.events, e)
	return nil
}

func (h *Handler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *Handler) WithGroup(string) slog.Handler { return h }

// Events returns a copy of the recorded events.
func (h *Handler) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), *h.events...)
}

// Count returns how many events with id were recorded at level.
func (h *Handler) Count(level slog.Level, id events.ID) int {
	n := 0
	for _, e := range h.Events() {
		if e.Level == level && e.ID == id {
			n++
		}
	}
	return n
}

// Reset forgets the recorded events.
func (h *Handler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.events = nil
}
