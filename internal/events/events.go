// Package events forwards the domain events produced by session transitions
// to outside observers.
package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Eblazecode/Agrolinkernew/internal/state"
)

// Publisher receives the events of one committed transition.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, evts []state.Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, sessionID string, evts []state.Event) error

func (f PublisherFunc) Publish(ctx context.Context, sessionID string, evts []state.Event) error {
	return f(ctx, sessionID, evts)
}

// Nop discards everything.
var Nop Publisher = PublisherFunc(func(context.Context, string, []state.Event) error { return nil })

// LogPublisher writes each event as a debug record.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, sessionID string, evts []state.Event) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, e := range evts {
		logger.DebugContext(ctx, "domain event", "session_id", sessionID, "type", e.Type, "data", e.Data)
	}
	return nil
}

// Fanout publishes to every publisher and joins their errors. A failing
// publisher does not stop the others.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, sessionID string, evts []state.Event) error {
	if len(evts) == 0 {
		return nil
	}
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, sessionID, evts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
