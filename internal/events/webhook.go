package events

import (
	"context"

	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/pkg/webhook"
)

// Enqueuer is the part of webhook.Dispatcher the publisher needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, eventType string, payload map[string]any) webhook.Event
}

// WebhookPublisher queues each event on a webhook dispatcher. Delivery
// happens on the dispatcher's schedule (auto or admin flush).
type WebhookPublisher struct {
	Dispatcher Enqueuer
}

func (p WebhookPublisher) Publish(ctx context.Context, sessionID string, evts []state.Event) error {
	for _, e := range evts {
		payload := make(map[string]any, len(e.Data)+2)
		for k, v := range e.Data {
			payload[k] = v
		}
		payload["session_id"] = sessionID
		payload["occurred_at"] = e.At
		p.Dispatcher.Enqueue(ctx, e.Type, payload)
	}
	return nil
}
