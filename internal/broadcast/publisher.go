// Package broadcast carries change notifications out of the services: to the
// live product feed over Redis pub/sub and, when configured, to Kafka for
// anything downstream. Services receive a Publisher; they never reach for a
// process-wide channel.
package broadcast

import (
	"context"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventProductCreated EventType = "product.created"
	EventProductUpdated EventType = "product.updated"
	EventProductDeleted EventType = "product.deleted"
	EventCartUpdated    EventType = "cart.updated"
)

// Event names a change that already persisted. ID is the hex identifier of
// the record that changed, empty for bulk operations.
type Event struct {
	Type EventType `json:"type"`
	ID   string    `json:"id,omitempty"`
}

type Publisher interface {
	Changed(ctx context.Context, e Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Changed(context.Context, Event) error { return nil }

type fanout struct {
	publishers []Publisher
}

// Fanout delivers each event to every publisher. A failing publisher is
// logged and does not stop delivery to the rest.
func Fanout(publishers ...Publisher) Publisher {
	return &fanout{publishers: publishers}
}

func (f *fanout) Changed(ctx context.Context, e Event) error {
	for _, p := range f.publishers {
		if err := p.Changed(ctx, e); err != nil {
			logrus.WithError(err).WithField("event", e.Type).Warn("broadcast publish failed")
		}
	}
	return nil
}
