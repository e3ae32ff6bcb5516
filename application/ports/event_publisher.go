package ports

import (
	"context"

	"github.com/CivicGraph/demo-server/domain/events"
)

// EventPublisher announces completed session changes to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}
