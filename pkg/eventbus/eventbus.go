package eventbus

import (
	"context"

	"github.com/amirasaad/finplan/pkg/domain/events"
)

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, e events.Event) error

// Bus publishes events to registered handlers. Delivery semantics depend on
// the transport: the memory bus calls handlers inline, Redis and Kafka
// deliver asynchronously and at least once.
type Bus interface {
	Emit(ctx context.Context, event events.Event) error
	Register(eventType events.EventType, handler HandlerFunc)
}
