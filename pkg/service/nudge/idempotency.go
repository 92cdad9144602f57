package nudge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/amirasaad/finplan/pkg/eventbus"
	"golang.org/x/sync/singleflight"
)

// KeyFunc derives the delivery key of an event. An empty key disables the
// duplicate check for that event.
type KeyFunc func(events.Event) string

// Tracker remembers which nudges were already sent.
type Tracker struct {
	sent     sync.Map
	inflight singleflight.Group
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Seen reports whether key was already handled successfully.
func (t *Tracker) Seen(key string) bool {
	_, ok := t.sent.Load(key)
	return ok
}

// Once wraps handler so that each key is handled at most once. Concurrent
// deliveries of the same key share one attempt; a failed attempt leaves the
// key unmarked so a redelivery retries it.
func Once(handler eventbus.HandlerFunc, tracker *Tracker, key KeyFunc, logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		k := key(e)
		if k == "" {
			return handler(ctx, e)
		}
		if tracker.Seen(k) {
			logger.DebugContext(ctx, "duplicate delivery skipped", "event_type", e.Type(), "key", k)
			return nil
		}
		_, err, _ := tracker.inflight.Do(k, func() (any, error) {
			if tracker.Seen(k) {
				return nil, nil
			}
			if err := handler(ctx, e); err != nil {
				return nil, err
			}
			tracker.sent.Store(k, struct{}{})
			return nil, nil
		})
		return err
	}
}

// DeliveryKey identifies an event by what it announces rather than by its
// envelope id, so a replayed month does not nudge twice for one milestone.
func DeliveryKey(e events.Event) string {
	switch ev := e.(type) {
	case events.MilestoneAttained:
		return fmt.Sprintf("milestone:%s:%d", ev.GoalID, ev.Pct)
	case *events.MilestoneAttained:
		return fmt.Sprintf("milestone:%s:%d", ev.GoalID, ev.Pct)
	case events.GoalCompleted:
		return "completed:" + ev.GoalID.String()
	case *events.GoalCompleted:
		return "completed:" + ev.GoalID.String()
	case events.CommitmentAccepted:
		return "commitment:" + ev.ID.String()
	case *events.CommitmentAccepted:
		return "commitment:" + ev.ID.String()
	}
	return ""
}
