package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventBus(t *testing.T) {
	t.Parallel()
	bus := NewWithMemory(slog.Default())
	var got []string
	bus.Register(events.EventTypeMilestoneReach, func(_ context.Context, e events.Event) error {
		got = append(got, e.Type())
		return nil
	})
	bus.Register(events.EventTypeMilestoneReach, func(context.Context, events.Event) error {
		return errors.New("handler failure stays inside the bus")
	})
	bus.Register(events.EventTypeMilestoneReach, func(context.Context, events.Event) error {
		panic("boom")
	})

	ctx := context.Background()
	require.NoError(t, bus.Emit(ctx, events.MilestoneAttained{Pct: 50}))
	require.NoError(t, bus.Emit(ctx, events.GoalArchived{}))

	assert.Equal(t, []string{events.EventTypeMilestoneReach.String()}, got)
	assert.Len(t, bus.Published(), 2)
	bus.ClearPublished()
	assert.Empty(t, bus.Published())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	in := events.MilestoneAttained{
		FlowEvent: events.NewFlowEvent(uuid.New(), at),
		GoalID:    uuid.New(),
		GoalName:  "Emergency fund",
		Pct:       75,
		Month:     "2026-03",
	}
	raw, err := encodeEnvelope(in)
	require.NoError(t, err)

	out, err := decodeEnvelope(raw)
	require.NoError(t, err)
	decoded, ok := out.(*events.MilestoneAttained)
	require.True(t, ok)
	assert.Equal(t, in.GoalID, decoded.GoalID)
	assert.Equal(t, 75, decoded.Pct)
	assert.Equal(t, in.UserID, decoded.UserID)

	_, err = decodeEnvelope([]byte(`{"type":"Nope","payload":{}}`))
	assert.Error(t, err)
	_, err = decodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestTopicNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "finplan.events.goal.milestoneattained", topicNameFor("finplan.events", events.EventTypeMilestoneReach))
	assert.Equal(t, "p.tracking.monthtracked.dlq", dlqTopicNameFor("p.", events.EventTypeMonthTracked))
	assert.Equal(t, []string{"a:1", "b:2"}, parseBrokers(" a:1, ,b:2"))
}

func TestNewWithKafka_RequiresBrokers(t *testing.T) {
	t.Parallel()
	_, err := NewWithKafka(context.Background(), " ", KafkaEventBusConfig{}, slog.Default())
	assert.Error(t, err)
}
