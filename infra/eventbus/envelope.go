package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/amirasaad/finplan/pkg/eventbus"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEnvelope(event events.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	env, err := json.Marshal(envelope{Type: event.Type(), Payload: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return env, nil
}

// decodeEnvelope rebuilds the concrete event named by the envelope.
func decodeEnvelope(raw []byte) (events.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	constructor, ok := events.EventTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return evt, nil
}

// executeHandlers runs handlers in order and reports whether all succeeded.
func executeHandlers(
	ctx context.Context,
	logger *slog.Logger,
	eventType events.EventType,
	evt events.Event,
	handlers []eventbus.HandlerFunc,
	messageID string,
) bool {
	ok := true
	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					ok = false
					logger.Error("handler panic recovered", "event_type", eventType, "message_id", messageID, "panic", r)
				}
			}()
			if err := handler(ctx, evt); err != nil {
				ok = false
				logger.Error("handler error", "event_type", eventType, "message_id", messageID, "error", err)
			}
		}()
	}
	return ok
}
