package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/finplan/pkg/domain/events"
	"github.com/amirasaad/finplan/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// RedisEventBus publishes events to a Redis stream and consumes them through
// a consumer group. Messages whose handlers fail are copied to "<stream>-DLQ".
type RedisEventBus struct {
	client redis.UniversalClient
	stream string
	group  string
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType][]eventbus.HandlerFunc
	started  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithRedis creates a Redis Streams event bus over client.
func NewWithRedis(
	ctx context.Context,
	client redis.UniversalClient,
	stream, group string,
	logger *slog.Logger,
) (*RedisEventBus, error) {
	if client == nil || stream == "" || group == "" {
		return nil, fmt.Errorf("redis event bus: client, stream and group are required")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("redis event bus: create group: %w", err)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:   client,
		stream:   stream,
		group:    group,
		logger:   logger.With("bus", "redis", "stream", stream),
		handlers: make(map[events.EventType][]eventbus.HandlerFunc),
		ctx:      runCtx,
		cancel:   cancel,
	}, nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Emit appends the event to the stream.
func (b *RedisEventBus) Emit(ctx context.Context, event events.Event) error {
	env, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("redis event bus: %w", err)
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": string(env)},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", event.Type())
	return nil
}

// Register adds a handler. The first registration starts the consumer.
func (b *RedisEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	start := !b.started
	b.started = true
	b.mu.Unlock()

	if start {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.consume(fmt.Sprintf("consumer-%d", time.Now().UnixNano()))
		}()
	}
}

// Close stops the consumer.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return nil
}

func (b *RedisEventBus) consume(consumer string) {
	for {
		if b.ctx.Err() != nil {
			return
		}
		res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: consumer,
			Streams:  []string{b.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || b.ctx.Err() != nil {
				continue
			}
			b.logger.Error("error reading from stream", "error", err, "consumer", consumer)
			time.Sleep(time.Second)
			continue
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				b.handleMessage(msg)
			}
		}
	}
}

func (b *RedisEventBus) handleMessage(msg redis.XMessage) {
	defer func() {
		if err := b.client.XAck(b.ctx, b.stream, b.group, msg.ID).Err(); err != nil {
			b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
		}
	}()

	raw, ok := msg.Values["event"].(string)
	if !ok {
		return
	}
	evt, err := decodeEnvelope([]byte(raw))
	if err != nil {
		b.logger.Error("dropping undecodable message", "error", err, "msg_id", msg.ID)
		b.pushToDLQ(msg.Values)
		return
	}
	eventType := events.EventType(evt.Type())
	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[eventType]...)
	b.mu.RUnlock()
	if !executeHandlers(b.ctx, b.logger, eventType, evt, handlers, msg.ID) {
		b.pushToDLQ(msg.Values)
	}
}

func (b *RedisEventBus) pushToDLQ(values map[string]any) {
	dlq := b.stream + "-DLQ"
	if err := b.client.XAdd(b.ctx, &redis.XAddArgs{Stream: dlq, Values: values}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlq)
		return
	}
	b.logger.Warn("event pushed to DLQ", "stream", dlq)
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
