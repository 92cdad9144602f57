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
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// KafkaEventBusConfig holds configuration for the Kafka event bus.
type KafkaEventBusConfig struct {
	GroupID      string
	TopicPrefix  string
	SASLUsername string
	SASLPassword string
}

// KafkaEventBus publishes each event type to its own topic and consumes
// registered types through a consumer group.
type KafkaEventBus struct {
	brokers []string
	writer  *kafka.Writer
	dialer  *kafka.Dialer
	config  KafkaEventBusConfig
	logger  *slog.Logger

	handlersMtx sync.RWMutex
	handlers    map[events.EventType][]eventbus.HandlerFunc

	readersMtx sync.Mutex
	readers    map[events.EventType]*kafka.Reader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithKafka creates a new Kafka-backed event bus.
// brokers is a comma-separated list (e.g. "localhost:9092,localhost:9093").
func NewWithKafka(
	ctx context.Context,
	brokers string,
	config KafkaEventBusConfig,
	logger *slog.Logger,
) (*KafkaEventBus, error) {
	parsed := parseBrokers(brokers)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if config.GroupID == "" {
		config.GroupID = "finplan"
	}
	if strings.TrimSpace(config.TopicPrefix) == "" {
		config.TopicPrefix = "finplan.events"
	}

	dialer := &kafka.Dialer{Timeout: 5 * time.Second}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(parsed...),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
	}
	if config.SASLUsername != "" || config.SASLPassword != "" {
		if config.SASLUsername == "" || config.SASLPassword == "" {
			return nil, fmt.Errorf("kafka event bus: sasl username and password are required")
		}
		mechanism := plain.Mechanism{Username: config.SASLUsername, Password: config.SASLPassword}
		dialer.SASLMechanism = mechanism
		writer.Transport = &kafka.Transport{SASL: mechanism}
	}

	conn, err := dialer.DialContext(ctx, "tcp", parsed[0])
	if err != nil {
		return nil, fmt.Errorf("kafka event bus: connection failed: %w", err)
	}
	_ = conn.Close()

	runCtx, cancel := context.WithCancel(context.Background())
	logger.Info("Kafka event bus initialized", "group_id", config.GroupID, "brokers", parsed)
	return &KafkaEventBus{
		brokers:  parsed,
		writer:   writer,
		dialer:   dialer,
		config:   config,
		logger:   logger.With("bus", "kafka"),
		handlers: make(map[events.EventType][]eventbus.HandlerFunc),
		readers:  make(map[events.EventType]*kafka.Reader),
		ctx:      runCtx,
		cancel:   cancel,
	}, nil
}

// Emit publishes the event to its type topic, keyed by user.
func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	env, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("kafka event bus: %w", err)
	}
	msg := kafka.Message{
		Topic: topicNameFor(b.config.TopicPrefix, events.EventType(event.Type())),
		Key:   []byte(event.Type()),
		Value: env,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: publish failed: %w", err)
	}
	return nil
}

// Register adds a handler and starts a reader for the type if needed.
func (b *KafkaEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.handlersMtx.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.handlersMtx.Unlock()

	b.readersMtx.Lock()
	defer b.readersMtx.Unlock()
	if _, ok := b.readers[eventType]; ok {
		return
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.config.GroupID,
		Topic:       topicNameFor(b.config.TopicPrefix, eventType),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		Dialer:      b.dialer,
	})
	b.readers[eventType] = reader
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consumeLoop(eventType, reader)
	}()
}

// Close stops readers and flushes the writer.
func (b *KafkaEventBus) Close() error {
	b.cancel()
	b.readersMtx.Lock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.readersMtx.Unlock()
	b.wg.Wait()
	return b.writer.Close()
}

func (b *KafkaEventBus) consumeLoop(eventType events.EventType, reader *kafka.Reader) {
	for {
		msg, err := reader.FetchMessage(b.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || b.ctx.Err() != nil {
				return
			}
			b.logger.Error("kafka consume error", "error", err, "event_type", eventType)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		b.process(eventType, msg)
		if err := reader.CommitMessages(b.ctx, msg); err != nil {
			b.logger.Error("kafka commit error", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

func (b *KafkaEventBus) process(eventType events.EventType, msg kafka.Message) {
	evt, err := decodeEnvelope(msg.Value)
	if err != nil {
		b.logger.Error("dropping undecodable message", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		return
	}
	b.handlersMtx.RLock()
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[eventType]...)
	b.handlersMtx.RUnlock()

	if executeHandlers(b.ctx, b.logger, eventType, evt, handlers, fmt.Sprintf("%d", msg.Offset)) {
		return
	}
	dlq := kafka.Message{
		Topic: dlqTopicNameFor(b.config.TopicPrefix, eventType),
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(b.ctx, dlq); err != nil {
		b.logger.Error("kafka dlq publish failed", "error", err, "event_type", eventType)
		return
	}
	b.logger.Warn("message sent to DLQ", "event_type", eventType, "dlq_topic", dlq.Topic)
}

func parseBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// topicNameFor maps "Goal.MilestoneAttained" to "<prefix>.goal.milestoneattained".
func topicNameFor(prefix string, eventType events.EventType) string {
	return strings.TrimSuffix(prefix, ".") + "." + strings.ToLower(eventType.String())
}

func dlqTopicNameFor(prefix string, eventType events.EventType) string {
	return topicNameFor(prefix, eventType) + ".dlq"
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)
