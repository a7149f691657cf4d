// Package kafka publishes events to a Kafka topic. Writes go through a
// circuit breaker so an unreachable cluster fails fast instead of stalling
// every save.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/logger"
)

// DefaultTopic is used when Config.Topic is empty.
const DefaultTopic = "keepsake.events"

// Writer is the subset of the kafka-go writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Publisher.
type Config struct {
	Brokers []string
	Topic   string

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Defaults to 3.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open. Defaults to 30s.
	OpenTimeout time.Duration

	Logger *slog.Logger
}

// Publisher writes JSON encoded events keyed by event type.
type Publisher struct {
	writer  Writer
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewPublisher creates a Publisher writing to the configured brokers.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return NewPublisherWithWriter(w, c), nil
}

// NewPublisherWithWriter creates a Publisher on top of an existing writer.
func NewPublisherWithWriter(w Writer, c Config) *Publisher {
	log := logger.OrNop(c.Logger)

	threshold := c.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	timeout := c.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-events",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("event stream breaker changed state", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Publisher{writer: w, breaker: breaker, logger: log}
}

// Publish writes event to the topic. While the breaker is open it returns
// gobreaker.ErrOpenState without touching the writer.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.Event) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.writer.WriteMessages(ctx, kafkago.Message{
			Key:   []byte(event.EventType),
			Value: value,
			Time:  event.EmittedAt,
		})
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", event.EventType, err)
	}
	return nil
}

// State reports the breaker state.
func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
