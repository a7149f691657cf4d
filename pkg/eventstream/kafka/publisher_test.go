package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/eventstream/kafka"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	calls    int
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		ctx    context.Context
		writer *fakeWriter
		pub    *kafka.Publisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		writer = &fakeWriter{}
		pub = kafka.NewPublisherWithWriter(writer, kafka.Config{FailureThreshold: 2, OpenTimeout: time.Hour})
	})

	It("writes JSON events keyed by type", func() {
		event := eventstream.NewEvent(eventstream.EventTypeSaveSuccess, time.Now(), eventstream.Payload{SizeBytes: 42})
		Expect(pub.Publish(ctx, event)).To(Succeed())

		Expect(writer.messages).To(HaveLen(1))
		Expect(string(writer.messages[0].Key)).To(Equal(eventstream.EventTypeSaveSuccess))

		var got eventstream.Event
		Expect(json.Unmarshal(writer.messages[0].Value, &got)).To(Succeed())
		Expect(got.EventID).To(Equal(event.EventID))
		Expect(got.Payload.SizeBytes).To(Equal(42))
	})

	It("opens the breaker after consecutive failures", func() {
		writer.err = errors.New("broker down")
		event := eventstream.NewEvent(eventstream.EventTypeSaveError, time.Now(), eventstream.Payload{})

		Expect(pub.Publish(ctx, event)).To(MatchError(ContainSubstring("broker down")))
		Expect(pub.Publish(ctx, event)).To(HaveOccurred())
		Expect(pub.State()).To(Equal(gobreaker.StateOpen))

		err := pub.Publish(ctx, event)
		Expect(errors.Is(err, gobreaker.ErrOpenState)).To(BeTrue())
		Expect(writer.calls).To(Equal(2))
	})

	It("rejects nil events", func() {
		Expect(pub.Publish(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})

	It("requires brokers", func() {
		_, err := kafka.NewPublisher(kafka.Config{})
		Expect(err).To(HaveOccurred())
	})

	Context("against a live cluster", func() {
		It("publishes an event", func() {
			brokers := os.Getenv("KEEPSAKE_TEST_KAFKA_BROKERS")
			if brokers == "" {
				Skip("KEEPSAKE_TEST_KAFKA_BROKERS not set")
			}

			live, err := kafka.NewPublisher(kafka.Config{Brokers: strings.Split(brokers, ","), Topic: "keepsake.test"})
			Expect(err).NotTo(HaveOccurred())
			defer live.Close()

			event := eventstream.NewEvent(eventstream.EventTypeClearSuccess, time.Now(), eventstream.Payload{})
			Expect(live.Publish(ctx, event)).To(Succeed())
		})
	})
})
