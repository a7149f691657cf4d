package local_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/eventstream/local"
)

func event(kind string) *eventstream.Event {
	return eventstream.NewEvent(kind, time.Now(), eventstream.Payload{})
}

var _ = Describe("Bus", func() {
	var (
		ctx context.Context
		bus *local.Bus
	)

	BeforeEach(func() {
		ctx = context.Background()
		bus = local.NewBus(2)
	})

	It("delivers events to subscribers in order", func() {
		var got []string
		bus.Subscribe(func(e eventstream.Event) { got = append(got, "a:"+e.EventType) })
		bus.Subscribe(func(e eventstream.Event) { got = append(got, "b:"+e.EventType) })

		Expect(bus.Publish(ctx, event(eventstream.EventTypeSaveSuccess))).To(Succeed())
		Expect(got).To(Equal([]string{"a:save.success", "b:save.success"}))
	})

	It("stops delivering after unsubscribe", func() {
		count := 0
		unsubscribe := bus.Subscribe(func(eventstream.Event) { count++ })
		Expect(bus.Publish(ctx, event(eventstream.EventTypeSaveSuccess))).To(Succeed())
		unsubscribe()
		Expect(bus.Publish(ctx, event(eventstream.EventTypeSaveSuccess))).To(Succeed())
		Expect(count).To(Equal(1))
	})

	It("keeps a bounded history", func() {
		Expect(bus.Publish(ctx, event(eventstream.EventTypeSaveSuccess))).To(Succeed())
		Expect(bus.Publish(ctx, event(eventstream.EventTypeLoadSuccess))).To(Succeed())
		Expect(bus.Publish(ctx, event(eventstream.EventTypeClearSuccess))).To(Succeed())

		recent := bus.Recent(0)
		Expect(recent).To(HaveLen(2))
		Expect(recent[0].EventType).To(Equal(eventstream.EventTypeLoadSuccess))
		Expect(bus.Recent(1)[0].EventType).To(Equal(eventstream.EventTypeClearSuccess))
	})

	It("rejects nil events", func() {
		Expect(bus.Publish(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("discards events after close", func() {
		count := 0
		bus.Subscribe(func(eventstream.Event) { count++ })
		Expect(bus.Close()).To(Succeed())
		Expect(bus.Publish(ctx, event(eventstream.EventTypeSaveSuccess))).To(Succeed())
		Expect(count).To(BeZero())
		Expect(bus.Recent(0)).To(BeEmpty())
	})
})
