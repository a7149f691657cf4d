package eventscmder_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	eventscmder "github.com/papercomputeco/keepsake/cmd/keepsake/events"
	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/sse"
)

var _ = Describe("Stream", func() {
	var (
		server *httptest.Server
		query  chan string
	)

	BeforeEach(func() {
		query = make(chan string, 1)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/events/stream" {
				http.NotFound(w, r)
				return
			}
			query <- r.URL.RawQuery

			w.Header().Set("Content-Type", "text/event-stream")
			now := time.Now()
			for _, e := range []*eventstream.Event{
				eventstream.NewEvent(eventstream.EventTypeSaveSuccess, now, eventstream.Payload{SizeBytes: 512}),
				eventstream.NewEvent(eventstream.EventTypeLoadError, now, eventstream.Payload{Error: "No saved data"}),
			} {
				data, _ := json.Marshal(e)
				_ = sse.Write(w, sse.Event{ID: e.EventID, Type: e.EventType, Data: string(data)})
			}
			_ = sse.Comment(w, "keep-alive")
		}))
		DeferCleanup(server.Close)
	})

	It("decodes every event and sends the stream options", func() {
		var got []eventstream.Event
		err := eventscmder.Stream(context.Background(), server.Client(), server.URL, eventscmder.StreamOptions{Replay: 5, Count: 2}, func(e eventstream.Event) error {
			got = append(got, e)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(<-query).To(Equal("count=2&replay=5"))
		Expect(got).To(HaveLen(2))
		Expect(got[0].EventType).To(Equal(eventstream.EventTypeSaveSuccess))
		Expect(got[0].Payload.SizeBytes).To(Equal(512))
		Expect(got[1].Payload.Error).To(Equal("No saved data"))
	})

	It("stops at the first callback error", func() {
		stopErr := errors.New("enough")
		calls := 0
		err := eventscmder.Stream(context.Background(), server.Client(), server.URL, eventscmder.StreamOptions{}, func(eventstream.Event) error {
			calls++
			return stopErr
		})
		Expect(err).To(MatchError(stopErr))
		Expect(calls).To(Equal(1))
	})

	It("reports a non-200 response", func() {
		err := eventscmder.Stream(context.Background(), server.Client(), server.URL+"/missing", eventscmder.StreamOptions{}, func(eventstream.Event) error {
			return nil
		})
		Expect(err).To(MatchError(ContainSubstring("404")))
	})
})
