package api

import (
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/keepsake/pkg/eventstream"
	"github.com/papercomputeco/keepsake/pkg/sse"
)

const (
	defaultKeepAlive = 15 * time.Second
	streamBuffer     = 32
)

// handleEventStream follows the event bus as text/event-stream.
//
// ?replay=N first sends the N most recent events from history. ?count=N ends
// the stream after N events; without it the stream runs until the client
// goes away or the server shuts down.
func (s *Server) handleEventStream(c *fiber.Ctx) error {
	replay, err := queryCount(c, "replay")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	count, err := queryCount(c, "count")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// io.Pipe gives per-event flushing; fasthttp closes the reader when the
	// client disconnects, which fails the next write.
	pr, pw := io.Pipe()
	go s.streamEvents(pw, replay, count)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) streamEvents(pw *io.PipeWriter, replay, count int) {
	defer pw.Close()

	ch := make(chan eventstream.Event, streamBuffer)
	unsubscribe := s.config.Events.Subscribe(func(e eventstream.Event) {
		select {
		case ch <- e:
		default:
			s.logger.Warn("event stream subscriber lagging, dropping event",
				"event_type", e.EventType,
				"event_id", e.EventID,
			)
		}
	})
	defer unsubscribe()

	sent := 0
	send := func(e eventstream.Event) bool {
		data, err := json.Marshal(e)
		if err != nil {
			s.logger.Error("encoding stream event", "error", err)
			return true
		}
		if err := sse.Write(pw, sse.Event{ID: e.EventID, Type: e.EventType, Data: string(data)}); err != nil {
			s.logger.Debug("event stream closed", "error", err)
			return false
		}
		sent++
		return count == 0 || sent < count
	}

	replayed := make(map[string]struct{})
	if replay > 0 {
		for _, e := range s.config.Events.Recent(replay) {
			replayed[e.EventID] = struct{}{}
			if !send(e) {
				return
			}
		}
	}

	keepAlive := s.config.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case e := <-ch:
			if _, ok := replayed[e.EventID]; ok {
				continue
			}
			if !send(e) {
				return
			}
		case <-ticker.C:
			if err := sse.Comment(pw, "keep-alive"); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func queryCount(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" must be a non-negative integer")
	}
	return n, nil
}
