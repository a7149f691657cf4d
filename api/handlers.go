package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/keepsake/pkg/project"
	"github.com/papercomputeco/keepsake/pkg/scene"
)

const defaultEventLimit = 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HasDataResponse reports whether a loadable record exists.
type HasDataResponse struct {
	HasData bool `json:"hasData"`
}

// ClearResponse reports the outcome of DELETE /project.
type ClearResponse struct {
	Success bool `json:"success"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleHasSavedData(c *fiber.Ctx) error {
	return c.JSON(HasDataResponse{HasData: s.orch.HasSavedData(c.Context())})
}

func (s *Server) handleStorageInfo(c *fiber.Ctx) error {
	info, err := s.orch.StorageInfo(c.Context())
	if err != nil {
		s.logger.Error("reading storage info", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read storage info"})
	}
	return c.JSON(info)
}

// handleSave captures the live diagram and writes it to the store.
// Rejections (a save already running) answer 409; failures answer 500 with
// the result body so the caller still sees the error text.
func (s *Server) handleSave(c *fiber.Ctx) error {
	result := s.orch.SaveProject(c.Context())
	switch {
	case result.Success:
		return c.JSON(result)
	case result.Reason != "":
		return c.Status(fiber.StatusConflict).JSON(result)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(result)
	}
}

func (s *Server) handleLoad(c *fiber.Ctx) error {
	result := s.orch.LoadProject(c.Context())
	switch {
	case result.Success:
		return c.JSON(result)
	case result.Reason == project.ReasonNoSavedData:
		return c.Status(fiber.StatusNotFound).JSON(result)
	case result.Reason != "":
		return c.Status(fiber.StatusConflict).JSON(result)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(result)
	}
}

func (s *Server) handleClear(c *fiber.Ctx) error {
	ok := s.orch.ClearSavedData(c.Context())
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(ClearResponse{Success: false})
	}
	return c.JSON(ClearResponse{Success: true})
}

// handleGetDiagram serializes the live primary document.
func (s *Server) handleGetDiagram(c *fiber.Ctx) error {
	text, err := s.orch.Workspace().Engine.SerializeDocument(c.Context())
	if err != nil {
		if errors.Is(err, scene.ErrNoContent) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no diagram loaded"})
		}
		s.logger.Error("serializing diagram", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to serialize diagram"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	return c.SendString(text)
}

// handlePutDiagram replaces the live diagram with the request body.
func (s *Server) handlePutDiagram(c *fiber.Ctx) error {
	body := string(c.Body())
	if body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "document body required"})
	}

	if err := s.orch.Workspace().Engine.ImportDocument(c.Context(), body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleEvents returns the most recent operation events, newest last.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = n
	}

	return c.JSON(s.config.Events.Recent(limit))
}
