package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/advisory"
	"github.com/aeromx/backend/internal/bus"
	"github.com/aeromx/backend/internal/storage/sqlite"
	"github.com/aeromx/backend/pkg/logger"
)

type AdvisoryHandler struct {
	svc     *advisory.Service
	events  *bus.Bus
	archive *sqlite.Client
}

func NewAdvisoryHandler(svc *advisory.Service, events *bus.Bus, archive *sqlite.Client) *AdvisoryHandler {
	return &AdvisoryHandler{
		svc:     svc,
		events:  events,
		archive: archive,
	}
}

// HandleQuery runs a one-shot advisory exchange outside any session.
func (h *AdvisoryHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Query   string `json:"query"`
		Context string `json:"context"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	result := h.svc.Respond(c.Context(), advisory.Request{
		Query:    req.Query,
		Context:  req.Context,
		Trigger:  "http",
		UseCache: true,
	})

	return c.JSON(fiber.Map{
		"reply":  result.Reply,
		"alerts": result.Alerts,
	})
}

// OpenSession publishes the open-session trigger so any open advisory
// panel picks it up pre-filled.
func (h *AdvisoryHandler) OpenSession(c *fiber.Ctx) error {
	var req bus.OpenSessionRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	h.events.Publish(bus.TopicOpenSession, req)

	return c.JSON(fiber.Map{
		"message": "Open-session event published",
	})
}

// GetHistory returns the archived advisory exchanges, newest first.
func (h *AdvisoryHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	exchanges, err := h.archive.GetHistory(limit)
	if err != nil {
		logger.Error("Failed to read advisory history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read advisory history",
		})
	}

	return c.JSON(fiber.Map{
		"history": exchanges,
	})
}

// GetAlerts returns archived predictive alerts, optionally filtered by
// aircraft registration.
func (h *AdvisoryHandler) GetAlerts(c *fiber.Ctx) error {
	registration := c.Query("registration")
	limit := c.QueryInt("limit", 50)

	alerts, err := h.archive.GetAlerts(registration, limit)
	if err != nil {
		logger.Error("Failed to read alerts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read alerts",
		})
	}

	return c.JSON(fiber.Map{
		"alerts": alerts,
	})
}
