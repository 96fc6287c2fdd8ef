package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/bus"
	"github.com/aeromx/backend/internal/state"
	"github.com/aeromx/backend/internal/storage/models"
	"github.com/aeromx/backend/pkg/logger"
)

// StateHandler exposes the shared state to the producer surfaces
// (manual upload, draft editor, aircraft picker) and to read-only
// consumers. The advisory core itself never goes through HTTP for
// state; it reads the store directly.
type StateHandler struct {
	store  state.Store
	events *bus.Bus
}

func NewStateHandler(store state.Store, events *bus.Bus) *StateHandler {
	return &StateHandler{store: store, events: events}
}

func (h *StateHandler) GetManuals(c *fiber.Ctx) error {
	manuals := h.store.Manuals(c.Context())
	if manuals == nil {
		manuals = []models.ManualReference{}
	}
	return c.JSON(fiber.Map{"manuals": manuals})
}

func (h *StateHandler) PutManuals(c *fiber.Ctx) error {
	var req struct {
		Manuals []models.ManualReference `json:"manuals"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	for _, m := range req.Manuals {
		if m.Filename == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Every manual needs a filename",
			})
		}
	}

	if err := h.store.SetManuals(c.Context(), req.Manuals); err != nil {
		logger.Error("Failed to write manuals", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to write manuals",
		})
	}

	return c.JSON(fiber.Map{"count": len(req.Manuals)})
}

func (h *StateHandler) GetDraft(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"draft": h.store.Draft(c.Context())})
}

func (h *StateHandler) PutDraft(c *fiber.Ctx) error {
	var draft models.DocumentationDraft
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.store.SetDraft(c.Context(), &draft); err != nil {
		logger.Error("Failed to write draft", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to write draft",
		})
	}

	return c.JSON(fiber.Map{"message": "Draft saved"})
}

func (h *StateHandler) GetAircraft(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"aircraft": h.store.SelectedAircraft(c.Context())})
}

// PutAircraft stores the new selection and publishes aircraft-changed
// so open sessions track it without polling.
func (h *StateHandler) PutAircraft(c *fiber.Ctx) error {
	var aircraft models.SelectedAircraft
	if err := c.BodyParser(&aircraft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if aircraft.Registration == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Registration is required",
		})
	}

	if err := h.store.SetSelectedAircraft(c.Context(), &aircraft); err != nil {
		logger.Error("Failed to write aircraft selection", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to write aircraft selection",
		})
	}

	h.events.Publish(bus.TopicAircraftChanged, &aircraft)

	return c.JSON(fiber.Map{"registration": aircraft.Registration})
}

func (h *StateHandler) GetAssessments(c *fiber.Ctx) error {
	assessments := h.store.Assessments(c.Context())
	if assessments == nil {
		assessments = []models.AiAssessment{}
	}
	return c.JSON(fiber.Map{"assessments": assessments})
}
