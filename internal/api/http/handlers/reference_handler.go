package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ReferenceHandler serves categories and the reference-data reload.
type ReferenceHandler struct {
	reference *service.ReferenceService
}

// NewReferenceHandler constructs handler.
func NewReferenceHandler(reference *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{reference: reference}
}

// ListCategories GET /api/categories.
func (h *ReferenceHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.reference.ActiveCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCategoryResponses(categories)})
}

// Reload POST /api/reference/reload.
func (h *ReferenceHandler) Reload(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	snapshot, err := h.reference.Reload(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snapshot})
}
