package handlers

import (
	"arvo/internal/repositories"
	"arvo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type RequiredActionsHandler struct {
	actions repositories.RequiredActionRepository
}

func NewRequiredActionsHandler(actions repositories.RequiredActionRepository) *RequiredActionsHandler {
	return &RequiredActionsHandler{actions: actions}
}

// List returns the caller's outstanding onboarding steps.
func (h *RequiredActionsHandler) List(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	pending, err := h.actions.ListPending(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to list required actions")
	}

	return utils.Success(c, fiber.Map{"required_actions": pending})
}
