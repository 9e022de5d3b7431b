package server

import (
	"atelier/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetActiveSpace handles GET /api/session/active-space
// @Summary Get the active space
// @Description Resolve the caller's active space: the stored selection if still accessible, else the default space, else the first accessible one. Returns a null space when the caller has none.
// @Tags session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{space=models.Tenant}
// @Router /session/active-space [get]
func (s *Server) GetActiveSpace(c *fiber.Ctx) error {
	tenant, err := s.tenantService.ResolveActive(c.Context(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"space": tenant})
}

// SelectActiveSpace handles PUT /api/session/active-space
// @Summary Select the active space
// @Description Persist the caller's active space selection and stamp the membership's last access time
// @Tags session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{space_id=int} true "Space to activate"
// @Success 200 {object} object{space=models.Tenant}
// @Failure 403 {object} models.ErrorResponse
// @Router /session/active-space [put]
func (s *Server) SelectActiveSpace(c *fiber.Ctx) error {
	var req struct {
		SpaceID uint `json:"space_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.SpaceID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewMissingFieldError("space_id"))
	}

	tenant, err := s.tenantService.SelectActive(c.Context(), currentUserID(c), req.SpaceID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"space": tenant})
}
