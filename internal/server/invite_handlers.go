package server

import (
	"atelier/internal/models"
	"atelier/internal/permission"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// InviteMember handles POST /api/spaces/:id/invites
// @Summary Invite a member by email
// @Description Invite an address into the space. Registered users are attached immediately; unknown addresses receive a one-time passcode by mail. The permission field is the stored form of the tier: edit for admin, view for member.
// @Tags invites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param request body object{email=string,tier=string,permission=string,callback_url=string} true "Invitation"
// @Success 200 {object} service.InviteResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /spaces/{id}/invites [post]
func (s *Server) InviteMember(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Email       string          `json:"email"`
		Tier        permission.Tier `json:"tier"`
		Permission  string          `json:"permission"`
		CallbackURL string          `json:"callback_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	callback := req.CallbackURL
	if callback == "" {
		callback = s.config.InviteCallback
	}

	result, err := s.inviteService.Invite(c.Context(), service.InviteInput{
		TenantID:    id,
		InviterID:   currentUserID(c),
		Email:       req.Email,
		Tier:        req.Tier,
		Permission:  req.Permission,
		CallbackURL: callback,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}
