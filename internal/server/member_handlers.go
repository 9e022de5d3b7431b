package server

import (
	"atelier/internal/models"
	"atelier/internal/permission"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListMembers handles GET /api/spaces/:id/members
// @Summary List space members
// @Description List the member directory with profiles and roles. A member whose profile cannot be resolved carries a null profile instead of failing the listing.
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Success 200 {array} models.MemberEntry
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/members [get]
func (s *Server) ListMembers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	entries, err := s.membershipService.List(c.Context(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(entries)
}

// AddMember handles POST /api/spaces/:id/members
// @Summary Add a member
// @Description Attach an existing user to the space. Owner and admin tiers only.
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param request body object{user_id=int,tier=string} true "Member to add"
// @Success 201 {object} models.TenantMembership
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /spaces/{id}/members [post]
func (s *Server) AddMember(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		UserID uint            `json:"user_id"`
		Tier   permission.Tier `json:"tier"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.UserID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewMissingFieldError("user_id"))
	}

	m, err := s.membershipService.Add(c.Context(), service.AddMemberInput{
		TenantID: id,
		ActorID:  currentUserID(c),
		UserID:   req.UserID,
		Tier:     req.Tier,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// SetMemberRoles handles PUT /api/spaces/:id/members/:memberId/roles
// @Summary Replace a member's roles
// @Description Replace the member's catalog roles wholesale. Repeating the same set is a no-op.
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param memberId path int true "Membership ID"
// @Param request body object{role_ids=[]int} true "Role IDs"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/members/{memberId}/roles [put]
func (s *Server) SetMemberRoles(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID, err := s.parseID(c, "memberId")
	if err != nil {
		return nil
	}

	var req struct {
		RoleIDs []uint `json:"role_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.membershipService.SetRoles(c.Context(), id, currentUserID(c), memberID, req.RoleIDs); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Roles updated"})
}

// SetMemberTier handles PUT /api/spaces/:id/members/:memberId/tier
// @Summary Change a member's tier
// @Description Change a member's access tier. Owner only; the owner's own membership cannot be demoted.
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param memberId path int true "Membership ID"
// @Param request body object{tier=string} true "New tier"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/members/{memberId}/tier [put]
func (s *Server) SetMemberTier(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID, err := s.parseID(c, "memberId")
	if err != nil {
		return nil
	}

	var req struct {
		Tier permission.Tier `json:"tier"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.membershipService.UpdateTier(c.Context(), id, currentUserID(c), memberID, req.Tier); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tier updated"})
}

// RemoveMember handles DELETE /api/spaces/:id/members/:memberId
// @Summary Remove a member
// @Description Detach a member from the space. Members may remove themselves; the owner's membership is permanent.
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param memberId path int true "Membership ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/members/{memberId} [delete]
func (s *Server) RemoveMember(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID, err := s.parseID(c, "memberId")
	if err != nil {
		return nil
	}

	if err := s.membershipService.Remove(c.Context(), id, currentUserID(c), memberID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Member removed"})
}
