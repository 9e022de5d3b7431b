package server

import (
	"atelier/internal/models"
	"atelier/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// ListRoles handles GET /api/spaces/:id/roles
// @Summary List the role catalog
// @Description List enabled catalog roles grouped by category. Custom roles are collated under the request locale. Pass all=true for the full catalog including disabled entries.
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param locale query string false "Locale for collation"
// @Param all query bool false "Include disabled entries (flat list)"
// @Success 200 {array} service.CategoryRoles
// @Router /spaces/{id}/roles [get]
func (s *Server) ListRoles(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if c.QueryBool("all") {
		roles, err := s.roleService.ListAll(c.Context(), id, localeOf(c))
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		return c.JSON(roles)
	}

	catalog, err := s.roleService.ListCatalog(c.Context(), id, localeOf(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(catalog)
}

// AddCustomRole handles POST /api/spaces/:id/roles
// @Summary Add a custom role
// @Description Append a custom role to the catalog's custom category
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param request body object{name=string} true "Role name"
// @Success 201 {object} models.Role
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /spaces/{id}/roles [post]
func (s *Server) AddCustomRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	role, err := s.roleService.AddCustom(c.Context(), id, currentUserID(c), req.Name)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(role)
}

// SetRoleEnabled handles PUT /api/spaces/:id/roles/:roleId
// @Summary Enable or disable a catalog role
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param roleId path int true "Role ID"
// @Param request body object{enabled=bool} true "Enabled flag"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/roles/{roleId} [put]
func (s *Server) SetRoleEnabled(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	roleID, err := s.parseID(c, "roleId")
	if err != nil {
		return nil
	}

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewMissingFieldError("enabled"))
	}

	if err := s.roleService.SetEnabled(c.Context(), id, currentUserID(c), roleID, *req.Enabled); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Role updated"})
}

// BulkSetRolesEnabled handles PUT /api/spaces/:id/roles
// @Summary Enable or disable several catalog roles at once
// @Description Apply a batch of enabled toggles in one transaction. A role outside the space fails the whole batch.
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param request body object{updates=[]object{role_id=int,enabled=bool}} true "Enabled toggles"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/roles [put]
func (s *Server) BulkSetRolesEnabled(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Updates []repository.RoleEnabledUpdate `json:"updates"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.roleService.BulkSetEnabled(c.Context(), id, currentUserID(c), req.Updates); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Roles updated"})
}

// DeleteCustomRole handles DELETE /api/spaces/:id/roles/:roleId
// @Summary Delete a custom role
// @Description Delete a role from the custom category. Seeded roles can only be disabled.
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param roleId path int true "Role ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/roles/{roleId} [delete]
func (s *Server) DeleteCustomRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	roleID, err := s.parseID(c, "roleId")
	if err != nil {
		return nil
	}

	if err := s.roleService.RemoveCustom(c.Context(), id, currentUserID(c), roleID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Role deleted"})
}
