package server

import (
	"strings"

	"atelier/internal/models"
	"atelier/internal/permission"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListSpaces handles GET /api/spaces
// @Summary List my spaces
// @Description List every space the caller owns or belongs to, ordered for display
// @Tags spaces
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Tenant
// @Router /spaces [get]
func (s *Server) ListSpaces(c *fiber.Ctx) error {
	tenants, err := s.tenantService.ListMine(c.Context(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tenants)
}

// CreateSpace handles POST /api/spaces
// @Summary Create a space
// @Description Create a space with a freshly minted short code; the caller becomes its owner
// @Tags spaces
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{names=object} true "Locale-keyed display names"
// @Success 201 {object} models.Tenant
// @Failure 400 {object} models.ErrorResponse
// @Router /spaces [post]
func (s *Server) CreateSpace(c *fiber.Ctx) error {
	var req struct {
		Names models.LocaleNames `json:"names"`
		Name  string             `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	// Single-name shorthand for clients that do not localize.
	if len(req.Names) == 0 && strings.TrimSpace(req.Name) != "" {
		req.Names = models.LocaleNames{"en": strings.TrimSpace(req.Name)}
	}

	tenant, err := s.tenantService.CreateTenant(c.Context(), service.CreateTenantInput{
		OwnerUserID: currentUserID(c),
		Names:       req.Names,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tenant)
}

// GetSpace handles GET /api/spaces/:id
// @Summary Get a space
// @Tags spaces
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Success 200 {object} models.Tenant
// @Failure 404 {object} models.ErrorResponse
// @Router /spaces/{id} [get]
func (s *Server) GetSpace(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	tenant, err := s.tenantRepo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tenant)
}

// GetSpaceByCode handles GET /api/spaces/code/:code
// @Summary Look up a space by short code
// @Description Resolve a space from its public short code. Lookup is case-insensitive.
// @Tags spaces
// @Produce json
// @Param code path string true "Public short code"
// @Success 200 {object} models.Tenant
// @Failure 404 {object} models.ErrorResponse
// @Router /spaces/code/{code} [get]
func (s *Server) GetSpaceByCode(c *fiber.Ctx) error {
	code := strings.ToUpper(strings.TrimSpace(c.Params("code")))
	if code == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewMissingFieldError("code"))
	}
	tenant, err := s.tenantService.GetByCode(c.Context(), code)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tenant)
}

// UpdateSpace handles PUT /api/spaces/:id
// @Summary Update a space's display names
// @Description Replace the locale-keyed display names. The short code never changes.
// @Tags spaces
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param request body object{names=object} true "Locale-keyed display names"
// @Success 200 {object} models.Tenant
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id} [put]
func (s *Server) UpdateSpace(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Names models.LocaleNames `json:"names"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	tenant, err := s.tenantService.UpdateProfile(c.Context(), service.UpdateTenantInput{
		TenantID: id,
		ActorID:  currentUserID(c),
		Names:    req.Names,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tenant)
}

// DeleteSpace handles DELETE /api/spaces/:id
// @Summary Delete a space
// @Description Delete a space. Owner only.
// @Tags spaces
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id} [delete]
func (s *Server) DeleteSpace(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.tenantService.Delete(c.Context(), id, currentUserID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Space deleted"})
}

// GetPermissionTable handles GET /api/spaces/:id/permissions
// @Summary Get the effective permission table
// @Description Return the resolved capability rows per tier under the space's overlay. The owner row is fixed.
// @Tags permissions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Success 200 {object} object{owner=object,admin=object,member=object}
// @Router /spaces/{id}/permissions [get]
func (s *Server) GetPermissionTable(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	tenant, err := s.tenantRepo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	overlay := tenant.PermissionSettings
	return c.JSON(fiber.Map{
		"owner":  permission.Resolve(permission.TierOwner, overlay),
		"admin":  permission.Resolve(permission.TierAdmin, overlay),
		"member": permission.Resolve(permission.TierMember, overlay),
	})
}

// SetPermissionOverlay handles PUT /api/spaces/:id/permissions
// @Summary Replace the permission overlay
// @Description Replace the admin/member capability rows. A null body restores the defaults; the owner row cannot be changed.
// @Tags permissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param request body permission.Overlay true "Capability overlay"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/permissions [put]
func (s *Server) SetPermissionOverlay(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var overlay *permission.Overlay
	if len(c.Body()) > 0 && string(c.Body()) != "null" {
		overlay = &permission.Overlay{}
		if err := c.BodyParser(overlay); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	if err := s.tenantService.SetPermissionOverlay(c.Context(), id, currentUserID(c), overlay); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Permissions updated"})
}
