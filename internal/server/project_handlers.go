package server

import (
	"atelier/internal/models"
	"atelier/internal/permission"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListProjects handles GET /api/spaces/:id/projects
// @Summary List a space's projects
// @Description List the space's projects. Legacy rows without a short code are backfilled on read.
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Success 200 {array} models.Project
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/projects [get]
func (s *Server) ListProjects(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	projects, err := s.projectService.List(c.Context(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(projects)
}

// CreateProject handles POST /api/spaces/:id/projects
// @Summary Create a project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Space ID"
// @Param request body object{name=string} true "Project name"
// @Success 201 {object} models.Project
// @Failure 403 {object} models.ErrorResponse
// @Router /spaces/{id}/projects [post]
func (s *Server) CreateProject(c *fiber.Ctx) error {
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

	project, err := s.projectService.Create(c.Context(), service.CreateProjectInput{
		TenantID: id,
		ActorID:  currentUserID(c),
		Name:     req.Name,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// UpdateProject handles PUT /api/projects/:id
// @Summary Rename a project
// @Description Rename a project. The short code never changes once assigned.
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body object{name=string} true "New name"
// @Success 200 {object} models.Project
// @Failure 403 {object} models.ErrorResponse
// @Router /projects/{id} [put]
func (s *Server) UpdateProject(c *fiber.Ctx) error {
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

	project, err := s.projectService.Update(c.Context(), service.UpdateProjectInput{
		ProjectID: id,
		ActorID:   currentUserID(c),
		Name:      req.Name,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(project)
}

// DeleteProject handles DELETE /api/projects/:id
// @Summary Delete a project
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /projects/{id} [delete]
func (s *Server) DeleteProject(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.projectService.Delete(c.Context(), id, currentUserID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Project deleted"})
}

// ListProjectMembers handles GET /api/projects/:id/members
// @Summary List project members
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {array} models.ProjectMemberEntry
// @Failure 403 {object} models.ErrorResponse
// @Router /projects/{id}/members [get]
func (s *Server) ListProjectMembers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	entries, err := s.membershipService.ListProject(c.Context(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(entries)
}

// AddProjectMember handles POST /api/projects/:id/members
// @Summary Add a project member
// @Description Attach a space member to a project. The target must already belong to the space.
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body object{user_id=int,tier=string} true "Member to add"
// @Success 201 {object} models.ProjectMembership
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /projects/{id}/members [post]
func (s *Server) AddProjectMember(c *fiber.Ctx) error {
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

	m, err := s.membershipService.AddProject(c.Context(), service.AddProjectMemberInput{
		ProjectID: id,
		ActorID:   currentUserID(c),
		UserID:    req.UserID,
		Tier:      req.Tier,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// SetProjectMemberTier handles PUT /api/projects/:id/members/:memberId/tier
// @Summary Change a project member's tier
// @Description Change a project member's coarse tier. Owner only.
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param memberId path int true "Project membership ID"
// @Param request body object{tier=string} true "New tier"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /projects/{id}/members/{memberId}/tier [put]
func (s *Server) SetProjectMemberTier(c *fiber.Ctx) error {
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
	if err := c.BodyParser(&req); err != nil || req.Tier == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewMissingFieldError("tier"))
	}

	if err := s.membershipService.UpdateProjectTier(c.Context(), id, currentUserID(c), memberID, req.Tier); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Member updated"})
}

// RemoveProjectMember handles DELETE /api/projects/:id/members/:memberId
// @Summary Remove a project member
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param memberId path int true "Project membership ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /projects/{id}/members/{memberId} [delete]
func (s *Server) RemoveProjectMember(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID, err := s.parseID(c, "memberId")
	if err != nil {
		return nil
	}

	if err := s.membershipService.RemoveProject(c.Context(), id, currentUserID(c), memberID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Member removed"})
}
