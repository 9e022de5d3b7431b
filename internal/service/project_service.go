package service

import (
	"context"
	"strings"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/permission"
	"atelier/internal/repository"
)

// ProjectService manages projects nested under tenants, including lazy code
// backfill for rows created before codes existed.
type ProjectService struct {
	projects    repository.ProjectRepository
	tenants     repository.TenantRepository
	memberships repository.MembershipRepository
}

func NewProjectService(
	projects repository.ProjectRepository,
	tenants repository.TenantRepository,
	memberships repository.MembershipRepository,
) *ProjectService {
	return &ProjectService{projects: projects, tenants: tenants, memberships: memberships}
}

type CreateProjectInput struct {
	TenantID uint
	ActorID  uint
	Name     string
}

// Create mints a project with a fresh code.
func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*models.Project, error) {
	if _, err := requireCapability(ctx, s.tenants, s.memberships, in.TenantID, in.ActorID, permission.CapCreateProject); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewMissingFieldError("name")
	}
	if len(name) > 120 {
		return nil, models.NewValidationError("Project name too long (max 120 characters)")
	}

	code, err := allocateCode(ctx, s.projects.CodeExists)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		TenantID:    in.TenantID,
		OwnerUserID: in.ActorID,
		Name:        name,
		Code:        &code,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	observability.MembershipMutations.WithLabelValues("project", "create").Inc()
	return project, nil
}

// List returns the tenant's projects. Rows without a code predate code
// minting and are backfilled here, on read, so every returned project
// carries one.
func (s *ProjectService) List(ctx context.Context, tenantID, actorID uint) ([]models.Project, error) {
	if _, err := resolveAccess(ctx, s.tenants, s.memberships, tenantID, actorID); err != nil {
		return nil, err
	}

	projects, err := s.projects.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	for i := range projects {
		if projects[i].Code != nil {
			continue
		}
		code, err := allocateCode(ctx, s.projects.CodeExists)
		if err != nil {
			return nil, err
		}
		if err := s.projects.SetCode(ctx, projects[i].ID, code); err != nil {
			// A concurrent reader backfilled the same row; re-read theirs.
			refreshed, rerr := s.projects.GetByID(ctx, projects[i].ID)
			if rerr != nil {
				return nil, err
			}
			projects[i] = *refreshed
			continue
		}
		projects[i].Code = &code
	}

	return projects, nil
}

type UpdateProjectInput struct {
	ProjectID uint
	ActorID   uint
	Name      string
}

// Update renames a project. The code never changes once assigned.
func (s *ProjectService) Update(ctx context.Context, in UpdateProjectInput) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, err := requireCapability(ctx, s.tenants, s.memberships, project.TenantID, in.ActorID, permission.CapEditProject); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewMissingFieldError("name")
	}
	project.Name = name
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes a project.
func (s *ProjectService) Delete(ctx context.Context, projectID, actorID uint) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if _, err := requireCapability(ctx, s.tenants, s.memberships, project.TenantID, actorID, permission.CapDeleteProject); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return err
	}
	observability.MembershipMutations.WithLabelValues("project", "delete").Inc()
	return nil
}
