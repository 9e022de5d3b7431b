package service

import (
	"context"
	"errors"
	"sort"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/permission"
	"atelier/internal/repository"
	"atelier/internal/validation"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// RoleService manages each tenant's role catalog: the seeded taxonomy plus
// user-defined custom roles. Roles are labels only; they never grant access.
type RoleService struct {
	roles       repository.RoleRepository
	tenants     repository.TenantRepository
	memberships repository.MembershipRepository
}

func NewRoleService(
	roles repository.RoleRepository,
	tenants repository.TenantRepository,
	memberships repository.MembershipRepository,
) *RoleService {
	return &RoleService{roles: roles, tenants: tenants, memberships: memberships}
}

// SeedIfEmpty installs the default taxonomy for a tenant that has no catalog
// yet. Safe to call repeatedly; a concurrent seeder losing the race is
// treated as success.
func (s *RoleService) SeedIfEmpty(ctx context.Context, tenantID uint) error {
	count, err := s.roles.CountByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var batch []models.Role
	order := 0
	for _, cat := range models.DefaultTaxonomy {
		for _, name := range cat.Names {
			batch = append(batch, models.Role{
				TenantID:     tenantID,
				Category:     cat.Category,
				Name:         name,
				Enabled:      true,
				DisplayOrder: order,
			})
			order++
		}
	}

	if err := s.roles.BulkCreate(ctx, batch); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeDuplicate {
			return nil
		}
		return err
	}
	return nil
}

// CategoryRoles is one catalog category with its ordered entries.
type CategoryRoles struct {
	Category string        `json:"category"`
	Roles    []models.Role `json:"roles"`
}

func collatorFor(locale string) *collate.Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return collate.New(tag)
}

// sortCatalog orders roles by (category, display_order, name). Category and
// name comparisons use the caller's locale collation, not byte order.
func sortCatalog(roles []models.Role, locale string) {
	c := collatorFor(locale)
	sort.SliceStable(roles, func(i, j int) bool {
		if cmp := c.CompareString(roles[i].Category, roles[j].Category); cmp != 0 {
			return cmp < 0
		}
		if roles[i].DisplayOrder != roles[j].DisplayOrder {
			return roles[i].DisplayOrder < roles[j].DisplayOrder
		}
		return c.CompareString(roles[i].Name, roles[j].Name) < 0
	})
}

// ListCatalog returns the enabled catalog grouped by category, in collated
// catalog order.
func (s *RoleService) ListCatalog(ctx context.Context, tenantID uint, locale string) ([]CategoryRoles, error) {
	roles, err := s.roles.ListEnabled(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sortCatalog(roles, locale)

	var out []CategoryRoles
	for _, r := range roles {
		if len(out) == 0 || out[len(out)-1].Category != r.Category {
			out = append(out, CategoryRoles{Category: r.Category})
		}
		out[len(out)-1].Roles = append(out[len(out)-1].Roles, r)
	}
	return out, nil
}

// ListAll returns every catalog entry, enabled or not, in collated catalog
// order.
func (s *RoleService) ListAll(ctx context.Context, tenantID uint, locale string) ([]models.Role, error) {
	roles, err := s.roles.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sortCatalog(roles, locale)
	return roles, nil
}

// AddCustom appends a custom role at the end of the custom category.
func (s *RoleService) AddCustom(ctx context.Context, tenantID, actorID uint, name string) (*models.Role, error) {
	if _, err := requireCapability(ctx, s.tenants, s.memberships, tenantID, actorID, permission.CapManageRoles); err != nil {
		return nil, err
	}
	name, err := validation.RoleName(name)
	if err != nil {
		return nil, err
	}

	max, err := s.roles.MaxDisplayOrder(ctx, tenantID, models.CustomRoleCategory)
	if err != nil {
		return nil, err
	}

	role := &models.Role{
		TenantID:     tenantID,
		Category:     models.CustomRoleCategory,
		Name:         name,
		Enabled:      true,
		DisplayOrder: max + 1,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	observability.MembershipMutations.WithLabelValues("role", "create").Inc()
	return role, nil
}

// SetEnabled toggles a catalog entry without removing it.
func (s *RoleService) SetEnabled(ctx context.Context, tenantID, actorID, roleID uint, enabled bool) error {
	if _, err := requireCapability(ctx, s.tenants, s.memberships, tenantID, actorID, permission.CapManageRoles); err != nil {
		return err
	}
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.TenantID != tenantID {
		return models.NewNotFoundError("Role", roleID)
	}
	return s.roles.SetEnabled(ctx, roleID, enabled)
}

// BulkSetEnabled applies a batch of enabled toggles atomically: either every
// update lands or none do.
func (s *RoleService) BulkSetEnabled(ctx context.Context, tenantID, actorID uint, updates []repository.RoleEnabledUpdate) error {
	if _, err := requireCapability(ctx, s.tenants, s.memberships, tenantID, actorID, permission.CapManageRoles); err != nil {
		return err
	}
	if len(updates) == 0 {
		return models.NewMissingFieldError("updates")
	}
	return s.roles.BulkSetEnabled(ctx, tenantID, updates)
}

// RemoveCustom deletes a custom role. Seeded entries are not deletable, only
// toggleable, so the taxonomy stays intact for every tenant.
func (s *RoleService) RemoveCustom(ctx context.Context, tenantID, actorID, roleID uint) error {
	if _, err := requireCapability(ctx, s.tenants, s.memberships, tenantID, actorID, permission.CapManageRoles); err != nil {
		return err
	}
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.TenantID != tenantID {
		return models.NewNotFoundError("Role", roleID)
	}
	if role.Category != models.CustomRoleCategory {
		return models.NewNotDeletableError("Seeded roles can be disabled but not deleted")
	}
	if err := s.roles.Delete(ctx, roleID); err != nil {
		return err
	}
	observability.MembershipMutations.WithLabelValues("role", "delete").Inc()
	return nil
}
