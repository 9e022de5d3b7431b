package service

import (
	"context"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/permission"
	"atelier/internal/repository"
	"atelier/internal/session"
	"atelier/internal/validation"
)

// TenantService owns the artist space lifecycle: creation with code minting,
// listing, profile edits, permission overlays, and deletion.
type TenantService struct {
	tenants     repository.TenantRepository
	memberships repository.MembershipRepository
	roles       *RoleService
	sessions    *session.Store
}

func NewTenantService(
	tenants repository.TenantRepository,
	memberships repository.MembershipRepository,
	roles *RoleService,
	sessions *session.Store,
) *TenantService {
	return &TenantService{tenants: tenants, memberships: memberships, roles: roles, sessions: sessions}
}

type CreateTenantInput struct {
	OwnerUserID uint
	Names       models.LocaleNames
}

// CreateTenant mints a unique code, persists the tenant, attaches the owner
// membership, and seeds the role catalog. The owner's first tenant is marked
// default so session resolution has a stable fallback.
func (s *TenantService) CreateTenant(ctx context.Context, in CreateTenantInput) (*models.Tenant, error) {
	if err := validation.TenantNames(in.Names); err != nil {
		return nil, err
	}

	code, err := allocateCode(ctx, s.tenants.CodeExists)
	if err != nil {
		return nil, err
	}

	existing, err := s.tenants.CountByOwner(ctx, in.OwnerUserID)
	if err != nil {
		return nil, err
	}

	tenant := &models.Tenant{
		OwnerUserID: in.OwnerUserID,
		Code:        code,
		Names:       in.Names,
		IsDefault:   existing == 0,
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}

	if err := s.memberships.Create(ctx, &models.TenantMembership{
		TenantID: tenant.ID,
		UserID:   in.OwnerUserID,
		Tier:     permission.TierOwner,
	}); err != nil {
		return nil, err
	}

	if err := s.roles.SeedIfEmpty(ctx, tenant.ID); err != nil {
		return nil, err
	}

	observability.MembershipMutations.WithLabelValues("tenant", "create").Inc()
	return tenant, nil
}

// ListMine returns the tenants the user owns or belongs to, ordered by
// sort order.
func (s *TenantService) ListMine(ctx context.Context, userID uint) ([]models.Tenant, error) {
	return s.tenants.ListAccessible(ctx, userID)
}

// GetByCode resolves a tenant from its public short code.
func (s *TenantService) GetByCode(ctx context.Context, code string) (*models.Tenant, error) {
	return s.tenants.GetByCode(ctx, code)
}

type UpdateTenantInput struct {
	TenantID uint
	ActorID  uint
	Names    models.LocaleNames
}

// UpdateProfile replaces the tenant's locale display names. The code is
// immutable and never touched here.
func (s *TenantService) UpdateProfile(ctx context.Context, in UpdateTenantInput) (*models.Tenant, error) {
	a, err := requireCapability(ctx, s.tenants, s.memberships, in.TenantID, in.ActorID, permission.CapEditProfile)
	if err != nil {
		return nil, err
	}
	if err := validation.TenantNames(in.Names); err != nil {
		return nil, err
	}

	a.Tenant.Names = in.Names
	if err := s.tenants.Update(ctx, a.Tenant); err != nil {
		return nil, err
	}
	return a.Tenant, nil
}

// SetPermissionOverlay replaces the tenant's admin/member capability rows.
// Passing nil restores the defaults. The owner row cannot be overridden.
func (s *TenantService) SetPermissionOverlay(ctx context.Context, tenantID, actorID uint, overlay *permission.Overlay) error {
	if _, err := requireCapability(ctx, s.tenants, s.memberships, tenantID, actorID, permission.CapManagePermissions); err != nil {
		return err
	}
	return s.tenants.UpdatePermissionSettings(ctx, tenantID, overlay)
}

// Delete removes a tenant. Only the owning user may delete, and any stored
// active-tenant selections pointing at it will lapse on next resolution.
func (s *TenantService) Delete(ctx context.Context, tenantID, actorID uint) error {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.OwnerUserID != actorID {
		return models.NewForbiddenError("Only the owner can delete a space")
	}
	if err := s.tenants.Delete(ctx, tenantID); err != nil {
		return err
	}
	observability.MembershipMutations.WithLabelValues("tenant", "delete").Inc()
	return nil
}

// ResolveActive applies the active-tenant fallback ladder for a user.
func (s *TenantService) ResolveActive(ctx context.Context, userID uint) (*models.Tenant, error) {
	accessible, err := s.tenants.ListAccessible(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.sessions.Resolve(ctx, userID, accessible), nil
}

// SelectActive stores the user's active tenant after checking access.
func (s *TenantService) SelectActive(ctx context.Context, userID, tenantID uint) (*models.Tenant, error) {
	a, err := resolveAccess(ctx, s.tenants, s.memberships, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Select(ctx, userID, tenantID); err != nil {
		return nil, err
	}
	if a.Membership != nil {
		// Best effort; the selection itself already succeeded.
		_ = s.memberships.TouchLastAccess(ctx, a.Membership.ID)
	}
	return a.Tenant, nil
}
