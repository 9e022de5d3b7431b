package service

import (
	"context"

	"atelier/internal/models"
	"atelier/internal/permission"
	"atelier/internal/repository"
)

// access is the resolved standing of one user inside one tenant.
type access struct {
	Tenant       *models.Tenant
	Tier         permission.Tier
	IsOwningUser bool
	Capabilities permission.CapabilitySet
	Membership   *models.TenantMembership
}

// resolveAccess loads the tenant and works out the caller's tier and
// effective capability set under the tenant's overlay. Non-members get a
// forbidden error; the owning user is always treated as owner tier even
// without a membership row.
func resolveAccess(
	ctx context.Context,
	tenants repository.TenantRepository,
	memberships repository.MembershipRepository,
	tenantID, userID uint,
) (*access, error) {
	tenant, err := tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	a := &access{Tenant: tenant, IsOwningUser: tenant.OwnerUserID == userID}

	m, err := memberships.GetByTenantAndUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	a.Membership = m

	switch {
	case a.IsOwningUser:
		a.Tier = permission.TierOwner
	case m != nil:
		a.Tier = m.Tier
	default:
		return nil, models.NewForbiddenError("You are not a member of this space")
	}

	a.Capabilities = permission.Resolve(a.Tier, tenant.PermissionSettings)
	return a, nil
}

// requireCapability is resolveAccess plus a single capability check.
func requireCapability(
	ctx context.Context,
	tenants repository.TenantRepository,
	memberships repository.MembershipRepository,
	tenantID, userID uint,
	cap permission.Capability,
) (*access, error) {
	a, err := resolveAccess(ctx, tenants, memberships, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if !a.Capabilities.Has(cap) {
		return nil, models.NewForbiddenError("You do not have permission to do that")
	}
	return a, nil
}
