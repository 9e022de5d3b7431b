package service

import (
	"context"
	"sync"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/permission"
	"atelier/internal/repository"
)

// MembershipService is the membership directory: listing members with their
// profiles and roles, and mutating tenant- and project-level memberships.
type MembershipService struct {
	memberships repository.MembershipRepository
	tenants     repository.TenantRepository
	projects    repository.ProjectRepository
	users       repository.UserRepository
}

func NewMembershipService(
	memberships repository.MembershipRepository,
	tenants repository.TenantRepository,
	projects repository.ProjectRepository,
	users repository.UserRepository,
) *MembershipService {
	return &MembershipService{memberships: memberships, tenants: tenants, projects: projects, users: users}
}

const profileFanoutLimit = 8

// List returns the tenant's member directory. Profile lookups fan out
// concurrently; a member whose profile cannot be resolved is returned with a
// nil Profile rather than failing the whole listing.
func (s *MembershipService) List(ctx context.Context, tenantID, actorID uint) ([]models.MemberEntry, error) {
	if _, err := resolveAccess(ctx, s.tenants, s.memberships, tenantID, actorID); err != nil {
		return nil, err
	}

	memberships, err := s.memberships.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	entries := make([]models.MemberEntry, len(memberships))
	var wg sync.WaitGroup
	sem := make(chan struct{}, profileFanoutLimit)

	for i := range memberships {
		entries[i] = models.MemberEntry{
			Membership: memberships[i],
			Roles:      memberships[i].Roles,
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			user, err := s.users.GetByID(ctx, memberships[i].UserID)
			if err != nil || user == nil {
				observability.ProfileLookupFailures.Inc()
				return
			}
			entries[i].Profile = models.ProfileOf(user)
		}(i)
	}
	wg.Wait()

	return entries, nil
}

type AddMemberInput struct {
	TenantID uint
	ActorID  uint
	UserID   uint
	Tier     permission.Tier
}

// Add attaches an existing user to a tenant. The invite gate applies: the
// owning user and owner/admin tier members may add, regardless of overlay.
func (s *MembershipService) Add(ctx context.Context, in AddMemberInput) (*models.TenantMembership, error) {
	a, err := resolveAccess(ctx, s.tenants, s.memberships, in.TenantID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if !permission.CanInvite(a.IsOwningUser, a.Tier) {
		return nil, models.NewForbiddenError("You do not have permission to add members")
	}

	tier := in.Tier
	if tier == "" {
		tier = permission.TierMember
	}
	if !tier.Valid() || tier == permission.TierOwner {
		return nil, models.NewValidationError("Tier must be admin or member")
	}

	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	m := &models.TenantMembership{TenantID: in.TenantID, UserID: in.UserID, Tier: tier}
	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, err
	}
	observability.MembershipMutations.WithLabelValues("membership", "create").Inc()
	return m, nil
}

// SetRoles replaces a member's catalog roles wholesale. Sending the same set
// twice leaves the member in the same state.
func (s *MembershipService) SetRoles(ctx context.Context, tenantID, actorID, membershipID uint, roleIDs []uint) error {
	if _, err := requireCapability(ctx, s.tenants, s.memberships, tenantID, actorID, permission.CapManageRoles); err != nil {
		return err
	}
	m, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.TenantID != tenantID {
		return models.NewNotFoundError("Membership", membershipID)
	}
	if err := s.memberships.ReplaceRoles(ctx, membershipID, roleIDs); err != nil {
		return err
	}
	observability.MembershipMutations.WithLabelValues("membership", "set_roles").Inc()
	return nil
}

// UpdateTier changes a member's coarse tier. Only the owning user or an
// owner-tier member may change tiers, and the owning user's own membership
// stays owner.
func (s *MembershipService) UpdateTier(ctx context.Context, tenantID, actorID, membershipID uint, tier permission.Tier) error {
	a, err := resolveAccess(ctx, s.tenants, s.memberships, tenantID, actorID)
	if err != nil {
		return err
	}
	if !a.IsOwningUser && a.Tier != permission.TierOwner {
		return models.NewForbiddenError("Only the owner can change member tiers")
	}
	if !tier.Valid() || tier == permission.TierOwner {
		return models.NewValidationError("Tier must be admin or member")
	}

	m, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.TenantID != tenantID {
		return models.NewNotFoundError("Membership", membershipID)
	}
	if m.UserID == a.Tenant.OwnerUserID {
		return models.NewValidationError("The owner's membership cannot be demoted")
	}
	if err := s.memberships.UpdateTier(ctx, membershipID, tier); err != nil {
		return err
	}
	observability.MembershipMutations.WithLabelValues("membership", "update_tier").Inc()
	return nil
}

// Remove detaches a member. Members may remove themselves; removing others
// needs the remove capability. The owning user's membership is permanent.
func (s *MembershipService) Remove(ctx context.Context, tenantID, actorID, membershipID uint) error {
	a, err := resolveAccess(ctx, s.tenants, s.memberships, tenantID, actorID)
	if err != nil {
		return err
	}

	m, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.TenantID != tenantID {
		return models.NewNotFoundError("Membership", membershipID)
	}
	if m.UserID == a.Tenant.OwnerUserID {
		return models.NewValidationError("The owner cannot be removed from their own space")
	}
	if m.UserID != actorID && !a.Capabilities.Has(permission.CapRemoveMember) && !a.IsOwningUser {
		return models.NewForbiddenError("You do not have permission to remove members")
	}

	if err := s.memberships.Delete(ctx, membershipID); err != nil {
		return err
	}
	observability.MembershipMutations.WithLabelValues("membership", "delete").Inc()
	return nil
}

// ListProject returns the project member directory with the same nil-Profile
// contract as the tenant listing.
func (s *MembershipService) ListProject(ctx context.Context, projectID, actorID uint) ([]models.ProjectMemberEntry, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := resolveAccess(ctx, s.tenants, s.memberships, project.TenantID, actorID); err != nil {
		return nil, err
	}

	memberships, err := s.memberships.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ProjectMemberEntry, len(memberships))
	var wg sync.WaitGroup
	sem := make(chan struct{}, profileFanoutLimit)

	for i := range memberships {
		entries[i] = models.ProjectMemberEntry{Membership: memberships[i]}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			user, err := s.users.GetByID(ctx, memberships[i].UserID)
			if err != nil || user == nil {
				observability.ProfileLookupFailures.Inc()
				return
			}
			entries[i].Profile = models.ProfileOf(user)
		}(i)
	}
	wg.Wait()

	return entries, nil
}

type AddProjectMemberInput struct {
	ProjectID uint
	ActorID   uint
	UserID    uint
	Tier      permission.Tier
}

// AddProject attaches a tenant member to a project. Users outside the
// project's tenant cannot be added at the project level.
func (s *MembershipService) AddProject(ctx context.Context, in AddProjectMemberInput) (*models.ProjectMembership, error) {
	project, err := s.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	a, err := resolveAccess(ctx, s.tenants, s.memberships, project.TenantID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if !permission.CanInvite(a.IsOwningUser, a.Tier) {
		return nil, models.NewForbiddenError("You do not have permission to add members")
	}

	tier := in.Tier
	if tier == "" {
		tier = permission.TierMember
	}
	if !tier.Valid() || tier == permission.TierOwner {
		return nil, models.NewValidationError("Tier must be admin or member")
	}

	target, err := s.memberships.GetByTenantAndUser(ctx, project.TenantID, in.UserID)
	if err != nil {
		return nil, err
	}
	if target == nil && a.Tenant.OwnerUserID != in.UserID {
		return nil, models.NewValidationError("User must join the space before joining its projects")
	}

	m := &models.ProjectMembership{ProjectID: in.ProjectID, UserID: in.UserID, Tier: tier}
	if err := s.memberships.CreateProjectMembership(ctx, m); err != nil {
		return nil, err
	}
	observability.MembershipMutations.WithLabelValues("project_membership", "create").Inc()
	return m, nil
}

// UpdateProjectTier changes a project member's coarse tier. The same gate as
// the tenant-level change applies: only the owning user or an owner-tier
// member of the project's tenant.
func (s *MembershipService) UpdateProjectTier(ctx context.Context, projectID, actorID, membershipID uint, tier permission.Tier) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	a, err := resolveAccess(ctx, s.tenants, s.memberships, project.TenantID, actorID)
	if err != nil {
		return err
	}
	if !a.IsOwningUser && a.Tier != permission.TierOwner {
		return models.NewForbiddenError("Only the owner can change member tiers")
	}
	if !tier.Valid() || tier == permission.TierOwner {
		return models.NewValidationError("Tier must be admin or member")
	}

	m, err := s.memberships.GetProjectMembership(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.ProjectID != projectID {
		return models.NewNotFoundError("Project membership", membershipID)
	}
	if err := s.memberships.UpdateProjectTier(ctx, membershipID, tier); err != nil {
		return err
	}
	observability.MembershipMutations.WithLabelValues("project_membership", "update_tier").Inc()
	return nil
}

// RemoveProject detaches a project member.
func (s *MembershipService) RemoveProject(ctx context.Context, projectID, actorID, membershipID uint) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	a, err := resolveAccess(ctx, s.tenants, s.memberships, project.TenantID, actorID)
	if err != nil {
		return err
	}

	m, err := s.memberships.GetProjectMembership(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.ProjectID != projectID {
		return models.NewNotFoundError("Project membership", membershipID)
	}
	if m.UserID != actorID && !a.Capabilities.Has(permission.CapRemoveMember) && !a.IsOwningUser {
		return models.NewForbiddenError("You do not have permission to remove members")
	}

	if err := s.memberships.DeleteProjectMembership(ctx, membershipID); err != nil {
		return err
	}
	observability.MembershipMutations.WithLabelValues("project_membership", "delete").Inc()
	return nil
}
