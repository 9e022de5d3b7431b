package service

import (
	"context"
	"testing"

	"atelier/internal/models"
	"atelier/internal/permission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipService_List_NilProfileOnLookupFailure(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	memberships := noopMembershipRepo()
	memberships.listByTenantFn = func(_ context.Context, tenantID uint) ([]models.TenantMembership, error) {
		return []models.TenantMembership{
			{ID: 1, TenantID: tenantID, UserID: 1, Tier: permission.TierOwner},
			{ID: 2, TenantID: tenantID, UserID: 2, Tier: permission.TierMember, Roles: []models.Role{{ID: 3, Name: "Guitar"}}},
			{ID: 3, TenantID: tenantID, UserID: 66, Tier: permission.TierMember},
		}, nil
	}

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		if id == 66 {
			// The user row is gone but the membership still lists.
			return nil, models.NewNotFoundError("User", id)
		}
		return &models.User{ID: id, Username: "user", DisplayName: "User", Email: "user@example.com"}, nil
	}

	svc := NewMembershipService(memberships, tenants, noopProjectRepo(), users)

	entries, err := svc.List(context.Background(), 10, 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.NotNil(t, entries[0].Profile)
	assert.NotNil(t, entries[1].Profile)
	assert.Equal(t, []models.Role{{ID: 3, Name: "Guitar"}}, entries[1].Roles)
	assert.Nil(t, entries[2].Profile, "failed lookup yields a nil profile, not an error")
	assert.EqualValues(t, 66, entries[2].Membership.UserID)
}

func TestMembershipService_Add_InviteGate(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	t.Run("member tier cannot add even with overlay invite_member", func(t *testing.T) {
		t.Parallel()

		overlayMember := permission.DefaultMember()
		overlayMember.InviteMember = true
		withOverlay := noopTenantRepo()
		withOverlay.getByIDFn = func(_ context.Context, id uint) (*models.Tenant, error) {
			return &models.Tenant{
				ID: id, OwnerUserID: 1,
				PermissionSettings: &permission.Overlay{Member: &overlayMember},
			}, nil
		}

		memberships := noopMembershipRepo()
		memberships.getByTenantAndUserFn = func(_ context.Context, tenantID, userID uint) (*models.TenantMembership, error) {
			return &models.TenantMembership{ID: 2, TenantID: tenantID, UserID: userID, Tier: permission.TierMember}, nil
		}

		svc := NewMembershipService(memberships, withOverlay, noopProjectRepo(), noopUserRepo())
		_, err := svc.Add(context.Background(), AddMemberInput{TenantID: 10, ActorID: 3, UserID: 4})
		assertAppErrorCode(t, err, models.CodeForbidden)
	})

	t.Run("admin tier can add", func(t *testing.T) {
		t.Parallel()

		memberships := noopMembershipRepo()
		memberships.getByTenantAndUserFn = func(_ context.Context, tenantID, userID uint) (*models.TenantMembership, error) {
			if userID == 3 {
				return &models.TenantMembership{ID: 2, TenantID: tenantID, UserID: 3, Tier: permission.TierAdmin}, nil
			}
			return nil, nil
		}
		var created *models.TenantMembership
		memberships.createFn = func(_ context.Context, m *models.TenantMembership) error {
			m.ID = 9
			created = m
			return nil
		}

		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		}

		svc := NewMembershipService(memberships, tenants, noopProjectRepo(), users)
		m, err := svc.Add(context.Background(), AddMemberInput{TenantID: 10, ActorID: 3, UserID: 4})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, permission.TierMember, m.Tier, "tier defaults to member")
	})

	t.Run("owner tier cannot be granted", func(t *testing.T) {
		t.Parallel()

		svc := NewMembershipService(noopMembershipRepo(), tenants, noopProjectRepo(), noopUserRepo())
		_, err := svc.Add(context.Background(), AddMemberInput{
			TenantID: 10, ActorID: 1, UserID: 4, Tier: permission.TierOwner,
		})
		assertAppErrorCode(t, err, models.CodeValidation)
	})
}

func TestMembershipService_SetRoles(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	memberships := noopMembershipRepo()
	memberships.getByIDFn = func(_ context.Context, id uint) (*models.TenantMembership, error) {
		return &models.TenantMembership{ID: id, TenantID: 10, UserID: 2}, nil
	}
	var replaced []uint
	memberships.replaceRolesFn = func(_ context.Context, _ uint, roleIDs []uint) error {
		replaced = roleIDs
		return nil
	}

	svc := NewMembershipService(memberships, tenants, noopProjectRepo(), noopUserRepo())

	require.NoError(t, svc.SetRoles(context.Background(), 10, 1, 5, []uint{3, 4}))
	assert.Equal(t, []uint{3, 4}, replaced)

	t.Run("membership outside tenant reads as missing", func(t *testing.T) {
		err := svc.SetRoles(context.Background(), 11, 1, 5, []uint{3})
		assertAppErrorCode(t, err, models.CodeNotFound)
	})
}

func TestMembershipService_UpdateTier(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	memberships := noopMembershipRepo()
	memberships.getByIDFn = func(_ context.Context, id uint) (*models.TenantMembership, error) {
		if id == 1 {
			return &models.TenantMembership{ID: 1, TenantID: 10, UserID: 1, Tier: permission.TierOwner}, nil
		}
		return &models.TenantMembership{ID: id, TenantID: 10, UserID: 2, Tier: permission.TierMember}, nil
	}
	memberships.getByTenantAndUserFn = func(_ context.Context, tenantID, userID uint) (*models.TenantMembership, error) {
		if userID == 3 {
			return &models.TenantMembership{ID: 7, TenantID: tenantID, UserID: 3, Tier: permission.TierAdmin}, nil
		}
		return nil, nil
	}
	memberships.updateTierFn = func(_ context.Context, _ uint, _ permission.Tier) error { return nil }

	svc := NewMembershipService(memberships, tenants, noopProjectRepo(), noopUserRepo())

	t.Run("owner promotes a member", func(t *testing.T) {
		assert.NoError(t, svc.UpdateTier(context.Background(), 10, 1, 5, permission.TierAdmin))
	})

	t.Run("admin cannot change tiers", func(t *testing.T) {
		err := svc.UpdateTier(context.Background(), 10, 3, 5, permission.TierAdmin)
		assertAppErrorCode(t, err, models.CodeForbidden)
	})

	t.Run("owner membership cannot be demoted", func(t *testing.T) {
		err := svc.UpdateTier(context.Background(), 10, 1, 1, permission.TierMember)
		assertAppErrorCode(t, err, models.CodeValidation)
	})
}

func TestMembershipService_Remove(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	newMemberships := func() *membershipRepoStub {
		memberships := noopMembershipRepo()
		memberships.getByIDFn = func(_ context.Context, id uint) (*models.TenantMembership, error) {
			if id == 1 {
				return &models.TenantMembership{ID: 1, TenantID: 10, UserID: 1, Tier: permission.TierOwner}, nil
			}
			return &models.TenantMembership{ID: id, TenantID: 10, UserID: 4, Tier: permission.TierMember}, nil
		}
		memberships.getByTenantAndUserFn = func(_ context.Context, tenantID, userID uint) (*models.TenantMembership, error) {
			if userID == 4 {
				return &models.TenantMembership{ID: 5, TenantID: tenantID, UserID: 4, Tier: permission.TierMember}, nil
			}
			return nil, nil
		}
		memberships.deleteFn = func(_ context.Context, _ uint) error { return nil }
		return memberships
	}

	t.Run("member removes themselves", func(t *testing.T) {
		svc := NewMembershipService(newMemberships(), tenants, noopProjectRepo(), noopUserRepo())
		assert.NoError(t, svc.Remove(context.Background(), 10, 4, 5))
	})

	t.Run("member cannot remove another member", func(t *testing.T) {
		memberships := newMemberships()
		memberships.getByIDFn = func(_ context.Context, id uint) (*models.TenantMembership, error) {
			return &models.TenantMembership{ID: id, TenantID: 10, UserID: 8, Tier: permission.TierMember}, nil
		}
		svc := NewMembershipService(memberships, tenants, noopProjectRepo(), noopUserRepo())
		err := svc.Remove(context.Background(), 10, 4, 6)
		assertAppErrorCode(t, err, models.CodeForbidden)
	})

	t.Run("owner membership is permanent", func(t *testing.T) {
		svc := NewMembershipService(newMemberships(), tenants, noopProjectRepo(), noopUserRepo())
		err := svc.Remove(context.Background(), 10, 1, 1)
		assertAppErrorCode(t, err, models.CodeValidation)
	})
}

func TestMembershipService_AddProject_RequiresTenantMembership(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	projects := noopProjectRepo()
	projects.getByIDFn = func(_ context.Context, id uint) (*models.Project, error) {
		return &models.Project{ID: id, TenantID: 10, OwnerUserID: 1, Name: "EP"}, nil
	}

	memberships := noopMembershipRepo()
	memberships.getByTenantAndUserFn = func(_ context.Context, tenantID, userID uint) (*models.TenantMembership, error) {
		if userID == 4 {
			return &models.TenantMembership{ID: 5, TenantID: tenantID, UserID: 4, Tier: permission.TierMember}, nil
		}
		return nil, nil
	}
	memberships.createProjectFn = func(_ context.Context, m *models.ProjectMembership) error {
		m.ID = 3
		return nil
	}

	svc := NewMembershipService(memberships, tenants, projects, noopUserRepo())

	t.Run("tenant member can join a project", func(t *testing.T) {
		m, err := svc.AddProject(context.Background(), AddProjectMemberInput{ProjectID: 20, ActorID: 1, UserID: 4})
		require.NoError(t, err)
		assert.EqualValues(t, 20, m.ProjectID)
	})

	t.Run("outsider is rejected", func(t *testing.T) {
		_, err := svc.AddProject(context.Background(), AddProjectMemberInput{ProjectID: 20, ActorID: 1, UserID: 99})
		assertAppErrorCode(t, err, models.CodeValidation)
	})
}
