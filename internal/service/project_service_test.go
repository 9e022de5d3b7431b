package service

import (
	"context"
	"testing"

	"atelier/internal/models"
	"atelier/internal/permission"
	"atelier/internal/shortcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectService_Create(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	t.Run("owner creates with minted code", func(t *testing.T) {
		t.Parallel()

		projects := noopProjectRepo()
		var created *models.Project
		projects.createFn = func(_ context.Context, p *models.Project) error {
			p.ID = 20
			created = p
			return nil
		}

		svc := NewProjectService(projects, tenants, noopMembershipRepo())
		project, err := svc.Create(context.Background(), CreateProjectInput{
			TenantID: 10, ActorID: 1, Name: "  Debut EP ",
		})
		require.NoError(t, err)

		require.NotNil(t, created)
		assert.Equal(t, "Debut EP", project.Name)
		require.NotNil(t, project.Code)
		assert.Len(t, *project.Code, shortcode.Length)
	})

	t.Run("member tier lacks create_project by default", func(t *testing.T) {
		t.Parallel()

		memberships := noopMembershipRepo()
		memberships.getByTenantAndUserFn = func(_ context.Context, tenantID, userID uint) (*models.TenantMembership, error) {
			return &models.TenantMembership{ID: 2, TenantID: tenantID, UserID: userID, Tier: permission.TierMember}, nil
		}

		svc := NewProjectService(noopProjectRepo(), tenants, memberships)
		_, err := svc.Create(context.Background(), CreateProjectInput{TenantID: 10, ActorID: 3, Name: "EP"})
		assertAppErrorCode(t, err, models.CodeForbidden)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		t.Parallel()

		svc := NewProjectService(noopProjectRepo(), tenants, noopMembershipRepo())
		_, err := svc.Create(context.Background(), CreateProjectInput{TenantID: 10, ActorID: 1, Name: "   "})
		assertAppErrorCode(t, err, models.CodeMissingField)
	})
}

func TestProjectService_List_BackfillsMissingCodes(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	legacy := "LEGACY22"
	projects := noopProjectRepo()
	projects.listByTenantFn = func(_ context.Context, tenantID uint) ([]models.Project, error) {
		return []models.Project{
			{ID: 1, TenantID: tenantID, Name: "Has Code", Code: &legacy},
			{ID: 2, TenantID: tenantID, Name: "Legacy Row", Code: nil},
		}, nil
	}
	backfilled := map[uint]string{}
	projects.setCodeFn = func(_ context.Context, id uint, code string) error {
		backfilled[id] = code
		return nil
	}

	svc := NewProjectService(projects, tenants, noopMembershipRepo())

	listed, err := svc.List(context.Background(), 10, 1)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	assert.Equal(t, legacy, *listed[0].Code, "existing codes never change")
	require.NotNil(t, listed[1].Code)
	assert.Len(t, *listed[1].Code, shortcode.Length)

	assert.Len(t, backfilled, 1)
	assert.Equal(t, *listed[1].Code, backfilled[2])
}

func TestProjectService_List_BackfillRaceRereads(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	winner := "WINNER22"
	projects := noopProjectRepo()
	projects.listByTenantFn = func(_ context.Context, tenantID uint) ([]models.Project, error) {
		return []models.Project{{ID: 2, TenantID: tenantID, Name: "Legacy Row", Code: nil}}, nil
	}
	projects.setCodeFn = func(_ context.Context, _ uint, _ string) error {
		return models.NewDuplicateError("Project code already in use")
	}
	projects.getByIDFn = func(_ context.Context, id uint) (*models.Project, error) {
		return &models.Project{ID: id, TenantID: 10, Name: "Legacy Row", Code: &winner}, nil
	}

	svc := NewProjectService(projects, tenants, noopMembershipRepo())

	listed, err := svc.List(context.Background(), 10, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Code)
	assert.Equal(t, winner, *listed[0].Code, "the concurrent writer's code wins")
}

func TestProjectService_Delete(t *testing.T) {
	t.Parallel()

	tenants := ownerTenantRepo(1)

	projects := noopProjectRepo()
	projects.getByIDFn = func(_ context.Context, id uint) (*models.Project, error) {
		return &models.Project{ID: id, TenantID: 10, Name: "EP"}, nil
	}

	t.Run("admin lacks delete_project by default", func(t *testing.T) {
		memberships := noopMembershipRepo()
		memberships.getByTenantAndUserFn = func(_ context.Context, tenantID, userID uint) (*models.TenantMembership, error) {
			return &models.TenantMembership{ID: 2, TenantID: tenantID, UserID: userID, Tier: permission.TierAdmin}, nil
		}
		svc := NewProjectService(projects, tenants, memberships)
		err := svc.Delete(context.Background(), 20, 3)
		assertAppErrorCode(t, err, models.CodeForbidden)
	})

	t.Run("owner deletes", func(t *testing.T) {
		deleted := false
		projects.deleteFn = func(_ context.Context, _ uint) error {
			deleted = true
			return nil
		}
		svc := NewProjectService(projects, tenants, noopMembershipRepo())
		require.NoError(t, svc.Delete(context.Background(), 20, 1))
		assert.True(t, deleted)
	})
}
