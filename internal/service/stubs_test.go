package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"atelier/internal/models"
	"atelier/internal/permission"
	"atelier/internal/repository"

	"github.com/stretchr/testify/require"
)

var errStubUnexpected = errors.New("unexpected repository call")

// Function-field stubs for every repository interface. Tests override only
// the calls they expect; anything else fails loudly.

type userRepoStub struct {
	getByIDFn    func(ctx context.Context, id uint) (*models.User, error)
	getByEmailFn func(ctx context.Context, email string) (*models.User, error)
	createFn     func(ctx context.Context, user *models.User) error
	updateFn     func(ctx context.Context, user *models.User) error
	listFn       func(ctx context.Context, limit, offset int) ([]models.User, error)
}

func noopUserRepo() *userRepoStub { return &userRepoStub{} }

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if s.getByIDFn == nil {
		return nil, errStubUnexpected
	}
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getByEmailFn == nil {
		return nil, errStubUnexpected
	}
	return s.getByEmailFn(ctx, email)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn == nil {
		return errStubUnexpected
	}
	return s.createFn(ctx, user)
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if s.updateFn == nil {
		return errStubUnexpected
	}
	return s.updateFn(ctx, user)
}

func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if s.listFn == nil {
		return nil, errStubUnexpected
	}
	return s.listFn(ctx, limit, offset)
}

type tenantRepoStub struct {
	getByIDFn            func(ctx context.Context, id uint) (*models.Tenant, error)
	getByCodeFn          func(ctx context.Context, code string) (*models.Tenant, error)
	codeExistsFn         func(ctx context.Context, code string) (bool, error)
	countByOwnerFn       func(ctx context.Context, ownerUserID uint) (int64, error)
	listAccessibleFn     func(ctx context.Context, userID uint) ([]models.Tenant, error)
	createFn             func(ctx context.Context, tenant *models.Tenant) error
	updateFn             func(ctx context.Context, tenant *models.Tenant) error
	updatePermissionsFn  func(ctx context.Context, id uint, overlay *permission.Overlay) error
	deleteFn             func(ctx context.Context, id uint) error
}

func noopTenantRepo() *tenantRepoStub { return &tenantRepoStub{} }

func (s *tenantRepoStub) GetByID(ctx context.Context, id uint) (*models.Tenant, error) {
	if s.getByIDFn == nil {
		return nil, errStubUnexpected
	}
	return s.getByIDFn(ctx, id)
}

func (s *tenantRepoStub) GetByCode(ctx context.Context, code string) (*models.Tenant, error) {
	if s.getByCodeFn == nil {
		return nil, errStubUnexpected
	}
	return s.getByCodeFn(ctx, code)
}

func (s *tenantRepoStub) CodeExists(ctx context.Context, code string) (bool, error) {
	if s.codeExistsFn == nil {
		return false, nil
	}
	return s.codeExistsFn(ctx, code)
}

func (s *tenantRepoStub) CountByOwner(ctx context.Context, ownerUserID uint) (int64, error) {
	if s.countByOwnerFn == nil {
		return 0, errStubUnexpected
	}
	return s.countByOwnerFn(ctx, ownerUserID)
}

func (s *tenantRepoStub) ListAccessible(ctx context.Context, userID uint) ([]models.Tenant, error) {
	if s.listAccessibleFn == nil {
		return nil, errStubUnexpected
	}
	return s.listAccessibleFn(ctx, userID)
}

func (s *tenantRepoStub) Create(ctx context.Context, tenant *models.Tenant) error {
	if s.createFn == nil {
		return errStubUnexpected
	}
	return s.createFn(ctx, tenant)
}

func (s *tenantRepoStub) Update(ctx context.Context, tenant *models.Tenant) error {
	if s.updateFn == nil {
		return errStubUnexpected
	}
	return s.updateFn(ctx, tenant)
}

func (s *tenantRepoStub) UpdatePermissionSettings(ctx context.Context, id uint, overlay *permission.Overlay) error {
	if s.updatePermissionsFn == nil {
		return errStubUnexpected
	}
	return s.updatePermissionsFn(ctx, id, overlay)
}

func (s *tenantRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return errStubUnexpected
	}
	return s.deleteFn(ctx, id)
}

type membershipRepoStub struct {
	getByIDFn             func(ctx context.Context, id uint) (*models.TenantMembership, error)
	getByTenantAndUserFn  func(ctx context.Context, tenantID, userID uint) (*models.TenantMembership, error)
	listByTenantFn        func(ctx context.Context, tenantID uint) ([]models.TenantMembership, error)
	createFn              func(ctx context.Context, m *models.TenantMembership) error
	updateTierFn          func(ctx context.Context, id uint, tier permission.Tier) error
	replaceRolesFn        func(ctx context.Context, id uint, roleIDs []uint) error
	touchLastAccessFn     func(ctx context.Context, id uint) error
	deleteFn              func(ctx context.Context, id uint) error
	getProjectFn          func(ctx context.Context, id uint) (*models.ProjectMembership, error)
	listByProjectFn       func(ctx context.Context, projectID uint) ([]models.ProjectMembership, error)
	createProjectFn       func(ctx context.Context, m *models.ProjectMembership) error
	updateProjectTierFn   func(ctx context.Context, id uint, tier permission.Tier) error
	deleteProjectFn       func(ctx context.Context, id uint) error
}

func noopMembershipRepo() *membershipRepoStub { return &membershipRepoStub{} }

func (s *membershipRepoStub) GetByID(ctx context.Context, id uint) (*models.TenantMembership, error) {
	if s.getByIDFn == nil {
		return nil, errStubUnexpected
	}
	return s.getByIDFn(ctx, id)
}

func (s *membershipRepoStub) GetByTenantAndUser(ctx context.Context, tenantID, userID uint) (*models.TenantMembership, error) {
	if s.getByTenantAndUserFn == nil {
		return nil, nil
	}
	return s.getByTenantAndUserFn(ctx, tenantID, userID)
}

func (s *membershipRepoStub) ListByTenant(ctx context.Context, tenantID uint) ([]models.TenantMembership, error) {
	if s.listByTenantFn == nil {
		return nil, errStubUnexpected
	}
	return s.listByTenantFn(ctx, tenantID)
}

func (s *membershipRepoStub) Create(ctx context.Context, m *models.TenantMembership) error {
	if s.createFn == nil {
		return errStubUnexpected
	}
	return s.createFn(ctx, m)
}

func (s *membershipRepoStub) UpdateTier(ctx context.Context, id uint, tier permission.Tier) error {
	if s.updateTierFn == nil {
		return errStubUnexpected
	}
	return s.updateTierFn(ctx, id, tier)
}

func (s *membershipRepoStub) ReplaceRoles(ctx context.Context, id uint, roleIDs []uint) error {
	if s.replaceRolesFn == nil {
		return errStubUnexpected
	}
	return s.replaceRolesFn(ctx, id, roleIDs)
}

func (s *membershipRepoStub) TouchLastAccess(ctx context.Context, id uint) error {
	if s.touchLastAccessFn == nil {
		return nil
	}
	return s.touchLastAccessFn(ctx, id)
}

func (s *membershipRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return errStubUnexpected
	}
	return s.deleteFn(ctx, id)
}

func (s *membershipRepoStub) GetProjectMembership(ctx context.Context, id uint) (*models.ProjectMembership, error) {
	if s.getProjectFn == nil {
		return nil, errStubUnexpected
	}
	return s.getProjectFn(ctx, id)
}

func (s *membershipRepoStub) ListByProject(ctx context.Context, projectID uint) ([]models.ProjectMembership, error) {
	if s.listByProjectFn == nil {
		return nil, errStubUnexpected
	}
	return s.listByProjectFn(ctx, projectID)
}

func (s *membershipRepoStub) CreateProjectMembership(ctx context.Context, m *models.ProjectMembership) error {
	if s.createProjectFn == nil {
		return errStubUnexpected
	}
	return s.createProjectFn(ctx, m)
}

func (s *membershipRepoStub) UpdateProjectTier(ctx context.Context, id uint, tier permission.Tier) error {
	if s.updateProjectTierFn == nil {
		return errStubUnexpected
	}
	return s.updateProjectTierFn(ctx, id, tier)
}

func (s *membershipRepoStub) DeleteProjectMembership(ctx context.Context, id uint) error {
	if s.deleteProjectFn == nil {
		return errStubUnexpected
	}
	return s.deleteProjectFn(ctx, id)
}

type roleRepoStub struct {
	getByIDFn         func(ctx context.Context, id uint) (*models.Role, error)
	countByTenantFn   func(ctx context.Context, tenantID uint) (int64, error)
	listByTenantFn    func(ctx context.Context, tenantID uint) ([]models.Role, error)
	listEnabledFn     func(ctx context.Context, tenantID uint) ([]models.Role, error)
	maxDisplayOrderFn func(ctx context.Context, tenantID uint, category string) (int, error)
	bulkCreateFn      func(ctx context.Context, roles []models.Role) error
	createFn          func(ctx context.Context, role *models.Role) error
	setEnabledFn      func(ctx context.Context, id uint, enabled bool) error
	bulkSetEnabledFn  func(ctx context.Context, tenantID uint, updates []repository.RoleEnabledUpdate) error
	deleteFn          func(ctx context.Context, id uint) error
}

func noopRoleRepo() *roleRepoStub { return &roleRepoStub{} }

func (s *roleRepoStub) GetByID(ctx context.Context, id uint) (*models.Role, error) {
	if s.getByIDFn == nil {
		return nil, errStubUnexpected
	}
	return s.getByIDFn(ctx, id)
}

func (s *roleRepoStub) CountByTenant(ctx context.Context, tenantID uint) (int64, error) {
	if s.countByTenantFn == nil {
		return 0, errStubUnexpected
	}
	return s.countByTenantFn(ctx, tenantID)
}

func (s *roleRepoStub) ListByTenant(ctx context.Context, tenantID uint) ([]models.Role, error) {
	if s.listByTenantFn == nil {
		return nil, errStubUnexpected
	}
	return s.listByTenantFn(ctx, tenantID)
}

func (s *roleRepoStub) ListEnabled(ctx context.Context, tenantID uint) ([]models.Role, error) {
	if s.listEnabledFn == nil {
		return nil, errStubUnexpected
	}
	return s.listEnabledFn(ctx, tenantID)
}

func (s *roleRepoStub) MaxDisplayOrder(ctx context.Context, tenantID uint, category string) (int, error) {
	if s.maxDisplayOrderFn == nil {
		return -1, nil
	}
	return s.maxDisplayOrderFn(ctx, tenantID, category)
}

func (s *roleRepoStub) BulkCreate(ctx context.Context, roles []models.Role) error {
	if s.bulkCreateFn == nil {
		return errStubUnexpected
	}
	return s.bulkCreateFn(ctx, roles)
}

func (s *roleRepoStub) Create(ctx context.Context, role *models.Role) error {
	if s.createFn == nil {
		return errStubUnexpected
	}
	return s.createFn(ctx, role)
}

func (s *roleRepoStub) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	if s.setEnabledFn == nil {
		return errStubUnexpected
	}
	return s.setEnabledFn(ctx, id, enabled)
}

func (s *roleRepoStub) BulkSetEnabled(ctx context.Context, tenantID uint, updates []repository.RoleEnabledUpdate) error {
	if s.bulkSetEnabledFn == nil {
		return errStubUnexpected
	}
	return s.bulkSetEnabledFn(ctx, tenantID, updates)
}

func (s *roleRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return errStubUnexpected
	}
	return s.deleteFn(ctx, id)
}

type projectRepoStub struct {
	getByIDFn      func(ctx context.Context, id uint) (*models.Project, error)
	codeExistsFn   func(ctx context.Context, code string) (bool, error)
	listByTenantFn func(ctx context.Context, tenantID uint) ([]models.Project, error)
	createFn       func(ctx context.Context, project *models.Project) error
	updateFn       func(ctx context.Context, project *models.Project) error
	setCodeFn      func(ctx context.Context, id uint, code string) error
	deleteFn       func(ctx context.Context, id uint) error
}

func noopProjectRepo() *projectRepoStub { return &projectRepoStub{} }

func (s *projectRepoStub) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	if s.getByIDFn == nil {
		return nil, errStubUnexpected
	}
	return s.getByIDFn(ctx, id)
}

func (s *projectRepoStub) CodeExists(ctx context.Context, code string) (bool, error) {
	if s.codeExistsFn == nil {
		return false, nil
	}
	return s.codeExistsFn(ctx, code)
}

func (s *projectRepoStub) ListByTenant(ctx context.Context, tenantID uint) ([]models.Project, error) {
	if s.listByTenantFn == nil {
		return nil, errStubUnexpected
	}
	return s.listByTenantFn(ctx, tenantID)
}

func (s *projectRepoStub) Create(ctx context.Context, project *models.Project) error {
	if s.createFn == nil {
		return errStubUnexpected
	}
	return s.createFn(ctx, project)
}

func (s *projectRepoStub) Update(ctx context.Context, project *models.Project) error {
	if s.updateFn == nil {
		return errStubUnexpected
	}
	return s.updateFn(ctx, project)
}

func (s *projectRepoStub) SetCode(ctx context.Context, id uint, code string) error {
	if s.setCodeFn == nil {
		return errStubUnexpected
	}
	return s.setCodeFn(ctx, id, code)
}

func (s *projectRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return errStubUnexpected
	}
	return s.deleteFn(ctx, id)
}

// memPasscodeStore is an in-process PasscodeStore for tests.
type memPasscodeStore struct {
	mu    sync.Mutex
	items map[string]PendingInvite
}

func newMemPasscodeStore() *memPasscodeStore {
	return &memPasscodeStore{items: make(map[string]PendingInvite)}
}

func (s *memPasscodeStore) Save(_ context.Context, passcode string, inv PendingInvite, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[passcode] = inv
	return nil
}

func (s *memPasscodeStore) Load(_ context.Context, passcode string) (*PendingInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.items[passcode]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (s *memPasscodeStore) Delete(_ context.Context, passcode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, passcode)
	return nil
}

// mailerStub records dispatched passcodes and can be told to fail.
type mailerStub struct {
	mu     sync.Mutex
	sent   []string
	failWith error
}

func (m *mailerStub) SendPasscode(_ context.Context, to, _, passcode, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, passcode)
	return nil
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code)
}
