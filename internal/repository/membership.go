package repository

import (
	"context"
	"errors"
	"time"

	"atelier/internal/models"
	"atelier/internal/permission"

	"gorm.io/gorm"
)

// MembershipRepository defines persistence operations for tenant- and
// project-level memberships. Authorization is the caller's responsibility;
// this layer only enforces uniqueness and referential shape.
type MembershipRepository interface {
	GetByID(ctx context.Context, id uint) (*models.TenantMembership, error)
	GetByTenantAndUser(ctx context.Context, tenantID, userID uint) (*models.TenantMembership, error)
	ListByTenant(ctx context.Context, tenantID uint) ([]models.TenantMembership, error)
	Create(ctx context.Context, m *models.TenantMembership) error
	UpdateTier(ctx context.Context, id uint, tier permission.Tier) error
	// ReplaceRoles fully replaces the member's role links: delete all, then
	// insert the new set. Repeating the same call is a no-op by construction.
	ReplaceRoles(ctx context.Context, id uint, roleIDs []uint) error
	TouchLastAccess(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error

	GetProjectMembership(ctx context.Context, id uint) (*models.ProjectMembership, error)
	ListByProject(ctx context.Context, projectID uint) ([]models.ProjectMembership, error)
	CreateProjectMembership(ctx context.Context, m *models.ProjectMembership) error
	UpdateProjectTier(ctx context.Context, id uint, tier permission.Tier) error
	DeleteProjectMembership(ctx context.Context, id uint) error
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository returns a new MembershipRepository implementation.
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) GetByID(ctx context.Context, id uint) (*models.TenantMembership, error) {
	var m models.TenantMembership
	if err := readDB(r.db).WithContext(ctx).Preload("Roles").First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Membership", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &m, nil
}

func (r *membershipRepository) GetByTenantAndUser(ctx context.Context, tenantID, userID uint) (*models.TenantMembership, error) {
	var m models.TenantMembership
	if err := readDB(r.db).WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &m, nil
}

func (r *membershipRepository) ListByTenant(ctx context.Context, tenantID uint) ([]models.TenantMembership, error) {
	var memberships []models.TenantMembership
	if err := readDB(r.db).WithContext(ctx).
		Preload("Roles").
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}

func (r *membershipRepository) Create(ctx context.Context, m *models.TenantMembership) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateError("User is already a member of this tenant")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *membershipRepository) UpdateTier(ctx context.Context, id uint, tier permission.Tier) error {
	res := r.db.WithContext(ctx).Model(&models.TenantMembership{}).
		Where("id = ?", id).Update("tier", tier)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Membership", id)
	}
	return nil
}

func (r *membershipRepository) ReplaceRoles(ctx context.Context, id uint, roleIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.TenantMembership
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Membership", id)
			}
			return models.NewInternalError(err)
		}

		if err := tx.Model(&m).Association("Roles").Clear(); err != nil {
			return models.NewInternalError(err)
		}
		if len(roleIDs) == 0 {
			return nil
		}

		var roles []models.Role
		if err := tx.Where("id IN ? AND tenant_id = ?", roleIDs, m.TenantID).Find(&roles).Error; err != nil {
			return models.NewInternalError(err)
		}
		if len(roles) != len(roleIDs) {
			return models.NewValidationError("one or more roles do not belong to this tenant")
		}
		if err := tx.Model(&m).Association("Roles").Append(&roles); err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *membershipRepository) TouchLastAccess(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).Model(&models.TenantMembership{}).
		Where("id = ?", id).Update("last_accessed_at", now).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *membershipRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.TenantMembership
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Membership", id)
			}
			return models.NewInternalError(err)
		}
		if err := tx.Model(&m).Association("Roles").Clear(); err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Delete(&m).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *membershipRepository) GetProjectMembership(ctx context.Context, id uint) (*models.ProjectMembership, error) {
	var m models.ProjectMembership
	if err := readDB(r.db).WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Project membership", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &m, nil
}

func (r *membershipRepository) ListByProject(ctx context.Context, projectID uint) ([]models.ProjectMembership, error) {
	var memberships []models.ProjectMembership
	if err := readDB(r.db).WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}

func (r *membershipRepository) CreateProjectMembership(ctx context.Context, m *models.ProjectMembership) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateError("User is already a member of this project")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *membershipRepository) UpdateProjectTier(ctx context.Context, id uint, tier permission.Tier) error {
	res := r.db.WithContext(ctx).Model(&models.ProjectMembership{}).
		Where("id = ?", id).Update("tier", tier)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Project membership", id)
	}
	return nil
}

func (r *membershipRepository) DeleteProjectMembership(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.ProjectMembership{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Project membership", id)
	}
	return nil
}
