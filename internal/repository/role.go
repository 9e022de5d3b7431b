package repository

import (
	"context"
	"errors"

	"atelier/internal/cache"
	"atelier/internal/models"

	"gorm.io/gorm"
)

// RoleEnabledUpdate pairs a catalog role with its new enabled flag for bulk
// toggles.
type RoleEnabledUpdate struct {
	RoleID  uint `json:"role_id"`
	Enabled bool `json:"enabled"`
}

// RoleRepository defines persistence operations for the role catalog.
type RoleRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Role, error)
	CountByTenant(ctx context.Context, tenantID uint) (int64, error)
	ListByTenant(ctx context.Context, tenantID uint) ([]models.Role, error)
	ListEnabled(ctx context.Context, tenantID uint) ([]models.Role, error)
	// MaxDisplayOrder returns the highest display order within a category,
	// or -1 when the category has no rows yet.
	MaxDisplayOrder(ctx context.Context, tenantID uint, category string) (int, error)
	BulkCreate(ctx context.Context, roles []models.Role) error
	Create(ctx context.Context, role *models.Role) error
	SetEnabled(ctx context.Context, id uint, enabled bool) error
	// BulkSetEnabled applies all updates in one transaction; a role missing
	// from the tenant rolls the whole batch back.
	BulkSetEnabled(ctx context.Context, tenantID uint, updates []RoleEnabledUpdate) error
	Delete(ctx context.Context, id uint) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository returns a new RoleRepository implementation.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) GetByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := readDB(r.db).WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Role", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &role, nil
}

func (r *roleRepository) CountByTenant(ctx context.Context, tenantID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Role{}).
		Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *roleRepository) ListByTenant(ctx context.Context, tenantID uint) ([]models.Role, error) {
	var roles []models.Role
	if err := readDB(r.db).WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("category ASC, display_order ASC, name ASC").
		Find(&roles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return roles, nil
}

// ListEnabled is the catalog hot path, so it reads through the Redis
// cache-aside; every catalog write invalidates the tenant's key.
func (r *roleRepository) ListEnabled(ctx context.Context, tenantID uint) ([]models.Role, error) {
	var roles []models.Role
	err := cache.Aside(ctx, cache.RoleCatalogKey(tenantID), &roles, cache.RoleCatalogTTL, func() error {
		return readDB(r.db).WithContext(ctx).
			Where("tenant_id = ? AND enabled = ?", tenantID, true).
			Order("category ASC, display_order ASC, name ASC").
			Find(&roles).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return roles, nil
}

func (r *roleRepository) MaxDisplayOrder(ctx context.Context, tenantID uint, category string) (int, error) {
	var max *int
	if err := r.db.WithContext(ctx).Model(&models.Role{}).
		Select("MAX(display_order)").
		Where("tenant_id = ? AND category = ?", tenantID, category).
		Scan(&max).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

func (r *roleRepository) BulkCreate(ctx context.Context, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&roles).Error; err != nil {
		if isUniqueConstraintError(err) {
			// A concurrent seeder won the race; the catalog exists either way.
			return models.NewDuplicateError("Role catalog already seeded")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateRoleCatalog(ctx, roles[0].TenantID)
	return nil
}

func (r *roleRepository) Create(ctx context.Context, role *models.Role) error {
	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateError("Role already exists in this category")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateRoleCatalog(ctx, role.TenantID)
	return nil
}

func (r *roleRepository) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	role, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&models.Role{}).
		Where("id = ?", id).Update("enabled", enabled).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRoleCatalog(ctx, role.TenantID)
	return nil
}

func (r *roleRepository) BulkSetEnabled(ctx context.Context, tenantID uint, updates []RoleEnabledUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			var role models.Role
			if err := tx.First(&role, u.RoleID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.NewNotFoundError("Role", u.RoleID)
				}
				return models.NewInternalError(err)
			}
			if role.TenantID != tenantID {
				return models.NewNotFoundError("Role", u.RoleID)
			}
			if err := tx.Model(&models.Role{}).
				Where("id = ?", u.RoleID).Update("enabled", u.Enabled).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateRoleCatalog(ctx, tenantID)
	return nil
}

func (r *roleRepository) Delete(ctx context.Context, id uint) error {
	role, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&models.Role{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRoleCatalog(ctx, role.TenantID)
	return nil
}
