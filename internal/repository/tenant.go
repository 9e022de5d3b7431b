package repository

import (
	"context"
	"errors"

	"atelier/internal/cache"
	"atelier/internal/models"
	"atelier/internal/permission"

	"gorm.io/gorm"
)

// TenantRepository defines persistence operations for tenants.
type TenantRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Tenant, error)
	GetByCode(ctx context.Context, code string) (*models.Tenant, error)
	// CodeExists is the existence check the short code allocator re-queries
	// on every attempt.
	CodeExists(ctx context.Context, code string) (bool, error)
	CountByOwner(ctx context.Context, ownerUserID uint) (int64, error)
	// ListAccessible returns tenants the user owns or is a member of,
	// ordered by sort order then id.
	ListAccessible(ctx context.Context, userID uint) ([]models.Tenant, error)
	Create(ctx context.Context, tenant *models.Tenant) error
	Update(ctx context.Context, tenant *models.Tenant) error
	UpdatePermissionSettings(ctx context.Context, id uint, overlay *permission.Overlay) error
	Delete(ctx context.Context, id uint) error
}

type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository returns a new TenantRepository implementation.
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) GetByID(ctx context.Context, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := readDB(r.db).WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Tenant", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &tenant, nil
}

func (r *tenantRepository) GetByCode(ctx context.Context, code string) (*models.Tenant, error) {
	var tenant models.Tenant
	key := cache.TenantKey(code)

	err := cache.Aside(ctx, key, &tenant, cache.TenantTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Where("code = ?", code).First(&tenant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Tenant", code)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Tenant{}).
		Where("code = ?", code).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *tenantRepository) CountByOwner(ctx context.Context, ownerUserID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Tenant{}).
		Where("owner_user_id = ?", ownerUserID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *tenantRepository) ListAccessible(ctx context.Context, userID uint) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := readDB(r.db).WithContext(ctx).
		Distinct("tenants.*").
		Joins("LEFT JOIN tenant_memberships ON tenant_memberships.tenant_id = tenants.id").
		Where("tenants.owner_user_id = ? OR tenant_memberships.user_id = ?", userID, userID).
		Order("tenants.sort_order ASC, tenants.id ASC").
		Find(&tenants).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tenants, nil
}

func (r *tenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateError("Tenant code already in use")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	if err := r.db.WithContext(ctx).Save(tenant).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateTenant(ctx, tenant.Code)
	return nil
}

func (r *tenantRepository) UpdatePermissionSettings(ctx context.Context, id uint, overlay *permission.Overlay) error {
	tenant, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	tenant.PermissionSettings = overlay
	return r.Update(ctx, tenant)
}

func (r *tenantRepository) Delete(ctx context.Context, id uint) error {
	tenant, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// Dependent memberships and roles cascade at the store level; project
	// rows keep their tenant id for audit until swept.
	if err := r.db.WithContext(ctx).Delete(&models.Tenant{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateTenant(ctx, tenant.Code)
	return nil
}
