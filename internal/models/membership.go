package models

import (
	"time"

	"atelier/internal/permission"
)

// TenantMembership binds a user to a tenant with a coarse tier and zero or
// more catalog roles. The (tenant, user) pair is unique: a user cannot be
// added to the same tenant twice.
type TenantMembership struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	TenantID       uint            `gorm:"not null;uniqueIndex:idx_tenant_memberships_tenant_user" json:"tenant_id"`
	Tenant         *Tenant         `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	UserID         uint            `gorm:"not null;uniqueIndex:idx_tenant_memberships_tenant_user" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Tier           permission.Tier `gorm:"type:varchar(20);not null;default:'member'" json:"tier"`
	Roles          []Role          `gorm:"many2many:membership_roles" json:"roles,omitempty"`
	LastAccessedAt *time.Time      `json:"last_accessed_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (TenantMembership) TableName() string {
	return "tenant_memberships"
}

// ProjectMembership binds a user to a project with a coarse tier only;
// catalog roles exist at the tenant level.
type ProjectMembership struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProjectID uint            `gorm:"not null;uniqueIndex:idx_project_memberships_project_user" json:"project_id"`
	Project   *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_project_memberships_project_user" json:"user_id"`
	User      *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Tier      permission.Tier `gorm:"type:varchar(20);not null;default:'member'" json:"tier"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ProjectMembership) TableName() string {
	return "project_memberships"
}

// MemberEntry is one row of a membership listing. Profile is nil when the
// profile lookup for that member failed or the user row is gone; the listing
// itself still succeeds. Callers must treat the two shapes explicitly.
type MemberEntry struct {
	Membership TenantMembership `json:"membership"`
	Profile    *Profile         `json:"profile"`
	Roles      []Role           `json:"roles"`
}

// ProjectMemberEntry mirrors MemberEntry for project-level listings.
type ProjectMemberEntry struct {
	Membership ProjectMembership `json:"membership"`
	Profile    *Profile          `json:"profile"`
}
