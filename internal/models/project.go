package models

import "time"

// Project is a workspace nested under a tenant. Code is nullable because
// legacy rows predate code minting; it is backfilled lazily on first read.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"index;not null" json:"tenant_id"`
	Tenant      *Tenant   `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	OwnerUserID uint      `gorm:"not null" json:"owner_user_id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Code        *string   `gorm:"size:12;uniqueIndex" json:"code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Project) TableName() string {
	return "projects"
}
