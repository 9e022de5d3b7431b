package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"atelier/internal/permission"
)

// LocaleNames holds a tenant's display names keyed by locale tag
// (e.g. "en", "ja"). Stored as a JSON column.
type LocaleNames map[string]string

// Value implements driver.Valuer.
func (n LocaleNames) Value() (driver.Value, error) {
	if n == nil {
		n = LocaleNames{}
	}
	return json.Marshal(n)
}

// Scan implements sql.Scanner.
func (n *LocaleNames) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = LocaleNames{}
		return nil
	case []byte:
		return json.Unmarshal(v, n)
	case string:
		return json.Unmarshal([]byte(v), n)
	}
	return fmt.Errorf("models: cannot scan locale names from %T", src)
}

// Tenant represents one artist space. Every tenant is owned by exactly one
// user and carries a public short code that never changes once assigned.
type Tenant struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OwnerUserID uint        `gorm:"index;not null" json:"owner_user_id"`
	Owner       *User       `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
	Code        string      `gorm:"size:12;not null;uniqueIndex" json:"code"`
	Names       LocaleNames `gorm:"type:jsonb" json:"names"`
	IsDefault   bool        `gorm:"not null;default:false" json:"is_default"`
	SortOrder   int         `gorm:"not null;default:0" json:"sort_order"`
	// PermissionSettings replaces the default admin/member capability rows
	// when present. The owner row is never stored: it is not overridable.
	PermissionSettings *permission.Overlay `gorm:"type:jsonb" json:"permission_settings,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Tenant) TableName() string {
	return "tenants"
}

// Name returns the display name for the given locale, falling back to "en"
// and then to any name present.
func (t *Tenant) Name(locale string) string {
	if name, ok := t.Names[locale]; ok && name != "" {
		return name
	}
	if name, ok := t.Names["en"]; ok && name != "" {
		return name
	}
	for _, name := range t.Names {
		if name != "" {
			return name
		}
	}
	return ""
}
