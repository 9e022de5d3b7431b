package models

import "time"

// CustomRoleCategory is the only category whose entries end users may
// delete. Seeded entries can be toggled but never removed.
const CustomRoleCategory = "custom"

// Role is a catalog entry: a descriptive label assignable to tenant members.
// Roles carry no capabilities; the coarse tier is the authority for access.
type Role struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     uint      `gorm:"not null;uniqueIndex:idx_roles_tenant_category_name" json:"tenant_id"`
	Category     string    `gorm:"size:60;not null;uniqueIndex:idx_roles_tenant_category_name" json:"category"`
	Name         string    `gorm:"size:80;not null;uniqueIndex:idx_roles_tenant_category_name" json:"name"`
	Enabled      bool      `gorm:"not null;default:true" json:"enabled"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Role) TableName() string {
	return "roles"
}

// TaxonomyCategory is one seeded category with its ordered role names.
type TaxonomyCategory struct {
	Category string
	Names    []string
}

// DefaultTaxonomy is the fixed catalog every tenant starts from. Order
// matters: display_order is assigned sequentially category by category,
// name by name, starting at 0.
var DefaultTaxonomy = []TaxonomyCategory{
	{Category: "Vocal", Names: []string{"Lead Vocal", "Backing Vocal", "Chorus"}},
	{Category: "Production", Names: []string{"Producer", "Composer", "Arranger", "Lyricist"}},
	{Category: "Instrument", Names: []string{"Guitar", "Bass", "Drums", "Keyboard", "Strings"}},
	{Category: "Engineering", Names: []string{"Recording Engineer", "Mixing Engineer", "Mastering Engineer"}},
	{Category: "Business", Names: []string{"Manager", "A&R", "Promotion"}},
}
