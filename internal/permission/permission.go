// Package permission maps membership tiers to capability sets. It is pure
// table lookup with no I/O; persistence of overlays lives on the tenant row.
package permission

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Tier is the coarse access level of a membership.
type Tier string

const (
	// TierOwner is the tenant owner tier. It always holds every capability.
	TierOwner Tier = "owner"
	// TierAdmin is the administrative tier.
	TierAdmin Tier = "admin"
	// TierMember is the default member tier.
	TierMember Tier = "member"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierOwner, TierAdmin, TierMember:
		return true
	}
	return false
}

// Capability identifies a single tenant-scoped action.
type Capability string

const (
	CapCreateProject     Capability = "create_project"
	CapEditProject       Capability = "edit_project"
	CapDeleteProject     Capability = "delete_project"
	CapInviteMember      Capability = "invite_member"
	CapRemoveMember      Capability = "remove_member"
	CapManageRoles       Capability = "manage_roles"
	CapManagePermissions Capability = "manage_permissions"
	CapEditProfile       Capability = "edit_profile"
)

// CapabilitySet is one row of the tier/capability table. The struct form
// keeps the table exhaustive: adding a capability forces every literal row
// in this package to be revisited.
type CapabilitySet struct {
	CreateProject     bool `json:"create_project"`
	EditProject       bool `json:"edit_project"`
	DeleteProject     bool `json:"delete_project"`
	InviteMember      bool `json:"invite_member"`
	RemoveMember      bool `json:"remove_member"`
	ManageRoles       bool `json:"manage_roles"`
	ManagePermissions bool `json:"manage_permissions"`
	EditProfile       bool `json:"edit_profile"`
}

// Has reports whether the set grants the given capability.
func (s CapabilitySet) Has(cap Capability) bool {
	switch cap {
	case CapCreateProject:
		return s.CreateProject
	case CapEditProject:
		return s.EditProject
	case CapDeleteProject:
		return s.DeleteProject
	case CapInviteMember:
		return s.InviteMember
	case CapRemoveMember:
		return s.RemoveMember
	case CapManageRoles:
		return s.ManageRoles
	case CapManagePermissions:
		return s.ManagePermissions
	case CapEditProfile:
		return s.EditProfile
	}
	return false
}

func allCapabilities() CapabilitySet {
	return CapabilitySet{
		CreateProject:     true,
		EditProject:       true,
		DeleteProject:     true,
		InviteMember:      true,
		RemoveMember:      true,
		ManageRoles:       true,
		ManagePermissions: true,
		EditProfile:       true,
	}
}

// DefaultAdmin is the capability row for the admin tier when a tenant
// carries no overlay.
func DefaultAdmin() CapabilitySet {
	return CapabilitySet{
		CreateProject: true,
		EditProject:   true,
		InviteMember:  true,
		ManageRoles:   true,
		EditProfile:   true,
	}
}

// DefaultMember is the capability row for the member tier when a tenant
// carries no overlay. Members hold no tenant-scoped capabilities.
func DefaultMember() CapabilitySet {
	return CapabilitySet{}
}

// Overlay is a tenant-specific replacement for the admin and member rows.
// The owner row is never overridable. A nil row falls back to the default.
type Overlay struct {
	Admin  *CapabilitySet `json:"admin,omitempty"`
	Member *CapabilitySet `json:"member,omitempty"`
}

// Value implements driver.Valuer so an Overlay can be stored as a JSON column.
func (o Overlay) Value() (driver.Value, error) {
	return json.Marshal(o)
}

// Scan implements sql.Scanner for reading the JSON column back.
func (o *Overlay) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = Overlay{}
		return nil
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	}
	return fmt.Errorf("permission: cannot scan overlay from %T", src)
}

// Resolve returns the effective capability set for a tier under an optional
// tenant overlay. Unknown tiers resolve to an empty set.
func Resolve(tier Tier, overlay *Overlay) CapabilitySet {
	switch tier {
	case TierOwner:
		return allCapabilities()
	case TierAdmin:
		if overlay != nil && overlay.Admin != nil {
			return *overlay.Admin
		}
		return DefaultAdmin()
	case TierMember:
		if overlay != nil && overlay.Member != nil {
			return *overlay.Member
		}
		return DefaultMember()
	}
	return CapabilitySet{}
}

// CanInvite gates the invitation flow. The gate is deliberately coarse: the
// tenant's owning user and any owner/admin-tier member may invite, regardless
// of what the fine-grained overlay says about invite_member. The overlay only
// governs the capability table surfaced elsewhere.
func CanInvite(isOwningUser bool, tier Tier) bool {
	if isOwningUser {
		return true
	}
	return tier == TierOwner || tier == TierAdmin
}

// StoredPermission is the wire/display form a tier is persisted under by the
// invitation flow: full, edit, or view.
func StoredPermission(tier Tier) string {
	switch tier {
	case TierOwner:
		return "full"
	case TierAdmin:
		return "edit"
	case TierMember:
		return "view"
	}
	return "view"
}

// TierFromStored is the inverse of StoredPermission.
func TierFromStored(stored string) (Tier, bool) {
	switch stored {
	case "full":
		return TierOwner, true
	case "edit":
		return TierAdmin, true
	case "view":
		return TierMember, true
	}
	return "", false
}
