package permission

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()

	t.Run("owner holds every capability", func(t *testing.T) {
		t.Parallel()
		set := Resolve(TierOwner, nil)
		for _, cap := range []Capability{
			CapCreateProject, CapEditProject, CapDeleteProject,
			CapInviteMember, CapRemoveMember, CapManageRoles,
			CapManagePermissions, CapEditProfile,
		} {
			assert.True(t, set.Has(cap), "owner should have %s", cap)
		}
	})

	t.Run("admin defaults", func(t *testing.T) {
		t.Parallel()
		set := Resolve(TierAdmin, nil)
		assert.True(t, set.Has(CapCreateProject))
		assert.True(t, set.Has(CapEditProject))
		assert.True(t, set.Has(CapInviteMember))
		assert.True(t, set.Has(CapManageRoles))
		assert.True(t, set.Has(CapEditProfile))
		assert.False(t, set.Has(CapDeleteProject))
		assert.False(t, set.Has(CapRemoveMember))
		assert.False(t, set.Has(CapManagePermissions))
	})

	t.Run("member defaults to nothing", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, CapabilitySet{}, Resolve(TierMember, nil))
	})

	t.Run("unknown tier resolves empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, CapabilitySet{}, Resolve(Tier("superuser"), nil))
	})
}

func TestResolve_Overlay(t *testing.T) {
	t.Parallel()

	overlay := &Overlay{
		Admin:  &CapabilitySet{DeleteProject: true, RemoveMember: true},
		Member: &CapabilitySet{EditProfile: true},
	}

	t.Run("overlay replaces the admin row entirely", func(t *testing.T) {
		t.Parallel()
		set := Resolve(TierAdmin, overlay)
		assert.True(t, set.Has(CapDeleteProject))
		assert.True(t, set.Has(CapRemoveMember))
		// Defaults are not merged in.
		assert.False(t, set.Has(CapCreateProject))
		assert.False(t, set.Has(CapInviteMember))
	})

	t.Run("overlay replaces the member row", func(t *testing.T) {
		t.Parallel()
		set := Resolve(TierMember, overlay)
		assert.True(t, set.Has(CapEditProfile))
		assert.False(t, set.Has(CapCreateProject))
	})

	t.Run("owner is never overridable", func(t *testing.T) {
		t.Parallel()
		strict := &Overlay{Admin: &CapabilitySet{}, Member: &CapabilitySet{}}
		set := Resolve(TierOwner, strict)
		assert.True(t, set.Has(CapManagePermissions))
		assert.True(t, set.Has(CapDeleteProject))
	})

	t.Run("nil row falls back to defaults", func(t *testing.T) {
		t.Parallel()
		partial := &Overlay{Member: &CapabilitySet{EditProfile: true}}
		assert.Equal(t, DefaultAdmin(), Resolve(TierAdmin, partial))
	})
}

func TestCanInvite(t *testing.T) {
	t.Parallel()

	assert.True(t, CanInvite(true, TierMember), "owning user may always invite")
	assert.True(t, CanInvite(false, TierOwner))
	assert.True(t, CanInvite(false, TierAdmin))
	assert.False(t, CanInvite(false, TierMember))
	assert.False(t, CanInvite(false, Tier("")))
}

func TestCanInvite_IgnoresOverlay(t *testing.T) {
	t.Parallel()

	// The invite gate checks tier identity only. Even an overlay that strips
	// invite_member from admins does not change the answer.
	overlay := &Overlay{Admin: &CapabilitySet{}}
	assert.False(t, Resolve(TierAdmin, overlay).Has(CapInviteMember))
	assert.True(t, CanInvite(false, TierAdmin))
}

func TestStoredPermission_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, tier := range []Tier{TierOwner, TierAdmin, TierMember} {
		stored := StoredPermission(tier)
		back, ok := TierFromStored(stored)
		require.True(t, ok, "stored form %q should map back", stored)
		assert.Equal(t, tier, back)
	}

	_, ok := TierFromStored("none")
	assert.False(t, ok)
}

func TestOverlay_ScanValue(t *testing.T) {
	t.Parallel()

	in := Overlay{Admin: &CapabilitySet{CreateProject: true, ManageRoles: true}}
	raw, err := in.Value()
	require.NoError(t, err)

	var out Overlay
	require.NoError(t, out.Scan(raw))
	require.NotNil(t, out.Admin)
	assert.True(t, out.Admin.CreateProject)
	assert.Nil(t, out.Member)

	// Column read back as string by some drivers.
	b, err := json.Marshal(in)
	require.NoError(t, err)
	var out2 Overlay
	require.NoError(t, out2.Scan(string(b)))
	require.NotNil(t, out2.Admin)
	assert.True(t, out2.Admin.ManageRoles)

	var out3 Overlay
	require.NoError(t, out3.Scan(nil))
	assert.Nil(t, out3.Admin)
}
