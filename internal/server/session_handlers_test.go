package server

import (
	"net/http"
	"testing"

	"atelier/internal/models"
	"atelier/internal/permission"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActiveSpace_NoneAccessible(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	_, token := createTestUser(t, s, "loner")

	resp := doJSON(t, app, http.MethodGet, "/api/session/active-space", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]*models.Tenant](t, resp)
	assert.Nil(t, body["space"])
}

func TestGetActiveSpace_DefaultFallback(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	_, token := createTestUser(t, s, "owner")
	first := createTestSpace(t, app, token, "First Room")
	createTestSpace(t, app, token, "Second Room")

	// No selection stored yet; the default space wins.
	resp := doJSON(t, app, http.MethodGet, "/api/session/active-space", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]*models.Tenant](t, resp)
	require.NotNil(t, body["space"])
	assert.Equal(t, first.ID, body["space"].ID)
}

func TestSelectActiveSpace_PersistsSelection(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	owner, token := createTestUser(t, s, "owner")
	createTestSpace(t, app, token, "First Room")
	second := createTestSpace(t, app, token, "Second Room")

	resp := doJSON(t, app, http.MethodPut, "/api/session/active-space", token,
		fiber.Map{"space_id": second.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]*models.Tenant](t, resp)
	require.NotNil(t, body["space"])
	assert.Equal(t, second.ID, body["space"].ID)

	resp = doJSON(t, app, http.MethodGet, "/api/session/active-space", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody[map[string]*models.Tenant](t, resp)
	require.NotNil(t, body["space"])
	assert.Equal(t, second.ID, body["space"].ID)

	// Selection stamps the membership's last access time.
	var m models.TenantMembership
	require.NoError(t, s.db.Where("tenant_id = ? AND user_id = ?", second.ID, owner.ID).First(&m).Error)
	assert.NotNil(t, m.LastAccessedAt)
}

func TestSelectActiveSpace_Inaccessible(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	_, ownerToken := createTestUser(t, s, "owner")
	_, strangerToken := createTestUser(t, s, "stranger")
	space := createTestSpace(t, app, ownerToken, "Blue Room")

	resp := doJSON(t, app, http.MethodPut, "/api/session/active-space", strangerToken,
		fiber.Map{"space_id": space.ID})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetActiveSpace_StaleSelectionFallsBack(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	member, memberToken := createTestUser(t, s, "member")
	_, ownerToken := createTestUser(t, s, "owner")
	space := createTestSpace(t, app, ownerToken, "Blue Room")
	own := createTestSpace(t, app, memberToken, "My Room")

	m := &models.TenantMembership{TenantID: space.ID, UserID: member.ID, Tier: permission.TierMember}
	require.NoError(t, s.db.Create(m).Error)

	resp := doJSON(t, app, http.MethodPut, "/api/session/active-space", memberToken,
		fiber.Map{"space_id": space.ID})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The selected space disappears; resolution falls back to the default.
	require.NoError(t, s.db.Delete(m).Error)

	resp = doJSON(t, app, http.MethodGet, "/api/session/active-space", memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]*models.Tenant](t, resp)
	require.NotNil(t, body["space"])
	assert.Equal(t, own.ID, body["space"].ID)
}
