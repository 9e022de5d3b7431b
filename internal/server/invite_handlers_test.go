package server

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"atelier/internal/models"
	"atelier/internal/permission"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parkedPasscodes(t *testing.T, s *Server) []string {
	t.Helper()
	keys, err := s.redis.Keys(context.Background(), "invite_otp:*").Result()
	require.NoError(t, err)
	codes := make([]string, 0, len(keys))
	for _, k := range keys {
		codes = append(codes, strings.TrimPrefix(k, "invite_otp:"))
	}
	return codes
}

func TestInviteMember_AttachesRegisteredUser(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	_, ownerToken := createTestUser(t, s, "owner")
	invitee, _ := createTestUser(t, s, "invitee")
	space := createTestSpace(t, app, ownerToken, "Blue Room")

	resp := doJSON(t, app, http.MethodPost, spacePath(space.ID, "/invites"), ownerToken,
		fiber.Map{"email": "Invitee@Example.com", "tier": "admin", "permission": "edit"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[service.InviteResult](t, resp)

	assert.Equal(t, service.InviteOutcomeAttached, result.Outcome)
	require.NotNil(t, result.Membership)
	assert.Equal(t, invitee.ID, result.Membership.UserID)
	assert.Equal(t, permission.TierAdmin, result.Membership.Tier)
	assert.Empty(t, parkedPasscodes(t, s), "no passcode for registered users")
}

func TestInviteMember_AlreadyMember(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	_, ownerToken := createTestUser(t, s, "owner")
	invitee, _ := createTestUser(t, s, "invitee")
	space := createTestSpace(t, app, ownerToken, "Blue Room")

	require.NoError(t, s.db.Create(&models.TenantMembership{
		TenantID: space.ID, UserID: invitee.ID, Tier: permission.TierMember,
	}).Error)

	resp := doJSON(t, app, http.MethodPost, spacePath(space.ID, "/invites"), ownerToken,
		fiber.Map{"email": "invitee@example.com", "tier": "member", "permission": "view"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestInviteMember_RequiresTierAndPermission(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	_, ownerToken := createTestUser(t, s, "owner")
	space := createTestSpace(t, app, ownerToken, "Blue Room")

	for _, body := range []fiber.Map{
		{"email": "someone@example.com", "permission": "view"},
		{"email": "someone@example.com", "tier": "member"},
	} {
		resp := doJSON(t, app, http.MethodPost, spacePath(space.ID, "/invites"), ownerToken, body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		errResp := decodeBody[models.ErrorResponse](t, resp)
		assert.Equal(t, models.CodeMissingField, errResp.Code)
	}
}

func TestInviteMember_MemberTierForbidden(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	_, ownerToken := createTestUser(t, s, "owner")
	member, memberToken := createTestUser(t, s, "member")
	space := createTestSpace(t, app, ownerToken, "Blue Room")

	require.NoError(t, s.db.Create(&models.TenantMembership{
		TenantID: space.ID, UserID: member.ID, Tier: permission.TierMember,
	}).Error)

	resp := doJSON(t, app, http.MethodPost, spacePath(space.ID, "/invites"), memberToken,
		fiber.Map{"email": "someone@example.com", "tier": "member", "permission": "view"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInviteMember_UnknownAddressDispatchesPasscode(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	_, ownerToken := createTestUser(t, s, "owner")
	space := createTestSpace(t, app, ownerToken, "Blue Room")

	resp := doJSON(t, app, http.MethodPost, spacePath(space.ID, "/invites"), ownerToken,
		fiber.Map{"email": "newcomer@example.com", "tier": "member", "permission": "view"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[service.InviteResult](t, resp)

	assert.Equal(t, service.InviteOutcomeDispatched, result.Outcome)
	assert.Nil(t, result.Membership)
	assert.Len(t, parkedPasscodes(t, s), 1)
}

func TestPasscodeSignIn_CompletesInvitation(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)
	_, ownerToken := createTestUser(t, s, "owner")
	space := createTestSpace(t, app, ownerToken, "Blue Room")

	resp := doJSON(t, app, http.MethodPost, spacePath(space.ID, "/invites"), ownerToken,
		fiber.Map{"email": "newcomer@example.com", "tier": "member", "permission": "view"})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	codes := parkedPasscodes(t, s)
	require.Len(t, codes, 1)

	resp = doJSON(t, app, http.MethodPost, "/api/auth/passcode", "",
		fiber.Map{"passcode": codes[0], "username": "newcomer", "password": "s3cretpass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[struct {
		Token      string                   `json:"token"`
		User       *models.User             `json:"user"`
		Membership *models.TenantMembership `json:"membership"`
	}](t, resp)

	assert.NotEmpty(t, body.Token)
	require.NotNil(t, body.User)
	assert.Equal(t, "newcomer@example.com", body.User.Email)
	require.NotNil(t, body.Membership)
	assert.Equal(t, space.ID, body.Membership.TenantID)
	assert.Empty(t, parkedPasscodes(t, s), "passcode is single use")

	// The fresh token works against protected routes.
	resp = doJSON(t, app, http.MethodGet, "/api/spaces", body.Token, nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPasscodeSignIn_InvalidPasscode(t *testing.T) {
	t.Parallel()
	_, app := newTestServer(t)

	resp := doJSON(t, app, http.MethodPost, "/api/auth/passcode", "",
		fiber.Map{"passcode": "not-a-real-passcode", "username": "x", "password": "s3cretpass"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
