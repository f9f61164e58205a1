package api_test

import (
	"net/http"
	"testing"

	"loyalty_system/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	r, gdb := newTestRouter(t, "auth_login")
	user := seedUser(t, gdb, "alicesmi", domain.RoleRegular, 0, true)

	w := doJSON(t, r, http.MethodPost, "/auth/tokens", "", map[string]any{
		"utorid": "alicesmi", "password": testPassword,
	})
	requireStatus(t, w, http.StatusOK)

	var resp map[string]any
	decode(t, w, &resp)
	assert.NotEmpty(t, resp["token"])
	assert.NotEmpty(t, resp["expiresAt"])

	// A successful login stamps lastLogin.
	assert.NotNil(t, reloadUser(t, gdb, user.ID).LastLogin)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, gdb := newTestRouter(t, "auth_login_bad")
	seedUser(t, gdb, "alicesmi", domain.RoleRegular, 0, true)

	w := doJSON(t, r, http.MethodPost, "/auth/tokens", "", map[string]any{
		"utorid": "alicesmi", "password": "wrong-password",
	})
	requireStatus(t, w, http.StatusUnauthorized)

	w = doJSON(t, r, http.MethodPost, "/auth/tokens", "", map[string]any{
		"utorid": "nobodyxx", "password": testPassword,
	})
	requireStatus(t, w, http.StatusUnauthorized)

	w = doJSON(t, r, http.MethodPost, "/auth/tokens", "", map[string]any{
		"utorid": "alicesmi",
	})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestPasswordResetFlow(t *testing.T) {
	r, gdb := newTestRouter(t, "auth_reset")
	user := seedUser(t, gdb, "alicesmi", domain.RoleRegular, 0, true)

	w := doJSON(t, r, http.MethodPost, "/auth/resets", "", map[string]any{"utorid": "alicesmi"})
	requireStatus(t, w, http.StatusAccepted)

	var resp map[string]any
	decode(t, w, &resp)
	token, ok := resp["resetToken"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// Weak passwords are rejected before the token is consumed.
	w = doJSON(t, r, http.MethodPost, "/auth/resets/"+token, "", map[string]any{
		"utorid": "alicesmi", "password": "weak",
	})
	requireStatus(t, w, http.StatusBadRequest)

	// The token belongs to alicesmi only.
	seedUser(t, gdb, "bobjones", domain.RoleRegular, 0, true)
	w = doJSON(t, r, http.MethodPost, "/auth/resets/"+token, "", map[string]any{
		"utorid": "bobjones", "password": "NewPassw0rd!",
	})
	requireStatus(t, w, http.StatusUnauthorized)

	w = doJSON(t, r, http.MethodPost, "/auth/resets/"+token, "", map[string]any{
		"utorid": "alicesmi", "password": "NewPassw0rd!",
	})
	requireStatus(t, w, http.StatusOK)

	// Token fields are cleared and the new password works.
	fresh := reloadUser(t, gdb, user.ID)
	assert.Nil(t, fresh.ResetToken)

	w = doJSON(t, r, http.MethodPost, "/auth/tokens", "", map[string]any{
		"utorid": "alicesmi", "password": "NewPassw0rd!",
	})
	requireStatus(t, w, http.StatusOK)
}

func TestPasswordResetRateLimited(t *testing.T) {
	r, gdb := newTestRouter(t, "auth_reset_rl")
	seedUser(t, gdb, "alicesmi", domain.RoleRegular, 0, true)

	w := doJSON(t, r, http.MethodPost, "/auth/resets", "", map[string]any{"utorid": "alicesmi"})
	requireStatus(t, w, http.StatusAccepted)

	// Same client address inside the window.
	w = doJSON(t, r, http.MethodPost, "/auth/resets", "", map[string]any{"utorid": "alicesmi"})
	requireStatus(t, w, http.StatusTooManyRequests)
}

func TestPasswordResetUnknownUser(t *testing.T) {
	r, _ := newTestRouter(t, "auth_reset_404")

	w := doJSON(t, r, http.MethodPost, "/auth/resets", "", map[string]any{"utorid": "nobodyxx"})
	requireStatus(t, w, http.StatusNotFound)
}
