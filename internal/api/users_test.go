package api_test

import (
	"net/http"
	"testing"
	"time"

	"loyalty_system/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	r, gdb := newTestRouter(t, "users_create")
	cashier := seedUser(t, gdb, "cashier1", domain.RoleCashier, 0, true)

	w := doJSON(t, r, http.MethodPost, "/users", tokenFor(t, cashier), map[string]any{
		"utorid": "newuser1", "name": "New User", "email": "new.user@mail.utoronto.ca",
	})
	requireStatus(t, w, http.StatusCreated)

	var resp map[string]any
	decode(t, w, &resp)
	assert.Equal(t, "newuser1", resp["utorid"])
	assert.Equal(t, false, resp["verified"])
	assert.NotEmpty(t, resp["resetToken"])

	// Duplicate utorid.
	w = doJSON(t, r, http.MethodPost, "/users", tokenFor(t, cashier), map[string]any{
		"utorid": "newuser1", "name": "Other", "email": "other@mail.utoronto.ca",
	})
	requireStatus(t, w, http.StatusConflict)

	// Malformed utorid and wrong email domain.
	w = doJSON(t, r, http.MethodPost, "/users", tokenFor(t, cashier), map[string]any{
		"utorid": "short", "name": "x", "email": "x@mail.utoronto.ca",
	})
	requireStatus(t, w, http.StatusBadRequest)
	w = doJSON(t, r, http.MethodPost, "/users", tokenFor(t, cashier), map[string]any{
		"utorid": "newuser2", "name": "x", "email": "x@gmail.com",
	})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestCreateUserClearance(t *testing.T) {
	r, gdb := newTestRouter(t, "users_create_gate")
	regular := seedUser(t, gdb, "regular1", domain.RoleRegular, 0, true)

	body := map[string]any{"utorid": "newuser1", "name": "x", "email": "x@mail.utoronto.ca"}

	w := doJSON(t, r, http.MethodPost, "/users", "", body)
	requireStatus(t, w, http.StatusUnauthorized)

	w = doJSON(t, r, http.MethodPost, "/users", tokenFor(t, regular), body)
	requireStatus(t, w, http.StatusForbidden)
}

func TestListUsers(t *testing.T) {
	r, gdb := newTestRouter(t, "users_list")
	manager := seedUser(t, gdb, "manager1", domain.RoleManager, 0, true)
	seedUser(t, gdb, "alicesmi", domain.RoleRegular, 10, true)
	seedUser(t, gdb, "bobjones", domain.RoleCashier, 20, false)

	w := doJSON(t, r, http.MethodGet, "/users", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, 3, decodeList(t, w).Count)

	// Role filter.
	w = doJSON(t, r, http.MethodGet, "/users?role=cashier", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusOK)
	cashiers := decodeList(t, w)
	require.Equal(t, 1, cashiers.Count)
	assert.Equal(t, "bobjones", cashiers.Results[0]["utorid"])

	// Name filter matches utorid too.
	w = doJSON(t, r, http.MethodGet, "/users?name=alice", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, 1, decodeList(t, w).Count)

	// Pagination.
	w = doJSON(t, r, http.MethodGet, "/users?limit=2&page=2", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusOK)
	page := decodeList(t, w)
	assert.Equal(t, 3, page.Count)
	assert.Len(t, page.Results, 1)

	// Bad inputs.
	w = doJSON(t, r, http.MethodGet, "/users?page=0", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusBadRequest)
	w = doJSON(t, r, http.MethodGet, "/users?verified=maybe", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusBadRequest)
	w = doJSON(t, r, http.MethodGet, "/users?sortBy=password", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestGetOwnProfile(t *testing.T) {
	r, gdb := newTestRouter(t, "users_me")
	user := seedUser(t, gdb, "alicesmi", domain.RoleRegular, 55, true)

	// An eligible one-time promotion and a consumed one.
	now := time.Now()
	open := domain.Promotion{
		Name: "welcome", Description: "d", Type: domain.PromotionOneTime,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
	}
	require.NoError(t, gdb.Create(&open).Error)
	used := domain.Promotion{
		Name: "spent", Description: "d", Type: domain.PromotionOneTime,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
	}
	require.NoError(t, gdb.Create(&used).Error)
	tx := domain.Transaction{
		Type: domain.TxPurchase, Points: 4, UserID: user.ID, CreatedByID: user.ID,
		Promotions: []domain.Promotion{used},
	}
	require.NoError(t, gdb.Create(&tx).Error)

	w := doJSON(t, r, http.MethodGet, "/users/me", tokenFor(t, user), nil)
	requireStatus(t, w, http.StatusOK)

	var resp map[string]any
	decode(t, w, &resp)
	assert.Equal(t, "alicesmi", resp["utorid"])
	assert.Equal(t, float64(55), resp["points"])
	promos, ok := resp["promotions"].([]any)
	require.True(t, ok)
	require.Len(t, promos, 1)
	assert.Equal(t, "welcome", promos[0].(map[string]any)["name"])
}

func TestGetUserRedaction(t *testing.T) {
	r, gdb := newTestRouter(t, "users_get")
	cashier := seedUser(t, gdb, "cashier1", domain.RoleCashier, 0, true)
	manager := seedUser(t, gdb, "manager1", domain.RoleManager, 0, true)
	target := seedUser(t, gdb, "alicesmi", domain.RoleRegular, 10, true)

	w := doJSON(t, r, http.MethodGet, "/users/"+itoa(target.ID), tokenFor(t, cashier), nil)
	requireStatus(t, w, http.StatusOK)
	var redacted map[string]any
	decode(t, w, &redacted)
	assert.Equal(t, "alicesmi", redacted["utorid"])
	assert.NotContains(t, redacted, "email")
	assert.NotContains(t, redacted, "suspicious")

	w = doJSON(t, r, http.MethodGet, "/users/"+itoa(target.ID), tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusOK)
	var full map[string]any
	decode(t, w, &full)
	assert.Contains(t, full, "email")
	assert.Contains(t, full, "suspicious")

	w = doJSON(t, r, http.MethodGet, "/users/999", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusNotFound)
}

func TestUpdateOwnProfile(t *testing.T) {
	r, gdb := newTestRouter(t, "users_patch_me")
	user := seedUser(t, gdb, "alicesmi", domain.RoleRegular, 0, true)

	w := doJSON(t, r, http.MethodPatch, "/users/me", tokenFor(t, user), map[string]any{
		"name": "Alice Smith", "birthday": "1999-04-12",
	})
	requireStatus(t, w, http.StatusOK)
	fresh := reloadUser(t, gdb, user.ID)
	assert.Equal(t, "Alice Smith", fresh.Name)
	require.NotNil(t, fresh.Birthday)
	assert.Equal(t, "1999-04-12", *fresh.Birthday)

	w = doJSON(t, r, http.MethodPatch, "/users/me", tokenFor(t, user), map[string]any{
		"birthday": "12/04/1999",
	})
	requireStatus(t, w, http.StatusBadRequest)

	w = doJSON(t, r, http.MethodPatch, "/users/me", tokenFor(t, user), map[string]any{})
	requireStatus(t, w, http.StatusBadRequest)

	// Taken email.
	seedUser(t, gdb, "bobjones", domain.RoleRegular, 0, true)
	w = doJSON(t, r, http.MethodPatch, "/users/me", tokenFor(t, user), map[string]any{
		"email": "bobjones@mail.utoronto.ca",
	})
	requireStatus(t, w, http.StatusConflict)
}

func TestUpdateUserRoles(t *testing.T) {
	r, gdb := newTestRouter(t, "users_patch_role")
	manager := seedUser(t, gdb, "manager1", domain.RoleManager, 0, true)
	super := seedUser(t, gdb, "superus1", domain.RoleSuperuser, 0, true)
	target := seedUser(t, gdb, "alicesmi", domain.RoleRegular, 0, false)

	path := "/users/" + itoa(target.ID)

	// Managers promote to cashier, not beyond.
	w := doJSON(t, r, http.MethodPatch, path, tokenFor(t, manager), map[string]any{"role": "cashier"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, domain.RoleCashier, reloadUser(t, gdb, target.ID).Role)

	w = doJSON(t, r, http.MethodPatch, path, tokenFor(t, manager), map[string]any{"role": "superuser"})
	requireStatus(t, w, http.StatusForbidden)

	w = doJSON(t, r, http.MethodPatch, path, tokenFor(t, super), map[string]any{"role": "manager"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, domain.RoleManager, reloadUser(t, gdb, target.ID).Role)

	// Verification is one-way.
	w = doJSON(t, r, http.MethodPatch, path, tokenFor(t, manager), map[string]any{"verified": true})
	requireStatus(t, w, http.StatusOK)
	assert.True(t, reloadUser(t, gdb, target.ID).Verified)

	w = doJSON(t, r, http.MethodPatch, path, tokenFor(t, manager), map[string]any{"verified": false})
	requireStatus(t, w, http.StatusBadRequest)

	w = doJSON(t, r, http.MethodPatch, path, tokenFor(t, manager), map[string]any{})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestUpdatePassword(t *testing.T) {
	r, gdb := newTestRouter(t, "users_password")
	user := seedUser(t, gdb, "alicesmi", domain.RoleRegular, 0, true)

	w := doJSON(t, r, http.MethodPatch, "/users/me/password", tokenFor(t, user), map[string]any{
		"old": "wrong", "new": "NewPassw0rd!",
	})
	requireStatus(t, w, http.StatusForbidden)

	w = doJSON(t, r, http.MethodPatch, "/users/me/password", tokenFor(t, user), map[string]any{
		"old": testPassword, "new": "weak",
	})
	requireStatus(t, w, http.StatusBadRequest)

	w = doJSON(t, r, http.MethodPatch, "/users/me/password", tokenFor(t, user), map[string]any{
		"old": testPassword, "new": "NewPassw0rd!",
	})
	requireStatus(t, w, http.StatusOK)

	w = doJSON(t, r, http.MethodPost, "/auth/tokens", "", map[string]any{
		"utorid": "alicesmi", "password": "NewPassw0rd!",
	})
	requireStatus(t, w, http.StatusOK)
}
