package api_test

import (
	"net/http"
	"testing"
	"time"

	"loyalty_system/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePromotion(t *testing.T) {
	r, gdb := newTestRouter(t, "promo_create")
	manager := seedUser(t, gdb, "manager1", domain.RoleManager, 0, true)

	start := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)

	w := doJSON(t, r, http.MethodPost, "/promotions", tokenFor(t, manager), map[string]any{
		"name": "welcome", "description": "d", "type": "one-time",
		"startTime": start, "endTime": end, "points": 20,
	})
	requireStatus(t, w, http.StatusCreated)
	var resp map[string]any
	decode(t, w, &resp)
	assert.Equal(t, "one-time", resp["type"])

	// Window validation.
	w = doJSON(t, r, http.MethodPost, "/promotions", tokenFor(t, manager), map[string]any{
		"name": "x", "description": "d", "type": "automatic",
		"startTime": end, "endTime": start,
	})
	requireStatus(t, w, http.StatusBadRequest)
	w = doJSON(t, r, http.MethodPost, "/promotions", tokenFor(t, manager), map[string]any{
		"name": "x", "description": "d", "type": "automatic",
		"startTime": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339), "endTime": end,
	})
	requireStatus(t, w, http.StatusBadRequest)
	w = doJSON(t, r, http.MethodPost, "/promotions", tokenFor(t, manager), map[string]any{
		"name": "x", "description": "d", "type": "weekly",
		"startTime": start, "endTime": end,
	})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestListPromotionsByClearance(t *testing.T) {
	r, gdb := newTestRouter(t, "promo_list")
	manager := seedUser(t, gdb, "manager1", domain.RoleManager, 0, true)
	user := seedUser(t, gdb, "alicesmi", domain.RoleRegular, 0, true)

	now := time.Now()
	active := domain.Promotion{
		Name: "active", Description: "d", Type: domain.PromotionAutomatic,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
	}
	future := domain.Promotion{
		Name: "future", Description: "d", Type: domain.PromotionAutomatic,
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	}
	usedUp := domain.Promotion{
		Name: "usedup", Description: "d", Type: domain.PromotionOneTime,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
	}
	require.NoError(t, gdb.Create(&active).Error)
	require.NoError(t, gdb.Create(&future).Error)
	require.NoError(t, gdb.Create(&usedUp).Error)
	tx := domain.Transaction{
		Type: domain.TxPurchase, Points: 4, UserID: user.ID, CreatedByID: manager.ID,
		Promotions: []domain.Promotion{usedUp},
	}
	require.NoError(t, gdb.Create(&tx).Error)

	// Managers see everything.
	w := doJSON(t, r, http.MethodGet, "/promotions", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusOK)
	elevated := decodeList(t, w)
	assert.Equal(t, 3, elevated.Count)
	assert.Contains(t, elevated.Results[0], "startTime")

	// Regulars see only active rows they can still use, with no startTime.
	w = doJSON(t, r, http.MethodGet, "/promotions", tokenFor(t, user), nil)
	requireStatus(t, w, http.StatusOK)
	redacted := decodeList(t, w)
	require.Equal(t, 1, redacted.Count)
	assert.Equal(t, "active", redacted.Results[0]["name"])
	assert.NotContains(t, redacted.Results[0], "startTime")

	// started and ended are mutually exclusive.
	w = doJSON(t, r, http.MethodGet, "/promotions?started=true&ended=true", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusBadRequest)

	w = doJSON(t, r, http.MethodGet, "/promotions?started=false", tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusOK)
	upcoming := decodeList(t, w)
	require.Equal(t, 1, upcoming.Count)
	assert.Equal(t, "future", upcoming.Results[0]["name"])
}

func TestGetPromotionVisibility(t *testing.T) {
	r, gdb := newTestRouter(t, "promo_get")
	manager := seedUser(t, gdb, "manager1", domain.RoleManager, 0, true)
	user := seedUser(t, gdb, "alicesmi", domain.RoleRegular, 0, true)

	now := time.Now()
	future := domain.Promotion{
		Name: "future", Description: "d", Type: domain.PromotionAutomatic,
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	}
	require.NoError(t, gdb.Create(&future).Error)

	// Inactive promotions look missing below manager clearance.
	w := doJSON(t, r, http.MethodGet, "/promotions/"+itoa(future.ID), tokenFor(t, user), nil)
	requireStatus(t, w, http.StatusNotFound)

	w = doJSON(t, r, http.MethodGet, "/promotions/"+itoa(future.ID), tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusOK)
}

func TestUpdatePromotionLockedAfterStart(t *testing.T) {
	r, gdb := newTestRouter(t, "promo_patch")
	manager := seedUser(t, gdb, "manager1", domain.RoleManager, 0, true)

	now := time.Now()
	upcoming := domain.Promotion{
		Name: "upcoming", Description: "d", Type: domain.PromotionAutomatic,
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	}
	started := domain.Promotion{
		Name: "started", Description: "d", Type: domain.PromotionAutomatic,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
	}
	require.NoError(t, gdb.Create(&upcoming).Error)
	require.NoError(t, gdb.Create(&started).Error)

	w := doJSON(t, r, http.MethodPatch, "/promotions/"+itoa(upcoming.ID), tokenFor(t, manager), map[string]any{
		"name": "renamed", "points": 15,
	})
	requireStatus(t, w, http.StatusOK)
	var fresh domain.Promotion
	require.NoError(t, gdb.First(&fresh, upcoming.ID).Error)
	assert.Equal(t, "renamed", fresh.Name)
	require.NotNil(t, fresh.Points)
	assert.Equal(t, 15, *fresh.Points)

	// Launched promotions are locked in.
	w = doJSON(t, r, http.MethodPatch, "/promotions/"+itoa(started.ID), tokenFor(t, manager), map[string]any{
		"name": "renamed",
	})
	requireStatus(t, w, http.StatusBadRequest)

	w = doJSON(t, r, http.MethodPatch, "/promotions/"+itoa(upcoming.ID), tokenFor(t, manager), map[string]any{})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestDeletePromotion(t *testing.T) {
	r, gdb := newTestRouter(t, "promo_delete")
	manager := seedUser(t, gdb, "manager1", domain.RoleManager, 0, true)

	now := time.Now()
	upcoming := domain.Promotion{
		Name: "upcoming", Description: "d", Type: domain.PromotionAutomatic,
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	}
	started := domain.Promotion{
		Name: "started", Description: "d", Type: domain.PromotionAutomatic,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
	}
	require.NoError(t, gdb.Create(&upcoming).Error)
	require.NoError(t, gdb.Create(&started).Error)

	w := doJSON(t, r, http.MethodDelete, "/promotions/"+itoa(started.ID), tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusForbidden)

	w = doJSON(t, r, http.MethodDelete, "/promotions/"+itoa(upcoming.ID), tokenFor(t, manager), nil)
	requireStatus(t, w, http.StatusNoContent)
	var n int64
	require.NoError(t, gdb.Model(&domain.Promotion{}).Where("id = ?", upcoming.ID).Count(&n).Error)
	assert.Zero(t, n)
}
