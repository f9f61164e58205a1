package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"loyalty_system/internal/config"
	"loyalty_system/internal/db"
	"loyalty_system/internal/domain"
	"loyalty_system/internal/ratelimit"
	"loyalty_system/internal/router"
	"loyalty_system/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testSecret   = "test-secret"
	testPassword = "Passw0rd!"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter builds the real router over a fresh in-memory database.
// Each test passes a unique name so databases never bleed into each other.
func newTestRouter(t *testing.T, name string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gormDB))

	cfg := &config.Config{AppPort: "8080", JWTSecret: testSecret}
	r := router.New(gormDB, nil, cfg, ratelimit.New(60*time.Second))
	return r, gormDB
}

// seedUser inserts a user with the shared test password.
func seedUser(t *testing.T, gdb *gorm.DB, utorid, role string, points int, verified bool) *domain.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{
		Utorid:   utorid,
		Name:     utorid,
		Email:    utorid + "@mail.utoronto.ca",
		Password: string(hashed),
		Role:     role,
		Points:   points,
		Verified: verified,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func tokenFor(t *testing.T, u *domain.User) string {
	t.Helper()
	token, _, err := utils.GenerateJWT(u.ID, u.Role, testSecret)
	require.NoError(t, err)
	return token
}

// doJSON drives the router with a JSON request and returns the recorder.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

// listResponse mirrors the {count, results} shape of every list endpoint.
// Always decode into a fresh value: json.Unmarshal merges into maps that
// are already populated, so reusing one carries keys from the previous
// response into the next.
type listResponse struct {
	Count   int              `json:"count"`
	Results []map[string]any `json:"results"`
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) listResponse {
	t.Helper()
	var resp listResponse
	decode(t, w, &resp)
	return resp
}

// reloadUser fetches the current state of a user row.
func reloadUser(t *testing.T, gdb *gorm.DB, id uint) *domain.User {
	t.Helper()
	var u domain.User
	require.NoError(t, gdb.First(&u, id).Error)
	return &u
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "unexpected status, body: %s", w.Body.String())
}
