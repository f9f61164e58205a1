package api

import (
	"errors"   // Error handling
	"net/http" // HTTP status codes
	"regexp"   // Utorid validation
	"strconv"  // String conversion
	"strings"  // String helpers
	"time"     // Timestamps and windows

	"loyalty_system/internal/domain"
	"loyalty_system/internal/middleware"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Activation token generation
	"github.com/sirupsen/logrus" // Logrus logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// activationTokenLifetime is how long a freshly registered account has to
// set its first password.
const activationTokenLifetime = 7 * 24 * time.Hour

var (
	utoridPattern = regexp.MustCompile(`^[a-zA-Z0-9]{8}$`)
	emailDomain   = "@mail.utoronto.ca"
)

// userResponse is the full profile projection returned to elevated callers
// and to the user themselves.
type userResponse struct {
	ID         uint    `json:"id"`
	Utorid     string  `json:"utorid"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Birthday   *string `json:"birthday"`
	Role       string  `json:"role"`
	Points     int     `json:"points"`
	CreatedAt  string  `json:"createdAt"`
	LastLogin  *string `json:"lastLogin"`
	Verified   bool    `json:"verified"`
	Suspicious bool    `json:"suspicious"`
	AvatarURL  *string `json:"avatarUrl"`
}

// promotionSummary is the promotion shape embedded in user profiles.
type promotionSummary struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	MinSpending *float64 `json:"minSpending"`
	Rate        *float64 `json:"rate"`
	Points      *int     `json:"points"`
}

func toUserResponse(u *domain.User) userResponse {
	var lastLogin *string
	if u.LastLogin != nil {
		s := u.LastLogin.Format(time.RFC3339)
		lastLogin = &s
	}
	var avatar *string
	if u.AvatarURL != "" {
		a := u.AvatarURL
		avatar = &a
	}
	return userResponse{
		ID:         u.ID,
		Utorid:     u.Utorid,
		Name:       u.Name,
		Email:      u.Email,
		Birthday:   u.Birthday,
		Role:       strings.ToLower(u.Role),
		Points:     u.Points,
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
		LastLogin:  lastLogin,
		Verified:   u.Verified,
		Suspicious: u.Suspicious,
		AvatarURL:  avatar,
	}
}

// eligiblePromotions lists promotions whose window contains now and that the
// user can still consume. When automaticAlways is true, AUTOMATIC promotions
// are listed regardless of prior use; ONETIME ones are always filtered by
// usage.
func eligiblePromotions(db *gorm.DB, userID uint, now time.Time, automaticAlways bool) ([]promotionSummary, error) {
	var promos []domain.Promotion
	if err := db.Where("start_time <= ? AND end_time > ?", now, now).Find(&promos).Error; err != nil {
		return nil, err
	}
	out := make([]promotionSummary, 0, len(promos))
	for i := range promos {
		p := &promos[i]
		if p.Type != domain.PromotionAutomatic || !automaticAlways {
			used, err := promotionUsed(db, p.ID, userID)
			if err != nil {
				return nil, err
			}
			if used {
				continue
			}
		}
		out = append(out, promotionSummary{
			ID:          p.ID,
			Name:        p.Name,
			MinSpending: p.MinSpending,
			Rate:        p.Rate,
			Points:      p.Points,
		})
	}
	return out, nil
}

// CreateUserHandler registers a new account. The caller must be a cashier
// or above; the new user starts unverified with a time-limited activation
// token they redeem through the password reset flow.
func CreateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceCashier) {
			return
		}

		var req struct {
			Utorid string `json:"utorid"`
			Name   string `json:"name"`
			Email  string `json:"email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if !utoridPattern.MatchString(req.Utorid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "utorid must be 8 alphanumeric characters"})
			return
		}
		if len(req.Name) < 1 || len(req.Name) > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must be 1-50 characters"})
			return
		}
		if !strings.HasSuffix(req.Email, emailDomain) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email must be a valid University of Toronto address"})
			return
		}

		var existing domain.User
		if err := db.Where("utorid = ?", req.Utorid).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "A user with this utorid already exists"})
			return
		}

		token := uuid.NewString()
		expiresAt := time.Now().Add(activationTokenLifetime)
		user := domain.User{
			Utorid:         req.Utorid,
			Name:           req.Name,
			Email:          req.Email,
			Role:           domain.RoleRegular,
			ResetToken:     &token,
			ResetExpiresAt: &expiresAt,
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		logrus.Infof("User %s registered by user %d", user.Utorid, middleware.CurrentUser(c).ID)
		c.JSON(http.StatusCreated, gin.H{
			"id":         user.ID,
			"utorid":     user.Utorid,
			"name":       user.Name,
			"email":      user.Email,
			"verified":   user.Verified,
			"expiresAt":  expiresAt.Format(time.RFC3339),
			"resetToken": token,
		})
	}
}

// userSortColumns whitelists the sortBy values for the user listing.
var userSortColumns = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
	"lastLogin": "last_login",
	"role":      "role",
	"points":    "points",
	"utorid":    "utorid",
}

// ListUsersHandler returns a paginated, filterable user listing for
// managers and above.
func ListUsersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}
		page, limit, ok := parsePagination(c)
		if !ok {
			return
		}

		q := db.Model(&domain.User{})
		if name := c.Query("name"); name != "" {
			q = q.Where("name LIKE ? OR utorid LIKE ?", "%"+name+"%", "%"+name+"%")
		}
		if role := c.Query("role"); role != "" {
			q = q.Where("role = ?", strings.ToUpper(role))
		}
		verified, ok := parseBoolQuery(c, "verified")
		if !ok {
			return
		}
		if verified != nil {
			q = q.Where("verified = ?", *verified)
		}
		activated, ok := parseBoolQuery(c, "activated")
		if !ok {
			return
		}
		if activated != nil {
			if *activated {
				q = q.Where("last_login IS NOT NULL")
			} else {
				q = q.Where("last_login IS NULL")
			}
		}

		var count int64
		if err := q.Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}

		order := "id"
		if sortBy := c.Query("sortBy"); sortBy != "" {
			col, ok := userSortColumns[sortBy]
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sortBy field"})
				return
			}
			order = col
		}
		if dir := c.Query("sortOrder"); dir != "" {
			if dir != "asc" && dir != "desc" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "sortOrder must be asc or desc"})
				return
			}
			order += " " + dir
		}

		var users []domain.User
		if err := q.Order(order).Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
			return
		}

		results := make([]gin.H, 0, len(users))
		for i := range users {
			resp := toUserResponse(&users[i])
			results = append(results, gin.H{
				"id":        resp.ID,
				"utorid":    resp.Utorid,
				"name":      resp.Name,
				"email":     resp.Email,
				"birthday":  resp.Birthday,
				"role":      resp.Role,
				"points":    resp.Points,
				"createdAt": resp.CreatedAt,
				"lastLogin": resp.LastLogin,
				"verified":  resp.Verified,
				"avatarUrl": resp.AvatarURL,
				"activated": users[i].LastLogin != nil,
			})
		}
		c.JSON(http.StatusOK, gin.H{"count": count, "results": results})
	}
}

// GetUserHandler serves both GET /users/me (own profile with eligible
// promotions) and GET /users/:userId (cashier lookup, redacted below
// manager). The two share one route because gin cannot register a static
// sibling of a path parameter.
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("userId") == "me" {
			getOwnProfile(c, db)
			return
		}
		getUserByID(c, db)
	}
}

func getOwnProfile(c *gin.Context, db *gorm.DB) {
	if !requireClearance(c, domain.ClearanceRegular) {
		return
	}
	user := middleware.CurrentUser(c)

	promos, err := eligiblePromotions(db, user.ID, time.Now(), true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load promotions"})
		return
	}

	resp := toUserResponse(user)
	c.JSON(http.StatusOK, gin.H{
		"id":         resp.ID,
		"utorid":     resp.Utorid,
		"name":       resp.Name,
		"email":      resp.Email,
		"birthday":   resp.Birthday,
		"role":       resp.Role,
		"points":     resp.Points,
		"createdAt":  resp.CreatedAt,
		"lastLogin":  resp.LastLogin,
		"verified":   resp.Verified,
		"avatarUrl":  resp.AvatarURL,
		"promotions": promos,
	})
}

func getUserByID(c *gin.Context, db *gorm.DB) {
	if !requireClearance(c, domain.ClearanceCashier) {
		return
	}
	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var user domain.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	promos, err := eligiblePromotions(db, user.ID, time.Now(), false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load promotions"})
		return
	}

	if middleware.CurrentClearance(c) < domain.ClearanceManager {
		c.JSON(http.StatusOK, gin.H{
			"id":         user.ID,
			"utorid":     user.Utorid,
			"name":       user.Name,
			"points":     user.Points,
			"verified":   user.Verified,
			"promotions": promos,
		})
		return
	}

	resp := toUserResponse(&user)
	c.JSON(http.StatusOK, gin.H{
		"id":         resp.ID,
		"utorid":     resp.Utorid,
		"name":       resp.Name,
		"email":      resp.Email,
		"birthday":   resp.Birthday,
		"role":       resp.Role,
		"points":     resp.Points,
		"createdAt":  resp.CreatedAt,
		"lastLogin":  resp.LastLogin,
		"verified":   resp.Verified,
		"suspicious": resp.Suspicious,
		"avatarUrl":  resp.AvatarURL,
		"promotions": promos,
	})
}

// UpdateUserHandler serves PATCH /users/me (profile self-service) and
// PATCH /users/:userId (manager administration).
func UpdateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("userId") == "me" {
			updateOwnProfile(c, db)
			return
		}
		updateUserByID(c, db)
	}
}

func updateOwnProfile(c *gin.Context, db *gorm.DB) {
	if !requireClearance(c, domain.ClearanceRegular) {
		return
	}
	user := middleware.CurrentUser(c)

	var req struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Birthday *string `json:"birthday"`
		Avatar   *string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name == nil && req.Email == nil && req.Birthday == nil && req.Avatar == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No changes provided"})
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		if len(*req.Name) < 1 || len(*req.Name) > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must be 1-50 characters"})
			return
		}
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		if !strings.HasSuffix(*req.Email, emailDomain) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email must be a valid University of Toronto address"})
			return
		}
		var other domain.User
		if err := db.Where("email = ? AND id <> ?", *req.Email, user.ID).First(&other).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
			return
		}
		updates["email"] = *req.Email
	}
	if req.Birthday != nil {
		t, err := time.Parse("2006-01-02", *req.Birthday)
		if err != nil || t.Format("2006-01-02") != *req.Birthday {
			c.JSON(http.StatusBadRequest, gin.H{"error": "birthday must be a valid YYYY-MM-DD date"})
			return
		}
		updates["birthday"] = *req.Birthday
	}
	if req.Avatar != nil {
		updates["avatar_url"] = *req.Avatar
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	var fresh domain.User
	if err := db.First(&fresh, user.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(&fresh))
}

func updateUserByID(c *gin.Context, db *gorm.DB) {
	if !requireClearance(c, domain.ClearanceManager) {
		return
	}
	clearance := middleware.CurrentClearance(c)

	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var user domain.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	var req struct {
		Email      *string `json:"email"`
		Verified   *bool   `json:"verified"`
		Suspicious *bool   `json:"suspicious"`
		Role       *string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Email == nil && req.Verified == nil && req.Suspicious == nil && req.Role == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No changes provided"})
		return
	}

	updates := map[string]any{}
	resp := gin.H{"id": user.ID, "utorid": user.Utorid, "name": user.Name}

	if req.Email != nil {
		if !strings.HasSuffix(*req.Email, emailDomain) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email must be a valid University of Toronto address"})
			return
		}
		updates["email"] = *req.Email
		resp["email"] = *req.Email
	}
	if req.Verified != nil {
		// Verification is one-way.
		if !*req.Verified {
			c.JSON(http.StatusBadRequest, gin.H{"error": "verified can only be set to true"})
			return
		}
		updates["verified"] = true
		resp["verified"] = true
	}
	if req.Suspicious != nil {
		updates["suspicious"] = *req.Suspicious
		resp["suspicious"] = *req.Suspicious
	}
	if req.Role != nil {
		role := strings.ToUpper(*req.Role)
		switch role {
		case domain.RoleRegular, domain.RoleCashier, domain.RoleManager, domain.RoleSuperuser:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		if clearance < domain.ClearanceSuperuser && role != domain.RoleRegular && role != domain.RoleCashier {
			c.JSON(http.StatusForbidden, gin.H{"error": "Managers may only assign regular or cashier"})
			return
		}
		updates["role"] = role
		// A fresh cashier starts with a clean record unless stated otherwise.
		if role == domain.RoleCashier && req.Suspicious == nil {
			updates["suspicious"] = false
		}
		resp["role"] = strings.ToLower(role)
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	logrus.Infof("User %d updated by user %d", user.ID, middleware.CurrentUser(c).ID)
	c.JSON(http.StatusOK, resp)
}

// UpdatePasswordHandler changes the caller's own password after verifying
// the old one. Only the "me" form of the route exists.
func UpdatePasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("userId") != "me" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		user := middleware.CurrentUser(c)

		var req struct {
			Old string `json:"old"`
			New string `json:"new"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Old == "" || req.New == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "old and new passwords are required"})
			return
		}
		if !validPassword(req.New) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-20 characters with an uppercase letter, a lowercase letter, a number and a special character"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Old)); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Incorrect current password"})
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		if err := db.Model(user).Update("password", string(hashed)).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
	}
}
