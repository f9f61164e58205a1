package middleware

import (
	"strings" // String manipulation

	"loyalty_system/internal/domain"
	"loyalty_system/internal/utils"

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Context keys set by Auth.
const (
	ContextUserKey      = "authUser"
	ContextClearanceKey = "clearance"
)

// Auth resolves the bearer credential to a (user, clearance) pair and never
// aborts: a missing, malformed or expired token, or a token for a deleted
// user, resolves to (nil, ClearanceAny). Handlers decide whether ANY is
// sufficient. The user record is re-fetched on every request so role and
// suspicious changes take effect immediately; only signature and expiry are
// trusted from the token.
func Auth(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextClearanceKey, domain.ClearanceAny)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseJWT(tokenStr, secret)
		if err != nil {
			c.Next()
			return
		}
		var user domain.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			c.Next()
			return
		}
		c.Set(ContextUserKey, &user)
		c.Set(ContextClearanceKey, domain.ClearanceForRole(user.Role))
		c.Next()
	}
}

// CurrentUser returns the resolved principal, or nil when the request was
// anonymous.
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(ContextUserKey); ok {
		if user, ok := v.(*domain.User); ok {
			return user
		}
	}
	return nil
}

// CurrentClearance returns the caller's clearance tier.
func CurrentClearance(c *gin.Context) domain.Clearance {
	if v, ok := c.Get(ContextClearanceKey); ok {
		if clearance, ok := v.(domain.Clearance); ok {
			return clearance
		}
	}
	return domain.ClearanceAny
}
