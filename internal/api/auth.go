package api

import (
	"errors"   // Error handling
	"net/http" // HTTP status codes
	"time"     // Token lifetimes

	"loyalty_system/internal/domain"
	"loyalty_system/internal/ratelimit"
	"loyalty_system/internal/utils"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Reset token generation
	"github.com/sirupsen/logrus" // Logrus logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// resetTokenLifetime bounds how long a password reset token stays valid.
const resetTokenLifetime = time.Hour

// LoginHandler exchanges utorid/password credentials for a signed bearer
// token. Unknown users and wrong passwords are indistinguishable to the
// caller.
func LoginHandler(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Utorid   string `json:"utorid"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Utorid == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "utorid and password are required"})
			return
		}

		var user domain.User
		if err := db.Where("utorid = ?", req.Utorid).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		token, expiresAt, err := utils.GenerateJWT(user.ID, user.Role, secret)
		if err != nil {
			logrus.Errorf("Failed to sign token for %s: %v", user.Utorid, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		now := time.Now()
		if err := db.Model(&user).Update("last_login", &now).Error; err != nil {
			logrus.Warnf("Failed to record last login for %s: %v", user.Utorid, err)
		}

		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"expiresAt": expiresAt.Format(time.RFC3339),
		})
	}
}

// ResetRequestHandler issues a password reset token for a utorid. Requests
// are rate limited per client address regardless of whether the utorid
// exists.
func ResetRequestHandler(db *gorm.DB, limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Utorid string `json:"utorid"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Utorid == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "utorid is required"})
			return
		}

		if !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		var user domain.User
		if err := db.Where("utorid = ?", req.Utorid).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
			return
		}

		token := uuid.NewString()
		expiresAt := time.Now().Add(resetTokenLifetime)
		if err := db.Model(&user).Updates(map[string]any{
			"reset_token":      token,
			"reset_expires_at": expiresAt,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue reset token"})
			return
		}

		logrus.Infof("Password reset requested for %s", user.Utorid)
		c.JSON(http.StatusAccepted, gin.H{
			"expiresAt":  expiresAt.Format(time.RFC3339),
			"resetToken": token,
		})
	}
}

// ResetCompleteHandler redeems a reset token and installs a new password.
// The utorid in the body must match the token's owner.
func ResetCompleteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		resetToken := c.Param("resetToken")

		var req struct {
			Utorid   string `json:"utorid"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Utorid == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "utorid and password are required"})
			return
		}
		if !validPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-20 characters with an uppercase letter, a lowercase letter, a number and a special character"})
			return
		}

		var user domain.User
		if err := db.Where("reset_token = ?", resetToken).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Reset token not found"})
			return
		}
		if user.Utorid != req.Utorid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token does not belong to this utorid"})
			return
		}
		if user.ResetExpiresAt == nil || user.ResetExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusGone, gin.H{"error": "Reset token has expired"})
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		if err := db.Model(&user).Updates(map[string]any{
			"password":         string(hashed),
			"reset_token":      nil,
			"reset_expires_at": nil,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
			return
		}

		logrus.Infof("Password reset completed for %s", user.Utorid)
		c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
	}
}
