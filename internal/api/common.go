package api

import (
	"math"     // Integer checks on JSON numbers
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"unicode"  // Password character classes

	"loyalty_system/internal/domain"
	"loyalty_system/internal/middleware"

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// requireClearance enforces the tier gate shared by every protected handler:
// 401 when no principal resolved at all, 403 when one did but its tier is
// too low. Returns false after writing the error response.
func requireClearance(c *gin.Context, tier domain.Clearance) bool {
	clearance := middleware.CurrentClearance(c)
	if clearance < domain.ClearanceRegular {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return false
	}
	if clearance < tier {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return false
	}
	return true
}

// parsePagination reads page (>=1, default 1) and limit (>=1, default 10)
// from the query string. Returns ok=false after writing a 400 response.
func parsePagination(c *gin.Context) (page, limit int, ok bool) {
	page, limit = 1, 10
	if p := c.Query("page"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page number"})
			return 0, 0, false
		}
		page = v
	}
	if l := c.Query("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit number"})
			return 0, 0, false
		}
		limit = v
	}
	return page, limit, true
}

// parseBoolQuery reads an optional boolean query parameter. Only the string
// literals "true" and "false" are accepted; anything else is a 400. Returns
// ok=false after writing the response.
func parseBoolQuery(c *gin.Context, name string) (val *bool, ok bool) {
	raw := c.Query(name)
	switch raw {
	case "":
		return nil, true
	case "true":
		v := true
		return &v, true
	case "false":
		v := false
		return &v, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a boolean"})
		return nil, false
	}
}

// isInt reports whether a JSON number carries an integral value.
func isInt(f float64) bool {
	return f == math.Trunc(f)
}

// validPassword enforces the password policy: 8-20 characters with at least
// one uppercase letter, one lowercase letter, one digit and one special
// character.
func validPassword(pw string) bool {
	if len(pw) < 8 || len(pw) > 20 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

// promotionUsed reports whether any of the user's transactions links to the
// promotion. This is what makes ONETIME promotions one-time.
func promotionUsed(db *gorm.DB, promotionID, userID uint) (bool, error) {
	var n int64
	err := db.Table("transaction_promotions").
		Joins("JOIN transactions ON transactions.id = transaction_promotions.transaction_id").
		Where("transaction_promotions.promotion_id = ? AND transactions.user_id = ?", promotionID, userID).
		Count(&n).Error
	return n > 0, err
}

// usedPromotionIDs builds a subquery selecting every promotion id the user
// has already consumed, for NOT IN filtering at the database so pagination
// counts stay correct.
func usedPromotionIDs(db *gorm.DB, userID uint) *gorm.DB {
	return db.Table("transaction_promotions").
		Select("transaction_promotions.promotion_id").
		Joins("JOIN transactions ON transactions.id = transaction_promotions.transaction_id").
		Where("transactions.user_id = ?", userID)
}
