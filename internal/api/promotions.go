package api

import (
	"errors"   // Error handling
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Promotion windows

	"loyalty_system/internal/domain"
	"loyalty_system/internal/middleware"
	"loyalty_system/internal/utils"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// cacheTTL bounds how stale a cached listing may get.
const cacheTTL = 60 * time.Second

const promotionCachePrefix = "promotions:"

func promotionTypeLabel(t string) string {
	if t == domain.PromotionOneTime {
		return "one-time"
	}
	return "automatic"
}

func parsePromotionType(label string) (string, bool) {
	switch label {
	case "automatic":
		return domain.PromotionAutomatic, true
	case "one-time":
		return domain.PromotionOneTime, true
	}
	return "", false
}

// promotionResponse is the full projection shown to managers and above.
func promotionResponse(p *domain.Promotion) gin.H {
	return gin.H{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"type":        promotionTypeLabel(p.Type),
		"startTime":   p.StartTime.Format(time.RFC3339),
		"endTime":     p.EndTime.Format(time.RFC3339),
		"minSpending": p.MinSpending,
		"rate":        p.Rate,
		"points":      p.Points,
	}
}

// CreatePromotionHandler creates a promotion. Managers and above only; the
// window must start in the future so the locked-in rule has meaning.
func CreatePromotionHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}

		var req struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Type        string   `json:"type"`
			StartTime   string   `json:"startTime"`
			EndTime     string   `json:"endTime"`
			MinSpending *float64 `json:"minSpending"`
			Rate        *float64 `json:"rate"`
			Points      *float64 `json:"points"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Description == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and description are required"})
			return
		}
		promoType, ok := parsePromotionType(req.Type)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be automatic or one-time"})
			return
		}
		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "startTime must be an ISO-8601 timestamp"})
			return
		}
		end, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "endTime must be an ISO-8601 timestamp"})
			return
		}
		if start.Before(time.Now()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "startTime cannot be in the past"})
			return
		}
		if !end.After(start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "endTime must be after startTime"})
			return
		}
		if req.MinSpending != nil && *req.MinSpending <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minSpending must be positive"})
			return
		}
		if req.Rate != nil && *req.Rate <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate must be positive"})
			return
		}
		var points *int
		if req.Points != nil {
			if !isInt(*req.Points) || *req.Points < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "points must be a non-negative integer"})
				return
			}
			v := int(*req.Points)
			points = &v
		}

		promo := domain.Promotion{
			Name:        req.Name,
			Description: req.Description,
			Type:        promoType,
			StartTime:   start,
			EndTime:     end,
			MinSpending: req.MinSpending,
			Rate:        req.Rate,
			Points:      points,
		}
		if err := db.Create(&promo).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create promotion"})
			return
		}

		if err := utils.DeleteCacheByPrefix(c.Request.Context(), rdb, promotionCachePrefix); err != nil {
			logrus.Warnf("Failed to invalidate promotion cache: %v", err)
		}
		logrus.Infof("Promotion %q created by user %d", promo.Name, middleware.CurrentUser(c).ID)
		c.JSON(http.StatusCreated, promotionResponse(&promo))
	}
}

// ListPromotionsHandler lists promotions. Managers see everything with
// started/ended filters; lower clearance sees only active promotions they
// can still use, without start times.
func ListPromotionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		user := middleware.CurrentUser(c)
		elevated := middleware.CurrentClearance(c) >= domain.ClearanceManager

		page, limit, ok := parsePagination(c)
		if !ok {
			return
		}

		cacheKey := promotionCachePrefix + "user:" + strconv.Itoa(int(user.ID)) + ":" + c.Request.URL.RawQuery
		if elevated {
			cacheKey = promotionCachePrefix + "mgr:" + c.Request.URL.RawQuery
		}
		var cached gin.H
		if found, err := utils.GetCache(c.Request.Context(), rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}

		q := db.Model(&domain.Promotion{})
		if name := c.Query("name"); name != "" {
			q = q.Where("name LIKE ?", "%"+name+"%")
		}
		if label := c.Query("type"); label != "" {
			promoType, ok := parsePromotionType(label)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "type must be automatic or one-time"})
				return
			}
			q = q.Where("type = ?", promoType)
		}

		now := time.Now()
		if elevated {
			started, ok := parseBoolQuery(c, "started")
			if !ok {
				return
			}
			ended, ok := parseBoolQuery(c, "ended")
			if !ok {
				return
			}
			if started != nil && ended != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "started and ended cannot both be specified"})
				return
			}
			if started != nil {
				if *started {
					q = q.Where("start_time <= ?", now)
				} else {
					q = q.Where("start_time > ?", now)
				}
			}
			if ended != nil {
				if *ended {
					q = q.Where("end_time <= ?", now)
				} else {
					q = q.Where("end_time > ?", now)
				}
			}
		} else {
			q = q.Where("start_time <= ? AND end_time > ?", now, now).
				Where("id NOT IN (?)", usedPromotionIDs(db, user.ID))
		}

		var count int64
		if err := q.Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count promotions"})
			return
		}

		var promos []domain.Promotion
		if err := q.Order("id").Offset((page - 1) * limit).Limit(limit).Find(&promos).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list promotions"})
			return
		}

		results := make([]gin.H, 0, len(promos))
		for i := range promos {
			p := &promos[i]
			if elevated {
				results = append(results, promotionResponse(p))
				continue
			}
			results = append(results, gin.H{
				"id":          p.ID,
				"name":        p.Name,
				"description": p.Description,
				"type":        promotionTypeLabel(p.Type),
				"endTime":     p.EndTime.Format(time.RFC3339),
				"minSpending": p.MinSpending,
				"rate":        p.Rate,
				"points":      p.Points,
			})
		}

		resp := gin.H{"count": count, "results": results}
		if err := utils.SetCache(c.Request.Context(), rdb, cacheKey, resp, cacheTTL); err != nil {
			logrus.Warnf("Failed to cache promotion listing: %v", err)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetPromotionHandler returns a single promotion. Below manager clearance
// an inactive promotion, or a ONETIME one already consumed by the caller,
// is indistinguishable from a missing one.
func GetPromotionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		id, err := strconv.Atoi(c.Param("promotionId"))
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid promotion id"})
			return
		}

		var promo domain.Promotion
		if err := db.First(&promo, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Promotion not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load promotion"})
			return
		}

		if middleware.CurrentClearance(c) >= domain.ClearanceManager {
			c.JSON(http.StatusOK, promotionResponse(&promo))
			return
		}

		if !promo.Active(time.Now()) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Promotion not found"})
			return
		}
		if promo.Type == domain.PromotionOneTime {
			used, err := promotionUsed(db, promo.ID, middleware.CurrentUser(c).ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check promotion usage"})
				return
			}
			if used {
				c.JSON(http.StatusNotFound, gin.H{"error": "Promotion not found"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"id":          promo.ID,
			"name":        promo.Name,
			"description": promo.Description,
			"type":        promotionTypeLabel(promo.Type),
			"endTime":     promo.EndTime.Format(time.RFC3339),
			"minSpending": promo.MinSpending,
			"rate":        promo.Rate,
			"points":      promo.Points,
		})
	}
}

// UpdatePromotionHandler edits a promotion. Defining fields are locked in
// once the promotion starts.
func UpdatePromotionHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}
		id, err := strconv.Atoi(c.Param("promotionId"))
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid promotion id"})
			return
		}

		var promo domain.Promotion
		if err := db.First(&promo, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Promotion not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load promotion"})
			return
		}

		var req struct {
			Name        *string  `json:"name"`
			Description *string  `json:"description"`
			Type        *string  `json:"type"`
			StartTime   *string  `json:"startTime"`
			EndTime     *string  `json:"endTime"`
			MinSpending *float64 `json:"minSpending"`
			Rate        *float64 `json:"rate"`
			Points      *float64 `json:"points"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Name == nil && req.Description == nil && req.Type == nil && req.StartTime == nil &&
			req.EndTime == nil && req.MinSpending == nil && req.Rate == nil && req.Points == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No changes provided"})
			return
		}

		now := time.Now()
		if !promo.StartTime.After(now) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot update a promotion after it has started"})
			return
		}

		updates := map[string]any{}
		resp := gin.H{"id": promo.ID, "name": promo.Name, "type": promotionTypeLabel(promo.Type)}

		if req.Name != nil {
			if *req.Name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
				return
			}
			updates["name"] = *req.Name
			resp["name"] = *req.Name
		}
		if req.Description != nil {
			updates["description"] = *req.Description
			resp["description"] = *req.Description
		}
		if req.Type != nil {
			promoType, ok := parsePromotionType(*req.Type)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "type must be automatic or one-time"})
				return
			}
			updates["type"] = promoType
			resp["type"] = *req.Type
		}

		start, end := promo.StartTime, promo.EndTime
		if req.StartTime != nil {
			t, err := time.Parse(time.RFC3339, *req.StartTime)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "startTime must be an ISO-8601 timestamp"})
				return
			}
			if t.Before(now) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "startTime cannot be in the past"})
				return
			}
			start = t
			updates["start_time"] = t
			resp["startTime"] = t.Format(time.RFC3339)
		}
		if req.EndTime != nil {
			t, err := time.Parse(time.RFC3339, *req.EndTime)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "endTime must be an ISO-8601 timestamp"})
				return
			}
			if t.Before(now) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "endTime cannot be in the past"})
				return
			}
			end = t
			updates["end_time"] = t
			resp["endTime"] = t.Format(time.RFC3339)
		}
		if !end.After(start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "endTime must be after startTime"})
			return
		}

		if req.MinSpending != nil {
			if *req.MinSpending <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "minSpending must be positive"})
				return
			}
			updates["min_spending"] = *req.MinSpending
			resp["minSpending"] = *req.MinSpending
		}
		if req.Rate != nil {
			if *req.Rate <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "rate must be positive"})
				return
			}
			updates["rate"] = *req.Rate
			resp["rate"] = *req.Rate
		}
		if req.Points != nil {
			if !isInt(*req.Points) || *req.Points < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "points must be a non-negative integer"})
				return
			}
			updates["points"] = int(*req.Points)
			resp["points"] = int(*req.Points)
		}

		if err := db.Model(&promo).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update promotion"})
			return
		}

		if err := utils.DeleteCacheByPrefix(c.Request.Context(), rdb, promotionCachePrefix); err != nil {
			logrus.Warnf("Failed to invalidate promotion cache: %v", err)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// DeletePromotionHandler removes a promotion that has not yet started.
func DeletePromotionHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}
		id, err := strconv.Atoi(c.Param("promotionId"))
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid promotion id"})
			return
		}

		var promo domain.Promotion
		if err := db.First(&promo, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Promotion not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load promotion"})
			return
		}
		if !promo.StartTime.After(time.Now()) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot delete a promotion after it has started"})
			return
		}

		if err := db.Delete(&promo).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete promotion"})
			return
		}
		if err := utils.DeleteCacheByPrefix(c.Request.Context(), rdb, promotionCachePrefix); err != nil {
			logrus.Warnf("Failed to invalidate promotion cache: %v", err)
		}
		logrus.Infof("Promotion %d deleted by user %d", promo.ID, middleware.CurrentUser(c).ID)
		c.Status(http.StatusNoContent)
	}
}
