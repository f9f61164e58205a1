package api

import (
	"errors"   // Error handling
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Event windows

	"loyalty_system/internal/domain"
	"loyalty_system/internal/middleware"
	"loyalty_system/internal/utils"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus logging library
	"gorm.io/gorm"                 // GORM ORM library
)

const eventCachePrefix = "events:"

func userSummary(u *domain.User) gin.H {
	return gin.H{"id": u.ID, "utorid": u.Utorid, "name": u.Name}
}

func userSummaries(users []domain.User) []gin.H {
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userSummary(&users[i]))
	}
	return out
}

// loadEvent fetches an event with both membership sets, handling the 404.
func loadEvent(c *gin.Context, db *gorm.DB) (*domain.Event, bool) {
	id, err := strconv.Atoi(c.Param("eventId"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return nil, false
	}
	var event domain.Event
	if err := db.Preload("Organizers").Preload("Guests").First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		return nil, false
	}
	return &event, true
}

// canManageEvent reports whether the caller is a manager or a registered
// organizer of the event.
func canManageEvent(c *gin.Context, event *domain.Event) bool {
	if middleware.CurrentClearance(c) >= domain.ClearanceManager {
		return true
	}
	user := middleware.CurrentUser(c)
	return user != nil && event.HasOrganizer(user.ID)
}

// CreateEventHandler creates an unpublished event with a fixed point
// budget. Managers and above only.
func CreateEventHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}

		var req struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Location    string   `json:"location"`
			StartTime   string   `json:"startTime"`
			EndTime     string   `json:"endTime"`
			Capacity    *float64 `json:"capacity"`
			Points      *float64 `json:"points"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Description == "" || req.Location == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name, description and location are required"})
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
		var capacity *int
		if req.Capacity != nil {
			if !isInt(*req.Capacity) || *req.Capacity <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "capacity must be a positive integer"})
				return
			}
			v := int(*req.Capacity)
			capacity = &v
		}
		if req.Points == nil || !isInt(*req.Points) || *req.Points <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "points must be a positive integer"})
			return
		}

		event := domain.Event{
			Name:         req.Name,
			Description:  req.Description,
			Location:     req.Location,
			StartTime:    start,
			EndTime:      end,
			Capacity:     capacity,
			PointsRemain: int(*req.Points),
		}
		if err := db.Create(&event).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
			return
		}

		if err := utils.DeleteCacheByPrefix(c.Request.Context(), rdb, eventCachePrefix); err != nil {
			logrus.Warnf("Failed to invalidate event cache: %v", err)
		}
		logrus.Infof("Event %q created by user %d", event.Name, middleware.CurrentUser(c).ID)
		c.JSON(http.StatusCreated, gin.H{
			"id":            event.ID,
			"name":          event.Name,
			"description":   event.Description,
			"location":      event.Location,
			"startTime":     event.StartTime.Format(time.RFC3339),
			"endTime":       event.EndTime.Format(time.RFC3339),
			"capacity":      event.Capacity,
			"pointsRemain":  event.PointsRemain,
			"pointsAwarded": event.PointsAwarded,
			"published":     event.Published,
			"organizers":    []gin.H{},
			"guests":        []gin.H{},
		})
	}
}

// ListEventsHandler lists events. Managers see unpublished rows and point
// budgets; everyone else sees only published events. Full events are hidden
// unless showFull=true.
func ListEventsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		elevated := middleware.CurrentClearance(c) >= domain.ClearanceManager

		page, limit, ok := parsePagination(c)
		if !ok {
			return
		}

		cacheKey := eventCachePrefix + "pub:" + c.Request.URL.RawQuery
		if elevated {
			cacheKey = eventCachePrefix + "mgr:" + c.Request.URL.RawQuery
		}
		var cached gin.H
		if found, err := utils.GetCache(c.Request.Context(), rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}

		q := db.Model(&domain.Event{})
		if name := c.Query("name"); name != "" {
			q = q.Where("name LIKE ?", "%"+name+"%")
		}
		if location := c.Query("location"); location != "" {
			q = q.Where("location LIKE ?", "%"+location+"%")
		}

		now := time.Now()
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

		showFull, ok := parseBoolQuery(c, "showFull")
		if !ok {
			return
		}
		if elevated {
			published, ok := parseBoolQuery(c, "published")
			if !ok {
				return
			}
			if published != nil {
				q = q.Where("published = ?", *published)
			}
		} else {
			q = q.Where("published = ?", true)
		}

		// Capacity filtering needs the guest count, so pagination happens
		// after the full fetch.
		var events []domain.Event
		if err := q.Preload("Guests").Order("id").Find(&events).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
			return
		}
		if showFull == nil || !*showFull {
			filtered := events[:0]
			for i := range events {
				if !events[i].Full(len(events[i].Guests)) {
					filtered = append(filtered, events[i])
				}
			}
			events = filtered
		}

		count := len(events)
		startIdx := (page - 1) * limit
		if startIdx > count {
			startIdx = count
		}
		endIdx := startIdx + limit
		if endIdx > count {
			endIdx = count
		}
		pageSlice := events[startIdx:endIdx]

		results := make([]gin.H, 0, len(pageSlice))
		for i := range pageSlice {
			e := &pageSlice[i]
			row := gin.H{
				"id":        e.ID,
				"name":      e.Name,
				"location":  e.Location,
				"startTime": e.StartTime.Format(time.RFC3339),
				"endTime":   e.EndTime.Format(time.RFC3339),
				"capacity":  e.Capacity,
				"numGuests": len(e.Guests),
			}
			if elevated {
				row["pointsRemain"] = e.PointsRemain
				row["pointsAwarded"] = e.PointsAwarded
				row["published"] = e.Published
			}
			results = append(results, row)
		}

		resp := gin.H{"count": count, "results": results}
		if err := utils.SetCache(c.Request.Context(), rdb, cacheKey, resp, cacheTTL); err != nil {
			logrus.Warnf("Failed to cache event listing: %v", err)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetEventHandler returns a single event. Managers and organizers see the
// full record; everyone else sees a redacted view of published events only.
func GetEventHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		event, ok := loadEvent(c, db)
		if !ok {
			return
		}
		user := middleware.CurrentUser(c)
		rsvp := event.HasGuest(user.ID)

		if canManageEvent(c, event) {
			c.JSON(http.StatusOK, gin.H{
				"id":            event.ID,
				"name":          event.Name,
				"description":   event.Description,
				"location":      event.Location,
				"startTime":     event.StartTime.Format(time.RFC3339),
				"endTime":       event.EndTime.Format(time.RFC3339),
				"capacity":      event.Capacity,
				"pointsRemain":  event.PointsRemain,
				"pointsAwarded": event.PointsAwarded,
				"published":     event.Published,
				"organizers":    userSummaries(event.Organizers),
				"guests":        userSummaries(event.Guests),
				"numGuests":     len(event.Guests),
				"rsvp":          rsvp,
			})
			return
		}

		if !event.Published {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":          event.ID,
			"name":        event.Name,
			"description": event.Description,
			"location":    event.Location,
			"startTime":   event.StartTime.Format(time.RFC3339),
			"endTime":     event.EndTime.Format(time.RFC3339),
			"capacity":    event.Capacity,
			"organizers":  userSummaries(event.Organizers),
			"numGuests":   len(event.Guests),
			"rsvp":        rsvp,
		})
	}
}

// UpdateEventHandler edits an event. Organizers may edit descriptive
// fields; points and published require a manager. Each time field locks
// individually once its own original value has passed.
func UpdateEventHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		event, ok := loadEvent(c, db)
		if !ok {
			return
		}
		if !canManageEvent(c, event) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		var req struct {
			Name        *string  `json:"name"`
			Description *string  `json:"description"`
			Location    *string  `json:"location"`
			StartTime   *string  `json:"startTime"`
			EndTime     *string  `json:"endTime"`
			Capacity    *float64 `json:"capacity"`
			Points      *float64 `json:"points"`
			Published   *bool    `json:"published"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Name == nil && req.Description == nil && req.Location == nil && req.StartTime == nil &&
			req.EndTime == nil && req.Capacity == nil && req.Points == nil && req.Published == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No changes provided"})
			return
		}

		now := time.Now()
		startPassed := !event.StartTime.After(now)

		updates := map[string]any{}
		resp := gin.H{"id": event.ID, "name": event.Name, "location": event.Location}

		if req.Name != nil {
			if startPassed {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot update name after the event has started"})
				return
			}
			if *req.Name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
				return
			}
			updates["name"] = *req.Name
			resp["name"] = *req.Name
		}
		if req.Description != nil {
			if startPassed {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot update description after the event has started"})
				return
			}
			updates["description"] = *req.Description
			resp["description"] = *req.Description
		}
		if req.Location != nil {
			if startPassed {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot update location after the event has started"})
				return
			}
			updates["location"] = *req.Location
			resp["location"] = *req.Location
		}

		start, end := event.StartTime, event.EndTime
		if req.StartTime != nil {
			if startPassed {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot update startTime after the event has started"})
				return
			}
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
			// The end time stays editable after the event starts, but not
			// after it has already ended.
			if event.Ended(now) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot update endTime after the event has ended"})
				return
			}
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

		if req.Capacity != nil {
			if startPassed {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot update capacity after the event has started"})
				return
			}
			if !isInt(*req.Capacity) || *req.Capacity <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "capacity must be a positive integer"})
				return
			}
			v := int(*req.Capacity)
			if v < len(event.Guests) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "capacity cannot be below the current guest count"})
				return
			}
			updates["capacity"] = v
			resp["capacity"] = v
		}
		if req.Points != nil {
			if middleware.CurrentClearance(c) < domain.ClearanceManager {
				c.JSON(http.StatusForbidden, gin.H{"error": "Only managers may change the point budget"})
				return
			}
			if !isInt(*req.Points) || *req.Points <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "points must be a positive integer"})
				return
			}
			budget := int(*req.Points)
			if budget < event.PointsAwarded {
				c.JSON(http.StatusBadRequest, gin.H{"error": "points cannot be below what has already been awarded"})
				return
			}
			updates["points_remain"] = budget - event.PointsAwarded
			resp["pointsRemain"] = budget - event.PointsAwarded
		}
		if req.Published != nil {
			if middleware.CurrentClearance(c) < domain.ClearanceManager {
				c.JSON(http.StatusForbidden, gin.H{"error": "Only managers may publish an event"})
				return
			}
			// Publication is one-way; unsetting is ignored rather than
			// rejected.
			if *req.Published {
				updates["published"] = true
				resp["published"] = true
			}
		}

		if len(updates) > 0 {
			if err := db.Model(event).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update event"})
				return
			}
			if err := utils.DeleteCacheByPrefix(c.Request.Context(), rdb, eventCachePrefix); err != nil {
				logrus.Warnf("Failed to invalidate event cache: %v", err)
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// DeleteEventHandler removes an unpublished event.
func DeleteEventHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}
		event, ok := loadEvent(c, db)
		if !ok {
			return
		}
		if event.Published {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete a published event"})
			return
		}

		err := db.Transaction(func(txn *gorm.DB) error {
			if err := txn.Model(event).Association("Organizers").Clear(); err != nil {
				return err
			}
			if err := txn.Model(event).Association("Guests").Clear(); err != nil {
				return err
			}
			return txn.Delete(event).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete event"})
			return
		}
		if err := utils.DeleteCacheByPrefix(c.Request.Context(), rdb, eventCachePrefix); err != nil {
			logrus.Warnf("Failed to invalidate event cache: %v", err)
		}
		logrus.Infof("Event %d deleted by user %d", event.ID, middleware.CurrentUser(c).ID)
		c.Status(http.StatusNoContent)
	}
}

// AddOrganizerHandler registers a user as an event organizer. Managers
// only; the organizer and guest sets stay disjoint.
func AddOrganizerHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}
		event, ok := loadEvent(c, db)
		if !ok {
			return
		}
		if event.Ended(time.Now()) {
			c.JSON(http.StatusGone, gin.H{"error": "Event has ended"})
			return
		}

		var req struct {
			Utorid string `json:"utorid"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Utorid == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "utorid is required"})
			return
		}
		var user domain.User
		if err := db.Where("utorid = ?", req.Utorid).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if event.HasGuest(user.ID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User is already a guest of this event"})
			return
		}
		if !event.HasOrganizer(user.ID) {
			if err := db.Model(event).Association("Organizers").Append(&user); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add organizer"})
				return
			}
			event.Organizers = append(event.Organizers, user)
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":         event.ID,
			"name":       event.Name,
			"location":   event.Location,
			"organizers": userSummaries(event.Organizers),
		})
	}
}

// RemoveOrganizerHandler removes an organizer from an event. Managers only.
func RemoveOrganizerHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceManager) {
			return
		}
		event, ok := loadEvent(c, db)
		if !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("userId"))
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		if !event.HasOrganizer(uint(id)) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User is not an organizer of this event"})
			return
		}
		if err := db.Model(event).Association("Organizers").Delete(&domain.User{ID: uint(id)}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove organizer"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// addGuest runs the shared RSVP checks and appends the user to the guest
// list.
func addGuest(c *gin.Context, db *gorm.DB, event *domain.Event, user *domain.User) {
	// Membership conflicts answer before capacity or time: a duplicate RSVP
	// on a full event is a 400, not a 410.
	if event.HasOrganizer(user.ID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User is an organizer of this event"})
		return
	}
	if event.HasGuest(user.ID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User is already a guest of this event"})
		return
	}
	if event.Full(len(event.Guests)) {
		c.JSON(http.StatusGone, gin.H{"error": "Event is full"})
		return
	}
	if event.Ended(time.Now()) {
		c.JSON(http.StatusGone, gin.H{"error": "Event has ended"})
		return
	}
	if err := db.Model(event).Association("Guests").Append(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add guest"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         event.ID,
		"name":       event.Name,
		"location":   event.Location,
		"guestAdded": userSummary(user),
		"numGuests":  len(event.Guests) + 1,
	})
}

// AddGuestHandler adds a guest by utorid on behalf of a manager or an
// organizer. Unlike self-RSVP, this works on unpublished events so
// organizers can seed their own guest lists.
func AddGuestHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		event, ok := loadEvent(c, db)
		if !ok {
			return
		}
		if !canManageEvent(c, event) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		var req struct {
			Utorid string `json:"utorid"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Utorid == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "utorid is required"})
			return
		}
		var user domain.User
		if err := db.Where("utorid = ?", req.Utorid).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		addGuest(c, db, event, &user)
	}
}

// AddSelfGuestHandler is the self-service RSVP. The event must already be
// published to be visible.
func AddSelfGuestHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		event, ok := loadEvent(c, db)
		if !ok {
			return
		}
		if !event.Published {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		addGuest(c, db, event, middleware.CurrentUser(c))
	}
}

// RemoveGuestHandler serves DELETE /events/:eventId/guests/me (un-RSVP,
// only before the event ends) and DELETE /events/:eventId/guests/:userId
// (manager removal).
func RemoveGuestHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("userId") == "me" {
			removeSelfGuest(c, db)
			return
		}
		removeGuestByID(c, db)
	}
}

func removeSelfGuest(c *gin.Context, db *gorm.DB) {
	if !requireClearance(c, domain.ClearanceRegular) {
		return
	}
	event, ok := loadEvent(c, db)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	if !event.HasGuest(user.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "You are not a guest of this event"})
		return
	}
	if event.Ended(time.Now()) {
		c.JSON(http.StatusGone, gin.H{"error": "Event has ended"})
		return
	}
	if err := db.Model(event).Association("Guests").Delete(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove guest"})
		return
	}
	c.Status(http.StatusNoContent)
}

func removeGuestByID(c *gin.Context, db *gorm.DB) {
	if !requireClearance(c, domain.ClearanceManager) {
		return
	}
	event, ok := loadEvent(c, db)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if !event.HasGuest(uint(id)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User is not a guest of this event"})
		return
	}
	if err := db.Model(event).Association("Guests").Delete(&domain.User{ID: uint(id)}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove guest"})
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateEventAwardHandler hands out event points to one guest or to all of
// them. The budget check happens once against the per-recipient amount, so
// a broadcast can overdraw pointsRemain.
func CreateEventAwardHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireClearance(c, domain.ClearanceRegular) {
			return
		}
		event, ok := loadEvent(c, db)
		if !ok {
			return
		}
		if !canManageEvent(c, event) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		caller := middleware.CurrentUser(c)

		var req struct {
			Type   string   `json:"type"`
			Amount *float64 `json:"amount"`
			Utorid string   `json:"utorid"`
			Remark string   `json:"remark"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Type != "event" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be event"})
			return
		}
		if req.Amount == nil || *req.Amount <= 0 || !isInt(*req.Amount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
			return
		}
		amount := int(*req.Amount)
		if event.PointsRemain < amount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Event does not have enough points remaining"})
			return
		}

		var recipients []domain.User
		if req.Utorid != "" {
			var user domain.User
			if err := db.Where("utorid = ?", req.Utorid).First(&user).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			if !event.HasGuest(user.ID) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "User is not a guest of this event"})
				return
			}
			recipients = []domain.User{user}
		} else {
			recipients = event.Guests
		}

		awards := make([]gin.H, 0, len(recipients))
		err := db.Transaction(func(txn *gorm.DB) error {
			for i := range recipients {
				r := &recipients[i]
				tx := domain.Transaction{
					Type:        domain.TxEvent,
					Points:      float64(amount),
					Remark:      req.Remark,
					UserID:      r.ID,
					CreatedByID: caller.ID,
					EventID:     &event.ID,
				}
				if err := txn.Create(&tx).Error; err != nil {
					return err
				}
				if err := txn.Model(r).Update("points", gorm.Expr("points + ?", amount)).Error; err != nil {
					return err
				}
				awards = append(awards, gin.H{
					"id":        tx.ID,
					"recipient": r.Utorid,
					"awarded":   amount,
					"type":      "event",
					"relatedId": event.ID,
					"remark":    req.Remark,
					"createdBy": caller.Utorid,
				})
			}
			total := amount * len(recipients)
			return txn.Model(event).Updates(map[string]any{
				"points_remain":  gorm.Expr("points_remain - ?", total),
				"points_awarded": gorm.Expr("points_awarded + ?", total),
			}).Error
		})
		if err != nil {
			logrus.Errorf("Failed to award points for event %d: %v", event.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to award points"})
			return
		}

		logrus.WithFields(logrus.Fields{
			"event":      event.ID,
			"amount":     amount,
			"recipients": len(recipients),
		}).Info("Event points awarded")

		if req.Utorid != "" {
			c.JSON(http.StatusCreated, awards[0])
			return
		}
		c.JSON(http.StatusCreated, awards)
	}
}
