package router

import (
	"loyalty_system/internal/api"
	"loyalty_system/internal/config"
	"loyalty_system/internal/middleware"
	"loyalty_system/internal/ratelimit"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// New assembles the gin engine with every route wired. rdb may be nil to
// run without caching; tests do exactly that.
//
// Gin rejects a static route alongside a path parameter in the same
// position, so the /users/me and /events/:eventId/guests/me forms are
// served by the parameterized handlers, which dispatch on the literal
// value "me".
func New(db *gorm.DB, rdb *redis.Client, cfg *config.Config, limiter *ratelimit.Limiter) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.Auth(db, cfg.JWTSecret))

	auth := r.Group("/auth")
	{
		auth.POST("/tokens", api.LoginHandler(db, cfg.JWTSecret))
		auth.POST("/resets", api.ResetRequestHandler(db, limiter))
		auth.POST("/resets/:resetToken", api.ResetCompleteHandler(db))
	}

	users := r.Group("/users")
	{
		users.POST("", api.CreateUserHandler(db))
		users.GET("", api.ListUsersHandler(db))
		users.GET("/:userId", api.GetUserHandler(db))
		users.PATCH("/:userId", api.UpdateUserHandler(db))
		users.PATCH("/:userId/password", api.UpdatePasswordHandler(db))
		users.POST("/:userId/transactions", api.CreateUserTransactionHandler(db))
		users.GET("/:userId/transactions", api.ListOwnTransactionsHandler(db))
	}

	transactions := r.Group("/transactions")
	{
		transactions.POST("", api.CreateTransactionHandler(db))
		transactions.GET("", api.ListTransactionsHandler(db))
		transactions.GET("/:transactionId", api.GetTransactionHandler(db))
		transactions.PATCH("/:transactionId/suspicious", api.SetTransactionSuspiciousHandler(db))
		transactions.PATCH("/:transactionId/processed", api.ProcessRedemptionHandler(db))
	}

	events := r.Group("/events")
	{
		events.POST("", api.CreateEventHandler(db, rdb))
		events.GET("", api.ListEventsHandler(db, rdb))
		events.GET("/:eventId", api.GetEventHandler(db))
		events.PATCH("/:eventId", api.UpdateEventHandler(db, rdb))
		events.DELETE("/:eventId", api.DeleteEventHandler(db, rdb))
		events.POST("/:eventId/organizers", api.AddOrganizerHandler(db))
		events.DELETE("/:eventId/organizers/:userId", api.RemoveOrganizerHandler(db))
		events.POST("/:eventId/guests", api.AddGuestHandler(db))
		events.POST("/:eventId/guests/me", api.AddSelfGuestHandler(db))
		events.DELETE("/:eventId/guests/:userId", api.RemoveGuestHandler(db))
		events.POST("/:eventId/transactions", api.CreateEventAwardHandler(db))
	}

	promotions := r.Group("/promotions")
	{
		promotions.POST("", api.CreatePromotionHandler(db, rdb))
		promotions.GET("", api.ListPromotionsHandler(db, rdb))
		promotions.GET("/:promotionId", api.GetPromotionHandler(db))
		promotions.PATCH("/:promotionId", api.UpdatePromotionHandler(db, rdb))
		promotions.DELETE("/:promotionId", api.DeletePromotionHandler(db, rdb))
	}

	return r
}
