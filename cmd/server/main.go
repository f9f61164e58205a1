package main

import (
	"context" // Redis ping
	"time"    // Rate limit window

	"loyalty_system/internal/config"
	"loyalty_system/internal/db"
	"loyalty_system/internal/ratelimit"
	"loyalty_system/internal/router"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus logging library
	"gorm.io/driver/mysql"         // GORM MySQL driver
	"gorm.io/gorm"                 // GORM ORM library
)

func main() {
	cfg := config.LoadConfig()
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	gormDB, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logrus.Fatalf("Failed to connect to Redis: %v", err)
		}
	} else {
		logrus.Warn("REDIS_ADDR not set, caching disabled")
	}

	limiter := ratelimit.New(60 * time.Second)
	r := router.New(gormDB, rdb, cfg, limiter)

	logrus.Infof("Listening on port %s", cfg.AppPort)
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("Server exited: %v", err)
	}
}
