package db

import (
	"loyalty_system/internal/domain"

	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
)

// Models lists every persisted entity, in migration order.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Promotion{},
		&domain.Event{},
		&domain.Transaction{},
	}
}

// AutoMigrate creates or updates the schema for all models on an open
// connection.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Migrate connects to MySQL and runs the schema migration.
func Migrate(dsn string) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.Info("Migration completed.")
}
