package main

import (
	"loyalty_system/internal/config"
	"loyalty_system/internal/db"
)

func main() {
	cfg := config.LoadConfig()
	db.Migrate(cfg.DSN())
}
