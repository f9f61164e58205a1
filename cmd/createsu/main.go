package main

import (
	"fmt"     // Formatted errors
	"os"      // Exit codes
	"strings" // Email validation

	"loyalty_system/internal/config"
	"loyalty_system/internal/db"
	"loyalty_system/internal/domain"

	"github.com/sirupsen/logrus" // Logrus logging library
	"github.com/spf13/cobra"     // Cobra CLI framework
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/driver/mysql"       // GORM MySQL driver
	"gorm.io/gorm"               // GORM ORM library
)

// createsu bootstraps the first superuser account so the role-gated API has
// somewhere to start from.
func main() {
	cmd := &cobra.Command{
		Use:   "createsu <utorid> <email> <password>",
		Short: "Create a verified superuser account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], args[2])
		},
		SilenceUsage: true,
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(utorid, email, password string) error {
	if len(utorid) != 8 {
		return fmt.Errorf("utorid must be 8 characters")
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email %q is not valid", email)
	}

	cfg := config.LoadConfig()
	gormDB, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		Utorid:   utorid,
		Name:     utorid,
		Email:    email,
		Password: string(hashed),
		Role:     domain.RoleSuperuser,
		Verified: true,
	}
	if err := gormDB.Create(&user).Error; err != nil {
		return fmt.Errorf("create superuser: %w", err)
	}

	logrus.Infof("Superuser %s created", utorid)
	return nil
}
