package db

import (
	"context"
	"fmt"

	"projet/internal/config"
	"projet/internal/record"
	"projet/internal/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&user.User{},
		&record.Record{},
		&record.Revision{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.Info("Database schema migrated successfully")
	return nil
}

// SeedOwner makes sure the configured owner account exists.
func SeedOwner(ctx context.Context, users user.Service, cfg *config.Config, log *zap.Logger) (*user.User, error) {
	owner, err := users.EnsureOwner(ctx, cfg.OwnerName, cfg.OwnerEmail, cfg.OwnerPassword)
	if err != nil {
		return nil, err
	}
	log.Info("Owner account ready", zap.String("email", owner.Email))
	return owner, nil
}
