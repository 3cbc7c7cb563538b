package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"tunebox/internal/models"
	"tunebox/internal/utils"
)

// SeedAdmin creates the bootstrap administrator if it does not exist yet.
// Empty credentials disable seeding.
func SeedAdmin(db *gorm.DB, username, password string, logger *zerolog.Logger) error {
	if username == "" || password == "" {
		return nil
	}

	var existing models.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		if logger != nil {
			logger.Debug().Str("username", username).Msg("Admin account already exists, skipping seed")
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Username:     username,
		PasswordHash: hash,
		RoleID:       models.RoleAdmin,
		DisplayName:  username,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	if logger != nil {
		logger.Info().Str("username", username).Int64("user_id", admin.ID).Msg("Seeded admin account")
	}
	return nil
}
