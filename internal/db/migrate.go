package db

import (
	"fmt"

	"github.com/schooltrack/schooltrack/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for all persisted entities.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Otp{},
		&models.School{},
		&models.Device{},
		&models.DeviceRequest{},
		&models.IssueReport{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}
