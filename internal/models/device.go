package models

import (
	"time"

	"gorm.io/datatypes"
)

// Device statuses tracked through the asset lifecycle.
const (
	DeviceStatusAvailable   = "Available"
	DeviceStatusAssigned    = "Assigned"
	DeviceStatusMaintenance = "Maintenance"
	DeviceStatusRetired     = "Retired"
)

// Device represents a tracked hardware asset.
type Device struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	NameTag      string `gorm:"type:varchar(50);not null;uniqueIndex"` // Unique inventory tag.
	Category     string `gorm:"type:varchar(50);not null"`             // Device category.
	Model        string `gorm:"type:varchar(50)"`                      // Model name.
	SerialNumber string `gorm:"type:varchar(50)"`                      // Manufacturer serial.
	Brand        string `gorm:"type:varchar(50)"`                      // Brand name.

	Specifications datatypes.JSON `gorm:"type:jsonb"` // Hardware spec payload.

	PurchaseDate *time.Time `gorm:"type:date"` // Purchase date.
	ExpiredDate  *time.Time `gorm:"type:date"` // Warranty expiry date.

	CurrentStatus string `gorm:"type:varchar(50);not null;default:'Available'"` // Lifecycle status.

	SchoolID     *uint64    `gorm:"index"`                // Assigned school ID.
	School       *School    `gorm:"foreignKey:SchoolID"`  // Assigned school.
	AssignedDate *time.Time // Assignment timestamp.

	Notes string `gorm:"type:text"` // Free-form notes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
