package models

import "time"

// Issue report states.
const (
	ReportStatusOpen       = "Open"
	ReportStatusInProgress = "In Progress"
	ReportStatusResolved   = "Resolved"
)

// IssueReport records a fault reported against a device.
type IssueReport struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	DeviceID uint64  `gorm:"not null;index"`      // Faulty device ID.
	Device   *Device `gorm:"foreignKey:DeviceID"` // Faulty device.

	Description string `gorm:"type:text;not null"` // Fault description.

	Status          string `gorm:"type:varchar(50);not null;default:'Open'"` // Handling status.
	ResolutionNotes string `gorm:"type:text"`                                // Resolution notes.

	ReportedBy string `gorm:"type:uuid;not null;index"` // Reporting user ID.
	ResolvedBy string `gorm:"type:uuid"`                // Resolving user ID.

	ResolvedAt *time.Time // Resolution timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
