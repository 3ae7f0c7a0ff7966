package models

import "time"

// Device request review states.
const (
	RequestStatusPending  = "Pending"
	RequestStatusApproved = "Approved"
	RequestStatusRejected = "Rejected"
)

// DeviceRequest records a school asking for additional devices.
type DeviceRequest struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SchoolID uint64  `gorm:"not null;index"`      // Requesting school ID.
	School   *School `gorm:"foreignKey:SchoolID"` // Requesting school.

	DeviceType    string `gorm:"type:varchar(50);not null"` // Requested device category.
	Quantity      int    `gorm:"not null;default:1"`        // Requested quantity.
	Justification string `gorm:"type:text"`                 // Reason for the request.

	Status      string `gorm:"type:varchar(50);not null;default:'Pending'"` // Review status.
	ReviewNotes string `gorm:"type:text"`                                   // Reviewer notes.

	RequestedBy string `gorm:"type:uuid;not null;index"` // Submitting user ID.
	ReviewedBy  string `gorm:"type:uuid"`                // Reviewing user ID.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
