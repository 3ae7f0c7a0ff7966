package models

import "time"

// Otp is a single-use emailed passcode tied to a user.
//
// Multiple unconsumed rows may exist per user; verification always selects
// the newest by creation time and flips Used exactly once.
type Otp struct {
	ID     string `gorm:"type:uuid;primaryKey"`     // Primary key (UUID).
	UserID string `gorm:"type:uuid;not null;index"` // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"`        // Owning user.

	Code      string    `gorm:"type:varchar(10);not null"` // Numeric passcode.
	ExpiresAt time.Time `gorm:"not null"`                  // Expiry timestamp.
	Used      bool      `gorm:"not null;default:false"`    // Consumed flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
