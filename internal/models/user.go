package models

import "time"

// Roles assignable to user accounts.
const (
	// RoleSchool is the default role for registered school accounts.
	RoleSchool = "school"
	// RoleAdmin grants full administrative access.
	RoleAdmin = "admin"
	// RoleTechnician handles device issue reports.
	RoleTechnician = "technician"
	// RoleRTBStaff reviews and approves device requests.
	RoleRTBStaff = "rtb-staff"
)

// ValidRole reports whether role is one of the recognized access roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSchool, RoleAdmin, RoleTechnician, RoleRTBStaff:
		return true
	}
	return false
}

// User represents an account stored in the database.
type User struct {
	ID string `gorm:"type:uuid;primaryKey"` // Primary key (UUID).

	FullName string `gorm:"type:varchar(100);not null"`             // Display name.
	Username string `gorm:"type:varchar(50);not null;uniqueIndex"`  // Unique login name.
	Email    string `gorm:"type:varchar(255);not null;uniqueIndex"` // Unique email address.
	Password string `gorm:"type:text;not null"`                     // Hashed password.

	PhoneNumber string `gorm:"type:varchar(20)"`                           // Optional phone number.
	Role        string `gorm:"type:varchar(20);not null;default:'school'"` // Access role.
	Gender      string `gorm:"type:varchar(20)"`                           // Optional gender.

	ProfilePicture string `gorm:"type:text"` // Optional profile picture URL.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
