package models

import "time"

// School represents an institution devices are assigned to.
type School struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:varchar(100);not null"` // School name.
	Province string `gorm:"type:varchar(100)"`          // Province.
	District string `gorm:"type:varchar(100)"`          // District.

	HeadteacherName  string `gorm:"type:varchar(100)"` // Headteacher full name.
	HeadteacherPhone string `gorm:"type:varchar(20)"`  // Headteacher phone.

	Devices []Device `gorm:"foreignKey:SchoolID"` // Assigned devices.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
