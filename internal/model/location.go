package model

import "time"

// Location represents a trackable place (building, hall) from the
// location directory.
type Location struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"size:256;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	ScanEvents []ScanEvent `gorm:"foreignKey:LocationID"`
}
