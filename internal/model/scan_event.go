package model

import "time"

// ScanEvent is one recorded entry/exit scan. Rows are append-only: the
// service never updates or deletes them, and presence/occupancy are
// recomputed from this log on every query.
type ScanEvent struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Token      string `gorm:"size:512;not null;index:idx_scan_events_pair_recency,priority:1"`
	LocationID int64  `gorm:"not null;index:idx_scan_events_pair_recency,priority:2"`
	Action     string `gorm:"size:8;not null"`
	// Assigned by the database at commit time so producer clock skew
	// cannot reorder events. Ties are broken by ID.
	OccurredAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_scan_events_pair_recency,priority:3,sort:desc"`
	SubmittedBy string    `gorm:"size:128"`

	// Associations
	Location Location `gorm:"constraint:OnDelete:CASCADE"`
}
