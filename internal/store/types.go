package store

import "time"

// Action is the semantic direction of a scan.
type Action string

const (
	ActionEntry Action = "entry"
	ActionExit  Action = "exit"
)

// Valid reports whether the action is one of the recognized values.
func (a Action) Valid() bool {
	return a == ActionEntry || a == ActionExit
}

// ScanDraft is a scan submission before it has been committed to the log.
// OccurredAt is deliberately absent: the producer's clock is not trusted.
type ScanDraft struct {
	Token       string
	LocationID  int64
	Action      Action
	SubmittedBy string
}

// ScanReceipt identifies a durably recorded scan event.
type ScanReceipt struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LocationRow is a directory entry.
type LocationRow struct {
	ID   int64  `json:"location_id"`
	Name string `json:"location_name"`
}

// LocationSeed is a directory entry supplied by configuration.
type LocationSeed struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// OccupancyRow is the per-location count of tokens currently inside.
type OccupancyRow struct {
	LocationID   int64  `json:"location_id"`
	LocationName string `json:"location_name"`
	Count        int64  `json:"count"`
}
