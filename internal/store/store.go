package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"presence-tracker-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// AppendScan commits one event to the log. It is the only mutation
	// the rest of the system may perform.
	AppendScan(ctx context.Context, draft ScanDraft) (ScanReceipt, error)

	// ResolvePresence returns the action of the most recent event for a
	// (token, location) pair. found is false when the pair has no events
	// at all, which is distinct from a resolved exit.
	ResolvePresence(ctx context.Context, token string, locationID int64) (action Action, found bool, err error)

	// Occupancy returns, per location, the number of distinct tokens
	// whose latest action there is entry. Locations with no such tokens
	// are omitted.
	Occupancy(ctx context.Context) ([]OccupancyRow, error)

	ListLocations(ctx context.Context) ([]LocationRow, error)
	LocationExists(ctx context.Context, locationID int64) (bool, error)
	SeedLocations(ctx context.Context, seeds []LocationSeed) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// AppendScan inserts a single event row. occurred_at is filled by the
// database default so ordering within a location follows the storage
// clock, not the producer's.
func (s *gormStore) AppendScan(ctx context.Context, draft ScanDraft) (ScanReceipt, error) {
	event := model.ScanEvent{
		Token:       draft.Token,
		LocationID:  draft.LocationID,
		Action:      string(draft.Action),
		SubmittedBy: draft.SubmittedBy,
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return ScanReceipt{}, fmt.Errorf("failed to append scan event: %w", err)
	}

	// Drivers without RETURNING support leave DB-defaulted columns unset
	// on the created struct; reload so the caller sees the committed
	// timestamp.
	if event.OccurredAt.IsZero() {
		if err := s.db.WithContext(ctx).
			Select("occurred_at").
			First(&event, event.ID).Error; err != nil {
			return ScanReceipt{}, fmt.Errorf("failed to reload scan event %d: %w", event.ID, err)
		}
	}

	return ScanReceipt{ID: event.ID, OccurredAt: event.OccurredAt}, nil
}

// ResolvePresence is a point lookup over the (token, location_id,
// occurred_at desc) index; ties on occurred_at are broken by id.
func (s *gormStore) ResolvePresence(ctx context.Context, token string, locationID int64) (Action, bool, error) {
	var event model.ScanEvent
	err := s.db.WithContext(ctx).
		Where("token = ? AND location_id = ?", token, locationID).
		Order("occurred_at DESC, id DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve presence for token %q at location %d: %w", token, locationID, err)
	}
	return Action(event.Action), true, nil
}

// occupancyQuery ranks events per (token, location) pair and keeps only
// pairs whose latest action is entry. Single pass over the log, no
// per-token lookups.
const occupancyQuery = `
WITH last_actions AS (
	SELECT token, location_id, action,
	       ROW_NUMBER() OVER (
	           PARTITION BY token, location_id
	           ORDER BY occurred_at DESC, id DESC
	       ) AS rn
	FROM scan_events
)
SELECT l.id AS location_id, l.name AS location_name, COUNT(*) AS count
FROM last_actions la
JOIN locations l ON la.location_id = l.id
WHERE la.rn = 1 AND la.action = 'entry'
GROUP BY l.id, l.name
ORDER BY l.id`

func (s *gormStore) Occupancy(ctx context.Context) ([]OccupancyRow, error) {
	rows := make([]OccupancyRow, 0)
	if err := s.db.WithContext(ctx).Raw(occupancyQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate occupancy: %w", err)
	}
	return rows, nil
}

func (s *gormStore) ListLocations(ctx context.Context) ([]LocationRow, error) {
	var locations []model.Location
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	rows := make([]LocationRow, 0, len(locations))
	for _, l := range locations {
		rows = append(rows, LocationRow{ID: l.ID, Name: l.Name})
	}
	return rows, nil
}

func (s *gormStore) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	var location model.Location
	err := s.db.WithContext(ctx).Select("id").First(&location, locationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up location %d: %w", locationID, err)
	}
	return true, nil
}

// SeedLocations upserts the configured directory entries. The directory
// is managed outside this service; seeding only makes the configured
// entries available, it never removes rows.
func (s *gormStore) SeedLocations(ctx context.Context, seeds []LocationSeed) error {
	if len(seeds) == 0 {
		return nil
	}

	locations := make([]model.Location, 0, len(seeds))
	for _, seed := range seeds {
		locations = append(locations, model.Location{ID: seed.ID, Name: seed.Name})
	}

	log.Printf("Seeding %d locations into the directory...", len(locations))
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&locations).Error; err != nil {
		return fmt.Errorf("failed to seed locations: %w", err)
	}
	return nil
}
