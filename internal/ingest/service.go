package ingest

import (
	"context"
	"fmt"

	"presence-tracker-backend/internal/store"
)

// Error is a client-input validation failure with a machine-readable
// code for the wire.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validation errors, in the order Submit checks them.
var (
	ErrMissingField    = &Error{Code: "MissingField", Message: "missing fields, required: token, location_id, action"}
	ErrInvalidAction   = &Error{Code: "InvalidAction", Message: "invalid action, must be entry or exit"}
	ErrUnknownLocation = &Error{Code: "UnknownLocation", Message: "unknown location_id"}
)

// Service is the only write path into the event log. It validates a
// submission and commits exactly one event on success; failures leave
// the log untouched.
type Service struct {
	store store.Store
}

// NewService creates a new ingestion service backed by the given store.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Submit validates the draft and appends it to the event log. Repeated
// identical submissions are accepted as independent events on purpose:
// de-duplication of decoder chatter is the capture loop's job, and two
// genuine re-entries must both be recorded.
func (s *Service) Submit(ctx context.Context, draft store.ScanDraft) (store.ScanReceipt, error) {
	if draft.Token == "" || draft.LocationID == 0 {
		return store.ScanReceipt{}, ErrMissingField
	}
	if !draft.Action.Valid() {
		return store.ScanReceipt{}, ErrInvalidAction
	}

	exists, err := s.store.LocationExists(ctx, draft.LocationID)
	if err != nil {
		return store.ScanReceipt{}, fmt.Errorf("location lookup failed: %w", err)
	}
	if !exists {
		return store.ScanReceipt{}, ErrUnknownLocation
	}

	receipt, err := s.store.AppendScan(ctx, draft)
	if err != nil {
		return store.ScanReceipt{}, fmt.Errorf("scan append failed: %w", err)
	}
	return receipt, nil
}
