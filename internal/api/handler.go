package api

import (
	"presence-tracker-backend/internal/ingest"
	"presence-tracker-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store  store.Store
	ingest *ingest.Service
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, ingestSvc *ingest.Service) *Handler {
	return &Handler{
		store:  s,
		ingest: ingestSvc,
	}
}
