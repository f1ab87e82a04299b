package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"presence-tracker-backend/internal/ingest"
	"presence-tracker-backend/internal/store"
)

type scanRequest struct {
	Token       string `json:"token"`
	LocationID  int64  `json:"location_id"`
	Action      string `json:"action"`
	SubmittedBy string `json:"submitted_by"`
}

// PostScan handles the POST /scan request, the only write path into the
// event log.
func (h *Handler) PostScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ingest.ErrMissingField.Code})
		return
	}

	receipt, err := h.ingest.Submit(c.Request.Context(), store.ScanDraft{
		Token:       req.Token,
		LocationID:  req.LocationID,
		Action:      store.Action(req.Action),
		SubmittedBy: req.SubmittedBy,
	})
	if err != nil {
		var verr *ingest.Error
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Code})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "StorageUnavailable"})
		return
	}

	c.JSON(http.StatusOK, receipt)
}
