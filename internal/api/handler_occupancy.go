package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetOccupancy handles the GET /occupancy request. Counts are derived
// from the full event log on every call; locations with nobody inside
// are omitted.
func (h *Handler) GetOccupancy(c *gin.Context) {
	rows, err := h.store.Occupancy(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "StorageUnavailable"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
