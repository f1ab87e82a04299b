package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetLocations handles the GET /locations request. It returns the
// directory ordered by location id.
func (h *Handler) GetLocations(c *gin.Context) {
	locations, err := h.store.ListLocations(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "StorageUnavailable"})
		return
	}
	c.JSON(http.StatusOK, locations)
}
