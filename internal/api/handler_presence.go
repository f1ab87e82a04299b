package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"presence-tracker-backend/internal/ingest"
)

// presenceResponse reports the resolved state of one (token, location)
// pair. Action is null when the pair has no recorded events, which is
// not the same thing as an exit.
type presenceResponse struct {
	Token      string  `json:"token"`
	LocationID int64   `json:"location_id"`
	Action     *string `json:"action"`
}

// GetPresence handles the GET /presence request.
func (h *Handler) GetPresence(c *gin.Context) {
	token := c.Query("token")
	locationID, err := strconv.ParseInt(c.Query("location_id"), 10, 64)
	if token == "" || err != nil || locationID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": ingest.ErrMissingField.Code})
		return
	}

	action, found, err := h.store.ResolvePresence(c.Request.Context(), token, locationID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "StorageUnavailable"})
		return
	}

	resp := presenceResponse{Token: token, LocationID: locationID}
	if found {
		s := string(action)
		resp.Action = &s
	}
	c.JSON(http.StatusOK, resp)
}
