package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetHealth handles the GET /health request.
func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
