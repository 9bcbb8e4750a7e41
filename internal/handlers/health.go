package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/conference-rooms/internal/models"
)

// CredentialStatus reports whether tokens can be signed.
type CredentialStatus interface {
	Configured() bool
}

// Health handles GET /api/health
func Health(status CredentialStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:            "OK",
			Timestamp:         models.FormatTimestamp(time.Now()),
			LivekitConfigured: status.Configured(),
		})
	}
}
