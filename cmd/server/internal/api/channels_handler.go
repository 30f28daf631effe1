package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleListChannels GET /api/channels
func HandleListChannels(lister ChannelLister, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		channels, err := lister.ListChannels(c.Request.Context())
		if err != nil {
			requestLogger(c, log).Error("Error fetching channels", "error", err)
			errorResponse(c, http.StatusInternalServerError, msgGenericErrorDot)
			return
		}

		c.JSON(http.StatusOK, channels)
	}
}
