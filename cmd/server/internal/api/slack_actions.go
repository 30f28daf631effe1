package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/workrelay/cmd/server/internal/chat"
)

// HandleSlackActions POST /slack/actions
// 校验签名后记录按钮点击，平台要求 3 秒内返回 200
func HandleSlackActions(verifier RequestVerifier, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			badRequestResponse(c, msgInvalidBody)
			return
		}

		l := requestLogger(c, log)
		if err := verifier.VerifyRequest(c.Request.Header, body); err != nil {
			l.Warn("rejected chat interaction", "error", err)
			unauthorizedResponse(c, msgInvalidSignature)
			return
		}

		ia, err := chat.ParseInteraction(body)
		if err != nil {
			badRequestResponse(c, msgInvalidBody)
			return
		}

		for _, id := range ia.ActionIDs {
			if id == chat.ButtonActionID {
				l.Info("button clicked", "user", ia.UserID, "channel", ia.ChannelID)
			}
		}

		c.Status(http.StatusOK)
	}
}
