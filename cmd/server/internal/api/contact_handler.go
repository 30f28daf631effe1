package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/workrelay/cmd/server/internal/mailer"
)

// HandleSendMail POST /api/sendmail
// 派发后立即返回 200 空 body，发送结果只记录日志，不回传给调用方
func HandleSendMail(dispatcher MailDispatcher, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var contact mailer.Contact
		if !bindJSON(c, &contact) {
			return
		}

		dispatcher.Dispatch(contact)
		requestLogger(c, log).Debug("contact mail dispatched", "email", contact.Email)

		c.Status(http.StatusOK)
	}
}
