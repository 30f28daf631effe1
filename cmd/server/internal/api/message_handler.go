package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

var errNotText = errors.New("channel and text must be strings")

// MessageRequest 发送消息请求
// 字段不限定类型，非字符串值与平台拒绝一样按发送失败处理
type MessageRequest struct {
	Channel any `json:"channel"`
	Text    any `json:"text"`
}

// textOf 缺省视为空字符串
func textOf(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	default:
		return "", false
	}
}

// HandleSendMessage POST /send-message
func HandleSendMessage(sender MessageSender, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MessageRequest
		if !bindJSON(c, &req) {
			return
		}

		channel, okChannel := textOf(req.Channel)
		text, okText := textOf(req.Text)
		err := errNotText
		if okChannel && okText {
			err = sender.SendMessage(c.Request.Context(), channel, text)
		}
		if err != nil {
			requestLogger(c, log).Error("Error sending message to Slack", "channel", req.Channel, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": msgGenericErrorDot})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message sent successfully."})
	}
}
