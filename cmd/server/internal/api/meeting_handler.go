package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MeetingRequest 创建会议请求，字段原样透传
type MeetingRequest struct {
	Title    json.RawMessage `json:"title,omitempty"`
	Type     json.RawMessage `json:"type,omitempty"`
	Date     json.RawMessage `json:"date,omitempty"`
	Duration json.RawMessage `json:"duration,omitempty"`
	Channel  json.RawMessage `json:"channel,omitempty"`
}

// meetingPayload 发往会议 webhook 的 body：title/type 改名，其余不变
type meetingPayload struct {
	MeetingTitle json.RawMessage `json:"meetingTitle,omitempty"`
	MeetingType  json.RawMessage `json:"meetingType,omitempty"`
	Date         json.RawMessage `json:"date,omitempty"`
	Duration     json.RawMessage `json:"duration,omitempty"`
	Channel      json.RawMessage `json:"channel,omitempty"`
}

func (r MeetingRequest) payload() meetingPayload {
	return meetingPayload{
		MeetingTitle: r.Title,
		MeetingType:  r.Type,
		Date:         r.Date,
		Duration:     r.Duration,
		Channel:      r.Channel,
	}
}

// HandleCreateMeeting POST /api/create-meeting
// webhook 返回 200 时成功；其他 2xx 及任何失败都返回 500 和通用错误
func HandleCreateMeeting(hook WebhookPoster, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MeetingRequest
		if !bindJSON(c, &req) {
			return
		}

		status, err := hook.Post(c.Request.Context(), req.payload())
		if err != nil {
			requestLogger(c, log).Error("create meeting failed", "error", err)
			errorResponse(c, http.StatusInternalServerError, msgGenericError)
			return
		}
		if status != http.StatusOK {
			errorResponse(c, http.StatusInternalServerError, msgWebhookNotOK)
			return
		}

		messageResponse(c, "Meeting link created")
	}
}
