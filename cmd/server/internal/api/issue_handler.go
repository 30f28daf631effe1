package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/workrelay/cmd/server/internal/webhook"
)

// IssueRequest 创建工单请求，原样转发到工单 webhook
type IssueRequest struct {
	Summary     json.RawMessage `json:"summary,omitempty"`
	Desc        json.RawMessage `json:"desc,omitempty"`
	ProjectID   json.RawMessage `json:"project_id,omitempty"`
	Priority    json.RawMessage `json:"priority,omitempty"`
	DueDate     json.RawMessage `json:"due_date,omitempty"`
	MeetingDate json.RawMessage `json:"meeting_date,omitempty"`
	Duration    json.RawMessage `json:"duration,omitempty"`
	Channel     json.RawMessage `json:"channel,omitempty"`
}

// rawError 工单接口失败时回传给前端的原始错误对象
type rawError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Data    string `json:"data,omitempty"`
}

func newRawError(err error) rawError {
	re := rawError{Name: "Error", Message: err.Error()}
	var statusErr *webhook.StatusError
	if errors.As(err, &statusErr) {
		re.Name = "StatusError"
		re.Status = statusErr.StatusCode
		re.Data = statusErr.Body
	}
	return re
}

// HandleCreateIssue POST /api/create-issue
// 失败时返回 404 {"err": <原始错误>}，保持与现有前端的兼容
func HandleCreateIssue(hook WebhookPoster, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IssueRequest
		if !bindJSON(c, &req) {
			return
		}

		status, err := hook.Post(c.Request.Context(), req)
		if err != nil {
			requestLogger(c, log).Error("create issue failed", "error", err)
			c.JSON(http.StatusNotFound, gin.H{"err": newRawError(err)})
			return
		}
		if status != http.StatusOK {
			errorResponse(c, http.StatusInternalServerError, msgWebhookNotOK)
			return
		}

		messageResponse(c, "Issue created on Jira")
	}
}
