package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 通用错误信息
const (
	msgGenericError     = "An error occurred"
	msgGenericErrorDot  = "An error occurred."
	msgWebhookNotOK     = "Error sending data to Zapier"
	msgInvalidBody      = "invalid request body"
	msgInvalidSignature = "invalid signature"
)

// requestLogger 返回附带 request_id 的 logger
func requestLogger(c *gin.Context, log *slog.Logger) *slog.Logger {
	if log == nil {
		log = slog.Default()
	}
	if rid := c.GetString("request_id"); rid != "" {
		return log.With("rid", rid)
	}
	return log
}

// bindJSON 解析请求体；空 body 视为 {}，与前端未填字段的行为一致
func bindJSON(c *gin.Context, out any) bool {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequestResponse(c, msgInvalidBody)
		return false
	}
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, out); err != nil {
		badRequestResponse(c, msgInvalidBody)
		return false
	}
	return true
}

// errorResponse 返回错误响应
func errorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"error": message,
	})
}

// messageResponse 返回 200 {"message": ...}
func messageResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"message": message,
	})
}

// badRequestResponse 返回 400 响应
func badRequestResponse(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": message,
	})
}

// unauthorizedResponse 返回 401 响应
func unauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "unauthorized"
	}
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
