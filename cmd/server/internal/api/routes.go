package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/workrelay/cmd/server/internal/chat"
	"github.com/houzhh15/workrelay/cmd/server/internal/mailer"
)

// WebhookPoster 向 webhook 投递一次 JSON
type WebhookPoster interface {
	Post(ctx context.Context, payload any) (int, error)
}

// ChannelLister 查询聊天平台频道
type ChannelLister interface {
	ListChannels(ctx context.Context) ([]chat.ChannelSummary, error)
}

// MessageSender 向聊天平台频道发送消息
type MessageSender interface {
	SendMessage(ctx context.Context, channel, text string) error
}

// MailDispatcher 后台派发联系邮件
type MailDispatcher interface {
	Dispatch(c mailer.Contact) <-chan mailer.Result
}

// RequestVerifier 校验聊天平台回调签名
type RequestVerifier interface {
	VerifyRequest(header http.Header, body []byte) error
}

// Deps 路由依赖，由 main 组装后注入
type Deps struct {
	MeetingHook WebhookPoster
	IssueHook   WebhookPoster
	Channels    ChannelLister
	Messages    MessageSender
	Mail        MailDispatcher
	Verifier    RequestVerifier
	Readiness   []ReadinessProbe
	Env         string
	Log         *slog.Logger
}

// RegisterRoutes 注册全部业务路由与探针
func RegisterRoutes(r gin.IRouter, deps Deps) {
	r.GET("/health", HandleHealth(deps.Env))
	r.GET("/readiness", HandleReadiness(deps.Readiness))

	r.POST("/api/create-meeting", HandleCreateMeeting(deps.MeetingHook, deps.Log))
	r.POST("/api/create-issue", HandleCreateIssue(deps.IssueHook, deps.Log))
	r.GET("/api/channels", HandleListChannels(deps.Channels, deps.Log))
	r.POST("/send-message", HandleSendMessage(deps.Messages, deps.Log))
	r.POST("/api/sendmail", HandleSendMail(deps.Mail, deps.Log))
	r.POST("/slack/actions", HandleSlackActions(deps.Verifier, deps.Log))
}
