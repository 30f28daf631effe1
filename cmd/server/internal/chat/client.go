// Package chat 封装团队聊天平台（Slack）的频道查询、消息发送与交互签名校验
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/slack-go/slack"

	"github.com/houzhh15/workrelay/pkg/logger"
	"github.com/houzhh15/workrelay/pkg/metrics"
)

const metricTarget = "slack"

// ErrNotConfigured 未配置平台 token
var ErrNotConfigured = errors.New("chat platform token not configured")

// ChannelSummary 频道摘要，仅保留 id 与 name
type ChannelSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Config 客户端配置
type Config struct {
	Token         string
	SigningSecret string
	APIURL        string
	Timeout       time.Duration
}

// Client 聊天平台客户端，进程内共享一个实例
type Client struct {
	api           *slack.Client
	configured    bool
	signingSecret string
	log           *slog.Logger
}

// NewClient 创建聊天平台客户端
func NewClient(cfg Config, log *slog.Logger) *Client {
	opts := []slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}

	return &Client{
		api:           slack.New(cfg.Token, opts...),
		configured:    cfg.Token != "",
		signingSecret: cfg.SigningSecret,
		log:           log,
	}
}

// Configured 是否配置了 token
func (c *Client) Configured() bool {
	return c.configured
}

// ListChannels 调用 conversations.list 并投影为 {id,name}，保持平台返回顺序
func (c *Client) ListChannels(ctx context.Context) ([]ChannelSummary, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	channels, _, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{})
	c.record("conversations.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	return lo.Map(channels, func(ch slack.Channel, _ int) ChannelSummary {
		return ChannelSummary{ID: ch.ID, Name: ch.Name}
	}), nil
}

// SendMessage 以固定的三段式布局向频道发送消息
func (c *Client) SendMessage(ctx context.Context, channel, text string) error {
	if !c.configured {
		return ErrNotConfigured
	}

	start := time.Now()
	_, _, err := c.api.PostMessageContext(ctx, channel,
		slack.MsgOptionBlocks(MessageBlocks(text)...),
		slack.MsgOptionText(text, false),
	)
	c.record("chat.postMessage", start, err)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func (c *Client) record(method string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordOutbound(metricTarget, outcome, elapsed.Seconds())
	if c.log != nil {
		logger.LogOutbound(c.log.With("method", method), metricTarget, outcome, 0, elapsed.Milliseconds(), err)
	}
}
