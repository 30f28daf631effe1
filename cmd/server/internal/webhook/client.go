// Package webhook 提供面向自动化 webhook 的出站 JSON POST 客户端
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/houzhh15/workrelay/pkg/logger"
	"github.com/houzhh15/workrelay/pkg/metrics"
)

// ErrNotConfigured 未配置 webhook 地址
var ErrNotConfigured = errors.New("webhook url not configured")

// maxErrorBody 错误响应体最多保留的字节数
const maxErrorBody = 4096

// StatusError webhook 返回非 2xx 状态码
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded with status %d", e.StatusCode)
}

// Client 向单个 webhook 地址投递 JSON
type Client struct {
	name       string
	url        string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient 创建 webhook 客户端
// 参数:
//   - name: 目标名称，用于日志与指标标签（如 zoom_hook）
//   - url: webhook 地址，为空时 Post 返回 ErrNotConfigured
//   - timeout: 单次请求超时
func NewClient(name, url string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Name 返回目标名称
func (c *Client) Name() string {
	return c.name
}

// Configured 是否配置了地址
func (c *Client) Configured() bool {
	return c.url != ""
}

// Post 将 payload 编码为 JSON 投递到 webhook，只发起一次请求
// 返回 2xx 状态码；非 2xx 返回 *StatusError；网络错误原样包装返回
func (c *Client) Post(ctx context.Context, payload any) (int, error) {
	if c.url == "" {
		return 0, ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.record("error", 0, elapsed, err)
		return 0, fmt.Errorf("post to %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		c.record("rejected", resp.StatusCode, elapsed, statusErr)
		return resp.StatusCode, statusErr
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	c.record("success", resp.StatusCode, elapsed, nil)
	return resp.StatusCode, nil
}

func (c *Client) record(outcome string, status int, elapsed time.Duration, err error) {
	metrics.RecordOutbound(c.name, outcome, elapsed.Seconds())
	if c.log != nil {
		logger.LogOutbound(c.log, c.name, outcome, status, elapsed.Milliseconds(), err)
	}
}
