package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/slack-go/slack"
)

// ErrNoSigningSecret 未配置签名密钥，无法校验交互回调
var ErrNoSigningSecret = errors.New("chat signing secret not configured")

// Interaction 交互回调中与按钮相关的信息
type Interaction struct {
	Type      string
	UserID    string
	ChannelID string
	ActionIDs []string
}

// VerifyRequest 使用签名密钥校验平台回调（v0 HMAC 签名与时间戳）
func (c *Client) VerifyRequest(header http.Header, body []byte) error {
	if c.signingSecret == "" {
		return ErrNoSigningSecret
	}
	sv, err := slack.NewSecretsVerifier(header, c.signingSecret)
	if err != nil {
		return fmt.Errorf("invalid signature headers: %w", err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("hash body: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}
	return nil
}

// ParseInteraction 解析表单编码的交互回调 body（payload=<json>）
func ParseInteraction(body []byte) (*Interaction, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	raw := values.Get("payload")
	if raw == "" {
		return nil, errors.New("missing payload")
	}

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(raw), &cb); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	ia := &Interaction{
		Type:      string(cb.Type),
		UserID:    cb.User.ID,
		ChannelID: cb.Channel.ID,
	}
	for _, action := range cb.ActionCallback.BlockActions {
		ia.ActionIDs = append(ia.ActionIDs, action.ActionID)
	}
	return ia, nil
}
