// Package mailer 负责联系表单邮件：OAuth2 刷新令牌换取访问令牌、XOAUTH2 SMTP 发送与后台派发
package mailer

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// OAuthConfig 刷新令牌交换所需参数
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	RedirectURI  string
	TokenURL     string
	Timeout      time.Duration
}

// TokenSource 按调用方上下文获取访问令牌
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// RefreshTokenSource 基于刷新令牌的访问令牌来源
// 访问令牌在过期前复用，过期后使用调用方的 ctx 重新交换
type RefreshTokenSource struct {
	conf   *oauth2.Config
	client *http.Client

	mu      sync.Mutex
	current *oauth2.Token
}

// NewTokenSource 创建基于刷新令牌的访问令牌来源
func NewTokenSource(cfg OAuthConfig) *RefreshTokenSource {
	return &RefreshTokenSource{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client:  &http.Client{Timeout: cfg.Timeout},
		current: &oauth2.Token{RefreshToken: cfg.RefreshToken},
	}
}

// Token 返回有效的访问令牌
func (s *RefreshTokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Valid() {
		return s.current, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	tok, err := s.conf.TokenSource(ctx, s.current).Token()
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = s.current.RefreshToken
	}
	s.current = tok
	return tok, nil
}
