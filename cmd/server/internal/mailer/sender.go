package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"

	"gopkg.in/gomail.v2"
)

// ErrTokenExchange 刷新令牌交换失败
var ErrTokenExchange = errors.New("oauth2 token exchange failed")

// Sender 发送一封已构造好的邮件
type Sender interface {
	Send(ctx context.Context, m *gomail.Message) error
}

// SMTPConfig SMTP 中继参数
type SMTPConfig struct {
	Host string
	Port int
	User string
}

// SMTPSender 每次发送先获取访问令牌，再建立 XOAUTH2 认证的 SMTP 会话
// 会话绑定调用方 ctx：ctx 结束时连接被关闭，阻塞中的读写立即返回
type SMTPSender struct {
	cfg    SMTPConfig
	tokens TokenSource
}

// NewSMTPSender 创建 SMTP 发送器
func NewSMTPSender(cfg SMTPConfig, tokens TokenSource) *SMTPSender {
	return &SMTPSender{cfg: cfg, tokens: tokens}
}

// Send 发送邮件
func (s *SMTPSender) Send(ctx context.Context, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrTokenExchange, ctxErr)
		}
		return fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	if err := s.deliver(ctx, token.AccessToken, m); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send: %w", ctxErr)
		}
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, accessToken string, m *gomail.Message) error {
	var dialer net.Dialer
	raw, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return err
	}
	defer raw.Close()
	stop := context.AfterFunc(ctx, func() { raw.Close() })
	defer stop()

	tlsConfig := &tls.Config{ServerName: s.cfg.Host}
	conn := raw
	if s.cfg.Port == 465 {
		conn = tls.Client(raw, tlsConfig)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if s.cfg.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}
	if err := c.Auth(&xoauth2Auth{user: s.cfg.User, accessToken: accessToken}); err != nil {
		return err
	}

	send := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		if err := c.Mail(from); err != nil {
			return err
		}
		for _, addr := range to {
			if err := c.Rcpt(addr); err != nil {
				return err
			}
		}
		w, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := msg.WriteTo(w); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
	if err := gomail.Send(send, m); err != nil {
		return err
	}
	return c.Quit()
}

// ErrNotConfigured 未配置邮件凭据
var ErrNotConfigured = errors.New("mail relay not configured")

// UnconfiguredSender 在缺少凭据时使用，所有发送都返回 ErrNotConfigured
type UnconfiguredSender struct{}

// Send 总是失败
func (UnconfiguredSender) Send(context.Context, *gomail.Message) error {
	return ErrNotConfigured
}
