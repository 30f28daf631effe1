package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 统一配置结构
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Security SecurityConfig `yaml:"security"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
	Slack    SlackConfig    `yaml:"slack"`
	Mail     MailConfig     `yaml:"mail"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env             string        `yaml:"env"` // dev, staging, production
	Port            string        `yaml:"port"`
	OutboundTimeout time.Duration `yaml:"outbound_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORSAllowedOrigin string `yaml:"cors_allowed_origin"`
}

// WebhookConfig 自动化 webhook 地址
type WebhookConfig struct {
	MeetingURL string `yaml:"meeting_url"`
	IssueURL   string `yaml:"issue_url"`
}

// SlackConfig 团队聊天平台配置
type SlackConfig struct {
	Token         string `yaml:"token"`
	SigningSecret string `yaml:"signing_secret"`
	APIURL        string `yaml:"api_url"`
}

// MailConfig 邮件中继与 OAuth2 配置
type MailConfig struct {
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	RefreshToken  string `yaml:"refresh_token"`
	RedirectURI   string `yaml:"redirect_uri"`
	TokenURL      string `yaml:"token_url"`
	SMTPHost      string `yaml:"smtp_host"`
	SMTPPort      int    `yaml:"smtp_port"`
	User          string `yaml:"user"`
	From          string `yaml:"from"`
	To            string `yaml:"to"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// LoadConfig 从环境变量加载配置
// 若存在 .env 文件则先载入（不覆盖已有环境变量）；RELAY_CONFIG_FILE 指定的 YAML 文件会覆盖对应字段
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Env:             getEnv("ENV", "dev"),
			Port:            getEnv("PORT", "8000"),
			OutboundTimeout: getEnvDuration("OUTBOUND_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", ""),
		},
		Security: SecurityConfig{
			CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "http://127.0.0.1:5174"),
		},
		Webhooks: WebhookConfig{
			MeetingURL: getEnv("ZOOM_HOOK", ""),
			IssueURL:   getEnv("JIRA_HOOK", ""),
		},
		Slack: SlackConfig{
			Token:         getEnv("SLACK_TOKEN", ""),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
			APIURL:        getEnv("SLACK_API_URL", "https://slack.com/api/"),
		},
		Mail: MailConfig{
			ClientID:      getEnv("CLIENT_ID", ""),
			ClientSecret:  getEnv("CLIENT_SECRET", ""),
			RefreshToken:  getEnv("REFRESH_TOKEN", ""),
			RedirectURI:   getEnv("REDIRECT_URI", ""),
			TokenURL:      getEnv("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:      getEnvInt("SMTP_PORT", 465),
			User:          getEnv("MAIL_USER", ""),
			From:          getEnv("MAIL_FROM", ""),
			To:            getEnv("MAIL_TO", ""),
			MaxConcurrent: getEnvInt("MAIL_MAX_CONCURRENT", 4),
		},
	}

	if path := os.Getenv("RELAY_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// overlayFile 用 YAML 文件中出现的字段覆盖当前配置
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// ValidateConfig 验证配置的有效性
func ValidateConfig(cfg *Config) error {
	var errors []string

	// 1. 端口验证
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	// 2. 日志级别验证
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	// 3. 日志格式验证
	validLogFormats := map[string]bool{"console": true, "json": true}
	if !validLogFormats[cfg.Log.Format] {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT: %s (must be: console, json)", cfg.Log.Format))
	}

	// 4. 环境验证
	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true}
	if !validEnvs[cfg.Server.Env] {
		errors = append(errors, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	// 5. URL 格式验证（未设置时跳过）
	urls := map[string]string{
		"ZOOM_HOOK":       cfg.Webhooks.MeetingURL,
		"JIRA_HOOK":       cfg.Webhooks.IssueURL,
		"SLACK_API_URL":   cfg.Slack.APIURL,
		"OAUTH_TOKEN_URL": cfg.Mail.TokenURL,
	}
	for _, name := range []string{"ZOOM_HOOK", "JIRA_HOOK", "SLACK_API_URL", "OAUTH_TOKEN_URL"} {
		if raw := urls[name]; raw != "" && !isHTTPURL(raw) {
			errors = append(errors, fmt.Sprintf("invalid %s: %s (must be an http(s) URL)", name, raw))
		}
	}

	// 6. 邮件参数
	if cfg.Mail.SMTPPort < 1 || cfg.Mail.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP_PORT value: %d (must be 1-65535)", cfg.Mail.SMTPPort))
	}
	if cfg.Mail.MaxConcurrent < 1 {
		errors = append(errors, fmt.Sprintf("invalid MAIL_MAX_CONCURRENT value: %d (must be > 0)", cfg.Mail.MaxConcurrent))
	}
	if cfg.Server.OutboundTimeout <= 0 {
		errors = append(errors, "OUTBOUND_TIMEOUT must be a positive duration")
	}

	// 7. 生产环境必须配置全部凭据
	if cfg.IsProduction() {
		required := []struct {
			name  string
			value string
		}{
			{"ZOOM_HOOK", cfg.Webhooks.MeetingURL},
			{"JIRA_HOOK", cfg.Webhooks.IssueURL},
			{"SLACK_TOKEN", cfg.Slack.Token},
			{"SLACK_SIGNING_SECRET", cfg.Slack.SigningSecret},
			{"CLIENT_ID", cfg.Mail.ClientID},
			{"CLIENT_SECRET", cfg.Mail.ClientSecret},
			{"REFRESH_TOKEN", cfg.Mail.RefreshToken},
			{"MAIL_USER", cfg.Mail.User},
			{"MAIL_FROM", cfg.Mail.From},
			{"MAIL_TO", cfg.Mail.To},
		}
		for _, r := range required {
			if r.value == "" {
				errors = append(errors, fmt.Sprintf("%s is required in production environment", r.name))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment 判断是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "dev" || c.Server.Env == "development"
}

// GetServerAddr 获取服务器监听地址
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// MailConfigured 邮件适配器所需凭据是否齐全
func (c *Config) MailConfigured() bool {
	m := c.Mail
	return m.ClientID != "" && m.ClientSecret != "" && m.RefreshToken != "" && m.User != "" && m.To != ""
}

// PrintConfig 打印配置（脱敏）
func (c *Config) PrintConfig() string {
	return fmt.Sprintf(`Configuration Loaded:
  Environment: %s
  Server Port: %s
  Outbound Timeout: %s
  Logging:
    - Level: %s
    - Format: %s
    - File: %s
  Security:
    - CORS Origin: %s
  Webhooks:
    - Meeting: %s
    - Issue: %s
  Slack:
    - API URL: %s
    - Token: %s
    - Signing Secret: %s
  Mail:
    - SMTP: %s:%d
    - User: %s
    - From: %s
    - To: %s
    - Client ID: %s
    - Client Secret: %s
    - Refresh Token: %s`,
		c.Server.Env,
		c.Server.Port,
		c.Server.OutboundTimeout,
		c.Log.Level,
		c.Log.Format,
		orUnset(c.Log.File),
		c.Security.CORSAllowedOrigin,
		maskSecret(c.Webhooks.MeetingURL),
		maskSecret(c.Webhooks.IssueURL),
		c.Slack.APIURL,
		maskSecret(c.Slack.Token),
		maskSecret(c.Slack.SigningSecret),
		c.Mail.SMTPHost,
		c.Mail.SMTPPort,
		orUnset(c.Mail.User),
		orUnset(c.Mail.From),
		orUnset(c.Mail.To),
		maskSecret(c.Mail.ClientID),
		maskSecret(c.Mail.ClientSecret),
		maskSecret(c.Mail.RefreshToken),
	)
}

// 辅助函数

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量，无法解析时返回 -1 交由 ValidateConfig 报错
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

// getEnvDuration 获取时长环境变量，无法解析时返回 0 交由 ValidateConfig 报错
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func orUnset(v string) string {
	if v == "" {
		return "<not set>"
	}
	return v
}

// maskSecret 对敏感信息进行脱敏
func maskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}
