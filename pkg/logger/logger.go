package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 定义日志初始化配置
// Level 支持 debug/info/warn/error，Environment 支持 prod/dev 等
// Format 为空时按环境选择（prod 使用 json，其余使用文本）
// File 非空时额外写入滚动日志文件
type Config struct {
	Level       string
	Environment string
	Format      string
	File        string
	WithSource  bool
}

var (
	global *slog.Logger
	once   sync.Once
)

func levelFromString(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New("invalid log level: " + level)
	}
}

// useJSON 判断是否使用 JSON 输出
func useJSON(cfg Config) bool {
	switch strings.ToLower(cfg.Format) {
	case "json":
		return true
	case "console", "text":
		return false
	}
	env := strings.ToLower(cfg.Environment)
	return env == "prod" || env == "production"
}

// output 返回日志输出目标，配置 File 时同时写入 stdout 与滚动文件
func output(cfg Config) io.Writer {
	if cfg.File == "" {
		return os.Stdout
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    100, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotating)
}

// New 根据配置创建新的 slog.Logger，不设置全局实例
func New(cfg Config) (*slog.Logger, error) {
	return NewWithWriter(cfg, output(cfg))
}

// NewWithWriter 使用指定输出创建 logger，主要用于测试
func NewWithWriter(cfg Config, w io.Writer) (*slog.Logger, error) {
	lvl, err := levelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl, AddSource: cfg.WithSource}
	var handler slog.Handler
	if useJSON(cfg) {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler), nil
}

// Init 初始化全局日志实例，重复调用将返回首次创建的 logger
func Init(cfg Config) (*slog.Logger, error) {
	var initErr error
	once.Do(func() {
		global, initErr = New(cfg)
	})
	return global, initErr
}

// L 返回已初始化的全局 logger，未初始化时 panic
func L() *slog.Logger {
	if global == nil {
		panic("logger.Init must be called before logger.L")
	}
	return global
}

// LogOutbound 记录一次对外调用的结构化日志
// target: zoom_hook/jira_hook/slack/mail
// outcome: success/rejected/error
func LogOutbound(logger *slog.Logger, target, outcome string, status int, durationMs int64, err error) {
	attrs := []slog.Attr{
		slog.String("target", target),
		slog.String("outcome", outcome),
		slog.Int64("duration_ms", durationMs),
	}
	if status != 0 {
		attrs = append(attrs, slog.Int("status", status))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.LogAttrs(context.Background(), slog.LevelError, "outbound call failed", attrs...)
	} else {
		logger.LogAttrs(context.Background(), slog.LevelInfo, "outbound call", attrs...)
	}
}
