package main

import (
	// Standard library
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	// External dependencies
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/houzhh15/workrelay/cmd/server/internal/api"
	"github.com/houzhh15/workrelay/cmd/server/internal/chat"
	"github.com/houzhh15/workrelay/cmd/server/internal/config"
	"github.com/houzhh15/workrelay/cmd/server/internal/mailer"
	"github.com/houzhh15/workrelay/cmd/server/internal/middleware"
	"github.com/houzhh15/workrelay/cmd/server/internal/webhook"
	"github.com/houzhh15/workrelay/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logInstance, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		WithSource:  !strings.EqualFold(cfg.Server.Env, "production"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "relay-server")

	// Validate configuration
	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)
	appLogger.Debug(cfg.PrintConfig())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Outbound webhooks
	meetingHook := webhook.NewClient("zoom_hook", cfg.Webhooks.MeetingURL, cfg.Server.OutboundTimeout, logInstance.With("component", "webhook"))
	issueHook := webhook.NewClient("jira_hook", cfg.Webhooks.IssueURL, cfg.Server.OutboundTimeout, logInstance.With("component", "webhook"))
	if !meetingHook.Configured() {
		appLogger.Warn("ZOOM_HOOK not set, meeting creation will fail")
	}
	if !issueHook.Configured() {
		appLogger.Warn("JIRA_HOOK not set, issue creation will fail")
	}

	// Chat platform client, shared by all requests
	chatClient := chat.NewClient(chat.Config{
		Token:         cfg.Slack.Token,
		SigningSecret: cfg.Slack.SigningSecret,
		APIURL:        cfg.Slack.APIURL,
		Timeout:       cfg.Server.OutboundTimeout,
	}, logInstance.With("component", "chat"))
	if !chatClient.Configured() {
		appLogger.Warn("SLACK_TOKEN not set, channel listing and messaging will fail")
	}

	// Contact mail dispatcher
	var sender mailer.Sender = mailer.UnconfiguredSender{}
	if cfg.MailConfigured() {
		tokens := mailer.NewTokenSource(mailer.OAuthConfig{
			ClientID:     cfg.Mail.ClientID,
			ClientSecret: cfg.Mail.ClientSecret,
			RefreshToken: cfg.Mail.RefreshToken,
			RedirectURI:  cfg.Mail.RedirectURI,
			TokenURL:     cfg.Mail.TokenURL,
			Timeout:      cfg.Server.OutboundTimeout,
		})
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host: cfg.Mail.SMTPHost,
			Port: cfg.Mail.SMTPPort,
			User: cfg.Mail.User,
		}, tokens)
	} else {
		appLogger.Warn("mail credentials incomplete, contact mails will be dropped")
	}
	mailFrom := cfg.Mail.From
	if mailFrom == "" {
		mailFrom = cfg.Mail.User
	}
	dispatcher := mailer.NewDispatcher(sender, mailer.DispatcherConfig{
		From:          mailFrom,
		To:            cfg.Mail.To,
		MaxConcurrent: cfg.Mail.MaxConcurrent,
	}, logInstance.With("component", "mailer"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Security.CORSAllowedOrigin))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api.RegisterRoutes(r, api.Deps{
		MeetingHook: meetingHook,
		IssueHook:   issueHook,
		Channels:    chatClient,
		Messages:    chatClient,
		Mail:        dispatcher,
		Verifier:    chatClient,
		Readiness: []api.ReadinessProbe{
			{Name: "zoom_hook", Configured: meetingHook.Configured},
			{Name: "jira_hook", Configured: issueHook.Configured},
			{Name: "slack", Configured: chatClient.Configured},
			{Name: "mail", Configured: cfg.MailConfigured},
		},
		Env: cfg.Server.Env,
		Log: logInstance.With("component", "api"),
	})

	// Create HTTP server with graceful shutdown
	serverAddr := cfg.GetServerAddr()
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("Server is running", "addr", serverAddr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
	}
	if err := dispatcher.Close(ctx); err != nil {
		appLogger.Error("pending contact mails abandoned", "error", err)
	}
	appLogger.Info("server shutdown complete")
}
