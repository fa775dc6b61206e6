package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nki-one/quoteintake/internal/api"
	"github.com/nki-one/quoteintake/internal/attachment"
	"github.com/nki-one/quoteintake/internal/auth"
	"github.com/nki-one/quoteintake/internal/config"
	"github.com/nki-one/quoteintake/internal/intake"
	"github.com/nki-one/quoteintake/internal/mailer"
	"github.com/nki-one/quoteintake/internal/objectstore"
	"github.com/nki-one/quoteintake/internal/quotelog"
	"github.com/nki-one/quoteintake/internal/sse"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := quotelog.Open(cfg.LogFile, cfg.LogBackupDir, cfg.MaxLogSize, logger)
	if err != nil {
		logger.Error("open quote log", "error", err)
		os.Exit(1)
	}

	sendTimeout := time.Duration(cfg.SendTimeout) * time.Second

	var uploader attachment.Uploader
	if cfg.S3Bucket != "" {
		client, err := objectstore.New(objectstore.Options{
			Bucket:            cfg.S3Bucket,
			Region:            cfg.S3Region,
			AccessKey:         cfg.S3AccessKey,
			SecretKey:         cfg.S3SecretKey,
			Endpoint:          cfg.S3Endpoint,
			ForcePathStyle:    cfg.S3ForcePathStyle,
			PublicURLTemplate: cfg.S3PublicURLTemplate,
			Timeout:           sendTimeout,
		})
		if err != nil {
			logger.Warn("object storage unavailable, attachments will be inlined", "error", err)
		} else {
			uploader = client
			logger.Info("object storage enabled", "bucket", cfg.S3Bucket)
		}
	}

	var transport mailer.Transport
	if cfg.SMTPHost != "" {
		transport = mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSecure, cfg.SMTPUser, cfg.SMTPPass, cfg.MailDomain, sendTimeout, logger)
		logger.Info("smtp transport configured", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	} else {
		transport = mailer.NewDryRun(cfg.MailDomain, logger)
		logger.Warn("SMTP_HOST not set; mail will be logged, not delivered")
	}

	authManager, err := auth.New(cfg.AuthSecret, cfg.AdminPassword, 30*24*time.Hour)
	if err != nil {
		logger.Error("init auth", "error", err)
		os.Exit(1)
	}
	if !authManager.Enabled() {
		logger.Warn("ADMIN_PASSWORD not set; admin API is unauthenticated")
	}

	hub := sse.NewHub()
	router := attachment.NewRouter(uploader, cfg.MaxAttachSize, logger)
	intakeService := intake.NewService(router, transport, store, hub, cfg.From(), cfg.SalesEmail, logger)
	apiServer := api.NewServer(cfg, intakeService, store, authManager, hub, logger)

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpSrv := &http.Server{
		Addr:    httpAddr,
		Handler: apiServer,
	}

	go func() {
		logger.Info("http server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("shutdown http", "error", err)
	}
}
