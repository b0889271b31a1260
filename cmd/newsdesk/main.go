// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/config"
	"github.com/olegiv/newsdesk/internal/logging"
	"github.com/olegiv/newsdesk/internal/mailer"
	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/scheduler"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/session"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/upload"
	"github.com/olegiv/newsdesk/internal/version"
	"github.com/olegiv/newsdesk/web"
)

// redisKeyPrefix namespaces login-protection keys in a shared Redis.
const redisKeyPrefix = "newsdesk:login:"

// notifierDrainTimeout bounds how long shutdown waits for queued mail.
const notifierDrainTimeout = 30 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "newsdesk - editorial CMS for a news publication\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_SESSION_SECRET    Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_DB_PATH           SQLite database path (default: ./data/newsdesk.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_SITE_URL          Public site URL (default: http://localhost:8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_SMTP_HOST         SMTP relay; mail is logged when unset\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_SMTP_TLS          starttls (default), tls or none\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_REDIS_URL         Redis URL for shared login protection (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Println("newsdesk " + version.Get().String())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newBaseHandler(cfg *config.Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.IsDevelopment() {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(newBaseHandler(cfg))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Warnings and errors also land in the event log from here on.
	logger = slog.New(logging.NewEventLogHandler(newBaseHandler(cfg), db))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queries := store.New(db)
	hasher := auth.NewHasher(auth.DefaultParams)
	accounts := service.NewAccounts(queries, hasher)
	events := service.NewEvents(queries)

	if cfg.SeedMainAdmin() {
		acc, created, err := accounts.EnsureMainAdmin(ctx, cfg.MainAdminEmail, "", cfg.MainAdminPassword)
		if err != nil {
			return fmt.Errorf("seeding main admin: %w", err)
		}
		if created {
			slog.Info("main admin created", "email", acc.Email)
			_ = events.LogSystem(ctx, model.EventLevelInfo, "Main admin created", map[string]any{"email": acc.Email})
		}
	}

	var attempts middleware.AttemptStore
	if cfg.RedisEnabled() {
		client, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, login protection falls back to memory", "error", err)
		} else {
			defer func() { _ = client.Close() }()
			attempts = middleware.NewRedisAttemptStore(client, redisKeyPrefix)
			slog.Info("login protection backed by redis")
		}
	}
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig(), attempts)

	sessionManager := session.New(db, cfg.IsDevelopment())

	renderer, err := render.New(render.Config{
		TemplatesFS:    web.TemplatesFS(),
		SessionManager: sessionManager,
		Site:           render.Site{Name: cfg.SiteName, URL: cfg.SiteURL},
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	uploads, err := upload.NewStore(cfg.UploadsDir)
	if err != nil {
		return fmt.Errorf("initializing uploads: %w", err)
	}

	var mail mailer.Mailer
	if cfg.SMTPEnabled() {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Addr:     cfg.SMTPAddr(),
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			TLS:      cfg.SMTPTLS,
		})
		slog.Info("smtp mailer configured", "addr", cfg.SMTPAddr(), "tls", cfg.SMTPTLS)
	} else {
		mail = mailer.NewLogMailer(logger)
		slog.Info("smtp not configured, outgoing mail is logged only")
	}
	mailTemplates, err := mailer.NewTemplates(mailer.Site{Name: cfg.SiteName, URL: cfg.SiteURL})
	if err != nil {
		return fmt.Errorf("parsing email templates: %w", err)
	}
	notifier := mailer.NewNotifier(mail, mailTemplates, queries, logger, mailer.DefaultNotifierConfig())
	notifier.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), notifierDrainTimeout)
		defer cancel()
		if err := notifier.Stop(stopCtx); err != nil {
			slog.Warn("notifier did not drain before shutdown", "error", err)
		}
	}()

	svc := services{
		accounts:      accounts,
		events:        events,
		articles:      service.NewArticles(queries, service.NewSanitizer(), notifier),
		categories:    service.NewCategories(queries),
		messages:      service.NewMessages(queries),
		subscriptions: service.NewSubscriptions(queries, notifier),
	}

	sched := scheduler.New(logger)
	retention := time.Duration(cfg.EventRetentionDays) * 24 * time.Hour
	if err := sched.RegisterMaintenance(events, retention, loginProtection); err != nil {
		return fmt.Errorf("registering scheduled jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	r := newRouter(cfg, db, sessionManager, renderer, uploads, loginProtection, svc)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // featured image uploads
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// csrfKey derives the 32-byte key the CSRF middleware expects from the
// session secret.
func csrfKey(secret string) []byte {
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return sum[:]
}
