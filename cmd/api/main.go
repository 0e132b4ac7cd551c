package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/redis/go-redis/v9"

	"github.com/nyashahama/ironic-mailer-backend/internal/api"
	"github.com/nyashahama/ironic-mailer-backend/internal/config"
	"github.com/nyashahama/ironic-mailer-backend/internal/email"
	"github.com/nyashahama/ironic-mailer-backend/internal/store"
	stripeinternal "github.com/nyashahama/ironic-mailer-backend/internal/stripe"
	"github.com/nyashahama/ironic-mailer-backend/internal/web"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded",
		"env", cfg.Env,
		"port", cfg.Port,
		"order_mode", cfg.OrderMode,
		"email_provider", cfg.EmailProvider,
	)

	// ── Stripe ────────────────────────────────────────────────────────────────
	stripeClient := stripeinternal.NewClient(cfg.StripeSecretKey)

	// ── Email ─────────────────────────────────────────────────────────────────
	var mailer email.Sender
	switch cfg.EmailProvider {
	case config.ProviderResend:
		mailer = email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName, "")
		logger.Info("email: using Resend")
	default:
		mailer = email.NewEmailJSClient(email.EmailJSConfig{
			PublicKey:  cfg.EmailJSPublicKey,
			PrivateKey: cfg.EmailJSPrivateKey,
			ServiceID:  cfg.EmailJSServiceID,
			TemplateID: cfg.EmailJSTemplateID,
		})
		logger.Info("email: using EmailJS")
	}

	// ── Backing stores ────────────────────────────────────────────────────────
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, rdb)
		logger.Info("redis connected")
	}

	var orders store.OrderStore
	if rdb != nil {
		orders = store.NewRedisOrders(rdb, cfg.OrderTTL)
	} else {
		orders = store.NewMemoryOrders(cfg.OrderCapacity, cfg.OrderTTL)
		if cfg.OrderMode == config.OrderModeStore {
			logger.Warn("orders kept in memory: pending orders are lost on restart")
		}
	}

	var ledger store.EventLedger
	switch {
	case cfg.DatabaseURL != "":
		pool, err := openDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		closers = append(closers, pool)

		pg := store.NewPostgresLedger(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		ledger = pg
		logger.Info("database connected, webhook events recorded in postgres")
	case rdb != nil:
		ledger = store.NewRedisLedger(rdb, cfg.EventTTL)
	default:
		ledger = store.NewMemoryLedger(cfg.OrderCapacity, cfg.EventTTL)
	}

	// ── Pages ─────────────────────────────────────────────────────────────────
	pages, err := web.Pages(cfg.StaticDir)
	if err != nil {
		return fmt.Errorf("pages: %w", err)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		stripeClient,
		mailer,
		orders,
		ledger,
		pages,
		api.Config{
			BaseURL:             cfg.BaseURL,
			StripeWebhookSecret: cfg.StripeWebhookSecret,
			Env:                 cfg.Env,
			Currency:            cfg.Currency,
			PriceCustom:         cfg.PriceFor(true),
			PriceTemplate:       cfg.PriceFor(false),
			ProductName:         cfg.ProductName,
			ProductDescription:  cfg.ProductDescription,
			OrderMode:           cfg.OrderMode,
			EmailToName:         cfg.EmailToName,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // the webhook waits on the email provider
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "production", cfg.IsProduction())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight requests up to 20 seconds to finish. A webhook cut off
	// here is retried by Stripe.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// openDB opens the connection pool and verifies it is reachable.
func openDB(dsn string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	pool.SetMaxOpenConns(10)
	pool.SetMaxIdleConns(5)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// openRedis parses a redis:// URL and pings the server.
func openRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}
