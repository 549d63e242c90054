package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"factures/internal/config"
	"factures/internal/feed"
	apphttp "factures/internal/http"
	applog "factures/internal/log"
	"factures/internal/session"
	"factures/internal/store"
	"factures/internal/store/memory"
	"factures/internal/store/sqlite"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.FromEnv())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		invoices store.InvoiceLister
		tva      store.TvaLister
		mutator  store.InvoiceMutator
		closeFn  func() error
	)

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		invoices, tva, mutator = repo, repo, repo
		closeFn = repo.Close
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		st := memory.New()
		invoices, tva, mutator = st, st, st
		closeFn = func() error { return nil }
		logger.Info("Initialized memory backend")
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	}()

	sess := session.New(cfg.UserID, invoices, tva, mutator)
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sess.Refresh(ctx); err != nil {
		logger.Error("Initial refresh failed", "error", err)
		os.Exit(1)
	}

	// Live sync from the extraction pipeline's change feed (optional)
	if cfg.FeedEnabled() {
		feedClient, err := feed.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err, "url", cfg.AMQPURL)
			os.Exit(1)
		}
		defer feedClient.Close()

		go func() {
			if err := sess.Run(ctx, feedClient); err != nil && err != context.Canceled {
				logger.Error("Change feed consumption failed", "error", err)
			}
		}()
		logger.Info("Change feed consumer started", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Change feed disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, sess, apphttp.Options{
		ExportCacheSize: cfg.ExportCacheSize,
		ExportCacheTTL:  cfg.ExportCacheTTL,
		Logger:          logger,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting factures server", "port", cfg.Port, "backend", cfg.DataBackend, "user_id", cfg.UserID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("Server stopped gracefully")
}
