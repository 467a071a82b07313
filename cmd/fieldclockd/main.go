package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	apiadapter "github.com/fieldclock/fieldclock/internal/adapter/driven/api"
	"github.com/fieldclock/fieldclock/internal/adapter/driven/netmon"
	sqliteadapter "github.com/fieldclock/fieldclock/internal/adapter/driven/sqlite"
	httphandler "github.com/fieldclock/fieldclock/internal/adapter/driving/http"
	"github.com/fieldclock/fieldclock/internal/application"
	"github.com/fieldclock/fieldclock/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"api_base_url", cfg.APIBaseURL,
		"tenant", cfg.Tenant,
		"sync_interval", cfg.SyncInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire stores. Without a secret key the credential store refuses to
	// persist tokens and the session lives in memory only.
	credKey, err := sqliteadapter.DeriveKey(cfg.SecretKey)
	if err != nil {
		return err
	}
	if credKey == nil {
		slog.Warn("FIELDCLOCK_SECRET_KEY not set, tokens will not survive restart")
	}
	credentialStore := sqliteadapter.NewCredentialRepo(db, credKey)
	queueStore := sqliteadapter.NewQueueRepo(db, cfg.MaxQueueSize)

	// 6. Load the offline queue, dropping any rows corrupted on disk.
	pending, err := queueStore.Load(ctx)
	if err != nil {
		return err
	}
	slog.Info("offline queue loaded", "pending", pending)

	// 7. Create the backend gateway and the token custodian, then wire them
	// together: the gateway asks the custodian for tokens and refreshes, the
	// custodian performs the refresh exchange through the gateway.
	client := apiadapter.NewClient(cfg.APIBaseURL, cfg.Tenant, cfg.HTTPTimeout)
	custodian := application.NewTokenCustodian(client, credentialStore)
	if err := custodian.Load(ctx); err != nil {
		return err
	}
	client.SetTokenSource(custodian)

	// 8. Start the connectivity monitor probing the backend.
	monitor := netmon.New(cfg.APIBaseURL+"/health/", cfg.ProbeInterval)
	go monitor.Start(ctx)

	// 9. Start the sync orchestrator.
	syncSvc := application.NewSyncService(client, queueStore, monitor, cfg.SyncInterval)
	go syncSvc.Start(ctx)

	// 10. Create the remaining services and the loopback API.
	sessionSvc := application.NewSessionService(client, custodian)
	captureSvc := application.NewCaptureService(client, queueStore, cfg.DeviceID)

	apiHandler := httphandler.NewHandler(
		sessionSvc,
		captureSvc,
		syncSvc,
		queueStore,
		client,
		monitor,
		httphandler.Limits{
			MaxQueueSize:       cfg.MaxQueueSize,
			MaxOfflinePerShift: cfg.MaxOfflinePerShift,
		},
		slog.Default(),
	)
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("fieldclockd started",
		"listen_addr", cfg.ListenAddr,
		"tenant", cfg.Tenant,
		"pending_events", pending,
	)

	// 11. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 12. Graceful shutdown with 10s timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
