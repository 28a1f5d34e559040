package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sluicehq/sluice/internal/config"
	"github.com/sluicehq/sluice/internal/handlers"
	"github.com/sluicehq/sluice/internal/lock"
	"github.com/sluicehq/sluice/internal/logging"
	"github.com/sluicehq/sluice/internal/mapper"
	"github.com/sluicehq/sluice/internal/notify"
	"github.com/sluicehq/sluice/internal/server"
	"github.com/sluicehq/sluice/internal/service"
	"github.com/sluicehq/sluice/internal/sheets"
	"github.com/sluicehq/sluice/internal/store"
	"github.com/sluicehq/sluice/internal/twilio"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Local development convenience; absence of a .env file is fine
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(slog.String("service", "sluice"))
	logging.SetDefault(logger)

	slog.Info("Starting sluice",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("sheet_tab", cfg.Sheet.Tab),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Shared clients, constructed once and injected everywhere
	providerClient := twilio.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.APIBaseURL)
	signatureValidator := twilio.NewSignatureValidator(cfg.Twilio.AuthToken)

	sheetClient, err := sheets.NewClient(context.Background(), cfg.Sheet.SpreadsheetID, cfg.Sheet.Tab, cfg.Sheet.CredentialsFile)
	if err != nil {
		log.Fatalf("Failed to create sheets client: %v", err)
	}

	inboxStore := store.New(sheetClient, logger)

	// Create the tab and header up front so the first webhook does not pay
	// for it. Failure is not fatal; the schema is re-ensured on each access.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := inboxStore.EnsureSchema(ctx); err != nil {
		log.Printf("WARNING: Failed to ensure sheet schema: %v", err)
		log.Println("Ingestion will fail until the sheet is reachable")
	}
	cancel()

	// Per-SID lock closes the check-then-append race between concurrent
	// redeliveries; without Redis the accepted lockless gap remains.
	var sidLocker lock.Locker
	if cfg.Redis.Enabled {
		locker, err := lock.NewRedisLocker(cfg.Redis.URL, cfg.Redis.LockTTL)
		if err != nil {
			log.Printf("WARNING: Failed to initialize Redis lock: %v", err)
			log.Println("Continuing without per-message locking")
			sidLocker = lock.NoOpLocker{}
		} else {
			sidLocker = locker
			log.Printf("Per-message locking enabled (ttl: %s)", cfg.Redis.LockTTL)
		}
	} else {
		sidLocker = lock.NoOpLocker{}
		log.Println("Redis disabled - per-message locking not available")
	}
	defer sidLocker.Close()

	// Optional record fan-out
	var publisher notify.Publisher
	if cfg.NATS.Enabled {
		natsPublisher, err := notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			log.Printf("WARNING: Failed to connect to NATS: %v", err)
			log.Println("Continuing without record fan-out")
			publisher = notify.NoOpPublisher{}
		} else {
			publisher = natsPublisher
			log.Printf("Record fan-out enabled (subject: %s)", cfg.NATS.Subject)
		}
	} else {
		publisher = notify.NoOpPublisher{}
	}
	defer publisher.Close()

	rowMapper := mapper.New(cfg.Local.Timezone, cfg.Media.PublicBaseURL, cfg.Media.AccessToken)

	ingestService := service.NewIngestService(inboxStore, rowMapper, sidLocker, publisher, logger)
	mediaService := service.NewMediaService(providerClient, cfg.Media.AccessToken, logger)

	handler := handlers.New(ingestService, mediaService, signatureValidator, logger)
	router := server.NewRouter(handler)

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("sluice listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
