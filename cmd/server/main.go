package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rentpulse/server/config"
	"rentpulse/server/internal/api"
	"rentpulse/server/internal/batch"
	"rentpulse/server/internal/database"
	"rentpulse/server/internal/models"
	"rentpulse/server/internal/processor"
	"rentpulse/server/internal/queue"
	"rentpulse/server/internal/scheduler"
	"rentpulse/server/internal/telegram"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		logger.Warnf("Unknown log level %q, keeping info", cfg.Log.Level)
	} else {
		logger.SetLevel(level)
	}

	if err := ensureDataDirs(cfg.Database.Path, cfg.Settings.Path); err != nil {
		logger.WithError(err).Fatal("Failed to create data directories")
	}

	// Initialize database
	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// The persister rides the same sqlite pool as the query layer
	gormDB, err := gorm.Open(sqlite.Dialector{Conn: db.GetDB()}, &gorm.Config{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize persistence layer")
	}

	// Start the ingest pipeline
	ingestQueue := queue.NewIngestQueue(cfg.Queue.Size, logger)
	ingestQueue.Start()

	persister := processor.NewPersister(gormDB, ingestQueue, cfg, logger)
	persister.Start()

	// Runtime settings, seeded from the engine defaults
	settings, err := config.NewSettingsStore(cfg.Settings.Path, config.DefaultSettings(cfg))
	if err != nil {
		logger.WithError(err).Fatal("Failed to open settings store")
	}

	notifier := telegram.NewNotifier(telegram.Config{
		Enabled:  cfg.Telegram.Enabled,
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		Filters: models.NewAlertFilters(
			cfg.Telegram.MinChangePct,
			cfg.Telegram.MinConfidence,
			cfg.Telegram.IncreasesOnly,
			cfg.Telegram.Properties,
		),
	}, logger)

	batchCfg := batch.Config{MaxUnits: cfg.Batch.MaxUnits, Workers: cfg.Batch.Workers}

	// Initialize handler and router
	handler := api.NewHandler(db, settings, ingestQueue, batchCfg, logger)
	router := api.NewRouter(handler)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(db, settings, notifier, batchCfg, cfg.Scheduler.Strategy, logger)
		if err := sched.Register(cfg.Scheduler.RepriceSpec); err != nil {
			logger.WithError(err).Fatal("Failed to register reprice sweep")
		}
		sched.Start()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("Received signal %s, shutting down", sig)
	case err := <-errCh:
		logger.WithError(err).Error("Server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down server cleanly")
	}

	if sched != nil {
		sched.Stop()
	}

	// Queue first so no batch arrives after the persist workers exit
	if err := ingestQueue.Close(); err != nil {
		logger.WithError(err).Error("Failed to close ingest queue")
	}
	persister.Stop()

	logger.Info("Shutdown complete")
}

// ensureDataDirs creates the parent directories of the sqlite database and
// the settings file so a fresh checkout can boot without setup.
func ensureDataDirs(paths ...string) error {
	for _, path := range paths {
		dir := filepath.Dir(path)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
