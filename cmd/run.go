package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"boatbet/cache"
	"boatbet/config"
	"boatbet/database"
	"boatbet/events"
	"boatbet/feed"
	"boatbet/repository"
	"boatbet/scheduler"
	"boatbet/server"
	"boatbet/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()

	logFile, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	log.WithField("environment", cfg.Environment).Info("Starting boatbet...")

	// Initialize database connection
	log.Info("Connecting to database...")
	databaseURL := cfg.GetDatabaseURL()
	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Session cart store
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()
	carts := cache.NewCartStore(rdb, cfg.CartTTL)

	// Initialize event bus
	eventBus := events.NewBus()
	if cfg.NATSURL != "" {
		forwarder, err := events.ConnectNATSForwarder(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer forwarder.Close()
		forwarder.Attach(eventBus)
		log.WithField("url", cfg.NATSURL).Info("Forwarding events to NATS")
	}

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Info("Initializing services...")
	settlementService := service.NewSettlementService(uowFactory, cfg.SettlementConcurrency)
	raceService := service.NewRaceService(uowFactory, feed.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout), settlementService, cfg)
	notificationService := service.NewNotificationService(uowFactory)
	services := server.Services{
		Users:         service.NewUserService(uowFactory, cfg.StartingPoints),
		Carts:         service.NewCartService(carts),
		Predictions:   service.NewPredictionService(uowFactory, carts),
		Ledger:        service.NewLedgerService(uowFactory),
		Settlement:    settlementService,
		Races:         raceService,
		Stats:         service.NewStatsService(uowFactory),
		Notifications: notificationService,
		Social:        service.NewSocialService(uowFactory),
	}

	eventBus.Subscribe(events.EventTypePredictionPurchased, notificationService.HandleSale)
	eventBus.Subscribe(events.EventTypePredictionSettled, notificationService.HandleSettled)

	// Scheduled jobs
	jobs := scheduler.New(raceService, settlementService)
	if err := jobs.Register(cfg.ScheduleSyncCron, cfg.SettlementCron); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}
	jobs.Start()

	// HTTP API
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	api := server.New(services, jobs, cfg, db.Health, cfg.CronSecret)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for context cancellation or a server failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.WithError(err).Error("HTTP server stopped")
		}
	}

	// Cleanup resources
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error shutting down HTTP server")
	}

	select {
	case <-jobs.Stop().Done():
		log.Info("Shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded while waiting for jobs")
	}

	return nil
}
