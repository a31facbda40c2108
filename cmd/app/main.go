package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"gymsched/internal/appointment"
	"gymsched/internal/availability"
	"gymsched/internal/calendar"
	"gymsched/internal/config"
	"gymsched/internal/db"
	"gymsched/internal/events"
	"gymsched/internal/journal"
	"gymsched/internal/logger"
	"gymsched/internal/server"
)

// @title GymSched API
// @version 1.0
// @description Trainer availability and session scheduling API.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.LogLevel)
	logger.Info("Starting GymSched", "availability_backend", cfg.AvailabilityBackend, "journal", cfg.JournalEnabled)

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	probes := map[string]server.Probe{
		"postgres": func(ctx context.Context) error { return db.Check(ctx, database) },
	}

	var rdb *redis.Client
	if cfg.AvailabilityBackend == config.BackendRedis || cfg.JournalEnabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("Failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var availabilityRepo availability.Repository
	switch cfg.AvailabilityBackend {
	case config.BackendRedis:
		availabilityRepo = availability.NewRedisRepository(rdb)
	default:
		availabilityRepo = availability.NewRepository(database)
	}
	appointmentRepo := appointment.NewRepository(database)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	var changes journal.Reader
	journalDone := make(chan struct{})
	if cfg.JournalEnabled {
		j := journal.New(rdb, 256)
		unsubscribe := bus.Subscribe(j.Notify)
		defer unsubscribe()
		go func() {
			j.Start(ctx)
			close(journalDone)
		}()
		changes = j
	} else {
		close(journalDone)
	}

	srv := server.New(cfg, server.Deps{
		Availability: availability.NewService(availabilityRepo, bus),
		Appointments: appointment.NewService(appointmentRepo, bus),
		Calendar: calendar.NewService(appointmentRepo, availabilityRepo, calendar.Options{
			StartHour:         cfg.CalendarStartHour,
			EndHour:           cfg.CalendarEndHour,
			RowHeight:         cfg.CalendarRowHeight,
			MonthPreviewLimit: cfg.MonthPreviewLimit,
		}),
		Bus:     bus,
		Journal: changes,
		Probes:  probes,
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	cancel()
	<-journalDone

	logger.Info("Server stopped")
}
