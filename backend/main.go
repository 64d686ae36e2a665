package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academy/backend/config"
	"academy/backend/jobs"
	"academy/backend/routes"
	"academy/backend/services/access"
	"academy/backend/services/progress"
	"academy/backend/services/quiz"
	"academy/backend/utils"
)

const (
	shutdownTimeout = 10 * time.Second
	attemptTTL      = 2 * time.Hour
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(utils.InitLogger(), cfg.RollbarToken, cfg.Env)
	defer logger.Close()

	// Initialize database
	db, err := utils.InitDB(cfg, logger)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	if err := utils.Migrate(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	// Background work
	dispatcher, stopJobs, err := jobs.NewDispatcher(cfg.RedisURL, progress.NewProfileRefresher(db), logger)
	if err != nil {
		log.Fatalf("Error starting job manager: %v", err)
	}
	defer stopJobs()

	attempts := quiz.NewRegistry()
	scheduler, err := jobs.StartScheduler(db, attempts, attemptTTL, logger)
	if err != nil {
		log.Fatalf("Error starting scheduler: %v", err)
	}
	defer scheduler.Stop()

	app := routes.NewApp(db, cfg, routes.Services{
		Logger:    logger,
		Jobs:      dispatcher,
		Attempts:  attempts,
		Policy:    access.DefaultPolicy(),
		RateLimit: true,
	})

	errs := make(chan error, 1)
	go func() {
		errs <- app.Listen(":" + cfg.ServerPort)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		logger.Error(err, "server error")
	case sig := <-shutdown:
		logger.Info("%v: start shutdown", sig)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Error(err, "could not stop server gracefully")
		}
	}
}
