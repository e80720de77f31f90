package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forgo/modhub/internal/app"
	"github.com/forgo/modhub/internal/config"
	"github.com/forgo/modhub/internal/logger"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize logger")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(ctx, cfg, log)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}

	a.Scheduler.Start()
	log.WithFields(logrus.Fields{
		"env":                   cfg.Server.Env,
		"release_schedule":      cfg.Scheduler.Enabled,
		"sync_interval_hours":   cfg.Scheduler.SyncIntervalHours,
		"job_check_interval_ms": cfg.Scheduler.JobCheckInterval.Milliseconds(),
	}).Info("job subsystem running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	a.Scheduler.Stop()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if err := a.Scheduler.Drain(drainCtx); err != nil {
		log.WithError(err).Warn("jobs still running at shutdown")
	}

	if err := a.Close(); err != nil {
		log.WithError(err).Error("failed to close database")
	}
	log.Info("exited")
}
