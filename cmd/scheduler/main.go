package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"reminder-service/internal/config"
	"reminder-service/internal/db"
	"reminder-service/internal/logging"
	"reminder-service/internal/queue"
	"reminder-service/internal/scheduler"
)

// lockRetryInterval is how often a standby replica re-attempts the advisory
// lock.
const lockRetryInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down...")
		cancel()
	}()

	if err := dbConn.InitSchema(ctx); err != nil {
		logger.Errorf("Schema init failed: %v", err)
		log.Fatalf("Schema init failed: %v", err)
	}

	// The scheduler must be a singleton: duplicate instances would
	// double-enqueue triggers. Replicas without the lock stay in standby.
	lock := acquireLock(ctx, dbConn, logger)
	if lock == nil {
		return
	}
	defer lock.Release(context.Background())

	q := queue.New(dbConn.Pool, logger)
	s := scheduler.New(dbConn, q, logger, cfg.Scheduler.Tick, cfg.Scheduler.BatchSize)
	s.Run(ctx)
	logger.Info("Scheduler process stopped")
}

func acquireLock(ctx context.Context, dbConn *db.DB, logger *logrus.Logger) *db.SchedulerLock {
	for {
		lock, err := dbConn.TryAcquireSchedulerLock(ctx)
		if err == nil && lock != nil {
			logger.Infof("Acquired scheduler lock")
			return lock
		}
		if err != nil {
			logger.Warnf("Scheduler lock attempt failed: %v", err)
		} else {
			logger.Infof("Scheduler lock held elsewhere, standing by")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(lockRetryInterval):
		}
	}
}
