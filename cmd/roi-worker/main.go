package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/davesep77/evolentra/internal/config"
	"github.com/davesep77/evolentra/internal/pubsub"
	"github.com/davesep77/evolentra/internal/repository"
	"github.com/davesep77/evolentra/internal/service"
	"github.com/davesep77/evolentra/pkg/db"
	"github.com/davesep77/evolentra/pkg/logger"
	"github.com/davesep77/evolentra/pkg/metrics"
)

func main() {
	date := flag.String("date", "", "business date to process (YYYY-MM-DD), defaults to today")
	flag.Parse()

	log := logger.NewLogger("roi-worker")
	if err := run(log, *date); err != nil {
		log.WithError(err).Error("ROI run could not start")
		os.Exit(1)
	}
}

func run(log *logger.Logger, date string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewConnection(ctx, db.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: 3,
	})
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.Database.ValidateSchema {
		if err := db.NewSchemaGuard(database).ValidateTables(ctx, db.LedgerTables()); err != nil {
			return fmt.Errorf("schema validation failed: %w", err)
		}
	}

	var publisher pubsub.Publisher = pubsub.NoopPublisher{}
	locks := repository.NewLocalRunLockRepository()
	if cfg.Redis.URL != "" {
		rdb, err := pubsub.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		publisher = pubsub.NewRedisPublisher(rdb, cfg.Redis.EventChannel)
		locks = repository.NewRedisRunLockRepository(rdb)
	} else {
		log.Warn("REDIS_URL not set: the run lock only guards this process")
	}

	deps := service.Deps{
		Store:     repository.NewStore(database),
		Log:       log,
		Publisher: publisher,
		Now:       time.Now,
	}
	scheduler := service.NewRoiScheduler(deps, cfg.Rules, locks, cfg.Redis.RunLockTTL, metrics.NewMetrics("roi_worker", prometheus.NewRegistry()))

	day := scheduler.Today()
	if date != "" {
		if day, err = time.Parse("2006-01-02", date); err != nil {
			return fmt.Errorf("invalid -date %q: %w", date, err)
		}
	}

	report, err := scheduler.ProcessDay(ctx, day)
	if err != nil {
		return err
	}

	entry := log.WithFields(logrus.Fields{
		"date":              report.Date,
		"processed":         report.Processed,
		"completed":         report.Completed,
		"skipped":           report.Skipped,
		"failed":            report.Failed,
		"total_distributed": report.TotalDistributed.String(),
	})
	if report.Failed > 0 {
		entry.WithField("failed_ids", report.FailedIDs).Warn("ROI run finished with failures")
		return nil
	}
	entry.Info("ROI run finished")
	return nil
}
