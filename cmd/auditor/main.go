package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/audit"
	"github.com/ariefcatur/game-topup-api/internal/config"
	kafkax "github.com/ariefcatur/game-topup-api/internal/kafka"
	"github.com/ariefcatur/game-topup-api/internal/logging"
	"github.com/ariefcatur/game-topup-api/internal/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "json").WithError(err).Fatal("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("service", cfg.ServiceName+"-auditor")
	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	rec := &audit.Recorder{DB: db, Log: logger}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AuditGroup, cfg.KafkaTopic, cfg.AuditWorkers, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.WithFields(log.Fields{
			"group": cfg.AuditGroup, "topic": cfg.KafkaTopic, "workers": cfg.AuditWorkers,
		}).Info("auditor consumer started")
		if err := cons.Start(ctx, rec.HandleMessage); err != nil {
			logger.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down consumer")
	case <-ctx.Done():
	}
	cancel()
	<-done
}
