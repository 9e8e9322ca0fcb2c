package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/ariefcatur/game-topup-api/internal/auth"
	"github.com/ariefcatur/game-topup-api/internal/config"
	"github.com/ariefcatur/game-topup-api/internal/httpx"
	kafkax "github.com/ariefcatur/game-topup-api/internal/kafka"
	"github.com/ariefcatur/game-topup-api/internal/lifecycle"
	"github.com/ariefcatur/game-topup-api/internal/logging"
	"github.com/ariefcatur/game-topup-api/internal/orders"
	"github.com/ariefcatur/game-topup-api/internal/postgres"
	"github.com/ariefcatur/game-topup-api/internal/redisx"
	"github.com/ariefcatur/game-topup-api/internal/refunds"
	"github.com/ariefcatur/game-topup-api/internal/tables"
	"github.com/ariefcatur/game-topup-api/internal/telemetry"
	"github.com/ariefcatur/game-topup-api/internal/users"
)

func main() {
	started := time.Now()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "json").WithError(err).Fatal("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	shutdownTracing, err := telemetry.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		logger.WithError(err).Fatal("init tracing")
	}

	// Schema
	if cfg.AutoMigrate {
		if err := migrateUp(cfg, logger); err != nil {
			logger.WithError(err).Fatal("migrate")
		}
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	// Redis login throttle
	var throttle auth.Throttle = auth.NoThrottle{}
	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.WithError(err).Fatal("redis connect")
		}
		defer rdb.Close()
		throttle = auth.NewRedisThrottle(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, login throttling disabled")
	}

	// Kafka lifecycle events
	var events lifecycle.Publisher = lifecycle.Nop{}
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 1024, logger)
		prod.Start(ctx)
		events = &lifecycle.KafkaPublisher{Sink: prod, Producer: cfg.ServiceName, Log: logger}
	} else {
		logger.Warn("KAFKA_BROKERS not set, lifecycle events disabled")
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	router := httpx.NewRouter(httpx.Deps{
		Log:         logger,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		StartedAt:   started,
		Tracing:     cfg.OTLPEndpoint != "",
		Tokens:      tokens,
		Login: &auth.LoginService{
			Users:     &users.Repo{DB: db},
			Passwords: auth.BcryptPasswords{},
			Tokens:    tokens,
			Throttle:  throttle,
			Log:       logger,
		},
		Tables:  &tables.Store{DB: db},
		Orders:  &orders.Repo{DB: db},
		Refunds: &refunds.Repo{DB: db},
		Events:  events,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	if prod != nil {
		prod.Close()      // no more publishes after the server drained
		prod.WaitClosed() // flush queued events
	}
	if err := shutdownTracing(ctx2); err != nil {
		logger.WithError(err).Warn("tracing shutdown")
	}
}
