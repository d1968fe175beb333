package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/reactiontech/websa-api/internal/app"
	"github.com/reactiontech/websa-api/internal/infra/config"
	"github.com/reactiontech/websa-api/internal/infra/crypto"
	"github.com/reactiontech/websa-api/internal/infra/httpapi"
	"github.com/reactiontech/websa-api/internal/infra/metrics"
	"github.com/reactiontech/websa-api/internal/infra/rabbitmq"
	"github.com/reactiontech/websa-api/internal/infra/tracing"
	"github.com/reactiontech/websa-api/internal/usecase"
	"github.com/reactiontech/websa-api/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting websa-api",
		zap.String("db_driver", cfg.DBDriver),
		zap.String("storage_backend", cfg.StorageBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, tracing.Config{
		Endpoint:    cfg.JaegerEndpoint,
		ServiceName: "websa-api",
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	// Database
	repos, err := app.OpenRepositories(ctx, cfg, log)
	fatalOnErr(err, "open repositories")
	defer repos.Close()

	// Object storage
	storage, closeStorage, err := app.OpenStorage(ctx, cfg)
	fatalOnErr(err, "open object storage")
	defer closeStorage()

	// RabbitMQ publisher connection
	rmqConn, err := rabbitmq.Dial(ctx, cfg.RabbitMQURL, cfg.RabbitMQConnectTimeout, log)
	fatalOnErr(err, "connect to rabbitmq")
	defer rmqConn.Close()

	fatalOnErr(rabbitmq.DeclareTopology(rmqConn, rabbitmq.Topology{
		Exchange:        cfg.RabbitMQExchange,
		EstimationQueue: cfg.RabbitMQEstimationQueue,
		StatusQueue:     cfg.RabbitMQStatusQueue,
		DLQ:             cfg.RabbitMQDLQ,
	}), "declare rabbitmq topology")

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	// Estimation pipeline
	estimator, err := app.NewEstimator(cfg, log)
	fatalOnErr(err, "create height estimator")
	defer estimator.Close()

	// Use cases
	accounts := usecase.NewAccountUseCase(repos.Users, crypto.NewBcryptHasher(0), log)
	videos := usecase.NewVideoUseCase(
		repos.Users, repos.Videos, repos.Analytics, repos.Jobs,
		storage,
		rabbitmq.NewEstimationPublisher(pub, cfg.RabbitMQEstimationQueue),
		log,
		usecase.VideoConfig{MaxRetries: cfg.MaxRetries},
	)

	// HTTP
	handler := httpapi.NewHandler(estimator, accounts, videos, log)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		HealthChecks: map[string]metrics.HealthCheck{
			"database": repos.Ping,
			"storage":  storage.Ping,
			"rabbitmq": pub.Ping,
			"pose":     estimator.Sidecar.Ping,
		},
	})

	srv := httpapi.NewServer(cfg.HTTPPort, router, cfg.ShutdownTimeout, log)
	if err := srv.Run(ctx); err != nil {
		log.Error("http server error", zap.Error(err))
	}

	log.Info("websa-api stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
