package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/reactiontech/websa-api/internal/app"
	"github.com/reactiontech/websa-api/internal/infra/config"
	"github.com/reactiontech/websa-api/internal/infra/email"
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

	log.Info("starting websa-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, tracing.Config{
		Endpoint:    cfg.JaegerEndpoint,
		ServiceName: "websa-worker",
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

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Estimation pipeline
	estimator, err := app.NewEstimator(cfg, log)
	fatalOnErr(err, "create height estimator")
	defer estimator.Close()

	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// Use case
	uc := usecase.NewProcessEstimationUseCase(
		repos.Jobs, repos.Videos, storage, estimator,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessEstimationConfig{
			TempDir:    cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, map[string]metrics.HealthCheck{
		"database": repos.Ping,
		"storage":  storage.Ping,
		"rabbitmq": pub.Ping,
		"pose":     estimator.Sidecar.Ping,
	}, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rmqConn, rabbitmq.ConsumerConfig{
		Topology: rabbitmq.Topology{
			Exchange:        cfg.RabbitMQExchange,
			EstimationQueue: cfg.RabbitMQEstimationQueue,
			StatusQueue:     cfg.RabbitMQStatusQueue,
			DLQ:             cfg.RabbitMQDLQ,
		},
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	log.Info("websa-worker started, consuming messages",
		zap.String("queue", cfg.RabbitMQEstimationQueue),
		zap.Int("workers", cfg.WorkerCount),
	)

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("websa-worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
