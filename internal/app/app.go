// Package app assembles the infrastructure adapters selected by configuration.
// Both the API server and the estimation worker build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/reactiontech/websa-api/internal/domain/estimation"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"github.com/reactiontech/websa-api/internal/infra/config"
	"github.com/reactiontech/websa-api/internal/infra/ffmpeg"
	"github.com/reactiontech/websa-api/internal/infra/gcs"
	"github.com/reactiontech/websa-api/internal/infra/metrics"
	miniostorage "github.com/reactiontech/websa-api/internal/infra/minio"
	"github.com/reactiontech/websa-api/internal/infra/mysql"
	"github.com/reactiontech/websa-api/internal/infra/onnx"
	"github.com/reactiontech/websa-api/internal/infra/opencv"
	"github.com/reactiontech/websa-api/internal/infra/posesidecar"
	"github.com/reactiontech/websa-api/internal/infra/postgres"
	"github.com/reactiontech/websa-api/internal/usecase"
	"go.uber.org/zap"
)

type Repositories struct {
	Users     port.UserRepository
	Videos    port.VideoRepository
	Analytics port.AnalyticsRepository
	Jobs      port.JobRepository
	Ping      metrics.HealthCheck
	close     func()
}

func (r *Repositories) Close() {
	if r.close != nil {
		r.close()
	}
}

// OpenRepositories connects to the database named by DB_DRIVER and runs the
// embedded migrations when enabled.
func OpenRepositories(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Repositories, error) {
	switch cfg.DBDriver {
	case config.DBDriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout, log)
		if err != nil {
			return nil, err
		}
		if cfg.RunMigrations {
			if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
				pool.Close()
				return nil, fmt.Errorf("run postgres migrations: %w", err)
			}
		}
		return &Repositories{
			Users:     postgres.NewUserRepository(pool),
			Videos:    postgres.NewVideoRepository(pool),
			Analytics: postgres.NewAnalyticsRepository(pool),
			Jobs:      postgres.NewJobRepository(pool),
			Ping:      pool.Ping,
			close:     pool.Close,
		}, nil

	case config.DBDriverMySQL:
		db, err := mysql.Connect(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout, log)
		if err != nil {
			return nil, err
		}
		if cfg.RunMigrations {
			if err := mysql.RunMigrations(cfg.DatabaseURL); err != nil {
				db.Close()
				return nil, fmt.Errorf("run mysql migrations: %w", err)
			}
		}
		return &Repositories{
			Users:     mysql.NewUserRepository(db),
			Videos:    mysql.NewVideoRepository(db),
			Analytics: mysql.NewAnalyticsRepository(db),
			Jobs:      mysql.NewJobRepository(db),
			Ping:      db.PingContext,
			close:     func() { db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// Storage is an object store that can report its own health.
type Storage interface {
	port.ObjectStorage
	Ping(ctx context.Context) error
}

// OpenStorage returns the object store named by STORAGE_BACKEND. The returned
// closer is never nil.
func OpenStorage(ctx context.Context, cfg *config.Config) (Storage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StorageBackend {
	case config.StorageMinIO:
		s, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
			PublicURL: cfg.MinIOPublicURL,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("create minio storage: %w", err)
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, noop, fmt.Errorf("ensure minio bucket: %w", err)
		}
		return s, noop, nil

	case config.StorageGCS:
		s, err := gcs.NewStorage(ctx, gcs.StorageConfig{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("create gcs storage: %w", err)
		}
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
}

// Estimator is the height estimation use case together with the resources
// backing it.
type Estimator struct {
	*usecase.EstimateHeightUseCase
	Sidecar *posesidecar.Client
	closers []io.Closer
}

func (e *Estimator) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// NewEstimator loads the regression model and wires the decode, pose and
// predict stages into one pipeline.
func NewEstimator(cfg *config.Config, log *zap.Logger) (*Estimator, error) {
	model, err := onnx.NewHeightModel(onnx.HeightModelConfig{
		LibraryPath: cfg.ONNXLibraryPath,
		ModelPath:   cfg.HeightModelPath,
		InputName:   cfg.HeightModelInput,
		OutputName:  cfg.HeightModelOutput,
		InputWidth:  cfg.HeightModelFeatures,
	})
	if err != nil {
		return nil, fmt.Errorf("load height model: %w", err)
	}

	sidecar := posesidecar.NewClient(cfg.PoseSocketPath, cfg.PoseTimeout)
	pipeline := estimation.NewPipeline(opencv.NewDecoder(log), sidecar, model, estimation.PipelineConfig{
		Stride:      cfg.FrameStride,
		Concurrency: cfg.ExtractConcurrency,
		Logger:      log,
	})

	uc := usecase.NewEstimateHeightUseCase(ffmpeg.NewProber(cfg.FFprobePath, log), pipeline, log, usecase.EstimateHeightConfig{
		TempDir: cfg.TempDir,
		Timeout: cfg.PipelineTimeout,
	})

	return &Estimator{EstimateHeightUseCase: uc, Sidecar: sidecar, closers: []io.Closer{model}}, nil
}
