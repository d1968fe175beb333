package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"github.com/reactiontech/websa-api/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FileEstimator estimates the height in a video stored on local disk.
type FileEstimator interface {
	EstimateFile(ctx context.Context, path string) (entity.HeightEstimate, error)
}

type ProcessEstimationUseCase struct {
	jobs      port.JobRepository
	videos    port.VideoRepository
	storage   port.ObjectStorage
	estimator FileEstimator
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
}

type ProcessEstimationConfig struct {
	TempDir    string
	MaxRetries int
}

func NewProcessEstimationUseCase(
	jobs port.JobRepository,
	videos port.VideoRepository,
	storage port.ObjectStorage,
	estimator FileEstimator,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessEstimationConfig,
) *ProcessEstimationUseCase {
	return &ProcessEstimationUseCase{
		jobs:      jobs,
		videos:    videos,
		storage:   storage,
		estimator: estimator,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
	}
}

// Execute handles one height.estimation delivery. A nil return acks the
// message; an error asks the consumer to requeue it.
func (uc *ProcessEstimationUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessEstimationUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.EstimationRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.Int64("job.video_id", msg.VideoID),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.jobs.FindByID(ctx, msg.JobID)
	if err != nil {
		if !errors.Is(err, port.ErrNotFound) {
			log.Error("failed to load job", zap.Error(err))
			return fmt.Errorf("find job: %w", err)
		}
		job = entity.NewEstimationJob(msg.VideoID, msg.UserID, msg.VideoKey, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.jobs.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if job.Status == entity.JobStatusCompleted {
		log.Info("job already completed, dropping redelivery")
		return nil
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded", log)
	}

	job.MarkProcessing()
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}
	uc.publishStatus(ctx, job, log)

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.estimationPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ProcessEstimationUseCase) estimationPipeline(
	ctx context.Context,
	job *entity.EstimationJob,
	msg entity.EstimationRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from object storage
	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	if err := uc.storage.Download(dlCtx, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		if ctx.Err() != nil {
			return uc.handleInterrupted(ctx, job, err, log)
		}
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Run the estimation pipeline
	estStart := time.Now()
	est, err := uc.estimator.EstimateFile(ctx, videoPath)
	if err != nil {
		if ctx.Err() != nil {
			return uc.handleInterrupted(ctx, job, err, log)
		}
		reason := fmt.Sprintf("estimate: %s (%s)", apperr.Message(err), apperr.KindOf(err))
		if apperr.Permanent(err) {
			log.Warn("estimation failed permanently", zap.Error(err))
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, reason, log)
		}
		log.Error("estimation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, reason, log)
	}
	metrics.JobProcessingDuration.WithLabelValues("estimate").Observe(time.Since(estStart).Seconds())

	// Persist result; the estimate is kept even if shutdown starts now.
	ctx = context.WithoutCancel(ctx)
	if err := uc.videos.SetEstimatedHeight(ctx, job.VideoID, est.Height); err != nil {
		log.Error("failed to store estimated height", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "store_height: "+err.Error(), log)
	}

	job.MarkCompleted(est)
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Float64("estimated_height", est.Height),
		zap.Int("frames_sampled", est.FramesSampled),
		zap.Int("frames_used", est.FramesUsed),
	)

	return nil
}

func (uc *ProcessEstimationUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.EstimationJob,
	msg entity.EstimationRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	ctx = context.WithoutCancel(ctx)
	job.MarkFailed(errMsg)
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to FAILED", zap.Error(err))
	}

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg, log)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessEstimationUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.EstimationJob,
	msg entity.EstimationRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	ctx = context.WithoutCancel(ctx)
	job.MarkFailed(errMsg)
	job.Attempt = max(job.Attempt, job.MaxAttempts)
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to FAILED", zap.Error(err))
	}

	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg); err != nil {
		log.Error("failed to publish to DLQ", zap.Error(err))
	}

	uc.publishStatus(ctx, job, log)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), filepath.Base(msg.VideoKey), errMsg)
	}

	return nil
}

// handleInterrupted records a job stopped by consumer shutdown without
// spending an attempt and returns an error so the delivery is requeued.
func (uc *ProcessEstimationUseCase) handleInterrupted(ctx context.Context, job *entity.EstimationJob, cause error, log *zap.Logger) error {
	wctx := context.WithoutCancel(ctx)
	job.MarkInterrupted()
	if err := uc.jobs.Update(wctx, job); err != nil {
		log.Error("failed to reset interrupted job", zap.Error(err))
	}
	uc.publishStatus(wctx, job, log)
	log.Warn("job interrupted by shutdown, requeueing", zap.Error(cause))
	return fmt.Errorf("job interrupted: %w", ctx.Err())
}

func (uc *ProcessEstimationUseCase) publishStatus(ctx context.Context, job *entity.EstimationJob, log *zap.Logger) {
	data, _ := json.Marshal(entity.NewStatusMessage(job))
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
