package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/estimation"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"github.com/reactiontech/websa-api/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Pipeline is the frame-to-height pipeline run after the container is validated.
type Pipeline interface {
	Run(ctx context.Context, path string, onStage estimation.StageFunc) (entity.HeightEstimate, error)
}

type EstimateHeightUseCase struct {
	prober   port.VideoProber
	pipeline Pipeline
	logger   *zap.Logger
	tempDir  string
	timeout  time.Duration
}

type EstimateHeightConfig struct {
	TempDir string
	Timeout time.Duration
}

func NewEstimateHeightUseCase(
	prober port.VideoProber,
	pipeline Pipeline,
	logger *zap.Logger,
	cfg EstimateHeightConfig,
) *EstimateHeightUseCase {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &EstimateHeightUseCase{
		prober:   prober,
		pipeline: pipeline,
		logger:   logger,
		tempDir:  cfg.TempDir,
		timeout:  cfg.Timeout,
	}
}

// Execute stores the uploaded video in a request-scoped temp file, runs the
// pipeline on it and removes the file before returning.
func (uc *EstimateHeightUseCase) Execute(ctx context.Context, video io.Reader, filename string) (entity.HeightEstimate, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "EstimateHeightUseCase.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("video.filename", filename))

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	tr := newStageTracker(ctx, span, uc.logger.With(zap.String("filename", filename)))

	path, err := uc.persist(video, filename)
	if err != nil {
		return entity.HeightEstimate{}, tr.fail(err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			uc.logger.Warn("failed to remove temp video", zap.String("path", path), zap.Error(err))
		}
	}()

	return uc.estimate(ctx, tr, path)
}

// EstimateFile runs the pipeline on a video already on local disk. The file is left in place.
func (uc *EstimateHeightUseCase) EstimateFile(ctx context.Context, path string) (entity.HeightEstimate, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "EstimateHeightUseCase.EstimateFile")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	tr := newStageTracker(ctx, span, uc.logger.With(zap.String("path", path)))
	return uc.estimate(ctx, tr, path)
}

func (uc *EstimateHeightUseCase) estimate(ctx context.Context, tr *stageTracker, path string) (entity.HeightEstimate, error) {
	tr.advance(entity.StageDecoding)
	info, err := uc.prober.Probe(ctx, path)
	if err != nil {
		return entity.HeightEstimate{}, tr.fail(err)
	}
	tr.logger.Debug("video probed",
		zap.String("codec", info.Codec),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("duration_secs", info.Duration),
	)

	est, err := uc.pipeline.Run(ctx, path, tr.advance)
	if err != nil {
		return entity.HeightEstimate{}, tr.fail(err)
	}

	tr.done(est)
	return est, nil
}

func (uc *EstimateHeightUseCase) persist(video io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(uc.tempDir, 0o755); err != nil {
		return "", apperr.Internal("persist upload", fmt.Errorf("create temp dir: %w", err))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(uc.tempDir, "upload-"+uuid.NewString()+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", apperr.Internal("persist upload", fmt.Errorf("create temp file: %w", err))
	}

	n, err := io.Copy(f, video)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", apperr.Internal("persist upload", fmt.Errorf("write temp file: %w", err))
	}
	if n == 0 {
		os.Remove(path)
		return "", apperr.Validation("persist upload", "uploaded video is empty")
	}
	return path, nil
}

// stageTracker walks the pipeline state machine for one estimation, timing
// each stage and recording the outcome.
type stageTracker struct {
	ctx     context.Context
	span    trace.Span
	logger  *zap.Logger
	stage   entity.PipelineStage
	entered time.Time
}

func newStageTracker(ctx context.Context, span trace.Span, logger *zap.Logger) *stageTracker {
	logger.Debug("pipeline stage", zap.String("stage", string(entity.StageReceived)))
	return &stageTracker{
		ctx:     ctx,
		span:    span,
		logger:  logger,
		stage:   entity.StageReceived,
		entered: time.Now(),
	}
}

func (t *stageTracker) advance(next entity.PipelineStage) {
	if !t.stage.CanTransition(next) {
		t.logger.Warn("unexpected pipeline transition",
			zap.String("from", string(t.stage)),
			zap.String("to", string(next)),
		)
	}
	now := time.Now()
	metrics.PipelineStageDuration.WithLabelValues(string(t.stage)).Observe(now.Sub(t.entered).Seconds())
	t.span.AddEvent(string(next))
	t.logger.Debug("pipeline stage",
		zap.String("from", string(t.stage)),
		zap.String("stage", string(next)),
	)
	t.stage = next
	t.entered = now
}

func (t *stageTracker) done(est entity.HeightEstimate) {
	t.advance(entity.StageDone)
	metrics.EstimationsTotal.WithLabelValues("success").Inc()
	metrics.FramesSampledTotal.Add(float64(est.FramesSampled))
	metrics.PosesDetectedTotal.Add(float64(est.FramesUsed))
	t.span.SetAttributes(
		attribute.Float64("estimate.height", est.Height),
		attribute.Int("estimate.frames_sampled", est.FramesSampled),
		attribute.Int("estimate.frames_used", est.FramesUsed),
	)
	t.logger.Info("height estimated",
		zap.Float64("estimated_height", est.Height),
		zap.Int("frames_sampled", est.FramesSampled),
		zap.Int("frames_used", est.FramesUsed),
	)
}

// fail moves to the failed stage and classifies err. Deadline expiry wins
// over whatever error the interrupted stage reported.
func (t *stageTracker) fail(err error) error {
	failedIn := t.stage
	switch {
	case errors.Is(t.ctx.Err(), context.DeadlineExceeded):
		err = apperr.Timeout(string(failedIn), err)
	case errors.Is(err, context.Canceled):
		err = apperr.Wrap(apperr.KindInternal, string(failedIn), "request cancelled", err)
	}

	t.advance(entity.StageFailed)
	kind := apperr.KindOf(err)
	metrics.EstimationsTotal.WithLabelValues(string(kind)).Inc()
	t.span.RecordError(err)
	t.span.SetStatus(codes.Error, string(kind))
	t.logger.Warn("height estimation failed",
		zap.String("stage", string(failedIn)),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	return err
}
