package estimation

import (
	"context"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StageFunc is called when the pipeline enters a stage.
type StageFunc func(stage entity.PipelineStage)

type Pipeline struct {
	decoder     port.FrameDecoder
	extractor   *Extractor
	model       port.HeightModel
	stride      int
	concurrency int
	logger      *zap.Logger
}

type PipelineConfig struct {
	Stride      int
	Concurrency int
	Logger      *zap.Logger
}

func NewPipeline(decoder port.FrameDecoder, detector port.PoseDetector, model port.HeightModel, cfg PipelineConfig) *Pipeline {
	if cfg.Stride < 1 {
		cfg.Stride = entity.DefaultFrameStride
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pipeline{
		decoder:     decoder,
		extractor:   NewExtractor(detector),
		model:       model,
		stride:      cfg.Stride,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Run estimates the height of the person in the video at path. Any stage error
// aborts the run; context errors are returned unwrapped.
func (p *Pipeline) Run(ctx context.Context, path string, onStage StageFunc) (entity.HeightEstimate, error) {
	if onStage == nil {
		onStage = func(entity.PipelineStage) {}
	}

	reader, err := p.decoder.Open(path)
	if err != nil {
		return entity.HeightEstimate{}, apperr.Decode("open video", err)
	}

	onStage(entity.StageSampling)
	var agg Aggregator
	extracting := false
	batch := make([]entity.Frame, 0, p.concurrency)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if !extracting {
			onStage(entity.StageExtractingLandmarks)
			extracting = true
		}
		poses, err := p.extractBatch(ctx, batch)
		if err != nil {
			return err
		}
		batch = batch[:0]
		for _, pose := range poses {
			fv, err := Compose(pose)
			if err != nil {
				return err
			}
			if err := agg.Add(fv); err != nil {
				return err
			}
		}
		return nil
	}

	truncated := func(idx int, err error) {
		p.logger.Warn("video stream ended early on a read error",
			zap.String("path", path),
			zap.Int("frame", idx),
			zap.Error(err),
		)
	}
	for frame, err := range sample(ctx, reader, p.stride, truncated) {
		if err != nil {
			return entity.HeightEstimate{}, err
		}
		batch = append(batch, frame)
		if len(batch) == p.concurrency {
			if err := flush(); err != nil {
				return entity.HeightEstimate{}, err
			}
		}
	}
	if err := flush(); err != nil {
		return entity.HeightEstimate{}, err
	}

	onStage(entity.StageAggregating)
	matrix, err := agg.Matrix()
	if err != nil {
		return entity.HeightEstimate{}, err
	}

	onStage(entity.StagePredicting)
	height, err := Predict(ctx, p.model, matrix)
	if err != nil {
		return entity.HeightEstimate{}, err
	}

	return entity.HeightEstimate{
		Height:        height,
		FramesSampled: agg.Sampled(),
		FramesUsed:    matrix.Len(),
	}, nil
}

// extractBatch runs the extractor over frames and returns results in input order.
func (p *Pipeline) extractBatch(ctx context.Context, frames []entity.Frame) ([]entity.PoseResult, error) {
	out := make([]entity.PoseResult, len(frames))
	if len(frames) == 1 {
		pose, err := p.extractor.Extract(ctx, frames[0])
		if err != nil {
			return nil, err
		}
		out[0] = pose
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, frame := range frames {
		g.Go(func() error {
			pose, err := p.extractor.Extract(gctx, frame)
			if err != nil {
				return err
			}
			out[i] = pose
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
