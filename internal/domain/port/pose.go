package port

import (
	"context"

	"github.com/reactiontech/websa-api/internal/domain/entity"
)

// FrameDecoder opens a video file for sequential decoding.
type FrameDecoder interface {
	Open(path string) (FrameReader, error)
}

// FrameReader yields decoded frames in order. When decode is false the frame
// is skipped without producing pixels. ok is false at end of stream.
type FrameReader interface {
	Next(decode bool) (frame entity.Frame, ok bool, err error)
	Close() error
}

// VideoProber checks that a file is a container with at least one video stream.
type VideoProber interface {
	Probe(ctx context.Context, path string) (*VideoInfo, error)
}

type VideoInfo struct {
	Codec    string
	Width    int
	Height   int
	Duration float64
	Frames   int
}

// PoseDetector takes an RGB24 frame and returns the landmarks of the most
// prominent person, or none when no person was found.
type PoseDetector interface {
	Detect(ctx context.Context, frame entity.Frame) ([]entity.Landmark, error)
}

// HeightModel returns one prediction per feature row.
type HeightModel interface {
	InputWidth() int
	Predict(ctx context.Context, rows [][]float64) ([]float64, error)
}
