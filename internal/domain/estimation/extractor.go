package estimation

import (
	"context"
	"fmt"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
)

// Extractor runs the pose detector on one frame at a time.
type Extractor struct {
	detector port.PoseDetector
}

func NewExtractor(detector port.PoseDetector) *Extractor {
	return &Extractor{detector: detector}
}

// Extract returns the landmarks of frame. No person is a soft miss:
// Detected is false and Landmarks is the zero vector.
func (e *Extractor) Extract(ctx context.Context, frame entity.Frame) (entity.PoseResult, error) {
	const op = "extract landmarks"

	rgb, err := ToRGB(frame)
	if err != nil {
		return entity.PoseResult{}, err
	}

	lms, err := e.detector.Detect(ctx, rgb)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return entity.PoseResult{}, ctxErr
		}
		return entity.PoseResult{}, apperr.ExternalModel(op, err)
	}

	switch len(lms) {
	case 0:
		return entity.PoseResult{FrameIndex: frame.Index, Landmarks: entity.ZeroLandmarks()}, nil
	case entity.LandmarkCount:
		return entity.PoseResult{
			FrameIndex: frame.Index,
			Landmarks:  entity.FlattenLandmarks(lms),
			Detected:   true,
		}, nil
	default:
		return entity.PoseResult{}, apperr.ExternalModel(op,
			fmt.Errorf("pose model returned %d landmarks, want %d", len(lms), entity.LandmarkCount))
	}
}

// ToRGB returns frame in RGB24 order. Decoders hand out BGR24 while the pose
// model expects RGB24; the pixel buffer of the input is never modified.
func ToRGB(frame entity.Frame) (entity.Frame, error) {
	if frame.Format == entity.PixelFormatRGB24 {
		return frame, nil
	}
	if frame.Format != entity.PixelFormatBGR24 {
		return entity.Frame{}, apperr.Shape("convert frame", fmt.Sprintf("unsupported pixel format %s", frame.Format))
	}
	want := frame.Width * frame.Height * 3
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Pix) != want {
		return entity.Frame{}, apperr.Shape("convert frame",
			fmt.Sprintf("frame %dx%d has %d bytes, want %d", frame.Width, frame.Height, len(frame.Pix), want))
	}

	pix := make([]byte, len(frame.Pix))
	for i := 0; i < len(pix); i += 3 {
		pix[i] = frame.Pix[i+2]
		pix[i+1] = frame.Pix[i+1]
		pix[i+2] = frame.Pix[i]
	}
	out := frame
	out.Format = entity.PixelFormatRGB24
	out.Pix = pix
	return out, nil
}
