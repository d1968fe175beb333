// Package opencv decodes uploaded videos frame by frame with gocv.
package opencv

import (
	"errors"
	"fmt"

	"github.com/reactiontech/websa-api/internal/domain/apperr"
	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) Open(path string) (port.FrameReader, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, apperr.Decode("open video", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, apperr.Decode("open video", errors.New("container could not be opened"))
	}

	return &reader{
		vc:     vc,
		mat:    gocv.NewMat(),
		bgr:    gocv.NewMat(),
		logger: d.logger.With(zap.String("path", path)),
	}, nil
}

type reader struct {
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	bgr    gocv.Mat
	logger *zap.Logger
	read   int
	closed bool
}

// Next reads the next frame. gocv cannot tell end of stream from a decode
// failure, so both end the stream. Skipped frames are still decoded because
// Grab does not report end of stream, but their pixels are not copied.
func (r *reader) Next(decode bool) (entity.Frame, bool, error) {
	if r.closed {
		return entity.Frame{}, false, errors.New("reader closed")
	}
	if ok := r.vc.Read(&r.mat); !ok || r.mat.Empty() {
		r.logger.Debug("frame stream ended", zap.Int("frames_read", r.read))
		return entity.Frame{}, false, nil
	}
	r.read++
	if !decode {
		return entity.Frame{}, true, nil
	}

	src := r.mat
	switch r.mat.Channels() {
	case 3:
	case 1:
		gocv.CvtColor(r.mat, &r.bgr, gocv.ColorGrayToBGR)
		src = r.bgr
	case 4:
		gocv.CvtColor(r.mat, &r.bgr, gocv.ColorBGRAToBGR)
		src = r.bgr
	default:
		return entity.Frame{}, false, fmt.Errorf("unsupported channel count %d", r.mat.Channels())
	}
	if src.Type() != gocv.MatTypeCV8UC3 {
		src.ConvertTo(&r.bgr, gocv.MatTypeCV8UC3)
		src = r.bgr
	}

	return entity.Frame{
		Width:  src.Cols(),
		Height: src.Rows(),
		Format: entity.PixelFormatBGR24,
		Pix:    src.ToBytes(),
	}, true, nil
}

func (r *reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.mat.Close()
	r.bgr.Close()
	return r.vc.Close()
}
