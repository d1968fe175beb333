package estimation

import (
	"context"
	"errors"
	"sync"

	"github.com/reactiontech/websa-api/internal/domain/entity"
	"github.com/reactiontech/websa-api/internal/domain/port"
)

// fakeReader produces total 2x1 BGR frames whose blue byte is the frame index.
type fakeReader struct {
	total     int
	failAt    int
	failFirst bool
	next      int
	decoded   []int
	closed    int
	closedErr error
}

func (r *fakeReader) Next(decode bool) (entity.Frame, bool, error) {
	if (r.failAt > 0 && r.next == r.failAt) || (r.failFirst && r.next == 0) {
		return entity.Frame{}, false, errors.New("corrupt packet")
	}
	if r.next >= r.total {
		return entity.Frame{}, false, nil
	}
	idx := r.next
	r.next++
	if !decode {
		return entity.Frame{}, true, nil
	}
	r.decoded = append(r.decoded, idx)
	b := byte(idx)
	return entity.Frame{
		Width:  2,
		Height: 1,
		Format: entity.PixelFormatBGR24,
		Pix:    []byte{b, 10, 20, b, 11, 21},
	}, true, nil
}

func (r *fakeReader) Close() error {
	r.closed++
	return r.closedErr
}

type fakeDecoder struct {
	reader  *fakeReader
	openErr error
}

func (d *fakeDecoder) Open(string) (port.FrameReader, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.reader, nil
}

// fakeDetector finds a pose on the listed frame indices.
type fakeDetector struct {
	mu       sync.Mutex
	poses    map[int]bool
	count    int
	err      error
	received []entity.Frame
}

func (d *fakeDetector) Detect(_ context.Context, frame entity.Frame) ([]entity.Landmark, error) {
	d.mu.Lock()
	d.received = append(d.received, frame)
	d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}
	if !d.poses[frame.Index] {
		return nil, nil
	}
	n := d.count
	if n == 0 {
		n = entity.LandmarkCount
	}
	lms := make([]entity.Landmark, n)
	for i := range lms {
		lms[i] = entity.Landmark{X: float64(frame.Index), Y: float64(i), Z: 0.5}
	}
	return lms, nil
}

// fakeModel returns outputs in order, or 170 for every row when outputs is empty.
type fakeModel struct {
	width   int
	outputs []float64
	err     error
	calls   int
	rows    [][]float64
}

func (m *fakeModel) InputWidth() int { return m.width }

func (m *fakeModel) Predict(_ context.Context, rows [][]float64) ([]float64, error) {
	m.calls++
	m.rows = rows
	if m.err != nil {
		return nil, m.err
	}
	if len(m.outputs) > 0 {
		return m.outputs, nil
	}
	out := make([]float64, len(rows))
	for i := range out {
		out[i] = 170
	}
	return out, nil
}
