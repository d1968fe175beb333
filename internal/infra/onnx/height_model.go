// Package onnx runs the height regressor with ONNX Runtime.
package onnx

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

type HeightModelConfig struct {
	LibraryPath string
	ModelPath   string
	InputName   string
	OutputName  string
	InputWidth  int
}

// HeightModel wraps a session created once at startup. Run calls are
// serialized; the session is shared by every request.
type HeightModel struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	width   int
}

func NewHeightModel(cfg HeightModelConfig) (*HeightModel, error) {
	if cfg.InputWidth < 1 {
		return nil, fmt.Errorf("invalid input width %d", cfg.InputWidth)
	}
	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("load height model %s: %w", cfg.ModelPath, err)
	}
	return &HeightModel{session: session, width: cfg.InputWidth}, nil
}

func (m *HeightModel) InputWidth() int { return m.width }

func (m *HeightModel) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := Flatten(rows, m.width)
	if err != nil {
		return nil, err
	}

	n := int64(len(rows))
	input, err := ort.NewTensor(ort.NewShape(n, int64(m.width)), data)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(n, 1))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer output.Destroy()

	m.mu.Lock()
	err = m.session.Run([]ort.Value{input}, []ort.Value{output})
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run height model: %w", err)
	}

	out := output.GetData()
	preds := make([]float64, len(out))
	for i, v := range out {
		preds[i] = float64(v)
	}
	return preds, nil
}

func (m *HeightModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.session.Destroy(); err != nil {
		return err
	}
	return ort.DestroyEnvironment()
}

// Flatten packs rows into a row-major float32 buffer of len(rows)*width.
func Flatten(rows [][]float64, width int) ([]float32, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to predict")
	}
	data := make([]float32, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), width)
		}
		for _, v := range row {
			data = append(data, float32(v))
		}
	}
	return data, nil
}
