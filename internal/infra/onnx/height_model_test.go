package onnx

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	got, err := Flatten([][]float64{{1, 2, 3}, {4, 5, 6}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, got)

	_, err = Flatten([][]float64{{1, 2, 3}, {4, 5}}, 3)
	assert.ErrorContains(t, err, "row 1 has 2 features")

	_, err = Flatten(nil, 3)
	assert.Error(t, err)
}

func TestNewHeightModel_InvalidWidth(t *testing.T) {
	_, err := NewHeightModel(HeightModelConfig{InputWidth: 0})
	assert.Error(t, err)
}

// Runs against a real exported regressor when one is available:
// WEBSA_ONNX_LIBRARY=/usr/lib/libonnxruntime.so WEBSA_HEIGHT_MODEL=models/height_regressor.onnx
func TestHeightModel_Predict(t *testing.T) {
	lib, model := os.Getenv("WEBSA_ONNX_LIBRARY"), os.Getenv("WEBSA_HEIGHT_MODEL")
	if lib == "" || model == "" {
		t.Skip("WEBSA_ONNX_LIBRARY and WEBSA_HEIGHT_MODEL not set")
	}

	m, err := NewHeightModel(HeightModelConfig{
		LibraryPath: lib,
		ModelPath:   model,
		InputName:   "float_input",
		OutputName:  "variable",
		InputWidth:  100,
	})
	require.NoError(t, err)
	defer m.Close()

	rows := make([][]float64, 3)
	for i := range rows {
		rows[i] = make([]float64, 100)
	}
	preds, err := m.Predict(context.Background(), rows)
	require.NoError(t, err)
	assert.Len(t, preds, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Predict(ctx, rows)
	assert.ErrorIs(t, err, context.Canceled)
}
