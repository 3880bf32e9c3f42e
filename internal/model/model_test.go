package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var potatoClasses = []ClassLabel{"Early Blight", "Late Blight", "Healthy"}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		pred      Prediction
		wantLabel ClassLabel
		wantConf  float64
	}{
		{"middle", Prediction{0.1, 0.8, 0.1}, "Late Blight", 0.8},
		{"first", Prediction{0.6, 0.3, 0.1}, "Early Blight", 0.6},
		{"last", Prediction{0.2, 0.2, 0.6}, "Healthy", 0.6},
		{"tie keeps lowest index", Prediction{0.4, 0.4, 0.2}, "Early Blight", 0.4},
		{"clamped above one", Prediction{0, 1.2, 0}, "Late Blight", 1},
		{"clamped below zero", Prediction{-3, -2, -1}, "Healthy", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Classify(tt.pred, potatoClasses)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, res.Label)
			assert.InDelta(t, tt.wantConf, res.Confidence, 1e-6)
		})
	}
}

func TestClassifyAlwaysInRange(t *testing.T) {
	preds := []Prediction{
		{0.33, 0.33, 0.34},
		{1, 0, 0},
		{0.05, 0.9, 0.05},
	}
	for _, p := range preds {
		res, err := Classify(p, potatoClasses)
		require.NoError(t, err)
		assert.Contains(t, potatoClasses, res.Label)
		assert.GreaterOrEqual(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

func TestClassifyErrors(t *testing.T) {
	_, err := Classify(nil, potatoClasses)
	assert.ErrorIs(t, err, ErrEmptyPrediction)

	_, err = Classify(Prediction{0.5, 0.5}, potatoClasses)
	assert.ErrorIs(t, err, ErrLabelMismatch)

	_, err = Classify(Prediction{float32(math.NaN()), 0, 0}, potatoClasses)
	assert.Error(t, err)
}

func TestMetadataDefaults(t *testing.T) {
	meta := Metadata{ImageSize: 256, Classes: potatoClasses}
	meta.ApplyDefaults()

	assert.Equal(t, "input", meta.InputName)
	assert.Equal(t, "output", meta.OutputName)
	assert.Equal(t, LayoutNHWC, meta.Layout)
	assert.Equal(t, float32(1), meta.Scale)
	assert.Equal(t, []int64{1, 256, 256, 3}, meta.InputShape)
	assert.Equal(t, []int64{1, 3}, meta.OutputShape)
	assert.Equal(t, 256*256*3, meta.InputSize())
	assert.NoError(t, meta.Validate())

	nchw := Metadata{ImageSize: 48, Classes: potatoClasses, Layout: LayoutNCHW, Scale: 1.0 / 255}
	nchw.ApplyDefaults()
	assert.Equal(t, []int64{1, 3, 48, 48}, nchw.InputShape)
	assert.NoError(t, nchw.Validate())
}

func TestMetadataValidate(t *testing.T) {
	tests := []struct {
		name string
		meta Metadata
	}{
		{"no classes", Metadata{ImageSize: 8}},
		{"no size", Metadata{Classes: potatoClasses}},
		{"bad layout", Metadata{ImageSize: 8, Classes: potatoClasses, Layout: "hwc"}},
		{"shape mismatch", Metadata{ImageSize: 8, Classes: potatoClasses, InputShape: []int64{1, 3, 8, 8}}},
		{"output too small", Metadata{ImageSize: 8, Classes: potatoClasses, OutputShape: []int64{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := tt.meta
			meta.ApplyDefaults()
			assert.Error(t, meta.Validate())
		})
	}
}
