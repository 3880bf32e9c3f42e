package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyPrediction = errors.New("empty prediction")
	ErrLabelMismatch   = errors.New("prediction length does not match class labels")
)

// Model is a loaded, read-only classifier. Run takes one preprocessed image
// laid out as Metadata describes and returns one probability per class.
type Model interface {
	Name() string
	Metadata() Metadata
	Run(input []float32) (Prediction, error)
	Close() error
}

// Classify picks the most probable class. The index of the maximum value is
// mapped positionally onto classes; the maximum itself is the confidence.
func Classify(pred Prediction, classes []ClassLabel) (InferenceResult, error) {
	if len(pred) == 0 {
		return InferenceResult{}, ErrEmptyPrediction
	}
	if len(pred) != len(classes) {
		return InferenceResult{}, fmt.Errorf("%w: %d values, %d classes", ErrLabelMismatch, len(pred), len(classes))
	}

	maxIdx := 0
	maxVal := pred[0]
	for i, val := range pred {
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	if math.IsNaN(float64(maxVal)) {
		return InferenceResult{}, errors.New("prediction is NaN")
	}

	return InferenceResult{
		Label:      classes[maxIdx],
		Confidence: clamp01(float64(maxVal)),
	}, nil
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// InputSize is the number of float32 values one image occupies.
func (m Metadata) InputSize() int {
	if len(m.InputShape) == 0 {
		return 0
	}
	n := 1
	for _, dim := range m.InputShape {
		n *= int(dim)
	}
	return n
}

// ApplyDefaults fills in what a bare metadata file may leave out. The
// defaults match a Keras export fed raw 0-255 pixels in NHWC order.
func (m *Metadata) ApplyDefaults() {
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if m.Layout == "" {
		m.Layout = LayoutNHWC
	}
	if m.Scale == 0 {
		m.Scale = 1
	}
	size := int64(m.ImageSize)
	if len(m.InputShape) == 0 && size > 0 {
		if m.Layout == LayoutNCHW {
			m.InputShape = []int64{1, 3, size, size}
		} else {
			m.InputShape = []int64{1, size, size, 3}
		}
	}
	if len(m.OutputShape) == 0 && len(m.Classes) > 0 {
		m.OutputShape = []int64{1, int64(len(m.Classes))}
	}
}

// Validate checks that the shapes agree with each other and with the label
// list. It cannot check that the label order matches the training order.
func (m Metadata) Validate() error {
	if len(m.Classes) == 0 {
		return errors.New("no classes")
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("invalid image_size %d", m.ImageSize)
	}

	var want []int64
	switch m.Layout {
	case LayoutNCHW:
		want = []int64{1, 3, int64(m.ImageSize), int64(m.ImageSize)}
	case LayoutNHWC:
		want = []int64{1, int64(m.ImageSize), int64(m.ImageSize), 3}
	default:
		return fmt.Errorf("unknown layout %q", m.Layout)
	}
	if !equalShape(m.InputShape, want) {
		return fmt.Errorf("input_shape %v does not match %s image of %d", m.InputShape, m.Layout, m.ImageSize)
	}

	outputSize := 1
	for _, dim := range m.OutputShape {
		outputSize *= int(dim)
	}
	if len(m.OutputShape) == 0 || outputSize != len(m.Classes) {
		return fmt.Errorf("output_shape %v does not hold %d classes", m.OutputShape, len(m.Classes))
	}
	return nil
}

func equalShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
