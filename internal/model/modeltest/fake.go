// Package modeltest provides in-memory models for tests.
package modeltest

import (
	"sync"

	"github.com/Brownie44l1/leaf-api/internal/model"
)

// Fake returns a fixed prediction for every input, or Err when set.
type Fake struct {
	ModelName string
	Meta      model.Metadata
	Output    model.Prediction
	Err       error

	mu     sync.Mutex
	calls  int
	closed bool
}

// New builds a fake with NHWC metadata for a tiny image so tests can feed
// small PNGs.
func New(name string, classes []model.ClassLabel, output ...float32) *Fake {
	meta := model.Metadata{ImageSize: 4, Classes: classes}
	meta.ApplyDefaults()
	return &Fake{ModelName: name, Meta: meta, Output: output}
}

func (f *Fake) Name() string { return f.ModelName }

func (f *Fake) Metadata() model.Metadata { return f.Meta }

func (f *Fake) Run(input []float32) (model.Prediction, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	out := make(model.Prediction, len(f.Output))
	copy(out, f.Output)
	return out, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
