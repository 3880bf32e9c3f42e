package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// OnnxModel runs one ONNX graph through a session bound to pre-allocated
// tensors. Run copies into the shared input tensor, so calls are serialised.
type OnnxModel struct {
	name         string
	meta         Metadata
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// InitEnvironment prepares the onnxruntime shared library. It must run once
// before any model is opened; libPath may be empty.
func InitEnvironment(libPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

func DestroyEnvironment() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func OpenOnnx(name, modelPath string, meta Metadata) (*OnnxModel, error) {
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}

	return &OnnxModel{
		name:         name,
		meta:         meta,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (m *OnnxModel) Name() string { return m.name }

func (m *OnnxModel) Metadata() Metadata { return m.meta }

func (m *OnnxModel) Run(input []float32) (Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(data), len(input))
	}
	copy(data, input)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := m.outputTensor.GetData()
	pred := make(Prediction, len(out))
	copy(pred, out)
	return pred, nil
}

func (m *OnnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	if m.session != nil {
		firstErr = m.session.Destroy()
		m.session = nil
	}
	if m.inputTensor != nil {
		m.inputTensor.Destroy()
		m.inputTensor = nil
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
		m.outputTensor = nil
	}
	return firstErr
}
