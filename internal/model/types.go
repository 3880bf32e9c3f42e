package model

// ClassLabel names one position of a model's output vector.
type ClassLabel = string

// Prediction is the raw probability vector of one inference call.
type Prediction []float32

const (
	LayoutNCHW = "nchw"
	LayoutNHWC = "nhwc"
)

type Metadata struct {
	InputName   string       `json:"input_name" yaml:"input_name"`
	OutputName  string       `json:"output_name" yaml:"output_name"`
	InputShape  []int64      `json:"input_shape" yaml:"input_shape"`
	OutputShape []int64      `json:"output_shape" yaml:"output_shape"`
	Classes     []ClassLabel `json:"classes" yaml:"classes"`
	ImageSize   int          `json:"image_size" yaml:"image_size"`
	Layout      string       `json:"layout" yaml:"layout"`
	Scale       float32      `json:"scale" yaml:"scale"`
}

// InferenceResult is the top class of a Prediction.
type InferenceResult struct {
	Label      ClassLabel `json:"Health "`
	Confidence float64    `json:"confidence "`
}
