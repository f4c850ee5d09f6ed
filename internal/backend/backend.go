package backend

import (
	"context"
	"fmt"
)

// BackendProvider is a string identifier for a backend provider.
type BackendProvider string

const (
	BackendProviderONNXRuntime BackendProvider = "onnxruntime"
)

// Device is the execution target of a loaded model.
type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// Accelerated reports whether d is an accelerator device.
func (d Device) Accelerated() bool {
	return d != DeviceCPU && d != ""
}

// Backend defines the core interface for all inference backends.
type Backend interface {
	// Provider returns the backend identifier.
	Provider() BackendProvider

	// Load loads a model for the requested device and returns a runnable session.
	Load(ctx context.Context, req *LoadRequest) (Session, error)

	// Close cleans up resources.
	Close() error
}

// Session is a loaded model ready for inference.
type Session interface {
	// Run executes the model on a single input tensor.
	Run(ctx context.Context, input *Tensor) (*Tensor, error)

	// Close releases the session.
	Close() error
}

// LoadRequest encapsulates all parameters for loading a model.
type LoadRequest struct {
	// ModelPath is the path to the model file.
	ModelPath string

	// Device is the execution target.
	Device Device

	// InputName and OutputName are the graph's tensor names.
	InputName  string
	OutputName string

	// Parameters contains backend-specific load parameters.
	Parameters map[string]any
}

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(shape ...int64) *Tensor {
	return &Tensor{
		Shape: shape,
		Data:  make([]float32, elements(shape)),
	}
}

// Validate checks that the data length matches the shape.
func (t *Tensor) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrInvalidTensor)
	}
	if n := elements(t.Shape); n != len(t.Data) {
		return fmt.Errorf("%w: shape %v needs %d values, got %d", ErrInvalidTensor, t.Shape, n, len(t.Data))
	}
	return nil
}

func elements(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}
