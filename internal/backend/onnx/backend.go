// Package onnx implements the inference backend on top of ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/mapsafe"
)

// Backend loads ONNX models through a process-wide ONNX Runtime environment.
type Backend struct {
	libPath     string
	initialized bool
	mu          sync.Mutex
}

var _ backend.Backend = (*Backend)(nil)

// New creates an ONNX Runtime backend. libPath points at the onnxruntime
// shared library; when empty the platform default search path is used.
func New(libPath string) *Backend {
	return &Backend{libPath: libPath}
}

// Provider implements backend.Backend.
func (b *Backend) Provider() backend.BackendProvider {
	return backend.BackendProviderONNXRuntime
}

func (b *Backend) ensureEnvironment() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	if b.libPath != "" {
		ort.SetSharedLibraryPath(b.libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	b.initialized = true
	slog.Info("ONNX Runtime environment initialized", "lib", b.libPath)

	return nil
}

// Load implements backend.Backend.
//
// Supported parameters: "intra_op_threads" (int) and "device_id" (int, CUDA only).
func (b *Backend) Load(ctx context.Context, req *backend.LoadRequest) (backend.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || req.ModelPath == "" {
		return nil, errors.New("onnx: model path is required")
	}
	if _, err := os.Stat(req.ModelPath); err != nil {
		return nil, fmt.Errorf("onnx: model file: %w", err)
	}

	if err := b.ensureEnvironment(); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()

	if threads := mapsafe.Get(req.Parameters, "intra_op_threads", 0); threads > 0 {
		if err := opts.SetIntraOpNumThreads(threads); err != nil {
			return nil, fmt.Errorf("onnx: failed to set intra-op threads: %w", err)
		}
	}

	if req.Device.Accelerated() {
		if err := appendCUDA(opts, mapsafe.Get(req.Parameters, "device_id", 0)); err != nil {
			return nil, fmt.Errorf("%w: %w", backend.ErrBackendUnavailable, err)
		}
	}

	inputName, outputName := req.InputName, req.OutputName
	if inputName == "" {
		inputName = "input"
	}
	if outputName == "" {
		outputName = "output"
	}

	s, err := ort.NewDynamicAdvancedSession(req.ModelPath, []string{inputName}, []string{outputName}, opts)
	if err != nil {
		if req.Device.Accelerated() {
			return nil, fmt.Errorf("%w: %w", backend.ErrBackendUnavailable, err)
		}
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	slog.Info("ONNX session created", "path", req.ModelPath, "device", req.Device)

	return &session{session: s}, nil
}

func appendCUDA(opts *ort.SessionOptions, deviceID int) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("failed to create CUDA provider options: %w", err)
	}
	defer cuda.Destroy()

	if err := cuda.Update(map[string]string{"device_id": strconv.Itoa(deviceID)}); err != nil {
		return fmt.Errorf("failed to configure CUDA provider: %w", err)
	}

	return opts.AppendExecutionProviderCUDA(cuda)
}

// Close destroys the ONNX Runtime environment.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}

	b.initialized = false
	return ort.DestroyEnvironment()
}
