package onnx

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ekisa-team/bgblast/internal/backend"
)

// session wraps a DynamicAdvancedSession. ONNX Runtime runs cannot be
// interrupted, so a run that outlives its context keeps the read lock until
// it finishes and Close waits for it.
type session struct {
	session *ort.DynamicAdvancedSession
	closed  bool
	mu      sync.RWMutex
}

type runResult struct {
	tensor *backend.Tensor
	err    error
}

// Run implements backend.Session.
func (s *session) Run(ctx context.Context, input *backend.Tensor) (*backend.Tensor, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, backend.ErrSessionClosed
	}

	done := make(chan runResult, 1)
	go func() {
		defer s.mu.RUnlock()

		out, err := s.run(input)
		done <- runResult{tensor: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.tensor, res.err
	}
}

func (s *session) run(input *backend.Tensor) (*backend.Tensor, error) {
	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("onnx: run failed: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx: unexpected output type %T", outputs[0])
	}

	shape := out.GetShape()
	data := out.GetData()

	// The tensor memory belongs to onnxruntime and is released on Destroy.
	result := &backend.Tensor{
		Shape: append([]int64(nil), shape...),
		Data:  append([]float32(nil), data...),
	}

	return result, nil
}

// Close implements backend.Session.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.session.Destroy()
}
