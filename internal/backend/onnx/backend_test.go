package onnx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/bgblast/internal/backend"
)

// These tests never reach onnxruntime: every case fails before the
// environment is initialized, so they run without the shared library.

func TestBackend_Provider(t *testing.T) {
	assert.Equal(t, backend.BackendProviderONNXRuntime, New("").Provider())
}

func TestBackend_LoadValidation(t *testing.T) {
	b := New("")

	_, err := b.Load(context.Background(), &backend.LoadRequest{})
	assert.Error(t, err)

	_, err = b.Load(context.Background(), &backend.LoadRequest{
		ModelPath: filepath.Join(t.TempDir(), "missing.onnx"),
	})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Load(ctx, &backend.LoadRequest{ModelPath: "model.onnx"})
	assert.ErrorIs(t, err, context.Canceled)

	assert.False(t, b.initialized)
}

func TestBackend_CloseUninitialized(t *testing.T) {
	require.NoError(t, New("").Close())
}

func TestSession_RunClosed(t *testing.T) {
	s := &session{closed: true}

	_, err := s.Run(context.Background(), backend.NewTensor(1, 3, 2, 2))
	assert.ErrorIs(t, err, backend.ErrSessionClosed)

	_, err = s.Run(context.Background(), &backend.Tensor{Shape: []int64{1, 3}, Data: []float32{1}})
	assert.ErrorIs(t, err, backend.ErrInvalidTensor)

	require.NoError(t, s.Close())
}
