package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/bgblast/internal/env"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(env.Production, WithConsole(&buf))

	log.Info("Model initialized", "model_id", "briaai/RMBG-1.4")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Model initialized", rec["msg"])
	assert.Equal(t, "briaai/RMBG-1.4", rec["model_id"])
}

func TestNew_DevelopmentIsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(env.Development, WithConsole(&buf))

	log.Debug("Probing accelerator")
	assert.Contains(t, buf.String(), "Probing accelerator")
}

func TestNew_LevelOption(t *testing.T) {
	var buf bytes.Buffer
	log := New(env.Production, WithConsole(&buf), WithLevel(slog.LevelWarn))

	log.Info("dropped")
	assert.Empty(t, buf.String())
}

func TestNew_TeesToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "bgblast.log")
	log := New(env.Test, WithConsole(&buf), WithLogToFile(true), WithLogFile(path))

	log.With("component", "test").Warn("Cache unavailable")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"component":"test"`))
	assert.Contains(t, buf.String(), "Cache unavailable")
}
