package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/config"
	"github.com/ekisa-team/bgblast/internal/config/source"
	"github.com/ekisa-team/bgblast/internal/envvar"
	"github.com/ekisa-team/bgblast/internal/xfs"
)

// Loader fetches a model and opens an inference session for it.
type Loader interface {
	Load(ctx context.Context, cfg *config.Config, modelConfig *config.ModelConfig) (backend.Session, error)
}

// SourceLoader downloads model files from their configured source and loads
// them with the backend named in the model configuration.
type SourceLoader struct {
	backends      *backend.Registry
	downloaderFor func(context.Context, config.SourceType) (source.Downloader, error)
}

// NewSourceLoader creates a loader over the given backends.
func NewSourceLoader(backends *backend.Registry) *SourceLoader {
	return &SourceLoader{
		backends:      backends,
		downloaderFor: source.GetDownloader,
	}
}

// Load implements Loader.
func (l *SourceLoader) Load(ctx context.Context, cfg *config.Config, modelConfig *config.ModelConfig) (backend.Session, error) {
	b, ok := l.backends.Get(backend.BackendProvider(modelConfig.Backend))
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrBackendNotFound, modelConfig.Backend)
	}

	modelsPath := resolveModelsPath(cfg)
	if err := source.EnsureModelsDirectory(modelsPath); err != nil {
		return nil, fmt.Errorf("failed to prepare models directory %s: %w", modelsPath, err)
	}

	modelSource, err := modelConfig.GetSource()
	if err != nil {
		return nil, fmt.Errorf("failed to get model source for %s: %w", modelConfig.ID, err)
	}

	downloader, err := l.downloaderFor(ctx, modelSource.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to get downloader for %s: %w", modelConfig.ID, err)
	}

	downloadPath, _, err := downloader.Download(ctx, modelConfig, modelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to download model %s into %s: %w", modelConfig.ID, modelsPath, err)
	}

	modelPath := filepath.Join(downloadPath, filepath.FromSlash(modelConfig.File))
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing for %s: %w", modelConfig.ID, err)
	}

	session, err := b.Load(ctx, &backend.LoadRequest{
		ModelPath:  modelPath,
		Device:     backend.Device(modelConfig.Device),
		InputName:  modelConfig.InputName,
		OutputName: modelConfig.OutputName,
		Parameters: map[string]any{
			"intra_op_threads": cfg.Inference.IntraOpThreads,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", modelConfig.ID, err)
	}

	return session, nil
}

// resolveModelsPath returns the path to the models directory.
// Precedence:
// 1. BGBLAST_MODELS_PATH environment variable.
// 2. ModelsDir field in the config.
// 3. Default models path.
func resolveModelsPath(cfg *config.Config) string {
	if p := os.Getenv(envvar.BgblastModelsPath); p != "" {
		return xfs.ExpandTilde(p)
	}
	if cfg.Storage.ModelsDir != "" {
		return xfs.ExpandTilde(cfg.Storage.ModelsDir)
	}
	return xfs.ExpandTilde(config.DefaultModelsPath())
}
