package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ekisa-team/bgblast/internal/config"
)

// ErrUnsupportedSource is returned when no downloader handles a source type.
var ErrUnsupportedSource = errors.New("unsupported model source")

// Downloader fetches a model repository into a local directory.
type Downloader interface {
	// Download fetches the model into targetDir and returns the local path.
	// cached reports whether an up-to-date copy was already present.
	Download(ctx context.Context, modelConfig *config.ModelConfig, targetDir string) (path string, cached bool, err error)
}

// GetDownloader returns the downloader for the given source type.
func GetDownloader(_ context.Context, sourceType config.SourceType) (Downloader, error) {
	switch sourceType {
	case config.SourceTypeHuggingFace:
		return NewHuggingFaceDownloader(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, sourceType)
	}
}

// EnsureModelsDirectory creates the models directory if it does not exist.
func EnsureModelsDirectory(path string) error {
	if path == "" {
		return errors.New("models directory path is empty")
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%s exists and is not a directory", path)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	return os.MkdirAll(path, 0o755)
}
