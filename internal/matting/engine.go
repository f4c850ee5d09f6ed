// Package matting runs the segmentation model over a photo and produces
// the alpha mask and cutout.
package matting

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/ekisa-team/bgblast/internal/composite"
	"github.com/ekisa-team/bgblast/internal/model"
)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxPixels bounds both the decoded image and the model input size.
// Non-positive values disable the bound.
func WithMaxPixels(n int) EngineOption {
	return func(e *Engine) { e.maxPixels = n }
}

// Engine runs decode, preprocess, inference and mask decode for one image.
type Engine struct {
	timeout   time.Duration
	maxPixels int
}

// NewEngine creates an engine. timeout bounds a single inference; zero
// disables the bound.
func NewEngine(timeout time.Duration, opts ...EngineOption) *Engine {
	e := &Engine{timeout: timeout, maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decode decodes data with the engine's pixel limit.
func (e *Engine) Decode(data []byte) (*image.NRGBA, string, error) {
	return Decode(data, e.maxPixels)
}

// Process decodes data and runs the full pipeline with st.
func (e *Engine) Process(ctx context.Context, st *model.State, name string, data []byte) (*composite.Result, error) {
	img, _, err := e.Decode(data)
	if err != nil {
		return nil, e.fail(name, err)
	}

	return e.ProcessImage(ctx, st, name, img)
}

// ProcessImage runs the pipeline on an already decoded image.
func (e *Engine) ProcessImage(ctx context.Context, st *model.State, name string, img *image.NRGBA) (*composite.Result, error) {
	if st == nil {
		return nil, model.ErrNotInitialized
	}

	start := time.Now()
	mask, err := e.Matte(ctx, st, img)
	if err != nil {
		return nil, e.fail(name, err)
	}

	res, err := composite.Composite(img, mask, name)
	if err != nil {
		return nil, e.fail(name, err)
	}

	slog.Debug("Image processed",
		"name", name,
		"model_id", st.ModelID,
		"width", mask.Width,
		"height", mask.Height,
		"duration", time.Since(start),
	)

	return res, nil
}

// Matte computes the alpha mask of img at its own resolution.
func (e *Engine) Matte(ctx context.Context, st *model.State, img *image.NRGBA) (*composite.AlphaMask, error) {
	b := img.Bounds()
	if err := checkPixels(b.Dx(), b.Dy(), e.maxPixels); err != nil {
		return nil, err
	}
	if tw, th := st.Processor.TargetSize(b.Dx(), b.Dy()); checkPixels(tw, th, e.maxPixels) != nil {
		return nil, fmt.Errorf("preprocess: %w: model input %dx%d", ErrTooLarge, tw, th)
	}

	input, err := st.Processor.Process(img)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	out, err := st.Session.Run(ctx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: inference: %w", model.ErrTimeout, err)
		}
		return nil, fmt.Errorf("inference: %w", err)
	}

	return DecodeMask(out, b.Dx(), b.Dy())
}

func (e *Engine) fail(name string, err error) error {
	slog.Error("Failed to process image", "name", name, "error", err)
	return fmt.Errorf("%w: %w", ErrProcessing, err)
}
