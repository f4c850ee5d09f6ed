package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"

	"github.com/ekisa-team/bgblast/internal/cache"
	"github.com/ekisa-team/bgblast/internal/composite"
	"github.com/ekisa-team/bgblast/internal/matting"
	"github.com/ekisa-team/bgblast/internal/model"
)

// Options are the optional steps around matting.
type Options struct {
	// Crop is applied to the decoded photo before matting.
	Crop *image.Rectangle

	// Backdrop adds the passport composite to the result.
	Backdrop bool

	// BackdropColor overrides the configured backdrop color.
	BackdropColor color.Color
}

// Matting is the public background-removal surface used by the transports.
type Matting struct {
	manager *model.Manager
	engine  *matting.Engine
	cache   cache.Cache
}

// NewMatting creates a new matting service.
func NewMatting(manager *model.Manager, engine *matting.Engine, c cache.Cache) *Matting {
	if c == nil {
		c = cache.Noop{}
	}

	return &Matting{
		manager: manager,
		engine:  engine,
		cache:   c,
	}
}

// InitializeModel loads the preferred model, falling back as needed.
func (s *Matting) InitializeModel(ctx context.Context, preferredID string) (bool, error) {
	return s.manager.Initialize(ctx, preferredID)
}

// ModelInfo reports the active model and accelerator availability.
func (s *Matting) ModelInfo(ctx context.Context) model.Info {
	return s.manager.Info(ctx)
}

// Models lists the configured model instances.
func (s *Matting) Models() []model.InstanceInfo {
	return s.manager.Models()
}

// Ready reports whether a model is loaded.
func (s *Matting) Ready() bool {
	return s.manager.Ready()
}

// ProcessImage removes the background of file.
func (s *Matting) ProcessImage(ctx context.Context, file composite.File, opts Options) (*composite.Result, error) {
	st, release, err := s.manager.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var cropKey []byte
	if opts.Crop != nil {
		cropKey = fmt.Appendf(nil, "%d,%d,%d,%d", opts.Crop.Min.X, opts.Crop.Min.Y, opts.Crop.Max.X, opts.Crop.Max.Y)
	}
	key := cache.Key(st.ModelID, cache.Fingerprint(st.Config), file.Data, cropKey)

	res, hit := s.fromCache(ctx, key, file.Name)
	if !hit {
		res, err = s.process(ctx, st, file, opts)
		if err != nil {
			return nil, err
		}

		s.cache.Set(ctx, key, &cache.Entry{MaskFile: res.MaskFile, ProcessedFile: res.ProcessedFile})
	}

	if opts.Backdrop {
		if err := s.backdrop(res, file.Name, opts.BackdropColor); err != nil {
			return nil, fmt.Errorf("%w: %w", matting.ErrProcessing, err)
		}
	}

	return res, nil
}

func (s *Matting) process(ctx context.Context, st *model.State, file composite.File, opts Options) (*composite.Result, error) {
	if opts.Crop == nil {
		return s.engine.Process(ctx, st, file.Name, file.Data)
	}

	img, _, err := s.engine.Decode(file.Data)
	if err != nil {
		slog.Error("Failed to process image", "name", file.Name, "error", err)
		return nil, fmt.Errorf("%w: %w", matting.ErrProcessing, err)
	}

	cropped, err := composite.Crop(img, *opts.Crop)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", matting.ErrProcessing, err)
	}

	return s.engine.ProcessImage(ctx, st, file.Name, cropped)
}

func (s *Matting) fromCache(ctx context.Context, key, name string) (*composite.Result, bool) {
	entry, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}

	slog.Debug("Serving cached result", "key", key)

	// Names follow the current upload, not the one that filled the cache.
	stem := composite.Stem(name)
	res := &composite.Result{
		MaskFile:      entry.MaskFile,
		ProcessedFile: entry.ProcessedFile,
	}
	res.MaskFile.Name = stem + "-mask.png"
	res.ProcessedFile.Name = stem + "-bg-blasted.png"

	return res, true
}

func (s *Matting) backdrop(res *composite.Result, name string, bg color.Color) error {
	cfg := s.manager.Config().Backdrop

	if bg == nil {
		c, err := composite.ParseHexColor(cfg.Color)
		if err != nil {
			return err
		}
		bg = c
	}

	if res.Cutout == nil {
		img, err := png.Decode(bytes.NewReader(res.ProcessedFile.Data))
		if err != nil {
			return fmt.Errorf("failed to decode cached cutout: %w", err)
		}
		res.Cutout = matting.ToNRGBA(img)
	}

	f, err := composite.BackdropFile(res, name, bg, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	res.CompositeFile = f

	return nil
}
