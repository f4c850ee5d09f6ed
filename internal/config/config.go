package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// SourceType represents the type of model source.
type SourceType string

const (
	// SourceTypeHuggingFace represents a Hugging Face model repository source.
	SourceTypeHuggingFace SourceType = "huggingface"
)

// AcceleratorMode controls how the accelerated backend is detected.
type AcceleratorMode string

const (
	AcceleratorAuto AcceleratorMode = "auto"
	AcceleratorOn   AcceleratorMode = "on"
	AcceleratorOff  AcceleratorMode = "off"
)

// Resample filters, numbered like PIL.
const (
	ResampleNearest  = 0
	ResampleBilinear = 2
	ResampleBicubic  = 3
)

// Config holds the main configuration for the application.
type Config struct {
	Version   string          `json:"version"             yaml:"version"`
	Server    ServerConfig    `json:"server"              yaml:"server"`
	Storage   StorageConfig   `json:"storage,omitempty"   yaml:"storage,omitempty"`
	Inference InferenceConfig `json:"inference"           yaml:"inference"`
	Models    ModelsConfig    `json:"models"              yaml:"models"`
	Cache     CacheConfig     `json:"cache,omitempty"     yaml:"cache,omitempty"`
	Backdrop  BackdropConfig  `json:"backdrop,omitempty"  yaml:"backdrop,omitempty"`
}

// ServerConfig holds the listener configuration.
type ServerConfig struct {
	HTTPPort       int   `json:"http_port"        yaml:"http_port"`
	GRPCPort       int   `json:"grpc_port"        yaml:"grpc_port"`
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// StorageConfig holds configuration for caching and auto-download.
type StorageConfig struct {
	ModelsDir string `json:"models_dir,omitempty" yaml:"models_dir,omitempty"`
}

// InferenceConfig holds runtime settings shared by every model.
type InferenceConfig struct {
	OnnxRuntimeLib string          `json:"onnxruntime_lib,omitempty" yaml:"onnxruntime_lib,omitempty"`
	PreferredModel string          `json:"preferred_model,omitempty" yaml:"preferred_model,omitempty"`
	Accelerator    AcceleratorMode `json:"accelerator"               yaml:"accelerator"`
	ProbeCommand   []string        `json:"probe_command,omitempty"   yaml:"probe_command,omitempty"`
	ProbeTimeout   time.Duration   `json:"probe_timeout"             yaml:"probe_timeout"`
	LoadTimeout    time.Duration   `json:"load_timeout"              yaml:"load_timeout"`
	Timeout        time.Duration   `json:"timeout"                   yaml:"timeout"`
	IntraOpThreads int             `json:"intra_op_threads"          yaml:"intra_op_threads"`
	MaxPixels      int             `json:"max_pixels"                yaml:"max_pixels"`
}

// ModelsConfig holds the two selectable model configurations.
type ModelsConfig struct {
	Accelerated ModelConfig `json:"accelerated" yaml:"accelerated"`
	Fallback    ModelConfig `json:"fallback"    yaml:"fallback"`
}

// ModelConfig holds configuration for a specific model.
type ModelConfig struct {
	ID         string           `json:"id"          yaml:"id"`
	Backend    string           `json:"backend"     yaml:"backend"`
	Device     string           `json:"device"      yaml:"device"`
	Source     SourceConfig     `json:"source"      yaml:"source"`
	File       string           `json:"file"        yaml:"file"`
	InputName  string           `json:"input_name"  yaml:"input_name"`
	OutputName string           `json:"output_name" yaml:"output_name"`
	Preprocess PreprocessConfig `json:"preprocess"  yaml:"preprocess"`
}

// PreprocessConfig mirrors an image processor configuration.
type PreprocessConfig struct {
	DoNormalize      bool      `json:"do_normalize"                yaml:"do_normalize"`
	DoRescale        bool      `json:"do_rescale"                  yaml:"do_rescale"`
	RescaleFactor    float64   `json:"rescale_factor"              yaml:"rescale_factor"`
	DoResize         bool      `json:"do_resize"                   yaml:"do_resize"`
	Size             *Size     `json:"size,omitempty"              yaml:"size,omitempty"`
	ShortestEdge     int       `json:"shortest_edge,omitempty"     yaml:"shortest_edge,omitempty"`
	SizeDivisibility int       `json:"size_divisibility,omitempty" yaml:"size_divisibility,omitempty"`
	Resample         int       `json:"resample"                    yaml:"resample"`
	ImageMean        []float64 `json:"image_mean"                  yaml:"image_mean"`
	ImageStd         []float64 `json:"image_std"                   yaml:"image_std"`
	DoPad            bool      `json:"do_pad"                      yaml:"do_pad"`
}

// Size is a fixed resize target.
type Size struct {
	Width  int `json:"width"  yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// SourceConfig wraps optional sources (only one should be set).
type SourceConfig struct {
	HuggingFace *HuggingFaceSource `json:"huggingface,omitempty" yaml:"huggingface,omitempty"`
}

// CacheConfig holds the optional result cache configuration.
// The cache is disabled when RedisAddr is empty.
type CacheConfig struct {
	RedisAddr string        `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	Password  string        `json:"password,omitempty"   yaml:"password,omitempty"`
	DB        int           `json:"db,omitempty"         yaml:"db,omitempty"`
	TTL       time.Duration `json:"ttl,omitempty"        yaml:"ttl,omitempty"`
}

// BackdropConfig holds the passport backdrop defaults.
type BackdropConfig struct {
	Width  int    `json:"width"  yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Color  string `json:"color"  yaml:"color"`
}

// -------------------------
// Source definitions
// -------------------------

// ModelSource represents a source for a model.
type ModelSource interface {
	Type() SourceType
}

// HuggingFaceSource represents a Hugging Face model repository source.
type HuggingFaceSource struct {
	Repo          string   `json:"repo"                     yaml:"repo"`
	Revision      string   `json:"revision,omitempty"       yaml:"revision,omitempty"`
	RepoType      string   `json:"repo_type,omitempty"      yaml:"repo_type,omitempty"`
	Token         string   `json:"token,omitempty"          yaml:"token,omitempty"`
	Include       []string `json:"include,omitempty"        yaml:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty"        yaml:"exclude,omitempty"`
	MaxWorkers    int      `json:"max_workers,omitempty"    yaml:"max_workers,omitempty"`
	ForceDownload bool     `json:"force_download,omitempty" yaml:"force_download,omitempty"`
}

// Type returns the Hugging Face source type.
func (h HuggingFaceSource) Type() SourceType {
	return SourceTypeHuggingFace
}

// GetSource returns the active source for the model.
func (m *ModelConfig) GetSource() (ModelSource, error) {
	if m.Source.HuggingFace != nil {
		return *m.Source.HuggingFace, nil
	}

	return nil, errors.New("no source configured for model")
}

// SetHuggingFaceSource sets the Hugging Face source.
func (m *ModelConfig) SetHuggingFaceSource(source HuggingFaceSource) {
	m.Source.HuggingFace = &source
}

// Validate checks the invariants the schema cannot express.
func (c *Config) Validate() error {
	if c.Models.Accelerated.ID == "" || c.Models.Fallback.ID == "" {
		return errors.New("config: both accelerated and fallback models need an id")
	}
	if c.Models.Accelerated.ID == c.Models.Fallback.ID {
		return fmt.Errorf("config: accelerated and fallback models share id %q", c.Models.Fallback.ID)
	}

	for name, m := range map[string]ModelConfig{"accelerated": c.Models.Accelerated, "fallback": c.Models.Fallback} {
		if err := m.Preprocess.Validate(); err != nil {
			return fmt.Errorf("config: models.%s.preprocess: %w", name, err)
		}
	}

	// The fallback model only works with the processor it was exported with.
	if err := c.Models.Fallback.Preprocess.matches(DefaultFallbackPreprocess()); err != nil {
		return fmt.Errorf("config: models.fallback.preprocess: %w", err)
	}

	return nil
}

// Validate checks a processor configuration for usable values.
func (p PreprocessConfig) Validate() error {
	if len(p.ImageMean) != 3 || len(p.ImageStd) != 3 {
		return errors.New("image_mean and image_std need exactly 3 channels")
	}
	for _, s := range p.ImageStd {
		if s == 0 {
			return errors.New("image_std must not contain zero")
		}
	}
	if p.DoRescale && p.RescaleFactor <= 0 {
		return errors.New("rescale_factor must be positive")
	}
	if p.DoResize && p.Size == nil && p.ShortestEdge <= 0 {
		return errors.New("do_resize needs size or shortest_edge")
	}
	if p.Size != nil && (p.Size.Width <= 0 || p.Size.Height <= 0) {
		return errors.New("size must be positive")
	}
	if p.DoPad {
		return errors.New("do_pad is not supported")
	}
	switch p.Resample {
	case ResampleNearest, ResampleBilinear, ResampleBicubic:
	default:
		return fmt.Errorf("unsupported resample filter %d", p.Resample)
	}

	return nil
}

func (p PreprocessConfig) matches(want PreprocessConfig) error {
	switch {
	case p.DoNormalize != want.DoNormalize, p.DoRescale != want.DoRescale, p.DoResize != want.DoResize:
		return errors.New("normalize/rescale/resize flags differ from the fixed fallback processor")
	case p.RescaleFactor != want.RescaleFactor:
		return fmt.Errorf("rescale_factor must be %v", want.RescaleFactor)
	case p.Size == nil || *p.Size != *want.Size:
		return fmt.Errorf("size must be %dx%d", want.Size.Width, want.Size.Height)
	case p.Resample != want.Resample:
		return fmt.Errorf("resample must be %d", want.Resample)
	case !slices.Equal(p.ImageMean, want.ImageMean) || !slices.Equal(p.ImageStd, want.ImageStd):
		return fmt.Errorf("image_mean/image_std must be %v/%v", want.ImageMean, want.ImageStd)
	}

	return nil
}
