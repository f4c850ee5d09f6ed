package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/ekisa-team/bgblast/internal/envvar"
)

const (
	// AcceleratedModelID is the model used when an accelerator is available.
	AcceleratedModelID = "Xenova/modnet"

	// FallbackModelID is the model used on the default CPU path.
	FallbackModelID = "briaai/RMBG-1.4"

	// BackendONNXRuntime is the identifier of the onnxruntime backend.
	BackendONNXRuntime = "onnxruntime"

	defaultHTTPPort = 8080
	defaultGRPCPort = 9090
)

// DefaultConfigPath returns the default path for the bgblast config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "bgblast", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "bgblast")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "bgblast")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "bgblast")
		}
		return filepath.Join(home, ".config", "bgblast")
	}
}

// DefaultModelsPath returns the default path for the bgblast models directory.
func DefaultModelsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "bgblast", "models")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "bgblast", "models")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "bgblast", "models")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "bgblast", "models")
		}
		return filepath.Join(home, ".cache", "bgblast", "models")
	}
}

// DefaultHTTPPort returns the HTTP port from BGBLAST_SERVER_HTTP_PORT or 8080.
func DefaultHTTPPort() int {
	return portFromEnv(envvar.BgblastServerHTTPPort, defaultHTTPPort)
}

// DefaultGRPCPort returns the gRPC port from BGBLAST_SERVER_GRPC_PORT or 9090.
func DefaultGRPCPort() int {
	return portFromEnv(envvar.BgblastServerGRPCPort, defaultGRPCPort)
}

func portFromEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			return p
		}
	}
	return fallback
}

// DefaultFallbackPreprocess returns the fixed processor of the fallback model.
func DefaultFallbackPreprocess() PreprocessConfig {
	return PreprocessConfig{
		DoNormalize:   true,
		DoRescale:     true,
		RescaleFactor: 1.0 / 255.0,
		DoResize:      true,
		Size:          &Size{Width: 1024, Height: 1024},
		Resample:      ResampleBilinear,
		ImageMean:     []float64{0.5, 0.5, 0.5},
		ImageStd:      []float64{1, 1, 1},
		DoPad:         false,
	}
}

// DefaultAcceleratedPreprocess returns the processor published with MODNet.
func DefaultAcceleratedPreprocess() PreprocessConfig {
	return PreprocessConfig{
		DoNormalize:      true,
		DoRescale:        true,
		RescaleFactor:    1.0 / 255.0,
		DoResize:         true,
		ShortestEdge:     512,
		SizeDivisibility: 32,
		Resample:         ResampleBilinear,
		ImageMean:        []float64{0.5, 0.5, 0.5},
		ImageStd:         []float64{0.5, 0.5, 0.5},
	}
}

// Default returns the built-in configuration. Loaded files are applied on top of it.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort(),
			GRPCPort:       DefaultGRPCPort(),
			MaxUploadBytes: 20 << 20,
		},
		Inference: InferenceConfig{
			PreferredModel: FallbackModelID,
			Accelerator:    AcceleratorAuto,
			ProbeCommand:   []string{"nvidia-smi", "-L"},
			ProbeTimeout:   3 * time.Second,
			LoadTimeout:    5 * time.Minute,
			Timeout:        60 * time.Second,
			MaxPixels:      64_000_000,
		},
		Models: ModelsConfig{
			Accelerated: ModelConfig{
				ID:      AcceleratedModelID,
				Backend: BackendONNXRuntime,
				Device:  "cuda",
				Source: SourceConfig{HuggingFace: &HuggingFaceSource{
					Repo:    AcceleratedModelID,
					Include: []string{"onnx/model.onnx", "config.json", "preprocessor_config.json"},
				}},
				File:       "onnx/model.onnx",
				InputName:  "input",
				OutputName: "output",
				Preprocess: DefaultAcceleratedPreprocess(),
			},
			Fallback: ModelConfig{
				ID:      FallbackModelID,
				Backend: BackendONNXRuntime,
				Device:  "cpu",
				Source: SourceConfig{HuggingFace: &HuggingFaceSource{
					Repo:    FallbackModelID,
					Include: []string{"onnx/model.onnx", "config.json", "preprocessor_config.json"},
				}},
				File:       "onnx/model.onnx",
				InputName:  "input",
				OutputName: "output",
				Preprocess: DefaultFallbackPreprocess(),
			},
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
		Backdrop: BackdropConfig{
			Width:  600,
			Height: 600,
			Color:  "#87CEEB",
		},
	}
}
