package model

import (
	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/config"
)

// ProbeFromConfig builds the accelerator probe for an inference configuration.
func ProbeFromConfig(cfg config.InferenceConfig) backend.Probe {
	switch cfg.Accelerator {
	case config.AcceleratorOn:
		return backend.StaticProbe(true)
	case config.AcceleratorOff:
		return backend.StaticProbe(false)
	default:
		return backend.NewCommandProbe(cfg.ProbeCommand, cfg.ProbeTimeout)
	}
}
