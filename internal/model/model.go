package model

import (
	"sync"
	"time"

	"github.com/ekisa-team/bgblast/internal/config"
)

// Role is the slot a configured model fills.
type Role string

const (
	// RoleAccelerated is the model tried when an accelerator is available.
	RoleAccelerated Role = "accelerated"

	// RoleFallback is the model loaded on the CPU path.
	RoleFallback Role = "fallback"
)

// Status is the current loading status of a model.
type Status string

const (
	// StatusUnloaded indicates that the model is not loaded.
	StatusUnloaded Status = "unloaded"

	// StatusLoading indicates that the model is being loaded.
	StatusLoading Status = "loading"

	// StatusLoaded indicates that the model is loaded.
	StatusLoaded Status = "loaded"

	// StatusFailed indicates that the model failed to load.
	StatusFailed Status = "failed"

	// StatusUnloading indicates that the model is being unloaded.
	StatusUnloading Status = "unloading"
)

// Instance tracks the lifecycle of one configured model.
type Instance struct {
	config   config.ModelConfig
	loadedAt *time.Time
	id       string
	role     Role
	status   Status
	err      string
	mu       sync.RWMutex
}

// InstanceInfo is a point-in-time view of an Instance.
type InstanceInfo struct {
	ID       string     `json:"id"`
	Role     Role       `json:"role"`
	Backend  string     `json:"backend"`
	Device   string     `json:"device"`
	Status   Status     `json:"status"`
	Error    string     `json:"error,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// NewInstance creates a new, unloaded model instance.
func NewInstance(cfg config.ModelConfig, role Role) *Instance {
	return &Instance{
		config: cfg,
		id:     cfg.ID,
		role:   role,
		status: StatusUnloaded,
	}
}

// ID returns the model id.
func (mi *Instance) ID() string {
	return mi.id
}

// SetStatus sets the status of the model instance.
func (mi *Instance) SetStatus(status Status) {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	mi.status = status
	switch status {
	case StatusLoaded:
		now := time.Now()
		mi.loadedAt = &now
		mi.err = ""
	case StatusUnloaded:
		mi.loadedAt = nil
	}
}

// SetError marks the instance failed with err.
func (mi *Instance) SetError(err error) {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	mi.status = StatusFailed
	mi.err = err.Error()
}

// Info returns a snapshot of the instance.
func (mi *Instance) Info() InstanceInfo {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	return InstanceInfo{
		ID:       mi.id,
		Role:     mi.role,
		Backend:  mi.config.Backend,
		Device:   mi.config.Device,
		Status:   mi.status,
		Error:    mi.err,
		LoadedAt: mi.loadedAt,
	}
}
