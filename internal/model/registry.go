package model

import (
	"slices"
	"strings"
	"sync"

	"github.com/ekisa-team/bgblast/internal/config"
)

// Registry stores the configured model instances.
type Registry struct {
	models map[string]*Instance
	mu     sync.RWMutex
}

// NewRegistry creates a registry holding both configured models.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		models: make(map[string]*Instance),
	}
	r.Sync(cfg)

	return r
}

// Sync adds instances for newly configured models and drops the ones no
// longer configured. Existing instances keep their status.
func (r *Registry) Sync(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := map[string]Role{
		cfg.Models.Accelerated.ID: RoleAccelerated,
		cfg.Models.Fallback.ID:    RoleFallback,
	}

	for id, instance := range r.models {
		if role, ok := want[id]; !ok || role != instance.role {
			delete(r.models, id)
		}
	}

	if _, ok := r.models[cfg.Models.Accelerated.ID]; !ok {
		r.models[cfg.Models.Accelerated.ID] = NewInstance(cfg.Models.Accelerated, RoleAccelerated)
	}
	if _, ok := r.models[cfg.Models.Fallback.ID]; !ok {
		r.models[cfg.Models.Fallback.ID] = NewInstance(cfg.Models.Fallback, RoleFallback)
	}
}

// Get returns the model instance with the given ID.
func (r *Registry) Get(id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.models[id]
	return instance, ok
}

// List returns a snapshot of all model instances ordered by id.
func (r *Registry) List() []InstanceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]InstanceInfo, 0, len(r.models))
	for _, instance := range r.models {
		infos = append(infos, instance.Info())
	}
	slices.SortFunc(infos, func(a, b InstanceInfo) int {
		return strings.Compare(a.ID, b.ID)
	})

	return infos
}

// setStatus updates the status of id when it is registered.
func (r *Registry) setStatus(id string, status Status) {
	if instance, ok := r.Get(id); ok {
		instance.SetStatus(status)
	}
}

// setError marks id failed when it is registered.
func (r *Registry) setError(id string, err error) {
	if instance, ok := r.Get(id); ok {
		instance.SetError(err)
	}
}
