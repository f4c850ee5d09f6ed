package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/config"
	"github.com/ekisa-team/bgblast/internal/preprocess"
)

// Info describes the active model and the accelerator.
type Info struct {
	CurrentModelID   string `json:"current_model_id"`
	BackendAvailable bool   `json:"is_accelerated_supported"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithProbe replaces the probe built from the inference configuration.
func WithProbe(probe backend.Probe) Option {
	return func(m *Manager) {
		m.probeFor = func(config.InferenceConfig) backend.Probe { return probe }
	}
}

// WithOnReady registers a callback run after every successful initialization.
func WithOnReady(fn func(modelID string)) Option {
	return func(m *Manager) { m.onReady = fn }
}

type probeHolder struct {
	backend.Probe
}

// Manager owns the inference state and its initialize lifecycle.
type Manager struct {
	loader   Loader
	registry *Registry
	probeFor func(config.InferenceConfig) backend.Probe
	onReady  func(string)

	cfg   atomic.Pointer[config.Config]
	probe atomic.Pointer[probeHolder]
	state atomic.Pointer[State]

	group    singleflight.Group
	initMu   sync.Mutex
	retiring sync.WaitGroup
}

// NewManager creates a Manager for cfg. No model is loaded until Initialize.
func NewManager(cfg *config.Config, loader Loader, opts ...Option) *Manager {
	m := &Manager{
		loader:   loader,
		registry: NewRegistry(cfg),
		probeFor: ProbeFromConfig,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.cfg.Store(cfg)
	m.probe.Store(&probeHolder{m.probeFor(cfg.Inference)})

	return m
}

// Config returns the active configuration snapshot.
func (m *Manager) Config() *config.Config {
	return m.cfg.Load()
}

// Registry returns the model instance registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Models lists the configured model instances.
func (m *Manager) Models() []InstanceInfo {
	return m.registry.List()
}

// Ready reports whether a model is loaded.
func (m *Manager) Ready() bool {
	return m.state.Load() != nil
}

// Info returns the active model id and a fresh accelerator probe result.
// It never loads a model.
func (m *Manager) Info(ctx context.Context) Info {
	id := m.Config().Models.Fallback.ID
	if st := m.state.Load(); st != nil {
		id = st.ModelID
	}

	return Info{
		CurrentModelID:   id,
		BackendAvailable: m.currentProbe().Available(ctx),
	}
}

// Acquire returns the active state and a release function. The session stays
// open until release is called, even if a re-initialization replaces it.
func (m *Manager) Acquire() (*State, func(), error) {
	for {
		st := m.state.Load()
		if st == nil {
			return nil, nil, ErrNotInitialized
		}
		if st.acquire() {
			return st, st.release, nil
		}
		// Retired between Load and acquire; the replacement is already published.
	}
}

// Initialize loads the preferred model, falling back to the CPU model when the
// accelerated one is not requested, not available, or fails to load. An empty
// id uses the configured preferred model.
//
// Concurrent calls share one run per id and config snapshot, and runs are
// serialized. A run always loads from the latest snapshot. The caller's
// context only bounds the wait; the load itself is bounded by load_timeout.
func (m *Manager) Initialize(ctx context.Context, preferredID string) (bool, error) {
	cfg := m.Config()
	if preferredID == "" {
		preferredID = cfg.Inference.PreferredModel
	}

	// Keyed by snapshot so a reload never joins a run that read an older config.
	key := fmt.Sprintf("%p|%s", cfg, preferredID)

	ch := m.group.DoChan(key, func() (any, error) {
		m.initMu.Lock()
		defer m.initMu.Unlock()

		cfg := m.Config()
		loadCtx, cancel := loadContext(ctx, cfg.Inference.LoadTimeout)
		defer cancel()

		return nil, m.initialize(loadCtx, cfg, preferredID)
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return true, nil
	}
}

// loadContext detaches the load from the caller's cancellation.
func loadContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if timeout > 0 {
		return context.WithTimeout(base, timeout)
	}
	return context.WithCancel(base)
}

func (m *Manager) initialize(ctx context.Context, cfg *config.Config, preferredID string) error {
	accelerated, fallback := &cfg.Models.Accelerated, &cfg.Models.Fallback

	available := false
	switch preferredID {
	case accelerated.ID:
		available = m.currentProbe().Available(ctx)
		if !available {
			slog.Info("Accelerator not available, using fallback model", "preferred", preferredID)
		}
	case fallback.ID:
	default:
		slog.Warn("Unknown model requested, using fallback model", "preferred", preferredID, "fallback", fallback.ID)
	}

	if Select(preferredID, accelerated.ID, available) == SelectAccelerated {
		if m.isCurrent(cfg, accelerated.ID) {
			return nil
		}

		st, err := m.load(ctx, cfg, accelerated, true)
		if err == nil {
			m.publish(st)
			return nil
		}
		slog.Warn("Accelerated model failed to load, using fallback model", "model_id", accelerated.ID, "error", err)
	}

	if m.isCurrent(cfg, fallback.ID) {
		return nil
	}

	st, err := m.load(ctx, cfg, fallback, false)
	if err != nil {
		slog.Error("Fallback model failed to load", "model_id", fallback.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	m.publish(st)
	return nil
}

// isCurrent reports whether id is already loaded from the same config snapshot.
func (m *Manager) isCurrent(cfg *config.Config, id string) bool {
	st := m.state.Load()
	return st != nil && st.ModelID == id && st.source == cfg
}

func (m *Manager) load(ctx context.Context, cfg *config.Config, mc *config.ModelConfig, accelerated bool) (*State, error) {
	start := time.Now()
	m.registry.setStatus(mc.ID, StatusLoading)
	slog.Info("Loading model", "model_id", mc.ID, "device", mc.Device)

	st, err := m.build(ctx, cfg, mc, accelerated)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: loading %s: %w", ErrTimeout, mc.ID, err)
		}
		m.registry.setError(mc.ID, err)
		return nil, err
	}

	m.registry.setStatus(mc.ID, StatusLoaded)
	slog.Info("Model loaded", "model_id", mc.ID, "device", mc.Device, "duration", time.Since(start))

	return st, nil
}

func (m *Manager) build(ctx context.Context, cfg *config.Config, mc *config.ModelConfig, accelerated bool) (*State, error) {
	processor, err := preprocess.New(mc.Preprocess)
	if err != nil {
		return nil, err
	}

	session, err := m.loader.Load(ctx, cfg, mc)
	if err != nil {
		return nil, err
	}

	// The session may arrive after the deadline; do not publish it then.
	if err := ctx.Err(); err != nil {
		_ = session.Close()
		return nil, err
	}

	return &State{
		ModelID:          mc.ID,
		Device:           backend.Device(mc.Device),
		BackendAvailable: accelerated,
		Config:           *mc,
		Processor:        processor,
		Session:          session,
		LoadedAt:         time.Now(),
		source:           cfg,
	}, nil
}

// publish swaps in st and retires the previous state in the background.
func (m *Manager) publish(st *State) {
	old := m.state.Swap(st)
	if old != nil {
		if old.ModelID != st.ModelID {
			m.registry.setStatus(old.ModelID, StatusUnloading)
		}
		m.retiring.Add(1)
		go func() {
			defer m.retiring.Done()
			m.retire(old, old.ModelID != st.ModelID)
		}()
	}

	if m.onReady != nil {
		m.onReady(st.ModelID)
	}
}

func (m *Manager) retire(st *State, markUnloaded bool) {
	if err := st.retire(); err != nil {
		slog.Warn("Failed to close model session", "model_id", st.ModelID, "error", err)
	}
	if markUnloaded {
		m.registry.setStatus(st.ModelID, StatusUnloaded)
	}
	slog.Debug("Model session released", "model_id", st.ModelID)
}

func (m *Manager) currentProbe() backend.Probe {
	return m.probe.Load().Probe
}

// Reconfigure applies a new configuration and re-runs initialization with
// the configured preferred model.
func (m *Manager) Reconfigure(ctx context.Context, cfg *config.Config) error {
	m.cfg.Store(cfg)
	m.probe.Store(&probeHolder{m.probeFor(cfg.Inference)})
	m.registry.Sync(cfg)

	if _, err := m.Initialize(ctx, cfg.Inference.PreferredModel); err != nil {
		return err
	}

	return nil
}

// Close releases the active model and waits for retired sessions.
func (m *Manager) Close() error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	var err error
	if st := m.state.Swap(nil); st != nil {
		err = st.retire()
		m.registry.setStatus(st.ModelID, StatusUnloaded)
	}
	m.retiring.Wait()

	return err
}
