package model

import (
	"sync"
	"time"

	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/config"
	"github.com/ekisa-team/bgblast/internal/preprocess"
)

// State is one fully loaded model: a session paired with the processor built
// from the same model configuration. A State is immutable once published.
type State struct {
	ModelID          string
	Device           backend.Device
	BackendAvailable bool
	Config           config.ModelConfig
	Processor        *preprocess.Processor
	Session          backend.Session
	LoadedAt         time.Time

	// source is the configuration snapshot the state was built from.
	source *config.Config

	// Readers hold mu.RLock while using Session; retire takes the write lock.
	mu     sync.RWMutex
	closed bool
}

func (s *State) acquire() bool {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return false
	}
	return true
}

func (s *State) release() {
	s.mu.RUnlock()
}

// retire waits for in-flight readers and closes the session.
func (s *State) retire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.Session.Close()
}
