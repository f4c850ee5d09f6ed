package backend

import "errors"

// Error definitions for the backend package.
var (
	ErrBackendNotFound          = errors.New("backend not found in registry")
	ErrBackendAlreadyRegistered = errors.New("backend is already registered in the registry")
	ErrBackendUnavailable       = errors.New("accelerated backend unavailable")
	ErrInvalidTensor            = errors.New("invalid tensor")
	ErrSessionClosed            = errors.New("session is closed")
)
