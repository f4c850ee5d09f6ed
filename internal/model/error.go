package model

import "errors"

// Error definitions for the model package.
var (
	ErrInitialization = errors.New("failed to initialize background removal model")
	ErrNotInitialized = errors.New("model not initialized, call initialize first")
	ErrTimeout        = errors.New("model operation timed out")
)
