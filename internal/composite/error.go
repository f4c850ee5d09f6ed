package composite

import "errors"

// Error definitions for the composite package.
var (
	ErrMaskMismatch = errors.New("mask dimensions do not match image")
	ErrEmptyCrop    = errors.New("crop rectangle does not intersect the image")
	ErrInvalidColor = errors.New("invalid hex color")
)
