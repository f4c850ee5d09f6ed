package matting

import "errors"

// Error definitions for the matting package.
var (
	ErrProcessing   = errors.New("failed to process image")
	ErrOutputShape  = errors.New("unexpected model output shape")
	ErrDecodeFailed = errors.New("failed to decode image")
	ErrTooLarge     = errors.New("image exceeds the pixel limit")
)
