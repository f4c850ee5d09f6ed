package matting

import (
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"

	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/composite"
)

// DecodeMask converts a model alpha output into a mask of width×height.
// Values are scaled by 255, clamped and truncated to bytes, then resized
// bilinearly from the model resolution.
func DecodeMask(out *backend.Tensor, width, height int) (*composite.AlphaMask, error) {
	if err := out.Validate(); err != nil {
		return nil, err
	}

	var h, w int
	switch s := out.Shape; {
	case len(s) == 4 && s[0] == 1 && s[1] == 1:
		h, w = int(s[2]), int(s[3])
	case len(s) == 3 && s[0] == 1:
		h, w = int(s[1]), int(s[2])
	default:
		return nil, fmt.Errorf("%w: %v", ErrOutputShape, out.Shape)
	}
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrOutputShape, out.Shape)
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range out.Data {
		gray.Pix[i] = toByte(v)
	}

	if w == width && h == height {
		return composite.MaskFromGray(gray), nil
	}

	resized := resize.Resize(uint(width), uint(height), gray, resize.Bilinear)
	g, ok := resized.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected resized mask type %T", resized)
	}

	return composite.MaskFromGray(g), nil
}

func toByte(v float32) uint8 {
	x := v * 255
	switch {
	case math.IsNaN(float64(x)), x <= 0:
		return 0
	case x >= 255:
		return 255
	default:
		return uint8(x)
	}
}
