package composite

import (
	"fmt"
	"image"
)

// AlphaMask is a per-pixel opacity map, one byte per pixel in row-major order.
type AlphaMask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewAlphaMask wraps pix as a width×height mask.
func NewAlphaMask(width, height int, pix []uint8) (*AlphaMask, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height {
		return nil, fmt.Errorf("%w: %dx%d mask with %d values", ErrMaskMismatch, width, height, len(pix))
	}

	return &AlphaMask{Width: width, Height: height, Pix: pix}, nil
}

// MaskFromGray copies a grayscale image into a mask.
func MaskFromGray(g *image.Gray) *AlphaMask {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h)
	for y := range h {
		start := (y+b.Min.Y-g.Rect.Min.Y)*g.Stride + (b.Min.X - g.Rect.Min.X)
		copy(pix[y*w:(y+1)*w], g.Pix[start:start+w])
	}

	return &AlphaMask{Width: w, Height: h, Pix: pix}
}

// Gray returns the mask as a grayscale image.
func (m *AlphaMask) Gray() *image.Gray {
	return &image.Gray{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

func (m *AlphaMask) matches(img image.Image) error {
	b := img.Bounds()
	if m == nil || m.Width != b.Dx() || m.Height != b.Dy() || len(m.Pix) != m.Width*m.Height {
		if m == nil {
			return fmt.Errorf("%w: nil mask", ErrMaskMismatch)
		}
		return fmt.Errorf("%w: mask %dx%d (%d values), image %dx%d", ErrMaskMismatch, m.Width, m.Height, len(m.Pix), b.Dx(), b.Dy())
	}
	return nil
}
