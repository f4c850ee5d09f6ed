package matting

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels bounds decoded images when no limit is configured.
const DefaultMaxPixels = 64_000_000

// Decode decodes PNG, JPEG, GIF (first frame) or WebP bytes into a
// zero-origin NRGBA image with straight alpha. Images with more than
// maxPixels pixels are rejected from their header, before any pixel is
// allocated; maxPixels <= 0 disables the check.
func Decode(data []byte, maxPixels int) (*image.NRGBA, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecodeFailed)
	}

	hdr, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if err := checkPixels(hdr.Width, hdr.Height, maxPixels); err != nil {
		return nil, format, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if img.Bounds().Empty() {
		return nil, format, fmt.Errorf("%w: empty image", ErrDecodeFailed)
	}

	return ToNRGBA(img), format, nil
}

func checkPixels(w, h, maxPixels int) error {
	if maxPixels > 0 && int64(w)*int64(h) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d over %d", ErrTooLarge, w, h, maxPixels)
	}
	return nil
}

// ToNRGBA returns img as a zero-origin *image.NRGBA, copying when needed.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}

	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
