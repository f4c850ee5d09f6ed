package composite

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Backdrop stretches cutout to w×h and draws it over a solid background.
func Backdrop(cutout image.Image, bg color.Color, w, h int) *image.NRGBA {
	canvas := imaging.New(w, h, bg)
	scaled := imaging.Resize(cutout, w, h, imaging.Linear)

	return imaging.Overlay(canvas, scaled, image.Pt(0, 0), 1.0)
}

// BackdropFile renders the passport image for a processed result.
func BackdropFile(res *Result, name string, bg color.Color, w, h int) (*File, error) {
	if res == nil || res.Cutout == nil {
		return nil, fmt.Errorf("no cutout to composite")
	}

	data, err := EncodePNG(Backdrop(res.Cutout, bg, w, h))
	if err != nil {
		return nil, err
	}

	return &File{
		Name:        Stem(name) + "-passport.png",
		ContentType: ContentTypePNG,
		Data:        data,
	}, nil
}

// Crop clamps rect to the image bounds and returns the cropped region.
func Crop(img image.Image, rect image.Rectangle) (*image.NRGBA, error) {
	r := rect.Canon().Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCrop, rect)
	}

	return imaging.Crop(img, r), nil
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB" (and the short "#RGB" form).
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// ParseRect parses "x,y,w,h" into a rectangle.
func ParseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("crop must be x,y,w,h: %q", s)
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("crop must be x,y,w,h: %q", s)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("crop width and height must be positive: %q", s)
	}

	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}
