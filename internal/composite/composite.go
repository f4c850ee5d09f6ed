// Package composite builds the output images from a photo and its alpha mask.
package composite

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// ContentTypePNG is the content type of every produced file.
const ContentTypePNG = "image/png"

// File is an encoded output image.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Result holds the files produced for one photo.
type Result struct {
	MaskFile      File  `json:"mask_file"`
	ProcessedFile File  `json:"processed_file"`
	CompositeFile *File `json:"composite_file,omitempty"`

	// Cutout is the decoded processed image, kept for backdrop compositing.
	Cutout *image.NRGBA `json:"-"`
}

// Stem returns the part of name before its first dot, or "image" when empty.
func Stem(name string) string {
	stem, _, _ := strings.Cut(name, ".")
	if stem == "" {
		return "image"
	}
	return stem
}

// Composite produces the mask image and the background-removed cutout.
func Composite(img *image.NRGBA, mask *AlphaMask, name string) (*Result, error) {
	cutout, err := Cutout(img, mask)
	if err != nil {
		return nil, err
	}

	maskPNG, err := EncodePNG(MaskImage(mask))
	if err != nil {
		return nil, err
	}
	cutoutPNG, err := EncodePNG(cutout)
	if err != nil {
		return nil, err
	}

	stem := Stem(name)
	return &Result{
		MaskFile: File{
			Name:        stem + "-mask.png",
			ContentType: ContentTypePNG,
			Data:        maskPNG,
		},
		ProcessedFile: File{
			Name:        stem + "-bg-blasted.png",
			ContentType: ContentTypePNG,
			Data:        cutoutPNG,
		},
		Cutout: cutout,
	}, nil
}

// MaskImage renders the mask as an opaque grayscale RGBA image.
func MaskImage(mask *AlphaMask) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	for i, v := range mask.Pix {
		p := out.Pix[i*4 : i*4+4 : i*4+4]
		p[0], p[1], p[2], p[3] = v, v, v, 255
	}
	return out
}

// Cutout copies img and replaces its alpha channel with the mask.
// Color channels are left untouched.
func Cutout(img *image.NRGBA, mask *AlphaMask) (*image.NRGBA, error) {
	if err := mask.matches(img); err != nil {
		return nil, err
	}

	w, h := mask.Width, mask.Height
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+w*4]
		copy(dst, src)
		for x := range w {
			dst[x*4+3] = mask.Pix[y*w+x]
		}
	}

	return out, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
