package composite

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackdrop(t *testing.T) {
	sky := color.NRGBA{R: 0x87, G: 0xCE, B: 0xEB, A: 255}

	cutout := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	// Left half opaque red, right half transparent.
	for y := range 10 {
		for x := range 10 {
			cutout.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	out := Backdrop(cutout, sky, 60, 60)
	assert.Equal(t, image.Rect(0, 0, 60, 60), out.Bounds())
	assertColorNear(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(5, 30))
	assertColorNear(t, sky, out.NRGBAAt(55, 30))
}

func assertColorNear(t *testing.T, want, got color.NRGBA) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 1)
	assert.InDelta(t, want.G, got.G, 1)
	assert.InDelta(t, want.B, got.B, 1)
	assert.InDelta(t, want.A, got.A, 1)
}

func TestBackdropFile(t *testing.T) {
	res, err := Composite(gradientImage(4, 4), gradientMask(4, 4), "face.jpg")
	require.NoError(t, err)

	f, err := BackdropFile(res, "face.jpg", color.White, 600, 600)
	require.NoError(t, err)
	assert.Equal(t, "face-passport.png", f.Name)

	img, err := png.Decode(bytes.NewReader(f.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 600, 600), img.Bounds())

	_, err = BackdropFile(&Result{}, "face.jpg", color.White, 600, 600)
	assert.Error(t, err)
}

func TestCrop(t *testing.T) {
	img := gradientImage(10, 10)

	out, err := Crop(img, image.Rect(2, 3, 6, 8))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 5), out.Bounds())
	assert.Equal(t, img.NRGBAAt(2, 3), out.NRGBAAt(0, 0))

	// Rectangles reaching past the bounds are clamped.
	out, err = Crop(img, image.Rect(8, 8, 20, 20))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())

	_, err = Crop(img, image.Rect(20, 20, 30, 30))
	assert.ErrorIs(t, err, ErrEmptyCrop)
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#87CEEB", want: color.NRGBA{R: 0x87, G: 0xCE, B: 0xEB, A: 255}},
		{in: "ffffff", want: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{in: "#0f0", want: color.NRGBA{G: 255, A: 255}},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidColor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRect(t *testing.T) {
	r, err := ParseRect("10, 20, 30, 40")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(10, 20, 40, 60), r)

	for _, in := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,5", "0,0,5,-1"} {
		_, err := ParseRect(in)
		assert.Error(t, err, in)
	}
}
