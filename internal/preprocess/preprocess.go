// Package preprocess turns decoded images into the NCHW float32 tensors the
// matting models expect.
package preprocess

import (
	"fmt"
	"image"
	stddraw "image/draw"

	"golang.org/x/image/draw"

	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/config"
)

// Processor applies a fixed resize/rescale/normalize transform.
type Processor struct {
	cfg    config.PreprocessConfig
	scaler draw.Scaler
}

// New creates a processor from a validated processor configuration.
func New(cfg config.PreprocessConfig) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocess config: %w", err)
	}

	p := &Processor{cfg: cfg}
	switch cfg.Resample {
	case config.ResampleNearest:
		p.scaler = draw.NearestNeighbor
	case config.ResampleBicubic:
		p.scaler = draw.CatmullRom
	default:
		p.scaler = draw.BiLinear
	}

	return p, nil
}

// Config returns the processor configuration.
func (p *Processor) Config() config.PreprocessConfig {
	return p.cfg
}

// TargetSize returns the model input size for an image of w×h pixels.
func (p *Processor) TargetSize(w, h int) (int, int) {
	if !p.cfg.DoResize {
		return w, h
	}

	if p.cfg.Size != nil {
		return p.cfg.Size.Width, p.cfg.Size.Height
	}

	// Scale so the short side matches shortest_edge, then round down to the divisor.
	edge := p.cfg.ShortestEdge
	tw, th := edge, edge
	if w < h {
		th = h * edge / w
	} else {
		tw = w * edge / h
	}

	if d := p.cfg.SizeDivisibility; d > 1 {
		tw = max(tw/d, 1) * d
		th = max(th/d, 1) * d
	}

	return tw, th
}

// Process converts img into a [1,3,H,W] tensor.
func (p *Processor) Process(img image.Image) (*backend.Tensor, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	tw, th := p.TargetSize(b.Dx(), b.Dy())
	src := toNRGBA(img)
	if tw != b.Dx() || th != b.Dy() {
		dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
		p.scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		src = dst
	}

	var scale [3]float32
	var offset [3]float32
	for c := range 3 {
		// v' = ((v * rescale) - mean) / std, folded into v*scale + offset.
		s, o := float32(1), float32(0)
		if p.cfg.DoRescale {
			s = float32(p.cfg.RescaleFactor)
		}
		if p.cfg.DoNormalize {
			std := float32(p.cfg.ImageStd[c])
			s /= std
			o = -float32(p.cfg.ImageMean[c]) / std
		}
		scale[c], offset[c] = s, o
	}

	t := backend.NewTensor(1, 3, int64(th), int64(tw))
	plane := tw * th
	for y := range th {
		row := src.Pix[y*src.Stride:]
		for x := range tw {
			px := row[x*4 : x*4+3]
			i := y*tw + x
			for c := range 3 {
				t.Data[c*plane+i] = float32(px[c])*scale[c] + offset[c]
			}
		}
	}

	return t, nil
}

// toNRGBA returns img as a zero-origin *image.NRGBA.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}

	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(dst, dst.Bounds(), img, b.Min, stddraw.Src)
	return dst
}
