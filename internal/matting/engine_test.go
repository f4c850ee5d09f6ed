package matting

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/config"
	"github.com/ekisa-team/bgblast/internal/model"
	"github.com/ekisa-team/bgblast/internal/preprocess"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) Run(ctx context.Context, input *backend.Tensor) (*backend.Tensor, error) {
	args := m.Called(ctx, input)
	if t, ok := args.Get(0).(*backend.Tensor); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSession) Close() error {
	return m.Called().Error(0)
}

func newState(t *testing.T, session backend.Session) *model.State {
	t.Helper()

	p, err := preprocess.New(config.DefaultFallbackPreprocess())
	require.NoError(t, err)

	return &model.State{
		ModelID:   config.FallbackModelID,
		Device:    backend.DeviceCPU,
		Processor: p,
		Session:   session,
	}
}

func uniformOutput(v float32) *backend.Tensor {
	out := backend.NewTensor(1, 1, 1024, 1024)
	for i := range out.Data {
		out.Data[i] = v
	}
	return out
}

func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEngine_ProcessSolidImage(t *testing.T) {
	session := new(MockSession)
	session.On("Run", mock.Anything, mock.MatchedBy(func(in *backend.Tensor) bool {
		return len(in.Shape) == 4 && in.Shape[2] == 1024 && in.Shape[3] == 1024
	})).Return(uniformOutput(0.8), nil).Once()

	src := color.NRGBA{R: 120, G: 80, B: 40, A: 255}
	data := solidPNG(t, 512, 512, src)

	res, err := NewEngine(time.Second).Process(context.Background(), newState(t, session), "selfie.png", data)
	require.NoError(t, err)

	assert.Equal(t, "selfie-mask.png", res.MaskFile.Name)
	assert.Equal(t, "selfie-bg-blasted.png", res.ProcessedFile.Name)

	maskImg, err := png.Decode(bytes.NewReader(res.MaskFile.Data))
	require.NoError(t, err)
	cutoutImg, err := png.Decode(bytes.NewReader(res.ProcessedFile.Data))
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 512, 512), maskImg.Bounds())
	assert.Equal(t, image.Rect(0, 0, 512, 512), cutoutImg.Bounds())

	for _, p := range []image.Point{{0, 0}, {256, 256}, {511, 511}, {17, 400}} {
		m := color.NRGBAModel.Convert(maskImg.At(p.X, p.Y)).(color.NRGBA)
		c := color.NRGBAModel.Convert(cutoutImg.At(p.X, p.Y)).(color.NRGBA)

		assert.InDelta(t, 204, m.R, 5)
		assert.Equal(t, m.R, m.G)
		assert.Equal(t, m.R, m.B)
		assert.Equal(t, m.R, c.A)
		assert.Equal(t, src.R, c.R)
		assert.Equal(t, src.G, c.G)
		assert.Equal(t, src.B, c.B)
	}

	session.AssertExpectations(t)
}

func TestEngine_CorruptInput(t *testing.T) {
	session := new(MockSession)

	_, err := NewEngine(time.Second).Process(context.Background(), newState(t, session), "x.png", []byte("not an image"))
	assert.ErrorIs(t, err, ErrProcessing)
	assert.ErrorIs(t, err, ErrDecodeFailed)

	session.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestEngine_InferenceTimeout(t *testing.T) {
	session := new(MockSession)
	session.On("Run", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	_, err := NewEngine(10*time.Millisecond).Process(context.Background(), newState(t, session), "x.png", solidPNG(t, 8, 8, color.NRGBA{A: 255}))
	assert.ErrorIs(t, err, ErrProcessing)
	assert.ErrorIs(t, err, model.ErrTimeout)
}

func TestEngine_InferenceError(t *testing.T) {
	session := new(MockSession)
	session.On("Run", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	_, err := NewEngine(0).Process(context.Background(), newState(t, session), "x.png", solidPNG(t, 8, 8, color.NRGBA{A: 255}))
	assert.ErrorIs(t, err, ErrProcessing)
	assert.NotErrorIs(t, err, model.ErrTimeout)
}

func TestEngine_BadOutputShape(t *testing.T) {
	session := new(MockSession)
	session.On("Run", mock.Anything, mock.Anything).
		Return(&backend.Tensor{Shape: []int64{1, 3, 2, 2}, Data: make([]float32, 12)}, nil).Once()

	_, err := NewEngine(0).Process(context.Background(), newState(t, session), "x.png", solidPNG(t, 8, 8, color.NRGBA{A: 255}))
	assert.ErrorIs(t, err, ErrProcessing)
	assert.ErrorIs(t, err, ErrOutputShape)
}

func TestEngine_NilState(t *testing.T) {
	_, err := NewEngine(0).ProcessImage(context.Background(), nil, "x.png", image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, model.ErrNotInitialized)
}

func TestDecode_Formats(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for i := range img.Pix {
		img.Pix[i] = 200
	}

	var pngBuf, jpegBuf, gifBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))
	require.NoError(t, jpeg.Encode(&jpegBuf, img, nil))
	require.NoError(t, gif.Encode(&gifBuf, img, nil))

	for format, data := range map[string][]byte{"png": pngBuf.Bytes(), "jpeg": jpegBuf.Bytes(), "gif": gifBuf.Bytes()} {
		t.Run(format, func(t *testing.T) {
			got, gotFormat, err := Decode(data, DefaultMaxPixels)
			require.NoError(t, err)
			assert.Equal(t, format, gotFormat)
			assert.Equal(t, image.Rect(0, 0, 4, 3), got.Bounds())
		})
	}

	_, _, err := Decode(nil, DefaultMaxPixels)
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestDecode_RejectsOversizedHeader(t *testing.T) {
	data := solidPNG(t, 300, 300, color.NRGBA{A: 255})

	_, _, err := Decode(data, 10_000)
	assert.ErrorIs(t, err, ErrDecodeFailed)
	assert.ErrorIs(t, err, ErrTooLarge)

	got, _, err := Decode(data, 0)
	require.NoError(t, err)
	assert.Equal(t, 300, got.Bounds().Dx())
}

func TestEngine_RejectsOversizedModelInput(t *testing.T) {
	p, err := preprocess.New(config.DefaultAcceleratedPreprocess())
	require.NoError(t, err)

	session := new(MockSession)
	st := &model.State{
		ModelID:   config.AcceleratedModelID,
		Device:    backend.DeviceCUDA,
		Processor: p,
		Session:   session,
	}

	// 1x200 decodes fine but scales to 512x102400 at the model input.
	_, err = NewEngine(time.Second, WithMaxPixels(1_000_000)).
		Process(context.Background(), st, "strip.png", solidPNG(t, 1, 200, color.NRGBA{A: 255}))
	assert.ErrorIs(t, err, ErrProcessing)
	assert.ErrorIs(t, err, ErrTooLarge)
	session.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}
