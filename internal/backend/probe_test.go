package backend

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	a := m.Called(ctx, name, args, stdin)
	return a.Get(0).([]byte), a.Get(1).([]byte), a.Error(2)
}

func TestCommandProbe_Available(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		stderr string
		err    error
		want   bool
	}{
		{name: "device listed", stdout: "GPU 0: NVIDIA A10G (UUID: GPU-1234)\n", want: true},
		{name: "no output", stdout: "  \n", want: false},
		{name: "driver missing", stderr: "NVIDIA-SMI has failed", err: errors.New("exit status 9"), want: false},
		{name: "timed out", err: context.DeadlineExceeded, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockRunner)
			runner.On("Run", mock.Anything, "/usr/bin/nvidia-smi", []string{"-L"}, nil).
				Return([]byte(tt.stdout), []byte(tt.stderr), tt.err).Once()

			probe := NewCommandProbeWithExecutor(
				NewExecutorWithRunner("/usr/bin/nvidia-smi", time.Second, runner),
				[]string{"-L"},
			)

			assert.Equal(t, tt.want, probe.Available(context.Background()))
			runner.AssertExpectations(t)
		})
	}
}

func TestNewCommandProbe_MissingBinary(t *testing.T) {
	probe := NewCommandProbe([]string{"bgblast-no-such-binary-xyz"}, time.Second)
	assert.False(t, probe.Available(context.Background()))

	assert.False(t, NewCommandProbe(nil, time.Second).Available(context.Background()))
}

func TestStaticProbe(t *testing.T) {
	assert.True(t, StaticProbe(true).Available(context.Background()))
	assert.False(t, StaticProbe(false).Available(context.Background()))
}

func TestExecutor_AppliesTimeout(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "tool", []string(nil), nil).Return([]byte("ok"), []byte(nil), nil).Once()

	e := NewExecutorWithRunner("tool", 50*time.Millisecond, runner)
	out, _, err := e.Execute(context.Background(), nil, nil)

	assert.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	runner.AssertExpectations(t)
}
