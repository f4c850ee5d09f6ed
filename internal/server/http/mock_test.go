package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ekisa-team/bgblast/internal/composite"
	"github.com/ekisa-team/bgblast/internal/model"
	"github.com/ekisa-team/bgblast/internal/service"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) InitializeModel(ctx context.Context, preferredID string) (bool, error) {
	args := m.Called(ctx, preferredID)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) ModelInfo(ctx context.Context) model.Info {
	return m.Called(ctx).Get(0).(model.Info)
}

func (m *MockService) Models() []model.InstanceInfo {
	return m.Called().Get(0).([]model.InstanceInfo)
}

func (m *MockService) Ready() bool {
	return m.Called().Bool(0)
}

func (m *MockService) ProcessImage(ctx context.Context, file composite.File, opts service.Options) (*composite.Result, error) {
	args := m.Called(ctx, file, opts)
	if r, ok := args.Get(0).(*composite.Result); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
