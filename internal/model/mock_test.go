package model

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/config"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, cfg *config.Config, mc *config.ModelConfig) (backend.Session, error) {
	args := m.Called(ctx, cfg, mc)
	if s, ok := args.Get(0).(backend.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

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
	args := m.Called()
	return args.Error(0)
}

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Provider() backend.BackendProvider {
	return m.Called().Get(0).(backend.BackendProvider)
}

func (m *MockBackend) Load(ctx context.Context, req *backend.LoadRequest) (backend.Session, error) {
	args := m.Called(ctx, req)
	if s, ok := args.Get(0).(backend.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Close() error {
	return m.Called().Error(0)
}

type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) Download(ctx context.Context, mc *config.ModelConfig, targetDir string) (string, bool, error) {
	args := m.Called(ctx, mc, targetDir)
	return args.String(0), args.Bool(1), args.Error(2)
}

func modelID(id string) any {
	return mock.MatchedBy(func(mc *config.ModelConfig) bool { return mc.ID == id })
}
