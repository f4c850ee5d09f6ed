package http

import (
	"context"

	"github.com/ekisa-team/bgblast/internal/composite"
	"github.com/ekisa-team/bgblast/internal/model"
	"github.com/ekisa-team/bgblast/internal/service"
)

// MattingService is what the handlers need from the matting service.
type MattingService interface {
	InitializeModel(ctx context.Context, preferredID string) (bool, error)
	ModelInfo(ctx context.Context) model.Info
	Models() []model.InstanceInfo
	Ready() bool
	ProcessImage(ctx context.Context, file composite.File, opts service.Options) (*composite.Result, error)
}

var _ MattingService = (*service.Matting)(nil)
