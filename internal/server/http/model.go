package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/bgblast/internal/model"
)

type (
	// HealthResponseDTO is the response body for the Health operation.
	HealthResponseDTO struct {
		Status string `json:"status" enum:"ok,initializing"`
	}

	// ModelInfoResponseDTO is the response body for the ModelInfo operation.
	ModelInfoResponseDTO struct {
		CurrentModelID         string `json:"current_model_id"`
		IsAcceleratedSupported bool   `json:"is_accelerated_supported"`
	}

	// ModelsResponseDTO is the response body for the ListModels operation.
	ModelsResponseDTO struct {
		Models []model.InstanceInfo `json:"models"`
	}

	// InitializeRequestDTO is the request body for the Initialize operation.
	InitializeRequestDTO struct {
		ModelID string `json:"model_id,omitempty" doc:"Preferred model id; the configured default when empty"`
	}

	// InitializeResponseDTO is the response body for the Initialize operation.
	InitializeResponseDTO struct {
		Initialized    bool   `json:"initialized"`
		CurrentModelID string `json:"current_model_id"`
	}
)

type (
	HealthOutput struct {
		Body HealthResponseDTO
	}

	ModelInfoOutput struct {
		Body ModelInfoResponseDTO
	}

	ModelsOutput struct {
		Body ModelsResponseDTO
	}

	InitializeInput struct {
		Body *InitializeRequestDTO `required:"false"`
	}

	InitializeOutput struct {
		Body InitializeResponseDTO
	}
)

// ModelHandler handles health and model lifecycle requests.
type ModelHandler struct {
	service MattingService
}

// NewModelHandler creates a new ModelHandler instance.
func NewModelHandler(api huma.API, service MattingService) *ModelHandler {
	h := &ModelHandler{service: service}

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Service health",
		Tags:        []string{"health"},
	}, h.handleHealth)

	huma.Register(api, huma.Operation{
		OperationID: "get-model",
		Method:      http.MethodGet,
		Path:        "/v1/model",
		Summary:     "Active model and accelerator availability",
		Tags:        []string{"model"},
	}, h.handleModelInfo)

	huma.Register(api, huma.Operation{
		OperationID: "list-models",
		Method:      http.MethodGet,
		Path:        "/v1/models",
		Summary:     "Configured models and their load status",
		Tags:        []string{"model"},
	}, h.handleListModels)

	huma.Register(api, huma.Operation{
		OperationID:   "initialize-model",
		Method:        http.MethodPost,
		Path:          "/v1/model/initialize",
		Summary:       "Load the preferred model, falling back to the CPU model",
		Tags:          []string{"model"},
		DefaultStatus: http.StatusOK,
	}, h.handleInitialize)

	return h
}

func (h *ModelHandler) handleHealth(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	status := "initializing"
	if h.service.Ready() {
		status = "ok"
	}

	return &HealthOutput{Body: HealthResponseDTO{Status: status}}, nil
}

func (h *ModelHandler) handleModelInfo(ctx context.Context, _ *struct{}) (*ModelInfoOutput, error) {
	info := h.service.ModelInfo(ctx)

	return &ModelInfoOutput{
		Body: ModelInfoResponseDTO{
			CurrentModelID:         info.CurrentModelID,
			IsAcceleratedSupported: info.BackendAvailable,
		},
	}, nil
}

func (h *ModelHandler) handleListModels(_ context.Context, _ *struct{}) (*ModelsOutput, error) {
	return &ModelsOutput{Body: ModelsResponseDTO{Models: h.service.Models()}}, nil
}

func (h *ModelHandler) handleInitialize(ctx context.Context, input *InitializeInput) (*InitializeOutput, error) {
	var modelID string
	if input.Body != nil {
		modelID = input.Body.ModelID
	}

	ok, err := h.service.InitializeModel(ctx, modelID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			return nil, huma.Error504GatewayTimeout("model initialization timed out", err)
		default:
			return nil, huma.Error500InternalServerError("failed to initialize model", err)
		}
	}

	return &InitializeOutput{
		Body: InitializeResponseDTO{
			Initialized:    ok,
			CurrentModelID: h.service.ModelInfo(ctx).CurrentModelID,
		},
	}, nil
}
