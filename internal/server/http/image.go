package http

import (
	"context"
	"errors"
	"image/color"
	"io"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/bgblast/internal/composite"
	"github.com/ekisa-team/bgblast/internal/matting"
	"github.com/ekisa-team/bgblast/internal/model"
	"github.com/ekisa-team/bgblast/internal/service"
)

type (
	// FileDTO is an encoded image; data is base64 in JSON.
	FileDTO struct {
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		Data        []byte `json:"data"`
	}

	// ProcessResponseDTO is the response body for the ProcessImage operation.
	ProcessResponseDTO struct {
		MaskFile      FileDTO  `json:"mask_file"`
		ProcessedFile FileDTO  `json:"processed_file"`
		CompositeFile *FileDTO `json:"composite_file,omitempty"`
	}
)

type (
	ProcessInput struct {
		RawBody huma.MultipartFormFiles[struct {
			Image         huma.FormFile `form:"image" contentType:"image/*,application/octet-stream" required:"true"`
			Crop          string        `form:"crop" doc:"Crop rectangle x,y,w,h applied before matting"`
			Backdrop      string        `form:"backdrop" doc:"true to add the passport backdrop composite"`
			BackdropColor string        `form:"backdrop_color" doc:"Backdrop color as #RRGGBB"`
		}]
	}

	ProcessOutput struct {
		Body ProcessResponseDTO
	}
)

// ImageHandler handles image processing requests.
type ImageHandler struct {
	service MattingService
}

// NewImageHandler creates a new ImageHandler instance.
func NewImageHandler(api huma.API, service MattingService, maxUploadBytes int64) *ImageHandler {
	h := &ImageHandler{service: service}

	huma.Register(api, huma.Operation{
		OperationID:   "process-image",
		Method:        http.MethodPost,
		Path:          "/v1/images/process",
		Summary:       "Remove the background of a photo",
		Tags:          []string{"images"},
		DefaultStatus: http.StatusOK,
		MaxBodyBytes:  maxUploadBytes,
	}, h.handleProcess)

	return h
}

// handleProcess handles the process-image operation.
func (h *ImageHandler) handleProcess(ctx context.Context, input *ProcessInput) (*ProcessOutput, error) {
	formData := input.RawBody.Data()
	imageFile := formData.Image

	if !imageFile.IsSet {
		return nil, huma.Error400BadRequest("image file is required", nil)
	}

	data, err := io.ReadAll(imageFile)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read image file", err)
	}

	opts, err := parseOptions(formData.Crop, formData.Backdrop, formData.BackdropColor)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error(), err)
	}

	res, err := h.service.ProcessImage(ctx, composite.File{
		Name:        imageFile.Filename,
		ContentType: imageFile.ContentType,
		Data:        data,
	}, opts)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotInitialized):
			return nil, huma.Error409Conflict("model not initialized", err)
		case errors.Is(err, model.ErrTimeout):
			return nil, huma.Error504GatewayTimeout("image processing timed out", err)
		case errors.Is(err, matting.ErrProcessing):
			return nil, huma.Error422UnprocessableEntity("failed to process image", err)
		default:
			return nil, huma.Error500InternalServerError("failed to process image", err)
		}
	}

	out := &ProcessOutput{
		Body: ProcessResponseDTO{
			MaskFile:      toFileDTO(res.MaskFile),
			ProcessedFile: toFileDTO(res.ProcessedFile),
		},
	}
	if res.CompositeFile != nil {
		f := toFileDTO(*res.CompositeFile)
		out.Body.CompositeFile = &f
	}

	return out, nil
}

func parseOptions(crop, backdrop, backdropColor string) (service.Options, error) {
	var opts service.Options

	if crop != "" {
		r, err := composite.ParseRect(crop)
		if err != nil {
			return opts, err
		}
		opts.Crop = &r
	}

	if backdrop != "" {
		b, err := strconv.ParseBool(backdrop)
		if err != nil {
			return opts, errors.New("backdrop must be a boolean")
		}
		opts.Backdrop = b
	}

	if backdropColor != "" {
		c, err := composite.ParseHexColor(backdropColor)
		if err != nil {
			return opts, err
		}
		opts.Backdrop = true
		opts.BackdropColor = color.Color(c)
	}

	return opts, nil
}

func toFileDTO(f composite.File) FileDTO {
	return FileDTO{
		Name:        f.Name,
		ContentType: f.ContentType,
		Data:        f.Data,
	}
}
