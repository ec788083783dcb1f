package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"fieldtrack/internal/delivery/api/response"
	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SampleHandlerParams holds dependencies for SampleHandler, injected by Fx.
type SampleHandlerParams struct {
	fx.In

	QueryUC      usecase.QueryUsecase
	AnnotationUC usecase.AnnotationUsecase
	QRCodeSvc    service.QRCodeService
	Logger       *slog.Logger
}

// SampleHandler serves the sample store and annotations
type SampleHandler struct {
	queryUC      usecase.QueryUsecase
	annotationUC usecase.AnnotationUsecase
	qrcodeSvc    service.QRCodeService
	logger       *slog.Logger
}

// NewSampleHandler is the constructor for SampleHandler
func NewSampleHandler(params SampleHandlerParams) *SampleHandler {
	return &SampleHandler{
		queryUC:      params.QueryUC,
		annotationUC: params.AnnotationUC,
		qrcodeSvc:    params.QRCodeSvc,
		logger:       params.Logger,
	}
}

// AnnotationRequest is the body of an annotation update
type AnnotationRequest struct {
	Name     string `json:"name" validate:"max=255"`
	Category string `json:"category" validate:"max=64"`
	Rating   int    `json:"rating" validate:"gte=0,lte=5"`
	Note     string `json:"note"`
}

// ListSamples returns every sample, or the exact matches when name, category or
// rating query parameters are given.
func (h *SampleHandler) ListSamples(c echo.Context) error {
	filter := &usecase.SampleFilter{}
	filtered := false

	if name, ok := queryParam(c, "name"); ok {
		filter.Name = &name
		filtered = true
	}
	if category, ok := queryParam(c, "category"); ok {
		filter.Category = &category
		filtered = true
	}
	if raw, ok := queryParam(c, "rating"); ok {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			return response.BadRequest(c, "INVALID_RATING", "rating must be an integer")
		}
		filter.Rating = &rating
		filtered = true
	}

	var (
		samples []*entity.LocationSample
		err     error
	)
	if filtered {
		samples, err = h.queryUC.Filter(c.Request().Context(), filter)
	} else {
		samples, err = h.queryUC.Samples(c.Request().Context())
	}
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, toSampleResponses(samples))
}

// SearchSamples runs a substring search over the annotation fields
func (h *SampleHandler) SearchSamples(c echo.Context) error {
	samples, err := h.queryUC.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, toSampleResponses(samples))
}

// GetSample returns one sample by timestamp
func (h *SampleHandler) GetSample(c echo.Context) error {
	ts, ok, err := timestampParam(c)
	if !ok {
		return err
	}

	sample, err := h.queryUC.Get(c.Request().Context(), ts)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, toSampleResponse(sample))
}

// Annotate overwrites a sample's annotation and queues it for remote delivery
func (h *SampleHandler) Annotate(c echo.Context) error {
	ts, ok, err := timestampParam(c)
	if !ok {
		return err
	}

	var req AnnotationRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid annotation input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	sample, err := h.annotationUC.Annotate(c.Request().Context(), ts, &usecase.AnnotationInput{
		Name:     req.Name,
		Category: req.Category,
		Rating:   req.Rating,
		Note:     req.Note,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, toSampleResponse(sample))
}

// GetSampleQR renders a PNG QR code of the sample's geo URI
func (h *SampleHandler) GetSampleQR(c echo.Context) error {
	ts, ok, err := timestampParam(c)
	if !ok {
		return err
	}

	sample, err := h.queryUC.Get(c.Request().Context(), ts)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	png, err := h.qrcodeSvc.GenerateSampleQR(sample.Latitude, sample.Longitude, sample.Name)
	if err != nil {
		return err
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

func queryParam(c echo.Context, name string) (string, bool) {
	if !c.QueryParams().Has(name) {
		return "", false
	}

	return c.QueryParam(name), true
}
