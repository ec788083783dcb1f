package handler

import (
	"log/slog"
	"net/http"

	"fieldtrack/internal/delivery/api/response"
	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// TrackingHandlerParams holds dependencies for TrackingHandler, injected by Fx.
type TrackingHandlerParams struct {
	fx.In

	TrackingUC usecase.TrackingUsecase
	Logger     *slog.Logger
}

// TrackingHandler exposes the sampling session
type TrackingHandler struct {
	trackingUC usecase.TrackingUsecase
	logger     *slog.Logger
}

// NewTrackingHandler is the constructor for TrackingHandler
func NewTrackingHandler(params TrackingHandlerParams) *TrackingHandler {
	return &TrackingHandler{
		trackingUC: params.TrackingUC,
		logger:     params.Logger,
	}
}

// FixRequest is a manually supplied position
type FixRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type transitionResponse struct {
	Changed bool                   `json:"changed"`
	Status  *entity.TrackingStatus `json:"status"`
}

// GetStatus returns the session snapshot
func (h *TrackingHandler) GetStatus(c echo.Context) error {
	return response.Success(c, http.StatusOK, h.trackingUC.Status(c.Request().Context()))
}

// Start activates tracking; starting an active session is not an error
func (h *TrackingHandler) Start(c echo.Context) error {
	ctx := c.Request().Context()

	started, err := h.trackingUC.Start(ctx)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, transitionResponse{Changed: started, Status: h.trackingUC.Status(ctx)})
}

// Stop deactivates tracking; stopping an idle session is not an error
func (h *TrackingHandler) Stop(c echo.Context) error {
	ctx := c.Request().Context()
	stopped := h.trackingUC.Stop(ctx)

	return response.Success(c, http.StatusOK, transitionResponse{Changed: stopped, Status: h.trackingUC.Status(ctx)})
}

// SubmitFix gates and admits a manual fix
func (h *TrackingHandler) SubmitFix(c echo.Context) error {
	var req FixRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid fix input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.trackingUC.Admit(c.Request().Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, TickResponse{
		Sample:   toSampleResponse(result.Sample),
		FirstFix: result.FirstFix,
	})
}

// Reconcile deletes unannotated samples and returns the survivors
func (h *TrackingHandler) Reconcile(c echo.Context) error {
	survivors, err := h.trackingUC.Reconcile(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, toSampleResponses(survivors))
}
