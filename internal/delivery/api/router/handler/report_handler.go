package handler

import (
	"net/http"
	"strconv"

	"fieldtrack/internal/delivery/api/response"
	"fieldtrack/internal/domain/geofence"
	"fieldtrack/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/fx"
)

// ReportHandlerParams holds dependencies for ReportHandler, injected by Fx.
type ReportHandlerParams struct {
	fx.In

	QueryUC    usecase.QueryUsecase
	TrackingUC usecase.TrackingUsecase
	Geofence   *geofence.Evaluator
}

// ReportHandler serves aggregates and the geometry renderers draw
type ReportHandler struct {
	queryUC    usecase.QueryUsecase
	trackingUC usecase.TrackingUsecase
	fence      *geofence.Evaluator
}

// NewReportHandler is the constructor for ReportHandler
func NewReportHandler(params ReportHandlerParams) *ReportHandler {
	return &ReportHandler{
		queryUC:    params.QueryUC,
		trackingUC: params.TrackingUC,
		fence:      params.Geofence,
	}
}

// RatingHistogram counts samples per rating
func (h *ReportHandler) RatingHistogram(c echo.Context) error {
	histogram, err := h.queryUC.RatingHistogram(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, histogram)
}

// Route returns the path through samples since ?since= (ms). Without it the route
// starts at the current session's start, or covers every sample when idle.
func (h *ReportHandler) Route(c echo.Context) error {
	ctx := c.Request().Context()

	var since int64
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return response.BadRequest(c, "INVALID_SINCE", "since must be an integer number of milliseconds")
		}
		since = parsed
	} else if status := h.trackingUC.Status(ctx); status.Active && status.StartedAt != nil {
		since = status.StartedAt.UnixMilli()
	}

	route, err := h.queryUC.Route(ctx, since)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	feature := geojson.NewFeature(route.Line)
	feature.Properties["since"] = since
	feature.Properties["samples"] = route.Samples
	feature.Properties["length_meters"] = route.LengthMeters

	return response.Success(c, http.StatusOK, feature)
}

// Geofence returns the admissible region as a GeoJSON polygon feature
func (h *ReportHandler) Geofence(c echo.Context) error {
	return response.Success(c, http.StatusOK, h.fence.Feature())
}
