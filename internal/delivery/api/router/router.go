// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"fieldtrack/internal/delivery/api/middleware"
	"fieldtrack/internal/delivery/api/router/handler"
	"fieldtrack/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	TrackingHandler *handler.TrackingHandler
	SampleHandler   *handler.SampleHandler
	ReportHandler   *handler.ReportHandler
	SyncHandler     *handler.SyncHandler
	AuthMiddleware  *middleware.AuthMiddleware
	Metrics         *metrics.Metrics
}

// router holds all the handlers that need to be registered.
type router struct {
	trackingHandler *handler.TrackingHandler
	sampleHandler   *handler.SampleHandler
	reportHandler   *handler.ReportHandler
	syncHandler     *handler.SyncHandler
	authMiddleware  *middleware.AuthMiddleware
	metrics         *metrics.Metrics
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		trackingHandler: params.TrackingHandler,
		sampleHandler:   params.SampleHandler,
		reportHandler:   params.ReportHandler,
		syncHandler:     params.SyncHandler,
		authMiddleware:  params.AuthMiddleware,
		metrics:         params.Metrics,
	}
}

// RegisterRoutes sets up all the API routes for the application.
// Reads are public; anything that changes state goes through Authenticate.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(r.metrics.Handler()))

	apiV1 := e.Group("/api/v1")
	auth := r.authMiddleware.Authenticate

	trackingGroup := apiV1.Group("/tracking")
	{
		trackingGroup.GET("", r.trackingHandler.GetStatus)
		trackingGroup.POST("/start", r.trackingHandler.Start, auth)
		trackingGroup.POST("/stop", r.trackingHandler.Stop, auth)
		trackingGroup.POST("/fix", r.trackingHandler.SubmitFix, auth)
	}

	samplesGroup := apiV1.Group("/samples")
	{
		samplesGroup.GET("", r.sampleHandler.ListSamples)
		samplesGroup.GET("/search", r.sampleHandler.SearchSamples)
		samplesGroup.POST("/reconcile", r.trackingHandler.Reconcile, auth)
		samplesGroup.GET("/:timestamp", r.sampleHandler.GetSample)
		samplesGroup.PUT("/:timestamp/annotation", r.sampleHandler.Annotate, auth)
		samplesGroup.GET("/:timestamp/qrcode", r.sampleHandler.GetSampleQR)
	}

	apiV1.GET("/reports/ratings", r.reportHandler.RatingHistogram)
	apiV1.GET("/route", r.reportHandler.Route)
	apiV1.GET("/geofence", r.reportHandler.Geofence)

	syncGroup := apiV1.Group("/sync")
	{
		syncGroup.GET("", r.syncHandler.GetStatus)
		syncGroup.POST("/dispatch", r.syncHandler.Dispatch, auth)
	}
}
