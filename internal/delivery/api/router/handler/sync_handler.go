package handler

import (
	"net/http"

	"fieldtrack/internal/delivery/api/response"
	"fieldtrack/internal/usecase"

	"github.com/labstack/echo/v4"
)

// SyncHandler exposes the delivery outbox to operators
type SyncHandler struct {
	syncUC usecase.SyncUsecase
}

// NewSyncHandler is the constructor for SyncHandler
func NewSyncHandler(syncUC usecase.SyncUsecase) *SyncHandler {
	return &SyncHandler{syncUC: syncUC}
}

// GetStatus reports outbox counts per status
func (h *SyncHandler) GetStatus(c echo.Context) error {
	status, err := h.syncUC.Pending(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, status)
}

// Dispatch attempts every due entry now instead of waiting for the poll interval
func (h *SyncHandler) Dispatch(c echo.Context) error {
	report, err := h.syncUC.DispatchDue(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, report)
}
