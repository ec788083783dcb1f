package handler

import (
	"net/http"
	"strconv"
	"time"

	"fieldtrack/internal/delivery/api/response"
	"fieldtrack/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// SampleResponse is the wire form of a location sample
type SampleResponse struct {
	Timestamp  int64      `json:"timestamp"`
	ObjectID   int64      `json:"object_id"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Rating     int        `json:"rating"`
	Note       string     `json:"note"`
	Synced     bool       `json:"synced"`
	SyncedAt   *time.Time `json:"synced_at,omitempty"`
	CapturedAt time.Time  `json:"captured_at"`
}

func toSampleResponse(s *entity.LocationSample) *SampleResponse {
	return &SampleResponse{
		Timestamp:  s.Timestamp,
		ObjectID:   s.ObjectID,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		Name:       s.Name,
		Category:   s.Category,
		Rating:     s.Rating,
		Note:       s.Note,
		Synced:     s.Synced,
		SyncedAt:   s.SyncedAt,
		CapturedAt: s.Time().UTC(),
	}
}

func toSampleResponses(samples []*entity.LocationSample) []*SampleResponse {
	out := make([]*SampleResponse, 0, len(samples))
	for _, s := range samples {
		out = append(out, toSampleResponse(s))
	}

	return out
}

// TickResponse is returned when a fix is admitted
type TickResponse struct {
	Sample   *SampleResponse `json:"sample"`
	FirstFix bool            `json:"first_fix"`
}

// timestampParam parses the :timestamp path parameter, writing a 400 on failure.
func timestampParam(c echo.Context) (int64, bool, error) {
	ts, err := strconv.ParseInt(c.Param("timestamp"), 10, 64)
	if err != nil {
		return 0, false, response.BadRequest(c, "INVALID_TIMESTAMP", "timestamp must be an integer number of milliseconds")
	}

	return ts, true, nil
}

// HealthCheck reports liveness
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}
