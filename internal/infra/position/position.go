// Package position provides the live positioning sources of the tracking loop.
package position

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fieldtrack/config"
	"fieldtrack/internal/domain/constants"
	"fieldtrack/internal/domain/geofence"
	"fieldtrack/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// None never has a fix; the tracking loop then drifts from its base position.
type None struct{}

func (None) Current(context.Context) (float64, float64, error) {
	return 0, 0, service.ErrPositionUnavailable
}

// Static always reports the configured fix.
type Static struct {
	Latitude  float64
	Longitude float64
}

func (s Static) Current(context.Context) (float64, float64, error) {
	return s.Latitude, s.Longitude, nil
}

// HTTP reads {"latitude": .., "longitude": ..} from a JSON endpoint, typically a
// GNSS daemon bridge on the device.
type HTTP struct {
	endpoint string
	client   *http.Client
}

// NewHTTP creates an HTTP position source with a per-request timeout.
func NewHTTP(endpoint string, timeout time.Duration) *HTTP {
	return &HTTP{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type fixResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Current fetches one fix. Transport failures, non-200 replies and invalid
// coordinates are all reported as ErrPositionUnavailable.
func (h *HTTP) Current(ctx context.Context) (float64, float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to create position request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, 0, errors.Wrapf(service.ErrPositionUnavailable, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		return 0, 0, errors.Wrapf(service.ErrPositionUnavailable, "status %d", resp.StatusCode)
	}

	var fix fixResponse
	if err := json.NewDecoder(resp.Body).Decode(&fix); err != nil {
		return 0, 0, errors.Wrapf(service.ErrPositionUnavailable, "decode fix: %v", err)
	}
	if fix.Latitude == nil || fix.Longitude == nil || !geofence.ValidCoordinate(*fix.Latitude, *fix.Longitude) {
		return 0, 0, errors.Wrap(service.ErrPositionUnavailable, "fix carried no valid coordinates")
	}

	return *fix.Latitude, *fix.Longitude, nil
}

// Params declares the dependencies of the position source provider
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// New returns the source selected by position.provider.
func New(p Params) (service.PositionSource, error) {
	cfg := p.Config.Position

	switch cfg.Provider {
	case "":
		p.Logger.Info("No live position source configured, tracking drifts from its base position")

		return None{}, nil
	case constants.PositionProviderStatic:
		if !geofence.ValidCoordinate(cfg.Latitude, cfg.Longitude) {
			return nil, errors.Errorf("position.latitude/longitude out of range: %f, %f", cfg.Latitude, cfg.Longitude)
		}
		p.Logger.Info("Using static position source",
			slog.Float64("latitude", cfg.Latitude), slog.Float64("longitude", cfg.Longitude))

		return Static{Latitude: cfg.Latitude, Longitude: cfg.Longitude}, nil
	case constants.PositionProviderHTTP:
		if cfg.Endpoint == "" {
			return nil, errors.New("position.endpoint is required for the http provider")
		}
		p.Logger.Info("Using HTTP position source", slog.String("endpoint", cfg.Endpoint))

		return NewHTTP(cfg.Endpoint, cfg.Timeout), nil
	default:
		return nil, errors.Errorf("unknown position provider %q", cfg.Provider)
	}
}
