package position

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldtrack/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNone_Unavailable(t *testing.T) {
	_, _, err := None{}.Current(context.Background())
	assert.True(t, errors.Is(err, service.ErrPositionUnavailable))
}

func TestStatic_Current(t *testing.T) {
	lat, lon, err := Static{Latitude: 29.5, Longitude: -97.5}.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 29.5, lat)
	assert.Equal(t, -97.5, lon)
}

func TestHTTP_Current(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantLat float64
		wantLon float64
		wantErr bool
	}{
		{name: "valid fix", status: http.StatusOK, body: `{"latitude": 29.1, "longitude": -97.2}`, wantLat: 29.1, wantLon: -97.2},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: true},
		{name: "missing longitude", status: http.StatusOK, body: `{"latitude": 29.1}`, wantErr: true},
		{name: "out of range", status: http.StatusOK, body: `{"latitude": 91, "longitude": 0}`, wantErr: true},
		{name: "malformed", status: http.StatusOK, body: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			lat, lon, err := NewHTTP(srv.URL, time.Second).Current(context.Background())
			if tt.wantErr {
				assert.True(t, errors.Is(err, service.ErrPositionUnavailable), "got %v", err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLat, lat)
			assert.Equal(t, tt.wantLon, lon)
		})
	}
}

func TestHTTP_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := NewHTTP(url, 200*time.Millisecond).Current(context.Background())
	assert.True(t, errors.Is(err, service.ErrPositionUnavailable))
}
