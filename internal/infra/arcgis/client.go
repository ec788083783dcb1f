// Package arcgis submits annotated samples to an ArcGIS-style feature service.
package arcgis

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fieldtrack/config"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/service"

	"github.com/pkg/errors"
)

const (
	// wkidWGS84 is the spatial reference of every submitted geometry.
	wkidWGS84 = 4326

	// defaultTokenLifetime applies when the token response carries no expiry.
	defaultTokenLifetime = 60 * time.Minute

	// expiryMargin retires cached tokens slightly before the remote does.
	expiryMargin = 30 * time.Second

	maxErrorBody = 4 << 10
)

// Client implements service.FeatureService against the token and addFeatures endpoints.
type Client struct {
	cfg        *config.FeatureServiceConfig
	httpClient *http.Client
	cache      service.TokenCache
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a feature service client. Every request is bounded by cfg.Timeout.
func NewClient(cfg *config.FeatureServiceConfig, cache service.TokenCache, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

type remoteError struct {
	Code        int      `json:"code"`
	Message     string   `json:"message"`
	Description string   `json:"description"`
	Details     []string `json:"details"`
}

func (e *remoteError) reason() string {
	parts := make([]string, 0, 2+len(e.Details))
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	parts = append(parts, e.Details...)
	if len(parts) == 0 {
		return "code " + strconv.Itoa(e.Code)
	}

	return strings.Join(parts, "; ")
}

type tokenResponse struct {
	Token   string       `json:"token"`
	Expires int64        `json:"expires"` // ms since epoch
	Error   *remoteError `json:"error"`
}

type spatialReference struct {
	WKID int `json:"wkid"`
}

type pointGeometry struct {
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	SpatialReference spatialReference `json:"spatialReference"`
}

type feature struct {
	Geometry   pointGeometry  `json:"geometry"`
	Attributes map[string]any `json:"attributes"`
}

type addResult struct {
	ObjectID int64        `json:"objectId"`
	Success  bool         `json:"success"`
	Error    *remoteError `json:"error"`
}

type addFeaturesResponse struct {
	AddResults []addResult  `json:"addResults"`
	Error      *remoteError `json:"error"`
}

// AddFeature authenticates when no cached token is usable and submits one point feature.
// A token the remote rejects is dropped and the submission is retried once with a fresh one.
func (c *Client) AddFeature(ctx context.Context, f *service.Feature) (*service.FeatureResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	result, err := c.submit(ctx, token, f)
	var submitErr *domainerrors.RemoteSubmitError
	if err == nil || !errors.As(err, &submitErr) || !submitErr.TokenInvalid() {
		return result, err
	}

	c.logger.Info("Feature service rejected cached token, re-authenticating",
		slog.Int("code", submitErr.Code))
	if err := c.cache.Delete(ctx, c.cacheKey()); err != nil {
		c.logger.Warn("Failed to drop rejected token", slog.Any("error", err))
	}

	token, err = c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	return c.submit(ctx, token, f)
}

func (c *Client) cacheKey() string {
	return c.cfg.Username + "@" + c.cfg.TokenURL
}

func (c *Client) token(ctx context.Context) (string, error) {
	cached, err := c.cache.Get(ctx, c.cacheKey())
	if err != nil {
		// A broken cache only costs an extra authentication.
		c.logger.Warn("Token cache read failed", slog.Any("error", err))
	}
	if cached.Valid(c.now()) {
		return cached.Value, nil
	}

	return c.authenticate(ctx)
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("username", c.cfg.Username)
	data.Set("password", c.cfg.Password)
	data.Set("client", "referer")
	data.Set("referer", c.cfg.Referer)
	data.Set("f", "json")

	body, status, err := c.postForm(ctx, c.cfg.TokenURL, data)
	if err != nil {
		return "", domainerrors.NewRemoteAuthError(status, "token request failed", err)
	}
	if status < 200 || status > 299 {
		return "", domainerrors.NewRemoteAuthError(status, truncate(body), nil)
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", domainerrors.NewRemoteAuthError(status, "malformed token response", err)
	}
	if resp.Error != nil {
		return "", domainerrors.NewRemoteAuthError(resp.Error.Code, resp.Error.reason(), nil)
	}
	if resp.Token == "" {
		return "", domainerrors.NewRemoteAuthError(status, "token response carried no token", nil)
	}

	expiresAt := c.now().Add(defaultTokenLifetime)
	if resp.Expires > 0 {
		expiresAt = time.UnixMilli(resp.Expires)
	}
	expiresAt = expiresAt.Add(-expiryMargin)

	if err := c.cache.Set(ctx, c.cacheKey(), &service.AccessToken{Value: resp.Token, ExpiresAt: expiresAt}); err != nil {
		c.logger.Warn("Token cache write failed", slog.Any("error", err))
	}

	return resp.Token, nil
}

func (c *Client) submit(ctx context.Context, token string, f *service.Feature) (*service.FeatureResult, error) {
	fields := c.cfg.Fields
	payload, err := json.Marshal([]feature{{
		Geometry: pointGeometry{
			X:                f.Longitude,
			Y:                f.Latitude,
			SpatialReference: spatialReference{WKID: wkidWGS84},
		},
		Attributes: map[string]any{
			fields.Name:     f.Name,
			fields.Category: f.Category,
			fields.Note:     f.Note,
			fields.Rating:   f.Rating,
		},
	}})
	if err != nil {
		return nil, errors.Wrap(err, "encode features")
	}

	endpoint, err := url.Parse(c.cfg.FeaturesURL)
	if err != nil {
		return nil, domainerrors.NewRemoteSubmitError(0, "invalid features url", err)
	}
	query := endpoint.Query()
	query.Set("f", "json")
	query.Set("token", token)
	endpoint.RawQuery = query.Encode()

	data := url.Values{}
	data.Set("Features", string(payload))

	body, status, err := c.postForm(ctx, endpoint.String(), data)
	if err != nil {
		return nil, domainerrors.NewRemoteSubmitError(status, "submit request failed", err)
	}
	if status < 200 || status > 299 {
		return nil, domainerrors.NewRemoteSubmitError(status, truncate(body), nil)
	}

	var resp addFeaturesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domainerrors.NewRemoteSubmitError(status, "malformed addFeatures response", err)
	}
	if resp.Error != nil {
		return nil, domainerrors.NewRemoteSubmitError(resp.Error.Code, resp.Error.reason(), nil)
	}
	if len(resp.AddResults) == 0 {
		return nil, domainerrors.NewRemoteSubmitError(status, "addFeatures returned no results", nil)
	}

	first := resp.AddResults[0]
	if !first.Success {
		if first.Error != nil {
			return nil, domainerrors.NewRemoteSubmitError(first.Error.Code, first.Error.reason(), nil)
		}

		return nil, domainerrors.NewRemoteSubmitError(status, "feature was not added", nil)
	}

	return &service.FeatureResult{ObjectID: first.ObjectID}, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, data url.Values) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "failed to read response")
	}

	return body, resp.StatusCode, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	return strings.TrimSpace(string(body))
}
