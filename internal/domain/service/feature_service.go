package service

import (
	"context"
	"time"
)

// Feature is one point feature submitted to the remote feature collection.
type Feature struct {
	Latitude  float64
	Longitude float64
	Name      string
	Category  string
	Rating    int
	Note      string
}

// FeatureResult is the remote outcome of a successful submission.
type FeatureResult struct {
	ObjectID int64
}

// FeatureService writes annotated samples to the remote authoritative store.
type FeatureService interface {
	// AddFeature authenticates if needed and submits one feature.
	AddFeature(ctx context.Context, feature *Feature) (*FeatureResult, error)
}

// AccessToken is a remote credential with its expiry.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at now.
func (t *AccessToken) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpiresAt)
}

// TokenCache stores remote access tokens between submissions.
type TokenCache interface {
	// Get returns the cached token for key, or nil when absent or expired.
	Get(ctx context.Context, key string) (*AccessToken, error)

	// Set stores a token until its expiry.
	Set(ctx context.Context, key string, token *AccessToken) error

	// Delete drops a token the remote rejected.
	Delete(ctx context.Context, key string) error
}
