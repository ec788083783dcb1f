package constants

// Environments
const (
	EnvDevelop    = "develop"
	EnvLocal      = "local"
	EnvProduction = "production"
)

// Change feed providers
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// Token cache providers
const (
	TokenCacheProviderMemory = "memory"
	TokenCacheProviderRedis  = "redis"
)

// Position providers
const (
	PositionProviderStatic = "static"
	PositionProviderHTTP   = "http"
)

// Change event types published on the feed
const (
	EventSampleAdmitted    = "sample.admitted"
	EventSampleAnnotated   = "sample.annotated"
	EventSamplesReconciled = "samples.reconciled"
	EventSampleSynced      = "sample.synced"
	EventGeofenceViolation = "geofence.violation"
	EventTrackingStarted   = "tracking.started"
	EventTrackingStopped   = "tracking.stopped"
)
