package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"

	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	// Store selects and configures the local sample store
	Store *StoreConfig `json:"store" yaml:"store"`

	// Postgres is only read when store.driver is "postgres"
	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	SecretKey struct {
		Access string `json:"access" yaml:"access"`
	} `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	Geofence *GeofenceConfig `json:"geofence" yaml:"geofence"`

	Tracking *TrackingConfig `json:"tracking" yaml:"tracking"`

	Position *PositionConfig `json:"position" yaml:"position"`

	Annotation *AnnotationConfig `json:"annotation" yaml:"annotation"`

	// FeatureService configures the remote feature collection the annotated samples are pushed to
	FeatureService *FeatureServiceConfig `json:"featureService" yaml:"featureService"`

	// Outbox configures durable delivery retries
	Outbox *OutboxConfig `json:"outbox" yaml:"outbox"`

	TokenCache *TokenCacheConfig `json:"tokenCache" yaml:"tokenCache"`

	// PubSub configures the store change feed consumed by renderers
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// Firebase configures geofence violation push alerts
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	// QRCode configuration for sample QR codes
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// StoreConfig defines the local persistence backend
type StoreConfig struct {
	Driver string `json:"driver" yaml:"driver" validate:"oneof=sqlite postgres"`

	// SQLite database file path
	Path string `json:"path" yaml:"path"`

	// BusyTimeout is how long a SQLite writer waits on a locked database
	BusyTimeout time.Duration `json:"busyTimeout" yaml:"busyTimeout"`
}

// AuthConfig defines API authentication
type AuthConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	TokenTTL time.Duration `json:"tokenTTL" yaml:"tokenTTL"`
}

// GeofenceConfig defines the admissible region. Ring vertices are [lon, lat].
type GeofenceConfig struct {
	Ring        [][]float64 `json:"ring" yaml:"ring"`
	GeoJSONPath string      `json:"geojsonPath" yaml:"geojsonPath"`
}

// TrackingConfig defines the sampling loop
type TrackingConfig struct {
	Interval  time.Duration `json:"interval" yaml:"interval" validate:"gt=0"`
	AutoStart bool          `json:"autoStart" yaml:"autoStart"`

	// Simulate applies cumulative drift to every fix
	Simulate bool `json:"simulate" yaml:"simulate"`

	// Base position used when no live fix is available
	BaseLatitude  float64 `json:"baseLatitude" yaml:"baseLatitude" validate:"gte=-90,lte=90"`
	BaseLongitude float64 `json:"baseLongitude" yaml:"baseLongitude" validate:"gte=-180,lte=180"`

	// Per-tick drift increments are drawn uniformly from [min, max)
	LatJitterMin float64 `json:"latJitterMin" yaml:"latJitterMin"`
	LatJitterMax float64 `json:"latJitterMax" yaml:"latJitterMax"`
	LonJitterMin float64 `json:"lonJitterMin" yaml:"lonJitterMin"`
	LonJitterMax float64 `json:"lonJitterMax" yaml:"lonJitterMax"`

	// Seed for the drift generator, 0 picks a time based seed
	Seed uint64 `json:"seed" yaml:"seed"`
}

// PositionConfig selects the live positioning source
type PositionConfig struct {
	// Provider: "" (none), "static" or "http"
	Provider  string        `json:"provider" yaml:"provider" validate:"omitempty,oneof=static http"`
	Latitude  float64       `json:"latitude" yaml:"latitude"`
	Longitude float64       `json:"longitude" yaml:"longitude"`
	Endpoint  string        `json:"endpoint" yaml:"endpoint"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

// AnnotationConfig defines what annotations are accepted
type AnnotationConfig struct {
	// Categories restricts the category field, empty allows free text
	Categories []string `json:"categories" yaml:"categories"`
	MaxNameLen int      `json:"maxNameLen" yaml:"maxNameLen"`
	MaxNoteLen int      `json:"maxNoteLen" yaml:"maxNoteLen"`
}

// FeatureServiceConfig defines the remote feature service endpoints and credentials
type FeatureServiceConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	TokenURL    string        `json:"tokenURL" yaml:"tokenURL" validate:"required_if=Enabled true,omitempty,url"`
	FeaturesURL string        `json:"featuresURL" yaml:"featuresURL" validate:"required_if=Enabled true,omitempty,url"`
	Username    string        `json:"username" yaml:"username"`
	Password    string        `json:"password" yaml:"password"`
	Referer     string        `json:"referer" yaml:"referer"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`

	// Fields maps local annotation fields to remote attribute names
	Fields FeatureFields `json:"fields" yaml:"fields"`
}

// FeatureFields holds remote attribute names
type FeatureFields struct {
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
	Note     string `json:"note" yaml:"note"`
	Rating   string `json:"rating" yaml:"rating"`
}

// OutboxConfig defines retry behaviour of remote delivery
type OutboxConfig struct {
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
	BatchSize    int           `json:"batchSize" yaml:"batchSize"`
	MaxAttempts  int           `json:"maxAttempts" yaml:"maxAttempts"`
	BaseBackoff  time.Duration `json:"baseBackoff" yaml:"baseBackoff"`
	MaxBackoff   time.Duration `json:"maxBackoff" yaml:"maxBackoff"`
}

// TokenCacheConfig selects where remote access tokens are cached
type TokenCacheConfig struct {
	// Provider: "memory" (default) or "redis"
	Provider      string `json:"provider" yaml:"provider" validate:"omitempty,oneof=memory redis"`
	RedisAddr     string `json:"redisAddr" yaml:"redisAddr"`
	RedisPassword string `json:"redisPassword" yaml:"redisPassword"`
	RedisDB       int    `json:"redisDB" yaml:"redisDB"`
	KeyPrefix     string `json:"keyPrefix" yaml:"keyPrefix"`
}

// PubSubConfig defines Pub/Sub configuration for store change events
type PubSubConfig struct {
	// Provider type: "local" for a local HTTP webhook or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// FirebaseConfig defines Firebase configuration for push notifications
type FirebaseConfig struct {
	ProjectID       string   `json:"projectId" yaml:"projectId"`
	CredentialsPath string   `json:"credentialsPath" yaml:"credentialsPath"`
	DeviceTokens    []string `json:"deviceTokens" yaml:"deviceTokens"`
}

// QRCodeConfig defines QR code generation configuration
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// A missing .env is fine, real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env failed")
	}

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Example: FEATURESERVICE_TOKENURL -> featureService.tokenURL
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	cfg.ApplyDefaults()

	if cfg.Postgres != nil {
		// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills every optional section so consumers never see nil sections.
func (cfg *Config) ApplyDefaults() {
	if cfg.Store == nil {
		cfg.Store = &StoreConfig{}
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreDriverSQLite
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "fieldtrack.db"
	}
	if cfg.Store.BusyTimeout <= 0 {
		cfg.Store.BusyTimeout = 5 * time.Second
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 12 * time.Hour
	}

	if cfg.Geofence == nil {
		cfg.Geofence = &GeofenceConfig{}
	}
	if len(cfg.Geofence.Ring) == 0 && cfg.Geofence.GeoJSONPath == "" {
		cfg.Geofence.Ring = DefaultGeofenceRing()
	}

	if cfg.Tracking == nil {
		cfg.Tracking = &TrackingConfig{
			BaseLatitude:  29.5,
			BaseLongitude: -97.5,
		}
	}
	if cfg.Tracking.Interval <= 0 {
		cfg.Tracking.Interval = 5 * time.Second
	}
	if cfg.Tracking.LatJitterMin == 0 && cfg.Tracking.LatJitterMax == 0 {
		cfg.Tracking.LatJitterMin, cfg.Tracking.LatJitterMax = -0.01, 0.01
	}
	if cfg.Tracking.LonJitterMin == 0 && cfg.Tracking.LonJitterMax == 0 {
		cfg.Tracking.LonJitterMin, cfg.Tracking.LonJitterMax = -0.01, 0.02
	}

	if cfg.Position == nil {
		cfg.Position = &PositionConfig{}
	}
	if cfg.Position.Timeout <= 0 {
		cfg.Position.Timeout = 3 * time.Second
	}

	if cfg.Annotation == nil {
		cfg.Annotation = &AnnotationConfig{}
	}
	if cfg.Annotation.MaxNameLen <= 0 {
		cfg.Annotation.MaxNameLen = 255
	}
	if cfg.Annotation.MaxNoteLen <= 0 {
		cfg.Annotation.MaxNoteLen = 4000
	}

	if cfg.FeatureService == nil {
		cfg.FeatureService = &FeatureServiceConfig{}
	}
	if cfg.FeatureService.Timeout <= 0 {
		cfg.FeatureService.Timeout = 15 * time.Second
	}
	fields := &cfg.FeatureService.Fields
	if fields.Name == "" {
		fields.Name = "Name"
	}
	if fields.Category == "" {
		fields.Category = "Type"
	}
	if fields.Note == "" {
		fields.Note = "Notes"
	}
	if fields.Rating == "" {
		fields.Rating = "Rating"
	}

	if cfg.Outbox == nil {
		cfg.Outbox = &OutboxConfig{}
	}
	if cfg.Outbox.PollInterval <= 0 {
		cfg.Outbox.PollInterval = 30 * time.Second
	}
	if cfg.Outbox.BatchSize <= 0 {
		cfg.Outbox.BatchSize = 20
	}
	if cfg.Outbox.MaxAttempts <= 0 {
		cfg.Outbox.MaxAttempts = 8
	}
	if cfg.Outbox.BaseBackoff <= 0 {
		cfg.Outbox.BaseBackoff = 5 * time.Second
	}
	if cfg.Outbox.MaxBackoff <= 0 {
		cfg.Outbox.MaxBackoff = 30 * time.Minute
	}

	if cfg.TokenCache == nil {
		cfg.TokenCache = &TokenCacheConfig{}
	}
	if cfg.TokenCache.KeyPrefix == "" {
		cfg.TokenCache.KeyPrefix = "fieldtrack:token:"
	}

	if cfg.QRCode == nil {
		cfg.QRCode = &QRCodeConfig{Size: 256, ErrorCorrectionLevel: "M"}
	}
}

// Validate checks struct level constraints and cross-field rules.
func (cfg *Config) Validate() error {
	v := validator.New()
	for _, section := range []any{cfg.Store, cfg.Tracking, cfg.Position, cfg.FeatureService, cfg.TokenCache} {
		if err := v.Struct(section); err != nil {
			return errors.Wrap(err, "invalid config")
		}
	}

	if cfg.Store.Driver == StoreDriverPostgres && cfg.Postgres == nil {
		return errors.New("postgres section is required when store.driver is postgres")
	}
	if cfg.Auth.Enabled && cfg.SecretKey.Access == "" {
		return errors.New("secretKey.access is required when auth is enabled")
	}
	if cfg.Tracking.LatJitterMin > cfg.Tracking.LatJitterMax || cfg.Tracking.LonJitterMin > cfg.Tracking.LonJitterMax {
		return errors.New("tracking jitter min must not exceed max")
	}

	return nil
}

// DefaultGeofenceRing is the Gulf of Mexico region ring as [lon, lat] pairs.
func DefaultGeofenceRing() [][]float64 {
	return [][]float64{
		{-96.0, 25.0},
		{-92.5, 28.0},
		{-95.5, 30.0},
		{-97.0, 32.0},
		{-100.0, 31.0},
		{-100.0, 29.0},
		{-96.0, 25.0},
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}
