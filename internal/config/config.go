package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/gofrs/uuid/v5"
)

type HTTPTimeoutsConfig struct {
	Read     time.Duration
	Idle     time.Duration
	Write    time.Duration
	Shutdown time.Duration // how long we give the shutdown process to gracefully terminate
}

type HTTPConfig struct {
	Port     int
	Timeouts HTTPTimeoutsConfig
}

type RateLimiterConfig struct {
	RPS   int
	Burst int
}

type LoggerConfig struct {
	Level slog.Level
}

type AppConfig struct {
	Name        string
	Environment string // 'dev' | 'prod'
	// ProfileNamespace seeds the v5 uuids that become avatar object keys
	ProfileNamespace string
}

type DBConfig struct {
	Path string
}

type ProxyConfig struct {
	Trusted bool
}

type TelemetryConfig struct {
	EnableTelemetry bool
	OtelEndpoint    string
}

type AuthConfig struct {
	SessionTTL time.Duration
}

// S3Config describes the object store. Driver "local" keeps objects on disk under LocalDir.
type S3Config struct {
	Driver        string // 's3' | 'local'
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	ImagesBucket  string
	AvatarsBucket string
	PublicBaseURL string
	LocalDir      string
}

type UploadConfig struct {
	MaxSize      string // human readable, e.g. "10MB"
	SuffixLength int
	Timeout      time.Duration // an upload outlives its request up to this
	Limiter      RateLimiterConfig

	maxSizeBytes int64
}

// MaxSizeBytes is only meaningful after Validate.
func (u UploadConfig) MaxSizeBytes() int64 {
	return u.maxSizeBytes
}

type Config struct {
	App     AppConfig
	DB      DBConfig
	Proxy   ProxyConfig
	HTTP    HTTPConfig
	Logger  LoggerConfig
	Metrics TelemetryConfig
	Auth    AuthConfig
	S3      S3Config
	Upload  UploadConfig
}

const defaultProfileNamespace = "6f1d0c3e-9a4b-4c7e-8d21-5b3f0a7e9c11"

func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:             "postdesk",
			Environment:      "prod",
			ProfileNamespace: defaultProfileNamespace,
		},
		DB: DBConfig{
			Path: "postdesk.db",
		},
		Proxy: ProxyConfig{
			Trusted: true,
		},
		HTTP: HTTPConfig{
			Port: 3000,
			Timeouts: HTTPTimeoutsConfig{
				Read:     15 * time.Second, // multipart uploads take a while on slow links
				Write:    30 * time.Second,
				Idle:     10 * time.Minute,
				Shutdown: 10 * time.Second,
			},
		},
		Logger: LoggerConfig{
			Level: slog.LevelInfo,
		},
		Metrics: TelemetryConfig{
			OtelEndpoint: "localhost:4318",
		},
		Auth: AuthConfig{
			SessionTTL: 12 * time.Hour,
		},
		S3: S3Config{
			Driver:        "s3",
			Endpoint:      "http://localhost:3900",
			Region:        "garage",
			ImagesBucket:  "blog-images",
			AvatarsBucket: "avatars",
			PublicBaseURL: "http://localhost:3900",
			LocalDir:      "./media",
		},
		Upload: UploadConfig{
			MaxSize:      "10MB",
			SuffixLength: 10,
			Timeout:      2 * time.Minute,
			Limiter: RateLimiterConfig{
				RPS:   2,
				Burst: 10,
			},
		},
	}
}

func LoadWithDefaults() *Config {
	defaults := DefaultConfig()
	return &Config{
		App: AppConfig{
			Name:             getEnv("APP_NAME", defaults.App.Name),
			Environment:      getEnv("APP_ENV", defaults.App.Environment),
			ProfileNamespace: getEnv("PROFILE_NAMESPACE", defaults.App.ProfileNamespace),
		},
		DB: DBConfig{
			Path: getEnv("DB_PATH", defaults.DB.Path),
		},
		Proxy: ProxyConfig{
			Trusted: getEnvAsBool("PROXY_TRUSTED", defaults.Proxy.Trusted),
		},
		HTTP: HTTPConfig{
			Port: getEnvAsInt("HTTP_PORT", defaults.HTTP.Port),
			Timeouts: HTTPTimeoutsConfig{
				Read:     getEnvAsDuration("HTTP_READ_TIMEOUT", defaults.HTTP.Timeouts.Read),
				Write:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", defaults.HTTP.Timeouts.Write),
				Idle:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", defaults.HTTP.Timeouts.Idle),
				Shutdown: getEnvAsDuration("HTTP_SHUTDOWN_DELAY", defaults.HTTP.Timeouts.Shutdown),
			},
		},
		Logger: LoggerConfig{
			Level: getEnvAsLogLevel("LOGGER_LEVEL", defaults.Logger.Level),
		},
		Metrics: TelemetryConfig{
			EnableTelemetry: getEnvAsBool("ENABLE_TELEMETRY", false),
			OtelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", defaults.Metrics.OtelEndpoint),
		},
		Auth: AuthConfig{
			SessionTTL: getEnvAsDuration("SESSION_TTL", defaults.Auth.SessionTTL),
		},
		S3: S3Config{
			Driver:        getEnv("STORAGE_DRIVER", defaults.S3.Driver),
			Endpoint:      getEnv("S3_ENDPOINT", defaults.S3.Endpoint),
			Region:        getEnv("S3_REGION", defaults.S3.Region),
			AccessKey:     getEnv("S3_ACCESS_KEY", defaults.S3.AccessKey),
			SecretKey:     getEnv("S3_SECRET_KEY", defaults.S3.SecretKey),
			ImagesBucket:  getEnv("S3_BUCKET_IMAGES", defaults.S3.ImagesBucket),
			AvatarsBucket: getEnv("S3_BUCKET_AVATARS", defaults.S3.AvatarsBucket),
			PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", defaults.S3.PublicBaseURL),
			LocalDir:      getEnv("STORAGE_LOCAL_DIR", defaults.S3.LocalDir),
		},
		Upload: UploadConfig{
			MaxSize:      getEnv("UPLOAD_MAX_SIZE", defaults.Upload.MaxSize),
			SuffixLength: getEnvAsInt("UPLOAD_KEY_SUFFIX_LENGTH", defaults.Upload.SuffixLength),
			Timeout:      getEnvAsDuration("UPLOAD_TIMEOUT", defaults.Upload.Timeout),
			Limiter: RateLimiterConfig{
				RPS:   getEnvAsInt("UPLOAD_RPS", defaults.Upload.Limiter.RPS),
				Burst: getEnvAsInt("UPLOAD_BURST", defaults.Upload.Limiter.Burst),
			},
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsLogLevel(key string, fallback slog.Level) slog.Level {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	switch strings.ToLower(valueStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

func (c *Config) IsProd() bool {
	return strings.ToLower(c.App.Environment) == "prod"
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("APP_NAME must not be empty")
	}
	if s := strings.ToLower(c.App.Environment); s != "dev" && s != "prod" {
		return fmt.Errorf(`APP_ENV must be "dev" or "prod"`)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	// stay away from well-known ports
	if p := c.HTTP.Port; p < 1024 || p > 65535 {
		return fmt.Errorf("HTTP_PORT must be a positive int between 1024 and 65535, got %d", p)
	}
	if c.HTTP.Timeouts.Read <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT must be positive (e.g., 5s), got %s", c.HTTP.Timeouts.Read)
	}
	if c.HTTP.Timeouts.Write <= 0 {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT must be positive (e.g., 10s), got %s", c.HTTP.Timeouts.Write)
	}
	if c.HTTP.Timeouts.Idle <= 0 {
		return fmt.Errorf("HTTP_IDLE_TIMEOUT must be positive (e.g., 2m), got %s", c.HTTP.Timeouts.Idle)
	}
	if c.HTTP.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_DELAY must be positive (e.g., 10s), got %s", c.HTTP.Timeouts.Shutdown)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Auth.SessionTTL)
	}
	if c.IsProd() {
		// avatar keys are derived from the namespace, keep them unguessable
		if c.App.ProfileNamespace == defaultProfileNamespace {
			return fmt.Errorf("PROFILE_NAMESPACE must be changed from default value for production")
		}
		if !strings.HasPrefix(c.S3.PublicBaseURL, "https://") {
			return fmt.Errorf("S3_PUBLIC_BASE_URL must use https in production")
		}
	}
	if _, err := uuid.FromString(c.App.ProfileNamespace); err != nil {
		return fmt.Errorf("PROFILE_NAMESPACE must be a valid UUID")
	}

	if err := c.S3.validate(); err != nil {
		return err
	}

	size, err := units.FromHumanSize(c.Upload.MaxSize)
	if err != nil {
		return fmt.Errorf("UPLOAD_MAX_SIZE is invalid: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be positive, got %q", c.Upload.MaxSize)
	}
	c.Upload.maxSizeBytes = size

	// 6 base36 characters is the floor for collision resistance within one millisecond
	if n := c.Upload.SuffixLength; n < 6 || n > 32 {
		return fmt.Errorf("UPLOAD_KEY_SUFFIX_LENGTH must be between 6 and 32, got %d", n)
	}
	if c.Upload.Timeout <= 0 {
		return fmt.Errorf("UPLOAD_TIMEOUT must be positive (e.g., 2m), got %s", c.Upload.Timeout)
	}
	if c.Upload.Limiter.RPS <= 0 {
		return fmt.Errorf("UPLOAD_RPS must be positive, got %d", c.Upload.Limiter.RPS)
	}
	if c.Upload.Limiter.Burst <= 0 {
		return fmt.Errorf("UPLOAD_BURST must be positive, got %d", c.Upload.Limiter.Burst)
	}

	// c.Proxy.Trusted will default to true if not valid
	// c.Logger.Level will default to Info if not valid
	return nil
}

func (s S3Config) validate() error {
	switch s.Driver {
	case "s3":
		if s.Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT must not be empty")
		}
		if s.Region == "" {
			return fmt.Errorf("S3_REGION must not be empty")
		}
	case "local":
		if s.LocalDir == "" {
			return fmt.Errorf("STORAGE_LOCAL_DIR must not be empty")
		}
	default:
		return fmt.Errorf(`STORAGE_DRIVER must be "s3" or "local", got %q`, s.Driver)
	}
	if s.ImagesBucket == "" || s.AvatarsBucket == "" {
		return fmt.Errorf("S3_BUCKET_IMAGES and S3_BUCKET_AVATARS must not be empty")
	}
	if s.ImagesBucket == s.AvatarsBucket {
		return fmt.Errorf("S3_BUCKET_IMAGES and S3_BUCKET_AVATARS must differ")
	}
	u, err := url.Parse(s.PublicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("S3_PUBLIC_BASE_URL must be an absolute URL, got %q", s.PublicBaseURL)
	}
	return nil
}
