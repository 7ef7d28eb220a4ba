package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// Persistence: memory, mongo or firestore
	StoreType        string `yaml:"store_type"`
	MongoURI         string `yaml:"mongo_uri"`
	MongoDB          string `yaml:"mongo_db"`
	FirestoreProject string `yaml:"firestore_project"`
	FirestoreBatches string `yaml:"firestore_collection"`

	// Notifications: log, redis, webhook or multi (redis + webhook)
	NotifyTransport string `yaml:"notify_transport"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisPrefix     string `yaml:"redis_prefix"`
	WebhookURL      string `yaml:"webhook_url"`
	WebhookToken    string `yaml:"webhook_token"`
	// Sends WebhookToken in this header instead of Authorization: Bearer
	WebhookKeyHeader string        `yaml:"webhook_key_header"`
	WebhookTimeout   time.Duration `yaml:"webhook_timeout"`

	// Payment media: local or minio
	MediaType      string        `yaml:"media_type"`
	MediaDir       string        `yaml:"media_dir"`
	MinioEndpoint  string        `yaml:"minio_endpoint"`
	MinioAccessKey string        `yaml:"minio_access_key"`
	MinioSecretKey string        `yaml:"minio_secret_key"`
	MinioBucket    string        `yaml:"minio_bucket"`
	MinioUseSSL    bool          `yaml:"minio_use_ssl"`
	MinioURLExpiry time.Duration `yaml:"minio_url_expiry"`

	// Identity: jwt or header
	AuthMode  string        `yaml:"auth_mode"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Per-actor requests per minute; 0 disables limiting
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

func defaults() *Config {
	return &Config{
		Port:             "8080",
		Environment:      "development",
		LogLevel:         "info",
		StoreType:        "memory",
		MongoURI:         "mongodb://localhost:27017",
		MongoDB:          "nhai",
		FirestoreBatches: "batches",
		NotifyTransport:  "log",
		RedisAddr:        "localhost:6379",
		RedisPrefix:      "nhai",
		WebhookTimeout:   5 * time.Second,
		MediaType:        "local",
		MediaDir:         "uploads/payment-media",
		MinioBucket:      "payment-media",
		MinioURLExpiry:   24 * time.Hour,
		AuthMode:         "jwt",
		TokenTTL:         24 * time.Hour,
		RequestTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,

		RateLimitPerMinute: 600,
	}
}

// Load layers defaults, the optional YAML file named by CONFIG_FILE and the
// environment, in that order, then validates the result.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.StoreType = getEnv("STORE_TYPE", c.StoreType)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDB = getEnv("MONGO_DB", c.MongoDB)
	c.FirestoreProject = getEnv("FIRESTORE_PROJECT", c.FirestoreProject)
	c.FirestoreBatches = getEnv("FIRESTORE_COLLECTION", c.FirestoreBatches)

	c.NotifyTransport = getEnv("NOTIFY_TRANSPORT", c.NotifyTransport)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisPrefix = getEnv("REDIS_PREFIX", c.RedisPrefix)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	c.WebhookToken = getEnv("WEBHOOK_TOKEN", c.WebhookToken)
	c.WebhookKeyHeader = getEnv("WEBHOOK_KEY_HEADER", c.WebhookKeyHeader)
	c.WebhookTimeout = getEnvDuration("WEBHOOK_TIMEOUT", c.WebhookTimeout)

	c.MediaType = getEnv("MEDIA_TYPE", c.MediaType)
	c.MediaDir = getEnv("MEDIA_DIR", c.MediaDir)
	c.MinioEndpoint = getEnv("MINIO_ENDPOINT", c.MinioEndpoint)
	c.MinioAccessKey = getEnv("MINIO_ACCESS_KEY", c.MinioAccessKey)
	c.MinioSecretKey = getEnv("MINIO_SECRET_KEY", c.MinioSecretKey)
	c.MinioBucket = getEnv("MINIO_BUCKET", c.MinioBucket)
	c.MinioUseSSL = getEnvBool("MINIO_USE_SSL", c.MinioUseSSL)
	c.MinioURLExpiry = getEnvDuration("MINIO_URL_EXPIRY", c.MinioURLExpiry)

	c.AuthMode = getEnv("AUTH_MODE", c.AuthMode)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = getEnvDuration("TOKEN_TTL", c.TokenTTL)

	c.RequestTimeout = time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", int(c.RequestTimeout/time.Second))) * time.Second
	c.ShutdownTimeout = time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", int(c.ShutdownTimeout/time.Second))) * time.Second
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
}

// Validate checks the settings each selected backend needs.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreType {
	case "memory":
	case "mongo":
		if c.MongoURI == "" || c.MongoDB == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DB are required for the mongo store"))
		}
	case "firestore":
		if c.FirestoreProject == "" {
			errs = append(errs, errors.New("FIRESTORE_PROJECT is required for the firestore store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_TYPE %q", c.StoreType))
	}

	switch c.NotifyTransport {
	case "log":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis transport"))
		}
	case "webhook":
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("WEBHOOK_URL is required for the webhook transport"))
		}
	case "multi":
		if c.RedisAddr == "" || c.WebhookURL == "" {
			errs = append(errs, errors.New("REDIS_ADDR and WEBHOOK_URL are required for the multi transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_TRANSPORT %q", c.NotifyTransport))
	}

	switch c.MediaType {
	case "local":
		if c.MediaDir == "" {
			errs = append(errs, errors.New("MEDIA_DIR is required for local media"))
		}
	case "minio":
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" || c.MinioBucket == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are required for minio media"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_TYPE %q", c.MediaType))
	}

	switch c.AuthMode {
	case "jwt":
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required when AUTH_MODE=jwt"))
		}
	case "header":
		if c.IsProduction() {
			errs = append(errs, errors.New("AUTH_MODE=header is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode))
	}

	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// RedactedMongoURI returns MongoURI without its userinfo so it can be
// logged. Multi-host seed lists are kept as written.
func (c *Config) RedactedMongoURI() string {
	uri := c.MongoURI
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	authority, tail := rest, ""
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		authority, tail = rest[:i], rest[i:]
	}
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		authority = authority[at+1:]
	}
	return scheme + "://" + authority + tail
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
