package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP server configuration
	Server ServerConfig `yaml:"server"`

	// Database Configuration
	Database DatabaseConfig `yaml:"database"`

	// Redis Configuration (asynq queue)
	Redis RedisConfig `yaml:"redis"`

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Object storage configuration (MinIO / S3)
	Storage StorageConfig `yaml:"storage"`

	// Background worker configuration
	Worker WorkerConfig `yaml:"worker"`

	// Logging Configuration
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr        string   `yaml:"addr" validate:"required"`
	CORSOrigins []string `yaml:"cors_origins"`
	// Secret used to sign the form session cookie (CSRF tokens). Falls back to Auth.Secret.
	FormSecret string `yaml:"form_secret"`
	// Requests per minute allowed per client IP on sign-in/sign-up endpoints
	AuthRateLimit int `yaml:"auth_rate_limit" validate:"gte=0"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `yaml:"url" validate:"required"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string `yaml:"address"` // Redis address (host:port), empty disables the task queue
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Secret            string        `yaml:"secret"` // empty = generated and persisted on first start
	EmailAndPassword  bool          `yaml:"email_and_password"`
	ExpiresIn         time.Duration `yaml:"expires_in" validate:"gt=0"`
	UpdateAge         time.Duration `yaml:"update_age" validate:"gte=0"`
	MinPasswordLength int           `yaml:"min_password_length" validate:"gte=1"`
	MaxPasswordLength int           `yaml:"max_password_length" validate:"gtefield=MinPasswordLength"`
	CookieSecure      bool          `yaml:"cookie_secure"`
}

// StorageConfig holds MinIO configuration
type StorageConfig struct {
	Endpoint       string        `yaml:"endpoint" validate:"required"`
	AccessKey      string        `yaml:"access_key"`
	SecretKey      string        `yaml:"secret_key"`
	Bucket         string        `yaml:"bucket" validate:"required"`
	Region         string        `yaml:"region"`
	UseSSL         bool          `yaml:"use_ssl"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	PresignTTL     time.Duration `yaml:"presign_ttl" validate:"gt=0"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Concurrency          int    `yaml:"concurrency" validate:"gte=1"`
	SessionPurgeSchedule string `yaml:"session_purge_schedule"` // Cron expression, empty = no purge
	MetricsAddr          string `yaml:"metrics_addr"`           // Prometheus listener of the worker, empty = disabled
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"oneof=json console"` // json, console
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			CORSOrigins:   []string{"http://localhost:3000"},
			AuthRateLimit: 20,
		},
		Database: DatabaseConfig{
			URL: "launchkit.sqlite",
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Auth: AuthConfig{
			EmailAndPassword:  true,
			ExpiresIn:         7 * 24 * time.Hour,
			UpdateAge:         24 * time.Hour,
			MinPasswordLength: 8,
			MaxPasswordLength: 72,
		},
		Storage: StorageConfig{
			Endpoint:       "localhost:9000",
			AccessKey:      "minioadmin",
			SecretKey:      "minioadmin",
			Bucket:         "uploads",
			MaxUploadBytes: 10 << 20,
			PresignTTL:     15 * time.Minute,
		},
		Worker: WorkerConfig{
			Concurrency:          4,
			SessionPurgeSchedule: "0 * * * *",
			MetricsAddr:          ":9091",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from an optional YAML file and environment variables.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := Default()

	if path := os.Getenv("LAUNCHKIT_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid configuration: %s failed on '%s'", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	setString("HTTP_ADDR", &cfg.Server.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}
	setString("FORM_SECRET", &cfg.Server.FormSecret)

	setString("DATABASE_URL", &cfg.Database.URL)
	setString("REDIS_ADDRESS", &cfg.Redis.Address)

	setString("AUTH_SECRET", &cfg.Auth.Secret)
	setString("MINIO_ENDPOINT", &cfg.Storage.Endpoint)
	setString("MINIO_ACCESS_KEY", &cfg.Storage.AccessKey)
	setString("MINIO_SECRET_KEY", &cfg.Storage.SecretKey)
	setString("MINIO_BUCKET", &cfg.Storage.Bucket)
	setString("MINIO_REGION", &cfg.Storage.Region)

	setString("SESSION_PURGE_SCHEDULE", &cfg.Worker.SessionPurgeSchedule)
	setString("WORKER_METRICS_ADDR", &cfg.Worker.MetricsAddr)

	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)

	bools := map[string]*bool{
		"AUTH_EMAIL_AND_PASSWORD": &cfg.Auth.EmailAndPassword,
		"COOKIE_SECURE":           &cfg.Auth.CookieSecure,
		"MINIO_USE_SSL":           &cfg.Storage.UseSSL,
	}
	for key, dst := range bools {
		if err := setBool(key, dst); err != nil {
			return err
		}
	}

	durations := map[string]*time.Duration{
		"SESSION_EXPIRES_IN": &cfg.Auth.ExpiresIn,
		"SESSION_UPDATE_AGE": &cfg.Auth.UpdateAge,
		"PRESIGN_TTL":        &cfg.Storage.PresignTTL,
	}
	for key, dst := range durations {
		if err := setDuration(key, dst); err != nil {
			return err
		}
	}

	ints := map[string]*int{
		"AUTH_RATE_LIMIT":     &cfg.Server.AuthRateLimit,
		"MIN_PASSWORD_LENGTH": &cfg.Auth.MinPasswordLength,
		"MAX_PASSWORD_LENGTH": &cfg.Auth.MaxPasswordLength,
		"WORKER_CONCURRENCY":  &cfg.Worker.Concurrency,
	}
	for key, dst := range ints {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}

	if v := os.Getenv("UPLOAD_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid UPLOAD_MAX_BYTES: %w", err)
		}
		cfg.Storage.MaxUploadBytes = n
	}

	return nil
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
