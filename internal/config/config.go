// Package config loads the client configuration: defaults, then an optional
// YAML file, then environment variables (after loading .env when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Config is the full client configuration.
type Config struct {
	Shell   ShellConfig   `yaml:"shell"`
	Backend BackendConfig `yaml:"backend"`
	Logging LoggingConfig `yaml:"logging"`
	Session SessionConfig `yaml:"session"`
	AI      AIConfig      `yaml:"ai"`
	Booking BookingConfig `yaml:"booking"`
	Notify  NotifyConfig  `yaml:"notify"`
	Images  ImagesConfig  `yaml:"images"`
}

// ShellConfig configures the local HTTP shell.
type ShellConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// BackendConfig points at the REST backend.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig selects the zap level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SessionConfig selects the token persistence driver.
type SessionConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres or memory
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// AIConfig configures the generative-AI provider.
type AIConfig struct {
	APIKey     string `yaml:"api_key"`
	TextModel  string `yaml:"text_model"`
	ImageModel string `yaml:"image_model"`
}

// BookingConfig holds booking policy.
type BookingConfig struct {
	MaxTicketsPerUser int `yaml:"max_tickets_per_user"`
}

// NotifyConfig holds notification policy.
type NotifyConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// ImagesConfig configures optional S3-compatible hosting for generated banners.
// Hosting is enabled when Bucket is set.
type ImagesConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicURL       string `yaml:"public_url"`
}

// Enabled reports whether banner hosting is configured.
func (c ImagesConfig) Enabled() bool { return c.Bucket != "" }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Shell: ShellConfig{
			Addr:         ":8090",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Session: SessionConfig{Driver: "sqlite", Path: "eventhub-session.db"},
		AI: AIConfig{
			TextModel:  "gemini-2.5-flash",
			ImageModel: "imagen-3.0-generate-002",
		},
		Booking: BookingConfig{MaxTicketsPerUser: model.MaxTicketsPerUserPerEvent},
		Notify:  NotifyConfig{TTL: 3 * time.Second},
		Images:  ImagesConfig{Region: "auto"},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// EVENTHUB_CONFIG (default eventhub.yaml, optional) and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Default()

	path := getEnv("EVENTHUB_CONFIG", "eventhub.yaml")
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Shell.Addr = getEnv("EVENTHUB_ADDR", c.Shell.Addr)
	c.Backend.BaseURL = getEnv("EVENTHUB_BACKEND_URL", c.Backend.BaseURL)
	c.Backend.Timeout = getDuration("EVENTHUB_BACKEND_TIMEOUT", c.Backend.Timeout)

	c.Logging.Level = getEnv("EVENTHUB_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("EVENTHUB_LOG_FORMAT", c.Logging.Format)

	c.Session.Driver = getEnv("EVENTHUB_SESSION_DRIVER", c.Session.Driver)
	c.Session.Path = getEnv("EVENTHUB_SESSION_PATH", c.Session.Path)
	c.Session.DSN = getEnv("EVENTHUB_SESSION_DSN", c.Session.DSN)

	// API_KEY is accepted as a shorter fallback.
	c.AI.APIKey = getEnv("EVENTHUB_AI_API_KEY", getEnv("API_KEY", c.AI.APIKey))
	c.AI.TextModel = getEnv("EVENTHUB_AI_TEXT_MODEL", c.AI.TextModel)
	c.AI.ImageModel = getEnv("EVENTHUB_AI_IMAGE_MODEL", c.AI.ImageModel)

	c.Booking.MaxTicketsPerUser = getInt("EVENTHUB_MAX_TICKETS_PER_USER", c.Booking.MaxTicketsPerUser)
	c.Notify.TTL = getDuration("EVENTHUB_NOTIFY_TTL", c.Notify.TTL)

	c.Images.Bucket = getEnv("EVENTHUB_IMAGES_BUCKET", c.Images.Bucket)
	c.Images.Region = getEnv("EVENTHUB_IMAGES_REGION", c.Images.Region)
	c.Images.Endpoint = getEnv("EVENTHUB_IMAGES_ENDPOINT", c.Images.Endpoint)
	c.Images.AccessKeyID = getEnv("EVENTHUB_IMAGES_ACCESS_KEY_ID", c.Images.AccessKeyID)
	c.Images.SecretAccessKey = getEnv("EVENTHUB_IMAGES_SECRET_ACCESS_KEY", c.Images.SecretAccessKey)
	c.Images.PublicURL = getEnv("EVENTHUB_IMAGES_PUBLIC_URL", c.Images.PublicURL)
}

// Validate rejects configurations the client cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend base_url is required")
	}
	switch c.Session.Driver {
	case "memory":
	case "sqlite":
		if c.Session.Path == "" {
			return errors.New("session path is required for the sqlite driver")
		}
	case "postgres":
		if c.Session.DSN == "" {
			return errors.New("session dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown session driver %q", c.Session.Driver)
	}
	if c.Booking.MaxTicketsPerUser < 1 {
		return errors.New("booking max_tickets_per_user must be at least 1")
	}
	if c.Notify.TTL <= 0 {
		return errors.New("notify ttl must be positive")
	}
	if c.Images.Enabled() && c.Images.PublicURL == "" {
		return errors.New("images public_url is required when a bucket is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
