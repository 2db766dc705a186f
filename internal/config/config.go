// Package config loads process configuration for the What2Wear binaries.
//
// Priority: defaults, then the YAML file, then environment variables
// prefixed with WHAT2WEAR_. The API key additionally falls back to API_KEY
// and GEMINI_API_KEY.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mhpenta/tryon"
)

// ErrMissingAPIKey is returned by Validate when no credential is configured.
var ErrMissingAPIKey = errors.New("API key is not configured: set WHAT2WEAR_API_KEY, API_KEY or GEMINI_API_KEY")

// Config is the complete process configuration.
type Config struct {
	// APIKey is the Gemini API credential. Required.
	APIKey string `yaml:"api_key" env:"API_KEY"`

	Gemini    GeminiConfig    `yaml:"gemini" env:"GEMINI"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Retry     RetryConfig     `yaml:"retry" env:"RETRY"`
	Models    ModelsConfig    `yaml:"models" env:"MODELS"`
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`
	Wardrobe  WardrobeConfig  `yaml:"wardrobe" env:"WARDROBE"`
	Storage   StorageConfig   `yaml:"storage" env:"STORAGE"`
}

// GeminiConfig configures the API client.
type GeminiConfig struct {
	// BaseURL overrides the API endpoint (optional)
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Timeout bounds a single model call; zero means no limit
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: text, json
	Format string `yaml:"format" env:"FORMAT"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// MaxUploadBytes bounds request bodies
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	// SessionTTL is how long an idle session is kept
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	// RequestsPerMinute per client IP; zero disables the limit
	RequestsPerMinute int `yaml:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
	Burst             int `yaml:"burst" env:"BURST"`
	// PhotoHosts lists the hosts photoUrl may point at; empty allows local assets only
	PhotoHosts []string `yaml:"photo_hosts" env:"PHOTO_HOSTS"`
}

// RetryConfig mirrors tryon.RetryPolicy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay   time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	MaxJitter   time.Duration `yaml:"max_jitter" env:"MAX_JITTER"`
}

// ModelsConfig holds the ordered model lists. Env values are comma separated.
type ModelsConfig struct {
	ModelImage     []tryon.Model `yaml:"model_image" env:"MODEL_IMAGE"`
	Recommendation []tryon.Model `yaml:"recommendation" env:"RECOMMENDATION"`
	OutfitImage    []tryon.Model `yaml:"outfit_image" env:"OUTFIT_IMAGE"`
}

// RateLimitConfig configures client-side pacing of model calls.
type RateLimitConfig struct {
	// Wait makes calls wait for capacity instead of failing fast
	Wait    bool          `yaml:"wait" env:"WAIT"`
	MaxWait time.Duration `yaml:"max_wait" env:"MAX_WAIT"`
}

// WardrobeConfig locates the catalog and its images.
type WardrobeConfig struct {
	// Path to a YAML catalog; empty uses the built-in one
	Path string `yaml:"path" env:"PATH"`
	// AssetsDir resolves catalog URLs that start with "/"
	AssetsDir string `yaml:"assets_dir" env:"ASSETS_DIR"`
}

// StorageConfig configures where generated images are written.
type StorageConfig struct {
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	policy := tryon.DefaultRetryPolicy()
	models := tryon.DefaultModels()
	return &Config{
		Gemini: GeminiConfig{
			Timeout: 2 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      5 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			MaxUploadBytes:    tryon.MaxImageSize + 1<<20,
			SessionTTL:        time.Hour,
			RequestsPerMinute: 30,
			Burst:             10,
		},
		Retry: RetryConfig{
			MaxAttempts: policy.MaxAttempts,
			BaseDelay:   policy.BaseDelay,
			MaxJitter:   policy.MaxJitter,
		},
		Models: ModelsConfig{
			ModelImage:     models.ModelImage,
			Recommendation: models.Recommendation,
			OutfitImage:    models.OutfitImage,
		},
		RateLimit: RateLimitConfig{
			Wait:    true,
			MaxWait: 30 * time.Second,
		},
		Wardrobe: WardrobeConfig{
			AssetsDir: "public",
		},
		Storage: StorageConfig{
			OutputDir: "out",
		},
	}
}

// Validate checks the configuration. A missing API key is reported as
// ErrMissingAPIKey.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}

	var errs []string
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, "retry.max_attempts must be positive")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxJitter < 0 {
		errs = append(errs, "retry delays must not be negative")
	}
	if len(c.Models.ModelImage) == 0 || len(c.Models.Recommendation) == 0 || len(c.Models.OutfitImage) == 0 {
		errs = append(errs, "every operation needs at least one model")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	if c.Server.RequestsPerMinute < 0 || c.Server.Burst < 0 {
		errs = append(errs, "server rate limits must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RetryPolicy returns the retry settings.
func (c *Config) RetryPolicy() tryon.RetryPolicy {
	return tryon.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxJitter:   c.Retry.MaxJitter,
	}
}

// ModelSet returns the configured model order.
func (c *Config) ModelSet() tryon.ModelSet {
	return tryon.ModelSet{
		ModelImage:     c.Models.ModelImage,
		Recommendation: c.Models.Recommendation,
		OutfitImage:    c.Models.OutfitImage,
	}
}

// NewLogger builds the slog logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
