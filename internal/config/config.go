// Package config provides YAML-based configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// AppConfig is the root configuration document.
type AppConfig struct {
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Storage StorageConfig `koanf:"storage" yaml:"storage"`
	Session SessionConfig `koanf:"session" yaml:"session"`
	Vision  VisionConfig  `koanf:"vision" yaml:"vision"`
	Logging LoggingConfig `koanf:"logging" yaml:"logging"`
	Catalog CatalogConfig `koanf:"catalog" yaml:"catalog"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `koanf:"port" yaml:"port"`
	BindAddress  string `koanf:"bind_address" yaml:"bind_address"`
	EnableCORS   bool   `koanf:"enable_cors" yaml:"enable_cors"`
	AllowOrigins string `koanf:"allow_origins" yaml:"allow_origins"`
	ReadTimeout  int    `koanf:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout int    `koanf:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	IdleTimeout  int    `koanf:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
	BodyLimit    string `koanf:"body_limit" yaml:"body_limit"`
	// Per-client request budget for the model-backed endpoints.
	RateLimit float64 `koanf:"rate_limit_per_second" yaml:"rate_limit_per_second"`
	RateBurst int     `koanf:"rate_burst" yaml:"rate_burst"`
}

// StorageConfig contains asset storage settings
type StorageConfig struct {
	DataDirectory   string `koanf:"data_directory" yaml:"data_directory"`
	AssetsDirectory string `koanf:"assets_directory" yaml:"assets_directory"`
	MaxUploadSizeMB int    `koanf:"max_upload_size_mb" yaml:"max_upload_size_mb"`
}

// SessionConfig controls the editing-session registry and import jobs.
type SessionConfig struct {
	MaxSessions            int    `koanf:"max_sessions" yaml:"max_sessions"`
	IdleTimeoutMinutes     int    `koanf:"idle_timeout_minutes" yaml:"idle_timeout_minutes"`
	CleanupIntervalMinutes int    `koanf:"cleanup_interval_minutes" yaml:"cleanup_interval_minutes"`
	ImportJobMaxAgeMinutes int    `koanf:"import_job_max_age_minutes" yaml:"import_job_max_age_minutes"`
	IDStyle                string `koanf:"id_style" yaml:"id_style"` // "uuid" or "sequence"
}

// VisionConfig points at an OpenAI-compatible chat-completions endpoint.
type VisionConfig struct {
	BaseURL           string `koanf:"base_url" yaml:"base_url"`
	APIKey            string `koanf:"api_key" yaml:"api_key"`
	ClassifyModel     string `koanf:"classify_model" yaml:"classify_model"`
	FloorPlanModel    string `koanf:"floor_plan_model" yaml:"floor_plan_model"`
	CommandModel      string `koanf:"command_model" yaml:"command_model"`
	TimeoutSeconds    int    `koanf:"timeout_seconds" yaml:"timeout_seconds"`
	RequestsPerMinute int    `koanf:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int    `koanf:"burst" yaml:"burst"`
}

// LoggingConfig selects zap level and encoding.
type LoggingConfig struct {
	Level       string   `koanf:"level" yaml:"level"`
	Format      string   `koanf:"format" yaml:"format"` // "json" or "console"
	OutputPaths []string `koanf:"output_paths" yaml:"output_paths"`
}

// CatalogConfig optionally replaces the built-in furniture catalog.
type CatalogConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

var (
	ErrInvalidPort     = errors.New("server.port must be between 1 and 65535")
	ErrInvalidSessions = errors.New("session.max_sessions must be positive")
	ErrInvalidIDStyle  = errors.New(`session.id_style must be "uuid" or "sequence"`)
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
)

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "25M",
			RateLimit:    1,
			RateBurst:    5,
		},
		Storage: StorageConfig{
			DataDirectory:   "./data",
			AssetsDirectory: "./data/assets",
			MaxUploadSizeMB: 20,
		},
		Session: SessionConfig{
			MaxSessions:            50,
			IdleTimeoutMinutes:     60,
			CleanupIntervalMinutes: 5,
			ImportJobMaxAgeMinutes: 30,
			IDStyle:                "uuid",
		},
		Vision: VisionConfig{
			BaseURL:           "https://api.openai.com/v1",
			ClassifyModel:     "gpt-4o-mini",
			FloorPlanModel:    "gpt-4o",
			CommandModel:      "gpt-4o",
			TimeoutSeconds:    90,
			RequestsPerMinute: 30,
			Burst:             3,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
	}
}

// LoadConfig reads configuration from a YAML file on top of DefaultConfig.
// A missing file is created with the defaults. Environment variables win over file values.
func LoadConfig(configPath string) (*AppConfig, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		k := koanf.New(".")
		if err := k.Load(file.Provider(configPath), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()
	cfg.resolvePaths(filepath.Dir(configPath))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Home Designer backend configuration\n# This file is auto-generated on first run\n\n")
	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, append(header, output...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Session.MaxSessions <= 0 {
		return ErrInvalidSessions
	}
	switch c.Session.IDStyle {
	case "uuid", "sequence":
	default:
		return ErrInvalidIDStyle
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.AssetsDirectory = filepath.Join(dataDir, "assets")
	}

	// VISION_API_KEY wins; OPENAI_API_KEY is what the hosted functions used.
	for _, key := range []string{"VISION_API_KEY", "OPENAI_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			c.Vision.APIKey = v
			break
		}
	}

	if baseURL := os.Getenv("VISION_BASE_URL"); baseURL != "" {
		c.Vision.BaseURL = baseURL
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.AssetsDirectory) {
		c.Storage.AssetsDirectory = filepath.Join(configDir, c.Storage.AssetsDirectory)
	}
	if c.Catalog.Path != "" && !filepath.IsAbs(c.Catalog.Path) {
		c.Catalog.Path = filepath.Join(configDir, c.Catalog.Path)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SessionIdleTimeout is how long an untouched session survives cleanup.
func (c *AppConfig) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutMinutes) * time.Minute
}

// CleanupInterval is the period of the session and import-job sweeper.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalMinutes) * time.Minute
}

// ImportJobMaxAge is how long finished import jobs are kept.
func (c *AppConfig) ImportJobMaxAge() time.Duration {
	return time.Duration(c.Session.ImportJobMaxAgeMinutes) * time.Minute
}

// VisionTimeout bounds a single model request.
func (c *AppConfig) VisionTimeout() time.Duration {
	return time.Duration(c.Vision.TimeoutSeconds) * time.Second
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DataDirectory, c.Storage.AssetsDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
