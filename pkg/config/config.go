package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the archiver
type Config struct {
	// VK API access
	VK VKConfig `yaml:"vk" json:"vk"`

	// Rate limiting for API calls
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// File download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// VKConfig holds VK API specific configuration
type VKConfig struct {
	AccessToken    string        `yaml:"access_token" json:"access_token"`
	APIVersion     string        `yaml:"api_version" json:"api_version"`
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// RateLimitConfig holds API pacing configuration. VK enforces a small
// per-session request budget, so even a strictly sequential run needs pacing.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
}

// DownloadConfig holds attachment download configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		VK: VKConfig{
			APIVersion:     "5.131",
			BaseURL:        "https://api.vk.com/method",
			RequestTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 3,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 8,
			DownloadTimeout:     60 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: ".",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// Load builds the effective configuration: defaults, then the config file,
// then environment variables, then explicit command line flags.
func Load(path string, flags map[string]interface{}) (*Config, error) {
	// A local .env file is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()
	cfg.applyFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file. An empty path falls back
// to the default locations; a missing file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// findConfigFile checks the default config file locations
func (c *Config) findConfigFile() string {
	candidates := []string{"vkdumper.yaml", "vkdumper.yml"}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".config", "vkdumper", "config.yaml"),
			filepath.Join(home, ".vkdumper.yaml"),
		)
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// LoadFromEnv loads configuration from VKDUMP_* environment variables
func (c *Config) LoadFromEnv() {
	if token := os.Getenv("VKDUMP_ACCESS_TOKEN"); token != "" {
		c.VK.AccessToken = token
	}
	if version := os.Getenv("VKDUMP_API_VERSION"); version != "" {
		c.VK.APIVersion = version
	}
	if baseURL := os.Getenv("VKDUMP_BASE_URL"); baseURL != "" {
		c.VK.BaseURL = baseURL
	}
	if rps := os.Getenv("VKDUMP_REQUESTS_PER_SECOND"); rps != "" {
		if val, err := strconv.Atoi(rps); err == nil && val > 0 {
			c.RateLimit.RequestsPerSecond = val
		}
	}
	if concurrent := os.Getenv("VKDUMP_CONCURRENT_DOWNLOADS"); concurrent != "" {
		if val, err := strconv.Atoi(concurrent); err == nil && val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if outputDir := os.Getenv("VKDUMP_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if logLevel := os.Getenv("VKDUMP_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("VKDUMP_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}
}

// applyFlags merges explicit command line flag values, which win over
// everything else
func (c *Config) applyFlags(flags map[string]interface{}) {
	for name, value := range flags {
		switch name {
		case "token":
			if v, ok := value.(string); ok && v != "" {
				c.VK.AccessToken = v
			}
		case "output":
			if v, ok := value.(string); ok && v != "" {
				c.Output.BaseDirectory = v
			}
		case "concurrent":
			if v, ok := value.(int); ok && v > 0 {
				c.Download.ConcurrentDownloads = v
			}
		case "rate-limit":
			if v, ok := value.(int); ok && v > 0 {
				c.RateLimit.RequestsPerSecond = v
			}
		case "log-level":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.Level = v
			}
		}
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.VK.BaseURL == "" {
		return fmt.Errorf("vk.base_url must not be empty")
	}
	if c.VK.APIVersion == "" {
		return fmt.Errorf("vk.api_version must not be empty")
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive, got %d", c.RateLimit.RequestsPerSecond)
	}
	if c.Download.ConcurrentDownloads <= 0 {
		return fmt.Errorf("download.concurrent_downloads must be positive, got %d", c.Download.ConcurrentDownloads)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}
