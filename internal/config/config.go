// Package config provides configuration loading and validation for the
// server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when neither the config file nor the environment set a value
const (
	DefaultPort       = 8080
	DefaultMediaDir   = "media"
	DefaultPDFTimeout = 30 * time.Second
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
)

// Config represents the application configuration. It is loaded from a YAML
// (or JSON) file and then overlaid with environment variables.
type Config struct {
	Port        int    `yaml:"port,omitempty"`
	DatabaseURL string `yaml:"database_url,omitempty"` // postgres:// URL or sqlite file path
	MediaDir    string `yaml:"media_dir,omitempty"`    // Root for uploaded pictures

	PDFTimeout time.Duration `yaml:"pdf_timeout,omitempty"` // Per-conversion limit, e.g. "30s"
	ChromePath string        `yaml:"chrome_path,omitempty"` // Optional Chrome binary

	GatePrivateResumes bool     `yaml:"gate_private_resumes,omitempty"` // Owner-only access to private résumés
	CORSOrigins        []string `yaml:"cors_origins,omitempty"`

	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"` // console or json
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Port:       DefaultPort,
		MediaDir:   DefaultMediaDir,
		PDFTimeout: DefaultPDFTimeout,
		LogLevel:   DefaultLogLevel,
		LogFormat:  DefaultLogFormat,
	}
}

// LoadConfig loads configuration from a YAML or JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: file values (when path is set),
// then defaults for anything missing, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if c.PDFTimeout < 0 {
		return fmt.Errorf("config error: 'pdf_timeout' must be non-negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		return fmt.Errorf("config error: 'log_format' must be json or console, got %q", c.LogFormat)
	}
	if c.ChromePath != "" {
		if _, err := os.Stat(c.ChromePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: chrome binary not found: %s", c.ChromePath)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.MediaDir == "" {
		result.MediaDir = defaults.MediaDir
	}
	if result.PDFTimeout == 0 {
		result.PDFTimeout = defaults.PDFTimeout
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}
	if len(result.CORSOrigins) == 0 {
		result.CORSOrigins = defaults.CORSOrigins
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// ApplyEnv overlays environment variables onto the configuration. Set
// variables always win over file values.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv("DATABASE_URL"); ok && v != "" {
		c.DatabaseURL = v
	}
	if v, ok := os.LookupEnv("MEDIA_DIR"); ok && v != "" {
		c.MediaDir = v
	}
	if v, ok := os.LookupEnv("PDF_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PDF_TIMEOUT: %v", err)
		}
		c.PDFTimeout = d
	}
	if v, ok := os.LookupEnv("CHROME_PATH"); ok && v != "" {
		c.ChromePath = v
	}
	if v, ok := os.LookupEnv("GATE_PRIVATE_RESUMES"); ok && v != "" {
		gate, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GATE_PRIVATE_RESUMES: %v", err)
		}
		c.GatePrivateResumes = gate
	}
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.CORSOrigins = append(c.CORSOrigins, origin)
			}
		}
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("LOG_FORMAT"); ok && v != "" {
		c.LogFormat = v
	}
	return nil
}

// Addr returns the listen address for the configured port
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
