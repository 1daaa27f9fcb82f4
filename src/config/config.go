// Package config provides configuration management for easlog.
//
// Values come from an optional YAML file first, then environment variables,
// which win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"easlog/src/aggregate"
	"easlog/src/intercept"
)

// Config holds the application configuration.
type Config struct {
	// ExpoToken is forwarded verbatim as a bearer token. Optional.
	ExpoToken string `yaml:"expo_token"`
	// APIURL is the GraphQL endpoint whose responses are intercepted.
	APIURL string `yaml:"api_url"`
	// OutputDir receives exported files.
	OutputDir string `yaml:"output_dir"`
	// Concurrency bounds parallel fragment retrieval.
	Concurrency int `yaml:"concurrency"`
	// StripANSI removes terminal escapes from aggregated messages.
	StripANSI bool `yaml:"strip_ansi"`

	// RedpandaBrokers enables agent mode when set.
	RedpandaBrokers []string `yaml:"redpanda_brokers"`
	// PostgresDSN enables persistent export history when set.
	PostgresDSN string `yaml:"postgres_dsn"`

	// HTTPAddr is the listen address for `easlog serve`.
	HTTPAddr string `yaml:"http_addr"`
	// ChromeProfile is the user data directory for `easlog watch`.
	ChromeProfile string `yaml:"chrome_profile"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		APIURL:      intercept.DefaultEndpoint,
		OutputDir:   ".",
		Concurrency: aggregate.DefaultConcurrency,
		HTTPAddr:    ":8080",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// LoadFile reads a YAML config file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the configuration from path (if non-empty, else $EASLOG_CONFIG
// if set) and the environment, then validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("EASLOG_CONFIG")
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString("EXPO_TOKEN", &c.ExpoToken)
	setString("EASLOG_API_URL", &c.APIURL)
	setString("EASLOG_OUTPUT_DIR", &c.OutputDir)
	setString("POSTGRES_DSN", &c.PostgresDSN)
	setString("EASLOG_HTTP_ADDR", &c.HTTPAddr)
	setString("EASLOG_CHROME_PROFILE", &c.ChromeProfile)
	setString("EASLOG_LOG_LEVEL", &c.LogLevel)
	setString("EASLOG_LOG_FORMAT", &c.LogFormat)

	if v := getenv("EASLOG_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EASLOG_CONCURRENCY must be an integer, got %q", v)
		}
		c.Concurrency = n
	}
	if v := getenv("EASLOG_STRIP_ANSI"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EASLOG_STRIP_ANSI must be a boolean, got %q", v)
		}
		c.StripANSI = b
	}
	if v := getenv("REDPANDA_BROKERS"); v != "" {
		c.RedpandaBrokers = splitList(v)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api_url must be an http(s) URL, got %q", c.APIURL)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// AgentMode reports whether a broker is configured.
func (c *Config) AgentMode() bool {
	return len(c.RedpandaBrokers) > 0
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
