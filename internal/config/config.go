package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the top-level taskd configuration.
type Config struct {
	Provider ProviderConfig `json:"provider"`
	Tasks    TasksConfig    `json:"tasks"`
	API      APIConfig      `json:"api"`
}

// ProviderConfig holds the classification service settings.
type ProviderConfig struct {
	APIKey          string `json:"api_key"`
	BaseURL         string `json:"base_url"`
	Model           string `json:"model"`
	EmbeddingModel  string `json:"embedding_model,omitempty"`
	TimeoutSeconds  int    `json:"timeout_seconds,omitempty"`       // classification, default 20
	MediaTimeoutSec int    `json:"media_timeout_seconds,omitempty"` // vision and embeddings, default 60
}

// TasksConfig holds settings for the task implementations.
type TasksConfig struct {
	WorkDir               string `json:"work_dir,omitempty"`
	DatagenScript         string `json:"datagen_script,omitempty"`
	CommandTimeoutSeconds int    `json:"command_timeout_seconds,omitempty"` // default 120
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

const (
	DefaultBaseURL        = "http://aiproxy.sanand.workers.dev/openai/v1"
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultPort           = 8000
)

// Defaults returns a config with every optional field filled in.
func Defaults() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:         DefaultBaseURL,
			Model:           DefaultModel,
			EmbeddingModel:  DefaultEmbeddingModel,
			TimeoutSeconds:  20,
			MediaTimeoutSec: 60,
		},
		Tasks: TasksConfig{
			WorkDir:               ".",
			CommandTimeoutSeconds: 120,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: DefaultPort,
		},
	}
}

// Load reads configuration from a JSON file on top of the defaults. The API
// key falls back to AIPROXY_TOKEN when the file leaves it empty.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("AIPROXY_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the environment. Variables already set are left alone and missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: load %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

// LoadFromEnv builds a config from AIPROXY_TOKEN and TASKD_* variables.
func LoadFromEnv() (*Config, error) {
	d := Defaults()
	cfg := &Config{
		Provider: ProviderConfig{
			APIKey:          os.Getenv("AIPROXY_TOKEN"),
			BaseURL:         getenv("TASKD_BASE_URL", d.Provider.BaseURL),
			Model:           getenv("TASKD_MODEL", d.Provider.Model),
			EmbeddingModel:  getenv("TASKD_EMBED_MODEL", d.Provider.EmbeddingModel),
			TimeoutSeconds:  getenvInt("TASKD_CLASSIFY_TIMEOUT", d.Provider.TimeoutSeconds),
			MediaTimeoutSec: getenvInt("TASKD_MEDIA_TIMEOUT", d.Provider.MediaTimeoutSec),
		},
		Tasks: TasksConfig{
			WorkDir:               getenv("TASKD_WORK_DIR", d.Tasks.WorkDir),
			DatagenScript:         os.Getenv("TASKD_DATAGEN_SCRIPT"),
			CommandTimeoutSeconds: getenvInt("TASKD_COMMAND_TIMEOUT", d.Tasks.CommandTimeoutSeconds),
		},
		API: APIConfig{
			Host: getenv("TASKD_HOST", d.API.Host),
			Port: getenvInt("TASKD_PORT", d.API.Port),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for required fields. The API key is not required here:
// a missing key shows up as an authorization error on the first call.
func (c *Config) Validate() error {
	var errs []string

	if c.Provider.BaseURL == "" {
		errs = append(errs, "provider.base_url is required")
	}
	if c.Provider.Model == "" {
		errs = append(errs, "provider.model is required")
	}
	if c.Provider.TimeoutSeconds <= 0 {
		errs = append(errs, "provider.timeout_seconds must be positive")
	}
	if c.Provider.MediaTimeoutSec <= 0 {
		errs = append(errs, "provider.media_timeout_seconds must be positive")
	}
	if c.Tasks.CommandTimeoutSeconds <= 0 {
		errs = append(errs, "tasks.command_timeout_seconds must be positive")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ClassifyTimeout returns the classification timeout.
func (c *Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// MediaTimeout returns the timeout for vision and embedding calls.
func (c *Config) MediaTimeout() time.Duration {
	return time.Duration(c.Provider.MediaTimeoutSec) * time.Second
}

// CommandTimeout returns the timeout for external commands.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Tasks.CommandTimeoutSeconds) * time.Second
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
