package internal

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/graphgen/internal/generator"
)

// Environment variables applied on top of the config file.
const (
	EnvAPIKey         = "GEMINI_API_KEY"
	EnvAllowedOrigins = "ALLOWED_ORIGINS"
	EnvModel          = "GRAPHGEN_MODEL"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Generator  GeneratorConfig   `yaml:"generator"`
	Directives DirectivesConfig  `yaml:"directives"`
	History    HistoryConfig     `yaml:"history"`
}

// ApplyEnv overrides file values with well-known environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Generator.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Generator.Model = v
	}
	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		c.App.HTTP.AllowedOrigins = splitList(v)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Generator.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.AllowedOrigins, validation.Each(validation.Required)),
	)
}

var httpURL = regexp.MustCompile(`^https?://[^\s/]+\S*$`)

// GeneratorConfig configures the OpenAI-compatible completion endpoint.
type GeneratorConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the generator configuration. The API key is checked
// by the server at startup so that config tooling works without one.
func (c *GeneratorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.Match(httpURL)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// DirectivesConfig points at an optional YAML file of extra generation modes.
type DirectivesConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig holds the SQLite audit log location. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Enabled returns true when the audit history is configured.
func (c *HistoryConfig) Enabled() bool {
	return c.Path != ""
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:           8000,
				AllowedOrigins: []string{"http://localhost:5173"},
			},
		},
		Generator: GeneratorConfig{
			BaseURL: generator.GeminiBaseURL,
			Model:   "gemini-2.5-flash-lite",
			Timeout: 60 * time.Second,
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
