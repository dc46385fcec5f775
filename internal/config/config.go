// Package config provides service configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (CHATBOT_* plus DATABASE_URL and AUTH_SECRET)
//  2. Config file (./config.yaml or ~/.ai-chatbot/config.yaml)
//  3. Default values
//
// Sensitive values (database password, auth secret) are masked in String()
// and MarshalJSON() so a Config can be logged safely.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrUnknownModel indicates a requested model alias has no mapping.
	ErrUnknownModel = errors.New("unknown model")

	// ErrInvalidMaxSteps indicates the generation step limit is out of range.
	ErrInvalidMaxSteps = errors.New("invalid max steps")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrMissingAuthSecret indicates the cookie-signing secret is not set.
	ErrMissingAuthSecret = errors.New("missing auth secret")

	// ErrInvalidAuthSecret indicates the cookie-signing secret is too short.
	ErrInvalidAuthSecret = errors.New("invalid auth secret")

	// ErrInvalidToolServerURL indicates the tool server base URL is invalid.
	ErrInvalidToolServerURL = errors.New("invalid tool server URL")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Model alias names clients may send in a turn request. Each maps to a
// provider-qualified model in Config.Models.
const (
	ModelChat          = "chat-model"
	ModelChatReasoning = "chat-model-reasoning"
	ModelTitle         = "title-model"
)

const (
	// DefaultMaxSteps bounds the generation loop rounds per turn.
	DefaultMaxSteps = 5

	// MaxAllowedSteps is the absolute ceiling for max_steps.
	MaxAllowedSteps = 25

	// minAuthSecretLen is the minimum byte length for the HMAC secret.
	minAuthSecretLen = 32
)

// Config stores service configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, secrets, tokens), update MarshalJSON.
type Config struct {
	// HTTP server
	Addr           string   `mapstructure:"addr" json:"addr"`
	CORSOrigins    []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy     bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// Authentication (signed session cookie)
	AuthSecret string `mapstructure:"auth_secret" json:"auth_secret"` // SENSITIVE: masked in MarshalJSON

	// AI provider and model configuration
	Provider    string            `mapstructure:"provider" json:"provider"` // "gemini" (default), "ollama", "openai"
	Models      map[string]string `mapstructure:"models" json:"models"`     // alias -> provider-qualified model
	Temperature float32           `mapstructure:"temperature" json:"temperature"`
	MaxSteps    int               `mapstructure:"max_steps" json:"max_steps"`
	TurnTimeout time.Duration     `mapstructure:"turn_timeout" json:"turn_timeout"`
	OllamaHost  string            `mapstructure:"ollama_host" json:"ollama_host"`

	// Tool discovery (remote MCP server, SSE transport)
	ToolServerURL     string        `mapstructure:"tool_server_url" json:"tool_server_url"`
	ToolServerTimeout time.Duration `mapstructure:"tool_server_timeout" json:"tool_server_timeout"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing (OTLP export, optional)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"` // host:port of the OTLP HTTP collector
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".ai-chatbot"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "localhost:8080")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_limit_rps", 1.0)
	v.SetDefault("rate_limit_burst", 10)

	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("models", map[string]string{
		ModelChat:          "googleai/gemini-2.5-flash",
		ModelChatReasoning: "googleai/gemini-2.5-pro",
		ModelTitle:         "googleai/gemini-2.5-flash-lite",
	})
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_steps", DefaultMaxSteps)
	v.SetDefault("turn_timeout", time.Minute)
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("tool_server_url", "http://localhost:3001/sse")
	v.SetDefault("tool_server_timeout", 10*time.Second)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "chatbot")
	v.SetDefault("postgres_password", "chatbot_dev_password")
	v.SetDefault("postgres_db_name", "chatbot")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "ai-chatbot")
	v.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly.
// Provider API keys (GEMINI_API_KEY, OPENAI_API_KEY) are read directly by
// the Genkit plugins, not via Viper; Validate checks their presence.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("auth_secret", "AUTH_SECRET")
	mustBind("addr", "CHATBOT_ADDR")
	mustBind("cors_origins", "CHATBOT_CORS_ORIGINS")
	mustBind("trust_proxy", "CHATBOT_TRUST_PROXY")
	mustBind("provider", "CHATBOT_PROVIDER")
	mustBind("ollama_host", "CHATBOT_OLLAMA_HOST")
	mustBind("tool_server_url", "CHATBOT_TOOL_SERVER_URL")
	mustBind("log_level", "CHATBOT_LOG_LEVEL")
	mustBind("log_json", "CHATBOT_LOG_JSON")
	mustBind("tracing.enabled", "CHATBOT_TRACING_ENABLED")
	mustBind("tracing.endpoint", "CHATBOT_TRACING_ENDPOINT")
}

// ResolveModel maps a client-facing model alias to its provider-qualified
// Genkit model name. Unknown aliases are rejected so a typo in a request
// never silently falls back to a different model.
func (c *Config) ResolveModel(alias string) (string, error) {
	name, ok := c.Models[alias]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, alias)
	}
	return name, nil
}

// Validate performs fail-fast configuration checks.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOllama:
		if strings.TrimSpace(c.OllamaHost) == "" {
			return fmt.Errorf("%w: ollama_host required for provider %q", ErrInvalidProvider, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.Provider)
	}

	if c.MaxSteps < 1 || c.MaxSteps > MaxAllowedSteps {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidMaxSteps, c.MaxSteps, MaxAllowedSteps)
	}

	if _, err := c.ResolveModel(ModelChat); err != nil {
		return err
	}
	if _, err := c.ResolveModel(ModelTitle); err != nil {
		return err
	}

	if !strings.HasPrefix(c.ToolServerURL, "http://") && !strings.HasPrefix(c.ToolServerURL, "https://") {
		return fmt.Errorf("%w: %q", ErrInvalidToolServerURL, c.ToolServerURL)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidPostgresDBName)
	}
	switch c.PostgresSSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	if c.AuthSecret == "" {
		return ErrMissingAuthSecret
	}
	if len(c.AuthSecret) < minAuthSecretLen {
		return fmt.Errorf("%w: need at least %d bytes, got %d", ErrInvalidAuthSecret, minAuthSecretLen, len(c.AuthSecret))
	}

	return nil
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matches against real secret material.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 bytes or fewer are fully masked; longer ones keep the first
// and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - AuthSecret
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.AuthSecret = maskSecret(a.AuthSecret)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
