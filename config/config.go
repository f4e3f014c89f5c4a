// Package config loads the service configuration from defaults, an optional
// YAML file and the environment. The result is validated once at start-up and
// passed by reference to the components that need it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Models used when llm.model is unset, keyed by provider.
const (
	DefaultOpenAIModel = "meta-llama/Meta-Llama-3-70B-Instruct"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Config is the root configuration. Treat it as read-only after Load.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Persona PersonaConfig `mapstructure:"persona"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second per IP, 0 disables
	BodyLimit       string        `mapstructure:"body_limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	// BaseURL overrides the provider's default endpoint.
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxContinuations int           `mapstructure:"max_continuations"`
}

type PersonaConfig struct {
	File string `mapstructure:"file"`
	// Text holds the contents of File once loaded.
	Text string `mapstructure:"-"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewViper returns a viper instance with defaults, env bindings and, when
// present, the config file applied.
func NewViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.body_limit", "1M")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "") // resolved per provider in FromViper
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.request_timeout", "3m")
	v.SetDefault("llm.max_continuations", 5)
	v.SetDefault("persona.file", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("personachat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// PERSONACHAT_SERVER_PORT=9090, PERSONACHAT_LLM_MODEL=...
	v.SetEnvPrefix("PERSONACHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by hosting platforms and the providers.
	if err := v.BindEnv("server.port", "PERSONACHAT_SERVER_PORT", "PORT"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("llm.api_key", "PERSONACHAT_LLM_API_KEY", "HF_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("llm.gemini_api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}

// Load builds and validates the configuration.
func Load(configPath string) (*Config, *viper.Viper, error) {
	v, err := NewViper(configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// FromViper decodes v into a Config, reads the persona file and validates.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider == ProviderGemini {
		cfg.LLM.APIKey = v.GetString("llm.gemini_api_key")
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModel(cfg.LLM.Provider)
	}

	if cfg.Persona.File != "" {
		b, err := os.ReadFile(cfg.Persona.File)
		if err != nil {
			return nil, fmt.Errorf("reading persona file: %w", err)
		}
		cfg.Persona.Text = string(b)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultModel(provider string) string {
	if provider == ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultOpenAIModel
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Server.RateLimit < 0:
		return errors.New("server.rate_limit must not be negative")
	case c.LLM.Provider != ProviderOpenAI && c.LLM.Provider != ProviderGemini:
		return fmt.Errorf("llm.provider %q: must be %q or %q", c.LLM.Provider, ProviderOpenAI, ProviderGemini)
	case c.LLM.APIKey == "":
		return errors.New("llm.api_key is required (set HF_API_KEY or PERSONACHAT_LLM_API_KEY)")
	case c.LLM.Model == "":
		return errors.New("llm.model is required")
	case c.LLM.Timeout <= 0 || c.LLM.RequestTimeout <= 0:
		return errors.New("llm.timeout and llm.request_timeout must be positive")
	case c.LLM.MaxContinuations <= 0:
		return errors.New("llm.max_continuations must be positive")
	}
	return nil
}
