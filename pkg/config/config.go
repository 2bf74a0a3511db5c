package config

import (
	"time"
)

// Config is the full application configuration. Defaults come from Default();
// every leaf can be overridden through SHOPMIND_-prefixed environment
// variables (see loader.go for the key mapping).
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Provider  ProviderConfig  `koanf:"provider"`
	Commerce  CommerceConfig  `koanf:"commerce"`
	Retry     RetryConfig     `koanf:"retry"`
	Cache     CacheConfig     `koanf:"cache"`
	Health    HealthConfig    `koanf:"health"`
	Guardrail GuardrailConfig `koanf:"guardrail"`
	Session   SessionConfig   `koanf:"session"`
	Chat      ChatConfig      `koanf:"chat"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// ProviderConfig selects and configures the completion provider.
type ProviderConfig struct {
	Default     string  `koanf:"default" validate:"oneof=openai anthropic ollama"`
	Model       string  `koanf:"model"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `koanf:"max_tokens" validate:"min=1"`
}

type CommerceConfig struct {
	BaseURL   string        `koanf:"base_url" validate:"required,url"`
	AccessKey string        `koanf:"access_key"`
	Timeout   time.Duration `koanf:"timeout"`
}

type RetryConfig struct {
	MaxAttempts  int           `koanf:"max_attempts" validate:"min=1"`
	InitialDelay time.Duration `koanf:"initial_delay"`
	MaxDelay     time.Duration `koanf:"max_delay"`
}

type CacheConfig struct {
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity" validate:"min=1"`
}

type HealthConfig struct {
	CheckInterval time.Duration `koanf:"check_interval"`
}

type GuardrailConfig struct {
	MaxMessageLength  int           `koanf:"max_message_length" validate:"min=1"`
	RateLimit         int64         `koanf:"rate_limit" validate:"min=1"`
	RatePeriod        time.Duration `koanf:"rate_period"`
	MaxConversations  int           `koanf:"max_conversations" validate:"min=1"`
	SafeEmailDomain   string        `koanf:"safe_email_domain"`
	DisableTopicCheck bool          `koanf:"disable_topic_check"`
}

type SessionConfig struct {
	MaxConversations int `koanf:"max_conversations" validate:"min=1"`
	MaxMessages      int `koanf:"max_messages" validate:"min=1"`
}

type ChatConfig struct {
	HistoryWindow int           `koanf:"history_window" validate:"min=1"`
	TurnTimeout   time.Duration `koanf:"turn_timeout"`
}

// Default returns the built-in configuration. Values mirror the behavior the
// orchestration engine is tuned for; deployments override through env vars.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		Provider: ProviderConfig{
			Default:     "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Commerce: CommerceConfig{
			BaseURL: "http://localhost:8000/store-api",
			Timeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		Cache: CacheConfig{
			TTL:      5 * time.Minute,
			Capacity: 1000,
		},
		Health: HealthConfig{
			CheckInterval: 60 * time.Second,
		},
		Guardrail: GuardrailConfig{
			MaxMessageLength: 2000,
			RateLimit:        20,
			RatePeriod:       time.Minute,
			MaxConversations: 10,
			SafeEmailDomain:  "shopmind.dev",
		},
		Session: SessionConfig{
			MaxConversations: 1000,
			MaxMessages:      50,
		},
		Chat: ChatConfig{
			HistoryWindow: 10,
			TurnTimeout:   120 * time.Second,
		},
	}
}
