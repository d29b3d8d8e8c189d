package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Providers recognized by the dispatcher. Anything else falls back to the
// default with a logged warning.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

const defaultSystemPrompt = `You are a helpful AI assistant. When users ask about weather, respond with structured JSON in this exact format: { "response": [ { "type": "template", "name": "weather", "templateProps": { "location": "CityName", "country": "Country", "temperature": 22, "feelsLike": 20, "humidity": 65, "windSpeed": 15, "condition": "Partly Cloudy", "icon": "⛅", "high": 25, "low": 18, "timestamp": "2024-01-01T00:00:00.000Z" } } ] } For other questions, respond with plain text. Weather icons: ☀️ (sunny), ⛅ (partly cloudy), ☁️ (cloudy), 🌧️ (rainy), ⛈️ (stormy), 🌨️ (snowy), 🌫️ (foggy)`

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Chat    ChatConfig    `yaml:"chat"`
	AI      AIConfig      `yaml:"ai"`
	Weather WeatherConfig `yaml:"weather"`
	Store   StoreConfig   `yaml:"store"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// ChatConfig defines dispatcher behavior shared by both providers.
type ChatConfig struct {
	SystemPrompt string `yaml:"systemPrompt"`
}

// AIConfig selects and configures the LLM providers.
type AIConfig struct {
	Provider   string           `yaml:"provider"`
	Mock       bool             `yaml:"mock"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Retry      RetryConfig      `yaml:"retry"`
}

// OpenRouterConfig holds chat-completion provider settings.
type OpenRouterConfig struct {
	APIKey         string   `yaml:"apiKey"`
	BaseURL        string   `yaml:"baseUrl"`
	SiteURL        string   `yaml:"siteUrl"`
	AppTitle       string   `yaml:"appTitle"`
	Models         []string `yaml:"models"`
	PreferredModel string   `yaml:"preferredModel"`
	Temperature    float32  `yaml:"temperature"`
	MaxTokens      int      `yaml:"maxTokens"`
}

// GeminiConfig holds native-generate provider settings.
type GeminiConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"maxTokens"`
}

// RetryConfig bounds the dispatch retry loop and the model cooldown.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
	CooldownTTL    time.Duration `yaml:"cooldownTtl"`
}

// WeatherConfig controls the weather collaborator.
type WeatherConfig struct {
	Mock             bool   `yaml:"mock"`
	GeocodingBaseURL string `yaml:"geocodingBaseUrl"`
	ForecastBaseURL  string `yaml:"forecastBaseUrl"`
}

// StoreConfig selects the optional persistent backends; both default to the
// in-process memory implementations.
type StoreConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
}

// PostgresConfig contains DSN and pooling settings for conversation history.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the shared cooldown table.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// AIProvider returns the normalized provider id. The second return value is
// false when the configured value was unrecognized and the default applied.
func (c *Config) AIProvider() (string, bool) {
	provider := strings.ToLower(strings.TrimSpace(c.AI.Provider))
	switch provider {
	case ProviderGemini:
		return ProviderGemini, true
	case ProviderOpenRouter, "":
		return ProviderOpenRouter, true
	}
	return ProviderOpenRouter, false
}

// OpenRouterModels returns the candidate list with the preferred model, if
// any, moved to the front.
func (c *Config) OpenRouterModels() []string {
	models := make([]string, 0, len(c.AI.OpenRouter.Models)+1)
	preferred := strings.TrimSpace(c.AI.OpenRouter.PreferredModel)
	if preferred != "" {
		models = append(models, preferred)
	}
	for _, model := range c.AI.OpenRouter.Models {
		if model == preferred {
			continue
		}
		models = append(models, model)
	}
	return models
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = isTrue(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("CHAT_SYSTEM_PROMPT"); v != "" {
		cfg.Chat.SystemPrompt = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("USE_MOCK_AI"); v != "" {
		cfg.AI.Mock = isTrue(v)
	}
	if v := os.Getenv("USE_MOCK_WEATHER"); v != "" {
		cfg.Weather.Mock = isTrue(v)
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.AI.OpenRouter.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_BASE"); v != "" {
		cfg.AI.OpenRouter.BaseURL = v
	}
	if v := os.Getenv("OPENROUTER_SITE_URL"); v != "" {
		cfg.AI.OpenRouter.SiteURL = v
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" {
		cfg.AI.OpenRouter.PreferredModel = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_BASE"); v != "" {
		cfg.AI.Gemini.BaseURL = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.AI.Gemini.Model = v
	}
	if v := os.Getenv("GEMINI_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.AI.Gemini.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("CHAT_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.AI.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("CHAT_RETRY_ATTEMPT_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.AI.Retry.AttemptTimeout = parsed
		}
	}
	if v := os.Getenv("CHAT_COOLDOWN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.AI.Retry.CooldownTTL = parsed
		}
	}
	if v := os.Getenv("WEATHER_GEOCODING_BASE_URL"); v != "" {
		cfg.Weather.GeocodingBaseURL = v
	}
	if v := os.Getenv("WEATHER_FORECAST_BASE_URL"); v != "" {
		cfg.Weather.ForecastBaseURL = v
	}
	if v := os.Getenv("CHAT_POSTGRES_DSN"); v != "" {
		cfg.Store.Postgres.DSN = v
	}
	if v := os.Getenv("CHAT_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Store.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("CHAT_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Store.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("CHAT_VALKEY_ENABLED"); v != "" {
		cfg.Store.Valkey.Enabled = isTrue(v)
	}
	if v := os.Getenv("CHAT_VALKEY_ADDR"); v != "" {
		cfg.Store.Valkey.Addr = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Chat: ChatConfig{
			SystemPrompt: defaultSystemPrompt,
		},
		AI: AIConfig{
			Provider: ProviderOpenRouter,
			OpenRouter: OpenRouterConfig{
				BaseURL:  "https://openrouter.ai/api/v1",
				AppTitle: "Weather Chat App",
				Models: []string{
					"deepseek/deepseek-r1:free",
					"google/gemini-2.0-flash-exp:free",
					"qwen/qwen-2.5-72b-instruct:free",
					"meta-llama/llama-3.3-70b-instruct:free",
					"mistralai/mistral-small-3.2-24b-instruct:free",
				},
				Temperature: 0.7,
				MaxTokens:   500,
			},
			Gemini: GeminiConfig{
				BaseURL:     "https://generativelanguage.googleapis.com",
				Model:       "gemini-2.0-flash-exp",
				Temperature: 0.7,
				MaxTokens:   500,
			},
			Retry: RetryConfig{
				MaxAttempts:    3,
				AttemptTimeout: 30 * time.Second,
				CooldownTTL:    5 * time.Minute,
			},
		},
		Weather: WeatherConfig{
			GeocodingBaseURL: "https://geocoding-api.open-meteo.com",
			ForecastBaseURL:  "https://api.open-meteo.com",
		},
		Store: StoreConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.Chat.SystemPrompt == "" {
		return errors.New("chat.systemPrompt cannot be empty")
	}
	if len(c.AI.OpenRouter.Models) == 0 && strings.TrimSpace(c.AI.OpenRouter.PreferredModel) == "" {
		return errors.New("ai.openrouter.models cannot be empty")
	}
	if strings.TrimSpace(c.AI.Gemini.Model) == "" {
		return errors.New("ai.gemini.model cannot be empty")
	}
	if c.AI.Retry.MaxAttempts <= 0 {
		return errors.New("ai.retry.maxAttempts must be positive")
	}
	if c.AI.Retry.AttemptTimeout <= 0 {
		return errors.New("ai.retry.attemptTimeout must be positive")
	}
	if c.AI.Retry.CooldownTTL <= 0 {
		return errors.New("ai.retry.cooldownTtl must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.Store.Valkey.Enabled && strings.TrimSpace(c.Store.Valkey.Addr) == "" {
		return errors.New("store.valkey.addr cannot be empty when valkey is enabled")
	}
	return nil
}

func isTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
