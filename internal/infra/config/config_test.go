package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, defaultConfig().Validate())
}

func TestAIProvider(t *testing.T) {
	cases := []struct {
		in         string
		provider   string
		recognized bool
	}{
		{in: "", provider: ProviderOpenRouter, recognized: true},
		{in: "openrouter", provider: ProviderOpenRouter, recognized: true},
		{in: "  GEMINI  ", provider: ProviderGemini, recognized: true},
		{in: "chatgpt", provider: ProviderOpenRouter, recognized: false},
	}

	for _, tc := range cases {
		cfg := defaultConfig()
		cfg.AI.Provider = tc.in
		provider, recognized := cfg.AIProvider()
		require.Equal(t, tc.provider, provider, "input %q", tc.in)
		require.Equal(t, tc.recognized, recognized, "input %q", tc.in)
	}
}

func TestOpenRouterModelsPreferredFirst(t *testing.T) {
	cfg := defaultConfig()
	cfg.AI.OpenRouter.Models = []string{"a", "b", "c"}
	cfg.AI.OpenRouter.PreferredModel = "b"

	require.Equal(t, []string{"b", "a", "c"}, cfg.OpenRouterModels())
}

func TestOpenRouterModelsPreferredNotInList(t *testing.T) {
	cfg := defaultConfig()
	cfg.AI.OpenRouter.Models = []string{"a", "b"}
	cfg.AI.OpenRouter.PreferredModel = "custom"

	require.Equal(t, []string{"custom", "a", "b"}, cfg.OpenRouterModels())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{name: "empty address", mutate: func(cfg *Config) { cfg.HTTP.Address = "" }},
		{name: "empty system prompt", mutate: func(cfg *Config) { cfg.Chat.SystemPrompt = "" }},
		{name: "no openrouter models", mutate: func(cfg *Config) {
			cfg.AI.OpenRouter.Models = nil
			cfg.AI.OpenRouter.PreferredModel = ""
		}},
		{name: "empty gemini model", mutate: func(cfg *Config) { cfg.AI.Gemini.Model = "" }},
		{name: "zero max attempts", mutate: func(cfg *Config) { cfg.AI.Retry.MaxAttempts = 0 }},
		{name: "zero attempt timeout", mutate: func(cfg *Config) { cfg.AI.Retry.AttemptTimeout = 0 }},
		{name: "zero cooldown ttl", mutate: func(cfg *Config) { cfg.AI.Retry.CooldownTTL = 0 }},
		{name: "rate limit without rpm", mutate: func(cfg *Config) { cfg.HTTP.RateLimit.RequestsPerMinute = 0 }},
		{name: "valkey without addr", mutate: func(cfg *Config) { cfg.Store.Valkey.Enabled = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("USE_MOCK_AI", "true")
	t.Setenv("GEMINI_MODEL", "gemini-test")
	t.Setenv("CHAT_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("CHAT_COOLDOWN_TTL", "2m")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	require.Equal(t, "gemini", cfg.AI.Provider)
	require.True(t, cfg.AI.Mock)
	require.Equal(t, "gemini-test", cfg.AI.Gemini.Model)
	require.Equal(t, 5, cfg.AI.Retry.MaxAttempts)
	require.Equal(t, 2*time.Minute, cfg.AI.Retry.CooldownTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}
