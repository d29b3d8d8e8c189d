package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
	"github.com/drunkod/crayon-chat/internal/domain/registry"
	"github.com/drunkod/crayon-chat/internal/infra/config"
	"github.com/drunkod/crayon-chat/internal/infra/convstore"
	"github.com/drunkod/crayon-chat/internal/infra/cooldownstore"
	"github.com/drunkod/crayon-chat/internal/infra/llm"
	"github.com/drunkod/crayon-chat/internal/infra/llm/gemini"
	"github.com/drunkod/crayon-chat/internal/infra/llm/mockai"
	"github.com/drunkod/crayon-chat/internal/infra/llm/openrouter"
	"github.com/drunkod/crayon-chat/internal/infra/weather/mockweather"
	"github.com/drunkod/crayon-chat/internal/infra/weather/openmeteo"
)

func provideChatConfig(cfg *config.Config, logger *slog.Logger) chat.Config {
	provider, recognized := cfg.AIProvider()
	if !recognized {
		logger.Warn("unrecognized AI provider, falling back to default", "configured", cfg.AI.Provider, "using", provider)
	}
	return chat.Config{
		Provider:       provider,
		MockAI:         cfg.AI.Mock,
		SystemPrompt:   cfg.Chat.SystemPrompt,
		GeminiModel:    cfg.AI.Gemini.Model,
		MaxAttempts:    cfg.AI.Retry.MaxAttempts,
		AttemptTimeout: cfg.AI.Retry.AttemptTimeout,
	}
}

func provideProviders(cfg *config.Config, logger *slog.Logger) chat.Providers {
	providers := chat.Providers{
		OpenRouter: llm.Unconfigured{Name: "openrouter"},
		Gemini:     llm.Unconfigured{Name: "gemini"},
	}

	if strings.TrimSpace(cfg.AI.OpenRouter.APIKey) != "" {
		client, err := openrouter.NewClient(openrouter.Config{
			APIKey:      cfg.AI.OpenRouter.APIKey,
			BaseURL:     cfg.AI.OpenRouter.BaseURL,
			SiteURL:     cfg.AI.OpenRouter.SiteURL,
			AppTitle:    cfg.AI.OpenRouter.AppTitle,
			Temperature: cfg.AI.OpenRouter.Temperature,
			MaxTokens:   cfg.AI.OpenRouter.MaxTokens,
		}, logger)
		if err != nil {
			logger.Error("failed to build openrouter client", "error", err)
		} else {
			providers.OpenRouter = client
		}
	} else {
		logger.Warn("openrouter api key not set, provider disabled")
	}

	if strings.TrimSpace(cfg.AI.Gemini.APIKey) != "" {
		client, err := gemini.NewClient(gemini.Config{
			APIKey:      cfg.AI.Gemini.APIKey,
			BaseURL:     cfg.AI.Gemini.BaseURL,
			Temperature: cfg.AI.Gemini.Temperature,
			MaxTokens:   cfg.AI.Gemini.MaxTokens,
		}, logger)
		if err != nil {
			logger.Error("failed to build gemini client", "error", err)
		} else {
			providers.Gemini = client
		}
	} else {
		logger.Warn("gemini api key not set, provider disabled")
	}

	return providers
}

func provideCooldownStore(cfg *config.Config, logger *slog.Logger) registry.CooldownStore {
	if cfg.Store.Valkey.Enabled {
		client, err := valkey.NewClient(valkey.ClientOption{
			InitAddress: []string{cfg.Store.Valkey.Addr},
		})
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cooldown store", "error", err)
			return cooldownstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cooldown store", "error", err)
		} else {
			logger.Info("valkey cooldown store enabled", "addr", cfg.Store.Valkey.Addr)
			return cooldownstore.NewValkeyStore(client, "cooldown", cfg.AI.Retry.CooldownTTL)
		}
	}
	return cooldownstore.NewMemoryStore()
}

func provideRegistry(cfg *config.Config, store registry.CooldownStore, logger *slog.Logger) chat.ModelRegistry {
	candidates := make([]registry.Candidate, 0, len(cfg.AI.OpenRouter.Models)+2)
	for _, model := range cfg.OpenRouterModels() {
		candidates = append(candidates, registry.Candidate{Provider: registry.ProviderOpenRouter, Model: model})
	}
	candidates = append(candidates, registry.Candidate{Provider: registry.ProviderGemini, Model: cfg.AI.Gemini.Model})
	return registry.New(candidates, store, cfg.AI.Retry.CooldownTTL, logger)
}

func provideConvStore(cfg *config.Config, logger *slog.Logger) chat.Store {
	fallback := convstore.NewMemoryStore()
	dsn := strings.TrimSpace(cfg.Store.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory conversation store")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory conversation store", "error", err)
		return fallback
	}
	if cfg.Store.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Store.Postgres.MaxConns
	}
	if cfg.Store.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Store.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory conversation store", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory conversation store", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres conversation store enabled")
	return convstore.NewPostgresStore(pool)
}

func provideWeatherClient(cfg *config.Config, logger *slog.Logger) chat.WeatherClient {
	if cfg.Weather.Mock {
		logger.Info("using mock weather source")
		return mockweather.NewClient()
	}
	return openmeteo.NewClient(cfg.Weather.GeocodingBaseURL, cfg.Weather.ForecastBaseURL)
}

func provideMockResponder() chat.MockResponder {
	return mockai.NewClient(mockweather.NewClient())
}
