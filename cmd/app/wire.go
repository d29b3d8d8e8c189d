//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/drunkod/crayon-chat/internal/bootstrap"
	"github.com/drunkod/crayon-chat/internal/domain/chat"
	"github.com/drunkod/crayon-chat/internal/infra/config"
	httpiface "github.com/drunkod/crayon-chat/internal/interface/http"
	"github.com/drunkod/crayon-chat/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideChatConfig,
		provideProviders,
		provideCooldownStore,
		provideRegistry,
		provideConvStore,
		provideWeatherClient,
		provideMockResponder,
		chat.NewService,
		httpiface.NewChatHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
