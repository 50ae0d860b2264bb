//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/hamyar-ai/hamyar/internal/bootstrap"
	"github.com/hamyar-ai/hamyar/internal/domain/auth"
	"github.com/hamyar-ai/hamyar/internal/domain/chat"
	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
	"github.com/hamyar-ai/hamyar/internal/domain/upload"
	"github.com/hamyar-ai/hamyar/internal/infra/config"
	httpiface "github.com/hamyar-ai/hamyar/internal/interface/http"
	"github.com/hamyar-ai/hamyar/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideChatConfig,
		provideAuthConfig,
		provideUploadConfig,
		provideGeminiClient,
		provideGenerator,
		provideEmbedder,
		provideKnowledgeRepository,
		provideChatStore,
		provideObjectStorage,
		knowledge.NewService,
		chat.NewService,
		auth.NewService,
		upload.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
