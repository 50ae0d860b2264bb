package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hamyar-ai/hamyar/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(logger.With("component", "http.router")),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger.With("component", "http.router")),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger.With("component", "http.router")),
	)

	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.POST("/chat", handler.Chat)
		api.GET("/chat/trending", handler.Trending)
		api.POST("/auth/login", handler.Login)

		kb := api.Group("/knowledge-base")
		{
			kb.GET("", handler.ListEntries)
			kb.POST("/:id/like", handler.LikeEntry)
			kb.POST("/:id/dislike", handler.DislikeEntry)

			protected := kb.Group("", authMiddleware(handler.authSvc))
			{
				protected.POST("", handler.CreateEntry)
				protected.PUT("/:id", handler.UpdateEntry)
				protected.DELETE("/:id", handler.DeleteEntry)
			}
		}

		api.POST("/attachments", authMiddleware(handler.authSvc), handler.UploadAttachment)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
