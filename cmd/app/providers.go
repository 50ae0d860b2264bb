package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/hamyar-ai/hamyar/internal/domain/auth"
	"github.com/hamyar-ai/hamyar/internal/domain/chat"
	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
	"github.com/hamyar-ai/hamyar/internal/domain/upload"
	"github.com/hamyar-ai/hamyar/internal/infra/attachstore"
	"github.com/hamyar-ai/hamyar/internal/infra/chatstore"
	"github.com/hamyar-ai/hamyar/internal/infra/config"
	"github.com/hamyar-ai/hamyar/internal/infra/kbrepo"
	"github.com/hamyar-ai/hamyar/internal/infra/llm/gemini"
)

func provideChatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		Mode:         chat.Mode(cfg.Chat.Mode),
		MaxResults:   cfg.Chat.MaxResults,
		CacheTTL:     cfg.Chat.CacheTTL,
		TopTrending:  cfg.Chat.TopTrending,
		ModelTimeout: cfg.Chat.ModelTimeout,
		MaxAttempts:  cfg.Chat.MaxAttempts,
		RetryBackoff: cfg.Chat.RetryBackoff,
	}
}

func provideAuthConfig(cfg *config.Config) (auth.Config, error) {
	passwordHash := cfg.Admin.PasswordHash
	if passwordHash == "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
		if err != nil {
			return auth.Config{}, err
		}
		passwordHash = string(hashed)
	}
	return auth.Config{
		Username:     cfg.Admin.Username,
		PasswordHash: passwordHash,
		JWTSecret:    cfg.Admin.JWTSecret,
		TokenTTL:     cfg.Admin.TokenTTL,
	}, nil
}

func provideUploadConfig(cfg *config.Config) upload.Config {
	return upload.Config{MaxSizeBytes: cfg.Storage.MaxSizeBytes}
}

// provideGeminiClient returns nil when neither generative mode nor the
// semantic strategy needs the model; config validation already guarantees a
// key is present whenever one of them does.
func provideGeminiClient(cfg *config.Config, logger *slog.Logger) (*gemini.Client, error) {
	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		logger.Info("gemini api key not set, generative features disabled")
		return nil, nil
	}
	client, err := gemini.NewClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	logger.Info("gemini client enabled", "model", cfg.Gemini.Model)
	return client, nil
}

func provideGenerator(client *gemini.Client) chat.Generator {
	if client == nil {
		return nil
	}
	return client
}

func provideEmbedder(client *gemini.Client) knowledge.Embedder {
	if client == nil {
		return nil
	}
	return client
}

func provideKnowledgeRepository(cfg *config.Config, logger *slog.Logger, embedder knowledge.Embedder) knowledge.Repository {
	fallback := kbrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	repo, err := kbrepo.NewPostgresRepository(ctx, pool, kbrepo.Options{
		Strategy:            kbrepo.Strategy(cfg.Search.Strategy),
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
		MaxDistance:         cfg.Search.MaxDistance,
		Embedder:            embedder,
	}, logger)
	if err != nil {
		logger.Error("failed to prepare postgres repository, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres repository enabled", "strategy", cfg.Search.Strategy)
	return repo
}

func provideChatStore(cfg *config.Config, logger *slog.Logger) chat.Store {
	if cfg.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return chatstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return chatstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("valkey chat store enabled", "addr", cfg.Valkey.Addr)
			return chatstore.NewValkeyStore(client, "chat")
		}
	}
	return chatstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideObjectStorage(cfg *config.Config, logger *slog.Logger) upload.ObjectStorage {
	if strings.TrimSpace(cfg.Storage.Endpoint) == "" {
		logger.Info("storage endpoint not set, using memory attachment storage")
		return attachstore.NewMemoryStorage()
	}
	storage, err := attachstore.NewMinioStorage(
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.Region,
		cfg.Storage.PublicBaseURL,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize object storage, using memory attachment storage", "error", err)
		return attachstore.NewMemoryStorage()
	}
	logger.Info("object storage enabled", "bucket", cfg.Storage.Bucket)
	return storage
}
