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

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Chat     ChatConfig     `yaml:"chat"`
	Search   SearchConfig   `yaml:"search"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Postgres PostgresConfig `yaml:"postgres"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
	Storage  StorageConfig  `yaml:"storage"`
	Admin    AdminConfig    `yaml:"admin"`
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

// ChatConfig controls answer assembly.
type ChatConfig struct {
	Mode         string        `yaml:"mode"`
	MaxResults   int           `yaml:"maxResults"`
	CacheTTL     time.Duration `yaml:"cacheTtl"`
	TopTrending  int           `yaml:"topTrending"`
	ModelTimeout time.Duration `yaml:"modelTimeout"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`
}

// SearchConfig selects and tunes the relevance ranking strategy.
type SearchConfig struct {
	Strategy            string  `yaml:"strategy"`
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	MaxDistance         float64 `yaml:"maxDistance"`
}

// GeminiConfig contains generative model settings.
type GeminiConfig struct {
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embeddingModel"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the chat cache.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StorageConfig contains the S3-compatible endpoint for attachments.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	PublicBaseURL string `yaml:"publicBaseUrl"`
	MaxSizeBytes  int64  `yaml:"maxSizeBytes"`
}

// AdminConfig protects the knowledge base management endpoints.
type AdminConfig struct {
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	PasswordHash string        `yaml:"passwordHash"`
	JWTSecret    string        `yaml:"jwtSecret"`
	TokenTTL     time.Duration `yaml:"tokenTtl"`
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
	setString := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	setInt := func(target *int, key string) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				*target = parsed
			}
		}
	}
	setDuration := func(target *time.Duration, key string) {
		if v := os.Getenv(key); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil {
				*target = parsed
			}
		}
	}
	setBool := func(target *bool, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v == "1" || strings.EqualFold(v, "true")
		}
	}

	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitAndTrim(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")

	setString(&cfg.Chat.Mode, "CHAT_MODE")
	setInt(&cfg.Chat.MaxResults, "CHAT_MAX_RESULTS")
	setDuration(&cfg.Chat.CacheTTL, "CHAT_CACHE_TTL")
	setInt(&cfg.Chat.TopTrending, "CHAT_TOP_TRENDING")
	setDuration(&cfg.Chat.ModelTimeout, "CHAT_MODEL_TIMEOUT")
	setInt(&cfg.Chat.MaxAttempts, "CHAT_MAX_ATTEMPTS")
	setDuration(&cfg.Chat.RetryBackoff, "CHAT_RETRY_BACKOFF")

	setString(&cfg.Search.Strategy, "SEARCH_STRATEGY")
	if v := os.Getenv("SEARCH_SIMILARITY_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.SimilarityThreshold = parsed
		}
	}
	if v := os.Getenv("SEARCH_MAX_DISTANCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.MaxDistance = parsed
		}
	}

	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "GEMINI_MODEL")
	setString(&cfg.Gemini.EmbeddingModel, "GEMINI_EMBEDDING_MODEL")

	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}

	setBool(&cfg.Valkey.Enabled, "VALKEY_ENABLED")
	setString(&cfg.Valkey.Addr, "VALKEY_ADDR")

	setString(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")
	setString(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	setString(&cfg.Storage.Region, "STORAGE_REGION")
	setString(&cfg.Storage.PublicBaseURL, "STORAGE_PUBLIC_BASE_URL")

	setString(&cfg.Admin.Username, "ADMIN_USERNAME")
	setString(&cfg.Admin.Password, "ADMIN_PASSWORD")
	setString(&cfg.Admin.PasswordHash, "ADMIN_PASSWORD_HASH")
	setString(&cfg.Admin.JWTSecret, "JWT_SECRET")
	setDuration(&cfg.Admin.TokenTTL, "ADMIN_TOKEN_TTL")
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Chat: ChatConfig{
			Mode:         "generative",
			MaxResults:   3,
			CacheTTL:     6 * time.Hour,
			TopTrending:  10,
			ModelTimeout: 30 * time.Second,
			MaxAttempts:  3,
			RetryBackoff: 500 * time.Millisecond,
		},
		Search: SearchConfig{
			Strategy:            "trigram",
			SimilarityThreshold: 0.1,
			MaxDistance:         0.6,
		},
		Gemini: GeminiConfig{
			Model:          "gemini-1.5-flash",
			EmbeddingModel: "text-embedding-004",
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Storage: StorageConfig{
			Region:       "auto",
			MaxSizeBytes: 25 << 20,
		},
		Admin: AdminConfig{
			Username: "admin",
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use. Missing model
// credentials in generative mode fail here rather than deep inside a request.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	switch c.Chat.Mode {
	case "direct", "generative":
	default:
		return fmt.Errorf("chat.mode must be direct or generative, got %q", c.Chat.Mode)
	}
	if c.Chat.MaxResults <= 0 {
		return errors.New("chat.maxResults must be positive")
	}
	if c.Chat.CacheTTL < 0 {
		return errors.New("chat.cacheTtl cannot be negative")
	}
	switch c.Search.Strategy {
	case "trigram", "fulltext", "semantic":
	default:
		return fmt.Errorf("search.strategy must be trigram, fulltext or semantic, got %q", c.Search.Strategy)
	}
	if c.Search.SimilarityThreshold < 0 || c.Search.SimilarityThreshold >= 1 {
		return errors.New("search.similarityThreshold must be in [0, 1)")
	}
	needsGemini := c.Chat.Mode == "generative" || c.Search.Strategy == "semantic"
	if needsGemini && strings.TrimSpace(c.Gemini.APIKey) == "" {
		return errors.New("gemini.apiKey is required in generative mode or with the semantic strategy")
	}
	if needsGemini && strings.TrimSpace(c.Gemini.Model) == "" {
		return errors.New("gemini.model cannot be empty")
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when the valkey cache is enabled")
	}
	if strings.TrimSpace(c.Admin.JWTSecret) == "" {
		return errors.New("admin.jwtSecret cannot be empty")
	}
	if strings.TrimSpace(c.Admin.Password) == "" && strings.TrimSpace(c.Admin.PasswordHash) == "" {
		return errors.New("one of admin.password or admin.passwordHash must be set")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
