package chat

import (
	"context"
	"time"

	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
	"github.com/hamyar-ai/hamyar/pkg/metrics"
)

// Mode selects how answers are assembled from retrieved entries.
type Mode string

const (
	// ModeDirect returns stored answers verbatim, joined by a separator.
	ModeDirect Mode = "direct"
	// ModeGenerative grounds a generative model on the retrieved entries.
	ModeGenerative Mode = "generative"
)

// Valid reports whether the mode is supported.
func (m Mode) Valid() bool {
	return m == ModeDirect || m == ModeGenerative
}

// Request is a single chat turn from the widget.
type Request struct {
	Question string `json:"question"`
}

// Response carries the assembled answer and the entries that grounded it.
type Response struct {
	Answer     string              `json:"answer"`
	Sources    []knowledge.Entry   `json:"sources"`
	Mode       Mode                `json:"mode"`
	Source     string              `json:"source,omitempty"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// TrendingQuestion is a frequently asked question with its counter.
type TrendingQuestion struct {
	Question string `json:"question"`
	Count    int64  `json:"count"`
}

// CachedAnswer is the payload persisted in the answer cache, keyed by the
// normalized question.
type CachedAnswer struct {
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Sources   []knowledge.Entry `json:"sources"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Store defines the cache/trending persistence contract for chat data.
type Store interface {
	GetAnswer(ctx context.Context, key string) (CachedAnswer, bool, error)
	SaveAnswer(ctx context.Context, key string, record CachedAnswer, ttl time.Duration) error
	IncrementQuestion(ctx context.Context, canonical, display string) error
	TopQuestions(ctx context.Context, limit int) ([]TrendingQuestion, error)
}

// Generator invokes the external generative model. The returned usage may be
// nil when the provider reports no token metadata.
type Generator interface {
	Generate(ctx context.Context, systemInstruction, prompt string) (string, *metrics.TokenUsage, error)
}

// Config holds runtime knobs for the chat service.
type Config struct {
	Mode         Mode
	MaxResults   int
	CacheTTL     time.Duration
	TopTrending  int
	ModelTimeout time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}
