package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
	apperrors "github.com/hamyar-ai/hamyar/pkg/errors"
	"github.com/hamyar-ai/hamyar/pkg/metrics"
	"github.com/hamyar-ai/hamyar/pkg/persian"
)

// Service answers support questions grounded on the knowledge base.
type Service interface {
	Answer(ctx context.Context, req Request) (Response, error)
	Trending(ctx context.Context) ([]TrendingQuestion, error)
}

type service struct {
	cfg       Config
	repo      knowledge.Repository
	store     Store
	generator Generator
	logger    *slog.Logger
}

// NewService wires up the chat domain. generator may be nil when the service
// runs in direct mode.
func NewService(cfg Config, repo knowledge.Repository, store Store, generator Generator, logger *slog.Logger) Service {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = 30 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if !cfg.Mode.Valid() {
		cfg.Mode = ModeGenerative
	}
	return &service{
		cfg:       cfg,
		repo:      repo,
		store:     store,
		generator: generator,
		logger:    logger.With("component", "chat.service"),
	}
}

func (s *service) Answer(ctx context.Context, req Request) (Response, error) {
	question := persian.Normalize(req.Question)
	if question == "" {
		// A question that normalizes to nothing never reaches the retriever
		// or the trending counters.
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
	}

	if cached, ok := s.lookupCache(ctx, question); ok {
		go s.recordHits(cached.Sources)
		s.bumpTrending(ctx, question)
		return Response{
			Answer:  cached.Answer,
			Sources: ensureSources(cached.Sources),
			Mode:    s.cfg.Mode,
			Source:  "cache",
		}, nil
	}

	entries := s.findRelevantContext(ctx, question)

	var (
		answer string
		usage  *metrics.TokenUsage
		source string
	)
	switch s.cfg.Mode {
	case ModeDirect:
		source = "knowledge-base"
		if len(entries) == 0 {
			answer = notFoundMessage
		} else {
			answer = joinAnswers(entries)
		}
	default:
		if s.generator == nil {
			return Response{}, apperrors.Wrap(apperrors.CodeLLMNotConfigured, "generative model is not configured", nil)
		}
		source = "model"
		prompt := buildPrompt(buildContext(entries), question)
		var err error
		answer, usage, err = s.callModel(ctx, prompt)
		if err != nil {
			return Response{}, apperrors.Wrap(apperrors.CodeLLMError, "model call failed", err)
		}
	}

	go s.recordHits(entries)
	s.bumpTrending(ctx, question)
	if len(entries) > 0 {
		s.saveCache(ctx, question, answer, entries)
	}

	return Response{
		Answer:     answer,
		Sources:    ensureSources(entries),
		Mode:       s.cfg.Mode,
		Source:     source,
		TokenUsage: usage,
	}, nil
}

func (s *service) Trending(ctx context.Context) ([]TrendingQuestion, error) {
	items, err := s.store.TopQuestions(ctx, s.cfg.TopTrending)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreError, "failed to load trending questions", err)
	}
	return items, nil
}

// findRelevantContext queries the store for entries relevant to the question.
// Retrieval failures never surface to the caller; they degrade to no context.
func (s *service) findRelevantContext(ctx context.Context, question string) []knowledge.Entry {
	if strings.TrimSpace(question) == "" {
		return nil
	}
	matches, err := s.repo.SearchRelevant(ctx, question, s.cfg.MaxResults)
	if err != nil {
		s.logger.Error("context retrieval failed", "error", err)
		return nil
	}
	entries := make([]knowledge.Entry, 0, len(matches))
	for _, match := range matches {
		entries = append(entries, match.Entry)
	}
	return entries
}

// recordHits increments hit counters for entries used in an answer. It runs
// detached from the request path; failures are logged and otherwise ignored.
func (s *service) recordHits(entries []knowledge.Entry) {
	if len(entries) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, entry := range entries {
		if err := s.repo.IncrementHits(ctx, entry.ID); err != nil {
			s.logger.Warn("hit increment failed", "id", entry.ID, "error", err)
		}
	}
}

func (s *service) callModel(ctx context.Context, prompt string) (string, *metrics.TokenUsage, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := s.cfg.RetryBackoff * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return "", nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.ModelTimeout)
		answer, usage, err := s.generator.Generate(callCtx, systemInstruction, prompt)
		cancel()
		if err == nil {
			if strings.TrimSpace(answer) == "" {
				lastErr = errors.New("model returned an empty answer")
				continue
			}
			return answer, usage, nil
		}
		lastErr = err
		s.logger.Warn("model call failed", "attempt", attempt, "error", err)
	}
	return "", nil, lastErr
}

// cacheKey scopes cached answers to the assembly mode, so a direct answer is
// never replayed after switching to generative and vice versa.
func (s *service) cacheKey(question string) string {
	return string(s.cfg.Mode) + ":" + question
}

func (s *service) lookupCache(ctx context.Context, question string) (CachedAnswer, bool) {
	record, ok, err := s.store.GetAnswer(ctx, s.cacheKey(question))
	if err != nil {
		s.logger.Warn("answer cache lookup failed", "error", err)
		return CachedAnswer{}, false
	}
	return record, ok
}

func (s *service) saveCache(ctx context.Context, question, answer string, sources []knowledge.Entry) {
	record := CachedAnswer{
		Question:  question,
		Answer:    answer,
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveAnswer(ctx, s.cacheKey(question), record, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("answer cache save failed", "error", err)
	}
}

func (s *service) bumpTrending(ctx context.Context, question string) {
	if err := s.store.IncrementQuestion(ctx, question, question); err != nil {
		s.logger.Warn("trending increment failed", "error", err)
	}
}

func ensureSources(entries []knowledge.Entry) []knowledge.Entry {
	if entries == nil {
		return []knowledge.Entry{}
	}
	return entries
}
