package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
	apperrors "github.com/hamyar-ai/hamyar/pkg/errors"
	"github.com/hamyar-ai/hamyar/pkg/metrics"
)

func TestService_AnswerDirectModeJoinsStoredAnswers(t *testing.T) {
	repo := &stubRepo{results: []knowledge.ScoredEntry{
		{Entry: knowledge.Entry{ID: "kb-1", Question: "ساعت کاری", Answer: "از ۸ تا ۱۶"}, Score: 0.9},
		{Entry: knowledge.Entry{ID: "kb-2", Question: "ساعت کاری پشتیبانی", Answer: "شبانه‌روزی"}, Score: 0.5},
	}}
	svc := NewService(Config{Mode: ModeDirect}, repo, newStubStore(), nil, newTestLogger())

	resp, err := svc.Answer(context.Background(), Request{Question: "ساعت کاری شرکت"})
	require.NoError(t, err)
	require.Equal(t, "از ۸ تا ۱۶\n\n---\n\nشبانه‌روزی", resp.Answer)
	require.Equal(t, ModeDirect, resp.Mode)
	require.Equal(t, "knowledge-base", resp.Source)
	require.Len(t, resp.Sources, 2)
}

func TestService_AnswerDirectModeNoMatches(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(Config{Mode: ModeDirect}, repo, newStubStore(), nil, newTestLogger())

	resp, err := svc.Answer(context.Background(), Request{Question: "سوال بی‌ربط"})
	require.NoError(t, err)
	require.Equal(t, notFoundMessage, resp.Answer)
	require.NotNil(t, resp.Sources)
	require.Empty(t, resp.Sources)
}

func TestService_AnswerEmptyQuestion(t *testing.T) {
	repo := &stubRepo{}
	store := newStubStore()
	svc := NewService(Config{Mode: ModeDirect}, repo, store, nil, newTestLogger())

	_, err := svc.Answer(context.Background(), Request{Question: "  ‌  "})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Zero(t, repo.searchCalls())
	require.Zero(t, store.getCalls())
}

func TestService_AnswerGenerativeGroundsPrompt(t *testing.T) {
	repo := &stubRepo{results: []knowledge.ScoredEntry{
		{Entry: knowledge.Entry{ID: "kb-1", Question: "نحوه بازگشت کالا", Answer: "از پنل کاربری اقدام کنید"}, Score: 0.8},
	}}
	gen := &stubGenerator{answer: "برای بازگشت کالا از پنل کاربری اقدام کنید.", usage: &metrics.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}
	svc := NewService(Config{Mode: ModeGenerative}, repo, newStubStore(), gen, newTestLogger())

	resp, err := svc.Answer(context.Background(), Request{Question: "چطور کالا را برگردانم؟"})
	require.NoError(t, err)
	require.Equal(t, gen.answer, resp.Answer)
	require.Equal(t, "model", resp.Source)
	require.NotNil(t, resp.TokenUsage)
	require.Equal(t, 15, resp.TokenUsage.TotalTokens)

	require.Contains(t, gen.lastPrompt(), "نحوه بازگشت کالا")
	require.Contains(t, gen.lastPrompt(), "از پنل کاربری اقدام کنید")
	require.Contains(t, gen.lastPrompt(), "سوال کاربر:")
	require.Contains(t, gen.lastInstruction(), "همیار")
}

func TestService_AnswerGenerativeWithoutContextUsesPlaceholder(t *testing.T) {
	gen := &stubGenerator{answer: "اطلاعات کافی ندارم."}
	svc := NewService(Config{Mode: ModeGenerative}, &stubRepo{}, newStubStore(), gen, newTestLogger())

	resp, err := svc.Answer(context.Background(), Request{Question: "سوالی خارج از دانش"})
	require.NoError(t, err)
	require.Equal(t, gen.answer, resp.Answer)
	require.Contains(t, gen.lastPrompt(), noContextPlaceholder)
}

func TestService_AnswerGenerativeWithoutGenerator(t *testing.T) {
	svc := NewService(Config{Mode: ModeGenerative}, &stubRepo{}, newStubStore(), nil, newTestLogger())

	_, err := svc.Answer(context.Background(), Request{Question: "سوال"})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeLLMNotConfigured))
}

func TestService_AnswerGenerativeModelFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exceeded")}
	svc := NewService(Config{Mode: ModeGenerative}, &stubRepo{}, newStubStore(), gen, newTestLogger())

	_, err := svc.Answer(context.Background(), Request{Question: "سوال"})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeLLMError))
}

func TestService_AnswerRetriesModelOnce(t *testing.T) {
	gen := &stubGenerator{answer: "پاسخ", failFirst: 1}
	svc := NewService(Config{
		Mode:         ModeGenerative,
		MaxAttempts:  2,
		RetryBackoff: time.Millisecond,
	}, &stubRepo{}, newStubStore(), gen, newTestLogger())

	resp, err := svc.Answer(context.Background(), Request{Question: "سوال"})
	require.NoError(t, err)
	require.Equal(t, "پاسخ", resp.Answer)
	require.Equal(t, 2, gen.calls())
}

func TestService_AnswerRetrievalFailureDegrades(t *testing.T) {
	repo := &stubRepo{searchErr: errors.New("connection refused")}
	svc := NewService(Config{Mode: ModeDirect}, repo, newStubStore(), nil, newTestLogger())

	resp, err := svc.Answer(context.Background(), Request{Question: "ساعت کاری"})
	require.NoError(t, err)
	require.Equal(t, notFoundMessage, resp.Answer)
}

func TestService_AnswerRecordsHitsAsync(t *testing.T) {
	repo := &stubRepo{results: []knowledge.ScoredEntry{
		{Entry: knowledge.Entry{ID: "kb-1", Question: "س", Answer: "پ"}, Score: 0.7},
	}}
	svc := NewService(Config{Mode: ModeDirect}, repo, newStubStore(), nil, newTestLogger())

	_, err := svc.Answer(context.Background(), Request{Question: "سوال"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return repo.hitCount("kb-1") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestService_AnswerCacheHit(t *testing.T) {
	repo := &stubRepo{results: []knowledge.ScoredEntry{
		{Entry: knowledge.Entry{ID: "kb-1", Question: "ساعت کاری", Answer: "از ۸ تا ۱۶"}, Score: 0.9},
	}}
	store := newStubStore()
	svc := NewService(Config{Mode: ModeDirect, CacheTTL: time.Minute}, repo, store, nil, newTestLogger())

	first, err := svc.Answer(context.Background(), Request{Question: "ساعت کاری"})
	require.NoError(t, err)
	require.Equal(t, "knowledge-base", first.Source)

	// ZWNJ variant normalizes to the same cache key
	second, err := svc.Answer(context.Background(), Request{Question: "ساعت‌کاری"})
	require.NoError(t, err)
	require.Equal(t, first.Answer, second.Answer)
	require.Equal(t, "cache", second.Source)
	require.Equal(t, 1, repo.searchCalls())
	require.Eventually(t, func() bool {
		return repo.hitCount("kb-1") == 2
	}, time.Second, 10*time.Millisecond)
}

func TestService_CacheIsModeScoped(t *testing.T) {
	repo := &stubRepo{results: []knowledge.ScoredEntry{
		{Entry: knowledge.Entry{ID: "kb-1", Question: "ساعت کاری", Answer: "از ۸ تا ۱۶"}, Score: 0.9},
	}}
	store := newStubStore()

	direct := NewService(Config{Mode: ModeDirect, CacheTTL: time.Minute}, repo, store, nil, newTestLogger())
	_, err := direct.Answer(context.Background(), Request{Question: "ساعت کاری"})
	require.NoError(t, err)

	gen := &stubGenerator{answer: "پاسخ مدل"}
	generative := NewService(Config{Mode: ModeGenerative, CacheTTL: time.Minute}, repo, store, gen, newTestLogger())
	resp, err := generative.Answer(context.Background(), Request{Question: "ساعت کاری"})
	require.NoError(t, err)
	require.Equal(t, "model", resp.Source)
	require.Equal(t, "پاسخ مدل", resp.Answer)
	require.Equal(t, 1, gen.calls())
}

func TestNewService_AppliesDefaults(t *testing.T) {
	svc := NewService(Config{Mode: "bogus"}, &stubRepo{}, newStubStore(), nil, newTestLogger())
	s, ok := svc.(*service)
	require.True(t, ok)
	require.Equal(t, ModeGenerative, s.cfg.Mode)
	require.Equal(t, 3, s.cfg.MaxResults)
	require.Equal(t, 1, s.cfg.MaxAttempts)
	require.Equal(t, 30*time.Second, s.cfg.ModelTimeout)
	require.Equal(t, 500*time.Millisecond, s.cfg.RetryBackoff)
}

func TestService_AnswerCachesOnlyGroundedAnswers(t *testing.T) {
	store := newStubStore()
	svc := NewService(Config{Mode: ModeDirect, CacheTTL: time.Minute}, &stubRepo{}, store, nil, newTestLogger())

	_, err := svc.Answer(context.Background(), Request{Question: "سوال بدون زمینه"})
	require.NoError(t, err)
	require.Zero(t, store.saveCalls())
}

func TestService_AnswerBumpsTrending(t *testing.T) {
	store := newStubStore()
	svc := NewService(Config{Mode: ModeDirect, TopTrending: 5}, &stubRepo{}, store, nil, newTestLogger())

	for i := 0; i < 3; i++ {
		_, err := svc.Answer(context.Background(), Request{Question: "ساعت کاری"})
		require.NoError(t, err)
	}
	_, err := svc.Answer(context.Background(), Request{Question: "آدرس شرکت"})
	require.NoError(t, err)

	items, err := svc.Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "ساعت کاری", items[0].Question)
	require.Equal(t, int64(3), items[0].Count)
}

func TestBuildContext(t *testing.T) {
	require.Equal(t, noContextPlaceholder, buildContext(nil))

	got := buildContext([]knowledge.Entry{
		{Question: "س۱", Answer: "پ۱"},
		{Question: "س۲", Answer: "پ۲"},
	})
	require.Equal(t, "سوال: س۱\nپاسخ: پ۱\n---\nسوال: س۲\nپاسخ: پ۲", got)
}

func TestBuildPrompt(t *testing.T) {
	got := buildPrompt("زمینه آزمایشی", "سوال آزمایشی")
	require.True(t, strings.HasPrefix(got, "زمینه:\n"))
	require.Contains(t, got, "زمینه آزمایشی")
	require.True(t, strings.HasSuffix(got, "سوال کاربر: سوال آزمایشی"))
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubRepo struct {
	mu        sync.Mutex
	results   []knowledge.ScoredEntry
	searchErr error
	searches  int
	hits      map[string]int
}

func (r *stubRepo) SearchRelevant(_ context.Context, _ string, limit int) ([]knowledge.ScoredEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches++
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	if limit > 0 && len(r.results) > limit {
		return r.results[:limit], nil
	}
	return r.results, nil
}

func (r *stubRepo) IncrementHits(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hits == nil {
		r.hits = make(map[string]int)
	}
	r.hits[id]++
	return nil
}

func (r *stubRepo) searchCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.searches
}

func (r *stubRepo) hitCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[id]
}

func (r *stubRepo) List(_ context.Context) ([]knowledge.Entry, error) { return nil, nil }
func (r *stubRepo) Get(_ context.Context, _ string) (knowledge.Entry, bool, error) {
	return knowledge.Entry{}, false, nil
}
func (r *stubRepo) Insert(_ context.Context, _ knowledge.Entry) error { return nil }
func (r *stubRepo) Update(_ context.Context, _ string, _ knowledge.Fields) (knowledge.Entry, bool, error) {
	return knowledge.Entry{}, false, nil
}
func (r *stubRepo) Delete(_ context.Context, _ string) (bool, error) { return false, nil }
func (r *stubRepo) IncrementLikes(_ context.Context, _ string) (knowledge.Entry, bool, error) {
	return knowledge.Entry{}, false, nil
}
func (r *stubRepo) IncrementDislikes(_ context.Context, _ string) (knowledge.Entry, bool, error) {
	return knowledge.Entry{}, false, nil
}

var _ knowledge.Repository = (*stubRepo)(nil)

type stubStore struct {
	mu       sync.Mutex
	answers  map[string]CachedAnswer
	trending map[string]int64
	gets     int
	saves    int
}

func newStubStore() *stubStore {
	return &stubStore{
		answers:  make(map[string]CachedAnswer),
		trending: make(map[string]int64),
	}
}

func (s *stubStore) GetAnswer(_ context.Context, key string) (CachedAnswer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	record, ok := s.answers[key]
	return record, ok, nil
}

func (s *stubStore) SaveAnswer(_ context.Context, key string, record CachedAnswer, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.answers[key] = record
	return nil
}

func (s *stubStore) IncrementQuestion(_ context.Context, canonical, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trending[canonical]++
	return nil
}

func (s *stubStore) TopQuestions(_ context.Context, limit int) ([]TrendingQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]TrendingQuestion, 0, len(s.trending))
	for question, count := range s.trending {
		items = append(items, TrendingQuestion{Question: question, Count: count})
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[j].Count > items[i].Count {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *stubStore) getCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func (s *stubStore) saveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var _ Store = (*stubStore)(nil)

type stubGenerator struct {
	mu          sync.Mutex
	answer      string
	usage       *metrics.TokenUsage
	err         error
	failFirst   int
	attempts    int
	prompt      string
	instruction string
}

func (g *stubGenerator) Generate(_ context.Context, systemInstruction, prompt string) (string, *metrics.TokenUsage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts++
	g.prompt = prompt
	g.instruction = systemInstruction
	if g.err != nil {
		return "", nil, g.err
	}
	if g.attempts <= g.failFirst {
		return "", nil, errors.New("temporary upstream failure")
	}
	return g.answer, g.usage, nil
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

func (g *stubGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompt
}

func (g *stubGenerator) lastInstruction() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.instruction
}

var _ Generator = (*stubGenerator)(nil)
