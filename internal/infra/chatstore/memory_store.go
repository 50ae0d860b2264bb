package chatstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamyar-ai/hamyar/internal/domain/chat"
)

type cachedAnswer struct {
	payload   chat.CachedAnswer
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the chat store for tests/dev.
type MemoryStore struct {
	mu       sync.RWMutex
	answers  map[string]cachedAnswer
	trending map[string]int64
	displays map[string]string
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		answers:  make(map[string]cachedAnswer),
		trending: make(map[string]int64),
		displays: make(map[string]string),
	}
}

// GetAnswer implements chat.Store.
func (s *MemoryStore) GetAnswer(_ context.Context, key string) (chat.CachedAnswer, bool, error) {
	if key == "" {
		return chat.CachedAnswer{}, false, nil
	}
	s.mu.RLock()
	record, ok := s.answers[key]
	s.mu.RUnlock()
	if !ok {
		return chat.CachedAnswer{}, false, nil
	}
	if hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.answers, key)
		s.mu.Unlock()
		return chat.CachedAnswer{}, false, nil
	}
	return record.payload, true, nil
}

// SaveAnswer caches the answer with optional TTL.
func (s *MemoryStore) SaveAnswer(_ context.Context, key string, record chat.CachedAnswer, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.answers[key] = cachedAnswer{payload: record, expiresAt: exp}
	return nil
}

// IncrementQuestion bumps the counter for a canonical question.
func (s *MemoryStore) IncrementQuestion(_ context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trending[canonical]++
	if _, exists := s.displays[canonical]; !exists {
		s.displays[canonical] = display
	}
	return nil
}

// TopQuestions returns the most frequent canonical questions.
func (s *MemoryStore) TopQuestions(_ context.Context, limit int) ([]chat.TrendingQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = len(s.trending)
	}
	items := make([]chat.TrendingQuestion, 0, len(s.trending))
	for canonical, count := range s.trending {
		display := s.displays[canonical]
		if display == "" {
			display = canonical
		}
		items = append(items, chat.TrendingQuestion{Question: display, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Question < items[j].Question
		}
		return items[i].Count > items[j].Count
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(time.Now())
}

var _ chat.Store = (*MemoryStore)(nil)
