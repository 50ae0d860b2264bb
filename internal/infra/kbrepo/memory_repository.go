package kbrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
)

// MemoryRepository is an in-memory knowledge.Repository used for tests/dev.
// Relevance is approximated with a character-bigram Dice coefficient so the
// threshold and tie-break behavior mirror the trigram strategy.
type MemoryRepository struct {
	mu        sync.RWMutex
	entries   map[string]knowledge.Entry
	threshold float64
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		entries:   make(map[string]knowledge.Entry),
		threshold: 0.1,
	}
}

// List implements knowledge.Repository.
func (r *MemoryRepository) List(_ context.Context) ([]knowledge.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]knowledge.Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].NetLikes() != entries[j].NetLikes() {
			return entries[i].NetLikes() > entries[j].NetLikes()
		}
		if entries[i].Hits != entries[j].Hits {
			return entries[i].Hits > entries[j].Hits
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Get implements knowledge.Repository.
func (r *MemoryRepository) Get(_ context.Context, id string) (knowledge.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok, nil
}

// Insert implements knowledge.Repository.
func (r *MemoryRepository) Insert(_ context.Context, entry knowledge.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	return nil
}

// Update implements knowledge.Repository.
func (r *MemoryRepository) Update(_ context.Context, id string, fields knowledge.Fields) (knowledge.Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return knowledge.Entry{}, false, nil
	}
	entry.Question = fields.Question
	entry.Answer = fields.Answer
	entry.Type = fields.Type
	entry.System = fields.System
	entry.HasVideo = fields.HasVideo
	entry.HasDocument = fields.HasDocument
	entry.HasImage = fields.HasImage
	entry.VideoURL = fields.VideoURL
	entry.DocumentURL = fields.DocumentURL
	entry.ImageURL = fields.ImageURL
	entry.UpdatedAt = time.Now().UTC()
	r.entries[id] = entry
	return entry, true, nil
}

// Delete implements knowledge.Repository.
func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false, nil
	}
	delete(r.entries, id)
	return true, nil
}

// IncrementLikes implements knowledge.Repository.
func (r *MemoryRepository) IncrementLikes(_ context.Context, id string) (knowledge.Entry, bool, error) {
	return r.increment(id, func(e *knowledge.Entry) { e.Likes++ })
}

// IncrementDislikes implements knowledge.Repository.
func (r *MemoryRepository) IncrementDislikes(_ context.Context, id string) (knowledge.Entry, bool, error) {
	return r.increment(id, func(e *knowledge.Entry) { e.Dislikes++ })
}

// IncrementHits implements knowledge.Repository.
func (r *MemoryRepository) IncrementHits(_ context.Context, id string) error {
	_, _, err := r.increment(id, func(e *knowledge.Entry) { e.Hits++ })
	return err
}

func (r *MemoryRepository) increment(id string, bump func(*knowledge.Entry)) (knowledge.Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return knowledge.Entry{}, false, nil
	}
	bump(&entry)
	r.entries[id] = entry
	return entry, true, nil
}

// SearchRelevant implements knowledge.Repository.
func (r *MemoryRepository) SearchRelevant(_ context.Context, question string, limit int) ([]knowledge.ScoredEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]knowledge.ScoredEntry, 0)
	queryBigrams := bigrams(question)
	for _, entry := range r.entries {
		score := diceCoefficient(queryBigrams, bigrams(entry.Question))
		if score > r.threshold {
			matches = append(matches, knowledge.ScoredEntry{Entry: entry, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Entry.NetLikes() != matches[j].Entry.NetLikes() {
			return matches[i].Entry.NetLikes() > matches[j].Entry.NetLikes()
		}
		return matches[i].Entry.Hits > matches[j].Entry.Hits
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

func diceCoefficient(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var overlap, totalA, totalB int
	for gram, countA := range a {
		totalA += countA
		if countB, ok := b[gram]; ok {
			if countA < countB {
				overlap += countA
			} else {
				overlap += countB
			}
		}
	}
	for _, countB := range b {
		totalB += countB
	}
	return 2 * float64(overlap) / float64(totalA+totalB)
}

var _ knowledge.Repository = (*MemoryRepository)(nil)
