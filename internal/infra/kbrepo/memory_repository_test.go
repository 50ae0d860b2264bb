package kbrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
)

func seedEntry(t *testing.T, repo *MemoryRepository, entry knowledge.Entry) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), entry))
}

func TestMemoryRepository_SearchRelevantMatchesSimilarQuestions(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntry(t, repo, knowledge.Entry{ID: "kb-1", Question: "ساعت کاری شرکت چیست"})
	seedEntry(t, repo, knowledge.Entry{ID: "kb-2", Question: "نحوه پرداخت فاکتور"})

	matches, err := repo.SearchRelevant(context.Background(), "ساعت کاری", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "kb-1", matches[0].Entry.ID)
	require.Greater(t, matches[0].Score, 0.1)
}

func TestMemoryRepository_SearchRelevantHonorsLimit(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntry(t, repo, knowledge.Entry{ID: "kb-1", Question: "ساعت کاری شرکت"})
	seedEntry(t, repo, knowledge.Entry{ID: "kb-2", Question: "ساعت کاری پشتیبانی"})
	seedEntry(t, repo, knowledge.Entry{ID: "kb-3", Question: "ساعت کاری فروش"})

	matches, err := repo.SearchRelevant(context.Background(), "ساعت کاری", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestMemoryRepository_SearchRelevantBreaksTiesByNetLikes(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntry(t, repo, knowledge.Entry{ID: "kb-low", Question: "ساعت کاری شرکت", Likes: 2, Dislikes: 1})
	seedEntry(t, repo, knowledge.Entry{ID: "kb-high", Question: "ساعت کاری شرکت", Likes: 5})

	matches, err := repo.SearchRelevant(context.Background(), "ساعت کاری شرکت", 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "kb-high", matches[0].Entry.ID)
	require.Equal(t, "kb-low", matches[1].Entry.ID)
}

func TestMemoryRepository_SearchRelevantIgnoresUnrelated(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntry(t, repo, knowledge.Entry{ID: "kb-1", Question: "نحوه پرداخت فاکتور"})

	matches, err := repo.SearchRelevant(context.Background(), "گارانتی محصول", 5)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestMemoryRepository_ListOrdersByPopularity(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Now().UTC()
	seedEntry(t, repo, knowledge.Entry{ID: "kb-1", Question: "الف", Likes: 1, CreatedAt: now})
	seedEntry(t, repo, knowledge.Entry{ID: "kb-2", Question: "ب", Likes: 4, Dislikes: 1, CreatedAt: now})
	seedEntry(t, repo, knowledge.Entry{ID: "kb-3", Question: "ج", Likes: 1, Hits: 9, CreatedAt: now})

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "kb-2", entries[0].ID)
	require.Equal(t, "kb-3", entries[1].ID)
	require.Equal(t, "kb-1", entries[2].ID)
}

func TestMemoryRepository_CounterIncrements(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntry(t, repo, knowledge.Entry{ID: "kb-1", Question: "سوال"})

	entry, found, err := repo.IncrementLikes(context.Background(), "kb-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(1), entry.Likes)

	entry, found, err = repo.IncrementDislikes(context.Background(), "kb-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(1), entry.Dislikes)

	require.NoError(t, repo.IncrementHits(context.Background(), "kb-1"))
	entry, found, err = repo.Get(context.Background(), "kb-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(1), entry.Hits)

	_, found, err = repo.IncrementLikes(context.Background(), "kb-missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryRepository_UpdateAndDelete(t *testing.T) {
	repo := NewMemoryRepository()
	seedEntry(t, repo, knowledge.Entry{ID: "kb-1", Question: "قدیمی", Answer: "قدیمی"})

	entry, found, err := repo.Update(context.Background(), "kb-1", knowledge.Fields{
		Question: "جدید",
		Answer:   "جدید",
		Type:     knowledge.TypeGeneral,
		System:   "سیستم",
	})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "جدید", entry.Question)

	found, err = repo.Delete(context.Background(), "kb-1")
	require.NoError(t, err)
	require.True(t, found)

	found, err = repo.Delete(context.Background(), "kb-1")
	require.NoError(t, err)
	require.False(t, found)
}
