package knowledge_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
	"github.com/hamyar-ai/hamyar/internal/infra/kbrepo"
	apperrors "github.com/hamyar-ai/hamyar/pkg/errors"
)

func newTestService() knowledge.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return knowledge.NewService(kbrepo.NewMemoryRepository(), logger)
}

func TestService_CreateNormalizesAndInitializesCounters(t *testing.T) {
	svc := newTestService()

	entry, err := svc.Create(context.Background(), knowledge.Fields{
		Question: "كيفيت   محصول", // Arabic kaf and yeh plus doubled spaces
		Answer:   "پاسخ تستي",
		Type:     knowledge.TypeSupport,
		System:   "فروشگاه",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(entry.ID, "kb-"))
	require.Equal(t, "کیفیت محصول", entry.Question)
	require.Equal(t, "پاسخ تستی", entry.Answer)
	require.Zero(t, entry.Likes)
	require.Zero(t, entry.Dislikes)
	require.Zero(t, entry.Hits)
	require.False(t, entry.CreatedAt.IsZero())
	require.Equal(t, entry.CreatedAt, entry.UpdatedAt)
}

func TestService_CreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService()
	base := knowledge.Fields{
		Question: "سوال",
		Answer:   "پاسخ",
		Type:     knowledge.TypeGeneral,
		System:   "سیستم",
	}

	tests := []struct {
		name   string
		mutate func(f *knowledge.Fields)
	}{
		{"empty question", func(f *knowledge.Fields) { f.Question = " ‌ " }},
		{"empty answer", func(f *knowledge.Fields) { f.Answer = "" }},
		{"empty system", func(f *knowledge.Fields) { f.System = "" }},
		{"unknown type", func(f *knowledge.Fields) { f.Type = "marketing" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fields := base
			tc.mutate(&fields)
			_, err := svc.Create(context.Background(), fields)
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
		})
	}
}

func TestService_UpdateReplacesContent(t *testing.T) {
	svc := newTestService()
	entry, err := svc.Create(context.Background(), knowledge.Fields{
		Question: "سوال قدیمی",
		Answer:   "پاسخ قدیمی",
		Type:     knowledge.TypeSupport,
		System:   "سیستم",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), entry.ID, knowledge.Fields{
		Question: "سوال جدید",
		Answer:   "پاسخ جدید",
		Type:     knowledge.TypeSales,
		System:   "سیستم",
	})
	require.NoError(t, err)
	require.Equal(t, entry.ID, updated.ID)
	require.Equal(t, "سوال جدید", updated.Question)
	require.Equal(t, knowledge.TypeSales, updated.Type)
}

func TestService_UpdateMissingEntry(t *testing.T) {
	svc := newTestService()
	_, err := svc.Update(context.Background(), "kb-missing", knowledge.Fields{
		Question: "سوال",
		Answer:   "پاسخ",
		Type:     knowledge.TypeGeneral,
		System:   "سیستم",
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestService_DeleteLifecycle(t *testing.T) {
	svc := newTestService()
	entry, err := svc.Create(context.Background(), knowledge.Fields{
		Question: "سوال",
		Answer:   "پاسخ",
		Type:     knowledge.TypeGeneral,
		System:   "سیستم",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), entry.ID))

	err = svc.Delete(context.Background(), entry.ID)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestService_FeedbackCounters(t *testing.T) {
	svc := newTestService()
	entry, err := svc.Create(context.Background(), knowledge.Fields{
		Question: "سوال",
		Answer:   "پاسخ",
		Type:     knowledge.TypeGeneral,
		System:   "سیستم",
	})
	require.NoError(t, err)

	liked, err := svc.Like(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), liked.Likes)

	liked, err = svc.Like(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), liked.Likes)

	disliked, err := svc.Dislike(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), disliked.Dislikes)
	require.Equal(t, int64(1), disliked.NetLikes())

	_, err = svc.Like(context.Background(), "kb-missing")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
