package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/hamyar-ai/hamyar/pkg/errors"
	"github.com/hamyar-ai/hamyar/pkg/persian"
)

// Service exposes CRUD and feedback operations over the knowledge base.
type Service interface {
	List(ctx context.Context) ([]Entry, error)
	Create(ctx context.Context, fields Fields) (Entry, error)
	Update(ctx context.Context, id string, fields Fields) (Entry, error)
	Delete(ctx context.Context, id string) error
	Like(ctx context.Context, id string) (Entry, error)
	Dislike(ctx context.Context, id string) (Entry, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires up the knowledge domain.
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With("component", "knowledge.service"),
		now:    time.Now,
	}
}

func (s *service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreError, "failed to list entries", err)
	}
	return entries, nil
}

func (s *service) Create(ctx context.Context, fields Fields) (Entry, error) {
	normalized, err := sanitizeFields(fields)
	if err != nil {
		return Entry{}, err
	}

	now := s.now().UTC()
	entry := Entry{
		ID:          fmt.Sprintf("kb-%d", now.UnixMilli()),
		Question:    normalized.Question,
		Answer:      normalized.Answer,
		Type:        normalized.Type,
		System:      normalized.System,
		HasVideo:    normalized.HasVideo,
		HasDocument: normalized.HasDocument,
		HasImage:    normalized.HasImage,
		VideoURL:    normalized.VideoURL,
		DocumentURL: normalized.DocumentURL,
		ImageURL:    normalized.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to create entry", err)
	}
	s.logger.Info("entry created", "id", entry.ID, "type", entry.Type, "system", entry.System)
	return entry, nil
}

func (s *service) Update(ctx context.Context, id string, fields Fields) (Entry, error) {
	normalized, err := sanitizeFields(fields)
	if err != nil {
		return Entry{}, err
	}
	entry, found, err := s.repo.Update(ctx, id, normalized)
	if err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to update entry", err)
	}
	if !found {
		return Entry{}, apperrors.Wrap(apperrors.CodeNotFound, "entry not found", nil)
	}
	return entry, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreError, "failed to delete entry", err)
	}
	if !found {
		return apperrors.Wrap(apperrors.CodeNotFound, "entry not found", nil)
	}
	s.logger.Info("entry deleted", "id", id)
	return nil
}

func (s *service) Like(ctx context.Context, id string) (Entry, error) {
	entry, found, err := s.repo.IncrementLikes(ctx, id)
	if err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to record like", err)
	}
	if !found {
		return Entry{}, apperrors.Wrap(apperrors.CodeNotFound, "entry not found", nil)
	}
	return entry, nil
}

func (s *service) Dislike(ctx context.Context, id string) (Entry, error) {
	entry, found, err := s.repo.IncrementDislikes(ctx, id)
	if err != nil {
		return Entry{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to record dislike", err)
	}
	if !found {
		return Entry{}, apperrors.Wrap(apperrors.CodeNotFound, "entry not found", nil)
	}
	return entry, nil
}

// sanitizeFields normalizes text content at the write boundary and validates
// required fields. Attachment URLs are trimmed but flag/URL consistency is
// deliberately not enforced.
func sanitizeFields(fields Fields) (Fields, error) {
	fields.Question = persian.Normalize(fields.Question)
	fields.Answer = persian.Normalize(fields.Answer)
	fields.System = persian.Normalize(fields.System)
	fields.VideoURL = persian.Normalize(fields.VideoURL)
	fields.DocumentURL = persian.Normalize(fields.DocumentURL)
	fields.ImageURL = persian.Normalize(fields.ImageURL)

	if fields.Question == "" {
		return Fields{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
	}
	if fields.Answer == "" {
		return Fields{}, apperrors.Wrap(apperrors.CodeInvalidInput, "answer cannot be empty", nil)
	}
	if fields.System == "" {
		return Fields{}, apperrors.Wrap(apperrors.CodeInvalidInput, "system cannot be empty", nil)
	}
	if !fields.Type.Valid() {
		return Fields{}, apperrors.Wrap(apperrors.CodeInvalidInput, "type must be one of support, sales, general", nil)
	}
	return fields, nil
}
