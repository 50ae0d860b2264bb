package upload

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hamyar-ai/hamyar/pkg/errors"
)

// StoredObject describes an uploaded attachment.
type StoredObject struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// ObjectStorage persists attachment bytes and returns their public location.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredObject, error)
}

// Config limits accepted uploads.
type Config struct {
	MaxSizeBytes int64
}

// Service stores entry attachments (videos, documents, images).
type Service interface {
	Upload(ctx context.Context, filename, mimeType string, data []byte) (StoredObject, error)
}

type service struct {
	cfg     Config
	storage ObjectStorage
	logger  *slog.Logger
}

// NewService wires up the upload domain.
func NewService(cfg Config, storage ObjectStorage, logger *slog.Logger) Service {
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = 25 << 20
	}
	return &service{cfg: cfg, storage: storage, logger: logger.With("component", "upload.service")}
}

func (s *service) Upload(ctx context.Context, filename, mimeType string, data []byte) (StoredObject, error) {
	if len(data) == 0 {
		return StoredObject{}, apperrors.Wrap(apperrors.CodeInvalidInput, "file cannot be empty", nil)
	}
	if int64(len(data)) > s.cfg.MaxSizeBytes {
		return StoredObject{}, apperrors.Wrap(apperrors.CodeInvalidInput, "file exceeds the size limit", nil)
	}
	if !allowedMimeType(mimeType) {
		return StoredObject{}, apperrors.Wrap(apperrors.CodeInvalidInput, "unsupported file type", nil)
	}

	key := time.Now().UTC().Format("2006/01/02") + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	object, err := s.storage.Put(ctx, key, data, mimeType)
	if err != nil {
		return StoredObject{}, apperrors.Wrap(apperrors.CodeStoreError, "failed to store attachment", err)
	}
	s.logger.Info("attachment stored", "key", object.Key, "size", object.Size)
	return object, nil
}

func allowedMimeType(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return true
	case strings.HasPrefix(mimeType, "video/"):
		return true
	case mimeType == "application/pdf":
		return true
	}
	return false
}
