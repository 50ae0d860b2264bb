package kbrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/hamyar-ai/hamyar/internal/domain/knowledge"
)

// Strategy names a relevance ranking implementation.
type Strategy string

const (
	// StrategyTrigram filters on pg_trgm similarity above a threshold.
	StrategyTrigram Strategy = "trigram"
	// StrategyFulltext ranks tsvector matches with ts_rank.
	StrategyFulltext Strategy = "fulltext"
	// StrategySemantic orders by pgvector distance to an embedding.
	StrategySemantic Strategy = "semantic"
)

// Options tune the Postgres repository.
type Options struct {
	Strategy            Strategy
	SimilarityThreshold float64
	MaxDistance         float64
	Embedder            knowledge.Embedder
}

// db is the subset of pgxpool.Pool the repository uses.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements knowledge.Repository using pgx.
type PostgresRepository struct {
	pool   db
	opts   Options
	logger *slog.Logger
}

const entryColumns = `id, question, answer, type, system,
		has_video, has_document, has_image, video_url, document_url, image_url,
		likes, dislikes, hits, created_at, updated_at`

// NewPostgresRepository constructs the repository and applies the schema.
func NewPostgresRepository(ctx context.Context, pool db, opts Options, logger *slog.Logger) (*PostgresRepository, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyTrigram
	}
	if opts.Strategy == StrategySemantic && opts.Embedder == nil {
		return nil, errors.New("semantic strategy requires an embedder")
	}
	if logger == nil {
		logger = slog.Default()
	}
	repo := &PostgresRepository{pool: pool, opts: opts, logger: logger.With("component", "kbrepo.postgres")}
	if err := repo.migrate(ctx); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return repo, nil
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		`CREATE TABLE IF NOT EXISTS knowledge_entries (
			id           TEXT PRIMARY KEY,
			question     TEXT NOT NULL,
			answer       TEXT NOT NULL,
			type         TEXT NOT NULL,
			system       TEXT NOT NULL,
			has_video    BOOLEAN NOT NULL DEFAULT FALSE,
			has_document BOOLEAN NOT NULL DEFAULT FALSE,
			has_image    BOOLEAN NOT NULL DEFAULT FALSE,
			video_url    TEXT NOT NULL DEFAULT '',
			document_url TEXT NOT NULL DEFAULT '',
			image_url    TEXT NOT NULL DEFAULT '',
			likes        BIGINT NOT NULL DEFAULT 0,
			dislikes     BIGINT NOT NULL DEFAULT 0,
			hits         BIGINT NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kb_question_trgm
			ON knowledge_entries USING gin (question gin_trgm_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_kb_fts
			ON knowledge_entries USING gin (to_tsvector('simple', question || ' ' || answer))`,
	}
	if r.opts.Strategy == StrategySemantic {
		statements = append(statements,
			`CREATE EXTENSION IF NOT EXISTS vector`,
			`ALTER TABLE knowledge_entries ADD COLUMN IF NOT EXISTS embedding vector(768)`,
		)
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// List returns all entries ordered by net likes, hits, recency.
func (r *PostgresRepository) List(ctx context.Context) ([]knowledge.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM knowledge_entries
		ORDER BY (likes - dislikes) DESC, hits DESC, created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]knowledge.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get fetches one entry by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (knowledge.Entry, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM knowledge_entries
		WHERE id = $1
	`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return knowledge.Entry{}, false, nil
	}
	if err != nil {
		return knowledge.Entry{}, false, err
	}
	return entry, true, nil
}

// Insert persists a new entry, embedding its question when the semantic
// strategy is active.
func (r *PostgresRepository) Insert(ctx context.Context, entry knowledge.Entry) error {
	if r.opts.Strategy == StrategySemantic {
		embedding, err := r.opts.Embedder.Embed(ctx, entry.Question)
		if err != nil {
			return fmt.Errorf("embed question: %w", err)
		}
		_, err = r.pool.Exec(ctx, `
			INSERT INTO knowledge_entries (
				id, question, answer, type, system,
				has_video, has_document, has_image, video_url, document_url, image_url,
				created_at, updated_at, embedding
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, entry.ID, entry.Question, entry.Answer, string(entry.Type), entry.System,
			entry.HasVideo, entry.HasDocument, entry.HasImage,
			entry.VideoURL, entry.DocumentURL, entry.ImageURL,
			entry.CreatedAt, entry.UpdatedAt, pgvector.NewVector(embedding))
		return err
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO knowledge_entries (
			id, question, answer, type, system,
			has_video, has_document, has_image, video_url, document_url, image_url,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, entry.ID, entry.Question, entry.Answer, string(entry.Type), entry.System,
		entry.HasVideo, entry.HasDocument, entry.HasImage,
		entry.VideoURL, entry.DocumentURL, entry.ImageURL,
		entry.CreatedAt, entry.UpdatedAt)
	return err
}

// Update replaces all content fields; counters are untouched.
func (r *PostgresRepository) Update(ctx context.Context, id string, fields knowledge.Fields) (knowledge.Entry, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE knowledge_entries SET
			question = $2, answer = $3, type = $4, system = $5,
			has_video = $6, has_document = $7, has_image = $8,
			video_url = $9, document_url = $10, image_url = $11,
			updated_at = now()
		WHERE id = $1
		RETURNING `+entryColumns+`
	`, id, fields.Question, fields.Answer, string(fields.Type), fields.System,
		fields.HasVideo, fields.HasDocument, fields.HasImage,
		fields.VideoURL, fields.DocumentURL, fields.ImageURL)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return knowledge.Entry{}, false, nil
	}
	if err != nil {
		return knowledge.Entry{}, false, err
	}
	if r.opts.Strategy == StrategySemantic {
		// A stale embedding is tolerable; a silent one is not.
		if err := r.refreshEmbedding(ctx, id, fields.Question); err != nil {
			r.logger.Warn("embedding refresh failed", "id", id, "error", err)
		}
	}
	return entry, true, nil
}

func (r *PostgresRepository) refreshEmbedding(ctx context.Context, id, question string) error {
	embedding, err := r.opts.Embedder.Embed(ctx, question)
	if err != nil {
		return fmt.Errorf("embed question: %w", err)
	}
	if _, err := r.pool.Exec(ctx, `UPDATE knowledge_entries SET embedding = $2 WHERE id = $1`,
		id, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}

// Delete removes an entry by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM knowledge_entries WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementLikes atomically bumps the like counter.
func (r *PostgresRepository) IncrementLikes(ctx context.Context, id string) (knowledge.Entry, bool, error) {
	return r.incrementCounter(ctx, id, "likes")
}

// IncrementDislikes atomically bumps the dislike counter.
func (r *PostgresRepository) IncrementDislikes(ctx context.Context, id string) (knowledge.Entry, bool, error) {
	return r.incrementCounter(ctx, id, "dislikes")
}

func (r *PostgresRepository) incrementCounter(ctx context.Context, id, column string) (knowledge.Entry, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE knowledge_entries SET `+column+` = `+column+` + 1
		WHERE id = $1
		RETURNING `+entryColumns+`
	`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return knowledge.Entry{}, false, nil
	}
	if err != nil {
		return knowledge.Entry{}, false, err
	}
	return entry, true, nil
}

// IncrementHits atomically bumps the hit counter. A missing id is not an error.
func (r *PostgresRepository) IncrementHits(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE knowledge_entries SET hits = hits + 1 WHERE id = $1`, id)
	return err
}

// SearchRelevant runs the configured ranking strategy. Relevance dominates;
// net likes and hits only break ties among equally relevant entries.
func (r *PostgresRepository) SearchRelevant(ctx context.Context, question string, limit int) ([]knowledge.ScoredEntry, error) {
	switch r.opts.Strategy {
	case StrategyFulltext:
		return r.searchFulltext(ctx, question, limit)
	case StrategySemantic:
		return r.searchSemantic(ctx, question, limit)
	default:
		return r.searchTrigram(ctx, question, limit)
	}
}

func (r *PostgresRepository) searchTrigram(ctx context.Context, question string, limit int) ([]knowledge.ScoredEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`, similarity(question, $1) AS score
		FROM knowledge_entries
		WHERE similarity(question, $1) > $2
		ORDER BY score DESC, (likes - dislikes) DESC, hits DESC
		LIMIT $3
	`, question, r.opts.SimilarityThreshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScored(rows)
}

func (r *PostgresRepository) searchFulltext(ctx context.Context, question string, limit int) ([]knowledge.ScoredEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`,
			ts_rank(to_tsvector('simple', question || ' ' || answer), plainto_tsquery('simple', $1)) AS score
		FROM knowledge_entries
		WHERE to_tsvector('simple', question || ' ' || answer) @@ plainto_tsquery('simple', $1)
		ORDER BY score DESC, (likes - dislikes) DESC, hits DESC
		LIMIT $2
	`, question, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScored(rows)
}

func (r *PostgresRepository) searchSemantic(ctx context.Context, question string, limit int) ([]knowledge.ScoredEntry, error) {
	embedding, err := r.opts.Embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`, 1 / (1 + (embedding <-> $1)) AS score
		FROM knowledge_entries
		WHERE embedding IS NOT NULL AND (embedding <-> $1) <= $2
		ORDER BY embedding <-> $1 ASC, (likes - dislikes) DESC, hits DESC
		LIMIT $3
	`, pgvector.NewVector(embedding), r.opts.MaxDistance, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScored(rows)
}

func collectScored(rows pgx.Rows) ([]knowledge.ScoredEntry, error) {
	matches := make([]knowledge.ScoredEntry, 0)
	for rows.Next() {
		var score float64
		entry, err := scanEntry(rows, &score)
		if err != nil {
			return nil, err
		}
		matches = append(matches, knowledge.ScoredEntry{Entry: entry, Score: score})
	}
	return matches, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner, extras ...any) (knowledge.Entry, error) {
	var (
		entry     knowledge.Entry
		entryType string
	)
	args := []any{
		&entry.ID, &entry.Question, &entry.Answer, &entryType, &entry.System,
		&entry.HasVideo, &entry.HasDocument, &entry.HasImage,
		&entry.VideoURL, &entry.DocumentURL, &entry.ImageURL,
		&entry.Likes, &entry.Dislikes, &entry.Hits,
		&entry.CreatedAt, &entry.UpdatedAt,
	}
	args = append(args, extras...)
	if err := row.Scan(args...); err != nil {
		return knowledge.Entry{}, err
	}
	entry.Type = knowledge.EntryType(entryType)
	return entry, nil
}

var _ knowledge.Repository = (*PostgresRepository)(nil)
