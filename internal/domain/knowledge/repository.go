package knowledge

import "context"

// ScoredEntry pairs an entry with the relevance score produced by the active
// search strategy. Higher scores are more relevant.
type ScoredEntry struct {
	Entry Entry
	Score float64
}

// Embedder produces a vector representation of text for the semantic search
// strategy. Implementations may be absent when the strategy does not need one.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Repository encapsulates persistence of knowledge entries.
//
// SearchRelevant returns at most limit entries ordered by relevance score
// descending, then net likes descending, then hits descending. All text
// passed in is expected to be normalized by the caller.
type Repository interface {
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, bool, error)
	Insert(ctx context.Context, entry Entry) error
	Update(ctx context.Context, id string, fields Fields) (Entry, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	IncrementLikes(ctx context.Context, id string) (Entry, bool, error)
	IncrementDislikes(ctx context.Context, id string) (Entry, bool, error)
	IncrementHits(ctx context.Context, id string) error
	SearchRelevant(ctx context.Context, question string, limit int) ([]ScoredEntry, error)
}
