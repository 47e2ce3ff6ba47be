package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"AstroAI/internal/domain/models"
	"AstroAI/internal/domain/repository"
	applogger "AstroAI/pkg/logger"
)

// ErrEmptyIndex is returned by Retrieve when the corpus produced no chunks.
var ErrEmptyIndex = errors.New("retrieval index is empty")

// Retriever scores corpus chunks against a query by cosine similarity of term frequencies.
// The index is loaded from the store on first use and built from the corpus when the store is empty.
type Retriever struct {
	store     repository.ChunkStore
	corpusDir string
	cfg       IndexConfig
	log       *applogger.Logger

	mu     sync.RWMutex
	chunks []models.Chunk
	loaded bool
}

type Option func(*Retriever)

func WithLogger(l *applogger.Logger) Option {
	return func(r *Retriever) { r.log = l }
}

func WithIndexConfig(cfg IndexConfig) Option {
	return func(r *Retriever) { r.cfg = cfg }
}

func NewRetriever(store repository.ChunkStore, corpusDir string, opts ...Option) *Retriever {
	r := &Retriever{
		store:     store,
		corpusDir: corpusDir,
		cfg:       DefaultIndexConfig(),
		log:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rebuild re-reads the corpus, replaces the stored index and returns the chunk count.
func (r *Retriever) Rebuild(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuildLocked(ctx)
}

func (r *Retriever) rebuildLocked(ctx context.Context) (int, error) {
	start := time.Now()
	chunks, err := BuildChunks(ctx, r.corpusDir, r.cfg)
	if err != nil {
		return 0, err
	}
	if err := r.store.ReplaceAll(ctx, chunks); err != nil {
		return 0, err
	}
	r.chunks, r.loaded = chunks, true
	r.log.Info("retrieval index built",
		applogger.String("corpus", r.corpusDir),
		applogger.Int("chunks", len(chunks)),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return len(chunks), nil
}

func (r *Retriever) index(ctx context.Context) ([]models.Chunk, error) {
	r.mu.RLock()
	if r.loaded {
		defer r.mu.RUnlock()
		return r.chunks, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.chunks, nil
	}
	stored, err := r.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load retrieval index: %w", err)
	}
	if len(stored) > 0 {
		r.chunks, r.loaded = stored, true
		return stored, nil
	}
	if _, err := r.rebuildLocked(ctx); err != nil {
		return nil, err
	}
	return r.chunks, nil
}

// Size returns the number of indexed chunks, loading the index if needed.
func (r *Retriever) Size(ctx context.Context) (int, error) {
	chunks, err := r.index(ctx)
	return len(chunks), err
}

// Retrieve returns up to k passages with a positive score, best first.
// Equal scores keep index order. Scores are rounded to 4 decimals.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.Passage, error) {
	chunks, err := r.index(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyIndex
	}

	qtf, qnorm := TermFrequencies(Tokenize(query))
	type scored struct {
		score float64
		idx   int
	}
	var hits []scored
	for i := range chunks {
		if s := Cosine(qtf, qnorm, chunks[i].TF, chunks[i].Norm); s > 0 {
			hits = append(hits, scored{s, i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}

	out := make([]models.Passage, len(hits))
	for i, h := range hits {
		ch := chunks[h.idx]
		out[i] = models.Passage{
			ID:     ch.ID,
			Source: ch.Source,
			Score:  math.Round(h.score*1e4) / 1e4,
			Text:   ch.Text,
		}
	}
	return out, nil
}
