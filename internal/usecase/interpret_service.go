package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AstroAI/internal/domain/models"
	"AstroAI/internal/services/interpretation"
	"AstroAI/internal/services/retrieval"
	"AstroAI/pkg/cache"
	applogger "AstroAI/pkg/logger"

	"github.com/samber/lo"
)

const (
	retrievalCachePrefix = "retrieval"
	rebuildLockKey       = "lock:rebuild-index"
	rebuildLockTTL       = 10 * time.Minute
)

// ErrRebuildInProgress is returned by Rebuild while another rebuild holds the lock.
var ErrRebuildInProgress = errors.New("index rebuild already in progress")

// PassageRetriever searches the corpus index.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.Passage, error)
	Rebuild(ctx context.Context) (int, error)
}

// PlacementSource looks up curated "<body> in <sign>" texts.
type PlacementSource interface {
	Find(body, sign string) (models.Passage, bool, error)
}

type Interpreter interface {
	Interpret(ctx context.Context, req interpretation.Request) (string, string)
}

// InterpretService runs the natal interpretation flow: chart, query, retrieval,
// forced placement passages and text generation.
type InterpretService struct {
	charts      *ChartService
	retriever   PassageRetriever
	placements  PlacementSource
	interpreter Interpreter
	cache       cache.Service
	log         *applogger.Logger

	topK int
	ttl  time.Duration
}

type InterpretOption func(*InterpretService)

func WithTopK(k int) InterpretOption {
	return func(s *InterpretService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithRetrievalCache caches retrieval results per query until the next rebuild.
func WithRetrievalCache(c cache.Service, ttl time.Duration) InterpretOption {
	return func(s *InterpretService) { s.cache, s.ttl = c, ttl }
}

func WithInterpretLogger(l *applogger.Logger) InterpretOption {
	return func(s *InterpretService) { s.log = l }
}

func NewInterpretService(
	charts *ChartService,
	retriever PassageRetriever,
	placements PlacementSource,
	interpreter Interpreter,
	opts ...InterpretOption,
) *InterpretService {
	s := &InterpretService{
		charts:      charts,
		retriever:   retriever,
		placements:  placements,
		interpreter: interpreter,
		cache:       cache.NoopCache{},
		log:         applogger.Nop(),
		topK:        40,
		ttl:         time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interpret computes the chart for birth and writes its interpretation.
func (s *InterpretService) Interpret(ctx context.Context, birth models.BirthData) (models.Interpretation, error) {
	chart, _ := s.charts.Compute(ctx, birth)
	query := BuildQuery(chart)

	retrieved, err := s.Retrieve(ctx, query, s.topK)
	if err != nil {
		return models.Interpretation{}, err
	}
	passages := s.withForcedPlacements(chart, retrieved)

	text, mode := s.interpreter.Interpret(ctx, interpretation.Request{Chart: chart, Passages: passages})
	return models.Interpretation{
		Chart:          chart,
		Interpretation: text,
		Mode:           mode,
		Retrieval:      passages,
		Query:          query,
	}, nil
}

// Retrieve searches the index; an empty index yields no passages.
func (s *InterpretService) Retrieve(ctx context.Context, query string, k int) ([]models.Passage, error) {
	key := cache.Key(retrievalCachePrefix, k, cache.Hash(query))
	var cached []models.Passage
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	passages, err := s.retriever.Retrieve(ctx, query, k)
	if errors.Is(err, retrieval.ErrEmptyIndex) {
		s.log.Warn("retrieval index is empty, interpreting without passages")
		return []models.Passage{}, nil
	}
	if err != nil {
		return nil, err
	}
	if passages == nil {
		passages = []models.Passage{}
	}
	if err := s.cache.Set(ctx, key, passages, s.ttl); err != nil {
		s.log.Warn("retrieval cache write failed", applogger.Error(err))
	}
	return passages, nil
}

// Rebuild re-indexes the corpus and drops cached retrieval results. Replicas sharing
// the cache rebuild one at a time.
func (s *InterpretService) Rebuild(ctx context.Context) (int, error) {
	locked, err := s.cache.TryLock(ctx, rebuildLockKey, rebuildLockTTL)
	if err != nil {
		return 0, fmt.Errorf("acquire rebuild lock: %w", err)
	}
	if !locked {
		return 0, ErrRebuildInProgress
	}
	defer func() {
		if err := s.cache.Unlock(context.WithoutCancel(ctx), rebuildLockKey); err != nil {
			s.log.Warn("rebuild lock release failed", applogger.Error(err))
		}
	}()

	n, err := s.retriever.Rebuild(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.cache.DeleteByPattern(ctx, retrievalCachePrefix+":*"); err != nil {
		s.log.Warn("retrieval cache invalidation failed", applogger.Error(err))
	}
	return n, nil
}

// withForcedPlacements prepends the placement files of the chart's key bodies and drops
// retrieved passages whose text repeats one of them.
func (s *InterpretService) withForcedPlacements(chart models.NatalChart, retrieved []models.Passage) []models.Passage {
	if s.placements == nil {
		return retrieved
	}
	byFolder := lo.KeyBy(anchors, func(a anchor) string { return a.folder })

	var forced []models.Passage
	for _, folder := range forcedOrder {
		sign := chartSign(chart, byFolder[folder].name)
		if sign == "" {
			continue
		}
		p, ok, err := s.placements.Find(folder, sign)
		if err != nil {
			s.log.Warn("placement lookup failed", applogger.String("body", folder), applogger.Error(err))
			continue
		}
		if ok {
			forced = append(forced, p)
		}
	}
	if len(forced) == 0 {
		return retrieved
	}

	texts := lo.SliceToMap(forced, func(p models.Passage) (string, struct{}) { return p.Text, struct{}{} })
	tail := lo.Filter(retrieved, func(p models.Passage, _ int) bool {
		_, dup := texts[p.Text]
		return !dup
	})
	return append(forced, tail...)
}
