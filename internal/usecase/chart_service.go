package usecase

import (
	"context"
	"errors"
	"time"

	"AstroAI/internal/astro"
	"AstroAI/internal/domain/models"
	"AstroAI/internal/domain/repository"
	"AstroAI/pkg/cache"
	applogger "AstroAI/pkg/logger"

	"github.com/google/uuid"
)

// chartNamespace seeds the name based UUIDs of charts so equal inputs share an id.
var chartNamespace = uuid.MustParse("6f1c2b8e-2d4a-4f61-9a51-3c0e7a9d5b10")

// ErrArchiveDisabled is returned by ChartService.Get when no chart store is configured.
var ErrArchiveDisabled = errors.New("chart archive disabled")

// ChartEngine assembles a chart from birth data. It never fails.
type ChartEngine interface {
	Assemble(in models.BirthData) models.NatalChart
}

// ChartService computes charts through the engine with a result cache,
// and archives and publishes each freshly computed chart on a best effort basis.
type ChartService struct {
	engine    ChartEngine
	cache     cache.Service
	store     repository.ChartStore
	publisher repository.ChartPublisher
	metrics   repository.Metrics
	log       *applogger.Logger

	ttl          time.Duration
	defaultHouse string
	defaultTZ    float64
}

type ChartOption func(*ChartService)

func WithChartCache(c cache.Service, ttl time.Duration) ChartOption {
	return func(s *ChartService) { s.cache, s.ttl = c, ttl }
}

// WithChartArchive sets the store and publisher; either may be nil.
func WithChartArchive(store repository.ChartStore, pub repository.ChartPublisher) ChartOption {
	return func(s *ChartService) { s.store, s.publisher = store, pub }
}

func WithChartMetrics(m repository.Metrics) ChartOption {
	return func(s *ChartService) { s.metrics = m }
}

func WithChartLogger(l *applogger.Logger) ChartOption {
	return func(s *ChartService) { s.log = l }
}

func WithDefaultHouseSystem(code string) ChartOption {
	return func(s *ChartService) { s.defaultHouse = code }
}

// WithDefaultTZOffset sets the UTC offset, in hours, of requests that omit one.
func WithDefaultTZOffset(hours float64) ChartOption {
	return func(s *ChartService) { s.defaultTZ = hours }
}

func NewChartService(engine ChartEngine, opts ...ChartOption) *ChartService {
	s := &ChartService{
		engine:       engine,
		cache:        cache.NoopCache{},
		log:          applogger.Nop(),
		ttl:          24 * time.Hour,
		defaultHouse: "P",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BirthData converts a validated request, filling the default UTC offset.
func (s *ChartService) BirthData(req models.BirthRequest) models.BirthData {
	return req.ToBirthData(s.defaultTZ)
}

// Normalize fills the house system so equal requests map to one cache key.
func (s *ChartService) Normalize(b models.BirthData) models.BirthData {
	code := b.HouseSystem
	if code == "" {
		code = s.defaultHouse
	}
	b.HouseSystem = string(astro.NormalizeHouseSystem(code))
	return b
}

// ChartID is the deterministic id of the chart for b.
func ChartID(b models.BirthData) string {
	return uuid.NewSHA1(chartNamespace, []byte(b.CacheKey())).String()
}

// Compute returns the chart for birth and whether it came from the cache.
func (s *ChartService) Compute(ctx context.Context, birth models.BirthData) (models.NatalChart, bool) {
	start := time.Now()
	birth = s.Normalize(birth)
	key := cache.Key("chart", cache.Hash(birth.CacheKey()))

	var chart models.NatalChart
	err := s.cache.Get(ctx, key, &chart)
	hit := err == nil
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("chart cache read failed", applogger.String("key", key), applogger.Error(err))
	}
	s.recordCache("chart", hit)

	if !hit {
		chart = s.engine.Assemble(birth)
		chart.ID = ChartID(birth)
		if err := s.cache.Set(ctx, key, chart, s.ttl); err != nil {
			s.log.Warn("chart cache write failed", applogger.String("key", key), applogger.Error(err))
		}
		s.archive(ctx, chart, birth)
	}

	if s.metrics != nil {
		s.metrics.RecordChart(chart.HouseSystem, hit)
		s.metrics.RecordLatency("chart_compute", time.Since(start).Seconds())
	}
	return chart, hit
}

func (s *ChartService) archive(ctx context.Context, chart models.NatalChart, birth models.BirthData) {
	if s.store != nil {
		if err := s.store.Save(ctx, chart, birth); err != nil {
			s.log.Error("archive chart failed", applogger.String("chart_id", chart.ID), applogger.Error(err))
			s.recordError("archive")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishChart(ctx, chart.Summary()); err != nil {
			s.log.Error("publish chart failed", applogger.String("chart_id", chart.ID), applogger.Error(err))
			s.recordError("publish")
		}
	}
}

// Get loads an archived chart by id.
func (s *ChartService) Get(ctx context.Context, id string) (models.NatalChart, error) {
	if s.store == nil {
		return models.NatalChart{}, ErrArchiveDisabled
	}
	return s.store.Get(ctx, id)
}

func (s *ChartService) recordCache(ns string, hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCache(ns, hit)
	}
}

func (s *ChartService) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordError(kind)
	}
}
