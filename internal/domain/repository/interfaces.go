package repository

import (
	"context"
	"errors"

	"AstroAI/internal/domain/models"
)

// ErrChartNotFound is returned by ChartStore.Get for unknown ids.
var ErrChartNotFound = errors.New("chart not found")

// ChartStore archives computed charts.
type ChartStore interface {
	Init(ctx context.Context) error // ensure tables
	Save(ctx context.Context, chart models.NatalChart, birth models.BirthData) error
	Get(ctx context.Context, id string) (models.NatalChart, error)
	Health(ctx context.Context) error
	Close() error
}

// ChartPublisher emits an event for each newly computed chart.
type ChartPublisher interface {
	PublishChart(ctx context.Context, summary models.ChartSummary) error
	Close() error
}

// ChunkStore persists the retrieval index.
type ChunkStore interface {
	ReplaceAll(ctx context.Context, chunks []models.Chunk) error
	All(ctx context.Context) ([]models.Chunk, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

type Metrics interface {
	RecordChart(houseSystem string, cached bool)
	ObserveTier(body, tier string)
	RecordCache(namespace string, hit bool)
	RecordInterpretation(mode string)
	RecordPassages(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
