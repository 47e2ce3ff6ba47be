package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"AstroAI/internal/domain/models"
	pkgkafka "AstroAI/pkg/kafka"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func newChunkStore(t *testing.T) *BadgerChunkStore {
	db, err := OpenBadger("", nil)
	require.NoError(t, err)
	s := NewBadgerChunkStore(db).(*BadgerChunkStore)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func chunks(n int, source string) []models.Chunk {
	out := make([]models.Chunk, n)
	for i := range out {
		out[i] = models.Chunk{
			ID:     fmt.Sprintf("%s:%d", source, i),
			Source: source,
			Text:   fmt.Sprintf("text %d", i),
			TF:     map[string]float64{"sun": float64(i + 1)},
			Norm:   float64(i + 1),
		}
	}
	return out
}

func TestBadgerChunkStore_ReplaceAllKeepsOrder(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newChunkStore(t)

	req.NoError(s.ReplaceAll(ctx, chunks(12, "a.txt")))
	got, err := s.All(ctx)
	req.NoError(err)
	req.Len(got, 12)
	req.Equal("a.txt:0", got[0].ID)
	req.Equal("a.txt:11", got[11].ID)
	req.Equal(12.0, got[11].TF["sun"])

	req.NoError(s.ReplaceAll(ctx, chunks(3, "b.txt")))
	n, err := s.Count(ctx)
	req.NoError(err)
	req.Equal(3, n)
	got, err = s.All(ctx)
	req.NoError(err)
	req.Equal("b.txt:0", got[0].ID)
}

func TestBadgerChunkStore_Empty(t *testing.T) {
	req := require.New(t)
	s := newChunkStore(t)
	got, err := s.All(context.Background())
	req.NoError(err)
	req.Empty(got)
}

func TestPlacementRows(t *testing.T) {
	req := require.New(t)
	lon, sign, house := 15.0, "Aries", 10
	chart := models.NatalChart{Planets: map[string]models.BodyPosition{
		"Sun":    {Available: true, Longitude: &lon, Sign: &sign, House: &house},
		"Chiron": {Available: false},
		"Moon":   {Available: true, Longitude: &lon, Sign: &sign},
	}}

	rows := placementRows(chart)
	req.Len(rows, 2)
	req.Equal("Moon", rows[0].Body)
	req.Nil(rows[0].House)
	req.Equal("Sun", rows[1].Body)
	req.Equal(uint8(10), *rows[1].House)
}

type memWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestKafkaChartPublisher(t *testing.T) {
	req := require.New(t)
	w := &memWriter{}
	p := NewKafkaChartPublisher(pkgkafka.NewProducerWithWriter(w, "snappy"), "astro.charts")

	req.NoError(p.PublishChart(context.Background(), models.ChartSummary{ID: "c-1", SunSign: "Leo"}))
	req.Len(w.msgs, 1)
	req.Equal("c-1", string(w.msgs[0].Key))
	req.Equal("astro.charts", w.msgs[0].Topic)
	var s models.ChartSummary
	req.NoError(json.Unmarshal(w.msgs[0].Value, &s))
	req.Equal("Leo", s.SunSign)
}
