package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"AstroAI/internal/domain/models"
	"AstroAI/internal/domain/repository"
	pkgkafka "AstroAI/pkg/kafka"
)

const (
	chartsTable     = "natal_charts"
	placementsTable = "natal_placements"
)

// ChartSchema is the DDL applied by ClickHouseChartStore.Init.
var ChartSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + chartsTable + ` (
		id           String,
		created_at   DateTime64(3),
		name         String,
		jd_ut        Float64,
		house_system LowCardinality(String),
		sun_sign     LowCardinality(String),
		moon_sign    LowCardinality(String),
		asc_sign     LowCardinality(String),
		unavailable  UInt8,
		birth        String,
		payload      String
	) ENGINE = ReplacingMergeTree(created_at)
	ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS ` + placementsTable + ` (
		chart_id    String,
		created_at  DateTime64(3),
		body        LowCardinality(String),
		sign        LowCardinality(String),
		lon         Float64,
		house       Nullable(UInt8)
	) ENGINE = MergeTree
	ORDER BY (body, sign, chart_id)`,
}

// ClickHouseChartStore archives charts as a JSON payload plus queryable summary columns,
// and one placements row per available body.
type ClickHouseChartStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewClickHouseChartStore(db *sql.DB) repository.ChartStore {
	return &ClickHouseChartStore{db: db, now: time.Now}
}

func (s *ClickHouseChartStore) Init(ctx context.Context) error {
	for _, stmt := range ChartSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init chart schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseChartStore) Save(ctx context.Context, chart models.NatalChart, birth models.BirthData) error {
	if chart.ID == "" {
		return errors.New("chart id is required")
	}
	payload, err := json.Marshal(chart)
	if err != nil {
		return fmt.Errorf("marshal chart: %w", err)
	}
	birthJSON, err := json.Marshal(birth)
	if err != nil {
		return fmt.Errorf("marshal birth data: %w", err)
	}
	sum := chart.Summary()
	now := s.now()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO "+chartsTable+" (id, created_at, name, jd_ut, house_system, sun_sign, moon_sign, asc_sign, unavailable, birth, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		sum.ID, now, sum.Name, sum.JulianDayUT, sum.HouseSystem, sum.SunSign, sum.MoonSign, sum.AscSign,
		uint8(sum.Unavailable), string(birthJSON), string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert chart %s: %w", chart.ID, err)
	}

	rows := placementRows(chart)
	if len(rows) == 0 {
		return nil
	}
	// clickhouse-go sends the prepared statement rows of one transaction as a single block
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin placements: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+placementsTable+" (chart_id, created_at, body, sign, lon, house)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare placements: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, chart.ID, now, r.Body, r.Sign, r.Lon, r.House); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append placement %s: %w", r.Body, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit placements: %w", err)
	}
	return nil
}

func (s *ClickHouseChartStore) Get(ctx context.Context, id string) (models.NatalChart, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM "+chartsTable+" FINAL WHERE id = ? LIMIT 1", id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NatalChart{}, repository.ErrChartNotFound
	}
	if err != nil {
		return models.NatalChart{}, fmt.Errorf("query chart %s: %w", id, err)
	}
	var chart models.NatalChart
	if err := json.Unmarshal([]byte(payload), &chart); err != nil {
		return models.NatalChart{}, fmt.Errorf("decode chart %s: %w", id, err)
	}
	return chart, nil
}

func (s *ClickHouseChartStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseChartStore) Close() error {
	return nil // pool owned by pkg/clickhouse.Client
}

type placementRow struct {
	Body  string
	Sign  string
	Lon   float64
	House *uint8
}

// placementRows lists available bodies in name order.
func placementRows(chart models.NatalChart) []placementRow {
	rows := make([]placementRow, 0, len(chart.Planets))
	for name, p := range chart.Planets {
		lon, ok := p.Lon()
		if !ok {
			continue
		}
		r := placementRow{Body: name, Sign: p.SignName(), Lon: lon}
		if p.House != nil {
			h := uint8(*p.House)
			r.House = &h
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Body < rows[j].Body })
	return rows
}

// KafkaChartPublisher publishes chart summaries keyed by chart id.
type KafkaChartPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaChartPublisher(producer *pkgkafka.Producer, topic string) repository.ChartPublisher {
	return &KafkaChartPublisher{producer: producer, topic: topic}
}

func (p *KafkaChartPublisher) PublishChart(ctx context.Context, summary models.ChartSummary) error {
	return p.producer.Publish(ctx, p.topic, []byte(summary.ID), summary)
}

// Close is a no-op; the producer is shared with the log collector and closed by the app.
func (p *KafkaChartPublisher) Close() error {
	return nil
}
