package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AstroAI/internal/domain/models"
	domrepo "AstroAI/internal/domain/repository"
	xhttp "AstroAI/pkg/http"
	pkgkafka "AstroAI/pkg/kafka"
	applogger "AstroAI/pkg/logger"
)

// KafkaChartRequestsHandler consumes BirthRequest messages and computes, archives and publishes their charts.
type KafkaChartRequestsHandler struct {
	topic   string
	charts  *ChartService
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewKafkaChartRequestsHandler(topic string, charts *ChartService, metrics domrepo.Metrics, l *applogger.Logger) *KafkaChartRequestsHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaChartRequestsHandler{topic: topic, charts: charts, metrics: metrics, log: l}
}

func (h *KafkaChartRequestsHandler) Topic() string { return h.topic }

// Handle rejects malformed requests with an error so the consumer routes them to the DLQ.
func (h *KafkaChartRequestsHandler) Handle(ctx context.Context, b []byte) error {
	var req models.BirthRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode chart request: %w", err)
	}
	if err := xhttp.DefaultAndValidate(ctx, &req); err != nil {
		h.recordError("consumer_validate")
		return fmt.Errorf("invalid chart request: %w", err)
	}

	start := time.Now()
	chart, cached := h.charts.Compute(ctx, h.charts.BirthData(req))
	if h.metrics != nil {
		h.metrics.RecordLatency("consumer_chart", time.Since(start).Seconds())
	}
	h.log.Debug("chart request handled",
		applogger.String("chart_id", chart.ID),
		applogger.Bool("cached", cached),
	)
	return nil
}

func (h *KafkaChartRequestsHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaChartRequestsHandler)(nil)
