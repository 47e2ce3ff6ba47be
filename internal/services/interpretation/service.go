package interpretation

import (
	"context"
	"errors"
	"time"

	"AstroAI/internal/domain/models"
	"AstroAI/internal/domain/repository"
	applogger "AstroAI/pkg/logger"
)

const (
	ModeLLM      = "llm"
	ModeTemplate = "template"
)

// Request is the chart to interpret with its reference passages, forced placements first.
type Request struct {
	Chart    models.NatalChart
	Passages []models.Passage
}

// Generator produces interpretation text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Service tries the primary generator and falls back to the template on any error or empty answer.
type Service struct {
	primary  Generator
	fallback *Template
	metrics  repository.Metrics
	log      *applogger.Logger
}

type Option func(*Service)

func WithMetrics(m repository.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *applogger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService wraps primary, which may be nil to always use the template.
func NewService(primary Generator, opts ...Option) *Service {
	s := &Service{primary: primary, fallback: NewTemplate(), log: applogger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interpret returns the text and the mode that produced it. It never fails.
func (s *Service) Interpret(ctx context.Context, req Request) (string, string) {
	start := time.Now()
	text, mode := s.generate(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordInterpretation(mode)
		s.metrics.RecordPassages(len(req.Passages))
		s.metrics.RecordLatency("interpret_"+mode, time.Since(start).Seconds())
	}
	return text, mode
}

func (s *Service) generate(ctx context.Context, req Request) (string, string) {
	if s.primary != nil {
		text, err := s.primary.Generate(ctx, req)
		switch {
		case err == nil && text != "":
			return text, s.primary.Name()
		case errors.Is(err, ErrNotConfigured):
			s.log.Debug("llm not configured, using template")
		case err != nil:
			s.log.Warn("llm interpretation failed, using template",
				applogger.String("generator", s.primary.Name()),
				applogger.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordError("llm")
			}
		default:
			s.log.Warn("llm returned empty text, using template")
		}
	}
	text, _ := s.fallback.Generate(ctx, req)
	return text, ModeTemplate
}
