package interpretation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"AstroAI/internal/astro"
	"AstroAI/internal/domain/models"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func body(sign string, deg float64, house int) models.BodyPosition {
	lon := 0.0
	for i, s := range astro.Signs {
		if s == sign {
			lon = float64(i)*30 + deg
		}
	}
	return models.BodyPosition{
		Available: true,
		Longitude: ptr(lon),
		Sign:      ptr(sign),
		DegInSign: ptr(deg),
		House:     ptr(house),
	}
}

func sampleChart() models.NatalChart {
	cusps := make([]float64, 12)
	for i := range cusps {
		cusps[i] = float64(i)*30 + 12.0833
	}
	return models.NatalChart{
		Name: "Ada",
		Planets: map[string]models.BodyPosition{
			"Sun":      body("Aries", 12.0833, 10),
			"Moon":     body("Cancer", 3.5, 1),
			"Mercury":  body("Pisces", 29.999, 9),
			"Venus":    body("Taurus", 1, 11),
			"Mars":     body("Leo", 20, 2),
			"TrueNode": body("Leo", 5, 2),
			"Chiron":   {Available: false},
			"Lilith":   body("Scorpio", 7, 5),
		},
		Houses: models.HouseLayout{Cusps: cusps},
		Points: map[string]models.AngularPoint{
			"Asc":    {Longitude: 102, Sign: "Cancer", DegInSign: 12},
			"MC":     {Longitude: 12, Sign: "Aries", DegInSign: 12},
			"Vertex": {Longitude: 250, Sign: "Sagittarius", DegInSign: 10},
		},
		Aspects: models.ChartAspects{
			PlanetAspects: []models.AspectRelation{
				{P1: "Sun", P2: "Moon", Aspect: "square", Orb: 2.5},
				{P1: "Venus", P2: "Mars", Aspect: "square", Orb: 1.0},
			},
			OtherAspects: []models.AspectRelation{
				{P1: "Asc", P2: "Sun", Aspect: "square", Orb: 1.0},
			},
		},
	}
}

func TestTemplate_Render(t *testing.T) {
	req := require.New(t)
	passages := []models.Passage{
		{Source: "FORCED | placements/sun/sun_in_aries.txt", Text: "Sun in Aries   leads with courage."},
		{Source: "moon.txt", Text: "[TYPE=placement] [BODY=MOON] [SIGN=CANCER] [KEY=moon_in_cancer] Moon in Cancer needs a nest.\n\n\n\nIt remembers."},
		{Source: "node.txt", Text: "[BODY=TRUENODE] [SIGN=LEO] The node in Leo asks for play."},
	}

	out := NewTemplate().Render(sampleChart(), passages)

	req.True(strings.HasPrefix(out, "The main vibe of your chart: **Aries Sun** + **Cancer Moon**, flowing outward as a **Cancer rising**."))
	req.Contains(out, "### 1) Big 3 (placements)\n- Sun: Aries 12°05′, House 10\n- Moon: Cancer 3°30′, House 1\n- Asc: Cancer 12°00′")
	req.Contains(out, "**Sun — Core Identity**\nSun in Aries leads with courage.")
	req.Contains(out, "**Moon — Emotional Needs**\nMoon in Cancer needs a nest.\n\nIt remembers.")
	req.Contains(out, "- Mercury: Pisces 30°00′, House 9")
	req.Contains(out, "- Chiron: (unavailable)")
	req.Contains(out, "**True Node — Direction & Growth**\nThe node in Leo asks for play.")
	req.NotContains(out, "Venus — Love & Attraction")
	req.Contains(out, "- DSC: (unavailable)")
	req.Contains(out, "- Vertex: Sagittarius 10°00′")
	req.Contains(out, "- 1st House: Aries 12°05′")
	req.Contains(out, "- 12th House: Pisces 12°05′")
	req.Contains(out, "### 6) Top aspects (tightest first)\n- Venus square Mars (orb 1°00′)\n- Asc square Sun (orb 1°00′)\n- Sun square Moon (orb 2°30′)")
	req.True(strings.HasSuffix(out, "(but gains weight when it repeats)."))
}

func TestTemplate_EmptyChart(t *testing.T) {
	req := require.New(t)
	out := NewTemplate().Render(models.NatalChart{}, nil)
	req.True(strings.HasPrefix(out, "The general vibe of your chart"))
	req.Contains(out, "- Sun: (unavailable)")
	req.Contains(out, "- Asc: (unavailable)")
	req.Contains(out, "- 7th House: (unavailable)")
	req.Contains(out, "- (No aspects available)")
}

func TestPickPlacementPassage(t *testing.T) {
	passages := []models.Passage{
		{Text: "Venus in Libra loves balance."},
		{Text: "[BODY=VENUS] [SIGN=LIBRA] Tagged venus text."},
	}
	tests := []struct {
		name, body, sign, want string
		ok                     bool
	}{
		{"tag match wins over phrase", "Venus", "Libra", "Tagged venus text.", true},
		{"no match", "MARS", "Leo", "", false},
		{"empty sign", "Venus", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickPlacementPassage(passages, tt.body, tt.sign)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}

	got, ok := PickPlacementPassage(passages[:1], "VENUS", "LIBRA")
	require.True(t, ok)
	require.Equal(t, "Venus in Libra loves balance.", got)
}

func TestStripMetadata(t *testing.T) {
	require.Equal(t, "Body text here.", StripMetadata("  [type=x] [Body=SUN]  Body  text here.  "))
	require.Equal(t, "a\n\nb", StripMetadata("a\n\n\n\n\nb"))
}

func TestTightestAspects(t *testing.T) {
	got := TightestAspects(sampleChart().Aspects, 2)
	require.Len(t, got, 2)
	require.Equal(t, "Venus", got[0].P1)
	require.Equal(t, "Asc", got[1].P1)
}

func TestContextBlock(t *testing.T) {
	passages := []models.Passage{
		{Source: "a", Text: "one"},
		{Source: "b", Text: ""},
		{Source: "c", Text: "three"},
		{Source: "d", Text: "four"},
	}
	require.Equal(t, "[source: a] one\n\n[source: c] three", ContextBlock(passages, 3))
}

func TestOpenAIClient_Generate(t *testing.T) {
	req := require.New(t)
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  You shine.  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1/", Temperature: 0.8, MaxTokens: 2500})
	text, err := c.Generate(context.Background(), Request{
		Chart:    models.NatalChart{Name: "Ada"},
		Passages: []models.Passage{{Source: "s.txt", Text: "ref"}},
	})
	req.NoError(err)
	req.Equal("You shine.", text)
	req.Equal("Bearer k", auth)
	req.Equal("gpt-4o-mini", got.Model)
	req.Equal(2500, got.MaxTokens)
	req.Len(got.Messages, 3)
	req.Equal(systemPrompt, got.Messages[0].Content)
	req.Equal(contextPrefix+"[source: s.txt] ref", got.Messages[1].Content)
	req.Equal("user", got.Messages[2].Role)
	req.True(strings.HasPrefix(got.Messages[2].Content, "Chart data:\n{"))
}

func TestOpenAIClient_RetriesTemporaryErrors(t *testing.T) {
	req := require.New(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Retries: 1})
	text, err := c.Generate(context.Background(), Request{})
	req.NoError(err)
	req.Equal("ok", text)
	req.Equal(int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAIClient_NoKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{}).Generate(context.Background(), Request{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) Name() string { return ModeLLM }

func (s stubGenerator) Generate(context.Context, Request) (string, error) { return s.text, s.err }

type recordingMetrics struct {
	modes  []string
	errors []string
}

func (m *recordingMetrics) RecordChart(string, bool)         {}
func (m *recordingMetrics) ObserveTier(string, string)       {}
func (m *recordingMetrics) RecordCache(string, bool)         {}
func (m *recordingMetrics) RecordInterpretation(mode string) { m.modes = append(m.modes, mode) }
func (m *recordingMetrics) RecordPassages(int)               {}
func (m *recordingMetrics) RecordError(kind string)          { m.errors = append(m.errors, kind) }
func (m *recordingMetrics) RecordLatency(string, float64)    {}

func TestService_Fallback(t *testing.T) {
	tests := []struct {
		name     string
		primary  Generator
		wantMode string
		wantErrs int
	}{
		{"llm answer", stubGenerator{text: "from llm"}, ModeLLM, 0},
		{"llm error", stubGenerator{err: errors.New("boom")}, ModeTemplate, 1},
		{"not configured", stubGenerator{err: ErrNotConfigured}, ModeTemplate, 0},
		{"empty answer", stubGenerator{}, ModeTemplate, 0},
		{"no primary", nil, ModeTemplate, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &recordingMetrics{}
			text, mode := NewService(tt.primary, WithMetrics(m)).Interpret(context.Background(), Request{Chart: sampleChart()})
			require.Equal(t, tt.wantMode, mode)
			require.NotEmpty(t, text)
			require.Equal(t, []string{tt.wantMode}, m.modes)
			require.Len(t, m.errors, tt.wantErrs)
		})
	}
}

func TestHouseLines_WrapsLongitudes(t *testing.T) {
	req := require.New(t)

	cusps := make([]float64, 12)
	for i := range cusps {
		cusps[i] = float64(i)*30 + 12.0833
	}
	cusps[0] = 372.0833
	cusps[11] = -17.9167

	lines := houseLines(cusps)
	req.Equal("- 1st House: Aries 12°05′", lines[0])
	req.Equal("- 2nd House: Taurus 12°05′", lines[1])
	req.Equal("- 12th House: Pisces 12°05′", lines[11])
}
