package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"AstroAI/internal/domain/models"
	domrepo "AstroAI/internal/domain/repository"
	"AstroAI/internal/repository"
	"AstroAI/internal/service/ratelimit"
	"AstroAI/internal/services/interpretation"
	"AstroAI/internal/services/retrieval"
	"AstroAI/internal/usecase"
	"AstroAI/pkg/cache"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type stubEngine struct{}

func (stubEngine) Assemble(in models.BirthData) models.NatalChart {
	sign := "Aries"
	deg := 12.0
	return models.NatalChart{
		Name:        in.Name,
		HouseSystem: in.HouseSystem,
		Planets: map[string]models.BodyPosition{
			"Sun": {Available: true, Longitude: &deg, Sign: &sign, DegInSign: &deg},
		},
	}
}

type memStore struct{ charts map[string]models.NatalChart }

func (s *memStore) Init(context.Context) error { return nil }
func (s *memStore) Save(_ context.Context, c models.NatalChart, _ models.BirthData) error {
	s.charts[c.ID] = c
	return nil
}
func (s *memStore) Get(_ context.Context, id string) (models.NatalChart, error) {
	c, ok := s.charts[id]
	if !ok {
		return models.NatalChart{}, domrepo.ErrChartNotFound
	}
	return c, nil
}
func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newServer(t *testing.T, store domrepo.ChartStore, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sun.txt"),
		[]byte("[BODY=SUN] [SIGN=ARIES] Sun in Aries charges ahead with courage and fire."), 0o644))

	db, err := repository.OpenBadger("", nil)
	require.NoError(t, err)
	chunks := repository.NewBadgerChunkStore(db)
	t.Cleanup(func() { _ = chunks.Close() })

	opts := []usecase.ChartOption{usecase.WithChartCache(cache.NewMemoryCache(), 0)}
	if store != nil {
		opts = append(opts, usecase.WithChartArchive(store, nil))
	}
	charts := usecase.NewChartService(stubEngine{}, opts...)
	interp := usecase.NewInterpretService(charts,
		retrieval.NewRetriever(chunks, dir),
		retrieval.NewPlacementFinder(dir),
		interpretation.NewService(nil),
	)

	e := echo.New()
	NewChartEchoHandler(nil, charts, interp, limiter).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

const birthBody = `{"name":"Ada","year":1990,"month":4,"day":1,"hour":12,"minute":0,"latitude":41,"longitude":29}`

func TestHealth(t *testing.T) {
	rec, env := do(newServer(t, nil, nil), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, string(env.Data))
}

func TestNatalChart(t *testing.T) {
	req := require.New(t)
	e := newServer(t, nil, nil)

	rec, env := do(e, http.MethodPost, "/api/chart/natal", birthBody)
	req.Equal(http.StatusOK, rec.Code)
	var chart models.NatalChart
	req.NoError(json.Unmarshal(env.Data, &chart))
	req.Equal("Ada", chart.Name)
	req.Equal("P", chart.HouseSystem)
	req.NotEmpty(chart.ID)

	rec, _ = do(e, http.MethodPost, "/api/chart/natal", birthBody)
	req.Equal("HIT", rec.Header().Get("X-Cache"))
}

func TestNatalChart_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"month out of range", `{"year":1990,"month":13,"day":1}`, "month"},
		{"latitude out of range", `{"year":1990,"month":1,"day":1,"latitude":91}`, "latitude"},
		{"missing year", `{"month":1,"day":1}`, "year"},
		{"house system too long", `{"year":1990,"month":1,"day":1,"house_system":"` + strings.Repeat("P", 33) + `"}`, "house_system"},
	}
	e := newServer(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(e, http.MethodPost, "/api/chart/natal", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, string(env.Data), `"field":"`+tt.field+`"`)
		})
	}
}

func TestNatalChart_HouseSystemNames(t *testing.T) {
	e := newServer(t, nil, nil)
	tests := []struct {
		house string
		want  string
	}{
		{"Placidus", "P"},
		{"Whole sign", "W"},
		{"Regiomontanus", "R"},
		{"", "P"},
	}
	for _, tt := range tests {
		t.Run(tt.house, func(t *testing.T) {
			body := `{"year":1990,"month":1,"day":1,"house_system":"` + tt.house + `"}`
			rec, env := do(e, http.MethodPost, "/api/chart/natal", body)
			require.Equal(t, http.StatusOK, rec.Code)
			var chart models.NatalChart
			require.NoError(t, json.Unmarshal(env.Data, &chart))
			require.Equal(t, tt.want, chart.HouseSystem)
		})
	}
}

func TestInterpretNatal(t *testing.T) {
	req := require.New(t)
	rec, env := do(newServer(t, nil, nil), http.MethodPost, "/api/interpret/natal", birthBody)
	req.Equal(http.StatusOK, rec.Code)

	var out models.Interpretation
	req.NoError(json.Unmarshal(env.Data, &out))
	req.Equal(interpretation.ModeTemplate, out.Mode)
	req.Contains(out.Interpretation, "**Sun — Core Identity**\nSun in Aries charges ahead with courage and fire.")
	req.True(strings.HasPrefix(out.Query, "natal chart interpretation Sun Aries "))
	req.Len(out.Retrieval, 1)
	req.Equal("sun.txt", out.Retrieval[0].Source)
}

func TestInterpretNatal_RateLimited(t *testing.T) {
	req := require.New(t)
	e := newServer(t, nil, ratelimit.New(1, 0.001))

	rec, _ := do(e, http.MethodPost, "/api/interpret/natal", birthBody)
	req.Equal(http.StatusOK, rec.Code)

	rec, env := do(e, http.MethodPost, "/api/interpret/natal", birthBody)
	req.Equal(http.StatusTooManyRequests, rec.Code)
	req.NotEmpty(rec.Header().Get("Retry-After"))
	req.Contains(string(env.Data), "ERR_RATE_LIMITED")
}

func TestRebuildIndex(t *testing.T) {
	rec, env := do(newServer(t, nil, nil), http.MethodPost, "/api/rebuild-index", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"chunks":1}`, string(env.Data))
}

func TestGetChart(t *testing.T) {
	req := require.New(t)

	rec, _ := do(newServer(t, nil, nil), http.MethodGet, "/api/charts/abc", "")
	req.Equal(http.StatusServiceUnavailable, rec.Code)

	e := newServer(t, &memStore{charts: map[string]models.NatalChart{}}, nil)
	rec, _ = do(e, http.MethodGet, "/api/charts/abc", "")
	req.Equal(http.StatusNotFound, rec.Code)

	_, env := do(e, http.MethodPost, "/api/chart/natal", birthBody)
	var chart models.NatalChart
	req.NoError(json.Unmarshal(env.Data, &chart))

	rec, env = do(e, http.MethodGet, "/api/charts/"+chart.ID, "")
	req.Equal(http.StatusOK, rec.Code)
	var got models.NatalChart
	req.NoError(json.Unmarshal(env.Data, &got))
	req.Equal(chart.ID, got.ID)
}

func TestRetrieve(t *testing.T) {
	req := require.New(t)
	e := newServer(t, nil, nil)

	rec, _ := do(e, http.MethodGet, "/api/retrieve", "")
	req.Equal(http.StatusBadRequest, rec.Code)

	rec, env := do(e, http.MethodGet, "/api/retrieve?q=sun+aries&k=500", "")
	req.Equal(http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.Passage `json:"rows"`
		Total int64            `json:"total"`
	}
	req.NoError(json.Unmarshal(env.Data, &list))
	req.Equal(int64(1), list.Total)
	req.Equal("sun.txt:0", list.Rows[0].ID)
}
