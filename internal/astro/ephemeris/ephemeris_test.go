package ephemeris

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	applogger "AstroAI/pkg/logger"

	"github.com/stretchr/testify/require"
)

const j2000 = 2451545.0

type stubSource struct {
	pos   Position
	err   error
	panic bool
	calls int
}

func (s *stubSource) Position(float64, Body) (Position, error) {
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.pos, s.err
}

type tierCounter map[string]int

func (t tierCounter) ObserveTier(_, tier string) { t[tier]++ }

func TestChain_FallsBackInOrder(t *testing.T) {
	req := require.New(t)

	first := &stubSource{err: ErrDataFileMissing}
	second := &stubSource{pos: Position{Longitude: 12.5, Latitude: -1, Speed: 0.9}}
	seen := tierCounter{}
	chain := NewChain([]Tier{{Name: "table", Source: first}, {Name: "analytic", Source: second}}, WithTierObserver(seen))

	pos, ok := chain.Resolve(j2000, Mars)
	req.True(ok)
	req.Equal(12.5, pos.Longitude)
	req.Equal(1, first.calls)
	req.Equal(1, second.calls)
	req.Equal(1, seen["analytic"])
}

func TestChain_RecoversPanicsAndReportsUnavailable(t *testing.T) {
	req := require.New(t)

	seen := tierCounter{}
	chain := NewChain([]Tier{
		{Name: "table", Source: &stubSource{panic: true}},
		{Name: "analytic", Source: &stubSource{err: ErrUnsupportedBody}},
	}, WithTierObserver(seen))

	pos, ok := chain.Resolve(j2000, Chiron)
	req.False(ok)
	req.Equal(Position{}, pos)
	req.Equal(1, seen[""])
}

func TestChain_PrefersFirstTier(t *testing.T) {
	req := require.New(t)

	second := &stubSource{pos: Position{Longitude: 2}}
	chain := NewChain([]Tier{
		{Name: "table", Source: &stubSource{pos: Position{Longitude: 1}}},
		{Name: "analytic", Source: second},
	})
	pos, ok := chain.Resolve(j2000, Sun)
	req.True(ok)
	req.Equal(1.0, pos.Longitude)
	req.Zero(second.calls)
}

func TestAnalytic_SunAtJ2000(t *testing.T) {
	req := require.New(t)

	pos, err := AnalyticSource{}.Position(j2000, Sun)
	req.NoError(err)
	req.InDelta(280.37, pos.Longitude, 0.2)
	req.InDelta(0, pos.Latitude, 1e-9)
	req.InDelta(1.019, pos.Speed, 0.01)
}

func TestAnalytic_MoonAndNodes(t *testing.T) {
	req := require.New(t)

	moon, err := AnalyticSource{}.Position(j2000, Moon)
	req.NoError(err)
	req.Greater(moon.Speed, 11.0)
	req.Less(moon.Speed, 16.0)
	req.LessOrEqual(moon.Latitude, 5.5)
	req.GreaterOrEqual(moon.Latitude, -5.5)

	node, err := AnalyticSource{}.Position(j2000, TrueNode)
	req.NoError(err)
	req.InDelta(125.04, node.Longitude, 2.1)

	lilith, err := AnalyticSource{}.Position(j2000, MeanApogee)
	req.NoError(err)
	req.LessOrEqual(lilith.Latitude, 5.2)
	req.GreaterOrEqual(lilith.Latitude, -5.2)
}

func TestAnalytic_InnerPlanetsStayNearSun(t *testing.T) {
	req := require.New(t)

	src := AnalyticSource{}
	for _, jd := range []float64{2415020.5, 2440587.5, 2451545.0, 2460000.5, 2470000.5} {
		sun, err := src.Position(jd, Sun)
		req.NoError(err)
		for body, maxElong := range map[Body]float64{Mercury: 28.5, Venus: 47.5} {
			p, err := src.Position(jd, body)
			req.NoError(err)
			elong := signedDelta(sun.Longitude, p.Longitude)
			req.LessOrEqual(elong, maxElong, fmt.Sprintf("%s at %.1f", body, jd))
			req.GreaterOrEqual(elong, -maxElong, fmt.Sprintf("%s at %.1f", body, jd))
		}
	}
}

func TestAnalytic_AllSupportedBodiesInRange(t *testing.T) {
	req := require.New(t)

	for _, b := range Bodies() {
		pos, err := AnalyticSource{}.Position(2448000.5, b)
		if b == Chiron {
			req.ErrorIs(err, ErrUnsupportedBody)
			continue
		}
		req.NoError(err, b.String())
		req.GreaterOrEqual(pos.Longitude, 0.0)
		req.Less(pos.Longitude, 360.0)
		req.LessOrEqual(pos.Latitude, 18.0)
		req.GreaterOrEqual(pos.Latitude, -18.0)
	}
}

func writeTable(t *testing.T, dir, name string, rows []string) {
	t.Helper()
	body := "# test table\njd,lon,lat\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestTableSource_InterpolatesAcrossZero(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	var rows []string
	for i := 0; i <= 15; i++ {
		jd := 2451540.0 + float64(i)
		rows = append(rows, fmt.Sprintf("%.1f,%.4f,0.1", jd, rev(350+float64(i))))
	}
	writeTable(t, dir, "sun.csv", rows)

	src, err := OpenTables(dir)
	req.NoError(err)
	req.Equal([]Body{Sun}, src.Loaded())

	pos, err := src.Position(2451545.5, Sun)
	req.NoError(err)
	req.InDelta(355.5, pos.Longitude, 1e-9)
	req.InDelta(1.0, pos.Speed, 1e-6)
	req.InDelta(0.1, pos.Latitude, 1e-9)

	pos, err = src.Position(2451550.5, Sun)
	req.NoError(err)
	req.InDelta(0.5, pos.Longitude, 1e-9)

	_, err = src.Position(2451600.0, Sun)
	req.ErrorIs(err, ErrOutOfRange)

	_, err = src.Position(2451545.0, Moon)
	req.ErrorIs(err, ErrDataFileMissing)
}

func TestOpenTables_MissingDirAndMalformedFile(t *testing.T) {
	req := require.New(t)

	src, err := OpenTables(filepath.Join(t.TempDir(), "absent"))
	req.NoError(err)
	req.Empty(src.Loaded())

	dir := t.TempDir()
	writeTable(t, dir, "mars.csv", []string{"2451545.0,10,0", "2451544.0,11,0"})
	src, err = OpenTables(dir)
	req.Error(err)
	req.Empty(src.Loaded())
}

func TestNewDefaultChain_UsesTablesThenAnalytic(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	writeTable(t, dir, "chiron.csv", []string{"2451540.0,250,1", "2451550.0,251,1"})

	chain := NewDefaultChain(dir)

	pos, ok := chain.Resolve(2451545.0, Chiron)
	req.True(ok)
	req.InDelta(250.5, pos.Longitude, 1e-9)

	_, ok = chain.Resolve(2460000.0, Chiron)
	req.False(ok)

	_, ok = chain.Resolve(2460000.0, Saturn)
	req.True(ok)
}

func TestNewDefaultChain_SkipsMalformedTable(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	writeTable(t, dir, "chiron.csv", []string{"2451540.0,250,1", "abc,251,1"})
	writeTable(t, dir, "mars.csv", []string{"2451540.0,10,1", "2451550.0,20,1"})

	logPath := filepath.Join(t.TempDir(), "chain.log")
	l, err := applogger.New(&applogger.Config{Level: "warn", Format: "json", Output: logPath})
	req.NoError(err)

	seen := tierCounter{}
	chain := NewDefaultChain(dir, WithChainLogger(l), WithTierObserver(seen))

	_, ok := chain.Resolve(2451545.0, Chiron)
	req.False(ok)

	mars, ok := chain.Resolve(2451545.0, Mars)
	req.True(ok)
	req.InDelta(15, mars.Longitude, 1e-9)
	req.Equal(1, seen["table"])

	_, ok = chain.Resolve(2451545.0, Moon)
	req.True(ok)
	req.Equal(1, seen["analytic"])

	logged, err := os.ReadFile(logPath)
	req.NoError(err)
	req.Contains(string(logged), "ephemeris files skipped")
	req.Contains(string(logged), "chiron.csv")
}

func TestVSOPSource_WithoutFiles(t *testing.T) {
	req := require.New(t)

	src, err := OpenVSOP(t.TempDir())
	req.NoError(err)
	req.Empty(src.Loaded())

	_, err = src.Position(j2000, Mars)
	req.ErrorIs(err, ErrDataFileMissing)
	_, err = src.Position(j2000, Sun)
	req.ErrorIs(err, ErrDataFileMissing)
	_, err = src.Position(j2000, Moon)
	req.ErrorIs(err, ErrUnsupportedBody)
}

func TestAnalytic_PlanetsAgainstReferenceLongitudes(t *testing.T) {
	req := require.New(t)

	// geocentric longitudes of date at 2000-01-01 12h TT, within the accuracy of mean elements
	for body, want := range map[Body]float64{
		Mercury: 271.89,
		Venus:   241.57,
		Mars:    327.96,
		Jupiter: 25.25,
		Saturn:  40.40,
		Pluto:   251.45,
	} {
		pos, err := AnalyticSource{}.Position(j2000, body)
		req.NoError(err)
		req.InDelta(0, signedDelta(want, pos.Longitude), 1.5, body.String())
	}
}
