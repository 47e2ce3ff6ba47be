package astro

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"AstroAI/internal/astro/ephemeris"
	"AstroAI/internal/domain/models"
)

// fakeResolver returns fixed longitudes; bodies missing from the map are unavailable.
type fakeResolver map[ephemeris.Body]float64

func (f fakeResolver) Resolve(_ float64, b ephemeris.Body) (ephemeris.Position, bool) {
	lon, ok := f[b]
	if !ok {
		return ephemeris.Position{}, false
	}
	return ephemeris.Position{Longitude: lon, Speed: 1}, true
}

// fakeHouses is an equal house layout starting at asc; it can be told to fail.
type fakeHouses struct {
	asc, mc   float64
	vertex    float64
	housesErr error
	posErr    error
	sunPos    *float64
}

func (f fakeHouses) Houses(_, _, _ float64, _ byte) ([]float64, []float64, error) {
	if f.housesErr != nil {
		return nil, nil, f.housesErr
	}
	cusps := make([]float64, 13)
	for i := 1; i <= 12; i++ {
		cusps[i] = Wrap360(f.asc + float64(i-1)*30)
	}
	return cusps, []float64{f.asc, f.mc, 0, f.vertex, 0}, nil
}

func (f fakeHouses) HousePosition(_, _, _ float64, _ byte, lon, _ float64) (float64, error) {
	if f.posErr != nil {
		return 0, f.posErr
	}
	if f.sunPos != nil {
		return *f.sunPos, nil
	}
	return 1 + Wrap360(lon-f.asc)/30, nil
}

func allBodies() fakeResolver {
	return fakeResolver{
		ephemeris.Sun: 10, ephemeris.Moon: 130, ephemeris.Mercury: 20, ephemeris.Venus: 340,
		ephemeris.Mars: 100, ephemeris.Jupiter: 190, ephemeris.Saturn: 250, ephemeris.Uranus: 300,
		ephemeris.Neptune: 310, ephemeris.Pluto: 255, ephemeris.TrueNode: 45, ephemeris.Chiron: 75,
		ephemeris.MeanApogee: 160,
	}
}

func TestWrap360AndSigns(t *testing.T) {
	req := require.New(t)

	for _, in := range []float64{-720.5, -360, -0.0000001, 0, 359.9999999, 360, 725, 1e6} {
		w := Wrap360(in)
		req.GreaterOrEqual(w, 0.0)
		req.Less(w, 360.0)

		sign, within := SignOf(in)
		req.GreaterOrEqual(within, 0.0)
		req.Less(within, 30.0)
		idx := -1
		for i, s := range Signs {
			if s == sign {
				idx = i
			}
		}
		req.InDelta(w, float64(idx)*30+within, 1e-9)
	}

	sign, within := SignOf(0)
	req.Equal("Aries", sign)
	req.Equal(0.0, within)
	sign, within = SignOf(359.5)
	req.Equal("Pisces", sign)
	req.InDelta(29.5, within, 1e-9)
	sign, _ = SignOf(-10)
	req.Equal("Pisces", sign)
}

func TestAngularSeparation(t *testing.T) {
	req := require.New(t)

	cases := []struct{ a, b, want float64 }{
		{10, 350, 20},
		{0, 180, 180},
		{90, 90, 0},
		{-30, 30, 60},
		{725, 5, 0},
	}
	for _, c := range cases {
		req.InDelta(c.want, AngularSeparation(c.a, c.b), 1e-9)
		req.InDelta(AngularSeparation(c.b, c.a), AngularSeparation(c.a, c.b), 1e-12)
	}
}

func TestJulianDay(t *testing.T) {
	req := require.New(t)

	req.InDelta(2451545.0, JulianDay(2000, 1, 1, 12), 1e-9)
	req.InDelta(2436116.31, JulianDay(1957, 10, 4, 19.44), 1e-6)
	req.InDelta(2299160.5, JulianDay(1582, 10, 15, 0), 1e-9)

	// a UTC+3 birth at 03:00 local is midnight UT
	in := models.BirthData{Year: 1990, Month: 1, Day: 1, Hour: 3, TZOffsetHours: 3}
	req.InDelta(JulianDay(1990, 1, 1, 0), InstantOf(in), 1e-9)

	// negative hours roll back a day
	in = models.BirthData{Year: 1990, Month: 1, Day: 1, Hour: 1, TZOffsetHours: 3}
	req.InDelta(JulianDay(1989, 12, 31, 22), InstantOf(in), 1e-9)
}

func TestNormalizeHouseSystem(t *testing.T) {
	req := require.New(t)

	req.Equal(byte('P'), NormalizeHouseSystem(""))
	req.Equal(byte('K'), NormalizeHouseSystem("Koch"))
	req.Equal(byte('W'), NormalizeHouseSystem("W"))
	req.Equal(byte('P'), NormalizeHouseSystem("Ölçü"))
	req.Equal(byte('P'), NormalizeHouseSystem("\x00"))
}

func TestComputeBodies_UnavailableKeepsKey(t *testing.T) {
	req := require.New(t)

	res := allBodies()
	delete(res, ephemeris.Chiron)
	bodies := ComputeBodies(res, DefaultRegistry(), 2451545)

	req.Len(bodies, len(DefaultRegistry()))
	chiron, ok := bodies["Chiron"]
	req.True(ok)
	req.False(chiron.Available)
	req.Nil(chiron.Longitude)
	req.Nil(chiron.Sign)
	req.Nil(chiron.House)

	sun := bodies["Sun"]
	req.True(sun.Available)
	req.Equal("Aries", *sun.Sign)
	req.InDelta(10, *sun.DegInSign, 1e-9)
}

func TestComputeHouses(t *testing.T) {
	req := require.New(t)

	res := ComputeHouses(fakeHouses{asc: 100, mc: 10, vertex: 250}, 2451545, 40, 30, "Placidus")
	req.Equal(byte('P'), res.System)
	req.Len(res.Layout.Cusps, 12)
	req.Equal(100.0, res.Layout.Cusps[0])
	req.Equal(100.0, *res.Layout.Ascendant)
	req.Equal(10.0, *res.Layout.Midheaven)
	req.Equal(250.0, *res.Vertex)

	res = ComputeHouses(fakeHouses{housesErr: errors.New("nope")}, 2451545, 40, 30, "K")
	req.NotNil(res.Layout.Cusps)
	req.Empty(res.Layout.Cusps)
	req.Nil(res.Layout.Ascendant)
	req.Nil(res.Layout.Midheaven)
	req.Nil(res.Vertex)
}

func TestComputeHouses_ShortCuspList(t *testing.T) {
	req := require.New(t)

	res := ComputeHouses(shortHouses{}, 0, 0, 0, "P")
	req.Equal([]float64{1, 2, 3}, res.Layout.Cusps)
	req.Nil(res.Layout.Midheaven)
	req.Equal(1.0, *res.Layout.Ascendant)
}

type shortHouses struct{}

func (shortHouses) Houses(_, _, _ float64, _ byte) ([]float64, []float64, error) {
	return []float64{1, 2, 3}, []float64{1}, nil
}

func (shortHouses) HousePosition(_, _, _ float64, _ byte, _, _ float64) (float64, error) {
	return 0, errors.New("unused")
}

func TestComputePoints_DayNightBoundary(t *testing.T) {
	req := require.New(t)

	bodies := ComputeBodies(allBodies(), DefaultRegistry(), 0)
	place := Place{}

	cases := []struct {
		name    string
		sunPos  float64
		posErr  error
		fortune float64
	}{
		{"exactly six is day", 6.0, nil, Wrap360(100 + 130 - 10)},
		{"above six is night", 6.0001, nil, Wrap360(100 + 10 - 130)},
		{"failure counts as day", 0, errors.New("fail"), Wrap360(100 + 130 - 10)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sp := c.sunPos
			calc := fakeHouses{asc: 100, mc: 10, vertex: 250, sunPos: &sp, posErr: c.posErr}
			houses := ComputeHouses(calc, 0, 0, 0, "P")
			points := ComputePoints(calc, place, houses, bodies)
			require.InDelta(t, c.fortune, points[PointFortune].Longitude, 1e-9)
		})
	}

	calc := fakeHouses{asc: 100, mc: 10, vertex: 250}
	points := ComputePoints(calc, place, ComputeHouses(calc, 0, 0, 0, "P"), bodies)
	req.Len(points, 6)
	req.InDelta(280, points[PointDSC].Longitude, 1e-9)
	req.InDelta(190, points[PointIC].Longitude, 1e-9)
	req.Equal("Libra", points[PointIC].Sign)
}

func TestComputePoints_OmitsUnresolvable(t *testing.T) {
	req := require.New(t)

	res := allBodies()
	delete(res, ephemeris.Moon)
	bodies := ComputeBodies(res, DefaultRegistry(), 0)

	calc := fakeHouses{housesErr: errors.New("down")}
	points := ComputePoints(calc, Place{}, ComputeHouses(calc, 0, 0, 0, "P"), bodies)
	req.Empty(points)

	calc = fakeHouses{asc: 100, mc: 10, vertex: 250}
	points = ComputePoints(calc, Place{}, ComputeHouses(calc, 0, 0, 0, "P"), bodies)
	req.NotContains(points, PointFortune)
	req.Contains(points, PointVertex)
}

func TestAssignHouses(t *testing.T) {
	req := require.New(t)

	res := allBodies()
	delete(res, ephemeris.Pluto)
	bodies := ComputeBodies(res, DefaultRegistry(), 0)
	AssignHouses(fakeHouses{asc: 100}, Place{}, 'P', bodies)

	mars := bodies["Mars"]
	req.Equal(1, *mars.House)
	req.InDelta(1.0, *mars.HousePos, 1e-9)

	sun := bodies["Sun"]
	req.Equal(10, *sun.House)
	req.InDelta(10.0, *sun.HousePos, 1e-9)

	req.Nil(bodies["Pluto"].House)
	req.Nil(bodies["Pluto"].HousePos)

	AssignHouses(fakeHouses{asc: 100, posErr: errors.New("x")}, Place{}, 'P', bodies)
	req.Nil(bodies["Sun"].House)
	req.Nil(bodies["Sun"].HousePos)
}

func TestDetectAspects(t *testing.T) {
	req := require.New(t)

	rels := DetectAspects([]NamedLongitude{{"A", 10}, {"B", 12}})
	req.Len(rels, 1)
	req.Equal("Conjunction", rels[0].Aspect)
	req.InDelta(2, rels[0].Orb, 1e-9)

	rels = DetectAspects([]NamedLongitude{{"A", 10}, {"B", 190}})
	req.Equal("Opposition", rels[0].Aspect)
	req.InDelta(0, rels[0].Orb, 1e-9)

	rels = DetectAspects([]NamedLongitude{{"A", 0}, {"B", 93}})
	req.Equal("Square", rels[0].Aspect)
	req.InDelta(3, rels[0].Orb, 1e-9)
	req.Equal(90.0, rels[0].Exact)
	req.InDelta(93, rels[0].Separation, 1e-9)

	rels = DetectAspects([]NamedLongitude{{"A", 42}, {"B", 42}})
	req.Len(rels, 1)
	req.Equal("Conjunction", rels[0].Aspect)
	req.Equal(0.0, rels[0].Exact)
	req.Zero(rels[0].Orb)
	req.Zero(rels[0].Separation)

	req.Empty(DetectAspects([]NamedLongitude{{"A", 0}, {"B", 45}}))
	req.Empty(DetectAspects(nil))
}

func TestDetectAspects_SortedByOrbStable(t *testing.T) {
	req := require.New(t)

	rels := DetectAspects([]NamedLongitude{{"A", 0}, {"B", 3}, {"C", 123}, {"D", 63}})
	for i := 1; i < len(rels); i++ {
		req.LessOrEqual(rels[i-1].Orb, rels[i].Orb)
	}
	// A-B conj 3, A-C trine 3, A-D sextile 3 keep pair order at equal orbs
	var orb3 []string
	for _, r := range rels {
		if math.Abs(r.Orb-3) < 1e-9 {
			orb3 = append(orb3, r.P1+r.P2)
		}
	}
	req.Equal([]string{"AB", "AC", "AD"}, orb3[:3])
	for _, r := range rels {
		req.NotEqual(r.P1, r.P2)
	}
}

func TestChartAspects_OtherListOrder(t *testing.T) {
	req := require.New(t)

	bodies := ComputeBodies(allBodies(), DefaultRegistry(), 0)
	points := map[string]models.AngularPoint{PointAsc: {Longitude: 10.5}}
	aspects := ChartAspects(DefaultRegistry(), bodies, points)

	var ascSun *models.AspectRelation
	for i, r := range aspects.OtherAspects {
		if (r.P1 == "Asc" && r.P2 == "Sun") || (r.P1 == "Sun" && r.P2 == "Asc") {
			ascSun = &aspects.OtherAspects[i]
		}
	}
	req.NotNil(ascSun)
	req.Equal("Asc", ascSun.P1)

	for _, r := range aspects.PlanetAspects {
		req.NotContains([]string{"TrueNode", "Chiron", "Lilith", "Asc"}, r.P1)
		req.NotContains([]string{"TrueNode", "Chiron", "Lilith", "Asc"}, r.P2)
	}
}

func TestEngine_AssembleWithFakes(t *testing.T) {
	req := require.New(t)

	res := allBodies()
	delete(res, ephemeris.Chiron)
	eng := NewEngine(Config{DefaultHouseSystem: "P"}, res, fakeHouses{asc: 100, mc: 10, vertex: 250})

	chart := eng.Assemble(models.BirthData{Name: "Ada", Year: 1990, Month: 5, Day: 17, Hour: 14, Minute: 30, TZOffsetHours: 3})
	req.Equal("Ada", chart.Name)
	req.Equal("P", chart.HouseSystem)
	req.Len(chart.Planets, 13)
	req.False(chart.Planets["Chiron"].Available)
	req.Len(chart.Houses.Cusps, 12)
	req.Contains(chart.Points, PointFortune)
	req.NotEmpty(chart.Aspects.PlanetAspects)
}

func TestEngine_RealEphemerisIsDeterministicAndConcurrent(t *testing.T) {
	req := require.New(t)

	eng := Open(Config{EphemerisPath: t.TempDir()}, nil, nil)

	in := models.BirthData{Name: "x", Year: 1985, Month: 7, Day: 13, Hour: 9, Minute: 5, Latitude: 41.01, Longitude: 28.97, TZOffsetHours: 3, HouseSystem: "P"}
	first := eng.Assemble(in)

	var wg sync.WaitGroup
	charts := make([]models.NatalChart, 8)
	for i := range charts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			charts[i] = eng.Assemble(in)
		}(i)
	}
	wg.Wait()
	for _, c := range charts {
		req.Equal(first, c)
	}

	req.Len(first.Houses.Cusps, 12)
	req.InDelta(*first.Houses.Ascendant, first.Houses.Cusps[0], 1e-9)
	req.InDelta(*first.Houses.Midheaven, first.Houses.Cusps[9], 1e-9)
	req.False(first.Planets["Chiron"].Available)
	for name, b := range first.Planets {
		if !b.Available {
			continue
		}
		req.NotNil(b.House, name)
		req.GreaterOrEqual(*b.House, 1)
		req.LessOrEqual(*b.House, 12)
		req.GreaterOrEqual(*b.HousePos, 1.0)
		req.Less(*b.HousePos, 13.0)
	}
	req.Len(first.Points, 6)
	// July 13: the Sun is in Cancer
	req.Equal("Cancer", first.Planets["Sun"].SignName())
}

func TestEngine_PlacidusAnglesAtGreenwich(t *testing.T) {
	req := require.New(t)

	eng := Open(Config{DefaultHouseSystem: "P"}, nil, nil)
	chart := eng.Assemble(models.BirthData{Year: 2000, Month: 1, Day: 1, Hour: 12, Latitude: 51.48, HouseSystem: "Placidus"})

	req.Equal("P", chart.HouseSystem)
	req.InDelta(2451545.0, chart.JulianDayUT, 1e-9)
	req.InDelta(24.28, *chart.Houses.Ascendant, 0.02)
	req.InDelta(279.61, *chart.Houses.Midheaven, 0.02)
	req.InDelta(Opposite(279.61), chart.Houses.Cusps[3], 0.02)
	req.Equal(*chart.Houses.Ascendant, chart.Points[PointAsc].Longitude)
}

func TestOpen_MalformedTableKeepsEngine(t *testing.T) {
	req := require.New(t)

	dir := t.TempDir()
	req.NoError(os.WriteFile(filepath.Join(dir, "chiron.csv"), []byte("jd,lon,lat\n2451540.0,250,1\nabc,251,1\n"), 0o644))

	eng := Open(Config{EphemerisPath: dir}, nil, nil)
	req.NotNil(eng)

	chart := eng.Assemble(models.BirthData{Year: 2000, Month: 1, Day: 1, Hour: 12, Latitude: 51.48})
	req.False(chart.Planets["Chiron"].Available)
	req.True(chart.Planets["Sun"].Available)
	req.Len(chart.Houses.Cusps, 12)
}
