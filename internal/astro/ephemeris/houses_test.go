package ephemeris

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const testEps = 23.4393

func TestAscendantAndMidheaven(t *testing.T) {
	req := require.New(t)

	req.InDelta(90, ascendant(0, 0, testEps), 1e-9)
	req.InDelta(0, midheaven(0, testEps), 1e-9)
	req.InDelta(116.57, ascendant(0, 51.5, testEps), 0.05)
	req.InDelta(180, midheaven(180, testEps), 1e-9)
	req.InDelta(270, ascendant(180, 0, testEps), 1e-9)
}

func TestCusps_EqualAndWholeSign(t *testing.T) {
	req := require.New(t)

	c, err := cuspsFor('E', 40, 48, testEps)
	req.NoError(err)
	asc := ascendant(40, 48, testEps)
	for i := 1; i <= 12; i++ {
		req.InDelta(rev(asc+float64(i-1)*30), c[i], 1e-9)
	}

	w, err := cuspsFor('W', 40, 48, testEps)
	req.NoError(err)
	req.Zero(int(w[1]) % 30)
	req.LessOrEqual(w[1], asc)
}

func TestCusps_QuadrantSystemsAgreeAtEquator(t *testing.T) {
	req := require.New(t)

	for _, armc := range []float64{0, 75, 200, 333} {
		p, err := cuspsFor('P', armc, 0, testEps)
		req.NoError(err)
		r, err := cuspsFor('R', armc, 0, testEps)
		req.NoError(err)
		c, err := cuspsFor('C', armc, 0, testEps)
		req.NoError(err)
		for i := 1; i <= 12; i++ {
			req.InDelta(0, signedDelta(p[i], r[i]), 1e-6, "cusp %d armc %v", i, armc)
			req.InDelta(0, signedDelta(p[i], c[i]), 1e-6, "cusp %d armc %v", i, armc)
		}
	}
}

func TestCusps_AnglesAreCusps(t *testing.T) {
	req := require.New(t)

	for _, sys := range []byte{'P', 'K', 'O', 'R', 'C'} {
		c, err := cuspsFor(sys, 123, 41, testEps)
		req.NoError(err)
		req.InDelta(ascendant(123, 41, testEps), c[1], 1e-9)
		req.InDelta(midheaven(123, testEps), c[10], 1e-9)
		req.InDelta(0, signedDelta(rev(c[1]+180), c[7]), 1e-9)
		// cusps run forward through the zodiac
		for i := 1; i <= 12; i++ {
			req.Greater(rev(c[i%12+1]-c[i]), 0.0, "system %c cusp %d", sys, i)
		}
	}
}

func TestHouses_CircumpolarFallsBackToPorphyry(t *testing.T) {
	req := require.New(t)

	h := SphericalHouses{}
	cusps, aux, err := h.Houses(2451545.0, 89, 10, 'P')
	req.NoError(err)
	req.Len(cusps, 13)
	req.Len(aux, 5)

	armc := aux[AuxARMC]
	_, err = cuspsFor('P', armc, 89, h.obliquity(2451545.0))
	req.ErrorIs(err, ErrCircumpolar)

	porphyry, err := cuspsFor('O', armc, 89, h.obliquity(2451545.0))
	req.NoError(err)
	req.Equal(porphyry[:], cusps)
}

func TestHouses_UnknownSystemIsPlacidus(t *testing.T) {
	req := require.New(t)

	h := SphericalHouses{Nutation: true}
	p, _, err := h.Houses(2447892.5, 40.7, -74.0, 'P')
	req.NoError(err)
	x, _, err := h.Houses(2447892.5, 40.7, -74.0, 'Z')
	req.NoError(err)
	req.Equal(p, x)
}

func TestPositionAmong(t *testing.T) {
	req := require.New(t)

	var cusps [13]float64
	for i := 1; i <= 12; i++ {
		cusps[i] = rev(350 + float64(i-1)*30)
	}
	pos, err := positionAmong(cusps[:], 5)
	req.NoError(err)
	req.InDelta(1.5, pos, 1e-9)

	pos, err = positionAmong(cusps[:], 349.999)
	req.NoError(err)
	req.Greater(pos, 12.99)
	req.Less(pos, 13.0)

	pos, err = positionAmong(cusps[:], 350)
	req.NoError(err)
	req.Equal(1.0, pos)

	_, err = positionAmong(make([]float64, 13), 10)
	req.ErrorIs(err, ErrDegenerateCusps)

	_, err = positionAmong(cusps[:5], 10)
	req.ErrorIs(err, ErrDegenerateCusps)
}

func TestHousePosition_Range(t *testing.T) {
	req := require.New(t)

	h := SphericalHouses{}
	for lon := 0.0; lon < 360; lon += 7.5 {
		pos, err := h.HousePosition(2451545.0, 52, 13, 'K', lon, 0)
		req.NoError(err)
		req.GreaterOrEqual(pos, 1.0)
		req.Less(pos, 13.0)
	}
}

func houseDelta(a, b float64) float64 {
	return math.Mod(a-b+18, 12) - 6
}

func TestHousePosition_CuspsLandOnTheirHouse(t *testing.T) {
	req := require.New(t)

	const armc, lat = 123.0, 41.0
	positions := map[byte]func(ra, decl float64) (float64, error){
		'P': func(ra, decl float64) (float64, error) { return placidusPosition(armc, lat, ra, decl) },
		'K': func(ra, decl float64) (float64, error) { return kochPosition(armc, lat, testEps, ra, decl) },
		'R': func(ra, decl float64) (float64, error) { return regiomontanusPosition(armc, lat, ra, decl), nil },
		'C': func(ra, decl float64) (float64, error) { return campanusPosition(armc, lat, ra, decl), nil },
	}
	for sys, position := range positions {
		c, err := cuspsFor(sys, armc, lat, testEps)
		req.NoError(err)
		for i := 1; i <= 12; i++ {
			ra, decl := equatorial(c[i], 0, testEps)
			pos, err := position(ra, decl)
			req.NoError(err)
			req.InDelta(0, houseDelta(wrapHouse(pos), float64(i)), 1e-6, "system %c cusp %d", sys, i)
		}
	}
}

func TestHousePosition_EclipticLatitudeMovesQuadrantSystems(t *testing.T) {
	req := require.New(t)

	h := SphericalHouses{}
	tests := []struct {
		system byte
		moves  bool
	}{
		{'P', true},
		{'K', true},
		{'R', true},
		{'C', true},
		{'E', false},
		{'W', false},
		{'O', false},
	}
	for _, tt := range tests {
		flat, err := h.HousePosition(j2000, 51.48, 0, tt.system, 100, 0)
		req.NoError(err)
		north, err := h.HousePosition(j2000, 51.48, 0, tt.system, 100, 5)
		req.NoError(err)
		south, err := h.HousePosition(j2000, 51.48, 0, tt.system, 100, -5)
		req.NoError(err)
		if !tt.moves {
			req.Equal(flat, north, "system %c", tt.system)
			req.Equal(flat, south, "system %c", tt.system)
			continue
		}
		req.Greater(math.Abs(north-flat), 0.01, "system %c", tt.system)
		req.Greater(math.Abs(south-flat), 0.01, "system %c", tt.system)
		req.Less((north-flat)*(south-flat), 0.0, "system %c", tt.system)
	}
}

func TestHousePosition_PlacidusReference(t *testing.T) {
	req := require.New(t)

	// lon 100 sits just past the IC at Greenwich on 2000-01-01 12h
	h := SphericalHouses{}
	for _, tt := range []struct {
		lat, want float64
	}{
		{0, 4.0218},
		{5, 4.0527},
		{-5, 4.0011},
	} {
		pos, err := h.HousePosition(j2000, 51.48, 0, 'P', 100, tt.lat)
		req.NoError(err)
		req.InDelta(tt.want, pos, 0.002, "latitude %v", tt.lat)
	}
}

func TestHousePosition_CircumpolarBodyUsesLongitude(t *testing.T) {
	req := require.New(t)

	h := SphericalHouses{}
	jd := j2000
	// declination near +70 never sets at 66 north
	pos, err := h.HousePosition(jd, 66, 0, 'P', 90, 46)
	req.NoError(err)
	cusps, _, err := h.Houses(jd, 66, 0, 'P')
	req.NoError(err)
	want, err := positionAmong(cusps, 90)
	req.NoError(err)
	req.Equal(want, pos)
}
