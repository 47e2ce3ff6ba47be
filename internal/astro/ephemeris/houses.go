package ephemeris

import (
	"errors"
	"math"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"
)

var (
	// ErrCircumpolar is returned by time based systems where cusps never cross the horizon.
	ErrCircumpolar = errors.New("ephemeris: house cusps undefined at circumpolar latitude")
	// ErrDegenerateCusps is returned when cusps do not partition the circle.
	ErrDegenerateCusps = errors.New("ephemeris: degenerate house cusps")
)

// Indexes into the auxiliary angle slice returned by Houses.
const (
	AuxAscendant = iota
	AuxMidheaven
	AuxARMC
	AuxVertex
	AuxEquatorialAscendant
)

// HouseCalculator computes house cusps and continuous house positions.
type HouseCalculator interface {
	// Houses returns 13 cusps (index 0 unused) and the auxiliary angles
	// [Asc, MC, ARMC, Vertex, EquatorialAsc].
	Houses(jd, lat, lon float64, system byte) (cusps []float64, aux []float64, err error)
	// HousePosition returns the continuous house position in [1, 13) of an ecliptic point.
	HousePosition(jd, lat, lon float64, system byte, bodyLon, bodyLat float64) (float64, error)
}

// SphericalHouses implements the usual quadrant and equal systems:
// P Placidus, K Koch, O Porphyry, R Regiomontanus, C Campanus, E/A Equal, W Whole sign.
// Any other code is treated as Placidus; Placidus and Koch fall back to Porphyry
// when the latitude makes them undefined.
type SphericalHouses struct {
	// Nutation applies nutation in longitude and obliquity to sidereal time and obliquity.
	Nutation bool
}

func (h SphericalHouses) Houses(jd, lat, lon float64, system byte) ([]float64, []float64, error) {
	armc := rev(h.siderealDegrees(jd) + lon)
	eps := h.obliquity(jd)
	cusps, err := cuspsFor(system, armc, lat, eps)
	if errors.Is(err, ErrCircumpolar) {
		cusps, err = cuspsFor('O', armc, lat, eps)
	}
	if err != nil {
		return nil, nil, err
	}
	aux := []float64{
		AuxAscendant:           ascendant(armc, lat, eps),
		AuxMidheaven:           midheaven(armc, eps),
		AuxARMC:                armc,
		AuxVertex:              vertex(armc, lat, eps),
		AuxEquatorialAscendant: asc1(armc+90, 0, eps),
	}
	return cusps[:], aux, nil
}

// HousePosition places a body by its equatorial position, so ecliptic latitude moves it.
// Placidus divides each body's own semi-arcs, Koch uses the body's rising or setting time,
// Regiomontanus and Campanus use the house circle through the body. Ecliptic systems,
// circumpolar bodies and places where the system fell back to Porphyry are placed by
// longitude between the cusps.
func (h SphericalHouses) HousePosition(jd, lat, lon float64, system byte, bodyLon, bodyLat float64) (float64, error) {
	armc := rev(h.siderealDegrees(jd) + lon)
	eps := h.obliquity(jd)
	cusps, err := cuspsFor(system, armc, lat, eps)
	if errors.Is(err, ErrCircumpolar) {
		if cusps, err = cuspsFor('O', armc, lat, eps); err != nil {
			return 0, err
		}
		return positionAmong(cusps[:], bodyLon)
	}
	if err != nil {
		return 0, err
	}

	ra, decl := equatorial(bodyLon, bodyLat, eps)
	var pos float64
	switch system {
	case 'E', 'A', 'W', 'O':
		return positionAmong(cusps[:], bodyLon)
	case 'R':
		pos = regiomontanusPosition(armc, lat, ra, decl)
	case 'C':
		pos = campanusPosition(armc, lat, ra, decl)
	case 'K':
		pos, err = kochPosition(armc, lat, eps, ra, decl)
	default:
		pos, err = placidusPosition(armc, lat, ra, decl)
	}
	if errors.Is(err, ErrCircumpolar) {
		return positionAmong(cusps[:], bodyLon)
	}
	if err != nil {
		return 0, err
	}
	return wrapHouse(pos), nil
}

// equatorial converts ecliptic coordinates to right ascension and declination, degrees.
func equatorial(lon, lat, eps float64) (ra, decl float64) {
	se, ce := math.Sincos(eps * rad)
	a, d := coord.EclToEq(unit.AngleFromDeg(lon), unit.AngleFromDeg(lat), se, ce)
	return rev(float64(a) * deg), d.Deg()
}

// semiArcs returns the diurnal and nocturnal semi-arcs of a declination at lat.
func semiArcs(lat, decl float64) (dsa, nsa float64, err error) {
	x := -tand(lat) * tand(decl)
	if math.Abs(x) >= 1 {
		return 0, 0, ErrCircumpolar
	}
	dsa = acosd(x)
	return dsa, 180 - dsa, nil
}

// placidusPosition walks the quadrants eastward from the MC: each is a third of the
// body's diurnal or nocturnal semi-arc per house.
func placidusPosition(armc, lat, ra, decl float64) (float64, error) {
	dsa, nsa, err := semiArcs(lat, decl)
	if err != nil {
		return 0, err
	}
	d := rev(ra - armc)
	switch {
	case d < dsa:
		return 10 + 3*d/dsa, nil
	case d < 180:
		return 1 + 3*(d-dsa)/nsa, nil
	case d < 180+nsa:
		return 4 + 3*(d-180)/nsa, nil
	default:
		return 7 + 3*(d-180-nsa)/dsa, nil
	}
}

// kochPosition compares the sidereal time at which the body rises (eastern half) or
// sets (western half) with the MC degree's semi-arc.
func kochPosition(armc, lat, eps, ra, decl float64) (float64, error) {
	dsa, _, err := semiArcs(lat, decl)
	if err != nil {
		return 0, err
	}
	mcDSA, _, err := semiArcs(lat, asind(sind(eps)*sind(midheaven(armc, eps))))
	if err != nil {
		return 0, err
	}
	d := rev(ra - armc)
	if d < 180 {
		return 1 - 3*(dsa-d)/mcDSA, nil
	}
	return 7 + 3*(d-360+dsa)/mcDSA, nil
}

// houseCircleAngle is the angle, eastward from the upper meridian, of the great circle
// through the north and south points of the horizon that contains the body.
func houseCircleAngle(armc, lat, ra, decl float64) float64 {
	ha := ra - armc
	east := cosd(decl) * sind(ha)
	up := cosd(decl)*cosd(ha)*cosd(lat) + sind(decl)*sind(lat)
	return atan2d(east, up)
}

func campanusPosition(armc, lat, ra, decl float64) float64 {
	return 10 + rev(houseCircleAngle(armc, lat, ra, decl))/30
}

func regiomontanusPosition(armc, lat, ra, decl float64) float64 {
	theta := houseCircleAngle(armc, lat, ra, decl)
	onEquator := atan2d(sind(theta)*cosd(lat), cosd(theta))
	return 10 + rev(onEquator)/30
}

// wrapHouse folds a position into [1, 13).
func wrapHouse(pos float64) float64 {
	pos = math.Mod(pos-1, 12)
	if pos < 0 {
		pos += 12
	}
	return pos + 1
}

func positionAmong(cusps []float64, lon float64) (float64, error) {
	if len(cusps) < 13 {
		return 0, ErrDegenerateCusps
	}
	for i := 1; i <= 12; i++ {
		start := cusps[i]
		next := cusps[i%12+1]
		width := rev(next - start)
		if width == 0 {
			continue
		}
		off := rev(lon - start)
		if off < width {
			pos := float64(i) + off/width
			if pos >= 13 {
				pos = 1
			}
			return pos, nil
		}
	}
	return 0, ErrDegenerateCusps
}

// obliquity of the ecliptic in degrees.
func (h SphericalHouses) obliquity(jd float64) float64 {
	eps := nutation.MeanObliquity(jd).Deg()
	if h.Nutation {
		_, dEps := nutation.Nutation(jd)
		eps += dEps.Deg()
	}
	return eps
}

// siderealDegrees is Greenwich sidereal time expressed in degrees, apparent when
// nutation is applied and mean otherwise.
func (h SphericalHouses) siderealDegrees(jd float64) float64 {
	st := sidereal.Mean(jd)
	if h.Nutation {
		st = sidereal.Apparent(jd)
	}
	return rev(float64(st) / 240)
}

// asc1 returns the ecliptic longitude rising on the horizon of a place with the given pole
// height when the right ascension of the eastern horizon point is re.
func asc1(re, pole, eps float64) float64 {
	return rev(atan2d(sind(re), cosd(re)*cosd(eps)-tand(pole)*sind(eps)))
}

func ascendant(armc, lat, eps float64) float64 { return asc1(armc+90, lat, eps) }

func midheaven(armc, eps float64) float64 {
	return rev(atan2d(sind(armc), cosd(armc)*cosd(eps)))
}

func vertex(armc, lat, eps float64) float64 {
	colat := 90 - lat
	if lat < 0 {
		colat = -90 - lat
	}
	return asc1(armc-90, colat, eps)
}

// eclipticFromRA converts a right ascension on the ecliptic to longitude.
func eclipticFromRA(ra, eps float64) float64 {
	return rev(atan2d(sind(ra), cosd(ra)*cosd(eps)))
}

func cuspsFor(system byte, armc, lat, eps float64) ([13]float64, error) {
	var c [13]float64
	asc := ascendant(armc, lat, eps)
	mc := midheaven(armc, eps)

	switch system {
	case 'E', 'A':
		for i := 1; i <= 12; i++ {
			c[i] = rev(asc + float64(i-1)*30)
		}
		return c, nil
	case 'W':
		start := math.Floor(asc/30) * 30
		for i := 1; i <= 12; i++ {
			c[i] = rev(start + float64(i-1)*30)
		}
		return c, nil
	case 'O':
		q := rev(asc - mc)
		c[11] = rev(mc + q/3)
		c[12] = rev(mc + 2*q/3)
		q = 180 - q
		c[2] = rev(asc + q/3)
		c[3] = rev(asc + 2*q/3)
	case 'R':
		for _, k := range []struct {
			idx int
			h   float64
		}{{11, 30}, {12, 60}, {2, 120}, {3, 150}} {
			pole := atand(tand(lat) * sind(k.h))
			c[k.idx] = asc1(armc+k.h, pole, eps)
		}
	case 'C':
		for _, k := range []struct {
			idx int
			h   float64
		}{{11, 30}, {12, 60}, {2, 120}, {3, 150}} {
			delta := atan2d(sind(k.h)*cosd(lat), cosd(k.h))
			pole := asind(sind(lat) * sind(k.h))
			c[k.idx] = asc1(armc+delta, pole, eps)
		}
	case 'K':
		decl := asind(sind(eps) * sind(mc))
		x := tand(lat) * tand(decl)
		if math.Abs(x) >= 1 {
			return c, ErrCircumpolar
		}
		d := 90 + asind(x) // diurnal semi-arc of the MC degree
		c[11] = asc1(armc+90-2*d/3, lat, eps)
		c[12] = asc1(armc+90-d/3, lat, eps)
		c[2] = asc1(armc+90+d/3, lat, eps)
		c[3] = asc1(armc+90+2*d/3, lat, eps)
	default:
		// Placidus: trisect each cusp's own semi-arc
		for _, k := range []struct {
			idx         int
			base, share float64
		}{{11, 0, 1.0 / 3}, {12, 0, 2.0 / 3}, {2, 60, 2.0 / 3}, {3, 120, 1.0 / 3}} {
			lon, err := placidusCusp(armc, lat, eps, k.base, k.share)
			if err != nil {
				return c, err
			}
			c[k.idx] = lon
		}
	}

	c[1] = asc
	c[10] = mc
	c[4] = rev(mc + 180)
	c[7] = rev(asc + 180)
	c[5] = rev(c[11] + 180)
	c[6] = rev(c[12] + 180)
	c[8] = rev(c[2] + 180)
	c[9] = rev(c[3] + 180)
	return c, nil
}

// placidusCusp iterates RA = armc + base + share*DSA(cusp) until the cusp settles.
func placidusCusp(armc, lat, eps, base, share float64) (float64, error) {
	lon := eclipticFromRA(armc+base+share*90, eps)
	for n := 0; n < 100; n++ {
		decl := asind(sind(eps) * sind(lon))
		x := -tand(lat) * tand(decl)
		if math.Abs(x) > 1 {
			return 0, ErrCircumpolar
		}
		dsa := acosd(x)
		next := eclipticFromRA(armc+base+share*dsa, eps)
		if math.Abs(signedDelta(lon, next)) < 1e-9 {
			return next, nil
		}
		lon = next
	}
	return lon, nil
}
