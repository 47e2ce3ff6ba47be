package ephemeris

import (
	"math"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/kepler"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/planetelements"
	"github.com/soniakeys/meeus/v3/pluto"
	"github.com/soniakeys/meeus/v3/solar"
)

// speedStep is the half width, in days, of the central difference used for speeds.
const speedStep = 0.5

// lunarInclination is the mean inclination of the lunar orbit to the ecliptic, degrees.
const lunarInclination = 5.1453964

// AnalyticSource needs no data files. The Sun uses the solar series, the Moon and its
// node and perigee the ELP based lunar series, the planets unperturbed mean elements
// of date solved through Kepler's equation, and Pluto its periodic series. Planet
// accuracy is of the order of a degree for Jupiter and Saturn, better for the rest.
type AnalyticSource struct{}

func (AnalyticSource) Position(jd float64, body Body) (Position, error) {
	if !analyticSupported(body) {
		return Position{}, ErrUnsupportedBody
	}
	return withSpeed(jd, func(t float64) (float64, float64, error) {
		lon, lat := analyticEcliptic(body, t)
		return lon, lat, nil
	})
}

func analyticSupported(body Body) bool {
	switch body {
	case Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto, TrueNode, MeanApogee:
		return true
	}
	return false
}

// withSpeed calls at for jd and derives the longitudinal speed by central difference.
func withSpeed(jd float64, at func(float64) (lon, lat float64, err error)) (Position, error) {
	lon, lat, err := at(jd)
	if err != nil {
		return Position{}, err
	}
	before, _, err := at(jd - speedStep)
	if err != nil {
		return Position{}, err
	}
	after, _, err := at(jd + speedStep)
	if err != nil {
		return Position{}, err
	}
	return Position{
		Longitude: rev(lon),
		Latitude:  lat,
		Speed:     signedDelta(before, after) / (2 * speedStep),
	}, nil
}

var elementIndex = map[Body]int{
	Mercury: planetelements.Mercury,
	Venus:   planetelements.Venus,
	Mars:    planetelements.Mars,
	Jupiter: planetelements.Jupiter,
	Saturn:  planetelements.Saturn,
	Uranus:  planetelements.Uranus,
	Neptune: planetelements.Neptune,
}

func analyticEcliptic(body Body, jd float64) (lon, lat float64) {
	switch body {
	case Sun:
		s, _ := solar.True(base.J2000Century(jd))
		return s.Deg(), 0
	case Moon:
		l, b, _ := moonposition.Position(jd)
		return l.Deg(), b.Deg()
	case TrueNode:
		return moonposition.TrueNode(jd).Deg(), 0
	case MeanApogee:
		return meanApogee(jd)
	case Pluto:
		l, b, r := pluto.Heliocentric(jd)
		hl := l.Deg() + precessionSinceJ2000(jd)
		return geocentric(rectangular(hl, b.Deg(), r), solarEarth(jd))
	default:
		return geocentric(keplerHeliocentric(elementIndex[body], jd), solarEarth(jd))
	}
}

type vec3 struct{ x, y, z float64 }

func rectangular(lon, lat, r float64) vec3 {
	return vec3{r * cosd(lon) * cosd(lat), r * sind(lon) * cosd(lat), r * sind(lat)}
}

// geocentric returns longitude and latitude of a heliocentric point seen from earth.
func geocentric(p, earth vec3) (lon, lat float64) {
	x, y, z := p.x-earth.x, p.y-earth.y, p.z-earth.z
	return rev(atan2d(y, x)), atan2d(z, math.Hypot(x, y))
}

// solarEarth is the heliocentric position of the earth of date, opposite the true Sun.
func solarEarth(jd float64) vec3 {
	T := base.J2000Century(jd)
	s, _ := solar.True(T)
	return rectangular(s.Deg()+180, 0, solar.Radius(T))
}

func keplerHeliocentric(planet int, jd float64) vec3 {
	var el planetelements.Elements
	planetelements.Mean(planet, jd, &el)
	M := el.Lon - el.Peri
	E, err := kepler.Kepler1(el.Ecc, M, 8)
	if err != nil {
		E = M
	}
	v := kepler.True(E, el.Ecc)
	r := kepler.Radius(E, el.Ecc, el.Axis)

	node, inc := el.Node.Deg(), el.Inc.Deg()
	u := v.Deg() + el.Peri.Deg() - node
	return vec3{
		r * (cosd(node)*cosd(u) - sind(node)*sind(u)*cosd(inc)),
		r * (sind(node)*cosd(u) + cosd(node)*sind(u)*cosd(inc)),
		r * sind(u) * sind(inc),
	}
}

// precessionSinceJ2000 is the general precession in longitude, degrees.
func precessionSinceJ2000(jd float64) float64 {
	T := base.J2000Century(jd)
	return (5029.0966*T + 1.11113*T*T) / 3600
}

// meanApogee places the point opposite the mean perigee on the mean lunar orbit.
func meanApogee(jd float64) (lon, lat float64) {
	node := moonposition.Node(jd).Deg()
	apogee := moonposition.Perigee(jd).Deg() + 180
	u := rev(apogee - node)
	lon = rev(node + atan2d(sind(u)*cosd(lunarInclination), cosd(u)))
	lat = asind(sind(lunarInclination) * sind(u))
	return lon, lat
}
