package astro

import "math"

// Signs in zodiac order, starting at 0° ecliptic longitude.
var Signs = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// Wrap360 reduces an angle to [0, 360).
func Wrap360(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

// Opposite is the point 180° away.
func Opposite(deg float64) float64 { return Wrap360(deg + 180) }

// AngularSeparation is the shortest arc between two longitudes, in [0, 180].
func AngularSeparation(a, b float64) float64 {
	d := math.Abs(Wrap360(a) - Wrap360(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// SignOf returns the sign containing lon and the degree within it, in [0, 30).
func SignOf(lon float64) (string, float64) {
	w := Wrap360(lon)
	idx := int(w / 30)
	if idx > 11 {
		idx = 11
	}
	within := w - float64(idx)*30
	if within < 0 {
		within = 0
	}
	return Signs[idx], within
}
