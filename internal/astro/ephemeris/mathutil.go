package ephemeris

import "math"

const (
	rad = math.Pi / 180
	deg = 180 / math.Pi
)

func sind(x float64) float64  { return math.Sin(x * rad) }
func cosd(x float64) float64  { return math.Cos(x * rad) }
func tand(x float64) float64  { return math.Tan(x * rad) }
func asind(x float64) float64 { return math.Asin(clamp1(x)) * deg }
func acosd(x float64) float64 { return math.Acos(clamp1(x)) * deg }
func atand(x float64) float64 { return math.Atan(x) * deg }

func atan2d(y, x float64) float64 { return math.Atan2(y, x) * deg }

func clamp1(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// rev reduces an angle to [0, 360).
func rev(x float64) float64 {
	r := math.Mod(x, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 {
		r = 0
	}
	return r
}

// signedDelta is the shortest signed arc from a to b, in (-180, 180].
func signedDelta(a, b float64) float64 {
	d := rev(b - a)
	if d > 180 {
		d -= 360
	}
	return d
}
