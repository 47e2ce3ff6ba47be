package astro

import (
	"AstroAI/internal/astro/ephemeris"
	"AstroAI/internal/domain/models"
)

// PositionResolver is the fallback-aware lookup used by the engine; *ephemeris.Chain satisfies it.
type PositionResolver interface {
	Resolve(jd float64, body ephemeris.Body) (ephemeris.Position, bool)
}

// ComputeBodies resolves every registry entry. The result always has exactly
// the registry's keys; entries no tier could resolve are marked unavailable.
func ComputeBodies(src PositionResolver, reg Registry, jd float64) map[string]models.BodyPosition {
	out := make(map[string]models.BodyPosition, len(reg))
	for _, e := range reg {
		pos, ok := src.Resolve(jd, e.Body)
		if !ok {
			out[e.Name] = models.BodyPosition{Available: false}
			continue
		}
		out[e.Name] = presentBody(pos)
	}
	return out
}

func presentBody(pos ephemeris.Position) models.BodyPosition {
	lon := Wrap360(pos.Longitude)
	sign, within := SignOf(lon)
	lat, speed := pos.Latitude, pos.Speed
	return models.BodyPosition{
		Available: true,
		Longitude: &lon,
		Latitude:  &lat,
		Sign:      &sign,
		DegInSign: &within,
		LonSpeed:  &speed,
	}
}
