package astro

import (
	"math"

	"AstroAI/internal/astro/ephemeris"
	"AstroAI/internal/domain/models"
)

// AssignHouses fills House and HousePos on every available body. Bodies whose
// position cannot be placed keep both fields nil.
func AssignHouses(calc ephemeris.HouseCalculator, place Place, sys byte, bodies map[string]models.BodyPosition) {
	for name, b := range bodies {
		lon, ok := b.Lon()
		if !ok {
			continue
		}
		var lat float64
		if b.Latitude != nil {
			lat = *b.Latitude
		}
		pos, err := calc.HousePosition(place.JD, place.Latitude, place.Longitude, sys, lon, lat)
		if err != nil || math.IsNaN(pos) {
			b.House, b.HousePos = nil, nil
			bodies[name] = b
			continue
		}
		house := int(math.Floor(pos))
		b.House, b.HousePos = &house, &pos
		bodies[name] = b
	}
}
