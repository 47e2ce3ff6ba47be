package astro

import (
	"AstroAI/internal/astro/ephemeris"
	"AstroAI/internal/domain/models"
)

// Point labels, in output order.
const (
	PointAsc     = "Asc"
	PointMC      = "MC"
	PointDSC     = "DSC"
	PointIC      = "IC"
	PointVertex  = "Vertex"
	PointFortune = "Fortune"
)

var PointOrder = []string{PointAsc, PointMC, PointDSC, PointIC, PointVertex, PointFortune}

// Place identifies where and when the houses were cast.
type Place struct {
	JD        float64
	Latitude  float64
	Longitude float64
}

// ComputePoints derives the angles, Vertex and Part of Fortune. Only points whose
// inputs are known appear in the result.
func ComputePoints(calc ephemeris.HouseCalculator, place Place, houses HouseResult, bodies map[string]models.BodyPosition) map[string]models.AngularPoint {
	out := make(map[string]models.AngularPoint, len(PointOrder))
	add := func(label string, lon float64) {
		sign, within := SignOf(lon)
		out[label] = models.AngularPoint{Longitude: Wrap360(lon), Sign: sign, DegInSign: within}
	}

	if asc := houses.Layout.Ascendant; asc != nil {
		add(PointAsc, *asc)
		add(PointDSC, Opposite(*asc))
	}
	if mc := houses.Layout.Midheaven; mc != nil {
		add(PointMC, *mc)
		add(PointIC, Opposite(*mc))
	}
	if houses.Vertex != nil {
		add(PointVertex, *houses.Vertex)
	}

	sun, sunOK := bodies["Sun"].Lon()
	moon, moonOK := bodies["Moon"].Lon()
	if houses.Layout.Ascendant != nil && sunOK && moonOK {
		asc := *houses.Layout.Ascendant
		if IsDayChart(calc, place, houses.System, bodies["Sun"]) {
			add(PointFortune, asc+moon-sun)
		} else {
			add(PointFortune, asc+sun-moon)
		}
	}
	return out
}

// IsDayChart applies the day/night rule: the Sun's house position at or below 6.0
// counts as day. A failed house position also counts as day.
func IsDayChart(calc ephemeris.HouseCalculator, place Place, sys byte, sun models.BodyPosition) bool {
	lon, ok := sun.Lon()
	if !ok {
		return true
	}
	var lat float64
	if sun.Latitude != nil {
		lat = *sun.Latitude
	}
	pos, err := calc.HousePosition(place.JD, place.Latitude, place.Longitude, sys, lon, lat)
	if err != nil {
		return true
	}
	return pos <= 6.0
}
