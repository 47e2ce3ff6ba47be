package astro

import (
	"math"
	"sort"

	"AstroAI/internal/domain/models"
)

// AspectType is an exact angle with its allowed orb.
type AspectType struct {
	Name  string
	Angle float64
	Orb   float64
}

// AspectTypes are checked in this order; the first match wins.
var AspectTypes = []AspectType{
	{Name: "Conjunction", Angle: 0, Orb: 8},
	{Name: "Opposition", Angle: 180, Orb: 8},
	{Name: "Trine", Angle: 120, Orb: 6},
	{Name: "Square", Angle: 90, Orb: 6},
	{Name: "Sextile", Angle: 60, Orb: 4},
}

// NamedLongitude is an input object for aspect detection.
type NamedLongitude struct {
	Name      string
	Longitude float64
}

// DetectAspects examines each unordered pair (i<j) once and returns the
// relations sorted by increasing orb. Equal orbs keep pair order.
func DetectAspects(objs []NamedLongitude) []models.AspectRelation {
	out := []models.AspectRelation{}
	for i := 0; i < len(objs); i++ {
		for j := i + 1; j < len(objs); j++ {
			sep := AngularSeparation(objs[i].Longitude, objs[j].Longitude)
			for _, at := range AspectTypes {
				diff := math.Abs(sep - at.Angle)
				if diff <= at.Orb {
					out = append(out, models.AspectRelation{
						P1:         objs[i].Name,
						P2:         objs[j].Name,
						Aspect:     at.Name,
						Exact:      at.Angle,
						Separation: sep,
						Orb:        diff,
					})
					break
				}
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Orb < out[b].Orb })
	return out
}

// aspectObjects collects available bodies by name, skipping unknown longitudes.
func aspectObjects(names []string, bodies map[string]models.BodyPosition) []NamedLongitude {
	var out []NamedLongitude
	for _, n := range names {
		if lon, ok := bodies[n].Lon(); ok {
			out = append(out, NamedLongitude{Name: n, Longitude: lon})
		}
	}
	return out
}

// ChartAspects builds both aspect lists: the classical bodies alone, and the
// points followed by the minor registry entries and the classical bodies.
func ChartAspects(reg Registry, bodies map[string]models.BodyPosition, points map[string]models.AngularPoint) models.ChartAspects {
	major := aspectObjects(reg.MajorNames(), bodies)

	var other []NamedLongitude
	for _, label := range PointOrder {
		if p, ok := points[label]; ok {
			other = append(other, NamedLongitude{Name: label, Longitude: p.Longitude})
		}
	}
	other = append(other, aspectObjects(reg.MinorNames(), bodies)...)
	other = append(other, major...)

	return models.ChartAspects{
		PlanetAspects: DetectAspects(major),
		OtherAspects:  DetectAspects(other),
	}
}
