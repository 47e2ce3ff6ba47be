package astro

import "AstroAI/internal/astro/ephemeris"

// RegistryEntry names a body that appears in every chart.
type RegistryEntry struct {
	Name  string
	Body  ephemeris.Body
	Major bool // one of the ten classical bodies
}

// Registry is the ordered set of bodies a chart reports.
type Registry []RegistryEntry

// DefaultRegistry lists the ten classical bodies followed by TrueNode, Chiron and Lilith.
func DefaultRegistry() Registry {
	return Registry{
		{Name: "Sun", Body: ephemeris.Sun, Major: true},
		{Name: "Moon", Body: ephemeris.Moon, Major: true},
		{Name: "Mercury", Body: ephemeris.Mercury, Major: true},
		{Name: "Venus", Body: ephemeris.Venus, Major: true},
		{Name: "Mars", Body: ephemeris.Mars, Major: true},
		{Name: "Jupiter", Body: ephemeris.Jupiter, Major: true},
		{Name: "Saturn", Body: ephemeris.Saturn, Major: true},
		{Name: "Uranus", Body: ephemeris.Uranus, Major: true},
		{Name: "Neptune", Body: ephemeris.Neptune, Major: true},
		{Name: "Pluto", Body: ephemeris.Pluto, Major: true},
		{Name: "TrueNode", Body: ephemeris.TrueNode},
		{Name: "Chiron", Body: ephemeris.Chiron},
		{Name: "Lilith", Body: ephemeris.MeanApogee},
	}
}

// With returns a copy extended by entries; an entry whose name already exists replaces it in place.
func (r Registry) With(entries ...RegistryEntry) Registry {
	out := make(Registry, len(r), len(r)+len(entries))
	copy(out, r)
	for _, e := range entries {
		replaced := false
		for i := range out {
			if out[i].Name == e.Name {
				out[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, e)
		}
	}
	return out
}

// Names lists entry names in order.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for _, e := range r {
		out = append(out, e.Name)
	}
	return out
}

// MajorNames lists the classical bodies in order.
func (r Registry) MajorNames() []string {
	var out []string
	for _, e := range r {
		if e.Major {
			out = append(out, e.Name)
		}
	}
	return out
}

// MinorNames lists the lunar points and minor bodies in order.
func (r Registry) MinorNames() []string {
	var out []string
	for _, e := range r {
		if !e.Major {
			out = append(out, e.Name)
		}
	}
	return out
}
