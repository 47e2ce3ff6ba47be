package astro

import (
	"AstroAI/internal/astro/ephemeris"
	"AstroAI/internal/domain/models"
)

const DefaultHouseSystem = "P"

// NormalizeHouseSystem reduces a house system name to its one byte code. The first
// character is used when it is printable ASCII; anything else selects Placidus.
func NormalizeHouseSystem(code string) byte {
	if code == "" {
		return 'P'
	}
	c := code[0]
	if c < 0x21 || c > 0x7e {
		return 'P'
	}
	return c
}

// HouseResult is the house layout plus the auxiliary angles the point computer needs.
type HouseResult struct {
	Layout models.HouseLayout
	Vertex *float64
	System byte
}

// ComputeHouses returns the cusps and angles for a place and instant. A calculator
// failure yields an empty layout rather than an error.
func ComputeHouses(calc ephemeris.HouseCalculator, jd, lat, lon float64, code string) HouseResult {
	sys := NormalizeHouseSystem(code)
	res := HouseResult{System: sys, Layout: models.HouseLayout{Cusps: []float64{}}}

	cusps, aux, err := calc.Houses(jd, lat, lon, sys)
	if err != nil {
		return res
	}

	if len(cusps) >= 13 {
		res.Layout.Cusps = wrapAll(cusps[1:13])
	} else {
		res.Layout.Cusps = wrapAll(cusps[:min(len(cusps), 12)])
	}
	if len(aux) > ephemeris.AuxAscendant {
		res.Layout.Ascendant = wrapped(aux[ephemeris.AuxAscendant])
	}
	if len(aux) > ephemeris.AuxMidheaven {
		res.Layout.Midheaven = wrapped(aux[ephemeris.AuxMidheaven])
	}
	if len(aux) > ephemeris.AuxVertex {
		res.Vertex = wrapped(aux[ephemeris.AuxVertex])
	}
	return res
}

func wrapAll(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = Wrap360(v)
	}
	return out
}

func wrapped(v float64) *float64 {
	w := Wrap360(v)
	return &w
}
