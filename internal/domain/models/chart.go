package models

// BodyPosition is one registry entry of a chart. When Available is false every
// geometric field is nil; House and HousePos are nil when no house could be assigned.
type BodyPosition struct {
	Available bool     `json:"available"`
	Longitude *float64 `json:"lon"`
	Latitude  *float64 `json:"lat"`
	Sign      *string  `json:"sign"`
	DegInSign *float64 `json:"deg_in_sign"`
	LonSpeed  *float64 `json:"lon_speed"`
	House     *int     `json:"house"`
	HousePos  *float64 `json:"house_pos"`
}

// Lon returns the ecliptic longitude when the body resolved.
func (b BodyPosition) Lon() (float64, bool) {
	if !b.Available || b.Longitude == nil {
		return 0, false
	}
	return *b.Longitude, true
}

// SignName returns the zodiac sign or "".
func (b BodyPosition) SignName() string {
	if b.Sign == nil {
		return ""
	}
	return *b.Sign
}

// HouseLayout holds the twelve cusps (may be fewer or empty) and the two main angles.
type HouseLayout struct {
	Cusps     []float64 `json:"cusps"`
	Ascendant *float64  `json:"ascendant"`
	Midheaven *float64  `json:"midheaven"`
}

// AngularPoint is a sensitive point such as the Ascendant or the Part of Fortune.
type AngularPoint struct {
	Longitude float64 `json:"lon"`
	Sign      string  `json:"sign"`
	DegInSign float64 `json:"deg_in_sign"`
}

// AspectRelation is an angular relationship between two named objects.
type AspectRelation struct {
	P1         string  `json:"p1"`
	P2         string  `json:"p2"`
	Aspect     string  `json:"aspect"`
	Exact      float64 `json:"exact"`
	Separation float64 `json:"sep"`
	Orb        float64 `json:"orb"`
}

type ChartAspects struct {
	PlanetAspects []AspectRelation `json:"planet_aspects"`
	OtherAspects  []AspectRelation `json:"other_aspects"`
}

// NatalChart is the assembled chart. ID is assigned by the service layer.
type NatalChart struct {
	ID          string                  `json:"id,omitempty"`
	Name        string                  `json:"name"`
	JulianDayUT float64                 `json:"jd_ut"`
	HouseSystem string                  `json:"house_system"`
	Planets     map[string]BodyPosition `json:"planets"`
	Houses      HouseLayout             `json:"houses"`
	Points      map[string]AngularPoint `json:"points"`
	Aspects     ChartAspects            `json:"aspects"`
}

// ChartSummary is the compact form published on chart events and stored in the archive index.
type ChartSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	JulianDayUT float64 `json:"jd_ut"`
	HouseSystem string  `json:"house_system"`
	SunSign     string  `json:"sun_sign"`
	MoonSign    string  `json:"moon_sign"`
	AscSign     string  `json:"asc_sign"`
	Unavailable int     `json:"unavailable"`
	Aspects     int     `json:"aspects"`
}

func (c NatalChart) Summary() ChartSummary {
	s := ChartSummary{
		ID:          c.ID,
		Name:        c.Name,
		JulianDayUT: c.JulianDayUT,
		HouseSystem: c.HouseSystem,
		SunSign:     c.Planets["Sun"].SignName(),
		MoonSign:    c.Planets["Moon"].SignName(),
		Aspects:     len(c.Aspects.PlanetAspects),
	}
	if asc, ok := c.Points["Asc"]; ok {
		s.AscSign = asc.Sign
	}
	for _, p := range c.Planets {
		if !p.Available {
			s.Unavailable++
		}
	}
	return s
}
