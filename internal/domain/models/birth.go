package models

import "fmt"

// BirthData is the civil birth moment and place the engine consumes.
// Latitude is north positive, Longitude east positive, TZOffsetHours is local minus UTC.
type BirthData struct {
	Name          string  `json:"name"`
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	Day           int     `json:"day"`
	Hour          int     `json:"hour"`
	Minute        int     `json:"minute"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	TZOffsetHours float64 `json:"tz_offset_hours"`
	HouseSystem   string  `json:"house_system"`
}

// CacheKey identifies the computation; the name does not change the geometry but is echoed in the chart.
func (b BirthData) CacheKey() string {
	return fmt.Sprintf("%s|%d-%02d-%02d|%02d:%02d|%.6f|%.6f|%.4f|%s",
		b.Name, b.Year, b.Month, b.Day, b.Hour, b.Minute, b.Latitude, b.Longitude, b.TZOffsetHours, b.HouseSystem)
}

// BirthRequest is the validated transport form of BirthData.
type BirthRequest struct {
	Name          string   `json:"name" validate:"max=120"`
	Year          int      `json:"year" validate:"required,gte=-5000,lte=5000"`
	Month         int      `json:"month" validate:"gte=1,lte=12"`
	Day           int      `json:"day" validate:"gte=1,lte=31"`
	Hour          int      `json:"hour" validate:"gte=0,lte=23"`
	Minute        int      `json:"minute" validate:"gte=0,lte=59"`
	Latitude      float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude     float64  `json:"longitude" validate:"gte=-180,lte=180"`
	TZOffsetHours *float64 `json:"tz_offset_hours" validate:"omitempty,gte=-14,lte=14"`
	HouseSystem   string   `json:"house_system" default:"P" validate:"max=32"`
}

// ToBirthData converts the request; an omitted offset becomes defaultTZ.
func (r BirthRequest) ToBirthData(defaultTZ float64) BirthData {
	b := BirthData{
		Name:        r.Name,
		Year:        r.Year,
		Month:       r.Month,
		Day:         r.Day,
		Hour:        r.Hour,
		Minute:      r.Minute,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		HouseSystem: r.HouseSystem,
	}
	b.TZOffsetHours = defaultTZ
	if r.TZOffsetHours != nil {
		b.TZOffsetHours = *r.TZOffsetHours
	}
	return b
}
