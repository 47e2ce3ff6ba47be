package astro

import (
	"AstroAI/internal/domain/models"

	"github.com/soniakeys/meeus/v3/julian"
)

// JulianDay converts a Gregorian calendar date and fractional UT hour to a Julian day.
// Hours outside [0, 24) roll into the neighbouring days.
func JulianDay(year, month, day int, hour float64) float64 {
	return julian.CalendarGregorianToJD(year, month, float64(day)+hour/24)
}

// UniversalHour is the civil time of in shifted to UT.
func UniversalHour(in models.BirthData) float64 {
	return float64(in.Hour) + float64(in.Minute)/60 - in.TZOffsetHours
}

// InstantOf returns the Julian day (UT) of a birth moment.
func InstantOf(in models.BirthData) float64 {
	return JulianDay(in.Year, in.Month, in.Day, UniversalHour(in))
}
