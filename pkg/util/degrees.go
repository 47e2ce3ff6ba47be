package util

import (
	"fmt"
	"math"
)

// FormatDegrees renders a degree value as whole degrees and zero padded arc minutes, e.g. 12°05′.
// Minutes round half away from zero and carry into the degree at 60.
func FormatDegrees(deg float64) string {
	d := int(deg)
	mins := int(math.Round((deg - float64(d)) * 60))
	if mins == 60 {
		d++
		mins = 0
	}
	return fmt.Sprintf("%d°%02d′", d, mins)
}

// Ordinal returns 1st, 2nd, 3rd, 4th, 11th, 12th, 21st ...
func Ordinal(n int) string {
	suffix := "th"
	if m := n % 100; m < 10 || m > 20 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
