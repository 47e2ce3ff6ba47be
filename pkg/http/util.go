package http

import (
	xutil "AstroAI/pkg/util"

	"github.com/samber/lo"
)

// ParseIntClamp parses a query value, falling back to def, and clamps the result to [min, max].
func ParseIntClamp(s string, def, min, max int) int {
	return lo.Clamp(xutil.ParseIntDefault(s, def), min, max)
}
