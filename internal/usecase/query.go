package usecase

import (
	"strings"

	"AstroAI/internal/domain/models"
	"AstroAI/internal/services/interpretation"
)

const queryAspects = 20

var (
	queryBodies = []string{"Sun", "Moon", "Mercury", "Venus", "Mars", "Jupiter", "Saturn",
		"Uranus", "Neptune", "Pluto", "TrueNode", "Chiron", "Lilith"}
	queryPoints = []string{"Asc", "MC", "Vertex", "Fortune"}
)

// anchor ties a chart object to the [BODY=] tag and KEY= stem used by the corpus.
type anchor struct {
	name   string
	tag    string
	folder string
}

var anchors = []anchor{
	{"Sun", "SUN", "sun"},
	{"Moon", "MOON", "moon"},
	{"Mercury", "MERCURY", "mercury"},
	{"Venus", "VENUS", "venus"},
	{"Mars", "MARS", "mars"},
	{"TrueNode", "TRUENODE", "true_node"},
	{"Chiron", "CHIRON", "chiron"},
	{"Lilith", "LILITH", "lilith"},
	{"Vertex", "VERTEX", "vertex"},
	{"Fortune", "FORTUNE", "fortune"},
}

// forcedOrder lists placement folders in the order their files are prepended.
var forcedOrder = []string{"sun", "moon", "mercury", "venus", "mars", "chiron", "true_node", "lilith", "vertex", "fortune"}

func chartSign(chart models.NatalChart, name string) string {
	if p, ok := chart.Planets[name]; ok {
		return p.SignName()
	}
	return chart.Points[name].Sign
}

// BuildQuery turns a chart into the retrieval query: body and point signs, corpus anchor tags
// and the tightest aspects.
func BuildQuery(chart models.NatalChart) string {
	var b strings.Builder
	b.WriteString("natal chart interpretation ")
	for _, name := range queryBodies {
		if s := chart.Planets[name].SignName(); s != "" {
			b.WriteString(name + " " + s + " ")
		}
	}
	for _, name := range queryPoints {
		if s := chart.Points[name].Sign; s != "" {
			b.WriteString(name + " " + s + " ")
		}
	}
	for _, a := range anchors {
		s := chartSign(chart, a.name)
		if s == "" {
			continue
		}
		b.WriteString(" | [BODY=" + a.tag + "] [SIGN=" + strings.ToUpper(s) + "] | KEY=" + a.folder + "_in_" + strings.ToLower(s) + " ")
	}

	top := interpretation.TightestAspects(chart.Aspects, queryAspects)
	parts := make([]string, 0, len(top))
	for _, a := range top {
		if a.P1 != "" && a.P2 != "" && a.Aspect != "" {
			parts = append(parts, a.P1+" "+a.Aspect+" "+a.P2)
		}
	}
	b.WriteString(" | " + strings.Join(parts, " "))
	return b.String()
}
