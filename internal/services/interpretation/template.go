package interpretation

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"AstroAI/internal/astro"
	"AstroAI/internal/domain/models"
	"AstroAI/pkg/util"
)

var (
	metadataTag   = regexp.MustCompile(`(?i)\[(TYPE|BODY|SIGN|KEY)=[^\]]+\]\s*`)
	repeatedBlank = regexp.MustCompile(`[ \t]{2,}`)
	repeatedLines = regexp.MustCompile(`\n{3,}`)
)

const topTemplateAspects = 10

type section struct {
	body  string // chart key
	tag   string // [BODY=] tag in the corpus
	title string
}

// Template writes a deterministic interpretation from the chart and the retrieved passages.
// It never fails and tolerates missing bodies, points and houses.
type Template struct{}

func NewTemplate() *Template { return &Template{} }

func (t *Template) Name() string { return ModeTemplate }

func (t *Template) Generate(_ context.Context, req Request) (string, error) {
	return t.Render(req.Chart, req.Passages), nil
}

// Render builds the markdown text.
func (t *Template) Render(chart models.NatalChart, passages []models.Passage) string {
	planet := func(name string) models.BodyPosition { return chart.Planets[name] }
	sunSign, moonSign := planet("Sun").SignName(), planet("Moon").SignName()
	asc, hasAsc := chart.Points["Asc"]

	var lines []string
	add := func(s ...string) { lines = append(lines, s...) }

	if sunSign != "" && moonSign != "" && hasAsc && asc.Sign != "" {
		add(fmt.Sprintf("The main vibe of your chart: **%s Sun** + **%s Moon**, flowing outward as a **%s rising**.\n"+
			"In one sentence: *you need freedom but you also want to bond; while the mind runs fast, you are learning to hear the heart.*",
			sunSign, moonSign, asc.Sign))
	} else {
		add("The general vibe of your chart: (short summary, some data is missing).")
	}

	add("\n### 1) Big 3 (placements)", planetLine("Sun", planet("Sun")), planetLine("Moon", planet("Moon")))
	if hasAsc && asc.Sign != "" {
		add(fmt.Sprintf("- Asc: %s %s", asc.Sign, util.FormatDegrees(asc.DegInSign)))
	} else {
		add("- Asc: (unavailable)")
	}
	lines = appendPassages(lines, chart, passages, []section{
		{"Sun", "SUN", "Sun — Core Identity"},
		{"Moon", "MOON", "Moon — Emotional Needs"},
	})

	add("\n### 2) Mercury + Venus + Mars")
	for _, name := range []string{"Mercury", "Venus", "Mars"} {
		add(planetLine(name, planet(name)))
	}
	lines = appendPassages(lines, chart, passages, []section{
		{"Mercury", "MERCURY", "Mercury — Communication"},
		{"Venus", "VENUS", "Venus — Love & Attraction"},
		{"Mars", "MARS", "Mars — Drive & Action"},
	})

	add("\n### 3) Nodes + Healing + Extras")
	for _, name := range []string{"TrueNode", "Chiron", "Lilith"} {
		add(planetLine(name, planet(name)))
	}
	lines = appendPassages(lines, chart, passages, []section{
		{"TrueNode", "TRUENODE", "True Node — Direction & Growth"},
		{"Chiron", "CHIRON", "Chiron — Wound & Medicine"},
		{"Lilith", "LILITH", "Lilith — Raw Truth & Boundaries"},
	})

	add("\n### 4) Angles / points")
	for _, name := range []string{"Asc", "MC", "DSC", "IC", "Vertex", "Fortune"} {
		add(pointLine(name, chart.Points))
	}
	lines = appendPassages(lines, chart, passages, []section{
		{"Vertex", "VERTEX", "Vertex — Fated Meetings & Turning Points"},
		{"Fortune", "FORTUNE", "Part of Fortune — Ease, Flow, Sweet Spots"},
	})

	add("\n### 5) Houses (12)")
	add(houseLines(chart.Houses.Cusps)...)

	add("\n### 6) Top aspects (tightest first)")
	top := TightestAspects(chart.Aspects, topTemplateAspects)
	if len(top) == 0 {
		add("- (No aspects available)")
	}
	for _, a := range top {
		add(fmt.Sprintf("- %s %s %s (orb %s)", a.P1, a.Aspect, a.P2, util.FormatDegrees(a.Orb)))
	}

	add("\n**Orb tip (short):** 0–2° = very dominant; 2–4° = strong; 4–6° = noticeable; 6°+ = background (but gains weight when it repeats).")
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func appendPassages(lines []string, chart models.NatalChart, passages []models.Passage, sections []section) []string {
	for _, s := range sections {
		sign := signOf(chart, s.body)
		if sign == "" {
			continue
		}
		if txt, ok := PickPlacementPassage(passages, s.tag, sign); ok {
			lines = append(lines, "\n**"+s.title+"**", txt)
		}
	}
	return lines
}

func signOf(chart models.NatalChart, name string) string {
	if p, ok := chart.Planets[name]; ok {
		return p.SignName()
	}
	return chart.Points[name].Sign
}

func planetLine(name string, p models.BodyPosition) string {
	if p.Sign == nil || p.DegInSign == nil {
		return fmt.Sprintf("- %s: (unavailable)", name)
	}
	house := ""
	if p.House != nil {
		house = fmt.Sprintf(", House %d", *p.House)
	}
	return fmt.Sprintf("- %s: %s %s%s", name, *p.Sign, util.FormatDegrees(*p.DegInSign), house)
}

func pointLine(name string, points map[string]models.AngularPoint) string {
	pt, ok := points[name]
	if !ok || pt.Sign == "" {
		return fmt.Sprintf("- %s: (unavailable)", name)
	}
	return fmt.Sprintf("- %s: %s %s", name, pt.Sign, util.FormatDegrees(pt.DegInSign))
}

func houseLines(cusps []float64) []string {
	out := make([]string, 12)
	for i := range out {
		if len(cusps) != 12 {
			out[i] = fmt.Sprintf("- %s House: (unavailable)", util.Ordinal(i+1))
			continue
		}
		sign, within := astro.SignOf(cusps[i])
		out[i] = fmt.Sprintf("- %s House: %s %s", util.Ordinal(i+1), sign, util.FormatDegrees(within))
	}
	return out
}

// TightestAspects merges planet and other aspects and returns the n smallest orbs.
// Equal orbs keep planet aspects first, in detection order.
func TightestAspects(a models.ChartAspects, n int) []models.AspectRelation {
	all := make([]models.AspectRelation, 0, len(a.PlanetAspects)+len(a.OtherAspects))
	all = append(all, a.PlanetAspects...)
	all = append(all, a.OtherAspects...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Orb < all[j].Orb })
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// PickPlacementPassage finds the passage for body in sign: an exact [BODY=][SIGN=] tag pair first,
// then a case-insensitive "body in sign" phrase. The result has its metadata tags stripped.
func PickPlacementPassage(passages []models.Passage, body, sign string) (string, bool) {
	if body == "" || sign == "" {
		return "", false
	}
	bodyTag := "[BODY=" + strings.ToUpper(body) + "]"
	signTag := "[SIGN=" + strings.ToUpper(sign) + "]"
	for _, p := range passages {
		if strings.Contains(p.Text, bodyTag) && strings.Contains(p.Text, signTag) {
			return StripMetadata(p.Text), true
		}
	}
	needle := strings.ToLower(body + " in " + sign)
	for _, p := range passages {
		if strings.Contains(strings.ToLower(p.Text), needle) {
			return StripMetadata(p.Text), true
		}
	}
	return "", false
}

// StripMetadata removes inline [TYPE=], [BODY=], [SIGN=] and [KEY=] tags and tidies whitespace.
func StripMetadata(text string) string {
	t := strings.TrimSpace(text)
	t = metadataTag.ReplaceAllString(t, "")
	t = repeatedBlank.ReplaceAllString(t, " ")
	t = repeatedLines.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}
