package ephemeris

import "strings"

// Body identifies a celestial body or lunar point.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
	TrueNode
	MeanApogee
	Chiron
)

var bodyNames = map[Body]string{
	Sun:        "Sun",
	Moon:       "Moon",
	Mercury:    "Mercury",
	Venus:      "Venus",
	Mars:       "Mars",
	Jupiter:    "Jupiter",
	Saturn:     "Saturn",
	Uranus:     "Uranus",
	Neptune:    "Neptune",
	Pluto:      "Pluto",
	TrueNode:   "TrueNode",
	MeanApogee: "MeanApogee",
	Chiron:     "Chiron",
}

func (b Body) String() string {
	if name, ok := bodyNames[b]; ok {
		return name
	}
	return "Unknown"
}

// FileKey is the base name of the table file holding the body, e.g. "true_node".
func (b Body) FileKey() string {
	switch b {
	case TrueNode:
		return "true_node"
	case MeanApogee:
		return "mean_apogee"
	default:
		return strings.ToLower(b.String())
	}
}

// Bodies lists every body known to this package.
func Bodies() []Body {
	return []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto, TrueNode, MeanApogee, Chiron}
}
