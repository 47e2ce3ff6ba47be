package ephemeris

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	pp "github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/pluto"
)

// lightDaysPerAU converts a geocentric distance to light time.
const lightDaysPerAU = 0.0057755183

// vsopFiles maps planetposition indexes to the VSOP87B file names read by LoadPlanetPath.
var vsopFiles = map[int]string{
	pp.Mercury: "VSOP87B.mer",
	pp.Venus:   "VSOP87B.ven",
	pp.Earth:   "VSOP87B.ear",
	pp.Mars:    "VSOP87B.mar",
	pp.Jupiter: "VSOP87B.jup",
	pp.Saturn:  "VSOP87B.sat",
	pp.Uranus:  "VSOP87B.ura",
	pp.Neptune: "VSOP87B.nep",
}

var vsopIndex = map[Body]int{
	Mercury: pp.Mercury,
	Venus:   pp.Venus,
	Mars:    pp.Mars,
	Jupiter: pp.Jupiter,
	Saturn:  pp.Saturn,
	Uranus:  pp.Uranus,
	Neptune: pp.Neptune,
}

// VSOPSource serves the Sun, the planets and Pluto from the VSOP87B series files under
// a directory. Every body needs the earth file; a planet also needs its own.
// Planets are corrected for light time.
type VSOPSource struct {
	planets map[int]*pp.V87Planet
}

// OpenVSOP loads every VSOP87B file present under dir. Absent files are skipped;
// unreadable ones are skipped and reported in the joined error.
func OpenVSOP(dir string) (*VSOPSource, error) {
	s := &VSOPSource{planets: make(map[int]*pp.V87Planet)}
	if dir == "" {
		return s, nil
	}
	var errs []error
	for idx, name := range vsopFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		p, err := loadPlanet(idx, dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		s.planets[idx] = p
	}
	return s, errors.Join(errs...)
}

// loadPlanet turns a parser panic on a truncated file into an error.
func loadPlanet(idx int, dir string) (p *pp.V87Planet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse: %v", r)
		}
	}()
	return pp.LoadPlanetPath(idx, dir)
}

// Loaded reports the bodies this source can serve.
func (s *VSOPSource) Loaded() []Body {
	var out []Body
	for _, b := range Bodies() {
		if s.supports(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s *VSOPSource) supports(body Body) bool {
	if s.planets[pp.Earth] == nil {
		return false
	}
	switch body {
	case Sun, Pluto:
		return true
	}
	idx, ok := vsopIndex[body]
	return ok && s.planets[idx] != nil
}

func (s *VSOPSource) Position(jd float64, body Body) (Position, error) {
	if !s.supports(body) {
		if _, known := vsopIndex[body]; known || body == Sun || body == Pluto {
			return Position{}, ErrDataFileMissing
		}
		return Position{}, ErrUnsupportedBody
	}
	return withSpeed(jd, func(t float64) (float64, float64, error) {
		lon, lat := s.ecliptic(body, t)
		return lon, lat, nil
	})
}

func (s *VSOPSource) ecliptic(body Body, jd float64) (lon, lat float64) {
	earth := s.planets[pp.Earth]
	switch body {
	case Sun:
		l, b, _ := earth.Position(jd)
		return rev(l.Deg() + 180), -b.Deg()
	case Pluto:
		el, eb, er := earth.Position2000(jd)
		e := rectangular(el.Deg(), eb.Deg(), er)
		lon, lat = lightTimeCorrected(jd, e, func(t float64) vec3 {
			l, b, r := pluto.Heliocentric(t)
			return rectangular(l.Deg(), b.Deg(), r)
		})
		return rev(lon + precessionSinceJ2000(jd)), lat
	default:
		el, eb, er := earth.Position(jd)
		e := rectangular(el.Deg(), eb.Deg(), er)
		planet := s.planets[vsopIndex[body]]
		return lightTimeCorrected(jd, e, func(t float64) vec3 {
			l, b, r := planet.Position(t)
			return rectangular(l.Deg(), b.Deg(), r)
		})
	}
}

// lightTimeCorrected places the body where it was when the light seen at jd left it.
func lightTimeCorrected(jd float64, earth vec3, helio func(float64) vec3) (lon, lat float64) {
	tau := 0.0
	var p vec3
	for i := 0; i < 3; i++ {
		p = helio(jd - tau)
		dx, dy, dz := p.x-earth.x, p.y-earth.y, p.z-earth.z
		tau = lightDaysPerAU * math.Sqrt(dx*dx+dy*dy+dz*dz)
	}
	return geocentric(helio(jd-tau), earth)
}
