package ephemeris

import (
	"errors"
	"fmt"

	applogger "AstroAI/pkg/logger"
)

var (
	// ErrDataFileMissing is returned by file backed tiers that have no table for a body.
	ErrDataFileMissing = errors.New("ephemeris: data file missing")
	// ErrOutOfRange is returned when an instant falls outside a loaded table.
	ErrOutOfRange = errors.New("ephemeris: instant outside table range")
	// ErrUnsupportedBody is returned by tiers that cannot compute a body at all.
	ErrUnsupportedBody = errors.New("ephemeris: unsupported body")
)

// Position is a geocentric ecliptic position of date.
type Position struct {
	Longitude float64 // degrees
	Latitude  float64 // degrees
	Speed     float64 // longitudinal speed, degrees per day
}

// Source computes a body position at a Julian day (UT).
type Source interface {
	Position(jd float64, body Body) (Position, error)
}

// Tier is a named Source inside a Chain.
type Tier struct {
	Name   string
	Source Source
}

// TierObserver is notified of the tier that served a lookup ("" when every tier failed).
type TierObserver interface {
	ObserveTier(body, tier string)
}

// Chain resolves positions by trying its tiers in order.
type Chain struct {
	tiers    []Tier
	log      *applogger.Logger
	observer TierObserver
}

type ChainOption func(*Chain)

// WithChainLogger logs tier failures at debug and skipped data files at warn.
func WithChainLogger(l *applogger.Logger) ChainOption {
	return func(c *Chain) { c.log = l }
}

func WithTierObserver(o TierObserver) ChainOption {
	return func(c *Chain) { c.observer = o }
}

// NewChain tries tiers in the given order.
func NewChain(tiers []Tier, opts ...ChainOption) *Chain {
	c := &Chain{tiers: tiers}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDefaultChain builds the default tiers over dir: VSOP87 series files, then
// tabulated <body>.csv files, then the analytic model. Files that fail to load are
// logged and left out; the bodies they would have served fall through to later tiers.
func NewDefaultChain(dir string, opts ...ChainOption) *Chain {
	c := NewChain(nil, opts...)
	vsop, err := OpenVSOP(dir)
	c.warnLoad("vsop87", dir, err)
	tables, err := OpenTables(dir)
	c.warnLoad("table", dir, err)
	c.tiers = []Tier{
		{Name: "vsop87", Source: vsop},
		{Name: "table", Source: tables},
		{Name: "analytic", Source: AnalyticSource{}},
	}
	return c
}

func (c *Chain) warnLoad(tier, dir string, err error) {
	if err == nil || c.log == nil {
		return
	}
	c.log.Warn("ephemeris files skipped",
		applogger.String("tier", tier),
		applogger.String("path", dir),
		applogger.Error(err))
}

// Resolve returns the first successful tier result. It never panics and never errors:
// ok is false when no tier could produce a position.
func (c *Chain) Resolve(jd float64, body Body) (Position, bool) {
	for _, t := range c.tiers {
		if t.Source == nil {
			continue
		}
		pos, err := c.try(t, jd, body)
		if err == nil {
			c.observe(body, t.Name)
			return pos, true
		}
		if c.log != nil {
			c.log.Debug("ephemeris tier failed",
				applogger.String("tier", t.Name),
				applogger.String("body", body.String()),
				applogger.Error(err))
		}
	}
	c.observe(body, "")
	return Position{}, false
}

func (c *Chain) try(t Tier, jd float64, body Body) (pos Position, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tier %s panicked: %v", t.Name, r)
		}
	}()
	return t.Source.Position(jd, body)
}

func (c *Chain) observe(body Body, tier string) {
	if c.observer != nil {
		c.observer.ObserveTier(body.String(), tier)
	}
}
