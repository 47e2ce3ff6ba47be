package astro

import (
	"AstroAI/internal/astro/ephemeris"
	"AstroAI/internal/domain/models"
	applogger "AstroAI/pkg/logger"
)

// Config is fixed at construction and never changes afterwards.
type Config struct {
	EphemerisPath      string
	DefaultHouseSystem string
	Registry           Registry
	Nutation           bool
}

// Engine assembles natal charts. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg      Config
	source   PositionResolver
	houses   ephemeris.HouseCalculator
	registry Registry
	log      *applogger.Logger
}

type Option func(*Engine)

// WithLogger sets the logger used to report unavailable bodies and houses.
func WithLogger(l *applogger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine builds an engine over a position resolver and house calculator.
// An empty cfg.Registry selects DefaultRegistry.
func NewEngine(cfg Config, source PositionResolver, houses ephemeris.HouseCalculator, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, source: source, houses: houses, registry: cfg.Registry}
	if len(e.registry) == 0 {
		e.registry = DefaultRegistry()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open builds an engine on the default tiers over cfg.EphemerisPath. Data files that
// cannot be read are logged and the bodies they cover fall through to later tiers.
func Open(cfg Config, l *applogger.Logger, observer ephemeris.TierObserver) *Engine {
	chainOpts := []ephemeris.ChainOption{ephemeris.WithChainLogger(l)}
	if observer != nil {
		chainOpts = append(chainOpts, ephemeris.WithTierObserver(observer))
	}
	chain := ephemeris.NewDefaultChain(cfg.EphemerisPath, chainOpts...)
	return NewEngine(cfg, chain, ephemeris.SphericalHouses{Nutation: cfg.Nutation}, WithLogger(l))
}

// Registry returns the bodies this engine computes, in output order.
func (e *Engine) Registry() Registry { return e.registry }

// Assemble computes the full chart. It never fails: unresolvable parts are
// reported as unavailable or omitted.
func (e *Engine) Assemble(in models.BirthData) models.NatalChart {
	code := in.HouseSystem
	if code == "" {
		code = e.cfg.DefaultHouseSystem
	}
	place := Place{JD: InstantOf(in), Latitude: in.Latitude, Longitude: in.Longitude}

	bodies := ComputeBodies(e.source, e.registry, place.JD)
	houses := ComputeHouses(e.houses, place.JD, place.Latitude, place.Longitude, code)
	points := ComputePoints(e.houses, place, houses, bodies)
	AssignHouses(e.houses, place, houses.System, bodies)

	chart := models.NatalChart{
		Name:        in.Name,
		JulianDayUT: place.JD,
		HouseSystem: string(houses.System),
		Planets:     bodies,
		Houses:      houses.Layout,
		Points:      points,
		Aspects:     ChartAspects(e.registry, bodies, points),
	}
	e.logUnavailable(chart)
	return chart
}

func (e *Engine) logUnavailable(chart models.NatalChart) {
	if e.log == nil {
		return
	}
	for _, name := range e.registry.Names() {
		if !chart.Planets[name].Available {
			e.log.Warn("body unavailable", applogger.String("body", name), applogger.Float64("jd_ut", chart.JulianDayUT))
		}
	}
	if len(chart.Houses.Cusps) == 0 {
		e.log.Warn("house cusps unavailable", applogger.String("system", chart.HouseSystem), applogger.Float64("jd_ut", chart.JulianDayUT))
	}
}
