// Package spread advances a stochastic pest or pathogen spread model over
// host rasters one time step at a time.
//
// Each step generates dispersers from infected hosts, moves them with a
// dispersal kernel, infects susceptible hosts where they land, and optionally
// removes infected hosts at lethal temperatures. All randomness is derived
// from the configured seed, so identical inputs give identical trajectories.
package spread

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"pest-spread/internal/config"
	"pest-spread/internal/core"
	"pest-spread/internal/kernel"
	"pest-spread/internal/logging"
	pcore "pest-spread/pkg/core"
)

// State is the lifecycle stage of a Simulation.
type State int

const (
	// StateCreated means configuration is loaded but rasters are incomplete.
	StateCreated State = iota
	// StateReady means every required raster is bound with matching size.
	StateReady
	// StateStepping means at least one step ran and more remain.
	StateStepping
	// StateFinished means the step counter reached the configured total.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StateStepping:
		return "stepping"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Rasters bundles the caller-owned inputs of a simulation.
//
// Infected, Susceptible and TotalPlants are required. Died and
// MortalityTracker are optional; zeroed engine-owned rasters are allocated
// when they are nil. WeatherCoefficient and Temperature are indexed by step.
//
// Mutated in place by each step: Infected, Susceptible, Died,
// MortalityTracker. Read only: TotalPlants, WeatherCoefficient, Temperature.
type Rasters struct {
	Infected           *core.IntRaster
	Susceptible        *core.IntRaster
	TotalPlants        *core.IntRaster
	Died               *core.IntRaster
	MortalityTracker   *core.IntRaster
	WeatherCoefficient []*core.FloatRaster
	Temperature        []*core.FloatRaster
}

// OutsideDisperser records a disperser whose destination fell off the grid.
type OutsideDisperser struct {
	Step      int
	OriginRow int
	OriginCol int
	Row       int
	Col       int
}

// Option customizes a Simulation.
type Option func(*Simulation)

// WithLogger routes engine logs to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers overrides the configured worker count. Results never depend on it.
func WithWorkers(n int) Option {
	return func(s *Simulation) {
		if n > 0 {
			s.workers = n
		}
	}
}

// Simulation is the step orchestrator for one run.
type Simulation struct {
	cfg     config.Config
	rng     *pcore.RNG
	mix     *kernel.Mixture
	logger  *log.Logger
	workers int

	state    State
	step     int
	prepared bool

	infected    *core.IntRaster
	susceptible *core.IntRaster
	totalPlants *core.IntRaster
	died        *core.IntRaster
	mortality   *core.IntRaster
	weather     []*core.FloatRaster
	temperature []*core.FloatRaster

	diedOwned      bool
	mortalityOwned bool

	dispersers *core.IntRaster
	cohorts    *Cohorts
	rate       *SpreadRate
	outside    []OutsideDisperser

	// Reused window storage for the dispersal phase.
	landings []landing
	chunks   []chunk
}

// New validates cfg and returns a simulation in StateCreated.
func New(cfg config.Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	natural, err := cfg.Natural.Kernel()
	if err != nil {
		return nil, fmt.Errorf("%w: natural kernel: %w", ErrConfiguration, err)
	}
	var anthropogenic kernel.Kernel
	if cfg.UseAnthropogenic {
		k, err := cfg.Anthropogenic.Kernel()
		if err != nil {
			return nil, fmt.Errorf("%w: anthropogenic kernel: %w", ErrConfiguration, err)
		}
		anthropogenic = k
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	s := &Simulation{
		cfg:     cfg,
		rng:     pcore.NewRNG(cfg.Seed),
		mix:     kernel.NewMixture(natural, anthropogenic, cfg.NaturalProbability()),
		logger:  logging.Discard(),
		workers: workers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration the simulation was built with.
func (s *Simulation) Config() config.Config { return s.cfg }

// State reports the lifecycle stage.
func (s *Simulation) State() State { return s.state }

// Step reports how many steps completed successfully.
func (s *Simulation) Step() int { return s.step }

// Steps reports the configured number of steps.
func (s *Simulation) Steps() int { return s.cfg.Steps }

// Bind assigns every raster at once and reports whether the simulation
// reached StateReady.
func (s *Simulation) Bind(r Rasters) error {
	if err := s.unlocked(); err != nil {
		return err
	}
	s.reopen()
	s.infected = r.Infected
	s.susceptible = r.Susceptible
	s.totalPlants = r.TotalPlants
	s.died = r.Died
	s.mortality = r.MortalityTracker
	s.weather = r.WeatherCoefficient
	s.temperature = r.Temperature
	return s.Ready()
}

// SetInfected binds the infected host raster.
func (s *Simulation) SetInfected(r *core.IntRaster) error {
	return s.assign(func() { s.infected = r })
}

// SetSusceptible binds the susceptible host raster.
func (s *Simulation) SetSusceptible(r *core.IntRaster) error {
	return s.assign(func() { s.susceptible = r })
}

// SetTotalPlants binds the total host raster.
func (s *Simulation) SetTotalPlants(r *core.IntRaster) error {
	return s.assign(func() { s.totalPlants = r })
}

// SetDied binds the raster accumulating removed hosts.
func (s *Simulation) SetDied(r *core.IntRaster) error {
	return s.assign(func() { s.died = r })
}

// SetMortalityTracker binds the raster accumulating lethal-temperature removals.
func (s *Simulation) SetMortalityTracker(r *core.IntRaster) error {
	return s.assign(func() { s.mortality = r })
}

// SetWeatherCoefficients binds the per-step weather coefficient rasters.
func (s *Simulation) SetWeatherCoefficients(rs []*core.FloatRaster) error {
	return s.assign(func() { s.weather = rs })
}

// SetTemperatures binds the per-step temperature rasters.
func (s *Simulation) SetTemperatures(rs []*core.FloatRaster) error {
	return s.assign(func() { s.temperature = rs })
}

func (s *Simulation) assign(set func()) error {
	if err := s.unlocked(); err != nil {
		return err
	}
	s.reopen()
	set()
	// Incomplete bindings simply leave the simulation in StateCreated.
	_ = s.Ready()
	return nil
}

// reopen returns to StateCreated and drops rasters the engine allocated for
// the previous bindings.
func (s *Simulation) reopen() {
	s.state = StateCreated
	if s.diedOwned {
		s.died, s.diedOwned = nil, false
	}
	if s.mortalityOwned {
		s.mortality, s.mortalityOwned = nil, false
	}
}

func (s *Simulation) unlocked() error {
	if s.state == StateStepping || s.state == StateFinished {
		return ErrRastersLocked
	}
	return nil
}

// Ready moves a created simulation to StateReady once every required raster
// is bound and all rasters share one size. It is a no-op in later states.
func (s *Simulation) Ready() error {
	if s.state != StateCreated {
		return nil
	}
	if err := s.checkBindings(); err != nil {
		return err
	}
	size := s.infected.Size()
	if s.died == nil {
		s.died, s.diedOwned = core.NewRaster[int](size.Rows, size.Cols), true
	}
	if s.mortality == nil {
		s.mortality, s.mortalityOwned = core.NewRaster[int](size.Rows, size.Cols), true
	}
	s.state = StateReady
	if s.step >= s.cfg.Steps {
		s.state = StateFinished
	}
	s.logger.Info("simulation ready", "size", size, "steps", s.cfg.Steps, "seed", s.cfg.Seed)
	return nil
}

func (s *Simulation) checkBindings() error {
	var problems []string
	required := []struct {
		name string
		r    *core.IntRaster
	}{
		{"infected", s.infected},
		{"susceptible", s.susceptible},
		{"total_plants", s.totalPlants},
	}
	for _, b := range required {
		if b.r == nil {
			problems = append(problems, b.name+" unset")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrUnboundedState, strings.Join(problems, "; "))
	}

	want := s.infected.Size()
	check := func(name string, got core.Size) {
		if got != want {
			problems = append(problems, fmt.Sprintf("%s is %s, want %s", name, got, want))
		}
	}
	check("susceptible", s.susceptible.Size())
	check("total_plants", s.totalPlants.Size())
	if s.died != nil {
		check("died", s.died.Size())
	}
	if s.mortality != nil {
		check("mortality_tracker", s.mortality.Size())
	}
	for i, r := range s.weather {
		if r == nil {
			problems = append(problems, fmt.Sprintf("weather_coefficient[%d] unset", i))
			continue
		}
		check(fmt.Sprintf("weather_coefficient[%d]", i), r.Size())
	}
	for i, r := range s.temperature {
		if r == nil {
			problems = append(problems, fmt.Sprintf("temperature[%d] unset", i))
			continue
		}
		check(fmt.Sprintf("temperature[%d]", i), r.Size())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrUnboundedState, strings.Join(problems, "; "))
	}
	return nil
}

// prepare validates host counts and seeds step-zero bookkeeping. It runs once,
// right before the first step mutates anything.
func (s *Simulation) prepare() error {
	inf := s.infected.Cells()
	sus := s.susceptible.Cells()
	tot := s.totalPlants.Cells()
	died := s.died.Cells()
	mort := s.mortality.Cells()
	for i := range inf {
		if inf[i] < 0 || sus[i] < 0 || tot[i] < 0 || died[i] < 0 || mort[i] < 0 {
			row, col := s.infected.Coords(i)
			return fmt.Errorf("%w: negative host count at (%d,%d)", ErrUnboundedState, row, col)
		}
		if inf[i]+sus[i]+died[i] > tot[i] {
			row, col := s.infected.Coords(i)
			return fmt.Errorf("%w: infected+susceptible+died exceeds total_plants at (%d,%d)", ErrUnboundedState, row, col)
		}
	}
	size := s.infected.Size()
	s.dispersers = core.NewRaster[int](size.Rows, size.Cols)
	s.cohorts = NewCohorts(len(inf), s.cfg.Steps)
	s.cohorts.Seed(inf)
	s.rate = NewSpreadRate(s.cfg.EWRes, s.cfg.NSRes, s.infected)
	s.prepared = true
	return nil
}

// RunStep executes exactly one step: disperser generation, dispersal and
// infection, then lethal-temperature removal. On error no raster is modified.
func (s *Simulation) RunStep() error {
	if s.state == StateCreated {
		if err := s.Ready(); err != nil {
			return err
		}
	}
	if s.state == StateFinished {
		return &StepError{Step: s.step, Err: ErrStepExhausted}
	}
	if !s.prepared {
		if err := s.prepare(); err != nil {
			return err
		}
	}

	step := s.step
	in, err := s.stepInputs(step)
	if err != nil {
		return &StepError{Step: step, Err: err}
	}
	counts, err := s.generate(step, in.weather)
	if err != nil {
		return &StepError{Step: step, Err: err}
	}

	// Nothing below can fail, so the step commits as a whole.
	copy(s.dispersers.Cells(), counts)
	applied := s.disperse(step, counts)
	removed := s.removeLethal(in.temperature)
	s.rate.Record(s.infected)

	s.step++
	s.state = StateStepping
	if s.step >= s.cfg.Steps {
		s.state = StateFinished
	}
	s.logger.Debug("step complete",
		"step", step,
		"dispersers", applied.dispersers,
		"infections", applied.infections,
		"blocked", applied.blocked,
		"outside", applied.outside,
		"removed", removed,
	)
	if s.state == StateFinished {
		s.logger.Info("simulation finished", "steps", s.step, "outside", len(s.outside))
	}
	return nil
}

// Run executes RunStep until the simulation finishes.
func (s *Simulation) Run() error {
	if err := s.Ready(); err != nil {
		return err
	}
	for s.state != StateFinished {
		if err := s.RunStep(); err != nil {
			return err
		}
	}
	return nil
}

// OutsideDispersers returns a copy of the dispersers that left the grid, in
// the order they were recorded.
func (s *Simulation) OutsideDispersers() []OutsideDisperser {
	return slices.Clone(s.outside)
}

// OutsideCount reports how many dispersers left the grid so far.
func (s *Simulation) OutsideCount() int { return len(s.outside) }

// Dispersers exposes the per-cell disperser counts generated by the latest
// step. It is nil before the first step.
func (s *Simulation) Dispersers() *core.IntRaster { return s.dispersers }

// Cohorts exposes the infection cohorts. It is nil before the first step.
func (s *Simulation) Cohorts() *Cohorts { return s.cohorts }

// SpreadRate exposes the infection boundary tracker. It is nil before the
// first step.
func (s *Simulation) SpreadRate() *SpreadRate { return s.rate }

// Infected returns the bound infected raster.
func (s *Simulation) Infected() *core.IntRaster { return s.infected }

// Susceptible returns the bound susceptible raster.
func (s *Simulation) Susceptible() *core.IntRaster { return s.susceptible }

// TotalPlants returns the bound total host raster.
func (s *Simulation) TotalPlants() *core.IntRaster { return s.totalPlants }

// Died returns the died raster, engine-allocated if none was bound.
func (s *Simulation) Died() *core.IntRaster { return s.died }

// MortalityTracker returns the mortality raster, engine-allocated if none was bound.
func (s *Simulation) MortalityTracker() *core.IntRaster { return s.mortality }
