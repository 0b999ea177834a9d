package spread

import (
	"errors"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"

	"pest-spread/internal/config"
	"pest-spread/internal/core"
	"pest-spread/internal/testutil/testlog"
)

func mustRaster[T core.Number](t *testing.T, rows [][]T) *core.Raster[T] {
	t.Helper()
	r, err := core.RasterFromRows(rows)
	if err != nil {
		t.Fatalf("raster: %v", err)
	}
	return r
}

// scenarioConfig mirrors the reference 2x3 weather-driven run.
func scenarioConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Seed = 42
	cfg.Steps = 2
	cfg.EWRes = 100
	cfg.NSRes = 100
	cfg.ReproductiveRate = 400.4
	cfg.Weather = true
	cfg.UseLethalTemperature = false
	cfg.LethalTemperature = -1.5
	cfg.Natural = config.KernelSpec{Family: "cauchy", Scale: 20, Direction: "none", Kappa: 0}
	cfg.UseAnthropogenic = false
	cfg.PercentNaturalDispersal = 0
	return cfg
}

func scenarioRasters(t *testing.T) Rasters {
	t.Helper()
	weather := [][]float64{{0.6, 0.8, 0.7}, {0.2, 0.8, 0.5}}
	temperature := [][]float64{{5, 0, 5}, {0, 0, 5}}
	return Rasters{
		Infected:           mustRaster(t, [][]int{{5, 0, 0}, {0, 0, 0}}),
		Susceptible:        mustRaster(t, [][]int{{10, 6, 20}, {14, 15, 20}}),
		TotalPlants:        mustRaster(t, [][]int{{15, 6, 20}, {14, 15, 25}}),
		MortalityTracker:   mustRaster(t, [][]int{{0, 0, 0}, {0, 0, 0}}),
		WeatherCoefficient: []*core.FloatRaster{mustRaster(t, weather), mustRaster(t, weather)},
		Temperature:        []*core.FloatRaster{mustRaster(t, temperature), mustRaster(t, temperature)},
	}
}

func newBound(t *testing.T, cfg config.Config, r Rasters, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithLogger(testlog.New(t))}, opts...)
	sim, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sim.Bind(r); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return sim
}

func checkInvariants(t *testing.T, sim *Simulation) {
	t.Helper()
	inf := sim.Infected().Cells()
	sus := sim.Susceptible().Cells()
	tot := sim.TotalPlants().Cells()
	died := sim.Died().Cells()
	for i := range inf {
		if inf[i] < 0 || sus[i] < 0 || died[i] < 0 {
			t.Fatalf("negative count at cell %d: infected=%d susceptible=%d died=%d", i, inf[i], sus[i], died[i])
		}
		if inf[i]+sus[i]+died[i] > tot[i] {
			t.Fatalf("capacity exceeded at cell %d: %d+%d+%d > %d", i, inf[i], sus[i], died[i], tot[i])
		}
		if got := sim.Cohorts().Total(i); got != inf[i] {
			t.Fatalf("cohort total %d != infected %d at cell %d", got, inf[i], i)
		}
	}
}

func TestScenarioWeatherRun(t *testing.T) {
	r := scenarioRasters(t)
	sim := newBound(t, scenarioConfig(), r)
	if sim.State() != StateReady {
		t.Fatalf("expected ready, got %s", sim.State())
	}

	for sim.State() != StateFinished {
		if err := sim.RunStep(); err != nil {
			t.Fatalf("run step: %v", err)
		}
		checkInvariants(t, sim)
	}

	if sim.Step() != 2 {
		t.Fatalf("expected 2 steps, got %d", sim.Step())
	}
	if !slices.Equal(r.MortalityTracker.Cells(), make([]int, 6)) {
		t.Fatalf("mortality tracker must stay zero with lethal temperature off, got %v", r.MortalityTracker.Cells())
	}
	if sim.OutsideCount() == 0 {
		t.Fatal("expected some dispersers to leave a 2x3 grid")
	}
	for _, o := range sim.OutsideDispersers() {
		if sim.Infected().InBounds(o.Row, o.Col) {
			t.Fatalf("outside disperser %+v lands inside the grid", o)
		}
		if o.Step < 0 || o.Step > 1 {
			t.Fatalf("outside disperser has step %d", o.Step)
		}
	}
	if r.Infected.At(0, 0) < 5 {
		t.Fatalf("infected origin cell should not lose hosts without mortality, got %d", r.Infected.At(0, 0))
	}
}

// Seed 42 pins the whole pipeline: PCG stream keys, Poisson counts, Cauchy
// offsets and the apply order.
func TestScenarioSeed42Golden(t *testing.T) {
	r := scenarioRasters(t)
	sim := newBound(t, scenarioConfig(), r, WithWorkers(3))
	if err := sim.RunStep(); err != nil {
		t.Fatalf("step 0: %v", err)
	}
	if got := sim.Dispersers().Cells(); !slices.Equal(got, []int{1194, 0, 0, 0, 0, 0}) {
		t.Fatalf("step 0 dispersers = %v", got)
	}
	if got := sim.OutsideCount(); got != 174 {
		t.Fatalf("step 0 outside = %d, want 174", got)
	}
	if err := sim.RunStep(); err != nil {
		t.Fatalf("step 1: %v", err)
	}

	if got := sim.Dispersers().Cells(); !slices.Equal(got, []int{3718, 1921, 1695, 1191, 1912, 803}) {
		t.Fatalf("step 1 dispersers = %v", got)
	}
	if got := r.Infected.Cells(); !slices.Equal(got, []int{15, 6, 20, 14, 15, 20}) {
		t.Fatalf("infected = %v", got)
	}
	if got := r.Susceptible.Cells(); !slices.Equal(got, make([]int, 6)) {
		t.Fatalf("susceptible = %v", got)
	}
	if got := sim.OutsideCount(); got != 1754 {
		t.Fatalf("outside = %d, want 1754", got)
	}
	first := OutsideDisperser{Step: 0, OriginRow: 0, OriginCol: 0, Row: 0, Col: -1}
	if got := sim.OutsideDispersers()[0]; got != first {
		t.Fatalf("first outside disperser = %+v, want %+v", got, first)
	}
}

func runScenario(t *testing.T, workers int) (Rasters, []OutsideDisperser) {
	t.Helper()
	r := scenarioRasters(t)
	sim := newBound(t, scenarioConfig(), r, WithWorkers(workers))
	if err := sim.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return r, sim.OutsideDispersers()
}

func TestDeterministicAcrossRunsAndWorkers(t *testing.T) {
	baseR, baseOut := runScenario(t, 1)
	for _, workers := range []int{1, 3, 8} {
		r, out := runScenario(t, workers)
		if !slices.Equal(baseR.Infected.Cells(), r.Infected.Cells()) {
			t.Fatalf("workers=%d infected differs: %v vs %v", workers, baseR.Infected.Cells(), r.Infected.Cells())
		}
		if !slices.Equal(baseR.Susceptible.Cells(), r.Susceptible.Cells()) {
			t.Fatalf("workers=%d susceptible differs", workers)
		}
		if !slices.Equal(baseOut, out) {
			t.Fatalf("workers=%d outside dispersers differ: %d vs %d records", workers, len(baseOut), len(out))
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	_, a := runScenario(t, 2)
	cfg := scenarioConfig()
	cfg.Seed = 43
	sim := newBound(t, cfg, scenarioRasters(t))
	if err := sim.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if slices.Equal(a, sim.OutsideDispersers()) {
		t.Fatal("different seeds should produce different outside dispersers")
	}
}

func TestZeroInfectedIsIdempotent(t *testing.T) {
	r := scenarioRasters(t)
	r.Infected.Clear()
	before := []*core.IntRaster{r.Infected.Clone(), r.Susceptible.Clone(), r.TotalPlants.Clone(), r.MortalityTracker.Clone()}
	cfg := scenarioConfig()
	cfg.UseLethalTemperature = true
	cfg.LethalTemperature = 10
	sim := newBound(t, cfg, r)
	if err := sim.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	after := []*core.IntRaster{r.Infected, r.Susceptible, r.TotalPlants, r.MortalityTracker}
	for i := range before {
		if !slices.Equal(before[i].Cells(), after[i].Cells()) {
			t.Fatalf("raster %d changed: %v -> %v", i, before[i].Cells(), after[i].Cells())
		}
	}
	if sim.OutsideCount() != 0 {
		t.Fatalf("expected no outside dispersers, got %d", sim.OutsideCount())
	}
	if got := sim.Summary().Dispersers; got != 0 {
		t.Fatalf("expected zero dispersers, got %d", got)
	}
}

func TestStepExhaustion(t *testing.T) {
	r := scenarioRasters(t)
	sim := newBound(t, scenarioConfig(), r)
	if err := sim.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	infected := r.Infected.Clone()
	outside := sim.OutsideCount()

	err := sim.RunStep()
	if !errors.Is(err, ErrStepExhausted) {
		t.Fatalf("expected ErrStepExhausted, got %v", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != 2 {
		t.Fatalf("expected StepError at step 2, got %v", err)
	}
	if sim.Step() != 2 || sim.State() != StateFinished {
		t.Fatalf("state changed after exhaustion: step=%d state=%s", sim.Step(), sim.State())
	}
	if !slices.Equal(infected.Cells(), r.Infected.Cells()) || sim.OutsideCount() != outside {
		t.Fatal("exhausted step must not mutate state")
	}
}

func TestZeroStepsFinishesImmediately(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Steps = 0
	sim := newBound(t, cfg, scenarioRasters(t))
	if sim.State() != StateFinished {
		t.Fatalf("expected finished, got %s", sim.State())
	}
	if err := sim.Run(); err != nil {
		t.Fatalf("run with zero steps: %v", err)
	}
	if err := sim.RunStep(); !errors.Is(err, ErrStepExhausted) {
		t.Fatalf("expected ErrStepExhausted, got %v", err)
	}
}

func TestMissingWeatherLeavesStateUntouched(t *testing.T) {
	r := scenarioRasters(t)
	r.WeatherCoefficient = r.WeatherCoefficient[:1]
	sim := newBound(t, scenarioConfig(), r)
	if err := sim.RunStep(); err != nil {
		t.Fatalf("first step: %v", err)
	}
	infected := r.Infected.Clone()
	susceptible := r.Susceptible.Clone()
	outside := sim.OutsideCount()

	err := sim.RunStep()
	if !errors.Is(err, ErrMissingWeatherData) {
		t.Fatalf("expected ErrMissingWeatherData, got %v", err)
	}
	if sim.Step() != 1 || sim.State() != StateStepping {
		t.Fatalf("step counter advanced on failure: %d %s", sim.Step(), sim.State())
	}
	if !slices.Equal(infected.Cells(), r.Infected.Cells()) || !slices.Equal(susceptible.Cells(), r.Susceptible.Cells()) {
		t.Fatal("failed step mutated rasters")
	}
	if sim.OutsideCount() != outside {
		t.Fatal("failed step appended outside dispersers")
	}
}

func TestMissingTemperatureIsAnError(t *testing.T) {
	r := scenarioRasters(t)
	r.Temperature = nil
	cfg := scenarioConfig()
	cfg.UseLethalTemperature = true
	sim := newBound(t, cfg, r)
	if err := sim.RunStep(); !errors.Is(err, ErrMissingWeatherData) {
		t.Fatalf("expected ErrMissingWeatherData, got %v", err)
	}
	if sim.Step() != 0 {
		t.Fatalf("step advanced to %d", sim.Step())
	}
}

func TestInvalidWeatherValueRejected(t *testing.T) {
	r := scenarioRasters(t)
	r.WeatherCoefficient[0].Set(1, 1, -0.5)
	sim := newBound(t, scenarioConfig(), r)
	if err := sim.RunStep(); !errors.Is(err, ErrMissingWeatherData) {
		t.Fatalf("expected ErrMissingWeatherData for negative coefficient, got %v", err)
	}
}

func TestLethalTemperatureRemovesInfected(t *testing.T) {
	r := scenarioRasters(t)
	cold := mustRaster(t, [][]float64{{-5, -5, -5}, {-5, -5, -5}})
	warm := mustRaster(t, [][]float64{{20, 20, 20}, {20, 20, 20}})
	r.Temperature = []*core.FloatRaster{warm, cold, warm}
	cfg := scenarioConfig()
	cfg.Steps = 3
	r.WeatherCoefficient = append(r.WeatherCoefficient, r.WeatherCoefficient[0])
	cfg.UseLethalTemperature = true
	cfg.LethalTemperature = -1.5
	sim := newBound(t, cfg, r)

	prevMortality := r.MortalityTracker.Clone()
	for step := 0; step < 3; step++ {
		infectedBefore := 0
		if step == 1 {
			infectedBefore = sim.Summary().Infected
		}
		if err := sim.RunStep(); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		checkInvariants(t, sim)
		for i, v := range r.MortalityTracker.Cells() {
			if v < prevMortality.Cells()[i] {
				t.Fatalf("mortality decreased at cell %d on step %d", i, step)
			}
		}
		prevMortality = r.MortalityTracker.Clone()

		switch step {
		case 0:
			if sim.Summary().MortalityTracker != 0 {
				t.Fatal("warm step must not remove hosts")
			}
		case 1:
			sum := sim.Summary()
			if sum.Infected != 0 {
				t.Fatalf("cold step should clear every infected host, %d left", sum.Infected)
			}
			if sum.MortalityTracker < infectedBefore || sum.Died != sum.MortalityTracker {
				t.Fatalf("removals not credited: before=%d mortality=%d died=%d", infectedBefore, sum.MortalityTracker, sum.Died)
			}
		}
	}
}

func TestMortalityRequiresThresholdInclusive(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Steps = 1
	cfg.ReproductiveRate = 0
	cfg.UseLethalTemperature = true
	cfg.LethalTemperature = 5
	r := scenarioRasters(t)
	r.Infected = mustRaster(t, [][]int{{5, 0, 0}, {0, 0, 2}})
	r.Susceptible = mustRaster(t, [][]int{{10, 6, 20}, {14, 15, 20}})
	// temperature is 5 at (0,0) and (1,2): both at the threshold.
	sim := newBound(t, cfg, r)
	if err := sim.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := r.MortalityTracker.Cells(); !slices.Equal(got, []int{5, 0, 0, 0, 0, 2}) {
		t.Fatalf("unexpected mortality %v", got)
	}
	if got := sim.Died().Cells(); !slices.Equal(got, []int{5, 0, 0, 0, 0, 2}) {
		t.Fatalf("unexpected died %v", got)
	}
}

func TestFullCellBlocksInfection(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Weather = false
	cfg.Steps = 3
	r := Rasters{
		Infected:    mustRaster(t, [][]int{{5}}),
		Susceptible: mustRaster(t, [][]int{{0}}),
		TotalPlants: mustRaster(t, [][]int{{5}}),
	}
	sim := newBound(t, cfg, r)
	if err := sim.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.Infected.At(0, 0) != 5 || r.Susceptible.At(0, 0) != 0 {
		t.Fatalf("full cell changed: infected=%d susceptible=%d", r.Infected.At(0, 0), r.Susceptible.At(0, 0))
	}
	if sim.Dispersers().At(0, 0) == 0 {
		t.Fatal("expected dispersers to be generated")
	}
}

func TestApplyTieBreakAndOutside(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Weather = false
	r := Rasters{
		Infected:    mustRaster(t, [][]int{{1, 0}}),
		Susceptible: mustRaster(t, [][]int{{0, 1}}),
		TotalPlants: mustRaster(t, [][]int{{1, 1}}),
	}
	sim := newBound(t, cfg, r)
	if err := sim.prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	buf := []landing{{row: 0, col: 1}, {row: 0, col: 1}, {row: -1, col: 4}}
	var res applyResult
	sim.applyWindow(0, []chunk{{origin: 0, index: 0, n: 3, off: 0}}, buf, &res)
	if res.infections != 1 || res.blocked != 1 || res.outside != 1 || res.dispersers != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if r.Infected.At(0, 1) != 1 || r.Susceptible.At(0, 1) != 0 {
		t.Fatal("first disperser should infect the last susceptible host")
	}
	if sim.Cohorts().At(0, 1) != 1 {
		t.Fatal("new infection not recorded in step cohort")
	}
	want := OutsideDisperser{Step: 0, OriginRow: 0, OriginCol: 0, Row: -1, Col: 4}
	if got := sim.OutsideDispersers(); len(got) != 1 || got[0] != want {
		t.Fatalf("outside = %+v, want %+v", got, want)
	}
}

func TestBindingLifecycle(t *testing.T) {
	sim, err := New(scenarioConfig(), WithLogger(testlog.New(t)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	r := scenarioRasters(t)
	if err := sim.SetInfected(r.Infected); err != nil {
		t.Fatalf("set infected: %v", err)
	}
	if sim.State() != StateCreated {
		t.Fatalf("expected created with partial bindings, got %s", sim.State())
	}
	if err := sim.RunStep(); !errors.Is(err, ErrUnboundedState) {
		t.Fatalf("expected ErrUnboundedState, got %v", err)
	}
	if err := sim.SetSusceptible(r.Susceptible); err != nil {
		t.Fatalf("set susceptible: %v", err)
	}
	if err := sim.SetTotalPlants(core.NewRaster[int](3, 2)); err != nil {
		t.Fatalf("set total: %v", err)
	}
	if err := sim.Ready(); !errors.Is(err, ErrUnboundedState) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if sim.State() != StateCreated {
		t.Fatalf("mismatch must stay created, got %s", sim.State())
	}
	if err := sim.SetTotalPlants(r.TotalPlants); err != nil {
		t.Fatalf("set total: %v", err)
	}
	if err := sim.SetWeatherCoefficients(r.WeatherCoefficient); err != nil {
		t.Fatalf("set weather: %v", err)
	}
	if sim.State() != StateReady {
		t.Fatalf("expected ready, got %s", sim.State())
	}
	if sim.Died() == nil || sim.MortalityTracker() == nil {
		t.Fatal("optional rasters should be allocated when ready")
	}
	if err := sim.RunStep(); err != nil {
		t.Fatalf("run step: %v", err)
	}
	if sim.State() != StateStepping {
		t.Fatalf("expected stepping, got %s", sim.State())
	}
	if err := sim.SetDied(core.NewRaster[int](2, 3)); !errors.Is(err, ErrRastersLocked) {
		t.Fatalf("expected ErrRastersLocked, got %v", err)
	}
}

func TestInconsistentHostCountsRejected(t *testing.T) {
	r := scenarioRasters(t)
	r.Susceptible.Set(0, 0, 11)
	sim := newBound(t, scenarioConfig(), r)
	if err := sim.RunStep(); !errors.Is(err, ErrUnboundedState) {
		t.Fatalf("expected ErrUnboundedState, got %v", err)
	}
	if sim.Step() != 0 {
		t.Fatal("step must not advance")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Natural.Scale = 0
	_, err := New(cfg)
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	cfg = scenarioConfig()
	cfg.UseAnthropogenic = true
	cfg.PercentNaturalDispersal = 2
	if _, err := New(cfg); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for mixing fraction, got %v", err)
	}
}

func TestAnthropogenicMixtureRuns(t *testing.T) {
	cfg := scenarioConfig()
	cfg.UseAnthropogenic = true
	cfg.PercentNaturalDispersal = 0.5
	cfg.Anthropogenic = config.KernelSpec{Family: "exponential", Scale: 300, Direction: "E", Kappa: 2}
	a := newBound(t, cfg, scenarioRasters(t))
	b := newBound(t, cfg, scenarioRasters(t), WithWorkers(4))
	if err := a.Run(); err != nil {
		t.Fatalf("run a: %v", err)
	}
	if err := b.Run(); err != nil {
		t.Fatalf("run b: %v", err)
	}
	if !slices.Equal(a.OutsideDispersers(), b.OutsideDispersers()) {
		t.Fatal("mixture runs must be deterministic")
	}
	if !slices.Equal(a.Infected().Cells(), b.Infected().Cells()) {
		t.Fatal("mixture runs must produce identical rasters")
	}
}

func singleCellRasters(t *testing.T) Rasters {
	t.Helper()
	return Rasters{
		Infected:    mustRaster(t, [][]int{{5, 0, 0}, {0, 0, 0}}),
		Susceptible: mustRaster(t, [][]int{{10, 6, 20}, {14, 15, 20}}),
		TotalPlants: mustRaster(t, [][]int{{15, 6, 20}, {14, 15, 25}}),
	}
}

func TestDispersalStorageBoundedByWindow(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Weather = false
	cfg.Steps = 1
	for _, rate := range []float64{1e3, 1e5} {
		sim := newBound(t, cfg, singleCellRasters(t), WithWorkers(2))
		sim.cfg.ReproductiveRate = rate
		if err := sim.RunStep(); err != nil {
			t.Fatalf("rate %g: %v", rate, err)
		}
		generated := sim.Dispersers().At(0, 0)
		if generated < int(rate) {
			t.Fatalf("rate %g generated only %d dispersers", rate, generated)
		}
		if got, limit := cap(sim.landings), 2*chunkDraws; got > limit {
			t.Fatalf("rate %g: landing buffer holds %d, limit %d", rate, got, limit)
		}
		if got, limit := cap(sim.chunks), 2*chunkDraws; got > limit {
			t.Fatalf("rate %g: chunk list holds %d, limit %d", rate, got, limit)
		}
		checkInvariants(t, sim)
	}
}

func TestMultiWindowRunIndependentOfWorkers(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Weather = false
	cfg.ReproductiveRate = 2000
	run := func(workers int) *Simulation {
		sim := newBound(t, cfg, singleCellRasters(t), WithWorkers(workers))
		if err := sim.Run(); err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		return sim
	}
	base := run(1)
	if base.Dispersers().At(0, 0) <= chunkDraws {
		t.Fatalf("expected more than one chunk from the origin, got %d dispersers", base.Dispersers().At(0, 0))
	}
	for _, workers := range []int{2, 5} {
		sim := run(workers)
		if !slices.Equal(base.Infected().Cells(), sim.Infected().Cells()) {
			t.Fatalf("workers=%d infected differs: %v vs %v", workers, base.Infected().Cells(), sim.Infected().Cells())
		}
		if !slices.Equal(base.OutsideDispersers(), sim.OutsideDispersers()) {
			t.Fatalf("workers=%d outside dispersers differ", workers)
		}
	}
}

func TestDispersalMeanCapRejected(t *testing.T) {
	cfg := scenarioConfig()
	cfg.ReproductiveRate = 1e20
	if _, err := New(cfg); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for rate 1e20, got %v", err)
	}

	cfg = scenarioConfig()
	cfg.Weather = false
	cfg.ReproductiveRate = config.MaxDispersalMean / 2
	r := singleCellRasters(t)
	sim := newBound(t, cfg, r)
	before := r.Infected.Clone()
	err := sim.RunStep()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for a capped mean, got %v", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != 0 {
		t.Fatalf("expected StepError at step 0, got %v", err)
	}
	if sim.Step() != 0 || !slices.Equal(before.Cells(), r.Infected.Cells()) || sim.OutsideCount() != 0 {
		t.Fatal("rejected step must leave state untouched")
	}
}

func TestBindGridsChecksKindsAndValues(t *testing.T) {
	counts := func(vals ...float64) core.Grid {
		return core.Grid{Kind: core.KindInteger, Data: mat.NewDense(1, 2, vals)}
	}
	good := Grids{
		Infected:           counts(1, 0),
		Susceptible:        counts(3, 4),
		TotalPlants:        counts(4, 4),
		WeatherCoefficient: []core.Grid{{Kind: core.KindFloat, Data: mat.NewDense(1, 2, []float64{0.5, 1})}},
	}
	cfg := scenarioConfig()
	cfg.Steps = 1

	sim, err := New(cfg, WithLogger(testlog.New(t)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sim.BindGrids(good); err != nil {
		t.Fatalf("bind grids: %v", err)
	}
	if sim.State() != StateReady || !slices.Equal(sim.TotalPlants().Cells(), []int{4, 4}) {
		t.Fatalf("unexpected binding: state %s total %v", sim.State(), sim.TotalPlants().Cells())
	}

	cases := map[string]func(*Grids){
		"float host counts": func(g *Grids) { g.Infected.Kind = core.KindFloat },
		"fractional count":  func(g *Grids) { g.Susceptible = counts(2.5, 4) },
		"missing total":     func(g *Grids) { g.TotalPlants = core.Grid{Kind: core.KindInteger} },
		"integer weather":   func(g *Grids) { g.WeatherCoefficient = []core.Grid{counts(1, 1)} },
	}
	for name, mutate := range cases {
		g := good
		g.WeatherCoefficient = slices.Clone(good.WeatherCoefficient)
		mutate(&g)
		sim, err := New(cfg)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := sim.BindGrids(g); !errors.Is(err, ErrUnboundedState) {
			t.Fatalf("%s: expected ErrUnboundedState, got %v", name, err)
		}
		if sim.State() != StateCreated {
			t.Fatalf("%s: rejected grids must not bind", name)
		}
	}
}
