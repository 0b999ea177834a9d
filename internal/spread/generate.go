package spread

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"pest-spread/internal/config"
	"pest-spread/internal/core"
	pcore "pest-spread/pkg/core"
)

// stepInputs holds the per-step weather and temperature rasters, nil when the
// corresponding feature is off.
type stepInputs struct {
	weather     *core.FloatRaster
	temperature *core.FloatRaster
}

// stepInputs resolves and checks per-step data before anything is mutated.
func (s *Simulation) stepInputs(step int) (stepInputs, error) {
	var in stepInputs
	if s.cfg.Weather {
		if step >= len(s.weather) {
			return in, fmt.Errorf("%w: weather_coefficient has %d rasters, need index %d", ErrMissingWeatherData, len(s.weather), step)
		}
		in.weather = s.weather[step]
		for i, v := range in.weather.Cells() {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				row, col := in.weather.Coords(i)
				return in, fmt.Errorf("%w: weather_coefficient[%d] is %v at (%d,%d)", ErrMissingWeatherData, step, v, row, col)
			}
		}
	}
	if s.cfg.UseLethalTemperature {
		if step >= len(s.temperature) {
			return in, fmt.Errorf("%w: temperature has %d rasters, need index %d", ErrMissingWeatherData, len(s.temperature), step)
		}
		in.temperature = s.temperature[step]
		for i, v := range in.temperature.Cells() {
			if math.IsNaN(v) {
				row, col := in.temperature.Coords(i)
				return in, fmt.Errorf("%w: temperature[%d] is NaN at (%d,%d)", ErrMissingWeatherData, step, row, col)
			}
		}
	}
	return in, nil
}

// span is a half-open range of cell indices handled by one worker.
type span struct{ lo, hi int }

// spans splits n cells into at most parts contiguous ranges.
func spans(n, parts int) []span {
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([]span, 0, parts)
	for i := 0; i < parts; i++ {
		lo := i * n / parts
		hi := (i + 1) * n / parts
		if hi > lo {
			out = append(out, span{lo: lo, hi: hi})
		}
	}
	return out
}

// generate draws the number of dispersers leaving every infected cell.
// Each cell reads its own (step, cell) stream, so worker scheduling never
// changes the counts. A cell whose expected count exceeds
// config.MaxDispersalMean is rejected before any draw.
func (s *Simulation) generate(step int, weather *core.FloatRaster) ([]int, error) {
	inf := s.infected.Cells()
	var coef []float64
	if weather != nil {
		coef = weather.Cells()
	}
	mean := func(cell int) float64 {
		m := float64(inf[cell]) * s.cfg.ReproductiveRate
		if coef != nil {
			m *= coef[cell]
		}
		return m
	}
	for cell := range inf {
		if m := mean(cell); m > config.MaxDispersalMean {
			row, col := s.infected.Coords(cell)
			return nil, fmt.Errorf("%w: expected dispersers %g at (%d,%d) exceed %d", ErrConfiguration, m, row, col, config.MaxDispersalMean)
		}
	}

	counts := make([]int, len(inf))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, sp := range spans(len(inf), s.workers) {
		g.Go(func() error {
			for cell := sp.lo; cell < sp.hi; cell++ {
				if inf[cell] > 0 {
					counts[cell] = s.drawCount(step, cell, mean(cell))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// drawCount samples a Poisson count. The result is clamped to MaxInt32 so the
// conversion is defined on every platform.
func (s *Simulation) drawCount(step, cell int, mean float64) int {
	if !(mean > 0) {
		return 0
	}
	src := s.rng.Source(pcore.StreamDispersers, step, cell)
	return int(min(distuv.Poisson{Lambda: mean, Src: src}.Rand(), math.MaxInt32))
}
