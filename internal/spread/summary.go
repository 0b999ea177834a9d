package spread

import (
	"gonum.org/v1/gonum/floats"

	"pest-spread/internal/core"
)

// Summary aggregates the state of a simulation at one point in time.
type Summary struct {
	Step             int
	Steps            int
	State            State
	Infected         int
	InfectedCells    int
	Susceptible      int
	Died             int
	MortalityTracker int
	Dispersers       int
	Outside          int
	Rate             Rate

	// WeatherMean is the mean coefficient used by the latest step, or 1 when
	// weather is off or no step ran yet.
	WeatherMean float64
}

// Summary totals the bound rasters. Counts are zero before Ready.
func (s *Simulation) Summary() Summary {
	sum := Summary{Step: s.step, Steps: s.cfg.Steps, State: s.state, Outside: len(s.outside), WeatherMean: 1}
	if s.state == StateCreated {
		return sum
	}
	sum.Infected = total(s.infected)
	sum.Susceptible = total(s.susceptible)
	sum.Died = total(s.died)
	sum.MortalityTracker = total(s.mortality)
	for _, v := range s.infected.Cells() {
		if v > 0 {
			sum.InfectedCells++
		}
	}
	if s.dispersers != nil {
		sum.Dispersers = total(s.dispersers)
	}
	if s.rate != nil {
		sum.Rate = s.rate.Average()
	}
	if s.cfg.Weather && s.step > 0 && s.step-1 < len(s.weather) {
		sum.WeatherMean = mean(s.weather[s.step-1])
	}
	return sum
}

// KeyVals flattens the summary for structured loggers.
func (sum Summary) KeyVals() []any {
	return []any{
		"step", sum.Step,
		"steps", sum.Steps,
		"state", sum.State,
		"infected", sum.Infected,
		"infected_cells", sum.InfectedCells,
		"susceptible", sum.Susceptible,
		"died", sum.Died,
		"mortality", sum.MortalityTracker,
		"dispersers", sum.Dispersers,
		"outside", sum.Outside,
		"weather_mean", sum.WeatherMean,
	}
}

func total(r *core.IntRaster) int {
	n := 0
	for _, v := range r.Cells() {
		n += v
	}
	return n
}

func mean(r *core.FloatRaster) float64 {
	if r.Len() == 0 {
		return 0
	}
	return floats.Sum(r.Cells()) / float64(r.Len())
}
