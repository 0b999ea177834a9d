package spread

import (
	"fmt"

	"pest-spread/internal/core"
)

// Grids carries decoded rasters from raster I/O. Host counts must declare
// integer cells; weather and temperature grids must declare float cells. Died
// and MortalityTracker are optional and skipped when their Data is nil.
type Grids struct {
	Infected           core.Grid
	Susceptible        core.Grid
	TotalPlants        core.Grid
	Died               core.Grid
	MortalityTracker   core.Grid
	WeatherCoefficient []core.Grid
	Temperature        []core.Grid
}

// BindGrids copies g into new rasters and binds them. The simulation owns
// the copies; read them back through the raster accessors. When any grid is
// rejected nothing is bound.
func (s *Simulation) BindGrids(g Grids) error {
	if err := s.unlocked(); err != nil {
		return err
	}
	var r Rasters
	var err error
	if r.Infected, err = countRaster("infected", g.Infected, true); err != nil {
		return err
	}
	if r.Susceptible, err = countRaster("susceptible", g.Susceptible, true); err != nil {
		return err
	}
	if r.TotalPlants, err = countRaster("total_plants", g.TotalPlants, true); err != nil {
		return err
	}
	if r.Died, err = countRaster("died", g.Died, false); err != nil {
		return err
	}
	if r.MortalityTracker, err = countRaster("mortality_tracker", g.MortalityTracker, false); err != nil {
		return err
	}
	if r.WeatherCoefficient, err = floatRasters("weather_coefficient", g.WeatherCoefficient); err != nil {
		return err
	}
	if r.Temperature, err = floatRasters("temperature", g.Temperature); err != nil {
		return err
	}
	return s.Bind(r)
}

func countRaster(name string, g core.Grid, required bool) (*core.IntRaster, error) {
	if g.Data == nil && !required {
		return nil, nil
	}
	r, err := core.FromGrid[int](g)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnboundedState, name, err)
	}
	return r, nil
}

func floatRasters(name string, gs []core.Grid) ([]*core.FloatRaster, error) {
	if len(gs) == 0 {
		return nil, nil
	}
	out := make([]*core.FloatRaster, len(gs))
	for i, g := range gs {
		r, err := core.FromGrid[float64](g)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %w", ErrUnboundedState, name, i, err)
		}
		out[i] = r
	}
	return out, nil
}
