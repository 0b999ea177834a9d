// Package scenario reads self-contained simulation inputs: a configuration
// table plus inline rasters, all in one TOML document.
package scenario

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/mat"

	"pest-spread/internal/config"
	"pest-spread/internal/core"
	"pest-spread/internal/spread"
)

// File is the decoded form of a scenario document.
type File struct {
	Config config.Config `toml:"config"`

	Infected         [][]int `toml:"infected"`
	Susceptible      [][]int `toml:"susceptible"`
	TotalPlants      [][]int `toml:"total_plants"`
	Died             [][]int `toml:"died"`
	MortalityTracker [][]int `toml:"mortality_tracker"`

	WeatherCoefficient [][][]float64 `toml:"weather_coefficient"`
	Temperature        [][][]float64 `toml:"temperature"`
}

// Load reads and validates a scenario file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario load failed (%s): %w", path, err)
	}
	f, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes scenario TOML text. Unknown keys are rejected.
func Parse(text string) (*File, error) {
	f := &File{Config: config.DefaultConfig()}
	md, err := toml.Decode(text, f)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", config.ErrInvalid, err)
	}
	if err := config.CheckMetaData(md, "config"); err != nil {
		return nil, err
	}
	if err := f.Config.Validate(); err != nil {
		return nil, err
	}
	if len(f.Infected) == 0 || len(f.Susceptible) == 0 || len(f.TotalPlants) == 0 {
		return nil, fmt.Errorf("%w: infected, susceptible and total_plants are required", config.ErrInvalid)
	}
	return f, nil
}

// Grids decodes the inline rasters into gonum matrices tagged with their
// scalar kind: host counts are integers, weather and temperature are floats.
func (f *File) Grids() (spread.Grids, error) {
	var g spread.Grids
	var err error
	if g.Infected, err = grid("infected", f.Infected, core.KindInteger); err != nil {
		return g, err
	}
	if g.Susceptible, err = grid("susceptible", f.Susceptible, core.KindInteger); err != nil {
		return g, err
	}
	if g.TotalPlants, err = grid("total_plants", f.TotalPlants, core.KindInteger); err != nil {
		return g, err
	}
	if len(f.Died) > 0 {
		if g.Died, err = grid("died", f.Died, core.KindInteger); err != nil {
			return g, err
		}
	}
	if len(f.MortalityTracker) > 0 {
		if g.MortalityTracker, err = grid("mortality_tracker", f.MortalityTracker, core.KindInteger); err != nil {
			return g, err
		}
	}
	if g.WeatherCoefficient, err = grids("weather_coefficient", f.WeatherCoefficient); err != nil {
		return g, err
	}
	if g.Temperature, err = grids("temperature", f.Temperature); err != nil {
		return g, err
	}
	return g, nil
}

// Build creates a bound simulation using cfg, which lets callers override
// fields such as the seed without touching the file. Every build gets its own
// raster storage, so one File can seed many runs.
func (f *File) Build(cfg config.Config, opts ...spread.Option) (*spread.Simulation, error) {
	g, err := f.Grids()
	if err != nil {
		return nil, err
	}
	sim, err := spread.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := sim.BindGrids(g); err != nil {
		return nil, err
	}
	return sim, nil
}

func grid[T int | float64](name string, rows [][]T, kind core.Kind) (core.Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return core.Grid{}, fmt.Errorf("%s: raster must have at least one row and one column", name)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return core.Grid{}, fmt.Errorf("%s: row %d has %d columns, want %d", name, i, len(row), cols)
		}
		for _, v := range row {
			data = append(data, float64(v))
		}
	}
	return core.Grid{Kind: kind, Data: mat.NewDense(len(rows), cols, data)}, nil
}

func grids(name string, layers [][][]float64) ([]core.Grid, error) {
	if len(layers) == 0 {
		return nil, nil
	}
	out := make([]core.Grid, len(layers))
	for i, rows := range layers {
		g, err := grid(fmt.Sprintf("%s[%d]", name, i), rows, core.KindFloat)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}
