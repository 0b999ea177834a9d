// Package config defines the resolved, immutable parameter set of a spread
// simulation and its validation rules.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"pest-spread/internal/core"
	"pest-spread/internal/kernel"
)

// ErrInvalid marks every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// MaxDispersalMean bounds the expected disperser count of one cell in one
// step, and therefore the reproductive rate. Draws below it fit an int on
// every platform.
const MaxDispersalMean = 1 << 30

// KernelSpec describes one dispersal kernel.
type KernelSpec struct {
	Family    string  `toml:"kernel_type"`
	Scale     float64 `toml:"scale"`
	Direction string  `toml:"direction"`
	Kappa     float64 `toml:"kappa"`
}

// Config is the fully resolved parameter set for one simulation.
type Config struct {
	Seed  int64 `toml:"random_seed"`
	Steps int   `toml:"steps"`

	EWRes float64 `toml:"ew_res"`
	NSRes float64 `toml:"ns_res"`

	ReproductiveRate float64 `toml:"reproductive_rate"`

	UseLethalTemperature bool    `toml:"use_lethal_temperature"`
	LethalTemperature    float64 `toml:"lethal_temperature"`

	Weather bool `toml:"weather"`

	Natural                 KernelSpec `toml:"natural"`
	UseAnthropogenic        bool       `toml:"use_anthropogenic_kernel"`
	Anthropogenic           KernelSpec `toml:"anthropogenic"`
	PercentNaturalDispersal float64    `toml:"percent_natural_dispersal"`

	// Workers bounds parallel sampling; zero means one worker per CPU.
	// It never changes results.
	Workers int `toml:"workers"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Seed:             42,
		Steps:            1,
		EWRes:            100,
		NSRes:            100,
		ReproductiveRate: 4.4,
		Natural: KernelSpec{
			Family:    "cauchy",
			Scale:     20,
			Direction: "none",
		},
		Anthropogenic: KernelSpec{
			Family:    "cauchy",
			Scale:     1,
			Direction: "none",
		},
		PercentNaturalDispersal: 1,
	}
}

// NaturalProbability is the chance a disperser uses the natural kernel.
func (c Config) NaturalProbability() float64 {
	if !c.UseAnthropogenic {
		return 1
	}
	return c.PercentNaturalDispersal
}

// Validate checks every field and joins all failures into one error.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if c.Steps < 0 {
		add("steps must be non-negative, got %d", c.Steps)
	}
	if !positive(c.EWRes) {
		add("ew_res must be positive and finite, got %v", c.EWRes)
	}
	if !positive(c.NSRes) {
		add("ns_res must be positive and finite, got %v", c.NSRes)
	}
	if !finite(c.ReproductiveRate) || c.ReproductiveRate < 0 || c.ReproductiveRate > MaxDispersalMean {
		add("reproductive_rate must be within [0,%d], got %v", MaxDispersalMean, c.ReproductiveRate)
	}
	if c.UseLethalTemperature && !finite(c.LethalTemperature) {
		add("lethal_temperature must be finite, got %v", c.LethalTemperature)
	}
	if err := c.Natural.validate("natural"); err != nil {
		errs = append(errs, err)
	}
	if c.UseAnthropogenic {
		if err := c.Anthropogenic.validate("anthropogenic"); err != nil {
			errs = append(errs, err)
		}
	}
	if !finite(c.PercentNaturalDispersal) || c.PercentNaturalDispersal < 0 || c.PercentNaturalDispersal > 1 {
		add("percent_natural_dispersal must be within [0,1], got %v", c.PercentNaturalDispersal)
	}
	if c.Workers < 0 {
		add("workers must be non-negative, got %d", c.Workers)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (k KernelSpec) validate(name string) error {
	var problems []string
	if !kernel.Known(k.Family) {
		problems = append(problems, fmt.Sprintf("kernel_type %q is not one of %s", k.Family, strings.Join(kernel.Families(), ", ")))
	}
	if !positive(k.Scale) {
		problems = append(problems, fmt.Sprintf("scale must be positive and finite, got %v", k.Scale))
	}
	if !finite(k.Kappa) || k.Kappa < 0 {
		problems = append(problems, fmt.Sprintf("kappa must be non-negative and finite, got %v", k.Kappa))
	}
	if _, err := kernel.ParseDirection(k.Direction); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s kernel: %s", name, strings.Join(problems, "; "))
}

// Kernel builds the sampler k describes.
func (k KernelSpec) Kernel() (*kernel.Radial, error) {
	return kernel.New(k.Family, k.Scale, k.Direction, k.Kappa)
}

// Parameters returns a presentation snapshot of the configuration.
func (c Config) Parameters() core.ParameterSnapshot {
	groups := []core.ParameterGroup{
		{
			Name: "Run",
			Params: []core.Parameter{
				core.Int64Param("random_seed", "Seed", c.Seed),
				core.IntParam("steps", "Steps", c.Steps),
				core.IntParam("workers", "Workers", c.Workers),
			},
		},
		{
			Name: "Grid",
			Params: []core.Parameter{
				core.FloatParam("ew_res", "East-west resolution", c.EWRes),
				core.FloatParam("ns_res", "North-south resolution", c.NSRes),
			},
		},
		{
			Name: "Reproduction",
			Params: []core.Parameter{
				core.FloatParam("reproductive_rate", "Reproductive rate", c.ReproductiveRate),
				core.BoolParam("weather", "Weather", c.Weather),
			},
		},
		{
			Name: "Mortality",
			Params: []core.Parameter{
				core.BoolParam("use_lethal_temperature", "Lethal temperature", c.UseLethalTemperature),
				core.FloatParam("lethal_temperature", "Lethal threshold", c.LethalTemperature),
			},
		},
		kernelGroup("Natural kernel", "natural", c.Natural),
	}
	dispersal := core.ParameterGroup{
		Name: "Dispersal mix",
		Params: []core.Parameter{
			core.BoolParam("use_anthropogenic_kernel", "Anthropogenic kernel", c.UseAnthropogenic),
			core.FloatParam("percent_natural_dispersal", "Natural fraction", c.PercentNaturalDispersal),
		},
	}
	groups = append(groups, dispersal)
	if c.UseAnthropogenic {
		groups = append(groups, kernelGroup("Anthropogenic kernel", "anthro", c.Anthropogenic))
	}
	return core.ParameterSnapshot{Groups: groups}
}

func kernelGroup(name, prefix string, k KernelSpec) core.ParameterGroup {
	return core.ParameterGroup{
		Name: name,
		Params: []core.Parameter{
			core.StringParam(prefix+"_kernel_type", "Family", k.Family),
			core.FloatParam(prefix+"_scale", "Scale", k.Scale),
			core.StringParam(prefix+"_direction", "Direction", k.Direction),
			core.FloatParam(prefix+"_kappa", "Kappa", k.Kappa),
		},
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func positive(v float64) bool { return finite(v) && v > 0 }
