// Package kernel samples dispersal displacements from parameterized
// distance and direction distributions.
package kernel

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

// ErrUnknownFamily is returned for kernel families without a registered factory.
var ErrUnknownFamily = errors.New("unknown kernel family")

// ErrUnknownDirection is returned for unparsable preferred directions.
var ErrUnknownDirection = errors.New("unknown kernel direction")

// Kernel samples one displacement in map units: dx points east, dy north.
type Kernel interface {
	Sample(rnd *rand.Rand) (dx, dy float64)
}

// DistanceFunc draws a signed dispersal distance from src.
type DistanceFunc func(src rand.Source) float64

// Factory constructs a distance sampler for a scale parameter.
type Factory func(scale float64) (DistanceFunc, error)

var families = map[string]Factory{}

// Register adds a kernel family under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	families[strings.ToLower(name)] = f
}

// Families lists the registered family names in sorted order.
func Families() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether a family is registered.
func Known(name string) bool {
	_, ok := families[strings.ToLower(name)]
	return ok
}

// Direction is a preferred compass bearing in degrees, or DirectionNone.
type Direction int

// DirectionNone disables directional bias.
const DirectionNone Direction = -1

var directions = map[string]Direction{
	"none": DirectionNone,
	"n":    0,
	"ne":   45,
	"e":    90,
	"se":   135,
	"s":    180,
	"sw":   225,
	"w":    270,
	"nw":   315,
}

// ParseDirection parses a compass abbreviation (N, NE, ..., NW) or "none".
func ParseDirection(s string) (Direction, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return DirectionNone, nil
	}
	d, ok := directions[key]
	if !ok {
		return DirectionNone, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
	return d, nil
}

// Angle converts the bearing into a mathematical angle in radians
// (0 = east, counterclockwise).
func (d Direction) Angle() float64 {
	return math.Pi/2 - float64(d)*math.Pi/180
}

func (d Direction) String() string {
	for name, v := range directions {
		if v == d {
			return strings.ToUpper(name)
		}
	}
	return fmt.Sprintf("%d°", int(d))
}

// Radial combines a distance distribution with a direction distribution.
type Radial struct {
	family    string
	distance  DistanceFunc
	direction Direction
	kappa     float64
}

// New builds a radial kernel for the named family.
func New(family string, scale float64, direction string, kappa float64) (*Radial, error) {
	f, ok := families[strings.ToLower(family)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("kernel %s: scale must be positive and finite, got %v", family, scale)
	}
	if kappa < 0 || math.IsNaN(kappa) || math.IsInf(kappa, 0) {
		return nil, fmt.Errorf("kernel %s: kappa must be non-negative and finite, got %v", family, kappa)
	}
	dir, err := ParseDirection(direction)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", family, err)
	}
	dist, err := f(scale)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", family, err)
	}
	return &Radial{family: strings.ToLower(family), distance: dist, direction: dir, kappa: kappa}, nil
}

// Family reports the kernel family name.
func (k *Radial) Family() string { return k.family }

// Sample draws a distance, then an angle, and projects them onto east/north axes.
func (k *Radial) Sample(rnd *rand.Rand) (dx, dy float64) {
	d := k.distance(rnd)
	theta := k.angle(rnd)
	return d * math.Cos(theta), d * math.Sin(theta)
}

func (k *Radial) angle(rnd *rand.Rand) float64 {
	if k.direction == DirectionNone {
		return isotropic(rnd)
	}
	return vonMises(rnd, k.direction.Angle(), k.kappa)
}
