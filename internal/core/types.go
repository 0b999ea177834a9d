package core

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Size describes the dimensions of a raster.
type Size struct {
	Rows int
	Cols int
}

// Cells returns the number of cells covered by the size.
func (s Size) Cells() int { return s.Rows * s.Cols }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }

// Kind enumerates the scalar kinds a raster can declare.
type Kind int

const (
	// KindInteger marks host-count rasters.
	KindInteger Kind = iota
	// KindFloat marks weather and temperature rasters.
	KindFloat
)

func (k Kind) String() string {
	if k == KindFloat {
		return "float"
	}
	return "integer"
}

// Grid is a decoded raster as raster I/O delivers it: cell values plus the
// scalar kind the source declared.
type Grid struct {
	Kind Kind
	Data *mat.Dense
}

// Stepper is the minimal contract for a stepwise simulation driver.
type Stepper interface {
	RunStep() error
	Step() int
	Steps() int
}
