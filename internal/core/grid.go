package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Number is the set of scalar kinds a raster cell may hold.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Raster stores a 2D grid of numeric cell values in row-major order.
//
// The backing slice belongs to whoever created the raster. Engines mutate it
// in place and never copy it behind the caller's back.
type Raster[T Number] struct {
	rows, cols int
	data       []T
}

// IntRaster holds host counts.
type IntRaster = Raster[int]

// FloatRaster holds weather coefficients and temperatures.
type FloatRaster = Raster[float64]

// NewRaster allocates a zeroed raster with the given dimensions.
func NewRaster[T Number](rows, cols int) *Raster[T] {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &Raster[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
}

// WrapRaster views caller-owned row-major storage as a raster without copying.
func WrapRaster[T Number](rows, cols int, data []T) (*Raster[T], error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("raster dimensions must be positive, got %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("raster storage holds %d cells, want %d", len(data), rows*cols)
	}
	return &Raster[T]{rows: rows, cols: cols, data: data}, nil
}

// RasterFromRows copies nested rows into a new raster. All rows must have the
// same length.
func RasterFromRows[T Number](rows [][]T) (*Raster[T], error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("raster must have at least one row and one column")
	}
	cols := len(rows[0])
	r := NewRaster[T](len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		copy(r.data[i*cols:], row)
	}
	return r, nil
}

// maxExactInt is the largest magnitude a float64 cell can carry into an
// integer raster without losing precision.
const maxExactInt = 1 << 53

// FromDense copies a gonum matrix into a new raster. Integer rasters reject
// cells that are not finite whole numbers.
func FromDense[T Number](m *mat.Dense) (*Raster[T], error) {
	rows, cols := m.Dims()
	data := make([]T, rows*cols)
	integral := KindOf[T]() == KindInteger
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if integral && (v != math.Trunc(v) || math.Abs(v) > maxExactInt) {
				return nil, fmt.Errorf("cell (%d,%d) holds %v, want a whole number", i, j, v)
			}
			data[i*cols+j] = T(v)
		}
	}
	return WrapRaster(rows, cols, data)
}

// FromGrid converts a decoded grid whose declared kind matches T.
func FromGrid[T Number](g Grid) (*Raster[T], error) {
	if g.Data == nil {
		return nil, fmt.Errorf("grid has no data")
	}
	if want := KindOf[T](); g.Kind != want {
		return nil, fmt.Errorf("grid declares %s cells, want %s", g.Kind, want)
	}
	return FromDense[T](g.Data)
}

// Dense copies the raster into a new gonum matrix.
func (r *Raster[T]) Dense() *mat.Dense {
	vals := make([]float64, len(r.data))
	for i, v := range r.data {
		vals[i] = float64(v)
	}
	return mat.NewDense(r.rows, r.cols, vals)
}

// Rows reports the number of rows.
func (r *Raster[T]) Rows() int { return r.rows }

// Cols reports the number of columns.
func (r *Raster[T]) Cols() int { return r.cols }

// Size reports the raster dimensions.
func (r *Raster[T]) Size() Size { return Size{Rows: r.rows, Cols: r.cols} }

// Len reports the number of cells.
func (r *Raster[T]) Len() int { return len(r.data) }

// Cells exposes the backing slice so callers can read/write values directly.
func (r *Raster[T]) Cells() []T { return r.data }

// Index returns the linear slice index for (row, col).
func (r *Raster[T]) Index(row, col int) int { return row*r.cols + col }

// Coords converts a linear index back to (row, col).
func (r *Raster[T]) Coords(idx int) (int, int) { return idx / r.cols, idx % r.cols }

// InBounds reports whether (row, col) addresses a cell of the raster.
func (r *Raster[T]) InBounds(row, col int) bool {
	return row >= 0 && row < r.rows && col >= 0 && col < r.cols
}

// At returns the value at (row, col).
func (r *Raster[T]) At(row, col int) T { return r.data[r.Index(row, col)] }

// Set stores v at (row, col).
func (r *Raster[T]) Set(row, col int, v T) { r.data[r.Index(row, col)] = v }

// Clone returns a deep copy with its own storage.
func (r *Raster[T]) Clone() *Raster[T] {
	return &Raster[T]{rows: r.rows, cols: r.cols, data: append([]T(nil), r.data...)}
}

// Clear fills the raster with zeros.
func (r *Raster[T]) Clear() {
	clear(r.data)
}

// KindOf reports the scalar kind of cell type T.
func KindOf[T Number]() Kind {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return KindFloat
	default:
		return KindInteger
	}
}
