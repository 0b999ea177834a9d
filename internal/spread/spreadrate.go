package spread

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"pest-spread/internal/core"
)

// BBox is the bounding box of infected cells, inclusive on all sides.
type BBox struct {
	Top, Bottom, Left, Right int
	Empty                    bool
}

// Rate is the per-step movement of the infection boundary in map units.
// Positive values mean the boundary moved outward. Values are NaN when either
// box is empty.
type Rate struct {
	North, South, East, West float64
}

// SpreadRate tracks how fast the infected area expands in each direction.
type SpreadRate struct {
	ewRes, nsRes float64
	prev         BBox
	rates        []Rate
}

// NewSpreadRate starts tracking from the current infected raster.
func NewSpreadRate(ewRes, nsRes float64, infected *core.IntRaster) *SpreadRate {
	return &SpreadRate{ewRes: ewRes, nsRes: nsRes, prev: boundingBox(infected)}
}

func boundingBox(r *core.IntRaster) BBox {
	box := BBox{Top: r.Rows(), Bottom: -1, Left: r.Cols(), Right: -1, Empty: true}
	for i, v := range r.Cells() {
		if v <= 0 {
			continue
		}
		row, col := r.Coords(i)
		box.Empty = false
		box.Top = min(box.Top, row)
		box.Bottom = max(box.Bottom, row)
		box.Left = min(box.Left, col)
		box.Right = max(box.Right, col)
	}
	return box
}

// Record appends the rate between the previous box and the current raster.
func (sr *SpreadRate) Record(infected *core.IntRaster) {
	cur := boundingBox(infected)
	rate := Rate{North: math.NaN(), South: math.NaN(), East: math.NaN(), West: math.NaN()}
	if !sr.prev.Empty && !cur.Empty {
		rate = Rate{
			North: float64(sr.prev.Top-cur.Top) * sr.nsRes,
			South: float64(cur.Bottom-sr.prev.Bottom) * sr.nsRes,
			East:  float64(cur.Right-sr.prev.Right) * sr.ewRes,
			West:  float64(sr.prev.Left-cur.Left) * sr.ewRes,
		}
	}
	sr.rates = append(sr.rates, rate)
	sr.prev = cur
}

// Box returns the most recent bounding box.
func (sr *SpreadRate) Box() BBox { return sr.prev }

// Rates returns the per-step rates recorded so far.
func (sr *SpreadRate) Rates() []Rate { return append([]Rate(nil), sr.rates...) }

// Average returns the mean rate per direction, skipping NaN steps.
func (sr *SpreadRate) Average() Rate {
	pick := func(f func(Rate) float64) float64 {
		var vals []float64
		for _, r := range sr.rates {
			if v := f(r); !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			return math.NaN()
		}
		return stat.Mean(vals, nil)
	}
	return Rate{
		North: pick(func(r Rate) float64 { return r.North }),
		South: pick(func(r Rate) float64 { return r.South }),
		East:  pick(func(r Rate) float64 { return r.East }),
		West:  pick(func(r Rate) float64 { return r.West }),
	}
}
