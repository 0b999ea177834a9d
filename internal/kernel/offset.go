package kernel

import "math"

// maxOffset clamps heavy-tailed draws so float-to-int conversion stays defined.
// Anything this far away is outside every practical grid.
const maxOffset = 1 << 30

// CellOffset converts a displacement into row and column offsets. Columns grow
// eastward and rows grow southward. Both axes round half away from zero.
func CellOffset(dx, dy, ewRes, nsRes float64) (dRow, dCol int) {
	return toCells(-dy / nsRes), toCells(dx / ewRes)
}

func toCells(v float64) int {
	r := math.Round(v)
	switch {
	case math.IsNaN(r):
		return 0
	case r > maxOffset:
		return maxOffset
	case r < -maxOffset:
		return -maxOffset
	}
	return int(r)
}
