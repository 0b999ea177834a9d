package spread

import "pest-spread/internal/core"

// Cohorts records how many hosts became infected in each step, per cell.
//
// Slot 0 holds the hosts already infected before the first step; slot k+1
// holds the infections of step k. Removals debit the oldest slot first, so the
// per-cell sum across slots always equals the cell's infected count.
type Cohorts struct {
	cells int
	slots [][]int
}

// NewCohorts allocates an empty ring for the given cell count and step count.
func NewCohorts(cells, steps int) *Cohorts {
	if steps < 0 {
		steps = 0
	}
	return &Cohorts{cells: cells, slots: make([][]int, steps+1)}
}

// Seed stores the pre-simulation infections in slot 0.
func (c *Cohorts) Seed(infected []int) {
	c.slots[0] = append([]int(nil), infected...)
}

// Slot returns the writable cohort of a step, allocating it on first use.
func (c *Cohorts) Slot(step int) []int {
	k := step + 1
	if c.slots[k] == nil {
		c.slots[k] = make([]int, c.cells)
	}
	return c.slots[k]
}

// Depth reports the number of slots, including the initial one.
func (c *Cohorts) Depth() int { return len(c.slots) }

// At reports the hosts of a cell infected during step; step -1 addresses the
// initial infections.
func (c *Cohorts) At(step, cell int) int {
	k := step + 1
	if k < 0 || k >= len(c.slots) || c.slots[k] == nil {
		return 0
	}
	return c.slots[k][cell]
}

// Total sums every cohort of a cell.
func (c *Cohorts) Total(cell int) int {
	n := 0
	for _, slot := range c.slots {
		if slot != nil {
			n += slot[cell]
		}
	}
	return n
}

// Remove debits up to n hosts from the oldest cohorts of a cell and returns
// how many were debited.
func (c *Cohorts) Remove(cell, n int) int {
	removed := 0
	for _, slot := range c.slots {
		if n == 0 {
			break
		}
		if slot == nil || slot[cell] == 0 {
			continue
		}
		take := min(slot[cell], n)
		slot[cell] -= take
		n -= take
		removed += take
	}
	return removed
}

// removeLethal removes every infected host from cells whose temperature is at
// or below the lethal threshold, crediting died and the mortality tracker.
func (s *Simulation) removeLethal(temperature *core.FloatRaster) int {
	if temperature == nil {
		return 0
	}
	threshold := s.cfg.LethalTemperature
	inf := s.infected.Cells()
	died := s.died.Cells()
	mort := s.mortality.Cells()
	removed := 0
	for i, t := range temperature.Cells() {
		if t > threshold || inf[i] <= 0 {
			continue
		}
		n := inf[i]
		s.cohorts.Remove(i, n)
		inf[i] = 0
		died[i] += n
		mort[i] += n
		removed += n
	}
	return removed
}
