package spread

import (
	"golang.org/x/sync/errgroup"

	"pest-spread/internal/kernel"
	pcore "pest-spread/pkg/core"
)

// chunkDraws caps the dispersers resolved by one sampling job. Every chunk
// reads its own substream, so the split never depends on the worker count.
const chunkDraws = 4096

// landing is the destination cell of one disperser. It may lie off the grid.
type landing struct{ row, col int }

// chunk is a run of consecutive draws from one origin cell. off locates its
// landings in the window buffer.
type chunk struct {
	origin int
	index  int
	n      int
	off    int
}

type applyResult struct {
	dispersers int
	infections int
	blocked    int
	outside    int
}

// disperse resolves and lands every generated disperser of the step.
//
// Chunks are gathered into windows of at most chunkDraws*workers draws. A
// window is sampled in parallel and then applied in ascending origin cell
// order, chunk order and draw order. That order is the tie-break when several
// dispersers compete for the last susceptible hosts of a cell. Memory stays
// bounded by the window no matter how many dispersers a step generates.
func (s *Simulation) disperse(step int, counts []int) applyResult {
	budget := chunkDraws * s.workers
	if cap(s.landings) < budget {
		s.landings = make([]landing, budget)
	}
	buf := s.landings[:budget]
	window := s.chunks[:0]
	used := 0

	var res applyResult
	flush := func() {
		s.sampleWindow(step, window, buf)
		s.applyWindow(step, window, buf, &res)
		window = window[:0]
		used = 0
	}
	for origin, n := range counts {
		for index := 0; n > 0; index++ {
			k := min(n, chunkDraws)
			if used+k > budget {
				flush()
			}
			window = append(window, chunk{origin: origin, index: index, n: k, off: used})
			used += k
			n -= k
		}
	}
	if len(window) > 0 {
		flush()
	}
	s.chunks = window[:0]
	return res
}

// sampleWindow fills buf with the landings of every chunk in the window.
// Kernel and family draws come from streams keyed by (step, origin, chunk).
func (s *Simulation) sampleWindow(step int, window []chunk, buf []landing) {
	cols := s.infected.Cols()

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, sp := range spans(len(window), s.workers) {
		g.Go(func() error {
			for _, c := range window[sp.lo:sp.hi] {
				kernelRnd := s.rng.Rand(pcore.StreamKernel, step, c.origin, c.index)
				familyRnd := s.rng.Rand(pcore.StreamFamily, step, c.origin, c.index)
				row, col := c.origin/cols, c.origin%cols
				dst := buf[c.off : c.off+c.n]
				for i := range dst {
					dx, dy := s.mix.Sample(kernelRnd, familyRnd)
					dRow, dCol := kernel.CellOffset(dx, dy, s.cfg.EWRes, s.cfg.NSRes)
					dst[i] = landing{row: row + dRow, col: col + dCol}
				}
			}
			return nil
		})
	}
	// Sampling jobs never fail.
	_ = g.Wait()
}

// applyWindow lands the window's dispersers in order.
func (s *Simulation) applyWindow(step int, window []chunk, buf []landing, res *applyResult) {
	inf := s.infected.Cells()
	sus := s.susceptible.Cells()
	tot := s.totalPlants.Cells()
	died := s.died.Cells()
	cohort := s.cohorts.Slot(step)
	cols := s.infected.Cols()

	for _, c := range window {
		oRow, oCol := c.origin/cols, c.origin%cols
		for _, d := range buf[c.off : c.off+c.n] {
			res.dispersers++
			if !s.infected.InBounds(d.row, d.col) {
				s.outside = append(s.outside, OutsideDisperser{
					Step:      step,
					OriginRow: oRow,
					OriginCol: oCol,
					Row:       d.row,
					Col:       d.col,
				})
				res.outside++
				continue
			}
			i := d.row*cols + d.col
			if min(sus[i], tot[i]-inf[i]-died[i]) <= 0 {
				res.blocked++
				continue
			}
			sus[i]--
			inf[i]++
			cohort[i]++
			res.infections++
		}
	}
}
