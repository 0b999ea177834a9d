package core

import "math/rand/v2"

// Stream names an independent purpose-specific random stream.
type Stream uint64

const (
	// StreamDispersers drives per-cell disperser counts.
	StreamDispersers Stream = iota + 1
	// StreamKernel drives dispersal distance and direction draws.
	StreamKernel
	// StreamFamily drives the natural versus anthropogenic kernel choice.
	StreamFamily
)

// String returns the stream name.
func (s Stream) String() string {
	switch s {
	case StreamDispersers:
		return "dispersers"
	case StreamKernel:
		return "kernel"
	case StreamFamily:
		return "family"
	default:
		return "unknown"
	}
}

// RNG derives deterministic random streams from a single seed.
//
// Every stream is keyed by (stream, step, cell, sub), so draws for one cell never
// depend on the order in which other cells are processed.
type RNG struct {
	seed uint64
}

// NewRNG creates a deterministic stream factory using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{seed: uint64(seed)}
}

// Seed reports the seed the factory was created with.
func (r *RNG) Seed() int64 { return int64(r.seed) }

// Source returns a fresh PCG source for the keyed stream.
func (r *RNG) Source(s Stream, step, cell int) *rand.PCG {
	return r.Substream(s, step, cell, 0)
}

// Substream returns the source for part sub of the keyed stream. Work split
// into numbered chunks draws each chunk from its own substream.
func (r *RNG) Substream(s Stream, step, cell, sub int) *rand.PCG {
	return rand.NewPCG(r.seed, streamKey(s, step, cell, sub))
}

// Rand returns a fresh generator for part sub of the keyed stream.
func (r *RNG) Rand(s Stream, step, cell, sub int) *rand.Rand {
	return rand.New(r.Substream(s, step, cell, sub))
}

func streamKey(s Stream, step, cell, sub int) uint64 {
	k := splitmix64(uint64(s))
	k = splitmix64(k ^ uint64(step))
	k = splitmix64(k ^ uint64(cell))
	return splitmix64(k ^ uint64(sub))
}

// splitmix64 is the finalizer from Steele et al., used to spread nearby keys.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
