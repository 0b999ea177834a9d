package kernel

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Mixture chooses between a natural and an anthropogenic kernel per disperser.
type Mixture struct {
	natural        Kernel
	anthropogenic  Kernel
	percentNatural float64
}

// NewMixture builds a mixture. A nil anthropogenic kernel always selects the
// natural one.
func NewMixture(natural, anthropogenic Kernel, percentNatural float64) *Mixture {
	return &Mixture{natural: natural, anthropogenic: anthropogenic, percentNatural: percentNatural}
}

// Choose picks the kernel for one disperser using the family stream.
func (m *Mixture) Choose(family *rand.Rand) Kernel {
	if m.anthropogenic == nil {
		return m.natural
	}
	if (distuv.Bernoulli{P: m.percentNatural, Src: family}).Rand() == 1 {
		return m.natural
	}
	return m.anthropogenic
}

// Sample chooses a kernel with the family stream and draws a displacement
// from the kernel stream.
func (m *Mixture) Sample(kernelRnd, familyRnd *rand.Rand) (dx, dy float64) {
	return m.Choose(familyRnd).Sample(kernelRnd)
}
