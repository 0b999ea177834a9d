package kernel

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// kappa below this is treated as a uniform circle.
const minKappa = 1e-6

func isotropic(rnd *rand.Rand) float64 {
	return distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: rnd}.Rand()
}

// vonMises draws an angle around mu using the Best-Fisher rejection sampler.
func vonMises(rnd *rand.Rand, mu, kappa float64) float64 {
	if kappa < minKappa {
		return isotropic(rnd)
	}
	tau := 1 + math.Sqrt(1+4*kappa*kappa)
	rho := (tau - math.Sqrt(2*tau)) / (2 * kappa)
	r := (1 + rho*rho) / (2 * rho)
	for {
		z := math.Cos(math.Pi * rnd.Float64())
		f := (1 + r*z) / (r + z)
		c := kappa * (r - f)
		u := rnd.Float64()
		if c*(2-c)-u > 0 || math.Log(c/u)+1-c >= 0 {
			theta := math.Acos(f)
			if rnd.Float64() < 0.5 {
				theta = -theta
			}
			return mu + theta
		}
	}
}
