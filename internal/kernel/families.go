package kernel

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Cauchy distances are Student's t draws with one degree of freedom.
func cauchy(scale float64) (DistanceFunc, error) {
	return func(src rand.Source) float64 {
		return distuv.StudentsT{Mu: 0, Sigma: scale, Nu: 1, Src: src}.Rand()
	}, nil
}

func exponential(scale float64) (DistanceFunc, error) {
	return func(src rand.Source) float64 {
		return distuv.Exponential{Rate: 1 / scale, Src: src}.Rand()
	}, nil
}

func uniform(scale float64) (DistanceFunc, error) {
	return func(src rand.Source) float64 {
		return distuv.Uniform{Min: 0, Max: scale, Src: src}.Rand()
	}, nil
}

func init() {
	Register("cauchy", cauchy)
	Register("exponential", exponential)
	Register("uniform", uniform)
}
