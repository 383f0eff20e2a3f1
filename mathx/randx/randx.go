// Package randx collects small helpers around math/rand/v2 used by the filters and the simulator.
package randx

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
)

var (
	ErrEmptySlice   = errors.New("randx: empty slice")
	ErrBadWeight    = errors.New("randx: weight must be non-negative and finite")
	ErrZeroWeights  = errors.New("randx: weights sum to zero")
	ErrNonPositiveN = errors.New("randx: n must be positive")
)

// NewRngs returns n independent PCG generators derived from seed.
func NewRngs(seed uint64, n int) ([]*rand.Rand, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNonPositiveN, n)
	}
	rngs := make([]*rand.Rand, n)
	for i := range rngs {
		rngs[i] = rand.New(rand.NewPCG(seed, uint64(i)+1))
	}
	return rngs, nil
}

func Choice[T any](xs []T, rng *rand.Rand) (T, error) {
	if len(xs) == 0 {
		var zero T
		return zero, ErrEmptySlice
	}
	return xs[rng.IntN(len(xs))], nil
}

// IntByWeights returns index i with probability ws[i] / sum(ws).
func IntByWeights(ws []float32, rng *rand.Rand) (int, error) {
	if len(ws) == 0 {
		return 0, ErrEmptySlice
	}

	var sum float32
	for _, w := range ws {
		if w < 0 || math32.IsNaN(w) || math32.IsInf(w, 0) {
			return 0, fmt.Errorf("%w: %f", ErrBadWeight, w)
		}
		sum += w
	}
	if sum == 0 {
		return 0, ErrZeroWeights
	}

	r := rng.Float32() * sum
	var acc float32
	last := 0
	for i, w := range ws {
		if w == 0 {
			continue
		}
		acc += w
		last = i
		if r < acc {
			return i, nil
		}
	}
	// 丸め誤差
	return last, nil
}
