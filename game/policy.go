package game

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/sw965/busters/mathx/randx"
)

var (
	ErrEmptyLegalMoves     = errors.New("legalMoves error: no elements")
	ErrNotUniqueLegalMoves = errors.New("legalMoves error: duplicated elements")

	ErrPolicySizeMismatch     = errors.New("policy error: size must match legalMoves")
	ErrPolicyMissingLegalMove = errors.New("policy error: every legal move must be present")
	ErrPolicyBadValue         = errors.New("policy error: invalid value (negative/NaN/Inf)")
	ErrPolicyZeroSum          = errors.New("policy error: sum is zero")
)

// Policy is a probability (or unnormalized weight) per move.
type Policy[M comparable] map[M]float32

func isUnique[M comparable](moves []M) bool {
	seen := make(map[M]struct{}, len(moves))
	for _, m := range moves {
		if _, ok := seen[m]; ok {
			return false
		}
		seen[m] = struct{}{}
	}
	return true
}

func (p Policy[M]) ValidateForLegalMoves(legalMoves []M, checkUnique bool) error {
	if len(legalMoves) == 0 {
		return ErrEmptyLegalMoves
	}

	if checkUnique && !isUnique(legalMoves) {
		return ErrNotUniqueLegalMoves
	}

	if len(p) != len(legalMoves) {
		return fmt.Errorf("%w: policy size %d, legal moves %d", ErrPolicySizeMismatch, len(p), len(legalMoves))
	}

	var sum float32
	for _, m := range legalMoves {
		v, ok := p[m]
		if !ok {
			return fmt.Errorf("%w: %v", ErrPolicyMissingLegalMove, m)
		}

		if v < 0 || math32.IsNaN(v) || math32.IsInf(v, 0) {
			return fmt.Errorf("%w: %f for move %v", ErrPolicyBadValue, v, m)
		}
		sum += v
	}

	if sum == 0 {
		return ErrPolicyZeroSum
	}
	return nil
}

// SelectFunc picks one of legalMoves according to policy.
// legalMoves fixes the visiting order so that a seeded rng gives reproducible picks.
type SelectFunc[M comparable] func(Policy[M], []M, *rand.Rand) (M, error)

func MaxSelectFunc[M comparable](policy Policy[M], legalMoves []M, rng *rand.Rand) (M, error) {
	var zero M
	if len(legalMoves) == 0 {
		return zero, ErrEmptyLegalMoves
	}

	max := policy[legalMoves[0]]
	moves := make([]M, 0, len(legalMoves))
	moves = append(moves, legalMoves[0])

	for _, m := range legalMoves[1:] {
		v := policy[m]
		switch {
		case v > max:
			max = v
			moves = moves[:0]
			moves = append(moves, m)
		case v == max:
			moves = append(moves, m)
		}
	}
	return randx.Choice(moves, rng)
}

func WeightedRandomSelectFunc[M comparable](policy Policy[M], legalMoves []M, rng *rand.Rand) (M, error) {
	ws := make([]float32, len(legalMoves))
	for i, m := range legalMoves {
		ws[i] = policy[m]
	}

	idx, err := randx.IntByWeights(ws, rng)
	if err != nil {
		var zero M
		return zero, err
	}
	return legalMoves[idx], nil
}

// UniformPolicy spreads probability evenly over legalMoves.
func UniformPolicy[M comparable](legalMoves []M) (Policy[M], error) {
	n := len(legalMoves)
	if n == 0 {
		return nil, ErrEmptyLegalMoves
	}

	p := 1.0 / float32(n)
	policy := Policy[M]{}
	for _, m := range legalMoves {
		policy[m] = p
	}
	return policy, nil
}
