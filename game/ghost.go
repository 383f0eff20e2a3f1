package game

import (
	"errors"
	"fmt"
)

var ErrInvalidAttack = errors.New("attack probability must be within [0, 1]")

// Ghost is the motion policy of one hidden agent.
// Distribution returns the probability of each legal action of the ghost in state.
type Ghost interface {
	Index() int
	Distribution(state State) (Policy[Direction], error)
}

// RandomGhost moves uniformly at random among its legal actions.
type RandomGhost struct {
	index int
}

func NewRandomGhost(index int) RandomGhost {
	return RandomGhost{index: index}
}

func (g RandomGhost) Index() int {
	return g.index
}

func (g RandomGhost) Distribution(state State) (Policy[Direction], error) {
	p, err := state.GhostPosition(g.index)
	if err != nil {
		return nil, err
	}
	return UniformPolicy(state.LegalActions(p))
}

const DefaultAttack float32 = 0.8

// DirectionalGhost prefers the actions that bring it closest to the observer.
// Attack is the probability mass shared by those best actions; the rest is spread
// uniformly over every legal action.
type DirectionalGhost struct {
	index  int
	Attack float32
}

func NewDirectionalGhost(index int, attack float32) (DirectionalGhost, error) {
	if attack < 0 || attack > 1 {
		return DirectionalGhost{}, fmt.Errorf("%w: %f", ErrInvalidAttack, attack)
	}
	return DirectionalGhost{index: index, Attack: attack}, nil
}

func (g DirectionalGhost) Index() int {
	return g.index
}

func (g DirectionalGhost) Distribution(state State) (Policy[Direction], error) {
	p, err := state.GhostPosition(g.index)
	if err != nil {
		return nil, err
	}

	actions := state.LegalActions(p)
	observer := state.ObserverPosition()

	best := make([]Direction, 0, len(actions))
	bestDistance := -1
	for _, a := range actions {
		d := Manhattan(Successor(p, a), observer)
		switch {
		case bestDistance < 0 || d < bestDistance:
			bestDistance = d
			best = append(best[:0], a)
		case d == bestDistance:
			best = append(best, a)
		}
	}

	policy := Policy[Direction]{}
	rest := (1.0 - g.Attack) / float32(len(actions))
	for _, a := range actions {
		policy[a] = rest
	}
	for _, a := range best {
		policy[a] += g.Attack / float32(len(best))
	}
	return policy, nil
}
