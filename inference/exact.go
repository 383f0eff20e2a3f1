package inference

import (
	"github.com/sw965/busters/dist"
	"github.com/sw965/busters/game"
	"github.com/sw965/busters/sensor"
)

// ExactFilter maintains the exact belief over every position of one ghost with the
// forward algorithm.
type ExactFilter struct {
	tracker
	beliefs *dist.Distribution[game.Position]
}

var _ Module = (*ExactFilter)(nil)

func NewExactFilter(ghost game.Ghost, noise sensor.NoiseModel, opts ...Option) (*ExactFilter, error) {
	o, err := newOptions(1, opts)
	if err != nil {
		return nil, err
	}
	t, err := newTracker(ghost, noise, nil, o)
	if err != nil {
		return nil, err
	}
	return &ExactFilter{tracker: t}, nil
}

func (f *ExactFilter) Initialize(state game.State) error {
	if err := f.setPositions(state); err != nil {
		return err
	}
	return f.InitializeUniformly()
}

// InitializeUniformly spreads the belief evenly over the legal positions.
// The jail keeps weight 0 until the ghost may have been caught.
func (f *ExactFilter) InitializeUniformly() error {
	if len(f.legalPositions) == 0 {
		return ErrNotInitialized
	}
	f.beliefs = dist.Uniform(f.legalPositions)
	f.beliefs.Set(f.jail(), 0)
	return nil
}

func (f *ExactFilter) Observe(state game.State) error {
	if f.beliefs == nil {
		return ErrNotInitialized
	}
	r, ok := f.reading(state)
	if !ok {
		return nil
	}
	return f.Update(r, state.ObserverPosition())
}

// Update multiplies the belief by the likelihood of r and renormalizes.
// When every position is impossible the belief is left all zero.
func (f *ExactFilter) Update(r sensor.Reading, observer game.Position) error {
	if f.beliefs == nil {
		return ErrNotInitialized
	}
	jail := f.jail()
	for _, p := range f.allPositions {
		f.beliefs.Set(p, f.beliefs.Get(p)*ObservationProbability(f.noise, r, observer, p, jail))
	}
	f.beliefs.Normalize()
	return nil
}

// Predict replaces the belief by its convolution with the transition model.
func (f *ExactFilter) Predict(state game.State) error {
	if f.beliefs == nil {
		return ErrNotInitialized
	}

	jail := f.jail()
	next := dist.New[game.Position]()
	for _, p := range f.allPositions {
		next.Set(p, 0)
	}

	for _, p := range f.allPositions {
		b := f.beliefs.Get(p)
		if b == 0 {
			continue
		}
		td, err := TransitionDistribution(state, Single(f.index(), p), f.ghost, jail)
		if err != nil {
			return err
		}
		for q, w := range td.All() {
			next.Add(q, w*b)
		}
	}
	next.Normalize()
	f.beliefs = next
	return nil
}

// Belief returns a copy of the current belief.
func (f *ExactFilter) Belief() *dist.Distribution[game.Position] {
	if f.beliefs == nil {
		return dist.New[game.Position]()
	}
	return f.beliefs.Copy()
}
