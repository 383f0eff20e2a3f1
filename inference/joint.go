package inference

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/sw965/busters/dist"
	"github.com/sw965/busters/game"
	"github.com/sw965/busters/sensor"
	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// MaxGhosts bounds the number of ghosts a JointParticleFilter can track.
const MaxGhosts = 8

// Tuple holds one position per ghost; ghost k+1 is at index k. Slots past the number
// of tracked ghosts stay zero, so two tuples of the same filter compare by value.
type Tuple [MaxGhosts]game.Position

func NewTuple(ps []game.Position) (Tuple, error) {
	var t Tuple
	if len(ps) > MaxGhosts {
		return t, fmt.Errorf("%w: %d > %d", ErrTooManyGhosts, len(ps), MaxGhosts)
	}
	copy(t[:], ps)
	return t, nil
}

// Positions returns the first n coordinates.
func (t Tuple) Positions(n int) []game.Position {
	return slices.Clone(t[:n])
}

// JointParticleFilter samples the positions of all ghosts at once, so that evidence about
// one ghost can shift the belief about another.
type JointParticleFilter struct {
	noise  sensor.NoiseModel
	rng    *rand.Rand
	opts   options
	ghosts []game.Ghost

	numParticles   int
	numGhosts      int
	legalPositions []game.Position
	particles      []Tuple
}

func NewJointParticleFilter(noise sensor.NoiseModel, rng *rand.Rand, opts ...Option) (*JointParticleFilter, error) {
	if noise == nil {
		return nil, ErrNilNoise
	}
	if rng == nil {
		return nil, ErrNilRand
	}
	o, err := newOptions(DefaultJointParticles, opts)
	if err != nil {
		return nil, err
	}
	return &JointParticleFilter{
		noise:        noise,
		rng:          rng,
		opts:         o,
		numParticles: o.particles,
	}, nil
}

func (f *JointParticleFilter) NumParticles() int {
	return f.numParticles
}

func (f *JointParticleFilter) NumGhosts() int {
	return f.numGhosts
}

func (f *JointParticleFilter) Particles() []Tuple {
	return slices.Clone(f.particles)
}

// JailPosition is the jail of the ghost at 0-based coordinate k.
func (f *JointParticleFilter) JailPosition(k int) game.Position {
	return game.JailPosition(k + 1)
}

// Initialize forgets the registered ghosts, stores the board and restarts from the
// uniform prior over joint positions.
func (f *JointParticleFilter) Initialize(state game.State, legalPositions []game.Position) error {
	n := state.NumAgents() - 1
	if n < 1 {
		return fmt.Errorf("%w: the state has no ghosts", ErrAgentsMissing)
	}
	if n > MaxGhosts {
		return fmt.Errorf("%w: %d > %d", ErrTooManyGhosts, n, MaxGhosts)
	}
	if len(legalPositions) == 0 {
		return ErrNoLegalPositions
	}

	f.numGhosts = n
	f.ghosts = f.ghosts[:0]
	f.legalPositions = slices.Clone(legalPositions)
	return f.InitializeUniformly()
}

// InitializeUniformly fills the particles with joint positions taken from a shuffled
// enumeration of every ordered tuple of legal positions, cycling through it when there
// are more particles than tuples.
func (f *JointParticleFilter) InitializeUniformly() error {
	l := len(f.legalPositions)
	if l == 0 || f.numGhosts == 0 {
		return ErrNotInitialized
	}
	dims := make([]int, f.numGhosts)
	card := 1
	for i := range dims {
		dims[i] = l
		if card > math.MaxInt/l {
			return fmt.Errorf("%w: %d^%d tuples", ErrTooManyTuples, l, f.numGhosts)
		}
		card *= l
	}

	idxs := make([]int, f.numParticles)
	if f.numParticles <= card {
		// 全列挙をシャッフルして先頭から取るのと同じ分布
		sampleuv.WithoutReplacement(idxs, card, f.rng)
	} else {
		perm := f.rng.Perm(card)
		for i := range idxs {
			idxs[i] = perm[i%card]
		}
	}

	sub := make([]int, f.numGhosts)
	particles := make([]Tuple, f.numParticles)
	for i, idx := range idxs {
		combin.SubFor(sub, idx, dims)
		for k, j := range sub {
			particles[i][k] = f.legalPositions[j]
		}
	}
	f.particles = particles
	return nil
}

// AddGhostAgent registers the motion policy of the next ghost. Ghosts must be added in
// agent index order, once per episode.
func (f *JointParticleFilter) AddGhostAgent(ghost game.Ghost) error {
	if ghost == nil {
		return ErrNilGhost
	}
	want := len(f.ghosts) + 1
	if ghost.Index() != want || want > f.numGhosts {
		return fmt.Errorf("%w: got ghost %d, want %d of %d", ErrAgentOrder, ghost.Index(), want, f.numGhosts)
	}
	f.ghosts = append(f.ghosts, ghost)
	return nil
}

func (f *JointParticleFilter) Observe(state game.State) error {
	if f.particles == nil {
		return ErrNotInitialized
	}
	readings := state.NoisyDistances()
	if len(readings) < f.numGhosts {
		f.opts.logger.WithField("readings", len(readings)).Debug("missing readings this tick, skipping update")
		return nil
	}
	return f.Update(readings, state.ObserverPosition())
}

// Update resamples the particles in proportion to the product of every ghost's
// likelihood. If the readings are impossible for every particle, the filter restarts
// from the uniform prior.
func (f *JointParticleFilter) Update(readings []sensor.Reading, observer game.Position) error {
	if f.particles == nil {
		return ErrNotInitialized
	}
	if len(readings) < f.numGhosts {
		return fmt.Errorf("%w: got %d for %d ghosts", ErrReadings, len(readings), f.numGhosts)
	}
	weights := dist.New[Tuple]()
	for t, count := range dist.FromSamples(f.particles).All() {
		w := count
		for k := 0; k < f.numGhosts; k++ {
			w *= ObservationProbability(f.noise, readings[k], observer, t[k], f.JailPosition(k))
		}
		weights.Set(t, w)
	}

	if weights.Total() == 0 {
		f.opts.logger.WithField("readings", readings).Debug("readings are impossible under every particle, reinitializing uniformly")
		return f.InitializeUniformly()
	}

	weights.Normalize()
	particles, err := weights.SampleN(f.numParticles, f.rng)
	if err != nil {
		return err
	}
	f.particles = particles
	return nil
}

type transitionKey struct {
	particle Tuple
	agent    int
}

// Predict moves every ghost of every particle with its own motion policy. Each ghost's
// move is conditioned on the previous joint position only, not on the other ghosts'
// new positions.
func (f *JointParticleFilter) Predict(state game.State) error {
	if f.particles == nil {
		return ErrNotInitialized
	}
	if len(f.ghosts) != f.numGhosts {
		return fmt.Errorf("%w: %d of %d", ErrAgentsMissing, len(f.ghosts), f.numGhosts)
	}

	memo := map[transitionKey]*dist.Distribution[game.Position]{}
	next := make([]Tuple, len(f.particles))
	for i, old := range f.particles {
		prev := old.Positions(f.numGhosts)
		moved := old
		for k := 0; k < f.numGhosts; k++ {
			key := transitionKey{particle: old, agent: k}
			td, ok := memo[key]
			if !ok {
				var err error
				td, err = TransitionDistribution(state, Joint(prev), f.ghosts[k], f.JailPosition(k))
				if err != nil {
					return err
				}
				memo[key] = td
			}

			p, err := td.Sample(f.rng)
			if err != nil {
				return err
			}
			moved[k] = p
		}
		next[i] = moved
	}
	f.particles = next
	return nil
}

// Belief converts the particles into a normalized joint distribution.
func (f *JointParticleFilter) Belief() *dist.Distribution[Tuple] {
	d := dist.FromSamples(f.particles)
	d.Normalize()
	return d
}
