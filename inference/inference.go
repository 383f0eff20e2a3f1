// Package inference tracks the hidden positions of ghosts from noisy distance readings.
//
// Three filters are provided: ExactFilter runs the forward algorithm over every
// position, ParticleFilter approximates the same belief with sampled positions, and
// JointParticleFilter samples the positions of all ghosts at once. MarginalAdapter
// exposes one ghost's marginal of a JointParticleFilter shared through a Session.
//
// Package inference はノイズを含む距離観測からゴーストの隠れた位置を推定します。
package inference

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/sw965/busters/dist"
	"github.com/sw965/busters/game"
	"github.com/sw965/busters/sensor"
)

var (
	ErrNilGhost         = errors.New("ghost must not be nil")
	ErrNilNoise         = errors.New("noise model must not be nil")
	ErrNilRand          = errors.New("rand must not be nil")
	ErrParticles        = errors.New("number of particles must be positive")
	ErrNoLegalPositions = errors.New("no legal positions")
	ErrNotInitialized   = errors.New("filter is not initialized")
	ErrReadings         = errors.New("one reading per ghost is required")
	ErrAgentOrder       = errors.New("ghost agents must be registered in index order")
	ErrAgentsMissing    = errors.New("not every ghost agent is registered")
	ErrTooManyGhosts    = errors.New("too many ghosts")
	ErrTooManyTuples    = errors.New("joint position space is too large")
)

// Module is the per-ghost interface the scheduler drives once per tick.
type Module interface {
	Initialize(state game.State) error
	Observe(state game.State) error
	Predict(state game.State) error
	Belief() *dist.Distribution[game.Position]
}

const (
	DefaultParticles      = 300
	DefaultJointParticles = 600
)

type options struct {
	logger    logrus.FieldLogger
	particles int
}

type Option func(*options)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithParticles(n int) Option {
	return func(o *options) {
		o.particles = n
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newOptions(particles int, opts []Option) (options, error) {
	o := options{logger: discardLogger(), particles: particles}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = discardLogger()
	}
	if o.particles <= 0 {
		return o, fmt.Errorf("%w: %d", ErrParticles, o.particles)
	}
	return o, nil
}

// ObservationProbability returns P(reading | observer, hidden) for a ghost whose jail is jail.
// A jailed ghost reports NoReading with certainty, and a free ghost never does.
func ObservationProbability(noise sensor.NoiseModel, reading sensor.Reading, observer, hidden, jail game.Position) float64 {
	if hidden == jail {
		if reading == sensor.NoReading {
			return 1.0
		}
		return 0.0
	}
	if reading == sensor.NoReading {
		return 0.0
	}
	return noise.Probability(reading, game.Manhattan(observer, hidden))
}

// Placement decides where the hidden ghosts stand in the hypothetical state handed to a
// motion policy: either one ghost is moved, or the whole joint position vector is set.
type Placement struct {
	joint     bool
	index     int
	position  game.Position
	positions []game.Position
}

// Single places only the ghost with 1-based index at p.
func Single(index int, p game.Position) Placement {
	return Placement{index: index, position: p}
}

// Joint places ghost i+1 at ps[i] for every i.
func Joint(ps []game.Position) Placement {
	return Placement{joint: true, positions: ps}
}

func (p Placement) apply(state game.State) (game.State, error) {
	if p.joint {
		return state.WithGhostPositions(p.positions)
	}
	return state.WithGhostPosition(p.index, p.position)
}

// TransitionDistribution returns the distribution of the next position of ghost, once
// placement has been applied to state. The observer may catch the ghost on its next move:
// when the ghost stands on a cell the observer can reach, 1/|reachable| of the mass goes
// to jail first, and every action ending on a reachable cell loses a further share to jail.
// A ghost on the observer's cell or in its jail ends in jail with certainty.
func TransitionDistribution(state game.State, placement Placement, ghost game.Ghost, jail game.Position) (*dist.Distribution[game.Position], error) {
	hyp, err := placement.apply(state)
	if err != nil {
		return nil, err
	}
	pos, err := hyp.GhostPosition(ghost.Index())
	if err != nil {
		return nil, err
	}

	observer := hyp.ObserverPosition()
	d := dist.New[game.Position]()
	if pos == observer || pos == jail {
		d.Set(jail, 1.0)
		return d, nil
	}

	reachable := hyp.Layout().LegalNeighbors(observer)
	mult := 0.0
	if slices.Contains(reachable, pos) {
		mult = 1.0 / float64(len(reachable))
		d.Add(jail, mult)
	}

	policy, err := ghost.Distribution(hyp)
	if err != nil {
		return nil, err
	}
	if err := policy.ValidateForLegalMoves(hyp.LegalActions(pos), false); err != nil {
		return nil, fmt.Errorf("ghost %d at %v: %w", ghost.Index(), pos, err)
	}

	n := float64(len(policy))
	for _, a := range game.Directions {
		prob, ok := policy[a]
		if !ok {
			continue
		}
		p := float64(prob)
		succ := game.Successor(pos, a)
		if slices.Contains(reachable, succ) {
			d.Add(jail, p*(1.0/n)*(1.0-mult))
			d.Add(succ, p*((n-1.0)/n)*(1.0-mult))
		} else {
			d.Add(succ, p*(1.0-mult))
		}
	}
	return d, nil
}

// tracker holds what every single-ghost filter shares.
type tracker struct {
	ghost  game.Ghost
	noise  sensor.NoiseModel
	rng    *rand.Rand
	logger logrus.FieldLogger

	legalPositions []game.Position
	// allPositions は legalPositions に牢屋を加えたもの
	allPositions []game.Position
	obs          sensor.Reading
}

func newTracker(ghost game.Ghost, noise sensor.NoiseModel, rng *rand.Rand, o options) (tracker, error) {
	if ghost == nil {
		return tracker{}, ErrNilGhost
	}
	if noise == nil {
		return tracker{}, ErrNilNoise
	}
	return tracker{
		ghost:  ghost,
		noise:  noise,
		rng:    rng,
		logger: o.logger.WithField("agent", ghost.Index()),
		obs:    sensor.NoReading,
	}, nil
}

func (t *tracker) index() int {
	return t.ghost.Index()
}

func (t *tracker) jail() game.Position {
	return game.JailPosition(t.ghost.Index())
}

func (t *tracker) setPositions(state game.State) error {
	legal := state.LegalPositions()
	if len(legal) == 0 {
		return ErrNoLegalPositions
	}
	t.legalPositions = legal
	t.allPositions = append(slices.Clone(legal), t.jail())
	return nil
}

// reading returns this ghost's reading, or false when the state carries none for it.
func (t *tracker) reading(state game.State) (sensor.Reading, bool) {
	readings := state.NoisyDistances()
	if len(readings) < t.index() {
		t.logger.Debug("no reading this tick, skipping update")
		return sensor.NoReading, false
	}
	r := readings[t.index()-1]
	t.obs = r
	return r, true
}

// LastObservation is the most recent reading used for an update.
func (t *tracker) LastObservation() sensor.Reading {
	return t.obs
}
