package inference

import (
	"math/rand/v2"
	"slices"

	"github.com/sw965/busters/dist"
	"github.com/sw965/busters/game"
	"github.com/sw965/busters/sensor"
)

// ParticleFilter approximates the belief over one ghost's position with a fixed number of
// sampled positions. The multiset of particles is the belief; no weights are kept between
// steps.
type ParticleFilter struct {
	tracker
	numParticles int
	particles    []game.Position
}

var _ Module = (*ParticleFilter)(nil)

func NewParticleFilter(ghost game.Ghost, noise sensor.NoiseModel, rng *rand.Rand, opts ...Option) (*ParticleFilter, error) {
	if rng == nil {
		return nil, ErrNilRand
	}
	o, err := newOptions(DefaultParticles, opts)
	if err != nil {
		return nil, err
	}
	t, err := newTracker(ghost, noise, rng, o)
	if err != nil {
		return nil, err
	}
	return &ParticleFilter{tracker: t, numParticles: o.particles}, nil
}

func (f *ParticleFilter) NumParticles() int {
	return f.numParticles
}

// Particles returns a copy of the current particles.
func (f *ParticleFilter) Particles() []game.Position {
	return slices.Clone(f.particles)
}

func (f *ParticleFilter) Initialize(state game.State) error {
	if err := f.setPositions(state); err != nil {
		return err
	}
	return f.InitializeUniformly()
}

// InitializeUniformly lays the particles evenly over the legal positions, in order.
// Counts per position differ by at most one; the first positions take the remainder.
func (f *ParticleFilter) InitializeUniformly() error {
	n := len(f.legalPositions)
	if n == 0 {
		return ErrNotInitialized
	}
	per := f.numParticles / n
	particles := make([]game.Position, 0, f.numParticles)
	for _, p := range f.legalPositions {
		for i := 0; i < per; i++ {
			particles = append(particles, p)
		}
	}
	for i := 0; i < f.numParticles-per*n; i++ {
		particles = append(particles, f.legalPositions[i])
	}
	f.particles = particles
	return nil
}

func (f *ParticleFilter) Observe(state game.State) error {
	if f.particles == nil {
		return ErrNotInitialized
	}
	r, ok := f.reading(state)
	if !ok {
		return nil
	}
	return f.Update(r, state.ObserverPosition())
}

// Update resamples the particles in proportion to the likelihood of r.
// If r is impossible for every particle, the filter restarts from the uniform prior.
func (f *ParticleFilter) Update(r sensor.Reading, observer game.Position) error {
	if f.particles == nil {
		return ErrNotInitialized
	}
	jail := f.jail()
	weights := dist.New[game.Position]()
	for p, count := range dist.FromSamples(f.particles).All() {
		weights.Set(p, ObservationProbability(f.noise, r, observer, p, jail)*count)
	}

	if weights.Total() == 0 {
		f.logger.WithField("reading", r).Debug("reading is impossible under every particle, reinitializing uniformly")
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

// Predict moves every particle by sampling from the transition model.
func (f *ParticleFilter) Predict(state game.State) error {
	if f.particles == nil {
		return ErrNotInitialized
	}

	jail := f.jail()
	// 同じ位置の粒子が多いので、遷移分布は位置毎に一度だけ計算する
	cache := map[game.Position]*dist.Distribution[game.Position]{}
	next := make([]game.Position, len(f.particles))
	for i, p := range f.particles {
		td, ok := cache[p]
		if !ok {
			var err error
			td, err = TransitionDistribution(state, Single(f.index(), p), f.ghost, jail)
			if err != nil {
				return err
			}
			cache[p] = td
		}

		q, err := td.Sample(f.rng)
		if err != nil {
			return err
		}
		next[i] = q
	}
	f.particles = next
	return nil
}

// Belief converts the particles into a normalized distribution by occurrence count.
func (f *ParticleFilter) Belief() *dist.Distribution[game.Position] {
	d := dist.FromSamples(f.particles)
	d.Normalize()
	return d
}
