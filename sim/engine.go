// Package sim runs ghost hunting episodes: it moves the observer and the ghosts, feeds the
// noisy readings to one inference module per ghost and scores their beliefs.
//
// Package sim はゴースト追跡のエピソードを実行し、各推論モジュールの信念を採点します。
package sim

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"github.com/sw965/busters/game"
	"github.com/sw965/busters/inference"
	"github.com/sw965/busters/sensor"
)

var (
	ErrNilLayout     = errors.New("layout must not be nil")
	ErrNilNoise      = errors.New("noise model must not be nil")
	ErrNilEngineFunc = errors.New("NewModules must not be nil")
	ErrNilSelectFunc = errors.New("GhostSelectFunc must not be nil")
	ErrEmptyGhosts   = errors.New("ghosts must not be empty")
	ErrGhostCount    = errors.New("number of ghosts does not match the layout")
	ErrGhostOrder    = errors.New("ghost i must have agent index i+1")
	ErrTicks         = errors.New("ticks must be positive")
	ErrModuleCount   = errors.New("one module per ghost is required")
	ErrEmptyRngs     = errors.New("rngs must not be empty")
	ErrEpisodes      = errors.New("number of episodes must be non-negative")
)

// NewModulesFunc builds one inference module per ghost for a fresh episode.
// Modules built for one episode must not be shared with another.
type NewModulesFunc func(ghosts []game.Ghost, rng *rand.Rand) ([]inference.Module, error)

func ExactModules(noise sensor.NoiseModel, opts ...inference.Option) NewModulesFunc {
	return func(ghosts []game.Ghost, _ *rand.Rand) ([]inference.Module, error) {
		modules := make([]inference.Module, len(ghosts))
		for i, g := range ghosts {
			f, err := inference.NewExactFilter(g, noise, opts...)
			if err != nil {
				return nil, err
			}
			modules[i] = f
		}
		return modules, nil
	}
}

func ParticleModules(noise sensor.NoiseModel, opts ...inference.Option) NewModulesFunc {
	return func(ghosts []game.Ghost, rng *rand.Rand) ([]inference.Module, error) {
		modules := make([]inference.Module, len(ghosts))
		for i, g := range ghosts {
			f, err := inference.NewParticleFilter(g, noise, rng, opts...)
			if err != nil {
				return nil, err
			}
			modules[i] = f
		}
		return modules, nil
	}
}

// MarginalModules shares one joint filter between the ghosts of an episode.
func MarginalModules(noise sensor.NoiseModel, opts ...inference.Option) NewModulesFunc {
	return func(ghosts []game.Ghost, rng *rand.Rand) ([]inference.Module, error) {
		session, err := inference.NewSession(noise, rng, opts...)
		if err != nil {
			return nil, err
		}
		modules := make([]inference.Module, len(ghosts))
		for i, g := range ghosts {
			a, err := session.Adapter(g)
			if err != nil {
				return nil, err
			}
			modules[i] = a
		}
		return modules, nil
	}
}

type Engine struct {
	Layout *game.Layout
	// Ghosts[i] moves ghost i+1. The same policies are handed to the inference modules.
	Ghosts []game.Ghost
	// GhostSelectFunc picks each ghost's action from its policy.
	GhostSelectFunc game.SelectFunc[game.Direction]
	Noise           sensor.NoiseModel
	NewModules      NewModulesFunc
	Ticks           int
	Logger          logrus.FieldLogger
}

func (e Engine) Validate() error {
	if e.Layout == nil {
		return ErrNilLayout
	}
	if e.Noise == nil {
		return ErrNilNoise
	}
	if e.NewModules == nil {
		return ErrNilEngineFunc
	}
	if e.GhostSelectFunc == nil {
		return ErrNilSelectFunc
	}
	if len(e.Ghosts) == 0 {
		return ErrEmptyGhosts
	}
	if len(e.Ghosts) != e.Layout.NumGhosts() {
		return fmt.Errorf("%w: %d ghosts, layout has %d", ErrGhostCount, len(e.Ghosts), e.Layout.NumGhosts())
	}
	for i, g := range e.Ghosts {
		if g == nil || g.Index() != i+1 {
			return fmt.Errorf("%w: position %d", ErrGhostOrder, i)
		}
	}
	if e.Ticks <= 0 {
		return fmt.Errorf("%w: %d", ErrTicks, e.Ticks)
	}
	return nil
}

func (e Engine) logger() logrus.FieldLogger {
	if e.Logger != nil {
		return e.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
