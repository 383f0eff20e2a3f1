package inference

import (
	"math/rand/v2"

	"github.com/sw965/busters/dist"
	"github.com/sw965/busters/game"
	"github.com/sw965/busters/sensor"
)

// Session owns the JointParticleFilter that the MarginalAdapters of one episode share.
// Create one per episode, or per simulated game running in parallel.
type Session struct {
	joint *JointParticleFilter
}

func NewSession(noise sensor.NoiseModel, rng *rand.Rand, opts ...Option) (*Session, error) {
	joint, err := NewJointParticleFilter(noise, rng, opts...)
	if err != nil {
		return nil, err
	}
	return &Session{joint: joint}, nil
}

func (s *Session) Joint() *JointParticleFilter {
	return s.joint
}

// Adapter returns the per-ghost view of the shared filter for ghost.
func (s *Session) Adapter(ghost game.Ghost) (*MarginalAdapter, error) {
	if ghost == nil {
		return nil, ErrNilGhost
	}
	return &MarginalAdapter{ghost: ghost, joint: s.joint}, nil
}

// MarginalAdapter exposes one ghost's marginal belief of a shared JointParticleFilter.
// Only the adapter of ghost 1 drives the filter; the others only register their ghost
// and read.
type MarginalAdapter struct {
	ghost game.Ghost
	joint *JointParticleFilter
}

var _ Module = (*MarginalAdapter)(nil)

func (a *MarginalAdapter) Index() int {
	return a.ghost.Index()
}

func (a *MarginalAdapter) drives() bool {
	return a.ghost.Index() == 1
}

// Initialize must be called on the adapters in ghost index order.
func (a *MarginalAdapter) Initialize(state game.State) error {
	if a.drives() {
		if err := a.joint.Initialize(state, state.LegalPositions()); err != nil {
			return err
		}
	}
	return a.joint.AddGhostAgent(a.ghost)
}

func (a *MarginalAdapter) Observe(state game.State) error {
	if !a.drives() {
		return nil
	}
	return a.joint.Observe(state)
}

func (a *MarginalAdapter) Predict(state game.State) error {
	if !a.drives() {
		return nil
	}
	return a.joint.Predict(state)
}

func (a *MarginalAdapter) Belief() *dist.Distribution[game.Position] {
	k := a.ghost.Index() - 1
	return dist.Marginal(a.joint.Belief(), func(t Tuple) game.Position {
		return t[k]
	})
}
