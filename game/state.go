package game

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sw965/busters/sensor"
)

var ErrGhostIndex = errors.New("ghost index out of range")

// State is a snapshot of the board: where the observer and the ghosts stand and which
// noisy readings the observer received. It is a value; the With methods return
// modified copies and never touch the receiver.
//
// Stateは盤面のスナップショットです。With系のメソッドはコピーを返し、元の値を変更しません。
type State struct {
	layout   *Layout
	observer Position
	// ghosts[i] はエージェント番号 i+1 のゴーストの位置
	ghosts   []Position
	readings []sensor.Reading
}

// NewState places the observer and the ghosts on their layout starts.
func NewState(l *Layout) State {
	return State{
		layout:   l,
		observer: l.ObserverStart,
		ghosts:   slices.Clone(l.GhostStarts),
	}
}

func (s State) Layout() *Layout {
	return s.layout
}

func (s State) ObserverPosition() Position {
	return s.observer
}

// NumAgents counts the observer and every ghost.
func (s State) NumAgents() int {
	return 1 + len(s.ghosts)
}

func (s State) NumGhosts() int {
	return len(s.ghosts)
}

// GhostPosition returns the position of the ghost with 1-based agent index.
func (s State) GhostPosition(index int) (Position, error) {
	if index < 1 || index > len(s.ghosts) {
		return Position{}, fmt.Errorf("%w: %d (ghosts: %d)", ErrGhostIndex, index, len(s.ghosts))
	}
	return s.ghosts[index-1], nil
}

func (s State) GhostPositions() []Position {
	return slices.Clone(s.ghosts)
}

func (s State) LegalPositions() []Position {
	return s.layout.LegalPositions()
}

// NoisyDistances returns one reading per ghost, in agent index order.
// It may be shorter than NumGhosts when some readings are missing.
func (s State) NoisyDistances() []sensor.Reading {
	return slices.Clone(s.readings)
}

func (s State) WithObserverPosition(p Position) State {
	s.observer = p
	return s
}

// WithGhostPosition returns a copy in which the ghost with 1-based index stands at p.
func (s State) WithGhostPosition(index int, p Position) (State, error) {
	if index < 1 || index > len(s.ghosts) {
		return State{}, fmt.Errorf("%w: %d (ghosts: %d)", ErrGhostIndex, index, len(s.ghosts))
	}
	ghosts := slices.Clone(s.ghosts)
	ghosts[index-1] = p
	s.ghosts = ghosts
	return s, nil
}

// WithGhostPositions returns a copy in which ghost i+1 stands at ps[i].
func (s State) WithGhostPositions(ps []Position) (State, error) {
	if len(ps) > len(s.ghosts) {
		return State{}, fmt.Errorf("%w: %d positions for %d ghosts", ErrGhostIndex, len(ps), len(s.ghosts))
	}
	ghosts := slices.Clone(s.ghosts)
	copy(ghosts, ps)
	s.ghosts = ghosts
	return s, nil
}

func (s State) WithReadings(rs []sensor.Reading) State {
	s.readings = slices.Clone(rs)
	return s
}

// LegalActions returns the moves a ghost standing at p may take: every direction into
// an open cell, or only Stop when it is boxed in (as it is in its jail).
func (s State) LegalActions(p Position) []Direction {
	actions := make([]Direction, 0, len(Directions))
	for _, d := range Directions {
		if d == Stop {
			continue
		}
		if !s.layout.IsWall(Successor(p, d)) {
			actions = append(actions, d)
		}
	}
	if len(actions) == 0 {
		actions = append(actions, Stop)
	}
	return actions
}
