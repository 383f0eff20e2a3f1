package game_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/busters/game"
	"github.com/sw965/busters/sensor"
)

func newTinyState(t *testing.T) game.State {
	t.Helper()
	l, err := game.ParseLayout(tinyLayout)
	require.NoError(t, err)
	return game.NewState(l)
}

func TestStateWithDoesNotMutate(t *testing.T) {
	s := newTinyState(t)

	moved, err := s.WithGhostPosition(2, game.Position{X: 2, Y: 2})
	require.NoError(t, err)
	g2, err := s.GhostPosition(2)
	require.NoError(t, err)
	assert.Equal(t, game.Position{X: 3, Y: 2}, g2)
	g2, err = moved.GhostPosition(2)
	require.NoError(t, err)
	assert.Equal(t, game.Position{X: 2, Y: 2}, g2)

	all, err := s.WithGhostPositions([]game.Position{{X: 2, Y: 3}})
	require.NoError(t, err)
	assert.Equal(t, []game.Position{{X: 2, Y: 3}, {X: 3, Y: 2}}, all.GhostPositions())
	assert.Equal(t, []game.Position{{X: 1, Y: 3}, {X: 3, Y: 2}}, s.GhostPositions())

	withReadings := s.WithReadings([]sensor.Reading{3, sensor.NoReading})
	assert.Empty(t, s.NoisyDistances())
	assert.Equal(t, []sensor.Reading{3, sensor.NoReading}, withReadings.NoisyDistances())

	assert.Equal(t, 3, s.NumAgents())
	assert.Equal(t, 2, s.NumGhosts())
}

func TestStateGhostIndexErrors(t *testing.T) {
	s := newTinyState(t)
	_, err := s.GhostPosition(0)
	assert.ErrorIs(t, err, game.ErrGhostIndex)
	_, err = s.GhostPosition(3)
	assert.ErrorIs(t, err, game.ErrGhostIndex)
	_, err = s.WithGhostPosition(3, game.Position{})
	assert.ErrorIs(t, err, game.ErrGhostIndex)
	_, err = s.WithGhostPositions(make([]game.Position, 3))
	assert.ErrorIs(t, err, game.ErrGhostIndex)
}

func TestLegalActions(t *testing.T) {
	s := newTinyState(t)
	assert.Equal(t, []game.Direction{game.South, game.East}, s.LegalActions(game.Position{X: 1, Y: 3}))
	// 牢屋は壁の中なので停止のみ
	assert.Equal(t, []game.Direction{game.Stop}, s.LegalActions(game.JailPosition(1)))
}

func TestRandomGhost(t *testing.T) {
	s := newTinyState(t)
	g := game.NewRandomGhost(1)
	assert.Equal(t, 1, g.Index())

	policy, err := g.Distribution(s)
	require.NoError(t, err)
	assert.Equal(t, game.Policy[game.Direction]{game.South: 0.5, game.East: 0.5}, policy)

	_, err = game.NewRandomGhost(5).Distribution(s)
	assert.ErrorIs(t, err, game.ErrGhostIndex)
}

func TestDirectionalGhost(t *testing.T) {
	_, err := game.NewDirectionalGhost(1, 1.5)
	assert.ErrorIs(t, err, game.ErrInvalidAttack)

	s := newTinyState(t)
	g, err := game.NewDirectionalGhost(1, game.DefaultAttack)
	require.NoError(t, err)

	policy, err := g.Distribution(s)
	require.NoError(t, err)
	// 観測者は(3, 3)。東に進むと距離1、南に進むと距離3
	assert.InDelta(t, 0.1+0.8, policy[game.East], 1e-6)
	assert.InDelta(t, 0.1, policy[game.South], 1e-6)
	require.NoError(t, policy.ValidateForLegalMoves(s.LegalActions(game.Position{X: 1, Y: 3}), true))
}

func TestPolicyValidateForLegalMoves(t *testing.T) {
	moves := []game.Direction{game.North, game.South}
	tests := []struct {
		name    string
		policy  game.Policy[game.Direction]
		moves   []game.Direction
		wantErr error
	}{
		{name: "正常", policy: game.Policy[game.Direction]{game.North: 0.3, game.South: 0.7}, moves: moves},
		{name: "異常_合法手なし", policy: game.Policy[game.Direction]{}, moves: nil, wantErr: game.ErrEmptyLegalMoves},
		{name: "異常_合法手重複", policy: game.Policy[game.Direction]{game.North: 1}, moves: []game.Direction{game.North, game.North}, wantErr: game.ErrNotUniqueLegalMoves},
		{name: "異常_要素数不一致", policy: game.Policy[game.Direction]{game.North: 1}, moves: moves, wantErr: game.ErrPolicySizeMismatch},
		{name: "異常_合法手の欠落", policy: game.Policy[game.Direction]{game.North: 1, game.East: 1}, moves: moves, wantErr: game.ErrPolicyMissingLegalMove},
		{name: "異常_負数", policy: game.Policy[game.Direction]{game.North: -1, game.South: 1}, moves: moves, wantErr: game.ErrPolicyBadValue},
		{name: "異常_合計0", policy: game.Policy[game.Direction]{game.North: 0, game.South: 0}, moves: moves, wantErr: game.ErrPolicyZeroSum},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.ValidateForLegalMoves(tc.moves, true)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSelectFuncs(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	moves := []game.Direction{game.North, game.South, game.East}
	policy := game.Policy[game.Direction]{game.North: 0.2, game.South: 0.8, game.East: 0}

	got, err := game.MaxSelectFunc(policy, moves, rng)
	require.NoError(t, err)
	assert.Equal(t, game.South, got)

	counts := map[game.Direction]int{}
	for i := 0; i < 10000; i++ {
		m, err := game.WeightedRandomSelectFunc(policy, moves, rng)
		require.NoError(t, err)
		counts[m]++
	}
	assert.Zero(t, counts[game.East])
	assert.InDelta(t, 0.8, float64(counts[game.South])/10000, 0.03)

	_, err = game.MaxSelectFunc(policy, nil, rng)
	assert.ErrorIs(t, err, game.ErrEmptyLegalMoves)
}
