package game_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/busters/game"
)

const tinyLayout = `
%%%%%
%G P%
%  G%
%%%%%
%%%%%
`

func TestParseLayout(t *testing.T) {
	l, err := game.ParseLayout(tinyLayout)
	require.NoError(t, err)

	assert.Equal(t, 5, l.Width)
	assert.Equal(t, 5, l.Height)
	assert.Equal(t, game.Position{X: 3, Y: 3}, l.ObserverStart)
	assert.Equal(t, []game.Position{{X: 1, Y: 3}, {X: 3, Y: 2}}, l.GhostStarts)
	assert.Equal(t, 2, l.NumGhosts())

	assert.True(t, l.IsWall(game.Position{X: 0, Y: 0}))
	assert.True(t, l.IsWall(game.Position{X: -1, Y: 2}))
	assert.False(t, l.IsWall(game.Position{X: 2, Y: 2}))

	want := []game.Position{
		{X: 1, Y: 2}, {X: 1, Y: 3},
		{X: 2, Y: 2}, {X: 2, Y: 3},
		{X: 3, Y: 2}, {X: 3, Y: 3},
	}
	assert.Equal(t, want, l.LegalPositions())
}

func TestParseLayoutErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "異常_空", text: "\n\n"},
		{name: "異常_幅不一致", text: "%%%%%\n%P %\n%%%%%\n%%%%%\n"},
		{name: "異常_観測者なし", text: "%%%%\n%G %\n%%%%\n%%%%\n"},
		{name: "異常_観測者が複数", text: "%%%%\n%PP%\n%%%%\n%%%%\n"},
		{name: "異常_牢屋の行が開いている", text: "%%%%\n%PG%\n%  %\n%%%%\n"},
		{name: "異常_牢屋が盤外", text: "%%%\n%G%\n%G%\n%P%\n%%%\n%%%\n"},
		{name: "異常_低すぎる", text: "%P%\n%%%\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := game.ParseLayout(tc.text)
			assert.ErrorIs(t, err, game.ErrInvalidLayout)
		})
	}
}

func TestLegalNeighbors(t *testing.T) {
	l, err := game.ParseLayout(tinyLayout)
	require.NoError(t, err)

	got := l.LegalNeighbors(game.Position{X: 1, Y: 3})
	// North, South, East, West, Stop の順
	assert.Equal(t, []game.Position{{X: 1, Y: 2}, {X: 2, Y: 3}, {X: 1, Y: 3}}, got)
}

func TestLoadLayout(t *testing.T) {
	for _, name := range game.BuiltinLayouts() {
		t.Run(name, func(t *testing.T) {
			l, err := game.LoadLayout(name)
			require.NoError(t, err)
			assert.NotEmpty(t, l.GhostStarts)
		})
	}

	path := filepath.Join(t.TempDir(), "tiny.lay")
	require.NoError(t, os.WriteFile(path, []byte(tinyLayout), 0o644))
	l, err := game.LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, 2, l.NumGhosts())

	_, err = game.LoadLayout("no-such-layout")
	assert.ErrorIs(t, err, game.ErrLayoutNotFound)
}

func TestLayoutStringRoundTrip(t *testing.T) {
	l, err := game.LoadLayout("smallHunt")
	require.NoError(t, err)
	again, err := game.ParseLayout(l.String())
	require.NoError(t, err)
	assert.Equal(t, l.LegalPositions(), again.LegalPositions())
	assert.Equal(t, l.GhostStarts, again.GhostStarts)
	assert.Equal(t, l.ObserverStart, again.ObserverStart)
}

func TestGridHelpers(t *testing.T) {
	assert.Equal(t, 5, game.Manhattan(game.Position{X: 1, Y: 1}, game.Position{X: 4, Y: 3}))
	assert.Equal(t, game.Position{X: 1, Y: 1}, game.JailPosition(1))
	assert.Equal(t, game.Position{X: 5, Y: 1}, game.JailPosition(3))
	assert.Equal(t, game.Position{X: 2, Y: 4}, game.Successor(game.Position{X: 2, Y: 3}, game.North))
}
