package randx_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/busters/mathx/randx"
)

func TestNewRngs(t *testing.T) {
	rngs, err := randx.NewRngs(42, 3)
	require.NoError(t, err)
	require.Len(t, rngs, 3)
	assert.NotEqual(t, rngs[0].Uint64(), rngs[1].Uint64())

	again, err := randx.NewRngs(42, 1)
	require.NoError(t, err)
	first, err := randx.NewRngs(42, 1)
	require.NoError(t, err)
	assert.Equal(t, first[0].Uint64(), again[0].Uint64())

	_, err = randx.NewRngs(1, 0)
	assert.ErrorIs(t, err, randx.ErrNonPositiveN)
}

func TestChoice(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	_, err := randx.Choice([]int{}, rng)
	assert.ErrorIs(t, err, randx.ErrEmptySlice)

	got, err := randx.Choice([]string{"only"}, rng)
	require.NoError(t, err)
	assert.Equal(t, "only", got)
}

func TestIntByWeights(t *testing.T) {
	tests := []struct {
		name    string
		ws      []float32
		wantErr error
	}{
		{name: "異常_空", ws: nil, wantErr: randx.ErrEmptySlice},
		{name: "異常_負数", ws: []float32{1, -1}, wantErr: randx.ErrBadWeight},
		{name: "異常_合計0", ws: []float32{0, 0}, wantErr: randx.ErrZeroWeights},
	}
	rng := rand.New(rand.NewPCG(1, 2))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := randx.IntByWeights(tc.ws, rng)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	counts := make([]int, 3)
	n := 100000
	for i := 0; i < n; i++ {
		idx, err := randx.IntByWeights([]float32{1, 0, 3}, rng)
		require.NoError(t, err)
		counts[idx]++
	}
	assert.Zero(t, counts[1])
	assert.InDelta(t, 0.25, float64(counts[0])/float64(n), 0.01)
	assert.InDelta(t, 0.75, float64(counts[2])/float64(n), 0.01)
}
