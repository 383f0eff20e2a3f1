package sensor_test

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/busters/sensor"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestSonarValidate(t *testing.T) {
	tests := []struct {
		name    string
		rng     int
		wantErr bool
	}{
		{name: "正常_既定値", rng: sensor.DefaultSonarRange},
		{name: "正常_1", rng: 1},
		{name: "正常_上限", rng: sensor.MaxSonarRange},
		{name: "異常_上限超過", rng: sensor.MaxSonarRange + 2, wantErr: true},
		{name: "異常_127", rng: 127, wantErr: true},
		{name: "異常_偶数", rng: 4, wantErr: true},
		{name: "異常_0", rng: 0, wantErr: true},
		{name: "異常_負数", rng: -3, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := sensor.Sonar{Range: tc.rng}.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, sensor.ErrInvalidRange)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSonarProbabilitySumsToOne(t *testing.T) {
	s := sensor.NewSonar()
	for d := 0; d < 30; d++ {
		var total float64
		for r := 0; r < 50; r++ {
			total += s.Probability(sensor.Reading(r), d)
		}
		assert.True(t, scalar.EqualWithinAbs(1.0, total, 1e-12), "true distance %d: total %v", d, total)
		assert.Zero(t, s.Probability(sensor.NoReading, d))
	}
}

func TestSonarProbabilitySumsToOneAtMaxRange(t *testing.T) {
	s := sensor.Sonar{Range: sensor.MaxSonarRange}
	require.NoError(t, s.Validate())
	for _, d := range []int{0, 1, 15, 30, 45} {
		var total float64
		for r := 0; r <= d+sensor.MaxSonarRange; r++ {
			p := s.Probability(sensor.Reading(r), d)
			require.GreaterOrEqual(t, p, 0.0)
			total += p
		}
		assert.True(t, scalar.EqualWithinAbs(1.0, total, 1e-12), "true distance %d: total %v", d, total)
	}
	// 誤差0の重みは 2^30 / (2^30 + 2^31 - 2)
	assert.InDelta(t, 1.0/3.0, s.Probability(40, 40), 1e-9)
}

func TestSonarConcurrentCalls(t *testing.T) {
	s := sensor.Sonar{Range: 9}
	want := s.Probability(5, 5)

	var wg sync.WaitGroup
	got := make([]float64, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(i), 1))
			for j := 0; j < 1000; j++ {
				s.Sample(j%20, rng)
				got[i] = s.Probability(5, 5)
			}
		}(i)
	}
	wg.Wait()
	for _, p := range got {
		assert.Equal(t, want, p)
	}
	// 同じ範囲なら値でも結果は変わらない
	assert.Equal(t, want, sensor.Sonar{Range: 9}.Probability(5, 5))
}

func TestSonarPeakAtTrueDistance(t *testing.T) {
	s := sensor.NewSonar()
	// 誤差0の重みは 2^7 / 382
	assert.InDelta(t, 128.0/382.0, s.Probability(10, 10), 1e-12)
	assert.InDelta(t, 64.0/382.0, s.Probability(11, 10), 1e-12)
	assert.InDelta(t, 64.0/382.0, s.Probability(9, 10), 1e-12)
	assert.Zero(t, s.Probability(18, 10))
}

func TestSonarSampleMatchesProbability(t *testing.T) {
	s := sensor.NewSonar()
	rng := rand.New(rand.NewPCG(7, 8))
	n := 200000
	counts := map[sensor.Reading]int{}
	for i := 0; i < n; i++ {
		r := s.Sample(3, rng)
		require.GreaterOrEqual(t, int(r), 0)
		counts[r]++
	}
	for r, c := range counts {
		assert.InDelta(t, s.Probability(r, 3), float64(c)/float64(n), 0.01, "reading %v", r)
	}
}

func TestExact(t *testing.T) {
	e := sensor.Exact{}
	rng := rand.New(rand.NewPCG(1, 1))
	assert.Equal(t, 1.0, e.Probability(4, 4))
	assert.Equal(t, 0.0, e.Probability(3, 4))
	assert.Equal(t, 0.0, e.Probability(sensor.NoReading, 0))
	assert.Equal(t, sensor.Reading(5), e.Sample(5, rng))
}

func TestReadingString(t *testing.T) {
	assert.Equal(t, "none", sensor.NoReading.String())
	assert.Equal(t, "12", sensor.Reading(12).String())
}
