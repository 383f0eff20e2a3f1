// Package sensor models the noisy distance readings an observer receives about hidden agents.
package sensor

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
)

// Reading is a noisy Manhattan distance. NoReading is reported for a captured agent.
type Reading int

const NoReading Reading = -1

func (r Reading) String() string {
	if r == NoReading {
		return "none"
	}
	return fmt.Sprintf("%d", int(r))
}

const (
	DefaultSonarRange = 15
	// MaxSonarRange bounds the error to [-30, 30].
	MaxSonarRange = 61
)

var ErrInvalidRange = errors.New("sonar range must be a positive odd number no greater than 61")

// NoiseModel is the sensor curve: P(reading | true distance), and a way to draw readings from it.
type NoiseModel interface {
	Probability(r Reading, trueDistance int) float64
	Sample(trueDistance int, rng *rand.Rand) Reading
}

// Sonar adds a double-geometric error in [-m, m], m = (Range-1)/2, to the true distance.
// The error v has weight 2^(m-|v|), and readings are clipped at 0.
type Sonar struct {
	Range int
}

func NewSonar() Sonar {
	return Sonar{Range: DefaultSonarRange}
}

func (s Sonar) Validate() error {
	if s.Range <= 0 || s.Range%2 == 0 || s.Range > MaxSonarRange {
		return fmt.Errorf("%w: %d", ErrInvalidRange, s.Range)
	}
	return nil
}

// noiseTable holds P(v) for the error values v = -m..m at index v+m.
type noiseTable struct {
	spread int
	probs  []float64
}

// noiseTables caches one noiseTable per Range.
var noiseTables sync.Map

func newNoiseTable(rangeSize int) *noiseTable {
	m := (rangeSize - 1) / 2
	denom := math.Ldexp(1, m) + math.Ldexp(1, m+1) - 2

	probs := make([]float64, max(rangeSize, 0))
	for i := range probs {
		probs[i] = math.Ldexp(1, m-abs(i-m)) / denom
	}
	return &noiseTable{spread: m, probs: probs}
}

func (s Sonar) noise() *noiseTable {
	if t, ok := noiseTables.Load(s.Range); ok {
		return t.(*noiseTable)
	}
	t, _ := noiseTables.LoadOrStore(s.Range, newNoiseTable(s.Range))
	return t.(*noiseTable)
}

// Probability returns the likelihood of observing r when the true distance is trueDistance.
// It is the law Sample draws from, so it sums to 1 over all readings.
func (s Sonar) Probability(r Reading, trueDistance int) float64 {
	if r < 0 {
		return 0
	}
	t := s.noise()
	if r > 0 {
		i := int(r) - trueDistance + t.spread
		if i < 0 || i >= len(t.probs) {
			return 0
		}
		return t.probs[i]
	}

	// 0 は距離が負になる誤差をすべて受け持つ
	var p float64
	for i, q := range t.probs {
		if trueDistance+i-t.spread <= 0 {
			p += q
		}
	}
	return p
}

func (s Sonar) Sample(trueDistance int, rng *rand.Rand) Reading {
	t := s.noise()
	u := rng.Float64()
	var acc float64
	v := t.spread
	for i, p := range t.probs {
		acc += p
		if u < acc {
			v = i - t.spread
			break
		}
	}
	return Reading(max(0, trueDistance+v))
}

// Exact is a noiseless sensor.
type Exact struct{}

func (Exact) Probability(r Reading, trueDistance int) float64 {
	if int(r) == trueDistance {
		return 1.0
	}
	return 0.0
}

func (Exact) Sample(trueDistance int, _ *rand.Rand) Reading {
	return Reading(trueDistance)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
