// Package dist provides a weighted distribution over a finite set of discrete keys.
// Keys keep their first-insertion order, so iteration and sampling are reproducible
// for a seeded rng.
//
// Package dist は離散キー上の重み付き分布を提供します。
// キーは最初に挿入された順序を保持するため、シード付き乱数で再現可能です。
package dist

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrEmpty          = errors.New("distribution is empty")
	ErrZeroTotal      = errors.New("distribution total weight is zero")
	ErrInvalidWeight  = errors.New("weight must be non-negative and not NaN")
	ErrNegativeSample = errors.New("sample count must be non-negative")
)

// Distribution maps keys to non-negative weights.
// The zero value is not usable; construct one with New, Uniform or FromSamples.
type Distribution[K comparable] struct {
	keys    []K
	index   map[K]int
	weights []float64
}

func New[K comparable]() *Distribution[K] {
	return &Distribution[K]{index: map[K]int{}}
}

// Uniform returns a normalized distribution with equal weight on every distinct key.
func Uniform[K comparable](keys []K) *Distribution[K] {
	d := New[K]()
	for _, k := range keys {
		d.Set(k, 1.0)
	}
	d.Normalize()
	return d
}

// FromSamples weights every distinct sample by its occurrence count.
// The result is not normalized.
func FromSamples[K comparable](samples []K) *Distribution[K] {
	d := New[K]()
	for _, k := range samples {
		d.Add(k, 1.0)
	}
	return d
}

func validateWeight(w float64) {
	if w < 0 || math.IsNaN(w) {
		panic(fmt.Errorf("%w: %v", ErrInvalidWeight, w))
	}
}

// Get returns the weight of k, or 0 when k was never set.
// It does not insert k.
func (d *Distribution[K]) Get(k K) float64 {
	i, ok := d.index[k]
	if !ok {
		return 0
	}
	return d.weights[i]
}

// Set overwrites the weight of k. It panics on a negative or NaN weight.
func (d *Distribution[K]) Set(k K, w float64) {
	validateWeight(w)
	if i, ok := d.index[k]; ok {
		d.weights[i] = w
		return
	}
	d.index[k] = len(d.keys)
	d.keys = append(d.keys, k)
	d.weights = append(d.weights, w)
}

// Add increases the weight of k by w. It panics on a negative or NaN w.
func (d *Distribution[K]) Add(k K, w float64) {
	validateWeight(w)
	if i, ok := d.index[k]; ok {
		d.weights[i] += w
		return
	}
	d.Set(k, w)
}

func (d *Distribution[K]) Has(k K) bool {
	_, ok := d.index[k]
	return ok
}

func (d *Distribution[K]) Len() int {
	return len(d.keys)
}

// Keys returns a copy of the keys in insertion order.
func (d *Distribution[K]) Keys() []K {
	keys := make([]K, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// All iterates over (key, weight) pairs in insertion order.
func (d *Distribution[K]) All() iter.Seq2[K, float64] {
	return func(yield func(K, float64) bool) {
		for i, k := range d.keys {
			if !yield(k, d.weights[i]) {
				return
			}
		}
	}
}

func (d *Distribution[K]) Copy() *Distribution[K] {
	c := &Distribution[K]{
		keys:    make([]K, len(d.keys)),
		index:   make(map[K]int, len(d.index)),
		weights: make([]float64, len(d.weights)),
	}
	copy(c.keys, d.keys)
	copy(c.weights, d.weights)
	for k, i := range d.index {
		c.index[k] = i
	}
	return c
}

func (d *Distribution[K]) Total() float64 {
	if len(d.weights) == 0 {
		return 0
	}
	return floats.Sum(d.weights)
}

// Normalize rescales the weights so that they sum to 1.
// A distribution whose total is 0 (including the empty one) is left unchanged.
func (d *Distribution[K]) Normalize() {
	total := d.Total()
	if total == 0 {
		return
	}
	floats.Scale(1.0/total, d.weights)
}

// ArgMax returns the key with the greatest weight.
// Ties are broken in favour of the key inserted first.
func (d *Distribution[K]) ArgMax() (K, error) {
	if len(d.keys) == 0 {
		var zero K
		return zero, ErrEmpty
	}
	return d.keys[floats.MaxIdx(d.weights)], nil
}

// Sample draws one key with probability proportional to its weight.
// Keys are laid out as consecutive ranges [start, end) in insertion order and
// a single uniform draw selects the range containing it.
func (d *Distribution[K]) Sample(rng *rand.Rand) (K, error) {
	var zero K
	if len(d.keys) == 0 {
		return zero, fmt.Errorf("%w: %w", ErrZeroTotal, ErrEmpty)
	}

	cum := floats.CumSum(make([]float64, len(d.weights)), d.weights)
	// 合計値は累積和の末尾を使う。floats.Sumとは加算順序が異なる場合がある為。
	total := cum[len(cum)-1]
	if total == 0 {
		return zero, ErrZeroTotal
	}

	u := rng.Float64() * total
	i := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
	if i == len(cum) {
		// 丸め誤差で末尾を超えた場合は、重みを持つ最後のキーを返す
		i = len(cum) - 1
		for d.weights[i] == 0 {
			i--
		}
	}
	return d.keys[i], nil
}

// SampleN draws n independent keys with probability proportional to their weights.
func (d *Distribution[K]) SampleN(n int, rng *rand.Rand) ([]K, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeSample, n)
	}

	keys := make([]K, 0, len(d.keys))
	ws := make([]float64, 0, len(d.weights))
	for i, w := range d.weights {
		if w > 0 {
			keys = append(keys, d.keys[i])
			ws = append(ws, w)
		}
	}
	if len(ws) == 0 {
		return nil, ErrZeroTotal
	}

	c := distuv.NewCategorical(ws, rng)
	samples := make([]K, n)
	for i := range samples {
		samples[i] = keys[int(c.Rand())]
	}
	return samples, nil
}

func (d *Distribution[K]) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v: %g", k, d.weights[i])
	}
	b.WriteByte('}')
	return b.String()
}

// Marginal sums the weights of src into a new distribution keyed by project(j).
func Marginal[J, K comparable](src *Distribution[J], project func(J) K) *Distribution[K] {
	d := New[K]()
	for j, w := range src.All() {
		d.Add(project(j), w)
	}
	return d
}
