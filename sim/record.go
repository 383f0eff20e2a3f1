package sim

import (
	"gonum.org/v1/gonum/stat"
)

// Record is the score of one episode.
type Record struct {
	Ticks    int
	Captures int
	// Hits[i] counts the ticks on which the arg-max belief about ghost i+1 was its true position.
	Hits []int
	// Distances[i] sums the Manhattan error of that arg-max.
	Distances []int
}

// HitRate is the fraction of (tick, ghost) pairs located exactly.
func (r Record) HitRate() float64 {
	if r.Ticks == 0 || len(r.Hits) == 0 {
		return 0
	}
	total := 0
	for _, h := range r.Hits {
		total += h
	}
	return float64(total) / float64(r.Ticks*len(r.Hits))
}

func (r Record) MeanDistance() float64 {
	if r.Ticks == 0 || len(r.Distances) == 0 {
		return 0
	}
	total := 0
	for _, d := range r.Distances {
		total += d
	}
	return float64(total) / float64(r.Ticks*len(r.Distances))
}

type Summary struct {
	Episodes     int
	Ticks        int
	Captures     int
	HitRate      float64
	HitRateStd   float64
	MeanDistance float64
}

// Summarize averages the records, weighting every episode equally.
func Summarize(records []Record) Summary {
	s := Summary{Episodes: len(records)}
	if len(records) == 0 {
		return s
	}

	rates := make([]float64, len(records))
	distances := make([]float64, len(records))
	for i, r := range records {
		s.Ticks += r.Ticks
		s.Captures += r.Captures
		rates[i] = r.HitRate()
		distances[i] = r.MeanDistance()
	}

	if len(records) == 1 {
		s.HitRate = rates[0]
	} else {
		s.HitRate, s.HitRateStd = stat.MeanStdDev(rates, nil)
	}
	s.MeanDistance = stat.Mean(distances, nil)
	return s
}
