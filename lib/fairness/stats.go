package fairness

import (
	"math"
	"slices"
)

// Stats describes how meals are distributed over the agents.
type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
	// Quality is 1 when every agent ate equally often and drops towards 0 as
	// the coefficient of variation grows and the least served agent falls
	// behind the most served one.
	Quality float64 `json:"quality"`
}

// MealStats computes the distribution of the given meal counts. An empty
// table has zero Stats.
func MealStats(meals []uint64) Stats {
	if len(meals) == 0 {
		return Stats{}
	}

	least, most := slices.Min(meals), slices.Max(meals)
	s := Stats{
		Min:         float64(least),
		Max:         float64(most),
		MinMaxRatio: 1,
	}

	var total uint64
	for _, m := range meals {
		total += m
	}
	s.Mean = float64(total) / float64(len(meals))

	var variance float64
	for _, m := range meals {
		d := float64(m) - s.Mean
		variance += d * d
	}
	s.StdDeviation = math.Sqrt(variance / float64(len(meals)))

	// nobody ate yet counts as even
	if most > 0 {
		s.MinMaxRatio = s.Min / s.Max
	}
	cv := 0.0
	if s.Mean > 0 {
		cv = math.Min(1, s.StdDeviation/s.Mean)
	}
	s.Quality = (1-cv)/2 + s.MinMaxRatio/2

	return s
}

// Spread returns the difference between the most and the least served agent.
func (s Stats) Spread() float64 {
	return s.Max - s.Min
}
