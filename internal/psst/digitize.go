package psst

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

func linspace(min, max float64, num int) []float64 {
	if num < 2 {
		return []float64{min}
	}
	return floats.Span(make([]float64, num), min, max)
}

// Digitize returns the bin index of every value. Bin i covers
// [bins[i], bins[i+1]); values outside the edges go to the first or last bin.
func Digitize(data, bins []float64) []int {
	inds := make([]int, len(data))
	last := len(bins) - 2
	if last < 0 {
		return inds
	}
	for k, v := range data {
		i := sort.SearchFloat64s(bins, v)
		// SearchFloat64s finds the first edge >= v, so unless v sits exactly on
		// an edge it is one past the bin we want.
		if i == len(bins) || v != bins[i] {
			i -= 1
		}
		inds[k] = max(0, min(i, last))
	}
	return inds
}

// DigitizeVelocity builds step-wide bins around v with 0 in the middle of a
// bin, and digitizes v into them.
func DigitizeVelocity(v []float64, step float64) (bins []float64, data []int) {
	if len(v) == 0 {
		return nil, nil
	}
	// Subtracting half bin ensures that 0 will be at the middle of one bin.
	mn := (math.Floor(floats.Min(v)/step) - 0.5) * step
	// Adding 1.5 bins ensures that all values will fit in bins, and that the
	// last bin fits the step boundary.
	mx := (math.Floor(floats.Max(v)/step) + 1.5) * step
	bins = linspace(mn, mx, int(math.Round((mx-mn)/step))+1)
	data = Digitize(v, bins)
	return bins, data
}
