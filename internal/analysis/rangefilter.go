package analysis

import (
	"math"

	"github.com/sghctoma/sst/telemetry/internal/psst"
)

func filter(strokes []*psst.Stroke, start, end int) []*psst.Stroke {
	filtered := make([]*psst.Stroke, 0, len(strokes))
	for _, s := range strokes {
		if start <= s.Start && s.End <= end {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// FilterStrokes keeps the strokes that lie entirely within [start, end).
func FilterStrokes(strokes psst.Strokes, start, end int) psst.Strokes {
	return psst.Strokes{
		Compressions: filter(strokes.Compressions, start, end),
		Rebounds:     filter(strokes.Rebounds, start, end),
	}
}

func ValidateRange(start, end, count int) error {
	if start < 0 || end >= count || start >= end {
		return &RangeError{Start: start, End: end, Count: count}
	}
	return nil
}

// ResolveRange converts a time window in seconds to sample indices. Without
// both bounds, or with an invalid window, the whole recording is returned;
// the latter also returns a RangeError so that callers can report it.
func ResolveRange(startSec, endSec *float64, rate uint16, count int) (start, end int, err error) {
	if startSec == nil || endSec == nil {
		return 0, count, nil
	}
	start = int(math.Round(*startSec * float64(rate)))
	end = int(math.Round(*endSec * float64(rate)))
	if err := ValidateRange(start, end, count); err != nil {
		return 0, count, err
	}
	return start, end, nil
}
