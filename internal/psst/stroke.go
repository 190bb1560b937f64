package psst

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Span is the half-open sample range [Start, End) of a segment.
type Span struct {
	Start int
	End   int
}

func sign(v float64) int8 {
	if math.Abs(v) <= VELOCITY_ZERO_THRESHOLD {
		return 0
	} else if math.Signbit(v) {
		return -1
	} else {
		return 1
	}
}

// Segment splits velocity into runs of equal sign. Positive runs are
// compressions, negative runs are rebounds, and runs of (near) zero velocity
// are dropped. If travel is given, a run is kept only when the travel
// difference between its first and last sample is at least threshold; travel
// shorter than velocity limits the analysed range.
func Segment(velocity, travel []float64, threshold float64) (compressions, rebounds []Span) {
	n := len(velocity)
	if travel != nil {
		n = min(n, len(travel))
	}

	compressions = make([]Span, 0)
	rebounds = make([]Span, 0)
	for i := 0; i < n; {
		start_index := i
		start_sign := sign(velocity[i])
		for i++; i < n && sign(velocity[i]) == start_sign; i++ {
		}

		if start_sign == 0 {
			continue
		}
		if travel != nil && math.Abs(travel[i-1]-travel[start_index]) < threshold {
			continue
		}
		if start_sign > 0 {
			compressions = append(compressions, Span{start_index, i})
		} else {
			rebounds = append(rebounds, Span{start_index, i})
		}
	}

	return compressions, rebounds
}

// bottomouts counts the contiguous runs of samples within
// BOTTOMOUT_THRESHOLD of maxTravel.
func bottomouts(travel []float64, maxTravel float64) int {
	bo := 0
	in := false
	for _, t := range travel {
		if t > maxTravel-BOTTOMOUT_THRESHOLD {
			if !in {
				bo += 1
			}
			in = true
		} else {
			in = false
		}
	}
	return bo
}

func newStroke(span Span, compression bool, travel, velocity []float64, maxTravel float64) *Stroke {
	t := travel[span.Start:span.End]
	v := velocity[span.Start:span.End]

	// Maximum velocity for rebound strokes are actually minimum velocity.
	var mv float64
	if compression {
		mv = floats.Max(v)
	} else {
		mv = floats.Min(v)
	}

	return &Stroke{
		Start: span.Start,
		End:   span.End,
		Stat: StrokeStat{
			SumTravel:   floats.Sum(t),
			MaxTravel:   floats.Max(t),
			SumVelocity: floats.Sum(v),
			MaxVelocity: mv,
			Bottomouts:  bottomouts(t, maxTravel),
			Count:       span.End - span.Start,
		},
	}
}

// NewStrokes segments a suspension's signals and computes per-stroke
// statistics. The travel threshold is STROKE_THRESHOLD_RATIO of maxTravel.
func NewStrokes(velocity, travel []float64, maxTravel float64) Strokes {
	cs, rs := Segment(velocity, travel, maxTravel*STROKE_THRESHOLD_RATIO)
	strokes := Strokes{
		Compressions: make([]*Stroke, 0, len(cs)),
		Rebounds:     make([]*Stroke, 0, len(rs)),
	}
	for _, s := range cs {
		strokes.Compressions = append(strokes.Compressions, newStroke(s, true, travel, velocity, maxTravel))
	}
	for _, s := range rs {
		strokes.Rebounds = append(strokes.Rebounds, newStroke(s, false, travel, velocity, maxTravel))
	}
	return strokes
}

func (this *Strokes) digitize(dt, dv, dvFine []int) {
	for _, s := range this.All() {
		s.DigitizedTravel = dt[s.Start:s.End]
		s.DigitizedVelocity = dv[s.Start:s.End]
		s.FineDigitizedVelocity = dvFine[s.Start:s.End]
	}
}
