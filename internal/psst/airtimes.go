package psst

import (
	"gonum.org/v1/gonum/stat"
)

// Interval is the closed sample range [Start, End].
type Interval struct {
	Start int
	End   int
}

// Signal is one suspension's input to the airtime classifier. An empty
// Travel means the suspension is not present.
type Signal struct {
	Travel    []float64
	Velocity  []float64
	MaxTravel float64
}

func (this Signal) present() bool {
	return len(this.Travel) > 0 && this.MaxTravel > 0
}

// Topouts returns the intervals where travel stays below
// TOPOUT_THRESHOLD_RATIO of maxTravel for at least minDuration seconds.
func Topouts(travel []float64, maxTravel float64, rate uint16, minDuration float64) []Interval {
	threshold := maxTravel * TOPOUT_THRESHOLD_RATIO
	minLength := minDuration * float64(rate)

	intervals := make([]Interval, 0)
	add := func(s, e int) {
		if float64(e-s+1) >= minLength {
			intervals = append(intervals, Interval{s, e})
		}
	}

	start := -1
	for i, t := range travel {
		if t < threshold {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			add(start, i-1)
			start = -1
		}
	}
	if start >= 0 {
		add(start, len(travel)-1)
	}
	return intervals
}

func landing(s Signal, to Interval, window int) bool {
	after := to.End + 1
	if !s.present() || after+window > len(s.Velocity) {
		return false
	}
	return stat.Mean(s.Velocity[after:after+window], nil) > AIRTIME_VELOCITY_THRESHOLD
}

// Classify finds topouts and marks the ones followed by a landing impact.
// With both suspensions the topout mask is built from the mean of the
// normalized travels. Topouts at the very beginning or end of the recording
// are never airtimes, since there is no velocity context to judge them by.
func Classify(front, rear Signal, rate uint16) (topouts []Interval, mask []bool) {
	var travel []float64
	var maxTravel, minDuration float64
	switch {
	case front.present() && rear.present():
		n := min(len(front.Travel), len(rear.Travel))
		travel = make([]float64, n)
		for i := range travel {
			travel[i] = (front.Travel[i]/front.MaxTravel + rear.Travel[i]/rear.MaxTravel) / 2
		}
		maxTravel = 1
		minDuration = COMBINED_TOPOUT_DURATION
	case front.present():
		travel, maxTravel, minDuration = front.Travel, front.MaxTravel, SINGLE_TOPOUT_DURATION
	case rear.present():
		travel, maxTravel, minDuration = rear.Travel, rear.MaxTravel, SINGLE_TOPOUT_DURATION
	default:
		return []Interval{}, []bool{}
	}

	topouts = Topouts(travel, maxTravel, rate, minDuration)
	mask = make([]bool, len(topouts))
	window := max(1, int(AIRTIME_VELOCITY_WINDOW*float64(rate)))
	for i, to := range topouts {
		if to.Start < window || to.End+1+window > len(travel) {
			continue
		}
		mask[i] = landing(front, to, window) || landing(rear, to, window)
	}
	return topouts, mask
}

// Airtimes returns the topouts classified as time spent in the air.
func Airtimes(front, rear Signal, rate uint16) []Interval {
	topouts, mask := Classify(front, rear, rate)
	airtimes := make([]Interval, 0)
	for i, to := range topouts {
		if mask[i] {
			airtimes = append(airtimes, to)
		}
	}
	return airtimes
}

// Idlings returns the topouts not marked in mask.
func Idlings(topouts []Interval, mask []bool) []Interval {
	idlings := make([]Interval, 0)
	for i, to := range topouts {
		if i >= len(mask) || !mask[i] {
			idlings = append(idlings, to)
		}
	}
	return idlings
}

func (this *Telemetry) airtimes() {
	var front, rear Signal
	if this.Front.Present {
		front = Signal{this.Front.Travel, this.Front.Velocity, this.Linkage.MaxFrontTravel}
	}
	if this.Rear.Present {
		rear = Signal{this.Rear.Travel, this.Rear.Velocity, this.Linkage.MaxRearTravel}
	}

	this.Airtimes = make([]Airtime, 0)
	for _, at := range Airtimes(front, rear, this.SampleRate) {
		this.Airtimes = append(this.Airtimes, Airtime{
			Start: float64(at.Start) / float64(this.SampleRate),
			End:   float64(at.End) / float64(this.SampleRate),
		})
	}
}
