package analysis

import (
	"github.com/sghctoma/sst/telemetry/internal/psst"
)

type TravelStatistics struct {
	Average        float64 `json:"avg"`
	Max            float64 `json:"max"`
	AveragePercent float64 `json:"avg_percent"`
	MaxPercent     float64 `json:"max_percent"`
	Bottomouts     int     `json:"bottomouts"`
}

type VelocityStatistics struct {
	AverageCompression float64 `json:"avg_compression"`
	MaxCompression     float64 `json:"max_compression"`
	AverageRebound     float64 `json:"avg_rebound"`
	MaxRebound         float64 `json:"max_rebound"`
}

func TravelStats(strokes psst.Strokes, maxTravel float64) (*TravelStatistics, error) {
	var sum float64
	var count int
	ts := &TravelStatistics{}
	for _, s := range strokes.All() {
		sum += s.Stat.SumTravel
		count += s.Stat.Count
		ts.Bottomouts += s.Stat.Bottomouts
		ts.Max = max(ts.Max, s.Stat.MaxTravel)
	}
	if count == 0 {
		return nil, noData("travel statistics")
	}
	ts.Average = sum / float64(count)
	if maxTravel > 0 {
		ts.AveragePercent = ts.Average / maxTravel * 100
		ts.MaxPercent = ts.Max / maxTravel * 100
	}
	return ts, nil
}

// VelocityStats needs at least one compression and one rebound. Rebound
// velocities are negative, so MaxRebound is the smallest value seen.
func VelocityStats(strokes psst.Strokes) (*VelocityStatistics, error) {
	vs := &VelocityStatistics{}

	var csum float64
	var ccount int
	for _, c := range strokes.Compressions {
		csum += c.Stat.SumVelocity
		ccount += c.Stat.Count
		vs.MaxCompression = max(vs.MaxCompression, c.Stat.MaxVelocity)
	}
	var rsum float64
	var rcount int
	for _, r := range strokes.Rebounds {
		rsum += r.Stat.SumVelocity
		rcount += r.Stat.Count
		vs.MaxRebound = min(vs.MaxRebound, r.Stat.MaxVelocity)
	}
	if ccount == 0 || rcount == 0 {
		return nil, noData("velocity statistics")
	}

	vs.AverageCompression = csum / float64(ccount)
	vs.AverageRebound = rsum / float64(rcount)
	return vs, nil
}
