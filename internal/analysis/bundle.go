package analysis

import (
	"github.com/sghctoma/sst/telemetry/internal/psst"
)

type SuspensionAnalysis struct {
	Spectrum          *Spectrum             `json:"fft"`
	TravelHistogram   *Histogram            `json:"thist"`
	VelocityHistogram *VelocityDistribution `json:"vhist"`
	Bands             *Bands                `json:"vbands"`
	TravelStats       *TravelStatistics     `json:"tstats"`
	VelocityStats     *VelocityStatistics   `json:"vstats"`
}

type BalanceAnalysis struct {
	Compression *Correlation `json:"compression"`
	Rebound     *Correlation `json:"rebound"`
}

// Bundle is everything the dashboard shows for a recording or a part of it.
// Parts that could not be computed for lack of strokes are nil.
type Bundle struct {
	Start   int                 `json:"start"`
	End     int                 `json:"end"`
	Front   *SuspensionAnalysis `json:"front"`
	Rear    *SuspensionAnalysis `json:"rear"`
	Balance *BalanceAnalysis    `json:"balance,omitempty"`
}

func SampleCount(t *psst.Telemetry) int {
	if t.Front.Present {
		return len(t.Front.Travel)
	}
	return len(t.Rear.Travel)
}

func (this *Analyzer) suspension(s *psst.Suspension, strokes psst.Strokes, maxTravel, period, hst float64) *SuspensionAnalysis {
	sa := &SuspensionAnalysis{}
	sa.Spectrum, _ = this.StrokeSpectrum(strokes, s.Travel, period)
	sa.TravelHistogram, _ = TravelHistogram(strokes, s.TravelBins)
	sa.VelocityHistogram, _ = VelocityHistogram(strokes, s.Velocity, s.TravelBins, s.VelocityBins, s.FineVelocityBins, hst)
	sa.Bands, _ = BandStats(strokes, s.Velocity, hst)
	sa.TravelStats, _ = TravelStats(strokes, maxTravel)
	sa.VelocityStats, _ = VelocityStats(strokes)
	return sa
}

// Analyze computes the bundle for the strokes within [start, end). Use
// ResolveRange to get the bounds from a time window.
func (this *Analyzer) Analyze(t *psst.Telemetry, start, end int, hst float64) *Bundle {
	b := &Bundle{Start: start, End: end}
	period := 0.0
	if t.SampleRate != 0 {
		period = 1.0 / float64(t.SampleRate)
	}

	var fs, rs psst.Strokes
	if t.Front.Present {
		fs = FilterStrokes(t.Front.Strokes, start, end)
		b.Front = this.suspension(&t.Front, fs, t.Linkage.MaxFrontTravel, period, hst)
	}
	if t.Rear.Present {
		rs = FilterStrokes(t.Rear.Strokes, start, end)
		b.Rear = this.suspension(&t.Rear, rs, t.Linkage.MaxRearTravel, period, hst)
	}
	if t.Front.Present && t.Rear.Present {
		b.Balance = &BalanceAnalysis{}
		b.Balance.Compression, _ = Balance(fs.Compressions, rs.Compressions,
			t.Linkage.MaxFrontTravel, t.Linkage.MaxRearTravel)
		b.Balance.Rebound, _ = Balance(fs.Rebounds, rs.Rebounds,
			t.Linkage.MaxFrontTravel, t.Linkage.MaxRearTravel)
	}
	return b
}

// Analyze is a convenience wrapper that uses a fresh Analyzer.
func Analyze(t *psst.Telemetry, start, end int, hst float64) *Bundle {
	return NewAnalyzer().Analyze(t, start, end, hst)
}
