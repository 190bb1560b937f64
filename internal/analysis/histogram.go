package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sghctoma/sst/telemetry/internal/psst"
)

const (
	TRAVEL_HIST_RANGE_MULTIPLIER   = 1.3
	VELOCITY_HIST_RANGE_MULTIPLIER = 1.5
	NORMAL_CURVE_POINTS            = 100
	HIGH_SPEED_THRESHOLD           = 350.0 // (mm/s) default boundary between low and high speed
)

type Histogram struct {
	Bins    []float64 `json:"bins"`
	Percent []float64 `json:"percent"`
	Largest float64   `json:"largest"`
	Range   float64   `json:"range"`
}

// StackedHistogram holds one row per travel group. Column j of every row
// belongs to the velocity bin centred at Centres[j].
type StackedHistogram struct {
	Groups  [][]float64 `json:"groups"`
	Centres []float64   `json:"centres"`
	Largest float64     `json:"largest"`
	Range   float64     `json:"range"`
}

type NormalCurve struct {
	Mu       float64   `json:"mu"`
	Sigma    float64   `json:"sigma"`
	Velocity []float64 `json:"ny"`
	Pdf      []float64 `json:"pdf"`
}

type VelocityDistribution struct {
	Coarse *StackedHistogram `json:"coarse"`
	Fine   *StackedHistogram `json:"fine"`
	Normal *NormalCurve      `json:"normal"`
}

type Bands struct {
	HSC float64 `json:"hsc"`
	LSC float64 `json:"lsc"`
	LSR float64 `json:"lsr"`
	HSR float64 `json:"hsr"`
}

func clamp(i, n int) int {
	return max(0, min(i, n-1))
}

func window(data []float64, s *psst.Stroke) []float64 {
	end := min(s.End, len(data))
	if s.Start >= end {
		return nil
	}
	return data[s.Start:end]
}

// TravelHistogram returns the share of stroke samples in each travel bin.
func TravelHistogram(strokes psst.Strokes, bins []float64) (*Histogram, error) {
	if len(bins) < 2 {
		return nil, noData("travel histogram")
	}
	hist := make([]float64, len(bins)-1)
	total := 0
	for _, s := range strokes.All() {
		for _, dt := range s.DigitizedTravel {
			hist[clamp(dt, len(hist))] += 1
			total += 1
		}
	}
	if total == 0 {
		return nil, noData("travel histogram")
	}
	floats.Scale(100.0/float64(total), hist)

	largest := floats.Max(hist)
	return &Histogram{
		Bins:    append([]float64(nil), bins[:len(bins)-1]...),
		Percent: hist,
		Largest: largest,
		Range:   largest * TRAVEL_HIST_RANGE_MULTIPLIER,
	}, nil
}

func newStacked(groups, bins int) [][]float64 {
	h := make([][]float64, groups)
	for i := range h {
		h[i] = make([]float64, bins)
	}
	return h
}

func finishStacked(hist [][]float64, bins []float64, total int) *StackedHistogram {
	step := bins[1] - bins[0]
	centres := make([]float64, len(bins)-1)
	for i := range centres {
		centres[i] = bins[i] + step/2
	}

	largest := 0.0
	for _, row := range hist {
		floats.Scale(100.0/float64(total), row)
	}
	for j := range centres {
		sum := 0.0
		for _, row := range hist {
			sum += row[j]
		}
		largest = max(largest, sum)
	}

	return &StackedHistogram{
		Groups:  hist,
		Centres: centres,
		Largest: largest,
		Range:   largest * VELOCITY_HIST_RANGE_MULTIPLIER,
	}
}

// VelocityHistogram builds the velocity distribution of stroke samples with
// travel bins collapsed into VELOCITY_HIST_TRAVEL_BINS groups. The fine
// histogram only counts samples slower than hst, and is left out when the
// record has no fine bins.
func VelocityHistogram(strokes psst.Strokes, velocity, tbins, vbins, fvbins []float64, hst float64) (*VelocityDistribution, error) {
	if len(tbins) < 2 || len(vbins) < 2 {
		return nil, noData("velocity histogram")
	}
	all := strokes.All()
	withFine := len(fvbins) >= 2
	for _, s := range all {
		if len(s.FineDigitizedVelocity) != len(s.DigitizedVelocity) {
			withFine = false
		}
	}

	groups := psst.VELOCITY_HIST_TRAVEL_BINS
	divider := max(1, (len(tbins)-1)/groups)
	coarse := newStacked(groups, len(vbins)-1)
	var fine [][]float64
	var stepFine float64
	if withFine {
		fine = newStacked(groups, len(fvbins)-1)
		stepFine = fvbins[1] - fvbins[0]
	}

	total := 0
	for _, s := range all {
		n := min(len(s.DigitizedTravel), len(s.DigitizedVelocity))
		for i := 0; i < n; i++ {
			g := clamp(s.DigitizedTravel[i]/divider, groups)
			coarse[g][clamp(s.DigitizedVelocity[i], len(vbins)-1)] += 1
			total += 1

			if withFine {
				fv := clamp(s.FineDigitizedVelocity[i], len(fvbins)-1)
				if -(hst+stepFine) <= fvbins[fv] && fvbins[fv] < hst {
					fine[g][fv] += 1
				}
			}
		}
	}
	if total == 0 {
		return nil, noData("velocity histogram")
	}

	vd := &VelocityDistribution{
		Coarse: finishStacked(coarse, vbins, total),
		Normal: normalCurve(all, velocity, vbins[1]-vbins[0]),
	}
	if withFine {
		vd.Fine = finishStacked(fine, fvbins, total)
	}
	return vd, nil
}

// normalCurve fits a normal distribution to the stroke velocities, scaled so
// it can be drawn over a histogram with step wide bins.
func normalCurve(strokes []*psst.Stroke, velocity []float64, step float64) *NormalCurve {
	var v []float64
	for _, s := range strokes {
		v = append(v, window(velocity, s)...)
	}
	if len(v) == 0 {
		return nil
	}
	mu, sigma := stat.PopMeanStdDev(v, nil)
	if sigma == 0 {
		return nil
	}

	dist := distuv.Normal{Mu: mu, Sigma: sigma}
	ny := floats.Span(make([]float64, NORMAL_CURVE_POINTS), floats.Min(v), floats.Max(v))
	pdf := make([]float64, len(ny))
	for i, y := range ny {
		pdf[i] = dist.Prob(y) * step * 100
	}
	return &NormalCurve{Mu: mu, Sigma: sigma, Velocity: ny, Pdf: pdf}
}

// BandStats splits stroke samples into high and low speed compression and
// rebound, as percentages of all stroke samples.
func BandStats(strokes psst.Strokes, velocity []float64, hst float64) (*Bands, error) {
	var lsc, hsc, lsr, hsr int
	for _, c := range strokes.Compressions {
		for _, v := range window(velocity, c) {
			if v < hst {
				lsc += 1
			} else {
				hsc += 1
			}
		}
	}
	for _, r := range strokes.Rebounds {
		for _, v := range window(velocity, r) {
			if v > -hst {
				lsr += 1
			} else {
				hsr += 1
			}
		}
	}

	total := float64(lsc + hsc + lsr + hsr)
	if total == 0 {
		return nil, noData("velocity bands")
	}
	return &Bands{
		HSC: float64(hsc) / total * 100,
		LSC: float64(lsc) / total * 100,
		LSR: float64(lsr) / total * 100,
		HSR: float64(hsr) / total * 100,
	}, nil
}
