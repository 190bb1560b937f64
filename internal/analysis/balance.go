package analysis

import (
	"sort"

	"github.com/SeanJxie/polygo"
	"gonum.org/v1/gonum/stat"

	"github.com/sghctoma/sst/telemetry/internal/psst"
)

// Trend holds stroke maximums sorted by travel, and the fitted line evaluated
// at each travel value.
type Trend struct {
	Travel   []float64 `json:"travel"`
	Velocity []float64 `json:"velocity"`
	Trend    []float64 `json:"trend"`
}

type Correlation struct {
	Front *Trend `json:"front"`
	Rear  *Trend `json:"rear"`
}

func travelVelocity(strokes []*psst.Stroke, maxTravel float64) (t, v []float64) {
	sorted := make([]*psst.Stroke, len(strokes))
	copy(sorted, strokes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Stat.MaxTravel < sorted[j].Stat.MaxTravel
	})

	t = make([]float64, len(sorted))
	v = make([]float64, len(sorted))
	for i, s := range sorted {
		t[i] = s.Stat.MaxTravel / maxTravel * 100
		v[i] = s.Stat.MaxVelocity
	}
	return t, v
}

func fit(strokes []*psst.Stroke, maxTravel float64) (*Trend, error) {
	if len(strokes) == 0 || maxTravel <= 0 {
		return nil, noData("balance")
	}
	t, v := travelVelocity(strokes, maxTravel)
	trend := make([]float64, len(t))

	// Every point has the same travel, the best we can do is a flat line.
	if t[0] == t[len(t)-1] {
		mean := stat.Mean(v, nil)
		for i := range trend {
			trend[i] = mean
		}
		return &Trend{Travel: t, Velocity: v, Trend: trend}, nil
	}

	alpha, beta := stat.LinearRegression(t, v, nil, false)
	p, err := polygo.NewRealPolynomial([]float64{alpha, beta})
	for i, x := range t {
		if err != nil {
			trend[i] = alpha + beta*x
		} else {
			trend[i] = p.At(x)
		}
	}
	return &Trend{Travel: t, Velocity: v, Trend: trend}, nil
}

// Balance correlates front and rear stroke maximums. It is meant to be
// called separately for compressions and rebounds.
func Balance(front, rear []*psst.Stroke, frontMax, rearMax float64) (*Correlation, error) {
	f, err := fit(front, frontMax)
	if err != nil {
		return nil, err
	}
	r, err := fit(rear, rearMax)
	if err != nil {
		return nil, err
	}
	return &Correlation{Front: f, Rear: r}, nil
}

