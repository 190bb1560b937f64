package psst

import (
	"golang.org/x/exp/constraints"
)

// PSST_VERSION is written into every record produced by ProcessRecording.
const PSST_VERSION = 3

const (
	VELOCITY_ZERO_THRESHOLD    = 0.02  // (mm/s) maximum velocity to be considered as zero
	STROKE_THRESHOLD_RATIO     = 0.025 // strokes must move at least max_travel*this to count
	TOPOUT_THRESHOLD_RATIO     = 0.04  // travel below max_travel*this is considered topped out
	COMBINED_TOPOUT_DURATION   = 0.2   // (s) minimum topout duration when both suspensions are present
	SINGLE_TOPOUT_DURATION     = 0.5   // (s) minimum topout duration with a single suspension
	AIRTIME_VELOCITY_WINDOW    = 0.02  // (s) window after a topout used to measure landing velocity
	AIRTIME_VELOCITY_THRESHOLD = 500   // (mm/s) minimum mean velocity after topout to consider it an airtime
	TRAVEL_HIST_BINS           = 20    // number of travel histogram bins
	VELOCITY_HIST_TRAVEL_BINS  = 10    // number of travel histogram bins for velocity histogram
	VELOCITY_HIST_STEP         = 100.0 // (mm/s) step between velocity histogram bins
	VELOCITY_HIST_STEP_FINE    = 15.0  // (mm/s) step between fine-grained velocity histogram bins
	BOTTOMOUT_THRESHOLD        = 3     // (mm) bottomouts are regions where travel > max_travel - this value
)

type StrokeStat struct {
	SumTravel   float64
	MaxTravel   float64
	SumVelocity float64
	MaxVelocity float64
	Bottomouts  int
	Count       int
	Extra       map[string]interface{}
}

// Stroke covers the samples [Start, End).
type Stroke struct {
	Start                 int
	End                   int
	Stat                  StrokeStat
	DigitizedTravel       []int
	DigitizedVelocity     []int
	FineDigitizedVelocity []int
	Extra                 map[string]interface{}
}

func (this *Stroke) Len() int {
	return this.End - this.Start
}

type Strokes struct {
	Compressions []*Stroke
	Rebounds     []*Stroke
	Extra        map[string]interface{}
}

// All returns compressions followed by rebounds.
func (this *Strokes) All() []*Stroke {
	all := make([]*Stroke, 0, len(this.Compressions)+len(this.Rebounds))
	all = append(all, this.Compressions...)
	return append(all, this.Rebounds...)
}

type Airtime struct {
	Start float64                `json:"start"`
	End   float64                `json:"end"`
	Extra map[string]interface{} `json:"-"`
}

type Suspension struct {
	Present          bool
	Calibration      Calibration
	Travel           []float64
	Velocity         []float64
	Strokes          Strokes
	TravelBins       []float64
	VelocityBins     []float64
	FineVelocityBins []float64
	Extra            map[string]interface{}
}

type Meta struct {
	Name       string
	Version    uint8
	SampleRate uint16
	Timestamp  int64
}

type Telemetry struct {
	Meta
	Front    Suspension
	Rear     Suspension
	Linkage  Linkage
	Airtimes []Airtime
	Extra    map[string]interface{}
}

// Duration is the recording length in seconds.
func (this *Telemetry) Duration() float64 {
	n := max(len(this.Front.Travel), len(this.Rear.Travel))
	if this.SampleRate == 0 {
		return 0
	}
	return float64(n) / float64(this.SampleRate)
}

type Number interface {
	constraints.Float | constraints.Integer
}
