package psst

import (
	"fmt"
	"math"

	"github.com/pconstantinou/savitzkygolay"
)

type SetupData struct {
	Linkage          *Linkage
	FrontCalibration *Calibration
	RearCalibration  *Calibration
}

// NewSetup processes the leverage ratio data of the linkage, and prepares the
// calibrations of a {"front": ..., "rear": ...} JSON document for it.
func NewSetup(linkage Linkage, calibrations []byte) (*SetupData, error) {
	if err := linkage.ProcessRawData(); err != nil {
		return nil, err
	}
	fc, rc, err := LoadCalibrations(calibrations, linkage)
	if err != nil {
		return nil, err
	}
	return &SetupData{
		Linkage:          &linkage,
		FrontCalibration: fc,
		RearCalibration:  rc,
	}, nil
}

type MissingRecordsError struct{}

func (e *MissingRecordsError) Error() string {
	return "Front and rear record arrays are empty"
}

type RecordCountMismatchError struct{}

func (e *RecordCountMismatchError) Error() string {
	return "Front and rear record counts are not equal"
}

type MissingCalibrationError struct {
	Suspension string
}

func (e *MissingCalibrationError) Error() string {
	return "No calibration for " + e.Suspension + " suspension"
}

// calibrate converts raw samples to travel. Erroneous samples (e.g. broken
// electrical connection mid-ride) repeat the previous good value, and the
// result is capped to [0, maxTravel]; such regions are obvious on the graphs
// and can be filtered by hand.
func calibrate[T Number](raw []T, maxTravel float64, convert func(float64) (float64, error)) []float64 {
	travel := make([]float64, len(raw))
	last := 0.0
	for idx, value := range raw {
		x, err := convert(float64(value))
		if err != nil || math.IsNaN(x) {
			x = last
		}
		x = math.Max(0, x)
		x = math.Min(x, maxTravel)
		travel[idx] = x
		last = x
	}
	return travel
}

func (this *Suspension) process(travel []float64, maxTravel float64, derive func([]float64) ([]float64, error)) error {
	this.Travel = travel
	this.TravelBins = linspace(0, maxTravel, TRAVEL_HIST_BINS+1)
	dt := Digitize(travel, this.TravelBins)

	v, err := derive(travel)
	if err != nil {
		return fmt.Errorf("could not calculate velocity: %w", err)
	}
	this.Velocity = v
	vbins, dv := DigitizeVelocity(v, VELOCITY_HIST_STEP)
	this.VelocityBins = vbins
	vbinsFine, dvFine := DigitizeVelocity(v, VELOCITY_HIST_STEP_FINE)
	this.FineVelocityBins = vbinsFine

	this.Strokes = NewStrokes(v, travel, maxTravel)
	if len(this.Strokes.Compressions) == 0 && len(this.Strokes.Rebounds) == 0 {
		this.Present = false
	} else {
		this.Strokes.digitize(dt, dv, dvFine)
	}
	return nil
}

// ProcessRecording turns raw sensor samples into a telemetry record. An
// empty front or rear slice means that suspension was not recorded.
func ProcessRecording[T Number](front, rear []T, meta Meta, setup *SetupData) (*Telemetry, error) {
	var pd Telemetry
	pd.Meta = meta
	pd.Version = PSST_VERSION
	pd.Linkage = *setup.Linkage

	fc := len(front)
	rc := len(rear)
	pd.Front.Present = fc != 0
	pd.Rear.Present = rc != 0
	if !(pd.Front.Present || pd.Rear.Present) {
		return nil, &MissingRecordsError{}
	} else if (pd.Front.Present && pd.Rear.Present) && (fc != rc) {
		return nil, &RecordCountMismatchError{}
	}
	if pd.SampleRate == 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}
	record_count := max(fc, rc)

	t := make([]float64, record_count)
	for i := range t {
		t[i] = 1.0 / float64(pd.SampleRate) * float64(i)
	}
	filter, err := savitzkygolay.NewFilter(51, 1, 3)
	if err != nil {
		return nil, err
	}
	derive := func(travel []float64) ([]float64, error) {
		return filter.Process(travel, t)
	}

	if pd.Front.Present {
		if setup.FrontCalibration == nil {
			return nil, &MissingCalibrationError{Suspension: "front"}
		}
		pd.Front.Calibration = *setup.FrontCalibration
		coeff := math.Sin(pd.Linkage.HeadAngle * math.Pi / 180.0)
		travel := calibrate(front, pd.Linkage.MaxFrontTravel, func(v float64) (float64, error) {
			out, err := setup.FrontCalibration.Evaluate(v)
			return out * coeff, err
		})
		if err := pd.Front.process(travel, pd.Linkage.MaxFrontTravel, derive); err != nil {
			return nil, err
		}
	}
	if pd.Rear.Present {
		if setup.RearCalibration == nil {
			return nil, &MissingCalibrationError{Suspension: "rear"}
		}
		pd.Rear.Calibration = *setup.RearCalibration
		// Rear travel might overshoot the max because of an inaccurately
		// measured leverage ratio, or because of the polynomial fitting.
		travel := calibrate(rear, pd.Linkage.MaxRearTravel, func(v float64) (float64, error) {
			out, err := setup.RearCalibration.Evaluate(v)
			if err != nil {
				return 0, err
			}
			return pd.Linkage.ShockToWheel(out), nil
		})
		if err := pd.Rear.process(travel, pd.Linkage.MaxRearTravel, derive); err != nil {
			return nil, err
		}
	}

	pd.airtimes()

	return &pd, nil
}
