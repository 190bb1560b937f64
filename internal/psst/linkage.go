package psst

import (
	"bufio"
	"fmt"
	"math"
	"strings"

	"github.com/SeanJxie/polygo"
	"github.com/openacid/slimarray/polyfit"
)

type LinkageRecord struct {
	ShockTravel   float64
	WheelTravel   float64
	LeverageRatio float64
}

type Linkage struct {
	Name             string                 `json:"name"         binding:"required"`
	HeadAngle        float64                `json:"head_angle"   binding:"required"`
	RawData          string                 `json:"data"`
	MaxFrontStroke   float64                `json:"front_stroke"`
	MaxRearStroke    float64                `json:"rear_stroke"`
	MaxFrontTravel   float64                `json:"-"`
	MaxRearTravel    float64                `json:"-"`
	LeverageRatio    [][2]float64           `json:"-"`
	ShockWheelCoeffs []float64              `json:"-"`
	Extra            map[string]interface{} `json:"-"`
	polynomial       *polygo.RealPolynomial
}

type InvalidLinkageError struct {
	Reason string
}

func (e *InvalidLinkageError) Error() string {
	return "Invalid linkage: " + e.Reason
}

// ProcessRawData parses "wheel_travel,leverage_ratio" lines. Shock travel is
// accumulated from the leverage ratio of each row.
func (this *Linkage) ProcessRawData() error {
	var records []LinkageRecord
	scanner := bufio.NewScanner(strings.NewReader(this.RawData))
	s := 0.0
	for scanner.Scan() {
		var w, l float64
		_, err := fmt.Sscanf(strings.TrimSpace(scanner.Text()), "%f,%f", &w, &l)
		if err == nil && l != 0 {
			records = append(records, LinkageRecord{
				ShockTravel:   s,
				WheelTravel:   w,
				LeverageRatio: l,
			})
			s += 1.0 / l
		}
	}

	return this.Process(records)
}

func (this *Linkage) Process(records []LinkageRecord) error {
	if len(records) < 4 {
		return &InvalidLinkageError{Reason: "at least 4 leverage ratio records are needed"}
	}

	st := make([]float64, len(records))
	wt := make([]float64, len(records))
	wtlr := make([][2]float64, len(records))
	for i, record := range records {
		st[i] = record.ShockTravel
		wt[i] = record.WheelTravel
		wtlr[i] = [2]float64{record.WheelTravel, record.LeverageRatio}
	}

	f := polyfit.NewFit(st, wt, 3)
	this.LeverageRatio = wtlr
	this.ShockWheelCoeffs = f.Solve()

	if err := this.preparePolynomial(); err != nil {
		return err
	}
	this.MaxRearTravel = this.polynomial.At(this.MaxRearStroke)
	this.MaxFrontTravel = math.Sin(this.HeadAngle*math.Pi/180.0) * this.MaxFrontStroke
	return nil
}

func (this *Linkage) preparePolynomial() error {
	p, err := polygo.NewRealPolynomial(this.ShockWheelCoeffs)
	if err != nil {
		return &InvalidLinkageError{Reason: err.Error()}
	}
	this.polynomial = p
	return nil
}

// ShockToWheel maps shock stroke to rear wheel travel.
func (this *Linkage) ShockToWheel(shock float64) float64 {
	if this.polynomial == nil {
		if this.preparePolynomial() != nil {
			return math.NaN()
		}
	}
	return this.polynomial.At(shock)
}
