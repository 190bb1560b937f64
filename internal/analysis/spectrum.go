package analysis

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/sghctoma/sst/telemetry/internal/psst"
)

const (
	SPECTRUM_MIN_LENGTH    = 20000 // samples are zero padded to at least this length
	SPECTRUM_MAX_FREQUENCY = 10.0  // (Hz) higher frequencies are cut off
)

type Spectrum struct {
	Frequencies []float64 `json:"freqs"`
	Power       []float64 `json:"spectrum"`
}

// Analyzer keeps the FFT plan and the padded input buffer between calls. It
// is not safe for concurrent use.
type Analyzer struct {
	fft    *fourier.FFT
	buffer []float64
	coeffs []complex128
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (this *Analyzer) prepare(n int) {
	if this.fft != nil && len(this.buffer) == n {
		for i := range this.buffer {
			this.buffer[i] = 0
		}
		return
	}
	if this.fft == nil {
		this.fft = fourier.NewFFT(n)
	} else {
		this.fft.Reset(n)
	}
	this.buffer = make([]float64, n)
	this.coeffs = make([]complex128, n/2+1)
}

// Spectrum returns the power (squared magnitude) of the mean-removed samples
// up to SPECTRUM_MAX_FREQUENCY. period is the time between samples in
// seconds.
func (this *Analyzer) Spectrum(samples []float64, period float64) (*Spectrum, error) {
	if len(samples) == 0 {
		return nil, noData("spectrum")
	}
	if period <= 0 {
		return nil, &ComputationError{Op: "spectrum", Err: fmt.Errorf("invalid sample period %v", period)}
	}

	this.prepare(max(SPECTRUM_MIN_LENGTH, len(samples)))
	mean := stat.Mean(samples, nil)
	for i, s := range samples {
		this.buffer[i] = s - mean
	}
	this.coeffs = this.fft.Coefficients(this.coeffs, this.buffer)

	sp := &Spectrum{}
	for i, c := range this.coeffs {
		f := this.fft.Freq(i) / period
		if f > SPECTRUM_MAX_FREQUENCY {
			break
		}
		a := cmplx.Abs(c)
		sp.Frequencies = append(sp.Frequencies, f)
		sp.Power = append(sp.Power, a*a)
	}
	return sp, nil
}

// StrokeSpectrum computes the spectrum of travel between the first and the
// last stroke.
func (this *Analyzer) StrokeSpectrum(strokes psst.Strokes, travel []float64, period float64) (*Spectrum, error) {
	all := strokes.All()
	if len(all) == 0 {
		return nil, noData("spectrum")
	}
	start, end := all[0].Start, all[0].End
	for _, s := range all[1:] {
		start = min(start, s.Start)
		end = max(end, s.End)
	}
	end = min(end, len(travel))
	if start >= end {
		return nil, noData("spectrum")
	}
	return this.Spectrum(travel[start:end], period)
}
