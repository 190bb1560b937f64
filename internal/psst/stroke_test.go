package psst

import (
	"math"
	"reflect"
	"testing"
)

func TestSegment(t *testing.T) {
	velocity := []float64{5, 5, -5, -5, 5}
	travel := []float64{0, 2, 4, 2, 0, 3}

	tests := []struct {
		name         string
		travel       []float64
		threshold    float64
		compressions []Span
		rebounds     []Span
	}{
		{
			name:         "single sample stroke is rejected by a positive threshold",
			travel:       travel,
			threshold:    1,
			compressions: []Span{{0, 2}},
			rebounds:     []Span{{2, 4}},
		},
		{
			name:         "single sample stroke is accepted by a zero threshold",
			travel:       travel,
			threshold:    0,
			compressions: []Span{{0, 2}, {4, 5}},
			rebounds:     []Span{{2, 4}},
		},
		{
			name:         "no travel means no filtering",
			travel:       nil,
			threshold:    1,
			compressions: []Span{{0, 2}, {4, 5}},
			rebounds:     []Span{{2, 4}},
		},
		{
			name:         "threshold above every stroke",
			travel:       travel,
			threshold:    10,
			compressions: []Span{},
			rebounds:     []Span{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, rs := Segment(velocity, tt.travel, tt.threshold)
			if !reflect.DeepEqual(cs, tt.compressions) {
				t.Errorf("compressions = %v, expected %v", cs, tt.compressions)
			}
			if !reflect.DeepEqual(rs, tt.rebounds) {
				t.Errorf("rebounds = %v, expected %v", rs, tt.rebounds)
			}
		})
	}
}

func TestSegmentZeroVelocity(t *testing.T) {
	tests := []struct {
		name     string
		velocity []float64
		cs, rs   int
	}{
		{"empty", nil, 0, 0},
		{"all zero", []float64{0, 0.01, -0.02, 0}, 0, 0},
		{"no sign change", []float64{3, 3, 3, 3}, 1, 0},
		{"zero run between strokes", []float64{3, 3, 0, 0, -3, -3}, 1, 1},
		{"zero run between equal signs", []float64{3, 0, 3}, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, rs := Segment(tt.velocity, nil, 0)
			if len(cs) != tt.cs || len(rs) != tt.rs {
				t.Errorf("got %d compressions and %d rebounds, expected %d and %d", len(cs), len(rs), tt.cs, tt.rs)
			}
			for _, s := range append(cs, rs...) {
				if s.Start >= s.End {
					t.Errorf("empty segment %v", s)
				}
			}
		})
	}
}

func TestNewStrokes(t *testing.T) {
	travel := []float64{0, 10, 20, 98, 99, 98, 99, 50, 10, 5}
	velocity := []float64{10, 10, 10, 1, 1, 1, 1, -10, -10, -10}
	strokes := NewStrokes(velocity, travel, 100)

	if len(strokes.Compressions) != 1 || len(strokes.Rebounds) != 1 {
		t.Fatalf("got %d compressions and %d rebounds", len(strokes.Compressions), len(strokes.Rebounds))
	}
	c := strokes.Compressions[0]
	if c.Start != 0 || c.End != 7 {
		t.Errorf("compression = [%d, %d), expected [0, 7)", c.Start, c.End)
	}
	if c.Stat.Count != c.Len() || c.Stat.MaxTravel != 99 || c.Stat.MaxVelocity != 10 {
		t.Errorf("compression stat = %+v", c.Stat)
	}
	if c.Stat.Bottomouts != 1 {
		t.Errorf("Bottomouts = %d, expected 1", c.Stat.Bottomouts)
	}
	if math.Abs(c.Stat.SumTravel-424) > 1e-9 {
		t.Errorf("SumTravel = %v, expected 424", c.Stat.SumTravel)
	}
	r := strokes.Rebounds[0]
	if r.Stat.MaxVelocity != -10 || r.Stat.Count != 3 || r.Stat.SumVelocity != -30 {
		t.Errorf("rebound stat = %+v", r.Stat)
	}
}

func TestBottomouts(t *testing.T) {
	tests := []struct {
		travel   []float64
		expected int
	}{
		{[]float64{}, 0},
		{[]float64{10, 20, 30}, 0},
		{[]float64{98, 99, 98}, 1},
		{[]float64{98, 50, 98, 50, 99}, 3},
	}
	for _, tt := range tests {
		if got := bottomouts(tt.travel, 100); got != tt.expected {
			t.Errorf("bottomouts(%v) = %d, expected %d", tt.travel, got, tt.expected)
		}
	}
}

func TestDigitize(t *testing.T) {
	bins := []float64{0, 10, 20, 30}
	data := []float64{-5, 0, 5, 10, 19.9, 20, 30, 45}
	expected := []int{0, 0, 0, 1, 1, 2, 2, 2}
	if got := Digitize(data, bins); !reflect.DeepEqual(got, expected) {
		t.Errorf("Digitize = %v, expected %v", got, expected)
	}
}

func TestDigitizeVelocity(t *testing.T) {
	v := []float64{-120, -40, 0, 40, 260}
	bins, data := DigitizeVelocity(v, 100)

	if len(bins) < 2 {
		t.Fatalf("bins = %v", bins)
	}
	if math.Abs(bins[1]-bins[0]-100) > 1e-9 {
		t.Errorf("bin width = %v, expected 100", bins[1]-bins[0])
	}
	for i, d := range data {
		if v[i] < bins[d] || v[i] >= bins[d+1] {
			t.Errorf("%v digitized into [%v, %v)", v[i], bins[d], bins[d+1])
		}
	}
	zero := data[2]
	if mid := (bins[zero] + bins[zero+1]) / 2; math.Abs(mid) > 1e-9 {
		t.Errorf("zero is not in the middle of its bin: [%v, %v)", bins[zero], bins[zero+1])
	}

	if b, d := DigitizeVelocity(nil, 100); b != nil || d != nil {
		t.Error("empty input should give no bins")
	}
}
