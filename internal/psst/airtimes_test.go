package psst

import (
	"reflect"
	"testing"
)

func constant(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestTopouts(t *testing.T) {
	const maxTravel = 150.0
	// 100 samples of riding, 300 samples topped out, 100 samples of riding.
	travel := append(append(constant(100, 50), constant(300, 0.02*maxTravel)...), constant(100, 50)...)

	combined := Topouts(travel, maxTravel, 1000, COMBINED_TOPOUT_DURATION)
	if len(combined) != 1 {
		t.Fatalf("got %d topouts, expected 1", len(combined))
	}
	if to := combined[0]; to.Start != 100 || to.End != 399 || to.End-to.Start+1 < 300 {
		t.Errorf("topout = %+v, expected [100, 399]", to)
	}

	if single := Topouts(travel, maxTravel, 1000, SINGLE_TOPOUT_DURATION); len(single) != 0 {
		t.Errorf("got %d topouts with the single suspension duration, expected 0", len(single))
	}
}

func TestTopoutsAtEdges(t *testing.T) {
	travel := append(constant(250, 0), constant(10, 100)...)
	travel = append(travel, constant(250, 0)...)
	got := Topouts(travel, 100, 1000, COMBINED_TOPOUT_DURATION)
	expected := []Interval{{0, 249}, {260, 509}}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Topouts = %v, expected %v", got, expected)
	}
}

func TestClassify(t *testing.T) {
	const rate = 1000
	const n = 2000
	// idle start, ride, jump, hard landing, ride, soft topout, ride, idle end
	travel := constant(n, 60)
	velocity := constant(n, 0)
	for i := 0; i < 300; i++ {
		travel[i] = 0
	}
	for i := 600; i < 900; i++ {
		travel[i] = 1
	}
	for i := 900; i < 920; i++ {
		velocity[i] = 1500
	}
	for i := 1200; i < 1500; i++ {
		travel[i] = 1
	}
	for i := 1500; i < 1520; i++ {
		velocity[i] = 100
	}
	for i := 1800; i < n; i++ {
		travel[i] = 0
	}
	front := Signal{Travel: travel, Velocity: velocity, MaxTravel: 150}
	rear := Signal{Travel: travel, Velocity: constant(n, 0), MaxTravel: 150}

	topouts, mask := Classify(front, rear, rate)
	expectedTopouts := []Interval{{0, 299}, {600, 899}, {1200, 1499}, {1800, 1999}}
	if !reflect.DeepEqual(topouts, expectedTopouts) {
		t.Fatalf("topouts = %v, expected %v", topouts, expectedTopouts)
	}
	if expected := []bool{false, true, false, false}; !reflect.DeepEqual(mask, expected) {
		t.Errorf("mask = %v, expected %v", mask, expected)
	}

	airtimes := Airtimes(front, rear, rate)
	if !reflect.DeepEqual(airtimes, []Interval{{600, 899}}) {
		t.Errorf("Airtimes = %v", airtimes)
	}
	idlings := Idlings(topouts, mask)
	if !reflect.DeepEqual(idlings, []Interval{{0, 299}, {1200, 1499}, {1800, 1999}}) {
		t.Errorf("Idlings = %v", idlings)
	}
}

func TestClassifySingleSuspension(t *testing.T) {
	travel := constant(2000, 60)
	velocity := constant(2000, 0)
	// 0.3 s is long enough for the combined rule only.
	for i := 500; i < 800; i++ {
		travel[i] = 1
	}
	for i := 800; i < 820; i++ {
		velocity[i] = 1500
	}

	front := Signal{Travel: travel, Velocity: velocity, MaxTravel: 150}
	if got := Airtimes(front, Signal{}, 1000); len(got) != 0 {
		t.Errorf("single suspension Airtimes = %v, expected none", got)
	}
	if got := Airtimes(front, front, 1000); len(got) != 1 {
		t.Errorf("combined Airtimes = %v, expected one", got)
	}
	if topouts, mask := Classify(Signal{}, Signal{}, 1000); len(topouts) != 0 || len(mask) != 0 {
		t.Error("no suspension should give no topouts")
	}
}
