package psst

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/sghctoma/sst/telemetry/internal/expr"
)

func builtin(t *testing.T, name string) CalibrationMethod {
	t.Helper()
	for _, m := range BuiltinMethods() {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("no built-in method %q", name)
	return CalibrationMethod{}
}

func TestBuiltinMethodsCompile(t *testing.T) {
	for _, m := range BuiltinMethods() {
		m := m
		t.Run(m.Name, func(t *testing.T) {
			if err := m.Compile(); err != nil {
				t.Errorf("Compile failed: %v", err)
			}
		})
	}
}

func TestCalibrationEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		inputs    map[string]float64
		maxStroke float64
		sample    float64
		expected  float64
	}{
		{"fraction", "fraction", map[string]float64{}, 160, 0.5, 80},
		{"percentage", "percentage", map[string]float64{}, 160, 25, 40},
		{"linear", "linear", map[string]float64{"min_measurement": 100, "max_measurement": 4100}, 160, 2100, 80},
		{"isosceles triangle at rest", "as5600-isosceles-triangle", map[string]float64{"arm": 134.9, "max": 234.6}, 160, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := builtin(t, tt.method)
			c := Calibration{Name: tt.name, Inputs: tt.inputs, Method: &m}
			if err := c.Prepare(tt.maxStroke, tt.maxStroke); err != nil {
				t.Fatalf("Prepare failed: %v", err)
			}
			got, err := c.Evaluate(tt.sample)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("Evaluate(%v) = %v, expected %v", tt.sample, got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	m := builtin(t, "linear")
	if _, err := m.Validate(map[string]float64{"min_measurement": 0, "max_measurement": 4095}); err != nil {
		t.Errorf("Validate failed: %v", err)
	}

	// Unspecified inputs are zero, so the range collapses.
	_, err := m.Validate(nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, expected *ValidationError", err)
	}
	var ae *expr.ArithmeticError
	if !errors.As(err, &ae) {
		t.Errorf("error = %v, expected to wrap *expr.ArithmeticError", err)
	}
	if ve.Field != "factor" {
		t.Errorf("Field = %q, expected factor", ve.Field)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name          string
		inputs        []string
		intermediates Intermediates
		expression    string
		field         string
	}{
		{"unknown name", nil, nil, "sample * length", "expression"},
		{"unknown function", nil, nil, "exp(sample)", "expression"},
		{"syntax", nil, nil, "sample **", "expression"},
		{"intermediate used before defined", []string{"a"}, Intermediates{{"x", "y * 2"}, {"y", "a"}}, "x", "x"},
		{"duplicate intermediate", nil, Intermediates{{"x", "1"}, {"x", "2"}}, "x", "intermediates"},
		{"reserved input", []string{"sample"}, nil, "sample", "inputs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CalibrationMethod{Name: tt.name}
			m.Inputs = tt.inputs
			m.Intermediates = tt.intermediates
			m.Expression = tt.expression
			err := m.Compile()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, expected *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, expected %q", ve.Field, tt.field)
			}
		})
	}
}

func TestIntermediatesKeepDocumentOrder(t *testing.T) {
	data := `{"inputs": ["arm"], "intermediates": {"z": "arm * 2", "a": "z + 1", "m": "a * z"}, "expression": "m + sample"}`
	m := CalibrationMethod{Name: "ordered", RawData: data}
	if err := m.ProcessRawData(); err != nil {
		t.Fatalf("ProcessRawData failed: %v", err)
	}
	names := []string{}
	for _, im := range m.Intermediates {
		names = append(names, im.Name)
	}
	if len(names) != 3 || names[0] != "z" || names[1] != "a" || names[2] != "m" {
		t.Fatalf("intermediates = %v, expected [z a m]", names)
	}

	c := Calibration{Name: "c", Inputs: map[string]float64{"arm": 3}, Method: &m}
	if err := c.Prepare(0, 0); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if v, _ := c.Evaluate(1); v != 43 {
		t.Errorf("Evaluate(1) = %v, expected 43", v)
	}

	if err := m.DumpRawData(); err != nil {
		t.Fatalf("DumpRawData failed: %v", err)
	}
	var again CalibrationMethod
	again.RawData = m.RawData
	if err := again.ProcessRawData(); err != nil {
		t.Fatalf("ProcessRawData failed: %v", err)
	}
	b1, _ := json.Marshal(m.Intermediates)
	b2, _ := json.Marshal(again.Intermediates)
	if string(b1) != string(b2) || string(b1) != `{"z":"arm * 2","a":"z + 1","m":"a * z"}` {
		t.Errorf("intermediates changed: %s vs %s", b1, b2)
	}
}

func TestPrepareMissingInput(t *testing.T) {
	m := builtin(t, "linear")
	c := Calibration{Name: "c", Inputs: map[string]float64{"min_measurement": 0}, Method: &m}
	var ve *ValidationError
	if err := c.Prepare(100, 100); !errors.As(err, &ve) {
		t.Errorf("error = %v, expected *ValidationError", err)
	}
	if _, err := c.Evaluate(1); err == nil {
		t.Error("Evaluate on an unprepared calibration should fail")
	}
}
