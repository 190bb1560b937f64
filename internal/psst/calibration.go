package psst

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sghctoma/sst/telemetry/internal/expr"
)

type Intermediate struct {
	Name       string
	Expression string
}

// Intermediates keeps the member order of the JSON object it was read from,
// since later intermediates may refer to earlier ones.
type Intermediates []Intermediate

func (this *Intermediates) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*this = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("intermediates must be an object")
	}
	list := Intermediates{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var e string
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("intermediate '%s': %w", name, err)
		}
		list = append(list, Intermediate{Name: name, Expression: e})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*this = list
	return nil
}

func (this Intermediates) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, im := range this {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(im.Name)
		v, _ := json.Marshal(im.Expression)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type calibrationMethodParams struct {
	Inputs        []string      `json:"inputs"`
	Intermediates Intermediates `json:"intermediates"`
	Expression    string        `json:"expression" binding:"required"`
}

type CalibrationMethod struct {
	Id          uuid.UUID `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"        binding:"required"`
	Description string    `db:"description" json:"description"`
	RawData     string    `db:"data"        json:"-"`
	calibrationMethodParams
	program *program
}

type program struct {
	intermediates []expr.Node
	expression    expr.Node
}

type Calibration struct {
	Name     string                 `json:"name"      binding:"required"`
	MethodId uuid.UUID              `json:"method_id"`
	Inputs   map[string]float64     `json:"inputs"`
	Method   *CalibrationMethod     `json:"method,omitempty"`
	Extra    map[string]interface{} `json:"-"`
	env      expr.Env
	// binaryId is set for records that store MethodId as 16 raw bytes.
	binaryId bool
	prepared bool
}

type ValidationError struct {
	Method string
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("calibration method '%s' is invalid (%s): %v", e.Method, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (this *CalibrationMethod) ProcessRawData() error {
	if err := json.Unmarshal([]byte(this.RawData), &this.calibrationMethodParams); err != nil {
		return err
	}
	return nil
}

func (this *CalibrationMethod) DumpRawData() error {
	rd, err := json.Marshal(this.calibrationMethodParams)
	if err != nil {
		return err
	}
	this.RawData = string(rd)
	return nil
}

func (this *CalibrationMethod) invalid(field string, err error) error {
	return &ValidationError{Method: this.Name, Field: field, Err: err}
}

// staticEnv binds every name a formula of this method may reference.
func (this *CalibrationMethod) staticEnv(inputs map[string]float64) expr.Env {
	vars := map[string]float64{"MAX_STROKE": 0, "MAX_TRAVEL": 0}
	for _, input := range this.Inputs {
		vars[input] = 0
	}
	for k, v := range inputs {
		vars[k] = v
	}
	return expr.NewEnv(vars)
}

// Compile parses every formula of the method and resolves all names and
// calls. Nothing is evaluated.
func (this *CalibrationMethod) Compile() error {
	p := &program{}
	env := this.staticEnv(nil)
	seen := map[string]bool{}
	for _, input := range this.Inputs {
		if input == expr.SAMPLE || expr.IsFunction(input) {
			return this.invalid("inputs", fmt.Errorf("reserved name '%s'", input))
		}
	}
	for _, im := range this.Intermediates {
		if seen[im.Name] || im.Name == expr.SAMPLE || expr.IsFunction(im.Name) {
			return this.invalid("intermediates", fmt.Errorf("name '%s' cannot be used", im.Name))
		}
		seen[im.Name] = true
		n, err := expr.Parse(im.Expression)
		if err != nil {
			return this.invalid(im.Name, err)
		}
		if err := expr.Check(n, env); err != nil {
			return this.invalid(im.Name, err)
		}
		p.intermediates = append(p.intermediates, n)
		env = env.With(im.Name, 0)
	}
	n, err := expr.Parse(this.Expression)
	if err != nil {
		return this.invalid("expression", err)
	}
	if err := expr.Check(n, env); err != nil {
		return this.invalid("expression", err)
	}
	p.expression = n
	this.program = p
	return nil
}

func (this *CalibrationMethod) evaluate(env expr.Env, sample float64) (expr.Env, float64, error) {
	for i, n := range this.program.intermediates {
		v, err := expr.Eval(n, env, sample)
		if err != nil {
			return env, 0, this.invalid(this.Intermediates[i].Name, err)
		}
		env = env.With(this.Intermediates[i].Name, v)
	}
	out, err := expr.Eval(this.program.expression, env, sample)
	if err != nil {
		return env, 0, this.invalid("expression", err)
	}
	return env, out, nil
}

// Validate compiles the method and evaluates it at sample 0 using the given
// inputs. Declared inputs that are not given are bound to zero. A successful
// validation does not guarantee that the formula is defined for every sample.
func (this *CalibrationMethod) Validate(inputs map[string]float64) (float64, error) {
	if err := this.Compile(); err != nil {
		return 0, err
	}
	_, out, err := this.evaluate(this.staticEnv(inputs), 0)
	return out, err
}

// Prepare binds the inputs and the suspension limits, and evaluates the
// intermediates once.
func (this *Calibration) Prepare(maxStroke, maxTravel float64) error {
	if this.Method == nil {
		return &ValidationError{Method: this.Name, Field: "method", Err: fmt.Errorf("calibration has no method")}
	}
	if this.Method.program == nil {
		if err := this.Method.Compile(); err != nil {
			return err
		}
	}

	vars := map[string]float64{}
	for _, input := range this.Method.Inputs {
		v, ok := this.Inputs[input]
		if !ok {
			return this.Method.invalid("inputs", fmt.Errorf("missing input '%s'", input))
		}
		vars[input] = v
	}
	vars["MAX_STROKE"] = maxStroke
	vars["MAX_TRAVEL"] = maxTravel

	env := expr.NewEnv(vars)
	for i, n := range this.Method.program.intermediates {
		v, err := expr.Eval(n, env, 0)
		if err != nil {
			return this.Method.invalid(this.Method.Intermediates[i].Name, err)
		}
		env = env.With(this.Method.Intermediates[i].Name, v)
	}
	this.env = env
	this.prepared = true
	return nil
}

func (this *Calibration) Evaluate(sample float64) (float64, error) {
	if !this.prepared {
		return 0, fmt.Errorf("calibration '%s' is not prepared", this.Name)
	}
	return expr.Eval(this.Method.program.expression, this.env, sample)
}

type calibrations struct {
	FrontCalibration *Calibration `json:"front"`
	RearCalibration  *Calibration `json:"rear"`
}

// LoadCalibrations reads a {"front": ..., "rear": ...} JSON document where
// each calibration embeds its method, and prepares both for the linkage.
func LoadCalibrations(data []byte, linkage Linkage) (*Calibration, *Calibration, error) {
	var cs calibrations
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, nil, err
	}
	if cs.FrontCalibration != nil {
		if err := cs.FrontCalibration.Prepare(linkage.MaxFrontStroke, linkage.MaxFrontTravel); err != nil {
			return nil, nil, err
		}
		if cs.FrontCalibration.MethodId == uuid.Nil {
			cs.FrontCalibration.MethodId = cs.FrontCalibration.Method.Id
		}
	}
	if cs.RearCalibration != nil {
		if err := cs.RearCalibration.Prepare(linkage.MaxRearStroke, linkage.MaxRearTravel); err != nil {
			return nil, nil, err
		}
		if cs.RearCalibration.MethodId == uuid.Nil {
			cs.RearCalibration.MethodId = cs.RearCalibration.Method.Id
		}
	}

	return cs.FrontCalibration, cs.RearCalibration, nil
}

func builtinMethod(name, description string, inputs []string, intermediates Intermediates, expression string) CalibrationMethod {
	return CalibrationMethod{
		Id:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("sst/calibration-method/"+name)),
		Name:        name,
		Description: description,
		calibrationMethodParams: calibrationMethodParams{
			Inputs:        inputs,
			Intermediates: intermediates,
			Expression:    expression,
		},
	}
}

// BuiltinMethods returns the calibration methods every store starts with.
func BuiltinMethods() []CalibrationMethod {
	return []CalibrationMethod{
		builtinMethod("fraction",
			"Sample is in fraction of maximum suspension stroke.",
			[]string{}, Intermediates{},
			"sample * MAX_STROKE"),
		builtinMethod("percentage",
			"Sample is in percentage of maximum suspension stroke.",
			[]string{}, Intermediates{{"factor", "MAX_STROKE / 100.0"}},
			"sample * factor"),
		builtinMethod("linear",
			"Sample is linearly distributed within a given range.",
			[]string{"min_measurement", "max_measurement"},
			Intermediates{{"factor", "MAX_STROKE / (max_measurement - min_measurement)"}},
			"(sample - min_measurement) * factor"),
		builtinMethod("as5600-isosceles-triangle",
			"Triangle setup with the sensor between the base and leg.",
			[]string{"arm", "max"},
			Intermediates{
				{"start_angle", "acos(max / 2.0 / arm)"},
				{"factor", "2.0 * pi / 4096"},
				{"dbl_arm", "2.0 * arm"},
			},
			"max - (dbl_arm * cos((factor*sample) + start_angle))"),
		builtinMethod("as5600-triangle",
			"Triangle setup with the sensor between two known sides.",
			[]string{"arm1", "arm2", "max"},
			Intermediates{
				{"start_angle", "acos((arm1^2+arm2^2-max^2)/(2*arm1*arm2))"},
				{"factor", "2.0 * pi / 4096"},
				{"arms_sqr_sum", "arm1^2 + arm2^2"},
				{"dbl_arm1_arm2", "2 * arm1 * arm2"},
			},
			"max - sqrt(arms_sqr_sum - dbl_arm1_arm2 * cos(start_angle-(factor*sample)))"),
	}
}
