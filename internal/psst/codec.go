package psst

import (
	"fmt"
	"math"
	"reflect"

	"github.com/google/uuid"
	"github.com/ugorji/go/codec"
)

// DecodeError reports a PSST record that is malformed or misses a required
// field. Path names the offending field, e.g. "Front.Strokes.Compressions[3].End".
type DecodeError struct {
	Path   string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "invalid PSST record: " + e.Reason
	}
	return fmt.Sprintf("invalid PSST record: %s: %s", e.Path, e.Reason)
}

// schema lists the per-version differences of the record layout.
type schema struct {
	// Records written by older firmware and converters carry no fine
	// velocity fields.
	fineRequired bool
}

var schemas = map[uint8]schema{
	1: {fineRequired: false},
	2: {fineRequired: false},
	3: {fineRequired: true},
}

func newHandle() *codec.MsgpackHandle {
	var h codec.MsgpackHandle
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	h.RawToString = true
	h.SignedInteger = true
	h.Canonical = true
	// Binary values (e.g. raw MethodIds) must stay bin, not become str.
	h.WriteExt = true
	return &h
}

// object tracks which keys of a decoded map were consumed, so the rest can be
// kept as extras.
type object struct {
	path string
	m    map[string]interface{}
	used map[string]bool
}

func newObject(path string, v interface{}) (*object, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, &DecodeError{Path: path, Reason: fmt.Sprintf("expected map, got %T", v)}
	}
	return &object{path: path, m: m, used: map[string]bool{}}, nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func (this *object) get(key string, required bool) (interface{}, bool, error) {
	this.used[key] = true
	v, ok := this.m[key]
	if !ok {
		if required {
			return nil, false, &DecodeError{Path: join(this.path, key), Reason: "missing"}
		}
		return nil, false, nil
	}
	return v, true, nil
}

func (this *object) extra() map[string]interface{} {
	var extra map[string]interface{}
	for k, v := range this.m {
		if !this.used[k] {
			if extra == nil {
				extra = map[string]interface{}{}
			}
			extra[k] = v
		}
	}
	return extra
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64, float32:
		f, _ := toFloat(n)
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	}
	f, ok := toFloat(v)
	return int64(f), ok
}

func (this *object) float(key string) (float64, error) {
	v, _, err := this.get(key, true)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, &DecodeError{Path: join(this.path, key), Reason: fmt.Sprintf("expected number, got %T", v)}
	}
	return f, nil
}

func (this *object) int(key string, min, max int64) (int64, error) {
	v, _, err := this.get(key, true)
	if err != nil {
		return 0, err
	}
	i, ok := toInt(v)
	if !ok {
		return 0, &DecodeError{Path: join(this.path, key), Reason: fmt.Sprintf("expected integer, got %T", v)}
	}
	if i < min || i > max {
		return 0, &DecodeError{Path: join(this.path, key), Reason: fmt.Sprintf("%d is out of range", i)}
	}
	return i, nil
}

func (this *object) str(key string) (string, error) {
	v, _, err := this.get(key, true)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", &DecodeError{Path: join(this.path, key), Reason: fmt.Sprintf("expected string, got %T", v)}
}

func (this *object) bool(key string) (bool, error) {
	v, _, err := this.get(key, true)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &DecodeError{Path: join(this.path, key), Reason: fmt.Sprintf("expected bool, got %T", v)}
	}
	return b, nil
}

func (this *object) child(key string) (*object, error) {
	v, _, err := this.get(key, true)
	if err != nil {
		return nil, err
	}
	return newObject(join(this.path, key), v)
}

// list returns nil for both a missing optional key and a nil value.
func (this *object) list(key string, required bool) ([]interface{}, error) {
	v, ok, err := this.get(key, required)
	if err != nil || !ok || v == nil {
		return nil, err
	}
	l, ok := v.([]interface{})
	if !ok {
		return nil, &DecodeError{Path: join(this.path, key), Reason: fmt.Sprintf("expected array, got %T", v)}
	}
	return l, nil
}

func (this *object) floats(key string, required bool) ([]float64, error) {
	l, err := this.list(key, required)
	if err != nil || l == nil {
		return nil, err
	}
	out := make([]float64, len(l))
	for i, v := range l {
		f, ok := toFloat(v)
		if !ok {
			return nil, &DecodeError{Path: fmt.Sprintf("%s[%d]", join(this.path, key), i), Reason: fmt.Sprintf("expected number, got %T", v)}
		}
		out[i] = f
	}
	return out, nil
}

func (this *object) ints(key string, required bool) ([]int, error) {
	l, err := this.list(key, required)
	if err != nil || l == nil {
		return nil, err
	}
	out := make([]int, len(l))
	for i, v := range l {
		n, ok := toInt(v)
		if !ok {
			return nil, &DecodeError{Path: fmt.Sprintf("%s[%d]", join(this.path, key), i), Reason: fmt.Sprintf("expected integer, got %T", v)}
		}
		out[i] = int(n)
	}
	return out, nil
}

func decodeLinkage(o *object) (l Linkage, err error) {
	if l.Name, err = o.str("Name"); err != nil {
		return
	}
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"HeadAngle", &l.HeadAngle},
		{"MaxFrontStroke", &l.MaxFrontStroke},
		{"MaxRearStroke", &l.MaxRearStroke},
		{"MaxFrontTravel", &l.MaxFrontTravel},
		{"MaxRearTravel", &l.MaxRearTravel},
	} {
		if *f.dst, err = o.float(f.key); err != nil {
			return
		}
	}
	lr, err := o.list("LeverageRatio", true)
	if err != nil {
		return
	}
	if lr != nil {
		l.LeverageRatio = make([][2]float64, len(lr))
	}
	for i, v := range lr {
		pair, ok := v.([]interface{})
		if !ok || len(pair) != 2 {
			return l, &DecodeError{Path: fmt.Sprintf("%s[%d]", join(o.path, "LeverageRatio"), i), Reason: "expected number pair"}
		}
		for j := range pair {
			f, ok := toFloat(pair[j])
			if !ok {
				return l, &DecodeError{Path: fmt.Sprintf("%s[%d]", join(o.path, "LeverageRatio"), i), Reason: "expected number pair"}
			}
			l.LeverageRatio[i][j] = f
		}
	}
	if l.ShockWheelCoeffs, err = o.floats("ShockWheelCoeffs", true); err != nil {
		return
	}
	l.Extra = o.extra()
	return l, nil
}

func decodeCalibration(o *object) (c Calibration, err error) {
	if c.Name, err = o.str("Name"); err != nil {
		return
	}
	im, _, err := o.get("Inputs", true)
	if err != nil {
		return
	}
	if im != nil {
		io, err := newObject(join(o.path, "Inputs"), im)
		if err != nil {
			return c, err
		}
		c.Inputs = make(map[string]float64, len(io.m))
		for k := range io.m {
			if c.Inputs[k], err = io.float(k); err != nil {
				return c, err
			}
		}
	}

	mid, ok, _ := o.get("MethodId", false)
	switch v := mid.(type) {
	case string:
		if c.MethodId, err = uuid.Parse(v); err != nil {
			return c, &DecodeError{Path: join(o.path, "MethodId"), Reason: err.Error()}
		}
	case []byte:
		if c.MethodId, err = uuid.FromBytes(v); err != nil {
			return c, &DecodeError{Path: join(o.path, "MethodId"), Reason: err.Error()}
		}
		c.binaryId = true
	default:
		// Older records reference methods by integer id. Keep whatever is
		// there as an extra so it is written back unchanged.
		if ok {
			o.used["MethodId"] = false
		}
	}
	c.Extra = o.extra()
	return c, nil
}

func decodeStroke(o *object, sch schema, n int) (*Stroke, error) {
	var s Stroke
	start, err := o.int("Start", 0, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	end, err := o.int("End", 0, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	// End is stored inclusive.
	s.Start, s.End = int(start), int(end)+1
	if s.End > n {
		return nil, &DecodeError{Path: join(o.path, "End"), Reason: fmt.Sprintf("stroke [%d, %d) exceeds %d samples", s.Start, s.End, n)}
	}
	if s.Start >= s.End {
		return nil, &DecodeError{Path: o.path, Reason: fmt.Sprintf("invalid stroke range [%d, %d)", s.Start, s.End)}
	}

	so, err := o.child("Stat")
	if err != nil {
		return nil, err
	}
	if s.Stat.SumTravel, err = so.float("SumTravel"); err != nil {
		return nil, err
	}
	if s.Stat.MaxTravel, err = so.float("MaxTravel"); err != nil {
		return nil, err
	}
	if s.Stat.SumVelocity, err = so.float("SumVelocity"); err != nil {
		return nil, err
	}
	if s.Stat.MaxVelocity, err = so.float("MaxVelocity"); err != nil {
		return nil, err
	}
	bo, err := so.int("Bottomouts", 0, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	count, err := so.int("Count", 0, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	s.Stat.Bottomouts, s.Stat.Count = int(bo), int(count)
	s.Stat.Extra = so.extra()

	if s.DigitizedTravel, err = o.ints("DigitizedTravel", true); err != nil {
		return nil, err
	}
	if s.DigitizedVelocity, err = o.ints("DigitizedVelocity", true); err != nil {
		return nil, err
	}
	if s.FineDigitizedVelocity, err = o.ints("FineDigitizedVelocity", sch.fineRequired); err != nil {
		return nil, err
	}
	for _, d := range []struct {
		key    string
		values []int
	}{
		{"DigitizedTravel", s.DigitizedTravel},
		{"DigitizedVelocity", s.DigitizedVelocity},
		{"FineDigitizedVelocity", s.FineDigitizedVelocity},
	} {
		if d.values != nil && len(d.values) != s.Len() {
			return nil, &DecodeError{Path: join(o.path, d.key), Reason: fmt.Sprintf("has %d values for a stroke of %d samples", len(d.values), s.Len())}
		}
	}
	s.Extra = o.extra()
	return &s, nil
}

func decodeStrokes(o *object, key string, sch schema, n int) ([]*Stroke, error) {
	l, err := o.list(key, true)
	if err != nil {
		return nil, err
	}
	strokes := make([]*Stroke, 0, len(l))
	for i, v := range l {
		so, err := newObject(fmt.Sprintf("%s[%d]", join(o.path, key), i), v)
		if err != nil {
			return nil, err
		}
		s, err := decodeStroke(so, sch, n)
		if err != nil {
			return nil, err
		}
		strokes = append(strokes, s)
	}
	return strokes, nil
}

func decodeSuspension(o *object, sch schema) (s Suspension, err error) {
	if s.Present, err = o.bool("Present"); err != nil {
		return
	}
	co, err := o.child("Calibration")
	if err != nil {
		return
	}
	if s.Calibration, err = decodeCalibration(co); err != nil {
		return
	}
	if s.Travel, err = o.floats("Travel", true); err != nil {
		return
	}
	if s.Velocity, err = o.floats("Velocity", true); err != nil {
		return
	}
	if s.TravelBins, err = o.floats("TravelBins", true); err != nil {
		return
	}
	if s.VelocityBins, err = o.floats("VelocityBins", true); err != nil {
		return
	}
	if s.FineVelocityBins, err = o.floats("FineVelocityBins", sch.fineRequired); err != nil {
		return
	}

	so, err := o.child("Strokes")
	if err != nil {
		return
	}
	if s.Strokes.Compressions, err = decodeStrokes(so, "Compressions", sch, len(s.Travel)); err != nil {
		return
	}
	if s.Strokes.Rebounds, err = decodeStrokes(so, "Rebounds", sch, len(s.Travel)); err != nil {
		return
	}
	s.Strokes.Extra = so.extra()
	s.Extra = o.extra()
	return s, nil
}

// Decode reads a msgpack encoded PSST record. Keys the record's version does
// not know about are kept in the Extra maps.
func Decode(b []byte) (*Telemetry, error) {
	var raw map[string]interface{}
	if err := codec.NewDecoderBytes(b, newHandle()).Decode(&raw); err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}
	o, err := newObject("", raw)
	if err != nil {
		return nil, err
	}

	var t Telemetry
	version, err := o.int("Version", 0, math.MaxUint8)
	if err != nil {
		return nil, err
	}
	sch, ok := schemas[uint8(version)]
	if !ok {
		return nil, &DecodeError{Path: "Version", Reason: fmt.Sprintf("unsupported version %d", version)}
	}
	t.Version = uint8(version)
	if t.Name, err = o.str("Name"); err != nil {
		return nil, err
	}
	rate, err := o.int("SampleRate", 1, math.MaxUint16)
	if err != nil {
		return nil, err
	}
	t.SampleRate = uint16(rate)
	if t.Timestamp, err = o.int("Timestamp", math.MinInt64, math.MaxInt64); err != nil {
		return nil, err
	}

	lo, err := o.child("Linkage")
	if err != nil {
		return nil, err
	}
	if t.Linkage, err = decodeLinkage(lo); err != nil {
		return nil, err
	}
	fo, err := o.child("Front")
	if err != nil {
		return nil, err
	}
	if t.Front, err = decodeSuspension(fo, sch); err != nil {
		return nil, err
	}
	ro, err := o.child("Rear")
	if err != nil {
		return nil, err
	}
	if t.Rear, err = decodeSuspension(ro, sch); err != nil {
		return nil, err
	}
	if t.Front.Present && t.Rear.Present && len(t.Front.Travel) != len(t.Rear.Travel) {
		return nil, &DecodeError{Path: "Rear.Travel", Reason: "front and rear travel lengths differ"}
	}

	al, err := o.list("Airtimes", true)
	if err != nil {
		return nil, err
	}
	t.Airtimes = make([]Airtime, 0, len(al))
	for i, v := range al {
		ao, err := newObject(fmt.Sprintf("Airtimes[%d]", i), v)
		if err != nil {
			return nil, err
		}
		var at Airtime
		if at.Start, err = ao.float("Start"); err != nil {
			return nil, err
		}
		if at.End, err = ao.float("End"); err != nil {
			return nil, err
		}
		at.Extra = ao.extra()
		t.Airtimes = append(t.Airtimes, at)
	}

	t.Extra = o.extra()
	return &t, nil
}

func withExtra(extra map[string]interface{}, m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(extra)+len(m))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}

func encodeStrokes(strokes []*Stroke, sch schema) []interface{} {
	out := make([]interface{}, len(strokes))
	for i, s := range strokes {
		m := map[string]interface{}{
			"Start": s.Start,
			"End":   s.End - 1,
			"Stat": withExtra(s.Stat.Extra, map[string]interface{}{
				"SumTravel":   s.Stat.SumTravel,
				"MaxTravel":   s.Stat.MaxTravel,
				"SumVelocity": s.Stat.SumVelocity,
				"MaxVelocity": s.Stat.MaxVelocity,
				"Bottomouts":  s.Stat.Bottomouts,
				"Count":       s.Stat.Count,
			}),
			"DigitizedTravel":   s.DigitizedTravel,
			"DigitizedVelocity": s.DigitizedVelocity,
		}
		if s.FineDigitizedVelocity != nil || sch.fineRequired {
			m["FineDigitizedVelocity"] = s.FineDigitizedVelocity
		}
		out[i] = withExtra(s.Extra, m)
	}
	return out
}

func encodeSuspension(s *Suspension, sch schema) map[string]interface{} {
	cal := map[string]interface{}{
		"Name":   s.Calibration.Name,
		"Inputs": s.Calibration.Inputs,
	}
	if s.Calibration.binaryId {
		cal["MethodId"] = s.Calibration.MethodId[:]
	} else if s.Calibration.MethodId != uuid.Nil {
		cal["MethodId"] = s.Calibration.MethodId.String()
	}
	m := map[string]interface{}{
		"Present":     s.Present,
		"Calibration": withExtra(s.Calibration.Extra, cal),
		"Travel":      s.Travel,
		"Velocity":    s.Velocity,
		"Strokes": withExtra(s.Strokes.Extra, map[string]interface{}{
			"Compressions": encodeStrokes(s.Strokes.Compressions, sch),
			"Rebounds":     encodeStrokes(s.Strokes.Rebounds, sch),
		}),
		"TravelBins":   s.TravelBins,
		"VelocityBins": s.VelocityBins,
	}
	if s.FineVelocityBins != nil || sch.fineRequired {
		m["FineVelocityBins"] = s.FineVelocityBins
	}
	return withExtra(s.Extra, m)
}

// Encode writes t in the msgpack layout Decode reads. Optional fields that
// are nil are left out.
func Encode(t *Telemetry) ([]byte, error) {
	sch, ok := schemas[t.Version]
	if !ok {
		return nil, fmt.Errorf("unsupported PSST version %d", t.Version)
	}

	airtimes := make([]interface{}, len(t.Airtimes))
	for i, at := range t.Airtimes {
		airtimes[i] = withExtra(at.Extra, map[string]interface{}{"Start": at.Start, "End": at.End})
	}
	var lr []interface{}
	if t.Linkage.LeverageRatio != nil {
		lr = make([]interface{}, len(t.Linkage.LeverageRatio))
		for i, p := range t.Linkage.LeverageRatio {
			lr[i] = []float64{p[0], p[1]}
		}
	}
	m := withExtra(t.Extra, map[string]interface{}{
		"Name":       t.Name,
		"Version":    t.Version,
		"SampleRate": t.SampleRate,
		"Timestamp":  t.Timestamp,
		"Front":      encodeSuspension(&t.Front, sch),
		"Rear":       encodeSuspension(&t.Rear, sch),
		"Linkage": withExtra(t.Linkage.Extra, map[string]interface{}{
			"Name":             t.Linkage.Name,
			"HeadAngle":        t.Linkage.HeadAngle,
			"MaxFrontStroke":   t.Linkage.MaxFrontStroke,
			"MaxRearStroke":    t.Linkage.MaxRearStroke,
			"MaxFrontTravel":   t.Linkage.MaxFrontTravel,
			"MaxRearTravel":    t.Linkage.MaxRearTravel,
			"LeverageRatio":    lr,
			"ShockWheelCoeffs": t.Linkage.ShockWheelCoeffs,
		}),
		"Airtimes": airtimes,
	})

	var out []byte
	if err := codec.NewEncoderBytes(&out, newHandle()).Encode(m); err != nil {
		return nil, err
	}
	return out, nil
}
