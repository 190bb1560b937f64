package expr

import (
	"math"
	"sort"
)

// SAMPLE is bound by Eval on every call and is never stored in an Env.
const SAMPLE = "sample"

var functions = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"asin": math.Asin,
	"acos": math.Acos,
	"atan": math.Atan,
	"sqrt": math.Sqrt,
}

// Env is an immutable set of name bindings. The zero value holds only the
// built-in constants.
type Env struct {
	vars map[string]float64
}

func NewEnv(vars map[string]float64) Env {
	m := make(map[string]float64, len(vars)+1)
	m["pi"] = math.Pi
	for k, v := range vars {
		m[k] = v
	}
	return Env{vars: m}
}

// With returns a copy of the environment with name bound to value.
func (this Env) With(name string, value float64) Env {
	m := make(map[string]float64, len(this.vars)+1)
	for k, v := range this.vars {
		m[k] = v
	}
	m[name] = value
	if _, ok := m["pi"]; !ok {
		m["pi"] = math.Pi
	}
	return Env{vars: m}
}

func (this Env) Lookup(name string) (float64, bool) {
	if this.vars == nil {
		if name == "pi" {
			return math.Pi, true
		}
		return 0, false
	}
	v, ok := this.vars[name]
	return v, ok
}

func (this Env) Names() []string {
	names := make([]string, 0, len(this.vars))
	for k := range this.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

// Check resolves every name and call in n against env without evaluating
// anything.
func Check(n Node, env Env) error {
	switch n := n.(type) {
	case Const:
		return nil
	case Name:
		if n.Ident == SAMPLE {
			return nil
		}
		if _, ok := env.Lookup(n.Ident); !ok {
			return &NameError{Name: n.Ident}
		}
		return nil
	case UnaryOp:
		return Check(n.Operand, env)
	case BinOp:
		if err := Check(n.Left, env); err != nil {
			return err
		}
		return Check(n.Right, env)
	case Call:
		if _, ok := functions[n.Func]; !ok {
			return &CallError{Func: n.Func, Msg: "not a built-in function"}
		}
		if len(n.Args) != 1 {
			return &CallError{Func: n.Func, Msg: "takes exactly one argument"}
		}
		return Check(n.Args[0], env)
	}
	return &SyntaxError{Msg: "unknown node"}
}

func finite(n Node, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ArithmeticError{Expr: n.String(), Msg: "result is not a finite number"}
	}
	return v, nil
}

// Eval computes the value of n. The name "sample" evaluates to sample.
func Eval(n Node, env Env, sample float64) (float64, error) {
	switch n := n.(type) {
	case Const:
		return n.Value, nil
	case Name:
		if n.Ident == SAMPLE {
			return sample, nil
		}
		v, ok := env.Lookup(n.Ident)
		if !ok {
			return 0, &NameError{Name: n.Ident}
		}
		return v, nil
	case UnaryOp:
		v, err := Eval(n.Operand, env, sample)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case BinOp:
		l, err := Eval(n.Left, env, sample)
		if err != nil {
			return 0, err
		}
		r, err := Eval(n.Right, env, sample)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case '+':
			return finite(n, l+r)
		case '-':
			return finite(n, l-r)
		case '*':
			return finite(n, l*r)
		case '/':
			if r == 0 {
				return 0, &ArithmeticError{Expr: n.String(), Msg: "division by zero"}
			}
			return finite(n, l/r)
		case '%':
			if r == 0 {
				return 0, &ArithmeticError{Expr: n.String(), Msg: "modulo by zero"}
			}
			m := math.Mod(l, r)
			// Result takes the sign of the divisor.
			if m != 0 && (m < 0) != (r < 0) {
				m += r
			}
			return finite(n, m)
		case '^':
			return finite(n, math.Pow(l, r))
		}
		return 0, &SyntaxError{Msg: "unknown operator '" + string(n.Op) + "'"}
	case Call:
		f, ok := functions[n.Func]
		if !ok {
			return 0, &CallError{Func: n.Func, Msg: "not a built-in function"}
		}
		if len(n.Args) != 1 {
			return 0, &CallError{Func: n.Func, Msg: "takes exactly one argument"}
		}
		a, err := Eval(n.Args[0], env, sample)
		if err != nil {
			return 0, err
		}
		return finite(n, f(a))
	}
	return 0, &SyntaxError{Msg: "unknown node"}
}
