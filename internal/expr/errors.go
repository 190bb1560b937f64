package expr

import "fmt"

type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("undefined name '%s'", e.Name)
}

type CallError struct {
	Func string
	Msg  string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("cannot call '%s': %s", e.Func, e.Msg)
}

// ArithmeticError reports division or modulo by zero, and any operation whose
// result is not a finite number (e.g. acos(2), sqrt(-1)).
type ArithmeticError struct {
	Expr string
	Msg  string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("%s in %s", e.Msg, e.Expr)
}
