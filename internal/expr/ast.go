// Package expr implements the formula language used by calibration methods.
//
// A formula is parsed once into a small typed tree and then evaluated
// against an immutable Env any number of times. Only literals, names, the
// arithmetic operators + - * / % ^, unary minus and calls to a fixed table of
// one-argument math functions are supported.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type Node interface {
	fmt.Stringer
	node()
}

type Const struct {
	Value float64
}

type Name struct {
	Ident string
}

type BinOp struct {
	Op    byte
	Left  Node
	Right Node
}

type UnaryOp struct {
	Op      byte
	Operand Node
}

type Call struct {
	Func string
	Args []Node
}

func (Const) node()   {}
func (Name) node()    {}
func (BinOp) node()   {}
func (UnaryOp) node() {}
func (Call) node()    {}

func (this Const) String() string {
	return strconv.FormatFloat(this.Value, 'g', -1, 64)
}

func (this Name) String() string {
	return this.Ident
}

func (this BinOp) String() string {
	return "(" + this.Left.String() + " " + string(this.Op) + " " + this.Right.String() + ")"
}

func (this UnaryOp) String() string {
	return "(" + string(this.Op) + this.Operand.String() + ")"
}

func (this Call) String() string {
	args := make([]string, len(this.Args))
	for i, a := range this.Args {
		args[i] = a.String()
	}
	return this.Func + "(" + strings.Join(args, ", ") + ")"
}
