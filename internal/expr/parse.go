package expr

import (
	"errors"
	"fmt"

	"github.com/antonmedv/expr/ast"
	"github.com/antonmedv/expr/file"
	"github.com/antonmedv/expr/parser"
)

var binaryOperators = map[string]byte{
	"+": '+',
	"-": '-',
	"*": '*',
	"/": '/',
	"%": '%',
	"^": '^',
}

// Parse turns a formula into its syntax tree. Precedence, lowest first:
// + -, then * / %, then unary -, then ^ (right associative). Anything else
// the underlying expression language accepts (comparisons, strings, member
// access, closures, **) is a syntax error here.
func Parse(src string) (Node, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		var fe *file.Error
		if errors.As(err, &fe) {
			return nil, &SyntaxError{Pos: fe.Column, Msg: fe.Message}
		}
		return nil, &SyntaxError{Msg: err.Error()}
	}
	return convert(tree.Node)
}

func unsupported(n ast.Node, what string) error {
	return &SyntaxError{Pos: n.Location().Column, Msg: what + " is not supported"}
}

func convert(n ast.Node) (Node, error) {
	switch n := n.(type) {
	case *ast.IntegerNode:
		return Const{Value: float64(n.Value)}, nil
	case *ast.FloatNode:
		return Const{Value: n.Value}, nil
	case *ast.IdentifierNode:
		return Name{Ident: n.Value}, nil
	case *ast.UnaryNode:
		operand, err := convert(n.Node)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return UnaryOp{Op: '-', Operand: operand}, nil
		case "+":
			return operand, nil
		}
		return nil, unsupported(n, fmt.Sprintf("operator '%s'", n.Operator))
	case *ast.BinaryNode:
		op, ok := binaryOperators[n.Operator]
		if !ok {
			return nil, unsupported(n, fmt.Sprintf("operator '%s'", n.Operator))
		}
		left, err := convert(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := convert(n.Right)
		if err != nil {
			return nil, err
		}
		return BinOp{Op: op, Left: left, Right: right}, nil
	case *ast.CallNode:
		callee, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, unsupported(n, "method call")
		}
		args := make([]Node, len(n.Arguments))
		for i, a := range n.Arguments {
			arg, err := convert(a)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return Call{Func: callee.Value, Args: args}, nil
	default:
		return nil, unsupported(n, fmt.Sprintf("%T", n))
	}
}
