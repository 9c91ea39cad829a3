package expression

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrSyntax          = errors.New("expression_syntax")
	ErrUnknownFunction = errors.New("unknown_function")
	ErrArity           = errors.New("invalid_arity")
)

// Evaluate parses and evaluates expression against variables. Values are
// nil, bool, float64 or string. Identifiers missing from variables evaluate
// to their own name.
func Evaluate(expression string, variables map[string]any) (any, error) {
	program, err := Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Eval(variables)
}

// Eval evaluates the program against variables.
func (p *Program) Eval(variables map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("evaluate %q: %v", p.source, r)
		}
	}()
	return p.root.eval(variables)
}

func (n *literalNode) eval(map[string]any) (any, error) {
	return n.value, nil
}

func (n *identNode) eval(vars map[string]any) (any, error) {
	if vars != nil {
		if v, ok := vars[n.name]; ok {
			return normalize(v), nil
		}
	}
	return n.name, nil
}

func (n *callNode) eval(vars map[string]any) (any, error) {
	fn, ok := functions[n.name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, n.name)
	}
	args := make([]any, 0, len(n.args))
	for _, arg := range n.args {
		v, err := arg.eval(vars)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return fn(n.name, args)
}

func (n *binaryNode) eval(vars map[string]any) (any, error) {
	left, err := n.left.eval(vars)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(vars)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "+":
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return ToString(left) + ToString(right), nil
		}
		return ToNumber(left) + ToNumber(right), nil
	case "-":
		return ToNumber(left) - ToNumber(right), nil
	case "*":
		return ToNumber(left) * ToNumber(right), nil
	case "/":
		divisor := ToNumber(right)
		if divisor == 0 {
			return nil, nil
		}
		return ToNumber(left) / divisor, nil
	case "=":
		return strictEqual(left, right), nil
	case "!=":
		return !strictEqual(left, right), nil
	case ">", "<", ">=", "<=":
		return compare(n.op, left, right), nil
	default:
		return nil, fmt.Errorf("%w: operator %s", ErrSyntax, n.op)
	}
}

func compare(op string, left, right any) bool {
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch op {
		case ">":
			return ls > rs
		case "<":
			return ls < rs
		case ">=":
			return ls >= rs
		default:
			return ls <= rs
		}
	}
	l, r := ToNumber(left), ToNumber(right)
	if math.IsNaN(l) || math.IsNaN(r) {
		return false
	}
	switch op {
	case ">":
		return l > r
	case "<":
		return l < r
	case ">=":
		return l >= r
	default:
		return l <= r
	}
}

func strictEqual(left, right any) bool {
	switch l := left.(type) {
	case nil:
		return right == nil
	case float64:
		r, ok := right.(float64)
		return ok && l == r
	case string:
		r, ok := right.(string)
		return ok && l == r
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	default:
		return false
	}
}
