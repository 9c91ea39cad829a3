package expression

import (
	"fmt"
	"math"
	"strings"
)

type function func(name string, args []any) (any, error)

var functions map[string]function

func init() {
	functions = map[string]function{
		"IF":       fnIf,
		"AND":      fnAnd,
		"OR":       fnOr,
		"NOT":      fnNot,
		"SUM":      fnSum,
		"MULTIPLY": fnMultiply,
		"DIVIDE":   fnDivide,
		"CONCAT":   fnConcat,
		"UPPER":    stringFn(strings.ToUpper),
		"LOWER":    stringFn(strings.ToLower),
		"TRIM":     stringFn(strings.TrimSpace),
		"ROUND":    fnRound,
		"CEIL":     numberFn(math.Ceil),
		"FLOOR":    numberFn(math.Floor),
		"ABS":      numberFn(math.Abs),
		"MAX":      extremumFn(math.Max),
		"MIN":      extremumFn(math.Min),
	}
}

// Functions lists the supported function names.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	return names
}

func arity(name string, args []any, want int) error {
	if len(args) != want {
		return fmt.Errorf("%w: %s expects %d arguments, got %d", ErrArity, name, want, len(args))
	}
	return nil
}

func fnIf(name string, args []any) (any, error) {
	if err := arity(name, args, 3); err != nil {
		return nil, err
	}
	if Truthy(args[0]) {
		return args[1], nil
	}
	return args[2], nil
}

func fnAnd(_ string, args []any) (any, error) {
	for _, arg := range args {
		if !Truthy(arg) {
			return false, nil
		}
	}
	return true, nil
}

func fnOr(_ string, args []any) (any, error) {
	for _, arg := range args {
		if Truthy(arg) {
			return true, nil
		}
	}
	return false, nil
}

func fnNot(_ string, args []any) (any, error) {
	if len(args) == 0 {
		return true, nil
	}
	return !Truthy(args[0]), nil
}

func fnSum(_ string, args []any) (any, error) {
	total := 0.0
	for _, arg := range args {
		total += ToNumber(arg)
	}
	return total, nil
}

// nil factors are skipped so a missing value does not zero the product.
func fnMultiply(_ string, args []any) (any, error) {
	product := 1.0
	for _, arg := range args {
		if arg == nil {
			continue
		}
		product *= ToNumber(arg)
	}
	return product, nil
}

func fnDivide(name string, args []any) (any, error) {
	if err := arity(name, args, 2); err != nil {
		return nil, err
	}
	divisor := ToNumber(args[1])
	if divisor == 0 {
		return nil, nil
	}
	return ToNumber(args[0]) / divisor, nil
}

func fnConcat(_ string, args []any) (any, error) {
	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(ToString(arg))
	}
	return sb.String(), nil
}

func stringFn(fn func(string) string) function {
	return func(_ string, args []any) (any, error) {
		if len(args) == 0 {
			return "", nil
		}
		return fn(ToString(args[0])), nil
	}
}

func numberFn(fn func(float64) float64) function {
	return func(_ string, args []any) (any, error) {
		if len(args) == 0 {
			return nil, nil
		}
		return fn(ToNumber(args[0])), nil
	}
}

// ROUND(x) rounds half up; ROUND(x, digits) keeps digits decimals.
func fnRound(_ string, args []any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	x := ToNumber(args[0])
	digits := 0.0
	if len(args) > 1 {
		digits = math.Trunc(ToNumber(args[1]))
	}
	scale := math.Pow(10, digits)
	return math.Floor(x*scale+0.5) / scale, nil
}

func extremumFn(pick func(a, b float64) float64) function {
	return func(_ string, args []any) (any, error) {
		if len(args) == 0 {
			return nil, nil
		}
		result := ToNumber(args[0])
		for _, arg := range args[1:] {
			result = pick(result, ToNumber(arg))
		}
		return result, nil
	}
}
