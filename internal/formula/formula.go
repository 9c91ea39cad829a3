package formula

import (
	"math"

	cfdomain "github.com/smallbiznis/imobi360/internal/customfield/domain"
	"github.com/smallbiznis/imobi360/internal/expression"
	"github.com/smallbiznis/imobi360/internal/record"
)

// Result is the outcome of evaluating one formula.
type Result struct {
	Success bool   `json:"success"`
	Value   any    `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EvaluateFormula evaluates cfg against rec. Each dependency path becomes a
// variable named after the path; missing paths evaluate to null.
func EvaluateFormula(cfg cfdomain.FormulaConfig, rec map[string]any) Result {
	variables := make(map[string]any, len(cfg.Dependencies))
	for _, dep := range cfg.Dependencies {
		variables[dep] = record.Value(rec, dep)
	}

	value, err := expression.Evaluate(cfg.Expression, variables)
	if err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true, Value: CoerceToType(value, cfg.ReturnType)}
}

// CoerceToType casts value to a formula return type. null stays null, and
// numbers that cannot be represented in JSON become null.
func CoerceToType(value any, returnType string) any {
	if value == nil {
		return nil
	}
	switch returnType {
	case cfdomain.ReturnNumber:
		f := expression.ToNumber(value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case cfdomain.ReturnString:
		return expression.ToString(value)
	case cfdomain.ReturnBoolean:
		return expression.Truthy(value)
	default:
		return value
	}
}
