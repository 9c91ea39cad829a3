package expression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateConditional(t *testing.T) {
	got, err := Evaluate("IF(value>=100,'high','low')", map[string]any{"value": 150})
	require.NoError(t, err)
	assert.Equal(t, "high", got)

	got, err = Evaluate("IF(value>=100,'high','low')", map[string]any{"value": 99.5})
	require.NoError(t, err)
	assert.Equal(t, "low", got)
}

func TestEvaluateArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		vars map[string]any
		want any
	}{
		{"value * 2", map[string]any{"value": int64(3)}, 6.0},
		{"a - b + c", map[string]any{"a": 10, "b": 3, "c": 2}, 9.0},
		{"10 - 2 - 3", nil, 5.0},
		{"-5 + 2", nil, -3.0},
		{"10 / 4", nil, 2.5},
		{"10 / 0", nil, nil},
		{"'R$ ' + price", map[string]any{"price": 1500}, "R$ 1500"},
		{"(1 + 2) * 3", nil, 9.0},
	}
	for _, tc := range cases {
		got, err := Evaluate(tc.expr, tc.vars)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.want, got, tc.expr)
	}
}

func TestOperatorCategoryPriority(t *testing.T) {
	// comparison binds tighter than addition: 1 + (2 > 2)
	got, err := Evaluate("1 + 2 > 2", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestEvaluateComparisons(t *testing.T) {
	got, err := Evaluate("status = 'won'", map[string]any{"status": "won"})
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = Evaluate("5 = '5'", nil)
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = Evaluate("value != null", map[string]any{"value": nil})
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestUnresolvedIdentifierIsReturnedVerbatim(t *testing.T) {
	got, err := Evaluate("contact.name", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "contact.name", got)

	got, err = Evaluate("contact.name", map[string]any{"contact.name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", got)
}

func TestEvaluateFunctions(t *testing.T) {
	cases := []struct {
		expr string
		want any
	}{
		{"CONCAT(UPPER('a'), 'b, c')", "Ab, c"},
		{"LOWER('ABC')", "abc"},
		{"TRIM('  x ')", "x"},
		{"SUM(1, 2, 3)", 6.0},
		{"MULTIPLY(2, 3, 4)", 24.0},
		{"DIVIDE(10, 4)", 2.5},
		{"DIVIDE(10, 0)", nil},
		{"ROUND(2.5)", 3.0},
		{"ROUND(1.2345, 2)", 1.23},
		{"CEIL(1.1)", 2.0},
		{"FLOOR(1.9)", 1.0},
		{"ABS(-3)", 3.0},
		{"MAX(1, 5, 3)", 5.0},
		{"MIN(4, -1, 3)", -1.0},
		{"AND(true, 1, 'x')", true},
		{"OR(false, 0, '')", false},
		{"NOT(false)", true},
		{"IF(AND(1 > 0, 2 > 1), 'ok', 'no')", "ok"},
	}
	for _, tc := range cases {
		got, err := Evaluate(tc.expr, nil)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.want, got, tc.expr)
	}
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate("UNKNOWN_FN(1)", nil)
	assert.True(t, errors.Is(err, ErrUnknownFunction))

	_, err = Evaluate("IF(1, 2)", nil)
	assert.True(t, errors.Is(err, ErrArity))

	_, err = Evaluate("DIVIDE(1)", nil)
	assert.True(t, errors.Is(err, ErrArity))

	for _, expr := range []string{"", "1 +", "CONCAT('a'", "'open", "1 # 2"} {
		_, err = Evaluate(expr, nil)
		assert.True(t, errors.Is(err, ErrSyntax), expr)
	}
}

func TestCompiledProgramIsReusable(t *testing.T) {
	program, err := Compile("value * rate")
	require.NoError(t, err)
	assert.Equal(t, "value * rate", program.Source())

	a, err := program.Eval(map[string]any{"value": 100, "rate": 0.1})
	require.NoError(t, err)
	b, err := program.Eval(map[string]any{"value": 200, "rate": 0.1})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, a, 1e-9)
	assert.InDelta(t, 20.0, b, 1e-9)
}
