package evaluator_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gospel/pkg/evaluator"
	"github.com/sandrolain/gospel/pkg/functions"
	"github.com/sandrolain/gospel/pkg/parser"
	"github.com/sandrolain/gospel/pkg/types"
)

// eval compiles and evaluates source against a fresh context rooted at root.
func eval(t *testing.T, source string, root interface{}) (interface{}, error) {
	t.Helper()
	return evalCtx(t, source, evaluator.NewEvaluationContext(root))
}

func evalCtx(t *testing.T, source string, ectx *evaluator.EvaluationContext) (interface{}, error) {
	t.Helper()
	expr, err := parser.Parse(source)
	require.NoError(t, err)
	return evaluator.New().Eval(context.Background(), expr, ectx)
}

func TestEvalLiterals(t *testing.T) {
	tests := []struct {
		source string
		want   interface{}
	}{
		{"42", int64(42)},
		{"3.14", 3.14},
		{`"hello"`, "hello"},
		{"true", true},
		{"false", false},
		{"null", nil},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			v, err := eval(t, tt.source, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		source string
		want   interface{}
	}{
		{"2 + 3 * 4", int64(14)},
		{"(2 + 3) * 4", int64(20)},
		{"10 - 3 - 2", int64(5)},
		{"10 / 4", int64(2)}, // integer division for integer operands
		{"10.0 / 4", 2.5},
		{"10 % 3", int64(1)},
		{"7.5 % 2", 1.5},
		{"-5 + 3", int64(-2)},
		{"2 + 2.5", 4.5},
		{"-(2 + 3)", int64(-5)},
		{"-1.5", -1.5},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			v, err := eval(t, tt.source, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestEvalStringConcatenation(t *testing.T) {
	v, err := eval(t, `"a" + "b"`, nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", v)

	// A string operand stringifies the other side
	v, err = eval(t, `"total: " + 42`, nil)
	require.NoError(t, err)
	assert.Equal(t, "total: 42", v)

	v, err = eval(t, `1 + "st"`, nil)
	require.NoError(t, err)
	assert.Equal(t, "1st", v)
}

func TestEvalDivisionByZero(t *testing.T) {
	for _, source := range []string{"1 / 0", "1 % 0", "1.5 / 0.0", "1.5 % 0.0"} {
		t.Run(source, func(t *testing.T) {
			_, err := eval(t, source, nil)
			require.Error(t, err)
			assert.Equal(t, types.ErrDivisionByZero, types.CodeOf(err))
		})
	}
}

func TestEvalComparisons(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"2 < 3", true},
		{"3 <= 3", true},
		{"4 > 5", false},
		{"5 >= 5", true},
		{"2 < 2.5", true},
		{`"abc" < "abd"`, true},
		{"1 == 1", true},
		{"1 = 1", true}, // single = is equality
		{"1 == 2", false},
		{"1 != 2", true},
		{"2 == 2.0", true}, // numbers compare across shapes
		{`"a" == "a"`, true},
		{`"a" != "b"`, true},
		{"null == null", true},
		{"null == 1", false},
		{"true == true", true},
		{"true == 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			v, err := eval(t, tt.source, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestEvalBooleanOperators(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"true and true", true},
		{"true and false", false},
		{"false or true", true},
		{"false or false", false},
		{"!true", false},
		{"not false", true},
		{"true and true or false", true},
		{`"TRUE" and true`, true}, // operands coerce to boolean
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			v, err := eval(t, tt.source, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestEvalShortCircuit(t *testing.T) {
	calls := 0
	ectx := evaluator.NewEvaluationContext(nil)
	ectx.SetVariable("probe", functions.NewGoFunction("probe",
		func(ctx context.Context, args ...interface{}) (interface{}, error) {
			calls++
			return true, nil
		}))

	// AND with a false left operand never evaluates the right
	v, err := evalCtx(t, "false and #probe()", ectx)
	require.NoError(t, err)
	assert.Equal(t, false, v)
	assert.Zero(t, calls)

	// OR with a true left operand never evaluates the right
	v, err = evalCtx(t, "true or #probe()", ectx)
	require.NoError(t, err)
	assert.Equal(t, true, v)
	assert.Zero(t, calls)

	// Without short-circuit the right operand runs
	_, err = evalCtx(t, "true and #probe()", ectx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestEvalShortCircuitSuppressesErrors(t *testing.T) {
	// The right operand would fail; with a false left operand it never runs
	v, err := eval(t, "false and #missing", nil)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestEvalErrorPositions(t *testing.T) {
	// An undefined variable error is stamped with the variable's own position
	source := "true and #bad"
	_, err := eval(t, source, nil)
	require.Error(t, err)

	var serr *types.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, types.ErrVariableNotFound, serr.Code)
	assert.Equal(t, strings.Index(source, "bad"), serr.Position)
}

func TestEvalCoercionErrorPosition(t *testing.T) {
	// The right operand does not coerce to boolean; the error carries the
	// right operand's position, not the operator's
	source := "true and 5"
	_, err := eval(t, source, nil)
	require.Error(t, err)

	var serr *types.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, types.ErrTypeConversion, serr.Code)
	assert.Equal(t, strings.Index(source, "5"), serr.Position)
}

func TestEvalTernary(t *testing.T) {
	v, err := eval(t, `1 < 2 ? "yes" : "no"`, nil)
	require.NoError(t, err)
	assert.Equal(t, "yes", v)

	v, err = eval(t, `1 > 2 ? "yes" : "no"`, nil)
	require.NoError(t, err)
	assert.Equal(t, "no", v)

	// Exactly one branch is evaluated: the untaken branch may be invalid
	v, err = eval(t, "true ? 1 : #missing", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = eval(t, "false ? #missing : 2", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// The condition coerces to boolean
	v, err = eval(t, `"true" ? 1 : 2`, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestEvalMatches(t *testing.T) {
	v, err := eval(t, `"hello" matches "h.*o"`, nil)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = eval(t, `"hello" matches "^x"`, nil)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	// A malformed pattern fails with the pattern's position
	source := `"a" matches "["`
	_, err = eval(t, source, nil)
	require.Error(t, err)

	var serr *types.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, types.ErrBadRegex, serr.Code)
	assert.Equal(t, strings.Index(source, `"["`)+1, serr.Position)
}

func TestEvalPropertyNavigation(t *testing.T) {
	root := map[string]interface{}{
		"order": map[string]interface{}{
			"total": 184.5,
			"customer": map[string]interface{}{
				"name": "Ada",
			},
		},
	}

	v, err := eval(t, "order.total", root)
	require.NoError(t, err)
	assert.Equal(t, 184.5, v)

	v, err = eval(t, "order.customer.name", root)
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)

	v, err = eval(t, "order.total > 100", root)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEvalNavigationErrorPosition(t *testing.T) {
	root := map[string]interface{}{
		"order": map[string]interface{}{"total": 1.0},
	}

	source := "order.shipping.cost"
	_, err := eval(t, source, root)
	require.Error(t, err)

	var serr *types.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, types.ErrPropertyRead, serr.Code)
	assert.Equal(t, strings.Index(source, "shipping"), serr.Position)
}

// The active context object changes per navigation step and is restored
// afterwards: a property in a later part of the expression still resolves
// against the root.
func TestEvalContextObjectRestored(t *testing.T) {
	root := map[string]interface{}{
		"a":    map[string]interface{}{"b": int64(1)},
		"flat": int64(2),
	}
	v, err := eval(t, "a.b + flat", root)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestEvalStructNavigation(t *testing.T) {
	type inner struct{ Name string }
	type outer struct {
		Inner inner
		Count int64
	}
	root := &outer{Inner: inner{Name: "x"}, Count: 3}

	v, err := eval(t, "Inner.Name", root)
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	// Lower-case names match exported fields
	v, err = eval(t, "count + 1", root)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
}

func TestEvalVariables(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	ectx.SetVariable("threshold", int64(100))
	ectx.SetVariable("vip", true)

	v, err := evalCtx(t, "#threshold * 2", ectx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), v)

	v, err = evalCtx(t, "#vip and #threshold > 50", ectx)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = evalCtx(t, "#undefined", ectx)
	require.Error(t, err)
	assert.Equal(t, types.ErrVariableNotFound, types.CodeOf(err))
}

func TestEvalTypeRef(t *testing.T) {
	v, err := eval(t, "T(int)", nil)
	require.NoError(t, err)
	assert.Equal(t, "int64", v.(interface{ String() string }).String())

	source := "T(starship)"
	_, err = eval(t, source, nil)
	require.Error(t, err)

	var serr *types.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, types.ErrTypeNotFound, serr.Code)
	assert.Equal(t, 0, serr.Position)
}

func TestEvalGoFunction(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	ectx.SetVariable("max", functions.NewGoFunction("max",
		func(ctx context.Context, args ...interface{}) (interface{}, error) {
			a, b := args[0].(int64), args[1].(int64)
			if a > b {
				return a, nil
			}
			return b, nil
		}))

	v, err := evalCtx(t, "#max(2, 7) + 1", ectx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)
}

func TestEvalExpressionFunction(t *testing.T) {
	body, err := parser.Parse("#a + #b")
	require.NoError(t, err)

	ectx := evaluator.NewEvaluationContext(nil)
	ectx.SetVariable("sum", functions.NewExprFunction("sum", []string{"a", "b"}, body.AST()))

	v, err := evalCtx(t, "#sum(2, 3)", ectx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	// Wrong argument count
	_, err = evalCtx(t, "#sum(1)", ectx)
	require.Error(t, err)
	assert.Equal(t, types.ErrArgumentCount, types.CodeOf(err))
}

func TestEvalExpressionFunctionScoping(t *testing.T) {
	// The parameter binding shadows a context variable of the same name
	// for the duration of the call only.
	body, err := parser.Parse("#x * 10")
	require.NoError(t, err)

	ectx := evaluator.NewEvaluationContext(nil)
	ectx.SetVariable("x", int64(1))
	ectx.SetVariable("tenfold", functions.NewExprFunction("tenfold", []string{"x"}, body.AST()))

	v, err := evalCtx(t, "#tenfold(5) + #x", ectx)
	require.NoError(t, err)
	assert.Equal(t, int64(51), v)
}

func TestEvalCallNonFunction(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	ectx.SetVariable("notfn", 42)

	_, err := evalCtx(t, "#notfn()", ectx)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotInvocable, types.CodeOf(err))

	_, err = evalCtx(t, "#nosuch()", ectx)
	require.Error(t, err)
	assert.Equal(t, types.ErrVariableNotFound, types.CodeOf(err))
}

func TestEvalFunctionRegistry(t *testing.T) {
	reg := functions.NewRegistry()
	reg.Register(functions.NewGoFunction("double",
		func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return args[0].(int64) * 2, nil
		}))

	ectx := evaluator.NewEvaluationContext(nil)
	reg.InstallInto(ectx)

	v, err := evalCtx(t, "#double(21)", ectx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestEvalMaxDepth(t *testing.T) {
	// A long left-leaning operator chain exceeds a small depth limit
	source := "1" + strings.Repeat(" + 1", 20)
	expr, err := parser.Parse(source)
	require.NoError(t, err)

	e := evaluator.New(evaluator.WithMaxDepth(5))
	_, err = e.Eval(context.Background(), expr, evaluator.NewEvaluationContext(nil))
	require.Error(t, err)
	assert.Equal(t, types.ErrMaxDepth, types.CodeOf(err))

	// The same expression evaluates fine with the default limit
	v, err := evaluator.New().Eval(context.Background(), expr, evaluator.NewEvaluationContext(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(21), v)
}

func TestEvalCancellation(t *testing.T) {
	expr, err := parser.Parse("1 + 2")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = evaluator.New().Eval(ctx, expr, evaluator.NewEvaluationContext(nil))
	require.ErrorIs(t, err, context.Canceled)
}

func TestEvalTimeout(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	ectx.SetVariable("sleep", functions.NewGoFunction("sleep",
		func(ctx context.Context, args ...interface{}) (interface{}, error) {
			time.Sleep(50 * time.Millisecond)
			return true, nil
		}))

	expr, err := parser.Parse("#sleep() and true")
	require.NoError(t, err)

	e := evaluator.New(evaluator.WithTimeout(5 * time.Millisecond))
	_, err = e.Eval(context.Background(), expr, ectx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEvalUnaryErrors(t *testing.T) {
	_, err := eval(t, `-"abc"`, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrOperatorNotSupported, types.CodeOf(err))

	_, err = eval(t, "!5", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrTypeConversion, types.CodeOf(err))
}

func TestEvalOperatorOverloadFallback(t *testing.T) {
	// Operand pairs outside the built-in domains fail without an overloader
	ectx := evaluator.NewEvaluationContext(nil)
	ectx.SetVariable("a", []int{1})
	ectx.SetVariable("b", []int{2})

	_, err := evalCtx(t, "#a + #b", ectx)
	require.Error(t, err)
	assert.Equal(t, types.ErrOperatorNotSupported, types.CodeOf(err))

	// ...and succeed once one claims the pair
	ectx.SetOperatorOverloader(sliceConcatOverloader{})
	v, err := evalCtx(t, "#a + #b", ectx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, v)
}

func TestEvalDebugLoggingIsTransparent(t *testing.T) {
	expr, err := parser.Parse("1 + 1")
	require.NoError(t, err)

	e := evaluator.New(evaluator.WithDebug(true))
	v, err := e.Eval(context.Background(), expr, evaluator.NewEvaluationContext(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestEvalConcurrentUse(t *testing.T) {
	// One compiled expression, many goroutines, private contexts
	expr, err := parser.Parse("n * 2")
	require.NoError(t, err)

	e := evaluator.New()
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(n int64) {
			ectx := evaluator.NewEvaluationContext(map[string]interface{}{"n": n})
			v, err := e.Eval(context.Background(), expr, ectx)
			if err == nil && v != n*2 {
				err = assert.AnError
			}
			done <- err
		}(int64(i))
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}
