package evaluator

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"regexp"

	"github.com/sandrolain/gospel/pkg/types"
)

// evalBinary evaluates a binary operator expression.
//
// Each operator owns its own short-circuit and coercion policy: "and"
// short-circuits on false, "or" on true, and everything else evaluates both
// operands. There is no generic "short-circuit if falsy" rule.
func (e *Evaluator) evalBinary(ctx context.Context, node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	op := node.StrValue

	// Boolean operators evaluate their operands lazily
	switch op {
	case "and":
		return e.evalAnd(ctx, node, state)
	case "or":
		return e.evalOr(ctx, node, state)
	}

	// Everything else evaluates both sides
	left, err := e.evalNode(ctx, node.LHS, state)
	if err != nil {
		return nil, types.StampPosition(err, node.LHS.Position)
	}

	right, err := e.evalNode(ctx, node.RHS, state)
	if err != nil {
		return nil, types.StampPosition(err, node.RHS.Position)
	}

	var result interface{}
	switch op {
	case "==":
		return opEqual(left, right), nil
	case "!=":
		return !opEqual(left, right), nil
	case "<", "<=", ">", ">=":
		result, err = e.opCompare(op, left, right, state)
	case "+":
		result, err = e.opAdd(left, right, state)
	case "-":
		result, err = e.opArithmetic(OpSubtract, left, right, state)
	case "*":
		result, err = e.opArithmetic(OpMultiply, left, right, state)
	case "/":
		result, err = e.opArithmetic(OpDivide, left, right, state)
	case "%":
		result, err = e.opArithmetic(OpModulo, left, right, state)
	case "matches":
		result, err = e.opMatches(left, right, node, state)
	default:
		return nil, fmt.Errorf("unsupported binary operator: %s", op)
	}

	if err != nil {
		return nil, types.StampPosition(err, node.Position)
	}
	return result, nil
}

// evalAnd evaluates logical AND.
//
// The left operand is evaluated and coerced to boolean first; when it is
// false the right operand is never evaluated, so its side effects provably
// do not occur. A coercion failure is stamped with the failing operand's
// position.
func (e *Evaluator) evalAnd(ctx context.Context, node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	left, err := e.evalNode(ctx, node.LHS, state)
	if err != nil {
		return nil, types.StampPosition(err, node.LHS.Position)
	}
	leftValue, err := coerceToBool(state, left)
	if err != nil {
		return nil, types.StampPosition(err, node.LHS.Position)
	}

	if !leftValue {
		return false, nil // no need to evaluate the right operand
	}

	right, err := e.evalNode(ctx, node.RHS, state)
	if err != nil {
		return nil, types.StampPosition(err, node.RHS.Position)
	}
	rightValue, err := coerceToBool(state, right)
	if err != nil {
		return nil, types.StampPosition(err, node.RHS.Position)
	}

	return rightValue, nil
}

// evalOr evaluates logical OR, short-circuiting on a true left operand.
func (e *Evaluator) evalOr(ctx context.Context, node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	left, err := e.evalNode(ctx, node.LHS, state)
	if err != nil {
		return nil, types.StampPosition(err, node.LHS.Position)
	}
	leftValue, err := coerceToBool(state, left)
	if err != nil {
		return nil, types.StampPosition(err, node.LHS.Position)
	}

	if leftValue {
		return true, nil // no need to evaluate the right operand
	}

	right, err := e.evalNode(ctx, node.RHS, state)
	if err != nil {
		return nil, types.StampPosition(err, node.RHS.Position)
	}
	rightValue, err := coerceToBool(state, right)
	if err != nil {
		return nil, types.StampPosition(err, node.RHS.Position)
	}

	return rightValue, nil
}

// evalUnary evaluates a prefix operator expression.
func (e *Evaluator) evalUnary(ctx context.Context, node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	operand, err := e.evalNode(ctx, node.LHS, state)
	if err != nil {
		return nil, types.StampPosition(err, node.LHS.Position)
	}

	switch node.StrValue {
	case "-":
		switch v := operand.(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		}
		if f, ok := asFloat64(operand); ok {
			return -f, nil
		}
		return nil, types.NewError(types.ErrOperatorNotSupported,
			fmt.Sprintf("unary - not supported on %T", operand), node.Position)
	case "!":
		b, err := coerceToBool(state, operand)
		if err != nil {
			return nil, types.StampPosition(err, node.LHS.Position)
		}
		return !b, nil
	default:
		return nil, fmt.Errorf("unsupported unary operator: %s", node.StrValue)
	}
}

// evalTernary evaluates cond ? then : else. The condition is coerced to
// boolean and exactly one branch is evaluated.
func (e *Evaluator) evalTernary(ctx context.Context, node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	cond, err := e.evalNode(ctx, node.LHS, state)
	if err != nil {
		return nil, types.StampPosition(err, node.LHS.Position)
	}
	condValue, err := coerceToBool(state, cond)
	if err != nil {
		return nil, types.StampPosition(err, node.LHS.Position)
	}

	if condValue {
		value, err := e.evalNode(ctx, node.RHS, state)
		if err != nil {
			return nil, types.StampPosition(err, node.RHS.Position)
		}
		return value, nil
	}

	value, err := e.evalNode(ctx, node.Else, state)
	if err != nil {
		return nil, types.StampPosition(err, node.Else.Position)
	}
	return value, nil
}

// coerceToBool converts a value to boolean through the context's converter.
// Shared by the boolean operators, NOT and the ternary condition.
func coerceToBool(state *ExpressionState, value interface{}) (bool, error) {
	converted, err := state.ConvertValue(value, KindBool)
	if err != nil {
		return false, err
	}
	return converted.(bool), nil
}

// opEqual compares two values for equality. Numbers compare across int and
// float shapes, nils and booleans compare directly, everything else falls
// back to deep equality.
func opEqual(left, right interface{}) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}

	lBool, lIsBool := left.(bool)
	rBool, rIsBool := right.(bool)
	if lIsBool || rIsBool {
		return lIsBool && rIsBool && lBool == rBool
	}

	if KindOf(left) == KindInt && KindOf(right) == KindInt {
		li, _ := asInt64(left)
		ri, _ := asInt64(right)
		return li == ri
	}
	lNum, lIsNum := numericValue(left)
	rNum, rIsNum := numericValue(right)
	if lIsNum && rIsNum {
		return lNum == rNum
	}

	lStr, lIsStr := left.(string)
	rStr, rIsStr := right.(string)
	if lIsStr && rIsStr {
		return lStr == rStr
	}

	return reflect.DeepEqual(left, right)
}

// opCompare evaluates a relational operator. Numbers and strings have
// built-in orderings; any other operand pair is delegated to the operator
// overload resolver.
func (e *Evaluator) opCompare(op string, left, right interface{}, state *ExpressionState) (interface{}, error) {
	lNum, lIsNum := numericValue(left)
	rNum, rIsNum := numericValue(right)
	if lIsNum && rIsNum {
		switch op {
		case "<":
			return lNum < rNum, nil
		case "<=":
			return lNum <= rNum, nil
		case ">":
			return lNum > rNum, nil
		case ">=":
			return lNum >= rNum, nil
		}
	}

	lStr, lIsStr := left.(string)
	rStr, rIsStr := right.(string)
	if lIsStr && rIsStr {
		switch op {
		case "<":
			return lStr < rStr, nil
		case "<=":
			return lStr <= rStr, nil
		case ">":
			return lStr > rStr, nil
		case ">=":
			return lStr >= rStr, nil
		}
	}

	return state.Operate(Operation(op), left, right)
}

// opAdd evaluates +. Numeric pairs add (integer addition when both operands
// are integers); when either operand is a string, both stringify and
// concatenate; anything else is delegated to the overload resolver.
func (e *Evaluator) opAdd(left, right interface{}, state *ExpressionState) (interface{}, error) {
	if KindOf(left) == KindInt && KindOf(right) == KindInt {
		li, _ := asInt64(left)
		ri, _ := asInt64(right)
		return li + ri, nil
	}
	lNum, lIsNum := numericValue(left)
	rNum, rIsNum := numericValue(right)
	if lIsNum && rIsNum {
		return lNum + rNum, nil
	}

	if _, ok := left.(string); ok {
		return concat(state, left, right)
	}
	if _, ok := right.(string); ok {
		return concat(state, left, right)
	}

	return state.Operate(OpAdd, left, right)
}

// concat stringifies both operands through the context's converter and
// concatenates them.
func concat(state *ExpressionState, left, right interface{}) (interface{}, error) {
	l, err := state.ConvertValue(left, KindString)
	if err != nil {
		return nil, err
	}
	r, err := state.ConvertValue(right, KindString)
	if err != nil {
		return nil, err
	}
	ls, _ := l.(string)
	rs, _ := r.(string)
	return ls + rs, nil
}

// opArithmetic evaluates -, *, / and %. Integer pairs stay integer;
// mixed pairs compute in float64. Division and modulo by zero raise D1001.
// Non-numeric operand pairs are delegated to the overload resolver.
func (e *Evaluator) opArithmetic(op Operation, left, right interface{}, state *ExpressionState) (interface{}, error) {
	if KindOf(left) == KindInt && KindOf(right) == KindInt {
		li, _ := asInt64(left)
		ri, _ := asInt64(right)
		switch op {
		case OpSubtract:
			return li - ri, nil
		case OpMultiply:
			return li * ri, nil
		case OpDivide:
			if ri == 0 {
				return nil, types.NewError(types.ErrDivisionByZero, "division by zero", -1)
			}
			return li / ri, nil
		case OpModulo:
			if ri == 0 {
				return nil, types.NewError(types.ErrDivisionByZero, "modulo by zero", -1)
			}
			return li % ri, nil
		}
	}

	lNum, lIsNum := numericValue(left)
	rNum, rIsNum := numericValue(right)
	if lIsNum && rIsNum {
		switch op {
		case OpSubtract:
			return lNum - rNum, nil
		case OpMultiply:
			return lNum * rNum, nil
		case OpDivide:
			if rNum == 0 {
				return nil, types.NewError(types.ErrDivisionByZero, "division by zero", -1)
			}
			return lNum / rNum, nil
		case OpModulo:
			if rNum == 0 {
				return nil, types.NewError(types.ErrDivisionByZero, "modulo by zero", -1)
			}
			return math.Mod(lNum, rNum), nil
		}
	}

	return state.Operate(op, left, right)
}

// opMatches evaluates the matches operator: a string left operand tested
// against a regular expression pattern on the right. Non-string operand
// pairs are delegated to the overload resolver.
func (e *Evaluator) opMatches(left, right interface{}, node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	subject, lIsStr := left.(string)
	pattern, rIsStr := right.(string)
	if !lIsStr || !rIsStr {
		return state.Operate(OpMatches, left, right)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, types.NewError(types.ErrBadRegex,
			fmt.Sprintf("invalid pattern %q", pattern), node.RHS.Position).WithCause(err)
	}
	return re.MatchString(subject), nil
}

// numericValue widens any numeric value (bools and strings excluded) to
// float64 for mixed-shape arithmetic and comparison.
func numericValue(value interface{}) (float64, bool) {
	switch KindOf(value) {
	case KindInt, KindFloat:
		return asFloat64(value)
	default:
		return 0, false
	}
}
