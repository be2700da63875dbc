package evaluator

import (
	"context"
	"fmt"

	"github.com/sandrolain/gospel/pkg/functions"
	"github.com/sandrolain/gospel/pkg/types"
)

// evalCall evaluates a #name(args...) invocation.
//
// The callee is resolved like any other variable reference: local scopes
// innermost-first, then the context's variables. Arguments are evaluated
// left to right before invocation. Expression-bodied functions run inside a
// fresh variable scope holding their parameter bindings; the scope is exited
// when the body finishes, success or error.
func (e *Evaluator) evalCall(ctx context.Context, node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	name := node.StrValue

	value, ok := state.LookupLocalVariable(name)
	if !ok {
		value, ok = state.LookupVariable(name)
	}
	if !ok {
		return nil, types.NewError(types.ErrVariableNotFound,
			fmt.Sprintf("function #%s is not defined", name), node.Position)
	}

	fn, ok := value.(*functions.Function)
	if !ok {
		return nil, types.NewError(types.ErrNotInvocable,
			fmt.Sprintf("#%s holds a %T, which is not invocable", name, value), node.Position)
	}

	args := make([]interface{}, len(node.Args))
	for i, argNode := range node.Args {
		arg, err := e.evalNode(ctx, argNode, state)
		if err != nil {
			return nil, types.StampPosition(err, argNode.Position)
		}
		args[i] = arg
	}

	if fn.Go != nil {
		result, err := fn.Go(ctx, args...)
		if err != nil {
			return nil, types.StampPosition(err, node.Position)
		}
		return result, nil
	}

	if len(args) != len(fn.Params) {
		return nil, types.NewError(types.ErrArgumentCount,
			fmt.Sprintf("#%s expects %d arguments, got %d", name, len(fn.Params), len(args)), node.Position)
	}

	bindings := make(map[string]interface{}, len(fn.Params))
	for i, param := range fn.Params {
		bindings[param] = args[i]
	}

	state.EnterScope(bindings)
	defer state.ExitScope()

	result, err := e.evalNode(ctx, fn.Body, state)
	if err != nil {
		return nil, types.StampPosition(err, node.Position)
	}
	return result, nil
}
