package evaluator

import (
	"context"
	"fmt"

	"github.com/sandrolain/gospel/pkg/types"
)

// evalNode evaluates an AST node against the given expression state.
// Every node either yields a value or raises; there is no silent default.
func (e *Evaluator) evalNode(ctx context.Context, node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	// Check context cancellation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if node == nil {
		return nil, nil
	}

	// Check recursion depth
	state.depth++
	defer func() { state.depth-- }()
	if e.opts.MaxDepth > 0 && state.depth > e.opts.MaxDepth {
		return nil, types.NewError(types.ErrMaxDepth, "maximum recursion depth exceeded", node.Position)
	}

	// Debug logging
	if e.opts.Debug {
		state.logger.Debug("evaluating node",
			"type", node.Type,
			"name", node.StrValue,
			"position", node.Position,
			"depth", state.depth)
	}

	// Dispatch based on node type
	switch node.Type {
	case types.NodeString, types.NodeNumber, types.NodeBoolean:
		return node.Value, nil
	case types.NodeNull:
		return nil, nil
	case types.NodeProperty:
		return e.evalProperty(node, state)
	case types.NodeCompound:
		return e.evalCompound(ctx, node, state)
	case types.NodeVariable:
		return e.evalVariable(node, state)
	case types.NodeCall:
		return e.evalCall(ctx, node, state)
	case types.NodeTypeRef:
		return e.evalTypeRef(node, state)
	case types.NodeBinary:
		return e.evalBinary(ctx, node, state)
	case types.NodeUnary:
		return e.evalUnary(ctx, node, state)
	case types.NodeTernary:
		return e.evalTernary(ctx, node, state)
	default:
		return nil, fmt.Errorf("unsupported node type: %s", node.Type)
	}
}

// evalProperty reads a named property from the active context object through
// the ordered accessor list.
func (e *Evaluator) evalProperty(node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	target := state.ActiveContextObject()
	value, err := ReadProperty(state.Context(), target, node.StrValue)
	if err != nil {
		return nil, types.StampPosition(err, node.Position)
	}
	return value, nil
}

// evalCompound evaluates a dotted navigation chain. The first step resolves
// like any other expression; each later step resolves against the value of
// the previous one, which is pushed as the active context object for exactly
// the duration of that step (push and pop strictly paired, including on
// error paths).
func (e *Evaluator) evalCompound(ctx context.Context, node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	value, err := e.evalNode(ctx, node.Steps[0], state)
	if err != nil {
		return nil, types.StampPosition(err, node.Steps[0].Position)
	}

	for _, step := range node.Steps[1:] {
		state.PushActiveContextObject(value)
		value, err = e.evalNode(ctx, step, state)
		state.PopActiveContextObject()
		if err != nil {
			return nil, types.StampPosition(err, step.Position)
		}
	}

	return value, nil
}

// evalVariable resolves a #name reference: local scopes innermost-first,
// then the context's shared variable table. A bound nil is a valid result,
// distinct from an absent name.
func (e *Evaluator) evalVariable(node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	if value, ok := state.LookupLocalVariable(node.StrValue); ok {
		return value, nil
	}
	if value, ok := state.LookupVariable(node.StrValue); ok {
		return value, nil
	}
	return nil, types.NewError(types.ErrVariableNotFound,
		fmt.Sprintf("variable #%s is not defined", node.StrValue), node.Position)
}

// evalTypeRef resolves a T(name) reference through the context's type
// locator. The result is the reflect.Type value.
func (e *Evaluator) evalTypeRef(node *types.ASTNode, state *ExpressionState) (interface{}, error) {
	t, err := state.FindType(node.StrValue)
	if err != nil {
		return nil, types.StampPosition(err, node.Position)
	}
	return t, nil
}
