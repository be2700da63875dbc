// Package types defines the core type system for GoSpel.
//
// This package contains type definitions for:
//   - Expression: compiled GoSpel expressions
//   - ASTNode: Abstract Syntax Tree nodes
//   - Error types: structured errors with codes and source positions
package types

// Expression represents a compiled GoSpel expression.
//
// An Expression can be evaluated multiple times against different evaluation
// contexts by passing it to [evaluator.Evaluator.Eval]. It is safe for
// concurrent use by multiple goroutines.
type Expression struct {
	ast    *ASTNode
	source string
	arena  *NodeArena // keeps arena-allocated nodes reachable
}

// NewExpression creates a new Expression from an AST.
func NewExpression(ast *ASTNode, source string, arena *NodeArena) *Expression {
	return &Expression{
		ast:    ast,
		source: source,
		arena:  arena,
	}
}

// AST returns the Abstract Syntax Tree of the expression.
func (e *Expression) AST() *ASTNode {
	return e.ast
}

// Source returns the original source code of the expression.
func (e *Expression) Source() string {
	return e.source
}

// String returns a string representation of the expression.
func (e *Expression) String() string {
	return e.source
}
