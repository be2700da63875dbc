// Package parser implements the GoSpel expression parser.
//
// The parser uses a hand-written recursive descent approach with Pratt's
// "Top Down Operator Precedence" algorithm to build an Abstract Syntax Tree
// from an expression string. Errors carry the byte position of the offending
// token in the source.
//
// # Example
//
//	expr, err := parser.Parse("order.total > 100 and #vip")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ast := expr.AST()
package parser

import (
	"github.com/sandrolain/gospel/pkg/types"
)

// Parse parses a GoSpel expression and returns the compiled Expression.
//
// The function tokenizes the input, builds an AST, and validates the syntax.
// If parsing fails, it returns a *types.Error with position information.
func Parse(source string) (*types.Expression, error) {
	p := NewParser(source)
	return p.Parse()
}

// Compile is an alias for Parse, provided for API consistency.
func Compile(source string) (*types.Expression, error) {
	return Parse(source)
}
