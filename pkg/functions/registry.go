// Package functions provides function values callable from GoSpel
// expressions.
//
// A function is published to expressions by storing it as a variable on the
// evaluation context, making it available through the "#" prefix:
//
//	ectx.SetVariable("max", functions.NewGoFunction("max", func(ctx context.Context, args ...interface{}) (interface{}, error) {
//	    ...
//	}))
//	// expression: #max(a, b)
//
// Functions come in two flavors: Go-backed functions, whose implementation
// is a Go closure, and expression-bodied functions, whose body is itself a
// compiled GoSpel AST with named parameters. Invoking an expression-bodied
// function enters a fresh variable scope holding the parameter bindings for
// the duration of the body.
package functions

import (
	"context"

	"github.com/sandrolain/gospel/pkg/types"
)

// GoFunc is the signature for Go-backed functions.
// args contains the evaluated call arguments in order.
type GoFunc func(ctx context.Context, args ...interface{}) (interface{}, error)

// Function is a value callable from expressions via #name(args...).
// Exactly one of Go and Body is set.
type Function struct {
	// Name is the function name as it appears inside expressions
	// (without the "#" prefix).
	Name string
	// Params names the formal parameters of an expression-bodied function.
	// Go-backed functions leave it nil and accept any argument count.
	Params []string
	// Body is the compiled body of an expression-bodied function.
	Body *types.ASTNode
	// Go is the implementation of a Go-backed function.
	Go GoFunc
}

// NewGoFunction creates a Go-backed function.
func NewGoFunction(name string, fn GoFunc) *Function {
	return &Function{Name: name, Go: fn}
}

// NewExprFunction creates an expression-bodied function with named
// parameters. body is the AST of a compiled expression; the parameters are
// visible inside it as #param references.
func NewExprFunction(name string, params []string, body *types.ASTNode) *Function {
	return &Function{Name: name, Params: params, Body: body}
}

// VariableSetter is the part of an evaluation context a Registry needs to
// publish its functions.
type VariableSetter interface {
	SetVariable(name string, value interface{})
}

// Registry collects functions for bulk installation on evaluation contexts.
type Registry struct {
	fns map[string]*Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]*Function)}
}

// Register adds a function, replacing any previous one with the same name.
func (r *Registry) Register(fn *Function) {
	r.fns[fn.Name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// InstallInto publishes every registered function as a context variable.
func (r *Registry) InstallInto(ectx VariableSetter) {
	for name, fn := range r.fns {
		ectx.SetVariable(name, fn)
	}
}
