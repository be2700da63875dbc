// Package gospel provides a Go implementation of a SpEL-style expression
// language for evaluating expressions against application objects.
//
// GoSpel expressions navigate properties of a root object, reference
// variables and functions, and combine values with boolean, relational and
// arithmetic operators:
//
//	order.total > 100 and #vip
//	#discount(order.total) * 0.9
//	user.age >= 18 ? "adult" : "minor"
//
// # Quick Start
//
//	// Simple evaluation against a root object
//	result, err := gospel.Eval("name.length > 3", user)
//
//	// Compile once, evaluate many times
//	expr, err := gospel.Compile("order.total > 100")
//	ectx := evaluator.NewEvaluationContext(order1)
//	result1, _ := evaluator.New().Eval(ctx, expr, ectx)
//
//	// With options
//	result, err := gospel.Eval("items * price", data,
//	    gospel.WithCaching(true),
//	    gospel.WithTimeout(5*time.Second),
//	)
//
// # Extensibility
//
// Evaluation behavior is pluggable through the EvaluationContext: property
// access (evaluator.PropertyAccessor), type coercion
// (evaluator.TypeConverter), type lookup (evaluator.TypeLocator) and
// operator overloading (evaluator.OperatorOverloader) can all be replaced
// per context.
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: github.com/sandrolain/gospel/pkg/parser
//   - Evaluator: github.com/sandrolain/gospel/pkg/evaluator
//   - Functions: github.com/sandrolain/gospel/pkg/functions
//   - Types: github.com/sandrolain/gospel/pkg/types
package gospel

import (
	"context"
	"fmt"
	"time"

	"github.com/sandrolain/gospel/pkg/evaluator"
	"github.com/sandrolain/gospel/pkg/parser"
	"github.com/sandrolain/gospel/pkg/types"
)

// Re-exported evaluator options, so simple callers only import this package.
var (
	WithCaching   = evaluator.WithCaching
	WithCacheSize = evaluator.WithCacheSize
	WithCache     = evaluator.WithCache
	WithTimeout   = evaluator.WithTimeout
	WithMaxDepth  = evaluator.WithMaxDepth
	WithDebug     = evaluator.WithDebug
	WithLogger    = evaluator.WithLogger
	WithTracing   = evaluator.WithTracing
)

// Version returns the current version of GoSpel.
func Version() string {
	return "v0.1.0-dev"
}

// Compile compiles a GoSpel expression for repeated evaluation.
//
// The compiled expression is immutable and safe for concurrent use.
func Compile(source string) (*types.Expression, error) {
	return parser.Compile(source)
}

// MustCompile is like Compile but panics if the expression cannot be
// compiled. It simplifies safe initialization of global variables.
func MustCompile(source string) *types.Expression {
	expr, err := Compile(source)
	if err != nil {
		panic(fmt.Sprintf("gospel: Compile(%q): %v", source, err))
	}
	return expr
}

// Eval compiles and evaluates an expression against root in a single call.
//
// root becomes the root object of a fresh evaluation context. For repeated
// evaluations of the same expression, or to pre-populate variables, use
// Compile plus evaluator.New directly.
func Eval(source string, root interface{}, opts ...evaluator.EvalOption) (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return EvalWithContext(ctx, source, root, opts...)
}

// EvalWithContext is Eval with a caller-supplied context for cancellation
// and deadlines.
func EvalWithContext(ctx context.Context, source string, root interface{}, opts ...evaluator.EvalOption) (interface{}, error) {
	eval := evaluator.New(opts...)

	var expr *types.Expression
	var err error
	if c := eval.Cache(); c != nil {
		expr, err = c.GetOrCompile(source, func() (*types.Expression, error) {
			return parser.Compile(source)
		})
	} else {
		expr, err = parser.Compile(source)
	}
	if err != nil {
		return nil, err
	}

	ectx := evaluator.NewEvaluationContext(root)
	return eval.Eval(ctx, expr, ectx)
}
