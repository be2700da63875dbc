package evaluator

import (
	"log/slog"
	"reflect"
)

// VariableScope holds the local name bindings of one function invocation.
// A scope is created on function entry, optionally pre-populated from the
// call arguments, and destroyed on function exit. If a name clashes with one
// in an enclosing scope, the inner binding shadows the outer one while the
// scope is active.
type VariableScope struct {
	vars map[string]interface{}
}

// newVariableScope creates an empty scope.
func newVariableScope() *VariableScope {
	return &VariableScope{vars: make(map[string]interface{})}
}

// newVariableScopeFrom creates a scope pre-populated from an argument map.
func newVariableScopeFrom(arguments map[string]interface{}) *VariableScope {
	scope := newVariableScope()
	for name, value := range arguments {
		scope.vars[name] = value
	}
	return scope
}

// Defines reports whether the scope binds name (a bound nil counts).
func (s *VariableScope) Defines(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// Lookup returns the binding for name.
func (s *VariableScope) Lookup(name string) interface{} {
	return s.vars[name]
}

// Set binds name to value in this scope.
func (s *VariableScope) Set(name string, value interface{}) {
	s.vars[name] = value
}

// ExpressionState is the per-evaluation scratch state. It holds the local
// variable scopes and the stack of active context objects used during nested
// property navigation, and delegates everything else (type lookup, coercion,
// global variables, operator overloads, accessors) unchanged to the bound
// EvaluationContext.
//
// An ExpressionState is exclusively owned by a single Eval call: changes to
// it are never seen by other evaluations, and it never outlives the call.
// This is in contrast to the EvaluationContext, which is shared amongst
// evaluations.
type ExpressionState struct {
	context        *EvaluationContext
	scopes         []*VariableScope
	contextObjects []interface{}
	depth          int
	logger         *slog.Logger // per-evaluation logger, set by Evaluator.Eval
}

// NewExpressionState creates the state for one evaluation call, seeded with
// a single empty global scope. The scope stack never becomes empty.
func NewExpressionState(ectx *EvaluationContext) *ExpressionState {
	return &ExpressionState{
		context: ectx,
		scopes:  []*VariableScope{newVariableScope()},
	}
}

// Context returns the bound EvaluationContext.
func (s *ExpressionState) Context() *EvaluationContext {
	return s.context
}

// ActiveContextObject returns what unqualified property references currently
// resolve against: the top of the context-object stack, or the
// EvaluationContext's root object when the stack is empty.
func (s *ExpressionState) ActiveContextObject() interface{} {
	if len(s.contextObjects) == 0 {
		return s.context.RootObject()
	}
	return s.contextObjects[len(s.contextObjects)-1]
}

// PushActiveContextObject makes obj the resolution base for nested property
// navigation. Every push must be paired with exactly one pop on all exit
// paths of the sub-evaluation it guards.
func (s *ExpressionState) PushActiveContextObject(obj interface{}) {
	s.contextObjects = append(s.contextObjects, obj)
}

// PopActiveContextObject removes the top context object. Popping an empty
// stack is a programming error (a violated push/pop pairing) and panics.
func (s *ExpressionState) PopActiveContextObject() {
	if len(s.contextObjects) == 0 {
		panic("evaluator: PopActiveContextObject on empty context-object stack")
	}
	s.contextObjects = s.contextObjects[:len(s.contextObjects)-1]
}

// EnterScope pushes a new local scope pre-populated from the argument map.
// A new scope is entered when a function is invoked; every EnterScope must
// be paired with exactly one ExitScope, including on error paths.
func (s *ExpressionState) EnterScope(arguments map[string]interface{}) {
	s.scopes = append(s.scopes, newVariableScopeFrom(arguments))
}

// EnterScopeWith pushes a new local scope holding a single binding.
func (s *ExpressionState) EnterScopeWith(name string, value interface{}) {
	scope := newVariableScope()
	scope.Set(name, value)
	s.scopes = append(s.scopes, scope)
}

// ExitScope pops the innermost local scope. Popping the global scope is a
// programming error (a violated enter/exit pairing) and panics.
func (s *ExpressionState) ExitScope() {
	if len(s.scopes) <= 1 {
		panic("evaluator: ExitScope would pop the global scope")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// SetLocalVariable binds name in the innermost scope only.
func (s *ExpressionState) SetLocalVariable(name string, value interface{}) {
	s.scopes[len(s.scopes)-1].Set(name, value)
}

// LookupLocalVariable scans the scope stack from innermost to outermost and
// returns the first binding found, including a bound nil. The scan does not
// stop at function-call boundaries, so an inner function scope observes
// bindings from scopes below it on the stack.
func (s *ExpressionState) LookupLocalVariable(name string) (interface{}, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].Defines(name) {
			return s.scopes[i].Lookup(name), true
		}
	}
	return nil, false
}

// Delegations to the bound EvaluationContext. ExpressionState adds no
// coercion or lookup logic of its own.

// RootObject returns the context's root object.
func (s *ExpressionState) RootObject() interface{} {
	return s.context.RootObject()
}

// SetVariable writes to the context's shared variable table (visible
// globally, not scoped).
func (s *ExpressionState) SetVariable(name string, value interface{}) {
	s.context.SetVariable(name, value)
}

// LookupVariable reads from the context's shared variable table.
func (s *ExpressionState) LookupVariable(name string) (interface{}, bool) {
	return s.context.LookupVariable(name)
}

// FindType resolves a type name through the context's locator.
func (s *ExpressionState) FindType(name string) (reflect.Type, error) {
	return s.context.FindType(name)
}

// ConvertValue coerces a value through the context's converter.
func (s *ExpressionState) ConvertValue(value interface{}, target Kind) (interface{}, error) {
	return s.context.ConvertValue(value, target)
}

// Operate delegates to the context's operator overload resolver.
func (s *ExpressionState) Operate(op Operation, left, right interface{}) (interface{}, error) {
	return s.context.Operate(op, left, right)
}

// PropertyAccessors returns the context's ordered accessor list.
func (s *ExpressionState) PropertyAccessors() []PropertyAccessor {
	return s.context.PropertyAccessors()
}
