package evaluator

import (
	"fmt"
	"reflect"

	"github.com/sandrolain/gospel/pkg/types"
)

// Operation identifies a binary operation handed to an OperatorOverloader
// when the built-in operand domains do not apply.
type Operation string

const (
	OpAdd                Operation = "+"
	OpSubtract           Operation = "-"
	OpMultiply           Operation = "*"
	OpDivide             Operation = "/"
	OpModulo             Operation = "%"
	OpLessThan           Operation = "<"
	OpLessThanOrEqual    Operation = "<="
	OpGreaterThan        Operation = ">"
	OpGreaterThanOrEqual Operation = ">="
	OpMatches            Operation = "matches"
)

// OperatorOverloader reconciles operand type pairs that the built-in
// operator implementations do not cover.
//
// OverridesOperation is a capability check; Operate is only invoked after it
// answers true.
type OperatorOverloader interface {
	OverridesOperation(op Operation, left, right interface{}) bool
	Operate(op Operation, left, right interface{}) (interface{}, error)
}

// TypeLocator resolves type names appearing in T(name) expressions.
type TypeLocator interface {
	FindType(name string) (reflect.Type, error)
}

// StandardTypeLocator resolves type names from an explicit registry.
// The built-in scalar names string, int, float, bool and char are
// pre-registered.
type StandardTypeLocator struct {
	registry map[string]reflect.Type
}

// NewStandardTypeLocator creates a locator with the built-in scalar types.
func NewStandardTypeLocator() *StandardTypeLocator {
	return &StandardTypeLocator{
		registry: map[string]reflect.Type{
			"string": reflect.TypeOf(""),
			"int":    reflect.TypeOf(int64(0)),
			"float":  reflect.TypeOf(float64(0)),
			"bool":   reflect.TypeOf(false),
			"char":   reflect.TypeOf(rune(0)),
		},
	}
}

// RegisterType makes a type resolvable under the given name.
func (l *StandardTypeLocator) RegisterType(name string, t reflect.Type) {
	l.registry[name] = t
}

// FindType resolves a registered type name.
func (l *StandardTypeLocator) FindType(name string) (reflect.Type, error) {
	if t, ok := l.registry[name]; ok {
		return t, nil
	}
	return nil, types.NewError(types.ErrTypeNotFound,
		fmt.Sprintf("type %q cannot be found", name), -1)
}

// EvaluationContext is the shared, long-lived configuration for expression
// evaluations: the root object that unqualified references resolve against,
// the global variable table, and the pluggable type/conversion/accessor
// collaborators.
//
// A context may outlive many evaluations and may be shared between
// concurrent evaluations. It performs NO internal locking: a variable write
// from one evaluation is visible to others with no ordering guarantee.
// Callers requiring isolation must either not write variables concurrently
// or give each concurrent evaluation a private context.
type EvaluationContext struct {
	rootObject         interface{}
	variables          map[string]interface{}
	typeLocator        TypeLocator
	typeConverter      TypeConverter
	operatorOverloader OperatorOverloader
	propertyAccessors  []PropertyAccessor
}

// NewEvaluationContext creates a context with the standard collaborators:
// StandardTypeConverter, StandardTypeLocator, and the map accessor followed
// by the reflective struct accessor.
func NewEvaluationContext(root interface{}) *EvaluationContext {
	return &EvaluationContext{
		rootObject:    root,
		variables:     make(map[string]interface{}),
		typeLocator:   NewStandardTypeLocator(),
		typeConverter: StandardTypeConverter{},
		propertyAccessors: []PropertyAccessor{
			MapAccessor{},
			StructAccessor{},
		},
	}
}

// RootObject returns the object unqualified references resolve against by
// default.
func (c *EvaluationContext) RootObject() interface{} {
	return c.rootObject
}

// SetRootObject replaces the root object.
func (c *EvaluationContext) SetRootObject(root interface{}) {
	c.rootObject = root
}

// SetVariable stores a variable in the shared table. A nil value is a real
// binding, distinct from an absent name.
func (c *EvaluationContext) SetVariable(name string, value interface{}) {
	c.variables[name] = value
}

// LookupVariable retrieves a variable from the shared table.
// The second result distinguishes a bound nil from an absent name.
func (c *EvaluationContext) LookupVariable(name string) (interface{}, bool) {
	value, ok := c.variables[name]
	return value, ok
}

// SetTypeLocator replaces the type locator.
func (c *EvaluationContext) SetTypeLocator(locator TypeLocator) {
	c.typeLocator = locator
}

// FindType resolves a type name through the configured locator.
func (c *EvaluationContext) FindType(name string) (reflect.Type, error) {
	return c.typeLocator.FindType(name)
}

// SetTypeConverter replaces the type converter.
func (c *EvaluationContext) SetTypeConverter(converter TypeConverter) {
	c.typeConverter = converter
}

// TypeConverter returns the configured converter.
func (c *EvaluationContext) TypeConverter() TypeConverter {
	return c.typeConverter
}

// ConvertValue coerces a value via the configured converter.
func (c *EvaluationContext) ConvertValue(value interface{}, target Kind) (interface{}, error) {
	return c.typeConverter.ConvertValue(value, target)
}

// SetOperatorOverloader installs an operator overload resolver.
func (c *EvaluationContext) SetOperatorOverloader(overloader OperatorOverloader) {
	c.operatorOverloader = overloader
}

// Operate delegates an operation on an operand pair outside the built-in
// domains to the overload resolver. When no overloader is installed, or the
// installed one does not claim the pair, the operation fails with a T1003
// error naming the operator and both operand types.
func (c *EvaluationContext) Operate(op Operation, left, right interface{}) (interface{}, error) {
	if c.operatorOverloader != nil && c.operatorOverloader.OverridesOperation(op, left, right) {
		return c.operatorOverloader.Operate(op, left, right)
	}
	return nil, types.NewError(types.ErrOperatorNotSupported,
		fmt.Sprintf("operator %s not supported between %T and %T", op, left, right), -1)
}

// SetPropertyAccessors replaces the ordered accessor list.
// List order is priority order: the first accessor that claims a
// (object, name) pair wins.
func (c *EvaluationContext) SetPropertyAccessors(accessors []PropertyAccessor) {
	c.propertyAccessors = accessors
}

// PropertyAccessors returns the ordered accessor list.
func (c *EvaluationContext) PropertyAccessors() []PropertyAccessor {
	return c.propertyAccessors
}
