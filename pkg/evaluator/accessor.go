package evaluator

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/gospel/pkg/types"
)

// PropertyAccessor is a capability-checked strategy for reading and writing
// a named property on a given context object.
//
// Accessors are consulted in the order configured on the EvaluationContext;
// the first accessor whose CanRead (or CanWrite) answers true is used and
// only it is invoked, so earlier entries deterministically override later
// ones.
type PropertyAccessor interface {
	CanRead(ectx *EvaluationContext, target interface{}, name string) bool
	Read(ectx *EvaluationContext, target interface{}, name string) (interface{}, error)
	CanWrite(ectx *EvaluationContext, target interface{}, name string) bool
	Write(ectx *EvaluationContext, target interface{}, name string, value interface{}) error
}

// ReadProperty resolves a property read through the context's ordered
// accessor list. When no accessor claims the (target, name) pair the read
// fails with a U1002 error.
func ReadProperty(ectx *EvaluationContext, target interface{}, name string) (interface{}, error) {
	for _, accessor := range ectx.PropertyAccessors() {
		if accessor.CanRead(ectx, target, name) {
			return accessor.Read(ectx, target, name)
		}
	}
	return nil, types.NewError(types.ErrPropertyRead,
		fmt.Sprintf("property %q cannot be read on %T", name, target), -1)
}

// WriteProperty resolves a property write through the context's ordered
// accessor list. When no accessor claims the (target, name) pair the write
// fails with a U1003 error.
func WriteProperty(ectx *EvaluationContext, target interface{}, name string, value interface{}) error {
	for _, accessor := range ectx.PropertyAccessors() {
		if accessor.CanWrite(ectx, target, name) {
			return accessor.Write(ectx, target, name, value)
		}
	}
	return types.NewError(types.ErrPropertyWrite,
		fmt.Sprintf("property %q cannot be written on %T", name, target), -1)
}

// MapAccessor reads and writes entries of map[string]interface{} context
// objects. A read is only claimed when the key is present, so that a missing
// key surfaces as a property-access error rather than a silent nil.
type MapAccessor struct{}

// CanRead reports whether target is a string-keyed map containing name.
func (MapAccessor) CanRead(_ *EvaluationContext, target interface{}, name string) bool {
	m, ok := target.(map[string]interface{})
	if !ok {
		return false
	}
	_, present := m[name]
	return present
}

// Read returns the map entry for name.
func (MapAccessor) Read(_ *EvaluationContext, target interface{}, name string) (interface{}, error) {
	return target.(map[string]interface{})[name], nil
}

// CanWrite reports whether target is a string-keyed map.
func (MapAccessor) CanWrite(_ *EvaluationContext, target interface{}, _ string) bool {
	_, ok := target.(map[string]interface{})
	return ok
}

// Write stores value under name.
func (MapAccessor) Write(_ *EvaluationContext, target interface{}, name string, value interface{}) error {
	target.(map[string]interface{})[name] = value
	return nil
}

// StructAccessor reads exported fields of structs (and pointers to structs)
// by property name. The lower-case expression name matches the exported
// field with the same name title-cased, so "total" reads field "Total";
// an exact match takes precedence.
type StructAccessor struct{}

// CanRead reports whether target has a matching exported field.
func (StructAccessor) CanRead(_ *EvaluationContext, target interface{}, name string) bool {
	_, ok := structField(target, name)
	return ok
}

// Read returns the value of the matching field.
func (StructAccessor) Read(_ *EvaluationContext, target interface{}, name string) (interface{}, error) {
	field, ok := structField(target, name)
	if !ok {
		return nil, types.NewError(types.ErrPropertyRead,
			fmt.Sprintf("no field %q on %T", name, target), -1)
	}
	return field.Interface(), nil
}

// CanWrite reports whether target is a pointer to a struct with a settable
// matching field.
func (StructAccessor) CanWrite(_ *EvaluationContext, target interface{}, name string) bool {
	field, ok := structField(target, name)
	return ok && field.CanSet()
}

// Write assigns value to the matching field, converting between assignable
// or convertible Go types.
func (StructAccessor) Write(_ *EvaluationContext, target interface{}, name string, value interface{}) error {
	field, ok := structField(target, name)
	if !ok || !field.CanSet() {
		return types.NewError(types.ErrPropertyWrite,
			fmt.Sprintf("field %q on %T is not settable", name, target), -1)
	}

	v := reflect.ValueOf(value)
	switch {
	case !v.IsValid():
		field.Set(reflect.Zero(field.Type()))
	case v.Type().AssignableTo(field.Type()):
		field.Set(v)
	case v.Type().ConvertibleTo(field.Type()):
		field.Set(v.Convert(field.Type()))
	default:
		return types.NewError(types.ErrPropertyWrite,
			fmt.Sprintf("cannot assign %T to field %q of %T", value, name, target), -1)
	}
	return nil
}

// structField resolves the reflect.Value of the field matching name on a
// struct or pointer-to-struct target.
func structField(target interface{}, name string) (reflect.Value, bool) {
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	field := v.FieldByName(name)
	if !field.IsValid() || !field.CanInterface() {
		field = v.FieldByName(titleCase(name))
	}
	if !field.IsValid() || !field.CanInterface() {
		return reflect.Value{}, false
	}
	return field, true
}

// titleCase upper-cases the first rune of a property name.
func titleCase(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
