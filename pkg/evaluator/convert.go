package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/gospel/pkg/types"
)

// Kind is the coercion target classification used by the TypeConverter.
//
// A dedicated enum (rather than reflect.Type) carries the intent that
// reflection cannot: rune is indistinguishable from int32 at runtime, so a
// character target needs its own tag.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindBool
	KindInt
	KindFloat
	KindChar
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	default:
		return "unknown"
	}
}

// KindOf classifies a runtime value. All Go integer types (rune included)
// classify as KindInt; KindChar only ever appears as a conversion target.
// Values outside the scalar domain classify as KindAny.
func KindOf(value interface{}) Kind {
	switch value.(type) {
	case string:
		return KindString
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	default:
		return KindAny
	}
}

// TypeConverter converts runtime values to a requested target kind.
//
// CanConvert is a pure capability pre-check: it must not execute the
// conversion, and it must stay consistent with ConvertValue — when it answers
// true for a kind pair, a representative value of the source kind converts
// without a capability error (runtime format errors, such as a malformed
// numeric string, may still occur).
type TypeConverter interface {
	ConvertValue(value interface{}, target Kind) (interface{}, error)
	CanConvert(source, target Kind) bool
}

// StandardTypeConverter is the stateless default coercion engine.
//
// Conversion rules are tried in order, first match wins:
//  1. identity — the value already has the target kind
//  2. stringify — any value renders to a string (nil stays nil)
//  3. numeric — strings parse strictly, numbers widen/narrow with
//     truncation toward zero
//  4. char — a one-rune string converts directly, a number via its
//     low-order 16 bits
//  5. boolean — a string matching "true"/"false" case-insensitively
//  6. no rule — a T1001 conversion error naming both kinds
type StandardTypeConverter struct{}

// ConvertValue coerces value to the target kind.
func (StandardTypeConverter) ConvertValue(value interface{}, target Kind) (interface{}, error) {
	if target == KindAny {
		return value, nil
	}

	// Identity: numeric identities normalize to the canonical width
	// (int64 / float64) so that downstream arithmetic sees one shape.
	source := KindOf(value)
	if source == target {
		switch target {
		case KindInt:
			i, _ := asInt64(value)
			return i, nil
		case KindFloat:
			f, _ := asFloat64(value)
			return f, nil
		default:
			return value, nil
		}
	}

	// A null converts only to string (and stays null there).
	if value == nil {
		if target == KindString {
			return nil, nil
		}
		return nil, conversionError("null", target)
	}

	// Stringify
	if target == KindString {
		return fmt.Sprint(value), nil
	}

	// Numeric
	switch target {
	case KindInt:
		switch source {
		case KindString:
			i, err := strconv.ParseInt(value.(string), 10, 64)
			if err != nil {
				return nil, conversionError(fmt.Sprintf("string %q", value), target).WithCause(err)
			}
			return i, nil
		case KindFloat:
			f, _ := asFloat64(value)
			return int64(f), nil // truncation toward zero
		}
	case KindFloat:
		switch source {
		case KindString:
			f, err := strconv.ParseFloat(value.(string), 64)
			if err != nil {
				return nil, conversionError(fmt.Sprintf("string %q", value), target).WithCause(err)
			}
			return f, nil
		case KindInt:
			f, _ := asFloat64(value)
			return f, nil
		}
	case KindChar:
		switch source {
		case KindString:
			runes := []rune(value.(string))
			if len(runes) == 1 {
				return runes[0], nil
			}
			// multi-rune strings fall through to the final error
		case KindInt, KindFloat:
			i, _ := asInt64(value)
			return rune(uint16(i)), nil
		}
	case KindBool:
		if source == KindString {
			str := value.(string)
			if strings.EqualFold(str, "true") {
				return true, nil
			}
			if strings.EqualFold(str, "false") {
				return false, nil
			}
			// any other string falls through to the final error
		}
	}

	return nil, conversionError(fmt.Sprintf("%s (%T)", source, value), target)
}

// CanConvert reports whether a value of the source kind can be coerced to the
// target kind. It mirrors the rule set of ConvertValue without executing it.
func (StandardTypeConverter) CanConvert(source, target Kind) bool {
	if source == target || target == KindString || target == KindAny {
		return true
	}
	switch target {
	case KindInt, KindFloat, KindChar:
		return source == KindString || source == KindInt || source == KindFloat || source == KindChar
	case KindBool:
		return source == KindString
	default:
		return false
	}
}

// conversionError builds a T1001 error naming source and target.
func conversionError(source string, target Kind) *types.Error {
	return types.NewError(types.ErrTypeConversion,
		fmt.Sprintf("cannot convert %s to %s", source, target), -1)
}

// asInt64 converts any Go integer or float value to int64.
// Floats truncate toward zero.
func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// asFloat64 converts any Go numeric value to float64.
func asFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
