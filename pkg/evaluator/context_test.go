package evaluator_test

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gospel/pkg/evaluator"
	"github.com/sandrolain/gospel/pkg/types"
)

func TestContextVariables(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)

	_, ok := ectx.LookupVariable("missing")
	assert.False(t, ok)

	ectx.SetVariable("x", 42)
	v, ok := ectx.LookupVariable("x")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	// A bound nil is a real binding
	ectx.SetVariable("empty", nil)
	v, ok = ectx.LookupVariable("empty")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestStandardTypeLocator(t *testing.T) {
	loc := evaluator.NewStandardTypeLocator()

	tt, err := loc.FindType("int")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int64(0)), tt)

	tt, err = loc.FindType("string")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(""), tt)

	_, err = loc.FindType("spaceship")
	require.Error(t, err)
	assert.Equal(t, types.ErrTypeNotFound, types.CodeOf(err))

	loc.RegisterType("duration", reflect.TypeOf(time.Duration(0)))
	tt, err = loc.FindType("duration")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(time.Duration(0)), tt)
}

func TestOperateWithoutOverloaderFails(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)

	_, err := ectx.Operate(evaluator.OpAdd, []int{1}, []int{2})
	require.Error(t, err)
	assert.Equal(t, types.ErrOperatorNotSupported, types.CodeOf(err))
}

// sliceConcatOverloader overloads + for pairs of []int.
type sliceConcatOverloader struct{}

func (sliceConcatOverloader) OverridesOperation(op evaluator.Operation, left, right interface{}) bool {
	if op != evaluator.OpAdd {
		return false
	}
	_, lok := left.([]int)
	_, rok := right.([]int)
	return lok && rok
}

func (sliceConcatOverloader) Operate(op evaluator.Operation, left, right interface{}) (interface{}, error) {
	if op != evaluator.OpAdd {
		return nil, fmt.Errorf("unexpected operation %s", op)
	}
	return append(append([]int{}, left.([]int)...), right.([]int)...), nil
}

func TestOperatorOverloader(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	ectx.SetOperatorOverloader(sliceConcatOverloader{})

	v, err := ectx.Operate(evaluator.OpAdd, []int{1, 2}, []int{3})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)

	// Unclaimed pairs still fail
	_, err = ectx.Operate(evaluator.OpMultiply, []int{1}, []int{2})
	require.Error(t, err)
	assert.Equal(t, types.ErrOperatorNotSupported, types.CodeOf(err))
}

func TestSetRootObject(t *testing.T) {
	ectx := evaluator.NewEvaluationContext("first")
	assert.Equal(t, "first", ectx.RootObject())
	ectx.SetRootObject("second")
	assert.Equal(t, "second", ectx.RootObject())
}
