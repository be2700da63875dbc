package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gospel/pkg/evaluator"
	"github.com/sandrolain/gospel/pkg/types"
)

type account struct {
	Owner   string
	Balance float64
	secret  string //nolint:unused // exercises the unexported-field path
}

func TestMapAccessorRead(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	m := map[string]interface{}{"name": "Ada", "nothing": nil}

	v, err := evaluator.ReadProperty(ectx, m, "name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)

	// A present nil entry reads as nil, it is not a missing key
	v, err = evaluator.ReadProperty(ectx, m, "nothing")
	require.NoError(t, err)
	assert.Nil(t, v)

	// A missing key is an error, not a silent nil
	_, err = evaluator.ReadProperty(ectx, m, "missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrPropertyRead, types.CodeOf(err))
}

func TestMapAccessorWrite(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	m := map[string]interface{}{}

	err := evaluator.WriteProperty(ectx, m, "k", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, m["k"])
}

func TestStructAccessorRead(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	acc := account{Owner: "Ada", Balance: 99.5}

	v, err := evaluator.ReadProperty(ectx, acc, "Owner")
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)

	// Lower-case property names match the title-cased exported field
	v, err = evaluator.ReadProperty(ectx, acc, "balance")
	require.NoError(t, err)
	assert.Equal(t, 99.5, v)

	// Unexported fields are invisible
	_, err = evaluator.ReadProperty(ectx, acc, "secret")
	require.Error(t, err)
	assert.Equal(t, types.ErrPropertyRead, types.CodeOf(err))
}

func TestStructAccessorReadThroughPointer(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	acc := &account{Owner: "Ada"}

	v, err := evaluator.ReadProperty(ectx, acc, "Owner")
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)

	var nilAcc *account
	_, err = evaluator.ReadProperty(ectx, nilAcc, "Owner")
	require.Error(t, err)
}

func TestStructAccessorWrite(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	acc := &account{}

	err := evaluator.WriteProperty(ectx, acc, "Owner", "Grace")
	require.NoError(t, err)
	assert.Equal(t, "Grace", acc.Owner)

	// Convertible values are converted on assignment
	err = evaluator.WriteProperty(ectx, acc, "Balance", int64(10))
	require.NoError(t, err)
	assert.Equal(t, 10.0, acc.Balance)

	// Writes require a pointer target
	err = evaluator.WriteProperty(ectx, account{}, "Owner", "x")
	require.Error(t, err)
	assert.Equal(t, types.ErrPropertyWrite, types.CodeOf(err))
}

// constAccessor claims every read and answers with a fixed value.
type constAccessor struct{ value interface{} }

func (constAccessor) CanRead(*evaluator.EvaluationContext, interface{}, string) bool { return true }
func (a constAccessor) Read(*evaluator.EvaluationContext, interface{}, string) (interface{}, error) {
	return a.value, nil
}
func (constAccessor) CanWrite(*evaluator.EvaluationContext, interface{}, string) bool { return false }
func (constAccessor) Write(*evaluator.EvaluationContext, interface{}, string, interface{}) error {
	return nil
}

func TestAccessorOrderIsPriority(t *testing.T) {
	ectx := evaluator.NewEvaluationContext(nil)
	m := map[string]interface{}{"k": "from-map"}

	// Prepending an accessor that claims everything overrides the map accessor
	ectx.SetPropertyAccessors([]evaluator.PropertyAccessor{
		constAccessor{value: "override"},
		evaluator.MapAccessor{},
	})
	v, err := evaluator.ReadProperty(ectx, m, "k")
	require.NoError(t, err)
	assert.Equal(t, "override", v)

	// An empty accessor list makes every property unreadable
	ectx.SetPropertyAccessors(nil)
	_, err = evaluator.ReadProperty(ectx, m, "k")
	require.Error(t, err)
	assert.Equal(t, types.ErrPropertyRead, types.CodeOf(err))
}
