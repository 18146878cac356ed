package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimitiveAssignability(t *testing.T) {
	require.True(t, IsAssignable(Number, Number))
	require.False(t, IsAssignable(Number, StringT))
	require.True(t, IsAssignable(Number, Any))
	require.True(t, IsAssignable(Any, Number))
}

func TestNullAssignability(t *testing.T) {
	cls := &Type{Kind: KindClass, Class: &ClassType{Name: "C"}}
	require.True(t, IsAssignable(NullConst, cls))
	require.False(t, IsAssignable(NullConst, Number))
	require.False(t, IsAssignable(NullConst, Bool))
}

func TestClassNominalSubtyping(t *testing.T) {
	base := &ClassType{Name: "Animal"}
	dog := &ClassType{Name: "Dog", Extends: base}
	other := &ClassType{Name: "Rock"}

	baseT := &Type{Kind: KindClass, Class: base}
	dogT := &Type{Kind: KindClass, Class: dog}
	otherT := &Type{Kind: KindClass, Class: other}

	require.True(t, IsAssignable(dogT, baseT))
	require.False(t, IsAssignable(baseT, dogT))
	require.False(t, IsAssignable(otherT, baseT))
}

func TestFunctionSubtypingArityAndVariance(t *testing.T) {
	// () => number can stand in for (number) => number, but (number) =>
	// number cannot stand in for () => number: the rule is the *value*'s
	// arity must be <= the *expected* arity.
	zeroArg := &FuncType{Result: Number}
	oneArg := &FuncType{Params: []*Type{Number}, Result: Number}

	zeroArgT := &Type{Kind: KindFunction, Func: zeroArg}
	oneArgT := &Type{Kind: KindFunction, Func: oneArg}

	require.True(t, IsAssignable(zeroArgT, oneArgT))
	require.False(t, IsAssignable(oneArgT, zeroArgT))
}

func TestArrayInvariantElementType(t *testing.T) {
	numArr := &Type{Kind: KindArray, Elem: Number}
	strArr := &Type{Kind: KindArray, Elem: StringT}
	require.True(t, IsAssignable(numArr, &Type{Kind: KindArray, Elem: Number}))
	require.False(t, IsAssignable(numArr, strArr))
}
