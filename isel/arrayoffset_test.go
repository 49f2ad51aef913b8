package isel

import (
	"testing"

	"x86isel/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SelectArrayOffset_PowerOfTwoNElemsSucceeds(t *testing.T) {
	env := newTestEnv()
	descr := ir.ArrayDescr{Base: 64, ElemTy: ir.I32, NElems: 8}
	am := selectArrayOffset(env, descr, ir.ConstU32(3), 0)
	assert.Equal(t, int32(64), am.Disp)
	assert.True(t, am.HasIndex())
}

func Test_SelectArrayOffset_NonPowerOfTwoNElemsFails(t *testing.T) {
	env := newTestEnv()
	descr := ir.ArrayDescr{Base: 64, ElemTy: ir.I32, NElems: 6}
	assertSelFails(t, ErrUnsupportedShape, func() {
		selectArrayOffset(env, descr, ir.ConstU32(0), 0)
	})
}

func Test_SelectArrayOffset_ZeroNElemsFails(t *testing.T) {
	env := newTestEnv()
	descr := ir.ArrayDescr{Base: 0, ElemTy: ir.I8, NElems: 0}
	assertSelFails(t, ErrUnsupportedShape, func() {
		selectArrayOffset(env, descr, ir.ConstU32(0), 0)
	})
}

func Test_SelectArrayOffset_EverySupportedElementSizeSucceeds(t *testing.T) {
	for _, ty := range []ir.Type{ir.I8, ir.I16, ir.I32, ir.I64} {
		descr := ir.ArrayDescr{Base: 0, ElemTy: ty, NElems: 8}
		env := newTestEnv()
		assert.NotPanics(t, func() {
			selectArrayOffset(env, descr, ir.ConstU32(0), 0)
		}, "element type %s should be a supported array shape", ty)
	}
}

// assertSelFails runs fn and asserts it panics with a *SelError of the
// given kind, the way Select's top-level recover expects every selector
// failure to (spec.md §7's single-panic-point contract).
func assertSelFails(t *testing.T, kind ErrKind, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a *SelError panic")
		se, ok := r.(*SelError)
		require.True(t, ok, "expected a *SelError, got %T", r)
		assert.Equal(t, kind, se.Kind)
	}()
	fn()
}
