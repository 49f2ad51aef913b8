package isel

import (
	"testing"

	"x86isel/ir"
	"x86isel/x86"

	"github.com/stretchr/testify/assert"
)

func newTestEnv() *Env {
	return NewEnv(ir.TypeEnv{}, nil)
}

func Test_SelectCondCode_CmpEQ32YieldsZ(t *testing.T) {
	env := newTestEnv()
	cc := selectCondCode(env, ir.Binop{
		Op: ir.OpCmpEQ32, Arg1: ir.Get{Offset: 0, Ty: ir.I32}, Arg2: ir.ConstU32(3),
	})
	assert.Equal(t, x86.Z, cc)
}

func Test_SelectCondCode_CmpLT32SYieldsL(t *testing.T) {
	env := newTestEnv()
	cc := selectCondCode(env, ir.Binop{
		Op: ir.OpCmpLT32S, Arg1: ir.Get{Offset: 0, Ty: ir.I32}, Arg2: ir.ConstU32(3),
	})
	assert.Equal(t, x86.L, cc)
}

func Test_SelectCondCode_CmpLT32UYieldsB(t *testing.T) {
	env := newTestEnv()
	cc := selectCondCode(env, ir.Binop{
		Op: ir.OpCmpLT32U, Arg1: ir.Get{Offset: 0, Ty: ir.I32}, Arg2: ir.ConstU32(3),
	})
	assert.Equal(t, x86.B, cc)
}

// Op32to1(Op1Uto32(e)) is a redundant round trip through I32 and must
// collapse to selecting e's own condition directly, with no Test emitted
// for the outer Op32to1.
func Test_SelectCondCode_32to1Of1Uto32Collapses(t *testing.T) {
	env := newTestEnv()
	inner := ir.Binop{Op: ir.OpCmpEQ32, Arg1: ir.Get{Offset: 0, Ty: ir.I32}, Arg2: ir.ConstU32(0)}
	wrapped := ir.Unop{Op: ir.Op32to1, Arg: ir.Unop{Op: ir.Op1Uto32, Arg: inner}}

	direct := newTestEnv()
	ccDirect := selectCondCode(direct, inner)
	ccWrapped := selectCondCode(env, wrapped)

	assert.Equal(t, ccDirect, ccWrapped)
	assert.Equal(t, len(direct.Instrs), len(env.Instrs),
		"the redundant 32to1(1Uto32(..)) wrapper must not emit any extra Test")
}

// OpNot1 inverts the inner condition code via the explicit table rather
// than by emitting any instructions of its own.
func Test_SelectCondCode_Not1InvertsWithoutEmittingInstrs(t *testing.T) {
	env := newTestEnv()
	inner := ir.Binop{Op: ir.OpCmpEQ32, Arg1: ir.Get{Offset: 0, Ty: ir.I32}, Arg2: ir.ConstU32(0)}
	before := len(env.Instrs)
	cc := selectCondCode(env, ir.Unop{Op: ir.OpNot1, Arg: inner})
	assert.Equal(t, x86.NZ, cc)
	assert.Greater(t, len(env.Instrs), before, "the inner comparison itself still emits a Cmp")

	direct := newTestEnv()
	selectCondCode(direct, inner)
	assert.Equal(t, len(direct.Instrs), len(env.Instrs)-before,
		"Not1 must add no instructions beyond the inner comparison's own")
}

// CmpNE64(1Sto64(b), 0) is the "widen a bool to i64 just to test it
// against zero" idiom; it must collapse straight back to b's own
// condition instead of materializing and XOR-ing two (hi,lo) pairs.
func Test_SelectCondCode_CmpNE64Of1Sto64AgainstZeroCollapses(t *testing.T) {
	b := ir.Binop{Op: ir.OpCmpEQ32, Arg1: ir.Get{Offset: 0, Ty: ir.I32}, Arg2: ir.ConstU32(9)}

	direct := newTestEnv()
	ccDirect := selectCondCode(direct, b)

	wrapped := newTestEnv()
	ccWrapped := selectCondCode(wrapped, ir.Binop{
		Op:   ir.OpCmpNE64,
		Arg1: ir.Unop{Op: ir.Op1Sto64, Arg: b},
		Arg2: ir.ConstU64(0),
	})

	assert.Equal(t, ccDirect, ccWrapped)
	assert.Equal(t, len(direct.Instrs), len(wrapped.Instrs),
		"the idiom must collapse to exactly the inner comparison's instructions")
}

// The general CmpNE64 case (no 1Sto64-against-zero idiom) must fall back
// to materializing both operands' (hi,lo) pairs and XOR/OR-ing them.
func Test_SelectCondCode_CmpNE64GeneralCaseMaterializesBothPairs(t *testing.T) {
	env := newTestEnv()
	cc := selectCondCode(env, ir.Binop{
		Op:   ir.OpCmpNE64,
		Arg1: ir.Const{Kind: ir.CU64, Bits: 10},
		Arg2: ir.Const{Kind: ir.CU64, Bits: 20},
	})
	assert.Equal(t, x86.NZ, cc)
	assert.NotEmpty(t, env.Instrs)
}
