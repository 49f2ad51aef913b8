package isel

import (
	"strings"
	"testing"

	"x86isel/ir"
	"x86isel/x86"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countPrefix(instrs []x86.Instr, prefix string) int {
	n := 0
	for _, i := range instrs {
		if strings.HasPrefix(i.String(), prefix) {
			n++
		}
	}
	return n
}

// Shl64(Temp(x:I64), Const(U8 40)) is spec.md §8's concrete scenario 5:
// the shift amount is moved into %ecx, the (hi,lo) pair is shifted via
// shld/shl, and a test-$32/cmov pair fixes up shift amounts >= 32.
func Test_SelectI64_Shl64UsesShldShlAndCmovFixup(t *testing.T) {
	env := newTestEnv()
	env.VRegMap = append(env.VRegMap, env.newIntVReg())
	env.VRegMapHI = append(env.VRegMapHI, env.newIntVReg())
	x := ir.Temp{Idx: 0, Ty: ir.I64}

	hi, lo := selectI64(env, ir.Binop{
		Op:   ir.OpShl64,
		Arg1: x,
		Arg2: ir.ConstU8(40),
	})

	require.True(t, hi.Virtual)
	require.True(t, lo.Virtual)
	assert.Equal(t, 1, countPrefix(env.Instrs, "shld"), "Shl64 must emit exactly one shld: %v", env.Instrs)
	assert.Equal(t, 1, countPrefix(env.Instrs, "shll %cl"), "Shl64 must emit exactly one %%cl-shift: %v", env.Instrs)
	assert.Equal(t, 1, countPrefix(env.Instrs, "testl $32,"), "Shl64 must test bit 5 of the shift amount: %v", env.Instrs)

	var cmovCount int
	for _, i := range env.Instrs {
		if strings.HasPrefix(i.String(), "cmov") {
			cmovCount++
		}
	}
	assert.Equal(t, 2, cmovCount, "the >=32 fixup needs exactly two cmovs: %v", env.Instrs)
}

// Shr64 is the mirror image of Shl64: shrd/shr plus the symmetric fixup.
func Test_SelectI64_Shr64UsesShrdShrAndCmovFixup(t *testing.T) {
	env := newTestEnv()
	env.VRegMap = append(env.VRegMap, env.newIntVReg())
	env.VRegMapHI = append(env.VRegMapHI, env.newIntVReg())
	x := ir.Temp{Idx: 0, Ty: ir.I64}

	selectI64(env, ir.Binop{
		Op:   ir.OpShr64,
		Arg1: x,
		Arg2: ir.ConstU8(40),
	})

	assert.Equal(t, 1, countPrefix(env.Instrs, "shrd"), "Shr64 must emit exactly one shrd: %v", env.Instrs)
	assert.Equal(t, 1, countPrefix(env.Instrs, "shrl %cl"), "Shr64 must emit exactly one %%cl-shift: %v", env.Instrs)
	assert.Equal(t, 1, countPrefix(env.Instrs, "testl $32,"), "Shr64 must test bit 5 of the shift amount: %v", env.Instrs)
}

// F64toI64 reuses the control-word dance of F64toI32/F64toI16, widened to
// an 8-byte store and a two-halves reload.
func Test_SelectI64_F64toI64RoundTripsThroughControlWord(t *testing.T) {
	env := newTestEnv()
	hi, lo := selectI64(env, ir.Binop{
		Op:   ir.OpF64toI64,
		Arg1: ir.Get{Offset: 0, Ty: ir.I32}, // rounding mode
		Arg2: ir.Get{Offset: 4, Ty: ir.F64}, // value
	})

	require.True(t, hi.Virtual)
	require.True(t, lo.Virtual)
	assert.Equal(t, 2, countPrefix(env.Instrs, "fldcw"), "must load the dynamic control word and restore the default one")
	assert.Equal(t, 1, countPrefix(env.Instrs, "fistp.8"), "must convert through an 8-byte integer store")
	assert.Equal(t, 1, countPrefix(env.Instrs, "subl $0x8, %esp"), "must reserve exactly 8 bytes of scratch")
	assert.Equal(t, 1, countPrefix(env.Instrs, "addl $0x8, %esp"), "must release the scratch it reserved")
}

// Scenario 5 end to end, through the top-level Select entry point.
func Test_Select_Shl64ScenarioFive(t *testing.T) {
	block := ir.Block{
		Types: ir.TypeEnv{0: ir.I64},
		Stmts: []ir.Stmt{
			ir.TempAssign{Dst: 0, Rhs: ir.Binop{
				Op:   ir.Op32HLto64,
				Arg1: ir.Get{Offset: 0, Ty: ir.I32},
				Arg2: ir.Get{Offset: 4, Ty: ir.I32},
			}},
			ir.TempAssign{Dst: 0, Rhs: ir.Binop{
				Op:   ir.OpShl64,
				Arg1: ir.Temp{Idx: 0, Ty: ir.I64},
				Arg2: ir.ConstU8(40),
			}},
			ir.Put{Offset: 8, Data: ir.Temp{Idx: 0, Ty: ir.I64}},
		},
		Next: ir.ConstU32(0),
		Jk:   ir.JkBoring,
	}

	prog := mustSelect(t, block)
	assert.Equal(t, 1, countPrefix(prog.Instrs, "shld"))
	assert.Equal(t, 1, countPrefix(prog.Instrs, "shll %cl"))
}
