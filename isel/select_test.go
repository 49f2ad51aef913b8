package isel

import (
	"bytes"
	"testing"

	"x86isel/ir"
	"x86isel/x86"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSelect(t *testing.T, block ir.Block) x86.Program {
	t.Helper()
	var trace bytes.Buffer
	prog, err := Select(block, &trace)
	require.NoError(t, err, "trace:\n%s", trace.String())
	return prog
}

func Test_Select_ScalarAddStoresToGuestState(t *testing.T) {
	// t0 = Add32(GET(0:I32), 5); PUT(4) = t0; exit to a fixed target.
	block := ir.Block{
		Types: ir.TypeEnv{0: ir.I32},
		Stmts: []ir.Stmt{
			ir.TempAssign{Dst: 0, Rhs: ir.Binop{
				Op:   ir.OpAdd32,
				Arg1: ir.Get{Offset: 0, Ty: ir.I32},
				Arg2: ir.ConstU32(5),
			}},
			ir.Put{Offset: 4, Data: ir.Temp{Idx: 0, Ty: ir.I32}},
		},
		Next: ir.ConstU32(0x1000),
		Jk:   ir.JkBoring,
	}

	prog := mustSelect(t, block)
	assert.NotEmpty(t, prog.Instrs)
	assert.GreaterOrEqual(t, prog.NumVRegs, 1)

	last := prog.Instrs[len(prog.Instrs)-1]
	assert.Contains(t, last.String(), "jmp-", "block terminator must be an unconditional Goto")
}

func Test_Select_ConditionalExitEmitsCompareThenGoto(t *testing.T) {
	// if (GET(0:I32) == 7) { exit-Boring 0x2000 }
	block := ir.Block{
		Types: ir.TypeEnv{},
		Stmts: []ir.Stmt{
			ir.Exit{
				Guard:  ir.Binop{Op: ir.OpCmpEQ32, Arg1: ir.Get{Offset: 0, Ty: ir.I32}, Arg2: ir.ConstU32(7)},
				Target: ir.ConstU32(0x2000),
				Jk:     ir.JkBoring,
			},
		},
		Next: ir.ConstU32(0x3000),
		Jk:   ir.JkBoring,
	}

	prog := mustSelect(t, block)
	require.GreaterOrEqual(t, len(prog.Instrs), 2)

	// The side-exit's Goto must carry the Z condition code from CmpEQ32,
	// and must appear strictly before the terminator's unconditional Goto.
	var sideExitIdx, termIdx = -1, -1
	for i, instr := range prog.Instrs {
		if sideExitIdx == -1 && containsGoto(instr) {
			sideExitIdx = i
		}
		termIdx = i
	}
	require.NotEqual(t, -1, sideExitIdx)
	assert.Less(t, sideExitIdx, termIdx)
	require.Greater(t, sideExitIdx, 0)
	assert.Equal(t, "jz-0 $0x2000", prog.Instrs[sideExitIdx].String())
	assert.Contains(t, prog.Instrs[sideExitIdx-1].String(), "cmpl", "the compare must come right before the side-exit")
}

// containsGoto reports whether i is a conditional jump (the selected
// side-exit), as opposed to the unconditional "jmp-" terminator Goto.
func containsGoto(i x86.Instr) bool {
	s := i.String()
	return len(s) > 0 && s[0] == 'j' && !(len(s) >= 4 && s[:4] == "jmp-")
}

func Test_Select_I64TempSplitsIntoHiLoPair(t *testing.T) {
	// t0:I64 = 32HLto64(GET(0:I32), GET(4:I32)); PUT(8) = t0
	block := ir.Block{
		Types: ir.TypeEnv{0: ir.I64},
		Stmts: []ir.Stmt{
			ir.TempAssign{Dst: 0, Rhs: ir.Binop{
				Op:   ir.Op32HLto64,
				Arg1: ir.Get{Offset: 0, Ty: ir.I32},
				Arg2: ir.Get{Offset: 4, Ty: ir.I32},
			}},
			ir.Put{Offset: 8, Data: ir.Temp{Idx: 0, Ty: ir.I64}},
		},
		Next: ir.ConstU32(0),
		Jk:   ir.JkBoring,
	}

	prog := mustSelect(t, block)
	// Two 4-byte stores for the hi/lo halves, plus the two GET loads and
	// the terminator goto: at minimum five instructions.
	assert.GreaterOrEqual(t, len(prog.Instrs), 5)
}

func Test_Select_FloatArithmeticLowersThroughX87Stack(t *testing.T) {
	// t0:F64 = AddF64(GET(0:F64), 1.5); PUT(8) = t0
	block := ir.Block{
		Types: ir.TypeEnv{0: ir.F64},
		Stmts: []ir.Stmt{
			ir.TempAssign{Dst: 0, Rhs: ir.Binop{
				Op:   ir.OpAddF64,
				Arg1: ir.Get{Offset: 0, Ty: ir.F64},
				Arg2: ir.ConstF64(1.5),
			}},
			ir.Put{Offset: 8, Data: ir.Temp{Idx: 0, Ty: ir.F64}},
		},
		Next: ir.ConstU32(0),
		Jk:   ir.JkBoring,
	}

	prog := mustSelect(t, block)
	assert.NotEmpty(t, prog.Instrs)

	var sawFPBinary bool
	for _, instr := range prog.Instrs {
		if instr.String() == "fadd" {
			sawFPBinary = true
		}
	}
	assert.True(t, sawFPBinary, "expected an fadd among: %v", prog.Instrs)
}

func Test_Select_ArrayOffsetRejectsNonPowerOfTwoNElems(t *testing.T) {
	block := ir.Block{
		Types: ir.TypeEnv{},
		Stmts: []ir.Stmt{
			ir.Put{
				Offset: 0,
				Data: ir.GetI{
					Descr: ir.ArrayDescr{Base: 100, ElemTy: ir.I32, NElems: 5},
					Ix:    ir.ConstU32(0),
					Bias:  0,
				},
			},
		},
		Next: ir.ConstU32(0),
		Jk:   ir.JkBoring,
	}

	var trace bytes.Buffer
	_, err := Select(block, &trace)
	require.Error(t, err)
	selErr, ok := err.(*SelError)
	require.True(t, ok)
	assert.Equal(t, ErrUnsupportedShape, selErr.Kind)
}

func Test_Select_DirtyCallMarshalsRegAndStackArgs(t *testing.T) {
	callee := &ir.Callee{Name: "helper_fn", RegParms: 3, PassEBP: false}
	block := ir.Block{
		Types: ir.TypeEnv{0: ir.I32},
		Stmts: []ir.Stmt{
			ir.DirtyCall{Call: &ir.DirtyCallDescr{
				Callee: callee,
				Args: []ir.Expr{
					ir.ConstU32(1), ir.ConstU32(2), ir.ConstU32(3), ir.ConstU32(4),
				},
				ResultTemp: 0,
				ResultTy:   ir.I32,
			}},
			ir.Put{Offset: 0, Data: ir.Temp{Idx: 0, Ty: ir.I32}},
		},
		Next: ir.ConstU32(0),
		Jk:   ir.JkBoring,
	}

	prog := mustSelect(t, block)

	var sawPush, sawCall bool
	for _, instr := range prog.Instrs {
		s := instr.String()
		if len(s) >= 5 && s[:5] == "pushl" {
			sawPush = true
		}
		if len(s) >= 4 && s[:4] == "call" {
			sawCall = true
		}
	}
	assert.True(t, sawPush, "fourth argument must be pushed on the stack")
	assert.True(t, sawCall)
}
