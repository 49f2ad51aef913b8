package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// selectCondCode lowers a Bit-typed expression into an x86.CondCode
// plus whatever flag-setting instructions it needs to emit first
// (§4.3). The result is only meaningful immediately after emission —
// any later instruction that disturbs the flags invalidates it, so
// callers must consume the returned CondCode before emitting anything
// else.
func selectCondCode(env *Env, e ir.Expr) x86.CondCode {
	switch x := e.(type) {

	case ir.Const:
		if x.Kind == ir.CBit && x.Bits != 0 {
			return x86.ALWAYS
		}
		// A constant-false condition should have been folded away
		// upstream; fall through to the general Temp path so it still
		// produces a correct (if wasteful) comparison.
		dst := env.newIntVReg()
		env.addInstr(x86.Mov32(dst, constRMI(x)))
		env.addInstr(x86.Alu32(x86.And, dst, x86.RMIImm(1)))
		return x86.NZ

	case ir.Unop:
		switch x.Op {
		case ir.OpNot1:
			return x86.Invert(selectCondCode(env, x.Arg))

		case ir.Op32to1:
			// 32to1(1Uto32(e)) is a redundant round trip through I32;
			// recurse straight on e instead of testing twice.
			if inner, ok := x.Arg.(ir.Unop); ok && inner.Op == ir.Op1Uto32 {
				return selectCondCode(env, inner.Arg)
			}
			r := selectR(env, x.Arg)
			env.addInstr(x86.Test(1, x86.RMReg(r)))
			return x86.NZ
		}

	case ir.Binop:
		switch x.Op {
		case ir.OpCmpEQ8, ir.OpCmpNE8:
			return selectCmpMasked(env, x, 0xFF, x.Op == ir.OpCmpEQ8)
		case ir.OpCmpEQ16, ir.OpCmpNE16:
			return selectCmpMasked(env, x, 0xFFFF, x.Op == ir.OpCmpEQ16)
		case ir.OpCmpEQ32, ir.OpCmpNE32, ir.OpCmpLT32S, ir.OpCmpLT32U,
			ir.OpCmpLE32S, ir.OpCmpLE32U:
			return selectCmp32(env, x)
		case ir.OpCmpNE64:
			return selectCmpNE64(env, x)
		}

	case ir.Temp:
		r := env.lookupVReg(x)
		dst := env.newIntVReg()
		env.addInstr(x86.Mov32(dst, x86.RMIReg(r)))
		env.addInstr(x86.Alu32(x86.And, dst, x86.RMIImm(1)))
		return x86.NZ
	}

	fail(ErrUnsupportedShape, e, "cannot reduce tree to a condition code")
	panic("unreachable")
}

// selectCmpMasked lowers CmpEQ8/NE8 and CmpEQ16/NE16: xor the two
// operands, mask to the comparison width, and test for zero.
func selectCmpMasked(env *Env, b ir.Binop, mask uint32, wantEQ bool) x86.CondCode {
	t := env.newIntVReg()
	env.addInstr(x86.Mov32(t, x86.RMIReg(selectR(env, b.Arg1))))
	env.addInstr(x86.Alu32(x86.Xor, t, selectRMI(env, b.Arg2)))
	env.addInstr(x86.Alu32(x86.And, t, x86.RMIImm(mask)))
	env.addInstr(x86.Test(mask, x86.RMReg(t)))
	if wantEQ {
		return x86.Z
	}
	return x86.NZ
}

func selectCmp32(env *Env, b ir.Binop) x86.CondCode {
	lhs := env.newIntVReg()
	env.addInstr(x86.Mov32(lhs, x86.RMIReg(selectR(env, b.Arg1))))
	env.addInstr(x86.Cmp32(lhs, selectRMI(env, b.Arg2)))
	switch b.Op {
	case ir.OpCmpEQ32:
		return x86.Z
	case ir.OpCmpNE32:
		return x86.NZ
	case ir.OpCmpLT32S:
		return x86.L
	case ir.OpCmpLT32U:
		return x86.B
	case ir.OpCmpLE32S:
		return x86.LE
	case ir.OpCmpLE32U:
		return x86.BE
	}
	fail(ErrInvariantViolation, b, "selectCmp32 called with non-comparison op")
	panic("unreachable")
}

// selectCmpNE64 lowers CmpNE64. CmpNE64(1Sto64(b), 0) is recognized as
// the "widen a condition to i64 just to compare it against zero" idiom
// and collapses straight back to the inner condition: 1Sto64(b) is 0 or
// -1, so it is nonzero exactly when b is true. The general case ORs the
// XOR of both halves and tests for nonzero.
func selectCmpNE64(env *Env, b ir.Binop) x86.CondCode {
	if u, ok := b.Arg1.(ir.Unop); ok && u.Op == ir.Op1Sto64 {
		if c, ok := b.Arg2.(ir.Const); ok && c.Kind == ir.CU64 && c.U64() == 0 {
			return selectCondCode(env, u.Arg)
		}
	}

	xhi, xlo := selectI64(env, b.Arg1)
	yhi, ylo := selectI64(env, b.Arg2)

	thi := env.newIntVReg()
	env.addInstr(x86.Mov32(thi, x86.RMIReg(xhi)))
	env.addInstr(x86.Alu32(x86.Xor, thi, x86.RMIReg(yhi)))

	tlo := env.newIntVReg()
	env.addInstr(x86.Mov32(tlo, x86.RMIReg(xlo)))
	env.addInstr(x86.Alu32(x86.Xor, tlo, x86.RMIReg(ylo)))

	env.addInstr(x86.Alu32(x86.Or, thi, x86.RMIReg(tlo)))
	env.addInstr(x86.Test(0xFFFFFFFF, x86.RMReg(thi)))
	return x86.NZ
}
