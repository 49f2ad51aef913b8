package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// fpWidth returns the in-memory width (bytes) of a floating type.
func fpWidth(ty ir.Type) int {
	if ty == ir.F32 {
		return 4
	}
	return 8
}

// selectFP lowers a floating expression onto the top of the x87 stack
// (§4.5). Unlike the integer selectors, it has no register result to
// return: every FP value this core produces is immediately consumed by
// the next FP instruction or stored straight back to memory, since x87
// has no general-purpose register file to park it in (glossary, "float
// virtual register").
func selectFP(env *Env, e ir.Expr, ty ir.Type) {
	switch x := e.(type) {

	case ir.Temp:
		v := env.lookupVReg(x)
		env.addInstr(x86.FPLoad(fpWidth(ty), env.floatSlot(v)))
		return

	case ir.Load:
		am := selectAMode(env, x.Addr)
		env.addInstr(x86.FPLoad(fpWidth(x.Ty), am))
		return

	case ir.Get:
		am := x86.BaseAMode(int32(x.Offset), x86.EBP)
		env.addInstr(x86.FPLoad(fpWidth(x.Ty), am))
		return

	case ir.GetI:
		am := selectArrayOffset(env, x.Descr, x.Ix, x.Bias)
		env.addInstr(x86.FPLoad(fpWidth(x.Descr.ElemTy), am))
		return

	case ir.Const:
		selectFPConst(env, x)
		return

	case ir.Mux0X:
		selectFP(env, x.ExprX, ty)
		selectFP(env, x.Expr0, ty)
		cond := selectR(env, x.Cond)
		env.addInstr(x86.Test(0xFF, x86.RMReg(cond)))
		env.addInstr(x86.FPCmov(x86.NZ))
		return

	case ir.Binop:
		selectBinopFP(env, x)
		return

	case ir.Unop:
		selectUnopFP(env, x)
		return

	case ir.CCall:
		// The regparm convention returns F64 results directly on the
		// x87 stack top; nothing further is needed here.
		marshalCall(env, x.Callee, x.Args, nil)
		return
	}

	fail(ErrUnsupportedShape, e, "cannot reduce tree onto the FPU stack")
}

// selectFPConst materializes a float constant by writing its bit
// pattern to a transient stack slot and loading it from there — x87 has
// no "load immediate" instruction.
func selectFPConst(env *Env, c ir.Const) {
	if c.Kind != ir.CF64 && c.Kind != ir.CF64i {
		fail(ErrTypeViolation, c, "non-float constant reaching selectFP")
	}
	bits := c.Bits
	env.reserveStack(8)
	slot := x86.BaseAMode(0, x86.ESP)
	env.addInstr(x86.Store(4, slot, x86.RIImm(uint32(bits))))
	env.addInstr(x86.Store(4, offsetAMode(slot, 4), x86.RIImm(uint32(bits>>32))))
	env.addInstr(x86.FPLoad(8, slot))
	env.releaseStack(8)
}

var fpBinOpOf = map[ir.BinaryOp]x86.FPOp{
	ir.OpAddF64:    x86.FAdd,
	ir.OpSubF64:    x86.FSub,
	ir.OpMulF64:    x86.FMul,
	ir.OpDivF64:    x86.FDiv,
	ir.OpScaleF64:  x86.FScale,
	ir.OpAtanF64:   x86.FAtan,
	ir.OpYl2xF64:   x86.FYl2x,
	ir.OpYl2xp1F64: x86.FYl2xp1,
	ir.OpPRemF64:   x86.FPrem,
	ir.OpPRem1F64:  x86.FPrem1,
}

func selectBinopFP(env *Env, b ir.Binop) {
	if b.Op == ir.OpRoundF64 {
		selectRoundF64(env, b.Arg1, b.Arg2)
		return
	}
	fop, ok := fpBinOpOf[b.Op]
	if !ok {
		fail(ErrUnsupportedShape, b, "cannot reduce tree onto the FPU stack (binop)")
	}
	selectFP(env, b.Arg1, ir.F64)
	selectFP(env, b.Arg2, ir.F64)
	env.addInstr(x86.FPBinary(fop))
}

// selectRoundF64 lowers RoundF64(rm, x): load x, install a control word
// carrying the dynamic rounding mode, round, then restore the default
// control word — the same control-word dance used by the int/float
// conversions, specialized to stay in F64 (spec.md §8 scenario 6 family).
func selectRoundF64(env *Env, rm, x ir.Expr) {
	selectFP(env, x, ir.F64)

	env.reserveStack(4)
	slot := x86.BaseAMode(0, x86.ESP)

	cw := env.newIntVReg()
	env.addInstr(x86.Mov32(cw, x86.RMIReg(selectR(env, rm))))
	env.addInstr(x86.Alu32(x86.And, cw, x86.RMIImm(3)))
	env.addInstr(x86.ShiftImm(x86.Shl, cw, 10))
	env.addInstr(x86.Alu32(x86.Or, cw, x86.RMIImm(defaultControlWord)))
	env.addInstr(x86.Store(4, slot, x86.RIReg(cw)))
	env.addInstr(x86.FPLoadCW(slot))

	env.addInstr(x86.FPUnary(x86.FRound))

	env.addInstr(x86.Store(4, slot, x86.RIImm(defaultControlWord)))
	env.addInstr(x86.FPLoadCW(slot))
	env.releaseStack(4)
}

var fpUnOpOf = map[ir.UnaryOp]x86.FPOp{
	ir.OpNegF64:  x86.FNeg,
	ir.OpAbsF64:  x86.FAbs,
	ir.OpSqrtF64: x86.FSqrt,
	ir.OpSinF64:  x86.FSin,
	ir.OpCosF64:  x86.FCos,
	ir.OpTanF64:  x86.FTan,
	ir.Op2xm1F64: x86.F2xm1,
}

func selectUnopFP(env *Env, u ir.Unop) {
	switch u.Op {
	case ir.OpI32toF64:
		selectFPIntLoad(env, u.Arg, 4)
		return
	case ir.OpI64toF64:
		selectFPIntLoad64(env, u.Arg)
		return
	case ir.OpReinterpI64asF64:
		hi, lo := selectI64(env, u.Arg)
		env.reserveStack(8)
		slot := x86.BaseAMode(0, x86.ESP)
		env.addInstr(x86.Store(4, slot, x86.RIReg(lo)))
		env.addInstr(x86.Store(4, offsetAMode(slot, 4), x86.RIReg(hi)))
		env.addInstr(x86.FPLoad(8, slot))
		env.releaseStack(8)
		return
	case ir.OpF32toF64, ir.OpF64toF32:
		// Both directions load/store through the x87 stack, which
		// always holds values at full (80-bit internal, F64-visible)
		// precision; the narrowing to F32 happens only when a later
		// FPStore targets a 4-byte slot, so there is nothing to emit
		// here beyond evaluating the operand.
		selectFP(env, u.Arg, ir.F64)
		return
	}

	fop, ok := fpUnOpOf[u.Op]
	if !ok {
		fail(ErrUnsupportedShape, u, "cannot reduce tree onto the FPU stack (unop)")
	}
	selectFP(env, u.Arg, ir.F64)
	env.addInstr(x86.FPUnary(fop))
}

// selectFPIntLoad lowers I32toF64: store the integer to a transient
// slot and let the x87 "load integer" form do the conversion.
func selectFPIntLoad(env *Env, arg ir.Expr, width int) {
	r := selectR(env, arg)
	env.reserveStack(4)
	slot := x86.BaseAMode(0, x86.ESP)
	env.addInstr(x86.Store(4, slot, x86.RIReg(r)))
	env.addInstr(x86.FPLoadInt(width, slot))
	env.releaseStack(4)
}

func selectFPIntLoad64(env *Env, arg ir.Expr) {
	hi, lo := selectI64(env, arg)
	env.reserveStack(8)
	slot := x86.BaseAMode(0, x86.ESP)
	env.addInstr(x86.Store(4, slot, x86.RIReg(lo)))
	env.addInstr(x86.Store(4, offsetAMode(slot, 4), x86.RIReg(hi)))
	env.addInstr(x86.FPLoadInt(8, slot))
	env.releaseStack(8)
}
