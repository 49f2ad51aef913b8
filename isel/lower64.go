package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// selectI64 lowers a 64-bit integer expression onto a (hi, lo) pair of
// 32-bit virtual registers (§4.4 / glossary "virtual register pair").
// There is no single "i64 register": every consumer of a 64-bit value
// receives both halves and is responsible for combining them the way
// its own operation needs.
func selectI64(env *Env, e ir.Expr) (hi, lo x86.VReg) {
	hi, lo = selectI64_wrk(env, e)
	if hi.Kind != x86.Int || lo.Kind != x86.Int {
		fail(ErrInvariantViolation, e, "i64 lowering must produce int-kind halves")
	}
	return hi, lo
}

func selectI64_wrk(env *Env, e ir.Expr) (hi, lo x86.VReg) {
	switch x := e.(type) {

	case ir.Temp:
		return env.lookupVRegPair(x)

	case ir.Const:
		if x.Kind != ir.CU64 {
			fail(ErrTypeViolation, e, "non-i64 constant reaching selectI64")
		}
		v := x.U64()
		hi = env.newIntVReg()
		lo = env.newIntVReg()
		env.addInstr(x86.Mov32(hi, x86.RMIImm(uint32(v>>32))))
		env.addInstr(x86.Mov32(lo, x86.RMIImm(uint32(v))))
		return hi, lo

	case ir.Load:
		am := selectAMode(env, x.Addr)
		return loadI64Pair(env, am)

	case ir.GetI:
		am := selectArrayOffset(env, x.Descr, x.Ix, x.Bias)
		return loadI64Pair(env, am)

	case ir.Mux0X:
		xhi, xlo := selectI64(env, x.ExprX)
		zeroHi, zeroLo := selectI64(env, x.Expr0)
		hi = env.newIntVReg()
		lo = env.newIntVReg()
		env.addInstr(x86.Mov32(hi, x86.RMIReg(xhi)))
		env.addInstr(x86.Mov32(lo, x86.RMIReg(xlo)))
		cond := selectR(env, x.Cond)
		env.addInstr(x86.Test(0xFF, x86.RMReg(cond)))
		// The cond test's flags must survive both cmovs: both arms are
		// already selected, and a cmov does not touch the flags.
		env.addInstr(x86.Cmov(x86.Z, lo, x86.RMReg(zeroLo)))
		env.addInstr(x86.Cmov(x86.Z, hi, x86.RMReg(zeroHi)))
		return hi, lo

	case ir.Binop:
		return selectBinopI64(env, x)

	case ir.Unop:
		return selectUnopI64(env, x)

	case ir.CCall:
		eax := marshalCall(env, x.Callee, x.Args, nil)
		hi = env.newIntVReg()
		lo = env.newIntVReg()
		env.addInstr(x86.Mov32(lo, x86.RMIReg(eax)))
		env.addInstr(x86.Mov32(hi, x86.RMIReg(x86.EDX)))
		return hi, lo
	}

	fail(ErrUnsupportedShape, e, "cannot reduce tree to an i64 pair")
	panic("unreachable")
}

func loadI64Pair(env *Env, am x86.AMode) (hi, lo x86.VReg) {
	lo = env.newIntVReg()
	env.addInstr(x86.Mov32(lo, x86.RMIMem(am)))
	hi = env.newIntVReg()
	env.addInstr(x86.Mov32(hi, x86.RMIMem(offsetAMode(am, 4))))
	return hi, lo
}

// offsetAMode returns am with its displacement shifted by delta, used
// to reach the high word of a little-endian 64-bit value stored at am.
func offsetAMode(am x86.AMode, delta int32) x86.AMode {
	if am.HasIndex() {
		return x86.ScaledAMode(am.Disp+delta, am.Base, am.Index, am.Scale)
	}
	return x86.BaseAMode(am.Disp+delta, am.Base)
}

func selectBinopI64(env *Env, b ir.Binop) (hi, lo x86.VReg) {
	switch b.Op {
	case ir.OpMullU32, ir.OpMullS32:
		signed := b.Op == ir.OpMullS32
		env.addInstr(x86.Mov32(x86.EAX, x86.RMIReg(selectR(env, b.Arg1))))
		env.addInstr(x86.Mul(signed, selectRM(env, b.Arg2)))
		hi = env.newIntVReg()
		lo = env.newIntVReg()
		env.addInstr(x86.Mov32(hi, x86.RMIReg(x86.EDX)))
		env.addInstr(x86.Mov32(lo, x86.RMIReg(x86.EAX)))
		return hi, lo

	case ir.OpDivModU64to32, ir.OpDivModS64to32:
		signed := b.Op == ir.OpDivModS64to32
		xhi, xlo := selectI64(env, b.Arg1)
		env.addInstr(x86.Mov32(x86.EDX, x86.RMIReg(xhi)))
		env.addInstr(x86.Mov32(x86.EAX, x86.RMIReg(xlo)))
		env.addInstr(x86.Div(signed, selectRM(env, b.Arg2)))
		hi = env.newIntVReg()
		lo = env.newIntVReg()
		env.addInstr(x86.Mov32(hi, x86.RMIReg(x86.EDX))) // remainder
		env.addInstr(x86.Mov32(lo, x86.RMIReg(x86.EAX))) // quotient
		return hi, lo

	case ir.OpOr64:
		ahi, alo := selectI64(env, b.Arg1)
		bhi, blo := selectI64(env, b.Arg2)
		hi = env.newIntVReg()
		env.addInstr(x86.Mov32(hi, x86.RMIReg(ahi)))
		env.addInstr(x86.Alu32(x86.Or, hi, x86.RMIReg(bhi)))
		lo = env.newIntVReg()
		env.addInstr(x86.Mov32(lo, x86.RMIReg(alo)))
		env.addInstr(x86.Alu32(x86.Or, lo, x86.RMIReg(blo)))
		return hi, lo

	case ir.Op32HLto64:
		hi = selectR(env, b.Arg1)
		lo = selectR(env, b.Arg2)
		return hi, lo

	case ir.OpShl64:
		return selectShl64(env, b.Arg1, b.Arg2)

	case ir.OpShr64:
		return selectShr64(env, b.Arg1, b.Arg2)

	case ir.OpF64toI64:
		return selectF64toI64(env, b)
	}

	fail(ErrUnsupportedShape, b, "cannot reduce tree to an i64 pair (binop)")
	panic("unreachable")
}

// selectShl64 lowers Shl64(x, amt): shift the (hi,lo) pair left by amt%64
// using the shld/shl pair ("the same ingenious scheme as gcc", per §4.4)
// and a test-$32/cmov fixup for shift amounts in [32,63] that move the
// whole low half into the high half and zero the low half.
func selectShl64(env *Env, x, amt ir.Expr) (hi, lo x86.VReg) {
	rAmt := selectR(env, amt)
	xhi, xlo := selectI64(env, x)

	env.addInstr(x86.Mov32(x86.ECX, x86.RMIReg(rAmt)))
	hi = env.newIntVReg()
	lo = env.newIntVReg()
	env.addInstr(x86.Mov32(hi, x86.RMIReg(xhi)))
	env.addInstr(x86.Mov32(lo, x86.RMIReg(xlo)))

	env.addInstr(x86.Shld(hi, lo))
	env.addInstr(x86.ShiftCL(x86.Shl, lo))

	env.addInstr(x86.Test(32, x86.RMReg(x86.ECX)))
	env.addInstr(x86.Cmov(x86.NZ, hi, x86.RMReg(lo)))
	tmp := env.newIntVReg()
	env.addInstr(x86.Mov32(tmp, x86.RMIImm(0)))
	env.addInstr(x86.Cmov(x86.NZ, lo, x86.RMReg(tmp)))
	return hi, lo
}

// selectShr64 lowers Shr64(x, amt): the mirror image of selectShl64 —
// shrd/shr, then a fixup that moves the whole high half into the low
// half and zeroes the high half for shift amounts in [32,63].
func selectShr64(env *Env, x, amt ir.Expr) (hi, lo x86.VReg) {
	rAmt := selectR(env, amt)
	xhi, xlo := selectI64(env, x)

	env.addInstr(x86.Mov32(x86.ECX, x86.RMIReg(rAmt)))
	hi = env.newIntVReg()
	lo = env.newIntVReg()
	env.addInstr(x86.Mov32(hi, x86.RMIReg(xhi)))
	env.addInstr(x86.Mov32(lo, x86.RMIReg(xlo)))

	env.addInstr(x86.Shrd(lo, hi))
	env.addInstr(x86.ShiftCL(x86.Shr, hi))

	env.addInstr(x86.Test(32, x86.RMReg(x86.ECX)))
	env.addInstr(x86.Cmov(x86.NZ, lo, x86.RMReg(hi)))
	tmp := env.newIntVReg()
	env.addInstr(x86.Mov32(tmp, x86.RMIImm(0)))
	env.addInstr(x86.Cmov(x86.NZ, hi, x86.RMReg(tmp)))
	return hi, lo
}

// selectF64toI64 lowers F64toI64(rm,x): the same control-word dance as
// selectF64toIntR (§4.2's F64toI32/F64toI16), widened to an 8-byte store
// and a two-halves reload instead of a single register.
func selectF64toI64(env *Env, b ir.Binop) (hi, lo x86.VReg) {
	selectFP(env, b.Arg2, ir.F64)

	env.reserveStack(8)
	slot := x86.BaseAMode(0, x86.ESP)

	cw := env.newIntVReg()
	env.addInstr(x86.Mov32(cw, x86.RMIReg(selectR(env, b.Arg1))))
	env.addInstr(x86.Alu32(x86.And, cw, x86.RMIImm(3)))
	env.addInstr(x86.ShiftImm(x86.Shl, cw, 10))
	env.addInstr(x86.Alu32(x86.Or, cw, x86.RMIImm(defaultControlWord)))
	env.addInstr(x86.Store(4, slot, x86.RIReg(cw)))
	env.addInstr(x86.FPLoadCW(slot))

	env.addInstr(x86.FPStoreInt(8, slot))
	hi, lo = loadI64Pair(env, slot)

	env.addInstr(x86.Store(4, slot, x86.RIImm(defaultControlWord)))
	env.addInstr(x86.FPLoadCW(slot))
	env.releaseStack(8)
	return hi, lo
}

func selectUnopI64(env *Env, u ir.Unop) (hi, lo x86.VReg) {
	switch u.Op {
	case ir.Op32Sto64:
		lo = env.newIntVReg()
		env.addInstr(x86.Mov32(lo, x86.RMIReg(selectR(env, u.Arg))))
		hi = env.newIntVReg()
		env.addInstr(x86.Mov32(hi, x86.RMIReg(lo)))
		env.addInstr(x86.ShiftImm(x86.Sar, hi, 31))
		return hi, lo

	case ir.Op32Uto64:
		lo = env.newIntVReg()
		env.addInstr(x86.Mov32(lo, x86.RMIReg(selectR(env, u.Arg))))
		hi = env.newIntVReg()
		env.addInstr(x86.Mov32(hi, x86.RMIImm(0)))
		return hi, lo

	case ir.Op1Sto64:
		cc := selectCondCode(env, u.Arg)
		lo = env.newIntVReg()
		env.addInstr(x86.Set(cc, lo))
		env.addInstr(x86.ShiftImm(x86.Shl, lo, 31))
		env.addInstr(x86.ShiftImm(x86.Sar, lo, 31))
		hi = env.newIntVReg()
		env.addInstr(x86.Mov32(hi, x86.RMIReg(lo)))
		return hi, lo

	case ir.OpReinterpF64asI64:
		env.reserveStack(8)
		slot := x86.BaseAMode(0, x86.ESP)
		selectFP(env, u.Arg, ir.F64)
		env.addInstr(x86.FPStore(8, slot))
		hi, lo = loadI64Pair(env, slot)
		env.releaseStack(8)
		return hi, lo
	}

	fail(ErrUnsupportedShape, u, "cannot reduce tree to an i64 pair (unop)")
	panic("unreachable")
}

