package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// selectR is the general fallback operand selector (§4.2): it always
// returns a virtual register, read-only to the caller. Every integer
// expression selector accepts {I8,I16,I32} and produces a 32-bit-wide
// result; the bits above the declared width are deliberately
// unspecified unless the caller masks them (spec.md §4.2, §9) — this is
// what lets the narrow add/xor/or/and/shift lowerings below emit a
// single 32-bit instruction instead of width-specific ones.
func selectR(env *Env, e ir.Expr) x86.VReg {
	vr := selectR_wrk(env, e)
	if vr.Kind != x86.Int {
		fail(ErrInvariantViolation, e, "R-form must return an int-kind register")
	}
	if !vr.Virtual && !x86.IsRealReg(vr) {
		fail(ErrInvariantViolation, e, "R-form must return a virtual register")
	}
	return vr
}

func selectR_wrk(env *Env, e ir.Expr) x86.VReg {
	switch x := e.(type) {

	case ir.Temp:
		return env.lookupVReg(x)

	case ir.Const:
		dst := env.newIntVReg()
		env.addInstr(x86.Mov32(dst, constRMI(x)))
		return dst

	case ir.Get:
		dst := env.newIntVReg()
		am := x86.BaseAMode(int32(x.Offset), x86.EBP)
		switch x.Ty {
		case ir.I32:
			env.addInstr(x86.Mov32(dst, x86.RMIMem(am)))
		case ir.I16:
			env.addInstr(x86.LoadExt(false, 2, dst, am))
		case ir.I8, ir.Bit:
			env.addInstr(x86.LoadExt(false, 1, dst, am))
		default:
			fail(ErrUnsupportedShape, e, "Get of non-integer type in R-form")
		}
		return dst

	case ir.GetI:
		am := selectArrayOffset(env, x.Descr, x.Ix, x.Bias)
		dst := env.newIntVReg()
		switch x.Descr.ElemTy {
		case ir.I32:
			env.addInstr(x86.Mov32(dst, x86.RMIMem(am)))
		case ir.I16:
			env.addInstr(x86.LoadExt(false, 2, dst, am))
		case ir.I8, ir.Bit:
			env.addInstr(x86.LoadExt(false, 1, dst, am))
		default:
			fail(ErrUnsupportedShape, e, "GetI of non-integer element type in R-form")
		}
		return dst

	case ir.Load:
		dst := env.newIntVReg()
		am := selectAMode(env, x.Addr)
		switch x.Ty {
		case ir.I32:
			env.addInstr(x86.Mov32(dst, x86.RMIMem(am)))
		case ir.I16:
			env.addInstr(x86.LoadExt(false, 2, dst, am))
		case ir.I8:
			env.addInstr(x86.LoadExt(false, 1, dst, am))
		default:
			fail(ErrUnsupportedShape, e, "Load of non-integer type in R-form")
		}
		return dst

	case ir.Binop:
		return selectBinopR(env, x)

	case ir.Unop:
		return selectUnopR(env, x)

	case ir.Mux0X:
		return selectMux0XR(env, x)

	case ir.CCall:
		eax := marshalCall(env, x.Callee, x.Args, nil)
		dst := env.newIntVReg()
		env.addInstr(x86.Mov32(dst, x86.RMIReg(eax)))
		return dst
	}

	fail(ErrUnsupportedShape, e, "cannot reduce tree in R-form")
	panic("unreachable")
}

func constRMI(c ir.Const) x86.RMI {
	switch c.Kind {
	case ir.CU8:
		return x86.RMIImm(uint32(c.U8()))
	case ir.CU16:
		return x86.RMIImm(uint32(c.U16()))
	case ir.CU32:
		return x86.RMIImm(c.U32())
	case ir.CBit:
		return x86.RMIImm(uint32(c.Bits))
	default:
		fail(ErrTypeViolation, c, "non-integer constant in integer R-form")
		panic("unreachable")
	}
}

// aluOpOf maps an 8/16/32-bit Add/Sub/And/Or/Xor opcode to its ALU
// sub-operation; ok is false for anything else (e.g. Mul, which needs
// its own widening-multiply emission).
func aluOpOf(op ir.BinaryOp) (x86.AluOp, bool) {
	switch op {
	case ir.OpAdd8, ir.OpAdd16, ir.OpAdd32:
		return x86.Add, true
	case ir.OpSub8, ir.OpSub16, ir.OpSub32:
		return x86.Sub, true
	case ir.OpAnd8, ir.OpAnd16, ir.OpAnd32:
		return x86.And, true
	case ir.OpOr8, ir.OpOr16, ir.OpOr32:
		return x86.Or, true
	case ir.OpXor8, ir.OpXor16, ir.OpXor32:
		return x86.Xor, true
	default:
		return 0, false
	}
}

func isMul(op ir.BinaryOp) bool {
	return op == ir.OpMul8 || op == ir.OpMul16 || op == ir.OpMul32
}

func shiftOpOf(op ir.BinaryOp) (x86.ShiftOp, int, bool) {
	switch op {
	case ir.OpShl8:
		return x86.Shl, 8, true
	case ir.OpShl16:
		return x86.Shl, 16, true
	case ir.OpShl32:
		return x86.Shl, 32, true
	case ir.OpShr8:
		return x86.Shr, 8, true
	case ir.OpShr16:
		return x86.Shr, 16, true
	case ir.OpShr32:
		return x86.Shr, 32, true
	case ir.OpSar8:
		return x86.Sar, 8, true
	case ir.OpSar16:
		return x86.Sar, 16, true
	case ir.OpSar32:
		return x86.Sar, 32, true
	default:
		return 0, 0, false
	}
}

func selectBinopR(env *Env, b ir.Binop) x86.VReg {
	// Sub32(0, x) -> negate.
	if b.Op == ir.OpSub32 {
		if c, ok := b.Arg1.(ir.Const); ok && c.Kind == ir.CU32 && c.U32() == 0 {
			dst := env.newIntVReg()
			env.addInstr(x86.Mov32(dst, x86.RMIReg(selectR(env, b.Arg2))))
			env.addInstr(x86.Neg(dst))
			return dst
		}
	}

	if aop, ok := aluOpOf(b.Op); ok {
		dst := env.newIntVReg()
		env.addInstr(x86.Mov32(dst, x86.RMIReg(selectR(env, b.Arg1))))
		rhs := selectRMI(env, b.Arg2)
		env.addInstr(x86.Alu32(aop, dst, rhs))
		return dst
	}

	if isMul(b.Op) {
		// Mul8/16/32 truncate to their operand width, so the low 32
		// bits of a full EAX*src widening multiply are the answer
		// regardless of signedness.
		env.addInstr(x86.Mov32(x86.EAX, x86.RMIReg(selectR(env, b.Arg1))))
		env.addInstr(x86.Mul(true, selectRM(env, b.Arg2)))
		dst := env.newIntVReg()
		env.addInstr(x86.Mov32(dst, x86.RMIReg(x86.EAX)))
		return dst
	}

	if sop, width, ok := shiftOpOf(b.Op); ok {
		return selectShiftR(env, sop, width, b.Arg1, b.Arg2)
	}

	switch b.Op {
	case ir.Op8HLto16:
		return selectHLtoR(env, 8, b.Arg1, b.Arg2)
	case ir.Op16HLto32:
		return selectHLtoR(env, 16, b.Arg1, b.Arg2)
	case ir.OpMullS8, ir.OpMullU8, ir.OpMullS16, ir.OpMullU16:
		return selectNarrowMullR(env, b)
	case ir.OpCmpF64:
		return selectCmpF64R(env, b)
	case ir.OpF64toI32:
		return selectF64toIntR(env, b, 4)
	case ir.OpF64toI16:
		return selectF64toIntR(env, b, 2)
	case ir.OpPRemC3210F64, ir.OpPRem1C3210F64:
		return selectPRemC3210R(env, b)
	}

	fail(ErrUnsupportedShape, b, "cannot reduce tree in R-form (binop)")
	panic("unreachable")
}

// selectShiftR lowers Shl/Shr/Sar at width ∈ {8,16,32}. If width < 32,
// narrow values are widened first: Shr8/16 mask to the width so zeros
// shift in from above; Shl8/16 need nothing, since upper bits are
// unspecified anyway; Sar8/16 must first shift left to sign-position
// the value at bit 31, so the subsequent arithmetic shift right
// produces correct sign propagation. A constant U8 shift amount becomes an immediate shift,
// skipped entirely when it is 0 (cl-form shifts have no valid
// zero-count encoding, so a literal 0 must never reach one); a variable
// amount is moved into %ecx and a cl-form shift is emitted.
func selectShiftR(env *Env, op x86.ShiftOp, width int, arg1, amount ir.Expr) x86.VReg {
	dst := env.newIntVReg()
	env.addInstr(x86.Mov32(dst, x86.RMIReg(selectR(env, arg1))))

	preShift := uint8(32 - width)
	if width < 32 {
		switch op {
		case x86.Shr:
			env.addInstr(x86.Alu32(x86.And, dst, x86.RMIImm((1<<uint(width))-1)))
		case x86.Sar:
			env.addInstr(x86.ShiftImm(x86.Shl, dst, preShift))
		}
	}

	if c, ok := amount.(ir.Const); ok && c.Kind == ir.CU8 {
		n := c.U8()
		if width < 32 && op == x86.Sar {
			n += preShift
		}
		if n == 0 {
			return dst
		}
		env.addInstr(x86.ShiftImm(op, dst, n))
		return dst
	}

	amt := selectR(env, amount)
	env.addInstr(x86.Mov32(x86.ECX, x86.RMIReg(amt)))
	if width < 32 && op == x86.Sar {
		// variable-count narrow Sar: widen amount by the pre-shift too
		// so a single cl-form shift still produces the correct result.
		env.addInstr(x86.Alu32(x86.Add, x86.ECX, x86.RMIImm(uint32(preShift))))
	}
	env.addInstr(x86.ShiftCL(op, dst))
	return dst
}

// selectHLtoR lowers 8HLto16(hi,lo)/16HLto32(hi,lo): hi is shifted left
// by `width`, lo is masked to `width` bits, the two are OR'd together.
func selectHLtoR(env *Env, width int, hi, lo ir.Expr) x86.VReg {
	hiv := env.newIntVReg()
	env.addInstr(x86.Mov32(hiv, x86.RMIReg(selectR(env, hi))))
	env.addInstr(x86.ShiftImm(x86.Shl, hiv, uint8(width)))

	lov := env.newIntVReg()
	env.addInstr(x86.Mov32(lov, x86.RMIReg(selectR(env, lo))))
	env.addInstr(x86.Alu32(x86.And, lov, x86.RMIImm((1<<uint(width))-1)))

	env.addInstr(x86.Alu32(x86.Or, hiv, x86.RMIReg(lov)))
	return hiv
}

// selectNarrowMullR lowers MullS8/U8/S16/U16: both operands are widened
// to 32 bits by shifting left by 24 (8-bit) or 16 (16-bit), so the
// operand's top bit lands at bit 31, then shifting back (signed:
// arithmetic; unsigned: logical), then a plain 32-bit multiply is used.
func selectNarrowMullR(env *Env, b ir.Binop) x86.VReg {
	var shift uint8
	var signed bool
	switch b.Op {
	case ir.OpMullS8:
		shift, signed = 24, true
	case ir.OpMullU8:
		shift, signed = 24, false
	case ir.OpMullS16:
		shift, signed = 16, true
	case ir.OpMullU16:
		shift, signed = 16, false
	}

	widen := func(arg ir.Expr) x86.VReg {
		v := env.newIntVReg()
		env.addInstr(x86.Mov32(v, x86.RMIReg(selectR(env, arg))))
		env.addInstr(x86.ShiftImm(x86.Shl, v, shift))
		if signed {
			env.addInstr(x86.ShiftImm(x86.Sar, v, shift))
		} else {
			env.addInstr(x86.ShiftImm(x86.Shr, v, shift))
		}
		return v
	}

	a := widen(b.Arg1)
	bb := widen(b.Arg2)
	env.addInstr(x86.Mov32(x86.EAX, x86.RMIReg(a)))
	env.addInstr(x86.Mul(signed, x86.RMReg(bb)))
	dst := env.newIntVReg()
	env.addInstr(x86.Mov32(dst, x86.RMIReg(x86.EAX)))
	return dst
}

// selectCmpF64R emits an FPU compare whose status word is captured into
// a GP register, then shifted right by 8 to normalize to the CmpF64
// contract (the status-word condition bits land at bits 8-10 after
// fcompp;fnstsw).
func selectCmpF64R(env *Env, b ir.Binop) x86.VReg {
	selectFP(env, b.Arg1, ir.F64)
	selectFP(env, b.Arg2, ir.F64)
	env.addInstr(x86.FPCompare())
	env.addInstr(x86.FPStoreStatusWordAX())
	dst := env.newIntVReg()
	env.addInstr(x86.Mov32(dst, x86.RMIReg(x86.EAX)))
	env.addInstr(x86.ShiftImm(x86.Shr, dst, 8))
	return dst
}

// defaultControlWord is 0x037F: round-to-nearest, all exceptions masked
// — the control word this core always restores after a rounding-mode
// dance (spec.md glossary).
const defaultControlWord = 0x037F

// selectF64toIntR lowers F64toI32(rm,x)/F64toI16(rm,x) per the exact
// sequence spec.md §8 scenario 6 pins down: reserve 4 bytes, assemble a
// control word from the dynamic rounding mode, load it, store+convert
// the float through the reserved slot, reload (zero-extending for
// width 2), restore the default control word, release the 4 bytes.
func selectF64toIntR(env *Env, b ir.Binop, width int) x86.VReg {
	selectFP(env, b.Arg2, ir.F64)

	env.reserveStack(4)
	slot := x86.BaseAMode(0, x86.ESP)

	cw := env.newIntVReg()
	env.addInstr(x86.Mov32(cw, x86.RMIReg(selectR(env, b.Arg1))))
	env.addInstr(x86.Alu32(x86.And, cw, x86.RMIImm(3)))
	env.addInstr(x86.ShiftImm(x86.Shl, cw, 10))
	env.addInstr(x86.Alu32(x86.Or, cw, x86.RMIImm(defaultControlWord)))
	env.addInstr(x86.Store(4, slot, x86.RIReg(cw)))
	env.addInstr(x86.FPLoadCW(slot))

	env.addInstr(x86.FPStoreInt(width, slot))

	dst := env.newIntVReg()
	if width == 2 {
		env.addInstr(x86.LoadExt(false, 2, dst, slot))
	} else {
		env.addInstr(x86.Mov32(dst, x86.RMIMem(slot)))
	}

	env.addInstr(x86.Store(4, slot, x86.RIImm(defaultControlWord)))
	env.addInstr(x86.FPLoadCW(slot))
	env.releaseStack(4)
	return dst
}

// selectPRemC3210R lowers PRemC3210F64/PRem1C3210F64: emit the
// corresponding x87 partial-remainder pseudo-op (its FP result is
// discarded), capture the status word into %ax, mask with 0x4700 to
// keep only the C3/C2/C1/C0 condition bits.
func selectPRemC3210R(env *Env, b ir.Binop) x86.VReg {
	selectFP(env, b.Arg1, ir.F64)
	selectFP(env, b.Arg2, ir.F64)
	if b.Op == ir.OpPRemC3210F64 {
		env.addInstr(x86.FPBinary(x86.FPrem))
	} else {
		env.addInstr(x86.FPBinary(x86.FPrem1))
	}
	env.addInstr(x86.FPStoreStatusWordAX())
	dst := env.newIntVReg()
	env.addInstr(x86.Mov32(dst, x86.RMIReg(x86.EAX)))
	env.addInstr(x86.Alu32(x86.And, dst, x86.RMIImm(0x4700)))
	return dst
}

func selectUnopR(env *Env, u ir.Unop) x86.VReg {
	// 1Uto8(32to1(e)) -> e & 1
	if u.Op == ir.Op1Uto8 {
		if mi, ok := Match(patterns.oneUto8Of32to1, u); ok {
			dst := env.newIntVReg()
			env.addInstr(x86.Mov32(dst, x86.RMIReg(selectR(env, mi.Slots[0]))))
			env.addInstr(x86.Alu32(x86.And, dst, x86.RMIImm(1)))
			return dst
		}
	}
	// 16Uto32(LDle(a)) -> zero-extending 2-byte load
	if u.Op == ir.Op16Uto32 {
		if mi, ok := Match(patterns.sixteenUto32OfLoad, u); ok {
			dst := env.newIntVReg()
			am := selectAMode(env, mi.Slots[0])
			env.addInstr(x86.LoadExt(false, 2, dst, am))
			return dst
		}
	}

	switch u.Op {
	case ir.Op8Uto32:
		return widenZero(env, u.Arg, 0xFF)
	case ir.Op16Uto32:
		return widenZero(env, u.Arg, 0xFFFF)
	case ir.Op1Uto32:
		return widenZero(env, u.Arg, 1)
	case ir.Op8Sto32:
		return widenSign(env, u.Arg, 24)
	case ir.Op16Sto32:
		return widenSign(env, u.Arg, 16)
	case ir.OpNot32:
		dst := env.newIntVReg()
		env.addInstr(x86.Mov32(dst, x86.RMIReg(selectR(env, u.Arg))))
		env.addInstr(x86.Not(dst))
		return dst
	case ir.Op64HIto32:
		hi, _ := selectI64(env, u.Arg)
		return hi
	case ir.Op64to32:
		_, lo := selectI64(env, u.Arg)
		return lo
	case ir.Op16HIto8:
		return shiftRightInto(env, u.Arg, 8)
	case ir.Op32HIto16:
		return shiftRightInto(env, u.Arg, 16)
	case ir.Op1Uto8:
		return setFromCC(env, u.Arg, false, 0)
	case ir.Op1Sto8:
		return setFromCC(env, u.Arg, true, 31)
	case ir.Op1Sto16:
		return setFromCC(env, u.Arg, true, 31)
	case ir.Op1Sto32:
		return setFromCC(env, u.Arg, true, 31)
	case ir.OpCtz32:
		dst := env.newIntVReg()
		env.addInstr(x86.Bsf(dst, selectRM(env, u.Arg)))
		return dst
	case ir.OpClz32:
		bsr := env.newIntVReg()
		env.addInstr(x86.Bsr(bsr, selectRM(env, u.Arg)))
		return clzFixup(env, bsr)
	case ir.Op16to8, ir.Op32to16:
		// no-op narrowing: upper bits are unspecified by contract anyway
		return selectR(env, u.Arg)
	}

	fail(ErrUnsupportedShape, u, "cannot reduce tree in R-form (unop)")
	panic("unreachable")
}

func widenZero(env *Env, arg ir.Expr, mask uint32) x86.VReg {
	dst := env.newIntVReg()
	env.addInstr(x86.Mov32(dst, x86.RMIReg(selectR(env, arg))))
	env.addInstr(x86.Alu32(x86.And, dst, x86.RMIImm(mask)))
	return dst
}

func widenSign(env *Env, arg ir.Expr, shift uint8) x86.VReg {
	dst := env.newIntVReg()
	env.addInstr(x86.Mov32(dst, x86.RMIReg(selectR(env, arg))))
	env.addInstr(x86.ShiftImm(x86.Shl, dst, shift))
	env.addInstr(x86.ShiftImm(x86.Sar, dst, shift))
	return dst
}

func shiftRightInto(env *Env, arg ir.Expr, amount uint8) x86.VReg {
	dst := env.newIntVReg()
	env.addInstr(x86.Mov32(dst, x86.RMIReg(selectR(env, arg))))
	env.addInstr(x86.ShiftImm(x86.Shr, dst, amount))
	return dst
}

// setFromCC evaluates arg as a condition code, sets dst 0/1 from it,
// and for the 1Sto* family additionally shift-left/arith-shift-right
// to sign-extend 0/1 into 0/-1 at the target width.
func setFromCC(env *Env, arg ir.Expr, signExtend bool, shift uint8) x86.VReg {
	cc := selectCondCode(env, arg)
	dst := env.newIntVReg()
	env.addInstr(x86.Set(cc, dst))
	if signExtend {
		env.addInstr(x86.ShiftImm(x86.Shl, dst, shift))
		env.addInstr(x86.ShiftImm(x86.Sar, dst, shift))
	}
	return dst
}

func clzFixup(env *Env, bsrResult x86.VReg) x86.VReg {
	// bsr gives the index of the highest set bit; Clz32 wants the count
	// of leading zeros, i.e. 31 - bsr(x).
	dst := env.newIntVReg()
	env.addInstr(x86.Mov32(dst, x86.RMIImm(31)))
	env.addInstr(x86.Alu32(x86.Sub, dst, x86.RMIReg(bsrResult)))
	return dst
}

// selectMux0XR lowers Mux0X at i32: select ExprX into a fresh register,
// test the low byte of Cond, conditionally move Expr0's register-or-
// memory form in if Cond == 0.
func selectMux0XR(env *Env, m ir.Mux0X) x86.VReg {
	dst := env.newIntVReg()
	env.addInstr(x86.Mov32(dst, x86.RMIReg(selectR(env, m.ExprX))))
	cond := selectR(env, m.Cond)
	env.addInstr(x86.Test(0xFF, x86.RMReg(cond)))
	e0 := selectRM(env, m.Expr0)
	env.addInstr(x86.Cmov(x86.Z, dst, e0))
	return dst
}
