package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// selectArrayOffset lowers a guest-state array index into an AMode
// (§4.7): ix + bias is wrapped into [0, NElems) by a bitwise AND, which
// only produces the correct modulus when NElems is a power of two —
// true of every array VEX's front ends actually emit (register files
// sized 8/16/32), so anything else is rejected rather than silently
// mishandled with a slow div/mod sequence this core doesn't implement.
func selectArrayOffset(env *Env, descr ir.ArrayDescr, ix ir.Expr, bias int) x86.AMode {
	if descr.NElems <= 0 || !isPow2(descr.NElems) {
		fail(ErrUnsupportedShape, ix, "array descriptor NElems must be a positive power of two")
	}
	elemSize := descr.ElemTy.Size()
	scale, ok := log2Scale(elemSize)
	if !ok {
		fail(ErrUnsupportedShape, ix, "array element size must be 1, 2, 4 or 8 bytes")
	}

	idx := env.newIntVReg()
	env.addInstr(x86.Mov32(idx, x86.RMIReg(selectR(env, ix))))
	if bias != 0 {
		env.addInstr(x86.Alu32(x86.Add, idx, x86.RMIImm(uint32(bias))))
	}
	env.addInstr(x86.Alu32(x86.And, idx, x86.RMIImm(uint32(descr.NElems-1))))

	return x86.ScaledAMode(int32(descr.Base), x86.EBP, idx, scale)
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

func log2Scale(size int) (uint8, bool) {
	switch size {
	case 1:
		return 0, true
	case 2:
		return 1, true
	case 4:
		return 2, true
	case 8:
		return 3, true
	default:
		return 0, false
	}
}
