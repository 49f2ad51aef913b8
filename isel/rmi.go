package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// selectRMI lowers e into the richest operand slot (register, memory,
// or immediate) most ALU instructions accept. It folds constants
// directly into immediates (16- and 8-bit constants are zero-extended
// to 32 bits) and 32-bit guest-state Gets into a memory operand at
// offset(%ebp); everything else falls through to R (§4.2).
func selectRMI(env *Env, e ir.Expr) x86.RMI {
	rmi := selectRMI_wrk(env, e)
	validateRMI(e, rmi)
	return rmi
}

func selectRMI_wrk(env *Env, e ir.Expr) x86.RMI {
	if c, ok := e.(ir.Const); ok {
		switch c.Kind {
		case ir.CU8:
			return x86.RMIImm(uint32(c.U8()))
		case ir.CU16:
			return x86.RMIImm(uint32(c.U16()))
		case ir.CU32:
			return x86.RMIImm(c.U32())
		case ir.CBit:
			return x86.RMIImm(uint32(c.Bits))
		}
	}
	if g, ok := e.(ir.Get); ok && g.Ty == ir.I32 {
		return x86.RMIMem(x86.BaseAMode(int32(g.Offset), x86.EBP))
	}
	return x86.RMIReg(selectR(env, e))
}

func validateRMI(e ir.Expr, rmi x86.RMI) {
	switch {
	case rmi.IsReg():
		if !rmi.Reg().Virtual && !x86.IsRealReg(rmi.Reg()) {
			fail(ErrInvariantViolation, e, "RMI register must be virtual or a real pre-colored register")
		}
	case rmi.IsMem():
		if !x86.SaneAMode(rmi.Mem()) {
			fail(ErrInvariantViolation, e, "RMI memory operand failed sane_AMode")
		}
	}
}
