package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// selectRI lowers e into "register or immediate" — used for operand
// slots x86 forbids memory in, such as the store source of a
// register-or-immediate move. It folds constants, else falls through
// to R.
func selectRI(env *Env, e ir.Expr) x86.RI {
	ri := selectRI_wrk(env, e)
	validateRI(e, ri)
	return ri
}

func selectRI_wrk(env *Env, e ir.Expr) x86.RI {
	if c, ok := e.(ir.Const); ok {
		switch c.Kind {
		case ir.CU8:
			return x86.RIImm(uint32(c.U8()))
		case ir.CU16:
			return x86.RIImm(uint32(c.U16()))
		case ir.CU32:
			return x86.RIImm(c.U32())
		case ir.CBit:
			return x86.RIImm(uint32(c.Bits))
		}
	}
	return x86.RIReg(selectR(env, e))
}

func validateRI(e ir.Expr, ri x86.RI) {
	if ri.IsReg() && !ri.Reg().Virtual && !x86.IsRealReg(ri.Reg()) {
		fail(ErrInvariantViolation, e, "RI register must be virtual or a real pre-colored register")
	}
}
