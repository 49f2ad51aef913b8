package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// selectRM lowers e into "register or memory": it folds 32-bit
// guest-state Gets into a memory operand, else falls through to R.
func selectRM(env *Env, e ir.Expr) x86.RM {
	rm := selectRM_wrk(env, e)
	validateRM(e, rm)
	return rm
}

func selectRM_wrk(env *Env, e ir.Expr) x86.RM {
	if g, ok := e.(ir.Get); ok && g.Ty == ir.I32 {
		return x86.RMMem(x86.BaseAMode(int32(g.Offset), x86.EBP))
	}
	return x86.RMReg(selectR(env, e))
}

func validateRM(e ir.Expr, rm x86.RM) {
	if rm.IsReg() {
		if !rm.Reg().Virtual && !x86.IsRealReg(rm.Reg()) {
			fail(ErrInvariantViolation, e, "RM register must be virtual or a real pre-colored register")
		}
		return
	}
	if !x86.SaneAMode(rm.Mem()) {
		fail(ErrInvariantViolation, e, "RM memory operand failed sane_AMode")
	}
}
