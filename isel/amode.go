package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// selectAMode lowers a 32-bit address expression into an x86.AMode,
// emitting any setup instructions it needs. It recognizes two folds
// before falling back to "compute into a register, use (0, R)" (§4.2):
//
//  1. Add32(a, Shl32(b, k)) with k ∈ {1,2,3} -> (0, a, b, k)
//  2. Add32(a, iconst32)                      -> (iconst32, a)
func selectAMode(env *Env, e ir.Expr) x86.AMode {
	am := selectAMode_wrk(env, e)
	if !x86.SaneAMode(am) {
		fail(ErrInvariantViolation, e, "sane_AMode: base must be virtual or %%ebp, index must be virtual")
	}
	return am
}

func selectAMode_wrk(env *Env, e ir.Expr) x86.AMode {
	if b, ok := e.(ir.Binop); ok && b.Op == ir.OpAdd32 {
		if mi, ok := Match(patterns.addShl, b); ok {
			if k, ok := constU8InRange(mi.Slots[2], 1, 3); ok {
				base := selectR(env, mi.Slots[0])
				index := selectR(env, mi.Slots[1])
				return x86.ScaledAMode(0, base, index, k)
			}
		}
		if c, ok := b.Arg2.(ir.Const); ok && c.Kind == ir.CU32 {
			base := selectR(env, b.Arg1)
			return x86.BaseAMode(int32(c.U32()), base)
		}
	}

	r := selectR(env, e)
	return x86.BaseAMode(0, r)
}

// constU8InRange reports whether e is a Const(U8) whose value lies in
// [lo,hi], returning it as a log2scale-ready uint8.
func constU8InRange(e ir.Expr, lo, hi uint8) (uint8, bool) {
	c, ok := e.(ir.Const)
	if !ok || c.Kind != ir.CU8 {
		return 0, false
	}
	v := c.U8()
	if v < lo || v > hi {
		return 0, false
	}
	return v, true
}
