package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// regArgRegs is the fixed EAX/EDX/ECX order the regparm convention
// fills register arguments in (§4.6).
var regArgRegs = [3]x86.VReg{x86.EAX, x86.EDX, x86.ECX}

// marshalCall lowers a helper-function call under the regparm calling
// convention (§4.6, glossary "regparm"): up to RegParms arguments in
// registers (the first slot pre-occupied by %ebp when PassEBP is set),
// the rest pushed on the host stack right to left, 64-bit arguments as
// two pushes with the high half pushed first so the low half lands at
// the lower address. The call's own condition is evaluated only after
// every argument has already been computed and placed (spec.md §4.6's
// "deferred condition-code evaluation"), since argument evaluation may
// itself need the flags. guard == nil means an unconditional call.
// Returns the register holding the call's 32-bit (or low-32, for i64)
// result; callers needing the high half read x86.EDX immediately after.
func marshalCall(env *Env, callee *ir.Callee, args []ir.Expr, guard ir.Expr) x86.VReg {
	regSlots := callee.RegParms
	if regSlots > 3 {
		fail(ErrInvariantViolation, nil, "regparm count must be in [0,3]")
	}
	firstArgSlot := 0
	if callee.PassEBP {
		if regSlots == 0 {
			fail(ErrInvariantViolation, nil, "passEBP requires at least one register slot")
		}
		firstArgSlot = 1
	}
	regArgCount := regSlots - firstArgSlot
	if regArgCount > len(args) {
		regArgCount = len(args)
	}
	if regArgCount < 0 {
		regArgCount = 0
	}

	stackArgs := args[regArgCount:]
	regArgs := args[:regArgCount]

	// Evaluate every argument's VALUE now (widths/halves as needed),
	// left to right, before anything is pushed or moved into a fixed
	// register — this is what lets the register loads and the guard
	// test below sit right next to the call without their own operand
	// evaluation disturbing flags in between.
	type evaluated struct {
		isI64  bool
		hi, lo x86.VReg
	}
	evals := make([]evaluated, len(args))
	for i, a := range args {
		if a.Type() == ir.I64 {
			hi, lo := selectI64(env, a)
			evals[i] = evaluated{isI64: true, hi: hi, lo: lo}
		} else {
			evals[i] = evaluated{lo: selectR(env, a)}
		}
	}

	stackBytes := 0
	for i := len(stackArgs) - 1; i >= 0; i-- {
		idx := regArgCount + i
		if evals[idx].isI64 {
			env.addInstr(x86.Push(x86.RIReg(evals[idx].hi)))
			env.addInstr(x86.Push(x86.RIReg(evals[idx].lo)))
			stackBytes += 8
		} else {
			env.addInstr(x86.Push(x86.RIReg(evals[idx].lo)))
			stackBytes += 4
		}
	}

	for i := range regArgs {
		dst := regArgRegs[firstArgSlot+i]
		env.addInstr(x86.Mov32(dst, x86.RMIReg(evals[i].lo)))
	}
	// When PassEBP is set, %ebp (the guest state pointer) goes into the
	// first register slot, %eax, after the real register arguments.
	if callee.PassEBP {
		env.addInstr(x86.Mov32(x86.EAX, x86.RMIReg(x86.EBP)))
	}

	cc := x86.ALWAYS
	if guard != nil {
		cc = selectCondCode(env, guard)
	}

	env.addInstr(x86.Call(cc, callee.Name, regSlots))

	if stackBytes > 0 {
		env.releaseStack(stackBytes)
	}

	return x86.EAX
}
