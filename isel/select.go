package isel

import (
	"io"

	"x86isel/ir"
	"x86isel/x86"
)

// Select lowers one IR basic block into an x86.Program (§4.9). Any
// unsupported shape, type mismatch, encoding violation, or broken
// internal invariant surfaces as a programming error in the caller's
// IR; this core treats that as unrecoverable by construction (§7) and
// recovers a single *SelError panic here, converting it to a normal
// error return rather than threading error values through every
// selector function.
func Select(block ir.Block, trace io.Writer) (prog x86.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*SelError)
			if !ok {
				panic(r)
			}
			err = se
		}
	}()

	env := NewEnv(block.Types, trace)
	assignVRegs(env, block.Types)

	floatBytes := env.numFloatSlots() * 8
	env.SetFloatFrame(x86.BaseAMode(0, x86.ESP))
	if floatBytes > 0 {
		env.reserveStack(floatBytes)
		env.SetFloatFrame(x86.BaseAMode(0, x86.ESP))
	}

	for _, s := range block.Stmts {
		selectStmt(env, s)
	}

	if floatBytes > 0 {
		env.releaseStack(floatBytes)
	}

	target := selectRI(env, block.Next)
	env.addInstr(x86.Goto(x86.ALWAYS, uint8(block.Jk), target))

	return x86.Program{Instrs: env.Instrs, NumVRegs: env.NumVRegs()}, nil
}

// assignVRegs walks every declared temp once and gives it its
// permanent virtual register(s) for the block's lifetime: a (hi,lo)
// pair for I64, a single float-kind vreg (backed by a spill slot, see
// Env.floatSlot) for F32/F64, a single int-kind vreg otherwise.
// Statement selection only ever reads these maps; it never allocates a
// new entry for a Temp it sees in TempAssign.
func assignVRegs(env *Env, types ir.TypeEnv) {
	for idx, ty := range types {
		switch {
		case ty == ir.I64:
			env.VRegMap[idx] = env.newIntVReg()
			env.VRegMapHI[idx] = env.newIntVReg()
		case ty.IsFloat():
			env.VRegMap[idx] = env.newFloatVReg()
			env.VRegMapHI[idx] = x86.InvalidVReg
		default:
			env.VRegMap[idx] = env.newIntVReg()
			env.VRegMapHI[idx] = x86.InvalidVReg
		}
	}
}

