package isel

import (
	"x86isel/ir"
	"x86isel/x86"
)

// selectStmt lowers a single IR statement (§4.8), appending the
// instructions it needs to env.Instrs.
func selectStmt(env *Env, s ir.Stmt) {
	env.traceStmt(s)

	switch st := s.(type) {
	case ir.Store:
		am := selectAMode(env, st.Addr)
		storeTo(env, am, st.Data)

	case ir.Put:
		am := x86.BaseAMode(int32(st.Offset), x86.EBP)
		storeTo(env, am, st.Data)

	case ir.PutI:
		am := selectArrayOffset(env, st.Descr, st.Ix, st.Bias)
		storeTo(env, am, st.Data)

	case ir.TempAssign:
		selectTempAssign(env, st)

	case ir.DirtyCall:
		selectDirtyCall(env, st.Call)

	case ir.Exit:
		selectExit(env, st)

	default:
		fail(ErrUnsupportedShape, nil, "unknown statement kind %T", s)
	}
}

// storeTo writes Data to am, picking the int/float/i64 store form by
// Data's declared type.
func storeTo(env *Env, am x86.AMode, data ir.Expr) {
	ty := data.Type()
	switch {
	case ty.IsFloat():
		selectFP(env, data, ty)
		env.addInstr(x86.FPStore(fpWidth(ty), am))
	case ty == ir.I64:
		hi, lo := selectI64(env, data)
		env.addInstr(x86.Store(4, am, x86.RIReg(lo)))
		env.addInstr(x86.Store(4, offsetAMode(am, 4), x86.RIReg(hi)))
	default:
		ri := selectRI(env, data)
		env.addInstr(x86.Store(ty.Size(), am, ri))
	}
}

func selectTempAssign(env *Env, t ir.TempAssign) {
	ty := t.Rhs.Type()
	switch {
	case ty.IsFloat():
		v := env.VRegMap[t.Dst]
		selectFP(env, t.Rhs, ty)
		env.addInstr(x86.FPStore(fpWidth(ty), env.floatSlot(v)))
	case ty == ir.I64:
		hi, lo := selectI64(env, t.Rhs)
		env.addInstr(x86.Mov32(env.VRegMapHI[t.Dst], x86.RMIReg(hi)))
		env.addInstr(x86.Mov32(env.VRegMap[t.Dst], x86.RMIReg(lo)))
	default:
		r := selectR(env, t.Rhs)
		env.addInstr(x86.Mov32(env.VRegMap[t.Dst], x86.RMIReg(r)))
	}
}

func selectDirtyCall(env *Env, d *ir.DirtyCallDescr) {
	callee := d.Callee
	if d.NFxState > 0 && d.NeedsEBP && !callee.PassEBP {
		withEBP := *callee
		withEBP.PassEBP = true
		callee = &withEBP
	}
	eax := marshalCall(env, callee, d.Args, d.Guard)
	if d.ResultTemp < 0 {
		return
	}
	if d.ResultTy == ir.I64 {
		env.addInstr(x86.Mov32(env.VRegMap[d.ResultTemp], x86.RMIReg(eax)))
		env.addInstr(x86.Mov32(env.VRegMapHI[d.ResultTemp], x86.RMIReg(x86.EDX)))
		return
	}
	env.addInstr(x86.Mov32(env.VRegMap[d.ResultTemp], x86.RMIReg(eax)))
}

func selectExit(env *Env, e ir.Exit) {
	if c, ok := e.Target.(ir.Const); !ok || c.Kind != ir.CU32 {
		fail(ErrEncodingViolation, e, "side-exit target must be a U32 constant")
	}
	cc := selectCondCode(env, e.Guard)
	target := selectRI(env, e.Target)
	env.addInstr(x86.Goto(cc, uint8(e.Jk), target))
}
