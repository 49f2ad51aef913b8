package x86

import "fmt"

// AMode is a 32-bit addressing mode: either (disp32, base) or
// (disp32, base, index, log2scale). Index.IsValid()==false marks the
// base-only form. Scale is log2 of the element size, so it is always in
// {0,1,2,3}.
type AMode struct {
	Disp  int32
	Base  VReg
	Index VReg
	Scale uint8
}

// BaseAMode builds the (disp32, base) form.
func BaseAMode(disp int32, base VReg) AMode {
	return AMode{Disp: disp, Base: base, Index: InvalidVReg}
}

// ScaledAMode builds the (disp32, base, index, log2scale) form.
func ScaledAMode(disp int32, base, index VReg, scale uint8) AMode {
	return AMode{Disp: disp, Base: base, Index: index, Scale: scale}
}

func (a AMode) HasIndex() bool { return a.Index.IsValid() }

func (a AMode) String() string {
	if a.HasIndex() {
		return fmt.Sprintf("%d(%s,%s,%d)", a.Disp, a.Base, a.Index, 1<<a.Scale)
	}
	return fmt.Sprintf("%d(%s)", a.Disp, a.Base)
}

// SaneAMode checks the invariant of spec.md §8 "AMode sanity": base is a
// virtual int register or %ebp, index (if present) is a virtual int
// register.
func SaneAMode(a AMode) bool {
	if a.Base.Kind != Int {
		return false
	}
	if !(a.Base.Virtual || a.Base == EBP) {
		return false
	}
	if a.HasIndex() {
		if a.Index.Kind != Int || !a.Index.Virtual {
			return false
		}
		if a.Scale > 3 {
			return false
		}
	}
	return true
}

// renamed returns a with every VReg substituted through assign; vregs
// with no entry (real registers, and any virtual vreg the allocator
// left untouched) pass through unchanged.
func (a AMode) renamed(assign map[VReg]VReg) AMode {
	out := a
	if r, ok := assign[a.Base]; ok {
		out.Base = r
	}
	if a.HasIndex() {
		if r, ok := assign[a.Index]; ok {
			out.Index = r
		}
	}
	return out
}

// operandKind discriminates the payload carried by the RM/RMI/RI
// operand-form structs below.
type operandKind uint8

const (
	kindReg operandKind = iota
	kindMem
	kindImm
)

// RM is "register or memory".
type RM struct {
	kind operandKind
	reg  VReg
	mem  AMode
}

func RMReg(r VReg) RM  { return RM{kind: kindReg, reg: r} }
func RMMem(a AMode) RM { return RM{kind: kindMem, mem: a} }

func (o RM) IsReg() bool   { return o.kind == kindReg }
func (o RM) IsMem() bool   { return o.kind == kindMem }
func (o RM) Reg() VReg     { return o.reg }
func (o RM) Mem() AMode    { return o.mem }
func (o RM) String() string {
	if o.IsReg() {
		return o.reg.String()
	}
	return o.mem.String()
}

func (o RM) renamed(assign map[VReg]VReg) RM {
	switch o.kind {
	case kindReg:
		if r, ok := assign[o.reg]; ok {
			return RMReg(r)
		}
		return o
	case kindMem:
		return RMMem(o.mem.renamed(assign))
	default:
		return o
	}
}

// RMI is "register, memory, or immediate".
type RMI struct {
	kind operandKind
	reg  VReg
	mem  AMode
	imm  uint32
}

func RMIReg(r VReg) RMI   { return RMI{kind: kindReg, reg: r} }
func RMIMem(a AMode) RMI  { return RMI{kind: kindMem, mem: a} }
func RMIImm(v uint32) RMI { return RMI{kind: kindImm, imm: v} }

func (o RMI) IsReg() bool { return o.kind == kindReg }
func (o RMI) IsMem() bool { return o.kind == kindMem }
func (o RMI) IsImm() bool { return o.kind == kindImm }
func (o RMI) Reg() VReg   { return o.reg }
func (o RMI) Mem() AMode  { return o.mem }
func (o RMI) Imm() uint32 { return o.imm }

func (o RMI) String() string {
	switch o.kind {
	case kindReg:
		return o.reg.String()
	case kindMem:
		return o.mem.String()
	default:
		return fmt.Sprintf("$0x%x", o.imm)
	}
}

func (o RMI) renamed(assign map[VReg]VReg) RMI {
	switch o.kind {
	case kindReg:
		if r, ok := assign[o.reg]; ok {
			return RMIReg(r)
		}
		return o
	case kindMem:
		return RMIMem(o.mem.renamed(assign))
	default:
		return o
	}
}

// RI is "register or immediate" (no memory: used for slots x86 forbids
// memory in, e.g. the store source of a register-or-immediate move).
type RI struct {
	kind operandKind
	reg  VReg
	imm  uint32
}

func RIReg(r VReg) RI   { return RI{kind: kindReg, reg: r} }
func RIImm(v uint32) RI { return RI{kind: kindImm, imm: v} }

func (o RI) IsReg() bool { return o.kind == kindReg }
func (o RI) IsImm() bool { return o.kind == kindImm }
func (o RI) Reg() VReg   { return o.reg }
func (o RI) Imm() uint32 { return o.imm }

func (o RI) String() string {
	if o.kind == kindReg {
		return o.reg.String()
	}
	return fmt.Sprintf("$0x%x", o.imm)
}

func (o RI) renamed(assign map[VReg]VReg) RI {
	if o.kind == kindReg {
		if r, ok := assign[o.reg]; ok {
			return RIReg(r)
		}
	}
	return o
}
