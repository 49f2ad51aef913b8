package x86

import "fmt"

// Mnemonic discriminates the shape of an Instr. The core only ever
// builds instructions through the constructor functions below; Instr's
// fields are otherwise unexported so a selector bug can't hand-assemble
// a malformed instruction.
type Mnemonic uint8

const (
	MMov32 Mnemonic = iota
	MAlu32
	MShiftImm
	MShiftCL
	MShld
	MShrd
	MCmp // flag-setting compare, result discarded
	MMul // EDX:EAX = EAX * src
	MDiv // EDX:EAX / src -> quotient EAX, remainder EDX
	MNeg
	MNot
	MLoadExt // sign/zero-extending load, width 1 or 2
	MStore   // width 1, 2 or 4
	MTest
	MCmov
	MSet
	MBsf // flag chooses bsf (false) vs bsr (true)
	MGoto
	MPush
	MCall
	MFPLoad
	MFPStore
	MFPLoadInt  // width 2, 4 or 8
	MFPStoreInt // width 2, 4 or 8
	MFPLoadCW
	MFPStoreCW
	MFPBinary
	MFPUnary
	MFPCompare
	MFPStoreStatusWordAX
	MFPCmov
)

// AluOp is the ALU sub-operation carried by MAlu32.
type AluOp uint8

const (
	Add AluOp = iota
	Sub
	And
	Or
	Xor
)

func (a AluOp) String() string {
	return [...]string{"add", "sub", "and", "or", "xor"}[a]
}

// ShiftOp is the shift sub-operation carried by MShiftImm/MShiftCL.
type ShiftOp uint8

const (
	Shl ShiftOp = iota
	Shr
	Sar
)

func (s ShiftOp) String() string {
	return [...]string{"shl", "shr", "sar"}[s]
}

// FPOp is the x87-pseudo-op sub-operation carried by MFPBinary/MFPUnary.
type FPOp uint8

const (
	FAdd FPOp = iota
	FSub
	FMul
	FDiv
	FScale
	FAtan
	FYl2x
	FYl2xp1
	FPrem
	FPrem1
	FNeg
	FAbs
	FSqrt
	FSin
	FCos
	FTan
	F2xm1
	FRound
)

var fpOpNames = map[FPOp]string{
	FAdd: "fadd", FSub: "fsub", FMul: "fmul", FDiv: "fdiv", FScale: "fscale",
	FAtan: "fpatan", FYl2x: "fyl2x", FYl2xp1: "fyl2xp1", FPrem: "fprem", FPrem1: "fprem1",
	FNeg: "fchs", FAbs: "fabs", FSqrt: "fsqrt", FSin: "fsin", FCos: "fcos", FTan: "fptan",
	F2xm1: "f2xm1", FRound: "frndint",
}

func (f FPOp) String() string { return fpOpNames[f] }

// Instr is a single emitted instruction. It is opaque to callers: build
// one only through the constructors in this file.
type Instr struct {
	op       Mnemonic
	cc       CondCode
	size     int // operand width in bytes, where relevant
	signed   bool
	alu      AluOp
	shift    ShiftOp
	fp       FPOp
	dst      VReg
	src      RM
	srci     RMI
	amode    AMode
	target   RI
	jk       uint8
	callee   string
	regparms int
	comment  string
}

func Mov32(dst VReg, src RMI) Instr {
	return Instr{op: MMov32, dst: dst, srci: src, size: 4}
}

func Alu32(op AluOp, dst VReg, src RMI) Instr {
	return Instr{op: MAlu32, alu: op, dst: dst, srci: src, size: 4}
}

func ShiftImm(op ShiftOp, dst VReg, amount uint8) Instr {
	return Instr{op: MShiftImm, shift: op, dst: dst, srci: RMIImm(uint32(amount)), size: 4}
}

func ShiftCL(op ShiftOp, dst VReg) Instr {
	return Instr{op: MShiftCL, shift: op, dst: dst, size: 4}
}

// Shld emits `shld %cl, src, dst` (dst is shifted, bits shifted in from src).
func Shld(dst, src VReg) Instr {
	return Instr{op: MShld, dst: dst, src: RMReg(src)}
}

func Shrd(dst, src VReg) Instr {
	return Instr{op: MShrd, dst: dst, src: RMReg(src)}
}

// Cmp32 emits a flag-setting 32-bit compare of dst against src; the
// condition-code selector reads the resulting flags via a CondCode, the
// value of dst is unchanged.
func Cmp32(dst VReg, src RMI) Instr {
	return Instr{op: MCmp, dst: dst, srci: src, size: 4}
}

// Mul emits a widening EAX*src -> EDX:EAX multiply.
func Mul(signed bool, src RM) Instr {
	return Instr{op: MMul, signed: signed, src: src}
}

func Div(signed bool, src RM) Instr {
	return Instr{op: MDiv, signed: signed, src: src}
}

func Neg(dst VReg) Instr { return Instr{op: MNeg, dst: dst} }
func Not(dst VReg) Instr { return Instr{op: MNot, dst: dst} }

// LoadExt emits a sign/zero-extending load of the given width (1 or 2
// bytes) from am into dst.
func LoadExt(signed bool, width int, dst VReg, am AMode) Instr {
	return Instr{op: MLoadExt, signed: signed, size: width, dst: dst, amode: am}
}

// Store emits a store of the given width (1, 2 or 4 bytes) of src to am.
func Store(width int, am AMode, src RI) Instr {
	return Instr{op: MStore, size: width, amode: am, target: src}
}

func Test(imm uint32, rm RM) Instr {
	return Instr{op: MTest, src: rm, srci: RMIImm(imm)}
}

func Cmov(cc CondCode, dst VReg, src RM) Instr {
	return Instr{op: MCmov, cc: cc, dst: dst, src: src}
}

func Set(cc CondCode, dst VReg) Instr {
	return Instr{op: MSet, cc: cc, dst: dst}
}

// Bsf/Bsr: "flag chooses bsf vs bsr" per spec.md §6 — here as two
// constructors sharing one mnemonic, which is the concrete form that
// choice takes.
func Bsf(dst VReg, src RM) Instr { return Instr{op: MBsf, signed: false, dst: dst, src: src} }
func Bsr(dst VReg, src RM) Instr { return Instr{op: MBsf, signed: true, dst: dst, src: src} }

// Goto emits a conditional (cc != ALWAYS) or unconditional jump of the
// given jump kind to target.
func Goto(cc CondCode, jk uint8, target RI) Instr {
	return Instr{op: MGoto, cc: cc, jk: jk, target: target}
}

func Push(src RI) Instr { return Instr{op: MPush, target: src} }

// Call emits a conditional call (cc != ALWAYS means guarded) to callee
// with the given regparm count, used for the trace/disassembly surface;
// the actual argument registers were already loaded by the caller.
func Call(cc CondCode, callee string, regparms int) Instr {
	return Instr{op: MCall, cc: cc, callee: callee, regparms: regparms}
}

func FPLoad(width int, am AMode) Instr { return Instr{op: MFPLoad, size: width, amode: am} }
func FPStore(width int, am AMode) Instr { return Instr{op: MFPStore, size: width, amode: am} }
func FPLoadInt(width int, am AMode) Instr {
	return Instr{op: MFPLoadInt, size: width, amode: am}
}
func FPStoreInt(width int, am AMode) Instr {
	return Instr{op: MFPStoreInt, size: width, amode: am}
}
func FPLoadCW(am AMode) Instr  { return Instr{op: MFPLoadCW, amode: am} }
func FPStoreCW(am AMode) Instr { return Instr{op: MFPStoreCW, amode: am} }
func FPBinary(op FPOp) Instr   { return Instr{op: MFPBinary, fp: op} }
func FPUnary(op FPOp) Instr    { return Instr{op: MFPUnary, fp: op} }
func FPCompare() Instr         { return Instr{op: MFPCompare} }
func FPStoreStatusWordAX() Instr {
	return Instr{op: MFPStoreStatusWordAX, dst: EAX}
}
func FPCmov(cc CondCode) Instr { return Instr{op: MFPCmov, cc: cc} }

func (i Instr) WithComment(c string) Instr {
	i.comment = c
	return i
}

// Renamed returns a copy of i with every vreg present in assign
// substituted for its mapped value; any vreg absent from assign
// (every real register, and any virtual vreg the allocator left
// unassigned because it was spilled) passes through unchanged. This
// is package regalloc's only way to write a coloring decision back
// into the instruction stream.
func (i Instr) Renamed(assign map[VReg]VReg) Instr {
	out := i
	if r, ok := assign[i.dst]; ok {
		out.dst = r
	}
	out.src = i.src.renamed(assign)
	out.srci = i.srci.renamed(assign)
	out.amode = i.amode.renamed(assign)
	out.target = i.target.renamed(assign)
	return out
}

// GetResult returns the primary destination register of i, for
// liveness/allocation purposes. Instructions with no result (store,
// test, goto, push, call, fp store forms) return the invalid sentinel.
func (i Instr) GetResult() VReg {
	switch i.op {
	case MMov32, MAlu32, MShiftImm, MShiftCL, MShld, MShrd, MNeg, MNot,
		MLoadExt, MCmov, MSet, MBsf, MFPStoreStatusWordAX:
		return i.dst
	default:
		return InvalidVReg
	}
}

// GetOperands returns the virtual registers read by i (not including
// the fixed real-register conventions of mul/div/call, which the
// caller already materialized as explicit Mov32s into EAX/EDX/ECX).
func (i Instr) GetOperands() []VReg {
	var out []VReg
	add := func(r VReg) {
		if r.IsValid() {
			out = append(out, r)
		}
	}
	switch i.op {
	case MMov32, MAlu32, MCmp:
		if i.op != MMov32 {
			// a plain move overwrites dst without reading it
			add(i.dst)
		}
		if i.srci.IsReg() {
			add(i.srci.Reg())
		}
		if i.srci.IsMem() {
			add(i.srci.Mem().Base)
			if i.srci.Mem().HasIndex() {
				add(i.srci.Mem().Index)
			}
		}
	case MShiftImm, MShiftCL, MNeg, MNot:
		add(i.dst)
	case MShld, MShrd:
		add(i.dst)
		add(i.src.Reg())
	case MMul, MDiv:
		if i.src.IsReg() {
			add(i.src.Reg())
		} else if i.src.IsMem() {
			add(i.src.Mem().Base)
			add(i.src.Mem().Index)
		}
	case MLoadExt:
		add(i.amode.Base)
		add(i.amode.Index)
	case MStore:
		add(i.amode.Base)
		add(i.amode.Index)
		if i.target.IsReg() {
			add(i.target.Reg())
		}
	case MTest, MCmov, MBsf:
		if i.src.IsReg() {
			add(i.src.Reg())
		} else if i.src.IsMem() {
			add(i.src.Mem().Base)
			add(i.src.Mem().Index)
		}
		if i.op == MCmov || i.op == MBsf {
			add(i.dst)
		}
	case MSet:
		add(i.dst)
	case MGoto, MPush:
		if i.target.IsReg() {
			add(i.target.Reg())
		}
	}
	return out
}

func (i Instr) String() string {
	switch i.op {
	case MMov32:
		return fmt.Sprintf("movl %s, %s", i.srci, i.dst)
	case MAlu32:
		return fmt.Sprintf("%sl %s, %s", i.alu, i.srci, i.dst)
	case MCmp:
		return fmt.Sprintf("cmpl %s, %s", i.srci, i.dst)
	case MShiftImm:
		return fmt.Sprintf("%sl $%d, %s", i.shift, i.srci.Imm(), i.dst)
	case MShiftCL:
		return fmt.Sprintf("%sl %%cl, %s", i.shift, i.dst)
	case MShld:
		return fmt.Sprintf("shld %%cl, %s, %s", i.src, i.dst)
	case MShrd:
		return fmt.Sprintf("shrd %%cl, %s, %s", i.src, i.dst)
	case MMul:
		sign := "mul"
		if i.signed {
			sign = "imul"
		}
		return fmt.Sprintf("%sl %s", sign, i.src)
	case MDiv:
		sign := "div"
		if i.signed {
			sign = "idiv"
		}
		return fmt.Sprintf("%sl %s", sign, i.src)
	case MNeg:
		return fmt.Sprintf("negl %s", i.dst)
	case MNot:
		return fmt.Sprintf("notl %s", i.dst)
	case MLoadExt:
		kind := "movz"
		if i.signed {
			kind = "movs"
		}
		width := "b"
		if i.size == 2 {
			width = "w"
		}
		return fmt.Sprintf("%s%sl %s, %s", kind, width, i.amode, i.dst)
	case MStore:
		width := map[int]string{1: "b", 2: "w", 4: "l"}[i.size]
		return fmt.Sprintf("mov%s %s, %s", width, i.target, i.amode)
	case MTest:
		return fmt.Sprintf("testl $%d, %s", i.srci.Imm(), i.src)
	case MCmov:
		return fmt.Sprintf("cmov%s %s, %s", i.cc, i.src, i.dst)
	case MSet:
		return fmt.Sprintf("set%s %s", i.cc, i.dst)
	case MBsf:
		name := "bsf"
		if i.signed {
			name = "bsr"
		}
		return fmt.Sprintf("%sl %s, %s", name, i.src, i.dst)
	case MGoto:
		if i.cc == ALWAYS {
			return fmt.Sprintf("jmp-%d %s", i.jk, i.target)
		}
		return fmt.Sprintf("j%s-%d %s", i.cc, i.jk, i.target)
	case MPush:
		return fmt.Sprintf("pushl %s", i.target)
	case MCall:
		if i.cc == ALWAYS {
			return fmt.Sprintf("call.%d %s", i.regparms, i.callee)
		}
		return fmt.Sprintf("call%s.%d %s", i.cc, i.regparms, i.callee)
	case MFPLoad:
		return fmt.Sprintf("fld.%d %s", i.size, i.amode)
	case MFPStore:
		return fmt.Sprintf("fstp.%d %s", i.size, i.amode)
	case MFPLoadInt:
		return fmt.Sprintf("fild.%d %s", i.size, i.amode)
	case MFPStoreInt:
		return fmt.Sprintf("fistp.%d %s", i.size, i.amode)
	case MFPLoadCW:
		return fmt.Sprintf("fldcw %s", i.amode)
	case MFPStoreCW:
		return fmt.Sprintf("fnstcw %s", i.amode)
	case MFPBinary:
		return i.fp.String()
	case MFPUnary:
		return i.fp.String()
	case MFPCompare:
		return "fcompp ; fnstsw %ax"
	case MFPStoreStatusWordAX:
		return "fnstsw %ax"
	case MFPCmov:
		return fmt.Sprintf("fcmov%s", i.cc)
	default:
		return "???"
	}
}

// Program is the selector's output: the emitted instruction sequence
// plus the vreg count the downstream register allocator needs to size
// its tables (spec.md §8's "monotone vreg counter" invariant).
type Program struct {
	Instrs   []Instr
	NumVRegs int
}
