package isel

import (
	"fmt"
	"io"

	"x86isel/ir"
	"x86isel/x86"
)

// Env is the selector-local mutable state spec.md §3 calls the
// "environment": the IR type map, the two IR-temp vreg maps, the
// output instruction list, and the vreg counter. Its lifetime spans
// exactly one basic block; it is never reused across blocks.
type Env struct {
	Types     ir.TypeEnv
	VRegMap   []x86.VReg
	VRegMapHI []x86.VReg

	Instrs []x86.Instr

	// Trace, if non-nil, receives a pretty-printed copy of every
	// instruction as it's emitted and of every statement before it is
	// selected — the "v-code" trace bit of spec.md §6, modeled as a
	// plain io.Writer so tests can capture it with a bytes.Buffer.
	Trace io.Writer

	// floatFrame is the %esp-relative base of this block's floating
	// temp spill area, reserved once by the driver before any
	// call-argument pushes happen. x87 has no general-purpose register
	// file, so a "float virtual register" is backed by one of these
	// 8-byte slots rather than a machine register; FP values are loaded
	// onto the x87 stack top and stored straight back out, never kept
	// resident across statement boundaries.
	floatFrame    x86.AMode
	floatFrameSet bool

	// floatSlotOf assigns each float vreg a dense slot number within the
	// float frame, independent of its (shared, sparser) vreg index —
	// newFloatVReg calls share the same counter as newIntVReg, so the
	// vreg index alone can't be used to size or address the frame.
	floatSlotOf   map[x86.VReg]int
	nextFloatSlot int

	nextVReg int
}

// SetFloatFrame records the base of the block's float-temp spill area.
// Must be called once, by the top-level driver, before any FP temp is
// read or written.
func (e *Env) SetFloatFrame(base x86.AMode) {
	e.floatFrame = base
	e.floatFrameSet = true
}

// floatSlot returns the AMode of the spill slot backing float vreg v.
func (e *Env) floatSlot(v x86.VReg) x86.AMode {
	if !e.floatFrameSet {
		fail(ErrInvariantViolation, nil, "float frame not set before floating temp access")
	}
	if v.Kind != x86.Float {
		fail(ErrInvariantViolation, nil, "floatSlot called with a non-float vreg")
	}
	slot, ok := e.floatSlotOf[v]
	if !ok {
		fail(ErrInvariantViolation, nil, "float vreg has no assigned frame slot")
	}
	return offsetAMode(e.floatFrame, int32(slot*8))
}

// NewEnv allocates an Env over the given type environment. It does not
// itself populate VRegMap/VRegMapHI: that is the top-level driver's job
// (§4.9), since the assignment depends on walking every temp once.
func NewEnv(types ir.TypeEnv, trace io.Writer) *Env {
	n := types.NumTemps()
	return &Env{
		Types:       types,
		VRegMap:     make([]x86.VReg, n),
		VRegMapHI:   make([]x86.VReg, n),
		Trace:       trace,
		floatSlotOf: make(map[x86.VReg]int),
	}
}

// newVReg allocates a fresh virtual register of the given kind. The
// counter only ever increases, so "1 + the maximum vreg index used"
// (spec.md §8's monotone-counter invariant) always equals NumVRegs().
func (e *Env) newVReg(kind x86.RegKind) x86.VReg {
	vr := x86.VReg{Index: e.nextVReg, Kind: kind, Virtual: true}
	e.nextVReg++
	return vr
}

func (e *Env) newIntVReg() x86.VReg { return e.newVReg(x86.Int) }

func (e *Env) newFloatVReg() x86.VReg {
	vr := e.newVReg(x86.Float)
	e.floatSlotOf[vr] = e.nextFloatSlot
	e.nextFloatSlot++
	return vr
}

// numFloatSlots reports how many 8-byte float slots the block needs,
// for the driver to size the float frame reservation.
func (e *Env) numFloatSlots() int { return e.nextFloatSlot }

// NumVRegs reports the vreg count to record on the output Program.
func (e *Env) NumVRegs() int { return e.nextVReg }

// addInstr appends i to the output list and, if tracing is enabled,
// echoes it immediately (spec.md §6's "v-code" bit).
func (e *Env) addInstr(i x86.Instr) {
	e.Instrs = append(e.Instrs, i)
	if e.Trace != nil {
		fmt.Fprintln(e.Trace, i.String())
	}
}

func (e *Env) traceStmt(s ir.Stmt) {
	if e.Trace != nil {
		fmt.Fprintln(e.Trace, "--", s.String())
	}
}

// reserveStack and releaseStack bracket every host-stack reservation
// this core makes (FPU control-word scratch, wide-constant materialization,
// the block's float frame). Routing every reservation through this pair
// makes the "every sub $N,ESP is matched by exactly one add $N,ESP on
// the same path" invariant (spec.md §5, §8) structural: every caller
// pairs one reserveStack with exactly one releaseStack and nothing
// branches between them. Call arguments are the one exception on the
// reserve side: marshalCall places them with pushes and then frees them
// with a single releaseStack.
func (e *Env) reserveStack(n int) {
	e.addInstr(x86.Alu32(x86.Sub, x86.ESP, x86.RMIImm(uint32(n))))
}

func (e *Env) releaseStack(n int) {
	e.addInstr(x86.Alu32(x86.Add, x86.ESP, x86.RMIImm(uint32(n))))
}

// lookupVReg returns the primary vreg mapped to a non-i64 temp, failing
// if the temp has no entry (spec.md §8's "map completeness" invariant is
// the selector's job to uphold by construction in the driver; this is
// the defensive read side).
func (e *Env) lookupVReg(t ir.Temp) x86.VReg {
	if t.Idx < 0 || t.Idx >= len(e.VRegMap) {
		fail(ErrInvariantViolation, t, "temp index out of range")
	}
	return e.VRegMap[t.Idx]
}

func (e *Env) lookupVRegPair(t ir.Temp) (hi, lo x86.VReg) {
	lo = e.VRegMap[t.Idx]
	hi = e.VRegMapHI[t.Idx]
	if hi == x86.InvalidVReg {
		fail(ErrInvariantViolation, t, "temp is not i64, has no HI vreg")
	}
	return hi, lo
}
