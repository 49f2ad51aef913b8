package regalloc

import (
	"sort"

	"x86isel/x86"
)

// Pool is the fixed, small set of physical GPRs this allocator may
// hand out. EAX/EDX/ECX/EBP/ESP stay off-limits: the selector already
// uses them by name for the regparm convention, shift counts, the
// multiply/divide pair and the frame pointer (x86.IsRealReg), so
// coloring over them would corrupt an instruction the selector already
// committed to.
var Pool = []x86.VReg{x86.EBX, x86.ESI, x86.EDI}

// Assignment is the allocator's verdict for one virtual register:
// either a physical register, or a spill slot index (Reg is the zero
// VReg and Spilled is true).
type Assignment struct {
	Reg     x86.VReg
	Slot    int
	Spilled bool
}

// Result is the outcome of Allocate: one verdict per vreg that
// appeared in the program, plus how many stack slots spilling needed.
type Result struct {
	Assignments map[x86.VReg]Assignment
	NumSpills   int
}

// Allocate runs linear-scan register allocation (Poletto & Sarkar)
// over prog's live ranges: adapted from cfg.RegisterAllocator.Allocate,
// trading its graph-coloring simplify/select passes for a single pass
// over ranges sorted by start point, since a flat instruction list
// gives the ranges a total order coloring doesn't need a stack to
// discover. A vreg is spilled to its own stack slot when the pool is
// already fully occupied by ranges that outlive it (spec.md §9.3: this
// core's quality is not a target, only that it produces something a
// downstream consumer — here, the allocator's own tests — can run).
func Allocate(prog x86.Program) *Result {
	live := ComputeLiveness(prog.Instrs)
	ranges := ComputeLiveRanges(prog.Instrs, live)
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].VReg.Index < ranges[j].VReg.Index
	})

	res := &Result{Assignments: make(map[x86.VReg]Assignment, len(ranges))}

	type activeEntry struct {
		rng LiveRange
		reg x86.VReg
	}
	var active []activeEntry

	freeRegs := func() []x86.VReg {
		used := make(map[x86.VReg]bool, len(active))
		for _, a := range active {
			used[a.reg] = true
		}
		var free []x86.VReg
		for _, r := range Pool {
			if !used[r] {
				free = append(free, r)
			}
		}
		return free
	}

	expireOldRanges := func(start int) {
		kept := active[:0]
		for _, a := range active {
			if a.rng.End >= start {
				kept = append(kept, a)
			}
		}
		active = kept
	}

	for _, r := range ranges {
		expireOldRanges(r.Start)

		if free := freeRegs(); len(free) > 0 {
			reg := free[0]
			res.Assignments[r.VReg] = Assignment{Reg: reg}
			active = append(active, activeEntry{rng: r, reg: reg})
			sort.Slice(active, func(i, j int) bool { return active[i].rng.End < active[j].rng.End })
			continue
		}

		// Pool exhausted: spill whichever active range extends furthest
		// if it outlasts r, else spill r itself (the classic linear-scan
		// spill heuristic — keep the shorter-lived range in a register).
		spillIdx := len(active) - 1
		if active[spillIdx].rng.End > r.End {
			victim := active[spillIdx]
			res.Assignments[r.VReg] = Assignment{Reg: victim.reg}
			res.Assignments[victim.rng.VReg] = Assignment{Slot: res.NumSpills, Spilled: true}
			res.NumSpills++
			active[spillIdx] = activeEntry{rng: r, reg: victim.reg}
			sort.Slice(active, func(i, j int) bool { return active[i].rng.End < active[j].rng.End })
		} else {
			res.Assignments[r.VReg] = Assignment{Slot: res.NumSpills, Spilled: true}
			res.NumSpills++
		}
	}

	return res
}

// Rewrite writes non-spilled assignments back into prog's instruction
// stream via x86.Instr.Renamed. Spilled vregs are left as virtual
// vregs in the output: inserting the reload/spill stores a real
// backend would need is out of this allocator's minimal scope (§9.3).
func Rewrite(prog x86.Program, res *Result) x86.Program {
	assign := make(map[x86.VReg]x86.VReg, len(res.Assignments))
	for vr, a := range res.Assignments {
		if !a.Spilled {
			assign[vr] = a.Reg
		}
	}

	out := make([]x86.Instr, len(prog.Instrs))
	for i, instr := range prog.Instrs {
		out[i] = instr.Renamed(assign)
	}
	return x86.Program{Instrs: out, NumVRegs: prog.NumVRegs}
}
