// Package regalloc is a minimal linear-scan consumer of x86.Program
// (spec.md §9 places register allocation out of scope for the
// selector proper; this exists so the module has a runnable,
// testable end-to-end path, not as a production allocator).
//
// The selector emits one basic block at a time as a flat instruction
// list, so there is no control-flow graph to analyze here: liveness
// degenerates to a single backward pass over env.Instrs, the same
// computation cfg.ComputeLiveness does per-block in the teacher, with
// the block-to-block fixpoint iteration dropped since there is only
// ever one block.
package regalloc

import "x86isel/x86"

// Liveness holds, for each instruction index i, the set of vregs live
// immediately before instruction i executes — the straight-line
// analogue of cfg.LivenessInfo.LiveIn, computed in one backward pass
// since there are no block boundaries to reach a fixpoint over.
type Liveness struct {
	LiveBefore []map[x86.VReg]bool
}

// ComputeLiveness walks instrs backward once, mirroring
// cfg.computeUseDefSetsFromMachineInstructions's per-instruction
// use/def logic directly against the running live set instead of
// against per-block use/def summaries merged through a fixpoint.
func ComputeLiveness(instrs []x86.Instr) *Liveness {
	live := &Liveness{LiveBefore: make([]map[x86.VReg]bool, len(instrs))}

	current := make(map[x86.VReg]bool)
	for i := len(instrs) - 1; i >= 0; i-- {
		instr := instrs[i]

		if result := instr.GetResult(); result.IsValid() && result.Virtual {
			delete(current, result)
		}
		for _, op := range instr.GetOperands() {
			if op.Virtual {
				current[op] = true
			}
		}

		before := make(map[x86.VReg]bool, len(current))
		for vr := range current {
			before[vr] = true
		}
		live.LiveBefore[i] = before
	}

	return live
}

// LiveRange is the span [Start,End] of instruction indices a vreg is
// live across, inclusive — the input the linear-scan allocator sorts
// and scans, in place of walking interference-graph edges.
type LiveRange struct {
	VReg  x86.VReg
	Start int
	End   int
}

// ComputeLiveRanges collapses the per-instruction liveness computed by
// ComputeLiveness into one [Start,End] span per vreg: Start is the
// first point the vreg is either defined or already live, End the last
// point it is still live (the straight-line analogue of
// LivenessInfo.GetLiveRanges, which instead collects the set of block
// IDs a vreg crosses).
func ComputeLiveRanges(instrs []x86.Instr, live *Liveness) []LiveRange {
	first := make(map[x86.VReg]int)
	last := make(map[x86.VReg]int)

	touch := func(vr x86.VReg, i int) {
		if !vr.Virtual {
			return
		}
		if _, ok := first[vr]; !ok {
			first[vr] = i
		}
		if i > last[vr] {
			last[vr] = i
		}
	}

	for i, instr := range instrs {
		if r := instr.GetResult(); r.IsValid() {
			touch(r, i)
		}
		for vr := range live.LiveBefore[i] {
			touch(vr, i)
		}
	}

	ranges := make([]LiveRange, 0, len(first))
	for vr, start := range first {
		ranges = append(ranges, LiveRange{VReg: vr, Start: start, End: last[vr]})
	}
	return ranges
}
