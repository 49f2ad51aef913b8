package regalloc

import (
	"testing"

	"x86isel/x86"

	"github.com/stretchr/testify/assert"
)

func vreg(i int) x86.VReg { return x86.VReg{Index: i, Kind: x86.Int, Virtual: true} }

func Test_ComputeLiveness_SimpleChain(t *testing.T) {
	v0, v1 := vreg(0), vreg(1)
	instrs := []x86.Instr{
		x86.Mov32(v0, x86.RMIImm(1)),          // 0: def v0
		x86.Alu32(x86.Add, v0, x86.RMIImm(2)), // 1: use+def v0
		x86.Mov32(v1, x86.RMIReg(v0)),         // 2: use v0, def v1
	}

	live := ComputeLiveness(instrs)

	assert.False(t, live.LiveBefore[0][v0], "v0 is defined at 0, not live before it")
	assert.True(t, live.LiveBefore[1][v0], "v0 is read by instr 1")
	assert.True(t, live.LiveBefore[2][v0], "v0 is read by instr 2")
	assert.False(t, live.LiveBefore[2][v1], "v1 is defined at 2, not live before it")
}

func Test_ComputeLiveRanges_DisjointRangesDoNotOverlap(t *testing.T) {
	v0, v1 := vreg(0), vreg(1)
	instrs := []x86.Instr{
		x86.Mov32(v0, x86.RMIImm(1)),
		x86.Mov32(x86.EAX, x86.RMIReg(v0)), // v0's last use
		x86.Mov32(v1, x86.RMIImm(2)),
		x86.Mov32(x86.EDX, x86.RMIReg(v1)),
	}
	live := ComputeLiveness(instrs)
	ranges := ComputeLiveRanges(instrs, live)

	byVReg := make(map[x86.VReg]LiveRange)
	for _, r := range ranges {
		byVReg[r.VReg] = r
	}

	r0, r1 := byVReg[v0], byVReg[v1]
	assert.Equal(t, 0, r0.Start)
	assert.Equal(t, 1, r0.End)
	assert.Equal(t, 2, r1.Start)
	assert.Equal(t, 3, r1.End)
}
