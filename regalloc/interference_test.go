package regalloc

import (
	"testing"

	"x86isel/x86"

	"github.com/stretchr/testify/assert"
)

func Test_BuildGraph_SimultaneouslyLiveVRegsInterfere(t *testing.T) {
	v0, v1, v2 := vreg(0), vreg(1), vreg(2)
	instrs := []x86.Instr{
		x86.Mov32(v0, x86.RMIImm(1)),
		x86.Mov32(v1, x86.RMIImm(2)),
		// both v0 and v1 are live here, right before they're combined
		x86.Mov32(v2, x86.RMIReg(v0)),
		x86.Alu32(x86.Add, v2, x86.RMIReg(v1)),
	}

	live := ComputeLiveness(instrs)
	g := BuildGraph(live)

	assert.True(t, g.Interferes(v0, v1), "v0 and v1 are both live before instr 3")
	assert.False(t, g.Interferes(v0, v2), "v2 is never live at the same time as v0")
}

func Test_BuildGraph_NeighborsAreSorted(t *testing.T) {
	v0, v1, v2 := vreg(2), vreg(0), vreg(1)
	g := NewGraph()
	g.addEdge(v0, v1)
	g.addEdge(v0, v2)

	neighbors := g.Neighbors(v0)
	assert.Equal(t, []x86.VReg{v1, v2}, neighbors)
}
