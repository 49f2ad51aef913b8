package regalloc

import (
	"sort"

	"x86isel/x86"
)

// Graph is an interference graph over vregs: an edge between two
// vregs means they are simultaneously live and so cannot be colored
// with the same physical register. Adapted from cfg.InterferenceGraph;
// the composition-compatible sub-register carve-out the teacher needs
// for Z80's AF/HL-style byte pairs has no analogue here — every IA-32
// GPR this core's vregs compete for is a flat 32-bit register, so that
// check is dropped rather than ported unused.
type Graph struct {
	edges map[x86.VReg]map[x86.VReg]bool
	nodes map[x86.VReg]bool
}

func NewGraph() *Graph {
	return &Graph{
		edges: make(map[x86.VReg]map[x86.VReg]bool),
		nodes: make(map[x86.VReg]bool),
	}
}

func (g *Graph) addNode(vr x86.VReg) {
	g.nodes[vr] = true
	if g.edges[vr] == nil {
		g.edges[vr] = make(map[x86.VReg]bool)
	}
}

func (g *Graph) addEdge(a, b x86.VReg) {
	if a == b {
		return
	}
	g.addNode(a)
	g.addNode(b)
	g.edges[a][b] = true
	g.edges[b][a] = true
}

// Interferes reports whether a and b were ever simultaneously live.
func (g *Graph) Interferes(a, b x86.VReg) bool {
	return g.edges[a][b]
}

// Neighbors returns every vreg known to interfere with vr, sorted for
// deterministic output.
func (g *Graph) Neighbors(vr x86.VReg) []x86.VReg {
	out := make([]x86.VReg, 0, len(g.edges[vr]))
	for n := range g.edges[vr] {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// BuildGraph derives an interference graph from per-instruction
// liveness, the same relationship cfg.BuildInterferenceGraph computes
// from LivenessInfo: any two vregs both present in the live-before set
// of the same instruction were simultaneously live and so interfere.
// This is used to cross-check Allocate's output in tests, not by
// Allocate itself — the linear-scan pass works directly off
// ComputeLiveRanges instead of walking graph edges.
func BuildGraph(live *Liveness) *Graph {
	g := NewGraph()
	for _, liveSet := range live.LiveBefore {
		vrs := make([]x86.VReg, 0, len(liveSet))
		for vr := range liveSet {
			vrs = append(vrs, vr)
			g.addNode(vr)
		}
		for i := 0; i < len(vrs); i++ {
			for j := i + 1; j < len(vrs); j++ {
				g.addEdge(vrs[i], vrs[j])
			}
		}
	}
	return g
}
