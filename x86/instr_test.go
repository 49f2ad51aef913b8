package x86

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func vreg(i int) VReg { return VReg{Index: i, Kind: Int, Virtual: true} }

func Test_Instr_Renamed_SubstitutesDestinationRegister(t *testing.T) {
	v0 := vreg(0)
	i := Mov32(v0, RMIImm(7))

	out := i.Renamed(map[VReg]VReg{v0: EBX})
	assert.Equal(t, "movl $0x7, %ebx", out.String())
	// the original instruction is untouched
	assert.Equal(t, "movl $0x7, "+v0.String(), i.String())
}

func Test_Instr_Renamed_SubstitutesSourceRegisterOperand(t *testing.T) {
	v0, v1 := vreg(0), vreg(1)
	i := Alu32(Add, v0, RMIReg(v1))

	out := i.Renamed(map[VReg]VReg{v0: EBX, v1: ESI})
	assert.Equal(t, "addl %esi, %ebx", out.String())
}

func Test_Instr_Renamed_SubstitutesAModeBaseAndIndex(t *testing.T) {
	base, index := vreg(0), vreg(1)
	i := FPLoad(8, ScaledAMode(4, base, index, 2))

	out := i.Renamed(map[VReg]VReg{base: EBX, index: EDI})
	assert.Contains(t, out.String(), "%ebx")
	assert.Contains(t, out.String(), "%edi")
}

func Test_Instr_Renamed_LeavesUnmappedVRegsUnchanged(t *testing.T) {
	v0, v1 := vreg(0), vreg(1)
	i := Mov32(v0, RMIReg(v1))

	// v1 is absent from assign, as it would be for a spilled vreg: it
	// must pass through unrenamed rather than vanish or zero out.
	out := i.Renamed(map[VReg]VReg{v0: EBX})
	assert.Equal(t, "movl "+v1.String()+", %ebx", out.String())
}

func Test_Invert_IsInvolution(t *testing.T) {
	for _, cc := range []CondCode{Z, NZ, L, NL, LE, NLE, B, NB, BE, NBE} {
		assert.Equal(t, cc, Invert(Invert(cc)), "inverting twice must return the original code")
	}
}

func Test_Invert_PanicsOnAlways(t *testing.T) {
	assert.Panics(t, func() { Invert(ALWAYS) })
}
