package isel

import (
	"strings"
	"testing"

	"x86isel/ir"
	"x86isel/x86"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callInstrString(t *testing.T, instrs []x86.Instr) string {
	t.Helper()
	for _, i := range instrs {
		s := i.String()
		if strings.HasPrefix(s, "call") {
			return s
		}
	}
	require.Fail(t, "no call instruction found", "%v", instrs)
	return ""
}

func Test_MarshalCall_UnconditionalCallUsesAlwaysCondition(t *testing.T) {
	env := newTestEnv()
	callee := &ir.Callee{Name: "f", RegParms: 0}
	marshalCall(env, callee, nil, nil)
	assert.Equal(t, "call.0 f", callInstrString(t, env.Instrs))
}

func Test_MarshalCall_GuardIsEvaluatedAfterArguments(t *testing.T) {
	env := newTestEnv()
	callee := &ir.Callee{Name: "g", RegParms: 1}
	guard := ir.Binop{Op: ir.OpCmpEQ32, Arg1: ir.Get{Offset: 0, Ty: ir.I32}, Arg2: ir.ConstU32(1)}
	marshalCall(env, callee, []ir.Expr{ir.ConstU32(5)}, guard)

	var callIdx = -1
	for i, instr := range env.Instrs {
		if strings.HasPrefix(instr.String(), "call") {
			callIdx = i
			break
		}
	}
	require.NotEqual(t, -1, callIdx)
	// The guard's comparison must be fully emitted strictly before the
	// call, and the call itself must carry the guard's own condition.
	assert.Equal(t, "callz.1 g", env.Instrs[callIdx].String())
	assert.Greater(t, callIdx, 0, "arguments must be evaluated before the call instruction")

	argIdx, cmpIdx := -1, -1
	for i, instr := range env.Instrs {
		s := instr.String()
		if strings.HasSuffix(s, ", %eax") {
			argIdx = i
		}
		if strings.HasPrefix(s, "cmpl") {
			cmpIdx = i
		}
	}
	require.NotEqual(t, -1, argIdx, "the register argument must be loaded into %%eax")
	assert.Less(t, argIdx, cmpIdx, "the guard's compare must come after the argument is placed")
	assert.Less(t, cmpIdx, callIdx)
}

// With PassEBP set, the first RegParms slot (%eax) is taken by %ebp,
// which is moved into it after the real arguments; only the remaining
// RegParms-1 slots receive real arguments, starting at regArgRegs[1] (%edx).
func Test_MarshalCall_PassEBPShiftsFirstRegisterArgument(t *testing.T) {
	env := newTestEnv()
	callee := &ir.Callee{Name: "helper", RegParms: 2, PassEBP: true}
	marshalCall(env, callee, []ir.Expr{ir.ConstU32(42)}, nil)

	var sawEDXLoad bool
	for _, instr := range env.Instrs {
		if strings.Contains(instr.String(), "%edx") {
			sawEDXLoad = true
		}
	}
	assert.True(t, sawEDXLoad, "first real argument under PassEBP must land in %%edx, not %%eax")
}

// Arguments beyond the register slots spill to the stack right to left,
// and a 64-bit argument pushes its high half first so the low half ends
// up at the lower address.
func Test_MarshalCall_I64StackArgumentPushesHiThenLo(t *testing.T) {
	env := newTestEnv()
	callee := &ir.Callee{Name: "wide", RegParms: 0}
	marshalCall(env, callee, []ir.Expr{ir.ConstU64(0x1_0000_0002)}, nil)

	var pushes []string
	for _, instr := range env.Instrs {
		s := instr.String()
		if strings.HasPrefix(s, "pushl") {
			pushes = append(pushes, s)
		}
	}
	require.Len(t, pushes, 2, "a single i64 stack argument pushes exactly twice")
	// The hi half (0x1) is materialized into %v0i, the lo half (0x2) into %v1i.
	assert.Equal(t, []string{"pushl %v0i", "pushl %v1i"}, pushes, "the high half must be pushed before the low half")
}

func Test_MarshalCall_ZeroRegParmsPushesEveryArgument(t *testing.T) {
	env := newTestEnv()
	callee := &ir.Callee{Name: "allstack", RegParms: 0}
	marshalCall(env, callee, []ir.Expr{ir.ConstU32(1), ir.ConstU32(2), ir.ConstU32(3)}, nil)

	pushCount := 0
	for _, instr := range env.Instrs {
		if strings.HasPrefix(instr.String(), "pushl") {
			pushCount++
		}
	}
	assert.Equal(t, 3, pushCount)
}
