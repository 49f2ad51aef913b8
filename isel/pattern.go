package isel

import (
	"x86isel/arena"
	"x86isel/ir"
)

// NMatchBinders is the fixed small capacity of a MatchInfo, per
// spec.md §4.1 / §9 ("N=4 reserved", "allocate binders on the stack or
// in a small inline array, not on the heap").
const NMatchBinders = 4

// Pattern is an IR expression tree built with the same constructors as
// a real expression, but with ir.Binder nodes standing in for the
// subtrees to capture. Patterns and real expressions share one type so
// matching is a single structural recursion.
type Pattern = ir.Expr

// MatchInfo holds the captured subtrees of a successful match. Slots
// start "empty" (nil) before every top-level match.
type MatchInfo struct {
	Slots [NMatchBinders]ir.Expr
}

// Match attempts to align pat against e. On success it returns a fresh
// MatchInfo with every referenced binder slot filled; on failure it
// returns (nil, false). Re-binding the same slot within one match, or a
// binder index outside [0,NMatchBinders), is a fatal internal error
// (spec.md §4.1) rather than an ordinary match failure: both indicate a
// pattern was built incorrectly, not that the input didn't match.
func Match(pat, e ir.Expr) (*MatchInfo, bool) {
	mi := &MatchInfo{}
	if !matchInto(pat, e, mi) {
		return nil, false
	}
	return mi, true
}

func matchInto(pat, e ir.Expr, mi *MatchInfo) bool {
	if b, ok := pat.(ir.Binder); ok {
		if b.Slot < 0 || b.Slot >= NMatchBinders {
			fail(ErrInvariantViolation, nil, "match binder index %d out of range", b.Slot)
		}
		if mi.Slots[b.Slot] != nil {
			fail(ErrInvariantViolation, nil, "match binder slot %d rebound", b.Slot)
		}
		mi.Slots[b.Slot] = e
		return true
	}

	switch p := pat.(type) {
	case ir.Temp:
		q, ok := e.(ir.Temp)
		return ok && q.Idx == p.Idx && q.Ty == p.Ty
	case ir.Get:
		q, ok := e.(ir.Get)
		return ok && q.Offset == p.Offset && q.Ty == p.Ty
	case ir.Const:
		q, ok := e.(ir.Const)
		return ok && q.Kind == p.Kind && q.Bits == p.Bits
	case ir.Load:
		q, ok := e.(ir.Load)
		return ok && q.Ty == p.Ty && matchInto(p.Addr, q.Addr, mi)
	case ir.Unop:
		q, ok := e.(ir.Unop)
		return ok && q.Op == p.Op && matchInto(p.Arg, q.Arg, mi)
	case ir.Binop:
		q, ok := e.(ir.Binop)
		return ok && q.Op == p.Op &&
			matchInto(p.Arg1, q.Arg1, mi) && matchInto(p.Arg2, q.Arg2, mi)
	case ir.Mux0X:
		q, ok := e.(ir.Mux0X)
		return ok && matchInto(p.Cond, q.Cond, mi) &&
			matchInto(p.Expr0, q.Expr0, mi) && matchInto(p.ExprX, q.ExprX, mi)
	case ir.GetI:
		q, ok := e.(ir.GetI)
		return ok && p.Descr == q.Descr && p.Bias == q.Bias && matchInto(p.Ix, q.Ix, mi)
	default:
		// CCall and other shapes are never matched against in this
		// core's pattern set; treat as "doesn't match" rather than a
		// hard failure so callers can freely try a pattern against any
		// expression shape.
		return false
	}
}

// Named, memoized patterns. These are built exactly once, in the
// arena's Permanent mode (spec.md §4.1's "patterns are built once and
// memoized"), guarded by the package-level patterns var initialized at
// import time rather than rebuilt on every call.
var patterns = buildPatterns()

type patternTable struct {
	// addShl matches Add32(a, Shl32(b, k)): slot0=a, slot1=b, slot2=k.
	// The caller still must check slot2 is a Const(U8) in {1,2,3}; the
	// matcher only establishes the shape, per spec.md's "k ∈ {1,2,3}"
	// range check living in the AMode-form code, not the pattern itself.
	addShl Pattern

	// oneUto8Of32to1 matches 1Uto8(32to1(e)): slot0=e.
	oneUto8Of32to1 Pattern

	// sixteenUto32OfLoad matches 16Uto32(LDle:I16(a)): slot0=a.
	sixteenUto32OfLoad Pattern
}

func buildPatterns() patternTable {
	arena.Default.MustBeTemporary()
	prevMode := arena.Default.SwitchMode(arena.Permanent)

	t := patternTable{
		addShl: ir.Binop{
			Op:   ir.OpAdd32,
			Arg1: ir.Binder{Slot: 0},
			Arg2: ir.Binop{Op: ir.OpShl32, Arg1: ir.Binder{Slot: 1}, Arg2: ir.Binder{Slot: 2}},
		},
		oneUto8Of32to1: ir.Unop{
			Op:  ir.Op1Uto8,
			Arg: ir.Unop{Op: ir.Op32to1, Arg: ir.Binder{Slot: 0}},
		},
		sixteenUto32OfLoad: ir.Unop{
			Op:  ir.Op16Uto32,
			Arg: ir.Load{Addr: ir.Binder{Slot: 0}, Ty: ir.I16},
		},
	}

	arena.Default.SwitchMode(prevMode)
	arena.Default.MustBeTemporary()
	return t
}
