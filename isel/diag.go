package isel

import (
	"fmt"
)

// ErrKind taxonomizes the fatal conditions spec.md §7 enumerates. Every
// one of them is a programming error in the caller's IR or an assertion
// failure on a selector invariant; none is recoverable.
type ErrKind uint8

const (
	ErrUnsupportedShape ErrKind = iota
	ErrTypeViolation
	ErrEncodingViolation
	ErrInvariantViolation
)

func (k ErrKind) String() string {
	switch k {
	case ErrUnsupportedShape:
		return "unsupported shape"
	case ErrTypeViolation:
		return "type violation"
	case ErrEncodingViolation:
		return "encoding violation"
	case ErrInvariantViolation:
		return "invariant violation"
	default:
		return "error"
	}
}

// SelError is the single error type this core ever produces. It carries
// the offending IR node so Select's top-level recover can pretty-print
// it, the way spec.md §6's diagnostics contract requires.
type SelError struct {
	Kind ErrKind
	Node fmt.Stringer // an ir.Expr or ir.Stmt, or nil
	Msg  string
}

func (e *SelError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, e.Node)
}

// fail raises a fatal selector error. Every inner selector function is
// written to propagate failure by panicking with a *SelError rather
// than threading an error return through every _wrk routine: spec.md §7
// is explicit that lowering a malformed block is undefined behavior,
// not a runtime condition, so modeling it as a recoverable error at
// every call site would misstate the contract. Select (§4.9) is the
// sole recover point, turning the panic back into a normal Go error at
// the package boundary.
func fail(kind ErrKind, node fmt.Stringer, format string, args ...interface{}) {
	panic(&SelError{Kind: kind, Node: node, Msg: fmt.Sprintf(format, args...)})
}

// assertf is an invariant check: if cond is false, it raises
// ErrInvariantViolation with the given message.
func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		fail(ErrInvariantViolation, nil, format, args...)
	}
}
