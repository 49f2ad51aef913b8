// Package arena models the two-mode (permanent/temporary) allocation
// contract spec.md §5 asks this core to rely on, without owning the
// real upstream IR-node allocator: individual values are never freed,
// only the mode is switched, and the core asserts which mode it expects
// to be in around any once-per-process allocation.
package arena

// Mode selects the allocator's current lifetime regime. Permanent
// allocations persist for the life of the process (patterns built once
// at package init); Temporary allocations are expected to be released
// in bulk when a block's lowering is done.
type Mode uint8

const (
	Temporary Mode = iota
	Permanent
)

func (m Mode) String() string {
	if m == Permanent {
		return "permanent"
	}
	return "temporary"
}

// Arena tracks the current mode. It holds no actual storage: the IR
// node and instruction allocators it stands in for are out of scope
// (spec.md §1); this core only needs the mode-switch/assert contract.
type Arena struct {
	mode Mode
}

// New returns an Arena starting in Temporary mode, matching the
// documented default ("all other allocations occur in temporary mode").
func New() *Arena {
	return &Arena{mode: Temporary}
}

func (a *Arena) Mode() Mode { return a.mode }

// SwitchMode sets a's mode and returns the previous one, so callers can
// restore it symmetrically.
func (a *Arena) SwitchMode(m Mode) Mode {
	old := a.mode
	a.mode = m
	return old
}

// MustBeTemporary panics if a is not currently in Temporary mode.
// Assertion failures in this core are fatal (spec.md §7).
func (a *Arena) MustBeTemporary() {
	if a.mode != Temporary {
		panic("arena: expected temporary mode, got " + a.mode.String())
	}
}

// MustBePermanent panics if a is not currently in Permanent mode.
func (a *Arena) MustBePermanent() {
	if a.mode != Permanent {
		panic("arena: expected permanent mode, got " + a.mode.String())
	}
}

// Default is the process-wide arena package isel's pattern table is
// built under: switched to Permanent exactly once, at init time, then
// switched back and asserted Temporary for the remainder of the
// process's lifetime (spec.md §5).
var Default = New()
