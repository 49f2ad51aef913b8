package ir

import "fmt"

// Stmt is the base interface for every IR statement node.
type Stmt interface {
	fmt.Stringer
	stmtNode()
}

// Store is a little-endian memory store.
type Store struct {
	Addr, Data Expr
}

func (Store) stmtNode() {}
func (s Store) String() string {
	return fmt.Sprintf("STle(%s) = %s", s.Addr, s.Data)
}

// Put writes to guest state at a fixed byte offset.
type Put struct {
	Offset int
	Data   Expr
}

func (Put) stmtNode() {}
func (p Put) String() string {
	return fmt.Sprintf("PUT(%d) = %s", p.Offset, p.Data)
}

// PutI writes to a guest-state array at a dynamic index plus bias.
type PutI struct {
	Descr ArrayDescr
	Ix    Expr
	Bias  int
	Data  Expr
}

func (PutI) stmtNode() {}
func (p PutI) String() string {
	return fmt.Sprintf("PUTI<%d:%s:%d>[%s,%d] = %s", p.Descr.Base, p.Descr.ElemTy, p.Descr.NElems, p.Ix, p.Bias, p.Data)
}

// TempAssign binds the result of an expression to an IR-temp.
type TempAssign struct {
	Dst int
	Rhs Expr
}

func (TempAssign) stmtNode() {}
func (t TempAssign) String() string {
	return fmt.Sprintf("t%d = %s", t.Dst, t.Rhs)
}

// DirtyCallDescr describes an IR call with explicit effects: it may
// guard its execution, may need %EBP passed as its first argument (when
// NFxState > 0 and NeedsEBP), and may bind a result temp. ResultTemp is
// -1 when the call has no result (the sentinel mirrors vregmapHI's
// invalid-register convention for non-i64 temps).
type DirtyCallDescr struct {
	Callee     *Callee
	Args       []Expr
	Guard      Expr // nil or Const(Bit,1) both mean "always"
	ResultTemp int
	ResultTy   Type
	NFxState   int
	NeedsEBP   bool
}

// DirtyCall is a call with explicit effect descriptors.
type DirtyCall struct {
	Call *DirtyCallDescr
}

func (DirtyCall) stmtNode() {}
func (d DirtyCall) String() string {
	return fmt.Sprintf("DIRTY %s(%s)", d.Call.Callee.Name, d.Call.Args)
}

// JumpKind classifies how control reaches the side-exit's or block's
// target; the selector only inspects it to forward it into x86.Goto.
type JumpKind uint8

const (
	JkBoring JumpKind = iota
	JkCall
	JkRet
)

func (jk JumpKind) String() string {
	switch jk {
	case JkBoring:
		return "Boring"
	case JkCall:
		return "Call"
	case JkRet:
		return "Ret"
	default:
		return fmt.Sprintf("JumpKind(%d)", uint8(jk))
	}
}

// Exit is a conditional side-exit out of the block: if Guard is true,
// control leaves to Target (which must be a U32 constant) with kind Jk.
type Exit struct {
	Guard  Expr
	Target Expr
	Jk     JumpKind
}

func (Exit) stmtNode() {}
func (e Exit) String() string {
	return fmt.Sprintf("if (%s) { exit-%s %s }", e.Guard, e.Jk, e.Target)
}

// Block is a basic block: a type environment, a straight-line sequence
// of statements, and a terminator expression reached unconditionally
// once every statement (and any side-exit) has run.
type Block struct {
	Types TypeEnv
	Stmts []Stmt
	Next  Expr
	Jk    JumpKind
}
