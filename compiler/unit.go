package compiler

import (
	"github.com/fangguanya/koala-lang/code"
	"github.com/fangguanya/koala-lang/symbol"
	"github.com/fangguanya/koala-lang/types"
)

// UnitKind discriminates what scope a [Unit] represents, per spec.md §4.4's
// ParserUnit ("scope kind ∈ {Module, Class, Trait, Function, Method,
// Block}").
type UnitKind int

const (
	UnitModule UnitKind = iota
	UnitClass
	UnitTrait
	UnitFunction
	UnitMethod
	UnitBlock
)

// jumpKind discriminates a pending jump placeholder as a break or a continue,
// so block-exit fixup (spec.md §4.4 "Emission per scope") can patch each
// with the right byte-offset arithmetic.
type jumpKind int

const (
	jumpBreak jumpKind = iota
	jumpContinue
)

// pendingJump is an un-patched JUMP instruction emitted for a break/continue,
// recorded at the loop Unit that must eventually fix it up. level counts how
// many enclosing loops the break/continue should unwind (1 = innermost).
type pendingJump struct {
	kind    jumpKind
	pos     int // byte offset of the JUMP's operand within the loop unit's CodeBlock
	level   int
}

// CodeBlock accumulates the instruction bytes of one function, method or
// __init__ body. Block units share their enclosing unit's CodeBlock; pending
// break/continue jumps are tracked on Unit.Pending, not here.
type CodeBlock struct {
	instructions code.Instructions
}

func (b *CodeBlock) len() int { return len(b.instructions) }

func (b *CodeBlock) append(ins []byte) int {
	pos := len(b.instructions)
	b.instructions = append(b.instructions, ins...)
	return pos
}

// patchInt32 overwrites the 4-byte signed operand starting at pos.
func (b *CodeBlock) patchInt32(pos int, value int) {
	ins := code.Make(code.Opcode(b.instructions[pos-1]), value)
	copy(b.instructions[pos-1:], ins)
}

// Unit is the Koala analog of spec.md §4.4's ParserUnit: one scope's worth
// of symbol table, active code, and (for loop bodies) pending jump fixups.
type Unit struct {
	Kind    UnitKind
	Sym     *symbol.Symbol
	Table   *symbol.Table
	Code    *CodeBlock
	Parent  *Unit
	Loop    bool
	Pending []pendingJump

	// SelfClass is the class/trait a Method unit (or any Block unit nested
	// inside it) belongs to, used to resolve implicit self/field access.
	SelfClass *symbol.Symbol

	// Returns is the declared return-type list of the enclosing function or
	// method, used to type-check `return` statements (spec.md §4.4's
	// return-arity/type checking).
	Returns []types.TypeDesc

	lastOp  code.Opcode
	hasLast bool
}

// newUnit creates a Unit nested under parent (nil for the module root).
func newUnit(kind UnitKind, sym *symbol.Symbol, table *symbol.Table, parent *Unit) *Unit {
	u := &Unit{Kind: kind, Sym: sym, Table: table, Code: &CodeBlock{}, Parent: parent}
	if parent != nil {
		u.SelfClass = parent.SelfClass
		u.Returns = parent.Returns
	}
	return u
}

// pushBlock nests a loop/conditional-tracking Unit under parent, sharing its
// CodeBlock (bytecode for an entire function lives in one contiguous byte
// stream; only the symbol table and loop bookkeeping nest per block).
func (s *State) pushBlock(loop bool) *Unit {
	u := &Unit{Kind: UnitBlock, Table: s.unit.Table, Code: s.unit.Code, Parent: s.unit, Loop: loop, SelfClass: s.unit.SelfClass, Returns: s.unit.Returns}
	s.unit = u
	return u
}

// enclosingLoop walks up the Unit chain from u (inclusive) and returns the
// level-th enclosing loop unit (level 1 = innermost), or nil if there are
// fewer than level enclosing loops.
func (u *Unit) enclosingLoop(level int) *Unit {
	n := level
	if n <= 0 {
		n = 1
	}
	for cur := u; cur != nil; cur = cur.Parent {
		if cur.Loop {
			n--
			if n == 0 {
				return cur
			}
		}
	}
	return nil
}
