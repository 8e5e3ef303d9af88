// Package symbol implements the nested symbol tables used for name
// resolution across modules, classes, traits, functions and blocks.
//
// It generalizes a flat local/global/free/builtin variable-binding table
// into the richer model spec.md §3/§4.3 requires: named entries of several
// kinds (variable, function/interface prototype, class, trait, module
// alias, or a nested table), each carrying access, constness, a resolved
// type, a slot index, a parent back-link, an optional `super` link for
// inherited members, an arbitrary payload, a reference counter for
// unused-symbol diagnostics, and an `inherited` flag. The underlying data
// shape is still "a map from interned name to one Symbol value per table";
// only the Symbol payload grows to a tagged union.
package symbol

import (
	"fmt"

	"github.com/fangguanya/koala-lang/types"
)

// Kind discriminates what a Symbol names.
type Kind int

const (
	KindVariable Kind = iota
	KindFuncProto
	KindInterfaceProto
	KindClass
	KindTrait
	KindModuleAlias
	KindNestedTable
)

// Access is derived once, at symbol-creation time, from the first letter of
// the symbol's name (spec.md §4.3, §9 "First-letter case -> access"):
// uppercase is Public, lowercase (or non-letter) is Private.
type Access int

const (
	Private Access = iota
	Public
)

// accessFor computes Access from a name's first rune, called exactly once
// per symbol at Define time so the decision is never recomputed.
func accessFor(name string) Access {
	if len(name) == 0 {
		return Private
	}
	r := name[0]
	if r >= 'A' && r <= 'Z' {
		return Public
	}
	return Private
}

// Symbol is a single named entry in a SymTable.
type Symbol struct {
	Name    string
	Kind    Kind
	Access  Access
	Const   bool
	Desc    types.TypeDesc
	Slot    int
	Parent  *Symbol
	Super   *Symbol
	Payload any
	Refs    int
	Inherited bool
}

// Table is the nested symbol table itself: a mapping from name to Symbol,
// with a parent link for scope nesting and a monotonically increasing slot
// counter for variable indices.
type Table struct {
	Owner   *Symbol
	Parent  *Table
	order   []string
	entries map[string]*Symbol
	nextSlot int
}

// New creates an empty, unparented symbol table.
func New() *Table {
	return &Table{entries: make(map[string]*Symbol)}
}

// NewChild creates a table nested under parent, as used for class/trait/
// module/function bodies.
func NewChild(parent *Table) *Table {
	t := New()
	t.Parent = parent
	return t
}

// Get looks up name in this table only (no outward walk — callers that need
// scope-stack resolution walk Parent themselves per spec.md §4.4's
// identifier-resolution order, which is deliberately not table-local).
func (t *Table) Get(name string) (*Symbol, bool) {
	s, ok := t.entries[name]
	return s, ok
}

// Traverse visits every symbol in insertion order.
func (t *Table) Traverse(visit func(*Symbol)) {
	for _, name := range t.order {
		visit(t.entries[name])
	}
}

func (t *Table) define(sym *Symbol) error {
	if _, exists := t.entries[sym.Name]; exists {
		return fmt.Errorf("symbol %q already defined in this scope", sym.Name)
	}
	sym.Access = accessFor(sym.Name)
	t.entries[sym.Name] = sym
	t.order = append(t.order, sym.Name)
	return nil
}

// AddVar declares a variable, assigning it the next monotonic slot index in
// this table.
func (t *Table) AddVar(name string, desc types.TypeDesc, isConst bool) (*Symbol, error) {
	sym := &Symbol{Name: name, Kind: KindVariable, Desc: desc, Const: isConst, Slot: t.nextSlot}
	if err := t.define(sym); err != nil {
		return nil, err
	}
	t.nextSlot++
	return sym, nil
}

// AddFuncProto declares a function prototype symbol.
func (t *Table) AddFuncProto(name string, proto *types.ProtoType) (*Symbol, error) {
	sym := &Symbol{Name: name, Kind: KindFuncProto, Desc: proto}
	if err := t.define(sym); err != nil {
		return nil, err
	}
	return sym, nil
}

// AddInterfaceProto declares a trait's abstract (code-less) method prototype.
func (t *Table) AddInterfaceProto(name string, proto *types.ProtoType) (*Symbol, error) {
	sym := &Symbol{Name: name, Kind: KindInterfaceProto, Desc: proto}
	if err := t.define(sym); err != nil {
		return nil, err
	}
	return sym, nil
}

// AddClass declares a class symbol with a fresh, empty child table as payload.
func (t *Table) AddClass(name string) (*Symbol, error) {
	sym := &Symbol{Name: name, Kind: KindClass}
	if err := t.define(sym); err != nil {
		return nil, err
	}
	child := NewChild(t)
	child.Owner = sym
	sym.Payload = child
	return sym, nil
}

// AddTrait declares a trait symbol with a fresh, empty child table as payload.
func (t *Table) AddTrait(name string) (*Symbol, error) {
	sym := &Symbol{Name: name, Kind: KindTrait}
	if err := t.define(sym); err != nil {
		return nil, err
	}
	child := NewChild(t)
	child.Owner = sym
	sym.Payload = child
	return sym, nil
}

// AddAlias declares a module-alias symbol standing for an import.
func (t *Table) AddAlias(name, path string) (*Symbol, error) {
	sym := &Symbol{Name: name, Kind: KindModuleAlias, Desc: types.NewPkgPath(path)}
	if err := t.define(sym); err != nil {
		return nil, err
	}
	return sym, nil
}

// NumDefinitions returns how many variable slots have been assigned in this table.
func (t *Table) NumDefinitions() int { return t.nextSlot }

// ChildTable returns the nested SymTable a class/trait/module symbol carries
// as its Payload, or nil if sym does not carry one.
func ChildTable(sym *Symbol) *Table {
	if sym == nil {
		return nil
	}
	if tbl, ok := sym.Payload.(*Table); ok {
		return tbl
	}
	return nil
}

// AddInherited copies a public member of a super/trait table into t as an
// inherited symbol: same name, a Super back-pointer to the original, and
// Inherited set. The special `__init__` constructor name is never inherited
// (spec.md §4.4 "Inheritance"). Insertion is skipped (not an error) when t
// already defines name — an explicit declaration in the subclass shadows
// the inherited one, per spec.md's non-shadowing rule.
func (t *Table) AddInherited(src *Symbol) (*Symbol, bool, error) {
	if src.Name == "__init__" {
		return nil, false, nil
	}
	if src.Access != Public {
		return nil, false, nil
	}
	if _, exists := t.entries[src.Name]; exists {
		return nil, false, nil
	}
	sym := &Symbol{
		Name:      src.Name,
		Kind:      src.Kind,
		Access:    src.Access,
		Const:     src.Const,
		Desc:      src.Desc,
		Slot:      src.Slot,
		Super:     src,
		Inherited: true,
		Payload:   src.Payload,
	}
	t.entries[sym.Name] = sym
	t.order = append(t.order, sym.Name)
	return sym, true, nil
}
