// Package compiler implements Koala's semantic analyzer and bytecode code
// generator: it walks a parsed *ast.Program, resolves every identifier
// against a [symbol.Table] tree (module, class/trait, function/method,
// block), type-checks and infers expression types, emits bytecode per
// spec.md §6's opcode set into per-function/method [CodeBlock]s, and finally
// assembles everything into an *image.Image ready for [image.Image.Write].
//
// The overall shape — a driver that discovers top-level names before
// compiling bodies, an explicit scope stack, and an emit-time symbol lookup
// that walks outward through that stack — follows the familiar
// discover-then-emit compiler structure, but retargeted: instead of
// building a flat constant pool and a single linear instruction stream,
// this package interns every name, type, and literal into an [atom.Table]
// and records one compiled body per function/method symbol, so the result
// is a linkable module image rather than a single immediately-executable
// instruction stream.
package compiler

import (
	"fmt"
	"strings"

	"github.com/fangguanya/koala-lang/ast"
	"github.com/fangguanya/koala-lang/atom"
	"github.com/fangguanya/koala-lang/image"
	"github.com/fangguanya/koala-lang/symbol"
	"github.com/fangguanya/koala-lang/types"
)

// pendingClass/pendingTrait hold a declaration alongside the bare symbol
// discovery registered for it, so later discovery sub-passes (which need
// every class/trait name visible regardless of declaration order) can find
// and populate it.
type pendingClass struct {
	sym  *symbol.Symbol
	decl *ast.ClassDecl
}

type pendingTrait struct {
	sym  *symbol.Symbol
	decl *ast.TraitDecl
}

// compiledBody is the result of emitting one function or method: its
// bytecode plus the local-variable debug records spec.md §6's LocalVarItem
// kind stores alongside it.
type compiledBody struct {
	code   []byte
	locals []*symbol.Symbol
}

// State is the Koala analog of spec.md §4.4's ParserState: the whole
// compilation's shared tables plus the active scope stack.
type State struct {
	PkgName string
	Atoms   *atom.Table
	Module  *symbol.Table

	aliases map[string]ast.TypeExpr

	classDecls []*pendingClass
	traitDecls []*pendingTrait

	unit   *Unit
	bodies map[*symbol.Symbol]*compiledBody

	// tmpCounter generates unique hidden local names (e.g. for-each's
	// index variable) across nested loops within one compilation.
	tmpCounter int

	Errors   []string
	Warnings []string
}

// maxCompileErrors caps how many errors a single Compile call accumulates
// (spec.md §4.4's "Type checking and inference" suggests a cap, e.g. 8) —
// past it, a single terminal message replaces further per-site reporting so
// a deeply malformed program doesn't flood the caller with cascading noise.
const maxCompileErrors = 8

// NewState creates an empty State for compiling a single module named pkgName.
func NewState(pkgName string) *State {
	return &State{
		PkgName: pkgName,
		Atoms:   atom.New(),
		Module:  symbol.New(),
		aliases: make(map[string]ast.TypeExpr),
		bodies:  make(map[*symbol.Symbol]*compiledBody),
	}
}

func (s *State) errorf(line int, format string, args ...any) {
	if len(s.Errors) > maxCompileErrors {
		return
	}
	if len(s.Errors) == maxCompileErrors {
		s.Errors = append(s.Errors, fmt.Sprintf("too many errors (stopped after %d)", maxCompileErrors))
		return
	}
	s.Errors = append(s.Errors, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}

// warnf records a non-fatal diagnostic (unused import/symbol) that doesn't
// affect the emitted image.
func (s *State) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Compile runs the full two-pass pipeline (discovery, then emission) over
// prog and assembles the resulting image. Errors accumulated along the way
// are returned alongside a best-effort image; callers should check len(errs)
// before trusting the image.
func Compile(pkgName string, prog *ast.Program) (*image.Image, []string) {
	st := NewState(pkgName)
	st.discoverProgram(prog)
	st.emitProgram(prog)
	st.checkUnusedSymbols()
	return st.buildImage(), st.Errors
}

// pushUnit enters a new scope, nesting it under the current one (if any).
func (s *State) pushUnit(kind UnitKind, sym *symbol.Symbol, table *symbol.Table) *Unit {
	u := newUnit(kind, sym, table, s.unit)
	s.unit = u
	return u
}

func (s *State) popUnit() {
	s.unit = s.unit.Parent
}

// lookup walks the scope stack outward from the current unit (innermost
// block scope first, then enclosing function/method tables), then falls
// back to the module table. The owning class/trait's member table is not
// searched.
func (s *State) lookup(name string) (*symbol.Symbol, bool) {
	for u := s.unit; u != nil; u = u.Parent {
		if sym, ok := u.Table.Get(name); ok {
			return sym, true
		}
	}
	return s.Module.Get(name)
}

func lastPathComponent(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// inferType makes a conservative best-effort guess at an expression's static
// type from its literal shape, used only when a `var` declaration omits an
// explicit type annotation (spec.md §4.4 "infer from initializer"). Anything
// beyond a literal falls back to Any, deferring the real check to the
// assignment/usage sites that follow.
func inferType(e ast.Expression) types.TypeDesc {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		return types.NewPrimitive(types.Int, 0)
	case *ast.FloatLiteral:
		return types.NewPrimitive(types.Float, 0)
	case *ast.Boolean:
		return types.NewPrimitive(types.Bool, 0)
	case *ast.StringLiteral:
		return types.NewPrimitive(types.StringKind, 0)
	case *ast.ArrayLiteral:
		if len(v.Elements) > 0 {
			return bumpDims(inferType(v.Elements[0]))
		}
		return types.NewPrimitive(types.Any, 1)
	default:
		return types.NewPrimitive(types.Any, 0)
	}
}

// bumpDims returns desc wrapped in one additional array dimension.
func bumpDims(desc types.TypeDesc) types.TypeDesc {
	switch t := desc.(type) {
	case *types.PrimitiveType:
		return types.NewPrimitive(t.Kind, t.Dims()+1)
	case *types.UserDefType:
		return types.NewUserDef(t.Path, t.Name, t.Dims()+1)
	default:
		return desc
	}
}

// resolveVarType resolves a VarDecl's declared type, or infers one from its
// initializer when the declaration omits an annotation.
func (s *State) resolveVarType(d *ast.VarDecl) types.TypeDesc {
	if d.Type != nil {
		return s.resolveTypeExpr(*d.Type)
	}
	if d.Value != nil {
		return inferType(d.Value)
	}
	return types.NewPrimitive(types.Any, 0)
}
