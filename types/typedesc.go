// Package types defines the language-level type descriptors used throughout
// the Koala compiler: primitive types, user-defined (class/trait) types,
// function prototypes, array dimensions, and module-path placeholders.
//
// A [TypeDesc] is a tagged union, following the same "one Go type per
// variant implementing a marker method" shape the rest of this codebase
// uses for AST nodes and runtime objects: each variant is its own struct
// implementing the [TypeDesc] interface, rather than one struct with an
// enum discriminator.
package types

import (
	"strings"
)

// Primitive codes.
type Primitive int

const (
	Int Primitive = iota
	Float
	Bool
	StringKind
	Any
)

func (p Primitive) String() string {
	switch p {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case StringKind:
		return "string"
	case Any:
		return "any"
	default:
		return "?"
	}
}

// TypeDesc is the base interface every type-descriptor variant implements.
type TypeDesc interface {
	// typeDesc is a marker method restricting implementers to this package's variants.
	typeDesc()

	// Dims returns the number of array dimensions wrapping this type (0 for none).
	Dims() int

	// String renders the canonical textual form used in diagnostics and image encoding.
	String() string
}

// PrimitiveType is a built-in scalar or Any, optionally wrapped in array dimensions.
type PrimitiveType struct {
	Kind Primitive
	dims int
}

func NewPrimitive(kind Primitive, dims int) *PrimitiveType { return &PrimitiveType{Kind: kind, dims: dims} }

func (*PrimitiveType) typeDesc()    {}
func (p *PrimitiveType) Dims() int  { return p.dims }
func (p *PrimitiveType) String() string {
	return strings.Repeat("[]", p.dims) + p.Kind.String()
}

// UserDefType names a class or trait defined in a module: `path.name`, where
// an empty path means "the current module" (the analyzer fills it in).
type UserDefType struct {
	Path string
	Name string
	dims int
}

func NewUserDef(path, name string, dims int) *UserDefType {
	return &UserDefType{Path: path, Name: name, dims: dims}
}

func (*UserDefType) typeDesc()   {}
func (u *UserDefType) Dims() int { return u.dims }
func (u *UserDefType) String() string {
	prefix := strings.Repeat("[]", u.dims)
	if u.Path == "" {
		return prefix + u.Name
	}
	return prefix + u.Path + "." + u.Name
}

// ProtoType is a function signature: parameter types, return types, and
// whether the last parameter accepts a variable number of arguments.
type ProtoType struct {
	Params  []TypeDesc
	Returns []TypeDesc
	Varargs bool
}

func NewProto(params, returns []TypeDesc, varargs bool) *ProtoType {
	return &ProtoType{Params: params, Returns: returns, Varargs: varargs}
}

func (*ProtoType) typeDesc() {}

// Dims is always 0 for a Proto: function values are never arrayed in Koala.
func (*ProtoType) Dims() int { return 0 }

func (p *ProtoType) String() string {
	var b strings.Builder
	b.WriteString("(")
	for i, t := range p.Params {
		if i > 0 {
			b.WriteString(",")
		}
		if p.Varargs && i == len(p.Params)-1 {
			b.WriteString("...")
		}
		b.WriteString(t.String())
	}
	b.WriteString(")")
	if len(p.Returns) == 1 {
		b.WriteString(p.Returns[0].String())
	} else if len(p.Returns) > 1 {
		b.WriteString("(")
		for i, t := range p.Returns {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(t.String())
		}
		b.WriteString(")")
	}
	return b.String()
}

// PkgPathType is a symbol-table placeholder standing for an imported module alias.
type PkgPathType struct {
	Path string
}

func NewPkgPath(path string) *PkgPathType { return &PkgPathType{Path: path} }

func (*PkgPathType) typeDesc()    {}
func (*PkgPathType) Dims() int    { return 0 }
func (p *PkgPathType) String() string { return "package:" + p.Path }

// Check reports whether two TypeDescs are compatible for assignment/argument
// purposes: Any unifies with everything; otherwise kinds, dims, and
// variant-specific fields must match. UserDef comparison treats an empty
// Path as "current module" so descriptors minted in different contexts
// (e.g. one from the declaration site, one from a resolved symbol) still
// compare equal once the analyzer has filled in Path.
func Check(t1, t2 TypeDesc) bool {
	if isAny(t1) || isAny(t2) {
		return true
	}
	if t1.Dims() != t2.Dims() {
		return false
	}
	switch a := t1.(type) {
	case *PrimitiveType:
		b, ok := t2.(*PrimitiveType)
		return ok && a.Kind == b.Kind
	case *UserDefType:
		b, ok := t2.(*UserDefType)
		if !ok {
			return false
		}
		return a.Name == b.Name && samePath(a.Path, b.Path)
	case *ProtoType:
		b, ok := t2.(*ProtoType)
		if !ok || a.Varargs != b.Varargs || len(a.Params) != len(b.Params) || len(a.Returns) != len(b.Returns) {
			return false
		}
		for i := range a.Params {
			if !Check(a.Params[i], b.Params[i]) {
				return false
			}
		}
		for i := range a.Returns {
			if !Check(a.Returns[i], b.Returns[i]) {
				return false
			}
		}
		return true
	case *PkgPathType:
		b, ok := t2.(*PkgPathType)
		return ok && a.Path == b.Path
	default:
		return false
	}
}

func samePath(a, b string) bool {
	return a == b || a == "" || b == ""
}

func isAny(t TypeDesc) bool {
	p, ok := t.(*PrimitiveType)
	return ok && p.Kind == Any && p.dims == 0
}

// ParsePrimitive maps a lowercase type keyword to its Primitive code.
func ParsePrimitive(name string) (Primitive, bool) {
	switch name {
	case "int":
		return Int, true
	case "float":
		return Float, true
	case "bool":
		return Bool, true
	case "string":
		return StringKind, true
	case "any":
		return Any, true
	default:
		return 0, false
	}
}

// FormatDims renders the `[]`-prefix notation for a given dimension count,
// e.g. FormatDims(2) == "[][]" — used when building diagnostic strings
// outside of a TypeDesc.String() call (e.g. error messages built from raw counts).
func FormatDims(dims int) string {
	return strings.Repeat("[]", dims)
}
