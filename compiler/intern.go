package compiler

import (
	"github.com/fangguanya/koala-lang/atom"
	"github.com/fangguanya/koala-lang/types"
)

// Primitive-kind byte tags used only within this emitter's TypeItem encoding;
// the only requirement is that writer and reader (image/item.go) agree, and
// the atom.TypeItem.Prim field is opaque to the rest of the package.
const (
	primInt    = 0
	primFloat  = 1
	primBool   = 2
	primString = 3
	primAny    = 4
)

func primByte(p types.Primitive) byte {
	switch p {
	case types.Int:
		return primInt
	case types.Float:
		return primFloat
	case types.Bool:
		return primBool
	case types.StringKind:
		return primString
	default:
		return primAny
	}
}

// internString interns s into the String pool, returning its index.
func (s *State) internString(str string) int {
	return s.Atoms.Insert(atom.KindString, &atom.StringItem{Value: str}, true)
}

// internStringOrNone interns str, or returns -1 for an empty string (the
// image format's "none" marker; used for a UserDef type with no path).
func (s *State) internStringOrNone(str string) int {
	if str == "" {
		return -1
	}
	return s.internString(str)
}

func (s *State) internInt(v int64) int {
	return s.Atoms.Insert(atom.KindConst, &atom.ConstItem{Kind: atom.ConstInt, IntVal: v}, true)
}

func (s *State) internFloat(v float64) int {
	return s.Atoms.Insert(atom.KindConst, &atom.ConstItem{Kind: atom.ConstFloat, FloatVal: v}, true)
}

func (s *State) internBool(v bool) int {
	return s.Atoms.Insert(atom.KindConst, &atom.ConstItem{Kind: atom.ConstBool, BoolVal: v}, true)
}

func (s *State) internStringConst(str string) int {
	strIdx := s.internString(str)
	return s.Atoms.Insert(atom.KindConst, &atom.ConstItem{Kind: atom.ConstString, StringIdx: strIdx}, true)
}

func (s *State) internNil() int {
	return s.Atoms.Insert(atom.KindConst, &atom.ConstItem{Kind: atom.ConstNil}, true)
}

// internType interns a types.TypeDesc as an atom.TypeItem, returning its
// index. Array dimensions are baked directly into the Primitive/UserDef
// TypeItem rather than wrapped in a separate TypeArray item, since every
// TypeDesc variant already carries its own Dims.
func (s *State) internType(desc types.TypeDesc) int {
	switch t := desc.(type) {
	case *types.PrimitiveType:
		return s.Atoms.Insert(atom.KindType, &atom.TypeItem{
			Kind: atom.TypePrimitive,
			Dims: t.Dims(),
			Prim: primByte(t.Kind),
		}, true)

	case *types.UserDefType:
		return s.Atoms.Insert(atom.KindType, &atom.TypeItem{
			Kind:    atom.TypeUserDef,
			Dims:    t.Dims(),
			PathIdx: s.internStringOrNone(t.Path),
			NameIdx: s.internString(t.Name),
		}, true)

	case *types.ProtoType:
		return s.Atoms.Insert(atom.KindType, &atom.TypeItem{
			Kind:     atom.TypeProto,
			ProtoIdx: s.internProto(t),
		}, true)

	case *types.PkgPathType:
		return s.Atoms.Insert(atom.KindType, &atom.TypeItem{
			Kind:    atom.TypePkgPath,
			PathIdx: s.internString(t.Path),
		}, true)

	default:
		// Any falls back to a primitive-Any TypeItem; nothing else reaches here.
		return s.Atoms.Insert(atom.KindType, &atom.TypeItem{Kind: atom.TypePrimitive, Prim: primAny}, true)
	}
}

// internTypeList interns an ordered list of TypeDescs as an atom.TypeListItem.
func (s *State) internTypeList(descs []types.TypeDesc) int {
	idxs := make([]int, len(descs))
	for i, d := range descs {
		idxs[i] = s.internType(d)
	}
	return s.Atoms.Insert(atom.KindTypeList, &atom.TypeListItem{Indices: idxs}, true)
}

// internNameList interns an ordered list of type names (e.g. a class's
// `with` trait list) as a TypeList of UserDefType indices.
func (s *State) internNameList(names []string) int {
	if len(names) == 0 {
		return -1
	}
	descs := make([]types.TypeDesc, len(names))
	for i, n := range names {
		descs[i] = types.NewUserDef("", n, 0)
	}
	return s.internTypeList(descs)
}

func (s *State) internProto(p *types.ProtoType) int {
	return s.Atoms.Insert(atom.KindProto, &atom.ProtoItem{
		ReturnsIdx: s.internTypeList(p.Returns),
		ParamsIdx:  s.internTypeList(p.Params),
	}, true)
}

func accessFlags(pub bool, isConst bool) int {
	flags := 0
	if !pub {
		flags |= atom.AccessPrivate
	}
	if isConst {
		flags |= atom.AccessConst
	}
	return flags
}
