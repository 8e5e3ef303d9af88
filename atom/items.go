package atom

import "strconv"

// StringItem interns a Go string.
type StringItem struct {
	Value string
}

func (s *StringItem) Hash() uint64 { return hashString(s.Value) }
func (s *StringItem) Equal(other Item) bool {
	o, ok := other.(*StringItem)
	return ok && o.Value == s.Value
}

// TypeKind discriminates a TypeItem's on-disk shape, matching klc.h's
// anonymous-union'd TypeItem variants.
type TypeKind int

const (
	TypePrimitive TypeKind = iota
	TypeUserDef
	TypeProto
	TypeArray
	TypePkgPath
)

// TypeItem is the interned on-disk form of a types.TypeDesc: a scalar kind
// tag plus whichever of its fields that kind uses, referencing other atoms
// by index rather than embedding them.
type TypeItem struct {
	Kind    TypeKind
	Dims    int
	Prim    byte   // valid when Kind == TypePrimitive
	PathIdx int    // valid when Kind == TypeUserDef: -1 means current module
	NameIdx int    // valid when Kind == TypeUserDef
	ProtoIdx int   // valid when Kind == TypeProto
	ElemIdx int    // valid when Kind == TypeArray
}

func (t *TypeItem) Hash() uint64 {
	h := hashString(strconv.Itoa(int(t.Kind)) + ":" + strconv.Itoa(t.Dims))
	switch t.Kind {
	case TypePrimitive:
		h = mix(h, uint64(t.Prim))
	case TypeUserDef:
		h = mix(h, mix(uint64(t.PathIdx+1), uint64(t.NameIdx)))
	case TypeProto:
		h = mix(h, uint64(t.ProtoIdx))
	case TypeArray:
		h = mix(h, uint64(t.ElemIdx))
	}
	return h
}

func (t *TypeItem) Equal(other Item) bool {
	o, ok := other.(*TypeItem)
	if !ok || o.Kind != t.Kind || o.Dims != t.Dims {
		return false
	}
	switch t.Kind {
	case TypePrimitive:
		return o.Prim == t.Prim
	case TypeUserDef:
		return o.PathIdx == t.PathIdx && o.NameIdx == t.NameIdx
	case TypeProto:
		return o.ProtoIdx == t.ProtoIdx
	case TypeArray:
		return o.ElemIdx == t.ElemIdx
	default:
		return true
	}
}

// TypeListItem interns an ordered list of TypeItem indices (used for proto
// params/returns and for a class's trait list).
type TypeListItem struct {
	Indices []int
}

func (l *TypeListItem) Hash() uint64 {
	h := uint64(1469598103934665603)
	for _, i := range l.Indices {
		h = mix(h, uint64(i+1))
	}
	return h
}

func (l *TypeListItem) Equal(other Item) bool {
	o, ok := other.(*TypeListItem)
	if !ok || len(o.Indices) != len(l.Indices) {
		return false
	}
	for i := range l.Indices {
		if o.Indices[i] != l.Indices[i] {
			return false
		}
	}
	return true
}

// ProtoItem references a TypeList for returns and a TypeList for params.
type ProtoItem struct {
	ReturnsIdx int
	ParamsIdx  int
}

func (p *ProtoItem) Hash() uint64 {
	return mix(uint64(p.ReturnsIdx+1), uint64(p.ParamsIdx+1))
}

func (p *ProtoItem) Equal(other Item) bool {
	o, ok := other.(*ProtoItem)
	return ok && o.ReturnsIdx == p.ReturnsIdx && o.ParamsIdx == p.ParamsIdx
}

// ConstKind discriminates a ConstItem's payload.
type ConstKind int

const (
	ConstInt ConstKind = iota + 1
	ConstFloat
	ConstBool
	ConstString
	ConstNil
)

// ConstItem is an interned literal constant.
type ConstItem struct {
	Kind      ConstKind
	IntVal    int64
	FloatVal  float64
	BoolVal   bool
	StringIdx int // valid when Kind == ConstString
}

func (c *ConstItem) Hash() uint64 {
	switch c.Kind {
	case ConstInt:
		return mix(uint64(c.Kind), uint64(c.IntVal))
	case ConstFloat:
		return mix(uint64(c.Kind), hashString(strconv.FormatFloat(c.FloatVal, 'g', -1, 64)))
	case ConstBool:
		v := uint64(0)
		if c.BoolVal {
			v = 1
		}
		return mix(uint64(c.Kind), v)
	case ConstString:
		return mix(uint64(c.Kind), uint64(c.StringIdx))
	}
	return uint64(c.Kind)
}

func (c *ConstItem) Equal(other Item) bool {
	o, ok := other.(*ConstItem)
	if !ok || o.Kind != c.Kind {
		return false
	}
	switch c.Kind {
	case ConstInt:
		return o.IntVal == c.IntVal
	case ConstFloat:
		return o.FloatVal == c.FloatVal
	case ConstBool:
		return o.BoolVal == c.BoolVal
	case ConstString:
		return o.StringIdx == c.StringIdx
	}
	return true
}

// Access flags, matching klc.h's ACCESS_* bitmask.
const (
	AccessPublic  = 0
	AccessPrivate = 1 << 0
	AccessConst   = 1 << 1
)

// VarItem is an append-only module/global variable record.
type VarItem struct {
	NameIdx int
	TypeIdx int
	Flags   int
}

// FuncItem is an append-only top-level function record.
type FuncItem struct {
	NameIdx  int
	ProtoIdx int
	Access   int
	Locvars  int
	CodeIdx  int
}

// CodeItem is an append-only raw bytecode blob.
type CodeItem struct {
	Bytes []byte
}

// ClassItem is an append-only class record: its own name/type index, access,
// its super type index (-1 if none), and a TypeList index of traits (-1 if none).
type ClassItem struct {
	ClassIdx  int
	Access    int
	SuperIdx  int
	TraitsIdx int
}

// FieldItem is an append-only class field record.
type FieldItem struct {
	ClassIdx int
	NameIdx  int
	TypeIdx  int
	Access   int
}

// MethodItem is an append-only class method record.
type MethodItem struct {
	ClassIdx int
	NameIdx  int
	ProtoIdx int
	Access   int
	Locvars  int
	CodeIdx  int
}

// TraitItem is an append-only trait record: its own type index, access, and
// a TypeList index of traits it itself mixes in.
type TraitItem struct {
	ClassIdx  int
	Access    int
	TraitsIdx int
}

// IMethodItem is an append-only trait interface-method (prototype only, no code).
type IMethodItem struct {
	ClassIdx int
	NameIdx  int
	ProtoIdx int
	Access   int
}

// LocalVarFlag discriminates whether a LocalVarItem belongs to a function or a method.
const (
	LocalVarFunc   = 1
	LocalVarMethod = 2
)

// LocalVarItem is an append-only debug record binding a local slot to a
// name, declared type, and owning function/method.
type LocalVarItem struct {
	NameIdx int
	TypeIdx int
	Pos     int
	Flags   int
	OwnerIdx int
}
