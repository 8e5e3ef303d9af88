// Package object defines the runtime value system the Koala virtual machine
// operates on.
//
// Every value the VM pushes to its stack implements [Value], a small
// tagged-union interface — one concrete Go type per variant rather than one
// struct with an enum discriminator. Koala's variants are narrower than a
// general scripting value set: Int, Float, Bool, Str, Nil, plus the
// reference types a class-based language needs at runtime — Module, Class,
// Trait, Instance, and the two callable shapes (KFunc, a compiled body
// bound to its owning module/class; CFunc, a Go-native builtin).
package object

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/fangguanya/koala-lang/atom"
	"github.com/fangguanya/koala-lang/code"
)

//nolint:revive
const (
	IntType      = "INT"
	FloatType    = "FLOAT"
	BoolType     = "BOOL"
	StringType   = "STRING"
	NilType      = "NIL"
	ArrayType    = "ARRAY"
	ModuleType   = "MODULE"
	ClassType    = "CLASS"
	TraitType    = "TRAIT"
	InstanceType = "INSTANCE"
	KFuncType    = "KFUNC"
	CFuncType    = "CFUNC"
	ErrorType    = "ERROR"
)

// Type identifies a Value's runtime kind.
type Type string

// Value is the interface every runtime value implements.
type Value interface {
	Type() Type
	Inspect() string
}

// Int is a Koala integer value.
type Int struct{ Value int64 }

func (i *Int) Type() Type      { return IntType }
func (i *Int) Inspect() string { return strconv.FormatInt(i.Value, 10) }

// Float is a Koala floating-point value.
type Float struct{ Value float64 }

func (f *Float) Type() Type      { return FloatType }
func (f *Float) Inspect() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// Bool is a Koala boolean value.
type Bool struct{ Value bool }

func (b *Bool) Type() Type      { return BoolType }
func (b *Bool) Inspect() string { return strconv.FormatBool(b.Value) }

// Str is a Koala string value; hashKey caches its hash-map key lazily.
type Str struct {
	Value   string
	hashKey *HashKey
}

func (s *Str) Type() Type      { return StringType }
func (s *Str) Inspect() string { return s.Value }

// Nil is the sole Koala nil value.
type Nil struct{}

func (n *Nil) Type() Type      { return NilType }
func (n *Nil) Inspect() string { return "nil" }

// HashKey identifies a hashable Value for use as a map key inside the VM's
// own bookkeeping (not exposed as a Koala-level hash type — spec.md's
// surface language has no map literal, only arrays).
type HashKey struct {
	Type  Type
	Value uint64
}

func (b *Bool) HashKey() HashKey {
	v := uint64(0)
	if b.Value {
		v = 1
	}
	return HashKey{Type: b.Type(), Value: v}
}

func (i *Int) HashKey() HashKey {
	//nolint:gosec
	return HashKey{Type: i.Type(), Value: uint64(i.Value)}
}

func (s *Str) HashKey() HashKey {
	if s.hashKey != nil {
		return *s.hashKey
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s.Value))
	key := HashKey{Type: s.Type(), Value: h.Sum64()}
	s.hashKey = &key
	return key
}

// Array is the backing representation for the builtin "Array" class the
// compiler targets for array literals, indexing, and for-each iteration
// (NEW/CALL against a pseudo-module named "builtin" — see compiler/emit.go).
type Array struct {
	Elements []Value
}

func (a *Array) Type() Type { return ArrayType }
func (a *Array) Inspect() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Error is a runtime error value, used by the VM's own internal reporting
// and by builtins that need to signal a failure without a panic.
type Error struct{ Message string }

func (e *Error) Type() Type      { return ErrorType }
func (e *Error) Inspect() string { return "error: " + e.Message }

// Module is a loaded Koala module: a bag of top-level variables and
// functions, keyed by name, plus the compiled "__init__" body (if any) that
// populates it on first load. Modeling a module itself as an addressable
// runtime object lets module-level variable reads/writes reuse the ordinary
// GETFIELD/SETFIELD opcodes instead of needing dedicated GETGLOBAL/
// SETGLOBAL instructions (this opcode set has none).
type Module struct {
	Path    string
	Fields  map[string]Value
	Classes map[string]*Class
	Traits  map[string]*Trait
	Funcs   map[string]*KFunc
	Init    *KFunc
	Atoms   *atom.Table // the interned constant/type pool this module's code was compiled against
	loaded  bool
}

func NewModule(path string) *Module {
	return &Module{
		Path:    path,
		Fields:  make(map[string]Value),
		Classes: make(map[string]*Class),
		Traits:  make(map[string]*Trait),
		Funcs:   make(map[string]*KFunc),
	}
}

func (m *Module) Type() Type      { return ModuleType }
func (m *Module) Inspect() string { return "module " + m.Path }

// Loaded reports whether this module's __init__ has already run, so the
// loader can enforce spec.md's "initializers run once, on first load".
func (m *Module) Loaded() bool { return m.loaded }
func (m *Module) MarkLoaded()  { m.loaded = true }

// Class is a runtime class: its own methods/field defaults plus an optional
// super link and an ordered list of mixed-in traits, mirroring the
// single-superclass + ordered-trait-mixin model spec.md §3 describes.
type Class struct {
	Name    string
	Owner   *Module
	Super   *Class
	Traits  []*Trait
	Fields  map[string]Value // field name -> zero value, copied into each new Instance
	Methods map[string]*KFunc
}

func NewClass(name string, owner *Module) *Class {
	return &Class{Name: name, Owner: owner, Fields: make(map[string]Value), Methods: make(map[string]*KFunc)}
}

func (c *Class) Type() Type      { return ClassType }
func (c *Class) Inspect() string { return "class " + c.Name }

// ResolveMethod walks this class's own methods, then its mixed-in traits,
// then its superclass chain — the method-resolution order spec.md §4.4's
// `super` dispatch and ordinary calls both rely on.
func (c *Class) ResolveMethod(name string) *KFunc {
	for cur := c; cur != nil; cur = cur.Super {
		if m, ok := cur.Methods[name]; ok {
			return m
		}
		for _, t := range cur.Traits {
			if m := t.ResolveMethod(name); m != nil {
				return m
			}
		}
	}
	return nil
}

// Trait is a runtime trait: concrete methods plus abstract prototypes
// (prototypes carry no code and exist only for static checking, so they are
// not modeled at runtime).
type Trait struct {
	Name    string
	Owner   *Module
	Traits  []*Trait
	Methods map[string]*KFunc
}

func NewTrait(name string, owner *Module) *Trait {
	return &Trait{Name: name, Owner: owner, Methods: make(map[string]*KFunc)}
}

func (t *Trait) Type() Type      { return TraitType }
func (t *Trait) Inspect() string { return "trait " + t.Name }

func (t *Trait) ResolveMethod(name string) *KFunc {
	if m, ok := t.Methods[name]; ok {
		return m
	}
	for _, sub := range t.Traits {
		if m := sub.ResolveMethod(name); m != nil {
			return m
		}
	}
	return nil
}

// Instance is a live object of some Class: its own field slots, seeded from
// the class's field defaults at construction (NEW), then mutated by
// GETFIELD/SETFIELD like any other receiver.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

func NewInstance(class *Class) *Instance {
	inst := &Instance{Class: class, Fields: make(map[string]Value, len(class.Fields))}
	for cur := class; cur != nil; cur = cur.Super {
		for k, v := range cur.Fields {
			if _, exists := inst.Fields[k]; !exists {
				inst.Fields[k] = v
			}
		}
	}
	return inst
}

func (i *Instance) Type() Type      { return InstanceType }
func (i *Instance) Inspect() string { return fmt.Sprintf("%s instance", i.Class.Name) }

// KFunc is a compiled function or method body: its bytecode, local-slot
// count, and (for a method) the class/trait it belongs to, bound to the
// module it was compiled in so the VM can resolve LOADM/GETFIELD targets
// that reference module-level state while this body runs.
type KFunc struct {
	Name      string
	Owner     *Module
	Class     *Class // non-nil for a method
	Code      code.Instructions
	NumLocals int
	NumParams int
}

func (f *KFunc) Type() Type      { return KFuncType }
func (f *KFunc) Inspect() string { return fmt.Sprintf("func %s[%p]", f.Name, f) }

// CFuncImpl is a Go-native builtin implementation: it receives the already-
// evaluated receiver and argument Values and returns a result Value.
type CFuncImpl func(receiver Value, args []Value) (Value, error)

// CFunc wraps a Go-native builtin (e.g. the "Array" pseudo-class's
// length/get/set methods) so it can sit in the same method-dispatch tables
// as a KFunc.
type CFunc struct {
	Name string
	Fn   CFuncImpl
}

func (c *CFunc) Type() Type      { return CFuncType }
func (c *CFunc) Inspect() string { return "builtin " + c.Name }

// Truthy reports whether v is truthy for JUMP_TRUE/JUMP_FALSE and the `!`
// operator: nil and false are falsy, everything else (including 0 and "")
// is truthy, matching spec.md §4.6's "only nil and false are falsy" rule.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case *Nil:
		return false
	case *Bool:
		return x.Value
	default:
		return true
	}
}
