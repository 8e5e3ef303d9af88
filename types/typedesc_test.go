package types

import "testing"

func TestPrimitiveTypeString(t *testing.T) {
	tests := []struct {
		kind Primitive
		dims int
		want string
	}{
		{Int, 0, "int"},
		{Float, 0, "float"},
		{Bool, 0, "bool"},
		{StringKind, 1, "[]string"},
		{Any, 2, "[][]any"},
	}

	for _, tt := range tests {
		got := NewPrimitive(tt.kind, tt.dims).String()
		if got != tt.want {
			t.Errorf("NewPrimitive(%v, %d).String() = %q, want %q", tt.kind, tt.dims, got, tt.want)
		}
	}
}

func TestUserDefTypeString(t *testing.T) {
	local := NewUserDef("", "Animal", 0)
	if got := local.String(); got != "Animal" {
		t.Errorf("local UserDefType.String() = %q, want %q", got, "Animal")
	}

	qualified := NewUserDef("zoo", "Animal", 1)
	if got := qualified.String(); got != "[]zoo.Animal" {
		t.Errorf("qualified UserDefType.String() = %q, want %q", got, "[]zoo.Animal")
	}
}

func TestProtoTypeString(t *testing.T) {
	p := NewProto(
		[]TypeDesc{NewPrimitive(Int, 0), NewPrimitive(StringKind, 0)},
		[]TypeDesc{NewPrimitive(Bool, 0)},
		false,
	)
	want := "(int,string)bool"
	if got := p.String(); got != want {
		t.Errorf("ProtoType.String() = %q, want %q", got, want)
	}
}

func TestProtoTypeStringVarargsAndMultiReturn(t *testing.T) {
	p := NewProto(
		[]TypeDesc{NewPrimitive(Int, 0), NewPrimitive(StringKind, 1)},
		[]TypeDesc{NewPrimitive(Int, 0), NewPrimitive(Bool, 0)},
		true,
	)
	want := "(int,...[]string)(int,bool)"
	if got := p.String(); got != want {
		t.Errorf("ProtoType.String() = %q, want %q", got, want)
	}
}

func TestProtoTypeDimsAlwaysZero(t *testing.T) {
	p := NewProto(nil, nil, false)
	if p.Dims() != 0 {
		t.Fatalf("expected ProtoType.Dims() == 0, got %d", p.Dims())
	}
}

func TestPkgPathTypeString(t *testing.T) {
	p := NewPkgPath("net/http")
	if got := p.String(); got != "package:net/http" {
		t.Errorf("PkgPathType.String() = %q, want %q", got, "package:net/http")
	}
	if p.Dims() != 0 {
		t.Fatalf("expected PkgPathType.Dims() == 0")
	}
}

func TestCheckAnyUnifiesWithEverything(t *testing.T) {
	any0 := NewPrimitive(Any, 0)
	if !Check(any0, NewPrimitive(Int, 0)) {
		t.Fatal("expected Any to unify with int")
	}
	if !Check(NewUserDef("", "Cat", 0), any0) {
		t.Fatal("expected Any to unify with a user-defined type")
	}
}

func TestCheckPrimitiveMatchesKindAndDims(t *testing.T) {
	if !Check(NewPrimitive(Int, 1), NewPrimitive(Int, 1)) {
		t.Fatal("expected identical primitive types to check equal")
	}
	if Check(NewPrimitive(Int, 0), NewPrimitive(Float, 0)) {
		t.Fatal("expected different primitive kinds to not check equal")
	}
	if Check(NewPrimitive(Int, 0), NewPrimitive(Int, 1)) {
		t.Fatal("expected different dims to not check equal")
	}
}

func TestCheckUserDefTreatsEmptyPathAsCurrentModule(t *testing.T) {
	fromDecl := NewUserDef("", "Animal", 0)
	fromSymbol := NewUserDef("zoo", "Animal", 0)

	if !Check(fromDecl, fromSymbol) {
		t.Fatal("expected an empty path to unify with a resolved module path")
	}
	if !Check(NewUserDef("zoo", "Animal", 0), NewUserDef("zoo", "Animal", 0)) {
		t.Fatal("expected identical qualified UserDefTypes to check equal")
	}
	if Check(NewUserDef("zoo", "Animal", 0), NewUserDef("aquarium", "Animal", 0)) {
		t.Fatal("expected different module paths to not check equal")
	}
	if Check(NewUserDef("", "Cat", 0), NewUserDef("", "Dog", 0)) {
		t.Fatal("expected different type names to not check equal")
	}
}

func TestCheckProtoTypeRequiresMatchingSignature(t *testing.T) {
	a := NewProto([]TypeDesc{NewPrimitive(Int, 0)}, []TypeDesc{NewPrimitive(Bool, 0)}, false)
	b := NewProto([]TypeDesc{NewPrimitive(Int, 0)}, []TypeDesc{NewPrimitive(Bool, 0)}, false)
	if !Check(a, b) {
		t.Fatal("expected identical ProtoTypes to check equal")
	}

	c := NewProto([]TypeDesc{NewPrimitive(Float, 0)}, []TypeDesc{NewPrimitive(Bool, 0)}, false)
	if Check(a, c) {
		t.Fatal("expected different parameter types to not check equal")
	}

	d := NewProto([]TypeDesc{NewPrimitive(Int, 0)}, []TypeDesc{NewPrimitive(Bool, 0)}, true)
	if Check(a, d) {
		t.Fatal("expected varargs mismatch to not check equal")
	}
}

func TestCheckMismatchedVariantsNeverEqual(t *testing.T) {
	if Check(NewPrimitive(Int, 0), NewUserDef("", "Int", 0)) {
		t.Fatal("expected a primitive and a user-defined type to never check equal")
	}
	if Check(NewPkgPath("a"), NewPkgPath("b")) {
		t.Fatal("expected different package paths to not check equal")
	}
}

func TestParsePrimitive(t *testing.T) {
	tests := []struct {
		name string
		want Primitive
		ok   bool
	}{
		{"int", Int, true},
		{"float", Float, true},
		{"bool", Bool, true},
		{"string", StringKind, true},
		{"any", Any, true},
		{"nope", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParsePrimitive(tt.name)
		if ok != tt.ok {
			t.Errorf("ParsePrimitive(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParsePrimitive(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFormatDims(t *testing.T) {
	if got := FormatDims(0); got != "" {
		t.Errorf("FormatDims(0) = %q, want empty string", got)
	}
	if got := FormatDims(3); got != "[][][]" {
		t.Errorf("FormatDims(3) = %q, want %q", got, "[][][]")
	}
}
