package object

import "testing"

func TestStringHashKeyCachesAndIsStable(t *testing.T) {
	s := &Str{Value: "hello"}
	k1 := s.HashKey()
	k2 := s.HashKey()

	if k1 != k2 {
		t.Fatalf("expected repeated HashKey calls to return the same value")
	}
	if (&Str{Value: "hello"}).HashKey() != k1 {
		t.Fatalf("expected equal strings to hash the same")
	}
	if (&Str{Value: "world"}).HashKey() == k1 {
		t.Fatalf("expected different strings to hash differently")
	}
}

func TestIntBoolHashKey(t *testing.T) {
	if (&Int{Value: 5}).HashKey() != (&Int{Value: 5}).HashKey() {
		t.Fatalf("expected equal ints to hash the same")
	}
	if (&Bool{Value: true}).HashKey() == (&Bool{Value: false}).HashKey() {
		t.Fatalf("expected true/false to hash differently")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{&Nil{}, false},
		{&Bool{Value: false}, false},
		{&Bool{Value: true}, true},
		{&Int{Value: 0}, true},
		{&Str{Value: ""}, true},
	}

	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%s) = %v, want %v", tt.v.Inspect(), got, tt.want)
		}
	}
}

func TestClassResolveMethodWalksSuperAndTraits(t *testing.T) {
	base := NewClass("Animal", nil)
	speak := &KFunc{Name: "speak"}
	base.Methods["speak"] = speak

	trait := NewTrait("Named", nil)
	name := &KFunc{Name: "name"}
	trait.Methods["name"] = name

	derived := NewClass("Dog", nil)
	derived.Super = base
	derived.Traits = []*Trait{trait}

	if got := derived.ResolveMethod("speak"); got != speak {
		t.Fatalf("expected to resolve 'speak' through the superclass")
	}
	if got := derived.ResolveMethod("name"); got != name {
		t.Fatalf("expected to resolve 'name' through a mixed-in trait")
	}
	if got := derived.ResolveMethod("missing"); got != nil {
		t.Fatalf("expected nil for an undefined method, got %v", got)
	}
}

func TestClassResolveMethodOwnMethodWins(t *testing.T) {
	base := NewClass("Animal", nil)
	base.Methods["speak"] = &KFunc{Name: "base-speak"}

	derived := NewClass("Dog", nil)
	derived.Super = base
	own := &KFunc{Name: "dog-speak"}
	derived.Methods["speak"] = own

	if got := derived.ResolveMethod("speak"); got != own {
		t.Fatalf("expected the subclass's own method to win over the superclass's")
	}
}

func TestNewInstanceSeedsInheritedFieldDefaults(t *testing.T) {
	base := NewClass("Animal", nil)
	base.Fields["legs"] = &Int{Value: 4}

	derived := NewClass("Dog", nil)
	derived.Super = base
	derived.Fields["name"] = &Str{Value: ""}

	inst := NewInstance(derived)

	if v, ok := inst.Fields["legs"]; !ok || v.(*Int).Value != 4 {
		t.Fatalf("expected inherited field default 'legs' to be seeded, got %v", inst.Fields["legs"])
	}
	if _, ok := inst.Fields["name"]; !ok {
		t.Fatalf("expected own field default 'name' to be seeded")
	}
}

func TestNewInstanceOwnFieldShadowsInherited(t *testing.T) {
	base := NewClass("Animal", nil)
	base.Fields["legs"] = &Int{Value: 4}

	derived := NewClass("Spider", nil)
	derived.Super = base
	derived.Fields["legs"] = &Int{Value: 8}

	inst := NewInstance(derived)

	if got := inst.Fields["legs"].(*Int).Value; got != 8 {
		t.Fatalf("expected the subclass's own field default to shadow the superclass's, got %d", got)
	}
}

func TestModuleLoadedOnce(t *testing.T) {
	m := NewModule("demo")
	if m.Loaded() {
		t.Fatalf("expected a freshly created module to be unloaded")
	}
	m.MarkLoaded()
	if !m.Loaded() {
		t.Fatalf("expected MarkLoaded to flip Loaded() to true")
	}
}

func TestArrayInspect(t *testing.T) {
	a := &Array{Elements: []Value{&Int{Value: 1}, &Str{Value: "x"}}}
	want := "[1, x]"
	if got := a.Inspect(); got != want {
		t.Fatalf("Array.Inspect() = %q, want %q", got, want)
	}
}
