package object

import "testing"

func arr(vals ...int64) *Array {
	elems := make([]Value, len(vals))
	for i, v := range vals {
		elems[i] = &Int{Value: v}
	}
	return &Array{Elements: elems}
}

func TestArrayLength(t *testing.T) {
	fn := GetArrayBuiltin("length")
	if fn == nil {
		t.Fatal("expected a 'length' builtin")
	}
	v, err := fn.Fn(arr(1, 2, 3), nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got := v.(*Int).Value; got != 3 {
		t.Fatalf("expected length 3, got %d", got)
	}
}

func TestArrayGetSet(t *testing.T) {
	a := arr(10, 20, 30)

	get := GetArrayBuiltin("get")
	v, err := get.Fn(a, []Value{&Int{Value: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got := v.(*Int).Value; got != 20 {
		t.Fatalf("expected element 20, got %d", got)
	}

	set := GetArrayBuiltin("set")
	if _, err := set.Fn(a, []Value{&Int{Value: 1}, &Int{Value: 99}}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got := a.Elements[1].(*Int).Value; got != 99 {
		t.Fatalf("expected element 1 to become 99, got %d", got)
	}
}

func TestArrayGetOutOfRange(t *testing.T) {
	get := GetArrayBuiltin("get")
	if _, err := get.Fn(arr(1), []Value{&Int{Value: 5}}); err == nil {
		t.Fatal("expected an out-of-range error")
	}
}

func TestArrayPushReturnsNewArray(t *testing.T) {
	a := arr(1, 2)
	push := GetArrayBuiltin("push")

	v, err := push.Fn(a, []Value{&Int{Value: 3}})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	pushed := v.(*Array)
	if len(pushed.Elements) != 3 {
		t.Fatalf("expected 3 elements after push, got %d", len(pushed.Elements))
	}
	if len(a.Elements) != 2 {
		t.Fatalf("expected push to leave the original array untouched, got len %d", len(a.Elements))
	}
}

func TestArrayFirstLastRestEmpty(t *testing.T) {
	empty := &Array{}

	if v, _ := GetArrayBuiltin("first").Fn(empty, nil); v.Type() != NilType {
		t.Fatalf("expected first of empty array to be nil")
	}
	if v, _ := GetArrayBuiltin("last").Fn(empty, nil); v.Type() != NilType {
		t.Fatalf("expected last of empty array to be nil")
	}
	v, _ := GetArrayBuiltin("rest").Fn(empty, nil)
	if got := v.(*Array); len(got.Elements) != 0 {
		t.Fatalf("expected rest of empty array to be empty, got %d elements", len(got.Elements))
	}
}

func TestArrayFirstLastRestNonEmpty(t *testing.T) {
	a := arr(1, 2, 3)

	first, _ := GetArrayBuiltin("first").Fn(a, nil)
	if first.(*Int).Value != 1 {
		t.Fatalf("expected first to be 1")
	}
	last, _ := GetArrayBuiltin("last").Fn(a, nil)
	if last.(*Int).Value != 3 {
		t.Fatalf("expected last to be 3")
	}
	rest, _ := GetArrayBuiltin("rest").Fn(a, nil)
	restArr := rest.(*Array)
	if len(restArr.Elements) != 2 || restArr.Elements[0].(*Int).Value != 2 {
		t.Fatalf("expected rest to be [2, 3], got %v", restArr.Inspect())
	}
}

func TestArrayBuiltinRejectsNonArrayReceiver(t *testing.T) {
	if _, err := GetArrayBuiltin("length").Fn(&Int{Value: 1}, nil); err == nil {
		t.Fatal("expected an error for a non-Array receiver")
	}
}

func TestGetArrayBuiltinUnknownName(t *testing.T) {
	if fn := GetArrayBuiltin("nonexistent"); fn != nil {
		t.Fatal("expected nil for an unknown builtin name")
	}
}

func TestGetModuleBuiltinPrint(t *testing.T) {
	fn := GetModuleBuiltin("print")
	if fn == nil {
		t.Fatal("expected a 'print' builtin")
	}
	v, err := fn.Fn(nil, []Value{&Str{Value: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if v.Type() != NilType {
		t.Fatalf("expected print to return nil, got %s", v.Type())
	}
}
