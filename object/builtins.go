package object

import "fmt"

// ArrayBuiltins backs the compiler's "builtin"."Array" pseudo-class
// convention (see compiler/emit.go): array literals, indexing, and for-each
// all compile to NEW/CALL against these methods rather than to dedicated
// opcodes. Methods are looked up through a named-table-plus-lookup registry
// of CFunc values, each operating on a receiver [Array].
var ArrayBuiltins = []struct {
	Name string
	Fn   *CFunc
}{
	{"length", &CFunc{Name: "length", Fn: arrayLength}},
	{"get", &CFunc{Name: "get", Fn: arrayGet}},
	{"set", &CFunc{Name: "set", Fn: arraySet}},
	{"push", &CFunc{Name: "push", Fn: arrayPush}},
	{"first", &CFunc{Name: "first", Fn: arrayFirst}},
	{"last", &CFunc{Name: "last", Fn: arrayLast}},
	{"rest", &CFunc{Name: "rest", Fn: arrayRest}},
}

// GetArrayBuiltin retrieves an Array method implementation by name, or nil
// if undefined.
func GetArrayBuiltin(name string) *CFunc {
	for _, def := range ArrayBuiltins {
		if def.Name == name {
			return def.Fn
		}
	}
	return nil
}

// ModuleBuiltins backs the "builtin" module's top-level functions — calls
// of the shape LOADM("builtin") + CALL(name, argc) that don't go through
// NEW.
var ModuleBuiltins = []struct {
	Name string
	Fn   *CFunc
}{
	{"print", &CFunc{Name: "print", Fn: builtinPrint}},
}

// GetModuleBuiltin retrieves a "builtin" module function by name, or nil if
// undefined.
func GetModuleBuiltin(name string) *CFunc {
	for _, def := range ModuleBuiltins {
		if def.Name == name {
			return def.Fn
		}
	}
	return nil
}

func arrayAsReceiver(receiver Value) (*Array, error) {
	arr, ok := receiver.(*Array)
	if !ok {
		return nil, fmt.Errorf("builtin: expected an Array receiver, got %s", receiver.Type())
	}
	return arr, nil
}

func arrayIndex(args []Value, pos int) (int, error) {
	if pos >= len(args) {
		return 0, fmt.Errorf("builtin: missing index argument")
	}
	i, ok := args[pos].(*Int)
	if !ok {
		return 0, fmt.Errorf("builtin: index must be an int, got %s", args[pos].Type())
	}
	return int(i.Value), nil
}

func arrayLength(receiver Value, _ []Value) (Value, error) {
	arr, err := arrayAsReceiver(receiver)
	if err != nil {
		return nil, err
	}
	return &Int{Value: int64(len(arr.Elements))}, nil
}

func arrayGet(receiver Value, args []Value) (Value, error) {
	arr, err := arrayAsReceiver(receiver)
	if err != nil {
		return nil, err
	}
	idx, err := arrayIndex(args, 0)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(arr.Elements) {
		return nil, fmt.Errorf("builtin: array index %d out of range", idx)
	}
	return arr.Elements[idx], nil
}

func arraySet(receiver Value, args []Value) (Value, error) {
	arr, err := arrayAsReceiver(receiver)
	if err != nil {
		return nil, err
	}
	idx, err := arrayIndex(args, 0)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(arr.Elements) || len(args) < 2 {
		return nil, fmt.Errorf("builtin: array index %d out of range", idx)
	}
	arr.Elements[idx] = args[1]
	return &Nil{}, nil
}

func arrayPush(receiver Value, args []Value) (Value, error) {
	arr, err := arrayAsReceiver(receiver)
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("builtin: push wants 1 argument, got %d", len(args))
	}
	elems := make([]Value, len(arr.Elements)+1)
	copy(elems, arr.Elements)
	elems[len(arr.Elements)] = args[0]
	return &Array{Elements: elems}, nil
}

func arrayFirst(receiver Value, _ []Value) (Value, error) {
	arr, err := arrayAsReceiver(receiver)
	if err != nil {
		return nil, err
	}
	if len(arr.Elements) == 0 {
		return &Nil{}, nil
	}
	return arr.Elements[0], nil
}

func arrayLast(receiver Value, _ []Value) (Value, error) {
	arr, err := arrayAsReceiver(receiver)
	if err != nil {
		return nil, err
	}
	if len(arr.Elements) == 0 {
		return &Nil{}, nil
	}
	return arr.Elements[len(arr.Elements)-1], nil
}

func arrayRest(receiver Value, _ []Value) (Value, error) {
	arr, err := arrayAsReceiver(receiver)
	if err != nil {
		return nil, err
	}
	if len(arr.Elements) == 0 {
		return &Array{Elements: nil}, nil
	}
	rest := make([]Value, len(arr.Elements)-1)
	copy(rest, arr.Elements[1:])
	return &Array{Elements: rest}, nil
}

func builtinPrint(_ Value, args []Value) (Value, error) {
	parts := make([]any, len(args))
	for i, a := range args {
		parts[i] = a.Inspect()
	}
	fmt.Println(parts...)
	return &Nil{}, nil
}
