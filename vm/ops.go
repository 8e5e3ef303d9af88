package vm

import (
	"fmt"

	"github.com/fangguanya/koala-lang/object"
)

// owningModule implements GETM: every receiver kind knows which module it
// was defined in.
func owningModule(v object.Value) object.Value {
	switch x := v.(type) {
	case *object.Module:
		return x
	case *object.Class:
		return x.Owner
	case *object.Trait:
		return x.Owner
	case *object.Instance:
		return x.Class.Owner
	case *superInstance:
		return x.from.Owner
	default:
		return &object.Nil{}
	}
}

// getField implements GETFIELD: field reads are only meaningful against a
// Module (its top-level vars) or an Instance (its own + inherited slots).
func getField(recv object.Value, name string) (object.Value, error) {
	switch x := recv.(type) {
	case *object.Module:
		if v, ok := x.Fields[name]; ok {
			return v, nil
		}
		return &object.Nil{}, nil
	case *object.Instance:
		if v, ok := x.Fields[name]; ok {
			return v, nil
		}
		return &object.Nil{}, nil
	case *superInstance:
		return getField(x.Instance, name)
	default:
		return nil, fmt.Errorf("vm: cannot read field %q on %s", name, recv.Type())
	}
}

// setField implements SETFIELD, mirroring getField's receiver kinds.
func setField(recv object.Value, name string, val object.Value) error {
	switch x := recv.(type) {
	case *object.Module:
		x.Fields[name] = val
		return nil
	case *object.Instance:
		x.Fields[name] = val
		return nil
	case *superInstance:
		return setField(x.Instance, name, val)
	default:
		return fmt.Errorf("vm: cannot set field %q on %s", name, recv.Type())
	}
}

// dispatchCall implements CALL: resolve name against recv's own kind
// (module-level func, or method-resolution-order lookup for a class
// instance/class/trait value) and run it, pushing results back onto the
// routine's stack. `__init__` is looked up only in the receiver's own
// class, per spec.md §4.6 ("never inherited").
func (r *Routine) dispatchCall(recv object.Value, name string, args []object.Value) error {
	switch x := recv.(type) {
	case *object.Module:
		if fn, ok := x.Funcs[name]; ok {
			return r.invoke(fn, x, args)
		}
		if x.Path == BuiltinModulePath {
			if fn := object.GetModuleBuiltin(name); fn != nil {
				v, err := fn.Fn(x, args)
				if err != nil {
					return err
				}
				return r.push(v)
			}
		}
		return fmt.Errorf("vm: module %s has no function %q", x.Path, name)

	case *object.Instance:
		fn, owner := resolveMethod(x.Class, name)
		if fn == nil {
			return fmt.Errorf("vm: %s has no method %q", x.Class.Name, name)
		}
		return r.invoke(fn, substituteReceiver(x, owner), args)

	case *superInstance:
		fn, owner := resolveMethod(x.from, name)
		if fn == nil {
			return fmt.Errorf("vm: %s has no method %q", x.from.Name, name)
		}
		return r.invoke(fn, substituteReceiver(x.Instance, owner), args)

	case *object.Class:
		fn, owner := resolveMethod(x, name)
		if fn == nil {
			return fmt.Errorf("vm: class %s has no method %q", x.Name, name)
		}
		return r.invoke(fn, substituteReceiver(x, owner), args)

	case *object.Trait:
		fn := x.ResolveMethod(name)
		if fn == nil {
			return fmt.Errorf("vm: trait %s has no method %q", x.Name, name)
		}
		return r.invoke(fn, x, args)

	case *object.Array:
		return r.dispatchArray(x, name, args)

	default:
		return fmt.Errorf("vm: cannot call %q on %s", name, recv.Type())
	}
}

// resolveCallable finds the KFunc/receiver pair a CALL against recv/name
// would dispatch to, without running it — GO uses this to hand the target
// off to the scheduler instead of invoking it on the current Routine.
func resolveCallable(recv object.Value, name string) (*object.KFunc, object.Value, error) {
	switch x := recv.(type) {
	case *object.Module:
		if fn, ok := x.Funcs[name]; ok {
			return fn, x, nil
		}
		return nil, nil, fmt.Errorf("vm: module %s has no function %q", x.Path, name)

	case *object.Instance:
		fn, owner := resolveMethod(x.Class, name)
		if fn == nil {
			return nil, nil, fmt.Errorf("vm: %s has no method %q", x.Class.Name, name)
		}
		return fn, substituteReceiver(x, owner), nil

	case *superInstance:
		fn, owner := resolveMethod(x.from, name)
		if fn == nil {
			return nil, nil, fmt.Errorf("vm: %s has no method %q", x.from.Name, name)
		}
		return fn, substituteReceiver(x.Instance, owner), nil

	case *object.Class:
		fn, owner := resolveMethod(x, name)
		if fn == nil {
			return nil, nil, fmt.Errorf("vm: class %s has no method %q", x.Name, name)
		}
		return fn, substituteReceiver(x, owner), nil

	case *object.Trait:
		fn := x.ResolveMethod(name)
		if fn == nil {
			return nil, nil, fmt.Errorf("vm: trait %s has no method %q", x.Name, name)
		}
		return fn, x, nil

	default:
		return nil, nil, fmt.Errorf("vm: cannot spawn %q on %s", name, recv.Type())
	}
}

// resolveMethod walks recv's super-chain (spec.md §4.6): the first class in
// the chain whose own table (or mixed-in traits) defines m wins, and that
// class is returned as the new receiver "owner" layer so `self` inside an
// inherited method resolves fields/further calls against the right layer.
// `__init__` is looked up in c alone.
func resolveMethod(c *object.Class, name string) (*object.KFunc, *object.Class) {
	if name == "__init__" {
		if m, ok := c.Methods[name]; ok {
			return m, c
		}
		return nil, nil
	}
	for cur := c; cur != nil; cur = cur.Super {
		if m, ok := cur.Methods[name]; ok {
			return m, cur
		}
		for _, t := range cur.Traits {
			if m := t.ResolveMethod(name); m != nil {
				return m, cur
			}
		}
	}
	return nil, nil
}

// substituteReceiver implements the "receiver substitution when owner
// differs" rule: the Instance/Class value passed as `self` is unchanged
// (fields always live on the Instance, never per-layer), but KFunc.Class
// on the resolved method already records which layer owns it. SUPER reads
// that layer from the running KFunc.Class, so a `super` call inside an
// inherited method starts one layer above the method's owner.
func substituteReceiver(recv object.Value, _ *object.Class) object.Value {
	return recv
}

// invoke runs fn to completion with receiver/args on this same Routine,
// leaving any pushed return values on the stack for the caller to see (RET
// leaves them; invoke itself pushes nothing extra).
func (r *Routine) invoke(fn *object.KFunc, receiver object.Value, args []object.Value) error {
	if fn.Code == nil {
		return fmt.Errorf("vm: %s has no compiled body", fn.Name)
	}
	if err := r.pushFrame(NewFrame(fn, receiver, args)); err != nil {
		return err
	}
	return r.run(len(r.frames) - 1)
}

// construct implements NEW: modVal is the Module or Class reference popped
// from the stack, name is the class to instantiate. `__init__` runs against
// the freshly-seeded Instance if the class itself has one; since __init__
// is never inherited, only the exact class named by NEW is checked, not its
// superclasses.
func (r *Routine) construct(modVal object.Value, name string, args []object.Value) (object.Value, error) {
	mod, ok := modVal.(*object.Module)
	if !ok {
		return nil, fmt.Errorf("vm: NEW requires a module receiver, got %s", modVal.Type())
	}
	if mod.Path == BuiltinModulePath && name == "Array" {
		elems := make([]object.Value, len(args))
		copy(elems, args)
		return &object.Array{Elements: elems}, nil
	}
	class, ok := mod.Classes[name]
	if !ok {
		return nil, fmt.Errorf("vm: module %s has no class %q", mod.Path, name)
	}
	inst := object.NewInstance(class)
	if ctor, ok := class.Methods["__init__"]; ok {
		if err := r.invoke(ctor, inst, args); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// superOf implements SUPER: given the receiver currently on top of the
// stack, push back the value through which a following CALL should start
// method resolution one layer up the super-chain.
func superOf(v object.Value) (object.Value, error) {
	switch x := v.(type) {
	case *object.Instance:
		if x.Class.Super == nil {
			return nil, fmt.Errorf("vm: %s has no superclass", x.Class.Name)
		}
		return &superInstance{Instance: x, from: x.Class.Super}, nil
	case *superInstance:
		if x.from.Super == nil {
			return nil, fmt.Errorf("vm: %s has no superclass", x.from.Name)
		}
		return &superInstance{Instance: x.Instance, from: x.from.Super}, nil
	default:
		return nil, fmt.Errorf("vm: SUPER requires an instance receiver, got %s", v.Type())
	}
}

// superInstance wraps an Instance so the next CALL resolves starting at
// `from` (an ancestor class) instead of the instance's own dynamic class,
// while field access still reaches the same underlying Instance.
type superInstance struct {
	*object.Instance
	from *object.Class
}

// dispatchArray routes an Array receiver's method call to the builtin
// table in object/builtins.go.
func (r *Routine) dispatchArray(arr *object.Array, name string, args []object.Value) error {
	fn := object.GetArrayBuiltin(name)
	if fn == nil {
		return fmt.Errorf("vm: Array has no method %q", name)
	}
	v, err := fn.Fn(arr, args)
	if err != nil {
		return err
	}
	return r.push(v)
}
