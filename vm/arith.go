package vm

import (
	"fmt"

	"github.com/fangguanya/koala-lang/code"
	"github.com/fangguanya/koala-lang/object"
)

// binaryArith implements ADD/SUB/MUL/DIV/MOD. The compiler emits RHS before
// LHS (spec.md §4.4 "Binary: emit RHS first, then LHS, then the opcode"), so
// the left operand is on top of the stack and pops first: a is LHS, b is RHS,
// and subtraction/division/modulo compute a-b, a/b, a%b (code.go's doc
// comments). ADD additionally supports string concatenation when either
// operand is a Str.
func (r *Routine) binaryArith(op code.Opcode) error {
	a := r.pop()
	b := r.pop()

	if op == code.ADD {
		if as, ok := a.(*object.Str); ok {
			return r.push(&object.Str{Value: as.Value + stringOf(b)})
		}
		if bs, ok := b.(*object.Str); ok {
			return r.push(&object.Str{Value: stringOf(a) + bs.Value})
		}
	}

	af, aok := numberOf(a)
	bf, bok := numberOf(b)
	if !aok || !bok {
		return fmt.Errorf("vm: arithmetic requires numbers, got %s and %s", a.Type(), b.Type())
	}

	var result float64
	switch op {
	case code.ADD:
		result = af + bf
	case code.SUB:
		result = af - bf
	case code.MUL:
		result = af * bf
	case code.DIV:
		if bf == 0 {
			return fmt.Errorf("vm: division by zero")
		}
		result = af / bf
	case code.MOD:
		ai, aInt := a.(*object.Int)
		bi, bInt := b.(*object.Int)
		if !aInt || !bInt {
			return fmt.Errorf("vm: %% requires integer operands")
		}
		if bi.Value == 0 {
			return fmt.Errorf("vm: division by zero")
		}
		return r.push(&object.Int{Value: ai.Value % bi.Value})
	}

	_, aIsInt := a.(*object.Int)
	_, bIsInt := b.(*object.Int)
	if aIsInt && bIsInt && op != code.DIV {
		return r.push(&object.Int{Value: int64(result)})
	}
	return r.push(&object.Float{Value: result})
}

// compare implements GT/GE/LT/LE/EQ/NEQ. Like binaryArith, a is LHS (pops
// first) and b is RHS, matching the compiler's RHS-before-LHS emission
// order. EQ/NEQ fall back to reference/structural equality for non-numeric
// operands (e.g. Nil, Bool, Str).
func (r *Routine) compare(op code.Opcode) error {
	a := r.pop()
	b := r.pop()

	if af, aok := numberOf(a); aok {
		if bf, bok := numberOf(b); bok {
			var res bool
			switch op {
			case code.GT:
				res = af > bf
			case code.GE:
				res = af >= bf
			case code.LT:
				res = af < bf
			case code.LE:
				res = af <= bf
			case code.EQ:
				res = af == bf
			case code.NEQ:
				res = af != bf
			}
			return r.push(&object.Bool{Value: res})
		}
	}

	switch op {
	case code.EQ:
		return r.push(&object.Bool{Value: valuesEqual(a, b)})
	case code.NEQ:
		return r.push(&object.Bool{Value: !valuesEqual(a, b)})
	default:
		return fmt.Errorf("vm: %s is not ordered", a.Type())
	}
}

func valuesEqual(a, b object.Value) bool {
	switch av := a.(type) {
	case *object.Nil:
		_, ok := b.(*object.Nil)
		return ok
	case *object.Bool:
		bv, ok := b.(*object.Bool)
		return ok && av.Value == bv.Value
	case *object.Str:
		bv, ok := b.(*object.Str)
		return ok && av.Value == bv.Value
	default:
		return a == b
	}
}

func numberOf(v object.Value) (float64, bool) {
	switch x := v.(type) {
	case *object.Int:
		return float64(x.Value), true
	case *object.Float:
		return x.Value, true
	default:
		return 0, false
	}
}

func stringOf(v object.Value) string {
	if s, ok := v.(*object.Str); ok {
		return s.Value
	}
	return v.Inspect()
}

func (r *Routine) unaryMinus() error {
	v := r.pop()
	switch x := v.(type) {
	case *object.Int:
		return r.push(&object.Int{Value: -x.Value})
	case *object.Float:
		return r.push(&object.Float{Value: -x.Value})
	default:
		return fmt.Errorf("vm: unary - requires a number, got %s", v.Type())
	}
}

func (r *Routine) unaryBnot() error {
	v := r.pop()
	i, ok := v.(*object.Int)
	if !ok {
		return fmt.Errorf("vm: unary ~ requires an int, got %s", v.Type())
	}
	return r.push(&object.Int{Value: ^i.Value})
}
