package vm

import (
	"github.com/fangguanya/koala-lang/code"
	"github.com/fangguanya/koala-lang/object"
)

// Frame is one call's execution context: its code object, program counter,
// argument count, and a local-variable array sized to the code object's
// declared local count (spec.md §4.6 "Frame"). The caller pushes the
// arguments and finally the receiver; the CALL handler pops them and
// NewFrame copies them into locals[0..argc] in declared order (self occupies slot 0 for a
// method, matching the compiler's convention).
type Frame struct {
	fn     *object.KFunc
	ip     int
	argc   int
	locals []object.Value
}

// NewFrame creates a frame for fn, seeding its locals from the already-
// popped receiver and arguments.
func NewFrame(fn *object.KFunc, receiver object.Value, args []object.Value) *Frame {
	f := &Frame{fn: fn, ip: -1, argc: len(args), locals: make([]object.Value, fn.NumLocals)}
	for i := range f.locals {
		f.locals[i] = &object.Nil{}
	}
	if receiver != nil && len(f.locals) > 0 {
		f.locals[0] = receiver
		for i, a := range args {
			if i+1 < len(f.locals) {
				f.locals[i+1] = a
			}
		}
	} else {
		for i, a := range args {
			if i < len(f.locals) {
				f.locals[i] = a
			}
		}
	}
	return f
}

func (f *Frame) Instructions() code.Instructions { return f.fn.Code }
