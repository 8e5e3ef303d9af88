// Package vm implements the frame-chain-per-routine bytecode interpreter
// (spec.md §4.6, §4.7): a process-wide [State] owning the module registry,
// a [Routine] per top-level/`go`-spawned call owning its own evaluation
// stack and frame chain, and the opcode dispatch loop driving both.
//
// The Frame shape (code reference, program counter, locals array) follows a
// conventional bytecode-VM frame; the dispatch loop and module registry
// generalize "one flat global stack VM over a single Bytecode" into "many
// loadable modules, each an addressable runtime Object", per spec.md §4.6.
package vm

import (
	"fmt"

	"github.com/fangguanya/koala-lang/atom"
	"github.com/fangguanya/koala-lang/code"
	"github.com/fangguanya/koala-lang/image"
	"github.com/fangguanya/koala-lang/object"
)

// BuiltinModulePath is the synthetic module path the compiler targets for
// array literals/indexing/for-each and for top-level builtin functions
// (e.g. "print") — see compiler/emit.go and object/builtins.go. It has no
// backing image; [State.LoadModule] constructs it directly.
const BuiltinModulePath = "builtin"

// StackSize bounds a Routine's evaluation stack (spec.md §4.6 "bounded,
// e.g. 256 TValue slots").
const StackSize = 256

// MaxFrames bounds call depth per Routine.
const MaxFrames = 1024

// State is process-wide interpreter state: every module loaded so far,
// keyed by path, plus the images available to load on demand (populated by
// a host CLI/REPL via AddImage before LoadModule is called).
type State struct {
	modules map[string]*object.Module
	images  map[string]*image.Image
	sched   *Scheduler
}

// NewState creates an empty interpreter State.
func NewState() *State {
	return &State{modules: make(map[string]*object.Module), images: make(map[string]*image.Image)}
}

// AddImage makes img available for LOADM/import resolution under its own
// package path, without loading it yet (lazy, matching spec.md's "load on
// first reference").
func (s *State) AddImage(img *image.Image) {
	s.images[img.PkgName] = img
}

// Module returns the already-loaded module at path, if any.
func (s *State) Module(path string) (*object.Module, bool) {
	m, ok := s.modules[path]
	return m, ok
}

// scheduler lazily creates the Scheduler backing `go` statements, so a State
// that never spawns a routine never allocates one.
func (s *State) scheduler() *Scheduler {
	if s.sched == nil {
		s.sched = NewScheduler(s)
	}
	return s.sched
}

// DrainScheduled runs every routine `go`-spawned so far to completion, FIFO,
// per spec.md §4.7. Callers at the outermost request boundary (a top-level
// script run, a REPL entry, a module's __init__) call this once their own
// top-level call returns, so spawned routines run before control returns to
// the host.
func (s *State) DrainScheduled() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Run()
}

// LoadModule returns the module at path, deserializing its image and
// running its __init__ exactly once on first access (spec.md §4.6 "modules
// run their initializers once, on first load").
func (s *State) LoadModule(path string) (*object.Module, error) {
	if m, ok := s.modules[path]; ok {
		return m, nil
	}
	if path == BuiltinModulePath {
		mod := object.NewModule(BuiltinModulePath)
		mod.MarkLoaded()
		s.modules[path] = mod
		return mod, nil
	}
	img, ok := s.images[path]
	if !ok {
		return nil, fmt.Errorf("vm: no image registered for module %q", path)
	}
	mod, err := Load(img)
	if err != nil {
		return nil, err
	}
	s.modules[path] = mod
	if mod.Init != nil && !mod.Loaded() {
		mod.MarkLoaded()
		r := NewRoutine(s)
		if _, err := r.Call(mod.Init, mod, nil); err != nil {
			return nil, fmt.Errorf("vm: running %s.__init__: %w", path, err)
		}
		if err := s.DrainScheduled(); err != nil {
			return nil, fmt.Errorf("vm: running %s.__init__: %w", path, err)
		}
	}
	return mod, nil
}

// Routine is one cooperative thread of execution: its own evaluation stack
// and frame chain (spec.md §4.6 "Routine"). Routines never run
// concurrently with each other — the scheduler in scheduler.go runs each to
// completion before starting the next.
type Routine struct {
	state  *State
	stack  [StackSize]object.Value
	sp     int
	frames []*Frame
	halted bool
}

// NewRoutine creates a Routine bound to state.
func NewRoutine(state *State) *Routine {
	return &Routine{state: state, frames: make([]*Frame, 0, MaxFrames)}
}

func (r *Routine) push(v object.Value) error {
	if r.sp >= StackSize {
		return fmt.Errorf("vm: stack overflow")
	}
	r.stack[r.sp] = v
	r.sp++
	return nil
}

func (r *Routine) pop() object.Value {
	if r.sp == 0 {
		return &object.Nil{}
	}
	r.sp--
	return r.stack[r.sp]
}

func (r *Routine) currentFrame() *Frame { return r.frames[len(r.frames)-1] }

func (r *Routine) pushFrame(f *Frame) error {
	if len(r.frames) >= MaxFrames {
		return fmt.Errorf("vm: call stack overflow")
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *Routine) popFrame() *Frame {
	f := r.currentFrame()
	r.frames = r.frames[:len(r.frames)-1]
	return f
}

// Call runs fn to completion with the given receiver/args and returns
// whatever values its RET left on the stack.
func (r *Routine) Call(fn *object.KFunc, receiver object.Value, args []object.Value) ([]object.Value, error) {
	base := r.sp
	if err := r.pushFrame(NewFrame(fn, receiver, args)); err != nil {
		return nil, err
	}
	if err := r.run(len(r.frames) - 1); err != nil {
		return nil, err
	}
	results := make([]object.Value, r.sp-base)
	copy(results, r.stack[base:r.sp])
	r.sp = base
	return results, nil
}

// run executes instructions until the frame at floor (and everything above
// it) has returned, or HALT/an error stops the routine.
func (r *Routine) run(floor int) error {
	for len(r.frames) > floor {
		f := r.currentFrame()
		ins := f.Instructions()
		if f.ip+1 >= len(ins) {
			r.popFrame()
			continue
		}
		f.ip++
		op := code.Opcode(ins[f.ip])

		switch op {
		case code.HALT:
			r.halted = true
			return nil

		case code.LOADK:
			idx := int(code.ReadInt32(ins[f.ip+1:]))
			f.ip += 4
			v, err := r.constValue(f.fn.Owner.Atoms, idx)
			if err != nil {
				return err
			}
			if err := r.push(v); err != nil {
				return err
			}

		case code.LOADM:
			idx := int(code.ReadInt32(ins[f.ip+1:]))
			f.ip += 4
			path := r.stringConst(f.fn.Owner.Atoms, idx)
			mod, err := r.state.LoadModule(path)
			if err != nil {
				return err
			}
			if err := r.push(mod); err != nil {
				return err
			}

		case code.GETM:
			v := r.pop()
			if err := r.push(owningModule(v)); err != nil {
				return err
			}

		case code.LOAD:
			idx := int(code.ReadUint16(ins[f.ip+1:]))
			f.ip += 2
			if idx < 0 || idx >= len(f.locals) {
				return fmt.Errorf("vm: local index %d out of range", idx)
			}
			if err := r.push(f.locals[idx]); err != nil {
				return err
			}

		case code.STORE:
			idx := int(code.ReadUint16(ins[f.ip+1:]))
			f.ip += 2
			v := r.pop()
			if idx < 0 || idx >= len(f.locals) {
				return fmt.Errorf("vm: local index %d out of range", idx)
			}
			f.locals[idx] = v

		case code.GETFIELD:
			idx := int(code.ReadInt32(ins[f.ip+1:]))
			f.ip += 4
			name := r.stringConst(f.fn.Owner.Atoms, idx)
			recv := r.pop()
			v, err := getField(recv, name)
			if err != nil {
				return err
			}
			if err := r.push(v); err != nil {
				return err
			}

		case code.SETFIELD:
			idx := int(code.ReadInt32(ins[f.ip+1:]))
			f.ip += 4
			name := r.stringConst(f.fn.Owner.Atoms, idx)
			recv := r.pop()
			val := r.pop()
			if err := setField(recv, name, val); err != nil {
				return err
			}

		case code.CALL:
			nameIdx := int(code.ReadInt32(ins[f.ip+1:]))
			argc := int(code.ReadUint16(ins[f.ip+5:]))
			f.ip += 6
			name := r.stringConst(f.fn.Owner.Atoms, nameIdx)
			recv := r.pop()
			args := make([]object.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = r.pop()
			}
			if err := r.dispatchCall(recv, name, args); err != nil {
				return err
			}

		case code.NEW:
			nameIdx := int(code.ReadInt32(ins[f.ip+1:]))
			argc := int(code.ReadUint16(ins[f.ip+5:]))
			f.ip += 6
			name := r.stringConst(f.fn.Owner.Atoms, nameIdx)
			modVal := r.pop()
			args := make([]object.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = r.pop()
			}
			inst, err := r.construct(modVal, name, args)
			if err != nil {
				return err
			}
			if err := r.push(inst); err != nil {
				return err
			}

		case code.RET:
			r.popFrame()

		case code.ADD, code.SUB, code.MUL, code.DIV, code.MOD:
			if err := r.binaryArith(op); err != nil {
				return err
			}

		case code.GT, code.GE, code.LT, code.LE, code.EQ, code.NEQ:
			if err := r.compare(op); err != nil {
				return err
			}

		case code.JUMP:
			off := int(code.ReadInt32(ins[f.ip+1:]))
			f.ip += 4
			f.ip += off

		case code.JUMP_TRUE:
			off := int(code.ReadInt32(ins[f.ip+1:]))
			f.ip += 4
			if object.Truthy(r.pop()) {
				f.ip += off
			}

		case code.JUMP_FALSE:
			off := int(code.ReadInt32(ins[f.ip+1:]))
			f.ip += 4
			if !object.Truthy(r.pop()) {
				f.ip += off
			}

		case code.MINUS:
			if err := r.unaryMinus(); err != nil {
				return err
			}

		case code.BNOT:
			if err := r.unaryBnot(); err != nil {
				return err
			}

		case code.LNOT:
			v := r.pop()
			if err := r.push(&object.Bool{Value: !object.Truthy(v)}); err != nil {
				return err
			}

		case code.SUPER:
			f.ip += 2
			v := r.pop()
			if inst, ok := v.(*object.Instance); ok && f.fn.Class != nil {
				v = &superInstance{Instance: inst, from: f.fn.Class}
			}
			sup, err := superOf(v)
			if err != nil {
				return err
			}
			if err := r.push(sup); err != nil {
				return err
			}

		case code.GO:
			nameIdx := int(code.ReadInt32(ins[f.ip+1:]))
			argc := int(code.ReadUint16(ins[f.ip+5:]))
			f.ip += 6
			name := r.stringConst(f.fn.Owner.Atoms, nameIdx)
			recv := r.pop()
			args := make([]object.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = r.pop()
			}
			fn, spawnRecv, err := resolveCallable(recv, name)
			if err != nil {
				return err
			}
			r.state.scheduler().Spawn(fn, spawnRecv, args)

		default:
			return fmt.Errorf("vm: unknown opcode %d", op)
		}
	}
	return nil
}

func (r *Routine) constValue(atoms *atom.Table, idx int) (object.Value, error) {
	c, ok := atoms.Get(atom.KindConst, idx).(*atom.ConstItem)
	if !ok {
		return nil, fmt.Errorf("vm: bad constant index %d", idx)
	}
	switch c.Kind {
	case atom.ConstInt:
		return &object.Int{Value: c.IntVal}, nil
	case atom.ConstFloat:
		return &object.Float{Value: c.FloatVal}, nil
	case atom.ConstBool:
		return &object.Bool{Value: c.BoolVal}, nil
	case atom.ConstString:
		return &object.Str{Value: r.stringConst(atoms, c.StringIdx)}, nil
	case atom.ConstNil:
		return &object.Nil{}, nil
	default:
		return &object.Nil{}, nil
	}
}

func (r *Routine) stringConst(atoms *atom.Table, idx int) string {
	if idx < 0 {
		return ""
	}
	s, ok := atoms.Get(atom.KindString, idx).(*atom.StringItem)
	if !ok {
		return ""
	}
	return s.Value
}
