package vm

import (
	"testing"

	"github.com/fangguanya/koala-lang/atom"
	"github.com/fangguanya/koala-lang/code"
	"github.com/fangguanya/koala-lang/object"
)

func stringConst(table *atom.Table, s string) int {
	return table.Insert(atom.KindString, &atom.StringItem{Value: s}, true)
}

// TestSchedulerSpawnRunsToCompletion exercises Scheduler.Spawn/Run directly:
// a spawned routine's side effect (a module field write) must be visible
// only after Run drains the queue.
func TestSchedulerSpawnRunsToCompletion(t *testing.T) {
	mod := newTestModule()
	flag := intConst(mod.Atoms, 1)

	// fn: module.done = 1; return
	var ins code.Instructions
	ins = append(ins, code.Make(code.LOADK, flag)...)
	ins = append(ins, code.Make(code.LOAD, 0)...)
	ins = append(ins, code.Make(code.SETFIELD, stringConst(mod.Atoms, "done"))...)
	ins = append(ins, code.Make(code.RET)...)
	fn := kfunc(mod, "worker", 1, ins)

	state := NewState()
	sched := NewScheduler(state)
	sched.Spawn(fn, mod, nil)

	before, err := getField(mod, "done")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, ok := before.(*object.Nil); !ok {
		t.Fatalf("expected 'done' to be unset before Run drains the queue, got %v", before.Inspect())
	}

	if err := sched.Run(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got, err := getField(mod, "done")
	if err != nil {
		t.Fatalf("unexpected error reading 'done' after Run: %s", err)
	}
	if got.(*object.Int).Value != 1 {
		t.Fatalf("expected 'done' to read back 1, got %v", got.Inspect())
	}
}

// TestGoOpcodeSpawnsViaStateScheduler exercises the code.GO dispatch path
// end-to-end: a routine executing a GO instruction enqueues the callee on
// its State's scheduler instead of running it inline, and DrainScheduled
// runs it to completion.
func TestGoOpcodeSpawnsViaStateScheduler(t *testing.T) {
	mod := newTestModule()
	one := intConst(mod.Atoms, 1)

	// worker: module.done = 1; return
	var workerIns code.Instructions
	workerIns = append(workerIns, code.Make(code.LOADK, one)...)
	workerIns = append(workerIns, code.Make(code.LOAD, 0)...)
	workerIns = append(workerIns, code.Make(code.SETFIELD, stringConst(mod.Atoms, "done"))...)
	workerIns = append(workerIns, code.Make(code.RET)...)
	kfunc(mod, "worker", 1, workerIns)

	nameIdx := stringConst(mod.Atoms, "worker")

	// main: GO worker(); return
	var mainIns code.Instructions
	mainIns = append(mainIns, code.Make(code.LOAD, 0)...)
	mainIns = append(mainIns, code.Make(code.GO, nameIdx, 0)...)
	mainIns = append(mainIns, code.Make(code.RET)...)
	mainFn := kfunc(mod, "main", 1, mainIns)

	state := NewState()
	r := NewRoutine(state)
	if _, err := r.Call(mainFn, mod, nil); err != nil {
		t.Fatalf("unexpected error calling main: %s", err)
	}

	before, err := getField(mod, "done")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, ok := before.(*object.Nil); !ok {
		t.Fatalf("expected GO to defer 'worker' rather than run it inline, got %v", before.Inspect())
	}

	if err := state.DrainScheduled(); err != nil {
		t.Fatalf("unexpected error draining scheduled routines: %s", err)
	}

	got, err := getField(mod, "done")
	if err != nil {
		t.Fatalf("unexpected error reading 'done' after draining: %s", err)
	}
	if got.(*object.Int).Value != 1 {
		t.Fatalf("expected 'done' to read back 1, got %v", got.Inspect())
	}
}
