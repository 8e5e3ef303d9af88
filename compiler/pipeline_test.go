package compiler

import (
	"testing"

	"github.com/fangguanya/koala-lang/ast"
	"github.com/fangguanya/koala-lang/code"
	"github.com/fangguanya/koala-lang/lexer"
	"github.com/fangguanya/koala-lang/parser"
	"github.com/fangguanya/koala-lang/symbol"
)

func parseSource(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return prog
}

// compileSource runs the two-pass pipeline directly on a State, exposing its
// internals (st.bodies, st.Errors, st.Warnings) for white-box assertions
// against spec.md §8's conformance scenarios.
func compileSource(t *testing.T, src string) *State {
	t.Helper()
	prog := parseSource(t, src)
	st := NewState("scenario")
	st.discoverProgram(prog)
	st.emitProgram(prog)
	st.checkUnusedSymbols()
	return st
}

// mnemonics decodes ins into its bare opcode-name sequence, ignoring operand
// values, for assertions about instruction shape rather than exact constant
// indices.
func mnemonics(ins code.Instructions) []string {
	var out []string
	i := 0
	for i < len(ins) {
		def, err := code.Lookup(ins[i])
		if err != nil {
			out = append(out, "ERROR")
			break
		}
		_, read := code.ReadOperands(def, ins[i+1:])
		out = append(out, def.Name)
		i += read + 1
	}
	return out
}

func assertMnemonics(t *testing.T, ins code.Instructions, want ...string) {
	t.Helper()
	got := mnemonics(ins)
	if len(got) != len(want) {
		t.Fatalf("instruction count mismatch\n got: %v\nwant: %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d mismatch\n got: %v\nwant: %v", i, got, want)
		}
	}
}

// decodedInstr records one decoded instruction's position alongside its
// operands, so jump-offset arithmetic can be checked without hand-computing
// byte widths per opcode.
type decodedInstr struct {
	name     string
	operands []int
	pos      int // byte offset of the opcode itself
	end      int // byte offset just past this instruction (jump base)
}

func decodeAll(ins code.Instructions) []decodedInstr {
	var out []decodedInstr
	i := 0
	for i < len(ins) {
		def, err := code.Lookup(ins[i])
		if err != nil {
			break
		}
		operands, read := code.ReadOperands(def, ins[i+1:])
		out = append(out, decodedInstr{name: def.Name, operands: operands, pos: i, end: i + read + 1})
		i += read + 1
	}
	return out
}

// TestScenarioA_ModuleVarInit covers spec.md §8 Scenario A: `var x int = 1 + 2`
// at module scope must emit, inside the synthesized __init__: LOADK <idx of
// 2>, LOADK <idx of 1>, ADD, LOAD 0, SETFIELD "x", RET. RHS (2) is pushed
// before LHS (1), and the module-self slot-0 receiver is pushed last, right
// before SETFIELD.
func TestScenarioA_ModuleVarInit(t *testing.T) {
	st := compileSource(t, "var x int = 1 + 2;")

	initSym, ok := st.Module.Get("__init__")
	if !ok {
		t.Fatalf("expected a synthesized __init__ symbol")
	}
	body, ok := st.bodies[initSym]
	if !ok {
		t.Fatalf("expected a compiled body for __init__")
	}

	assertMnemonics(t, body.code, "LOADK", "LOADK", "ADD", "LOAD", "SETFIELD", "RET")

	decoded := decodeAll(body.code)
	idxOf2, idxOf1 := decoded[0].operands[0], decoded[1].operands[0]
	if idxOf2 == idxOf1 {
		t.Fatalf("constants 2 and 1 should intern to distinct indices, both got %d", idxOf2)
	}

	loadSlot := decoded[3].operands[0]
	if loadSlot != 0 {
		t.Fatalf("expected LOAD 0 (module self-slot), got LOAD %d", loadSlot)
	}
}

// TestScenarioB_IfElseShape covers spec.md §8 Scenario B: `if (a > b) {
// return 1 } else { return 2 }` emits LOAD b, LOAD a, GT, JUMP_FALSE,
// LOADK 1, RET, JUMP, LOADK 2, RET — with JUMP_FALSE's offset landing past
// the unconditional JUMP, and the JUMP's offset landing past the else RET.
func TestScenarioB_IfElseShape(t *testing.T) {
	st := compileSource(t, `
		func cmp(a int, b int) int {
			if (a > b) { return 1; } else { return 2; }
		}
	`)

	sym, ok := st.Module.Get("cmp")
	if !ok {
		t.Fatalf("expected a 'cmp' function symbol")
	}
	body, ok := st.bodies[sym]
	if !ok {
		t.Fatalf("expected a compiled body for 'cmp'")
	}

	assertMnemonics(t, body.code,
		"LOAD", "LOAD", "GT", "JUMP_FALSE",
		"LOADK", "RET", "JUMP",
		"LOADK", "RET",
	)

	decoded := decodeAll(body.code)
	var jumpFalse, jump *decodedInstr
	for i := range decoded {
		switch decoded[i].name {
		case "JUMP_FALSE":
			jumpFalse = &decoded[i]
		case "JUMP":
			jump = &decoded[i]
		}
	}
	if jumpFalse == nil || jump == nil {
		t.Fatalf("expected both a JUMP_FALSE and a JUMP in:\n%s", code.Instructions(body.code).String())
	}

	if landing := jumpFalse.end + jumpFalse.operands[0]; landing != jump.end {
		t.Fatalf("JUMP_FALSE should land just past the JUMP (at %d), landed at %d", jump.end, landing)
	}
	if landing := jump.end + jump.operands[0]; landing != len(body.code) {
		t.Fatalf("JUMP should land past the else RET (end of body, %d), landed at %d", len(body.code), landing)
	}
}

// TestScenarioC_WhileBreakExitsAfterOneIteration covers spec.md §8 Scenario
// C: a `while (true) { if (x) break }` loop's break JUMP, executed starting
// just before the loop, must land exactly at loop exit so the loop runs at
// most once when x is true.
func TestScenarioC_WhileBreakExitsAfterOneIteration(t *testing.T) {
	st := compileSource(t, `
		func loop(x bool) {
			while (true) { if (x) { break; } }
		}
	`)

	sym, ok := st.Module.Get("loop")
	if !ok {
		t.Fatalf("expected a 'loop' function symbol")
	}
	body, ok := st.bodies[sym]
	if !ok {
		t.Fatalf("expected a compiled body for 'loop'")
	}

	// The loop's own back-edge is a JUMP too, so the break's JUMP is the only
	// unconditional JUMP whose target is forward (loop exit), not backward
	// (loop head).
	decoded := decodeAll(body.code)
	var breakJump *decodedInstr
	for i := range decoded {
		if decoded[i].name == "JUMP" && decoded[i].operands[0] > 0 {
			breakJump = &decoded[i]
		}
	}
	if breakJump == nil {
		t.Fatalf("expected a forward break JUMP instruction in:\n%s", code.Instructions(body.code).String())
	}

	// The function's trailing RET (added by ensureReturn, since the loop's
	// own last instruction is the back-edge JUMP) marks the loop's exit
	// point; the break JUMP must land exactly there.
	loopExit := decoded[len(decoded)-1].pos
	if decoded[len(decoded)-1].name != "RET" {
		t.Fatalf("expected a trailing RET, got %s", decoded[len(decoded)-1].name)
	}
	if landing := breakJump.end + breakJump.operands[0]; landing != loopExit {
		t.Fatalf("break JUMP should land at loop exit (%d), landed at %d", loopExit, landing)
	}
}

// TestScenarioE_InheritedMembersExcludeInit covers spec.md §8 Scenario E:
// `class A { var N int; func Hello() {} }` / `class B extends A {}` — B's
// member table must contain N and Hello as inherited entries pointing back
// to A, and must not contain an inherited __init__. The members are
// uppercase because only public members are inherited.
func TestScenarioE_InheritedMembersExcludeInit(t *testing.T) {
	st := compileSource(t, `
		class A {
			var N int;
			func Hello() {}
		}
		class B extends A {}
	`)

	bSym, ok := st.Module.Get("B")
	if !ok {
		t.Fatalf("expected a 'B' class symbol")
	}
	bTable := symbol.ChildTable(bSym)
	if bTable == nil {
		t.Fatalf("expected B to have a member table")
	}

	nSym, ok := bTable.Get("N")
	if !ok || !nSym.Inherited || nSym.Super == nil {
		t.Fatalf("expected B.N to be an inherited member with a super-pointer, got %+v", nSym)
	}
	helloSym, ok := bTable.Get("Hello")
	if !ok || !helloSym.Inherited || helloSym.Super == nil {
		t.Fatalf("expected B.Hello to be an inherited member with a super-pointer, got %+v", helloSym)
	}
	if _, ok := bTable.Get("__init__"); ok {
		t.Fatalf("B must not inherit A's __init__")
	}
}

// TestScenarioF_VarargsArityCheck covers spec.md §8 Scenario F: proto
// `(i int, ...s string)` accepts a call with (1, "a", "b") and rejects a
// call with () because i is required.
func TestScenarioF_VarargsArityCheck(t *testing.T) {
	st := compileSource(t, `
		func f(i int, s ...string) {}
		func okCall() { f(1, "a", "b"); }
	`)
	if len(st.Errors) != 0 {
		t.Fatalf("expected the varargs call to pass arity checking, got errors: %v", st.Errors)
	}

	st2 := compileSource(t, `
		func f(i int, s ...string) {}
		func badCall() { f(); }
	`)
	if len(st2.Errors) == 0 {
		t.Fatalf("expected a call with no arguments to fail arity checking (i is required)")
	}
}
