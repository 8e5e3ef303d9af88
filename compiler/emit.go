package compiler

import (
	"github.com/fangguanya/koala-lang/ast"
	"github.com/fangguanya/koala-lang/code"
	"github.com/fangguanya/koala-lang/symbol"
	"github.com/fangguanya/koala-lang/types"
)

// identKind classifies where a resolved identifier lives, which determines
// how a read/write/call against it is compiled (spec.md §4.4 "Identifier
// resolution order" plus this emitter's receiver conventions below).
type identKind int

const (
	identLocal identKind = iota
	identSelfField
	identModuleVar
	identModuleAlias
	identClassOrTrait
	identModuleFunc
)

// Every receiver-taking opcode's documented pop order fixes a push order:
//   - GETFIELD pops one receiver            -> push: receiver
//   - SETFIELD pops receiver then value     -> push: value, receiver
//   - CALL pops a receiver with argc args
//     already pushed beneath it             -> push: args..., receiver
//   - NEW mirrors CALL                      -> push: args..., class/module ref
//   - GO mirrors CALL                       -> push: args..., receiver
//
// Binary infix operators emit RHS first, then LHS, then the opcode
// (spec.md §8 Scenario A); vm/arith.go's pop order is LHS-pops-first to match.

// moduleSelfName is the reserved slot-0 local binding for a top-level
// function's or __init__'s own module receiver. It is distinct from "self"
// so a bare `self` used incorrectly inside a plain function (outside any
// method) still resolves to nothing and reports its usual error.
const moduleSelfName = "$module"

// emitProgram is pass 2 (spec.md §4.4's emission-per-scope): it compiles
// every function, method, and top-level statement's body, synthesizing a
// module "__init__" function for any executable top-level code (var
// initializers and stray statements), matching spec.md's "modules run their
// initializers once, on first load" semantics.
func (s *State) emitProgram(prog *ast.Program) {
	initCode := &CodeBlock{}
	initTable := symbol.NewChild(s.Module)
	initTable.AddVar(moduleSelfName, types.NewPrimitive(types.Any, 0), false)
	initUnit := &Unit{Kind: UnitFunction, Table: initTable, Code: initCode}

	for _, stmt := range prog.Statements {
		switch d := stmt.(type) {
		case *ast.ImportDecl, *ast.TypeAliasDecl:
			// no runtime code: resolved entirely at compile time
		case *ast.VarDecl:
			s.unit = initUnit
			s.emitTopVarInit(d)
		case *ast.VarDeclList:
			s.unit = initUnit
			for _, vd := range d.Decls {
				s.emitTopVarInit(vd)
			}
		case *ast.FuncDecl:
			s.compileFunc(d)
		case *ast.ClassDecl:
			s.compileClass(d)
		case *ast.TraitDecl:
			s.compileTrait(d)
		default:
			s.unit = initUnit
			s.emitStmt(stmt)
		}
	}

	if initCode.len() > 0 {
		s.unit = initUnit
		s.ensureReturn()
		sym, err := s.Module.AddFuncProto("__init__", types.NewProto(nil, nil, false))
		if err == nil {
			s.bodies[sym] = &compiledBody{code: initCode.instructions, locals: s.collectLocals(initTable)}
		}
	}
	s.unit = nil
}

func (s *State) emitTopVarInit(d *ast.VarDecl) {
	if d.Value == nil {
		return
	}
	sym, ok := s.Module.Get(d.Name.Value)
	if !ok {
		return
	}
	s.checkVarDeclType(d)
	s.emitExprLoad(d.Value)
	s.emitSelfModule()
	s.emit(code.SETFIELD, s.internString(sym.Name))
}

func (s *State) compileFunc(d *ast.FuncDecl) {
	sym, ok := s.Module.Get(d.Fn.Name)
	if !ok {
		return
	}
	table := symbol.NewChild(s.Module)
	table.AddVar(moduleSelfName, types.NewPrimitive(types.Any, 0), false)
	for _, p := range d.Fn.Parameters {
		table.AddVar(p.Name.Value, s.resolveTypeExpr(p.Type), false)
	}
	proto, _ := sym.Desc.(*types.ProtoType)
	var returns []types.TypeDesc
	if proto != nil {
		returns = proto.Returns
	}
	s.unit = &Unit{Kind: UnitFunction, Sym: sym, Table: table, Code: &CodeBlock{}, Returns: returns}
	s.emitBlock(d.Fn.Body)
	s.ensureReturn()
	s.bodies[sym] = &compiledBody{code: s.unit.Code.instructions, locals: s.collectLocals(table)}
	s.unit = nil
}

func (s *State) compileClass(d *ast.ClassDecl) {
	classSym, ok := s.Module.Get(d.Name)
	if !ok {
		return
	}
	classTable := symbol.ChildTable(classSym)
	for _, m := range d.Methods {
		s.compileMethod(classSym, classTable, m)
	}
}

func (s *State) compileTrait(d *ast.TraitDecl) {
	traitSym, ok := s.Module.Get(d.Name)
	if !ok {
		return
	}
	traitTable := symbol.ChildTable(traitSym)
	for _, m := range d.Methods {
		s.compileMethod(traitSym, traitTable, m)
	}
}

func (s *State) compileMethod(owner *symbol.Symbol, ownerTable *symbol.Table, m *ast.FuncDecl) {
	msym, ok := ownerTable.Get(m.Fn.Name)
	if !ok {
		return
	}
	table := symbol.NewChild(ownerTable)
	table.AddVar("self", selfType(owner.Name), false)
	for _, p := range m.Fn.Parameters {
		table.AddVar(p.Name.Value, s.resolveTypeExpr(p.Type), false)
	}
	proto, _ := msym.Desc.(*types.ProtoType)
	var returns []types.TypeDesc
	if proto != nil {
		returns = proto.Returns
	}
	s.unit = &Unit{Kind: UnitMethod, Sym: msym, Table: table, Code: &CodeBlock{}, SelfClass: owner, Returns: returns}
	s.emitBlock(m.Fn.Body)
	s.ensureReturn()
	s.bodies[msym] = &compiledBody{code: s.unit.Code.instructions, locals: s.collectLocals(table)}
	s.unit = nil
}

func (s *State) collectLocals(table *symbol.Table) []*symbol.Symbol {
	var out []*symbol.Symbol
	table.Traverse(func(sym *symbol.Symbol) { out = append(out, sym) })
	return out
}

// emit appends one instruction to the active unit's code and remembers its
// opcode, so ensureReturn can tell whether a trailing RET is still needed.
func (s *State) emit(op code.Opcode, operands ...int) int {
	pos := s.unit.Code.append(code.Make(op, operands...))
	s.unit.lastOp = op
	s.unit.hasLast = true
	return pos
}

// emitJump emits op with a placeholder operand and returns the byte offset
// of that operand (for a later patchJump call).
func (s *State) emitJump(op code.Opcode) int {
	pos := s.emit(op, 0)
	return pos + 1
}

// patchJump overwrites the operand at operandPos with the signed byte
// offset from just after this instruction to targetPos.
func (s *State) patchJump(operandPos, targetPos int) {
	afterInstr := operandPos + 4
	s.unit.Code.patchInt32(operandPos, targetPos-afterInstr)
}

func (s *State) ensureReturn() {
	if !s.unit.hasLast || s.unit.lastOp != code.RET {
		s.emit(code.RET)
	}
}

// emitSelfModule loads the receiver a top-level function/__init__ or method
// body should use to access its own module's vars/funcs/classes: slot 0,
// converted from an Instance to its owning Module via GETM when the active
// unit is inside a method body (spec.md §4.4's "module access from inside a
// method" rule). A plain function's/__init__'s slot 0 already holds the
// module itself, so no GETM is needed there.
func (s *State) emitSelfModule() {
	s.emit(code.LOAD, 0)
	if s.unit != nil && s.unit.SelfClass != nil {
		s.emit(code.GETM)
	}
}

func (s *State) emitSelf() {
	sym, _, ok := s.resolveIdent("self")
	if !ok {
		s.errorf(0, "self used outside a method")
		return
	}
	s.emit(code.LOAD, sym.Slot)
}

// resolveIdent implements spec.md §4.4's identifier resolution order: the
// active scope stack (innermost block out to the function/method's own
// locals), then — inside a method — the owning class/trait's member table
// (so bare field access works without an explicit `self.`), then module
// scope.
func (s *State) resolveIdent(name string) (*symbol.Symbol, identKind, bool) {
	for u := s.unit; u != nil; u = u.Parent {
		if sym, ok := u.Table.Get(name); ok {
			sym.Refs++
			return sym, identLocal, true
		}
	}
	if s.unit != nil && s.unit.SelfClass != nil {
		if sym, ok := symbol.ChildTable(s.unit.SelfClass).Get(name); ok {
			sym.Refs++
			return sym, identSelfField, true
		}
	}
	if sym, ok := s.Module.Get(name); ok {
		sym.Refs++
		switch sym.Kind {
		case symbol.KindModuleAlias:
			return sym, identModuleAlias, true
		case symbol.KindClass, symbol.KindTrait:
			return sym, identClassOrTrait, true
		case symbol.KindFuncProto:
			return sym, identModuleFunc, true
		default:
			return sym, identModuleVar, true
		}
	}
	return nil, 0, false
}

func pkgPathOf(sym *symbol.Symbol) string {
	if p, ok := sym.Desc.(*types.PkgPathType); ok {
		return p.Path
	}
	return ""
}

// ---- statements ----

func (s *State) emitBlock(b *ast.BlockStatement) {
	for _, st := range b.Statements {
		s.emitStmt(st)
	}
}

func (s *State) emitStmt(stmt ast.Statement) {
	switch v := stmt.(type) {
	case *ast.VarDecl:
		s.emitLocalVarDecl(v)
	case *ast.VarDeclList:
		for _, vd := range v.Decls {
			s.emitLocalVarDecl(vd)
		}
	case *ast.ExpressionStatement:
		if v.Expression != nil {
			s.emitExprLoad(v.Expression)
		}
	case *ast.AssignStatement:
		s.emitAssign(v.Target, v.Value)
	case *ast.CompoundAssignStatement:
		s.emitCompoundAssign(v)
	case *ast.ReturnStatement:
		s.checkReturn(v)
		for _, val := range v.Values {
			s.emitExprLoad(val)
		}
		s.emit(code.RET)
	case *ast.IfStatement:
		s.emitIf(v)
	case *ast.WhileStatement:
		s.emitWhile(v)
	case *ast.ForTripleStatement:
		s.emitForTriple(v)
	case *ast.ForEachStatement:
		s.emitForEach(v)
	case *ast.SwitchStatement:
		s.emitSwitchCases(v.Tag, v.Cases, 0)
	case *ast.BreakStatement:
		s.emitBreak(v.Level, v.Token.Line)
	case *ast.ContinueStatement:
		s.emitContinue(v.Level, v.Token.Line)
	case *ast.GoStatement:
		s.emitGoCall(v.Call)
	case *ast.BlockStatement:
		s.emitBlock(v)
	}
}

func (s *State) emitLocalVarDecl(d *ast.VarDecl) {
	s.checkVarDeclType(d)
	sym, err := s.unit.Table.AddVar(d.Name.Value, s.resolveVarType(d), d.Const)
	if err != nil {
		s.errorf(d.Token.Line, "%v", err)
		return
	}
	if d.Value != nil {
		s.emitExprLoad(d.Value)
		s.emit(code.STORE, sym.Slot)
	}
}

func (s *State) emitAssign(target, value ast.Expression) {
	switch t := target.(type) {
	case *ast.Identifier:
		sym, kind, ok := s.resolveIdent(t.Value)
		if !ok {
			s.errorf(t.Token.Line, "undefined name %q", t.Value)
			return
		}
		switch kind {
		case identLocal:
			s.emitExprLoad(value)
			s.emit(code.STORE, sym.Slot)
		case identSelfField:
			s.emitExprLoad(value)
			s.emitSelf()
			s.emit(code.SETFIELD, s.internString(t.Value))
		case identModuleVar:
			s.emitExprLoad(value)
			s.emitSelfModule()
			s.emit(code.SETFIELD, s.internString(t.Value))
		default:
			s.errorf(t.Token.Line, "%q is not assignable", t.Value)
		}

	case *ast.AttributeExpression:
		s.emitExprLoad(value)
		s.emitExprLoad(t.Left)
		s.emit(code.SETFIELD, s.internString(t.Name))

	case *ast.IndexExpression:
		s.emitExprLoad(t.Index)
		s.emitExprLoad(value)
		s.emitExprLoad(t.Left)
		s.emit(code.CALL, s.internString("set"), 2)

	default:
		s.errorf(0, "invalid assignment target")
	}
}

func (s *State) emitCompoundAssign(v *ast.CompoundAssignStatement) {
	synthetic := &ast.InfixExpression{Operator: v.Operator, Left: v.Target, Right: v.Value}
	s.emitAssign(v.Target, synthetic)
}

func (s *State) emitIf(v *ast.IfStatement) {
	s.checkBoolCondition(v.Condition, v.Token.Line, "if")
	s.emitExprLoad(v.Condition)
	jfPos := s.emitJump(code.JUMP_FALSE)
	s.emitBlock(v.Consequence)
	if v.Alternative != nil {
		jmpPos := s.emitJump(code.JUMP)
		s.patchJump(jfPos, s.unit.Code.len())
		s.emitBlock(v.Alternative)
		s.patchJump(jmpPos, s.unit.Code.len())
	} else {
		s.patchJump(jfPos, s.unit.Code.len())
	}
}

func (s *State) emitWhile(v *ast.WhileStatement) {
	if v.PostTest {
		s.emitDoWhile(v)
		return
	}
	loopStart := s.unit.Code.len()
	s.checkBoolCondition(v.Condition, v.Token.Line, "while")
	s.emitExprLoad(v.Condition)
	jfPos := s.emitJump(code.JUMP_FALSE)

	loopUnit := s.pushBlock(true)
	s.emitBlock(v.Body)
	for _, pj := range loopUnit.Pending {
		if pj.kind == jumpContinue {
			s.patchJump(pj.pos, loopStart)
		}
	}
	backPos := s.emitJump(code.JUMP)
	s.patchJump(backPos, loopStart)
	s.popUnit()

	endPos := s.unit.Code.len()
	s.patchJump(jfPos, endPos)
	for _, pj := range loopUnit.Pending {
		if pj.kind == jumpBreak {
			s.patchJump(pj.pos, endPos)
		}
	}
}

// emitDoWhile compiles the post-test surface form: body runs once
// unconditionally before the condition is ever tested.
func (s *State) emitDoWhile(v *ast.WhileStatement) {
	loopStart := s.unit.Code.len()

	loopUnit := s.pushBlock(true)
	s.emitBlock(v.Body)
	condPos := s.unit.Code.len()
	for _, pj := range loopUnit.Pending {
		if pj.kind == jumpContinue {
			s.patchJump(pj.pos, condPos)
		}
	}
	s.checkBoolCondition(v.Condition, v.Token.Line, "while")
	s.emitExprLoad(v.Condition)
	backPos := s.emitJump(code.JUMP_TRUE)
	s.patchJump(backPos, loopStart)
	s.popUnit()

	endPos := s.unit.Code.len()
	for _, pj := range loopUnit.Pending {
		if pj.kind == jumpBreak {
			s.patchJump(pj.pos, endPos)
		}
	}
}

func (s *State) emitForTriple(v *ast.ForTripleStatement) {
	if v.Init != nil {
		s.emitStmt(v.Init)
	}
	loopStart := s.unit.Code.len()
	hasCond := v.Cond != nil
	var jfPos int
	if hasCond {
		s.checkBoolCondition(v.Cond, v.Token.Line, "for")
		s.emitExprLoad(v.Cond)
		jfPos = s.emitJump(code.JUMP_FALSE)
	}

	loopUnit := s.pushBlock(true)
	s.emitBlock(v.Body)
	postStart := s.unit.Code.len()
	if v.Post != nil {
		s.emitStmt(v.Post)
	}
	for _, pj := range loopUnit.Pending {
		if pj.kind == jumpContinue {
			s.patchJump(pj.pos, postStart)
		}
	}
	backPos := s.emitJump(code.JUMP)
	s.patchJump(backPos, loopStart)
	s.popUnit()

	endPos := s.unit.Code.len()
	if hasCond {
		s.patchJump(jfPos, endPos)
	}
	for _, pj := range loopUnit.Pending {
		if pj.kind == jumpBreak {
			s.patchJump(pj.pos, endPos)
		}
	}
}

// emitForEach desugars `for x := range it { ... }` into an index-based loop
// calling the iterable's `length`/`get` methods, since this opcode set has
// no dedicated iterator-protocol instructions.
func (s *State) emitForEach(v *ast.ForEachStatement) {
	s.tmpCounter++
	idxName := "$idx" + itoa(s.tmpCounter)
	idxSym, err := s.unit.Table.AddVar(idxName, types.NewPrimitive(types.Int, 0), false)
	if err != nil {
		s.errorf(v.Token.Line, "%v", err)
		return
	}

	s.emit(code.LOADK, s.internInt(0))
	s.emit(code.STORE, idxSym.Slot)

	loopStart := s.unit.Code.len()
	s.emit(code.LOAD, idxSym.Slot)
	s.emitExprLoad(v.Iterable)
	s.emit(code.CALL, s.internString("length"), 0)
	s.emit(code.LT)
	jfPos := s.emitJump(code.JUMP_FALSE)

	loopUnit := s.pushBlock(true)
	elemSym, err := loopUnit.Table.AddVar(v.Var.Value, types.NewPrimitive(types.Any, 0), false)
	if err != nil {
		s.errorf(v.Token.Line, "%v", err)
	} else {
		s.emit(code.LOAD, idxSym.Slot)
		s.emitExprLoad(v.Iterable)
		s.emit(code.CALL, s.internString("get"), 1)
		s.emit(code.STORE, elemSym.Slot)
	}
	s.emitBlock(v.Body)

	postStart := s.unit.Code.len()
	s.emit(code.LOAD, idxSym.Slot)
	s.emit(code.LOADK, s.internInt(1))
	s.emit(code.ADD)
	s.emit(code.STORE, idxSym.Slot)
	for _, pj := range loopUnit.Pending {
		if pj.kind == jumpContinue {
			s.patchJump(pj.pos, postStart)
		}
	}
	backPos := s.emitJump(code.JUMP)
	s.patchJump(backPos, loopStart)
	s.popUnit()

	endPos := s.unit.Code.len()
	s.patchJump(jfPos, endPos)
	for _, pj := range loopUnit.Pending {
		if pj.kind == jumpBreak {
			s.patchJump(pj.pos, endPos)
		}
	}
}

// emitSwitchCases lowers a switch into a chain of nested if/else blocks,
// since this opcode set has no dedicated dispatch-table instruction: each
// case's comma-joined values become an `==`/`||` condition reusing
// InfixExpression's own short-circuit codegen.
func (s *State) emitSwitchCases(tag ast.Expression, cases []*ast.SwitchCase, i int) {
	if i >= len(cases) {
		return
	}
	c := cases[i]
	if c.Default {
		for _, st := range c.Body {
			s.emitStmt(st)
		}
		return
	}

	cond := buildCaseCond(tag, c.Values)
	s.emitExprLoad(cond)
	jfPos := s.emitJump(code.JUMP_FALSE)
	for _, st := range c.Body {
		s.emitStmt(st)
	}
	jmpPos := s.emitJump(code.JUMP)
	s.patchJump(jfPos, s.unit.Code.len())
	s.emitSwitchCases(tag, cases, i+1)
	s.patchJump(jmpPos, s.unit.Code.len())
}

func buildCaseCond(tag ast.Expression, values []ast.Expression) ast.Expression {
	var cond ast.Expression
	for _, val := range values {
		eq := &ast.InfixExpression{Operator: "==", Left: tag, Right: val}
		if cond == nil {
			cond = eq
		} else {
			cond = &ast.InfixExpression{Operator: "||", Left: cond, Right: eq}
		}
	}
	return cond
}

func (s *State) emitBreak(level int, line int) {
	if s.unit == nil {
		return
	}
	target := s.unit.enclosingLoop(level)
	if target == nil {
		s.errorf(line, "break outside a loop")
		return
	}
	pos := s.emitJump(code.JUMP)
	target.Pending = append(target.Pending, pendingJump{kind: jumpBreak, pos: pos, level: level})
}

func (s *State) emitContinue(level int, line int) {
	if s.unit == nil {
		return
	}
	target := s.unit.enclosingLoop(level)
	if target == nil {
		s.errorf(line, "continue outside a loop")
		return
	}
	pos := s.emitJump(code.JUMP)
	target.Pending = append(target.Pending, pendingJump{kind: jumpContinue, pos: pos, level: level})
}

// ---- expressions ----

func (s *State) emitExprLoad(e ast.Expression) {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		s.emit(code.LOADK, s.internInt(v.Value))
	case *ast.FloatLiteral:
		s.emit(code.LOADK, s.internFloat(v.Value))
	case *ast.Boolean:
		s.emit(code.LOADK, s.internBool(v.Value))
	case *ast.NilLiteral:
		s.emit(code.LOADK, s.internNil())
	case *ast.StringLiteral:
		s.emit(code.LOADK, s.internStringConst(v.Value))
	case *ast.SelfExpr:
		s.emitSelf()
	case *ast.SuperExpr:
		s.emitSelf()
		s.emit(code.SUPER, 0)
	case *ast.ParenExpr:
		s.emitExprLoad(v.Inner)
	case *ast.Identifier:
		s.emitIdentLoad(v)
	case *ast.PrefixExpression:
		s.emitExprLoad(v.Right)
		switch v.Operator {
		case "-":
			s.emit(code.MINUS)
		case "~":
			s.emit(code.BNOT)
		case "!":
			s.emit(code.LNOT)
		}
	case *ast.InfixExpression:
		s.emitInfix(v)
	case *ast.CallExpression:
		s.emitCall(v)
	case *ast.AttributeExpression:
		s.emitExprLoad(v.Left)
		s.emit(code.GETFIELD, s.internString(v.Name))
	case *ast.ArrayLiteral:
		for _, el := range v.Elements {
			s.emitExprLoad(el)
		}
		s.emit(code.LOADM, s.internStringConst("builtin"))
		s.emit(code.NEW, s.internString("Array"), len(v.Elements))
	case *ast.IndexExpression:
		s.emitExprLoad(v.Index)
		s.emitExprLoad(v.Left)
		s.emit(code.CALL, s.internString("get"), 1)
	case *ast.SequenceExpression:
		for _, ex := range v.Exprs {
			s.emitExprLoad(ex)
		}
	case *ast.FunctionLiteral:
		s.errorf(v.Token.Line, "function literals are not supported as values by this bytecode target")
		s.emit(code.LOADK, s.internBool(false))
	}
}

func (s *State) emitIdentLoad(v *ast.Identifier) {
	sym, kind, ok := s.resolveIdent(v.Value)
	if !ok {
		s.errorf(v.Token.Line, "undefined name %q", v.Value)
		return
	}
	switch kind {
	case identLocal:
		s.emit(code.LOAD, sym.Slot)
	case identSelfField:
		s.emitSelf()
		s.emit(code.GETFIELD, s.internString(v.Value))
	case identModuleVar:
		s.emitSelfModule()
		s.emit(code.GETFIELD, s.internString(v.Value))
	case identModuleAlias:
		s.emit(code.LOADM, s.internStringConst(pkgPathOf(sym)))
	case identClassOrTrait, identModuleFunc:
		s.emitSelfModule()
	}
}

func (s *State) emitInfix(v *ast.InfixExpression) {
	switch v.Operator {
	case "&&":
		s.emitExprLoad(v.Left)
		jfPos := s.emitJump(code.JUMP_FALSE)
		s.emitExprLoad(v.Right)
		jmpPos := s.emitJump(code.JUMP)
		s.patchJump(jfPos, s.unit.Code.len())
		s.emit(code.LOADK, s.internBool(false))
		s.patchJump(jmpPos, s.unit.Code.len())
		return
	case "||":
		s.emitExprLoad(v.Left)
		jtPos := s.emitJump(code.JUMP_TRUE)
		s.emitExprLoad(v.Right)
		jmpPos := s.emitJump(code.JUMP)
		s.patchJump(jtPos, s.unit.Code.len())
		s.emit(code.LOADK, s.internBool(true))
		s.patchJump(jmpPos, s.unit.Code.len())
		return
	}

	s.emitExprLoad(v.Right)
	s.emitExprLoad(v.Left)
	switch v.Operator {
	case "+":
		s.emit(code.ADD)
	case "-":
		s.emit(code.SUB)
	case "*":
		s.emit(code.MUL)
	case "/":
		s.emit(code.DIV)
	case "%":
		s.emit(code.MOD)
	case ">":
		s.emit(code.GT)
	case ">=":
		s.emit(code.GE)
	case "<":
		s.emit(code.LT)
	case "<=":
		s.emit(code.LE)
	case "==":
		s.emit(code.EQ)
	case "!=":
		s.emit(code.NEQ)
	}
}

func (s *State) emitCall(v *ast.CallExpression) {
	s.checkCallExpr(v)
	switch target := v.Function.(type) {
	case *ast.Identifier:
		sym, kind, ok := s.resolveIdent(target.Value)
		if !ok {
			s.errorf(target.Token.Line, "undefined function %q", target.Value)
			return
		}
		for _, a := range v.Arguments {
			s.emitExprLoad(a)
		}
		if kind == identClassOrTrait {
			s.emitSelfModule()
			s.emit(code.NEW, s.internString(target.Value), len(v.Arguments))
			return
		}
		switch kind {
		case identSelfField, identLocal:
			s.emitSelf()
		case identModuleAlias:
			s.emit(code.LOADM, s.internStringConst(pkgPathOf(sym)))
		default:
			s.emitSelfModule()
		}
		s.emit(code.CALL, s.internString(target.Value), len(v.Arguments))

	case *ast.AttributeExpression:
		for _, a := range v.Arguments {
			s.emitExprLoad(a)
		}
		s.emitExprLoad(target.Left)
		s.emit(code.CALL, s.internString(target.Name), len(v.Arguments))

	default:
		s.errorf(v.Token.Line, "indirect calls are not supported by this bytecode target")
	}
}

// emitGoCall mirrors emitCall but hands the resolved callable off to the
// scheduler via GO instead of invoking it inline (spec.md §4.7 `go f(...)`).
// An indirect or literal-function target has no statically resolvable
// name for GO's operand, so it is rejected the same way emitCall rejects it.
func (s *State) emitGoCall(v *ast.CallExpression) {
	s.checkCallExpr(v)
	switch target := v.Function.(type) {
	case *ast.Identifier:
		sym, kind, ok := s.resolveIdent(target.Value)
		if !ok {
			s.errorf(target.Token.Line, "undefined function %q", target.Value)
			return
		}
		for _, a := range v.Arguments {
			s.emitExprLoad(a)
		}
		switch kind {
		case identSelfField, identLocal:
			s.emitSelf()
		case identModuleAlias:
			s.emit(code.LOADM, s.internStringConst(pkgPathOf(sym)))
		default:
			s.emitSelfModule()
		}
		s.emit(code.GO, s.internString(target.Value), len(v.Arguments))

	case *ast.AttributeExpression:
		for _, a := range v.Arguments {
			s.emitExprLoad(a)
		}
		s.emitExprLoad(target.Left)
		s.emit(code.GO, s.internString(target.Name), len(v.Arguments))

	default:
		s.errorf(v.Token.Line, "indirect calls are not supported by this bytecode target")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
