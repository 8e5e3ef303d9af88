package compiler

import (
	"github.com/fangguanya/koala-lang/ast"
	"github.com/fangguanya/koala-lang/symbol"
	"github.com/fangguanya/koala-lang/types"
)

// inferExprType is inferType's general-purpose counterpart: a best-effort
// static type for any expression, not just a var declaration's initializer,
// used to type-check call arguments, declared-vs-RHS assignment, and
// if/while conditions (spec.md §4.4 "Type checking and inference").
// Anything it can't resolve statically (index/attribute access into a
// dynamically-dispatched receiver) falls back to Any, matching inferType's
// own conservative default.
func (s *State) inferExprType(e ast.Expression) types.TypeDesc {
	switch v := e.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.Boolean, *ast.StringLiteral, *ast.NilLiteral:
		return inferType(e)
	case *ast.ArrayLiteral:
		if len(v.Elements) > 0 {
			return bumpDims(s.inferExprType(v.Elements[0]))
		}
		return types.NewPrimitive(types.Any, 1)
	case *ast.ParenExpr:
		return s.inferExprType(v.Inner)
	case *ast.SelfExpr:
		if s.unit != nil && s.unit.SelfClass != nil {
			return selfType(s.unit.SelfClass.Name)
		}
		return types.NewPrimitive(types.Any, 0)
	case *ast.Identifier:
		sym, _, ok := s.resolveIdent(v.Value)
		if !ok {
			return types.NewPrimitive(types.Any, 0)
		}
		return sym.Desc
	case *ast.PrefixExpression:
		if v.Operator == "!" {
			return types.NewPrimitive(types.Bool, 0)
		}
		return s.inferExprType(v.Right)
	case *ast.InfixExpression:
		switch v.Operator {
		case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
			return types.NewPrimitive(types.Bool, 0)
		default:
			return s.inferExprType(v.Left)
		}
	case *ast.AttributeExpression:
		return s.lookupFieldType(s.inferExprType(v.Left), v.Name)
	case *ast.CallExpression:
		proto := s.resolveCallProto(v)
		if proto == nil || len(proto.Returns) == 0 {
			return types.NewPrimitive(types.Any, 0)
		}
		return proto.Returns[0]
	default:
		return types.NewPrimitive(types.Any, 0)
	}
}

// lookupFieldType resolves a UserDefType's field by name against its
// class/trait member table; anything else (an index into an Array, an
// unresolved receiver) is untracked statically and reads as Any.
func (s *State) lookupFieldType(recvType types.TypeDesc, name string) types.TypeDesc {
	ud, ok := recvType.(*types.UserDefType)
	if !ok {
		return types.NewPrimitive(types.Any, 0)
	}
	classSym, ok := s.Module.Get(ud.Name)
	if !ok {
		return types.NewPrimitive(types.Any, 0)
	}
	table := symbol.ChildTable(classSym)
	if table == nil {
		return types.NewPrimitive(types.Any, 0)
	}
	if fsym, ok := table.Get(name); ok {
		return fsym.Desc
	}
	return types.NewPrimitive(types.Any, 0)
}

// resolveCallProto finds the ProtoType a CallExpression's target resolves
// to, whether a bare identifier (function, class constructor) or an
// attribute call on some receiver expression.
func (s *State) resolveCallProto(v *ast.CallExpression) *types.ProtoType {
	switch target := v.Function.(type) {
	case *ast.Identifier:
		sym, kind, ok := s.resolveIdent(target.Value)
		if !ok {
			return nil
		}
		if kind == identClassOrTrait {
			return s.ctorProto(sym)
		}
		proto, _ := sym.Desc.(*types.ProtoType)
		return proto
	case *ast.AttributeExpression:
		return s.lookupMethodProto(s.inferExprType(target.Left), target.Name)
	default:
		return nil
	}
}

// ctorProto returns a class's "__init__" signature, or an empty (no-arg)
// proto when the class declares none (spec.md §4.6: a class with no
// constructor still accepts NEW with zero arguments).
func (s *State) ctorProto(classSym *symbol.Symbol) *types.ProtoType {
	table := symbol.ChildTable(classSym)
	if table == nil {
		return nil
	}
	if initSym, ok := table.Get("__init__"); ok {
		proto, _ := initSym.Desc.(*types.ProtoType)
		return proto
	}
	return types.NewProto(nil, nil, false)
}

func (s *State) lookupMethodProto(recvType types.TypeDesc, name string) *types.ProtoType {
	ud, ok := recvType.(*types.UserDefType)
	if !ok {
		return nil
	}
	classSym, ok := s.Module.Get(ud.Name)
	if !ok {
		return nil
	}
	table := symbol.ChildTable(classSym)
	if table == nil {
		return nil
	}
	msym, ok := table.Get(name)
	if !ok {
		return nil
	}
	proto, _ := msym.Desc.(*types.ProtoType)
	return proto
}

func calleeName(e ast.Expression) string {
	switch v := e.(type) {
	case *ast.Identifier:
		return v.Value
	case *ast.AttributeExpression:
		return v.Name
	default:
		return "call"
	}
}

// checkCallArgs type-checks a call's argument list against proto, including
// spec.md §8 Scenario F's varargs arity check: a varargs proto's last
// parameter type applies to every argument from its position onward, and
// the call must supply at least that many fixed arguments.
func (s *State) checkCallArgs(proto *types.ProtoType, args []ast.Expression, line int, name string) {
	if proto == nil {
		return
	}
	fixed := len(proto.Params)
	if proto.Varargs {
		fixed--
	}
	if len(args) < fixed || (!proto.Varargs && len(args) != len(proto.Params)) {
		s.errorf(line, "%s expects %d argument(s), got %d", name, len(proto.Params), len(args))
		return
	}
	for i, a := range args {
		var want types.TypeDesc
		switch {
		case i < fixed:
			want = proto.Params[i]
		case proto.Varargs:
			want = proto.Params[len(proto.Params)-1]
		default:
			continue
		}
		got := s.inferExprType(a)
		if !types.Check(want, got) {
			s.errorf(line, "%s argument %d: cannot use %s as %s", name, i+1, got.String(), want.String())
		}
	}
}

// checkCallExpr is the entry point wired into emitCall/emitGoCall.
func (s *State) checkCallExpr(v *ast.CallExpression) {
	proto := s.resolveCallProto(v)
	s.checkCallArgs(proto, v.Arguments, v.Token.Line, calleeName(v.Function))
}

// checkVarDeclType checks an explicitly-typed var declaration's initializer
// against its declared type; a declaration without both a type and a value
// has nothing to compare.
func (s *State) checkVarDeclType(d *ast.VarDecl) {
	if d.Type == nil || d.Value == nil {
		return
	}
	want := s.resolveTypeExpr(*d.Type)
	got := s.inferExprType(d.Value)
	if !types.Check(want, got) {
		s.errorf(d.Token.Line, "cannot assign %s to %q (declared %s)", got.String(), d.Name.Value, want.String())
	}
}

// checkBoolCondition enforces spec.md §4.4's if/while-condition-must-be-Bool
// rule.
func (s *State) checkBoolCondition(e ast.Expression, line int, context string) {
	got := s.inferExprType(e)
	if !types.Check(types.NewPrimitive(types.Bool, 0), got) {
		s.errorf(line, "%s condition must be bool, got %s", context, got.String())
	}
}

// checkReturn type-checks a return statement's value list against the
// enclosing function/method's declared return types.
func (s *State) checkReturn(v *ast.ReturnStatement) {
	if s.unit == nil {
		return
	}
	want := s.unit.Returns
	if len(v.Values) != len(want) {
		s.errorf(v.Token.Line, "expected %d return value(s), got %d", len(want), len(v.Values))
		return
	}
	for i, val := range v.Values {
		got := s.inferExprType(val)
		if !types.Check(want[i], got) {
			s.errorf(v.Token.Line, "return value %d: cannot use %s as %s", i+1, got.String(), want[i].String())
		}
	}
}

// checkUnusedSymbols warns on never-referenced imports and private
// module/class/trait members, via symbol.Symbol.Refs (spec.md §4.4's
// unused-import/unused-symbol diagnostics). Public members are excluded —
// they may be used from another module, which this single-module pass
// cannot see — and inherited/"__init__" entries are never flagged.
func (s *State) checkUnusedSymbols() {
	s.Module.Traverse(func(sym *symbol.Symbol) {
		switch sym.Kind {
		case symbol.KindModuleAlias:
			if sym.Refs == 0 {
				s.warnf("unused import %q", sym.Name)
			}
		case symbol.KindVariable, symbol.KindFuncProto:
			if sym.Access == symbol.Private && sym.Refs == 0 && sym.Name != "main" && sym.Name != "__init__" {
				s.warnf("unused symbol %q", sym.Name)
			}
		}
	})
	for _, pc := range s.classDecls {
		s.checkUnusedMembers(pc.sym)
	}
	for _, pt := range s.traitDecls {
		s.checkUnusedMembers(pt.sym)
	}
}

func (s *State) checkUnusedMembers(owner *symbol.Symbol) {
	table := symbol.ChildTable(owner)
	if table == nil {
		return
	}
	table.Traverse(func(sym *symbol.Symbol) {
		if sym.Inherited || sym.Name == "__init__" || sym.Access != symbol.Private {
			return
		}
		if sym.Refs == 0 {
			s.warnf("unused member %q.%q", owner.Name, sym.Name)
		}
	})
}
