package compiler

import (
	"github.com/fangguanya/koala-lang/ast"
	"github.com/fangguanya/koala-lang/symbol"
)

// discoverProgram is pass 1 (spec.md §4.4 "Two-pass discovery"): it
// registers every name a module exposes — imports, type aliases, top-level
// vars/funcs, and class/trait member tables including inherited members —
// before pass 2 (emitProgram) compiles any bodies, so forward references
// anywhere in the file resolve correctly.
func (s *State) discoverProgram(prog *ast.Program) {
	// A. bare class/trait symbols, so extends/with can reference a name
	// declared later in the file.
	for _, stmt := range prog.Statements {
		switch d := stmt.(type) {
		case *ast.ClassDecl:
			sym, err := s.Module.AddClass(d.Name)
			if err != nil {
				s.errorf(d.Token.Line, "%v", err)
				continue
			}
			s.classDecls = append(s.classDecls, &pendingClass{sym, d})
		case *ast.TraitDecl:
			sym, err := s.Module.AddTrait(d.Name)
			if err != nil {
				s.errorf(d.Token.Line, "%v", err)
				continue
			}
			s.traitDecls = append(s.traitDecls, &pendingTrait{sym, d})
		}
	}

	// B. each trait's own protos and concrete methods.
	for _, pt := range s.traitDecls {
		table := symbol.ChildTable(pt.sym)
		for _, proto := range pt.decl.Protos {
			if _, err := table.AddInterfaceProto(proto.Name, s.protoFromParams(proto.Parameters, proto.Returns, proto.Varargs)); err != nil {
				s.errorf(proto.Token.Line, "%v", err)
			}
		}
		for _, m := range pt.decl.Methods {
			if _, err := table.AddFuncProto(m.Fn.Name, s.protoFromFuncLit(m.Fn)); err != nil {
				s.errorf(m.Token.Line, "%v", err)
			}
		}
	}

	// C. trait mixins, now that every trait's own members exist.
	for _, pt := range s.traitDecls {
		table := symbol.ChildTable(pt.sym)
		for _, tname := range pt.decl.Traits {
			src, ok := s.Module.Get(tname)
			if !ok || src.Kind != symbol.KindTrait {
				s.errorf(pt.decl.Token.Line, "unknown trait %q", tname)
				continue
			}
			symbol.ChildTable(src).Traverse(func(sym *symbol.Symbol) { table.AddInherited(sym) })
		}
	}

	// D. each class's own fields and method protos.
	for _, pc := range s.classDecls {
		table := symbol.ChildTable(pc.sym)
		for _, f := range pc.decl.Fields {
			if _, err := table.AddVar(f.Name.Value, s.resolveVarType(f), f.Const); err != nil {
				s.errorf(f.Token.Line, "%v", err)
			}
		}
		for _, m := range pc.decl.Methods {
			if _, err := table.AddFuncProto(m.Fn.Name, s.protoFromFuncLit(m.Fn)); err != nil {
				s.errorf(m.Token.Line, "%v", err)
			}
		}
	}

	// E. class inheritance: extends then with, now that every class's own
	// members exist (a super declared later in the file will simply
	// contribute no inherited members — a documented limitation).
	for _, pc := range s.classDecls {
		table := symbol.ChildTable(pc.sym)
		if pc.decl.Extends != "" {
			super, ok := s.Module.Get(pc.decl.Extends)
			if !ok || super.Kind != symbol.KindClass {
				s.errorf(pc.decl.Token.Line, "unknown superclass %q", pc.decl.Extends)
			} else {
				pc.sym.Super = super
				symbol.ChildTable(super).Traverse(func(sym *symbol.Symbol) { table.AddInherited(sym) })
			}
		}
		for _, tname := range pc.decl.Traits {
			src, ok := s.Module.Get(tname)
			if !ok || src.Kind != symbol.KindTrait {
				s.errorf(pc.decl.Token.Line, "unknown trait %q", tname)
				continue
			}
			symbol.ChildTable(src).Traverse(func(sym *symbol.Symbol) { table.AddInherited(sym) })
		}
	}

	// F. imports, type aliases, top-level vars and funcs.
	for _, stmt := range prog.Statements {
		switch d := stmt.(type) {
		case *ast.ImportDecl:
			alias := d.Alias
			if alias == "" {
				alias = lastPathComponent(d.Path)
			}
			if _, err := s.Module.AddAlias(alias, d.Path); err != nil {
				s.errorf(d.Token.Line, "%v", err)
			}
		case *ast.TypeAliasDecl:
			s.aliases[d.Name] = d.Type
		case *ast.VarDecl:
			s.declareTopVar(d)
		case *ast.VarDeclList:
			for _, vd := range d.Decls {
				s.declareTopVar(vd)
			}
		case *ast.FuncDecl:
			if _, err := s.Module.AddFuncProto(d.Fn.Name, s.protoFromFuncLit(d.Fn)); err != nil {
				s.errorf(d.Token.Line, "%v", err)
			}
		}
	}
}

func (s *State) declareTopVar(d *ast.VarDecl) {
	if _, err := s.Module.AddVar(d.Name.Value, s.resolveVarType(d), d.Const); err != nil {
		s.errorf(d.Token.Line, "%v", err)
	}
}
