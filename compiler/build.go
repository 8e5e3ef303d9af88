package compiler

import (
	"github.com/fangguanya/koala-lang/atom"
	"github.com/fangguanya/koala-lang/image"
	"github.com/fangguanya/koala-lang/symbol"
	"github.com/fangguanya/koala-lang/types"
)

// buildImage assembles the append-only item kinds (Var, Func, Code, Class,
// Field, Method, Trait, IMethod, LocalVar) from s.Module, s.classDecls/
// traitDecls, and s.bodies into s.Atoms, producing the final *image.Image.
// The structural-sharing kinds (String, Type, TypeList, Proto, Const) are
// already populated by the intern* helpers called during discovery/emission.
func (s *State) buildImage() *image.Image {
	img := &image.Image{PkgName: s.PkgName, Table: s.Atoms}

	traitClassIdx := make(map[*symbol.Symbol]int)
	for _, pt := range s.traitDecls {
		traitClassIdx[pt.sym] = s.emitTraitItem(pt)
	}
	for _, pt := range s.traitDecls {
		s.emitTraitMembers(pt, traitClassIdx)
	}

	classClassIdx := make(map[*symbol.Symbol]int)
	for _, pc := range s.classDecls {
		classClassIdx[pc.sym] = s.emitClassItem(pc)
	}
	for _, pc := range s.classDecls {
		s.emitClassMembers(pc, classClassIdx[pc.sym])
	}

	s.Module.Traverse(func(sym *symbol.Symbol) {
		switch sym.Kind {
		case symbol.KindVariable:
			s.Atoms.Insert(atom.KindVar, &atom.VarItem{
				NameIdx: s.internString(sym.Name),
				TypeIdx: s.internType(sym.Desc),
				Flags:   accessFlags(sym.Access == symbol.Public, sym.Const),
			}, false)
		case symbol.KindFuncProto:
			s.emitFuncItem(sym)
		}
	})

	return img
}

func (s *State) emitFuncItem(sym *symbol.Symbol) int {
	proto, _ := sym.Desc.(*types.ProtoType)
	body := s.bodies[sym]
	codeIdx := -1
	nlocals := 0
	if body != nil {
		codeIdx = s.Atoms.Insert(atom.KindCode, &atom.CodeItem{Bytes: body.code}, false)
		nlocals = len(body.locals)
		for _, l := range body.locals {
			s.Atoms.Insert(atom.KindLocalVar, &atom.LocalVarItem{
				NameIdx:  s.internString(l.Name),
				TypeIdx:  s.internType(l.Desc),
				Pos:      l.Slot,
				Flags:    atom.LocalVarFunc,
				OwnerIdx: -1,
			}, false)
		}
	}
	return s.Atoms.Insert(atom.KindFunc, &atom.FuncItem{
		NameIdx:  s.internString(sym.Name),
		ProtoIdx: s.internProto(proto),
		Access:   accessFlags(sym.Access == symbol.Public, false),
		Locvars:  nlocals,
		CodeIdx:  codeIdx,
	}, false)
}

func (s *State) emitClassItem(pc *pendingClass) int {
	superIdx := -1
	if pc.sym.Super != nil {
		superIdx = s.internType(types.NewUserDef("", pc.sym.Super.Name, 0))
	}
	return s.Atoms.Insert(atom.KindClass, &atom.ClassItem{
		ClassIdx:  s.internType(types.NewUserDef("", pc.sym.Name, 0)),
		Access:    accessFlags(pc.sym.Access == symbol.Public, false),
		SuperIdx:  superIdx,
		TraitsIdx: s.internNameList(pc.decl.Traits),
	}, false)
}

func (s *State) emitClassMembers(pc *pendingClass, ownerIdx int) {
	table := symbol.ChildTable(pc.sym)
	table.Traverse(func(sym *symbol.Symbol) {
		if sym.Inherited {
			return
		}
		switch sym.Kind {
		case symbol.KindVariable:
			s.Atoms.Insert(atom.KindField, &atom.FieldItem{
				ClassIdx: ownerIdx,
				NameIdx:  s.internString(sym.Name),
				TypeIdx:  s.internType(sym.Desc),
				Access:   accessFlags(sym.Access == symbol.Public, sym.Const),
			}, false)
		case symbol.KindFuncProto:
			proto, _ := sym.Desc.(*types.ProtoType)
			body := s.bodies[sym]
			codeIdx := -1
			nlocals := 0
			if body != nil {
				codeIdx = s.Atoms.Insert(atom.KindCode, &atom.CodeItem{Bytes: body.code}, false)
				nlocals = len(body.locals)
				for _, l := range body.locals {
					s.Atoms.Insert(atom.KindLocalVar, &atom.LocalVarItem{
						NameIdx:  s.internString(l.Name),
						TypeIdx:  s.internType(l.Desc),
						Pos:      l.Slot,
						Flags:    atom.LocalVarMethod,
						OwnerIdx: ownerIdx,
					}, false)
				}
			}
			s.Atoms.Insert(atom.KindMethod, &atom.MethodItem{
				ClassIdx: ownerIdx,
				NameIdx:  s.internString(sym.Name),
				ProtoIdx: s.internProto(proto),
				Access:   accessFlags(sym.Access == symbol.Public, false),
				Locvars:  nlocals,
				CodeIdx:  codeIdx,
			}, false)
		}
	})
}

func (s *State) emitTraitItem(pt *pendingTrait) int {
	return s.Atoms.Insert(atom.KindTrait, &atom.TraitItem{
		ClassIdx:  s.internType(types.NewUserDef("", pt.sym.Name, 0)),
		Access:    accessFlags(pt.sym.Access == symbol.Public, false),
		TraitsIdx: s.internNameList(pt.decl.Traits),
	}, false)
}

// encodeTraitOwner distinguishes a MethodItem's owning pool: the shared
// Method pool holds both class- and trait-concrete methods, so a trait
// owner index is encoded negative (-(idx+1)) while a class owner index
// stays non-negative — the loader decodes the sign to pick the right pool.
func encodeTraitOwner(traitPoolIdx int) int { return -(traitPoolIdx + 1) }

func (s *State) emitTraitMembers(pt *pendingTrait, idx map[*symbol.Symbol]int) {
	traitIdx := idx[pt.sym]
	methodOwner := encodeTraitOwner(traitIdx)
	table := symbol.ChildTable(pt.sym)
	table.Traverse(func(sym *symbol.Symbol) {
		if sym.Inherited {
			return
		}
		switch sym.Kind {
		case symbol.KindInterfaceProto:
			proto, _ := sym.Desc.(*types.ProtoType)
			s.Atoms.Insert(atom.KindIMethod, &atom.IMethodItem{
				ClassIdx: traitIdx,
				NameIdx:  s.internString(sym.Name),
				ProtoIdx: s.internProto(proto),
				Access:   accessFlags(sym.Access == symbol.Public, false),
			}, false)
		case symbol.KindFuncProto:
			proto, _ := sym.Desc.(*types.ProtoType)
			body := s.bodies[sym]
			codeIdx := -1
			nlocals := 0
			if body != nil {
				codeIdx = s.Atoms.Insert(atom.KindCode, &atom.CodeItem{Bytes: body.code}, false)
				nlocals = len(body.locals)
				for _, l := range body.locals {
					s.Atoms.Insert(atom.KindLocalVar, &atom.LocalVarItem{
						NameIdx:  s.internString(l.Name),
						TypeIdx:  s.internType(l.Desc),
						Pos:      l.Slot,
						Flags:    atom.LocalVarMethod,
						OwnerIdx: traitIdx,
					}, false)
				}
			}
			s.Atoms.Insert(atom.KindMethod, &atom.MethodItem{
				ClassIdx: methodOwner,
				NameIdx:  s.internString(sym.Name),
				ProtoIdx: s.internProto(proto),
				Access:   accessFlags(sym.Access == symbol.Public, false),
				Locvars:  nlocals,
				CodeIdx:  codeIdx,
			}, false)
		}
	})
}
