package vm

import (
	"github.com/fangguanya/koala-lang/atom"
	"github.com/fangguanya/koala-lang/image"
	"github.com/fangguanya/koala-lang/object"
)

// Load deserializes img into a runtime [object.Module]: every Class/Trait/
// Func/Var item is materialized as its runtime counterpart and wired
// together (super links, trait mixins, method tables), but field/local
// slots are left at their zero value — actual initialization happens when
// the module's __init__ body runs (spec.md §4.6 "initializers run once, on
// first load").
func Load(img *image.Image) (*object.Module, error) {
	t := img.Table
	mod := object.NewModule(img.PkgName)
	mod.Atoms = t

	str := func(idx int) string {
		if idx < 0 {
			return ""
		}
		return t.Get(atom.KindString, idx).(*atom.StringItem).Value
	}
	typeName := func(typeIdx int) string {
		ti := t.Get(atom.KindType, typeIdx).(*atom.TypeItem)
		if ti.Kind != atom.TypeUserDef {
			return ""
		}
		return str(ti.NameIdx)
	}
	traitNames := func(listIdx int) []string {
		if listIdx < 0 {
			return nil
		}
		names := make([]string, 0)
		for _, idx := range t.Get(atom.KindTypeList, listIdx).(*atom.TypeListItem).Indices {
			names = append(names, typeName(idx))
		}
		return names
	}
	numParams := func(protoIdx int) int {
		p := t.Get(atom.KindProto, protoIdx).(*atom.ProtoItem)
		if p.ParamsIdx < 0 {
			return 0
		}
		return len(t.Get(atom.KindTypeList, p.ParamsIdx).(*atom.TypeListItem).Indices)
	}
	loadCode := func(codeIdx int) []byte {
		if codeIdx < 0 {
			return nil
		}
		return t.Get(atom.KindCode, codeIdx).(*atom.CodeItem).Bytes
	}

	classes := make([]*object.Class, t.Size(atom.KindClass))
	traits := make([]*object.Trait, t.Size(atom.KindTrait))

	t.Each(atom.KindTrait, func(i int, it atom.Item) {
		ti := it.(*atom.TraitItem)
		name := typeName(ti.ClassIdx)
		tr := object.NewTrait(name, mod)
		traits[i] = tr
		mod.Traits[name] = tr
	})
	t.Each(atom.KindTrait, func(i int, it atom.Item) {
		ti := it.(*atom.TraitItem)
		for _, name := range traitNames(ti.TraitsIdx) {
			if sub, ok := mod.Traits[name]; ok {
				traits[i].Traits = append(traits[i].Traits, sub)
			}
		}
	})

	t.Each(atom.KindClass, func(i int, it atom.Item) {
		ci := it.(*atom.ClassItem)
		name := typeName(ci.ClassIdx)
		c := object.NewClass(name, mod)
		classes[i] = c
		mod.Classes[name] = c
	})
	t.Each(atom.KindClass, func(i int, it atom.Item) {
		ci := it.(*atom.ClassItem)
		c := classes[i]
		if ci.SuperIdx >= 0 {
			if super, ok := mod.Classes[typeName(ci.SuperIdx)]; ok {
				c.Super = super
			}
		}
		for _, name := range traitNames(ci.TraitsIdx) {
			if tr, ok := mod.Traits[name]; ok {
				c.Traits = append(c.Traits, tr)
			}
		}
	})

	t.Each(atom.KindField, func(_ int, it atom.Item) {
		fi := it.(*atom.FieldItem)
		if fi.ClassIdx < 0 || fi.ClassIdx >= len(classes) || classes[fi.ClassIdx] == nil {
			return
		}
		classes[fi.ClassIdx].Fields[str(fi.NameIdx)] = &object.Nil{}
	})

	t.Each(atom.KindMethod, func(_ int, it atom.Item) {
		mi := it.(*atom.MethodItem)
		name := str(mi.NameIdx)
		fn := &object.KFunc{
			Name:      name,
			Owner:     mod,
			Code:      loadCode(mi.CodeIdx),
			NumLocals: mi.Locvars,
			NumParams: numParams(mi.ProtoIdx),
		}
		if mi.ClassIdx < 0 {
			traitIdx := -(mi.ClassIdx + 1)
			if traitIdx >= 0 && traitIdx < len(traits) && traits[traitIdx] != nil {
				traits[traitIdx].Methods[name] = fn
			}
			return
		}
		if mi.ClassIdx < len(classes) && classes[mi.ClassIdx] != nil {
			fn.Class = classes[mi.ClassIdx]
			classes[mi.ClassIdx].Methods[name] = fn
		}
	})

	t.Each(atom.KindVar, func(_ int, it atom.Item) {
		vi := it.(*atom.VarItem)
		mod.Fields[str(vi.NameIdx)] = &object.Nil{}
	})

	t.Each(atom.KindFunc, func(_ int, it atom.Item) {
		fi := it.(*atom.FuncItem)
		name := str(fi.NameIdx)
		fn := &object.KFunc{
			Name:      name,
			Owner:     mod,
			Code:      loadCode(fi.CodeIdx),
			NumLocals: fi.Locvars,
			NumParams: numParams(fi.ProtoIdx),
		}
		if name == "__init__" {
			mod.Init = fn
			return
		}
		mod.Funcs[name] = fn
	})

	return mod, nil
}
