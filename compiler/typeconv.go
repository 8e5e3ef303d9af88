package compiler

import (
	"github.com/fangguanya/koala-lang/ast"
	"github.com/fangguanya/koala-lang/types"
)

// resolveTypeExpr turns a parsed, unresolved [ast.TypeExpr] into a
// types.TypeDesc, substituting one level of typealias per spec.md §4.4
// "Type checking and inference" (aliases are a pre-analysis textual
// substitution, not a distinct TypeDesc variant).
func (s *State) resolveTypeExpr(te ast.TypeExpr) types.TypeDesc {
	if te.Path == "" {
		if target, ok := s.aliases[te.Name]; ok {
			combined := target
			combined.Dims += te.Dims
			return s.resolveTypeExpr(combined)
		}
		if prim, ok := types.ParsePrimitive(te.Name); ok {
			return types.NewPrimitive(prim, te.Dims)
		}
	}
	return types.NewUserDef(te.Path, te.Name, te.Dims)
}

// protoFromParams builds a ProtoType from surface parameter/return
// annotations. The receiver (`self`) is never part of a proto's Params: the
// CALL/NEW opcodes always pop the receiver separately from the argument list.
func (s *State) protoFromParams(params []*ast.Param, returns []ast.TypeExpr, varargs bool) *types.ProtoType {
	pts := make([]types.TypeDesc, 0, len(params))
	for _, p := range params {
		pts = append(pts, s.resolveTypeExpr(p.Type))
	}
	rts := make([]types.TypeDesc, 0, len(returns))
	for _, r := range returns {
		rts = append(rts, s.resolveTypeExpr(r))
	}
	return types.NewProto(pts, rts, varargs)
}

func (s *State) protoFromFuncLit(fn *ast.FunctionLiteral) *types.ProtoType {
	return s.protoFromParams(fn.Parameters, fn.Returns, fn.Varargs)
}

// selfType returns the TypeDesc a method's implicit `self` parameter carries:
// the owning class/trait, by name, in the current module.
func selfType(className string) types.TypeDesc {
	return types.NewUserDef("", className, 0)
}
