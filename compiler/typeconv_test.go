package compiler

import (
	"testing"

	"github.com/fangguanya/koala-lang/ast"
	"github.com/fangguanya/koala-lang/types"
)

func TestResolveTypeExprPrimitive(t *testing.T) {
	s := NewState("demo")
	desc := s.resolveTypeExpr(ast.TypeExpr{Name: "int", Dims: 1})
	prim, ok := desc.(*types.PrimitiveType)
	if !ok || prim.Kind != types.Int || prim.Dims() != 1 {
		t.Fatalf("expected []int, got %v", desc)
	}
}

func TestResolveTypeExprUserDef(t *testing.T) {
	s := NewState("demo")
	desc := s.resolveTypeExpr(ast.TypeExpr{Name: "Animal"})
	ud, ok := desc.(*types.UserDefType)
	if !ok || ud.Name != "Animal" {
		t.Fatalf("expected a UserDefType named 'Animal', got %v", desc)
	}
}

func TestResolveTypeExprSubstitutesAliasAndAddsDims(t *testing.T) {
	s := NewState("demo")
	s.aliases["Id"] = ast.TypeExpr{Name: "int", Dims: 0}

	desc := s.resolveTypeExpr(ast.TypeExpr{Name: "Id", Dims: 2})
	prim, ok := desc.(*types.PrimitiveType)
	if !ok || prim.Kind != types.Int || prim.Dims() != 2 {
		t.Fatalf("expected [][]int after alias substitution, got %v", desc)
	}
}

func TestResolveTypeExprQualifiedNameSkipsAliasLookup(t *testing.T) {
	s := NewState("demo")
	s.aliases["Animal"] = ast.TypeExpr{Name: "int"}

	desc := s.resolveTypeExpr(ast.TypeExpr{Path: "zoo", Name: "Animal"})
	ud, ok := desc.(*types.UserDefType)
	if !ok || ud.Path != "zoo" || ud.Name != "Animal" {
		t.Fatalf("expected a qualified UserDefType zoo.Animal, got %v", desc)
	}
}

func TestProtoFromParamsExcludesSelf(t *testing.T) {
	s := NewState("demo")
	params := []*ast.Param{
		{Name: &ast.Identifier{Value: "n"}, Type: ast.TypeExpr{Name: "int"}},
	}
	returns := []ast.TypeExpr{{Name: "bool"}}

	proto := s.protoFromParams(params, returns, false)
	if len(proto.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(proto.Params))
	}
	if len(proto.Returns) != 1 {
		t.Fatalf("expected 1 return, got %d", len(proto.Returns))
	}
	if proto.Varargs {
		t.Fatal("expected Varargs false")
	}
}

func TestSelfTypeNamesOwningClassInCurrentModule(t *testing.T) {
	desc := selfType("Dog")
	ud, ok := desc.(*types.UserDefType)
	if !ok || ud.Name != "Dog" || ud.Path != "" {
		t.Fatalf("expected an unqualified UserDefType 'Dog', got %v", desc)
	}
}

func TestInferTypeFromLiterals(t *testing.T) {
	tests := []struct {
		expr ast.Expression
		want types.Primitive
	}{
		{&ast.IntegerLiteral{Value: 1}, types.Int},
		{&ast.FloatLiteral{Value: 1.5}, types.Float},
		{&ast.Boolean{Value: true}, types.Bool},
		{&ast.StringLiteral{Value: "x"}, types.StringKind},
	}

	for _, tt := range tests {
		desc := inferType(tt.expr)
		prim, ok := desc.(*types.PrimitiveType)
		if !ok || prim.Kind != tt.want {
			t.Errorf("inferType(%T) = %v, want primitive %v", tt.expr, desc, tt.want)
		}
	}
}

func TestInferTypeArrayLiteralBumpsElementDims(t *testing.T) {
	arr := &ast.ArrayLiteral{Elements: []ast.Expression{&ast.IntegerLiteral{Value: 1}}}
	desc := inferType(arr)
	prim, ok := desc.(*types.PrimitiveType)
	if !ok || prim.Kind != types.Int || prim.Dims() != 1 {
		t.Fatalf("expected []int from an array of ints, got %v", desc)
	}
}

func TestInferTypeEmptyArrayDefaultsToAnyArray(t *testing.T) {
	arr := &ast.ArrayLiteral{}
	desc := inferType(arr)
	prim, ok := desc.(*types.PrimitiveType)
	if !ok || prim.Kind != types.Any || prim.Dims() != 1 {
		t.Fatalf("expected []any for an empty array literal, got %v", desc)
	}
}

func TestResolveVarTypeInfersFromValueWhenTypeOmitted(t *testing.T) {
	s := NewState("demo")
	decl := &ast.VarDecl{Value: &ast.IntegerLiteral{Value: 3}}
	desc := s.resolveVarType(decl)
	prim, ok := desc.(*types.PrimitiveType)
	if !ok || prim.Kind != types.Int {
		t.Fatalf("expected inferred int, got %v", desc)
	}
}

func TestResolveVarTypeFallsBackToAnyWithoutTypeOrValue(t *testing.T) {
	s := NewState("demo")
	desc := s.resolveVarType(&ast.VarDecl{})
	prim, ok := desc.(*types.PrimitiveType)
	if !ok || prim.Kind != types.Any {
		t.Fatalf("expected Any when neither a type nor a value is given, got %v", desc)
	}
}

func TestLastPathComponent(t *testing.T) {
	if got := lastPathComponent("a/b/c"); got != "c" {
		t.Errorf("lastPathComponent(a/b/c) = %q, want c", got)
	}
	if got := lastPathComponent("single"); got != "single" {
		t.Errorf("lastPathComponent(single) = %q, want single", got)
	}
}
