package parser

import (
	"testing"

	"github.com/fangguanya/koala-lang/ast"
	"github.com/fangguanya/koala-lang/lexer"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return program
}

func TestParseVarDeclWithTypeAndValue(t *testing.T) {
	program := parseProgram(t, "var x int = 5;")
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(program.Statements))
	}
	decl, ok := program.Statements[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected *ast.VarDecl, got %T", program.Statements[0])
	}
	if decl.Name.Value != "x" {
		t.Errorf("expected name 'x', got %q", decl.Name.Value)
	}
	if decl.Type == nil || decl.Type.Name != "int" {
		t.Fatalf("expected type 'int', got %v", decl.Type)
	}
	lit, ok := decl.Value.(*ast.IntegerLiteral)
	if !ok || lit.Value != 5 {
		t.Fatalf("expected value 5, got %v", decl.Value)
	}
}

func TestParseVarDeclListMultipleNames(t *testing.T) {
	program := parseProgram(t, "var a, b = 1, 2;")
	list, ok := program.Statements[0].(*ast.VarDeclList)
	if !ok {
		t.Fatalf("expected *ast.VarDeclList, got %T", program.Statements[0])
	}
	if len(list.Decls) != 2 {
		t.Fatalf("expected 2 decls, got %d", len(list.Decls))
	}
	if list.Decls[0].Name.Value != "a" || list.Decls[1].Name.Value != "b" {
		t.Fatalf("expected names a,b, got %s,%s", list.Decls[0].Name.Value, list.Decls[1].Name.Value)
	}
}

func TestParseConstDecl(t *testing.T) {
	program := parseProgram(t, "const pi float = 3;")
	decl := program.Statements[0].(*ast.VarDecl)
	if !decl.Const {
		t.Fatal("expected Const to be true")
	}
}

func TestParseInfixExpressionPrecedence(t *testing.T) {
	program := parseProgram(t, "1 + 2 * 3;")
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	infix, ok := stmt.Expression.(*ast.InfixExpression)
	if !ok {
		t.Fatalf("expected *ast.InfixExpression, got %T", stmt.Expression)
	}
	if infix.Operator != "+" {
		t.Fatalf("expected top-level operator '+', got %q", infix.Operator)
	}
	right, ok := infix.Right.(*ast.InfixExpression)
	if !ok || right.Operator != "*" {
		t.Fatalf("expected right side to be a '*' expression, got %v", infix.Right)
	}
}

func TestParsePrefixExpression(t *testing.T) {
	program := parseProgram(t, "-5;")
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	pre, ok := stmt.Expression.(*ast.PrefixExpression)
	if !ok || pre.Operator != "-" {
		t.Fatalf("expected prefix '-', got %v", stmt.Expression)
	}
}

func TestParseCallExpression(t *testing.T) {
	program := parseProgram(t, "add(1, 2);")
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected *ast.CallExpression, got %T", stmt.Expression)
	}
	if len(call.Arguments) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(call.Arguments))
	}
	fn, ok := call.Function.(*ast.Identifier)
	if !ok || fn.Value != "add" {
		t.Fatalf("expected callee 'add', got %v", call.Function)
	}
}

func TestParseArrayLiteral(t *testing.T) {
	program := parseProgram(t, "[1, 2, 3];")
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	arr, ok := stmt.Expression.(*ast.ArrayLiteral)
	if !ok {
		t.Fatalf("expected *ast.ArrayLiteral, got %T", stmt.Expression)
	}
	if len(arr.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(arr.Elements))
	}
}

func TestParseIfElseStatement(t *testing.T) {
	program := parseProgram(t, "if (x) { return 1; } else { return 2; }")
	ifStmt, ok := program.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected *ast.IfStatement, got %T", program.Statements[0])
	}
	if ifStmt.Consequence == nil || len(ifStmt.Consequence.Statements) != 1 {
		t.Fatalf("expected 1 statement in consequence")
	}
	if ifStmt.Alternative == nil || len(ifStmt.Alternative.Statements) != 1 {
		t.Fatalf("expected 1 statement in alternative")
	}
}

func TestParseWhileStatement(t *testing.T) {
	program := parseProgram(t, "while (x < 10) { x = x + 1; }")
	w, ok := program.Statements[0].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected *ast.WhileStatement, got %T", program.Statements[0])
	}
	cond, ok := w.Condition.(*ast.InfixExpression)
	if !ok || cond.Operator != "<" {
		t.Fatalf("expected condition 'x < 10', got %v", w.Condition)
	}
}

func TestParseReturnStatementMultipleValues(t *testing.T) {
	program := parseProgram(t, "func f() int, int { return 1, 2; }")
	decl := program.Statements[0].(*ast.FuncDecl)
	body := decl.Fn.Body
	ret, ok := body.Statements[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("expected *ast.ReturnStatement, got %T", body.Statements[0])
	}
	if len(ret.Values) != 2 {
		t.Fatalf("expected 2 return values, got %d", len(ret.Values))
	}
}

func TestParseClassDeclWithExtendsAndTraits(t *testing.T) {
	input := `class Dog extends Animal with Named, Trainable {
		var name string;
		func speak() {
			return name;
		}
	}`
	program := parseProgram(t, input)
	class, ok := program.Statements[0].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected *ast.ClassDecl, got %T", program.Statements[0])
	}
	if class.Name != "Dog" {
		t.Fatalf("expected class name 'Dog', got %q", class.Name)
	}
	if class.Extends != "Animal" {
		t.Fatalf("expected extends 'Animal', got %q", class.Extends)
	}
	if len(class.Traits) != 2 || class.Traits[0] != "Named" || class.Traits[1] != "Trainable" {
		t.Fatalf("expected traits [Named, Trainable], got %v", class.Traits)
	}
	if len(class.Fields) != 1 || class.Fields[0].Name.Value != "name" {
		t.Fatalf("expected 1 field 'name', got %v", class.Fields)
	}
	if len(class.Methods) != 1 || class.Methods[0].Fn.Name != "speak" {
		t.Fatalf("expected 1 method 'speak', got %v", class.Methods)
	}
}

func TestParseImportDeclWithAlias(t *testing.T) {
	program := parseProgram(t, `import "net/http" as http;`)
	imp, ok := program.Statements[0].(*ast.ImportDecl)
	if !ok {
		t.Fatalf("expected *ast.ImportDecl, got %T", program.Statements[0])
	}
	if imp.Path != "net/http" || imp.Alias != "http" {
		t.Fatalf("expected path 'net/http' alias 'http', got %q %q", imp.Path, imp.Alias)
	}
}

func TestParseBreakWithLevel(t *testing.T) {
	program := parseProgram(t, "while (true) { break 2; }")
	w := program.Statements[0].(*ast.WhileStatement)
	brk, ok := w.Body.Statements[0].(*ast.BreakStatement)
	if !ok {
		t.Fatalf("expected *ast.BreakStatement, got %T", w.Body.Statements[0])
	}
	if brk.Level != 2 {
		t.Fatalf("expected break level 2, got %d", brk.Level)
	}
}

func TestParserRecordsErrorOnMissingToken(t *testing.T) {
	p := New(lexer.New("var x = ;"))
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatal("expected a parse error for a missing expression after '='")
	}
}
