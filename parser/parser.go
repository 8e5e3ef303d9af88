// Package parser implements the syntactic analyzer for the Koala
// programming language.
//
// The parser takes a stream of tokens from the lexer and constructs an
// Abstract Syntax Tree (AST) that represents the structure of the program.
// It is a recursive-descent, Pratt-style expression parser (precedence
// climbing for binary/unary operators) covering Koala's full grammar: typed
// var decls, class/trait declarations with extends/with, imports,
// typealiases, for-triple and for-each loops, switch, break/continue with an
// optional level, and the go statement. Three tokens of lookahead (current,
// peek, peek2) are buffered, because distinguishing a for-each clause
// (`x := range e`) from a for-triple clause requires seeing two tokens past
// the opening paren.
package parser

import (
	"fmt"
	"strconv"

	"github.com/fangguanya/koala-lang/ast"
	"github.com/fangguanya/koala-lang/lexer"
	"github.com/fangguanya/koala-lang/token"
)

const (
	_ int = iota

	Lowest
	LogicalOr  // ||
	LogicalAnd // &&
	Equals     // == !=
	LessGreater // > < >= <=
	Sum        // + -
	Product    // * / %
	Prefix     // -x !x ~x
	Call       // f(x)
	Index      // arr[i] or e.id
)

var precedences = map[token.Type]int{
	token.OrOr:     LogicalOr,
	token.AndAnd:   LogicalAnd,
	token.Eq:       Equals,
	token.NotEq:    Equals,
	token.Lt:       LessGreater,
	token.Lte:      LessGreater,
	token.Gt:       LessGreater,
	token.Gte:      LessGreater,
	token.Plus:     Sum,
	token.Minus:    Sum,
	token.Slash:    Product,
	token.Asterisk: Product,
	token.Percent:  Product,
	token.Lparen:   Call,
	token.Lbracket: Index,
	token.Dot:      Index,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser represents a Koala parser.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	currentToken token.Token
	peekToken    token.Token
	peek2Token   token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a new [Parser] with the given [lexer.Lexer].
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.Ident, p.parseIdentifier)
	p.registerPrefix(token.Int, p.parseIntegerLiteral)
	p.registerPrefix(token.Float, p.parseFloatLiteral)
	p.registerPrefix(token.Bang, p.parsePrefixExpression)
	p.registerPrefix(token.Minus, p.parsePrefixExpression)
	p.registerPrefix(token.Tilde, p.parsePrefixExpression)
	p.registerPrefix(token.True, p.parseBoolean)
	p.registerPrefix(token.False, p.parseBoolean)
	p.registerPrefix(token.Nil, p.parseNilLiteral)
	p.registerPrefix(token.Self, p.parseSelfExpr)
	p.registerPrefix(token.Super, p.parseSuperExpr)
	p.registerPrefix(token.Lparen, p.parseGroupedExpression)
	p.registerPrefix(token.Function, p.parseFunctionLiteral)
	p.registerPrefix(token.String, p.parseStringLiteral)
	p.registerPrefix(token.Lbracket, p.parseArrayLiteral)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{
		token.Plus, token.Minus, token.Slash, token.Asterisk, token.Percent,
		token.Eq, token.NotEq, token.Lt, token.Lte, token.Gt, token.Gte,
		token.AndAnd, token.OrOr,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.Lparen, p.parseCallExpression)
	p.registerInfix(token.Lbracket, p.parseIndexExpression)
	p.registerInfix(token.Dot, p.parseAttributeExpression)

	p.nextToken()
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns the list of errors encountered during parsing.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) peekError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: expected next token to be %s, got %s instead",
		p.peekToken.Line, t, p.peekToken.Type))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.currentToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.peek2Token
	p.peek2Token = p.l.NextToken()
}

func (p *Parser) currentTokenIs(t token.Type) bool { return p.currentToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool    { return p.peekToken.Type == t }
func (p *Parser) peek2TokenIs(t token.Type) bool   { return p.peek2Token.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// ParseProgram parses a complete Koala source file and returns its AST.
// Check [Parser.Errors] afterward to see if any parsing errors occurred.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	for !p.currentTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.currentToken.Type {
	case token.Import:
		return p.parseImportDecl()
	case token.Typealias:
		return p.parseTypeAliasDecl()
	case token.Var, token.Const:
		return p.parseVarDeclStatement()
	case token.Function:
		return p.parseFuncDeclStatement()
	case token.Class:
		return p.parseClassDecl()
	case token.Trait:
		return p.parseTraitDecl()
	case token.Return:
		return p.parseReturnStatement()
	case token.If:
		return p.parseIfStatement()
	case token.While:
		return p.parseWhileStatement()
	case token.For:
		return p.parseForStatement()
	case token.Break:
		return p.parseBreakStatement()
	case token.Continue:
		return p.parseContinueStatement()
	case token.Go:
		return p.parseGoStatement()
	case token.Switch:
		return p.parseSwitchStatement()
	case token.Lbrace:
		return p.parseBlockStatement()
	default:
		return p.parseSimpleStatement()
	}
}

// ---- Types ----

// parseTypeExpr expects currentToken to be on the first token of a type
// (either a leading "[]" or the name itself) and leaves currentToken on the
// last token of the (possibly qualified) type name.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	dims := 0
	for p.currentTokenIs(token.Lbracket) {
		if !p.expectPeek(token.Rbracket) {
			return ast.TypeExpr{}
		}
		dims++
		p.nextToken()
	}
	name := p.currentToken.Literal
	path := ""
	if p.peekTokenIs(token.Dot) {
		path = name
		p.nextToken()
		p.nextToken()
		name = p.currentToken.Literal
	}
	return ast.TypeExpr{Dims: dims, Path: path, Name: name}
}

// ---- Declarations ----

func (p *Parser) parseImportDecl() ast.Statement {
	tok := p.currentToken
	if !p.expectPeek(token.String) {
		return nil
	}
	path := p.currentToken.Literal
	alias := ""
	if p.peekTokenIs(token.As) {
		p.nextToken()
		if !p.expectPeek(token.Ident) {
			return nil
		}
		alias = p.currentToken.Literal
	}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return &ast.ImportDecl{Token: tok, Path: path, Alias: alias}
}

func (p *Parser) parseTypeAliasDecl() ast.Statement {
	tok := p.currentToken
	if !p.expectPeek(token.Ident) {
		return nil
	}
	name := p.currentToken.Literal
	if !p.expectPeek(token.Assign) {
		return nil
	}
	p.nextToken()
	t := p.parseTypeExpr()
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return &ast.TypeAliasDecl{Token: tok, Name: name, Type: t}
}

// parseVarDeclCore parses `var|const name(,name)* [type] [= expr(,expr)*]`
// without consuming a trailing semicolon, leaving currentToken on the last
// token of the declaration.
func (p *Parser) parseVarDeclCore() ast.Statement {
	tok := p.currentToken
	isConst := p.currentTokenIs(token.Const)

	if !p.expectPeek(token.Ident) {
		return nil
	}
	var names []*ast.Identifier
	names = append(names, &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal})
	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		if !p.expectPeek(token.Ident) {
			return nil
		}
		names = append(names, &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal})
	}

	var typ *ast.TypeExpr
	if !p.peekTokenIs(token.Assign) && !p.peekTokenIs(token.Semicolon) {
		p.nextToken()
		t := p.parseTypeExpr()
		typ = &t
	}

	var values []ast.Expression
	if p.peekTokenIs(token.Assign) {
		p.nextToken()
		p.nextToken()
		values = append(values, p.parseExpression(Lowest))
		for p.peekTokenIs(token.Comma) {
			p.nextToken()
			p.nextToken()
			values = append(values, p.parseExpression(Lowest))
		}
	}

	if len(names) == 1 {
		var val ast.Expression
		if len(values) > 0 {
			val = values[0]
		}
		return &ast.VarDecl{Token: tok, Name: names[0], Type: typ, Const: isConst, Value: val}
	}

	list := &ast.VarDeclList{Token: tok}
	for i, n := range names {
		var val ast.Expression
		if i < len(values) {
			val = values[i]
		}
		var t *ast.TypeExpr
		if typ != nil {
			tc := *typ
			t = &tc
		}
		list.Decls = append(list.Decls, &ast.VarDecl{Token: tok, Name: n, Type: t, Const: isConst, Value: val})
	}
	return list
}

func (p *Parser) parseVarDeclStatement() ast.Statement {
	stmt := p.parseVarDeclCore()
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseFuncDeclStatement() ast.Statement {
	tok := p.currentToken
	fn, ok := p.parseFunctionLiteral().(*ast.FunctionLiteral)
	if !ok {
		return nil
	}
	return &ast.FuncDecl{Token: tok, Fn: fn, Receiver: false}
}

func (p *Parser) parseMethodDecl() *ast.FuncDecl {
	tok := p.currentToken
	fn, ok := p.parseFunctionLiteral().(*ast.FunctionLiteral)
	if !ok {
		return nil
	}
	return &ast.FuncDecl{Token: tok, Fn: fn, Receiver: true}
}

func (p *Parser) parseClassDecl() ast.Statement {
	tok := p.currentToken
	if !p.expectPeek(token.Ident) {
		return nil
	}
	cd := &ast.ClassDecl{Token: tok, Name: p.currentToken.Literal}

	if p.peekTokenIs(token.Extends) {
		p.nextToken()
		if !p.expectPeek(token.Ident) {
			return nil
		}
		cd.Extends = p.currentToken.Literal
	}

	if p.peekTokenIs(token.With) {
		p.nextToken()
		if !p.expectPeek(token.Ident) {
			return nil
		}
		cd.Traits = append(cd.Traits, p.currentToken.Literal)
		for p.peekTokenIs(token.Comma) {
			p.nextToken()
			if !p.expectPeek(token.Ident) {
				return nil
			}
			cd.Traits = append(cd.Traits, p.currentToken.Literal)
		}
	}

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	p.nextToken()

	for !p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
		switch p.currentToken.Type {
		case token.Var, token.Const:
			addClassField(cd, p.parseVarDeclStatement())
		case token.Function:
			if fn := p.parseMethodDecl(); fn != nil {
				cd.Methods = append(cd.Methods, fn)
			}
		default:
			p.errors = append(p.errors, fmt.Sprintf("line %d: unexpected token %s in class body", p.currentToken.Line, p.currentToken.Type))
		}
		p.nextToken()
	}
	return cd
}

func addClassField(cd *ast.ClassDecl, stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		cd.Fields = append(cd.Fields, s)
	case *ast.VarDeclList:
		cd.Fields = append(cd.Fields, s.Decls...)
	}
}

func (p *Parser) parseTraitDecl() ast.Statement {
	tok := p.currentToken
	if !p.expectPeek(token.Ident) {
		return nil
	}
	td := &ast.TraitDecl{Token: tok, Name: p.currentToken.Literal}

	if p.peekTokenIs(token.With) {
		p.nextToken()
		if !p.expectPeek(token.Ident) {
			return nil
		}
		td.Traits = append(td.Traits, p.currentToken.Literal)
		for p.peekTokenIs(token.Comma) {
			p.nextToken()
			if !p.expectPeek(token.Ident) {
				return nil
			}
			td.Traits = append(td.Traits, p.currentToken.Literal)
		}
	}

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	p.nextToken()

	for !p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
		if !p.currentTokenIs(token.Function) {
			p.errors = append(p.errors, fmt.Sprintf("line %d: unexpected token %s in trait body", p.currentToken.Line, p.currentToken.Type))
			p.nextToken()
			continue
		}
		protoTok := p.currentToken
		if !p.expectPeek(token.Ident) {
			p.nextToken()
			continue
		}
		name := p.currentToken.Literal
		if !p.expectPeek(token.Lparen) {
			p.nextToken()
			continue
		}
		params, varargs := p.parseFunctionParameters()
		returns := p.parseReturnTypes()

		if p.peekTokenIs(token.Lbrace) {
			p.nextToken()
			body := p.parseBlockStatement()
			fn := &ast.FunctionLiteral{Token: protoTok, Name: name, Parameters: params, Varargs: varargs, Returns: returns, Body: body}
			td.Methods = append(td.Methods, &ast.FuncDecl{Token: protoTok, Fn: fn, Receiver: true})
		} else {
			if p.peekTokenIs(token.Semicolon) {
				p.nextToken()
			}
			td.Protos = append(td.Protos, &ast.FuncProtoDecl{Token: protoTok, Name: name, Parameters: params, Varargs: varargs, Returns: returns})
		}
		p.nextToken()
	}
	return td
}

// parseReturnTypes parses zero or more comma-separated type expressions
// before a `{` or `;`, leaving currentToken unchanged if none were parsed.
func (p *Parser) parseReturnTypes() []ast.TypeExpr {
	var returns []ast.TypeExpr
	for !p.peekTokenIs(token.Lbrace) && !p.peekTokenIs(token.Semicolon) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		returns = append(returns, p.parseTypeExpr())
		if p.peekTokenIs(token.Comma) {
			p.nextToken()
			continue
		}
		break
	}
	return returns
}

// ---- Simple statements ----

func compoundOp(t token.Type) string {
	switch t {
	case token.PlusEq:
		return "+"
	case token.MinusEq:
		return "-"
	case token.StarEq:
		return "*"
	case token.SlashEq:
		return "/"
	default:
		return "?"
	}
}

func isCompoundAssign(t token.Type) bool {
	switch t {
	case token.PlusEq, token.MinusEq, token.StarEq, token.SlashEq:
		return true
	default:
		return false
	}
}

// parseForClause parses an assignment/compound-assign/expression/var-decl
// clause without consuming a trailing separator, used for for-triple
// init/post clauses.
func (p *Parser) parseForClause() ast.Statement {
	if p.currentTokenIs(token.Var) || p.currentTokenIs(token.Const) {
		return p.parseVarDeclCore()
	}
	tok := p.currentToken
	expr := p.parseExpression(Lowest)
	switch {
	case p.peekTokenIs(token.Assign):
		p.nextToken()
		p.nextToken()
		val := p.parseExpression(Lowest)
		return &ast.AssignStatement{Token: tok, Target: expr, Value: val}
	case isCompoundAssign(p.peekToken.Type):
		op := compoundOp(p.peekToken.Type)
		p.nextToken()
		p.nextToken()
		val := p.parseExpression(Lowest)
		return &ast.CompoundAssignStatement{Token: tok, Target: expr, Operator: op, Value: val}
	default:
		return &ast.ExpressionStatement{Token: tok, Expression: expr}
	}
}

func (p *Parser) parseSimpleStatement() ast.Statement {
	stmt := p.parseForClause()
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	tok := p.currentToken
	rs := &ast.ReturnStatement{Token: tok}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
		return rs
	}
	p.nextToken()
	rs.Values = append(rs.Values, p.parseExpression(Lowest))
	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		rs.Values = append(rs.Values, p.parseExpression(Lowest))
	}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return rs
}

func (p *Parser) parseBreakStatement() ast.Statement {
	tok := p.currentToken
	level := 0
	if p.peekTokenIs(token.Int) {
		p.nextToken()
		level, _ = strconv.Atoi(p.currentToken.Literal)
	}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return &ast.BreakStatement{Token: tok, Level: level}
}

func (p *Parser) parseContinueStatement() ast.Statement {
	tok := p.currentToken
	level := 0
	if p.peekTokenIs(token.Int) {
		p.nextToken()
		level, _ = strconv.Atoi(p.currentToken.Literal)
	}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return &ast.ContinueStatement{Token: tok, Level: level}
}

func (p *Parser) parseGoStatement() ast.Statement {
	tok := p.currentToken
	p.nextToken()
	expr := p.parseExpression(Lowest)
	call, ok := expr.(*ast.CallExpression)
	if !ok {
		p.errors = append(p.errors, fmt.Sprintf("line %d: go statement requires a call expression", tok.Line))
		return nil
	}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return &ast.GoStatement{Token: tok, Call: call}
}

// ---- Control flow ----

func (p *Parser) parseIfStatement() ast.Statement {
	tok := p.currentToken
	if !p.expectPeek(token.Lparen) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(Lowest)
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	cons := p.parseBlockStatement()
	stmt := &ast.IfStatement{Token: tok, Condition: cond, Consequence: cons}

	if p.peekTokenIs(token.Else) {
		p.nextToken()
		if p.peekTokenIs(token.If) {
			p.nextToken()
			nested := p.parseIfStatement()
			stmt.Alternative = &ast.BlockStatement{Token: p.currentToken, Statements: []ast.Statement{nested}}
		} else {
			if !p.expectPeek(token.Lbrace) {
				return nil
			}
			stmt.Alternative = p.parseBlockStatement()
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	tok := p.currentToken
	if !p.expectPeek(token.Lparen) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpression(Lowest)
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	body := p.parseBlockStatement()
	return &ast.WhileStatement{Token: tok, Condition: cond, Body: body}
}

func (p *Parser) parseForStatement() ast.Statement {
	tok := p.currentToken
	if !p.expectPeek(token.Lparen) {
		return nil
	}

	if p.peekTokenIs(token.Ident) && p.peek2TokenIs(token.ColonAssign) {
		p.nextToken()
		v := &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}
		p.nextToken()
		if !p.expectPeek(token.Range) {
			return nil
		}
		p.nextToken()
		iterable := p.parseExpression(Lowest)
		if !p.expectPeek(token.Rparen) {
			return nil
		}
		if !p.expectPeek(token.Lbrace) {
			return nil
		}
		body := p.parseBlockStatement()
		return &ast.ForEachStatement{Token: tok, Var: v, Iterable: iterable, Body: body}
	}

	fs := &ast.ForTripleStatement{Token: tok}

	p.nextToken()
	if !p.currentTokenIs(token.Semicolon) {
		fs.Init = p.parseForClause()
		p.nextToken()
	}
	if !p.currentTokenIs(token.Semicolon) {
		p.errors = append(p.errors, fmt.Sprintf("line %d: expected ';' in for statement", p.currentToken.Line))
		return nil
	}
	p.nextToken()

	if !p.currentTokenIs(token.Semicolon) {
		fs.Cond = p.parseExpression(Lowest)
		p.nextToken()
	}
	if !p.currentTokenIs(token.Semicolon) {
		p.errors = append(p.errors, fmt.Sprintf("line %d: expected ';' in for statement", p.currentToken.Line))
		return nil
	}
	p.nextToken()

	if !p.currentTokenIs(token.Rparen) {
		fs.Post = p.parseForClause()
		p.nextToken()
	}
	if !p.currentTokenIs(token.Rparen) {
		p.errors = append(p.errors, fmt.Sprintf("line %d: expected ')' in for statement", p.currentToken.Line))
		return nil
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	fs.Body = p.parseBlockStatement()
	return fs
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	tok := p.currentToken
	p.nextToken()
	tag := p.parseExpression(Lowest)
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	p.nextToken()

	sw := &ast.SwitchStatement{Token: tok, Tag: tag}
	for !p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
		switch p.currentToken.Type {
		case token.Case:
			c := &ast.SwitchCase{}
			p.nextToken()
			c.Values = append(c.Values, p.parseExpression(Lowest))
			for p.peekTokenIs(token.Comma) {
				p.nextToken()
				p.nextToken()
				c.Values = append(c.Values, p.parseExpression(Lowest))
			}
			if !p.expectPeek(token.Colon) {
				return nil
			}
			p.nextToken()
			for !p.currentTokenIs(token.Case) && !p.currentTokenIs(token.Default) &&
				!p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
				if stmt := p.parseStatement(); stmt != nil {
					c.Body = append(c.Body, stmt)
				}
				p.nextToken()
			}
			sw.Cases = append(sw.Cases, c)
		case token.Default:
			c := &ast.SwitchCase{Default: true}
			if !p.expectPeek(token.Colon) {
				return nil
			}
			p.nextToken()
			for !p.currentTokenIs(token.Case) && !p.currentTokenIs(token.Default) &&
				!p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
				if stmt := p.parseStatement(); stmt != nil {
					c.Body = append(c.Body, stmt)
				}
				p.nextToken()
			}
			sw.Cases = append(sw.Cases, c)
		default:
			p.errors = append(p.errors, fmt.Sprintf("line %d: unexpected token %s in switch body", p.currentToken.Line, p.currentToken.Type))
			p.nextToken()
		}
	}
	return sw
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.currentToken}
	p.nextToken()

	for !p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

// ---- Expressions ----

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.currentToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.currentToken.Type)
		return nil
	}
	leftExp := prefix()
	for !p.peekTokenIs(token.Semicolon) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

func (p *Parser) noPrefixParseFnError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: no prefix parse function for %s found", p.currentToken.Line, t))
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.currentToken}
	value, err := strconv.ParseInt(p.currentToken.Literal, 0, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d: could not parse %q as integer", p.currentToken.Line, p.currentToken.Literal))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.currentToken}
	value, err := strconv.ParseFloat(p.currentToken.Literal, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d: could not parse %q as float", p.currentToken.Line, p.currentToken.Literal))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.Boolean{Token: p.currentToken, Value: p.currentTokenIs(token.True)}
}

func (p *Parser) parseNilLiteral() ast.Expression { return &ast.NilLiteral{Token: p.currentToken} }
func (p *Parser) parseSelfExpr() ast.Expression    { return &ast.SelfExpr{Token: p.currentToken} }
func (p *Parser) parseSuperExpr() ast.Expression   { return &ast.SuperExpr{Token: p.currentToken} }

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.currentToken, Operator: p.currentToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(Prefix)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{Token: p.currentToken, Operator: p.currentToken.Literal, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	tok := p.currentToken
	p.nextToken()
	exp := p.parseExpression(Lowest)
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	return &ast.ParenExpr{Token: tok, Inner: exp}
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	array := &ast.ArrayLiteral{Token: p.currentToken}
	array.Elements = p.parseExpressionList(token.Rbracket)
	return array
}

func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	var list []ast.Expression

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(Lowest))

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(Lowest))
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	tok := p.currentToken
	p.nextToken()
	index := p.parseExpression(Lowest)
	if !p.expectPeek(token.Rbracket) {
		return nil
	}
	return &ast.IndexExpression{Token: tok, Left: left, Index: index}
}

func (p *Parser) parseAttributeExpression(left ast.Expression) ast.Expression {
	tok := p.currentToken
	if !p.expectPeek(token.Ident) {
		return nil
	}
	return &ast.AttributeExpression{Token: tok, Left: left, Name: p.currentToken.Literal}
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.currentToken, Function: function}
	exp.Arguments = p.parseExpressionList(token.Rparen)
	return exp
}

// parseFunctionLiteral parses `func [name](params) [returns] { body }`.
func (p *Parser) parseFunctionLiteral() ast.Expression {
	lit := &ast.FunctionLiteral{Token: p.currentToken}

	if p.peekTokenIs(token.Ident) {
		p.nextToken()
		lit.Name = p.currentToken.Literal
	}

	if !p.expectPeek(token.Lparen) {
		return nil
	}
	lit.Parameters, lit.Varargs = p.parseFunctionParameters()
	lit.Returns = p.parseReturnTypes()

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	lit.Body = p.parseBlockStatement()
	return lit
}

func (p *Parser) parseFunctionParameters() ([]*ast.Param, bool) {
	var params []*ast.Param
	varargs := false

	if p.peekTokenIs(token.Rparen) {
		p.nextToken()
		return params, varargs
	}
	p.nextToken()

	param, va := p.parseOneParam()
	params = append(params, param)
	varargs = va

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		param, va := p.parseOneParam()
		params = append(params, param)
		if va {
			varargs = true
		}
	}

	if !p.expectPeek(token.Rparen) {
		return nil, false
	}
	return params, varargs
}

func (p *Parser) parseOneParam() (*ast.Param, bool) {
	name := &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}
	p.nextToken()
	varargs := false
	if p.currentTokenIs(token.Ellipsis) {
		varargs = true
		p.nextToken()
	}
	t := p.parseTypeExpr()
	return &ast.Param{Name: name, Type: t}, varargs
}
