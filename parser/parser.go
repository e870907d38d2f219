// Package parser implements the PL/0 recursive-descent parser: it consumes
// a lexer.Lexer's token stream and builds an ast.Block, defining symbols
// into symtab.Scope as it goes and resolving non-call identifiers to their
// symbol immediately. A call target is kept as a bare name and resolved
// later, at code generation, since it may name a procedure declared later
// in the same block.
package parser

import (
	"github.com/plzero/pl0vm/ast"
	"github.com/plzero/pl0vm/lexer"
	"github.com/plzero/pl0vm/symtab"
)

// Parser holds one token of lookahead over a Lexer and the scope chain
// built up as declarations are parsed.
type Parser struct {
	lex   *lexer.Lexer
	scope *symtab.Scope
	err   *Error
}

// NewParser creates a Parser over source lexed from file.
func NewParser(source, file string) *Parser {
	return &Parser{lex: lexer.New(source, file)}
}

// Parse consumes the whole token stream and returns the program's
// top-level block, or the first error encountered. Parsing fails fast: no
// attempt is made to recover and continue after an error.
func (p *Parser) Parse() (*ast.Block, error) {
	p.scope = symtab.NewScope(nil)
	block := p.parseBlock()
	if p.err != nil {
		return nil, p.err
	}
	p.expect(lexer.PERIOD)
	if p.err != nil {
		return nil, p.err
	}
	return block, nil
}

func (p *Parser) fail(kind Kind, format string, args ...interface{}) {
	if p.err == nil {
		p.err = newError(p.lex.Location(), kind, format, args...)
	}
}

func (p *Parser) failing() bool { return p.err != nil }

// expect consumes the current token if it has type t, recording a syntax
// error (naming both the expected and found token) otherwise.
func (p *Parser) expect(t lexer.TokenType) lexer.Token {
	tok := p.lex.Peek()
	if tok.Type != t {
		p.fail(KindSyntax, "expected %s, found %s", t, tok.Type)
		return tok
	}
	p.lex.Advance()
	return tok
}

func (p *Parser) expectIdentifier() string {
	tok := p.expect(lexer.IDENTIFIER)
	return tok.Literal
}

// parseBlock parses one block in p.scope, which must already be set to
// the scope this block introduces (the caller pushes a
// fresh scope for nested procedures; the top-level call in Parse uses the
// program's single top-level scope directly).
func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Scope: p.scope}

	if p.lex.PeekIs(lexer.CONST) {
		block.Consts = p.parseConstantDecl()
	}
	if p.failing() {
		return block
	}

	if p.lex.PeekIs(lexer.VAR) {
		block.Vars = p.parseVariableDecl()
	}
	if p.failing() {
		return block
	}

	for p.lex.PeekIs(lexer.PROCEDURE) && !p.failing() {
		block.Procedures = append(block.Procedures, p.parseProcedureDecl())
	}
	if p.failing() {
		return block
	}

	block.Body = p.parseStatement()
	return block
}

func (p *Parser) parseConstantDecl() *ast.ConstantDecl {
	p.lex.Advance() // "const"
	decl := &ast.ConstantDecl{}

	for {
		name := p.expectIdentifier()
		if p.failing() {
			return decl
		}
		p.expect(lexer.EQ)
		if p.failing() {
			return decl
		}
		numTok := p.expect(lexer.NUMBER)
		if p.failing() {
			return decl
		}
		value := parseNumber(numTok.Literal)

		sym := symtab.NewConstant(name, value)
		if err := p.scope.Define(sym); err != nil {
			p.fail(KindSemantic, "%s", err)
			return decl
		}
		decl.Constants = append(decl.Constants, sym)

		if !p.lex.Match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.SEMICOLON)
	return decl
}

func (p *Parser) parseVariableDecl() *ast.VariableDecl {
	p.lex.Advance() // "var"
	decl := &ast.VariableDecl{}

	for {
		name := p.expectIdentifier()
		if p.failing() {
			return decl
		}
		sym := symtab.NewVariable(name, p.scope.Level(), p.scope.VariableCount())
		if err := p.scope.Define(sym); err != nil {
			p.fail(KindSemantic, "%s", err)
			return decl
		}
		decl.Variables = append(decl.Variables, sym)

		if !p.lex.Match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.SEMICOLON)
	return decl
}

// parseProcedureDecl defines the procedure's symbol in the *enclosing*
// scope before parsing its body, so a recursive self-call inside the body
// resolves.
func (p *Parser) parseProcedureDecl() *ast.ProcedureDecl {
	p.lex.Advance() // "procedure"
	name := p.expectIdentifier()
	if p.failing() {
		return nil
	}

	sym := symtab.NewProcedure(name, p.scope.Level())
	if err := p.scope.Define(sym); err != nil {
		p.fail(KindSemantic, "%s", err)
		return nil
	}

	p.expect(lexer.SEMICOLON)
	if p.failing() {
		return nil
	}

	enclosing := p.scope
	p.scope = symtab.NewScope(enclosing)
	body := p.parseBlock()
	p.scope = enclosing

	p.expect(lexer.SEMICOLON)
	return &ast.ProcedureDecl{Symbol: sym, Body: body}
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.lex.Peek().Type {
	case lexer.IDENTIFIER:
		return p.parseAssign()
	case lexer.CALL:
		return p.parseCall()
	case lexer.READ:
		return p.parseRead()
	case lexer.WRITE:
		return p.parseWrite()
	case lexer.BEGIN:
		return p.parseStatementList()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.RETURN:
		p.lex.Advance()
		return &ast.Return{}
	default:
		// statement is optional in the grammar: anything else (";", "end",
		// or end-of-block) is an empty statement, not an error.
		return &ast.StatementList{}
	}
}

func (p *Parser) parseAssign() ast.Statement {
	pos := p.lex.Location()
	name := p.expectIdentifier()
	if p.failing() {
		return &ast.StatementList{}
	}
	target := p.resolveLvalue(name, pos)

	p.expect(lexer.ASSIGN)
	if p.failing() {
		return &ast.StatementList{}
	}
	expr := p.parseExpression()
	return &ast.Assign{Target: target, Expr: expr}
}

func (p *Parser) parseCall() ast.Statement {
	p.lex.Advance() // "call"
	pos := p.lex.Location()
	name := p.expectIdentifier()
	return &ast.Call{Callee: name, Pos: pos}
}

func (p *Parser) parseRead() ast.Statement {
	p.lex.Advance() // "read"
	stmt := &ast.Read{}
	for {
		pos := p.lex.Location()
		name := p.expectIdentifier()
		if p.failing() {
			return stmt
		}
		stmt.Targets = append(stmt.Targets, p.resolveLvalue(name, pos))
		if !p.lex.Match(lexer.COMMA) {
			break
		}
	}
	return stmt
}

func (p *Parser) parseWrite() ast.Statement {
	p.lex.Advance() // "write"
	stmt := &ast.Write{Expressions: []ast.Expression{p.parseExpression()}}
	for p.lex.Match(lexer.COMMA) {
		stmt.Expressions = append(stmt.Expressions, p.parseExpression())
	}
	return stmt
}

func (p *Parser) parseStatementList() ast.Statement {
	p.lex.Advance() // "begin"
	list := &ast.StatementList{Statements: []ast.Statement{p.parseStatement()}}
	for p.lex.Match(lexer.SEMICOLON) {
		list.Statements = append(list.Statements, p.parseStatement())
	}
	p.expect(lexer.END)
	return list
}

func (p *Parser) parseIf() ast.Statement {
	p.lex.Advance() // "if"
	cond := p.parseCondition()
	p.expect(lexer.THEN)
	if p.failing() {
		return &ast.StatementList{}
	}
	then := p.parseStatement()

	stmt := &ast.If{Cond: cond, Then: then}
	if p.lex.Match(lexer.ELSE) {
		stmt.Else = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Statement {
	p.lex.Advance() // "while"
	cond := p.parseCondition()
	p.expect(lexer.DO)
	if p.failing() {
		return &ast.StatementList{}
	}
	return &ast.While{Cond: cond, Body: p.parseStatement()}
}

func (p *Parser) parseCondition() ast.Expression {
	if p.lex.Match(lexer.ODD) {
		return &ast.UnaryOp{Op: lexer.ODD, Expr: p.parseExpression()}
	}
	left := p.parseExpression()
	op := p.lex.Peek().Type
	switch op {
	case lexer.EQ, lexer.NEQ, lexer.LE, lexer.LEQ, lexer.GE, lexer.GEQ:
		p.lex.Advance()
	default:
		p.fail(KindSyntax, "expected a relational operator, found %s", op)
		return left
	}
	right := p.parseExpression()
	return &ast.BinaryOp{Op: op, Left: left, Right: right}
}

// parseExpression handles the conventional "+ -" precedence level; an
// optional leading sign is folded into a subtraction from zero.
func (p *Parser) parseExpression() ast.Expression {
	var expr ast.Expression
	switch p.lex.Peek().Type {
	case lexer.SUB:
		p.lex.Advance()
		expr = &ast.BinaryOp{Op: lexer.SUB, Left: &ast.Literal{Value: 0}, Right: p.parseTerm()}
	case lexer.ADD:
		p.lex.Advance()
		expr = p.parseTerm()
	default:
		expr = p.parseTerm()
	}

	for !p.failing() {
		op := p.lex.Peek().Type
		if op != lexer.ADD && op != lexer.SUB {
			break
		}
		p.lex.Advance()
		expr = &ast.BinaryOp{Op: op, Left: expr, Right: p.parseTerm()}
	}
	return expr
}

// parseTerm handles the "* /" precedence level, which binds tighter than
// "+ -" regardless of how the grammar's prose reads.
func (p *Parser) parseTerm() ast.Expression {
	expr := p.parseFactor()
	for !p.failing() {
		op := p.lex.Peek().Type
		if op != lexer.MUL && op != lexer.DIV {
			break
		}
		p.lex.Advance()
		expr = &ast.BinaryOp{Op: op, Left: expr, Right: p.parseFactor()}
	}
	return expr
}

func (p *Parser) parseFactor() ast.Expression {
	switch tok := p.lex.Peek(); tok.Type {
	case lexer.IDENTIFIER:
		pos := p.lex.Location()
		name := p.lex.Literal()
		p.lex.Advance()
		return p.resolveRvalue(name, pos)
	case lexer.NUMBER:
		p.lex.Advance()
		return &ast.Literal{Value: parseNumber(tok.Literal)}
	case lexer.LPAREN:
		p.lex.Advance()
		expr := p.parseExpression()
		p.expect(lexer.RPAREN)
		return expr
	default:
		p.fail(KindSyntax, "expected identifier, number, or '(', found %s", tok.Type)
		return &ast.Literal{Value: 0}
	}
}

// resolveRvalue resolves name in the current scope for use as a value. A
// procedure may not be used as a value; that error surfaces at code
// generation, where the distinction between rvalue and lvalue misuse is
// reported uniformly (see compiler.Compile).
func (p *Parser) resolveRvalue(name string, pos lexer.Position) *ast.VariableProxy {
	sym, ok := p.scope.Resolve(name)
	if !ok {
		p.fail(KindSemantic, "undeclared identifier %q", name)
		return &ast.VariableProxy{Target: symtab.NewConstant(name, 0), Pos: pos}
	}
	return &ast.VariableProxy{Target: sym, Pos: pos}
}

// resolveLvalue resolves name for use as an assignment or read target,
// requiring it to be a variable.
func (p *Parser) resolveLvalue(name string, pos lexer.Position) *ast.VariableProxy {
	sym, ok := p.scope.Resolve(name)
	if !ok {
		p.fail(KindSemantic, "undeclared identifier %q", name)
		return &ast.VariableProxy{Target: symtab.NewVariable(name, 0, 0), Pos: pos}
	}
	if !sym.IsVariable() {
		p.fail(KindSemantic, "%q is a %s and cannot be assigned to", name, sym.Kind)
	}
	return &ast.VariableProxy{Target: sym, Pos: pos}
}

// parseNumber converts a lexed NUMBER literal's digits to an int. The
// lexer only ever produces a run of ASCII digits, so no base prefix or
// sign handling is needed here.
func parseNumber(digits string) int {
	n := 0
	for i := 0; i < len(digits); i++ {
		n = n*10 + int(digits[i]-'0')
	}
	return n
}
