// Package ast defines the PL/0 abstract syntax tree: declarations,
// statements, and expressions, each a discriminated node reached through a
// type switch rather than a class hierarchy. A block owns its declarations,
// sub-procedures, and body; variable-proxies borrow (do not own) the
// symtab.Symbol they refer to.
package ast

import (
	"github.com/plzero/pl0vm/lexer"
	"github.com/plzero/pl0vm/symtab"
)

// Declaration is implemented by VariableDecl, ConstantDecl, ProcedureDecl.
type Declaration interface {
	declNode()
}

// Statement is implemented by Block, StatementList, If, While, Call, Read,
// Write, Assign, Return.
type Statement interface {
	stmtNode()
}

// Expression is implemented by Literal, VariableProxy, UnaryOp, BinaryOp.
type Expression interface {
	exprNode()
}

// --- declarations ---

// VariableDecl lists the variables introduced by a single "var" clause, in
// declaration order.
type VariableDecl struct {
	Variables []*symtab.Symbol
}

func (*VariableDecl) declNode() {}

// ConstantDecl lists the constants introduced by a single "const" clause.
type ConstantDecl struct {
	Constants []*symtab.Symbol
}

func (*ConstantDecl) declNode() {}

// ProcedureDecl is a nested procedure: its symbol (already defined in the
// enclosing scope so recursive calls resolve) plus its body block.
type ProcedureDecl struct {
	Symbol *symtab.Symbol
	Body   *Block
}

func (*ProcedureDecl) declNode() {}

// --- statements ---

// Block is a lexical region: optional constants, optional variables, zero
// or more nested procedures, and a body statement. It owns all of them.
type Block struct {
	Scope      *symtab.Scope
	Consts     *ConstantDecl // nil if absent
	Vars       *VariableDecl // nil if absent
	Procedures []*ProcedureDecl
	Body       Statement
}

func (*Block) stmtNode() {}

// StatementList is a "begin ... end" sequence.
type StatementList struct {
	Statements []Statement
}

func (*StatementList) stmtNode() {}

// If is "if <Cond> then <Then> [else <Else>]"; Else is nil when absent.
type If struct {
	Cond Expression
	Then Statement
	Else Statement
}

func (*If) stmtNode() {}

// While is "while <Cond> do <Body>".
type While struct {
	Cond Expression
	Body Statement
}

func (*While) stmtNode() {}

// Call names its callee by identifier; the callee may be declared later in
// the same block (a forward call), so it is resolved at emission time
// rather than at parse time.
type Call struct {
	Callee string
	Pos    lexer.Position
}

func (*Call) stmtNode() {}

// Read assigns one input integer to each target variable, in order.
type Read struct {
	Targets []*VariableProxy
}

func (*Read) stmtNode() {}

// Write prints each expression's value, in order.
type Write struct {
	Expressions []Expression
}

func (*Write) stmtNode() {}

// Assign is "<Target> := <Expr>".
type Assign struct {
	Target *VariableProxy
	Expr   Expression
}

func (*Assign) stmtNode() {}

// Return explicitly ends the enclosing procedure.
type Return struct{}

func (*Return) stmtNode() {}

// --- expressions ---

// Literal is an integer constant appearing directly in an expression.
type Literal struct {
	Value int
}

func (*Literal) exprNode() {}

// VariableProxy references a symbol resolved at parse time. It is used both
// as an rvalue (inside expressions) and as an lvalue (assignment and read
// targets); the compiler decides which lowering applies from context.
type VariableProxy struct {
	Target *symtab.Symbol
	Pos    lexer.Position
}

func (*VariableProxy) exprNode() {}

// UnaryOp is PL/0's one unary operator, "odd".
type UnaryOp struct {
	Op   lexer.TokenType
	Expr Expression
}

func (*UnaryOp) exprNode() {}

// BinaryOp is an arithmetic or relational operator applied to two operands.
type BinaryOp struct {
	Op    lexer.TokenType
	Left  Expression
	Right Expression
}

func (*BinaryOp) exprNode() {}
