package ast

import (
	"fmt"
	"strings"
)

// Print renders an indented textual dump of a block, in the style of
// original_source's ast_printer: each node prints its label, then its
// children one per line at increased indent.
func Print(root *Block) string {
	p := &printer{indentSize: 2}
	p.printBlock(root)
	return p.out.String()
}

type printer struct {
	out         strings.Builder
	indentSize  int
	indentLevel int
}

func (p *printer) writeIndent() {
	p.out.WriteString(strings.Repeat(" ", p.indentLevel))
}

func (p *printer) newline() {
	p.out.WriteByte('\n')
	p.writeIndent()
}

func (p *printer) indented(body func()) {
	p.indentLevel += p.indentSize
	p.newline()
	body()
	p.indentLevel -= p.indentSize
}

func (p *printer) printDecl(d Declaration) {
	switch n := d.(type) {
	case *ConstantDecl:
		p.printConstantDecl(n)
	case *VariableDecl:
		p.printVariableDecl(n)
	}
}

func (p *printer) printConstantDecl(n *ConstantDecl) {
	p.out.WriteString("constant declaration [ ")
	for _, sym := range n.Constants {
		p.out.WriteString(sym.Name)
		p.out.WriteByte(' ')
	}
	p.out.WriteByte(']')
}

func (p *printer) printVariableDecl(n *VariableDecl) {
	p.out.WriteString("variable declaration [ ")
	for _, sym := range n.Variables {
		p.out.WriteString(sym.Name)
		p.out.WriteByte(' ')
	}
	p.out.WriteByte(']')
}

func (p *printer) printProcedureDecl(n *ProcedureDecl) {
	p.out.WriteString("procedure declaration " + n.Symbol.Name)
	p.indented(func() {
		p.printBlock(n.Body)
	})
}

func (p *printer) printBlock(n *Block) {
	p.out.WriteString("block")
	p.indented(func() {
		if n.Consts != nil {
			p.printDecl(n.Consts)
			p.newline()
		}
		if n.Vars != nil {
			p.printDecl(n.Vars)
			p.newline()
		}
		for _, proc := range n.Procedures {
			p.printProcedureDecl(proc)
			p.newline()
		}
		p.printStmt(n.Body)
	})
}

func (p *printer) printStmt(s Statement) {
	switch n := s.(type) {
	case *Block:
		p.printBlock(n)
	case *StatementList:
		p.out.WriteString("statement list")
		p.indented(func() {
			for i, stmt := range n.Statements {
				if i > 0 {
					p.newline()
				}
				p.printStmt(stmt)
			}
		})
	case *If:
		p.out.WriteString("if")
		p.indented(func() {
			p.out.WriteString("condition = ")
			p.printExpr(n.Cond)
			p.newline()
			p.out.WriteString("consequence = ")
			p.printStmt(n.Then)
			if n.Else != nil {
				p.newline()
				p.out.WriteString("alternative = ")
				p.printStmt(n.Else)
			}
		})
	case *While:
		p.out.WriteString("while")
		p.indented(func() {
			p.out.WriteString("condition = ")
			p.printExpr(n.Cond)
			p.newline()
			p.out.WriteString("body = ")
			p.printStmt(n.Body)
		})
	case *Call:
		p.out.WriteString("call " + n.Callee)
	case *Read:
		p.out.WriteString("read [ ")
		for _, v := range n.Targets {
			p.out.WriteString(v.Target.Name)
			p.out.WriteByte(' ')
		}
		p.out.WriteByte(']')
	case *Write:
		p.out.WriteString("write")
		p.indented(func() {
			for i, e := range n.Expressions {
				if i > 0 {
					p.newline()
				}
				p.printExpr(e)
			}
		})
	case *Assign:
		p.out.WriteString("assign")
		p.indented(func() {
			p.out.WriteString("target = " + n.Target.Target.Name)
			p.newline()
			p.printExpr(n.Expr)
		})
	case *Return:
		p.out.WriteString("return")
	default:
		p.out.WriteString(fmt.Sprintf("<unknown statement %T>", s))
	}
}

func (p *printer) printExpr(e Expression) {
	switch n := e.(type) {
	case *Literal:
		fmt.Fprintf(&p.out, "literal %d", n.Value)
	case *VariableProxy:
		p.out.WriteString("variable " + n.Target.Name)
	case *UnaryOp:
		p.out.WriteString("unary " + n.Op.String() + " ")
		p.printExpr(n.Expr)
	case *BinaryOp:
		p.out.WriteString("binary " + n.Op.String())
		p.indented(func() {
			p.printExpr(n.Left)
			p.newline()
			p.printExpr(n.Right)
		})
	default:
		p.out.WriteString(fmt.Sprintf("<unknown expression %T>", e))
	}
}
