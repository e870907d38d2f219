// Package compiler lowers a parsed AST into bytecode, resolving forward
// procedure calls once every procedure's entry address is known. Grounded
// on original_source's code-generator, which walks the same block/
// statement/expression shape and defers call patching to a final pass.
package compiler

import (
	"fmt"

	"github.com/plzero/pl0vm/ast"
	"github.com/plzero/pl0vm/bytecode"
	"github.com/plzero/pl0vm/lexer"
	"github.com/plzero/pl0vm/symtab"
)

// Error reports a problem discovered while generating code: an unresolved
// forward call, an lvalue that isn't a variable, or similar. It carries a
// position when one is available so the CLI can render it consistently
// with parse errors.
type Error struct {
	Pos     lexer.Position
	Message string
}

func (e *Error) Error() string {
	if e.Pos.Line == 0 && e.Pos.Column == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// pendingCall is a forward reference to a procedure whose entry address is
// not yet known at the point of the call.
type pendingCall struct {
	handle      *bytecode.Handle
	callerLevel int
	callee      *symtab.Symbol
}

// Compiler walks an AST and emits bytecode via an Assembler, tracking the
// current scope's level and a worklist of calls to patch once every
// procedure's entry address has been recorded.
type Compiler struct {
	asm     *bytecode.Assembler
	pending []pendingCall
	scope   *symtab.Scope
	level   int
	errs    []error
}

// New creates a Compiler with an empty instruction buffer.
func New() *Compiler {
	return &Compiler{asm: bytecode.NewAssembler()}
}

// Compile lowers root and its descendants, patches every forward call, and
// returns the finished instruction stream. A non-nil error means one or
// more problems were recorded; the partial bytecode should not be run.
func Compile(root *ast.Block) ([]bytecode.Instruction, error) {
	c := New()
	c.compileBlock(root)
	c.patchCalls()
	if len(c.errs) == 1 {
		return nil, c.errs[0]
	}
	if len(c.errs) > 0 {
		msgs := ""
		for i, e := range c.errs {
			if i > 0 {
				msgs += "; "
			}
			msgs += e.Error()
		}
		return nil, &Error{Message: msgs}
	}
	return c.asm.Code(), nil
}

func (c *Compiler) fail(pos lexer.Position, format string, args ...interface{}) {
	c.errs = append(c.errs, &Error{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// compileBlock emits a block's header, body, implicit return, and then its
// sub-procedures laid out contiguously after. Variable symbols were already
// resolved by the parser onto ast.VariableProxy nodes, so they need only
// the level counter; the current scope is kept for resolving call targets,
// which the parser leaves as names.
func (c *Compiler) compileBlock(b *ast.Block) {
	savedScope, savedLevel := c.scope, c.level
	c.scope = b.Scope
	c.level = b.Scope.Level()

	c.asm.Enter(b.Scope.VariableCount() + 3)
	c.compileStmt(b.Body)
	c.asm.Leave()

	for _, proc := range b.Procedures {
		c.compileProcedure(proc)
	}

	c.scope, c.level = savedScope, savedLevel
}

func (c *Compiler) compileProcedure(p *ast.ProcedureDecl) {
	p.Symbol.Entry = c.asm.NextAddress()
	c.compileBlock(p.Body)
}

func (c *Compiler) compileStmt(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Block:
		c.compileBlock(n)
	case *ast.StatementList:
		for _, stmt := range n.Statements {
			c.compileStmt(stmt)
		}
	case *ast.If:
		c.compileExpr(n.Cond)
		jpc := c.asm.BranchIfFalsePending()
		c.compileStmt(n.Then)
		if n.Else != nil {
			end := c.asm.BranchPending()
			jpc.SetAddress(c.asm.NextAddress())
			c.compileStmt(n.Else)
			end.SetAddress(c.asm.NextAddress())
		} else {
			jpc.SetAddress(c.asm.NextAddress())
		}
	case *ast.While:
		begin := c.asm.NextAddress()
		c.compileExpr(n.Cond)
		exit := c.asm.BranchIfFalsePending()
		c.compileStmt(n.Body)
		c.asm.Branch(begin)
		exit.SetAddress(c.asm.NextAddress())
	case *ast.Call:
		c.compileCall(n)
	case *ast.Read:
		for _, target := range n.Targets {
			c.asm.Read()
			c.compileLvalue(target)
		}
	case *ast.Write:
		for _, e := range n.Expressions {
			c.compileExpr(e)
			c.asm.Write()
		}
	case *ast.Assign:
		c.compileExpr(n.Expr)
		c.compileLvalue(n.Target)
	case *ast.Return:
		c.asm.Leave()
	default:
		c.fail(lexer.Position{}, "compiler: unhandled statement %T", s)
	}
}

func (c *Compiler) compileCall(n *ast.Call) {
	sym, ok := c.scope.Resolve(n.Callee)
	if !ok {
		c.fail(n.Pos, "undeclared identifier %q", n.Callee)
		return
	}
	if !sym.IsProcedure() {
		c.fail(n.Pos, "%q is not a procedure", n.Callee)
		return
	}
	h := c.asm.CallPending(c.level)
	c.pending = append(c.pending, pendingCall{handle: h, callerLevel: c.level, callee: sym})
}

// patchCalls rewrites every pending CAL once all procedure entries are
// known: level becomes caller_level - callee_level, address becomes the
// callee's recorded entry.
func (c *Compiler) patchCalls() {
	for _, p := range c.pending {
		if p.callee.Entry == symtab.UnresolvedEntry {
			c.fail(lexer.Position{}, "procedure %q has no recorded entry", p.callee.Name)
			continue
		}
		levelDiff := p.callerLevel - p.callee.Level
		if levelDiff < 0 {
			c.fail(lexer.Position{}, "call to %q has negative level difference", p.callee.Name)
			continue
		}
		p.handle.SetLevel(levelDiff)
		p.handle.SetAddress(p.callee.Entry)
	}
}

func (c *Compiler) compileExpr(e ast.Expression) {
	switch n := e.(type) {
	case *ast.Literal:
		c.asm.Load(n.Value)
	case *ast.VariableProxy:
		c.compileRvalue(n)
	case *ast.UnaryOp:
		c.compileExpr(n.Expr)
		if err := c.asm.Operation(n.Op); err != nil {
			c.fail(lexer.Position{}, "%s", err)
		}
	case *ast.BinaryOp:
		c.compileExpr(n.Left)
		c.compileExpr(n.Right)
		if err := c.asm.Operation(n.Op); err != nil {
			c.fail(lexer.Position{}, "%s", err)
		}
	default:
		c.fail(lexer.Position{}, "compiler: unhandled expression %T", e)
	}
}

func (c *Compiler) compileRvalue(v *ast.VariableProxy) {
	sym := v.Target
	switch {
	case sym.IsConstant():
		c.asm.Load(sym.Value)
	case sym.IsVariable():
		c.asm.LoadVar(c.level-sym.Level, sym.Index)
	default:
		c.fail(v.Pos, "%q is a procedure and cannot be used as a value", sym.Name)
	}
}

func (c *Compiler) compileLvalue(v *ast.VariableProxy) {
	sym := v.Target
	if !sym.IsVariable() {
		c.fail(v.Pos, "%q is not a variable and cannot be assigned to", sym.Name)
		return
	}
	c.asm.StoreVar(c.level-sym.Level, sym.Index)
}
