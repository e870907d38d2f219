package ast_test

import (
	"testing"

	"github.com/plzero/pl0vm/ast"
	"github.com/plzero/pl0vm/symtab"
	"github.com/stretchr/testify/assert"
)

func sampleBlock() *ast.Block {
	scope := symtab.NewScope(nil)
	x := symtab.NewVariable("x", 0, 0)
	_ = scope.Define(x)
	return &ast.Block{
		Scope: scope,
		Vars:  &ast.VariableDecl{Variables: []*symtab.Symbol{x}},
		Body: &ast.Assign{
			Target: &ast.VariableProxy{Target: x},
			Expr:   &ast.Literal{Value: 42},
		},
	}
}

func TestPrintIncludesVariableAndLiteral(t *testing.T) {
	out := ast.Print(sampleBlock())
	assert.Contains(t, out, "variable declaration [ x ]")
	assert.Contains(t, out, "literal 42")
	assert.Contains(t, out, "target = x")
}

func TestDotProducesValidDigraphShape(t *testing.T) {
	out := ast.Dot(sampleBlock())
	assert.Contains(t, out, "digraph G {")
	assert.Contains(t, out, "->")
	assert.Contains(t, out, "literal 42")
}
