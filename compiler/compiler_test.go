package compiler_test

import (
	"testing"

	"github.com/plzero/pl0vm/ast"
	"github.com/plzero/pl0vm/bytecode"
	"github.com/plzero/pl0vm/compiler"
	"github.com/plzero/pl0vm/lexer"
	"github.com/plzero/pl0vm/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLeafBlock builds a block with the given scope, vars/consts/procedures
// and body, defaulting to an empty statement list body.
func newLeafBlock(scope *symtab.Scope, body ast.Statement, procs ...*ast.ProcedureDecl) *ast.Block {
	if body == nil {
		body = &ast.StatementList{}
	}
	return &ast.Block{Scope: scope, Body: body, Procedures: procs}
}

func TestCompileAssignEmitsLitAndSto(t *testing.T) {
	scope := symtab.NewScope(nil)
	x := symtab.NewVariable("x", 0, 0)
	require.NoError(t, scope.Define(x))

	block := newLeafBlock(scope, &ast.Assign{
		Target: &ast.VariableProxy{Target: x},
		Expr:   &ast.Literal{Value: 7},
	})

	code, err := compiler.Compile(block)
	require.NoError(t, err)

	require.Len(t, code, 4) // INT, LIT, STO, OPR-RET
	assert.Equal(t, bytecode.INT, code[0].Op)
	assert.Equal(t, 1+3, code[0].Address) // one variable + three-cell header
	assert.Equal(t, bytecode.LIT, code[1].Op)
	assert.Equal(t, 7, code[1].Address)
	assert.Equal(t, bytecode.STO, code[2].Op)
	assert.Equal(t, 0, code[2].Level)
	assert.Equal(t, 0, code[2].Address)
	assert.Equal(t, bytecode.OPR, code[3].Op)
	assert.Equal(t, int(bytecode.RET), code[3].Address)
}

func TestCompileIfWithoutElsePatchesJpcToEnd(t *testing.T) {
	scope := symtab.NewScope(nil)
	block := newLeafBlock(scope, &ast.If{
		Cond: &ast.Literal{Value: 1},
		Then: &ast.Write{Expressions: []ast.Expression{&ast.Literal{Value: 9}}},
	})

	code, err := compiler.Compile(block)
	require.NoError(t, err)

	// INT, LIT 1, JPC ?, LIT 9, OPR-WRITE, OPR-RET
	require.Len(t, code, 6)
	assert.Equal(t, bytecode.JPC, code[2].Op)
	assert.Equal(t, 5, code[2].Address) // lands on the trailing OPR-RET
}

func TestCompileIfWithElsePatchesBothBranches(t *testing.T) {
	scope := symtab.NewScope(nil)
	block := newLeafBlock(scope, &ast.If{
		Cond: &ast.Literal{Value: 0},
		Then: &ast.Write{Expressions: []ast.Expression{&ast.Literal{Value: 1}}},
		Else: &ast.Write{Expressions: []ast.Expression{&ast.Literal{Value: 2}}},
	})

	code, err := compiler.Compile(block)
	require.NoError(t, err)

	// INT, LIT 0, JPC->else, LIT 1, WRITE, JMP->end, LIT 2, WRITE, RET
	require.Len(t, code, 9)
	assert.Equal(t, bytecode.JPC, code[2].Op)
	assert.Equal(t, 6, code[2].Address)
	assert.Equal(t, bytecode.JMP, code[5].Op)
	assert.Equal(t, 8, code[5].Address)
}

func TestCompileWhileLoopsBackToCondition(t *testing.T) {
	scope := symtab.NewScope(nil)
	block := newLeafBlock(scope, &ast.While{
		Cond: &ast.Literal{Value: 1},
		Body: &ast.Write{Expressions: []ast.Expression{&ast.Literal{Value: 3}}},
	})

	code, err := compiler.Compile(block)
	require.NoError(t, err)

	// INT, [begin=1] LIT 1, JPC->exit, LIT 3, WRITE, JMP->begin, RET
	require.Len(t, code, 7)
	assert.Equal(t, bytecode.JPC, code[2].Op)
	assert.Equal(t, 6, code[2].Address)
	assert.Equal(t, bytecode.JMP, code[5].Op)
	assert.Equal(t, 1, code[5].Address)
}

func TestCompileForwardCallPatchesLevelAndEntry(t *testing.T) {
	outer := symtab.NewScope(nil)
	procSym := symtab.NewProcedure("p", outer.Level())
	require.NoError(t, outer.Define(procSym))

	inner := symtab.NewScope(outer)
	procBlock := newLeafBlock(inner, nil)
	procDecl := &ast.ProcedureDecl{Symbol: procSym, Body: procBlock}

	mainBlock := newLeafBlock(outer, &ast.Call{Callee: "p"}, procDecl)

	code, err := compiler.Compile(mainBlock)
	require.NoError(t, err)

	// main: INT, CAL, RET, then p: INT, RET
	require.Len(t, code, 5)
	assert.Equal(t, bytecode.CAL, code[1].Op)
	assert.Equal(t, 0, code[1].Level) // same-level call: caller_level - callee_level = 0
	assert.Equal(t, 3, code[1].Address)
}

func TestCompileCallToUndeclaredNameFails(t *testing.T) {
	scope := symtab.NewScope(nil)
	block := newLeafBlock(scope, &ast.Call{Callee: "missing", Pos: lexer.Position{Line: 4, Column: 2}})

	_, err := compiler.Compile(block)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared identifier")
}

func TestCompileCallToNonProcedureFails(t *testing.T) {
	scope := symtab.NewScope(nil)
	x := symtab.NewVariable("x", 0, 0)
	require.NoError(t, scope.Define(x))
	block := newLeafBlock(scope, &ast.Call{Callee: "x"})

	_, err := compiler.Compile(block)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a procedure")
}

func TestCompileAssignToConstantFails(t *testing.T) {
	scope := symtab.NewScope(nil)
	c := symtab.NewConstant("c", 5)
	require.NoError(t, scope.Define(c))
	block := newLeafBlock(scope, &ast.Assign{
		Target: &ast.VariableProxy{Target: c},
		Expr:   &ast.Literal{Value: 1},
	})

	_, err := compiler.Compile(block)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a variable")
}

func TestCompileNestedVariableUsesLevelDifference(t *testing.T) {
	outer := symtab.NewScope(nil)
	x := symtab.NewVariable("x", outer.Level(), 0)
	require.NoError(t, outer.Define(x))
	procSym := symtab.NewProcedure("p", outer.Level())
	require.NoError(t, outer.Define(procSym))

	inner := symtab.NewScope(outer)
	procBlock := newLeafBlock(inner, &ast.Write{
		Expressions: []ast.Expression{&ast.VariableProxy{Target: x}},
	})
	procDecl := &ast.ProcedureDecl{Symbol: procSym, Body: procBlock}
	mainBlock := newLeafBlock(outer, &ast.StatementList{}, procDecl)

	code, err := compiler.Compile(mainBlock)
	require.NoError(t, err)

	var lod *bytecode.Instruction
	for i := range code {
		if code[i].Op == bytecode.LOD {
			lod = &code[i]
			break
		}
	}
	require.NotNil(t, lod)
	assert.Equal(t, 1, lod.Level) // inner level 1 minus declaration level 0
	assert.Equal(t, 0, lod.Address)
}
