package parser_test

import (
	"testing"

	"github.com/plzero/pl0vm/ast"
	"github.com/plzero/pl0vm/compiler"
	"github.com/plzero/pl0vm/parser"
	"github.com/plzero/pl0vm/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, source string) *ast.Block {
	t.Helper()
	p := parser.NewParser(source, "test.pl0")
	block, err := p.Parse()
	require.NoError(t, err)
	require.NotNil(t, block)
	return block
}

func TestParseConstAndVarDecl(t *testing.T) {
	block := parse(t, "const a = 1, b = 2; var x, y; x := a + b.")
	require.NotNil(t, block.Consts)
	assert.Len(t, block.Consts.Constants, 2)
	require.NotNil(t, block.Vars)
	assert.Len(t, block.Vars.Variables, 2)

	assign, ok := block.Body.(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "x", assign.Target.Target.Name)
}

func TestParseMultiplicationBindsTighterThanAddition(t *testing.T) {
	block := parse(t, "var x; x := 2 + 3 * 4.")
	assign := block.Body.(*ast.Assign)

	top, ok := assign.Expr.(*ast.BinaryOp)
	require.True(t, ok)
	require.Equal(t, "+", top.Op.String())

	_, leftIsLiteral := top.Left.(*ast.Literal)
	assert.True(t, leftIsLiteral)

	right, ok := top.Right.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "*", right.Op.String())
}

func TestParseWhileLoop(t *testing.T) {
	block := parse(t, "var x; begin x := 3; while x # 0 do begin write(x); x := x - 1 end end.")
	list, ok := block.Body.(*ast.StatementList)
	require.True(t, ok)
	require.Len(t, list.Statements, 2)

	loop, ok := list.Statements[1].(*ast.While)
	require.True(t, ok)
	body, ok := loop.Body.(*ast.StatementList)
	require.True(t, ok)
	assert.Len(t, body.Statements, 2)
}

func TestParseIfElse(t *testing.T) {
	block := parse(t, "var x; if x = 0 then x := 1 else x := 2.")
	ifStmt, ok := block.Body.(*ast.If)
	require.True(t, ok)
	assert.NotNil(t, ifStmt.Else)

	cond, ok := ifStmt.Cond.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "=", cond.Op.String())
}

func TestParseOddCondition(t *testing.T) {
	block := parse(t, "var x; if odd x then x := 1.")
	ifStmt := block.Body.(*ast.If)
	unary, ok := ifStmt.Cond.(*ast.UnaryOp)
	require.True(t, ok)
	assert.Equal(t, "odd", unary.Op.String())
}

func TestParseNestedProcedureWithStaticScoping(t *testing.T) {
	block := parse(t, `
		var x;
		procedure p;
			write(x);
		call p.`)

	require.Len(t, block.Procedures, 1)
	proc := block.Procedures[0]
	assert.Equal(t, "p", proc.Symbol.Name)
	assert.Equal(t, 0, proc.Symbol.Level)
	assert.Equal(t, 1, proc.Body.Scope.Level())

	write, ok := proc.Body.Body.(*ast.Write)
	require.True(t, ok)
	proxy := write.Expressions[0].(*ast.VariableProxy)
	assert.Equal(t, "x", proxy.Target.Name)
	assert.Equal(t, 0, proxy.Target.Level)
}

func TestParseForwardRecursiveCallResolvesAtCompileTime(t *testing.T) {
	source := `
		var n, result;
		procedure fact;
			begin
				result := result * n;
				n := n - 1;
				if n > 0 then call fact
			end;
		begin
			n := 5;
			result := 1;
			call fact
		end.`
	block := parse(t, source)
	require.Len(t, block.Procedures, 1)
	assert.Equal(t, "fact", block.Procedures[0].Symbol.Name)
}

func TestParseUndeclaredIdentifierFails(t *testing.T) {
	p := parser.NewParser("var x; x := y.", "test.pl0")
	_, err := p.Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared identifier")
}

func TestParseAssignToConstantFails(t *testing.T) {
	p := parser.NewParser("const c = 1; c := 2.", "test.pl0")
	_, err := p.Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be assigned")
}

func TestParseDuplicateDeclarationFails(t *testing.T) {
	p := parser.NewParser("var x, x; x := 1.", "test.pl0")
	_, err := p.Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated symbol")
}

func TestParseSyntaxErrorReportsLineAndColumn(t *testing.T) {
	p := parser.NewParser("var x\nx := 1.", "test.pl0")
	_, err := p.Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error(2:1):")
}

func TestParseReadMultipleTargets(t *testing.T) {
	block := parse(t, "var x, y; read x, y.")
	read, ok := block.Body.(*ast.Read)
	require.True(t, ok)
	require.Len(t, read.Targets, 2)
	assert.Equal(t, "x", read.Targets[0].Target.Name)
	assert.Equal(t, "y", read.Targets[1].Target.Name)
}

func TestParseWriteMultipleExpressions(t *testing.T) {
	block := parse(t, "var x; write x, x + 1.")
	write, ok := block.Body.(*ast.Write)
	require.True(t, ok)
	assert.Len(t, write.Expressions, 2)
}

func TestParseNegativeLeadingSign(t *testing.T) {
	block := parse(t, "var x; x := -5.")
	assign := block.Body.(*ast.Assign)
	bin, ok := assign.Expr.(*ast.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "-", bin.Op.String())
	lit, ok := bin.Left.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, 0, lit.Value)
}

// end-to-end: parse, compile, and run each of the pipeline's canonical
// programs through the VM to confirm the parser hands the compiler a tree
// it can actually lower and execute.

func runSource(t *testing.T, source string) string {
	t.Helper()
	block := parse(t, source)
	code, err := compiler.Compile(block)
	require.NoError(t, err)

	machine := vm.New(code)
	var out outputBuffer
	machine.SetOutput(&out)
	require.NoError(t, machine.Run())
	return out.String()
}

type outputBuffer struct{ data []byte }

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
func (b *outputBuffer) String() string { return string(b.data) }

func TestEndToEndArithmetic(t *testing.T) {
	assert.Equal(t, "14\n", runSource(t, "write 2 + 3 * 4."))
}

func TestEndToEndWhileLoop(t *testing.T) {
	out := runSource(t, "var x; begin x := 3; while x # 0 do begin write(x); x := x - 1 end end.")
	assert.Equal(t, "3\n2\n1\n", out)
}

func TestEndToEndIfElse(t *testing.T) {
	out := runSource(t, "if odd 4 then write 1 else write 2.")
	assert.Equal(t, "2\n", out)
}

func TestEndToEndNestedProcedureStaticScope(t *testing.T) {
	out := runSource(t, `
		var x;
		procedure p;
			write(x);
		begin
			x := 9;
			call p
		end.`)
	assert.Equal(t, "9\n", out)
}

func TestEndToEndRecursiveFactorial(t *testing.T) {
	out := runSource(t, `
		var n, result;
		procedure fact;
			begin
				result := result * n;
				n := n - 1;
				if n > 0 then call fact
			end;
		begin
			n := 5;
			result := 1;
			call fact;
			write result
		end.`)
	assert.Equal(t, "120\n", out)
}

func TestEndToEndForwardCall(t *testing.T) {
	out := runSource(t, `
		procedure a;
			call b;
		procedure b;
			write 1;
		call a.`)
	assert.Equal(t, "1\n", out)
}

func TestEndToEndUndeclaredIdentifierDiagnostic(t *testing.T) {
	p := parser.NewParser("write y.", "test.pl0")
	_, err := p.Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared identifier")
}
