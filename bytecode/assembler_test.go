package bytecode_test

import (
	"testing"

	"github.com/plzero/pl0vm/bytecode"
	"github.com/plzero/pl0vm/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemblerEmitsInOrder(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Load(42)
	a.LoadVar(1, 3)
	a.StoreVar(0, 2)
	a.Enter(5)
	a.Leave()

	code := a.Code()
	require.Len(t, code, 5)
	assert.Equal(t, bytecode.Instruction{Op: bytecode.LIT, Level: 0, Address: 42}, code[0])
	assert.Equal(t, bytecode.Instruction{Op: bytecode.LOD, Level: 1, Address: 3}, code[1])
	assert.Equal(t, bytecode.Instruction{Op: bytecode.STO, Level: 0, Address: 2}, code[2])
	assert.Equal(t, bytecode.Instruction{Op: bytecode.INT, Level: 0, Address: 5}, code[3])
	assert.Equal(t, bytecode.Instruction{Op: bytecode.OPR, Level: 0, Address: int(bytecode.RET)}, code[4])
}

func TestBranchPendingHandleBackpatchesAddress(t *testing.T) {
	a := bytecode.NewAssembler()
	h := a.BranchPending()
	a.Load(1)
	a.Load(2)
	h.SetAddress(a.NextAddress())

	code := a.Code()
	require.Len(t, code, 3)
	assert.Equal(t, bytecode.JMP, code[0].Op)
	assert.Equal(t, 3, code[0].Address)
}

func TestBranchIfFalsePendingHandleBackpatchesAddress(t *testing.T) {
	a := bytecode.NewAssembler()
	h := a.BranchIfFalsePending()
	a.Load(1)
	h.SetAddress(a.NextAddress())

	code := a.Code()
	assert.Equal(t, bytecode.JPC, code[0].Op)
	assert.Equal(t, 2, code[0].Address)
}

func TestCallPendingHandleBackpatchesLevelAndAddress(t *testing.T) {
	a := bytecode.NewAssembler()
	h := a.CallPending(1)
	assert.Equal(t, 1, h.Level())
	assert.Equal(t, 0, h.Address())

	a.Load(99) // procedure body emitted elsewhere in the program
	h.SetLevel(2)
	h.SetAddress(a.NextAddress())

	code := a.Code()
	assert.Equal(t, bytecode.CAL, code[0].Op)
	assert.Equal(t, 2, code[0].Level)
	assert.Equal(t, 1, code[0].Address)
}

func TestOperationMapsTokensToFixedOpcodes(t *testing.T) {
	cases := []struct {
		tok lexer.TokenType
		opt bytecode.Opt
	}{
		{lexer.ADD, bytecode.ADD},
		{lexer.SUB, bytecode.SUB},
		{lexer.MUL, bytecode.MUL},
		{lexer.DIV, bytecode.DIV},
		{lexer.EQ, bytecode.EQ},
		{lexer.NEQ, bytecode.NEQ},
		{lexer.LE, bytecode.LE},
		{lexer.LEQ, bytecode.LEQ},
		{lexer.GE, bytecode.GE},
		{lexer.GEQ, bytecode.GEQ},
		{lexer.ODD, bytecode.ODD},
	}
	for _, c := range cases {
		a := bytecode.NewAssembler()
		require.NoError(t, a.Operation(c.tok))
		code := a.Code()
		require.Len(t, code, 1)
		assert.Equal(t, bytecode.OPR, code[0].Op)
		assert.Equal(t, int(c.opt), code[0].Address)
	}
}

func TestOperationRejectsNonOperatorToken(t *testing.T) {
	a := bytecode.NewAssembler()
	err := a.Operation(lexer.IDENTIFIER)
	assert.Error(t, err)
}

func TestReadAndWriteUseFixedNumericIdentities(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Read()
	a.Write()
	code := a.Code()
	require.Len(t, code, 2)
	assert.Equal(t, 16, code[0].Address)
	assert.Equal(t, 14, code[1].Address)
}
