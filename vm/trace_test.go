package vm_test

import (
	"bytes"
	"testing"

	"github.com/plzero/pl0vm/bytecode"
	"github.com/plzero/pl0vm/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionTraceRecordsEveryInstruction(t *testing.T) {
	code := []bytecode.Instruction{
		{Op: bytecode.INT, Address: 3},
		{Op: bytecode.LIT, Address: 2},
		{Op: bytecode.LIT, Address: 3},
		{Op: bytecode.OPR, Address: int(bytecode.ADD)},
		{Op: bytecode.OPR, Address: int(bytecode.WRITE)},
		{Op: bytecode.OPR, Address: int(bytecode.RET)},
	}

	machine := vm.New(code)
	machine.SetOutput(&bytes.Buffer{})
	machine.Trace = vm.NewExecutionTrace(0)
	machine.Trace.Start()

	require.NoError(t, machine.Run())

	var out bytes.Buffer
	require.NoError(t, machine.Trace.Flush(&out))

	lines := out.String()
	assert.Contains(t, lines, "LIT")
	assert.Contains(t, lines, "OPR\t0\t2\t")  // ADD
	assert.Contains(t, lines, "OPR\t0\t14\t") // WRITE
	assert.Contains(t, lines, "OPR\t0\t0\t")  // RET
}

func TestExecutionTraceRespectsMaxEntries(t *testing.T) {
	code := []bytecode.Instruction{
		{Op: bytecode.INT, Address: 3},
		{Op: bytecode.LIT, Address: 1},
		{Op: bytecode.OPR, Address: int(bytecode.WRITE)},
		{Op: bytecode.OPR, Address: int(bytecode.RET)},
	}

	machine := vm.New(code)
	machine.SetOutput(&bytes.Buffer{})
	machine.Trace = vm.NewExecutionTrace(2)
	machine.Trace.Start()

	require.NoError(t, machine.Run())

	var out bytes.Buffer
	require.NoError(t, machine.Trace.Flush(&out))
	assert.Len(t, bytes.Split(bytes.TrimRight(out.Bytes(), "\n"), []byte("\n")), 2)
}
