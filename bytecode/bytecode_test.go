package bytecode_test

import (
	"testing"

	"github.com/plzero/pl0vm/bytecode"
	"github.com/stretchr/testify/assert"
)

func TestListingFormatsIndexOpLevelAddress(t *testing.T) {
	code := []bytecode.Instruction{
		{Op: bytecode.LIT, Level: 0, Address: 3},
		{Op: bytecode.OPR, Level: 0, Address: int(bytecode.WRITE)},
	}

	listing := bytecode.Listing(code)
	assert.Equal(t, "0\tLIT\t0\t3\n1\tOPR\t0\t14\n", listing)
}

func TestOpAndOptStringers(t *testing.T) {
	assert.Equal(t, "CAL", bytecode.CAL.String())
	assert.Equal(t, "WRITE", bytecode.WRITE.String())
	assert.Equal(t, "RET", bytecode.RET.String())
}
