package bytecode

import (
	"fmt"

	"github.com/plzero/pl0vm/lexer"
)

// tokenToOpt maps a relational or arithmetic token to its OPR sub-opcode.
var tokenToOpt = map[lexer.TokenType]Opt{
	lexer.ADD: ADD,
	lexer.SUB: SUB,
	lexer.MUL: MUL,
	lexer.DIV: DIV,
	lexer.EQ:  EQ,
	lexer.NEQ: NEQ,
	lexer.LE:  LE,
	lexer.LEQ: LEQ,
	lexer.GE:  GE,
	lexer.GEQ: GEQ,
	lexer.ODD: ODD,
}

// Assembler appends instructions to a growing buffer and issues backpatch
// Handles for instructions whose level and/or address field is not yet
// known. It never removes or reorders instructions, so a Handle's index
// into the buffer stays valid for the assembler's whole lifetime.
type Assembler struct {
	code []Instruction
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

func (a *Assembler) emit(op Op, level, address int) int {
	a.code = append(a.code, Instruction{Op: op, Level: level, Address: address})
	return len(a.code) - 1
}

// NextAddress returns the address the next emitted instruction will occupy.
func (a *Assembler) NextAddress() int {
	return len(a.code)
}

// Load emits LIT with the given literal value.
func (a *Assembler) Load(value int) {
	a.emit(LIT, 0, value)
}

// LoadVar emits LOD for (level difference, slot index).
func (a *Assembler) LoadVar(levelDiff, index int) {
	a.emit(LOD, levelDiff, index)
}

// StoreVar emits STO for (level difference, slot index).
func (a *Assembler) StoreVar(levelDiff, index int) {
	a.emit(STO, levelDiff, index)
}

// Call emits a fully-bound CAL instruction.
func (a *Assembler) Call(levelDiff, entry int) {
	a.emit(CAL, levelDiff, entry)
}

// CallPending emits a CAL with the caller's level already known but its
// entry address pending, and returns a Handle to fix it up later.
func (a *Assembler) CallPending(callerLevel int) *Handle {
	at := a.emit(CAL, callerLevel, 0)
	return &Handle{asm: a, at: at}
}

// Branch emits an unconditional jump to a known target.
func (a *Assembler) Branch(target int) {
	a.emit(JMP, 0, target)
}

// BranchPending emits JMP with an unknown target and returns a Handle.
func (a *Assembler) BranchPending() *Handle {
	at := a.emit(JMP, 0, 0)
	return &Handle{asm: a, at: at}
}

// BranchIfFalse emits JPC to a known target.
func (a *Assembler) BranchIfFalse(target int) {
	a.emit(JPC, 0, target)
}

// BranchIfFalsePending emits JPC with an unknown target and returns a Handle.
func (a *Assembler) BranchIfFalsePending() *Handle {
	at := a.emit(JPC, 0, 0)
	return &Handle{asm: a, at: at}
}

// Enter emits INT, allocating n cells (the three-cell header plus locals).
func (a *Assembler) Enter(n int) {
	a.emit(INT, 0, n)
}

// Leave emits the implicit return, OPR RET.
func (a *Assembler) Leave() {
	a.emit(OPR, 0, int(RET))
}

// Read emits OPR READ.
func (a *Assembler) Read() {
	a.emit(OPR, 0, int(READ))
}

// Write emits OPR WRITE.
func (a *Assembler) Write() {
	a.emit(OPR, 0, int(WRITE))
}

// Operation emits OPR for the sub-opcode tok maps to, or an error if tok is
// not a valid operator token.
func (a *Assembler) Operation(tok lexer.TokenType) error {
	opt, ok := tokenToOpt[tok]
	if !ok {
		return fmt.Errorf("token %s cannot be used as an operator", tok)
	}
	a.emit(OPR, 0, int(opt))
	return nil
}

// Code returns the assembled instruction stream. Call once every Handle
// has been patched.
func (a *Assembler) Code() []Instruction {
	return a.code
}

// Handle is a backpatch reference to an already-emitted instruction,
// letting the emitter mutate its level and/or address field once the
// information it needs becomes available. It holds the Assembler itself
// rather than a copy of its instruction slice, so a patch still lands
// correctly even if intervening emits have grown the buffer into a
// reallocated array.
type Handle struct {
	asm *Assembler
	at  int
}

// Level returns the instruction's current level field.
func (h *Handle) Level() int {
	return h.asm.code[h.at].Level
}

// SetLevel overwrites the instruction's level field.
func (h *Handle) SetLevel(level int) {
	h.asm.code[h.at].Level = level
}

// Address returns the instruction's current address field.
func (h *Handle) Address() int {
	return h.asm.code[h.at].Address
}

// SetAddress overwrites the instruction's address field. The standard idiom
// for closing a forward jump is to call this with the assembler's current
// NextAddress() once the jump's target has been emitted.
func (h *Handle) SetAddress(address int) {
	h.asm.code[h.at].Address = address
}
