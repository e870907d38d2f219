package vm

import (
	"fmt"
	"io"
	"time"

	"github.com/plzero/pl0vm/bytecode"
)

// TraceEntry is one executed instruction, recorded with the registers it
// left behind. Adapted from the teacher's ExecutionTrace, trimmed from
// sixteen ARM registers to this machine's pc/bp/sp.
type TraceEntry struct {
	Sequence uint64
	PC       int
	Ins      bytecode.Instruction
	BP       int
	SP       int
	Elapsed  time.Duration
}

// ExecutionTrace records every instruction a VM executes, in order, for
// later inspection or replay against the bytecode listing. Attach one to
// vm.VM.Trace before calling Run/Step; leave it nil to skip the work.
type ExecutionTrace struct {
	MaxEntries int

	entries   []TraceEntry
	startTime time.Time
}

// NewExecutionTrace creates an empty trace. maxEntries of 0 means
// unbounded.
func NewExecutionTrace(maxEntries int) *ExecutionTrace {
	return &ExecutionTrace{MaxEntries: maxEntries, entries: make([]TraceEntry, 0, 256)}
}

// Start marks the beginning of a timed run; call before vm.Run.
func (t *ExecutionTrace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
}

func (t *ExecutionTrace) record(pc int, ins bytecode.Instruction, bp, sp int) {
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}
	t.entries = append(t.entries, TraceEntry{
		Sequence: uint64(len(t.entries)) + 1,
		PC:       pc,
		Ins:      ins,
		BP:       bp,
		SP:       sp,
		Elapsed:  time.Since(t.startTime),
	})
}

// Flush writes every recorded entry to w, one per line, in the same
// tab-separated shape as a bytecode listing plus the registers it left
// the machine in.
func (t *ExecutionTrace) Flush(w io.Writer) error {
	for _, e := range t.entries {
		if _, err := fmt.Fprintf(w, "[%06d] %4d\t%s\tbp=%d sp=%d\n",
			e.Sequence, e.PC, e.Ins, e.BP, e.SP); err != nil {
			return err
		}
	}
	return nil
}
