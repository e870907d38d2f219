package vm

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/plzero/pl0vm/bytecode"
)

// Statistics accumulates execution counters while a VM runs. Attach one to
// vm.VM.Statistics before calling Run/Step; leave it nil to skip the work
// entirely. Adapted from the teacher's PerformanceStatistics, trimmed to
// the counters a stack machine with eight opcodes can produce.
type Statistics struct {
	TotalInstructions uint64
	OpCounts          map[bytecode.Op]uint64
	CallCount         uint64
	WriteCount        uint64
	ReadCount         uint64

	started time.Time
	elapsed time.Duration
}

// NewStatistics creates an empty counter set, ready to attach to a VM.
func NewStatistics() *Statistics {
	return &Statistics{OpCounts: make(map[bytecode.Op]uint64)}
}

// Start marks the beginning of a timed run; call before vm.Run.
func (s *Statistics) Start() { s.started = time.Now() }

// Stop records elapsed time since Start; call after vm.Run returns.
func (s *Statistics) Stop() { s.elapsed = time.Since(s.started) }

func (s *Statistics) record(ins bytecode.Instruction) {
	s.TotalInstructions++
	s.OpCounts[ins.Op]++
	switch ins.Op {
	case bytecode.CAL:
		s.CallCount++
	case bytecode.OPR:
		switch bytecode.Opt(ins.Address) {
		case bytecode.WRITE:
			s.WriteCount++
		case bytecode.READ:
			s.ReadCount++
		}
	}
}

// Report writes a human-readable summary to w, in descending order of
// opcode frequency.
func (s *Statistics) Report(w io.Writer) error {
	type row struct {
		op    bytecode.Op
		count uint64
	}
	rows := make([]row, 0, len(s.OpCounts))
	for op, count := range s.OpCounts {
		rows = append(rows, row{op, count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].count > rows[j].count })

	if _, err := fmt.Fprintf(w, "instructions executed: %d\n", s.TotalInstructions); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "procedure calls:       %d\n", s.CallCount); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "writes / reads:        %d / %d\n", s.WriteCount, s.ReadCount); err != nil {
		return err
	}
	if s.elapsed > 0 {
		if _, err := fmt.Fprintf(w, "elapsed:               %s\n", s.elapsed); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "  %-4s %d\n", r.op, r.count); err != nil {
			return err
		}
	}
	return nil
}
