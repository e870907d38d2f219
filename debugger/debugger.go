// Package debugger implements an interactive, in-process stepper over the
// PL/0 stack machine: breakpoints, single-stepping, and call-stack/variable
// inspection, driven from a command line, a tview text UI, or a fyne window.
// It is local only; it defines no wire protocol.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/plzero/pl0vm/bytecode"
	"github.com/plzero/pl0vm/vm"
)

// StepMode distinguishes the ways "step" can advance the VM.
type StepMode int

const (
	StepNone   StepMode = iota // not stepping, run free until breakpoint/halt
	StepSingle                 // execute exactly one instruction
	StepOver                   // run until control returns to the instruction after a CAL
	StepOut                   // run until the enclosing procedure returns
)

// Debugger wraps a vm.VM with breakpoints, stepping, and history. Its
// BeforeStep/AfterStep hooks are installed on the VM so Run pauses exactly
// where a breakpoint or the active stepping mode says it should.
type Debugger struct {
	VM *vm.VM

	Breakpoints *BreakpointManager
	History     *CommandHistory

	Running  bool
	StepMode StepMode

	stepOverPC    int
	stepOutBP     int
	stopRequested bool

	// Procedures maps a procedure name to its bytecode entry address, so
	// "break <name>" works alongside "break <address>".
	Procedures map[string]int

	LastCommand string
	Output      strings.Builder
}

// NewDebugger creates a Debugger over machine and wires its step hooks.
// BeforeStep decides whether to pause before the next fetch (a pending
// single/over/out stop, or a breakpoint at the current pc); AfterStep
// notices when a stepping mode's target has just been reached and arms
// that pause for the next BeforeStep call — the VM's AfterStep hook has no
// way to halt Run() itself, so the actual stop always happens one hook
// call later, in BeforeStep.
func NewDebugger(machine *vm.VM) *Debugger {
	d := &Debugger{
		VM:          machine,
		Breakpoints: NewBreakpointManager(),
		History:     NewCommandHistory(),
		Procedures:  make(map[string]int),
	}
	machine.BeforeStep = func(v *vm.VM) bool {
		if d.stopRequested {
			d.stopRequested = false
			d.Running = false
			return false
		}
		if bp := d.Breakpoints.GetBreakpoint(v.PC); bp != nil && bp.Enabled {
			d.Breakpoints.ProcessHit(v.PC)
			d.Running = false
			d.Printf("stopped: breakpoint %d at pc=%d\n", bp.ID, v.PC)
			return false
		}
		return true
	}
	machine.AfterStep = func(pc int, ins bytecode.Instruction, bp, sp int) {
		switch d.StepMode {
		case StepSingle:
			d.stopRequested = true
			d.StepMode = StepNone
			d.Printf("stopped: single step at pc=%d\n", d.VM.PC)
		case StepOver:
			if d.VM.PC == d.stepOverPC {
				d.stopRequested = true
				d.StepMode = StepNone
				d.Printf("stopped: step over complete at pc=%d\n", d.VM.PC)
			}
		case StepOut:
			if d.VM.PC == d.stepOutBP {
				d.stopRequested = true
				d.StepMode = StepNone
				d.Printf("stopped: step out complete at pc=%d\n", d.VM.PC)
			}
		}
	}
	return d
}

// runUntilStop arms Running and drives the VM via Run, which calls
// BeforeStep/AfterStep on every instruction; it returns once a stop
// condition fires, the program halts, or a runtime error occurs.
func (d *Debugger) runUntilStop() error {
	d.Running = true
	err := d.VM.Run()
	d.Running = false
	if err != nil {
		d.Printf("runtime error: %v\n", err)
		return nil
	}
	if d.VM.State == vm.StateHalted {
		d.Println("program halted")
	}
	return nil
}

// LoadProcedures records the entry address of every compiled procedure, for
// name-based breakpoints.
func (d *Debugger) LoadProcedures(entries map[string]int) {
	d.Procedures = entries
}

// ResolveAddress resolves a breakpoint target: a procedure name first, then
// a bare bytecode address.
func (d *Debugger) ResolveAddress(s string) (int, error) {
	if addr, ok := d.Procedures[s]; ok {
		return addr, nil
	}
	addr, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid address or unknown procedure: %s", s)
	}
	return addr, nil
}

// ExecuteCommand parses and runs one command line. An empty line repeats
// the last non-empty command, matching the convention of "step" on Enter.
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)
	if cmdLine == "" {
		cmdLine = d.LastCommand
	}
	if cmdLine != "" {
		d.History.Add(cmdLine)
		d.LastCommand = cmdLine
	}

	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return nil
	}
	return d.handleCommand(strings.ToLower(parts[0]), parts[1:])
}

func (d *Debugger) handleCommand(cmd string, args []string) error {
	switch cmd {
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s":
		return d.cmdStep(args)
	case "next", "n":
		return d.cmdNext(args)
	case "finish", "fin":
		return d.cmdFinish(args)
	case "break", "b":
		return d.cmdBreak(args)
	case "tbreak", "tb":
		return d.cmdTBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args)
	case "disable":
		return d.cmdDisable(args)
	case "print", "p":
		return d.cmdPrint(args)
	case "backtrace", "bt", "where":
		return d.cmdBacktrace(args)
	case "list", "l":
		return d.cmdList(args)
	case "info", "i":
		return d.cmdInfo(args)
	case "reset":
		return d.cmdReset(args)
	case "history", "hist":
		return d.cmdHistory(args)
	case "help", "h", "?":
		return d.cmdHelp(args)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// GetOutput returns and clears the debugger's output buffer.
func (d *Debugger) GetOutput() string {
	out := d.Output.String()
	d.Output.Reset()
	return out
}

func (d *Debugger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.Output, format, args...)
}

func (d *Debugger) Println(args ...interface{}) {
	fmt.Fprintln(&d.Output, args...)
}

// resolveStatic walks the static-link chain levelDiff times, mirroring the
// VM's own LOD/STO addressing, so "print" reads the same cell the compiled
// program would.
func resolveStatic(machine *vm.VM, levelDiff int) int {
	addr := machine.BP
	for i := 0; i < levelDiff; i++ {
		addr = machine.Stack[addr+2]
	}
	return addr
}

// frameChain walks the dynamic-link chain from bp back to the outermost
// frame, returning each frame's base address, outermost first.
func frameChain(machine *vm.VM) []int {
	var chain []int
	bp := machine.BP
	for {
		chain = append([]int{bp}, chain...)
		if bp == 0 {
			break
		}
		bp = machine.Stack[bp+1]
	}
	return chain
}

func instructionText(ins bytecode.Instruction) string {
	if ins.Op == bytecode.OPR {
		return fmt.Sprintf("OPR %s", bytecode.Opt(ins.Address))
	}
	return fmt.Sprintf("%s %d,%d", ins.Op, ins.Level, ins.Address)
}
