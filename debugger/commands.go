package debugger

import (
	"fmt"
	"strconv"

	"github.com/plzero/pl0vm/bytecode"
	"github.com/plzero/pl0vm/vm"
)

func (d *Debugger) cmdRun(args []string) error {
	d.VM.Reset()
	d.StepMode = StepNone
	d.Println("starting program execution...")
	return d.runUntilStop()
}

func (d *Debugger) cmdContinue(args []string) error {
	if d.VM.State == vm.StateHalted {
		return fmt.Errorf("program is not running")
	}
	d.StepMode = StepNone
	d.Println("continuing...")
	return d.runUntilStop()
}

func (d *Debugger) cmdStep(args []string) error {
	d.StepMode = StepSingle
	return d.runUntilStop()
}

// cmdNext steps over a call: if the current instruction is CAL, runs until
// control returns to the following address; otherwise behaves like step.
func (d *Debugger) cmdNext(args []string) error {
	if d.VM.PC < len(d.VM.Code) && d.VM.Code[d.VM.PC].Op == bytecode.CAL {
		d.stepOverPC = d.VM.PC + 1
		d.StepMode = StepOver
	} else {
		d.StepMode = StepSingle
	}
	return d.runUntilStop()
}

// cmdFinish steps out of the current procedure: runs until the call that
// created the current frame returns (PC reaches the frame's saved return
// address).
func (d *Debugger) cmdFinish(args []string) error {
	d.stepOutBP = d.VM.Stack[d.VM.BP]
	d.StepMode = StepOut
	return d.runUntilStop()
}

func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <address|procedure>")
	}
	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	bp := d.Breakpoints.AddBreakpoint(address, false)
	d.Printf("breakpoint %d at %d\n", bp.ID, address)
	return nil
}

func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tbreak <address|procedure>")
	}
	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}
	bp := d.Breakpoints.AddBreakpoint(address, true)
	d.Printf("temporary breakpoint %d at %d\n", bp.ID, address)
	return nil
}

func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Println("all breakpoints deleted")
		return nil
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", args[0])
	}
	if err := d.Breakpoints.DeleteBreakpoint(id); err != nil {
		return err
	}
	d.Printf("breakpoint %d deleted\n", id)
	return nil
}

func (d *Debugger) cmdEnable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: enable <breakpoint-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", args[0])
	}
	if err := d.Breakpoints.EnableBreakpoint(id); err != nil {
		return err
	}
	d.Printf("breakpoint %d enabled\n", id)
	return nil
}

func (d *Debugger) cmdDisable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: disable <breakpoint-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", args[0])
	}
	if err := d.Breakpoints.DisableBreakpoint(id); err != nil {
		return err
	}
	d.Printf("breakpoint %d disabled\n", id)
	return nil
}

// cmdPrint prints a value from the current frame: "print <level-diff>
// <slot>" reads a local by its compiled address, "print pc|bp|sp" reads a
// register.
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print pc|bp|sp | print <level-diff> <slot>")
	}

	switch args[0] {
	case "pc":
		d.Printf("pc = %d\n", d.VM.PC)
		return nil
	case "bp":
		d.Printf("bp = %d\n", d.VM.BP)
		return nil
	case "sp":
		d.Printf("sp = %d\n", d.VM.SP)
		return nil
	}

	if len(args) != 2 {
		return fmt.Errorf("usage: print <level-diff> <slot>")
	}
	levelDiff, err1 := strconv.Atoi(args[0])
	slot, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return fmt.Errorf("usage: print <level-diff> <slot>")
	}

	base := resolveStatic(d.VM, levelDiff)
	addr := base + 3 + slot
	if addr < 0 || addr >= len(d.VM.Stack) {
		return fmt.Errorf("slot %d out of range", slot)
	}
	d.Printf("%d\n", d.VM.Stack[addr])
	return nil
}

// cmdBacktrace prints every active frame's base address and saved return
// address, outermost first, illustrating the dynamic-link chain.
func (d *Debugger) cmdBacktrace(args []string) error {
	chain := frameChain(d.VM)
	for i, base := range chain {
		ret := d.VM.Stack[base]
		d.Printf("#%d frame@%d return=%d\n", i, base, ret)
	}
	return nil
}

func (d *Debugger) cmdList(args []string) error {
	from, to := d.VM.PC-3, d.VM.PC+4
	if from < 0 {
		from = 0
	}
	if to > len(d.VM.Code) {
		to = len(d.VM.Code)
	}
	for i := from; i < to; i++ {
		marker := "  "
		if i == d.VM.PC {
			marker = "->"
		}
		d.Printf("%s %4d  %s\n", marker, i, instructionText(d.VM.Code[i]))
	}
	return nil
}

func (d *Debugger) cmdInfo(args []string) error {
	d.Printf("state=%s pc=%d bp=%d sp=%d cycles=%d breakpoints=%d\n",
		d.VM.State, d.VM.PC, d.VM.BP, d.VM.SP, d.VM.Cycles, d.Breakpoints.Count())
	return nil
}

func (d *Debugger) cmdReset(args []string) error {
	d.VM.Reset()
	d.Running = false
	d.StepMode = StepNone
	d.Println("VM reset")
	return nil
}

// cmdHistory lists recorded command lines, oldest first. A prefix argument
// narrows the listing to lines starting with it.
func (d *Debugger) cmdHistory(args []string) error {
	lines := d.History.GetAll()
	if len(args) > 0 {
		lines = d.History.Search(args[0])
	}
	for i, line := range lines {
		d.Printf("%4d  %s\n", i+1, line)
	}
	return nil
}

func (d *Debugger) cmdHelp(args []string) error {
	d.Println("commands: run/r continue/c step/s next/n finish/fin break/b tbreak/tb")
	d.Println("          delete/d enable disable print/p backtrace/bt list/l info/i reset")
	d.Println("          history/hist help/h quit/q")
	return nil
}
