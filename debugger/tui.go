package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// TUI is a full-screen text debugger over a Debugger, built from tview
// panels: a bytecode listing, the activation-record stack, the pc/bp/sp
// registers, the breakpoint list, command output, and a command line.
type TUI struct {
	Debugger *Debugger
	App      *tview.Application

	MainLayout      *tview.Flex
	BytecodeView    *tview.TextView
	StackView       *tview.TextView
	RegisterView    *tview.TextView
	BreakpointsView *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField
}

// NewTUI creates a TUI over debugger, wiring its panels and key bindings.
func NewTUI(debugger *Debugger) *TUI {
	t := &TUI{Debugger: debugger, App: tview.NewApplication()}
	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

func (t *TUI) initializeViews() {
	t.BytecodeView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.BytecodeView.SetBorder(true).SetTitle(" Bytecode ")

	t.StackView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.StackView.SetBorder(true).SetTitle(" Stack (activation records) ")

	t.RegisterView = tview.NewTextView().SetDynamicColors(true)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.BreakpointsView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.BreakpointsView.SetBorder(true).SetTitle(" Breakpoints ")

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
	t.CommandInput.SetInputCapture(t.recallHistory)
}

// recallHistory lets the up/down arrows browse t.Debugger.History instead of
// being handled by the input field's own cursor movement.
func (t *TUI) recallHistory(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyUp:
		if line := t.Debugger.History.Previous(); line != "" {
			t.CommandInput.SetText(line)
		}
		return nil
	case tcell.KeyDown:
		t.CommandInput.SetText(t.Debugger.History.Next())
		return nil
	}
	return event
}

func (t *TUI) buildLayout() {
	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 5, 0, false).
		AddItem(t.StackView, 0, 2, false).
		AddItem(t.BreakpointsView, 0, 1, false)

	content := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.BytecodeView, 0, 2, false).
		AddItem(right, 0, 1, false)

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(content, 0, 4, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			t.executeCommand("help")
			return nil
		case tcell.KeyF5:
			t.executeCommand("continue")
			return nil
		case tcell.KeyF10:
			t.executeCommand("next")
			return nil
		case tcell.KeyF11:
			t.executeCommand("step")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.CommandInput.GetText()
	if cmd != "" {
		t.executeCommand(cmd)
		t.CommandInput.SetText("")
	}
}

func (t *TUI) executeCommand(cmd string) {
	err := t.Debugger.ExecuteCommand(cmd)
	output := t.Debugger.GetOutput()
	if err != nil {
		t.WriteOutput(fmt.Sprintf("[red]error:[white] %v\n", err))
	}
	if output != "" {
		t.WriteOutput(output)
	}

	t.RefreshAll()
}

func (t *TUI) WriteOutput(text string) {
	_, _ = t.OutputView.Write([]byte(text))
	t.OutputView.ScrollToEnd()
}

func (t *TUI) RefreshAll() {
	t.updateBytecodeView()
	t.updateStackView()
	t.updateRegisterView()
	t.updateBreakpointsView()
	t.App.Draw()
}

func (t *TUI) updateBytecodeView() {
	pc := t.Debugger.VM.PC
	from, to := pc-8, pc+16
	if from < 0 {
		from = 0
	}
	if to > len(t.Debugger.VM.Code) {
		to = len(t.Debugger.VM.Code)
	}

	var lines []string
	for i := from; i < to; i++ {
		marker, color := "  ", "white"
		if i == pc {
			marker, color = "->", "yellow"
		}
		if t.Debugger.Breakpoints.GetBreakpoint(i) != nil {
			marker = "* "
		}
		lines = append(lines, fmt.Sprintf("[%s]%s %4d  %s[white]", color, marker, i, instructionText(t.Debugger.VM.Code[i])))
	}
	t.BytecodeView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) updateStackView() {
	machine := t.Debugger.VM
	chain := frameChain(machine)

	var lines []string
	for i, base := range chain {
		lines = append(lines, fmt.Sprintf("[yellow]frame #%d @ %d[white] (return=%d dynlink=%d statlink=%d)",
			i, base, machine.Stack[base], machine.Stack[base+1], machine.Stack[base+2]))
		top := base + 3
		limit := machine.SP
		if i < len(chain)-1 {
			limit = chain[i+1]
		}
		for addr := top; addr < limit && addr < len(machine.Stack); addr++ {
			marker := "  "
			if addr == machine.SP-1 {
				marker = "->"
			}
			lines = append(lines, fmt.Sprintf("%s   [%d] = %d", marker, addr-top, machine.Stack[addr]))
		}
	}
	t.StackView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) updateRegisterView() {
	machine := t.Debugger.VM
	t.RegisterView.SetText(fmt.Sprintf("pc: %d\nbp: %d\nsp: %d\ncycles: %d\nstate: %s",
		machine.PC, machine.BP, machine.SP, machine.Cycles, machine.State))
}

func (t *TUI) updateBreakpointsView() {
	bps := t.Debugger.Breakpoints.GetAllBreakpoints()
	if len(bps) == 0 {
		t.BreakpointsView.SetText("[yellow]no breakpoints set[white]")
		return
	}
	var lines []string
	for _, bp := range bps {
		status, color := "enabled", "green"
		if !bp.Enabled {
			status, color = "disabled", "red"
		}
		lines = append(lines, fmt.Sprintf("%d: [%s]%s[white] @%d (hits: %d)", bp.ID, color, status, bp.Address, bp.HitCount))
	}
	t.BreakpointsView.SetText(strings.Join(lines, "\n"))
}

// Run starts the TUI event loop.
func (t *TUI) Run() error {
	t.RefreshAll()
	t.WriteOutput("[green]PL/0 debugger[white]\n")
	t.WriteOutput("F1 help, F5 continue, F10 next, F11 step, ctrl-c quit\n\n")
	return t.App.SetRoot(t.MainLayout, true).SetFocus(t.CommandInput).Run()
}

// Stop ends the TUI event loop.
func (t *TUI) Stop() { t.App.Stop() }
