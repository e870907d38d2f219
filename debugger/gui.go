package debugger

import (
	"fmt"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// GUI is a minimal desktop debugger window built on fyne: a bytecode
// listing and a call-stack (activation record) view side by side, a
// console, and a command entry. Its purpose is to make the two-link
// frame discipline (dynamic link for return, static link for lexical
// scoping) visible at a glance.
type GUI struct {
	Debugger *Debugger
	App      fyne.App
	Window   fyne.Window

	BytecodeView *widget.TextGrid
	StackView    *widget.TextGrid
	ConsoleView  *widget.TextGrid
	StatusLabel  *widget.Label
	CommandEntry *widget.Entry

	consoleBuffer strings.Builder
	consoleMutex  sync.Mutex
}

type guiWriter struct{ gui *GUI }

func (w *guiWriter) Write(p []byte) (int, error) {
	w.gui.consoleMutex.Lock()
	defer w.gui.consoleMutex.Unlock()
	w.gui.consoleBuffer.Write(p)
	w.gui.ConsoleView.SetText(w.gui.consoleBuffer.String())
	return len(p), nil
}

// NewGUI creates a GUI over debugger.
func NewGUI(debugger *Debugger) *GUI {
	myApp := app.New()
	myWindow := myApp.NewWindow("PL/0 Debugger")

	g := &GUI{Debugger: debugger, App: myApp, Window: myWindow}
	g.initializeViews()
	g.buildLayout()

	debugger.VM.SetOutput(&guiWriter{gui: g})
	myWindow.Resize(fyne.NewSize(1000, 700))
	return g
}

func (g *GUI) initializeViews() {
	g.BytecodeView = widget.NewTextGrid()
	g.StackView = widget.NewTextGrid()
	g.ConsoleView = widget.NewTextGrid()
	g.StatusLabel = widget.NewLabel("")
	g.CommandEntry = widget.NewEntry()
	g.CommandEntry.SetPlaceHolder("command (step, continue, break <addr>, ...)")
	g.CommandEntry.OnSubmitted = g.executeCommand
}

func (g *GUI) buildLayout() {
	toolbar := container.NewHBox(
		widget.NewButton("Step", func() { g.executeCommand("step") }),
		widget.NewButton("Next", func() { g.executeCommand("next") }),
		widget.NewButton("Continue", func() { g.executeCommand("continue") }),
		widget.NewButton("Reset", func() { g.executeCommand("reset") }),
	)

	panels := container.NewHSplit(
		container.NewBorder(widget.NewLabel("Bytecode"), nil, nil, nil, g.BytecodeView),
		container.NewBorder(widget.NewLabel("Call stack"), nil, nil, nil, g.StackView),
	)

	content := container.NewBorder(
		container.NewVBox(toolbar, g.StatusLabel),
		container.NewVBox(g.CommandEntry, container.NewBorder(widget.NewLabel("Console"), nil, nil, nil, g.ConsoleView)),
		nil, nil,
		panels,
	)

	g.Window.SetContent(content)
}

func (g *GUI) executeCommand(cmd string) {
	if cmd == "" {
		return
	}
	if err := g.Debugger.ExecuteCommand(cmd); err != nil {
		fmt.Fprintf(&guiWriter{gui: g}, "error: %v\n", err)
	}
	if output := g.Debugger.GetOutput(); output != "" {
		fmt.Fprint(&guiWriter{gui: g}, output)
	}
	g.CommandEntry.SetText("")
	g.refresh()
}

func (g *GUI) refresh() {
	g.BytecodeView.SetText(g.bytecodeText())
	g.StackView.SetText(g.stackText())
	machine := g.Debugger.VM
	g.StatusLabel.SetText(fmt.Sprintf("pc=%d bp=%d sp=%d state=%s cycles=%d",
		machine.PC, machine.BP, machine.SP, machine.State, machine.Cycles))
}

func (g *GUI) bytecodeText() string {
	machine := g.Debugger.VM
	from, to := machine.PC-8, machine.PC+16
	if from < 0 {
		from = 0
	}
	if to > len(machine.Code) {
		to = len(machine.Code)
	}
	var lines []string
	for i := from; i < to; i++ {
		marker := "  "
		if i == machine.PC {
			marker = "->"
		}
		lines = append(lines, fmt.Sprintf("%s %4d  %s", marker, i, instructionText(machine.Code[i])))
	}
	return strings.Join(lines, "\n")
}

func (g *GUI) stackText() string {
	machine := g.Debugger.VM
	chain := frameChain(machine)
	var lines []string
	for i, base := range chain {
		lines = append(lines, fmt.Sprintf("frame #%d @%d  dynlink=%d statlink=%d",
			i, base, machine.Stack[base+1], machine.Stack[base+2]))
	}
	return strings.Join(lines, "\n")
}

// Run shows the window and blocks until it is closed.
func (g *GUI) Run() error {
	g.refresh()
	g.Window.ShowAndRun()
	return nil
}
