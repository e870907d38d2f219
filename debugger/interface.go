package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RunCLI drives dbg from stdin: read a command, execute it, and print
// whatever output ExecuteCommand produced. ExecuteCommand itself drives the
// VM to its next stop (breakpoint, step completion, halt, or error) before
// returning, so no further loop is needed here.
func RunCLI(dbg *Debugger) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("(pl0-dbg) ")
		if !scanner.Scan() {
			break
		}

		cmdLine := strings.TrimSpace(scanner.Text())
		if cmdLine == "quit" || cmdLine == "q" || cmdLine == "exit" {
			fmt.Println("exiting debugger...")
			break
		}

		if err := dbg.ExecuteCommand(cmdLine); err != nil {
			fmt.Printf("error: %v\n", err)
		}
		if output := dbg.GetOutput(); output != "" {
			fmt.Print(output)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	return nil
}

// RunTUI runs the full-screen tview debugger.
func RunTUI(dbg *Debugger) error {
	return NewTUI(dbg).Run()
}

// RunGUI runs the fyne desktop debugger window.
func RunGUI(dbg *Debugger) error {
	return NewGUI(dbg).Run()
}
