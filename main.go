package main

import (
	"fmt"
	"os"

	"flag"

	"github.com/plzero/pl0vm/ast"
	"github.com/plzero/pl0vm/bytecode"
	"github.com/plzero/pl0vm/compiler"
	"github.com/plzero/pl0vm/config"
	"github.com/plzero/pl0vm/debugger"
	"github.com/plzero/pl0vm/lexer"
	"github.com/plzero/pl0vm/parser"
	"github.com/plzero/pl0vm/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Exit codes. 0 and 1 are conventional; the rest give a caller one code
// per pipeline stage so a script can tell what failed without scraping
// stderr.
const (
	exitOK = iota
	exitIOError
	exitCompileError
	exitRuntimeError
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode")
		tuiMode     = flag.Bool("tui", false, "Use TUI (text) debugger")
		guiMode     = flag.Bool("gui", false, "Start the desktop (fyne) debugger")
		configPath  = flag.String("config", "", "Path to config file (default: platform config dir)")

		enableTrace = flag.Bool("trace", false, "Enable execution trace")
		traceFile   = flag.String("trace-file", "", "Trace output file (default: from config)")
		enableStats = flag.Bool("stats", false, "Enable performance statistics")
		statsFile   = flag.String("stats-file", "", "Statistics output file (default: from config)")

		showTokens   bool
		showBytecode bool
		compileOnly  bool
		showAST      bool
		plotTree     string
	)

	flag.BoolVar(&showTokens, "show-tokens", false, "Print the token stream and exit")
	flag.BoolVar(&showTokens, "l", false, "Print the token stream and exit (shorthand)")
	flag.BoolVar(&showBytecode, "show-bytecode", false, "Print the bytecode listing after compilation")
	flag.BoolVar(&showBytecode, "s", false, "Print the bytecode listing after compilation (shorthand)")
	flag.BoolVar(&compileOnly, "compile-only", false, "Compile but do not execute")
	flag.BoolVar(&compileOnly, "c", false, "Compile but do not execute (shorthand)")
	flag.BoolVar(&showAST, "show-ast", false, "Print the parsed AST")
	flag.BoolVar(&showAST, "t", false, "Print the parsed AST (shorthand)")
	flag.StringVar(&plotTree, "plot-tree", "", "Write a GraphViz DOT graph of the AST to this file")

	flag.Parse()

	if *showVersion {
		fmt.Printf("pl0vm %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("built: %s\n", Date)
		}
		return
	}

	if *showHelp {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(exitIOError)
	}

	sourcePath := flag.Arg(0)
	source, err := os.ReadFile(sourcePath) // #nosec G304 -- user-specified source file
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", sourcePath, err)
		os.Exit(exitIOError)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIOError)
	}

	if showTokens {
		printTokens(string(source), sourcePath)
		return
	}

	p := parser.NewParser(string(source), sourcePath)
	block, err := p.Parse()
	if err != nil {
		reportError(err)
		os.Exit(exitCompileError)
	}

	if showAST {
		fmt.Print(ast.Print(block))
	}
	if plotTree != "" {
		if err := os.WriteFile(plotTree, []byte(ast.Dot(block)), 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot write %s: %v\n", plotTree, err)
			os.Exit(exitIOError)
		}
	}

	code, err := compiler.Compile(block)
	if err != nil {
		reportError(err)
		os.Exit(exitCompileError)
	}

	if showBytecode {
		fmt.Print(bytecode.Listing(code))
	}

	if compileOnly {
		return
	}

	machine := vm.New(code)
	machine.SetStackSize(cfg.Execution.StackSize)
	machine.MaxCycles = cfg.Execution.MaxCycles

	if *enableStats || cfg.Execution.EnableStats {
		machine.Statistics = vm.NewStatistics()
		machine.Statistics.Start()
	}
	if *enableTrace || cfg.Execution.EnableTrace {
		machine.Trace = vm.NewExecutionTrace(cfg.Trace.MaxEntries)
		machine.Trace.Start()
	}

	if *debugMode || *tuiMode || *guiMode {
		runDebugger(machine, block, *tuiMode, *guiMode)
		flushDiagnostics(machine, *traceFile, *statsFile, cfg)
		return
	}

	runErr := machine.Run()
	if machine.Statistics != nil {
		machine.Statistics.Stop()
	}
	flushDiagnostics(machine, *traceFile, *statsFile, cfg)
	if runErr != nil {
		reportError(runErr)
		os.Exit(exitRuntimeError)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func runDebugger(machine *vm.VM, block *ast.Block, tui, gui bool) {
	dbg := debugger.NewDebugger(machine)
	dbg.LoadProcedures(procedureEntries(block))

	switch {
	case tui:
		if err := debugger.RunTUI(dbg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitRuntimeError)
		}
	case gui:
		if err := debugger.RunGUI(dbg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitRuntimeError)
		}
	default:
		fmt.Println("pl0 debugger - type 'help' for commands, 'quit' to exit")
		if err := debugger.RunCLI(dbg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitRuntimeError)
		}
	}
}

// procedureEntries walks every block's procedures, recording each symbol's
// compiled entry address so the debugger can resolve "break <name>".
func procedureEntries(block *ast.Block) map[string]int {
	entries := make(map[string]int)
	var walk func(b *ast.Block)
	walk = func(b *ast.Block) {
		for _, proc := range b.Procedures {
			entries[proc.Symbol.Name] = proc.Symbol.Entry
			walk(proc.Body)
		}
	}
	walk(block)
	return entries
}

func flushDiagnostics(machine *vm.VM, traceFile, statsFile string, cfg *config.Config) {
	if machine.Statistics != nil {
		path := statsFile
		if path == "" {
			path = cfg.Statistics.OutputFile
		}
		f, err := os.Create(path) // #nosec G304 -- user-specified statistics path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot write statistics to %s: %v\n", path, err)
		} else {
			if err := machine.Statistics.Report(f); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			f.Close()
		}
	}

	if machine.Trace != nil {
		path := traceFile
		if path == "" {
			path = cfg.Trace.OutputFile
		}
		f, err := os.Create(path) // #nosec G304 -- user-specified trace path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot write trace to %s: %v\n", path, err)
		} else {
			if err := machine.Trace.Flush(f); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			f.Close()
		}
	}
}

// printTokens lexes source independently of the parser and prints every
// token, one per line, stopping at (and including) EOS or ILLEGAL.
func printTokens(source, file string) {
	lex := lexer.New(source, file)
	for {
		tok := lex.Peek()
		fmt.Println(tok)
		if tok.Type == lexer.EOS || tok.Type == lexer.ILLEGAL {
			return
		}
		lex.Advance()
	}
}

// reportError renders err to stderr in the CLI's required location-prefixed
// format when a source position is available, and as a plain message
// otherwise (runtime errors have no source position).
func reportError(err error) {
	switch e := err.(type) {
	case *parser.Error:
		fmt.Fprintln(os.Stderr, e.Error())
	case *compiler.Error:
		if e.Pos.Line == 0 && e.Pos.Column == 0 {
			fmt.Fprintf(os.Stderr, "Error: %s\n", e.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error(%d:%d): %s\n", e.Pos.Line, e.Pos.Column, e.Message)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func printHelp() {
	fmt.Printf(`pl0vm %s - a PL/0 lexer, parser, compiler, and stack-machine VM

Usage: pl0vm [options] <source-file>

Options:
  -help                 Show this help message
  -version              Show version information
  -show-tokens, -l       Print the token stream and exit
  -show-bytecode, -s     Print the bytecode listing after compilation
  -compile-only, -c      Compile but do not execute
  -show-ast, -t          Print the parsed AST
  -plot-tree FILE        Write a GraphViz DOT graph of the AST to FILE
  -config FILE           Path to a TOML config file (default: platform config dir)

Debugger:
  -debug                 Start in the interactive command-line debugger
  -tui                   Start in the full-screen text (tview) debugger
  -gui                   Start the desktop (fyne) debugger

Tracing & statistics:
  -trace                 Enable execution tracing
  -trace-file FILE       Trace output file (default: from config)
  -stats                 Enable performance statistics
  -stats-file FILE       Statistics output file (default: from config)

Examples:
  pl0vm factorial.pl0
  pl0vm -show-bytecode -c factorial.pl0
  pl0vm -debug factorial.pl0
`, Version)
}
