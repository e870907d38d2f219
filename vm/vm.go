// Package vm implements the PL/0 stack machine: a flat, fixed-size integer
// array, three registers (pc, bp, sp), and one instruction dispatch loop.
// Grounded on original_source's vm.cpp for instruction semantics, adapted
// from its per-call frame objects to the flat-array design the runtime
// requires, and on the teacher's executor.go for the run-state/statistics
// shape around that loop.
package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/plzero/pl0vm/bytecode"
)

// State is the VM's run state.
type State int

const (
	StateHalted State = iota
	StateRunning
	StateBreakpoint
	StateError
)

func (s State) String() string {
	switch s {
	case StateHalted:
		return "halted"
	case StateRunning:
		return "running"
	case StateBreakpoint:
		return "breakpoint"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	// DefaultStackSize is the number of int cells available to a program
	// that does not configure its own limit.
	DefaultStackSize = 2000
	// DefaultMaxCycles bounds runaway loops in a program with no explicit
	// limit; zero disables the check.
	DefaultMaxCycles = 10_000_000
)

var (
	ErrStackOverflow    = errors.New("stack overflow")
	ErrStackUnderflow   = errors.New("stack underflow")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrCycleLimit       = errors.New("cycle limit exceeded")
	ErrInvalidOperation = errors.New("invalid operation")
)

// RuntimeError wraps an execution error with the program counter at which
// it occurred.
type RuntimeError struct {
	PC  int
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at pc=%d: %s", e.PC, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Hook is called after every successfully executed instruction, before the
// next fetch. Debuggers and tracers use it to observe state without the VM
// depending on either.
type Hook func(pc int, ins bytecode.Instruction, bp, sp int)

// VM executes a finished instruction stream against a flat data stack.
type VM struct {
	Code  []bytecode.Instruction
	Stack []int

	PC, BP, SP int
	Cycles     uint64

	MaxCycles uint64
	State     State
	LastError error

	Output io.Writer
	Input  *bufio.Reader

	Statistics *Statistics
	Trace      *ExecutionTrace

	// BeforeStep, when set, runs before every fetch; returning false halts
	// execution without error (used to implement breakpoints).
	BeforeStep func(vm *VM) bool
	// AfterStep runs after every executed instruction.
	AfterStep Hook
}

// New creates a VM over code with default stack size, cycle limit, and
// stdin/stdout streams.
func New(code []bytecode.Instruction) *VM {
	return &VM{
		Code:      code,
		Stack:     make([]int, DefaultStackSize),
		MaxCycles: DefaultMaxCycles,
		State:     StateHalted,
		Output:    os.Stdout,
		Input:     bufio.NewReader(os.Stdin),
	}
}

// SetStackSize replaces the data stack with one of the given size. Call
// before Run.
func (vm *VM) SetStackSize(n int) {
	vm.Stack = make([]int, n)
}

// SetOutput redirects WRITE output.
func (vm *VM) SetOutput(w io.Writer) { vm.Output = w }

// SetInput redirects READ input.
func (vm *VM) SetInput(r io.Reader) { vm.Input = bufio.NewReader(r) }

// Reset rewinds registers and state so the same code can be run again.
func (vm *VM) Reset() {
	vm.PC, vm.BP, vm.SP, vm.Cycles = 0, 0, 0, 0
	vm.State = StateHalted
	vm.LastError = nil
	for i := range vm.Stack {
		vm.Stack[i] = 0
	}
}

// Run executes from the current pc until halt, a breakpoint, or an error.
// The outermost frame's return address is the bytecode's length, so
// returning from the outermost block naturally drives pc past the end of
// code and halts the loop.
func (vm *VM) Run() error {
	if vm.State == StateHalted && vm.PC == 0 && vm.SP == 0 {
		vm.primeOutermostFrame()
	}
	vm.State = StateRunning
	for vm.State == StateRunning {
		if vm.BeforeStep != nil && !vm.BeforeStep(vm) {
			vm.State = StateBreakpoint
			return nil
		}
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return vm.LastError
}

func (vm *VM) primeOutermostFrame() {
	vm.Stack[0] = len(vm.Code) // return address: halts on outermost RET
	vm.Stack[1] = 0            // dynamic link: bp after the outermost RET, when the loop halts
	vm.Stack[2] = 0            // static link: resolves to itself
}

// Step executes a single instruction. It is safe to call directly (instead
// of through Run) to single-step a program, e.g. from a debugger.
func (vm *VM) Step() error {
	if vm.MaxCycles > 0 && vm.Cycles >= vm.MaxCycles {
		return vm.fail(ErrCycleLimit)
	}
	if vm.PC < 0 || vm.PC >= len(vm.Code) {
		vm.State = StateHalted
		return nil
	}

	execPC := vm.PC
	ins := vm.Code[vm.PC]
	vm.PC++

	if err := vm.execute(ins); err != nil {
		return vm.fail(err)
	}

	vm.Cycles++
	if vm.Statistics != nil {
		vm.Statistics.record(ins)
	}
	if vm.Trace != nil {
		vm.Trace.record(execPC, ins, vm.BP, vm.SP)
	}
	if vm.AfterStep != nil {
		vm.AfterStep(execPC, ins, vm.BP, vm.SP)
	}
	if vm.PC >= len(vm.Code) {
		vm.State = StateHalted
	}
	return nil
}

func (vm *VM) fail(err error) error {
	vm.State = StateError
	vm.LastError = &RuntimeError{PC: vm.PC - 1, Err: err}
	return vm.LastError
}

// resolve walks the static-link chain levelDiff times, starting at bp, and
// returns the base address of the resulting frame.
func (vm *VM) resolve(levelDiff int) int {
	addr := vm.BP
	for i := 0; i < levelDiff; i++ {
		addr = vm.Stack[addr+2]
	}
	return addr
}

func (vm *VM) push(v int) error {
	if vm.SP >= len(vm.Stack) {
		return ErrStackOverflow
	}
	vm.Stack[vm.SP] = v
	vm.SP++
	return nil
}

func (vm *VM) pop() (int, error) {
	if vm.SP <= 0 {
		return 0, ErrStackUnderflow
	}
	vm.SP--
	return vm.Stack[vm.SP], nil
}

func (vm *VM) execute(ins bytecode.Instruction) error {
	switch ins.Op {
	case bytecode.LIT:
		return vm.push(ins.Address)

	case bytecode.LOD:
		base := vm.resolve(ins.Level)
		return vm.push(vm.Stack[base+3+ins.Address])

	case bytecode.STO:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		base := vm.resolve(ins.Level)
		vm.Stack[base+3+ins.Address] = v
		return nil

	case bytecode.CAL:
		if vm.SP+2 >= len(vm.Stack) {
			return ErrStackOverflow
		}
		base := vm.resolve(ins.Level)
		vm.Stack[vm.SP] = vm.PC
		vm.Stack[vm.SP+1] = vm.BP
		vm.Stack[vm.SP+2] = base
		vm.BP = vm.SP
		vm.PC = ins.Address
		return nil

	case bytecode.INT:
		if vm.SP+ins.Address > len(vm.Stack) {
			return ErrStackOverflow
		}
		vm.SP += ins.Address
		return nil

	case bytecode.JMP:
		vm.PC = ins.Address
		return nil

	case bytecode.JPC:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v == 0 {
			vm.PC = ins.Address
		}
		return nil

	case bytecode.OPR:
		return vm.executeOperation(bytecode.Opt(ins.Address))

	default:
		return fmt.Errorf("%w: %s", ErrInvalidOperation, ins.Op)
	}
}

func (vm *VM) executeOperation(op bytecode.Opt) error {
	switch op {
	case bytecode.RET:
		vm.PC = vm.Stack[vm.BP]
		vm.SP = vm.BP
		vm.BP = vm.Stack[vm.BP+1]
		return nil

	case bytecode.WRITE:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(vm.Output, v)
		return err

	case bytecode.READ:
		var v int
		if _, err := fmt.Fscan(vm.Input, &v); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		return vm.push(v)

	case bytecode.ODD:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.push(v % 2)

	default:
		rhs, err := vm.pop()
		if err != nil {
			return err
		}
		lhs, err := vm.pop()
		if err != nil {
			return err
		}
		result, err := applyArithmetic(op, lhs, rhs)
		if err != nil {
			return err
		}
		return vm.push(result)
	}
}

func applyArithmetic(op bytecode.Opt, lhs, rhs int) (int, error) {
	switch op {
	case bytecode.ADD:
		return lhs + rhs, nil
	case bytecode.SUB:
		return lhs - rhs, nil
	case bytecode.MUL:
		return lhs * rhs, nil
	case bytecode.DIV:
		if rhs == 0 {
			return 0, ErrDivisionByZero
		}
		return lhs / rhs, nil
	case bytecode.LE:
		return boolToInt(lhs < rhs), nil
	case bytecode.LEQ:
		return boolToInt(lhs <= rhs), nil
	case bytecode.GE:
		return boolToInt(lhs > rhs), nil
	case bytecode.GEQ:
		return boolToInt(lhs >= rhs), nil
	case bytecode.EQ:
		return boolToInt(lhs == rhs), nil
	case bytecode.NEQ:
		return boolToInt(lhs != rhs), nil
	default:
		return 0, fmt.Errorf("%w: OPR %s", ErrInvalidOperation, op)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
