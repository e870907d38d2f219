package debugger

import "sync"

// recognizedCommand reports whether name is one of the PL/0 debugger's own
// command verbs (the set handleCommand dispatches on, plus "quit"/"q",
// which RunCLI handles before dispatch). CommandHistory
// uses it to keep recall free of typos and unknown-command noise.
func recognizedCommand(name string) bool {
	switch name {
	case "run", "r",
		"continue", "c",
		"step", "s",
		"next", "n",
		"finish", "fin",
		"break", "b",
		"tbreak", "tb",
		"delete", "d",
		"enable",
		"disable",
		"print", "p",
		"backtrace", "bt", "where",
		"list", "l",
		"info", "i",
		"reset",
		"history", "hist",
		"help", "h", "?",
		"quit", "q":
		return true
	default:
		return false
	}
}

// CommandHistory records the debugger REPL's command lines so the CLI's
// "history" command and the TUI's up/down recall can replay them. Only
// lines whose verb the debugger actually dispatches are kept; a mistyped
// line is still executed (and still reports "unknown command") but isn't
// worth recalling.
type CommandHistory struct {
	mu     sync.RWMutex
	lines  []string
	cursor int // index Previous/Next navigate from; len(lines) means "not browsing"
	cap    int
}

// NewCommandHistory creates an empty history capped at 1000 lines, enough
// for a long interactive session without growing unbounded.
func NewCommandHistory() *CommandHistory {
	return &CommandHistory{
		lines: make([]string, 0, 100),
		cap:   1000,
	}
}

// Add records line at the end of history and resets the recall cursor
// there. Blank lines, a line repeating the one just recorded, and lines
// whose verb handleCommand wouldn't recognize are all dropped silently.
func (h *CommandHistory) Add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if line == "" {
		return
	}
	if len(h.lines) > 0 && h.lines[len(h.lines)-1] == line {
		h.cursor = len(h.lines)
		return
	}
	verb := line
	for i, r := range line {
		if r == ' ' {
			verb = line[:i]
			break
		}
	}
	if !recognizedCommand(verb) {
		return
	}

	h.lines = append(h.lines, line)
	if len(h.lines) > h.cap {
		h.lines = h.lines[len(h.lines)-h.cap:]
	}
	h.cursor = len(h.lines)
}

// Previous moves the recall cursor one line back (toward older commands)
// and returns the line it lands on, or "" if already at the oldest line.
func (h *CommandHistory) Previous() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.lines) == 0 || h.cursor == 0 {
		return ""
	}
	h.cursor--
	return h.lines[h.cursor]
}

// Next moves the recall cursor one line forward and returns the line it
// lands on, or "" once it has moved past the newest entry.
func (h *CommandHistory) Next() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.lines) == 0 {
		return ""
	}
	if h.cursor >= len(h.lines)-1 {
		h.cursor = len(h.lines)
		return ""
	}
	h.cursor++
	return h.lines[h.cursor]
}

// GetLast returns the most recently recorded line without moving the
// recall cursor.
func (h *CommandHistory) GetLast() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.lines) == 0 {
		return ""
	}
	return h.lines[len(h.lines)-1]
}

// GetAll returns every recorded line, oldest first.
func (h *CommandHistory) GetAll() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, len(h.lines))
	copy(out, h.lines)
	return out
}

// Clear empties the history and resets the recall cursor.
func (h *CommandHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lines = h.lines[:0]
	h.cursor = 0
}

// Size returns the number of recorded lines.
func (h *CommandHistory) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.lines)
}

// Search returns every recorded line whose verb-and-argument text starts
// with prefix, in the order the "history" command lists them.
func (h *CommandHistory) Search(prefix string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []string
	for _, line := range h.lines {
		if len(line) >= len(prefix) && line[:len(prefix)] == prefix {
			out = append(out, line)
		}
	}
	return out
}
