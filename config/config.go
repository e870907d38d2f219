// Package config loads and saves the toolchain's persistent settings as
// TOML, in the same shape the teacher uses: one struct of nested sections,
// a package-level default, and a load/save pair keyed off a platform
// config path.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable of the lexer/compiler/VM pipeline and its
// debugger front ends.
type Config struct {
	// Execution settings bound the VM's resource usage.
	Execution struct {
		MaxCycles   uint64 `toml:"max_cycles"`
		StackSize   int    `toml:"stack_size"`
		EnableStats bool   `toml:"enable_stats"`
		EnableTrace bool   `toml:"enable_trace"`
	} `toml:"execution"`

	// Debugger settings are loaded and saved with the rest of the file; the
	// debugger package does not read them (CommandHistory keeps its own
	// 1000-line cap).
	Debugger struct {
		HistorySize   int  `toml:"history_size"`
		ShowSource    bool `toml:"show_source"`
		ShowCallStack bool `toml:"show_call_stack"`
	} `toml:"debugger"`

	// Display settings are loaded and saved with the rest of the file;
	// neither bytecode.Listing nor ast.Print reads them.
	Display struct {
		ListingWidth int    `toml:"listing_width"`
		NumberBase   int    `toml:"number_base"` // 10 or 16
		IndentSize   int    `toml:"indent_size"`
		NumberFormat string `toml:"number_format"` // "dec" or "hex"
	} `toml:"display"`

	// Trace settings control the optional per-instruction execution log.
	Trace struct {
		OutputFile string `toml:"output_file"`
		MaxEntries int    `toml:"max_entries"`
	} `toml:"trace"`

	// Statistics settings control the optional post-run summary. OutputFile
	// is the default report path; the report is always plain text and
	// Format is not read.
	Statistics struct {
		OutputFile string `toml:"output_file"`
		Format     string `toml:"format"`
	} `toml:"statistics"`
}

// DefaultConfig returns a configuration with the toolchain's built-in
// defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Execution.MaxCycles = 10_000_000
	cfg.Execution.StackSize = 2000
	cfg.Execution.EnableStats = false
	cfg.Execution.EnableTrace = false

	cfg.Debugger.HistorySize = 500
	cfg.Debugger.ShowSource = true
	cfg.Debugger.ShowCallStack = true

	cfg.Display.ListingWidth = 80
	cfg.Display.NumberBase = 10
	cfg.Display.IndentSize = 2
	cfg.Display.NumberFormat = "dec"

	cfg.Trace.OutputFile = "trace.log"
	cfg.Trace.MaxEntries = 100000

	cfg.Statistics.OutputFile = "stats.txt"
	cfg.Statistics.Format = "text"

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "pl0vm")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "pl0vm")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "pl0vm", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "pl0vm", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from path, falling back to defaults for any
// field the file doesn't set (and for the whole config if the file doesn't
// exist).
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
