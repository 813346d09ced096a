// Package options contains the program options.
package options

import (
	"strings"
	"time"
)

// Display backends that the framebuffer can be rendered to.
const (
	DisplayTerminal = "terminal"
	DisplayText     = "text"
	DisplayNone     = "none"
)

// DefaultRate is the default number of instructions executed per second.
const DefaultRate = 500

// TimerRate is the frequency in Hz at which the delay and sound timers count down.
const TimerRate = 60

// Parameters contains file path options.
type Parameters struct {
	Input string `flag:"i" usage:"program image file"`
}

// Flags contains behavior options.
type Flags struct {
	System  string `flag:"s" usage:"target system: chip8 (default: auto-detect)"`
	Display string `flag:"display" usage:"framebuffer output: terminal, text, none" default:"terminal"`
	Watch   bool   `flag:"watch" usage:"restart the program when the image file changes"`
	Trace   bool   `flag:"trace" usage:"log every executed instruction, implies -debug"`
	Debug   bool   `flag:"debug" usage:"enable debug logging"`
	Quiet   bool   `flag:"q" usage:"quiet mode"`
}

// ExecutionFlags contains options controlling the run loop.
type ExecutionFlags struct {
	Rate        int    `flag:"rate" usage:"instructions per second, 0 runs unpaced" default:"500"`
	Cycles      int    `flag:"cycles" usage:"stop after this many cycles, 0 runs until interrupted"`
	StopOnError bool   `flag:"stop-on-error" usage:"stop at the first failing cycle"`
	MaxErrors   int    `flag:"max-errors" usage:"stop after this many failing cycles, 0 for no limit"`
	Seed        uint64 `flag:"seed" usage:"random number generator seed, 0 for a time based seed"`
}

// Program options of the virtual machine.
type Program struct {
	Parameters
	Flags
	ExecutionFlags
}

// Runner defines options to control the run loop.
type Runner struct {
	CycleInterval time.Duration // pause between cycles, 0 for unpaced execution
	TimerInterval time.Duration // pause between timer decrements
	MaxCycles     int           // 0 for no limit
	MaxErrors     int           // 0 for no limit
	StopOnError   bool
	Trace         bool
}

// NewRunner returns runner options derived from the program options.
func NewRunner(opts Program) Runner {
	r := Runner{
		TimerInterval: time.Second / TimerRate,
		MaxCycles:     opts.Cycles,
		MaxErrors:     opts.MaxErrors,
		StopOnError:   opts.StopOnError,
		Trace:         opts.Trace,
	}
	if opts.Rate > 0 {
		r.CycleInterval = time.Second / time.Duration(opts.Rate)
	}
	return r
}

// NormalizeDisplay returns the lower case display name.
func NormalizeDisplay(display string) string {
	return strings.ToLower(strings.TrimSpace(display))
}
