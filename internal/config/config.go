// Package config handles application configuration and setup.
package config

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger for the level selected by the flags that
// writes to output. Tracing needs debug output and wins over quiet mode.
func CreateLogger(flags options.Flags, output io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = output
	switch {
	case flags.Debug, flags.Trace:
		cfg.Level = log.DebugLevel
	case flags.Quiet:
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// maxHeldOutput limits the held output, later writes are dropped and counted.
const maxHeldOutput = 1 << 20

// HeldOutput collects log output while another component owns the terminal.
// After Release all held and future output goes to the release target.
type HeldOutput struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	dropped int
	target  io.Writer
}

// NewHeldOutput returns an output that holds everything until released.
func NewHeldOutput() *HeldOutput {
	return &HeldOutput{}
}

// Write implements io.Writer.
func (h *HeldOutput) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.target != nil {
		return h.target.Write(p)
	}
	if h.buf.Len()+len(p) > maxHeldOutput {
		h.dropped += len(p)
		return len(p), nil
	}
	return h.buf.Write(p)
}

// Release writes the held output to w and passes all further writes to it.
func (h *HeldOutput) Release(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.target = w
	if _, err := h.buf.WriteTo(w); err != nil {
		return fmt.Errorf("writing held output: %w", err)
	}
	if h.dropped > 0 {
		if _, err := fmt.Fprintf(w, "%d bytes of log output dropped\n", h.dropped); err != nil {
			return fmt.Errorf("writing held output: %w", err)
		}
	}
	return nil
}

// LogOutput returns the writer the logger should use for the given display.
// The terminal display owns stdout while it runs, so its log output is held
// and the returned release function has to be called after the display closed.
func LogOutput(flags options.Flags, stdout io.Writer) (io.Writer, func() error) {
	if options.NormalizeDisplay(flags.Display) != options.DisplayTerminal {
		return stdout, func() error { return nil }
	}
	held := NewHeldOutput()
	return held, func() error { return held.Release(stdout) }
}
