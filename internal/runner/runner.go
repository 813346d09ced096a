// Package runner drives the interpreter: it paces cycles, counts down the
// timers, applies the error policy and renders after every cycle.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/retroenv/chip8vm/internal/display"
	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/chip8vm/internal/vm"
	"github.com/retroenv/retrogolib/log"
)

// ErrTooManyErrors is returned when the configured number of failed cycles is reached.
var ErrTooManyErrors = errors.New("too many failed cycles")

// Result summarizes a run.
type Result struct {
	Cycles int   // executed cycles, including failed ones
	Errors int   // failed cycles
	Last   error // last cycle error
}

// Runner executes a program on a machine until it is stopped.
type Runner struct {
	logger      *log.Logger
	interpreter *vm.Interpreter
	renderer    display.Renderer
	opts        options.Runner
}

// New returns a new runner.
func New(logger *log.Logger, interpreter *vm.Interpreter, renderer display.Renderer, opts options.Runner) *Runner {
	return &Runner{
		logger:      logger,
		interpreter: interpreter,
		renderer:    renderer,
		opts:        opts,
	}
}

// Run executes cycles on the machine until the context is cancelled, the cycle
// limit is reached or the error policy stops the run.
// A failing cycle is logged and execution continues with the next cycle unless
// StopOnError is set or MaxErrors is reached.
func (r *Runner) Run(ctx context.Context, m *vm.Machine) (Result, error) {
	var res Result

	var cycleTick <-chan time.Time
	if r.opts.CycleInterval > 0 {
		ticker := time.NewTicker(r.opts.CycleInterval)
		defer ticker.Stop()
		cycleTick = ticker.C
	}

	var timerTick <-chan time.Time
	if r.opts.TimerInterval > 0 {
		ticker := time.NewTicker(r.opts.TimerInterval)
		defer ticker.Stop()
		timerTick = ticker.C
	}

	for r.opts.MaxCycles == 0 || res.Cycles < r.opts.MaxCycles {
		if err := r.wait(ctx, m, cycleTick, timerTick); err != nil {
			return res, err
		}

		if err := r.cycle(m, &res); err != nil {
			return res, err
		}

		if err := r.renderer.Render(m.Framebuffer()); err != nil {
			return res, fmt.Errorf("rendering frame: %w", err)
		}
	}

	r.logger.Debug("Cycle limit reached", log.Int("cycles", res.Cycles))
	return res, nil
}

// wait blocks until the next cycle is due, counting down the timers while
// waiting. Without a cycle ticker it only polls for cancellation and timers.
func (r *Runner) wait(ctx context.Context, m *vm.Machine, cycleTick, timerTick <-chan time.Time) error {
	for {
		if cycleTick == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timerTick:
				m.DecrementTimers()
			default:
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timerTick:
			m.DecrementTimers()
		case <-cycleTick:
			return nil
		}
	}
}

// cycle executes a single instruction and applies the error policy.
func (r *Runner) cycle(m *vm.Machine, res *Result) error {
	pc := m.PC()
	word, err := r.interpreter.Step(m)
	res.Cycles++

	if err == nil {
		if r.opts.Trace {
			r.logger.Debug("Executed",
				log.Hex("pc", pc),
				log.Hex("opcode", word),
				log.String("instruction", vm.Mnemonic(word)))
		}
		return nil
	}

	res.Errors++
	res.Last = err
	r.logger.Error("Cycle failed",
		log.Hex("pc", pc),
		log.Hex("opcode", word),
		log.Err(err))

	if r.opts.StopOnError {
		return fmt.Errorf("executing instruction at 0x%04X: %w", pc, err)
	}
	if r.opts.MaxErrors > 0 && res.Errors >= r.opts.MaxErrors {
		return fmt.Errorf("%w: %d: %w", ErrTooManyErrors, res.Errors, err)
	}
	return nil
}
