// Package pipeline orchestrates the program execution workflow stages.
package pipeline

import (
	"context"
	"fmt"

	"github.com/retroenv/chip8vm/internal/detector"
	"github.com/retroenv/chip8vm/internal/display"
	"github.com/retroenv/chip8vm/internal/loader"
	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/chip8vm/internal/runner"
	"github.com/retroenv/chip8vm/internal/vm"
	"github.com/retroenv/retrogolib/log"
)

// Pipeline orchestrates the complete execution workflow.
type Pipeline struct {
	logger   *log.Logger
	detector *detector.Detector
	loader   *loader.Loader
}

// New creates a new execution pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		detector: detector.New(logger),
		loader:   loader.New(),
	}
}

// Execute runs the complete pipeline: it detects the system, loads the
// program image and runs it until the run ends.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, runnerOpts options.Runner,
	renderer display.Renderer) (runner.Result, error) {

	if _, err := p.detector.Detect(opts); err != nil {
		return runner.Result{}, fmt.Errorf("detecting system: %w", err)
	}

	image, err := p.loader.Load(opts.Input)
	if err != nil {
		return runner.Result{}, fmt.Errorf("loading program: %w", err)
	}

	return p.ExecuteImage(ctx, image, opts, runnerOpts, renderer)
}

// ExecuteImage runs a program image that is already in memory.
// This is useful for testing and programmatic usage.
func (p *Pipeline) ExecuteImage(ctx context.Context, image *loader.Image, opts options.Program,
	runnerOpts options.Runner, renderer display.Renderer) (runner.Result, error) {

	m := vm.New()
	if err := m.Load(image.Data, vm.ProgramStart); err != nil {
		return runner.Result{}, fmt.Errorf("loading image into memory: %w", err)
	}

	p.printInfo(opts, image)

	interpreter := vm.NewInterpreter(vm.NewRandomSource(opts.Seed))
	run := runner.New(p.logger, interpreter, renderer, runnerOpts)

	res, err := run.Run(ctx, m)
	if err != nil {
		return res, fmt.Errorf("running program: %w", err)
	}
	return res, nil
}

// printInfo prints information about the program being executed.
func (p *Pipeline) printInfo(opts options.Program, image *loader.Image) {
	if opts.Quiet {
		return
	}

	p.logger.Info("Running CHIP-8 program",
		log.String("file", image.Name),
		log.Int("size", len(image.Data)),
		log.Hex("checksum", image.Checksum),
	)
}
