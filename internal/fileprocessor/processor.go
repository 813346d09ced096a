// Package fileprocessor handles running a program file, once or every time
// the file changes.
package fileprocessor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/retroenv/chip8vm/internal/display"
	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/chip8vm/internal/pipeline"
	"github.com/retroenv/chip8vm/internal/runner"
	"github.com/retroenv/chip8vm/internal/watch"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

// ProcessFile runs the program file given in the options. Text frames are
// written to out. In watch mode the program is restarted whenever the file
// changes, until the context is cancelled.
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program,
	runnerOpts options.Runner, out io.Writer) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	renderer, err := display.New(opts.Display, out, cancel)
	if err != nil {
		return fmt.Errorf("creating display: %w", err)
	}
	defer func() { _ = renderer.Close() }()

	p := pipeline.New(logger)

	if !opts.Watch {
		res, err := p.Execute(ctx, opts, runnerOpts, renderer)
		logResult(logger, res)
		return err
	}

	watcher, err := watch.New(logger, opts.Input, watch.DefaultDelay)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	return runWatched(ctx, logger, p, watcher.Changes(ctx), opts, runnerOpts, renderer)
}

type runResult struct {
	res runner.Result
	err error
}

// runWatched runs the program and restarts it for every received change.
// Run errors are logged and the next change starts a new run.
func runWatched(ctx context.Context, logger *log.Logger, p *pipeline.Pipeline, changes <-chan struct{},
	opts options.Program, runnerOpts options.Runner, renderer display.Renderer) error {

	for {
		runCtx, runCancel := context.WithCancel(ctx)
		done := make(chan runResult, 1)
		go func() {
			res, err := p.Execute(runCtx, opts, runnerOpts, renderer)
			done <- runResult{res: res, err: err}
		}()

		restart, err := waitForRun(ctx, logger, changes, done, runCancel)
		runCancel()
		if !restart {
			return err
		}
		logger.Info("Program changed, restarting", log.String("file", opts.Input))
	}
}

// waitForRun waits for the current run to end or the file to change and
// returns whether a new run should be started.
func waitForRun(ctx context.Context, logger *log.Logger, changes <-chan struct{},
	done <-chan runResult, runCancel context.CancelFunc) (bool, error) {

	select {
	case _, ok := <-changes:
		runCancel()
		<-done
		if !ok {
			return false, ctx.Err()
		}
		return true, nil

	case r := <-done:
		logResult(logger, r.res)
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if r.err != nil && !errors.Is(r.err, context.Canceled) {
			logger.Error("Program stopped", log.Err(r.err))
		}
		logger.Info("Waiting for the program file to change")

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return false, ctx.Err()
			}
			return true, nil
		}
	}
}

func logResult(logger *log.Logger, res runner.Result) {
	logger.Debug("Run finished",
		log.Int("cycles", res.Cycles),
		log.Int("errors", res.Errors))
}

// PrintBanner prints application version information.
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	logger.Info("chip8vm - CHIP-8 virtual machine",
		log.String("version", buildinfo.Version(version, commit, date)))
}
