// Package main implements the main entry point for a CHIP-8 virtual machine
package main

import (
	"context"
	"errors"
	"os"

	"github.com/retroenv/chip8vm/internal/cli"
	"github.com/retroenv/chip8vm/internal/config"
	"github.com/retroenv/chip8vm/internal/fileprocessor"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, runnerOpts, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Flags, os.Stdout)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fileprocessor.PrintBanner(logger, opts, version, commit, date)
			usageErr.ShowUsage()
		} else {
			logger.Fatal(err.Error())
		}
		os.Exit(1)
	}

	// the terminal display owns stdout until ProcessFile returns
	output, releaseOutput := config.LogOutput(opts.Flags, os.Stdout)
	logger := config.CreateLogger(opts.Flags, output)
	fileprocessor.PrintBanner(logger, opts, version, commit, date)

	err = fileprocessor.ProcessFile(ctx, logger, opts, runnerOpts, os.Stdout)
	_ = releaseOutput()
	if err != nil {
		// Handle context cancellation (Ctrl+C, Esc) gracefully
		if errors.Is(err, context.Canceled) {
			logger.Info("Execution stopped")
			return
		}
		logger.Error("Execution failed", log.Err(err))
		os.Exit(1)
	}
}
