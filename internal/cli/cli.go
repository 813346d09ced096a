// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/retroenv/chip8vm/internal/options"
)

// ParseFlags parses command line flags and returns program and runner options
func ParseFlags() (options.Program, options.Runner, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.Usage = func() {}
	var opts options.Program
	readOptionFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return opts, options.Runner{}, &UsageError{flags: flags}
	}
	if err != nil {
		return opts, options.Runner{}, &UsageError{flags: flags, msg: err.Error()}
	}

	args := flags.Args()
	if len(args) == 0 && opts.Input == "" {
		return opts, options.Runner{}, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		err.flags = flags
		return opts, options.Runner{}, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, options.Runner{}, err
	}

	if len(args) > 0 {
		opts.Input = args[0]
	}

	return opts, options.NewRunner(opts), nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

// ShowUsage prints the command synopsis and all flag defaults.
func (e *UsageError) ShowUsage() {
	if e.msg != "" {
		fmt.Printf("%s\n\n", e.msg)
	}
	fmt.Printf("usage: chip8vm [options] <program image>\n\n")
	if e.flags != nil {
		e.flags.SetOutput(os.Stdout)
		e.flags.PrintDefaults()
		fmt.Println()
	}
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) *UsageError {
	for i, arg := range args {
		if i > 0 && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after program image, please pass the program image as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.Display = options.NormalizeDisplay(opts.Display)
	validDisplays := []string{options.DisplayTerminal, options.DisplayText, options.DisplayNone}
	valid := false
	for _, display := range validDisplays {
		if opts.Display == display {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unsupported display: %s. Valid options: %s",
			opts.Display, strings.Join(validDisplays, ", "))
	}

	switch {
	case opts.Rate < 0:
		return fmt.Errorf("invalid rate %d: must not be negative", opts.Rate)
	case opts.Cycles < 0:
		return fmt.Errorf("invalid cycle limit %d: must not be negative", opts.Cycles)
	case opts.MaxErrors < 0:
		return fmt.Errorf("invalid error limit %d: must not be negative", opts.MaxErrors)
	}

	if opts.Watch && opts.Cycles > 0 {
		return errors.New("the -watch and -cycles options can not be combined")
	}
	return nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Input, "i", "", "name of the program image file")
	flags.StringVar(&opts.System, "s", "", "system to emulate (chip8) - if not auto-detected from file extension")
	flags.StringVar(&opts.Display, "display", options.DisplayTerminal, "framebuffer output (terminal/text/none)")
	flags.BoolVar(&opts.Watch, "watch", false, "restart the program when the image file changes")
	flags.BoolVar(&opts.Trace, "trace", false, "log every executed instruction, implies -debug")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")

	flags.IntVar(&opts.Rate, "rate", options.DefaultRate, "instructions per second, 0 runs unpaced")
	flags.IntVar(&opts.Cycles, "cycles", 0, "stop after this many cycles, 0 runs until interrupted")
	flags.BoolVar(&opts.StopOnError, "stop-on-error", false, "stop at the first failing cycle")
	flags.IntVar(&opts.MaxErrors, "max-errors", 0, "stop after this many failing cycles, 0 for no limit")
	flags.Uint64Var(&opts.Seed, "seed", 0, "random number generator seed, 0 for a time based seed")
}
