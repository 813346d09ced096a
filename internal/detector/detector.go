// Package detector handles system architecture detection.
package detector

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/retrogolib/arch"
	"github.com/retroenv/retrogolib/log"
)

// ErrUnsupportedSystem is returned for programs written for a system other than CHIP-8.
var ErrUnsupportedSystem = errors.New("unsupported system")

// archiveExtensions are stripped before looking at the program extension,
// so that pong.ch8.zip is detected like pong.ch8.
var archiveExtensions = map[string]struct{}{
	".gz":  {},
	".zip": {},
	".7z":  {},
}

// Detector handles system architecture detection from file extensions and options.
type Detector struct {
	logger *log.Logger
}

// New creates a new system detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the system architecture from options or file auto-detection.
// It first checks if a system is explicitly specified in options, otherwise
// attempts to detect the system from the input filename extension.
// Only CHIP-8 programs can be executed, any other system results in an error.
func (d *Detector) Detect(opts options.Program) (arch.System, error) {
	system, _ := arch.SystemFromString(opts.System)
	if system == "" && opts.System != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSystem, opts.System)
	}

	if system == "" {
		system = d.detectFromFile(opts.Input)
		d.logger.Debug("Auto-detected system",
			log.Stringer("system", system),
			log.String("file", opts.Input))
	}

	if system != arch.CHIP8System {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSystem, system)
	}
	return system, nil
}

// detectFromFile determines the system type based on file extension.
func (d *Detector) detectFromFile(filename string) arch.System {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := archiveExtensions[ext]; ok {
		filename = strings.TrimSuffix(filename, filepath.Ext(filename))
		ext = strings.ToLower(filepath.Ext(filename))
	}

	switch ext {
	case ".nes":
		return arch.NES
	default:
		// .ch8, .c8, .rom, .bin and unknown extensions are treated as CHIP-8
		return arch.CHIP8System
	}
}
