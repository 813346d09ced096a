// Package display renders the virtual machine framebuffer.
package display

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/chip8vm/internal/vm"
)

// Renderer draws a framebuffer after every executed cycle.
type Renderer interface {
	Render(fb vm.Framebuffer) error
	Close() error
}

// New creates the renderer with the given name. Text output is written to w.
// The terminal renderer calls cancel when the user asks to quit.
func New(name string, w io.Writer, cancel context.CancelFunc) (Renderer, error) {
	switch options.NormalizeDisplay(name) {
	case options.DisplayTerminal:
		return NewTerminal(cancel)
	case options.DisplayText:
		return NewText(w), nil
	case options.DisplayNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unsupported display '%s'", name)
	}
}

// None discards all frames.
type None struct{}

// Render implements Renderer.
func (None) Render(vm.Framebuffer) error { return nil }

// Close implements Renderer.
func (None) Close() error { return nil }

// Text writes every changed frame as lines of text, a lit pixel is
// written as '*' and a dark one as a space.
type Text struct {
	w     io.Writer
	last  vm.Framebuffer
	drawn bool
	buf   strings.Builder
}

// NewText returns a text renderer writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Render implements Renderer. Frames equal to the previous one are skipped.
func (t *Text) Render(fb vm.Framebuffer) error {
	if t.drawn && fb == t.last {
		return nil
	}
	t.last = fb
	t.drawn = true

	t.buf.Reset()
	t.buf.Grow((vm.ScreenWidth + 1) * vm.ScreenHeight)
	for y := range vm.ScreenHeight {
		for x := range vm.ScreenWidth {
			if fb.Pixel(x, y) != 0 {
				t.buf.WriteByte('*')
			} else {
				t.buf.WriteByte(' ')
			}
		}
		t.buf.WriteByte('\n')
	}

	if _, err := io.WriteString(t.w, t.buf.String()); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Close implements Renderer.
func (t *Text) Close() error { return nil }
