package display

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/retroenv/chip8vm/internal/vm"
)

// pixelWidth is the number of terminal cells used per pixel, terminal cells
// are roughly twice as high as wide.
const pixelWidth = 2

var (
	litStyle  = tcell.StyleDefault.Background(tcell.ColorWhite)
	darkStyle = tcell.StyleDefault.Background(tcell.ColorBlack)
)

// Terminal paints the framebuffer into a terminal screen.
type Terminal struct {
	screen tcell.Screen
	last   vm.Framebuffer
	drawn  bool
	done   chan struct{}
}

// NewTerminal initializes the terminal screen. Pressing Esc, q or Ctrl-C
// calls cancel.
func NewTerminal(cancel context.CancelFunc) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating terminal screen: %w", err)
	}
	return NewTerminalWithScreen(screen, cancel)
}

// NewTerminalWithScreen returns a terminal renderer using the given screen,
// which gets initialized.
func NewTerminalWithScreen(screen tcell.Screen, cancel context.CancelFunc) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing terminal screen: %w", err)
	}
	screen.HideCursor()
	screen.Clear()

	t := &Terminal{
		screen: screen,
		done:   make(chan struct{}),
	}
	go t.pollEvents(cancel)
	return t, nil
}

// Render implements Renderer.
func (t *Terminal) Render(fb vm.Framebuffer) error {
	if t.drawn && fb == t.last {
		return nil
	}
	t.last = fb
	t.drawn = true

	for y := range vm.ScreenHeight {
		for x := range vm.ScreenWidth {
			style := darkStyle
			if fb.Pixel(x, y) != 0 {
				style = litStyle
			}
			for i := range pixelWidth {
				t.screen.SetContent(x*pixelWidth+i, y, ' ', nil, style)
			}
		}
	}
	t.screen.Show()
	return nil
}

// Close restores the terminal and waits for the event loop to exit.
func (t *Terminal) Close() error {
	t.screen.Fini()
	<-t.done
	return nil
}

func (t *Terminal) pollEvents(cancel context.CancelFunc) {
	defer close(t.done)

	for {
		switch ev := t.screen.PollEvent().(type) {
		case nil:
			return // screen finalized
		case *tcell.EventKey:
			if isQuitKey(ev) {
				cancel()
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func isQuitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	default:
		return false
	}
}
