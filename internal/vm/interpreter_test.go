package vm

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

type fixedRandom uint32

func (f fixedRandom) Uint32() uint32 { return uint32(f) }

// newTestMachine returns a machine with the given instruction words loaded
// at ProgramStart.
func newTestMachine(t *testing.T, words ...uint16) *Machine {
	t.Helper()
	m := New()
	image := make([]byte, 0, 2*len(words))
	for _, w := range words {
		image = append(image, byte(w>>8), byte(w))
	}
	assert.NoError(t, m.Load(image, ProgramStart))
	return m
}

func step(t *testing.T, in *Interpreter, m *Machine) {
	t.Helper()
	_, err := in.Step(m)
	assert.NoError(t, err)
}

func TestInterpreter_Fetch(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0x1234, 0xABCD)

	word, err := in.Fetch(m)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x1234), word)
	assert.Equal(t, uint16(0x202), m.PC())

	word, err = in.Fetch(m)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0xABCD), word)
	assert.Equal(t, uint16(0x204), m.PC())
}

func TestInterpreter_FetchOutOfBounds(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := New()
	assert.NoError(t, m.WriteMemory(0xFFF, 0x12))
	assert.NoError(t, m.SetPC(0xFFF))
	before := m.memory

	_, err := in.Fetch(m)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, uint16(0xFFF), m.PC())
	assert.Equal(t, before, m.memory)
}

func TestInterpreter_FetchLastInstruction(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := New()
	assert.NoError(t, m.Load([]byte{0x60, 0x01}, 0xFFE))
	assert.NoError(t, m.SetPC(0xFFE))

	word, err := in.Step(m)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x6001), word)

	// PC now points past the end of memory
	_, err = in.Step(m)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestInterpreter_LoadImmediate(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))

	for x := range uint16(RegisterCount) {
		m := newTestMachine(t, 0x6000|x<<8|0x5A)
		before := *m

		step(t, in, m)

		for r := range uint8(RegisterCount) {
			want := before.v[r]
			if uint16(r) == x {
				want = 0x5A
			}
			got, err := m.Register(r)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}
		assert.Equal(t, before.memory, m.memory)
		assert.Equal(t, before.framebuffer, m.framebuffer)
		assert.Equal(t, before.index, m.index)
	}
}

func TestInterpreter_ALU(t *testing.T) {
	tests := []struct {
		name   string
		word   uint16
		vx, vy byte
		wantX  byte
		wantF  byte
		flagOK bool // VF is expected to be written
	}{
		{"load register", 0x8120, 0x11, 0x22, 0x22, 0, false},
		{"or", 0x8121, 0xF0, 0x0F, 0xFF, 0, false},
		{"and", 0x8122, 0xF3, 0x3F, 0x33, 0, false},
		{"xor", 0x8123, 0xFF, 0x0F, 0xF0, 0, false},
		{"add with carry", 0x8124, 0xFF, 0x01, 0x00, 1, true},
		{"add without carry", 0x8124, 0x01, 0x01, 0x02, 0, true},
		{"add to exactly 255", 0x8124, 0xFE, 0x01, 0xFF, 0, true},
		{"sub without borrow", 0x8125, 0x05, 0x03, 0x02, 1, true},
		{"sub with borrow", 0x8125, 0x03, 0x05, 0xFE, 0, true},
		{"sub equal", 0x8125, 0x07, 0x07, 0x00, 1, true},
		{"shift right odd", 0x8126, 0x03, 0x00, 0x01, 1, true},
		{"shift right even", 0x8126, 0x02, 0x00, 0x01, 0, true},
		{"subn without borrow", 0x8127, 0x03, 0x05, 0x02, 1, true},
		{"subn with borrow", 0x8127, 0x05, 0x03, 0xFE, 0, true},
		{"subn equal", 0x8127, 0x09, 0x09, 0x00, 1, true},
		{"shift left high bit", 0x812E, 0x81, 0x00, 0x02, 1, true},
		{"shift left no high bit", 0x812E, 0x41, 0x00, 0x82, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInterpreter(fixedRandom(0))
			m := newTestMachine(t, tt.word)
			m.v[1] = tt.vx
			m.v[2] = tt.vy
			m.v[FlagRegister] = 0xAA

			step(t, in, m)

			assert.Equal(t, tt.wantX, m.v[1])
			if tt.flagOK {
				assert.Equal(t, tt.wantF, m.v[FlagRegister])
			} else {
				assert.Equal(t, byte(0xAA), m.v[FlagRegister])
			}
		})
	}
}

func TestInterpreter_FlagRegisterAsDestination(t *testing.T) {
	tests := []struct {
		name  string
		word  uint16
		vf    byte
		vy    byte
		wantF byte
	}{
		{"add carry wins over sum", 0x8F14, 0xFF, 0x02, 1},
		{"add no carry wins over sum", 0x8F14, 0x01, 0x02, 0},
		{"sub flag wins over difference", 0x8F15, 0x05, 0x03, 1},
		{"shift right flag wins", 0x8F06, 0x02, 0x00, 0},
		{"shift left flag wins", 0x8F0E, 0x80, 0x00, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInterpreter(fixedRandom(0))
			m := newTestMachine(t, tt.word)
			m.v[FlagRegister] = tt.vf
			m.v[1] = tt.vy

			step(t, in, m)

			assert.Equal(t, tt.wantF, m.v[FlagRegister])
		})
	}
}

func TestInterpreter_AddImmediateWraps(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0x73FF)
	m.v[3] = 0x02
	m.v[FlagRegister] = 0x55

	step(t, in, m)

	assert.Equal(t, byte(0x01), m.v[3])
	assert.Equal(t, byte(0x55), m.v[FlagRegister])
}

func TestInterpreter_Skips(t *testing.T) {
	tests := []struct {
		name   string
		word   uint16
		vx, vy byte
		skip   bool
	}{
		{"skip equal immediate taken", 0x3142, 0x42, 0, true},
		{"skip equal immediate not taken", 0x3142, 0x41, 0, false},
		{"skip not equal immediate taken", 0x4142, 0x41, 0, true},
		{"skip not equal immediate not taken", 0x4142, 0x42, 0, false},
		{"skip equal register taken", 0x5120, 0x10, 0x10, true},
		{"skip equal register not taken", 0x5120, 0x10, 0x11, false},
		{"skip not equal register taken", 0x9120, 0x10, 0x11, true},
		{"skip not equal register not taken", 0x9120, 0x10, 0x10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInterpreter(fixedRandom(0))
			m := newTestMachine(t, tt.word)
			m.v[1] = tt.vx
			m.v[2] = tt.vy

			step(t, in, m)

			want := uint16(ProgramStart + 2)
			if tt.skip {
				want += 2
			}
			assert.Equal(t, want, m.PC())
		})
	}
}

func TestInterpreter_SkipPastEndOfMemory(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := New()
	assert.NoError(t, m.Load([]byte{0x30, 0x00}, 0xFFE))
	assert.NoError(t, m.SetPC(0xFFE))

	_, err := in.Step(m)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, uint16(MemorySize), m.PC())
}

func TestInterpreter_SkipToEndOfMemory(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := New()
	assert.NoError(t, m.Load([]byte{0x30, 0x00}, 0xFFC))
	assert.NoError(t, m.SetPC(0xFFC))

	// skipping the last instruction ends at the end of memory, like a fetch does
	step(t, in, m)
	assert.Equal(t, uint16(MemorySize), m.PC())

	_, err := in.Step(m)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, uint16(MemorySize), m.PC())
}

func TestInterpreter_JumpOffsetToEndOfMemory(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0xBFFF)
	m.v[0] = 0x01

	step(t, in, m)
	assert.Equal(t, uint16(MemorySize), m.PC())
}

func TestInterpreter_Jumps(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))

	m := newTestMachine(t, 0x1ABC)
	step(t, in, m)
	assert.Equal(t, uint16(0xABC), m.PC())

	m = newTestMachine(t, 0xB300)
	m.v[0] = 0x10
	step(t, in, m)
	assert.Equal(t, uint16(0x310), m.PC())

	m = newTestMachine(t, 0xA123)
	step(t, in, m)
	assert.Equal(t, uint16(0x123), m.Index())
}

func TestInterpreter_JumpOffsetOutOfBounds(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0xBFFF)
	m.v[0] = 0x02

	_, err := in.Step(m)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, uint16(ProgramStart+2), m.PC())
}

func TestInterpreter_CallReturn(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0x2300)
	assert.NoError(t, m.Load([]byte{0x00, 0xEE}, 0x300))

	step(t, in, m)
	assert.Equal(t, uint16(0x300), m.PC())
	stack := m.Stack()
	assert.Len(t, stack, 1)
	assert.Equal(t, uint16(ProgramStart+2), stack[0])

	step(t, in, m)
	assert.Equal(t, uint16(ProgramStart+2), m.PC())
	assert.Equal(t, 0, m.StackDepth())
}

func TestInterpreter_ReturnOnEmptyStack(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0x00EE)

	_, err := in.Step(m)
	assert.True(t, errors.Is(err, ErrStackUnderflow))
	assert.Equal(t, uint16(ProgramStart+2), m.PC())
}

func TestInterpreter_CallOverflow(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	// calls itself until the stack is full
	m := newTestMachine(t, 0x2200)

	for range StackDepth {
		step(t, in, m)
	}
	assert.Equal(t, StackDepth, m.StackDepth())

	_, err := in.Step(m)
	assert.True(t, errors.Is(err, ErrStackOverflow))
	assert.Equal(t, StackDepth, m.StackDepth())
	assert.Equal(t, uint16(ProgramStart+2), m.PC())
}

func TestInterpreter_Random(t *testing.T) {
	in := NewInterpreter(fixedRandom(0x1234_56A5))
	m := newTestMachine(t, 0xC40F)

	step(t, in, m)

	assert.Equal(t, byte(0x05), m.v[4])
}

func TestInterpreter_RandomSeeded(t *testing.T) {
	a := NewInterpreter(NewRandomSource(42))
	b := NewInterpreter(NewRandomSource(42))

	for range 16 {
		ma := newTestMachine(t, 0xC0FF)
		mb := newTestMachine(t, 0xC0FF)
		step(t, a, ma)
		step(t, b, mb)
		assert.Equal(t, ma.v[0], mb.v[0])
	}
}

func TestInterpreter_ClearDisplay(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0x00E0)
	for i := range m.framebuffer {
		m.framebuffer[i] = byte(i % 2)
	}

	step(t, in, m)

	assert.Equal(t, Framebuffer{}, m.Framebuffer())
}

func TestInterpreter_Draw(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	// draw a 2 row sprite at (V1, V2) twice
	m := newTestMachine(t, 0xA300, 0xD122, 0xD122)
	assert.NoError(t, m.Load([]byte{0b1100_0001, 0b1000_0000}, 0x300))
	m.v[1] = 10
	m.v[2] = 5

	step(t, in, m)
	step(t, in, m)

	assert.Equal(t, byte(0), m.v[FlagRegister])
	assert.Equal(t, byte(1), m.Pixel(10, 5))
	assert.Equal(t, byte(1), m.Pixel(11, 5))
	assert.Equal(t, byte(0), m.Pixel(12, 5))
	assert.Equal(t, byte(1), m.Pixel(17, 5))
	assert.Equal(t, byte(1), m.Pixel(10, 6))
	assert.Equal(t, byte(0), m.Pixel(11, 6))

	lit := 0
	for _, p := range m.framebuffer {
		lit += int(p)
	}
	assert.Equal(t, 4, lit)

	// the second draw erases the sprite and reports the collision
	step(t, in, m)
	assert.Equal(t, byte(1), m.v[FlagRegister])
	assert.Equal(t, Framebuffer{}, m.Framebuffer())
}

func TestInterpreter_DrawCollisionAccumulates(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	// only the first pixel of the sprite collides, later pixels do not
	m := newTestMachine(t, 0xA300, 0xD011)
	assert.NoError(t, m.Load([]byte{0xFF}, 0x300))
	m.framebuffer[0] = 1

	step(t, in, m)
	step(t, in, m)

	assert.Equal(t, byte(1), m.v[FlagRegister])
	assert.Equal(t, byte(0), m.Pixel(0, 0))
	for x := 1; x < 8; x++ {
		assert.Equal(t, byte(1), m.Pixel(x, 0))
	}
}

func TestInterpreter_DrawNoCollisionOnZeroBits(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	// sprite bits that are 0 never collide, even over lit pixels
	m := newTestMachine(t, 0xA300, 0xD011)
	assert.NoError(t, m.Load([]byte{0x0F}, 0x300))
	for x := range 4 {
		m.framebuffer[x] = 1
	}
	m.v[FlagRegister] = 1

	step(t, in, m)
	step(t, in, m)

	assert.Equal(t, byte(0), m.v[FlagRegister])
	for x := range 8 {
		assert.Equal(t, byte(1), m.Pixel(x, 0))
	}
}

func TestInterpreter_DrawFlagRegisterCoordinate(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	// VF as x coordinate is read before the collision flag is written
	m := newTestMachine(t, 0xA300, 0xDF01)
	assert.NoError(t, m.Load([]byte{0x80}, 0x300))
	m.v[FlagRegister] = 5

	step(t, in, m)
	step(t, in, m)

	assert.Equal(t, byte(1), m.Pixel(5, 0))
	assert.Equal(t, byte(0), m.Pixel(0, 0))
	assert.Equal(t, byte(0), m.v[FlagRegister])
}

func TestInterpreter_DrawWraps(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0xA300, 0xD122)
	assert.NoError(t, m.Load([]byte{0xFF, 0xFF}, 0x300))
	m.v[1] = 60
	m.v[2] = 31

	step(t, in, m)
	step(t, in, m)

	for _, x := range []int{60, 61, 62, 63, 0, 1, 2, 3} {
		assert.Equal(t, byte(1), m.Pixel(x, 31))
		assert.Equal(t, byte(1), m.Pixel(x, 0))
	}
	assert.Equal(t, byte(0), m.Pixel(4, 0))
	assert.Equal(t, byte(0), m.v[FlagRegister])
}

func TestInterpreter_DrawCoordinatesBeyondScreen(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0xA300, 0xD121)
	assert.NoError(t, m.Load([]byte{0x80}, 0x300))
	m.v[1] = 64 + 3
	m.v[2] = 32 + 4

	step(t, in, m)
	step(t, in, m)

	assert.Equal(t, byte(1), m.Pixel(3, 4))
}

func TestInterpreter_DrawSpriteOutOfBounds(t *testing.T) {
	in := NewInterpreter(fixedRandom(0))
	m := newTestMachine(t, 0xAFFE, 0xD013)
	m.v[FlagRegister] = 0x07

	step(t, in, m)
	_, err := in.Step(m)

	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, byte(0x07), m.v[FlagRegister])
	assert.Equal(t, Framebuffer{}, m.Framebuffer())
}

func TestInterpreter_UnsupportedOpcode(t *testing.T) {
	tests := []struct {
		name string
		word uint16
	}{
		{"system call", 0x0123},
		{"zero word", 0x0000},
		{"alu nibble 8", 0x8128},
		{"alu nibble F", 0x812F},
		{"key skip", 0xE19E},
		{"misc group", 0xF115},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInterpreter(fixedRandom(0))
			m := newTestMachine(t, tt.word, 0x6107)
			before := *m

			_, err := in.Step(m)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedOpcode))

			var opErr *OpcodeError
			assert.True(t, errors.As(err, &opErr))
			assert.Equal(t, tt.word, opErr.Word)

			// only PC moved, execution continues with the next instruction
			assert.Equal(t, before.v, m.v)
			assert.Equal(t, before.memory, m.memory)
			assert.Equal(t, uint16(ProgramStart+2), m.PC())

			step(t, in, m)
			assert.Equal(t, byte(0x07), m.v[1])
		})
	}
}
