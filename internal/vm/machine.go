package vm

import "fmt"

// CHIP-8 machine layout constants.
//
// CHIP-8 memory map (4KB total):
//
//	0x000-0x1FF: Reserved interpreter area
//	0x200-0xFFF: Program and data space
//
// The framebuffer and the call stack live outside of the addressable memory.
const (
	// MemorySize is the number of addressable bytes.
	MemorySize = 0x1000

	// ProgramStart is the memory address where program images are loaded
	// and where execution begins.
	ProgramStart = 0x200

	// RegisterCount is the number of general-purpose registers V0-VF.
	RegisterCount = 16

	// FlagRegister is the index of VF, which receives carry, borrow,
	// shifted out and collision flags.
	FlagRegister = 0xF

	// ScreenWidth and ScreenHeight are the framebuffer dimensions in pixels.
	ScreenWidth  = 64
	ScreenHeight = 32

	// StackDepth is the maximum number of nested subroutine calls.
	StackDepth = 16
)

// Framebuffer is a 64x32 monochrome pixel grid stored row by row,
// one byte per pixel. Every pixel is either 0 or 1.
type Framebuffer [ScreenWidth * ScreenHeight]byte

// Pixel returns the pixel at column x and row y, or 0 for coordinates
// outside of the screen.
func (f *Framebuffer) Pixel(x, y int) byte {
	if x < 0 || x >= ScreenWidth || y < 0 || y >= ScreenHeight {
		return 0
	}
	return f[y*ScreenWidth+x]
}

// Machine holds the complete state of a CHIP-8 machine.
// It is owned by a single execution thread and is not safe for concurrent use.
type Machine struct {
	memory [MemorySize]byte
	v      [RegisterCount]byte
	index  uint16
	pc     uint16

	delayTimer byte
	soundTimer byte

	stack [StackDepth]uint16
	sp    int

	framebuffer Framebuffer
}

// New returns a machine in its reset state.
func New() *Machine {
	m := &Machine{}
	m.Reset()
	return m
}

// Reset zeroes all state and sets PC to ProgramStart.
func (m *Machine) Reset() {
	*m = Machine{pc: ProgramStart}
}

// Load copies image verbatim into memory starting at offset.
// Memory is left untouched if the image does not fit.
func (m *Machine) Load(image []byte, offset uint16) error {
	if int(offset)+len(image) > MemorySize {
		return fmt.Errorf("loading %d bytes: %w", len(image), &AddressError{Address: int(offset), Size: len(image)})
	}
	copy(m.memory[offset:], image)
	return nil
}

// ReadMemory returns the byte at addr.
func (m *Machine) ReadMemory(addr uint16) (byte, error) {
	if int(addr) >= MemorySize {
		return 0, &AddressError{Address: int(addr), Size: 1}
	}
	return m.memory[addr], nil
}

// WriteMemory sets the byte at addr.
func (m *Machine) WriteMemory(addr uint16, value byte) error {
	if int(addr) >= MemorySize {
		return &AddressError{Address: int(addr), Size: 1}
	}
	m.memory[addr] = value
	return nil
}

// memoryRange returns the n bytes starting at addr without copying them.
func (m *Machine) memoryRange(addr uint16, n int) ([]byte, error) {
	end := int(addr) + n
	if end > MemorySize {
		return nil, &AddressError{Address: int(addr), Size: n}
	}
	return m.memory[addr:end], nil
}

// Register returns the value of register Vr.
func (m *Machine) Register(r uint8) (byte, error) {
	if r >= RegisterCount {
		return 0, fmt.Errorf("register V%d: %w", r, ErrOutOfBounds)
	}
	return m.v[r], nil
}

// SetRegister sets register Vr to value.
func (m *Machine) SetRegister(r uint8, value byte) error {
	if r >= RegisterCount {
		return fmt.Errorf("register V%d: %w", r, ErrOutOfBounds)
	}
	m.v[r] = value
	return nil
}

// Index returns the index register I.
func (m *Machine) Index() uint16 {
	return m.index
}

// SetIndex sets the index register I. The value is only validated when
// memory is accessed through it.
func (m *Machine) SetIndex(addr uint16) {
	m.index = addr
}

// PC returns the program counter.
func (m *Machine) PC() uint16 {
	return m.pc
}

// SetPC sets the program counter. MemorySize is accepted as the position
// following the last instruction in memory, fetching from it fails.
func (m *Machine) SetPC(addr uint16) error {
	if int(addr) > MemorySize {
		return &AddressError{Address: int(addr), Size: 1}
	}
	m.pc = addr
	return nil
}

// DelayTimer returns the delay timer value.
func (m *Machine) DelayTimer() byte {
	return m.delayTimer
}

// SetDelayTimer sets the delay timer value.
func (m *Machine) SetDelayTimer(value byte) {
	m.delayTimer = value
}

// SoundTimer returns the sound timer value.
func (m *Machine) SoundTimer() byte {
	return m.soundTimer
}

// SetSoundTimer sets the sound timer value.
func (m *Machine) SetSoundTimer(value byte) {
	m.soundTimer = value
}

// DecrementTimers decrements both timers by one, stopping at zero.
// The interpreter never calls it, it is meant to be driven at 60Hz by
// the code that paces the machine.
func (m *Machine) DecrementTimers() {
	if m.delayTimer > 0 {
		m.delayTimer--
	}
	if m.soundTimer > 0 {
		m.soundTimer--
	}
}

// Push pushes a return address onto the call stack.
func (m *Machine) Push(addr uint16) error {
	if m.sp >= StackDepth {
		return &StackError{Err: ErrStackOverflow, Depth: m.sp}
	}
	m.stack[m.sp] = addr
	m.sp++
	return nil
}

// Pop removes and returns the most recently pushed return address.
func (m *Machine) Pop() (uint16, error) {
	if m.sp == 0 {
		return 0, &StackError{Err: ErrStackUnderflow, Depth: 0}
	}
	m.sp--
	return m.stack[m.sp], nil
}

// StackDepth returns the number of return addresses on the call stack.
func (m *Machine) StackDepth() int {
	return m.sp
}

// Stack returns a copy of the call stack, oldest entry first.
func (m *Machine) Stack() []uint16 {
	stack := make([]uint16, m.sp)
	copy(stack, m.stack[:m.sp])
	return stack
}

// Framebuffer returns a copy of the current framebuffer.
func (m *Machine) Framebuffer() Framebuffer {
	return m.framebuffer
}

// Pixel returns the framebuffer pixel at column x and row y.
func (m *Machine) Pixel(x, y int) byte {
	return m.framebuffer.Pixel(x, y)
}

// ClearFramebuffer turns off all pixels.
func (m *Machine) ClearFramebuffer() {
	m.framebuffer = Framebuffer{}
}
