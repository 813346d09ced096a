package vm

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// RandomSource provides the random numbers for the random instruction.
// *rand.Rand satisfies it.
type RandomSource interface {
	Uint32() uint32
}

// NewRandomSource returns a PCG generator for the given seed.
// A zero seed selects a time based seed.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>32|seed<<32))
}

// Interpreter decodes and executes CHIP-8 instructions. It keeps no machine
// state of its own, every cycle operates on the Machine passed in.
type Interpreter struct {
	random RandomSource
}

// NewInterpreter returns an interpreter drawing random bytes from random.
// A nil source selects a time seeded generator.
func NewInterpreter(random RandomSource) *Interpreter {
	if random == nil {
		random = NewRandomSource(0)
	}
	return &Interpreter{
		random: random,
	}
}

// Step fetches and executes a single instruction and returns the fetched word.
func (in *Interpreter) Step(m *Machine) (uint16, error) {
	word, err := in.Fetch(m)
	if err != nil {
		return 0, err
	}
	return word, in.Execute(m, word)
}

// Fetch reads the big-endian instruction word at PC and advances PC by 2.
// PC is not changed if the word can not be read.
func (in *Interpreter) Fetch(m *Machine) (uint16, error) {
	data, err := m.memoryRange(m.pc, 2)
	if err != nil {
		return 0, fmt.Errorf("fetching instruction: %w", err)
	}
	m.pc += 2
	return uint16(data[0])<<8 | uint16(data[1]), nil
}

// Execute applies the effect of an instruction word to the machine.
// On error the machine state is left as it was before the call.
func (in *Interpreter) Execute(m *Machine, word uint16) error {
	ins := Decode(word)

	switch ins.Group {
	case groupSystem:
		return executeSystem(m, ins)

	case groupJump:
		m.pc = ins.Address

	case groupCall:
		if err := m.Push(m.pc); err != nil {
			return err
		}
		m.pc = ins.Address

	case groupSkipEqImm:
		return skipIf(m, m.v[ins.X] == ins.KK)

	case groupSkipNeqImm:
		return skipIf(m, m.v[ins.X] != ins.KK)

	case groupSkipEqReg:
		return skipIf(m, m.v[ins.X] == m.v[ins.Y])

	case groupLoadImm:
		m.v[ins.X] = ins.KK

	case groupAddImm:
		m.v[ins.X] += ins.KK

	case groupALU:
		return executeALU(m, ins)

	case groupSkipNeqReg:
		return skipIf(m, m.v[ins.X] != m.v[ins.Y])

	case groupLoadIndex:
		m.index = ins.Address

	case groupJumpOffset:
		target := ins.Address + uint16(m.v[0])
		if err := m.SetPC(target); err != nil {
			return fmt.Errorf("jumping to offset: %w", err)
		}

	case groupRandom:
		m.v[ins.X] = byte(in.random.Uint32()) & ins.KK

	case groupDraw:
		return draw(m, ins)

	default:
		return &OpcodeError{Word: word}
	}
	return nil
}

func executeSystem(m *Machine, ins Instruction) error {
	switch ins.Word {
	case wordClearDisplay:
		m.ClearFramebuffer()

	case wordReturn:
		addr, err := m.Pop()
		if err != nil {
			return err
		}
		m.pc = addr

	default:
		return &OpcodeError{Word: ins.Word}
	}
	return nil
}

// executeALU executes the register to register operations. VF is written
// after Vx so that it holds the flag when it is also the destination.
func executeALU(m *Machine, ins Instruction) error {
	vx, vy := m.v[ins.X], m.v[ins.Y]

	switch ins.N {
	case aluLoad:
		m.v[ins.X] = vy

	case aluOr:
		m.v[ins.X] = vx | vy

	case aluAnd:
		m.v[ins.X] = vx & vy

	case aluXor:
		m.v[ins.X] = vx ^ vy

	case aluAdd:
		sum := uint16(vx) + uint16(vy)
		m.v[ins.X] = byte(sum)
		m.v[FlagRegister] = flag(sum > 0xFF)

	case aluSub:
		m.v[ins.X] = vx - vy
		m.v[FlagRegister] = flag(vx >= vy)

	case aluShiftRight:
		m.v[ins.X] = vx >> 1
		m.v[FlagRegister] = vx & 0x01

	case aluSubn:
		m.v[ins.X] = vy - vx
		m.v[FlagRegister] = flag(vy >= vx)

	case aluShiftLeft:
		m.v[ins.X] = vx << 1
		m.v[FlagRegister] = vx >> 7

	default:
		return &OpcodeError{Word: ins.Word}
	}
	return nil
}

// draw XORs an N row sprite read from I onto the framebuffer at (Vx, Vy).
// Coordinates wrap around the screen edges. VF is set to 1 if any lit
// sprite pixel hits an already lit framebuffer pixel.
// Vx and Vy are read before VF is overwritten, so a draw using VF as a
// coordinate register uses its value from before the draw.
func draw(m *Machine, ins Instruction) error {
	sprite, err := m.memoryRange(m.index, int(ins.N))
	if err != nil {
		return fmt.Errorf("reading sprite: %w", err)
	}

	x, y := int(m.v[ins.X]), int(m.v[ins.Y])

	var collision byte
	for row, bits := range sprite {
		py := (y + row) % ScreenHeight
		for col := range 8 {
			if bits&(0x80>>col) == 0 {
				continue
			}
			px := (x + col) % ScreenWidth
			pos := py*ScreenWidth + px
			collision |= m.framebuffer[pos]
			m.framebuffer[pos] ^= 1
		}
	}

	m.v[FlagRegister] = collision
	return nil
}

// skipIf advances PC past the next instruction if cond is true.
func skipIf(m *Machine, cond bool) error {
	if !cond {
		return nil
	}
	if err := m.SetPC(m.pc + 2); err != nil {
		return fmt.Errorf("skipping instruction: %w", err)
	}
	return nil
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}
