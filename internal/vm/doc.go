// Package vm provides a CHIP-8 virtual machine core.
//
// # Machine State
//
// Machine owns all mutable emulation state:
//   - 4KB of byte addressable memory (0x000-0xFFF)
//   - 16 general-purpose 8-bit registers V0-VF, VF doubling as flag register
//   - the 16-bit index register I and the program counter
//   - delay and sound timers
//   - a bounded call stack of return addresses
//   - a 64x32 monochrome framebuffer, one byte (0 or 1) per pixel
//
// Programs are loaded at ProgramStart (0x200). The area below is reserved and
// is left zeroed.
//
// # Interpreter
//
// Interpreter fetches the big-endian 16-bit instruction word at PC, advances PC
// by 2 and executes the word against a Machine:
//
//	m := vm.New()
//	if err := m.Load(program, vm.ProgramStart); err != nil {
//		return fmt.Errorf("loading program: %w", err)
//	}
//	interp := vm.NewInterpreter(vm.NewRandomSource(seed))
//	for {
//		if _, err := interp.Step(m); err != nil {
//			logger.Error("Cycle failed", log.Err(err))
//		}
//		renderer.Render(m.Framebuffer())
//	}
//
// # Errors
//
// Fetch and Execute report a closed set of error kinds that can be matched with
// errors.Is: ErrUnsupportedOpcode, ErrOutOfBounds, ErrStackUnderflow and
// ErrStackOverflow. A failing cycle never leaves a partially applied mutation,
// the caller decides whether to continue with the next fetch.
//
// # Timers
//
// The core stores the delay and sound timers but does not decrement them.
// Decrementing at 60Hz is the job of the driver, see DecrementTimers.
//
// # Drawing
//
// Sprite coordinates wrap around the screen edges modulo 64 and 32.
//
// # Program counter
//
// PC ranges from 0 to MemorySize inclusive. MemorySize is the position after
// the last instruction, the next fetch there fails with ErrOutOfBounds.
package vm
