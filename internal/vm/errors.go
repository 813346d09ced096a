package vm

import (
	"errors"
	"fmt"
)

// Error kinds reported by the machine and the interpreter.
var (
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	ErrOutOfBounds       = errors.New("address out of bounds")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrStackOverflow     = errors.New("stack overflow")
)

// OpcodeError is returned for an instruction word that does not decode
// to a known operation.
type OpcodeError struct {
	Word uint16
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("opcode not supported: 0x%04X", e.Word)
}

// Is reports whether target is ErrUnsupportedOpcode.
func (e *OpcodeError) Is(target error) bool {
	return target == ErrUnsupportedOpcode
}

// AddressError is returned for an access of Size bytes starting at Address
// that does not fit into memory.
type AddressError struct {
	Address int
	Size    int
}

func (e *AddressError) Error() string {
	if e.Size > 1 {
		return fmt.Sprintf("address range 0x%04X-0x%04X out of bounds", e.Address, e.Address+e.Size-1)
	}
	return fmt.Sprintf("address 0x%04X out of bounds", e.Address)
}

// Is reports whether target is ErrOutOfBounds.
func (e *AddressError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// StackError is returned when a push or pop would leave the call stack
// bounds. Err is ErrStackOverflow or ErrStackUnderflow.
type StackError struct {
	Err   error
	Depth int
}

func (e *StackError) Error() string {
	return fmt.Sprintf("%s at depth %d", e.Err, e.Depth)
}

func (e *StackError) Unwrap() error {
	return e.Err
}
