// Package code provides bytecode instruction definitions and utilities for
// the compiler and virtual machine.
//
// This package defines Koala's bytecode instruction set (spec.md §6) and the
// encode/decode/disassemble machinery the compiler and VM share: an Opcode
// byte, a Definition table of operand widths, Make/Lookup/ReadOperands and
// an Instructions.String disassembler, over Koala's own opcode set
// (HALT/LOADK/LOADM/GETM/LOAD/STORE/GETFIELD/SETFIELD/CALL/NEW/RET/
// arithmetic/relational/jumps/unary/SUPER/GO).
package code

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instructions is a slice of bytes representing a sequence of instructions.
type Instructions []byte

// Opcode represents a single bytecode instruction used by the compiler and virtual machine.
type Opcode byte

// Bytecode instruction opcodes, per spec.md §6.
const (
	// HALT terminates the process. No operands.
	HALT Opcode = iota

	// LOADK pushes constant[arg] from the current code object's constant pool.
	//
	// Operands: [const_index:4]
	LOADK

	// LOADM pushes the module loaded from the string constant at arg (a package path).
	//
	// Operands: [path_const_index:4]
	LOADM

	// GETM replaces the object at the top of the stack with its owning module.
	GETM

	// LOAD pushes locals[arg] onto the stack.
	//
	// Operands: [local_index:2]
	LOAD

	// STORE pops the stack into locals[arg], type-checked against the local's declared type.
	//
	// Operands: [local_index:2]
	STORE

	// GETFIELD pops a receiver and pushes its named field.
	//
	// Operands: [name_const_index:4]
	GETFIELD

	// SETFIELD pops a receiver then a value, and stores the value into the receiver's named field.
	//
	// Operands: [name_const_index:4]
	SETFIELD

	// CALL pops a receiver (and argc arguments already pushed beneath it) and dispatches by name.
	//
	// Operands: [name_const_index:4, argc:2]
	CALL

	// NEW pops a module/class reference and constructs a new instance with argc constructor arguments.
	//
	// Operands: [class_name_const_index:4, argc:2]
	NEW

	// RET pops the current frame, leaving any returned values on the caller's view of the stack.
	RET

	// ADD pops two values and pushes their sum.
	ADD

	// SUB pops two values (a, b) and pushes a - b.
	SUB

	// MUL pops two values and pushes their product.
	MUL

	// DIV pops two values (a, b) and pushes a / b.
	DIV

	// MOD pops two values (a, b) and pushes a % b.
	MOD

	// GT pops two values and pushes a > b.
	GT

	// GE pops two values and pushes a >= b.
	GE

	// LT pops two values and pushes a < b.
	LT

	// LE pops two values and pushes a <= b.
	LE

	// EQ pops two values and pushes a == b.
	EQ

	// NEQ pops two values and pushes a != b.
	NEQ

	// JUMP unconditionally moves the program counter by a signed byte offset.
	//
	// Operands: [offset:4]
	JUMP

	// JUMP_TRUE pops a value and jumps by a signed offset if it is truthy.
	//
	// Operands: [offset:4]
	JUMP_TRUE

	// JUMP_FALSE pops a value and jumps by a signed offset if it is falsy.
	//
	// Operands: [offset:4]
	JUMP_FALSE

	// MINUS pops a numeric value and pushes its arithmetic negation.
	MINUS

	// BNOT pops an integer value and pushes its bitwise complement.
	BNOT

	// LNOT pops a boolean value and pushes its logical negation.
	LNOT

	// SUPER pops the receiver on top of the stack and pushes a view of it whose
	// method lookup starts one class up the super-chain, used before a CALL
	// that must dispatch starting at a base class.
	//
	// Operands: [unused:2]
	SUPER

	// GO pops a receiver (and argc arguments already pushed beneath it) and
	// hands the call off to the routine's cooperative scheduler instead of
	// invoking it inline, implementing `go f(...)` (spec.md §4.7).
	//
	// Operands: [name_const_index:4, argc:2]
	GO
)

// Definition represents an instruction definition with its name and operand widths.
type Definition struct {
	// The name of the instruction.
	Name string

	// OperandWidths specifies the number of bytes each operand of an instruction occupies.
	OperandWidths []int
}

// definitions is a map of opcodes to their definitions. Argument widths
// match spec.md §6's table exactly, since the image format's byte layout
// depends on them bit-for-bit.
var definitions = map[Opcode]*Definition{
	HALT:      {"HALT", []int{}},
	LOADK:     {"LOADK", []int{4}},
	LOADM:     {"LOADM", []int{4}},
	GETM:      {"GETM", []int{}},
	LOAD:      {"LOAD", []int{2}},
	STORE:     {"STORE", []int{2}},
	GETFIELD:  {"GETFIELD", []int{4}},
	SETFIELD:  {"SETFIELD", []int{4}},
	CALL:      {"CALL", []int{4, 2}},
	NEW:       {"NEW", []int{4, 2}},
	RET:       {"RET", []int{}},
	ADD:       {"ADD", []int{}},
	SUB:       {"SUB", []int{}},
	MUL:       {"MUL", []int{}},
	DIV:       {"DIV", []int{}},
	MOD:       {"MOD", []int{}},
	GT:        {"GT", []int{}},
	GE:        {"GE", []int{}},
	LT:        {"LT", []int{}},
	LE:        {"LE", []int{}},
	EQ:        {"EQ", []int{}},
	NEQ:       {"NEQ", []int{}},
	JUMP:      {"JUMP", []int{4}},
	JUMP_TRUE: {"JUMP_TRUE", []int{4}},
	JUMP_FALSE: {"JUMP_FALSE", []int{4}},
	MINUS:     {"MINUS", []int{}},
	BNOT:      {"BNOT", []int{}},
	LNOT:      {"LNOT", []int{}},
	SUPER:     {"SUPER", []int{2}},
	GO:        {"GO", []int{4, 2}},
}

// Lookup returns the [Definition] for the given [Opcode].
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Make creates a byte slice representing an instruction using the provided opcode and operands.
// Signed operands (jump offsets) are passed as their two's-complement int value.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}
	instructionLen := 1
	for _, w := range def.OperandWidths {
		instructionLen += w
	}
	instruction := make([]byte, instructionLen)
	instruction[0] = byte(op)
	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(int16(operand)))
		case 4:
			binary.BigEndian.PutUint32(instruction[offset:], uint32(int32(operand)))
		}
		offset += width
	}
	return instruction
}

// String provides a human-readable string representation of the [Instructions], formatted with opcodes and operands.
func (ins Instructions) String() string {
	var out strings.Builder

	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			_, _ = fmt.Fprintf(&out, "ERROR: %s\n", err)
			continue
		}
		operands, read := ReadOperands(def, ins[i+1:])
		_, _ = fmt.Fprintf(&out, "%04d %s\n", i, ins.fmtInstruction(def, operands))
		i += read + 1
	}

	return out.String()
}

// fmtInstruction formats an instruction with its operands into a human-readable string representation.
func (ins Instructions) fmtInstruction(def *Definition, operands []int) string {
	operandCount := len(def.OperandWidths)

	if len(operands) != operandCount {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d\n", len(operands), operandCount)
	}

	switch operandCount {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}
	return fmt.Sprintf("ERROR: unhandled operandCount for %s\n", def.Name)
}

// ReadOperands decodes operands from the specified instructions based
// on the definition and returns them with the total bytes read.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 4:
			operands[i] = int(ReadInt32(ins[offset:]))
		}
		offset += width
	}
	return operands, offset
}

// ReadInt16 decodes the first two bytes of the provided [Instructions] as a signed 16-bit integer, big-endian.
func ReadInt16(ins Instructions) int16 {
	return int16(binary.BigEndian.Uint16(ins))
}

// ReadInt32 decodes the first four bytes of the provided [Instructions] as a signed 32-bit integer, big-endian.
func ReadInt32(ins Instructions) int32 {
	return int32(binary.BigEndian.Uint32(ins))
}

// ReadUint16 decodes the first two bytes of the provided [Instructions] as an unsigned 16-bit integer, big-endian.
func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}
