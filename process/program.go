package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrSyntax is returned when a program line cannot be parsed.
var ErrSyntax = errors.New("syntax error")

// Opcode names an instruction.
type Opcode int

// The instructions a program can use.
const (
	OpCalc Opcode = iota
	OpAlloc
	OpFree
	OpRead
	OpWrite
)

var opcodes = []struct {
	name  string
	arity int
}{
	OpCalc:  {"calc", 0},
	OpAlloc: {"alloc", 2},
	OpFree:  {"free", 1},
	OpRead:  {"read", 2},
	OpWrite: {"write", 3},
}

func (o Opcode) String() string {
	if o < 0 || int(o) >= len(opcodes) {
		return fmt.Sprintf("Opcode(%d)", int(o))
	}

	return opcodes[o].name
}

// An Instruction is one line of a program.
//
//	calc
//	alloc SIZE REG
//	free REG
//	read REG OFFSET
//	write VALUE REG OFFSET
type Instruction struct {
	Op     Opcode
	Line   int
	Size   uint64
	Region int
	Offset uint64
	Value  byte
}

func (i Instruction) String() string {
	switch i.Op {
	case OpAlloc:
		return fmt.Sprintf("alloc %d %d", i.Size, i.Region)
	case OpFree:
		return fmt.Sprintf("free %d", i.Region)
	case OpRead:
		return fmt.Sprintf("read %d %d", i.Region, i.Offset)
	case OpWrite:
		return fmt.Sprintf("write %d %d %d", i.Value, i.Region, i.Offset)
	default:
		return i.Op.String()
	}
}

// A Program is a list of instructions.
type Program struct {
	Name         string
	Instructions []Instruction
}

// ParseProgram reads a program, one instruction per line. Blank lines and
// text after '#' are ignored. Numbers can be written in decimal or with a
// 0x prefix.
func ParseProgram(name string, r io.Reader) (*Program, error) {
	p := &Program{Name: name}
	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++

		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}

		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		inst, err := parseInstruction(fields)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}

		inst.Line = line
		p.Instructions = append(p.Instructions, inst)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return p, nil
}

func parseInstruction(fields []string) (Instruction, error) {
	op, err := parseOpcode(fields[0])
	if err != nil {
		return Instruction{}, err
	}

	args := fields[1:]
	if len(args) != opcodes[op].arity {
		return Instruction{}, fmt.Errorf("%w: %s takes %d arguments, got %d",
			ErrSyntax, op, opcodes[op].arity, len(args))
	}

	nums := make([]uint64, len(args))
	for i, a := range args {
		nums[i], err = strconv.ParseUint(a, 0, 64)
		if err != nil {
			return Instruction{}, fmt.Errorf("%w: bad number %q", ErrSyntax, a)
		}
	}

	inst := Instruction{Op: op}

	switch op {
	case OpAlloc:
		inst.Size, inst.Region = nums[0], int(nums[1])
	case OpFree:
		inst.Region = int(nums[0])
	case OpRead:
		inst.Region, inst.Offset = int(nums[0]), nums[1]
	case OpWrite:
		if nums[0] > 0xFF {
			return Instruction{}, fmt.Errorf("%w: value %d does not fit in a byte",
				ErrSyntax, nums[0])
		}

		inst.Value, inst.Region, inst.Offset = byte(nums[0]), int(nums[1]), nums[2]
	}

	return inst, nil
}

func parseOpcode(name string) (Opcode, error) {
	for op, o := range opcodes {
		if o.name == strings.ToLower(name) {
			return Opcode(op), nil
		}
	}

	return 0, fmt.Errorf("%w: unknown instruction %q", ErrSyntax, name)
}
