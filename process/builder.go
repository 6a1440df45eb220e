package process

import (
	"github.com/sarchlab/pagingsim/mem/physmem"
	"github.com/sarchlab/pagingsim/mem/vm"
	"github.com/sarchlab/pagingsim/mem/vm/mmu"
	"github.com/sarchlab/pagingsim/sim"
)

// A Builder can build processes.
type Builder struct {
	pid        vm.PID
	mmuBuilder mmu.Builder
	ram        *physmem.Storage
	swaps      []*physmem.Storage
	hooks      []sim.Hook
	program    *Program
}

// MakeBuilder creates a builder with a default MMU configuration.
func MakeBuilder() Builder {
	return Builder{
		mmuBuilder: mmu.MakeBuilder(),
	}
}

// WithPID sets the process ID.
func (b Builder) WithPID(pid vm.PID) Builder {
	b.pid = pid
	return b
}

// WithMMUBuilder sets the builder used for the memory management state. The
// PID and the stores set on the process builder take precedence.
func (b Builder) WithMMUBuilder(mmuBuilder mmu.Builder) Builder {
	b.mmuBuilder = mmuBuilder
	return b
}

// WithRAM sets the RAM store.
func (b Builder) WithRAM(ram *physmem.Storage) Builder {
	b.ram = ram
	return b
}

// WithSwap appends swap stores.
func (b Builder) WithSwap(stores ...*physmem.Storage) Builder {
	b.swaps = append(append([]*physmem.Storage{}, b.swaps...), stores...)
	return b
}

// WithMMUHook registers a hook on the MMU of the process.
func (b Builder) WithMMUHook(hook sim.Hook) Builder {
	b.hooks = append(append([]sim.Hook{}, b.hooks...), hook)
	return b
}

// WithProgram sets the program the process runs.
func (b Builder) WithProgram(program *Program) Builder {
	b.program = program
	return b
}

// Build creates a process.
func (b Builder) Build(name string) *Process {
	if b.ram == nil {
		panic("RAM is not set")
	}

	mb := b.mmuBuilder.WithPID(b.pid).WithRAM(b.ram)
	for _, s := range b.swaps {
		mb = mb.WithSwap(s)
	}

	mm := mb.Build(name + ".MMU")
	for _, h := range b.hooks {
		mm.AcceptHook(h)
	}

	return &Process{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		PID:          b.pid,
		MM:           mm,
		RAM:          b.ram,
		Swaps:        b.swaps,
		Program:      b.program,
	}
}
