package mmu

import (
	"fmt"

	"github.com/sarchlab/pagingsim/mem/vm"
	"github.com/sarchlab/pagingsim/mem/vm/mmu/internal"
	"github.com/sarchlab/pagingsim/mem/vm/region"
	"github.com/sarchlab/pagingsim/sim"
)

// A Builder can build MMUs.
type Builder struct {
	pid             vm.PID
	spec            vm.AddressSpec
	ram             FrameStore
	swaps           []FrameStore
	symbolTableSize int
	coalesce        bool
	layouts         []region.AreaLayout
}

// MakeBuilder creates a builder with a 22-bit bus, 256-byte pages, and a
// symbol table of 30 regions.
func MakeBuilder() Builder {
	return Builder{
		spec:            vm.DefaultAddressSpec,
		symbolTableSize: region.DefaultSymbolTableSize,
	}
}

// WithPID sets the ID of the process that owns the MMU.
func (b Builder) WithPID(pid vm.PID) Builder {
	b.pid = pid
	return b
}

// WithAddressSpec sets the address layout.
func (b Builder) WithAddressSpec(spec vm.AddressSpec) Builder {
	b.spec = spec
	return b
}

// WithBusWidth sets the number of bits in a virtual address.
func (b Builder) WithBusWidth(n uint64) Builder {
	b.spec.BusWidth = n
	return b
}

// WithLog2PageSize sets the page size.
func (b Builder) WithLog2PageSize(n uint64) Builder {
	b.spec.Log2PageSize = n
	return b
}

// WithRAM sets the store that backs resident pages. The store can be shared
// by the MMUs of several processes.
func (b Builder) WithRAM(ram FrameStore) Builder {
	b.ram = ram
	return b
}

// WithSwap appends swap stores. The swap type of a store is its position in
// the order they are added. The first one is active after build.
func (b Builder) WithSwap(stores ...FrameStore) Builder {
	b.swaps = append(append([]FrameStore{}, b.swaps...), stores...)
	return b
}

// WithSymbolTableSize sets how many regions a process can name.
func (b Builder) WithSymbolTableSize(n int) Builder {
	b.symbolTableSize = n
	return b
}

// WithFreeRegionCoalescing merges adjacent free regions when a region is
// freed.
func (b Builder) WithFreeRegionCoalescing(enabled bool) Builder {
	b.coalesce = enabled
	return b
}

// WithAreaLayouts splits the address space into several areas. Without it,
// a single area covers the whole address space.
func (b Builder) WithAreaLayouts(layouts ...region.AreaLayout) Builder {
	b.layouts = append([]region.AreaLayout{}, layouts...)
	return b
}

// Build creates an MMU. It panics if the configuration is inconsistent.
func (b Builder) Build(name string) *MMU {
	b.mustBeValid()

	return &MMU{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		pid:          b.pid,
		spec:         b.spec,
		allocator: region.NewAllocator(
			b.spec, b.symbolTableSize, b.coalesce, b.layouts...),
		pageTable: vm.NewPageTable(b.spec.MaxPages()),
		victims:   internal.NewVictimQueue(),
		ram:       b.ram,
		swaps:     b.swaps,
	}
}

func (b Builder) mustBeValid() {
	if err := b.spec.Validate(); err != nil {
		panic(err)
	}

	if b.ram == nil {
		panic("RAM is not set")
	}

	b.storeMustFit(b.ram, vm.MaxFrames)

	if len(b.swaps) > vm.MaxSwapTypes {
		panic(fmt.Sprintf("at most %d swap stores are supported, got %d",
			vm.MaxSwapTypes, len(b.swaps)))
	}

	for _, s := range b.swaps {
		b.storeMustFit(s, vm.MaxSwapOffsets)
	}
}

func (b Builder) storeMustFit(s FrameStore, maxFrames uint64) {
	if s.FrameSize() != b.spec.PageSize() {
		panic(fmt.Sprintf("frame size of %s is %d, but page size is %d",
			s.Name(), s.FrameSize(), b.spec.PageSize()))
	}

	if s.NumFrames() > maxFrames {
		panic(fmt.Sprintf("%s has %d frames, more than the %d a PTE can address",
			s.Name(), s.NumFrames(), maxFrames))
	}
}
