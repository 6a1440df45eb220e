// Package mmu implements the memory management state of a process: region
// allocation, demand paging with FIFO replacement, and byte access through
// the page table.
package mmu

import (
	"fmt"
	"sync"

	"github.com/sarchlab/pagingsim/mem/physmem"
	"github.com/sarchlab/pagingsim/mem/vm"
	"github.com/sarchlab/pagingsim/mem/vm/mmu/internal"
	"github.com/sarchlab/pagingsim/mem/vm/region"
	"github.com/sarchlab/pagingsim/sim"
)

// MMU is the memory management state of one process. All the methods are
// safe for concurrent use; each of them holds the lock of the MMU for its
// whole duration, so a free or a growth never interleaves with a byte
// access of the same process.
//
// Hooks are invoked with the lock held and must not call back into the MMU.
type MMU struct {
	*sim.HookableBase

	lock sync.Mutex

	name       string
	pid        vm.PID
	spec       vm.AddressSpec
	allocator  *region.Allocator
	pageTable  *vm.PageTable
	victims    *internal.VictimQueue
	ram        FrameStore
	swaps      []FrameStore
	activeSwap int
}

// Name returns the name of the MMU.
func (m *MMU) Name() string {
	return m.name
}

// PID returns the ID of the process that owns the MMU.
func (m *MMU) PID() vm.PID {
	return m.pid
}

// AddressSpec returns the address layout.
func (m *MMU) AddressSpec() vm.AddressSpec {
	return m.spec
}

// Allocate commits size bytes in an area under regionID and returns the
// start address of the region. Pages are backed on first touch.
func (m *MMU) Allocate(areaID, regionID int, size uint64) (uint64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	r, err := m.allocator.Allocate(areaID, regionID, size)
	if err != nil {
		return 0, err
	}

	m.invoke(vm.HookPosAlloc, vm.MemEvent{
		Kind:   vm.EventAlloc,
		Region: regionID,
		Addr:   r.Start,
		Size:   r.Size(),
	})

	return r.Start, nil
}

// Free releases the region named regionID. The pages of the region keep
// their frames until the process is reclaimed.
func (m *MMU) Free(areaID, regionID int) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	r, err := m.allocator.Free(areaID, regionID)
	if err != nil {
		return err
	}

	m.invoke(vm.HookPosFree, vm.MemEvent{
		Kind:   vm.EventFree,
		Region: regionID,
		Addr:   r.Start,
		Size:   r.Size(),
	})

	return nil
}

// Region returns the region committed under regionID in an area.
func (m *MMU) Region(areaID, regionID int) (region.Region, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.allocator.Resolve(areaID, regionID)
}

// Read returns the byte at offset in a region. Offsets at or beyond the
// region size are rejected.
func (m *MMU) Read(areaID, regionID int, offset uint64) (byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	vAddr, err := m.regionAddr(areaID, regionID, offset)
	if err != nil {
		return 0, err
	}

	return m.loadByte(vAddr)
}

// Write stores a byte at offset in a region. Offsets at or beyond the region
// size are rejected.
func (m *MMU) Write(areaID, regionID int, offset uint64, data byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	vAddr, err := m.regionAddr(areaID, regionID, offset)
	if err != nil {
		return err
	}

	return m.storeByte(vAddr, data)
}

func (m *MMU) regionAddr(areaID, regionID int, offset uint64) (uint64, error) {
	r, err := m.allocator.Resolve(areaID, regionID)
	if err != nil {
		return 0, err
	}

	if offset >= r.Size() {
		return 0, fmt.Errorf("%w: offset %d outside region %d of %d bytes",
			physmem.ErrOutOfBounds, offset, regionID, r.Size())
	}

	return r.Start + offset, nil
}

// LoadByte reads the byte at a virtual address, faulting the page in if
// needed. The address is not checked against the allocated regions.
func (m *MMU) LoadByte(vAddr uint64) (byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.loadByte(vAddr)
}

// StoreByte writes the byte at a virtual address, faulting the page in if
// needed. The address is not checked against the allocated regions.
func (m *MMU) StoreByte(vAddr uint64, data byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.storeByte(vAddr, data)
}

func (m *MMU) loadByte(vAddr uint64) (byte, error) {
	pgn, offset := m.spec.Translate(vAddr)

	frame, err := m.ensureResident(pgn)
	if err != nil {
		return 0, err
	}

	return m.ram.Read(m.spec.PhysicalAddr(frame, offset))
}

func (m *MMU) storeByte(vAddr uint64, data byte) error {
	pgn, offset := m.spec.Translate(vAddr)

	frame, err := m.ensureResident(pgn)
	if err != nil {
		return err
	}

	err = m.ram.Write(m.spec.PhysicalAddr(frame, offset), data)
	if err != nil {
		return err
	}

	pte := m.pageTable.Get(pgn)
	if !pte.Dirty {
		pte.Dirty = true
		m.pageTable.Set(pgn, pte)
	}

	return nil
}

// BreakPointer returns the break pointer of an area.
func (m *MMU) BreakPointer(areaID int) (uint64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	area, err := m.allocator.Area(areaID)
	if err != nil {
		return 0, err
	}

	return area.Sbrk, nil
}

// SetActiveSwap selects the swap store that receives evicted pages.
func (m *MMU) SetActiveSwap(swapType int) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if swapType < 0 || swapType >= len(m.swaps) {
		return fmt.Errorf("swap type %d outside [0, %d)", swapType, len(m.swaps))
	}

	m.activeSwap = swapType

	return nil
}

// ActiveSwap returns the swap type that receives evicted pages.
func (m *MMU) ActiveSwap() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.activeSwap
}

// PageTableEntry returns the entry of a page.
func (m *MMU) PageTableEntry(pgn uint64) vm.PTE {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.pageTable.Get(pgn)
}

// ResidentPages returns the pages that are present in RAM, in ascending
// order.
func (m *MMU) ResidentPages() []uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.pageTable.ResidentPages()
}

// VictimOrder returns the resident pages in the order they will be evicted.
func (m *MMU) VictimOrder() []uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.victims.Pages()
}

// ReclaimAll returns every frame held by the process to its store and
// unmaps all the pages. It returns the number of pages reclaimed. Calling it
// again reclaims nothing.
func (m *MMU) ReclaimAll() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	count := 0

	for pgn := uint64(0); pgn < m.pageTable.NumPages(); pgn++ {
		pte := m.pageTable.Get(pgn)

		switch pte.State {
		case vm.PTEResident:
			m.ram.ReleaseFrame(pte.Frame)
		case vm.PTESwapped:
			m.swaps[pte.SwapType].ReleaseFrame(pte.SwapOffset)
		default:
			continue
		}

		m.pageTable.Set(pgn, vm.UnmappedPTE())
		count++
	}

	m.victims.Clear()

	m.invoke(vm.HookPosReclaim, vm.MemEvent{
		Kind: vm.EventReclaim,
		Size: uint64(count),
	})

	return count
}

func (m *MMU) invoke(pos *sim.HookPos, event vm.MemEvent) {
	if m.NumHooks() == 0 {
		return
	}

	event.PID = m.pid

	m.InvokeHook(sim.HookCtx{
		Domain: m,
		Pos:    pos,
		Item:   event,
	})
}
