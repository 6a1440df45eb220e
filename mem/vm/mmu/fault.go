package mmu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/pagingsim/mem/physmem"
	"github.com/sarchlab/pagingsim/mem/vm"
)

// EnsureResident makes a page present in RAM and returns its frame.
//
// A page that was never touched gets a zeroed frame. A swapped page is
// copied back from its swap slot, and the slot is released. When RAM has
// no free frame, the oldest resident page of the process is moved to the
// active swap store first.
//
// If no frame can be obtained, the page table is unchanged. If the frame was
// obtained by evicting a victim and filling it then fails, the frame goes
// back to the RAM free list but the victim stays in swap, and the faulting
// page keeps its previous state.
func (m *MMU) EnsureResident(pgn uint64) (uint64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.ensureResident(pgn)
}

func (m *MMU) ensureResident(pgn uint64) (uint64, error) {
	pte := m.pageTable.Get(pgn)
	if pte.Present() {
		return pte.Frame, nil
	}

	frame, err := m.acquireFrame()
	if err != nil {
		return 0, err
	}

	event := vm.MemEvent{Page: pgn, Frame: frame}

	switch pte.State {
	case vm.PTESwapped:
		err = m.swapIn(pte, frame)
		event.Kind = vm.EventSwapIn
		event.SwapType = pte.SwapType
		event.SwapOffset = pte.SwapOffset
	default:
		err = m.ram.WriteFrame(frame, nil)
		event.Kind = vm.EventFirstTouch
	}

	if err != nil {
		m.ram.ReleaseFrame(frame)
		return 0, err
	}

	m.pageTable.Set(pgn, vm.ResidentPTE(frame, false))
	m.victims.PushBack(pgn)

	m.invoke(vm.HookPosPageFault, event)

	return frame, nil
}

func (m *MMU) swapIn(pte vm.PTE, frame uint64) error {
	if int(pte.SwapType) >= len(m.swaps) {
		panic(fmt.Sprintf("swap type %d is not configured", pte.SwapType))
	}

	swap := m.swaps[pte.SwapType]

	data, err := swap.ReadFrame(pte.SwapOffset)
	if err != nil {
		return err
	}

	err = m.ram.WriteFrame(frame, data)
	if err != nil {
		return err
	}

	swap.ReleaseFrame(pte.SwapOffset)

	return nil
}

// acquireFrame takes a free RAM frame, evicting a victim when RAM is full.
func (m *MMU) acquireFrame() (uint64, error) {
	frame, err := m.ram.GetFreeFrame()
	if err == nil {
		return frame, nil
	}

	if !errors.Is(err, physmem.ErrOutOfFrames) {
		return 0, err
	}

	return m.evictVictim()
}

// evictVictim moves the oldest resident page to the active swap store and
// returns the frame it occupied. The victim is only dequeued once its
// content is safely in swap.
func (m *MMU) evictVictim() (uint64, error) {
	victim, ok := m.victims.Front()
	if !ok {
		return 0, fmt.Errorf("%w: process %d has no resident page",
			vm.ErrNoVictim, m.pid)
	}

	pte := m.pageTable.Get(victim)
	if !pte.Present() {
		panic(fmt.Sprintf("victim page %d is not resident", victim))
	}

	if len(m.swaps) == 0 {
		return 0, fmt.Errorf("%w: no swap store", vm.ErrSwapExhausted)
	}

	swap := m.swaps[m.activeSwap]

	slot, err := swap.GetFreeFrame()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", vm.ErrSwapExhausted, err)
	}

	err = m.copyOut(pte.Frame, swap, slot)
	if err != nil {
		swap.ReleaseFrame(slot)
		return 0, err
	}

	m.victims.PopFront()

	swapType := uint8(m.activeSwap)
	m.pageTable.Set(victim, vm.SwappedPTE(swapType, slot))

	m.invoke(vm.HookPosPageEvict, vm.MemEvent{
		Kind:       vm.EventEvict,
		Page:       victim,
		Frame:      pte.Frame,
		SwapType:   swapType,
		SwapOffset: slot,
	})

	return pte.Frame, nil
}

func (m *MMU) copyOut(frame uint64, swap FrameStore, slot uint64) error {
	data, err := m.ram.ReadFrame(frame)
	if err != nil {
		return err
	}

	return swap.WriteFrame(slot, data)
}
