package mmu

import (
	"bytes"
	"fmt"
	"io"
)

// DumpPageTable writes the mapped page table entries in [start, end). An end
// of 0 dumps to the end of the table. The lock is released before w is
// written to.
func (m *MMU) DumpPageTable(w io.Writer, start, end uint64) error {
	buf := new(bytes.Buffer)

	err := m.renderPageTable(buf, start, end)
	if err != nil {
		return err
	}

	_, err = buf.WriteTo(w)

	return err
}

func (m *MMU) renderPageTable(buf *bytes.Buffer, start, end uint64) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	fmt.Fprintf(buf, "===== %s (pid %d) =====\n", m.name, m.pid)

	return m.pageTable.Dump(buf, start, end)
}

// DumpRegions writes the areas, the allocated regions, and the eviction
// order.
func (m *MMU) DumpRegions(w io.Writer) error {
	buf := new(bytes.Buffer)

	err := m.renderRegions(buf)
	if err != nil {
		return err
	}

	_, err = buf.WriteTo(w)

	return err
}

func (m *MMU) renderRegions(buf *bytes.Buffer) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	fmt.Fprintf(buf, "===== %s (pid %d) =====\n", m.name, m.pid)

	err := m.allocator.Dump(buf)
	if err != nil {
		return err
	}

	fmt.Fprintf(buf, "fifo %v\n", m.victims.Pages())

	return nil
}

// A Snapshot summarizes the memory state of a process.
type Snapshot struct {
	Name          string         `json:"name"`
	PID           uint32         `json:"pid"`
	ResidentPages int            `json:"resident_pages"`
	SwappedPages  int            `json:"swapped_pages"`
	ActiveSwap    int            `json:"active_swap"`
	NumSwaps      int            `json:"num_swaps"`
	BreakPointers []uint64       `json:"break_pointers"`
	Regions       map[int]string `json:"regions"`
	VictimOrder   []uint64       `json:"victim_order"`
}

// Snapshot returns a summary of the current memory state.
func (m *MMU) Snapshot() Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()

	s := Snapshot{
		Name:          m.name,
		PID:           uint32(m.pid),
		ResidentPages: len(m.pageTable.ResidentPages()),
		SwappedPages:  len(m.pageTable.SwappedPages()),
		ActiveSwap:    m.activeSwap,
		NumSwaps:      len(m.swaps),
		Regions:       make(map[int]string),
		VictimOrder:   m.victims.Pages(),
	}

	for _, area := range m.allocator.Areas() {
		s.BreakPointers = append(s.BreakPointers, area.Sbrk)
	}

	for id, r := range m.allocator.Symbols().Entries() {
		s.Regions[id] = r.String()
	}

	return s
}
