package vm

import (
	"fmt"
	"io"
)

// PID stands for Process ID.
type PID uint32

// A PageTable holds the entries of one process, indexed by page number.
//
// The table is not safe for concurrent use. It is owned by the memory
// management state of a process, which serializes the accesses.
type PageTable struct {
	entries []PTE
}

// NewPageTable creates a page table with numPages unmapped entries.
func NewPageTable(numPages uint64) *PageTable {
	return &PageTable{
		entries: make([]PTE, numPages),
	}
}

// NumPages returns the number of entries.
func (t *PageTable) NumPages() uint64 {
	return uint64(len(t.entries))
}

// Get returns the entry of a page.
func (t *PageTable) Get(pgn uint64) PTE {
	t.pageMustExist(pgn)
	return t.entries[pgn]
}

// Set replaces the entry of a page.
func (t *PageTable) Set(pgn uint64, pte PTE) {
	t.pageMustExist(pgn)
	t.entries[pgn] = pte
}

// Word returns the 32-bit encoding of the entry of a page.
func (t *PageTable) Word(pgn uint64) uint32 {
	return t.Get(pgn).Encode()
}

// ResidentPages returns the page numbers that are present, in ascending
// order.
func (t *PageTable) ResidentPages() []uint64 {
	return t.pagesInState(PTEResident)
}

// SwappedPages returns the page numbers that live in swap, in ascending
// order.
func (t *PageTable) SwappedPages() []uint64 {
	return t.pagesInState(PTESwapped)
}

func (t *PageTable) pagesInState(state PTEState) []uint64 {
	var pages []uint64

	for pgn, pte := range t.entries {
		if pte.State == state {
			pages = append(pages, uint64(pgn))
		}
	}

	return pages
}

// Dump writes the mapped entries whose page number is in [start, end). An
// end of 0 or beyond the table dumps to the end of the table.
func (t *PageTable) Dump(w io.Writer, start, end uint64) error {
	if end == 0 || end > t.NumPages() {
		end = t.NumPages()
	}

	_, err := fmt.Fprintf(w, "page table [%d, %d)\n", start, end)
	if err != nil {
		return err
	}

	for pgn := start; pgn < end; pgn++ {
		pte := t.entries[pgn]
		if pte.State == PTEUnmapped {
			continue
		}

		_, err = fmt.Fprintf(w, "%08d: %08x %s\n", pgn, pte.Encode(), pte)
		if err != nil {
			return err
		}
	}

	return nil
}

func (t *PageTable) pageMustExist(pgn uint64) {
	if pgn >= uint64(len(t.entries)) {
		panic(fmt.Sprintf("page %d does not exist", pgn))
	}
}
