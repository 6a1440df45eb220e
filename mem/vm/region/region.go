// Package region manages the virtual address space of a process: areas that
// grow like a program break, the free intervals inside them, and the symbol
// table that names allocated regions.
package region

import "fmt"

// A Region is the half-open interval [Start, End) of virtual addresses.
//
// The zero Region is the empty sentinel that marks unused symbol table
// slots. A region is valid only if Start < End.
type Region struct {
	Start uint64
	End   uint64
}

// Valid tells if the region covers at least one byte.
func (r Region) Valid() bool {
	return r.Start < r.End
}

// Size returns the number of bytes in the region.
func (r Region) Size() uint64 {
	if !r.Valid() {
		return 0
	}

	return r.End - r.Start
}

// Adjacent tells if the two regions touch without overlapping.
func (r Region) Adjacent(other Region) bool {
	return r.End == other.Start || other.End == r.Start
}

func (r Region) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}
