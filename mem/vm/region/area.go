package region

import (
	"fmt"
	"io"

	"github.com/sarchlab/pagingsim/mem/vm"
)

// An Area is a virtual memory area. Its committed part is [Start, End); it
// grows at the break pointer (Sbrk) up to Limit. Freed intervals inside the
// area are kept in a free list whose head is the most recently freed one.
type Area struct {
	ID    int
	Start uint64
	End   uint64
	Sbrk  uint64
	Limit uint64

	freeList []Region
	coalesce bool
}

// NewArea creates an empty area that starts at start and may grow up to
// limit.
func NewArea(id int, start, limit uint64) *Area {
	if limit < start {
		panic(fmt.Sprintf("area %d limit %d below start %d", id, limit, start))
	}

	return &Area{
		ID:    id,
		Start: start,
		End:   start,
		Sbrk:  start,
		Limit: limit,
	}
}

// FreeRegions returns a copy of the free list, head first.
func (a *Area) FreeRegions() []Region {
	list := make([]Region, len(a.freeList))
	copy(list, a.freeList)

	return list
}

// FreeBytes returns the total size of the free list.
func (a *Area) FreeBytes() uint64 {
	total := uint64(0)
	for _, r := range a.freeList {
		total += r.Size()
	}

	return total
}

// FindFree carves size bytes from the low end of the first free interval
// that is large enough. Intervals that become empty leave the list.
func (a *Area) FindFree(size uint64) (Region, bool) {
	for i, node := range a.freeList {
		if node.Size() < size {
			continue
		}

		carved := Region{Start: node.Start, End: node.Start + size}

		node.Start = carved.End
		if node.Valid() {
			a.freeList[i] = node
		} else {
			a.freeList = append(a.freeList[:i], a.freeList[i+1:]...)
		}

		return carved, true
	}

	return Region{}, false
}

// PutFree puts a region at the head of the free list. With coalescing
// enabled, free intervals adjacent to r are merged into it first.
func (a *Area) PutFree(r Region) error {
	if !r.Valid() {
		return fmt.Errorf("%w: cannot free empty region %s",
			vm.ErrInvalidRegion, r)
	}

	if r.Start < a.Start || r.End > a.End {
		return fmt.Errorf("%w: region %s outside area %d [%d, %d)",
			vm.ErrInvalidArea, r, a.ID, a.Start, a.End)
	}

	if a.coalesce {
		r = a.mergeAdjacent(r)
	}

	a.freeList = append([]Region{r}, a.freeList...)

	return nil
}

func (a *Area) mergeAdjacent(r Region) Region {
	for merged := true; merged; {
		merged = false

		for i, node := range a.freeList {
			if !node.Adjacent(r) {
				continue
			}

			r.Start = min(r.Start, node.Start)
			r.End = max(r.End, node.End)
			a.freeList = append(a.freeList[:i], a.freeList[i+1:]...)
			merged = true

			break
		}
	}

	return r
}

// Grow extends the area at the break pointer by inc bytes rounded up to a
// whole number of pages, and returns the newly committed range. Physical
// frames are not attached; pages are backed on first touch.
func (a *Area) Grow(inc uint64, spec vm.AddressSpec) (Region, error) {
	aligned := spec.AlignUp(inc)
	if aligned == 0 {
		return Region{}, fmt.Errorf("%w: area %d cannot grow by 0 bytes",
			vm.ErrOutOfSpace, a.ID)
	}

	candidate := Region{Start: a.Sbrk, End: a.Sbrk + aligned}

	if candidate.Start < a.End {
		return Region{}, fmt.Errorf("%w: %s starts below end %d of area %d",
			vm.ErrOverlap, candidate, a.End, a.ID)
	}

	if candidate.End > a.Limit || candidate.End < candidate.Start {
		return Region{}, fmt.Errorf(
			"%w: area %d cannot grow by %d bytes beyond limit %d",
			vm.ErrOutOfSpace, a.ID, aligned, a.Limit)
	}

	a.End = candidate.End
	a.Sbrk = candidate.End

	return candidate, nil
}

// Dump writes the bounds and the free list of the area.
func (a *Area) Dump(w io.Writer) error {
	_, err := fmt.Fprintf(w, "area %d [%d, %d) sbrk=%d limit=%d\n",
		a.ID, a.Start, a.End, a.Sbrk, a.Limit)
	if err != nil {
		return err
	}

	for _, r := range a.freeList {
		_, err = fmt.Fprintf(w, "\tfree %s\n", r)
		if err != nil {
			return err
		}
	}

	return nil
}
