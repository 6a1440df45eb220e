package region

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/pagingsim/mem/vm"
)

// An AreaLayout reserves [Start, Limit) of the address space for an area.
type AreaLayout struct {
	Start uint64
	Limit uint64
}

// An Allocator hands out named regions from a list of areas. It first tries
// the free list of the area (first fit) and grows the area otherwise.
//
// The Allocator is not safe for concurrent use.
type Allocator struct {
	spec    vm.AddressSpec
	areas   []*Area
	symbols *SymbolTable
}

// NewAllocator creates an allocator. Without layouts, a single area 0 spans
// the whole address space. Layouts must be disjoint and inside the address
// space.
func NewAllocator(
	spec vm.AddressSpec,
	symbolTableSize int,
	coalesce bool,
	layouts ...AreaLayout,
) *Allocator {
	if len(layouts) == 0 {
		layouts = []AreaLayout{{Start: 0, Limit: spec.AddressSpaceSize()}}
	}

	mustBeDisjoint(spec, layouts)

	a := &Allocator{
		spec:    spec,
		symbols: NewSymbolTable(symbolTableSize),
	}

	for id, l := range layouts {
		area := NewArea(id, l.Start, l.Limit)
		area.coalesce = coalesce
		a.areas = append(a.areas, area)
	}

	return a
}

func mustBeDisjoint(spec vm.AddressSpec, layouts []AreaLayout) {
	for i, l := range layouts {
		if l.Limit <= l.Start || l.Limit > spec.AddressSpaceSize() {
			panic(fmt.Sprintf("invalid layout [%d, %d) for area %d",
				l.Start, l.Limit, i))
		}

		for j := 0; j < i; j++ {
			o := layouts[j]
			if l.Start < o.Limit && o.Start < l.Limit {
				panic(fmt.Sprintf("area %d overlaps area %d", i, j))
			}
		}
	}
}

// Area returns the area with the given ID.
func (a *Allocator) Area(id int) (*Area, error) {
	if id < 0 || id >= len(a.areas) {
		return nil, fmt.Errorf("%w: area %d does not exist",
			vm.ErrInvalidArea, id)
	}

	return a.areas[id], nil
}

// Areas returns all the areas, ordered by ID.
func (a *Allocator) Areas() []*Area {
	return a.areas
}

// Symbols returns the symbol table.
func (a *Allocator) Symbols() *SymbolTable {
	return a.symbols
}

// Allocate commits size bytes of the area under regionID and returns the
// committed region. Nothing changes if the allocation fails.
func (a *Allocator) Allocate(areaID, regionID int, size uint64) (Region, error) {
	area, err := a.Area(areaID)
	if err != nil {
		return Region{}, err
	}

	err = a.slotMustBeFree(regionID)
	if err != nil {
		return Region{}, err
	}

	if size == 0 {
		return Region{}, fmt.Errorf("%w: region %d requested 0 bytes",
			vm.ErrInvalidRegion, regionID)
	}

	r, found := area.FindFree(size)
	if !found {
		r, err = area.Grow(size, a.spec)
		if err != nil {
			return Region{}, outOfSpace(err)
		}
	}

	err = a.symbols.Commit(regionID, r)
	if err != nil {
		panic(err)
	}

	return r, nil
}

func outOfSpace(err error) error {
	if errors.Is(err, vm.ErrOutOfSpace) {
		return err
	}

	return fmt.Errorf("%w: %w", vm.ErrOutOfSpace, err)
}

func (a *Allocator) slotMustBeFree(regionID int) error {
	if regionID < 0 || regionID >= a.symbols.Capacity() {
		return fmt.Errorf("%w: region id %d outside [0, %d)",
			vm.ErrInvalidRegion, regionID, a.symbols.Capacity())
	}

	if a.symbols.InUse(regionID) {
		return fmt.Errorf("%w: region %d is already allocated",
			vm.ErrInvalidRegion, regionID)
	}

	return nil
}

// Free returns the region named regionID to the free list of its area and
// resets its symbol table slot.
func (a *Allocator) Free(areaID, regionID int) (Region, error) {
	area, err := a.Area(areaID)
	if err != nil {
		return Region{}, err
	}

	r, err := a.symbols.Get(regionID)
	if err != nil {
		return Region{}, err
	}

	err = area.PutFree(r)
	if err != nil {
		return Region{}, err
	}

	a.symbols.Reset(regionID)

	return r, nil
}

// Resolve returns the region named regionID, checking that the area exists
// and contains it.
func (a *Allocator) Resolve(areaID, regionID int) (Region, error) {
	area, err := a.Area(areaID)
	if err != nil {
		return Region{}, err
	}

	r, err := a.symbols.Get(regionID)
	if err != nil {
		return Region{}, err
	}

	if r.Start < area.Start || r.End > area.End {
		return Region{}, fmt.Errorf("%w: region %d %s is not in area %d",
			vm.ErrInvalidArea, regionID, r, areaID)
	}

	return r, nil
}

// Dump writes the areas and the allocated regions.
func (a *Allocator) Dump(w io.Writer) error {
	for _, area := range a.areas {
		err := area.Dump(w)
		if err != nil {
			return err
		}
	}

	for id := 0; id < a.symbols.Capacity(); id++ {
		r, err := a.symbols.Get(id)
		if err != nil {
			continue
		}

		_, err = fmt.Fprintf(w, "region %d %s\n", id, r)
		if err != nil {
			return err
		}
	}

	return nil
}
