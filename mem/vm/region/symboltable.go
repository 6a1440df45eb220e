package region

import (
	"fmt"

	"github.com/sarchlab/pagingsim/mem/vm"
)

// DefaultSymbolTableSize is the number of region IDs a process can use.
const DefaultSymbolTableSize = 30

// A SymbolTable maps small integer region IDs to allocated regions. Slots of
// freed regions are reset to the zero Region and can be reused.
type SymbolTable struct {
	slots []Region
}

// NewSymbolTable creates a table with the given number of slots.
func NewSymbolTable(capacity int) *SymbolTable {
	if capacity <= 0 {
		panic("symbol table capacity must be positive")
	}

	return &SymbolTable{slots: make([]Region, capacity)}
}

// Capacity returns the number of slots.
func (t *SymbolTable) Capacity() int {
	return len(t.slots)
}

// Get returns the region committed under id.
func (t *SymbolTable) Get(id int) (Region, error) {
	err := t.idMustBeInRange(id)
	if err != nil {
		return Region{}, err
	}

	r := t.slots[id]
	if !r.Valid() {
		return Region{}, fmt.Errorf("%w: region %d is not allocated",
			vm.ErrInvalidRegion, id)
	}

	return r, nil
}

// InUse tells if a valid region is committed under id.
func (t *SymbolTable) InUse(id int) bool {
	if id < 0 || id >= len(t.slots) {
		return false
	}

	return t.slots[id].Valid()
}

// Commit stores a region under id.
func (t *SymbolTable) Commit(id int, r Region) error {
	err := t.idMustBeInRange(id)
	if err != nil {
		return err
	}

	if !r.Valid() {
		return fmt.Errorf("%w: cannot commit empty region %s",
			vm.ErrInvalidRegion, r)
	}

	t.slots[id] = r

	return nil
}

// Reset marks the slot of id as unused.
func (t *SymbolTable) Reset(id int) {
	if t.idMustBeInRange(id) == nil {
		t.slots[id] = Region{}
	}
}

// Entries returns the allocated regions keyed by their ID.
func (t *SymbolTable) Entries() map[int]Region {
	entries := make(map[int]Region)

	for id, r := range t.slots {
		if r.Valid() {
			entries[id] = r
		}
	}

	return entries
}

func (t *SymbolTable) idMustBeInRange(id int) error {
	if id < 0 || id >= len(t.slots) {
		return fmt.Errorf("%w: region id %d outside [0, %d)",
			vm.ErrInvalidRegion, id, len(t.slots))
	}

	return nil
}
