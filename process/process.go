// Package process provides the process handle that programs run against and
// a runner that executes several programs concurrently.
package process

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/pagingsim/mem/physmem"
	"github.com/sarchlab/pagingsim/mem/vm"
	"github.com/sarchlab/pagingsim/mem/vm/mmu"
	"github.com/sarchlab/pagingsim/sim"
)

// The area that program instructions operate on.
const defaultArea = 0

// A Process owns its memory management state and the stores that back it.
// Running a program reports every executed instruction at
// HookPosInstruction.
type Process struct {
	*sim.HookableBase

	name string

	PID     vm.PID
	MM      *mmu.MMU
	RAM     *physmem.Storage
	Swaps   []*physmem.Storage
	Program *Program
}

// Name returns the name of the process.
func (p *Process) Name() string {
	return p.name
}

// LogValue identifies the process in log records.
func (p *Process) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", p.name),
		slog.Uint64("pid", uint64(p.PID)),
	)
}

// Alloc commits size bytes under region reg and returns the start address.
func (p *Process) Alloc(size uint64, reg int) (uint64, error) {
	return p.MM.Allocate(defaultArea, reg, size)
}

// Free releases region reg.
func (p *Process) Free(reg int) error {
	return p.MM.Free(defaultArea, reg)
}

// Read returns the byte at offset in region reg.
func (p *Process) Read(reg int, offset uint64) (byte, error) {
	return p.MM.Read(defaultArea, reg, offset)
}

// Write stores value at offset in region reg.
func (p *Process) Write(value byte, reg int, offset uint64) error {
	return p.MM.Write(defaultArea, reg, offset, value)
}

// ReadBytes reads n bytes starting at offset in region reg. It stops at the
// first failing byte and returns what was read before it.
func (p *Process) ReadBytes(reg int, offset, n uint64) ([]byte, error) {
	data := make([]byte, 0, n)

	for i := uint64(0); i < n; i++ {
		b, err := p.Read(reg, offset+i)
		if err != nil {
			return data, err
		}

		data = append(data, b)
	}

	return data, nil
}

// WriteBytes writes data starting at offset in region reg.
func (p *Process) WriteBytes(reg int, offset uint64, data []byte) error {
	for i, b := range data {
		err := p.Write(b, reg, offset+uint64(i))
		if err != nil {
			return err
		}
	}

	return nil
}

// ReadString reads a zero-terminated string starting at offset in region
// reg. The string also ends at the end of the region.
func (p *Process) ReadString(reg int, offset uint64) (string, error) {
	r, err := p.MM.Region(defaultArea, reg)
	if err != nil {
		return "", err
	}

	if offset >= r.Size() {
		return "", fmt.Errorf("%w: offset %d outside region %d",
			physmem.ErrOutOfBounds, offset, reg)
	}

	var data []byte

	for addr := offset; addr < r.Size(); addr++ {
		b, err := p.Read(reg, addr)
		if err != nil {
			return string(data), err
		}

		if b == 0 {
			break
		}

		data = append(data, b)
	}

	return string(data), nil
}

// Reclaim returns every frame held by the process. It is called once when
// the process terminates.
func (p *Process) Reclaim() int {
	return p.MM.ReclaimAll()
}

// BreakPointer returns the break pointer of the default area.
func (p *Process) BreakPointer() uint64 {
	sbrk, err := p.MM.BreakPointer(defaultArea)
	if err != nil {
		panic(err)
	}

	return sbrk
}

// ActiveSwap returns the swap store that receives evicted pages.
func (p *Process) ActiveSwap() *physmem.Storage {
	if len(p.Swaps) == 0 {
		return nil
	}

	return p.Swaps[p.MM.ActiveSwap()]
}
