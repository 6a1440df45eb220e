package vm

import "fmt"

// PTE word layout.
const (
	PTEPresentMask  uint32 = 1 << 31
	PTESwappedMask  uint32 = 1 << 30
	PTEReservedMask uint32 = 1 << 29
	PTEDirtyMask    uint32 = 1 << 28

	PTEFrameMask uint32 = 1<<13 - 1

	PTESwapTypeMask    uint32 = 1<<5 - 1
	PTESwapOffsetShift        = 5
	PTESwapOffsetMask  uint32 = (1<<21 - 1) << PTESwapOffsetShift
)

// Limits of the fields that can be packed into a PTE word.
const (
	MaxFrames      = 1 << 13
	MaxSwapTypes   = 1 << 5
	MaxSwapOffsets = 1 << 21
)

// PTEState tells where the content of a virtual page lives.
type PTEState int

// The states of a page table entry.
const (
	PTEUnmapped PTEState = iota
	PTEResident
	PTESwapped
)

func (s PTEState) String() string {
	switch s {
	case PTEUnmapped:
		return "unmapped"
	case PTEResident:
		return "resident"
	case PTESwapped:
		return "swapped"
	default:
		return fmt.Sprintf("PTEState(%d)", int(s))
	}
}

// A PTE is a page table entry. Only the fields that belong to the state are
// meaningful: Frame and Dirty for resident pages, SwapType and SwapOffset for
// swapped pages.
type PTE struct {
	State      PTEState
	Frame      uint64
	Dirty      bool
	SwapType   uint8
	SwapOffset uint64
}

// UnmappedPTE returns the entry of a page that was never touched.
func UnmappedPTE() PTE {
	return PTE{State: PTEUnmapped}
}

// ResidentPTE returns the entry of a page held in the given RAM frame.
func ResidentPTE(frame uint64, dirty bool) PTE {
	return PTE{State: PTEResident, Frame: frame, Dirty: dirty}
}

// SwappedPTE returns the entry of a page held in a swap slot.
func SwappedPTE(swapType uint8, swapOffset uint64) PTE {
	return PTE{State: PTESwapped, SwapType: swapType, SwapOffset: swapOffset}
}

// Present tells if the page is resident in RAM.
func (p PTE) Present() bool {
	return p.State == PTEResident
}

// Swapped tells if the page lives in a swap store.
func (p PTE) Swapped() bool {
	return p.State == PTESwapped
}

// Encode packs the entry into a 32-bit word. Fields wider than their bit
// range are truncated, so the frame number must be below MaxFrames and the
// swap offset below MaxSwapOffsets.
func (p PTE) Encode() uint32 {
	var word uint32

	switch p.State {
	case PTEResident:
		word = PTEPresentMask | uint32(p.Frame)&PTEFrameMask
		if p.Dirty {
			word |= PTEDirtyMask
		}
	case PTESwapped:
		word = PTESwappedMask |
			uint32(p.SwapType)&PTESwapTypeMask |
			uint32(p.SwapOffset)<<PTESwapOffsetShift&PTESwapOffsetMask
	}

	return word
}

// DecodePTE unpacks a 32-bit word. A word with both PRESENT and SWAPPED set
// is decoded as resident.
func DecodePTE(word uint32) PTE {
	switch {
	case word&PTEPresentMask != 0:
		return ResidentPTE(
			uint64(word&PTEFrameMask),
			word&PTEDirtyMask != 0)
	case word&PTESwappedMask != 0:
		return SwappedPTE(
			uint8(word&PTESwapTypeMask),
			uint64((word&PTESwapOffsetMask)>>PTESwapOffsetShift))
	default:
		return UnmappedPTE()
	}
}

func (p PTE) String() string {
	switch p.State {
	case PTEResident:
		if p.Dirty {
			return fmt.Sprintf("resident fpn=%d dirty", p.Frame)
		}

		return fmt.Sprintf("resident fpn=%d", p.Frame)
	case PTESwapped:
		return fmt.Sprintf("swapped type=%d offset=%d",
			p.SwapType, p.SwapOffset)
	default:
		return p.State.String()
	}
}
