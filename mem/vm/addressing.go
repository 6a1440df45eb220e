package vm

import "fmt"

// An AddressSpec describes how virtual addresses are split into a page
// number and an in-page offset.
type AddressSpec struct {
	BusWidth     uint64
	Log2PageSize uint64
}

// DefaultAddressSpec is a 22-bit bus with 256-byte pages.
var DefaultAddressSpec = AddressSpec{BusWidth: 22, Log2PageSize: 8}

// Validate checks that the spec can be used to build a page table.
func (s AddressSpec) Validate() error {
	if s.BusWidth == 0 || s.BusWidth > 32 {
		return fmt.Errorf("bus width %d must be in [1, 32]", s.BusWidth)
	}

	if s.Log2PageSize == 0 || s.Log2PageSize >= s.BusWidth {
		return fmt.Errorf("log2 page size %d must be in [1, %d)",
			s.Log2PageSize, s.BusWidth)
	}

	return nil
}

// PageSize returns the number of bytes in a page.
func (s AddressSpec) PageSize() uint64 {
	return 1 << s.Log2PageSize
}

// AddressSpaceSize returns the number of addressable bytes.
func (s AddressSpec) AddressSpaceSize() uint64 {
	return 1 << s.BusWidth
}

// MaxPages returns the number of entries a page table needs.
func (s AddressSpec) MaxPages() uint64 {
	return s.AddressSpaceSize() >> s.Log2PageSize
}

// Translate splits a virtual address into its page number and offset. Bits
// above the bus width are ignored.
func (s AddressSpec) Translate(vAddr uint64) (pgn, offset uint64) {
	vAddr &= s.AddressSpaceSize() - 1
	offset = vAddr & (s.PageSize() - 1)
	pgn = vAddr >> s.Log2PageSize

	return pgn, offset
}

// PhysicalAddr returns the address of an offset in a frame.
func (s AddressSpec) PhysicalAddr(fpn, offset uint64) uint64 {
	return fpn<<s.Log2PageSize | offset
}

// AlignUp rounds a size up to a multiple of the page size.
func (s AddressSpec) AlignUp(size uint64) uint64 {
	mask := s.PageSize() - 1
	return (size + mask) &^ mask
}
