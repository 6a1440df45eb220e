package vm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagingsim/mem/vm"
)

var _ = Describe("AddressSpec", func() {
	spec := vm.DefaultAddressSpec

	It("should describe the default layout", func() {
		Expect(spec.Validate()).To(Succeed())
		Expect(spec.PageSize()).To(Equal(uint64(256)))
		Expect(spec.AddressSpaceSize()).To(Equal(uint64(4 << 20)))
		Expect(spec.MaxPages()).To(Equal(uint64(16384)))
	})

	It("should reject invalid layouts", func() {
		Expect(vm.AddressSpec{BusWidth: 0, Log2PageSize: 8}.Validate()).
			NotTo(Succeed())
		Expect(vm.AddressSpec{BusWidth: 8, Log2PageSize: 8}.Validate()).
			NotTo(Succeed())
		Expect(vm.AddressSpec{BusWidth: 40, Log2PageSize: 8}.Validate()).
			NotTo(Succeed())
	})

	It("should split an address into page number and offset", func() {
		pgn, offset := spec.Translate(300)

		Expect(pgn).To(Equal(uint64(1)))
		Expect(offset).To(Equal(uint64(44)))
	})

	It("should ignore bits above the bus width", func() {
		pgn, offset := spec.Translate(1<<22 | 0x1ff)

		Expect(pgn).To(Equal(uint64(1)))
		Expect(offset).To(Equal(uint64(0xff)))
	})

	It("should compose physical addresses", func() {
		Expect(spec.PhysicalAddr(3, 44)).To(Equal(uint64(3*256 + 44)))
	})

	It("should align sizes up to pages", func() {
		Expect(spec.AlignUp(0)).To(Equal(uint64(0)))
		Expect(spec.AlignUp(1)).To(Equal(uint64(256)))
		Expect(spec.AlignUp(256)).To(Equal(uint64(256)))
		Expect(spec.AlignUp(300)).To(Equal(uint64(512)))
	})
})
