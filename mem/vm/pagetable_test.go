package vm_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagingsim/mem/vm"
)

var _ = Describe("PageTable", func() {
	var table *vm.PageTable

	BeforeEach(func() {
		table = vm.NewPageTable(16)
	})

	It("should start with unmapped entries", func() {
		Expect(table.NumPages()).To(Equal(uint64(16)))
		Expect(table.Get(3)).To(Equal(vm.UnmappedPTE()))
		Expect(table.ResidentPages()).To(BeEmpty())
	})

	It("should set and get entries", func() {
		table.Set(2, vm.ResidentPTE(1, false))
		table.Set(5, vm.SwappedPTE(0, 7))
		table.Set(9, vm.ResidentPTE(0, true))

		Expect(table.Get(2).Frame).To(Equal(uint64(1)))
		Expect(table.Word(5)).To(Equal(vm.SwappedPTE(0, 7).Encode()))
		Expect(table.ResidentPages()).To(Equal([]uint64{2, 9}))
		Expect(table.SwappedPages()).To(Equal([]uint64{5}))
	})

	It("should panic on pages beyond the table", func() {
		Expect(func() { table.Get(16) }).To(Panic())
		Expect(func() { table.Set(16, vm.UnmappedPTE()) }).To(Panic())
	})

	It("should dump mapped entries in range", func() {
		table.Set(1, vm.ResidentPTE(4, false))
		table.Set(12, vm.SwappedPTE(0, 2))

		buf := new(bytes.Buffer)
		Expect(table.Dump(buf, 0, 8)).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("00000001: 80000004 resident fpn=4"))
		Expect(buf.String()).NotTo(ContainSubstring("swapped"))
	})
})
