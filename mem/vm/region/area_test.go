package region_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagingsim/mem/vm"
	"github.com/sarchlab/pagingsim/mem/vm/region"
)

var _ = Describe("Area", func() {
	var (
		spec vm.AddressSpec
		area *region.Area
	)

	BeforeEach(func() {
		spec = vm.DefaultAddressSpec
		area = region.NewArea(0, 0, 4096)
	})

	Context("grow", func() {
		It("should grow by whole pages at the break pointer", func() {
			r, err := area.Grow(300, spec)

			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(region.Region{Start: 0, End: 512}))
			Expect(area.End).To(Equal(uint64(512)))
			Expect(area.Sbrk).To(Equal(uint64(512)))

			r, err = area.Grow(1, spec)

			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(region.Region{Start: 512, End: 768}))
		})

		It("should fail if the candidate starts below the area end", func() {
			area.End = 1024

			_, err := area.Grow(256, spec)

			Expect(err).To(MatchError(vm.ErrOverlap))
			Expect(area.Sbrk).To(Equal(uint64(0)))
		})

		It("should fail beyond the limit", func() {
			_, err := area.Grow(4097, spec)

			Expect(err).To(MatchError(vm.ErrOutOfSpace))
			Expect(area.End).To(Equal(uint64(0)))
		})

		It("should fail to grow by nothing", func() {
			_, err := area.Grow(0, spec)

			Expect(err).To(MatchError(vm.ErrOutOfSpace))
		})
	})

	Context("free list", func() {
		BeforeEach(func() {
			_, err := area.Grow(1024, spec)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should put freed regions at the head", func() {
			Expect(area.PutFree(region.Region{Start: 0, End: 100})).To(Succeed())
			Expect(area.PutFree(region.Region{Start: 500, End: 600})).To(Succeed())

			Expect(area.FreeRegions()).To(Equal([]region.Region{
				{Start: 500, End: 600},
				{Start: 0, End: 100},
			}))
			Expect(area.FreeBytes()).To(Equal(uint64(200)))
		})

		It("should reject empty regions", func() {
			err := area.PutFree(region.Region{})

			Expect(err).To(MatchError(vm.ErrInvalidRegion))
		})

		It("should reject regions outside the area", func() {
			err := area.PutFree(region.Region{Start: 1000, End: 2000})

			Expect(err).To(MatchError(vm.ErrInvalidArea))
		})

		It("should not merge adjacent regions by default", func() {
			Expect(area.PutFree(region.Region{Start: 0, End: 100})).To(Succeed())
			Expect(area.PutFree(region.Region{Start: 100, End: 200})).To(Succeed())

			Expect(area.FreeRegions()).To(HaveLen(2))
		})

		It("should carve the first region that fits", func() {
			Expect(area.PutFree(region.Region{Start: 0, End: 100})).To(Succeed())
			Expect(area.PutFree(region.Region{Start: 200, End: 250})).To(Succeed())

			r, found := area.FindFree(60)

			Expect(found).To(BeTrue())
			Expect(r).To(Equal(region.Region{Start: 0, End: 60}))
			Expect(area.FreeRegions()).To(Equal([]region.Region{
				{Start: 200, End: 250},
				{Start: 60, End: 100},
			}))
		})

		It("should remove a region that is used up", func() {
			Expect(area.PutFree(region.Region{Start: 200, End: 250})).To(Succeed())

			r, found := area.FindFree(50)

			Expect(found).To(BeTrue())
			Expect(r).To(Equal(region.Region{Start: 200, End: 250}))
			Expect(area.FreeRegions()).To(BeEmpty())
		})

		It("should report a miss", func() {
			Expect(area.PutFree(region.Region{Start: 200, End: 250})).To(Succeed())

			_, found := area.FindFree(51)

			Expect(found).To(BeFalse())
		})

		It("should dump the free list", func() {
			Expect(area.PutFree(region.Region{Start: 0, End: 100})).To(Succeed())

			buf := new(bytes.Buffer)
			Expect(area.Dump(buf)).To(Succeed())

			Expect(buf.String()).To(ContainSubstring("area 0 [0, 1024) sbrk=1024"))
			Expect(buf.String()).To(ContainSubstring("free [0, 100)"))
		})
	})
})
