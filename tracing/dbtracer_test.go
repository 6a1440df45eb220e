package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/pagingsim/datarecording"
	"github.com/sarchlab/pagingsim/mem/physmem"
	"github.com/sarchlab/pagingsim/mem/vm"
	"github.com/sarchlab/pagingsim/mem/vm/mmu"
	"github.com/sarchlab/pagingsim/sim"
	"go.uber.org/mock/gomock"
)

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		tracer   *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)

		recorder.EXPECT().CreateTable(MemEventTable, MemEventEntry{})
		tracer = NewDBTracer(recorder, sim.NewSequentialIDGenerator())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should insert one row per event", func() {
		recorder.EXPECT().InsertData(MemEventTable, MemEventEntry{
			ID:         "1",
			Seq:        1,
			Location:   "P1.MMU",
			PID:        1,
			Kind:       "evict",
			Page:       3,
			Frame:      2,
			SwapType:   1,
			SwapOffset: 9,
		})

		tracer.RecordEvent("P1.MMU", vm.MemEvent{
			PID:        1,
			Kind:       vm.EventEvict,
			Page:       3,
			Frame:      2,
			SwapType:   1,
			SwapOffset: 9,
		})
	})

	It("should flush on terminate", func() {
		recorder.EXPECT().Flush()

		tracer.Terminate()
	})

	It("should record the events of an MMU in order", func() {
		var kinds []string
		recorder.EXPECT().InsertData(MemEventTable, gomock.Any()).
			Do(func(_ string, entry any) {
				e := entry.(MemEventEntry)
				Expect(e.Seq).To(Equal(uint64(len(kinds) + 1)))
				Expect(e.Location).To(Equal("MMU"))
				kinds = append(kinds, e.Kind)
			}).
			Times(3)

		m := mmu.MakeBuilder().
			WithRAM(physmem.NewStorage("RAM", 256, 256)).
			Build("MMU")
		CollectMemEvents(m, tracer)

		_, err := m.Allocate(0, 0, 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(m.Write(0, 0, 0, 1)).To(Succeed())
		Expect(m.Free(0, 0)).To(Succeed())

		Expect(kinds).To(Equal([]string{"alloc", "first_touch", "free"}))
	})
})

var _ = Describe("LoadMemEvents", func() {
	var (
		path   string
		reader datarecording.DataReader
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "events")

		recorder := datarecording.New(path)
		tracer := NewDBTracer(recorder, sim.NewSequentialIDGenerator())
		tracer.RecordEvent("P1.MMU", vm.MemEvent{PID: 1, Kind: vm.EventAlloc,
			Region: 2, Addr: 0, Size: 256})
		tracer.RecordEvent("P2.MMU", vm.MemEvent{PID: 2, Kind: vm.EventFirstTouch,
			Page: 4, Frame: 1})
		tracer.RecordEvent("P1.MMU", vm.MemEvent{PID: 1, Kind: vm.EventEvict,
			Page: 3, Frame: 0, SwapType: 1, SwapOffset: 7})
		tracer.Terminate()
		Expect(recorder.Close()).To(Succeed())

		reader = datarecording.NewReader(path + ".sqlite3")
	})

	AfterEach(func() {
		Expect(reader.Close()).To(Succeed())
	})

	It("should read the events back in recording order", func() {
		entries, total, err := LoadMemEvents(context.Background(), reader,
			datarecording.QueryParams{})

		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(3))
		Expect(entries).To(HaveLen(3))
		Expect(entries[0].Location).To(Equal("P1.MMU"))
		Expect(entries[2].MemEvent()).To(Equal(vm.MemEvent{
			PID:        1,
			Kind:       vm.EventEvict,
			Page:       3,
			SwapType:   1,
			SwapOffset: 7,
		}))
	})

	It("should filter and limit", func() {
		entries, total, err := LoadMemEvents(context.Background(), reader,
			datarecording.QueryParams{
				Where: "PID = ?",
				Args:  []any{1},
				Limit: 1,
			})

		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(2))
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].MemEvent().Kind).To(Equal(vm.EventAlloc))
	})

	It("should fail on a database without events", func() {
		empty := datarecording.NewReader(
			filepath.Join(GinkgoT().TempDir(), "empty.sqlite3"))
		defer empty.Close()

		_, _, err := LoadMemEvents(context.Background(), empty,
			datarecording.QueryParams{})
		Expect(err).To(MatchError(ContainSubstring("mem_events")))
	})
})
