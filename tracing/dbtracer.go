package tracing

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/sarchlab/pagingsim/datarecording"
	"github.com/sarchlab/pagingsim/mem/vm"
	"github.com/sarchlab/pagingsim/sim"
)

// MemEventTable is the table that DBTracer writes to.
const MemEventTable = "mem_events"

// MemEventEntry is one row of the memory event table.
type MemEventEntry struct {
	ID         string
	Seq        uint64
	Location   string
	PID        uint32
	Kind       string
	Page       uint64
	Frame      uint64
	SwapType   uint8
	SwapOffset uint64
	Region     int
	Addr       uint64
	Size       uint64
}

// MemEvent converts the row back into the event it was recorded from.
func (e MemEventEntry) MemEvent() vm.MemEvent {
	return vm.MemEvent{
		PID:        vm.PID(e.PID),
		Kind:       vm.MemEventKind(e.Kind),
		Page:       e.Page,
		Frame:      e.Frame,
		SwapType:   e.SwapType,
		SwapOffset: e.SwapOffset,
		Region:     e.Region,
		Addr:       e.Addr,
		Size:       e.Size,
	}
}

// DBTracer stores memory events into a database.
type DBTracer struct {
	backend     datarecording.DataRecorder
	idGenerator sim.IDGenerator
	seq         atomic.Uint64
}

// NewDBTracer creates a DBTracer and the table it writes to.
func NewDBTracer(
	backend datarecording.DataRecorder,
	idGenerator sim.IDGenerator,
) *DBTracer {
	backend.CreateTable(MemEventTable, MemEventEntry{})

	return &DBTracer{
		backend:     backend,
		idGenerator: idGenerator,
	}
}

// RecordEvent buffers the event as a row.
func (t *DBTracer) RecordEvent(domain string, event vm.MemEvent) {
	t.backend.InsertData(MemEventTable, MemEventEntry{
		ID:         t.idGenerator.Generate(),
		Seq:        t.seq.Add(1),
		Location:   domain,
		PID:        uint32(event.PID),
		Kind:       string(event.Kind),
		Page:       event.Page,
		Frame:      event.Frame,
		SwapType:   event.SwapType,
		SwapOffset: event.SwapOffset,
		Region:     event.Region,
		Addr:       event.Addr,
		Size:       event.Size,
	})
}

// Terminate writes all the buffered rows.
func (t *DBTracer) Terminate() {
	t.backend.Flush()
}

// LoadMemEvents reads the rows written by a DBTracer. Rows come back in
// recording order unless params.OrderBy says otherwise. The returned count is
// the number of rows matching params.Where, regardless of params.Limit.
func LoadMemEvents(
	ctx context.Context,
	reader datarecording.DataReader,
	params datarecording.QueryParams,
) ([]MemEventEntry, int, error) {
	tables, err := reader.ListTables(ctx)
	if err != nil {
		return nil, 0, err
	}

	if !slices.Contains(tables, MemEventTable) {
		return nil, 0, fmt.Errorf("table %s not found", MemEventTable)
	}

	reader.MapTable(MemEventTable, MemEventEntry{})

	if params.OrderBy == "" {
		params.OrderBy = "Seq"
	}

	rows, total, err := reader.Query(ctx, MemEventTable, params)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]MemEventEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *row.(*MemEventEntry))
	}

	return entries, total, nil
}
