package vm

import (
	"log/slog"

	"github.com/sarchlab/pagingsim/sim"
)

// MemEventKind names what happened in the memory system.
type MemEventKind string

// The kinds of memory events.
const (
	EventAlloc      MemEventKind = "alloc"
	EventFree       MemEventKind = "free"
	EventFirstTouch MemEventKind = "first_touch"
	EventEvict      MemEventKind = "evict"
	EventSwapIn     MemEventKind = "swap_in"
	EventReclaim    MemEventKind = "reclaim"
)

// Hook positions at which memory events are reported. The hook item is a
// MemEvent.
var (
	HookPosAlloc     = &sim.HookPos{Name: "MemAlloc"}
	HookPosFree      = &sim.HookPos{Name: "MemFree"}
	HookPosPageFault = &sim.HookPos{Name: "MemPageFault"}
	HookPosPageEvict = &sim.HookPos{Name: "MemPageEvict"}
	HookPosReclaim   = &sim.HookPos{Name: "MemReclaim"}
)

// A MemEvent describes one change of the memory state of a process. Fields
// that do not apply to the kind are zero.
type MemEvent struct {
	PID        PID
	Kind       MemEventKind
	Page       uint64
	Frame      uint64
	SwapType   uint8
	SwapOffset uint64
	Region     int
	Addr       uint64
	Size       uint64
}

// LogValue renders the fields that matter for the kind of event.
func (e MemEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Uint64("pid", uint64(e.PID)),
		slog.String("kind", string(e.Kind)),
	}

	switch e.Kind {
	case EventAlloc, EventFree:
		attrs = append(attrs,
			slog.Int("region", e.Region),
			slog.Uint64("addr", e.Addr),
			slog.Uint64("size", e.Size))
	case EventFirstTouch:
		attrs = append(attrs,
			slog.Uint64("page", e.Page),
			slog.Uint64("frame", e.Frame))
	case EventEvict, EventSwapIn:
		attrs = append(attrs,
			slog.Uint64("page", e.Page),
			slog.Uint64("frame", e.Frame),
			slog.Int("swap_type", int(e.SwapType)),
			slog.Uint64("swap_offset", e.SwapOffset))
	case EventReclaim:
		attrs = append(attrs, slog.Uint64("pages", e.Size))
	}

	return slog.GroupValue(attrs...)
}
