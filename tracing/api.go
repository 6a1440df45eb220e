// Package tracing collects the memory events reported through hooks.
package tracing

import (
	"github.com/sarchlab/pagingsim/mem/vm"
	"github.com/sarchlab/pagingsim/sim"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	sim.Named
	sim.Hookable
}

// A MemTracer consumes memory events. Implementations must be safe for
// concurrent use because every process reports from its own goroutine.
type MemTracer interface {
	RecordEvent(domain string, event vm.MemEvent)
}

// CollectMemEvents registers a hook on the domain that forwards every memory
// event to the tracer.
func CollectMemEvents(domain NamedHookable, tracer MemTracer) {
	domain.AcceptHook(NewMemEventHook(tracer))
}

// NewMemEventHook creates a hook that forwards memory events to the tracer
// and ignores any other hook item.
func NewMemEventHook(tracer MemTracer) sim.Hook {
	return &memEventHook{tracer: tracer}
}

type memEventHook struct {
	tracer MemTracer
}

func (h *memEventHook) Func(ctx sim.HookCtx) {
	event, ok := ctx.Item.(vm.MemEvent)
	if !ok {
		return
	}

	where := ""
	if ctx.Domain != nil {
		where = ctx.Domain.Name()
	}

	h.tracer.RecordEvent(where, event)
}
