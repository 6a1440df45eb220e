package tracing

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sarchlab/pagingsim/mem/vm"
)

// EventCounter counts memory events per process and kind.
type EventCounter struct {
	lock   sync.Mutex
	counts map[vm.PID]map[vm.MemEventKind]uint64
}

// NewEventCounter creates an empty EventCounter.
func NewEventCounter() *EventCounter {
	return &EventCounter{
		counts: make(map[vm.PID]map[vm.MemEventKind]uint64),
	}
}

// RecordEvent counts the event.
func (c *EventCounter) RecordEvent(_ string, event vm.MemEvent) {
	c.lock.Lock()
	defer c.lock.Unlock()

	perPID, ok := c.counts[event.PID]
	if !ok {
		perPID = make(map[vm.MemEventKind]uint64)
		c.counts[event.PID] = perPID
	}

	perPID[event.Kind]++
}

// Count returns how many events of a kind a process reported.
func (c *EventCounter) Count(pid vm.PID, kind vm.MemEventKind) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[pid][kind]
}

// Total returns how many events of a kind all the processes reported.
func (c *EventCounter) Total(kind vm.MemEventKind) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	var total uint64
	for _, perPID := range c.counts {
		total += perPID[kind]
	}

	return total
}

// PIDs returns the processes that reported at least one event, sorted.
func (c *EventCounter) PIDs() []vm.PID {
	c.lock.Lock()
	defer c.lock.Unlock()

	pids := make([]vm.PID, 0, len(c.counts))
	for pid := range c.counts {
		pids = append(pids, pid)
	}

	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

	return pids
}

// Snapshot returns a copy of the counters keyed by PID and kind.
func (c *EventCounter) Snapshot() map[vm.PID]map[vm.MemEventKind]uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	s := make(map[vm.PID]map[vm.MemEventKind]uint64, len(c.counts))
	for pid, perPID := range c.counts {
		s[pid] = make(map[vm.MemEventKind]uint64, len(perPID))
		for kind, n := range perPID {
			s[pid][kind] = n
		}
	}

	return s
}

var reportedKinds = []vm.MemEventKind{
	vm.EventAlloc,
	vm.EventFree,
	vm.EventFirstTouch,
	vm.EventEvict,
	vm.EventSwapIn,
}

// Report writes one line of counters per process.
func (c *EventCounter) Report(w io.Writer) error {
	for _, pid := range c.PIDs() {
		_, err := fmt.Fprintf(w, "pid %d:", pid)
		if err != nil {
			return err
		}

		for _, kind := range reportedKinds {
			_, err = fmt.Fprintf(w, " %s=%d", kind, c.Count(pid, kind))
			if err != nil {
				return err
			}
		}

		_, err = fmt.Fprintln(w)
		if err != nil {
			return err
		}
	}

	return nil
}
