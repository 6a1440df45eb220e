// Package internal provides the replacement bookkeeping of the MMU.
package internal

// A VictimQueue orders resident pages by the time they were brought in. The
// front is the oldest page and is the next victim.
type VictimQueue struct {
	pages []uint64
}

// NewVictimQueue creates an empty queue.
func NewVictimQueue() *VictimQueue {
	return &VictimQueue{}
}

// Len returns the number of pages in the queue.
func (q *VictimQueue) Len() int {
	return len(q.pages)
}

// PushBack records pgn as the newest resident page.
func (q *VictimQueue) PushBack(pgn uint64) {
	q.pages = append(q.pages, pgn)
}

// Front returns the oldest page without removing it.
func (q *VictimQueue) Front() (pgn uint64, ok bool) {
	if len(q.pages) == 0 {
		return 0, false
	}

	return q.pages[0], true
}

// PopFront removes and returns the oldest page.
func (q *VictimQueue) PopFront() (pgn uint64, ok bool) {
	pgn, ok = q.Front()
	if !ok {
		return 0, false
	}

	q.pages = q.pages[1:]

	return pgn, true
}

// Pages returns the queued pages, oldest first.
func (q *VictimQueue) Pages() []uint64 {
	list := make([]uint64, len(q.pages))
	copy(list, q.pages)

	return list
}

// Clear empties the queue.
func (q *VictimQueue) Clear() {
	q.pages = nil
}
