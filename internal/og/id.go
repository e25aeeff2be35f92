package og

import "autotrader/internal/schema"

// IDAllocator hands out strictly increasing client order ids, never zero.
type IDAllocator struct {
	next schema.OrderID
}

// NewIDAllocator returns an allocator whose first id is start, or 1 when start is zero.
func NewIDAllocator(start schema.OrderID) *IDAllocator {
	if start == 0 {
		start = 1
	}
	return &IDAllocator{next: start}
}

// Next returns the next id. It reports false once the id space is exhausted.
func (a *IDAllocator) Next() (schema.OrderID, bool) {
	if a.next == 0 {
		return 0, false
	}
	id := a.next
	a.next++
	return id, true
}

// Peek returns the id the next call will hand out.
func (a *IDAllocator) Peek() schema.OrderID {
	return a.next
}
