package og

import (
	"cmp"
	"slices"

	"autotrader/internal/schema"
	"autotrader/pkg/exception"
)

// Release is the position correction owed when a quote closes.
type Release struct {
	Order    Order
	Unfilled schema.Volume
}

// Ledger tracks every open quote and the active quote of each side.
//
// Lookups go through the id map, so fills for a quote that already left its
// slot are still matched.
type Ledger struct {
	orders map[schema.OrderID]*Order
	slots  [2]schema.OrderID
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{orders: make(map[schema.OrderID]*Order)}
}

// Insert records a new quote and takes the side slot.
func (l *Ledger) Insert(id schema.OrderID, side schema.Side, price schema.Price, volume schema.Volume) (*Order, error) {
	if id == 0 {
		return nil, exception.ErrOrderZeroID
	}
	if !side.Valid() {
		return nil, exception.ErrInvalidArgument
	}
	if _, ok := l.orders[id]; ok {
		return nil, exception.ErrOrderDuplicate
	}
	if l.slots[side] != 0 {
		return nil, exception.ErrOrderSideOccupied
	}
	o := newOrder(id, side, price, volume)
	l.orders[id] = o
	l.slots[side] = id
	return o, nil
}

// Active returns the quote holding the side slot.
func (l *Ledger) Active(side schema.Side) (*Order, bool) {
	if !side.Valid() {
		return nil, false
	}
	id := l.slots[side]
	if id == 0 {
		return nil, false
	}
	o, ok := l.orders[id]
	return o, ok
}

// Slot returns the id holding the side slot, zero when empty.
func (l *Ledger) Slot(side schema.Side) schema.OrderID {
	if !side.Valid() {
		return 0
	}
	return l.slots[side]
}

// ClearSlot frees the side slot for a quote being cancelled. The quote stays
// in the ledger until the venue confirms it closed.
func (l *Ledger) ClearSlot(side schema.Side) schema.OrderID {
	if !side.Valid() {
		return 0
	}
	id := l.slots[side]
	if id == 0 {
		return 0
	}
	if o, ok := l.orders[id]; ok {
		o.Cancelling = true
	}
	l.slots[side] = 0
	return id
}

// Order returns a known quote.
func (l *Ledger) Order(id schema.OrderID) (*Order, bool) {
	o, ok := l.orders[id]
	return o, ok
}

// Known reports whether id is an open quote.
func (l *Ledger) Known(id schema.OrderID) bool {
	_, ok := l.orders[id]
	return id != 0 && ok
}

// ApplyFill records a fill against a known quote.
func (l *Ledger) ApplyFill(fill schema.Fill) (*Order, error) {
	o, ok := l.orders[fill.OrderID]
	if !ok {
		return nil, exception.ErrOrderUnknown
	}
	if err := o.applyFill(fill.Volume); err != nil {
		return o, err
	}
	return o, nil
}

// ApplyStatus updates a known quote. When nothing remains the quote is
// removed and the returned release carries the unfilled reservation.
func (l *Ledger) ApplyStatus(status schema.OrderStatus) (Release, bool, error) {
	o, ok := l.orders[status.OrderID]
	if !ok {
		return Release{}, false, exception.ErrOrderUnknown
	}
	if err := o.applyStatus(status); err != nil {
		return Release{}, false, err
	}
	if o.State != OrderStateClosed {
		return Release{}, false, nil
	}

	delete(l.orders, o.ID)
	if l.slots[o.Side] == o.ID {
		l.slots[o.Side] = 0
	}
	return Release{Order: *o, Unfilled: o.unreserved()}, true, nil
}

// Close treats an order-level error as a cancel with nothing filled.
func (l *Ledger) Close(id schema.OrderID) (Release, bool, error) {
	return l.ApplyStatus(schema.OrderStatus{OrderID: id})
}

// Open returns the reserved volume not yet filled across the open quotes of side.
func (l *Ledger) Open(side schema.Side) schema.Volume {
	var total schema.Volume
	for _, o := range l.orders {
		if o.Side == side {
			total += max(o.unreserved(), 0)
		}
	}
	return total
}

// Len returns the number of open quotes.
func (l *Ledger) Len() int {
	return len(l.orders)
}

// Orders returns copies of the open quotes ordered by id.
func (l *Ledger) Orders() []Order {
	out := make([]Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, *o)
	}
	slices.SortFunc(out, func(a, b Order) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
