package og

import (
	"autotrader/internal/schema"
	"autotrader/pkg/exception"
)

// OrderState tracks the lifecycle of a quote.
type OrderState uint8

const (
	OrderStatePending OrderState = iota
	OrderStateConfirmed
	OrderStatePartial
	OrderStateClosed
)

func (s OrderState) String() string {
	switch s {
	case OrderStatePending:
		return "PENDING"
	case OrderStateConfirmed:
		return "CONFIRMED"
	case OrderStatePartial:
		return "PARTIAL"
	case OrderStateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Order holds the ledger's view of a quote.
type Order struct {
	ID        schema.OrderID
	Side      schema.Side
	Price     schema.Price
	Reserved  schema.Volume
	Filled    schema.Volume
	Remaining schema.Volume
	Fees      schema.Fee
	State     OrderState
	// Cancelling is set once the quote has left its side slot.
	Cancelling bool
}

func newOrder(id schema.OrderID, side schema.Side, price schema.Price, volume schema.Volume) *Order {
	return &Order{
		ID:        id,
		Side:      side,
		Price:     price,
		Reserved:  volume,
		Remaining: volume,
		State:     OrderStatePending,
	}
}

// applyFill records an execution. Fills are honoured until the quote closes.
func (o *Order) applyFill(volume schema.Volume) error {
	if o.State == OrderStateClosed {
		return exception.ErrOrderClosed
	}
	if volume <= 0 {
		return exception.ErrOrderInvalidFill
	}
	o.Filled += volume
	o.Remaining = max(o.Reserved-o.Filled, 0)
	o.State = OrderStatePartial
	return nil
}

// applyStatus takes the venue's cumulative view of the quote.
func (o *Order) applyStatus(status schema.OrderStatus) error {
	if o.State == OrderStateClosed {
		return exception.ErrOrderClosed
	}
	o.Filled = status.FillVolume
	o.Remaining = status.RemainingVolume
	o.Fees = status.Fees

	switch {
	case status.RemainingVolume == 0:
		o.State = OrderStateClosed
	case status.FillVolume > 0:
		o.State = OrderStatePartial
	default:
		o.State = OrderStateConfirmed
	}
	return nil
}

// unreserved is the part of the reservation that never traded.
func (o *Order) unreserved() schema.Volume {
	return o.Reserved - o.Filled
}
