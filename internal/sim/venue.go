package sim

import (
	"cmp"
	"slices"

	"autotrader/internal/schema"
	"autotrader/pkg/exception"
)

// VenueConfig controls the simulated venue.
type VenueConfig struct {
	// MakerFeeBps is charged on quote fills, negative for a rebate.
	MakerFeeBps int64
}

// Order is a quote resting on the simulated venue.
type Order struct {
	ID     schema.OrderID
	Side   schema.Side
	Price  schema.Price
	Volume schema.Volume
	Filled schema.Volume
	Fees   schema.Fee
}

func (o *Order) remaining() schema.Volume {
	return o.Volume - o.Filled
}

// Venue is a deterministic in-memory exchange. Intents are accepted through
// Send and the resulting notifications are collected for Drain, so the engine
// sees them only after it finished the event that caused them.
type Venue struct {
	cfg        VenueConfig
	tops       [2]schema.TopOfBook
	orders     map[schema.OrderID]*Order
	seen       map[schema.OrderID]struct{}
	failHedges int
	events     []schema.Event
}

// NewVenue creates an empty venue.
func NewVenue(cfg VenueConfig) *Venue {
	return &Venue{
		cfg:    cfg,
		orders: make(map[schema.OrderID]*Order),
		seen:   make(map[schema.OrderID]struct{}),
	}
}

// Send accepts an engine intent.
func (v *Venue) Send(in schema.Intent) error {
	switch in.Type {
	case schema.EventInsertOrder:
		v.insert(in)
	case schema.EventCancelOrder:
		if o, ok := v.orders[in.OrderID]; ok {
			v.close(o)
		}
	case schema.EventAmendOrder:
		v.amend(in)
	case schema.EventHedgeOrder:
		v.hedge(in)
	default:
		return exception.ErrOrderUnsupported
	}
	return nil
}

func (v *Venue) insert(in schema.Intent) {
	if _, dup := v.seen[in.OrderID]; dup || in.OrderID == 0 {
		v.events = append(v.events, schema.NewError(in.OrderID, "duplicate order id"))
		return
	}
	v.seen[in.OrderID] = struct{}{}
	if in.Volume <= 0 || in.Price <= 0 || !in.Side.Valid() {
		v.events = append(v.events, schema.NewError(in.OrderID, "invalid order"))
		return
	}
	o := &Order{ID: in.OrderID, Side: in.Side, Price: in.Price, Volume: in.Volume}
	v.orders[o.ID] = o
	v.match(o, v.tops[schema.InstrumentETF])
}

func (v *Venue) amend(in schema.Intent) {
	o, ok := v.orders[in.OrderID]
	if !ok {
		return
	}
	if in.Volume <= o.Filled {
		v.close(o)
		return
	}
	o.Volume = in.Volume
	v.events = append(v.events, schema.NewOrderStatus(o.ID, o.Filled, o.remaining(), o.Fees))
}

func (v *Venue) hedge(in schema.Intent) {
	if v.failHedges > 0 {
		v.failHedges--
		v.events = append(v.events, schema.NewHedgeFilled(in.OrderID, 0, 0))
		return
	}
	top := v.tops[schema.InstrumentFuture]
	price := top.AskPrice
	if in.Side == schema.SideSell {
		price = top.BidPrice
	}
	if price == 0 {
		price = in.Price
	}
	v.events = append(v.events, schema.NewHedgeFilled(in.OrderID, price, in.Volume))
}

// ApplyBook publishes a book update and fills resting quotes the new ETF book
// trades through.
func (v *Venue) ApplyBook(book schema.BookUpdate) {
	if !book.Instrument.Valid() {
		return
	}
	v.tops[book.Instrument] = book.Top()
	v.events = append(v.events, schema.NewBookUpdate(book))
	if book.Instrument != schema.InstrumentETF {
		return
	}
	for _, o := range v.Resting() {
		v.match(v.orders[o.ID], v.tops[schema.InstrumentETF])
	}
}

func (v *Venue) match(o *Order, top schema.TopOfBook) {
	switch {
	case o.Side == schema.SideSell && top.BidPrice != 0 && o.Price <= top.BidPrice:
		v.fill(o, min(o.remaining(), max(top.BidVolume, 1)))
	case o.Side == schema.SideBuy && top.AskPrice != 0 && o.Price >= top.AskPrice:
		v.fill(o, min(o.remaining(), max(top.AskVolume, 1)))
	}
}

// Fill executes volume of a resting quote. It reports false for unknown ids.
func (v *Venue) Fill(id schema.OrderID, volume schema.Volume) bool {
	o, ok := v.orders[id]
	if !ok || volume <= 0 {
		return false
	}
	v.fill(o, min(volume, o.remaining()))
	return true
}

func (v *Venue) fill(o *Order, volume schema.Volume) {
	if volume <= 0 {
		return
	}
	o.Filled += volume
	o.Fees += schema.Fee(int64(o.Price) * int64(volume) * v.cfg.MakerFeeBps / 10000)
	v.events = append(v.events, schema.NewOrderFilled(o.ID, o.Price, volume))
	v.events = append(v.events, schema.NewOrderStatus(o.ID, o.Filled, o.remaining(), o.Fees))
	if o.remaining() == 0 {
		delete(v.orders, o.ID)
	}
}

// Cancel withdraws a resting quote on the venue's own initiative.
func (v *Venue) Cancel(id schema.OrderID) bool {
	o, ok := v.orders[id]
	if !ok {
		return false
	}
	v.close(o)
	return true
}

func (v *Venue) close(o *Order) {
	delete(v.orders, o.ID)
	v.events = append(v.events, schema.NewOrderStatus(o.ID, o.Filled, 0, o.Fees))
}

// Reject drops an untouched resting quote with an error notice instead of a
// status. Quotes with fills are never rejected.
func (v *Venue) Reject(id schema.OrderID, message string) bool {
	o, ok := v.orders[id]
	if !ok || o.Filled > 0 {
		return false
	}
	delete(v.orders, id)
	v.events = append(v.events, schema.NewError(id, message))
	return true
}

// Notice sends an error that is not tied to an order.
func (v *Venue) Notice(message string) {
	v.events = append(v.events, schema.NewError(0, message))
}

// FailHedges makes the next n hedges report no execution.
func (v *Venue) FailHedges(n int) {
	v.failHedges += n
}

// Disconnect queues the end of the session.
func (v *Venue) Disconnect() {
	v.events = append(v.events, schema.NewDisconnect())
}

// Drain returns the pending notifications in order.
func (v *Venue) Drain() []schema.Event {
	out := v.events
	v.events = nil
	return out
}

// Pending reports whether notifications are waiting.
func (v *Venue) Pending() bool {
	return len(v.events) > 0
}

// Resting returns copies of the resting quotes ordered by id.
func (v *Venue) Resting() []Order {
	out := make([]Order, 0, len(v.orders))
	for _, o := range v.orders {
		out = append(out, *o)
	}
	slices.SortFunc(out, func(a, b Order) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
