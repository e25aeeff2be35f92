package schema

// EventType tags inbound events and outbound intents.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventBookUpdate
	EventTradeTicks
	EventOrderFilled
	EventOrderStatus
	EventHedgeFilled
	EventError
	EventDisconnect
	EventInsertOrder
	EventCancelOrder
	EventHedgeOrder
	EventAmendOrder
)

var eventTypeNames = [...]string{
	EventUnknown:     "unknown",
	EventBookUpdate:  "book_update",
	EventTradeTicks:  "trade_ticks",
	EventOrderFilled: "order_filled",
	EventOrderStatus: "order_status",
	EventHedgeFilled: "hedge_filled",
	EventError:       "error",
	EventDisconnect:  "disconnect",
	EventInsertOrder: "insert_order",
	EventCancelOrder: "cancel_order",
	EventHedgeOrder:  "hedge_order",
	EventAmendOrder:  "amend_order",
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return eventTypeNames[EventUnknown]
}

// Inbound reports whether the type is produced by the venue.
func (t EventType) Inbound() bool {
	return t >= EventBookUpdate && t <= EventDisconnect
}

// Outbound reports whether the type is an engine intent.
func (t EventType) Outbound() bool {
	return t >= EventInsertOrder && t <= EventAmendOrder
}

// Fill reports an execution of an order or a hedge.
type Fill struct {
	OrderID OrderID
	Price   Price
	Volume  Volume
}

// OrderStatus reports the cumulative state of a resting order.
type OrderStatus struct {
	OrderID         OrderID
	FillVolume      Volume
	RemainingVolume Volume
	Fees            Fee
}

// ErrorNotice is a venue error, tied to an order when OrderID is non-zero.
type ErrorNotice struct {
	OrderID OrderID
	Message string
}

// Event is a decoded inbound notification. Only the field matching Type is set.
type Event struct {
	Type   EventType
	Book   BookUpdate
	Fill   Fill
	Status OrderStatus
	Error  ErrorNotice
}

func NewBookUpdate(book BookUpdate) Event {
	return Event{Type: EventBookUpdate, Book: book}
}

func NewTradeTicks(ticks BookUpdate) Event {
	return Event{Type: EventTradeTicks, Book: ticks}
}

func NewOrderFilled(id OrderID, price Price, volume Volume) Event {
	return Event{Type: EventOrderFilled, Fill: Fill{OrderID: id, Price: price, Volume: volume}}
}

func NewOrderStatus(id OrderID, fill, remaining Volume, fees Fee) Event {
	return Event{Type: EventOrderStatus, Status: OrderStatus{
		OrderID:         id,
		FillVolume:      fill,
		RemainingVolume: remaining,
		Fees:            fees,
	}}
}

func NewHedgeFilled(id OrderID, price Price, volume Volume) Event {
	return Event{Type: EventHedgeFilled, Fill: Fill{OrderID: id, Price: price, Volume: volume}}
}

func NewError(id OrderID, message string) Event {
	return Event{Type: EventError, Error: ErrorNotice{OrderID: id, Message: message}}
}

func NewDisconnect() Event {
	return Event{Type: EventDisconnect}
}
