package schema

// Intent is an order instruction emitted by the engine.
type Intent struct {
	Type     EventType
	OrderID  OrderID
	Side     Side
	Price    Price
	Volume   Volume
	Lifespan Lifespan
}

// InsertIntent places a resting quote in the quoted instrument.
func InsertIntent(id OrderID, side Side, price Price, volume Volume, lifespan Lifespan) Intent {
	return Intent{
		Type:     EventInsertOrder,
		OrderID:  id,
		Side:     side,
		Price:    price,
		Volume:   volume,
		Lifespan: lifespan,
	}
}

// CancelIntent withdraws a resting quote.
func CancelIntent(id OrderID) Intent {
	return Intent{Type: EventCancelOrder, OrderID: id}
}

// HedgeIntent sends a marketable order in the reference instrument.
func HedgeIntent(id OrderID, side Side, price Price, volume Volume) Intent {
	return Intent{
		Type:    EventHedgeOrder,
		OrderID: id,
		Side:    side,
		Price:   price,
		Volume:  volume,
	}
}

// AmendIntent reduces the volume of a resting quote.
func AmendIntent(id OrderID, volume Volume) Intent {
	return Intent{Type: EventAmendOrder, OrderID: id, Volume: volume}
}
