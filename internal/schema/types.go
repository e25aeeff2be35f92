package schema

import (
	"github.com/shopspring/decimal"
)

// Venue contract limits.
const (
	MaximumAsk    Price = 2147483647
	MinimumBid    Price = 1
	TopLevelCount       = 5
)

// Price is an integer number of cents.
type Price int64

// Decimal converts cents into a dollar amount.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -2)
}

// Volume is a number of lots.
type Volume int64

// Fee is an integer number of cents, negative for rebates.
type Fee int64

// OrderID is the engine-assigned client order id. Zero means no order.
type OrderID uint32

// Instrument tags market data and hedge orders.
type Instrument uint8

const (
	// InstrumentFuture is the reference instrument.
	InstrumentFuture Instrument = iota
	// InstrumentETF is the quoted instrument.
	InstrumentETF
)

func (i Instrument) Valid() bool {
	return i == InstrumentFuture || i == InstrumentETF
}

func (i Instrument) String() string {
	switch i {
	case InstrumentFuture:
		return "Future"
	case InstrumentETF:
		return "ETF"
	default:
		return "Unknown"
	}
}

// Side describes order direction.
type Side uint8

const (
	SideSell Side = iota
	SideBuy
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Sign returns +1 for buys and -1 for sells.
func (s Side) Sign() int64 {
	if s == SideBuy {
		return 1
	}
	return -1
}

func (s Side) Valid() bool {
	return s == SideSell || s == SideBuy
}

func (s Side) String() string {
	if s == SideBuy {
		return "Buy"
	}
	return "Sell"
}

// Lifespan describes order time-in-force.
type Lifespan uint8

const (
	LifespanFillAndKill Lifespan = iota
	LifespanGoodForDay
)

func (l Lifespan) String() string {
	if l == LifespanFillAndKill {
		return "FAK"
	}
	return "GFD"
}

// TopOfBook is the best level on each side of one instrument.
type TopOfBook struct {
	AskPrice  Price
	AskVolume Volume
	BidPrice  Price
	BidVolume Volume
}

// BookUpdate carries the five best levels of one instrument.
type BookUpdate struct {
	Instrument Instrument
	Sequence   uint32
	AskPrices  [TopLevelCount]Price
	AskVolumes [TopLevelCount]Volume
	BidPrices  [TopLevelCount]Price
	BidVolumes [TopLevelCount]Volume
}

// Top returns the best bid and ask of the update.
func (b BookUpdate) Top() TopOfBook {
	return TopOfBook{
		AskPrice:  b.AskPrices[0],
		AskVolume: b.AskVolumes[0],
		BidPrice:  b.BidPrices[0],
		BidVolume: b.BidVolumes[0],
	}
}
