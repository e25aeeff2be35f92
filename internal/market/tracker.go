package market

import (
	"autotrader/internal/schema"
	"autotrader/pkg/exception"
)

// Opportunity is the per-side quoting signal.
type Opportunity struct {
	Sell bool
	Buy  bool
}

// Tracker keeps the latest top of book for the reference and quoted instruments.
type Tracker struct {
	tops        [2]schema.TopOfBook
	sequences   [2]uint32
	seen        [2]bool
	regressions uint64
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Apply stores the update unconditionally. Out-of-order sequences are
// accepted and counted.
func (t *Tracker) Apply(book schema.BookUpdate) error {
	if !book.Instrument.Valid() {
		return exception.ErrUnknownInstrument
	}

	i := book.Instrument
	if t.seen[i] && book.Sequence <= t.sequences[i] {
		t.regressions++
	}
	t.tops[i] = book.Top()
	t.sequences[i] = book.Sequence
	t.seen[i] = true
	return nil
}

// Top returns the stored top of book of an instrument.
func (t *Tracker) Top(inst schema.Instrument) schema.TopOfBook {
	if !inst.Valid() {
		return schema.TopOfBook{}
	}
	return t.tops[inst]
}

// Sequence returns the last sequence seen for an instrument.
func (t *Tracker) Sequence(inst schema.Instrument) uint32 {
	if !inst.Valid() {
		return 0
	}
	return t.sequences[inst]
}

// Regressions counts updates whose sequence did not advance.
func (t *Tracker) Regressions() uint64 {
	return t.regressions
}

// Opportunity compares the reference book against the quoted book.
// An empty price on either side of the comparison yields no signal, so a
// reference ask of zero (no book yet) never reads as "cheaper than the ETF".
func (t *Tracker) Opportunity() Opportunity {
	ref := t.tops[schema.InstrumentFuture]
	quoted := t.tops[schema.InstrumentETF]

	return Opportunity{
		Sell: ref.AskPrice != 0 && quoted.AskPrice != 0 && ref.AskPrice < quoted.AskPrice,
		Buy:  ref.BidPrice != 0 && quoted.BidPrice != 0 && ref.BidPrice > quoted.BidPrice,
	}
}
