package market

import (
	"testing"

	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book(inst schema.Instrument, seq uint32, ask, bid schema.Price) schema.BookUpdate {
	b := schema.BookUpdate{Instrument: inst, Sequence: seq}
	b.AskPrices[0], b.AskVolumes[0] = ask, 10
	b.BidPrices[0], b.BidVolumes[0] = bid, 10
	return b
}

func TestOpportunity(t *testing.T) {
	testCases := []struct {
		desc     string
		ref      schema.BookUpdate
		quoted   schema.BookUpdate
		expected Opportunity
	}{
		{
			"both sides",
			book(schema.InstrumentFuture, 1, 10000, 9900),
			book(schema.InstrumentETF, 1, 10200, 9700),
			Opportunity{Sell: true, Buy: true},
		},
		{
			"equal prices give nothing",
			book(schema.InstrumentFuture, 1, 10000, 9900),
			book(schema.InstrumentETF, 1, 10000, 9900),
			Opportunity{},
		},
		{
			"quoted cheap",
			book(schema.InstrumentFuture, 1, 10000, 9900),
			book(schema.InstrumentETF, 1, 9950, 9800),
			Opportunity{Buy: true},
		},
		{
			"empty reference ask",
			book(schema.InstrumentFuture, 1, 0, 9900),
			book(schema.InstrumentETF, 1, 10200, 9700),
			Opportunity{Buy: true},
		},
		{
			"empty quoted bid",
			book(schema.InstrumentFuture, 1, 10000, 9900),
			book(schema.InstrumentETF, 1, 10200, 0),
			Opportunity{Sell: true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			tr := NewTracker()
			require.NoError(t, tr.Apply(tc.ref))
			require.NoError(t, tr.Apply(tc.quoted))
			assert.Equal(t, tc.expected, tr.Opportunity())
		})
	}
}

// A plain price comparison would report a sell here (0 < 10200). An unknown
// reference price is deliberately treated as no signal.
func TestNoReferenceNoOpportunity(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Apply(book(schema.InstrumentETF, 1, 10200, 9700)))
	assert.Equal(t, Opportunity{}, tr.Opportunity())

	require.NoError(t, tr.Apply(book(schema.InstrumentFuture, 1, 0, 0)))
	assert.Equal(t, Opportunity{}, tr.Opportunity())

	require.NoError(t, tr.Apply(book(schema.InstrumentFuture, 2, 10000, 0)))
	assert.Equal(t, Opportunity{Sell: true}, tr.Opportunity())
}

func TestApplyOverwritesAndCountsRegressions(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Apply(book(schema.InstrumentFuture, 5, 10000, 9900)))
	require.NoError(t, tr.Apply(book(schema.InstrumentFuture, 3, 10100, 9800)))

	top := tr.Top(schema.InstrumentFuture)
	assert.Equal(t, schema.Price(10100), top.AskPrice)
	assert.Equal(t, schema.Price(9800), top.BidPrice)
	assert.Equal(t, uint32(3), tr.Sequence(schema.InstrumentFuture))
	assert.Equal(t, uint64(1), tr.Regressions())

	require.NoError(t, tr.Apply(book(schema.InstrumentETF, 1, 10200, 9700)))
	assert.Equal(t, uint64(1), tr.Regressions())
}

func TestApplyRejectsUnknownInstrument(t *testing.T) {
	tr := NewTracker()
	err := tr.Apply(book(schema.Instrument(7), 1, 1, 1))
	assert.Equal(t, exception.ErrUnknownInstrument, err)
	assert.Equal(t, schema.TopOfBook{}, tr.Top(schema.Instrument(7)))
}
