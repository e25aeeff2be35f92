package hedge

import (
	"testing"

	"autotrader/internal/risk"
	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnQuoteFill(t *testing.T) {
	testCases := []struct {
		desc   string
		filled schema.Side
		side   schema.Side
		price  schema.Price
	}{
		{"sell fill hedged with buy", schema.SideSell, schema.SideBuy, 2147483600},
		{"buy fill hedged with sell", schema.SideBuy, schema.SideSell, 100},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			m := NewManager(risk.DefaultConfig())
			in, err := m.OnQuoteFill(7, 3, tc.filled, 4)
			require.NoError(t, err)
			assert.Equal(t, schema.HedgeIntent(7, tc.side, tc.price, 4), in)
			assert.True(t, m.Known(7))
			assert.Equal(t, schema.OrderID(3), m.Orders()[0].QuoteID)
		})
	}
}

func TestOnQuoteFillRejects(t *testing.T) {
	m := NewManager(risk.DefaultConfig())
	_, err := m.OnQuoteFill(0, 1, schema.SideSell, 10)
	assert.Equal(t, exception.ErrOrderZeroID, err)

	_, err = m.OnQuoteFill(1, 1, schema.SideSell, 0)
	assert.Equal(t, exception.ErrOrderInvalidFill, err)

	_, err = m.OnQuoteFill(2, 1, schema.SideSell, 10)
	require.NoError(t, err)
	_, err = m.OnQuoteFill(2, 1, schema.SideSell, 10)
	assert.Equal(t, exception.ErrHedgeDuplicate, err)
}

func TestOnHedgeFill(t *testing.T) {
	m := NewManager(risk.DefaultConfig())
	_, err := m.OnQuoteFill(2, 1, schema.SideSell, 10)
	require.NoError(t, err)
	_, err = m.OnQuoteFill(4, 3, schema.SideBuy, 6)
	require.NoError(t, err)

	res, err := m.OnHedgeFill(schema.Fill{OrderID: 2, Price: 10000, Volume: 10})
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Equal(t, schema.Volume(10), res.Delta)

	res, err = m.OnHedgeFill(schema.Fill{OrderID: 4, Price: 9900, Volume: 6})
	require.NoError(t, err)
	assert.Equal(t, schema.Volume(-6), res.Delta)
	assert.Equal(t, 0, m.Len())

	_, err = m.OnHedgeFill(schema.Fill{OrderID: 4, Price: 9900, Volume: 6})
	assert.Equal(t, exception.ErrHedgeUnknown, err)
}

func TestZeroHedgeFillIsFailed(t *testing.T) {
	m := NewManager(risk.DefaultConfig())
	_, err := m.OnQuoteFill(2, 1, schema.SideSell, 10)
	require.NoError(t, err)

	res, err := m.OnHedgeFill(schema.Fill{OrderID: 2})
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, schema.Volume(0), res.Delta)
	assert.False(t, m.Known(2))
}

func TestPending(t *testing.T) {
	m := NewManager(risk.DefaultConfig())
	_, err := m.OnQuoteFill(2, 1, schema.SideSell, 10)
	require.NoError(t, err)
	_, err = m.OnQuoteFill(3, 1, schema.SideSell, 4)
	require.NoError(t, err)
	_, err = m.OnQuoteFill(5, 4, schema.SideBuy, 6)
	require.NoError(t, err)

	assert.Equal(t, schema.Volume(14), m.Pending(schema.SideBuy))
	assert.Equal(t, schema.Volume(6), m.Pending(schema.SideSell))
}
