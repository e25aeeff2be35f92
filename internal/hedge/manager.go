package hedge

import (
	"cmp"
	"slices"

	"autotrader/internal/risk"
	"autotrader/internal/schema"
	"autotrader/pkg/exception"
)

// Order is a hedge sent in the reference instrument.
type Order struct {
	ID     schema.OrderID
	Side   schema.Side
	Price  schema.Price
	Volume schema.Volume
	// QuoteID is the quote whose fill triggered the hedge.
	QuoteID schema.OrderID
}

// Result is the outcome of a hedge fill.
type Result struct {
	Order Order
	// Delta is the signed change of the reference inventory.
	Delta schema.Volume
	// Failed is set when the venue reports no execution.
	Failed bool
}

// Manager issues hedges for quote fills and tracks them until filled.
type Manager struct {
	buyPrice  schema.Price
	sellPrice schema.Price
	orders    map[schema.OrderID]Order
}

// NewManager creates a manager that crosses the whole book on the cfg tick grid.
func NewManager(cfg risk.Config) *Manager {
	return &Manager{
		buyPrice:  cfg.HedgeBuyPrice(),
		sellPrice: cfg.HedgeSellPrice(),
		orders:    make(map[schema.OrderID]Order),
	}
}

// Price returns the marketable price for a hedge on side.
func (m *Manager) Price(side schema.Side) schema.Price {
	if side == schema.SideBuy {
		return m.buyPrice
	}
	return m.sellPrice
}

// OnQuoteFill records a hedge for a quote fill and returns its intent.
// The hedge trades the opposite side for the filled volume.
func (m *Manager) OnQuoteFill(id schema.OrderID, quote schema.OrderID, filled schema.Side, volume schema.Volume) (schema.Intent, error) {
	if id == 0 {
		return schema.Intent{}, exception.ErrOrderZeroID
	}
	if volume <= 0 {
		return schema.Intent{}, exception.ErrOrderInvalidFill
	}
	if _, ok := m.orders[id]; ok {
		return schema.Intent{}, exception.ErrHedgeDuplicate
	}

	side := filled.Opposite()
	o := Order{
		ID:      id,
		Side:    side,
		Price:   m.Price(side),
		Volume:  volume,
		QuoteID: quote,
	}
	m.orders[id] = o
	return schema.HedgeIntent(o.ID, o.Side, o.Price, o.Volume), nil
}

// OnHedgeFill closes a known hedge. A fill without price or volume is
// reported as failed and leaves the inventory untouched.
func (m *Manager) OnHedgeFill(fill schema.Fill) (Result, error) {
	o, ok := m.orders[fill.OrderID]
	if !ok {
		return Result{}, exception.ErrHedgeUnknown
	}
	delete(m.orders, fill.OrderID)

	if fill.Price == 0 || fill.Volume == 0 {
		return Result{Order: o, Failed: true}, nil
	}
	return Result{
		Order: o,
		Delta: schema.Volume(o.Side.Sign()) * fill.Volume,
	}, nil
}

// Known reports whether id is an outstanding hedge.
func (m *Manager) Known(id schema.OrderID) bool {
	_, ok := m.orders[id]
	return ok
}

// Pending returns the hedge volume on side still waiting for a fill.
func (m *Manager) Pending(side schema.Side) schema.Volume {
	var total schema.Volume
	for _, o := range m.orders {
		if o.Side == side {
			total += o.Volume
		}
	}
	return total
}

func (m *Manager) Len() int {
	return len(m.orders)
}

// Orders returns the outstanding hedges ordered by id.
func (m *Manager) Orders() []Order {
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Order) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
