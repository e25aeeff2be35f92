package sim

import (
	"math/rand/v2"

	"autotrader/internal/schema"
)

// MarketConfig controls the random walk.
type MarketConfig struct {
	Seed   uint64
	Start  schema.Price
	Tick   schema.Price
	Volume schema.Volume
	// MaxBasis is the largest ETF offset from the Future, in ticks.
	MaxBasis int
}

// DefaultMarketConfig returns a walk around $100.00 on a one cent grid of 100.
func DefaultMarketConfig(seed uint64) MarketConfig {
	return MarketConfig{
		Seed:     seed,
		Start:    10000,
		Tick:     100,
		Volume:   20,
		MaxBasis: 3,
	}
}

// Market generates Future and ETF books that wander around a shared mid.
type Market struct {
	cfg MarketConfig
	rng *rand.Rand
	mid schema.Price
	seq [2]uint32
}

func NewMarket(cfg MarketConfig) *Market {
	if cfg.Tick <= 0 {
		cfg.Tick = 100
	}
	if cfg.Start <= 10*cfg.Tick {
		cfg.Start = 100 * cfg.Tick
	}
	if cfg.Volume <= 0 {
		cfg.Volume = 1
	}
	return &Market{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		mid: cfg.Start / cfg.Tick * cfg.Tick,
	}
}

// Next moves the mid by at most one tick and returns the Future and ETF books.
func (m *Market) Next() (schema.BookUpdate, schema.BookUpdate) {
	m.mid += schema.Price(m.rng.IntN(3)-1) * m.cfg.Tick
	if m.mid < 10*m.cfg.Tick {
		m.mid = 10 * m.cfg.Tick
	}

	basis := 0
	if m.cfg.MaxBasis > 0 {
		basis = m.rng.IntN(2*m.cfg.MaxBasis+1) - m.cfg.MaxBasis
	}
	future := m.book(schema.InstrumentFuture, m.mid, 1)
	etf := m.book(schema.InstrumentETF, m.mid+schema.Price(basis)*m.cfg.Tick, 1+m.rng.IntN(2))
	return future, etf
}

// Book builds a five level book whose best bid and ask sit halfTicks from mid.
func (m *Market) book(inst schema.Instrument, mid schema.Price, halfTicks int) schema.BookUpdate {
	m.seq[inst]++
	b := schema.BookUpdate{Instrument: inst, Sequence: m.seq[inst]}
	half := schema.Price(halfTicks) * m.cfg.Tick
	for i := 0; i < schema.TopLevelCount; i++ {
		step := schema.Price(i) * m.cfg.Tick
		b.AskPrices[i] = mid + half + step
		b.BidPrices[i] = max(mid-half-step, 0)
		b.AskVolumes[i] = m.cfg.Volume * schema.Volume(i+1)
		b.BidVolumes[i] = m.cfg.Volume * schema.Volume(i+1)
	}
	return b
}
