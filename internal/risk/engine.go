package risk

import (
	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
)

// Default limits of the competition venue.
const (
	DefaultLotSize               schema.Volume = 10
	DefaultPositionLimit         schema.Volume = 100
	DefaultUnhedgedPositionLimit schema.Volume = 10
	DefaultTickSize              schema.Price  = 100
)

// Config defines the static quoting limits.
type Config struct {
	LotSize               schema.Volume `json:"lotSize"`
	PositionLimit         schema.Volume `json:"positionLimit"`
	UnhedgedPositionLimit schema.Volume `json:"unhedgedPositionLimit"`
	TickSize              schema.Price  `json:"tickSize"`
}

// DefaultConfig returns the venue defaults.
func DefaultConfig() Config {
	return Config{
		LotSize:               DefaultLotSize,
		PositionLimit:         DefaultPositionLimit,
		UnhedgedPositionLimit: DefaultUnhedgedPositionLimit,
		TickSize:              DefaultTickSize,
	}
}

// Validate rejects non-positive limits.
func (c Config) Validate() error {
	switch {
	case c.LotSize <= 0:
		return errors.Wrap(exception.ErrConfigInvalid, "lot size must be positive").With("lotSize", c.LotSize)
	case c.PositionLimit <= 0:
		return errors.Wrap(exception.ErrConfigInvalid, "position limit must be positive").With("positionLimit", c.PositionLimit)
	case c.UnhedgedPositionLimit < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "unhedged limit must not be negative").With("unhedgedPositionLimit", c.UnhedgedPositionLimit)
	case c.TickSize <= 0:
		return errors.Wrap(exception.ErrConfigInvalid, "tick size must be positive").With("tickSize", c.TickSize)
	}
	return nil
}

// HedgeBuyPrice is the highest ask on the tick grid.
func (c Config) HedgeBuyPrice() schema.Price {
	return schema.MaximumAsk / c.TickSize * c.TickSize
}

// HedgeSellPrice is the lowest bid on the tick grid.
func (c Config) HedgeSellPrice() schema.Price {
	return (schema.MinimumBid + c.TickSize) / c.TickSize * c.TickSize
}

// Action is the outcome of a risk evaluation.
type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

// Reason explains a denial.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonInvalidVolume
	ReasonPositionLimit
	ReasonUnhedgedLimit
	reasonCount
)

// ReasonCount is the number of distinct reasons.
const ReasonCount = int(reasonCount)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInvalidVolume:
		return "invalid_volume"
	case ReasonPositionLimit:
		return "position_limit"
	case ReasonUnhedgedLimit:
		return "unhedged_limit"
	default:
		return "unknown"
	}
}

// Decision is the result of Evaluate.
type Decision struct {
	Action Action
	Reason Reason
	Next   StateView
}

func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

// StateView provides the current counters and the volume still in flight.
type StateView struct {
	Position      schema.Volume
	HedgePosition schema.Volume
	// OpenBuy and OpenSell are reserved quote volume not yet filled.
	OpenBuy  schema.Volume
	OpenSell schema.Volume
	// HedgingBuy and HedgingSell are hedge volume sent but not yet filled.
	HedgingBuy  schema.Volume
	HedgingSell schema.Volume
}

// Unhedged is the exposure left after hedges. HedgePosition holds real
// reference inventory, so a full hedge cancels the quoted position.
func (s StateView) Unhedged() schema.Volume {
	return s.Position + s.HedgePosition
}

// PositionRange bounds Position over every outcome of the open quotes: a
// quote either fills, leaving Position as is, or releases its reservation.
func (s StateView) PositionRange() (schema.Volume, schema.Volume) {
	return s.Position - s.OpenBuy, s.Position + s.OpenSell
}

// UnhedgedRange bounds the unhedged exposure over every outcome of the open
// quotes and pending hedges.
func (s StateView) UnhedgedRange() (schema.Volume, schema.Volume) {
	u := s.Unhedged()
	return u - s.OpenBuy - s.HedgingSell, u + s.OpenSell + s.HedgingBuy
}

// Engine evaluates whether a quote may be reserved.
type Engine struct {
	cfg Config
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate checks that reserving volume on side keeps Position and the
// unhedged exposure inside their limits whatever happens to the orders in
// flight. Limits are inclusive.
func (e *Engine) Evaluate(side schema.Side, volume schema.Volume, state StateView) Decision {
	decision := Decision{Action: ActionAllow, Reason: ReasonNone}
	if volume <= 0 || !side.Valid() {
		decision.Action = ActionDeny
		decision.Reason = ReasonInvalidVolume
		return decision
	}

	next := applySide(state, side, volume)
	decision.Next = next

	lo, hi := next.PositionRange()
	if lo < -e.cfg.PositionLimit || hi > e.cfg.PositionLimit {
		decision.Action = ActionDeny
		decision.Reason = ReasonPositionLimit
		return decision
	}

	lo, hi = next.UnhedgedRange()
	if lo < -e.cfg.UnhedgedPositionLimit || hi > e.cfg.UnhedgedPositionLimit {
		decision.Action = ActionDeny
		decision.Reason = ReasonUnhedgedLimit
		return decision
	}

	return decision
}

// Holds reports whether the counters are inside both limits.
func (e *Engine) Holds(state StateView) bool {
	return abs(state.Position) <= e.cfg.PositionLimit &&
		abs(state.Unhedged()) <= e.cfg.UnhedgedPositionLimit
}

func applySide(state StateView, side schema.Side, volume schema.Volume) StateView {
	state.Position += schema.Volume(side.Sign()) * volume
	if side == schema.SideBuy {
		state.OpenBuy += volume
	} else {
		state.OpenSell += volume
	}
	return state
}

func abs(v schema.Volume) schema.Volume {
	if v < 0 {
		return -v
	}
	return v
}
