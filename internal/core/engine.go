package core

import (
	"time"

	"autotrader/internal/hedge"
	"autotrader/internal/market"
	"autotrader/internal/obs"
	"autotrader/internal/og"
	"autotrader/internal/risk"
	"autotrader/internal/schema"
	"autotrader/internal/state"
	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
	"go.uber.org/zap"
)

// SessionState is the dispatcher state.
type SessionState uint8

const (
	SessionConnected SessionState = iota
	SessionDisconnected
)

func (s SessionState) String() string {
	if s == SessionConnected {
		return "CONNECTED"
	}
	return "DISCONNECTED"
}

// Config holds the engine settings. It is fixed for the engine lifetime.
type Config struct {
	Risk risk.Config
	// FirstOrderID is the first client order id, 1 when zero.
	FirstOrderID schema.OrderID
}

// Engine owns all quoting state and handles one event at a time.
type Engine struct {
	cfg     risk.Config
	log     *zap.Logger
	metrics *obs.Metrics

	tracker   *market.Tracker
	risk      *risk.Engine
	positions *state.Positions
	ledger    *og.Ledger
	hedges    *hedge.Manager
	ids       *og.IDAllocator
	gateway   *og.Gateway

	session SessionState
	handled uint64
}

// NewEngine creates an engine that sends its intents to sink.
// A nil logger discards logs; nil metrics are not collected.
func NewEngine(cfg Config, sink og.Sink, logger *zap.Logger, metrics *obs.Metrics) (*Engine, error) {
	if sink == nil {
		return nil, exception.ErrNilInstance
	}
	if err := cfg.Risk.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg.Risk,
		log:       logger.Named("engine"),
		metrics:   metrics,
		tracker:   market.NewTracker(),
		risk:      risk.NewEngine(cfg.Risk),
		positions: state.NewPositions(),
		ledger:    og.NewLedger(),
		hedges:    hedge.NewManager(cfg.Risk),
		ids:       og.NewIDAllocator(cfg.FirstOrderID),
		gateway:   og.NewGateway(sink),
		session:   SessionConnected,
	}, nil
}

// Handle processes one event to completion. It fails with
// exception.ErrUnexpectedEvent for kinds the engine does not accept and with
// exception.ErrSessionClosed once the session is disconnected.
func (e *Engine) Handle(ev schema.Event) error {
	start := time.Now()
	defer func() { e.metrics.ObserveHandle(time.Since(start)) }()

	if e.session == SessionDisconnected {
		return exception.ErrSessionClosed
	}
	if !ev.Type.Inbound() {
		return exception.ErrUnexpectedEvent
	}

	e.handled++
	e.metrics.IncEvent(ev.Type)

	switch ev.Type {
	case schema.EventBookUpdate:
		return e.onBookUpdate(ev.Book)
	case schema.EventTradeTicks:
		// trade ticks carry no decision input yet
		return nil
	case schema.EventOrderFilled:
		return e.onOrderFilled(ev.Fill)
	case schema.EventOrderStatus:
		return e.onOrderStatus(ev.Status)
	case schema.EventHedgeFilled:
		return e.onHedgeFilled(ev.Fill)
	case schema.EventError:
		return e.onError(ev.Error)
	case schema.EventDisconnect:
		e.onDisconnect()
		return nil
	default:
		return exception.ErrUnexpectedEvent
	}
}

func (e *Engine) onBookUpdate(book schema.BookUpdate) error {
	if err := e.tracker.Apply(book); err != nil {
		return errors.Wrap(err, "apply book update").With("instrument", uint8(book.Instrument))
	}
	if book.Instrument != schema.InstrumentETF {
		return nil
	}
	return e.quote(book.Top())
}

func (e *Engine) onOrderFilled(fill schema.Fill) error {
	o, err := e.ledger.ApplyFill(fill)
	if err != nil {
		e.ignore("order fill ignored", fill.OrderID, err)
		return nil
	}

	id, ok := e.ids.Next()
	if !ok {
		return errors.Wrap(exception.ErrInternal, "order ids exhausted")
	}
	intent, err := e.hedges.OnQuoteFill(id, o.ID, o.Side, fill.Volume)
	if err != nil {
		return errors.Wrap(err, "create hedge").With("orderId", uint32(o.ID))
	}

	e.log.Debug("quote filled",
		zap.Uint32("orderId", uint32(o.ID)),
		zap.Stringer("side", o.Side),
		zap.Int64("price", int64(fill.Price)),
		zap.Int64("volume", int64(fill.Volume)),
	)
	e.emit(intent)
	return nil
}

func (e *Engine) onOrderStatus(status schema.OrderStatus) error {
	rel, closed, err := e.ledger.ApplyStatus(status)
	if err != nil {
		e.ignore("order status ignored", status.OrderID, err)
		return nil
	}
	if !closed {
		return nil
	}

	position := e.positions.Release(rel.Order.Side, rel.Unfilled)
	e.log.Debug("quote closed",
		zap.Uint32("orderId", uint32(rel.Order.ID)),
		zap.Stringer("side", rel.Order.Side),
		zap.Int64("filled", int64(rel.Order.Filled)),
		zap.Int64("released", int64(rel.Unfilled)),
		zap.Int64("position", int64(position)),
	)
	return nil
}

func (e *Engine) onHedgeFilled(fill schema.Fill) error {
	res, err := e.hedges.OnHedgeFill(fill)
	if err != nil {
		e.ignore("hedge fill ignored", fill.OrderID, err)
		return nil
	}
	if res.Failed {
		// No compensation: the quote fill stays unhedged.
		e.metrics.IncFailedHedge()
		e.log.Warn("hedge reported without execution",
			zap.Uint32("orderId", uint32(res.Order.ID)),
			zap.Uint32("quoteId", uint32(res.Order.QuoteID)),
			zap.Int64("volume", int64(res.Order.Volume)),
			zap.Int64("unhedged", int64(e.positions.Unhedged())),
		)
		return nil
	}

	e.positions.ApplyHedgeFill(res.Order.Side, fill.Volume)
	e.log.Debug("hedge filled",
		zap.Uint32("orderId", uint32(res.Order.ID)),
		zap.Int64("price", int64(fill.Price)),
		zap.Int64("hedgePosition", int64(e.positions.HedgePosition())),
	)
	return nil
}

// onError closes a known quote as cancelled with nothing filled. Other
// notices are connection level and only logged.
func (e *Engine) onError(notice schema.ErrorNotice) error {
	if notice.OrderID == 0 || !e.ledger.Known(notice.OrderID) {
		e.metrics.IncIgnoredNotice()
		e.log.Warn("venue error",
			zap.Uint32("orderId", uint32(notice.OrderID)),
			zap.String("message", notice.Message),
		)
		return nil
	}
	e.log.Info("order rejected",
		zap.Uint32("orderId", uint32(notice.OrderID)),
		zap.String("message", notice.Message),
	)
	return e.onOrderStatus(schema.OrderStatus{OrderID: notice.OrderID})
}

func (e *Engine) onDisconnect() {
	e.session = SessionDisconnected
	e.gateway.Disconnect()
	e.log.Warn("session disconnected, resting orders assumed lost",
		zap.Int("openOrders", e.ledger.Len()),
		zap.Int("openHedges", e.hedges.Len()),
		zap.Int64("position", int64(e.positions.Position())),
		zap.Int64("hedgePosition", int64(e.positions.HedgePosition())),
	)
}

// emit is fire and forget. A refused intent is logged and counted.
func (e *Engine) emit(intent schema.Intent) {
	if err := e.gateway.Send(intent); err != nil {
		e.metrics.IncSendError()
		e.log.Warn("send intent failed",
			zap.Stringer("type", intent.Type),
			zap.Uint32("orderId", uint32(intent.OrderID)),
			zap.Error(err),
		)
		return
	}
	e.metrics.IncEvent(intent.Type)
}

func (e *Engine) ignore(msg string, id schema.OrderID, err error) {
	e.metrics.IncIgnoredNotice()
	e.log.Debug(msg, zap.Uint32("orderId", uint32(id)), zap.Error(err))
}

// View returns the counters and in-flight volume seen by the risk engine.
func (e *Engine) View() risk.StateView {
	v := e.positions.View()
	v.OpenBuy = e.ledger.Open(schema.SideBuy)
	v.OpenSell = e.ledger.Open(schema.SideSell)
	v.HedgingBuy = e.hedges.Pending(schema.SideBuy)
	v.HedgingSell = e.hedges.Pending(schema.SideSell)
	return v
}

// CheckInvariants verifies the limits and the side slots.
func (e *Engine) CheckInvariants() error {
	v := e.positions.View()
	if !e.risk.Holds(v) {
		return errors.Errorf("limits breached: position=%d hedgePosition=%d", v.Position, v.HedgePosition)
	}
	for _, side := range [...]schema.Side{schema.SideSell, schema.SideBuy} {
		id := e.ledger.Slot(side)
		if id == 0 {
			continue
		}
		o, ok := e.ledger.Order(id)
		if !ok || o.Side != side || o.Cancelling {
			return errors.Errorf("slot %s holds a stale order %d", side, id)
		}
		if id >= e.ids.Peek() {
			return errors.Errorf("slot %s holds an id %d that was never issued", side, id)
		}
	}
	return nil
}

func (e *Engine) Session() SessionState {
	return e.session
}

func (e *Engine) Position() schema.Volume {
	return e.positions.Position()
}

func (e *Engine) HedgePosition() schema.Volume {
	return e.positions.HedgePosition()
}

// Active returns the id holding the side slot, zero when empty.
func (e *Engine) Active(side schema.Side) schema.OrderID {
	return e.ledger.Slot(side)
}

// Orders returns the open quotes ordered by id.
func (e *Engine) Orders() []og.Order {
	return e.ledger.Orders()
}

// Hedges returns the outstanding hedges ordered by id.
func (e *Engine) Hedges() []hedge.Order {
	return e.hedges.Orders()
}

// Snapshot captures the engine state.
func (e *Engine) Snapshot() state.Snapshot {
	snap := state.Snapshot{
		Timestamp:     time.Now().UTC().UnixNano(),
		LastSeq:       e.handled,
		Connected:     e.session == SessionConnected,
		Position:      e.positions.Position(),
		HedgePosition: e.positions.HedgePosition(),
		Unhedged:      e.positions.Unhedged(),
		NextOrderID:   e.ids.Peek(),
	}
	for _, o := range e.ledger.Orders() {
		snap.Orders = append(snap.Orders, state.OrderEntry{
			OrderID:  o.ID,
			Side:     o.Side,
			Price:    o.Price,
			Reserved: o.Reserved,
			Filled:   o.Filled,
			State:    o.State.String(),
		})
	}
	for _, h := range e.hedges.Orders() {
		snap.Hedges = append(snap.Hedges, state.HedgeEntry{
			OrderID: h.ID,
			Side:    h.Side,
			Price:   h.Price,
			Volume:  h.Volume,
		})
	}
	return snap
}
