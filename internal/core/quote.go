package core

import (
	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
	"go.uber.org/zap"
)

type candidate struct {
	side        schema.Side
	price       schema.Price
	opportunity bool
}

// quote runs on every quoted-instrument book update. Both sides re-price
// before either side inserts.
func (e *Engine) quote(top schema.TopOfBook) error {
	opp := e.tracker.Opportunity()
	candidates := [...]candidate{
		{side: schema.SideSell, price: e.askCandidate(top), opportunity: opp.Sell},
		{side: schema.SideBuy, price: e.bidCandidate(top), opportunity: opp.Buy},
	}

	for _, c := range candidates {
		e.reprice(c)
	}
	for _, c := range candidates {
		if err := e.insert(c); err != nil {
			return err
		}
	}
	return nil
}

// askCandidate is one tick inside the best ask, zero when the side is empty.
func (e *Engine) askCandidate(top schema.TopOfBook) schema.Price {
	if top.AskPrice == 0 || top.AskPrice <= e.cfg.TickSize {
		return 0
	}
	return top.AskPrice - e.cfg.TickSize
}

// bidCandidate is one tick inside the best bid, zero when the side is empty.
func (e *Engine) bidCandidate(top schema.TopOfBook) schema.Price {
	if top.BidPrice == 0 {
		return 0
	}
	return top.BidPrice + e.cfg.TickSize
}

// reprice cancels the active quote when the candidate moved. The quote stays
// in the ledger until a status confirms nothing remains.
func (e *Engine) reprice(c candidate) {
	o, ok := e.ledger.Active(c.side)
	if !ok || c.price == 0 || c.price == o.Price {
		return
	}
	id := e.ledger.ClearSlot(c.side)
	e.log.Debug("cancel stale quote",
		zap.Uint32("orderId", uint32(id)),
		zap.Stringer("side", c.side),
		zap.Int64("price", int64(o.Price)),
		zap.Int64("candidate", int64(c.price)),
	)
	e.emit(schema.CancelIntent(id))
}

func (e *Engine) insert(c candidate) error {
	if !c.opportunity || c.price == 0 || e.ledger.Slot(c.side) != 0 {
		return nil
	}

	lot := e.cfg.LotSize
	decision := e.risk.Evaluate(c.side, lot, e.View())
	if !decision.Allowed() {
		e.metrics.IncRiskReason(decision.Reason)
		e.log.Debug("insert denied",
			zap.Stringer("side", c.side),
			zap.Int64("price", int64(c.price)),
			zap.Stringer("reason", decision.Reason),
		)
		return nil
	}

	id, ok := e.ids.Next()
	if !ok {
		return errors.Wrap(exception.ErrInternal, "order ids exhausted")
	}
	if _, err := e.ledger.Insert(id, c.side, c.price, lot); err != nil {
		return errors.Wrap(err, "record quote").With("orderId", uint32(id))
	}
	position := e.positions.Reserve(c.side, lot)

	e.log.Debug("insert quote",
		zap.Uint32("orderId", uint32(id)),
		zap.Stringer("side", c.side),
		zap.Int64("price", int64(c.price)),
		zap.Int64("position", int64(position)),
	)
	e.emit(schema.InsertIntent(id, c.side, c.price, lot, schema.LifespanGoodForDay))
	return nil
}
