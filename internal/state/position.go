package state

import (
	"autotrader/internal/risk"
	"autotrader/internal/schema"
)

// Positions holds the quoted and reference inventory counters.
//
// Position is reserved when a quote is inserted and corrected when the quote
// closes. HedgePosition only moves on hedge fills.
type Positions struct {
	position      schema.Volume
	hedgePosition schema.Volume
}

// NewPositions creates flat counters.
func NewPositions() *Positions {
	return &Positions{}
}

// Reserve applies the full quote volume at insert time.
func (p *Positions) Reserve(side schema.Side, volume schema.Volume) schema.Volume {
	p.position += schema.Volume(side.Sign()) * volume
	return p.position
}

// Release returns the unfilled part of a reservation when a quote closes.
func (p *Positions) Release(side schema.Side, unfilled schema.Volume) schema.Volume {
	p.position -= schema.Volume(side.Sign()) * unfilled
	return p.position
}

// ApplyHedgeFill moves the reference inventory by a filled hedge.
func (p *Positions) ApplyHedgeFill(side schema.Side, volume schema.Volume) schema.Volume {
	p.hedgePosition += schema.Volume(side.Sign()) * volume
	return p.hedgePosition
}

func (p *Positions) Position() schema.Volume {
	return p.position
}

func (p *Positions) HedgePosition() schema.Volume {
	return p.hedgePosition
}

// Unhedged returns the exposure not covered by hedges.
func (p *Positions) Unhedged() schema.Volume {
	return p.View().Unhedged()
}

// View returns the counters for risk evaluation.
func (p *Positions) View() risk.StateView {
	return risk.StateView{
		Position:      p.position,
		HedgePosition: p.hedgePosition,
	}
}

// ApplySnapshot replaces the counters with a snapshot.
func (p *Positions) ApplySnapshot(snapshot Snapshot) {
	p.position = snapshot.Position
	p.hedgePosition = snapshot.HedgePosition
}
