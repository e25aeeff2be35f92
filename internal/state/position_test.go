package state

import (
	"testing"

	"autotrader/internal/schema"

	"github.com/stretchr/testify/assert"
)

func TestReserveAndRelease(t *testing.T) {
	p := NewPositions()

	assert.Equal(t, schema.Volume(-10), p.Reserve(schema.SideSell, 10))
	assert.Equal(t, schema.Volume(0), p.Reserve(schema.SideBuy, 10))

	// sell quote closes after filling 4 of 10
	assert.Equal(t, schema.Volume(6), p.Release(schema.SideSell, 6))
	// buy quote cancelled with nothing filled
	assert.Equal(t, schema.Volume(-4), p.Release(schema.SideBuy, 10))
}

func TestHedgeFillOffsetsExposure(t *testing.T) {
	p := NewPositions()
	p.Reserve(schema.SideSell, 10)
	assert.Equal(t, schema.Volume(-10), p.Unhedged())

	assert.Equal(t, schema.Volume(10), p.ApplyHedgeFill(schema.SideBuy, 10))
	assert.Equal(t, schema.Volume(0), p.Unhedged())

	view := p.View()
	assert.Equal(t, schema.Volume(-10), view.Position)
	assert.Equal(t, schema.Volume(10), view.HedgePosition)
}

func TestApplySnapshot(t *testing.T) {
	p := NewPositions()
	p.Reserve(schema.SideBuy, 30)
	p.ApplySnapshot(Snapshot{Position: -20, HedgePosition: 20})
	assert.Equal(t, schema.Volume(-20), p.Position())
	assert.Equal(t, schema.Volume(20), p.HedgePosition())
}
