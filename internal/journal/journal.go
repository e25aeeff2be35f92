package journal

import (
	"context"
	"time"

	"autotrader/internal/schema"
	"autotrader/internal/state"
	"autotrader/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"
)

// SessionRecord is one stored end-of-session snapshot.
type SessionRecord struct {
	ID            uint          `gorm:"primaryKey"`
	TeamName      string        `gorm:"size:50;index"`
	RecordedAt    time.Time     `gorm:"index"`
	Connected     bool          `gorm:"not null"`
	LastSeq       uint64        `gorm:"not null"`
	Position      int64         `gorm:"not null"`
	HedgePosition int64         `gorm:"not null"`
	Unhedged      int64         `gorm:"not null"`
	NextOrderID   uint32        `gorm:"not null"`
	Orders        []OrderRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	Hedges        []HedgeRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

func (SessionRecord) TableName() string { return "trader_sessions" }

// OrderRecord is a quote still open when the session ended. Its outcome is
// unknown after a disconnect.
type OrderRecord struct {
	ID        uint            `gorm:"primaryKey"`
	SessionID uint            `gorm:"index"`
	OrderID   uint32          `gorm:"not null"`
	Side      string          `gorm:"size:4"`
	Price     decimal.Decimal `gorm:"type:numeric(20,2)"`
	Reserved  int64           `gorm:"not null"`
	Filled    int64           `gorm:"not null"`
	State     string          `gorm:"size:16"`
}

func (OrderRecord) TableName() string { return "trader_open_orders" }

// HedgeRecord is a hedge without a fill notification when the session ended.
type HedgeRecord struct {
	ID        uint            `gorm:"primaryKey"`
	SessionID uint            `gorm:"index"`
	OrderID   uint32          `gorm:"not null"`
	Side      string          `gorm:"size:4"`
	Price     decimal.Decimal `gorm:"type:numeric(20,2)"`
	Volume    int64           `gorm:"not null"`
}

func (HedgeRecord) TableName() string { return "trader_open_hedges" }

// Journal stores session snapshots in PostgreSQL.
type Journal struct {
	db *gorm.DB
}

// Open migrates the journal tables.
func Open(ctx context.Context, db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, exception.ErrNilInstance
	}
	if err := db.WithContext(ctx).AutoMigrate(&SessionRecord{}, &OrderRecord{}, &HedgeRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate journal")
	}
	return &Journal{db: db}, nil
}

// Save stores the snapshot with its open orders and hedges in one transaction.
func (j *Journal) Save(ctx context.Context, teamName string, snap state.Snapshot) (uint, error) {
	rec := FromSnapshot(teamName, snap)
	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "save session").With("teamName", teamName)
	}
	return rec.ID, nil
}

// Latest loads the most recent snapshot of a team.
func (j *Journal) Latest(ctx context.Context, teamName string) (state.Snapshot, error) {
	var rec SessionRecord
	err := j.db.WithContext(ctx).
		Preload("Orders").
		Preload("Hedges").
		Where("team_name = ?", teamName).
		Order("recorded_at DESC, id DESC").
		First(&rec).Error
	if err != nil {
		return state.Snapshot{}, errors.Wrap(err, "load session").With("teamName", teamName)
	}
	return rec.Snapshot(), nil
}

// FromSnapshot converts a snapshot into records. Prices are stored in dollars.
func FromSnapshot(teamName string, snap state.Snapshot) SessionRecord {
	rec := SessionRecord{
		TeamName:      teamName,
		RecordedAt:    time.Unix(0, snap.Timestamp).UTC(),
		Connected:     snap.Connected,
		LastSeq:       snap.LastSeq,
		Position:      int64(snap.Position),
		HedgePosition: int64(snap.HedgePosition),
		Unhedged:      int64(snap.Unhedged),
		NextOrderID:   uint32(snap.NextOrderID),
	}
	for _, o := range snap.Orders {
		rec.Orders = append(rec.Orders, OrderRecord{
			OrderID:  uint32(o.OrderID),
			Side:     o.Side.String(),
			Price:    o.Price.Decimal(),
			Reserved: int64(o.Reserved),
			Filled:   int64(o.Filled),
			State:    o.State,
		})
	}
	for _, h := range snap.Hedges {
		rec.Hedges = append(rec.Hedges, HedgeRecord{
			OrderID: uint32(h.OrderID),
			Side:    h.Side.String(),
			Price:   h.Price.Decimal(),
			Volume:  int64(h.Volume),
		})
	}
	return rec
}

// Snapshot converts the record back into a snapshot.
func (r SessionRecord) Snapshot() state.Snapshot {
	snap := state.Snapshot{
		Timestamp:     r.RecordedAt.UnixNano(),
		LastSeq:       r.LastSeq,
		Connected:     r.Connected,
		Position:      schema.Volume(r.Position),
		HedgePosition: schema.Volume(r.HedgePosition),
		Unhedged:      schema.Volume(r.Unhedged),
		NextOrderID:   schema.OrderID(r.NextOrderID),
	}
	for _, o := range r.Orders {
		snap.Orders = append(snap.Orders, state.OrderEntry{
			OrderID:  schema.OrderID(o.OrderID),
			Side:     parseSide(o.Side),
			Price:    cents(o.Price),
			Reserved: schema.Volume(o.Reserved),
			Filled:   schema.Volume(o.Filled),
			State:    o.State,
		})
	}
	for _, h := range r.Hedges {
		snap.Hedges = append(snap.Hedges, state.HedgeEntry{
			OrderID: schema.OrderID(h.OrderID),
			Side:    parseSide(h.Side),
			Price:   cents(h.Price),
			Volume:  schema.Volume(h.Volume),
		})
	}
	return snap
}

func cents(d decimal.Decimal) schema.Price {
	return schema.Price(d.Shift(2).Round(0).IntPart())
}

func parseSide(s string) schema.Side {
	if s == schema.SideBuy.String() {
		return schema.SideBuy
	}
	return schema.SideSell
}
