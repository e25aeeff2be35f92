package state

import (
	"os"
	"path/filepath"

	"autotrader/internal/schema"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// Snapshot captures the engine state at a point in time.
type Snapshot struct {
	Timestamp     int64          `json:"timestamp"`
	LastSeq       uint64         `json:"lastSeq"`
	Connected     bool           `json:"connected"`
	Position      schema.Volume  `json:"position"`
	HedgePosition schema.Volume  `json:"hedgePosition"`
	Unhedged      schema.Volume  `json:"unhedged"`
	NextOrderID   schema.OrderID `json:"nextOrderId"`
	Orders        []OrderEntry   `json:"orders"`
	Hedges        []HedgeEntry   `json:"hedges"`
}

// OrderEntry is an open quote.
type OrderEntry struct {
	OrderID  schema.OrderID `json:"orderId"`
	Side     schema.Side    `json:"side"`
	Price    schema.Price   `json:"price"`
	Reserved schema.Volume  `json:"reserved"`
	Filled   schema.Volume  `json:"filled"`
	State    string         `json:"state"`
}

// HedgeEntry is a hedge waiting for its fill.
type HedgeEntry struct {
	OrderID schema.OrderID `json:"orderId"`
	Side    schema.Side    `json:"side"`
	Price   schema.Price   `json:"price"`
	Volume  schema.Volume  `json:"volume"`
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := sonic.ConfigStd.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := sonic.ConfigStd.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "unmarshal snapshot").With("path", path)
	}
	return snap, nil
}

// CompareSnapshots checks that two snapshots hold the same state. Timestamps are ignored.
func CompareSnapshots(expected, actual Snapshot) error {
	if expected.Position != actual.Position {
		return errors.Errorf("snapshot position mismatch: expected=%d actual=%d", expected.Position, actual.Position)
	}
	if expected.HedgePosition != actual.HedgePosition {
		return errors.Errorf("snapshot hedge position mismatch: expected=%d actual=%d", expected.HedgePosition, actual.HedgePosition)
	}
	if expected.NextOrderID != actual.NextOrderID {
		return errors.Errorf("snapshot next order id mismatch: expected=%d actual=%d", expected.NextOrderID, actual.NextOrderID)
	}
	if len(expected.Orders) != len(actual.Orders) {
		return errors.Errorf("snapshot order count mismatch: expected=%d actual=%d", len(expected.Orders), len(actual.Orders))
	}
	for i := range expected.Orders {
		if expected.Orders[i] != actual.Orders[i] {
			return errors.Errorf("snapshot order mismatch: expected=%+v actual=%+v", expected.Orders[i], actual.Orders[i])
		}
	}
	if len(expected.Hedges) != len(actual.Hedges) {
		return errors.Errorf("snapshot hedge count mismatch: expected=%d actual=%d", len(expected.Hedges), len(actual.Hedges))
	}
	for i := range expected.Hedges {
		if expected.Hedges[i] != actual.Hedges[i] {
			return errors.Errorf("snapshot hedge mismatch: expected=%+v actual=%+v", expected.Hedges[i], actual.Hedges[i])
		}
	}
	return nil
}
