package state

import (
	"path/filepath"
	"testing"

	"autotrader/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Timestamp:     1700000000000,
		LastSeq:       42,
		Connected:     true,
		Position:      -10,
		HedgePosition: 10,
		NextOrderID:   7,
		Orders: []OrderEntry{
			{OrderID: 5, Side: schema.SideBuy, Price: 9800, Reserved: 10, Filled: 3, State: "PARTIAL"},
		},
		Hedges: []HedgeEntry{
			{OrderID: 6, Side: schema.SideSell, Price: 100, Volume: 3},
		},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	snap := sampleSnapshot()

	require.NoError(t, WriteSnapshot(path, snap))
	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestReadSnapshotMissing(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCompareSnapshots(t *testing.T) {
	base := sampleSnapshot()

	other := sampleSnapshot()
	other.Timestamp = 1
	assert.NoError(t, CompareSnapshots(base, other))

	testCases := []struct {
		desc   string
		mutate func(*Snapshot)
	}{
		{"position", func(s *Snapshot) { s.Position = 0 }},
		{"hedge position", func(s *Snapshot) { s.HedgePosition = 0 }},
		{"next id", func(s *Snapshot) { s.NextOrderID = 8 }},
		{"order missing", func(s *Snapshot) { s.Orders = nil }},
		{"order differs", func(s *Snapshot) { s.Orders[0].Filled = 4 }},
		{"hedge missing", func(s *Snapshot) { s.Hedges = nil }},
		{"hedge differs", func(s *Snapshot) { s.Hedges[0].Volume = 4 }},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := sampleSnapshot()
			tc.mutate(&s)
			assert.Error(t, CompareSnapshots(base, s))
		})
	}
}
