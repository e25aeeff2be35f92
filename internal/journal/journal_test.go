package journal

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"autotrader/internal/schema"
	"autotrader/internal/state"
	"autotrader/pkg/conn"
	"autotrader/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() state.Snapshot {
	return state.Snapshot{
		Timestamp:     1_700_000_000_123_456_789,
		LastSeq:       42,
		Connected:     false,
		Position:      20,
		HedgePosition: -10,
		Unhedged:      10,
		NextOrderID:   9,
		Orders: []state.OrderEntry{
			{OrderID: 5, Side: schema.SideBuy, Price: 10150, Reserved: 10, Filled: 3, State: "PARTIAL"},
			{OrderID: 6, Side: schema.SideSell, Price: 10300, Reserved: 10, State: "PENDING"},
		},
		Hedges: []state.HedgeEntry{
			{OrderID: 8, Side: schema.SideSell, Price: 100, Volume: 3},
		},
	}
}

func TestSnapshotRecordConversion(t *testing.T) {
	snap := sampleSnapshot()
	rec := FromSnapshot("alpha", snap)

	assert.Equal(t, "alpha", rec.TeamName)
	require.Len(t, rec.Orders, 2)
	assert.True(t, decimal.RequireFromString("101.50").Equal(rec.Orders[0].Price))
	assert.Equal(t, "Buy", rec.Orders[0].Side)
	require.Len(t, rec.Hedges, 1)
	assert.True(t, decimal.RequireFromString("1").Equal(rec.Hedges[0].Price))

	assert.Equal(t, snap, rec.Snapshot())
}

func TestEmptySnapshotConversion(t *testing.T) {
	snap := state.Snapshot{Timestamp: 1, Connected: true, NextOrderID: 1}
	assert.Equal(t, snap, FromSnapshot("alpha", snap).Snapshot())
}

func TestOpenRequiresDB(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.Equal(t, exception.ErrNilInstance, err)
}

// envTestDSN points the storage tests at a disposable PostgreSQL database.
const envTestDSN = "AUTOTRADER_TEST_JOURNAL_DSN"

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	dsn := os.Getenv(envTestDSN)
	if dsn == "" {
		t.Skipf("%s not set", envTestDSN)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := conn.New(ctx, conn.Option{ConnString: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	j, err := Open(ctx, client.DB())
	require.NoError(t, err)
	return j
}

func TestSaveAndLatest(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	team := "journal-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	t.Cleanup(func() {
		_ = j.db.Where("team_name = ?", team).Delete(&SessionRecord{}).Error
	})

	_, err := j.Latest(ctx, team)
	require.Error(t, err)

	older := state.Snapshot{Timestamp: 1_700_000_000_000_000_000, Connected: true, NextOrderID: 3}
	olderID, err := j.Save(ctx, team, older)
	require.NoError(t, err)
	assert.NotZero(t, olderID)

	// postgres keeps microseconds
	newer := sampleSnapshot()
	newer.Timestamp = 1_700_000_000_123_456_000
	newerID, err := j.Save(ctx, team, newer)
	require.NoError(t, err)
	assert.Greater(t, newerID, olderID)

	got, err := j.Latest(ctx, team)
	require.NoError(t, err)
	assert.ElementsMatch(t, newer.Orders, got.Orders)
	assert.ElementsMatch(t, newer.Hedges, got.Hedges)
	got.Orders, got.Hedges = nil, nil
	newer.Orders, newer.Hedges = nil, nil
	assert.Equal(t, newer, got)
}
