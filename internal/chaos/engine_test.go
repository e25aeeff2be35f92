package chaos

import (
	"testing"
	"time"

	"autotrader/internal/recorder"
	"autotrader/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inbound(seq uint64) recorder.Record {
	return recorder.Record{
		Header:  schema.NewHeader(schema.EventBookUpdate, seq, int64(seq), int64(seq)),
		Payload: []byte{byte(seq)},
	}
}

func run(e *Engine, records []recorder.Record) []recorder.Record {
	var out []recorder.Record
	for _, r := range records {
		out = append(out, e.Process(r)...)
	}
	return append(out, e.Flush()...)
}

func TestPassThrough(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1})
	require.NoError(t, err)
	in := []recorder.Record{inbound(1), inbound(2), inbound(3)}
	out := run(e, in)
	require.Len(t, out, 3)
	for i, r := range out {
		assert.Equal(t, in[i].Payload, r.Payload)
		assert.Equal(t, uint64(i+1), r.Header.Seq)
	}
}

func TestIntentsAreDiscarded(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1})
	require.NoError(t, err)
	intent := recorder.Record{Header: schema.NewHeader(schema.EventInsertOrder, 9, 0, 0)}
	assert.Empty(t, e.Process(intent))
}

func TestDropAndDuplicate(t *testing.T) {
	e, err := NewEngine(Config{Seed: 3, DropRate: 1})
	require.NoError(t, err)
	assert.Empty(t, run(e, []recorder.Record{inbound(1), inbound(2)}))

	e, err = NewEngine(Config{Seed: 3, DuplicateRate: 1})
	require.NoError(t, err)
	out := run(e, []recorder.Record{inbound(1), inbound(2)})
	require.Len(t, out, 4)
	assert.Equal(t, out[0].Payload, out[1].Payload)
	assert.Equal(t, out[2].Payload, out[3].Payload)
}

func TestReorderKeepsDisconnectLast(t *testing.T) {
	e, err := NewEngine(Config{Seed: 5, ReorderWindow: 4})
	require.NoError(t, err)
	in := make([]recorder.Record, 0, 11)
	for i := uint64(1); i <= 10; i++ {
		in = append(in, inbound(i))
	}
	in = append(in, recorder.Record{Header: schema.NewHeader(schema.EventDisconnect, 11, 11, 11)})

	out := run(e, in)
	require.Len(t, out, 11)
	assert.Equal(t, schema.EventDisconnect, out[10].Header.Type)
	seen := map[byte]bool{}
	for _, r := range out[:10] {
		seen[r.Payload[0]] = true
	}
	assert.Len(t, seen, 10)
}

func TestDelayMovesReceiveTime(t *testing.T) {
	e, err := NewEngine(Config{Seed: 7, MaxDelay: time.Millisecond})
	require.NoError(t, err)
	for i := uint64(1); i <= 20; i++ {
		out := e.Process(inbound(i))
		require.Len(t, out, 1)
		assert.GreaterOrEqual(t, out[0].Header.TsRecv, int64(i))
		assert.LessOrEqual(t, out[0].Header.TsRecv, int64(i)+time.Millisecond.Nanoseconds())
	}
}

func TestConfigValidation(t *testing.T) {
	for _, cfg := range []Config{
		{DropRate: -0.1},
		{DuplicateRate: 1.5},
		{ReorderWindow: -1},
		{MaxDelay: -time.Second},
	} {
		_, err := NewEngine(cfg)
		assert.Error(t, err)
	}
}
