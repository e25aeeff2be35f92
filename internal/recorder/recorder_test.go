package recorder

import (
	"context"
	"os"
	"testing"
	"time"

	"autotrader/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func book(seq uint32) schema.Event {
	b := schema.BookUpdate{Instrument: schema.InstrumentETF, Sequence: seq}
	b.AskPrices[0], b.AskVolumes[0] = 10100, 5
	b.BidPrices[0], b.BidVolumes[0] = 10000, 7
	return schema.NewBookUpdate(b)
}

func collect(t *testing.T, dir string) []Record {
	t.Helper()
	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	var out []Record
	require.NoError(t, pb.Run(context.Background(), func(r Record) error {
		r.Payload = append([]byte(nil), r.Payload...)
		out = append(out, r)
		return nil
	}))
	return out
}

func TestWriterPlaybackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, w.AppendEvent(book(1), 100, 110))
	require.NoError(t, w.Send(schema.InsertIntent(1, schema.SideBuy, 10000, 10, schema.LifespanGoodForDay)))
	require.NoError(t, w.AppendEvent(schema.NewOrderFilled(1, 10000, 3), 200, 210))
	require.NoError(t, w.AppendEvent(schema.NewDisconnect(), 300, 310))
	require.NoError(t, w.Close())

	records := collect(t, dir)
	require.Len(t, records, 4)
	for i, r := range records {
		assert.Equal(t, uint64(i+1), r.Header.Seq)
		assert.Equal(t, schema.SchemaVersion, r.Header.Version)
	}

	ev, err := records[0].Event()
	require.NoError(t, err)
	assert.Equal(t, book(1), ev)
	assert.Equal(t, int64(100), records[0].Header.TsEvent)
	assert.Equal(t, int64(110), records[0].Header.TsRecv)

	assert.True(t, records[1].Outbound())
	in, err := records[1].Intent()
	require.NoError(t, err)
	assert.Equal(t, schema.InsertIntent(1, schema.SideBuy, 10000, 10, schema.LifespanGoodForDay), in)

	ev, err = records[2].Event()
	require.NoError(t, err)
	assert.Equal(t, schema.NewOrderFilled(1, 10000, 3), ev)

	ev, err = records[3].Event()
	require.NoError(t, err)
	assert.Equal(t, schema.EventDisconnect, ev.Type)
}

func TestWriterRotatesSegments(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.SegmentMaxBytes = 200
	w, err := NewWriter(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	for i := 1; i <= 5; i++ {
		require.NoError(t, w.AppendEvent(book(uint32(i)), int64(i), int64(i)))
	}
	require.NoError(t, w.Close())

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	files, err := pb.Segments()
	require.NoError(t, err)
	assert.Len(t, files, 5)

	records := collect(t, dir)
	require.Len(t, records, 5)
	for i, r := range records {
		ev, err := r.Event()
		require.NoError(t, err)
		assert.Equal(t, uint32(i+1), ev.Book.Sequence)
	}
}

func TestWriterLifecycle(t *testing.T) {
	w, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, ErrNotStarted, w.TryAppend(schema.EventHeader{}, nil))

	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, ErrAlreadyStarted, w.Start(context.Background()))
	require.NoError(t, w.Close())
	assert.Equal(t, ErrClosed, w.TryAppend(schema.EventHeader{}, nil))

	_, err = NewWriter(Config{})
	assert.Error(t, err)
}

func TestReaderDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.AppendEvent(book(1), 1, 1))
	require.NoError(t, w.Close())

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	files, err := pb.Segments()
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	raw[recordHeaderSize+5] ^= 0xff
	require.NoError(t, os.WriteFile(files[0], raw, 0o644))

	err = pb.Run(context.Background(), func(Record) error { return nil })
	assert.True(t, errors.Is(err, ErrChecksumMismatch))

	lenient, err := NewPlayback(PlaybackConfig{Dir: dir, DisableChecksum: true})
	require.NoError(t, err)
	count := 0
	require.NoError(t, lenient.Run(context.Background(), func(Record) error {
		count++
		return nil
	}))
	assert.Equal(t, 1, count)

	require.NoError(t, os.WriteFile(files[0], raw[:len(raw)-2], 0o644))
	assert.Error(t, lenient.Run(context.Background(), func(Record) error { return nil }))
}

type fakeClock struct {
	slept []time.Duration
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	return nil
}

func TestPlaybackPacing(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.AppendEvent(book(1), int64(time.Second), 0))
	require.NoError(t, w.AppendEvent(book(2), int64(3*time.Second), 0))
	require.NoError(t, w.Close())

	clock := &fakeClock{}
	pb, err := NewPlayback(PlaybackConfig{Dir: dir, Speed: 2})
	require.NoError(t, err)
	require.NoError(t, pb.WithClock(clock).Run(context.Background(), func(Record) error { return nil }))
	assert.Equal(t, []time.Duration{time.Second}, clock.slept)
}
