package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"autotrader/internal/bus"
	"autotrader/internal/codec"
	"autotrader/internal/obs"
	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
	"go.uber.org/zap/zaptest"
)

func frame(t *testing.T, ev schema.Event) []byte {
	t.Helper()
	b, err := codec.AppendEvent(nil, ev)
	require.NoError(t, err)
	return b
}

func next(t *testing.T, q *bus.Queue) schema.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var got schema.Event
	done := errStop{}
	err := q.Run(ctx, func(e bus.Envelope) error {
		got = e.Event
		return done
	})
	require.Equal(t, done, err)
	return got
}

type errStop struct{}

func (errStop) Error() string { return "stop" }

func TestExecLoginAndSend(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	exec := NewExec(client, zaptest.NewLogger(t), nil)
	defer exec.Close()

	type frameOut struct {
		t    codec.MessageType
		body []byte
	}
	frames := make(chan frameOut, 2)
	go func() {
		r := codec.NewFrameReader(server)
		for i := 0; i < 2; i++ {
			mt, body, err := r.Next()
			if err != nil {
				close(frames)
				return
			}
			frames <- frameOut{mt, append([]byte(nil), body...)}
		}
	}()

	require.NoError(t, exec.Login("alpha", "secret"))
	in := schema.InsertIntent(7, schema.SideSell, 10100, 10, schema.LifespanGoodForDay)
	require.NoError(t, exec.Send(in))

	login := <-frames
	assert.Equal(t, codec.MessageLogin, login.t)
	name, secret, ok := codec.DecodeLogin(login.body)
	require.True(t, ok)
	assert.Equal(t, "alpha", name)
	assert.Equal(t, "secret", secret)

	insert := <-frames
	assert.Equal(t, codec.MessageInsertOrder, insert.t)
	got, err := codec.DecodeIntent(insert.t, insert.body)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestExecRunPublishesAndDisconnects(t *testing.T) {
	client, server := net.Pipe()
	exec := NewExec(client, zaptest.NewLogger(t), nil)
	q := bus.NewQueue(16)

	runErr := make(chan error, 1)
	go func() { runErr <- exec.Run(context.Background(), q) }()

	fill := schema.NewOrderFilled(3, 10000, 4)
	status := schema.NewOrderStatus(3, 4, 6, -2)
	_, err := server.Write(frame(t, fill))
	require.NoError(t, err)
	_, err = server.Write(frame(t, status))
	require.NoError(t, err)
	require.NoError(t, server.Close())

	assert.Equal(t, fill, next(t, q))
	assert.Equal(t, status, next(t, q))
	assert.Equal(t, schema.EventDisconnect, next(t, q).Type)
	assert.NoError(t, <-runErr)
}

func TestExecRunStopsOnCancel(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	exec := NewExec(client, zaptest.NewLogger(t), nil)
	q := bus.NewQueue(1)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- exec.Run(ctx, q) }()
	cancel()

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("exec did not stop")
	}
	assert.Zero(t, q.Len())
}

func TestInfoPublishesBooksAndCountsDrops(t *testing.T) {
	metrics := obs.NewMetrics()
	info, err := ListenInfo(context.Background(), "127.0.0.1:0", zaptest.NewLogger(t), metrics)
	require.NoError(t, err)
	q := bus.NewQueue(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- info.Run(ctx, q) }()

	conn, err := net.Dial("udp", info.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	b := schema.BookUpdate{Instrument: schema.InstrumentFuture, Sequence: 1}
	b.AskPrices[0], b.BidPrices[0] = 10100, 10000
	second := b
	second.Sequence = 2

	// two frames in one datagram: the queue holds one, the other is dropped
	datagram := append(frame(t, schema.NewBookUpdate(b)), frame(t, schema.NewBookUpdate(second))...)
	_, err = conn.Write(datagram)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return metrics.Snapshot().QueueDrops == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, schema.NewBookUpdate(b), next(t, q))

	cancel()
	assert.NoError(t, <-runErr)
}

func TestExecRunRejectsUnexpectedMessage(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	exec := NewExec(client, zaptest.NewLogger(t), nil)
	defer exec.Close()
	q := bus.NewQueue(4)

	runErr := make(chan error, 1)
	go func() { runErr <- exec.Run(context.Background(), q) }()

	login, err := codec.AppendLogin(nil, "alpha", "secret")
	require.NoError(t, err)
	_, err = server.Write(login)
	require.NoError(t, err)

	select {
	case err := <-runErr:
		assert.True(t, errors.Is(err, exception.ErrUnexpectedMessage))
	case <-time.After(2 * time.Second):
		t.Fatal("exec did not stop")
	}
	assert.Zero(t, q.Len())
}

func TestInfoRejectsExecutionMessage(t *testing.T) {
	info, err := ListenInfo(context.Background(), "127.0.0.1:0", zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	defer info.Close()
	q := bus.NewQueue(4)

	runErr := make(chan error, 1)
	go func() { runErr <- info.Run(context.Background(), q) }()

	conn, err := net.Dial("udp", info.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(frame(t, schema.NewOrderFilled(1, 10000, 1)))
	require.NoError(t, err)

	select {
	case err := <-runErr:
		assert.True(t, errors.Is(err, exception.ErrUnexpectedMessage))
	case <-time.After(2 * time.Second):
		t.Fatal("info did not stop")
	}
	assert.Zero(t, q.Len())
}
